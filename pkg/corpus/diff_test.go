// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffSummaryReportsInsertedBytes(t *testing.T) {
	summary := DiffSummary([]byte("hello"), []byte("hello world"))
	require.Equal(t, "+6 -0 bytes vs parent", summary)
}

func TestDiffSummaryReportsDeletedBytes(t *testing.T) {
	summary := DiffSummary([]byte("hello world"), []byte("hello"))
	require.Equal(t, "+0 -6 bytes vs parent", summary)
}

func TestDiffSummaryIdenticalInputs(t *testing.T) {
	summary := DiffSummary([]byte("same"), []byte("same"))
	require.Equal(t, "+0 -0 bytes vs parent", summary)
}
