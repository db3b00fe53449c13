// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLeadingAndTrailingSlices(t *testing.T) {
	assert.Equal(t, []byte(`01234

<<cut 11 bytes out>>`), truncate([]byte(`0123456789ABCDEF`), 5, 0))
	assert.Equal(t, []byte(`<<cut 11 bytes out>>

BCDEF`), truncate([]byte(`0123456789ABCDEF`), 0, 5))
	assert.Equal(t, []byte(`0123

<<cut 9 bytes out>>

DEF`), truncate([]byte(`0123456789ABCDEF`), 4, 3))
}

func TestTruncateStderrLeavesShortOutputUntouched(t *testing.T) {
	short := []byte("panic: divide by zero")
	assert.Equal(t, short, TruncateStderr(short))
}

func TestTruncateStderrBoundsOversizedOutput(t *testing.T) {
	huge := bytes.Repeat([]byte("x"), stderrHead+stderrTail+1024)
	got := TruncateStderr(huge)
	assert.Less(t, len(got), len(huge))
	assert.Contains(t, string(got), "<<cut")
}
