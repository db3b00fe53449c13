// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelManagerDeliversEvent(t *testing.T) {
	m := NewChannelManager(4)
	require.NoError(t, m.Fire(NewTestcaseEvent(3, []uint32{1, 2})))
	got := <-m.Events()
	require.Equal(t, NewTestcase, got.Kind)
	require.Equal(t, 3, got.Index)
	require.NotEqual(t, got.ID.String(), "")
}

func TestChannelManagerDropsWhenFull(t *testing.T) {
	m := NewChannelManager(1)
	require.NoError(t, m.Fire(LogEvent("first")))
	require.NoError(t, m.Fire(LogEvent("second"))) // must not block
	got := <-m.Events()
	require.Equal(t, "first", got.Message)
}

func TestEventsHaveDistinctIDs(t *testing.T) {
	a := NewSolutionEvent(1)
	b := NewSolutionEvent(1)
	require.NotEqual(t, a.ID, b.ID)
}
