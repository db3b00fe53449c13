// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoverageMapNewEdgesOnlyOnce(t *testing.T) {
	c := NewLocalCoverageMap(8)
	c.Bytes()[2] = 1
	c.Bytes()[5] = 3

	fresh := c.NewEdges()
	require.ElementsMatch(t, []uint32{2, 5}, fresh)

	c.Reset()
	c.Bytes()[2] = 1 // same edge hit again
	require.Empty(t, c.NewEdges(), "an edge seen before must not be reported fresh twice")
}

func TestCoverageMapAllHitIgnoresNovelty(t *testing.T) {
	c := NewLocalCoverageMap(4)
	c.Bytes()[0] = 1
	c.NewEdges()
	c.Reset()
	c.Bytes()[0] = 1
	require.Equal(t, []uint32{0}, c.AllHit())
}
