// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

import (
	"os"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
	"github.com/fuzzforge/fuzzforge/pkg/osutil"
)

// CoverageMap is a byte-per-edge hit-count table the instrumented target
// writes into during one execution. For an out-of-process target the
// backing array is a memfd shared mapping (osutil.CreateCoverageMapping);
// for an in-process target it is a plain Go slice the harness closure
// writes into directly.
type CoverageMap struct {
	mem  []byte
	f    *os.File // non-nil only for the shared-memory variant
	seen map[uint32]bool
}

// NewLocalCoverageMap returns a CoverageMap backed by a private slice,
// for targets called as a Go closure in the same process.
func NewLocalCoverageMap(size int) *CoverageMap {
	return &CoverageMap{mem: make([]byte, size), seen: make(map[uint32]bool)}
}

// NewSharedCoverageMap returns a CoverageMap backed by a memfd mapping
// so a subprocess target can write into it without a pipe round trip.
func NewSharedCoverageMap(size int) (*CoverageMap, error) {
	f, mem, err := osutil.CreateCoverageMapping(size)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrIllegalState, "create shared coverage map")
	}
	return &CoverageMap{mem: mem, f: f, seen: make(map[uint32]bool)}, nil
}

func (c *CoverageMap) Name() string { return "coverage" }

// Bytes exposes the raw hit-count buffer the target writes into and
// feedback reads from.
func (c *CoverageMap) Bytes() []byte { return c.mem }

// Reset zeroes the hit-count table before the next execution; the seen
// set persists across resets since novelty is judged against the whole
// run's history, not per execution.
func (c *CoverageMap) Reset() {
	for i := range c.mem {
		c.mem[i] = 0
	}
}

// NewEdges scans the current buffer and returns the edge indices that
// were not hit by any previous execution observed by this map.
func (c *CoverageMap) NewEdges() []uint32 {
	var fresh []uint32
	for i, v := range c.mem {
		if v == 0 {
			continue
		}
		edge := uint32(i)
		if !c.seen[edge] {
			c.seen[edge] = true
			fresh = append(fresh, edge)
		}
	}
	return fresh
}

// AllHit returns every edge index hit during the current execution,
// regardless of novelty, for feedback's total-coverage bookkeeping.
func (c *CoverageMap) AllHit() []uint32 {
	var hit []uint32
	for i, v := range c.mem {
		if v != 0 {
			hit = append(hit, uint32(i))
		}
	}
	return hit
}

// SeenCount returns the number of distinct edges ever observed.
func (c *CoverageMap) SeenCount() int { return len(c.seen) }

// Close releases the shared mapping, a no-op for a local map.
func (c *CoverageMap) Close() error {
	if c.f == nil {
		return nil
	}
	return osutil.CloseCoverageMapping(c.f, c.mem)
}
