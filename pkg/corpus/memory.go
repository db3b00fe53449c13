// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"sync"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// InMemory is a Corpus variant that keeps every Testcase's full content
// resident: a mutex-guarded slice with append-only growth and a
// tombstone bitmap.
type InMemory struct {
	mu      sync.RWMutex
	entries []*Testcase
	removed []bool
	current int
	hasCurr bool
}

// NewInMemory returns an empty in-memory corpus.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (c *InMemory) Add(tc *Testcase) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.entries)
	c.entries = append(c.entries, tc)
	c.removed = append(c.removed, false)
	return idx
}

func (c *InMemory) Get(idx int) (*Testcase, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx < 0 || idx >= len(c.entries) || c.removed[idx] {
		return nil, ferr.Wrap(ferr.ErrKeyNotFound, "corpus index")
	}
	return c.entries[idx], nil
}

func (c *InMemory) Replace(idx int, tc *Testcase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= len(c.entries) || c.removed[idx] {
		return ferr.Wrap(ferr.ErrKeyNotFound, "corpus index")
	}
	c.entries[idx] = tc
	return nil
}

func (c *InMemory) Remove(idx int) (*Testcase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= len(c.entries) || c.removed[idx] {
		return nil, ferr.Wrap(ferr.ErrKeyNotFound, "corpus index")
	}
	tc := c.entries[idx]
	c.removed[idx] = true
	c.entries[idx] = nil
	return tc, nil
}

func (c *InMemory) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, gone := range c.removed {
		if !gone {
			n++
		}
	}
	return n
}

func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemory) Current() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.hasCurr
}

func (c *InMemory) SetCurrent(idx int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= len(c.entries) || c.removed[idx] {
		return ferr.Wrap(ferr.ErrIllegalState, "set_current on nonexistent index")
	}
	c.current = idx
	c.hasCurr = true
	return nil
}
