// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"os"
	"path/filepath"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// OnDisk is a Corpus variant that writes every added Input's bytes to
// dir/<content-hash> (one input per file, deterministic filename from
// content). Get only returns the Testcase handle; a handle rebuilt by
// LoadDir reads its file on its first Load call.
// It delegates index/cursor bookkeeping to an embedded InMemory so the
// two variants share one tombstoning contract.
type OnDisk struct {
	dir string
	mem *InMemory
}

// NewOnDisk creates (if necessary) dir and returns a corpus backed by it.
func NewOnDisk(dir string) (*OnDisk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "create corpus dir "+dir)
	}
	return &OnDisk{dir: dir, mem: NewInMemory()}, nil
}

// Dir returns the backing directory.
func (c *OnDisk) Dir() string { return c.dir }

func (c *OnDisk) pathFor(in *Input) string {
	return filepath.Join(c.dir, in.Hash())
}

func (c *OnDisk) Add(tc *Testcase) int {
	if in := tc.Input(); in != nil {
		path := c.pathFor(in)
		if err := in.WriteFile(path); err == nil {
			tc.mu.Lock()
			tc.path = path
			tc.mu.Unlock()
		}
	}
	return c.mem.Add(tc)
}

func (c *OnDisk) Get(idx int) (*Testcase, error) { return c.mem.Get(idx) }

func (c *OnDisk) Replace(idx int, tc *Testcase) error {
	if in := tc.Input(); in != nil {
		path := c.pathFor(in)
		if err := in.WriteFile(path); err == nil {
			tc.mu.Lock()
			tc.path = path
			tc.mu.Unlock()
		}
	}
	return c.mem.Replace(idx, tc)
}

func (c *OnDisk) Remove(idx int) (*Testcase, error) { return c.mem.Remove(idx) }
func (c *OnDisk) Count() int                        { return c.mem.Count() }
func (c *OnDisk) Len() int                          { return c.mem.Len() }
func (c *OnDisk) Current() (int, bool)              { return c.mem.Current() }
func (c *OnDisk) SetCurrent(idx int) error          { return c.mem.SetCurrent(idx) }

// LoadDir rebuilds an OnDisk corpus by reading every file already present
// in dir — used on worker restart to repopulate the corpus from what a
// prior run already persisted.
func LoadDir(dir string) (*OnDisk, error) {
	c, err := NewOnDisk(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "read corpus dir "+dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		tc := newLazyTestcase(path)
		c.mem.Add(tc)
	}
	return c, nil
}
