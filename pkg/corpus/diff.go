// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSummary reports how a mutated input diverged from the parent it
// was derived from: the count of inserted and deleted bytes across the
// diffmatchpatch edit script, the triage signal a human skimming an
// event log wants without the full byte dump.
func DiffSummary(parent, child []byte) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(parent), string(child), false)
	var inserted, deleted int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}
	return fmt.Sprintf("+%d -%d bytes vs parent", inserted, deleted)
}
