// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package state

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/ferr"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
)

func init() {
	// Concrete metadata/feedback-state types that flow through the
	// Metadata and FeedbackState any-valued maps must be registered for
	// gob to encode/decode them through an interface value.
	gob.Register(map[uint32]byte{})
	gob.Register([]uint32{})
	gob.Register(time.Duration(0))
}

// SnapshotFile is the conventional filename a Driver writes next to its
// corpus directory.
const SnapshotFile = "state.snapshot.xz"

// snapshot is the gob-encoded, xz-compressed on-disk representation of a
// State. It deliberately omits the corpus/solutions content: those are
// reloaded from their own directories by the caller via corpus.LoadDir,
// since re-reading files the OS already has cached is simpler than
// duplicating their bytes into the snapshot.
type snapshot struct {
	Seed           int64
	Calls          uint64
	Executions     uint64
	StartTimeUnix  int64
	CorpusDir      string
	SolutionsDir   string
	Metadata       map[string]any
	MaxSize        int
	StabilityRatio float64
	FeedbackState  map[string]any
}

// childrenLister is satisfied by the Or/And combinators, letting
// flattenFeedback recurse into a pipeline tree without pkg/feedback
// exposing its internal node types.
type childrenLister interface{ Children() []feedback.Feedback }

// flattenFeedback walks a feedback pipeline looking for Stateful leaves,
// keyed by Name(). A name collision between two distinct Stateful
// feedbacks silently overwrites in the map, so pipelines should give
// every Stateful feedback a unique name.
func flattenFeedback(f feedback.Feedback, out map[string]any) {
	if f == nil {
		return
	}
	if st, ok := f.(Stateful); ok {
		out[f.Name()] = st.SnapshotState()
	}
	if cl, ok := f.(childrenLister); ok {
		for _, c := range cl.Children() {
			flattenFeedback(c, out)
		}
	}
}

// restoreFeedback is flattenFeedback's inverse, reinstating each
// Stateful leaf's persistent data from a previously captured map.
func restoreFeedback(f feedback.Feedback, in map[string]any) {
	if f == nil || in == nil {
		return
	}
	if st, ok := f.(Stateful); ok {
		if v, ok := in[f.Name()]; ok {
			st.RestoreState(v)
		}
	}
	if cl, ok := f.(childrenLister); ok {
		for _, c := range cl.Children() {
			restoreFeedback(c, in)
		}
	}
}

// corpusDir reports the directory an on-disk-backed Corpus is rooted
// at, or "" for an in-memory corpus that a snapshot cannot usefully
// restore content for.
func corpusDir(c corpus.Corpus) string {
	if d, ok := c.(*corpus.OnDisk); ok {
		return d.Dir()
	}
	return ""
}

// Save writes s to path as a gob-encoded, xz-compressed snapshot.
func (s *State) Save(path string) error {
	s.mu.Lock()
	snap := snapshot{
		Seed:           s.Rand.Seed(),
		Calls:          s.Rand.Calls(),
		Executions:     s.Executions,
		StartTimeUnix:  s.StartTime.Unix(),
		CorpusDir:      corpusDir(s.Corpus),
		SolutionsDir:   corpusDir(s.Solutions),
		Metadata:       s.Metadata,
		MaxSize:        s.MaxSize,
		StabilityRatio: s.StabilityRatio,
		FeedbackState:  make(map[string]any),
	}
	fb, obj := s.Feedback, s.Objective
	s.mu.Unlock()

	flattenFeedback(fb, snap.FeedbackState)
	flattenFeedback(obj, snap.FeedbackState)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "encode state snapshot")
	}

	f, err := os.Create(path)
	if err != nil {
		return ferr.Wrap(ferr.ErrFile, "create snapshot file "+path)
	}
	defer f.Close()

	w, err := xz.NewWriter(f)
	if err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "open xz writer")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "write compressed snapshot")
	}
	if err := w.Close(); err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "close xz writer")
	}
	return nil
}

// Load reads a snapshot written by Save and applies it onto s, reusing
// s's already-constructed Corpus/Solutions/Feedback/Objective instances
// (their content, for an on-disk corpus, is expected to already have
// been reloaded by corpus.LoadDir against the recorded directory before
// calling Load). A missing or corrupt snapshot is reported as an error;
// callers that want "fall back to a fresh State" semantics should treat
// any error from Load as non-fatal, to tolerate a missing or corrupt
// snapshot at restart.
func (s *State) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ferr.Wrap(ferr.ErrFile, "open snapshot file "+path)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "open xz reader")
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "read compressed snapshot")
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return ferr.Wrap(ferr.ErrSerialize, "decode state snapshot")
	}

	s.mu.Lock()
	s.Rand = randsrc.Resume(snap.Seed, snap.Calls)
	s.Executions = snap.Executions
	s.StartTime = time.Unix(snap.StartTimeUnix, 0)
	if snap.Metadata != nil {
		s.Metadata = snap.Metadata
	}
	s.MaxSize = snap.MaxSize
	s.StabilityRatio = snap.StabilityRatio
	fb, obj := s.Feedback, s.Objective
	s.mu.Unlock()

	restoreFeedback(fb, snap.FeedbackState)
	restoreFeedback(obj, snap.FeedbackState)
	return nil
}
