// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"time"

	"github.com/VividCortex/gohistogram"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
)

const metadataExecTime = "exec_time"

// TimeFeedback is never interesting on its own; it records the elapsed
// execution time onto the testcase metadata and into a running
// histogram available through Histogram(); pkg/metrics does not export
// this histogram.
type TimeFeedback struct {
	obs  *observer.TimeObserver
	hist gohistogram.Histogram
}

// NewTimeFeedback builds a TimeFeedback reading from obs, keeping a
// 20-bucket numeric histogram of execution durations in microseconds.
func NewTimeFeedback(obs *observer.TimeObserver) *TimeFeedback {
	return &TimeFeedback{
		obs:  obs,
		hist: gohistogram.NewHistogram(20),
	}
}

func (f *TimeFeedback) Name() string { return "time" }

func (f *TimeFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	f.hist.Add(float64(f.obs.Last().Microseconds()))
	return false
}

func (f *TimeFeedback) AppendMetadata(tc *corpus.Testcase) {
	tc.SetMetadata(metadataExecTime, f.obs.Last())
	tc.SetExecTime(f.obs.Last())
}

func (f *TimeFeedback) DiscardMetadata(tc *corpus.Testcase) {
	tc.DeleteMetadata(metadataExecTime)
}

// Histogram exposes the running execution-time distribution for metrics
// export; Quantile(0.5) gives the median run time, for example.
func (f *TimeFeedback) Histogram() gohistogram.Histogram { return f.hist }

// ExecTime returns the metadata TimeFeedback attached to tc, if any.
func ExecTime(tc *corpus.Testcase) (time.Duration, bool) {
	v, ok := tc.Metadata(metadataExecTime)
	if !ok {
		return 0, false
	}
	d, ok := v.(time.Duration)
	return d, ok
}
