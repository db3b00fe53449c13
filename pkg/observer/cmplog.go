// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

import "github.com/fuzzforge/fuzzforge/pkg/cmplog"

// CompareLogObserver accumulates the comparison table an instrumented
// target records during one execution, for the input-to-state mutator.
type CompareLogObserver struct {
	meta *cmplog.Metadata
}

func NewCompareLogObserver() *CompareLogObserver {
	return &CompareLogObserver{meta: cmplog.NewMetadata()}
}

func (o *CompareLogObserver) Name() string { return "cmplog" }

func (o *CompareLogObserver) Reset() { o.meta.Reset() }

// Record forwards one comparison from the target's instrumentation
// hook into the table.
func (o *CompareLogObserver) Record(pc uint64, lhs, rhs cmplog.Value) {
	o.meta.Record(pc, lhs, rhs)
}

// Metadata returns the table accumulated during the current execution.
func (o *CompareLogObserver) Metadata() *cmplog.Metadata { return o.meta }

// ConcolicTraceObserver accumulates the ConcolicBranch records passed to
// Record during one execution. ConcolicTracingStage and
// SimpleConcolicMutationalStage do not use it: they pass the raw trace
// bytes between them as state metadata.
type ConcolicTraceObserver struct {
	trace []ConcolicBranch
}

// ConcolicBranch records one conditional branch's concrete operands and
// the byte range of the input that determined them, enough for a
// mutator to target a replacement without a real constraint solver.
type ConcolicBranch struct {
	PC        uint64
	Taken     bool
	InputFrom int
	InputTo   int
	Want      []byte // bytes that would flip Taken, when computable
}

func NewConcolicTraceObserver() *ConcolicTraceObserver {
	return &ConcolicTraceObserver{}
}

func (o *ConcolicTraceObserver) Name() string { return "concolic" }

func (o *ConcolicTraceObserver) Reset() { o.trace = o.trace[:0] }

func (o *ConcolicTraceObserver) Record(b ConcolicBranch) {
	o.trace = append(o.trace, b)
}

func (o *ConcolicTraceObserver) Trace() []ConcolicBranch { return o.trace }
