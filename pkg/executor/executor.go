// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import "context"

// Executor runs one input against the target and reports how it ended.
// The shape follows a queue.Executor/queue.Source split (Submit/Next)
// generalized from "accept a *prog.Prog request, return asynchronously
// over a channel" to a direct synchronous call, since a byte-string
// fuzzing target has no syscall-sequencing concerns that would require
// that request-queue indirection.
type Executor interface {
	Run(ctx context.Context, input []byte) (*ExitStatus, error)
}

// Harness is a Go-native target function called directly in the
// worker's own goroutine.
type Harness func(input []byte) ExitKind
