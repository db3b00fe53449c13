// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package executor runs one input against the target and classifies the
// outcome. The interface is deliberately thin: everything the fuzzing
// core needs to know about a run is the classification plus whatever an
// Observer recorded during it.
package executor

import "fmt"

// ExitKind classifies how one execution ended, mirroring libafl's
// ExitKind enum (Ok/Crash/Timeout/Diff/User(n)).
type ExitKind int

const (
	ExitOK ExitKind = iota
	ExitCrash
	ExitTimeout
	ExitDiff
	ExitUser // carries a caller-defined code in ExitStatus.UserCode
)

func (k ExitKind) String() string {
	switch k {
	case ExitOK:
		return "ok"
	case ExitCrash:
		return "crash"
	case ExitTimeout:
		return "timeout"
	case ExitDiff:
		return "diff"
	case ExitUser:
		return "user"
	default:
		return fmt.Sprintf("exitkind(%d)", int(k))
	}
}

// ExitStatus is the full result of one Executor.Run call.
type ExitStatus struct {
	Kind     ExitKind
	UserCode int    // meaningful only when Kind == ExitUser
	Err      error  // the panic/signal/process error that produced Kind, if any
	Stderr   []byte // captured target output, for crash triage/backtrace rendering
}
