// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
	"github.com/fuzzforge/fuzzforge/pkg/log"
)

// CommandExecutor runs the target as a subprocess, feeding the input on
// stdin and classifying the exit: normal exit is Ok, a fatal-signal exit
// is Crash, a context deadline is Timeout.
type CommandExecutor struct {
	path    string
	args    []string
	env     []string // extra entries appended to os.Environ(), e.g. the concolic trace path
	limiter *rate.Limiter
}

// NewCommandExecutor builds an executor that runs path with args, piping
// the input on stdin. limiter may be nil.
func NewCommandExecutor(path string, args []string, limiter *rate.Limiter) *CommandExecutor {
	return &CommandExecutor{path: path, args: args, limiter: limiter}
}

// WithEnv returns a copy of e that additionally sets the given
// "KEY=VALUE" entries in the child's environment.
func (e *CommandExecutor) WithEnv(env ...string) *CommandExecutor {
	cp := *e
	cp.env = append(append([]string{}, e.env...), env...)
	return &cp
}

func (e *CommandExecutor) Run(ctx context.Context, input []byte) (*ExitStatus, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, ferr.Wrap(ferr.ErrIllegalState, "rate limiter wait")
		}
	}

	cmd := exec.CommandContext(ctx, e.path, e.args...)
	cmd.Stdin = bytes.NewReader(input)
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	captured := log.TruncateStderr(stderr.Bytes())
	if ctx.Err() == context.DeadlineExceeded {
		return &ExitStatus{Kind: ExitTimeout, Stderr: captured}, nil
	}
	if err == nil {
		return &ExitStatus{Kind: ExitOK, Stderr: captured}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// SIGSEGV/SIGBUS/SIGILL/SIGABRT are the signals a real
		// sanitizer-instrumented target raises on a real bug, but we
		// classify any signal death as a Crash rather than enumerate them.
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return &ExitStatus{Kind: ExitCrash, Err: err, Stderr: captured}, nil
		}
		return &ExitStatus{
			Kind:     ExitUser,
			UserCode: exitErr.ExitCode(),
			Err:      err,
			Stderr:   captured,
		}, nil
	}
	return nil, ferr.Wrap(ferr.ErrIllegalState, "spawn target: "+err.Error())
}
