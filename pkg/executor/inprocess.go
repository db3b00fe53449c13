// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// InProcessExecutor calls a Go harness function directly, recovering a
// panic as a Crash so a misbehaving target cannot take the whole worker
// down mid-run.
type InProcessExecutor struct {
	harness Harness
	limiter *rate.Limiter // nil disables rate limiting
}

// NewInProcessExecutor wraps harness. limiter may be nil.
func NewInProcessExecutor(harness Harness, limiter *rate.Limiter) *InProcessExecutor {
	return &InProcessExecutor{harness: harness, limiter: limiter}
}

func (e *InProcessExecutor) Run(ctx context.Context, input []byte) (status *ExitStatus, err error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, ferr.Wrap(ferr.ErrIllegalState, "rate limiter wait")
		}
	}

	status = &ExitStatus{Kind: ExitOK}
	defer func() {
		if r := recover(); r != nil {
			status = &ExitStatus{
				Kind:   ExitCrash,
				Err:    fmt.Errorf("panic in harness: %v", r),
				Stderr: []byte(fmt.Sprintf("%v", r)),
			}
		}
	}()

	select {
	case <-ctx.Done():
		return &ExitStatus{Kind: ExitTimeout, Err: ctx.Err()}, nil
	default:
	}

	status.Kind = e.harness(input)
	return status, nil
}
