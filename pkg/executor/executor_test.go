// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInProcessExecutorOK(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) ExitKind {
		return ExitOK
	}, nil)
	status, err := e.Run(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.Equal(t, ExitOK, status.Kind)
}

func TestInProcessExecutorRecoversPanic(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) ExitKind {
		panic("boom")
	}, nil)
	status, err := e.Run(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.Equal(t, ExitCrash, status.Kind)
	require.Contains(t, status.Err.Error(), "boom")
}

func TestInProcessExecutorHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewInProcessExecutor(func(input []byte) ExitKind {
		t.Fatal("harness must not run once the context is done")
		return ExitOK
	}, nil)
	status, err := e.Run(ctx, []byte("x"))
	require.NoError(t, err)
	require.Equal(t, ExitTimeout, status.Kind)
}

func TestCommandExecutorNormalExit(t *testing.T) {
	e := NewCommandExecutor("sh", []string{"-c", "exit 0"}, nil)
	status, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, ExitOK, status.Kind)
}

func TestCommandExecutorNonzeroExitIsUser(t *testing.T) {
	e := NewCommandExecutor("sh", []string{"-c", "exit 7"}, nil)
	status, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, ExitUser, status.Kind)
	require.Equal(t, 7, status.UserCode)
}

func TestCommandExecutorSignalIsCrash(t *testing.T) {
	e := NewCommandExecutor("sh", []string{"-c", "kill -SEGV $$"}, nil)
	status, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, ExitCrash, status.Kind)
}

func TestCommandExecutorDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	e := NewCommandExecutor("sh", []string{"-c", "sleep 2"}, nil)
	status, err := e.Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, ExitTimeout, status.Kind)
}

func TestCommandExecutorFeedsStdin(t *testing.T) {
	e := NewCommandExecutor("sh", []string{"-c", "read line; [ \"$line\" = hello ]"}, nil)
	status, err := e.Run(context.Background(), []byte("hello\n"))
	require.NoError(t, err)
	require.Equal(t, ExitOK, status.Kind)
}

func TestCommandExecutorTruncatesOversizedStderr(t *testing.T) {
	e := NewCommandExecutor("sh", []string{"-c", "yes x | head -c 20000 >&2"}, nil)
	status, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, ExitOK, status.Kind)
	require.Less(t, len(status.Stderr), 20000)
	require.Contains(t, string(status.Stderr), "cut")
}
