// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asan

import (
	"fmt"
	"runtime"

	"github.com/ianlancetaylor/demangle"
)

// backtraceDepth mirrors the original's unresolved backtrace capture: a
// handful of frames above the allocator call is enough to find the
// allocation/release site without the cost of resolving every frame on
// the hot alloc path.
const backtraceDepth = 32

// captureBacktrace records the call stack above its caller, skipping the
// allocator's own frames.
func captureBacktrace() []string {
	pcs := make([]uintptr, backtraceDepth)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		out = append(out, renderFrame(frame))
		if !more {
			break
		}
	}
	return out
}

// renderFrame formats one frame, demangling the function name if it
// looks like a mangled C++ symbol (reachable when the executor wraps a
// cgo harness whose frames surface through runtime.Callers).
func renderFrame(f runtime.Frame) string {
	name := demangle.Filter(f.Function)
	return fmt.Sprintf("%s\n\t%s:%d", name, f.File, f.Line)
}
