// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package event defines the EventManager collaborator a Driver notifies
// on every new corpus entry, new solution, or log line, and ships a
// single-process reference broker. A real deployment's restarting event
// manager transport (the network-facing broker that fans events out to
// other worker processes) is outside this module's scope; ChannelManager
// is the local stand-in that keeps the engine runnable end-to-end.
package event

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind tags which of the fixed event variants an Event carries.
type Kind int

const (
	NewTestcase Kind = iota
	NewSolution
	Log
	ShuttingDown
)

func (k Kind) String() string {
	switch k {
	case NewTestcase:
		return "new_testcase"
	case NewSolution:
		return "new_solution"
	case Log:
		return "log"
	case ShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Event is one notification a Driver fires during its loop.
type Event struct {
	ID      uuid.UUID
	Kind    Kind
	Index   int      // corpus/solutions index, for NewTestcase/NewSolution
	Edges   []uint32 // discovered-edge indices, for NewTestcase
	Message string   // free-form text, for Log
}

func newEvent(kind Kind) Event {
	return Event{ID: uuid.New(), Kind: kind}
}

// NewTestcaseEvent reports a corpus addition, including the edges that
// made it interesting.
func NewTestcaseEvent(index int, edges []uint32) Event {
	e := newEvent(NewTestcase)
	e.Index = index
	e.Edges = edges
	return e
}

// NewSolutionEvent reports a solutions-corpus addition.
func NewSolutionEvent(index int) Event {
	e := newEvent(NewSolution)
	e.Index = index
	return e
}

// LogEvent carries a free-form diagnostic line.
func LogEvent(format string, args ...any) Event {
	e := newEvent(Log)
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// ShuttingDownEvent signals cooperative driver shutdown.
func ShuttingDownEvent() Event {
	return newEvent(ShuttingDown)
}

// Manager is implemented by anything a Driver can notify. Fire must not
// block indefinitely; a slow or full subscriber should drop events
// rather than stall the fuzzing loop.
type Manager interface {
	Fire(e Event) error
}
