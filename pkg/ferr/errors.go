// Package ferr defines the closed set of error kinds that the fuzzing
// core can return. Every kind wraps a sentinel so callers can test with
// errors.Is, and carries enough context via Wrap's message to be logged
// without a second lookup.
package ferr

import "errors"

var (
	// ErrSerialize is returned when an on-disk testcase or state snapshot
	// fails to encode or decode.
	ErrSerialize = errors.New("serialize")
	// ErrFile is returned for file not found, permission denied, disk full.
	ErrFile = errors.New("file")
	// ErrEmptyOptional is returned when mandatory metadata is missing,
	// e.g. Tokens when a token mutator is configured.
	ErrEmptyOptional = errors.New("empty optional")
	// ErrKeyNotFound is returned when a corpus index is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrIllegalArgument is returned for a malformed token file, a
	// zero-size mandatory input, and similar caller mistakes.
	ErrIllegalArgument = errors.New("illegal argument")
	// ErrIllegalState is returned when an invariant is violated, e.g.
	// set_current on a nonexistent index.
	ErrIllegalState = errors.New("illegal state")
	// ErrNotImplemented is returned for a platform-unsupported operation.
	ErrNotImplemented = errors.New("not implemented")
	// ErrShuttingDown is signaled by the event manager during cooperative
	// shutdown; the driver treats it as a successful return.
	ErrShuttingDown = errors.New("shutting down")
)

// Wrap annotates err with msg while preserving errors.Is(err, kind).
func Wrap(kind error, msg string) error {
	if msg == "" {
		return kind
	}
	return &wrapped{kind: kind, msg: msg}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.kind.Error() }

func (w *wrapped) Unwrap() error { return w.kind }
