// Package rterrors defines the error taxonomy from spec.md §7:
// ProducerError (a work item or continuation panicked), ShutdownDiscard (a
// work item was queued on an executor that shut down before running it),
// and the plumbing to recognize CompletedWithError conditions surfaced by
// Future.Get.
//
// Adapted from the teacher repo's bizerrors.Error (a coded error with a
// captured call stack) and errors/stack.go's frame formatting, collapsed
// into the two sentinel-coded conditions this runtime actually raises.
package rterrors

import (
	"errors"
	"fmt"
)

// Code classifies an Error.
type Code int32

const (
	// CodeProducerPanic marks an error produced by recovering a panic
	// inside a work item or continuation.
	CodeProducerPanic Code = iota + 1
	// CodeShutdownDiscard marks a work item that was queued on an
	// Executor or AlarmClock that was closed before the item ran.
	CodeShutdownDiscard
)

// ErrShutdownDiscard is returned to callers who need a sentinel target for
// errors.Is when an executor discards a queued item at shutdown. Discarded
// work items usually have no Future to report through (spec.md's
// ShutdownDiscard note: "its future, if any, never completes"), so this
// sentinel exists for the cases where there is somewhere to report it. No
// executor in this module returns it: pool.WorkerPool.Close and
// timer.AlarmClock.Close drop queued items silently and return nil.
var ErrShutdownDiscard = &Error{code: CodeShutdownDiscard, message: "executor closed before work item ran"}

// Error is a coded error carrying an optional cause and a captured stack.
type Error struct {
	cause   error
	stack   []uintptr
	code    Code
	message string
}

// NewProducerPanic builds a CodeProducerPanic Error from a recovered panic
// value. skip is the number of additional stack frames to skip past the
// deferred recover call, mirroring routine.NewRecovered's skip parameter.
func NewProducerPanic(recovered any, skip int) *Error {
	return &Error{
		code:    CodeProducerPanic,
		message: fmt.Sprintf("panic: %v", recovered),
		stack:   callers(skip + 1),
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap allows errors.Is/errors.As to see through to the cause, and lets
// ErrShutdownDiscard work as an errors.Is target for wrapped instances.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, rterrors.ErrShutdownDiscard) matches any discard error
// regardless of message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.code == other.code
}

// Code returns e's classification.
func (e *Error) Code() Code { return e.code }

// WithCause returns a copy of e with cause attached as the wrapped error.
func (e *Error) WithCause(cause error) *Error {
	return &Error{cause: cause, stack: e.stack, code: e.code, message: e.message}
}

// Format implements fmt.Formatter, printing a stack trace for %+v exactly
// like the teacher's bizerrors.Error and errors.WithStack do.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			frames := runtimeFrames(e.stack)
			for _, f := range frames {
				fmt.Fprintf(s, "\n%s\n\t%s:%d", f.Function, f.File, f.Line)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
