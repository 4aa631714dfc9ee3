package domain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors used across the pipeline.
var (
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotFound     = errors.New("not found")
)

// Kind is the closed set of failure classes the error boundary distinguishes.
type Kind int

const (
	KindInternal Kind = iota
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	default:
		return "internal"
	}
}

const maxStackDepth = 32

// Error is a failure raised by a handler. It records its Kind and the call
// stack at the point it was created.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	pcs   []uintptr
	trace string
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes any access-denied Error match ErrAccessDenied.
func (e *Error) Is(target error) bool {
	return target == ErrAccessDenied && e.Kind == KindAccessDenied
}

// StackTrace returns the recorded call stack, one frame per two lines.
func (e *Error) StackTrace() string {
	if e.trace != "" {
		return e.trace
	}
	if len(e.pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// AccessDenied returns an error that the boundary maps to 401.
func AccessDenied(msg string) *Error {
	return newError(KindAccessDenied, msg, nil)
}

// Internal returns an error that the boundary maps to 500.
func Internal(msg string, cause error) *Error {
	return newError(KindInternal, msg, cause)
}

// WithStack returns err unchanged if its chain already records a stack.
// Otherwise it wraps err in an Error of the same Kind whose stack starts at
// the caller of WithStack.
func WithStack(err error) error {
	if err == nil || hasStack(err) {
		return err
	}
	return newError(KindOf(err), "", err)
}

func hasStack(err error) bool {
	var st interface{ StackTrace() string }
	return errors.As(err, &st) && st.StackTrace() != ""
}

func newError(kind Kind, msg string, cause error) *Error {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return &Error{Kind: kind, Message: msg, Err: cause, pcs: pcs[:n]}
}

// FromPanic converts a recovered panic value into an Error. stack is the
// output of debug.Stack taken inside the deferred recover.
func FromPanic(p any, stack []byte) *Error {
	if e, ok := p.(*Error); ok {
		return e
	}
	if err, ok := p.(error); ok {
		return &Error{Kind: KindOf(err), Message: err.Error(), Err: err, trace: string(stack)}
	}
	return &Error{Kind: KindInternal, Message: fmt.Sprint(p), trace: string(stack)}
}

// KindOf classifies err. Anything that is not access denied is internal.
func KindOf(err error) Kind {
	if errors.Is(err, ErrAccessDenied) {
		return KindAccessDenied
	}
	return KindInternal
}

// Trace returns the first stack trace recorded in err's chain. Errors that
// carry no stack are described by their type chain instead.
func Trace(err error) string {
	var st interface{ StackTrace() string }
	if errors.As(err, &st) {
		if s := st.StackTrace(); s != "" {
			return s
		}
	}
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %s\n", e, e.Error())
	}
	return b.String()
}

// ErrorResponse is the JSON envelope written for every failed request.
type ErrorResponse struct {
	Success      bool    `json:"Success"`
	Message      string  `json:"Message"`
	ErrorDetails *string `json:"ErrorDetails"`
	Payload      any     `json:"Payload"`
}
