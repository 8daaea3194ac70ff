package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which resource operation produced the error
type Phase string

const (
	PhaseInsert   Phase = "insert"   // registration into the table
	PhaseLookup   Phase = "lookup"   // id resolution
	PhaseDispatch Phase = "dispatch" // read/write/accept/shutdown
	PhaseEager    Phase = "eager"    // synchronous fast path
	PhaseClose    Phase = "close"    // removal and release
	PhaseChild    Phase = "child"    // child process status
	PhaseSpawn    Phase = "spawn"    // child process creation
	PhaseRepl     Phase = "repl"     // line reader
	PhaseHTTP     Phase = "http"     // http body decoding
	PhaseManager  Phase = "manager"  // actor lifecycle
	PhaseHost     Phase = "host"     // host-call binding
)

// Kind categorizes the error
type Kind string

const (
	KindBadResource  Kind = "bad_resource"
	KindUnsupported  Kind = "unsupported"
	KindNotFound     Kind = "not_found"
	KindIO           Kind = "io"
	KindStopped      Kind = "stopped"
	KindExhausted    Kind = "exhausted"
	KindDuplicate    Kind = "duplicate"
	KindReserved     Kind = "reserved"
	KindInvalidInput Kind = "invalid_input"
	KindCanceled     Kind = "canceled"
)

// Error is the structured error type used throughout hostres.
//
// Errors of kinds not_found, unsupported, duplicate, reserved, stopped and
// exhausted are contract violations: they are raised with panic, never returned.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Label  string // resource kind label, e.g. "tcpStream"
	Detail string
	RID    uint32
	HasRID bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasRID {
		b.WriteString(" rid ")
		b.WriteString(strconv.FormatUint(uint64(e.RID), 10))
	}

	if e.Label != "" {
		b.WriteString(" (")
		b.WriteString(e.Label)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error is a contract violation.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindNotFound, KindUnsupported, KindDuplicate, KindReserved, KindStopped, KindExhausted:
		return true
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// RID sets the resource id the error refers to
func (b *Builder) RID(rid uint32) *Builder {
	b.err.RID = rid
	b.err.HasRID = true
	return b
}

// Label sets the resource kind label
func (b *Builder) Label(label string) *Builder {
	b.err.Label = label
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// BadResource reports that rid does not name a resource of the expected kind.
// label is the actual kind label, empty when the id is not in the table.
func BadResource(phase Phase, rid uint32, label string) *Error {
	detail := "no such resource"
	if label != "" {
		detail = "wrong resource kind"
	}
	return &Error{
		Phase:  phase,
		Kind:   KindBadResource,
		RID:    rid,
		HasRID: true,
		Label:  label,
		Detail: detail,
	}
}

// Unsupported creates the violation raised when a resource kind cannot perform op
func Unsupported(phase Phase, rid uint32, label, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		RID:    rid,
		HasRID: true,
		Label:  label,
		Detail: fmt.Sprintf("cannot %s", op),
	}
}

// NotFound creates the violation raised for an id absent from the table
func NotFound(phase Phase, rid uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		RID:    rid,
		HasRID: true,
		Detail: "bad rid",
	}
}

// IO wraps an error returned by the underlying OS primitive
func IO(phase Phase, rid uint32, label string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		RID:    rid,
		HasRID: true,
		Label:  label,
		Cause:  cause,
	}
}

// Canceled creates the error a cancelled operation resolves with
func Canceled(phase Phase, rid uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		RID:    rid,
		HasRID: true,
		Detail: "operation canceled",
		Cause:  cause,
	}
}

// Stopped creates the violation raised when the manager worker is gone
func Stopped(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStopped,
		Detail: "resource manager worker is not running",
	}
}

// Exhausted creates the violation raised when the id space overflows
func Exhausted() *Error {
	return &Error{
		Phase:  PhaseInsert,
		Kind:   KindExhausted,
		Detail: "resource id space exhausted",
	}
}

// Duplicate creates the violation raised when an id is inserted twice
func Duplicate(rid uint32) *Error {
	return &Error{
		Phase:  PhaseInsert,
		Kind:   KindDuplicate,
		RID:    rid,
		HasRID: true,
		Detail: "there is already a resource with that rid",
	}
}

// Reserved creates the violation raised when a reserved stdio id is closed
func Reserved(phase Phase, rid uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReserved,
		RID:    rid,
		HasRID: true,
		Detail: "stdio resources live for the whole process",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// FromPanic extracts a contract violation from a recovered panic value.
func FromPanic(r any) (*Error, bool) {
	e, ok := r.(*Error)
	if !ok || !e.Fatal() {
		return nil, false
	}
	return e, true
}
