package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // Go to wire
	PhaseDecode   Phase = "decode"   // wire to Go
	PhaseRegistry Phase = "registry" // type and magic tables
	PhaseEngine   Phase = "engine"   // native engine calls
	PhaseLoad     Phase = "load"     // module loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedType    Kind = "unsupported_type"
	KindUnknownTypeCode    Kind = "unknown_type_code"
	KindUnknownEntityKind  Kind = "unknown_entity_kind"
	KindMalformedHeader    Kind = "malformed_header"
	KindInvariantViolation Kind = "invariant_violation"
	KindOverflow           Kind = "overflow"
	KindInvalidInput       Kind = "invalid_input"
	KindAllocation         Kind = "allocation"
	KindNotFound           Kind = "not_found"
	KindInstantiation      Kind = "instantiation"
	KindCall               Kind = "call"
)

// Sentinels for errors.Is. They carry no phase, so they match an error of the
// same kind raised in any phase.
var (
	ErrUnsupportedType    = &Error{Kind: KindUnsupportedType}
	ErrUnknownTypeCode    = &Error{Kind: KindUnknownTypeCode}
	ErrUnknownEntityKind  = &Error{Kind: KindUnknownEntityKind}
	ErrMalformedHeader    = &Error{Kind: KindMalformedHeader}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Entity string
	Detail string
	Path   []string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}

	if e.Offset > 0 {
		fmt.Fprintf(&b, " @%d", e.Offset)
	}

	if e.Detail != "" {
		if e.Entity != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the member path inside a composite entity
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Entity sets the entity kind name
func (b *Builder) Entity(name string) *Builder {
	b.err.Entity = name
	return b
}

// Offset sets the byte offset where the problem was found
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// Convenience constructors for the protocol taxonomy

// UnsupportedType reports an element type with no external tag.
func UnsupportedType(what string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindUnsupportedType,
		Detail: fmt.Sprintf("element type %s has no external type code", what),
		Value:  what,
	}
}

// UnknownTypeCode reports a type tag that is not in the code table.
func UnknownTypeCode(code int32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownTypeCode,
		Detail: fmt.Sprintf("type code %d is not registered", code),
		Value:  code,
	}
}

// UnknownEntityKind reports a magic code that is not in the registry.
func UnknownEntityKind(phase Phase, magic int32, offset int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownEntityKind,
		Offset: offset,
		Detail: fmt.Sprintf("magic code %d is not registered", magic),
		Value:  magic,
	}
}

// MalformedHeader reports a structurally invalid header or a truncated buffer.
func MalformedHeader(entity string, offset int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedHeader,
		Entity: entity,
		Offset: offset,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvariantViolation reports a payload that disagrees with its own header.
func InvariantViolation(entity string, offset int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvariantViolation,
		Entity: entity,
		Offset: offset,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Overflow reports a size that cannot be represented on the wire.
func Overflow(phase Phase, entity string, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Entity: entity,
		Detail: fmt.Sprintf("value %v overflows %s", value, limit),
		Value:  value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// AllocationFailed creates an engine allocation failure error
func AllocationFailed(size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// NotFound creates a missing export error
func NotFound(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%q not exported by engine", name),
		Value:  name,
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

// WithPath returns err with path prepended if it is an *Error, or err unchanged.
func WithPath(err error, elems ...string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	cp := *e
	cp.Path = append(append([]string{}, elems...), e.Path...)
	return &cp
}
