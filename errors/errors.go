package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in call processing the error occurred
type Phase string

const (
	PhaseLaunch   Phase = "launch"   // engine lifecycle
	PhaseRegister Phase = "register" // handler registration
	PhaseDecode   Phase = "decode"   // script to Go
	PhaseEncode   Phase = "encode"   // Go to script
	PhaseDispatch Phase = "dispatch" // call routing and invocation
	PhaseDeliver  Phase = "deliver"  // result/event delivery into a frame
	PhasePump     Phase = "pump"     // message loop pumping
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch    Kind = "type_mismatch"
	KindArityMismatch   Kind = "arity_mismatch"
	KindOverflow        Kind = "overflow"
	KindUnsupported     Kind = "unsupported"
	KindUnknownFunction Kind = "unknown_function"
	KindHandlerFailed   Kind = "handler_failed"
	KindContextGone     Kind = "context_gone"
	KindInvalidInput    Kind = "invalid_input"
	KindNotInitialized  Kind = "not_initialized"
	KindAlreadyLaunched Kind = "already_launched"
	KindRegistration    Kind = "registration"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ScriptShape string
	Detail      string
	Path        []string
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

	if e.GoType != "" || e.ScriptShape != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ScriptShape != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", script shape ")
			b.WriteString(e.ScriptShape)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("script shape ")
			b.WriteString(e.ScriptShape)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ScriptShape != "" {
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the argument or field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ScriptShape sets the script-side value shape (number, string, object, ...)
func (b *Builder) ScriptShape(s string) *Builder {
	b.err.ScriptShape = s
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

// Convenience constructors for common error patterns

// TypeMismatch creates a decode/encode shape mismatch error
func TypeMismatch(phase Phase, path []string, goType, scriptShape string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		Path:        path,
		GoType:      goType,
		ScriptShape: scriptShape,
	}
}

// ArityMismatch creates an argument count mismatch error
func ArityMismatch(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("argument count mismatch: expected %d, got %d", want, got),
		Value:  got,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("value %v overflows %s", value, goType),
		Value:  value,
	}
}

// Unsupported creates an unsupported type/operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// UnknownFunction creates the error for a call to an unregistered name
func UnknownFunction(name string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindUnknownFunction,
		Detail: fmt.Sprintf("no such function %q", name),
		Value:  name,
	}
}

// HandlerFailed wraps a failure value returned by a handler
func HandlerFailed(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHandlerFailed,
		Detail: fmt.Sprintf("handler %q failed", name),
		Cause:  cause,
	}
}

// ContextGone creates the error recorded when a delivery target no longer exists
func ContextGone(frameID uint64) *Error {
	return &Error{
		Phase:  PhaseDeliver,
		Kind:   KindContextGone,
		Detail: fmt.Sprintf("script context %d is gone", frameID),
		Value:  frameID,
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

// NotInitialized creates a not-initialized error for missing engine/registry state
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// AlreadyLaunched is returned when a second engine launch is attempted
func AlreadyLaunched() *Error {
	return &Error{
		Phase:  PhaseLaunch,
		Kind:   KindAlreadyLaunched,
		Detail: "engine already launched in this process",
	}
}

// Registration creates a handler registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %q", name),
		Cause:  cause,
	}
}
