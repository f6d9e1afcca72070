// Package errors provides structured error types for the webview-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: argument path, Go type and script-side
// value shape, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("arg[0]").
//		GoType("int32").
//		ScriptShape("string").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseDecode, path, "int32", "string")
//	err := errors.UnknownFunction("subInt")
//
// All errors implement the standard error interface and support errors.Is/As.
// Every error in this taxonomy is recovered at the dispatcher boundary and
// turned into a failed call result or a logged drop; none of them unwind into
// the embedded engine's control flow.
package errors
