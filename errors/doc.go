// Package errors provides structured error types for hostres.
//
// Errors are categorized by Phase (which resource operation failed) and Kind
// (error category). The Error type carries the resource id, the resource kind
// label and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindIO).
//		RID(7).
//		Label("tcpStream").
//		Cause(ioErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.BadResource(errors.PhaseChild, rid, "fsFile")
//	err := errors.IO(errors.PhaseDispatch, rid, "fsFile", cause)
//
// Contract violations (not_found, unsupported, duplicate, reserved, stopped,
// exhausted) are raised with panic; FromPanic recovers them. Everything else is
// returned. All errors implement the standard error interface and support
// errors.Is/As.
package errors
