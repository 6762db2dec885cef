// Package ragerrors declares the typed error kinds shared across every
// component of the RAG core (§7 of the specification). Each kind maps to one
// handling policy at the HTTP boundary; components never return bare
// fmt.Errorf for a condition this package names.
package ragerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the error taxonomy a given Error belongs to. Kind values
// are comparable so callers can branch on them directly or via errors.Is
// against a sentinel of the same Kind.
type Kind string

const (
	KindConfiguration       Kind = "configuration"
	KindDocument            Kind = "document"
	KindProcessing          Kind = "processing"
	KindModelInit           Kind = "model_init"
	KindUnsupportedProvider Kind = "unsupported_provider"
	KindRetrieval           Kind = "retrieval"
	KindGeneration          Kind = "generation"
	KindReranker            Kind = "reranker"
	KindSession             Kind = "session"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindTimeout             Kind = "timeout"
)

// Error is the common typed error shape for the whole module. Message is
// human-readable; Cause, when present, is preserved for errors.Unwrap/As.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &ragerrors.Error{Kind: ragerrors.KindDocument}).
func (e *Error) Is(target error) bool {
	var o *Error
	if !errors.As(target, &o) {
		return false
	}
	return o.Kind == e.Kind
}

func new_(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Configuration(msg string, cause error) *Error       { return new_(KindConfiguration, msg, cause) }
func Document(msg string, cause error) *Error            { return new_(KindDocument, msg, cause) }
func Processing(msg string, cause error) *Error          { return new_(KindProcessing, msg, cause) }
func ModelInit(msg string, cause error) *Error           { return new_(KindModelInit, msg, cause) }
func UnsupportedProvider(msg string, cause error) *Error { return new_(KindUnsupportedProvider, msg, cause) }
func Retrieval(msg string, cause error) *Error           { return new_(KindRetrieval, msg, cause) }
func Generation(msg string, cause error) *Error          { return new_(KindGeneration, msg, cause) }
func Reranker(msg string, cause error) *Error            { return new_(KindReranker, msg, cause) }
func Session(msg string, cause error) *Error             { return new_(KindSession, msg, cause) }
func Validation(msg string, cause error) *Error          { return new_(KindValidation, msg, cause) }
func NotFound(msg string, cause error) *Error            { return new_(KindNotFound, msg, cause) }
func Timeout(msg string, cause error) *Error             { return new_(KindTimeout, msg, cause) }

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap) an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ValidationErrors aggregates multiple field-level validation failures into
// one reported error, matching §4.7's "aggregated as one combined error".
type ValidationErrors struct {
	Errors []string
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 1 {
		return v.Errors[0]
	}
	return fmt.Sprintf("%d validation errors: %v", len(v.Errors), v.Errors)
}

func (v *ValidationErrors) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *ValidationErrors) HasErrors() bool { return len(v.Errors) > 0 }

// AsError returns v as an error if it carries any entries, else nil. Useful
// for `return nil` vs `return verrs.AsError()` at the end of a validator.
func (v *ValidationErrors) AsError() error {
	if v == nil || !v.HasErrors() {
		return nil
	}
	return v
}
