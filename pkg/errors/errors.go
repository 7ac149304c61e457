// Package errors provides the structured error type surfaced by the CellDL
// layout engine.
//
// Every failure the engine reports, from a malformed `pos` attribute to a
// cyclic dependency, is an [*Error] carrying:
//   - a machine-readable [Code] naming the failure category
//   - a human-readable message
//   - the id of the offending element, when there is one
//   - the raw attribute text that failed to parse or resolve
//
// # Error Codes
//
//   - SYNTAX_ERROR: malformed `pos`, `size`, `line-start` or `line-end` text
//   - UNKNOWN_ELEMENT: a `#id` reference that names no element
//   - INVALID_STRUCTURE: duplicate ids or declarations, too many clauses
//   - CYCLIC_DEPENDENCY: the position dependency graph has no order
//   - INVALID_GEOMETRY: a route or transporter side cannot be computed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSyntax, "unexpected token %q", tok)
//	if errors.Is(err, errors.ErrCodeSyntax) {
//	    // Handle syntax error
//	}
//
//	// Attach element context
//	err = errors.Wrap(errors.ErrCodeReference, cause, "resolve %s", id).
//	    WithElement("q1").WithText("60 right #missing")
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the engine's failure taxonomy.
const (
	ErrCodeSyntax    Code = "SYNTAX_ERROR"
	ErrCodeReference Code = "UNKNOWN_ELEMENT"
	ErrCodeStructure Code = "INVALID_STRUCTURE"
	ErrCodeCycle     Code = "CYCLIC_DEPENDENCY"
	ErrCodeGeometry  Code = "INVALID_GEOMETRY"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code      Code   // Machine-readable error code
	Message   string // Human-readable message
	ElementID string // Offending element id (optional)
	Text      string // Raw attribute text that failed (optional)
	Cause     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.ElementID != "" {
		fmt.Fprintf(&b, "element %q: ", e.ElementID)
	}
	b.WriteString(e.Message)
	if e.Text != "" {
		fmt.Fprintf(&b, " (in %q)", e.Text)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithElement sets the offending element id and returns e.
// An id that is already set is kept, so the innermost context wins.
func (e *Error) WithElement(id string) *Error {
	if e.ElementID == "" {
		e.ElementID = id
	}
	return e
}

// WithText sets the raw attribute text and returns e.
// Text that is already set is kept.
func (e *Error) WithText(text string) *Error {
	if e.Text == "" {
		e.Text = text
	}
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Annotate attaches element context to err. If err is (or wraps) an *Error,
// its element id and text are filled in where empty and err is returned
// unchanged; otherwise err is wrapped as an internal error.
func Annotate(err error, elementID, text string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		e.WithElement(elementID).WithText(text)
		return err
	}
	return Wrap(ErrCodeInternal, err, "unexpected failure").WithElement(elementID).WithText(text)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message with element context but without
// the code prefix. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if e.ElementID != "" {
			msg = fmt.Sprintf("%s: %s", e.ElementID, msg)
		}
		if e.Text != "" {
			msg = fmt.Sprintf("%s (in %q)", msg, e.Text)
		}
		return msg
	}
	return err.Error()
}
