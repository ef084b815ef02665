package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of error categories the API distinguishes.
// Callers match on Kind (via KindOf or errors.As), never on message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAccessDenied
	KindPreflightRequired
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "notfound"
	case KindAccessDenied:
		return "accessdenied"
	case KindPreflightRequired:
		return "preflightrequired"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error carries a kind, a stable machine-checkable code and an ordered list
// of human-readable reasons a UI can render verbatim.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Reasons []string
}

func (e *Error) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s: %s", e.Kind, e.Code, e.Message, strings.Join(e.Reasons, "; "))
}

func Validation(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func AccessDenied(reasons []string) *Error {
	return &Error{
		Kind:    KindAccessDenied,
		Code:    "accessdenied",
		Message: "access to the quiz is currently prevented",
		Reasons: reasons,
	}
}

func PreflightRequired(code string, reasons []string) *Error {
	return &Error{
		Kind:    KindPreflightRequired,
		Code:    code,
		Message: "a preflight check must be completed first",
		Reasons: reasons,
	}
}

func State(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf reports the stable code of err, or "" for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
