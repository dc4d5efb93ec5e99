package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Category groups codes by the layer that raises them.
type Category string

const (
	CategoryUsage    Category = "usage"
	CategoryState    Category = "state"
	CategoryRender   Category = "render"
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
)

// Error is a coded failure. Code and Message come from the registry;
// Detail, Example and Wrapped are filled in where the error is raised.
type Error struct {
	Code     string // "E011"
	Category Category
	Message  string

	Detail     string // what went wrong in this instance
	Suggestion string // how to fix it; shown as "Hint:"
	Example    string // code, printed indented

	Wrapped error
}

// Error renders "CODE: Message (Detail): cause", omitting empty parts.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// The With* builders modify e in place and return it for chaining:
//
//	errors.New("E031").WithDetailf("port %d out of range", port)

func (e *Error) WithSuggestion(s string) *Error { e.Suggestion = s; return e }

func (e *Error) WithExample(code string) *Error { e.Example = code; return e }

func (e *Error) WithDetail(d string) *Error { e.Detail = d; return e }

func (e *Error) WithDetailf(format string, args ...any) *Error {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// Wrap records err as the cause.
func (e *Error) Wrap(err error) *Error { e.Wrapped = err; return e }

// New returns a fresh Error for a registered code. Unregistered codes
// get the message "Unknown error".
func New(code string) *Error {
	e := &Error{Code: code, Message: "Unknown error"}
	if t, ok := registry[code]; ok {
		e.Category, e.Message, e.Suggestion = t.Category, t.Message, t.Suggestion
	}
	return e
}

// Newf returns an uncoded Error.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError returns the first *Error in err's chain, or wraps err under
// code when there is none. A nil err gives nil.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
