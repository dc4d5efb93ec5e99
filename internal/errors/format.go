package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI styles for terminal output.
const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiDim   = "\033[90m"
)

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() { colorEnabled = false }

// EnableColors enables ANSI color output.
func EnableColors() { colorEnabled = true }

func style(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + ansiReset
}

// Format renders the error for a terminal:
//
//	ERROR E011: Unknown field in partial update
//
//	  field "Nope" does not exist on main.state
//
//	  Hint: Check the partial's keys ...
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(style("ERROR", ansiBold, ansiRed))
	b.WriteString(" ")
	b.WriteString(style(e.FormatCompact(), ansiBold))
	b.WriteString("\n\n")

	for _, line := range wrapText(e.Detail, detailWidth) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}

	section := func(label, body string) {
		if body != "" {
			fmt.Fprintf(&b, "  %s %s\n\n", label, body)
		}
	}
	if e.Wrapped != nil {
		section(style("Cause:", ansiDim), e.Wrapped.Error())
	}
	section(style("Hint:", ansiCyan), e.Suggestion)

	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", style("Example:", ansiCyan))
		for _, line := range strings.Split(e.Example, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatCompact returns "CODE: Message", or just the message without a code.
func (e *Error) FormatCompact() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// wrapText splits text into lines of at most width columns, breaking on
// spaces. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// FprintError writes err to w, formatted when it is an *Error.
func FprintError(w io.Writer, err error) {
	var e *Error
	if stderrors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", style("ERROR", ansiBold, ansiRed), err.Error())
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}
