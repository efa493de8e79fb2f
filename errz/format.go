package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// FriendlyErrorMessage returns a human-friendly rendering of err. Lex and
// parse errors include the offending source line with a caret under the
// error column; runtime errors include the active call stack.
func FriendlyErrorMessage(err error, source string) string {
	switch e := err.(type) {
	case *LexError:
		return withSnippet(e.Error(), e.Location, source)
	case *ParseError:
		msg := e.Error()
		if e.Expected != "" && e.Found != "" {
			msg = fmt.Sprintf("%s (expected %s, found %q)", msg, e.Expected, e.Found)
		}
		return withSnippet(msg, e.Location, source)
	case *RuntimeError:
		var msg bytes.Buffer
		msg.WriteString(e.Error())
		msg.WriteString("\n")
		if len(e.Stack) > 0 {
			msg.WriteString(FormatStackTrace(e.Stack))
		}
		return msg.String()
	default:
		return err.Error() + "\n"
	}
}

func withSnippet(header string, loc SourceLocation, source string) string {
	var msg bytes.Buffer
	msg.WriteString(header)
	msg.WriteString("\n")
	if loc.IsZero() {
		return msg.String()
	}
	lines := strings.Split(source, "\n")
	if loc.Line < 1 || loc.Line > len(lines) {
		return msg.String()
	}
	line := strings.TrimRight(lines[loc.Line-1], "\r")
	msg.WriteString(" | ")
	msg.WriteString(line)
	msg.WriteString("\n")
	if loc.Column > 0 {
		msg.WriteString(" | ")
		msg.WriteString(strings.Repeat(" ", loc.Column-1))
		msg.WriteString("^\n")
	}
	return msg.String()
}

// FormatStackTrace renders call frames innermost first.
func FormatStackTrace(stack []StackFrame) string {
	var msg bytes.Buffer
	msg.WriteString("Stack trace:\n")
	for _, frame := range stack {
		fmt.Fprintf(&msg, "  in %s (called at instruction %d)\n", frame.Function, frame.CallSite)
	}
	return msg.String()
}
