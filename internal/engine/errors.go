package engine

import (
	"fmt"
	"strings"
)

// Frame is one entry of a runtime stack trace.
type Frame struct {
	Module   string
	Line     int
	Function string
}

// RuntimeError is a script-level failure. It unwinds the interpreter as a
// panic and is recovered at the entry point that started execution.
type RuntimeError struct {
	Value  Value
	Frames []Frame // innermost first
}

// Message is the text reported for the error value.
func (e *RuntimeError) Message() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	return "[error object]"
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message())
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n[%s line %d] in %s", f.Module, f.Line, f.Function)
	}
	return b.String()
}
