// Package diag records the diagnostics a VM reports and renders them for
// people or for storage.
package diag

import (
	"fmt"
	"io"
	"sync"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

// Event is one diagnostic reported through [wren.ErrorFn].
type Event struct {
	Kind    wren.ErrorType `cbor:"1,keyasint"`
	Module  string         `cbor:"2,keyasint"`
	Line    int            `cbor:"3,keyasint"`
	Message string         `cbor:"4,keyasint"`
}

// String formats the event the way the Wren command line does.
func (e Event) String() string {
	switch e.Kind {
	case wren.ErrorCompile:
		return fmt.Sprintf("[%s line %d] %s", e.Module, e.Line, e.Message)
	case wren.ErrorStackTrace:
		return fmt.Sprintf("[%s line %d] in %s", e.Module, e.Line, e.Message)
	}
	return e.Message
}

// Recorder collects events. It can forward each event to a writer as it
// arrives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	out    io.Writer
}

// NewRecorder creates a Recorder. If out is non-nil every event is also
// written to it, one per line.
func NewRecorder(out io.Writer) *Recorder {
	return &Recorder{out: out}
}

// ErrorFn returns the callback to install in [wren.Config].
func (r *Recorder) ErrorFn() wren.ErrorFn {
	return func(_ *wren.VM, kind wren.ErrorType, module string, line int, message string) {
		r.Record(Event{Kind: kind, Module: module, Line: line, Message: message})
	}
}

// Record adds an event.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.out != nil {
		fmt.Fprintln(r.out, e)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns the number of recorded events of the given kind.
func (r *Recorder) Count(kind wren.ErrorType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Log returns the recorded events as a Log for the given script.
func (r *Recorder) Log(script string, result wren.InterpretResult) *Log {
	return &Log{
		Version: wren.VersionString,
		Script:  script,
		Result:  result,
		Events:  r.Events(),
	}
}
