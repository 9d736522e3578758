// Package wren embeds the Wren scripting language in Go programs.
//
// A [VM] runs Wren source through [VM.Interpret] and talks to its host
// through a window of value slots: the host places arguments in slots,
// invokes script methods with [VM.Call], and reads results back out. Foreign
// classes and methods let scripts call into Go; module loading, output and
// diagnostics are routed through the callbacks in [Config].
package wren

import "fmt"

// Type is the kind of value stored in a slot.
type Type int

const (
	TypeBool Type = iota
	TypeNum
	TypeForeign
	TypeList
	TypeMap
	TypeNull
	TypeString

	// TypeUnknown covers every value without a dedicated accessor, such as
	// class instances, functions and ranges.
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeNum:
		return "Num"
	case TypeForeign:
		return "Foreign"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	case TypeNull:
		return "Null"
	case TypeString:
		return "String"
	case TypeUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// InterpretResult is the outcome of [VM.Interpret] and [VM.Call].
type InterpretResult int

const (
	ResultSuccess InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("InterpretResult(%d)", int(r))
}

// ErrorType classifies a diagnostic delivered to [ErrorFn].
type ErrorType int

const (
	// ErrorCompile is a syntax or resolution error. Module and line locate it.
	ErrorCompile ErrorType = iota

	// ErrorRuntime is the message of an uncaught runtime error. Module is
	// empty and line is -1.
	ErrorRuntime

	// ErrorStackTrace is one frame of the stack of the preceding runtime
	// error; the message is the function name.
	ErrorStackTrace
)

func (e ErrorType) String() string {
	switch e {
	case ErrorCompile:
		return "compile"
	case ErrorRuntime:
		return "runtime"
	case ErrorStackTrace:
		return "stack trace"
	}
	return fmt.Sprintf("ErrorType(%d)", int(e))
}

// MemoryPtr is an offset into the VM's heap arena.
type MemoryPtr uint32
