package wren

// WriteFn receives text printed by the script. System.print delivers the
// text and the trailing newline as two calls.
type WriteFn func(vm *VM, text string)

// ErrorFn receives diagnostics. A runtime error arrives as one ErrorRuntime
// event followed by one ErrorStackTrace event per frame, innermost first.
type ErrorFn func(vm *VM, kind ErrorType, module string, line int, message string)
