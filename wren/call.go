package wren

import (
	"fmt"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

// CallHandle is a method signature checked once and then used to invoke
// that method from Go.
type CallHandle struct {
	vm        *VM
	signature string
	arity     int
	released  bool
}

// MakeCallHandle prepares signature for [VM.Call]. The signature uses the
// language's own form: "update()", "add(_,_)", "value=(_)", "[_]", "-" and
// so on.
func (vm *VM) MakeCallHandle(signature string) (*CallHandle, error) {
	if err := vm.check(); err != nil {
		return nil, err
	}
	arity, ok := engine.ParseSignature(signature)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSignature, signature)
	}
	return &CallHandle{vm: vm, signature: signature, arity: arity}, nil
}

// Signature is the method signature the handle calls.
func (h *CallHandle) Signature() string { return h.signature }

// Arity is the number of arguments the method takes.
func (h *CallHandle) Arity() int { return h.arity }

// Release discards the handle.
func (h *CallHandle) Release() error {
	if h.vm.closed {
		return ErrClosed
	}
	if h.released {
		return fmt.Errorf("%w: call handle %q", ErrHandleReleased, h.signature)
	}
	h.released = true
	return nil
}

// Call invokes the method of h on the receiver in slot 0 with the
// arguments in slots 1 to Arity. The window must hold exactly Arity+1
// slots; any other count is a runtime error. Afterwards the window holds
// one slot with the return value, or null when the call failed.
func (vm *VM) Call(h *CallHandle) (InterpretResult, error) {
	if err := vm.check(); err != nil {
		return ResultRuntimeError, err
	}
	if h == nil || h.vm != vm {
		return ResultRuntimeError, ErrForeignHandle
	}
	if h.released {
		return ResultRuntimeError, fmt.Errorf("%w: call handle %q", ErrHandleReleased, h.signature)
	}
	res, err := vm.engine.Call(h.signature, h.arity)
	if err != nil {
		return ResultRuntimeError, fmt.Errorf("call %q: %w", h.signature, err)
	}
	return InterpretResult(res), nil
}
