package wren

import (
	"errors"
	"fmt"
)

// Handle keeps a value alive across calls into the VM. A value held only
// by a handle is never collected.
//
// Handles must be released with [Handle.Release]. Closing the VM
// invalidates any that are still outstanding.
type Handle struct {
	vm       *VM
	id       int
	released bool
}

// GetSlotHandle creates a handle to the value in slot.
func (vm *VM) GetSlotHandle(slot int) (*Handle, error) {
	v, err := vm.slot(slot)
	if err != nil {
		return nil, err
	}
	h := &Handle{vm: vm, id: vm.engine.MakeHandle(v)}

	vm.mu.Lock()
	vm.handles[h.id] = h
	vm.mu.Unlock()
	return h, nil
}

// SetSlotHandle stores the value held by h in slot.
func (vm *VM) SetSlotHandle(slot int, h *Handle) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	if err := h.usableBy(vm); err != nil {
		return err
	}
	v, _ := vm.engine.HandleValue(h.id)
	vm.engine.SetSlot(slot, v)
	return nil
}

// WithSlotHandle creates a handle to the value in slot, passes it to fn and
// releases it when fn returns, unless fn released it already.
func (vm *VM) WithSlotHandle(slot int, fn func(h *Handle) error) (err error) {
	h, err := vm.GetSlotHandle(slot)
	if err != nil {
		return err
	}
	defer func() {
		if h.Released() {
			return
		}
		if rerr := h.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(h)
}

func (h *Handle) usableBy(vm *VM) error {
	if h == nil || h.vm != vm {
		return ErrForeignHandle
	}
	if vm.closed {
		return ErrClosed
	}
	if h.released {
		return fmt.Errorf("%w: handle %d", ErrHandleReleased, h.id)
	}
	return nil
}

// Release unroots the value. Releasing twice returns [ErrHandleReleased].
func (h *Handle) Release() error {
	if err := h.usableBy(h.vm); err != nil {
		return err
	}
	if h.vm.engine.InFinalizer() {
		return ErrInFinalizer
	}
	h.released = true
	h.vm.engine.ReleaseHandle(h.id)

	h.vm.mu.Lock()
	delete(h.vm.handles, h.id)
	h.vm.mu.Unlock()
	return nil
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool { return h.released }

func (h *Handle) String() string {
	return fmt.Sprintf("Handle(%d)", h.id)
}
