package wren_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

func TestHandleRootsValue(t *testing.T) {
	r := newRecorder()
	vm := newVM(t, r.config())

	interpret(t, vm, pointClass+"var p = Point.new(1, 2)")
	vm.EnsureSlots(1)
	vm.GetVariable("main", "p", 0)
	h, err := vm.GetSlotHandle(0)
	if err != nil {
		t.Fatalf("failed to get handle: %v", err)
	}

	interpret(t, vm, "p = null")
	vm.CollectGarbage()
	if r.finalized != 0 {
		t.Fatalf("handle should keep the point alive")
	}

	vm.EnsureSlots(1)
	if err := vm.SetSlotHandle(0, h); err != nil {
		t.Fatalf("failed to set handle: %v", err)
	}
	data, err := vm.GetSlotForeign(0)
	if err != nil {
		t.Fatalf("failed to get foreign: %v", err)
	}
	if x := getFloat(data, 0); x != 1 {
		t.Errorf("got %v, want 1", x)
	}

	if err := h.Release(); err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	vm.SetSlotNull(0)
	vm.CollectGarbage()
	if r.finalized != 1 {
		t.Errorf("got %d finalized, want 1", r.finalized)
	}
}

func TestHandleReleaseTwice(t *testing.T) {
	vm := newVM(t, nil)
	vm.EnsureSlots(1)
	vm.SetSlotString(0, "x")

	h, _ := vm.GetSlotHandle(0)
	if err := h.Release(); err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	if !h.Released() {
		t.Errorf("handle should report released")
	}
	if err := h.Release(); !errors.Is(err, wren.ErrHandleReleased) {
		t.Errorf("got %v, want %v", err, wren.ErrHandleReleased)
	}
	if err := vm.SetSlotHandle(0, h); !errors.Is(err, wren.ErrHandleReleased) {
		t.Errorf("got %v, want %v", err, wren.ErrHandleReleased)
	}
}

func TestHandleFromOtherVM(t *testing.T) {
	a := newVM(t, nil)
	b := newVM(t, nil)
	a.EnsureSlots(1)
	b.EnsureSlots(1)

	h, _ := a.GetSlotHandle(0)
	defer h.Release()
	if err := b.SetSlotHandle(0, h); !errors.Is(err, wren.ErrForeignHandle) {
		t.Errorf("got %v, want %v", err, wren.ErrForeignHandle)
	}
}

func TestHandleAfterClose(t *testing.T) {
	vm, err := wren.New(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to create vm: %v", err)
	}
	vm.EnsureSlots(1)
	h, _ := vm.GetSlotHandle(0)
	vm.Close()

	if err := h.Release(); !errors.Is(err, wren.ErrClosed) {
		t.Errorf("got %v, want %v", err, wren.ErrClosed)
	}
}

func TestWithSlotHandle(t *testing.T) {
	vm := newVM(t, nil)
	vm.EnsureSlots(1)
	vm.SetSlotDouble(0, 7)

	boom := errors.New("boom")
	var kept *wren.Handle
	err := vm.WithSlotHandle(0, func(h *wren.Handle) error {
		kept = h
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
	if !kept.Released() {
		t.Errorf("handle should be released when fn returns")
	}
}

func TestWithSlotHandleReleasedEarly(t *testing.T) {
	vm := newVM(t, nil)
	vm.EnsureSlots(1)
	vm.SetSlotDouble(0, 7)

	err := vm.WithSlotHandle(0, func(h *wren.Handle) error {
		return h.Release()
	})
	if err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestWithSlotHandleReportsReleaseError(t *testing.T) {
	vm := newVM(t, nil)
	vm.EnsureSlots(1)
	vm.SetSlotDouble(0, 7)

	err := vm.WithSlotHandle(0, func(_ *wren.Handle) error {
		return vm.Close()
	})
	if !errors.Is(err, wren.ErrClosed) {
		t.Errorf("got %v, want %v", err, wren.ErrClosed)
	}
}
