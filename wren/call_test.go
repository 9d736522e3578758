package wren_test

import (
	"errors"
	"testing"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

const mathClass = `class Math {
  static add(a, b) { a + b }
  static fail() {
    Fiber.abort("no")
  }
}
`

func TestCall(t *testing.T) {
	r := newRecorder()
	vm := newVM(t, r.config())
	interpret(t, vm, mathClass)

	add, err := vm.MakeCallHandle("add(_,_)")
	if err != nil {
		t.Fatalf("failed to make call handle: %v", err)
	}
	defer add.Release()
	if add.Arity() != 2 || add.Signature() != "add(_,_)" {
		t.Errorf("got %q/%d, want add(_,_)/2", add.Signature(), add.Arity())
	}

	vm.EnsureSlots(3)
	vm.GetVariable("main", "Math", 0)
	vm.SetSlotDouble(1, 2)
	vm.SetSlotDouble(2, 3)
	res, err := vm.Call(add)
	if err != nil || res != wren.ResultSuccess {
		t.Fatalf("call failed: %v %v %q", res, err, r.events)
	}
	if n := vm.SlotCount(); n != 1 {
		t.Errorf("got %d slots, want 1", n)
	}
	if v, _ := vm.GetSlotDouble(0); v != 5 {
		t.Errorf("got %v, want 5", v)
	}
}

func TestCallArityMismatch(t *testing.T) {
	r := newRecorder()
	vm := newVM(t, r.config())
	interpret(t, vm, mathClass)

	add, _ := vm.MakeCallHandle("add(_,_)")
	vm.EnsureSlots(2)
	vm.GetVariable("main", "Math", 0)
	vm.SetSlotDouble(1, 2)

	res, err := vm.Call(add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != wren.ResultRuntimeError {
		t.Fatalf("got %v, want %v", res, wren.ResultRuntimeError)
	}
	assertEvents(t, r.events,
		event(wren.ErrorRuntime, "", -1, "Call of 'add(_,_)' expects 2 argument(s) but 1 were supplied."))
	if typ, _ := vm.SlotType(0); vm.SlotCount() != 1 || typ != wren.TypeNull {
		t.Errorf("window should hold a single null slot")
	}

	vm.EnsureSlots(3)
	vm.GetVariable("main", "Math", 0)
	vm.SetSlotDouble(1, 2)
	vm.SetSlotDouble(2, 3)
	if res, err := vm.Call(add); err != nil || res != wren.ResultSuccess {
		t.Fatalf("call after mismatch failed: %v %v %q", res, err, r.events)
	}
	if v, _ := vm.GetSlotDouble(0); v != 5 {
		t.Errorf("got %v, want 5", v)
	}
}

func TestCallWithScratchSlot(t *testing.T) {
	r := newRecorder()
	vm := newVM(t, r.config())
	interpret(t, vm, `class Sum {
  static of(list) {
    var total = 0
    for (n in list) total = total + n
    return total
  }
}
`)

	of, err := vm.MakeCallHandle("of(_)")
	if err != nil {
		t.Fatalf("failed to make call handle: %v", err)
	}
	defer of.Release()

	vm.EnsureSlots(3)
	vm.GetVariable("main", "Sum", 0)
	vm.SetSlotNewList(1)
	for _, n := range []float64{1, 2, 4} {
		vm.SetSlotDouble(2, n)
		if err := vm.InsertInList(1, -1, 2); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	res, err := vm.Call(of)
	if err != nil || res != wren.ResultSuccess {
		t.Fatalf("call failed: %v %v %q", res, err, r.events)
	}
	if v, _ := vm.GetSlotDouble(0); v != 7 {
		t.Errorf("got %v, want 7", v)
	}
}

func TestCallRuntimeError(t *testing.T) {
	r := newRecorder()
	vm := newVM(t, r.config())
	interpret(t, vm, mathClass)

	fail, _ := vm.MakeCallHandle("fail()")
	vm.EnsureSlots(1)
	vm.GetVariable("main", "Math", 0)
	if res, _ := vm.Call(fail); res != wren.ResultRuntimeError {
		t.Fatalf("got %v, want %v", res, wren.ResultRuntimeError)
	}
	assertEvents(t, r.events,
		event(wren.ErrorRuntime, "", -1, "no"),
		event(wren.ErrorStackTrace, "main", 4, "static Math.fail()"),
	)
}

func TestCallFromForeignMethod(t *testing.T) {
	r := newRecorder()
	cfg := r.config()

	var callback *wren.Handle
	cfg.BindForeignMethodFn = func(_ *wren.VM, module, class string, isStatic bool, sig string) wren.ForeignMethodFn {
		if class != "Host" || sig != "register(_)" {
			return nil
		}
		return func(vm *wren.VM) {
			callback, _ = vm.GetSlotHandle(1)
		}
	}
	vm := newVM(t, cfg)
	interpret(t, vm, "class Host {\n  foreign static register(fn)\n}\nHost.register(Fn.new {|x| x * 2 })")
	if callback == nil {
		t.Fatalf("callback was not registered: %q", r.events)
	}
	defer callback.Release()

	twice, _ := vm.MakeCallHandle("call(_)")
	vm.EnsureSlots(2)
	vm.SetSlotHandle(0, callback)
	vm.SetSlotDouble(1, 21)
	if res, err := vm.Call(twice); err != nil || res != wren.ResultSuccess {
		t.Fatalf("call failed: %v %v %q", res, err, r.events)
	}
	if v, _ := vm.GetSlotDouble(0); v != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestMakeCallHandle(t *testing.T) {
	vm := newVM(t, nil)
	tests := []struct {
		sig   string
		arity int
	}{
		{"update()", 0},
		{"name", 0},
		{"name=(_)", 1},
		{"add(_,_,_)", 3},
		{"[_]", 1},
		{"[_,_]=(_)", 3},
		{"+(_)", 1},
		{"-", 0},
		{"!", 0},
	}
	for _, tt := range tests {
		h, err := vm.MakeCallHandle(tt.sig)
		if err != nil {
			t.Errorf("%q: %v", tt.sig, err)
			continue
		}
		if h.Arity() != tt.arity {
			t.Errorf("%q: got arity %d, want %d", tt.sig, h.Arity(), tt.arity)
		}
	}

	for _, sig := range []string{"", "add(a)", "add(_", "foo bar", "[]"} {
		if _, err := vm.MakeCallHandle(sig); !errors.Is(err, wren.ErrInvalidSignature) {
			t.Errorf("%q: got %v, want %v", sig, err, wren.ErrInvalidSignature)
		}
	}
}

func TestCallReleasedHandle(t *testing.T) {
	vm := newVM(t, nil)
	h, _ := vm.MakeCallHandle("foo()")
	h.Release()
	vm.EnsureSlots(1)
	if _, err := vm.Call(h); !errors.Is(err, wren.ErrHandleReleased) {
		t.Errorf("got %v, want %v", err, wren.ErrHandleReleased)
	}
	if err := h.Release(); !errors.Is(err, wren.ErrHandleReleased) {
		t.Errorf("got %v, want %v", err, wren.ErrHandleReleased)
	}
}
