package engine_test

import (
	"testing"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

func TestInterpretOutput(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", "System.print(1 + 2 * 3)", "7\n"},
		{"division", "System.print(7 / 2)", "3.5\n"},
		{"interpolation", "var name = \"wren\"\nSystem.print(\"hi %(name)!\")", "hi wren!\n"},
		{"write", "System.write(\"a\")\nSystem.write(1)", "a1"},
		{"conditional", "System.print(1 < 2 ? \"yes\" : \"no\")", "yes\n"},
		{"logical", "System.print(null || \"x\")\nSystem.print(false && 1)", "x\nfalse\n"},
		{"null", "System.print(null)", "null\n"},
		{"list", "System.print([1, \"a\", [true]])", "[1, a, [true]]\n"},
		{"map", "var m = {\"a\": 1}\nm[\"b\"] = 2\nSystem.print(m.count)\nSystem.print(m[\"b\"])", "2\n2\n"},
		{"for", "var sum = 0\nfor (x in [1, 2, 3]) sum = sum + x\nSystem.print(sum)", "6\n"},
		{"range", "var s = \"\"\nfor (i in 1..3) s = s + i.toString\nSystem.print(s)", "123\n"},
		{"exclusive range", "System.print((0...3).toList)", "[0, 1, 2]\n"},
		{"while break", `var n = 0
while (true) {
  n = n + 1
  if (n == 5) break
}
System.print(n)`, "5\n"},
		{"continue", `var odd = []
for (i in 1..6) {
  if (i % 2 == 0) continue
  odd.add(i)
}
System.print(odd)`, "[1, 3, 5]\n"},
		{"map block", "System.print([1, 2, 3].map {|x| x * 2 }.toList)", "[2, 4, 6]\n"},
		{"where", "System.print([1, 2, 3, 4].where {|x| x > 2 }.toList)", "[3, 4]\n"},
		{"join", "System.print([1, 2].join(\", \"))", "1, 2\n"},
		{"string methods", "System.print(\"hello\".count)\nSystem.print(\"a,b\".split(\",\"))", "5\n[a, b]\n"},
		{"type", "System.print(1.type)\nSystem.print(\"s\" is String)", "Num\ntrue\n"},
		{"closure", `var makeCounter = Fn.new {
  var i = 0
  return Fn.new { i = i + 1 }
}
var c = makeCounter.call()
c.call()
System.print(c.call())`, "2\n"},
		{"class", `class Counter {
  construct new(start) { _n = start }
  inc() {
    _n = _n + 1
    return this
  }
  n { _n }
}
var c = Counter.new(5)
c.inc().inc()
System.print(c.n)`, "7\n"},
		{"inheritance", `class A {
  construct new() {}
  name { "A" }
  greet() { "hello " + name }
}
class B is A {
  construct new() { super() }
  name { "B" + super.name }
}
System.print(B.new().greet())`, "hello BA\n"},
		{"static fields", `class Id {
  static next() {
    __n = (__n == null) ? 1 : __n + 1
    return __n
  }
}
Id.next()
System.print(Id.next())`, "2\n"},
		{"setter", `class Box {
  construct new() {}
  value { _v }
  value=(v) { _v = v }
}
var b = Box.new()
b.value = 3
System.print(b.value)`, "3\n"},
		{"toString override", `class P {
  construct new() {}
  toString { "P!" }
}
System.print(P.new())
System.print("%(P.new())")`, "P!\nP!\n"},
		{"instance default toString", "class Q {\n  construct new() {}\n}\nSystem.print(Q.new())", "instance of Q\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost()
			vm := newVM(t, h)
			if res := run(t, vm, tt.src); res != engine.ResultSuccess {
				t.Fatalf("got result %d, events %q", res, h.events)
			}
			if got := h.out.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModuleVariablesPersist(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	run(t, vm, "var x = 41")
	run(t, vm, "x = x + 1\nSystem.print(x)")
	if got := h.out.String(); got != "42\n" {
		t.Errorf("got %q, want %q", got, "42\n")
	}
	v, ok := vm.Variable("main", "x")
	if !ok || v != 42.0 {
		t.Errorf("got %v %v, want 42 true", v, ok)
	}
}

func TestRuntimeErrorEvents(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	res := run(t, vm, `class Foo {
  static bar() {
    Fiber.abort("boom")
  }
}
Foo.bar()`)
	if res != engine.ResultRuntimeError {
		t.Fatalf("got result %d, want runtime error", res)
	}
	assertEvents(t, h.events,
		event(engine.ErrorRuntime, "", -1, "boom"),
		event(engine.ErrorStackTrace, "main", 3, "static Foo.bar()"),
		event(engine.ErrorStackTrace, "main", 6, "(script)"),
	)
}

func TestRuntimeErrorMessages(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1.foo", "Num does not implement 'foo'."},
		{"1 + \"a\"", "Right operand must be a number."},
		{"\"a\" + 1", "Right operand must be a string."},
		{"[1][5]", "Subscript out of bounds."},
		{"class A {}\nA.new()", "A metaclass does not implement 'new()'."},
		{"Fiber.abort(1)", "[error object]"},
		{"var x = 1\nclass B is x {}", "Class 'B' cannot inherit from a non-class object."},
		{"class S is String {}", "Class 'S' cannot inherit from built-in class 'String'."},
		{"Fn.new { |a| a }.call()", "Function expects more arguments."},
	}
	for _, tt := range tests {
		h := newTestHost()
		vm := newVM(t, h)
		if res := run(t, vm, tt.src); res != engine.ResultRuntimeError {
			t.Errorf("%q: got result %d, want runtime error", tt.src, res)
			continue
		}
		if len(h.events) == 0 {
			t.Errorf("%q: no events", tt.src)
			continue
		}
		if want := event(engine.ErrorRuntime, "", -1, tt.want); h.events[0] != want {
			t.Errorf("%q: got %q, want %q", tt.src, h.events[0], want)
		}
	}
}

func TestCompileErrorEvent(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	if res := run(t, vm, "var = 1"); res != engine.ResultCompileError {
		t.Fatalf("got result %d, want compile error", res)
	}
	assertEvents(t, h.events, event(engine.ErrorCompile, "main", 1, "Error at '=': Expect variable name."))
	if h.out.Len() != 0 {
		t.Errorf("compile error should not run anything, got %q", h.out.String())
	}
}

func TestImport(t *testing.T) {
	h := newTestHost()
	h.modules["util"] = "var Answer = 42\nclass Helper {\n  static twice(x) { x * 2 }\n}"
	vm := newVM(t, h)

	run(t, vm, "import \"util\" for Answer, Helper\nSystem.print(Helper.twice(Answer))")
	run(t, vm, "import \"util\" for Answer as A\nSystem.print(A)")

	if got := h.out.String(); got != "84\n42\n" {
		t.Errorf("got %q, want %q", got, "84\n42\n")
	}
	if h.loads["util"] != 1 {
		t.Errorf("loader called %d times, want 1", h.loads["util"])
	}
	if !vm.HasModule("util") {
		t.Errorf("util should be loaded")
	}
}

func TestImportFailureIsCached(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)

	for i := 0; i < 2; i++ {
		h.events = nil
		if res := run(t, vm, "import \"missing\""); res != engine.ResultRuntimeError {
			t.Fatalf("got result %d, want runtime error", res)
		}
		assertEvents(t, h.events,
			event(engine.ErrorRuntime, "", -1, "Could not load module 'missing'."),
			event(engine.ErrorStackTrace, "main", 1, "(script)"),
		)
	}
	if h.loads["missing"] != 1 {
		t.Errorf("loader called %d times, want 1", h.loads["missing"])
	}
}

func TestImportCompileError(t *testing.T) {
	h := newTestHost()
	h.modules["bad"] = "var = 1"
	vm := newVM(t, h)

	if res := run(t, vm, "import \"bad\""); res != engine.ResultRuntimeError {
		t.Fatalf("got result %d, want runtime error", res)
	}
	assertEvents(t, h.events,
		event(engine.ErrorCompile, "bad", 1, "Error at '=': Expect variable name."),
		event(engine.ErrorRuntime, "", -1, "Could not compile module 'bad'."),
		event(engine.ErrorStackTrace, "main", 1, "(script)"),
	)
}

func TestImportMissingVariable(t *testing.T) {
	h := newTestHost()
	h.modules["util"] = "var A = 1"
	vm := newVM(t, h)
	run(t, vm, "import \"util\" for B")
	if want := event(engine.ErrorRuntime, "", -1, "Could not find a variable named 'B' in module 'util'."); len(h.events) == 0 || h.events[0] != want {
		t.Errorf("got %q, want %q first", h.events, want)
	}
}

func TestCallMethod(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	run(t, vm, "class Math {\n  static add(a, b) { a + b }\n}")

	cls, ok := vm.Variable("main", "Math")
	if !ok {
		t.Fatalf("Math not defined")
	}
	vm.EnsureSlots(3)
	vm.SetSlot(0, cls)
	vm.SetSlot(1, 2.0)
	vm.SetSlot(2, 3.0)
	res, err := vm.Call("add(_,_)", 2)
	if err != nil || res != engine.ResultSuccess {
		t.Fatalf("call failed: %d %v %q", res, err, h.events)
	}
	if vm.SlotCount() != 1 {
		t.Errorf("got %d slots, want 1", vm.SlotCount())
	}
	if got := vm.Slot(0); got != 5.0 {
		t.Errorf("got %v, want 5", got)
	}
}

func TestCallArityMismatch(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	run(t, vm, "class Math {\n  static add(a, b) { a + b }\n}")
	cls, _ := vm.Variable("main", "Math")

	vm.EnsureSlots(2)
	vm.SetSlot(0, cls)
	vm.SetSlot(1, 2.0)
	res, err := vm.Call("add(_,_)", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != engine.ResultRuntimeError {
		t.Fatalf("got result %d, want runtime error", res)
	}
	assertEvents(t, h.events,
		event(engine.ErrorRuntime, "", -1, "Call of 'add(_,_)' expects 2 argument(s) but 1 were supplied."))
	if vm.SlotCount() != 1 || vm.Slot(0) != nil {
		t.Errorf("window should hold a single null slot")
	}

	vm.EnsureSlots(3)
	vm.SetSlot(0, cls)
	vm.SetSlot(1, 2.0)
	vm.SetSlot(2, 3.0)
	if res, err := vm.Call("add(_,_)", 2); err != nil || res != engine.ResultSuccess {
		t.Fatalf("call after mismatch failed: %d %v", res, err)
	}
	if got := vm.Slot(0); got != 5.0 {
		t.Errorf("got %v, want 5", got)
	}
}

func TestCallIgnoresExtraSlots(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	run(t, vm, "class Math {\n  static add(a, b) { a + b }\n}")
	cls, _ := vm.Variable("main", "Math")

	vm.EnsureSlots(4)
	vm.SetSlot(0, cls)
	vm.SetSlot(1, 2.0)
	vm.SetSlot(2, 3.0)
	vm.SetSlot(3, "scratch")
	res, err := vm.Call("add(_,_)", 2)
	if err != nil || res != engine.ResultSuccess {
		t.Fatalf("call failed: %d %v %q", res, err, h.events)
	}
	if vm.SlotCount() != 1 || vm.Slot(0) != 5.0 {
		t.Errorf("got %d slots holding %v, want 1 holding 5", vm.SlotCount(), vm.Slot(0))
	}
}

func TestCallRuntimeErrorTrace(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	run(t, vm, "class T {\n  static fail() {\n    Fiber.abort(\"no\")\n  }\n}")
	cls, _ := vm.Variable("main", "T")

	vm.EnsureSlots(1)
	vm.SetSlot(0, cls)
	if res, _ := vm.Call("fail()", 0); res != engine.ResultRuntimeError {
		t.Fatalf("got result %d, want runtime error", res)
	}
	assertEvents(t, h.events,
		event(engine.ErrorRuntime, "", -1, "no"),
		event(engine.ErrorStackTrace, "main", 3, "static T.fail()"),
	)
}

func TestWindowEmptyAfterInterpret(t *testing.T) {
	h := newTestHost()
	vm := newVM(t, h)
	vm.EnsureSlots(4)
	run(t, vm, "var a = 1")
	if vm.SlotCount() != 0 {
		t.Errorf("got %d slots, want 0", vm.SlotCount())
	}
}
