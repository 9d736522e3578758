package engine_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

type foreignClass struct {
	allocate func()
	finalize func([]byte)
}

// testHost records everything the engine reports and serves modules from a
// map.
type testHost struct {
	out     strings.Builder
	events  []string
	modules map[string]string
	loads   map[string]int
	methods map[string]func()
	classes map[string]foreignClass

	allocated int
	freed     int
}

func newTestHost() *testHost {
	return &testHost{
		modules: make(map[string]string),
		loads:   make(map[string]int),
		methods: make(map[string]func()),
		classes: make(map[string]foreignClass),
	}
}

func (h *testHost) ResolveModule(importer, name string) (string, bool) {
	return name, true
}

func (h *testHost) LoadModule(name string) (string, func(), bool) {
	h.loads[name]++
	src, ok := h.modules[name]
	return src, nil, ok
}

func (h *testHost) BindForeignMethod(module, class string, isStatic bool, sig string) func() {
	key := module + "." + class + "." + sig
	if isStatic {
		key = "static " + key
	}
	return h.methods[key]
}

func (h *testHost) BindForeignClass(module, class string) (func(), func([]byte)) {
	c := h.classes[module+"."+class]
	return c.allocate, c.finalize
}

func (h *testHost) Write(text string) { h.out.WriteString(text) }

func (h *testHost) Error(kind engine.ErrorKind, module string, line int, message string) {
	h.events = append(h.events, fmt.Sprintf("%d|%s|%d|%s", kind, module, line, message))
}

func (h *testHost) Reallocate(memory []byte, newSize int) []byte {
	if newSize == 0 {
		if memory != nil {
			h.freed++
		}
		return nil
	}
	if memory == nil {
		h.allocated++
	}
	out := make([]byte, newSize)
	copy(out, memory)
	return out
}

func newVM(t *testing.T, h *testHost) *engine.VM {
	t.Helper()
	vm := engine.New(h, engine.Config{})
	t.Cleanup(vm.Close)
	return vm
}

func run(t *testing.T, vm *engine.VM, src string) engine.Result {
	t.Helper()
	res, err := vm.Interpret("main", src)
	if err != nil {
		t.Fatalf("failed to interpret: %v", err)
	}
	return res
}

func event(kind engine.ErrorKind, module string, line int, message string) string {
	return fmt.Sprintf("%d|%s|%d|%s", kind, module, line, message)
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got events %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
