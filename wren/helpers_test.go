package wren_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

const pointClass = `foreign class Point {
  construct new(x, y) {}
  foreign x
  foreign y
  foreign sum()
}
`

// recorder collects output and diagnostics and serves modules from a map.
type recorder struct {
	out     strings.Builder
	events  []string
	modules map[string]string
	loads   map[string]int

	finalized int
}

func newRecorder() *recorder {
	return &recorder{modules: make(map[string]string), loads: make(map[string]int)}
}

func event(kind wren.ErrorType, module string, line int, message string) string {
	return fmt.Sprintf("%s|%s|%d|%s", kind, module, line, message)
}

// config wires the recorder into a Config with a foreign Point class holding
// two little-endian doubles.
func (r *recorder) config() *wren.Config {
	cfg := wren.DefaultConfig()
	cfg.WriteFn = func(_ *wren.VM, text string) { r.out.WriteString(text) }
	cfg.ErrorFn = func(_ *wren.VM, kind wren.ErrorType, module string, line int, message string) {
		r.events = append(r.events, event(kind, module, line, message))
	}
	cfg.LoadModuleFn = func(_ *wren.VM, name string) (wren.LoadModuleResult, bool) {
		r.loads[name]++
		src, ok := r.modules[name]
		return wren.LoadModuleResult{Source: src}, ok
	}
	cfg.BindForeignClassFn = func(_ *wren.VM, module, class string) wren.ForeignClassMethods {
		if module != "main" || class != "Point" {
			return wren.ForeignClassMethods{}
		}
		return wren.ForeignClassMethods{
			Allocate: allocatePoint,
			Finalize: func([]byte) { r.finalized++ },
		}
	}
	cfg.BindForeignMethodFn = func(_ *wren.VM, module, class string, isStatic bool, sig string) wren.ForeignMethodFn {
		if module != "main" || class != "Point" || isStatic {
			return nil
		}
		switch sig {
		case "x":
			return pointField(0)
		case "y":
			return pointField(8)
		case "sum()":
			return func(vm *wren.VM) {
				data, _ := vm.GetSlotForeign(0)
				vm.SetSlotDouble(0, getFloat(data, 0)+getFloat(data, 8))
			}
		}
		return nil
	}
	return &cfg
}

func allocatePoint(vm *wren.VM) {
	data, err := vm.SetSlotNewForeign(0, 0, 16)
	if err != nil {
		panic(err)
	}
	x, _ := vm.GetSlotDouble(1)
	y, _ := vm.GetSlotDouble(2)
	putFloat(data, 0, x)
	putFloat(data, 8, y)
}

func pointField(offset int) wren.ForeignMethodFn {
	return func(vm *wren.VM) {
		data, _ := vm.GetSlotForeign(0)
		vm.SetSlotDouble(0, getFloat(data, offset))
	}
}

func putFloat(b []byte, offset int, v float64) {
	binary.LittleEndian.PutUint64(b[offset:], math.Float64bits(v))
}

func getFloat(b []byte, offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[offset:]))
}

func newVM(t *testing.T, cfg *wren.Config) *wren.VM {
	t.Helper()
	vm, err := wren.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create vm: %v", err)
	}
	t.Cleanup(func() { vm.Close() })
	return vm
}

func interpret(t *testing.T, vm *wren.VM, src string) wren.InterpretResult {
	t.Helper()
	res, err := vm.Interpret("main", src)
	if err != nil {
		t.Fatalf("failed to interpret: %v", err)
	}
	return res
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
