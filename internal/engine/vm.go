// Package engine is a tree-walking interpreter for the Wren language. It
// exposes the slot window, handle table and collector hooks that the wren
// package builds its host API on.
package engine

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("wren.engine")

// CoreModule is the name of the module holding the built-in classes. Every
// module implicitly imports its variables.
const CoreModule = "core"

type frame struct {
	name   string
	module *Module
	line   int
	env    *Env
	this   Value
	class  *Class
	static bool
}

// VM is a single script engine instance. It is not safe for concurrent use.
type VM struct {
	host Host
	cfg  Config

	core    *Module
	modules map[string]*Module
	// failed caches modules that could not be loaded or compiled, so the
	// host loader runs at most once per name.
	failed map[string]string

	objectClass   *Class
	classClass    *Class
	boolClass     *Class
	nullClass     *Class
	numClass      *Class
	stringClass   *Class
	sequenceClass *Class
	listClass     *Class
	mapClass      *Class
	mapEntryClass *Class
	rangeClass    *Class
	fnClass       *Class
	fiberClass    *Class
	systemClass   *Class

	frames    []*frame
	frameBase int
	// temps roots values the interpreter is holding mid-expression.
	temps []Value

	api      []Value
	apiSaved [][]Value

	handles    map[int]Value
	nextHandle int

	foreigns map[*Foreign]struct{}

	bytesAllocated int
	nextGC         int
	collections    int

	inFinalizer  bool
	foreignDepth int
	aborting     bool
	abortValue   Value
	closed       bool
}

// New creates an engine bound to host.
func New(host Host, cfg Config) *VM {
	cfg = cfg.withDefaults()
	vm := &VM{
		host:     host,
		cfg:      cfg,
		modules:  make(map[string]*Module),
		failed:   make(map[string]string),
		handles:  make(map[int]Value),
		foreigns: make(map[*Foreign]struct{}),
		nextGC:   cfg.InitialHeapSize,
	}
	vm.initCore()
	log.Debugf("engine created (initial heap %d, min heap %d, growth %d%%)",
		cfg.InitialHeapSize, cfg.MinHeapSize, cfg.HeapGrowthPercent)
	return vm
}

// Close finalizes every remaining foreign object and drops all roots.
func (vm *VM) Close() {
	if vm.closed {
		return
	}
	vm.closed = true
	n := len(vm.foreigns)
	vm.inFinalizer = true
	for f := range vm.foreigns {
		vm.free(f)
	}
	vm.inFinalizer = false
	vm.foreigns = nil
	vm.modules = nil
	vm.handles = nil
	vm.api = nil
	vm.apiSaved = nil
	vm.temps = nil
	log.Debugf("engine closed, finalized %d foreign objects", n)
}

// InFinalizer reports whether a foreign finalizer is running.
func (vm *VM) InFinalizer() bool { return vm.inFinalizer }

// InForeignCall reports whether a foreign method or allocator is running.
func (vm *VM) InForeignCall() bool { return vm.foreignDepth > 0 }

func (vm *VM) newModule(name string) *Module {
	m := &Module{Name: name, Vars: make(map[string]Value)}
	if vm.core != nil {
		for k, v := range vm.core.Vars {
			m.Vars[k] = v
		}
	}
	return m
}

func (vm *VM) knownVars(m *Module) map[string]bool {
	known := make(map[string]bool, len(m.Vars))
	for k := range m.Vars {
		known[k] = true
	}
	return known
}

// throw aborts the current execution with a runtime error.
func (vm *VM) throw(v Value) {
	panic(&RuntimeError{Value: v, Frames: vm.stackTrace()})
}

func (vm *VM) throwf(format string, args ...any) {
	vm.throw(fmt.Sprintf(format, args...))
}

func (vm *VM) stackTrace() []Frame {
	var frames []Frame
	for i := len(vm.frames) - 1; i >= vm.frameBase; i-- {
		f := vm.frames[i]
		frames = append(frames, Frame{Module: f.module.Name, Line: f.line, Function: f.name})
	}
	return frames
}

func (vm *VM) report(err *RuntimeError) {
	vm.host.Error(ErrorRuntime, "", -1, err.Message())
	for _, f := range err.Frames {
		vm.host.Error(ErrorStackTrace, f.Module, f.Line, f.Function)
	}
}

// protect runs fn as a top-level execution. A runtime error is reported
// through the host and turned into ResultRuntimeError. Go errors raised by
// the interpreter itself are returned as err.
func (vm *VM) protect(fn func()) (res Result, err error) {
	savedFrames := len(vm.frames)
	savedBase := vm.frameBase
	savedTemps := len(vm.temps)
	vm.frameBase = savedFrames

	defer func() {
		depth := len(vm.frames) - savedFrames
		vm.frames = vm.frames[:savedFrames]
		vm.frameBase = savedBase
		vm.temps = vm.temps[:savedTemps]
		if e := recover(); e != nil {
			switch e := e.(type) {
			case *RuntimeError:
				log.Debugf("runtime error: %s", e.Message())
				vm.report(e)
				res = ResultRuntimeError
			case error:
				res, err = ResultRuntimeError, errors.Wrapf(e, "recovered engine error at frame depth %d", depth)
			default:
				panic(e)
			}
		}
	}()
	fn()
	return ResultSuccess, nil
}

func (vm *VM) pushFrame(f *frame) {
	vm.frames = append(vm.frames, f)
}

func (vm *VM) popFrame() {
	vm.frames = vm.frames[:len(vm.frames)-1]
}

func (vm *VM) top() *frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) setLine(line int) {
	if f := vm.top(); f != nil && line > 0 {
		f.line = line
	}
}

func (vm *VM) pushTemp(v Value) int {
	vm.temps = append(vm.temps, v)
	return len(vm.temps) - 1
}

func (vm *VM) popTemps(mark int) {
	vm.temps = vm.temps[:mark]
}
