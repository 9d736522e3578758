package wren

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tliron/commonlog"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

var log = commonlog.GetLogger("wren")

// VM is a Wren virtual machine.
//
// A VM owns its script engine, its handles and, unless Config.ReallocateFn
// is set, a WebAssembly linear memory that backs foreign object storage.
//
// Use [New] or [Run] to create a VM and [VM.Close] to release it.
//
// # Thread Safety
//
// A VM is single-threaded: all methods, including foreign methods and
// callbacks it invokes, must run on one goroutine at a time. Close may be
// called more than once.
type VM struct {
	// Memory manages the default heap arena. It is nil when
	// Config.ReallocateFn is set.
	Memory *MemoryManager

	config   Config
	engine   *engine.VM
	host     *callbackManager
	userData any

	ctx    context.Context
	wazero wazero.Runtime

	mu      sync.Mutex
	handles map[int]*Handle
	closed  bool
}

// HeapStats describes the collector's view of the heap.
type HeapStats struct {
	// BytesAllocated is the number of bytes the collector counts as
	// allocated.
	BytesAllocated int

	// NextGC is the allocation threshold that triggers the next collection.
	NextGC int

	Collections    int
	ForeignObjects int

	// ArenaInUse is the number of arena bytes used by foreign objects.
	ArenaInUse int
}

// New creates a VM. A nil cfg uses [DefaultConfig]; zero heap settings take
// their defaults.
//
// The context is used for the WebAssembly runtime backing the default
// allocator and should remain valid for the lifetime of the VM.
//
// Call [VM.Close] to release resources when done.
func New(ctx context.Context, cfg *Config) (*VM, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	vm := &VM{
		config:   c,
		userData: c.UserData,
		ctx:      ctx,
		handles:  make(map[int]*Handle),
	}

	if c.ReallocateFn == nil {
		wzr, mem, err := newArenaMemory(ctx, c.ArenaSize)
		if err != nil {
			return nil, fmt.Errorf("create heap arena: %w", err)
		}
		vm.wazero = wzr
		vm.Memory = NewMemoryManager(mem)
		vm.config.ReallocateFn = func(memory []byte, newSize int, _ any) []byte {
			return vm.Memory.Reallocate(memory, newSize)
		}
	}

	vm.host = newCallbackManager(vm)
	vm.engine = engine.New(vm.host, engine.Config{
		InitialHeapSize:   c.InitialHeapSize,
		MinHeapSize:       c.MinHeapSize,
		HeapGrowthPercent: c.HeapGrowthPercent,
	})
	log.Debugf("vm created (wren %s)", VersionString)
	return vm, nil
}

// Run creates a VM, passes it to fn and closes it when fn returns.
func Run(ctx context.Context, cfg *Config, fn func(vm *VM) error) error {
	vm, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return errors.Join(fn(vm), vm.Close())
}

// check guards every operation that touches the engine.
func (vm *VM) check() error {
	if vm.closed {
		return ErrClosed
	}
	if vm.engine.InFinalizer() {
		return ErrInFinalizer
	}
	return nil
}

// Interpret runs source as the top-level code of module, creating the
// module on first use.
func (vm *VM) Interpret(module, source string) (InterpretResult, error) {
	if err := vm.check(); err != nil {
		return ResultRuntimeError, err
	}
	res, err := vm.engine.Interpret(module, source)
	if err != nil {
		return ResultRuntimeError, fmt.Errorf("interpret %q: %w", module, err)
	}
	return InterpretResult(res), nil
}

// CollectGarbage runs a full collection, finalizing unreachable foreign
// objects.
func (vm *VM) CollectGarbage() error {
	if err := vm.check(); err != nil {
		return err
	}
	vm.engine.Collect()
	return nil
}

// HeapStats reports the collector's accounting.
func (vm *VM) HeapStats() HeapStats {
	if vm.closed {
		return HeapStats{}
	}
	s := vm.engine.Stats()
	stats := HeapStats{
		BytesAllocated: s.BytesAllocated,
		NextGC:         s.NextGC,
		Collections:    s.Collections,
		ForeignObjects: s.ForeignObjects,
	}
	if vm.Memory != nil {
		stats.ArenaInUse = vm.Memory.InUse()
	}
	return stats
}

// UserData returns the value set by Config.UserData or [VM.SetUserData].
func (vm *VM) UserData() any { return vm.userData }

// SetUserData replaces the VM's user data.
func (vm *VM) SetUserData(v any) { vm.userData = v }

// Close finalizes every remaining foreign object and releases the VM. Any
// handle still outstanding becomes unusable. After Close every operation
// returns [ErrClosed]. Close fails while a finalizer or foreign method runs.
func (vm *VM) Close() error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return nil
	}
	if vm.engine.InFinalizer() {
		vm.mu.Unlock()
		return ErrInFinalizer
	}
	if vm.engine.InForeignCall() {
		vm.mu.Unlock()
		return ErrInForeignCall
	}
	n := len(vm.handles)
	vm.mu.Unlock()

	if n > 0 {
		log.Warningf("closing vm with %d unreleased handles", n)
	}
	vm.engine.Close()

	vm.mu.Lock()
	vm.closed = true
	vm.handles = nil
	vm.mu.Unlock()

	log.Debugf("vm closed")
	if vm.wazero != nil {
		return vm.wazero.Close(vm.ctx)
	}
	return nil
}
