package wren

import "github.com/aspect-build/aspect-cli/wren/internal/engine"

// Default heap policy.
const (
	DefaultInitialHeapSize   = engine.DefaultInitialHeapSize
	DefaultMinHeapSize       = engine.DefaultMinHeapSize
	DefaultHeapGrowthPercent = engine.DefaultHeapGrowthPercent

	// DefaultArenaSize is the size of the linear memory that backs foreign
	// object storage when no ReallocateFn is configured.
	DefaultArenaSize = 4 * 1024 * 1024
)

// ReallocateFn allocates, resizes and frees raw storage. A nil memory with a
// non-zero size allocates; a non-nil memory with a non-zero size resizes,
// keeping the common prefix; a zero size frees memory and returns nil.
type ReallocateFn func(memory []byte, newSize int, userData any) []byte

// Config configures a VM. It is copied by [New]; changing it afterwards has
// no effect on the VM.
type Config struct {
	// ReallocateFn provides the storage of foreign objects. Nil uses an
	// arena in WASM linear memory owned by the VM.
	ReallocateFn ReallocateFn

	ResolveModuleFn     ResolveModuleFn
	LoadModuleFn        LoadModuleFn
	BindForeignMethodFn BindForeignMethodFn
	BindForeignClassFn  BindForeignClassFn
	WriteFn             WriteFn
	ErrorFn             ErrorFn

	// InitialHeapSize is the number of allocated bytes that triggers the
	// first collection.
	InitialHeapSize int

	// MinHeapSize is the lowest the collection threshold can shrink to.
	MinHeapSize int

	// HeapGrowthPercent sets the next threshold after a collection as a
	// percentage above the live heap.
	HeapGrowthPercent int

	// ArenaSize is the size of the default allocator's arena.
	ArenaSize int

	// UserData is returned by [VM.UserData] and passed to ReallocateFn.
	UserData any
}

// DefaultConfig returns a Config with the default heap policy and no
// callbacks.
func DefaultConfig() Config {
	return Config{
		InitialHeapSize:   DefaultInitialHeapSize,
		MinHeapSize:       DefaultMinHeapSize,
		HeapGrowthPercent: DefaultHeapGrowthPercent,
		ArenaSize:         DefaultArenaSize,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialHeapSize <= 0 {
		c.InitialHeapSize = d.InitialHeapSize
	}
	if c.MinHeapSize <= 0 {
		c.MinHeapSize = d.MinHeapSize
	}
	if c.HeapGrowthPercent <= 0 {
		c.HeapGrowthPercent = d.HeapGrowthPercent
	}
	if c.ArenaSize <= 0 {
		c.ArenaSize = d.ArenaSize
	}
	return c
}
