package wren

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// pageSize is the size of a WebAssembly memory page.
const pageSize = 64 * 1024

// Memory provides raw access to the WASM linear memory backing the heap
// arena.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps a wazero memory instance.
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

// Size is the size of the memory in bytes.
func (m *Memory) Size() uint32 { return m.mem.Size() }

// View returns n bytes at offset. The slice aliases the linear memory.
func (m *Memory) View(offset MemoryPtr, n uint32) ([]byte, bool) {
	b, ok := m.mem.Read(uint32(offset), n)
	if !ok {
		return nil, false
	}
	return b[:n:n], true
}

// uleb128 appends v in unsigned LEB128 encoding.
func uleb128(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// envModule returns a WASM binary equivalent to
//
//	(module (memory (export "memory") pages pages))
//
// wazero's HostModuleBuilder can only export functions, so the arena memory
// comes from a module that does nothing but export one. The minimum and
// maximum are equal so the memory never grows and views into it stay valid.
func envModule(pages uint32) []byte {
	var limits []byte
	limits = append(limits, 0x01) // has max
	limits = uleb128(limits, pages)
	limits = uleb128(limits, pages)

	memSection := append([]byte{0x01}, limits...) // one memory
	bin := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic: \0asm
		0x01, 0x00, 0x00, 0x00, // version: 1
	}
	bin = append(bin, 0x05) // memory section
	bin = uleb128(bin, uint32(len(memSection)))
	bin = append(bin, memSection...)
	bin = append(bin,
		0x07, 0x0a, 0x01, // export section, one export
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', // "memory"
		0x02, 0x00, // memory index 0
	)
	return bin
}

// newArenaMemory starts a wazero runtime holding a single fixed-size memory
// of at least size bytes.
func newArenaMemory(ctx context.Context, size int) (wazero.Runtime, *Memory, error) {
	pages := uint32((size + pageSize - 1) / pageSize)
	if pages == 0 {
		pages = 1
	}

	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(pages).
		WithMemoryCapacityFromMax(true)
	wzr := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := wzr.CompileModule(ctx, envModule(pages))
	if err != nil {
		wzr.Close(ctx)
		return nil, nil, fmt.Errorf("compile env module: %w", err)
	}

	mod, err := wzr.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("env"))
	if err != nil {
		wzr.Close(ctx)
		return nil, nil, fmt.Errorf("instantiate env module: %w", err)
	}
	return wzr, NewMemory(mod.Memory()), nil
}
