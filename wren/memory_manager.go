package wren

import "sort"

// arenaAlign is the alignment of every arena block. Offset 0 is never handed
// out, so a null MemoryPtr never names a block.
const arenaAlign = 8

type span struct {
	off  uint32
	size uint32
}

// MemoryManager allocates foreign object storage out of the WASM linear
// memory with realloc semantics. Requests that do not fit in the arena are
// served from the Go heap.
type MemoryManager struct {
	memory *Memory

	// free is sorted by offset with adjacent spans merged.
	free   []span
	blocks map[*byte]span

	inUse     int
	fallbacks int
}

// NewMemoryManager creates a MemoryManager over the whole of memory.
func NewMemoryManager(memory *Memory) *MemoryManager {
	m := &MemoryManager{memory: memory, blocks: make(map[*byte]span)}
	if size := memory.Size(); size > arenaAlign {
		m.free = []span{{off: arenaAlign, size: size - arenaAlign}}
	}
	return m
}

func alignUp(n int) uint32 {
	return uint32((n + arenaAlign - 1) &^ (arenaAlign - 1))
}

// Reallocate follows the realloc contract: a nil memory allocates, a zero
// size frees and returns nil, anything else resizes and keeps the common
// prefix. New storage is zeroed.
func (m *MemoryManager) Reallocate(memory []byte, newSize int) []byte {
	if newSize <= 0 {
		m.release(memory)
		return nil
	}
	if memory == nil {
		return m.allocate(newSize)
	}
	if len(memory) == newSize {
		return memory
	}
	out := m.allocate(newSize)
	copy(out, memory)
	m.release(memory)
	return out
}

func (m *MemoryManager) allocate(n int) []byte {
	size := alignUp(n)
	if uint64(n) < uint64(m.memory.Size()) {
		for i, s := range m.free {
			if s.size < size {
				continue
			}
			if s.size == size {
				m.free = append(m.free[:i], m.free[i+1:]...)
			} else {
				m.free[i] = span{off: s.off + size, size: s.size - size}
			}
			b, _ := m.memory.View(MemoryPtr(s.off), uint32(n))
			clear(b)
			m.blocks[&b[0]] = span{off: s.off, size: size}
			m.inUse += int(size)
			return b
		}
	}
	m.fallbacks++
	log.Debugf("arena exhausted, %d bytes from the Go heap", n)
	return make([]byte, n)
}

func (m *MemoryManager) release(b []byte) {
	if cap(b) == 0 {
		return
	}
	key := &b[:1][0]
	blk, ok := m.blocks[key]
	if !ok {
		// Go heap storage.
		return
	}
	delete(m.blocks, key)
	m.inUse -= int(blk.size)

	i := sort.Search(len(m.free), func(i int) bool { return m.free[i].off > blk.off })
	m.free = append(m.free, span{})
	copy(m.free[i+1:], m.free[i:])
	m.free[i] = blk

	// Merge with the following span, then the preceding one.
	if i+1 < len(m.free) && m.free[i].off+m.free[i].size == m.free[i+1].off {
		m.free[i].size += m.free[i+1].size
		m.free = append(m.free[:i+1], m.free[i+2:]...)
	}
	if i > 0 && m.free[i-1].off+m.free[i-1].size == m.free[i].off {
		m.free[i-1].size += m.free[i].size
		m.free = append(m.free[:i], m.free[i+1:]...)
	}
}

// InUse is the number of arena bytes held by live blocks.
func (m *MemoryManager) InUse() int { return m.inUse }

// Fallbacks counts allocations that did not fit in the arena.
func (m *MemoryManager) Fallbacks() int { return m.fallbacks }

// Owns reports whether b is arena storage.
func (m *MemoryManager) Owns(b []byte) bool {
	if cap(b) == 0 {
		return false
	}
	_, ok := m.blocks[&b[:1][0]]
	return ok
}
