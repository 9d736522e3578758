package engine

// HeapStats describes the collector's accounting.
type HeapStats struct {
	BytesAllocated int
	NextGC         int
	Collections    int
	ForeignObjects int
}

// Stats returns the current heap accounting.
func (vm *VM) Stats() HeapStats {
	return HeapStats{
		BytesAllocated: vm.bytesAllocated,
		NextGC:         vm.nextGC,
		Collections:    vm.collections,
		ForeignObjects: len(vm.foreigns),
	}
}

// track records an allocation of n bytes and collects when the heap has
// grown past its threshold. Callers must have rooted every object they still
// need before calling it.
func (vm *VM) track(n int) {
	vm.bytesAllocated += n
	if vm.bytesAllocated > vm.nextGC {
		vm.Collect()
	}
}

type marker struct {
	seen map[any]struct{}
	gray []any
	live int
}

func (m *marker) mark(v any) {
	switch o := v.(type) {
	case nil, bool, float64:
		return
	case string:
		m.live += sizeOf(o)
		return
	case *Env:
		if o == nil {
			return
		}
	case *Module:
		if o == nil {
			return
		}
	case *Class:
		if o == nil {
			return
		}
	}
	if _, ok := m.seen[v]; ok {
		return
	}
	m.seen[v] = struct{}{}
	m.gray = append(m.gray, v)
}

func (m *marker) drain() {
	for len(m.gray) > 0 {
		v := m.gray[len(m.gray)-1]
		m.gray = m.gray[:len(m.gray)-1]
		m.live += sizeOf(v)

		switch o := v.(type) {
		case *List:
			for _, e := range o.Elements {
				m.mark(e)
			}
		case *Map:
			for _, e := range o.entries {
				m.mark(e.key)
				m.mark(e.value)
			}
		case *MapEntry:
			m.mark(o.Key)
			m.mark(o.Value)
		case *Instance:
			m.mark(o.Class)
			for _, f := range o.Fields {
				m.mark(f)
			}
		case *Foreign:
			m.mark(o.Class)
		case *Closure:
			m.mark(o.Env)
			m.mark(o.This)
			m.mark(o.Class)
			m.mark(o.Module)
		case *Class:
			m.mark(o.Super)
			m.mark(o.Meta)
			m.mark(o.Module)
			for _, s := range o.statics {
				m.mark(s)
			}
		case *Env:
			for _, l := range o.vars {
				m.mark(l)
			}
			m.mark(o.parent)
		case *Module:
			for _, g := range o.Vars {
				m.mark(g)
			}
		}
	}
}

func (vm *VM) markRoots(m *marker) {
	m.mark(vm.core)
	for _, mod := range vm.modules {
		m.mark(mod)
	}
	for _, f := range vm.frames {
		m.mark(f.module)
		m.mark(f.env)
		m.mark(f.this)
		m.mark(f.class)
	}
	for _, t := range vm.temps {
		m.mark(t)
	}
	for _, s := range vm.api {
		m.mark(s)
	}
	for _, w := range vm.apiSaved {
		for _, s := range w {
			m.mark(s)
		}
	}
	for _, h := range vm.handles {
		m.mark(h)
	}
	if vm.aborting {
		m.mark(vm.abortValue)
	}
}

// Collect marks everything reachable from the roots and reclaims foreign
// objects that are not, running their finalizers.
func (vm *VM) Collect() {
	if vm.closed || vm.inFinalizer {
		return
	}
	before := vm.bytesAllocated

	m := &marker{seen: make(map[any]struct{})}
	vm.markRoots(m)
	m.drain()

	freed := 0
	for f := range vm.foreigns {
		if _, ok := m.seen[f]; !ok {
			vm.free(f)
			freed++
		}
	}

	vm.bytesAllocated = m.live
	vm.nextGC = m.live + m.live*vm.cfg.HeapGrowthPercent/100
	if vm.nextGC < vm.cfg.MinHeapSize {
		vm.nextGC = vm.cfg.MinHeapSize
	}
	vm.collections++
	log.Debugf("gc: %d -> %d bytes, freed %d foreign objects, next at %d",
		before, vm.bytesAllocated, freed, vm.nextGC)
}

// free finalizes a foreign object and returns its storage to the host.
func (vm *VM) free(f *Foreign) {
	delete(vm.foreigns, f)
	if fin := f.Class.finalize; fin != nil {
		prev := vm.inFinalizer
		vm.inFinalizer = true
		fin(f.Data)
		vm.inFinalizer = prev
	}
	vm.host.Reallocate(f.Data, 0)
	f.Data = nil
}
