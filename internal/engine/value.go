package engine

import (
	"math"
	"strconv"
)

// Value is any script value. Null is nil, booleans are bool, numbers are
// float64 and strings are Go strings. Everything else is one of the object
// types below.
type Value = any

// List is a growable script list.
type List struct {
	Elements []Value
}

// Range is a numeric range created by ".." or "...".
type Range struct {
	From, To  float64
	Inclusive bool
}

// MapEntry is produced while iterating a map.
type MapEntry struct {
	Key, Value Value
}

type mapEntry struct {
	key, value Value
}

// Map is an insertion-ordered map keyed by value types.
type Map struct {
	entries []mapEntry
	index   map[any]int
}

// NewMapValue returns an empty map.
func NewMapValue() *Map {
	return &Map{index: make(map[any]int)}
}

// mapKey normalizes v into a comparable Go map key. Only value types can be
// keys.
func mapKey(v Value) (any, bool) {
	switch k := v.(type) {
	case nil, bool, float64, string, *Class:
		return k, true
	case *Range:
		return *k, true
	}
	return nil, false
}

// IsValidKey reports whether v can be used as a map key.
func IsValidKey(v Value) bool {
	_, ok := mapKey(v)
	return ok
}

func (m *Map) Count() int { return len(m.entries) }

func (m *Map) Get(key Value) (Value, bool) {
	k, ok := mapKey(key)
	if !ok {
		return nil, false
	}
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

// Set stores value under key. The caller has checked that key is valid.
func (m *Map) Set(key, value Value) {
	k, _ := mapKey(key)
	if i, ok := m.index[k]; ok {
		m.entries[i].value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key: key, value: value})
}

// Remove deletes key and returns the value it held, or nil.
func (m *Map) Remove(key Value) Value {
	k, ok := mapKey(key)
	if !ok {
		return nil
	}
	i, ok := m.index[k]
	if !ok {
		return nil
	}
	v := m.entries[i].value
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.entries); j++ {
		jk, _ := mapKey(m.entries[j].key)
		m.index[jk] = j
	}
	return v
}

func (m *Map) Clear() {
	m.entries = nil
	m.index = make(map[any]int)
}

// Instance is an object of a script-defined class. Fields are keyed by the
// class that declares them so a subclass field never shadows its parent's.
type Instance struct {
	Class  *Class
	Fields map[fieldKey]Value
}

type fieldKey struct {
	class *Class
	name  string
}

// Foreign is an instance of a foreign class. Data is owned by the VM and
// was obtained from the host allocator.
type Foreign struct {
	Class *Class
	Data  []byte
}

// Env is one lexical scope of local variables.
type Env struct {
	vars   map[string]Value
	parent *Env
}

func newEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Value), parent: parent}
}

func (e *Env) define(name string, v Value) { e.vars[name] = v }

func (e *Env) find(name string) *Env {
	for ; e != nil; e = e.parent {
		if _, ok := e.vars[name]; ok {
			return e
		}
	}
	return nil
}

// Closure is a function object: a block argument or Fn.new body bound to the
// scope it was created in.
type Closure struct {
	Fn     *FnExpr
	Env    *Env
	This   Value
	Class  *Class
	Static bool
	Module *Module
}

// Arity is the number of declared parameters.
func (c *Closure) Arity() int { return len(c.Fn.Params) }

// Module is a compiled module and its top-level variables.
type Module struct {
	Name string
	Vars map[string]Value
}

type methodKind int

const (
	methodPrimitive methodKind = iota
	methodBlock
	methodForeign
	methodConstructor
)

type primitiveFn func(vm *VM, recv Value, args []Value) Value

// Method is one entry in a class's method table.
type Method struct {
	kind      methodKind
	signature string
	prim      primitiveFn
	fn        *FnExpr
	foreign   func()
	class     *Class
	static    bool
	module    *Module
	// init is the initializer a constructor runs on the new instance.
	init *Method
}

// Class is a script class. Every class has a metaclass holding its static
// methods.
type Class struct {
	Name    string
	Super   *Class
	Meta    *Class
	Module  *Module
	Foreign bool

	methods map[string]*Method
	statics map[string]Value

	// builtin classes cannot be subclassed from script.
	builtin bool

	allocate func()
	finalize func([]byte)
}

func (c *Class) lookup(sig string) *Method {
	for k := c; k != nil; k = k.Super {
		if m, ok := k.methods[sig]; ok {
			return m
		}
	}
	return nil
}

// IsSubclassOf reports whether c is base or inherits from it.
func (c *Class) IsSubclassOf(base *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == base {
			return true
		}
	}
	return false
}

func isFalsy(v Value) bool {
	switch b := v.(type) {
	case nil:
		return true
	case bool:
		return !b
	}
	return false
}

// valuesEqual implements the default "==": value equality for value types,
// identity for everything else.
func valuesEqual(a, b Value) bool {
	if ra, ok := a.(*Range); ok {
		rb, ok := b.(*Range)
		return ok && *ra == *rb
	}
	return a == b
}

// FormatNum formats a number the way the language prints it.
func FormatNum(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "infinity"
	case math.IsInf(n, -1):
		return "-infinity"
	}
	return strconv.FormatFloat(n, 'g', 14, 64)
}

// object sizes used for heap accounting.
const (
	sizeObject   = 32
	sizeSlot     = 16
	sizeClass    = 128
	sizeClosure  = 48
	sizeInstance = 48
)

func sizeOf(v Value) int {
	switch o := v.(type) {
	case *List:
		return sizeObject + sizeSlot*cap(o.Elements)
	case *Map:
		return sizeObject + 2*sizeSlot*len(o.entries)
	case *Instance:
		return sizeInstance + sizeSlot*len(o.Fields)
	case *Foreign:
		return sizeObject + len(o.Data)
	case *Closure:
		return sizeClosure
	case *Class:
		return sizeClass
	case *Range, *MapEntry:
		return sizeObject
	case string:
		return sizeObject + len(o)
	}
	return 0
}
