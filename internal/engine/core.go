package engine

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var clockStart = time.Now()

func (vm *VM) primitive(cls *Class, sig string, fn primitiveFn) {
	cls.methods[sig] = &Method{kind: methodPrimitive, signature: sig, prim: fn, class: cls, module: vm.core}
}

func (vm *VM) defineCoreClass(name string, super *Class, builtin bool) *Class {
	cls := vm.newClass(name, super, vm.core)
	cls.builtin = builtin
	vm.core.Vars[name] = cls
	return cls
}

func (vm *VM) initCore() {
	vm.core = &Module{Name: CoreModule, Vars: make(map[string]Value)}

	// Object and Class refer to each other, so they are wired by hand.
	object := &Class{Name: "Object", Module: vm.core, methods: make(map[string]*Method), statics: make(map[string]Value)}
	class := &Class{Name: "Class", Super: object, Module: vm.core, methods: make(map[string]*Method), statics: make(map[string]Value), builtin: true}
	vm.objectClass, vm.classClass = object, class
	object.Meta = &Class{Name: "Object metaclass", Super: class, Meta: class, Module: vm.core, methods: make(map[string]*Method), statics: make(map[string]Value)}
	class.Meta = &Class{Name: "Class metaclass", Super: class, Meta: class, Module: vm.core, methods: make(map[string]*Method), statics: make(map[string]Value)}
	vm.core.Vars["Object"] = object
	vm.core.Vars["Class"] = class

	vm.boolClass = vm.defineCoreClass("Bool", object, true)
	vm.nullClass = vm.defineCoreClass("Null", object, true)
	vm.numClass = vm.defineCoreClass("Num", object, true)
	vm.sequenceClass = vm.defineCoreClass("Sequence", object, false)
	vm.stringClass = vm.defineCoreClass("String", vm.sequenceClass, true)
	vm.listClass = vm.defineCoreClass("List", vm.sequenceClass, true)
	vm.mapClass = vm.defineCoreClass("Map", vm.sequenceClass, true)
	vm.rangeClass = vm.defineCoreClass("Range", vm.sequenceClass, true)
	vm.mapEntryClass = vm.defineCoreClass("MapEntry", object, true)
	vm.fnClass = vm.defineCoreClass("Fn", object, true)
	vm.fiberClass = vm.defineCoreClass("Fiber", object, true)
	vm.systemClass = vm.defineCoreClass("System", object, false)

	vm.initObject()
	vm.initNum()
	vm.initString()
	vm.initSequence()
	vm.initList()
	vm.initMap()
	vm.initRange()
	vm.initFn()
	vm.initSystem()
}

func (vm *VM) initObject() {
	vm.primitive(vm.objectClass, "!", func(vm *VM, recv Value, args []Value) Value { return false })
	vm.primitive(vm.objectClass, "==(_)", func(vm *VM, recv Value, args []Value) Value {
		return valuesEqual(recv, args[0])
	})
	vm.primitive(vm.objectClass, "!=(_)", func(vm *VM, recv Value, args []Value) Value {
		return !valuesEqual(recv, args[0])
	})
	vm.primitive(vm.objectClass, "is(_)", func(vm *VM, recv Value, args []Value) Value {
		cls, ok := args[0].(*Class)
		if !ok {
			vm.throw("Right operand must be a class.")
		}
		return vm.classOf(recv).IsSubclassOf(cls)
	})
	vm.primitive(vm.objectClass, "toString", func(vm *VM, recv Value, args []Value) Value {
		return "instance of " + vm.classOf(recv).Name
	})
	vm.primitive(vm.objectClass, "type", func(vm *VM, recv Value, args []Value) Value {
		return vm.classOf(recv)
	})
	vm.primitive(vm.objectClass.Meta, "same(_,_)", func(vm *VM, recv Value, args []Value) Value {
		return valuesEqual(args[0], args[1])
	})

	vm.primitive(vm.classClass, "name", func(vm *VM, recv Value, args []Value) Value {
		return recv.(*Class).Name
	})
	vm.primitive(vm.classClass, "toString", func(vm *VM, recv Value, args []Value) Value {
		return recv.(*Class).Name
	})
	vm.primitive(vm.classClass, "supertype", func(vm *VM, recv Value, args []Value) Value {
		if s := recv.(*Class).Super; s != nil {
			return s
		}
		return nil
	})

	vm.primitive(vm.boolClass, "!", func(vm *VM, recv Value, args []Value) Value { return !recv.(bool) })
	vm.primitive(vm.boolClass, "toString", func(vm *VM, recv Value, args []Value) Value {
		return strconv.FormatBool(recv.(bool))
	})
	vm.primitive(vm.nullClass, "!", func(vm *VM, recv Value, args []Value) Value { return true })
	vm.primitive(vm.nullClass, "toString", func(vm *VM, recv Value, args []Value) Value { return "null" })

	vm.primitive(vm.fiberClass.Meta, "abort(_)", func(vm *VM, recv Value, args []Value) Value {
		if args[0] != nil {
			vm.throw(args[0])
		}
		return nil
	})
}

func (vm *VM) numArg(v Value, name string) float64 {
	n, ok := v.(float64)
	if !ok {
		vm.throw(name + " must be a number.")
	}
	return n
}

func toUint32(n float64) uint32 { return uint32(int64(n)) }

func (vm *VM) initNum() {
	num := vm.numClass
	binary := func(sig string, op func(a, b float64) Value) {
		vm.primitive(num, sig, func(vm *VM, recv Value, args []Value) Value {
			return op(recv.(float64), vm.numArg(args[0], "Right operand"))
		})
	}
	binary("+(_)", func(a, b float64) Value { return a + b })
	binary("-(_)", func(a, b float64) Value { return a - b })
	binary("*(_)", func(a, b float64) Value { return a * b })
	binary("/(_)", func(a, b float64) Value { return a / b })
	binary("%(_)", func(a, b float64) Value { return math.Mod(a, b) })
	binary("<(_)", func(a, b float64) Value { return a < b })
	binary(">(_)", func(a, b float64) Value { return a > b })
	binary("<=(_)", func(a, b float64) Value { return a <= b })
	binary(">=(_)", func(a, b float64) Value { return a >= b })
	binary("&(_)", func(a, b float64) Value { return float64(toUint32(a) & toUint32(b)) })
	binary("|(_)", func(a, b float64) Value { return float64(toUint32(a) | toUint32(b)) })
	binary("^(_)", func(a, b float64) Value { return float64(toUint32(a) ^ toUint32(b)) })
	binary("<<(_)", func(a, b float64) Value { return float64(toUint32(a) << (toUint32(b) & 31)) })
	binary(">>(_)", func(a, b float64) Value { return float64(toUint32(a) >> (toUint32(b) & 31)) })
	binary("min(_)", func(a, b float64) Value { return math.Min(a, b) })
	binary("max(_)", func(a, b float64) Value { return math.Max(a, b) })
	binary("pow(_)", func(a, b float64) Value { return math.Pow(a, b) })
	binary("atan(_)", func(a, b float64) Value { return math.Atan2(a, b) })

	vm.primitive(num, "..(_)", func(vm *VM, recv Value, args []Value) Value {
		return vm.newRange(recv.(float64), vm.numArg(args[0], "Right hand side of range"), true)
	})
	vm.primitive(num, "...(_)", func(vm *VM, recv Value, args []Value) Value {
		return vm.newRange(recv.(float64), vm.numArg(args[0], "Right hand side of range"), false)
	})

	unary := func(sig string, op func(a float64) Value) {
		vm.primitive(num, sig, func(vm *VM, recv Value, args []Value) Value { return op(recv.(float64)) })
	}
	unary("-", func(a float64) Value { return -a })
	unary("~", func(a float64) Value { return float64(^toUint32(a)) })
	unary("abs", func(a float64) Value { return math.Abs(a) })
	unary("ceil", func(a float64) Value { return math.Ceil(a) })
	unary("floor", func(a float64) Value { return math.Floor(a) })
	unary("round", func(a float64) Value { return math.Round(a) })
	unary("truncate", func(a float64) Value { return math.Trunc(a) })
	unary("fraction", func(a float64) Value { _, f := math.Modf(a); return f })
	unary("sqrt", func(a float64) Value { return math.Sqrt(a) })
	unary("sin", func(a float64) Value { return math.Sin(a) })
	unary("cos", func(a float64) Value { return math.Cos(a) })
	unary("isNan", func(a float64) Value { return math.IsNaN(a) })
	unary("isInfinity", func(a float64) Value { return math.IsInf(a, 0) })
	unary("isInteger", func(a float64) Value {
		return !math.IsNaN(a) && !math.IsInf(a, 0) && math.Trunc(a) == a
	})
	unary("sign", func(a float64) Value {
		switch {
		case a > 0:
			return 1.0
		case a < 0:
			return -1.0
		}
		return 0.0
	})
	vm.primitive(num, "toString", func(vm *VM, recv Value, args []Value) Value {
		return vm.newString(FormatNum(recv.(float64)))
	})

	meta := num.Meta
	vm.primitive(meta, "fromString(_)", func(vm *VM, recv Value, args []Value) Value {
		s, ok := args[0].(string)
		if !ok {
			vm.throw("Argument must be a string.")
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		return n
	})
	vm.primitive(meta, "pi", func(vm *VM, recv Value, args []Value) Value { return math.Pi })
	vm.primitive(meta, "infinity", func(vm *VM, recv Value, args []Value) Value { return math.Inf(1) })
	vm.primitive(meta, "nan", func(vm *VM, recv Value, args []Value) Value { return math.NaN() })
	vm.primitive(meta, "largest", func(vm *VM, recv Value, args []Value) Value { return math.MaxFloat64 })
	vm.primitive(meta, "smallest", func(vm *VM, recv Value, args []Value) Value { return math.SmallestNonzeroFloat64 })
}

func (vm *VM) stringArg(v Value, name string) string {
	s, ok := v.(string)
	if !ok {
		vm.throw(name + " must be a string.")
	}
	return s
}

// index validates a subscript or index argument against count. Negative
// values count back from the end.
func (vm *VM) index(v Value, count int, name string) int {
	n, ok := v.(float64)
	if !ok {
		vm.throw(name + " must be a number.")
	}
	if math.Trunc(n) != n {
		vm.throw(name + " must be an integer.")
	}
	i := int(n)
	if i < 0 {
		i += count
	}
	if i < 0 || i >= count {
		vm.throw(name + " out of bounds.")
	}
	return i
}

func (vm *VM) initString() {
	str := vm.stringClass
	vm.primitive(str, "+(_)", func(vm *VM, recv Value, args []Value) Value {
		return vm.newString(recv.(string) + vm.stringArg(args[0], "Right operand"))
	})
	vm.primitive(str, "*(_)", func(vm *VM, recv Value, args []Value) Value {
		n, ok := args[0].(float64)
		if !ok || n < 0 || math.Trunc(n) != n {
			vm.throw("Count must be a non-negative integer.")
		}
		return vm.newString(strings.Repeat(recv.(string), int(n)))
	})
	vm.primitive(str, "count", func(vm *VM, recv Value, args []Value) Value {
		return float64(utf8.RuneCountInString(recv.(string)))
	})
	vm.primitive(str, "byteCount", func(vm *VM, recv Value, args []Value) Value {
		return float64(len(recv.(string)))
	})
	vm.primitive(str, "isEmpty", func(vm *VM, recv Value, args []Value) Value {
		return len(recv.(string)) == 0
	})
	vm.primitive(str, "[_]", func(vm *VM, recv Value, args []Value) Value {
		s := recv.(string)
		i := vm.index(args[0], len(s), "Subscript")
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return s[i : i+1]
		}
		return s[i : i+size]
	})
	vm.primitive(str, "contains(_)", func(vm *VM, recv Value, args []Value) Value {
		return strings.Contains(recv.(string), vm.stringArg(args[0], "Argument"))
	})
	vm.primitive(str, "startsWith(_)", func(vm *VM, recv Value, args []Value) Value {
		return strings.HasPrefix(recv.(string), vm.stringArg(args[0], "Argument"))
	})
	vm.primitive(str, "endsWith(_)", func(vm *VM, recv Value, args []Value) Value {
		return strings.HasSuffix(recv.(string), vm.stringArg(args[0], "Argument"))
	})
	vm.primitive(str, "indexOf(_)", func(vm *VM, recv Value, args []Value) Value {
		return float64(strings.Index(recv.(string), vm.stringArg(args[0], "Argument")))
	})
	vm.primitive(str, "trim()", func(vm *VM, recv Value, args []Value) Value {
		return strings.TrimSpace(recv.(string))
	})
	vm.primitive(str, "replace(_,_)", func(vm *VM, recv Value, args []Value) Value {
		from := vm.stringArg(args[0], "From")
		to := vm.stringArg(args[1], "To")
		return vm.newString(strings.ReplaceAll(recv.(string), from, to))
	})
	vm.primitive(str, "split(_)", func(vm *VM, recv Value, args []Value) Value {
		sep := vm.stringArg(args[0], "Delimiter")
		if sep == "" {
			vm.throw("Delimiter cannot be empty.")
		}
		parts := strings.Split(recv.(string), sep)
		list := vm.newList(len(parts))
		for _, p := range parts {
			list.Elements = append(list.Elements, p)
		}
		return list
	})
	vm.primitive(str, "toString", func(vm *VM, recv Value, args []Value) Value { return recv })

	// Iteration is by byte offset of each code point.
	vm.primitive(str, "iterate(_)", func(vm *VM, recv Value, args []Value) Value {
		s := recv.(string)
		if args[0] == nil {
			if len(s) == 0 {
				return false
			}
			return 0.0
		}
		i := int(vm.numArg(args[0], "Iterator"))
		if i < 0 || i >= len(s) {
			return false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		if i+size >= len(s) {
			return false
		}
		return float64(i + size)
	})
	vm.primitive(str, "iteratorValue(_)", func(vm *VM, recv Value, args []Value) Value {
		s := recv.(string)
		i := vm.index(args[0], len(s), "Iterator")
		_, size := utf8.DecodeRuneInString(s[i:])
		return s[i : i+size]
	})

	vm.primitive(str.Meta, "fromCodePoint(_)", func(vm *VM, recv Value, args []Value) Value {
		n := vm.numArg(args[0], "Code point")
		if n < 0 || n > utf8.MaxRune || math.Trunc(n) != n {
			vm.throw("Code point out of range.")
		}
		return string(rune(n))
	})
}

// each walks seq with the iterator protocol until fn returns false.
func (vm *VM) each(seq Value, fn func(v Value) bool) {
	mark := len(vm.temps)
	defer vm.popTemps(mark)
	vm.pushTemp(seq)
	slot := vm.pushTemp(nil)

	var iter Value
	for {
		iter = vm.invoke(seq, "iterate(_)", []Value{iter})
		vm.temps[slot] = iter
		if isFalsy(iter) {
			return
		}
		if !fn(vm.invoke(seq, "iteratorValue(_)", []Value{iter})) {
			return
		}
	}
}

// callFn calls a function-like value with args.
func (vm *VM) callFn(fn Value, args ...Value) Value {
	if c, ok := fn.(*Closure); ok {
		return vm.callClosure(c, args)
	}
	return vm.invoke(fn, buildSignature("call", len(args), true), args)
}

func (vm *VM) initSequence() {
	seq := vm.sequenceClass
	vm.primitive(seq, "each(_)", func(vm *VM, recv Value, args []Value) Value {
		vm.each(recv, func(v Value) bool { vm.callFn(args[0], v); return true })
		return nil
	})
	collect := func(recv Value, keep func(v Value) (Value, bool)) *List {
		mark := len(vm.temps)
		defer vm.popTemps(mark)
		list := vm.newList(0)
		vm.pushTemp(list)
		vm.each(recv, func(v Value) bool {
			if out, ok := keep(v); ok {
				list.Elements = append(list.Elements, out)
			}
			return true
		})
		return list
	}
	vm.primitive(seq, "map(_)", func(vm *VM, recv Value, args []Value) Value {
		return collect(recv, func(v Value) (Value, bool) { return vm.callFn(args[0], v), true })
	})
	vm.primitive(seq, "where(_)", func(vm *VM, recv Value, args []Value) Value {
		return collect(recv, func(v Value) (Value, bool) { return v, !isFalsy(vm.callFn(args[0], v)) })
	})
	vm.primitive(seq, "toList", func(vm *VM, recv Value, args []Value) Value {
		return collect(recv, func(v Value) (Value, bool) { return v, true })
	})
	vm.primitive(seq, "count", func(vm *VM, recv Value, args []Value) Value {
		n := 0
		vm.each(recv, func(Value) bool { n++; return true })
		return float64(n)
	})
	vm.primitive(seq, "isEmpty", func(vm *VM, recv Value, args []Value) Value {
		empty := true
		vm.each(recv, func(Value) bool { empty = false; return false })
		return empty
	})
	vm.primitive(seq, "contains(_)", func(vm *VM, recv Value, args []Value) Value {
		found := false
		vm.each(recv, func(v Value) bool {
			found = !isFalsy(vm.invoke(v, "==(_)", []Value{args[0]}))
			return !found
		})
		return found
	})
	vm.primitive(seq, "all(_)", func(vm *VM, recv Value, args []Value) Value {
		result := true
		vm.each(recv, func(v Value) bool {
			result = !isFalsy(vm.callFn(args[0], v))
			return result
		})
		return result
	})
	vm.primitive(seq, "any(_)", func(vm *VM, recv Value, args []Value) Value {
		result := false
		vm.each(recv, func(v Value) bool {
			result = !isFalsy(vm.callFn(args[0], v))
			return !result
		})
		return result
	})
	vm.primitive(seq, "reduce(_,_)", func(vm *VM, recv Value, args []Value) Value {
		mark := len(vm.temps)
		defer vm.popTemps(mark)
		acc := args[0]
		slot := vm.pushTemp(acc)
		vm.each(recv, func(v Value) bool {
			acc = vm.callFn(args[1], acc, v)
			vm.temps[slot] = acc
			return true
		})
		return acc
	})
	join := func(recv Value, sep string) Value {
		var b strings.Builder
		first := true
		vm.each(recv, func(v Value) bool {
			if !first {
				b.WriteString(sep)
			}
			first = false
			b.WriteString(vm.toString(v))
			return true
		})
		return vm.newString(b.String())
	}
	vm.primitive(seq, "join()", func(vm *VM, recv Value, args []Value) Value { return join(recv, "") })
	vm.primitive(seq, "join(_)", func(vm *VM, recv Value, args []Value) Value {
		return join(recv, vm.stringArg(args[0], "Separator"))
	})
}

func (vm *VM) listIterate(count int, iter Value) Value {
	if iter == nil {
		if count == 0 {
			return false
		}
		return 0.0
	}
	i := vm.numArg(iter, "Iterator")
	if i < 0 || int(i)+1 >= count {
		return false
	}
	return i + 1
}

func (vm *VM) initList() {
	list := vm.listClass
	vm.primitive(list.Meta, "new()", func(vm *VM, recv Value, args []Value) Value { return vm.newList(0) })
	vm.primitive(list.Meta, "filled(_,_)", func(vm *VM, recv Value, args []Value) Value {
		n, ok := args[0].(float64)
		if !ok || n < 0 || math.Trunc(n) != n {
			vm.throw("Size must be a non-negative integer.")
		}
		l := vm.newList(int(n))
		for i := 0; i < int(n); i++ {
			l.Elements = append(l.Elements, args[1])
		}
		return l
	})
	vm.primitive(list, "add(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		vm.track(sizeSlot)
		l.Elements = append(l.Elements, args[0])
		return args[0]
	})
	vm.primitive(list, "addAll(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		vm.each(args[0], func(v Value) bool {
			l.Elements = append(l.Elements, v)
			return true
		})
		return args[0]
	})
	vm.primitive(list, "clear()", func(vm *VM, recv Value, args []Value) Value {
		recv.(*List).Elements = nil
		return nil
	})
	vm.primitive(list, "count", func(vm *VM, recv Value, args []Value) Value {
		return float64(len(recv.(*List).Elements))
	})
	vm.primitive(list, "isEmpty", func(vm *VM, recv Value, args []Value) Value {
		return len(recv.(*List).Elements) == 0
	})
	vm.primitive(list, "insert(_,_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		// One past the end is a valid insertion point.
		i := vm.index(args[0], len(l.Elements)+1, "Index")
		vm.track(sizeSlot)
		l.Elements = insertAt(l.Elements, i, args[1])
		return args[1]
	})
	vm.primitive(list, "removeAt(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		i := vm.index(args[0], len(l.Elements), "Index")
		v := l.Elements[i]
		l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
		return v
	})
	vm.primitive(list, "remove(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		for i, v := range l.Elements {
			if valuesEqual(v, args[0]) {
				l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
				return v
			}
		}
		return nil
	})
	vm.primitive(list, "indexOf(_)", func(vm *VM, recv Value, args []Value) Value {
		for i, v := range recv.(*List).Elements {
			if valuesEqual(v, args[0]) {
				return float64(i)
			}
		}
		return -1.0
	})
	vm.primitive(list, "[_]", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		if r, ok := args[0].(*Range); ok {
			from, to := vm.rangeBounds(r, len(l.Elements))
			out := vm.newList(to - from)
			out.Elements = append(out.Elements, l.Elements[from:to]...)
			return out
		}
		return l.Elements[vm.index(args[0], len(l.Elements), "Subscript")]
	})
	vm.primitive(list, "[_]=(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		l.Elements[vm.index(args[0], len(l.Elements), "Subscript")] = args[1]
		return args[1]
	})
	vm.primitive(list, "+(_)", func(vm *VM, recv Value, args []Value) Value {
		mark := len(vm.temps)
		defer vm.popTemps(mark)
		out := vm.newList(len(recv.(*List).Elements))
		vm.pushTemp(out)
		out.Elements = append(out.Elements, recv.(*List).Elements...)
		vm.each(args[0], func(v Value) bool {
			out.Elements = append(out.Elements, v)
			return true
		})
		return out
	})
	vm.primitive(list, "iterate(_)", func(vm *VM, recv Value, args []Value) Value {
		return vm.listIterate(len(recv.(*List).Elements), args[0])
	})
	vm.primitive(list, "iteratorValue(_)", func(vm *VM, recv Value, args []Value) Value {
		l := recv.(*List)
		return l.Elements[vm.index(args[0], len(l.Elements), "Iterator")]
	})
	vm.primitive(list, "toString", func(vm *VM, recv Value, args []Value) Value {
		var b strings.Builder
		b.WriteByte('[')
		for i, v := range recv.(*List).Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(vm.toString(v))
		}
		b.WriteByte(']')
		return vm.newString(b.String())
	})
}

func insertAt(s []Value, i int, v Value) []Value {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// rangeBounds converts a range subscript into a half-open slice interval.
func (vm *VM) rangeBounds(r *Range, count int) (int, int) {
	from := vm.index(r.From, count+1, "Range start")
	to := int(r.To)
	if to < 0 {
		to += count
	}
	if r.Inclusive {
		to++
	}
	if from == count && to == count || to == from {
		return from, from
	}
	if to < from || to > count {
		vm.throw("Range end out of bounds.")
	}
	return from, to
}

func (vm *VM) keyArg(v Value) Value {
	if !IsValidKey(v) {
		vm.throw("Key must be a value type.")
	}
	return v
}

func (vm *VM) initMap() {
	m := vm.mapClass
	vm.primitive(m.Meta, "new()", func(vm *VM, recv Value, args []Value) Value { return vm.newMap() })
	vm.primitive(m, "[_]", func(vm *VM, recv Value, args []Value) Value {
		v, _ := recv.(*Map).Get(vm.keyArg(args[0]))
		return v
	})
	vm.primitive(m, "[_]=(_)", func(vm *VM, recv Value, args []Value) Value {
		vm.track(2 * sizeSlot)
		recv.(*Map).Set(vm.keyArg(args[0]), args[1])
		return args[1]
	})
	vm.primitive(m, "count", func(vm *VM, recv Value, args []Value) Value {
		return float64(recv.(*Map).Count())
	})
	vm.primitive(m, "containsKey(_)", func(vm *VM, recv Value, args []Value) Value {
		_, ok := recv.(*Map).Get(vm.keyArg(args[0]))
		return ok
	})
	vm.primitive(m, "remove(_)", func(vm *VM, recv Value, args []Value) Value {
		return recv.(*Map).Remove(vm.keyArg(args[0]))
	})
	vm.primitive(m, "clear()", func(vm *VM, recv Value, args []Value) Value {
		recv.(*Map).Clear()
		return nil
	})
	vm.primitive(m, "keys", func(vm *VM, recv Value, args []Value) Value {
		mp := recv.(*Map)
		l := vm.newList(mp.Count())
		for _, e := range mp.entries {
			l.Elements = append(l.Elements, e.key)
		}
		return l
	})
	vm.primitive(m, "values", func(vm *VM, recv Value, args []Value) Value {
		mp := recv.(*Map)
		l := vm.newList(mp.Count())
		for _, e := range mp.entries {
			l.Elements = append(l.Elements, e.value)
		}
		return l
	})
	vm.primitive(m, "iterate(_)", func(vm *VM, recv Value, args []Value) Value {
		return vm.listIterate(recv.(*Map).Count(), args[0])
	})
	vm.primitive(m, "iteratorValue(_)", func(vm *VM, recv Value, args []Value) Value {
		mp := recv.(*Map)
		e := mp.entries[vm.index(args[0], mp.Count(), "Iterator")]
		vm.track(sizeObject)
		return &MapEntry{Key: e.key, Value: e.value}
	})
	vm.primitive(m, "toString", func(vm *VM, recv Value, args []Value) Value {
		var b strings.Builder
		b.WriteByte('{')
		for i, e := range recv.(*Map).entries {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(vm.toString(e.key))
			b.WriteString(": ")
			b.WriteString(vm.toString(e.value))
		}
		b.WriteByte('}')
		return vm.newString(b.String())
	})

	entry := vm.mapEntryClass
	vm.primitive(entry, "key", func(vm *VM, recv Value, args []Value) Value { return recv.(*MapEntry).Key })
	vm.primitive(entry, "value", func(vm *VM, recv Value, args []Value) Value { return recv.(*MapEntry).Value })
	vm.primitive(entry, "toString", func(vm *VM, recv Value, args []Value) Value {
		e := recv.(*MapEntry)
		return vm.newString(vm.toString(e.Key) + ":" + vm.toString(e.Value))
	})
}

func (vm *VM) initRange() {
	r := vm.rangeClass
	vm.primitive(r, "from", func(vm *VM, recv Value, args []Value) Value { return recv.(*Range).From })
	vm.primitive(r, "to", func(vm *VM, recv Value, args []Value) Value { return recv.(*Range).To })
	vm.primitive(r, "min", func(vm *VM, recv Value, args []Value) Value {
		rg := recv.(*Range)
		return math.Min(rg.From, rg.To)
	})
	vm.primitive(r, "max", func(vm *VM, recv Value, args []Value) Value {
		rg := recv.(*Range)
		return math.Max(rg.From, rg.To)
	})
	vm.primitive(r, "isInclusive", func(vm *VM, recv Value, args []Value) Value { return recv.(*Range).Inclusive })
	vm.primitive(r, "iterate(_)", func(vm *VM, recv Value, args []Value) Value {
		rg := recv.(*Range)
		if rg.From == rg.To && !rg.Inclusive {
			return false
		}
		if args[0] == nil {
			return rg.From
		}
		i := vm.numArg(args[0], "Iterator")
		if rg.From < rg.To {
			i++
			if i > rg.To || (!rg.Inclusive && i == rg.To) {
				return false
			}
		} else {
			i--
			if i < rg.To || (!rg.Inclusive && i == rg.To) {
				return false
			}
		}
		return i
	})
	vm.primitive(r, "iteratorValue(_)", func(vm *VM, recv Value, args []Value) Value { return args[0] })
	vm.primitive(r, "toString", func(vm *VM, recv Value, args []Value) Value {
		rg := recv.(*Range)
		op := "..."
		if rg.Inclusive {
			op = ".."
		}
		return vm.newString(FormatNum(rg.From) + op + FormatNum(rg.To))
	})
}

func (vm *VM) initFn() {
	fn := vm.fnClass
	vm.primitive(fn.Meta, "new(_)", func(vm *VM, recv Value, args []Value) Value {
		if _, ok := args[0].(*Closure); !ok {
			vm.throw("Argument must be a function.")
		}
		return args[0]
	})
	vm.primitive(fn, "arity", func(vm *VM, recv Value, args []Value) Value {
		return float64(recv.(*Closure).Arity())
	})
	vm.primitive(fn, "toString", func(vm *VM, recv Value, args []Value) Value { return "<fn>" })
	for n := 0; n <= maxParameters; n++ {
		vm.primitive(fn, buildSignature("call", n, true), func(vm *VM, recv Value, args []Value) Value {
			return vm.callClosure(recv.(*Closure), args)
		})
	}
}

func (vm *VM) initSystem() {
	sys := vm.systemClass.Meta
	vm.primitive(sys, "print()", func(vm *VM, recv Value, args []Value) Value {
		vm.host.Write("\n")
		return nil
	})
	vm.primitive(sys, "print(_)", func(vm *VM, recv Value, args []Value) Value {
		vm.host.Write(vm.toString(args[0]))
		vm.host.Write("\n")
		return args[0]
	})
	vm.primitive(sys, "write(_)", func(vm *VM, recv Value, args []Value) Value {
		vm.host.Write(vm.toString(args[0]))
		return args[0]
	})
	vm.primitive(sys, "clock", func(vm *VM, recv Value, args []Value) Value {
		return time.Since(clockStart).Seconds()
	})
	vm.primitive(sys, "gc()", func(vm *VM, recv Value, args []Value) Value {
		vm.Collect()
		return nil
	})
}
