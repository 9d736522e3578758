package engine

import (
	"fmt"
	"strings"
)

type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

// Interpret compiles src and runs it as a top-level unit of module.
func (vm *VM) Interpret(module, src string) (Result, error) {
	mod, ok := vm.modules[module]
	if !ok {
		mod = vm.newModule(module)
		vm.modules[module] = mod
	}

	prog, cerr := Compile(module, src, vm.knownVars(mod))
	if cerr != nil {
		log.Debugf("compile error in %q: %s", module, cerr.Message)
		vm.host.Error(ErrorCompile, cerr.Module, cerr.Line, cerr.Message)
		vm.resetWindow()
		return ResultCompileError, nil
	}

	res, err := vm.protect(func() { vm.runModule(prog, mod) })
	vm.resetWindow()
	return res, err
}

func (vm *VM) resetWindow() {
	if vm.foreignDepth == 0 {
		vm.api = nil
	}
}

func (vm *VM) runModule(prog *Program, mod *Module) {
	env := newEnv(nil)
	vm.pushFrame(&frame{name: "(script)", module: mod, line: 1, env: env})
	vm.execBlock(prog.Body, env)
	vm.popFrame()
}

// enter opens a nested scope in the current frame. The frame tracks its
// innermost scope so the collector can see local variables.
func (vm *VM) enter(parent *Env) *Env {
	e := newEnv(parent)
	if f := vm.top(); f != nil {
		f.env = e
	}
	return e
}

func (vm *VM) leave(e *Env) {
	if f := vm.top(); f != nil {
		f.env = e
	}
}

func (vm *VM) execScoped(s Stmt, env *Env) (ctrl, Value) {
	inner := vm.enter(env)
	c, v := vm.exec(s, inner)
	vm.leave(env)
	return c, v
}

func (vm *VM) execBlock(body []Stmt, env *Env) (ctrl, Value) {
	for _, s := range body {
		if c, v := vm.exec(s, env); c != ctrlNone {
			return c, v
		}
	}
	return ctrlNone, nil
}

func (vm *VM) exec(s Stmt, env *Env) (ctrl, Value) {
	switch s := s.(type) {
	case *ExprStmt:
		vm.setLine(s.Line)
		vm.eval(s.X, env)

	case *VarStmt:
		vm.setLine(s.Line)
		v := vm.eval(s.Init, env)
		vm.store(s.Name, s.Scope, v, env, true)

	case *BlockStmt:
		inner := vm.enter(env)
		c, v := vm.execBlock(s.Body, inner)
		vm.leave(env)
		return c, v

	case *IfStmt:
		vm.setLine(s.Line)
		if !isFalsy(vm.eval(s.Cond, env)) {
			return vm.execScoped(s.Then, env)
		}
		if s.Else != nil {
			return vm.execScoped(s.Else, env)
		}

	case *WhileStmt:
		for {
			vm.setLine(s.Line)
			if isFalsy(vm.eval(s.Cond, env)) {
				break
			}
			c, v := vm.execScoped(s.Body, env)
			if c == ctrlBreak {
				break
			}
			if c == ctrlReturn {
				return c, v
			}
		}

	case *ForStmt:
		return vm.execFor(s, env)

	case *BreakStmt:
		return ctrlBreak, nil

	case *ContinueStmt:
		return ctrlContinue, nil

	case *ReturnStmt:
		vm.setLine(s.Line)
		var v Value
		if s.Value != nil {
			v = vm.eval(s.Value, env)
		}
		return ctrlReturn, v

	case *ClassStmt:
		vm.setLine(s.Line)
		vm.defineClass(s, env)

	case *ImportStmt:
		vm.setLine(s.Line)
		vm.importVariables(s, env)

	default:
		panic(fmt.Errorf("unexpected statement %T", s))
	}
	return ctrlNone, nil
}

func (vm *VM) execFor(s *ForStmt, env *Env) (ctrl, Value) {
	vm.setLine(s.Line)
	mark := len(vm.temps)
	defer vm.popTemps(mark)

	seq := vm.eval(s.Seq, env)
	vm.pushTemp(seq)
	slot := vm.pushTemp(nil)

	var iter Value
	for {
		vm.setLine(s.Line)
		iter = vm.invoke(seq, "iterate(_)", []Value{iter})
		vm.temps[slot] = iter
		if isFalsy(iter) {
			return ctrlNone, nil
		}
		value := vm.invoke(seq, "iteratorValue(_)", []Value{iter})
		body := vm.enter(env)
		body.define(s.Var, value)
		c, v := vm.exec(s.Body, body)
		vm.leave(env)
		if c == ctrlBreak {
			return ctrlNone, nil
		}
		if c == ctrlReturn {
			return c, v
		}
	}
}

func (vm *VM) store(name string, scope VarScope, v Value, env *Env, define bool) {
	if scope == ScopeModule {
		vm.top().module.Vars[name] = v
		return
	}
	if define {
		env.define(name, v)
		return
	}
	if e := env.find(name); e != nil {
		e.vars[name] = v
	}
}

func (vm *VM) defineClass(s *ClassStmt, env *Env) {
	mod := vm.top().module

	super := vm.objectClass
	if s.Superclass != nil {
		v := vm.eval(s.Superclass, env)
		sc, ok := v.(*Class)
		switch {
		case !ok:
			vm.throwf("Class '%s' cannot inherit from a non-class object.", s.Name)
		case sc.builtin:
			vm.throwf("Class '%s' cannot inherit from built-in class '%s'.", s.Name, sc.Name)
		case sc.Foreign:
			vm.throwf("Class '%s' cannot inherit from foreign class '%s'.", s.Name, sc.Name)
		}
		super = sc
	}

	cls := vm.newClass(s.Name, super, mod)
	cls.Foreign = s.Foreign
	if s.Foreign {
		cls.allocate, cls.finalize = vm.host.BindForeignClass(mod.Name, s.Name)
	}

	for _, md := range s.Methods {
		m := &Method{signature: md.Signature, class: cls, static: md.Static, module: mod}
		if md.Foreign {
			m.kind = methodForeign
			m.foreign = vm.host.BindForeignMethod(mod.Name, s.Name, md.Static, md.Signature)
		} else {
			m.kind = methodBlock
			m.fn = md.Body
		}

		target := cls
		if md.Static {
			target = cls.Meta
		}
		target.methods[md.Signature] = m

		if md.Construct {
			sig := strings.TrimPrefix(md.Signature, "init ")
			cls.Meta.methods[sig] = &Method{
				kind:      methodConstructor,
				signature: sig,
				class:     cls,
				static:    true,
				module:    mod,
				init:      m,
			}
		}
	}

	vm.store(s.Name, s.Scope, cls, env, true)
}

func (vm *VM) importVariables(s *ImportStmt, env *Env) {
	importer := vm.top().module.Name
	name, ok := vm.host.ResolveModule(importer, s.Module)
	if !ok {
		vm.throwf("Could not resolve module '%s' imported from '%s'.", s.Module, importer)
	}

	mod := vm.importModule(name)
	for _, v := range s.Vars {
		val, ok := mod.Vars[v.Name]
		if !ok {
			vm.throwf("Could not find a variable named '%s' in module '%s'.", v.Name, name)
		}
		vm.store(v.Alias, s.Scope, val, env, true)
	}
}

// importModule returns the module with the canonical name, loading,
// compiling and running it the first time it is imported.
func (vm *VM) importModule(name string) *Module {
	if m, ok := vm.modules[name]; ok {
		return m
	}
	if msg, ok := vm.failed[name]; ok {
		vm.throw(msg)
	}

	source, done, ok := vm.host.LoadModule(name)
	if !ok {
		msg := fmt.Sprintf("Could not load module '%s'.", name)
		vm.failed[name] = msg
		vm.throw(msg)
	}
	log.Debugf("loaded module %q (%d bytes)", name, len(source))

	mod := vm.newModule(name)
	prog, cerr := Compile(name, source, vm.knownVars(mod))
	if done != nil {
		done()
	}
	if cerr != nil {
		vm.host.Error(ErrorCompile, cerr.Module, cerr.Line, cerr.Message)
		msg := fmt.Sprintf("Could not compile module '%s'.", name)
		vm.failed[name] = msg
		vm.throw(msg)
	}

	vm.modules[name] = mod
	vm.runModule(prog, mod)
	return mod
}

func (vm *VM) eval(e Expr, env *Env) Value {
	switch e := e.(type) {
	case *NumberLit:
		return e.Value
	case *StringLit:
		return e.Value
	case *BoolLit:
		return e.Value
	case *NullLit:
		return nil
	case *ThisExpr:
		return vm.top().this

	case *InterpolationExpr:
		var b strings.Builder
		for _, part := range e.Parts {
			b.WriteString(vm.toString(vm.eval(part, env)))
		}
		return vm.newString(b.String())

	case *ListLit:
		mark := len(vm.temps)
		list := vm.newList(len(e.Elements))
		vm.pushTemp(list)
		for _, el := range e.Elements {
			list.Elements = append(list.Elements, vm.eval(el, env))
		}
		vm.popTemps(mark)
		return list

	case *MapLit:
		mark := len(vm.temps)
		m := vm.newMap()
		vm.pushTemp(m)
		for i := range e.Keys {
			vm.setLine(e.Line)
			k := vm.eval(e.Keys[i], env)
			slot := vm.pushTemp(k)
			v := vm.eval(e.Values[i], env)
			if !IsValidKey(k) {
				vm.throw("Key must be a value type.")
			}
			m.Set(k, v)
			vm.popTemps(slot)
		}
		vm.popTemps(mark)
		return m

	case *VariableExpr:
		if e.Scope == ScopeModule {
			return vm.top().module.Vars[e.Name]
		}
		if s := env.find(e.Name); s != nil {
			return s.vars[e.Name]
		}
		return nil

	case *AssignExpr:
		v := vm.eval(e.Value, env)
		vm.store(e.Name, e.Scope, v, env, false)
		return v

	case *FieldExpr:
		f := vm.top()
		if e.Static {
			return f.class.statics[e.Name]
		}
		if inst, ok := f.this.(*Instance); ok {
			return inst.Fields[fieldKey{f.class, e.Name}]
		}
		return nil

	case *FieldAssignExpr:
		v := vm.eval(e.Value, env)
		f := vm.top()
		if e.Static {
			f.class.statics[e.Name] = v
		} else if inst, ok := f.this.(*Instance); ok {
			inst.Fields[fieldKey{f.class, e.Name}] = v
		}
		return v

	case *CallExpr:
		return vm.evalCall(e, env)

	case *LogicalExpr:
		l := vm.eval(e.Left, env)
		if e.And == isFalsy(l) {
			return l
		}
		return vm.eval(e.Right, env)

	case *ConditionalExpr:
		if !isFalsy(vm.eval(e.Cond, env)) {
			return vm.eval(e.Then, env)
		}
		return vm.eval(e.Else, env)

	case *FnExpr:
		f := vm.top()
		vm.track(sizeClosure)
		return &Closure{Fn: e, Env: env, This: f.this, Class: f.class, Static: f.static, Module: f.module}
	}
	panic(fmt.Errorf("unexpected expression %T", e))
}

func (vm *VM) evalCall(e *CallExpr, env *Env) Value {
	f := vm.top()
	mark := len(vm.temps)

	var recv Value
	if e.Receiver == nil {
		recv = f.this
	} else {
		recv = vm.eval(e.Receiver, env)
	}
	vm.pushTemp(recv)

	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = vm.eval(a, env)
		vm.pushTemp(args[i])
	}

	vm.setLine(e.Line)
	var result Value
	if e.Super {
		result = vm.invokeSuper(f, recv, e.Signature, args)
	} else {
		result = vm.invoke(recv, e.Signature, args)
	}
	vm.popTemps(mark)
	return result
}

func (vm *VM) classOf(v Value) *Class {
	switch o := v.(type) {
	case nil:
		return vm.nullClass
	case bool:
		return vm.boolClass
	case float64:
		return vm.numClass
	case string:
		return vm.stringClass
	case *List:
		return vm.listClass
	case *Map:
		return vm.mapClass
	case *MapEntry:
		return vm.mapEntryClass
	case *Range:
		return vm.rangeClass
	case *Closure:
		return vm.fnClass
	case *Class:
		return o.Meta
	case *Instance:
		return o.Class
	case *Foreign:
		return o.Class
	}
	return vm.objectClass
}

// invoke calls the method sig on recv.
func (vm *VM) invoke(recv Value, sig string, args []Value) Value {
	cls := vm.classOf(recv)
	m := cls.lookup(sig)
	if m == nil {
		vm.throwf("%s does not implement '%s'.", cls.Name, sig)
	}
	return vm.callMethod(m, recv, args)
}

func (vm *VM) invokeSuper(f *frame, recv Value, sig string, args []Value) Value {
	start := vm.classClass
	if !f.static && f.class != nil {
		start = f.class.Super
	}
	var m *Method
	if start != nil {
		m = start.lookup(sig)
	}
	if m == nil {
		name := "null"
		if start != nil {
			name = start.Name
		}
		vm.throwf("%s does not implement '%s'.", name, sig)
	}
	return vm.callMethod(m, recv, args)
}

func (vm *VM) callMethod(m *Method, recv Value, args []Value) Value {
	switch m.kind {
	case methodPrimitive:
		return m.prim(vm, recv, args)
	case methodBlock:
		return vm.callBlock(m, recv, args)
	case methodForeign:
		if m.foreign == nil {
			vm.throwf("Could not find foreign method '%s' for class %s in module '%s'.",
				m.signature, m.class.Name, m.module.Name)
		}
		window := make([]Value, 0, len(args)+1)
		window = append(append(window, recv), args...)
		return vm.callForeign(m.foreign, window)
	case methodConstructor:
		return vm.construct(m, recv.(*Class), args)
	}
	panic(fmt.Errorf("unknown method kind %d", m.kind))
}

func (vm *VM) callBlock(m *Method, recv Value, args []Value) Value {
	env := newEnv(nil)
	for i, p := range m.fn.Params {
		env.define(p, args[i])
	}
	vm.pushFrame(&frame{
		name:   m.fn.Name,
		module: m.module,
		line:   m.fn.Line,
		env:    env,
		this:   recv,
		class:  m.class,
		static: m.static,
	})
	v := vm.runBody(m.fn, env)
	vm.popFrame()
	return v
}

// callClosure calls a function object with args.
func (vm *VM) callClosure(c *Closure, args []Value) Value {
	if len(args) < len(c.Fn.Params) {
		vm.throw("Function expects more arguments.")
	}
	env := newEnv(c.Env)
	for i, p := range c.Fn.Params {
		env.define(p, args[i])
	}
	name := c.Fn.Name
	if name == "" {
		name = "new(_) block argument"
	}
	vm.pushFrame(&frame{
		name:   name,
		module: c.Module,
		line:   c.Fn.Line,
		env:    env,
		this:   c.This,
		class:  c.Class,
		static: c.Static,
	})
	v := vm.runBody(c.Fn, env)
	vm.popFrame()
	return v
}

func (vm *VM) runBody(fn *FnExpr, env *Env) Value {
	if fn.ExprBody != nil {
		return vm.eval(fn.ExprBody, env)
	}
	if c, v := vm.execBlock(fn.Body, env); c == ctrlReturn {
		return v
	}
	return nil
}

// callForeign runs a host function with window as its slot window and
// returns slot 0 afterwards. An abort requested by the host becomes a
// runtime error.
func (vm *VM) callForeign(fn func(), window []Value) Value {
	var result Value
	func() {
		vm.apiSaved = append(vm.apiSaved, vm.api)
		vm.api = window
		vm.foreignDepth++
		defer func() {
			if len(vm.api) > 0 {
				result = vm.api[0]
			}
			vm.api = vm.apiSaved[len(vm.apiSaved)-1]
			vm.apiSaved = vm.apiSaved[:len(vm.apiSaved)-1]
			vm.foreignDepth--
		}()
		fn()
	}()

	if vm.aborting {
		v := vm.abortValue
		vm.aborting, vm.abortValue = false, nil
		vm.throw(v)
	}
	return result
}

func (vm *VM) construct(m *Method, cls *Class, args []Value) Value {
	mark := len(vm.temps)
	defer vm.popTemps(mark)

	var inst Value
	if cls.Foreign {
		if cls.allocate == nil {
			vm.throwf("Could not find foreign allocator for class %s in module '%s'.", cls.Name, cls.Module.Name)
		}
		window := make([]Value, 0, len(args)+1)
		window = append(append(window, cls), args...)
		inst = vm.callForeign(cls.allocate, window)
	} else {
		inst = vm.newInstance(cls)
	}
	vm.pushTemp(inst)
	vm.callBlock(m.init, inst, args)
	return inst
}

// toString converts v with its toString method.
func (vm *VM) toString(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	s, ok := vm.invoke(v, "toString", nil).(string)
	if !ok {
		return "[invalid toString]"
	}
	return s
}

func (vm *VM) newClass(name string, super *Class, mod *Module) *Class {
	vm.track(2 * sizeClass)
	meta := &Class{
		Name:    name + " metaclass",
		Super:   vm.classClass,
		Meta:    vm.classClass,
		Module:  mod,
		methods: make(map[string]*Method),
		statics: make(map[string]Value),
	}
	return &Class{
		Name:    name,
		Super:   super,
		Meta:    meta,
		Module:  mod,
		methods: make(map[string]*Method),
		statics: make(map[string]Value),
	}
}

func (vm *VM) newList(n int) *List {
	vm.track(sizeObject + sizeSlot*n)
	return &List{Elements: make([]Value, 0, n)}
}

func (vm *VM) newMap() *Map {
	vm.track(sizeObject)
	return NewMapValue()
}

func (vm *VM) newString(s string) string {
	vm.track(sizeObject + len(s))
	return s
}

func (vm *VM) newInstance(cls *Class) *Instance {
	vm.track(sizeInstance)
	return &Instance{Class: cls, Fields: make(map[fieldKey]Value)}
}

func (vm *VM) newRange(from, to float64, inclusive bool) *Range {
	vm.track(sizeObject)
	return &Range{From: from, To: to, Inclusive: inclusive}
}
