package wren

import (
	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

type bindingKey struct {
	module    string
	class     string
	static    bool
	signature string
}

// callbackManager routes engine callbacks to the functions in a VM's Config.
// Foreign bindings are resolved once per key and cached for the life of the
// VM.
type callbackManager struct {
	vm      *VM
	methods map[bindingKey]func()
	classes map[bindingKey]ForeignClassMethods
}

func newCallbackManager(vm *VM) *callbackManager {
	return &callbackManager{
		vm:      vm,
		methods: make(map[bindingKey]func()),
		classes: make(map[bindingKey]ForeignClassMethods),
	}
}

func (cm *callbackManager) ResolveModule(importer, name string) (string, bool) {
	fn := cm.vm.config.ResolveModuleFn
	if fn == nil {
		return name, true
	}
	return fn(cm.vm, importer, name)
}

func (cm *callbackManager) LoadModule(name string) (string, func(), bool) {
	fn := cm.vm.config.LoadModuleFn
	if fn == nil {
		return "", nil, false
	}
	result, ok := fn(cm.vm, name)
	if !ok {
		log.Debugf("module %q not found", name)
		return "", nil, false
	}
	done := func() {
		if result.OnComplete != nil {
			result.OnComplete(cm.vm, name, result)
		}
	}
	return result.Source, done, true
}

func (cm *callbackManager) BindForeignMethod(module, class string, isStatic bool, signature string) func() {
	key := bindingKey{module: module, class: class, static: isStatic, signature: signature}
	if m, ok := cm.methods[key]; ok {
		return m
	}

	var bound func()
	if fn := cm.vm.config.BindForeignMethodFn; fn != nil {
		if m := fn(cm.vm, module, class, isStatic, signature); m != nil {
			vm := cm.vm
			bound = func() { m(vm) }
		}
	}
	log.Debugf("bind foreign method %s.%s.%s: found=%t", module, class, signature, bound != nil)
	cm.methods[key] = bound
	return bound
}

func (cm *callbackManager) BindForeignClass(module, class string) (func(), func([]byte)) {
	key := bindingKey{module: module, class: class}
	methods, ok := cm.classes[key]
	if !ok {
		if fn := cm.vm.config.BindForeignClassFn; fn != nil {
			methods = fn(cm.vm, module, class)
		}
		log.Debugf("bind foreign class %s.%s: found=%t", module, class, methods.Allocate != nil)
		cm.classes[key] = methods
	}

	if methods.Allocate == nil {
		return nil, nil
	}
	vm := cm.vm
	allocate := func() { methods.Allocate(vm) }
	if methods.Finalize == nil {
		return allocate, nil
	}
	return allocate, methods.Finalize
}

func (cm *callbackManager) Write(text string) {
	if fn := cm.vm.config.WriteFn; fn != nil {
		fn(cm.vm, text)
	}
}

func (cm *callbackManager) Error(kind engine.ErrorKind, module string, line int, message string) {
	if fn := cm.vm.config.ErrorFn; fn != nil {
		fn(cm.vm, errorType(kind), module, line, message)
	}
}

func (cm *callbackManager) Reallocate(memory []byte, newSize int) []byte {
	return cm.vm.config.ReallocateFn(memory, newSize, cm.vm.userData)
}

func errorType(kind engine.ErrorKind) ErrorType {
	switch kind {
	case engine.ErrorCompile:
		return ErrorCompile
	case engine.ErrorRuntime:
		return ErrorRuntime
	}
	return ErrorStackTrace
}
