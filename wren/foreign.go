package wren

// ForeignMethodFn implements a foreign method. The receiver is in slot 0 and
// the arguments follow; the method leaves its result in slot 0.
type ForeignMethodFn func(vm *VM)

// FinalizerFn releases external resources held by a foreign object. It runs
// while the object is being reclaimed and may only touch data; every VM
// operation fails with [ErrInFinalizer] until it returns.
type FinalizerFn func(data []byte)

// ForeignClassMethods binds a foreign class. Allocate is called with the
// class in slot 0 and the constructor arguments after it, and must call
// [VM.SetSlotNewForeign] with slot 0 and class slot 0 exactly once.
type ForeignClassMethods struct {
	Allocate ForeignMethodFn
	Finalize FinalizerFn
}

// BindForeignMethodFn looks up the implementation of a foreign method. It
// returns nil when there is none.
type BindForeignMethodFn func(vm *VM, module, className string, isStatic bool, signature string) ForeignMethodFn

// BindForeignClassFn looks up the allocator and finalizer of a foreign
// class. A nil Allocate means the class is not bound.
type BindForeignClassFn func(vm *VM, module, className string) ForeignClassMethods

// AbortFiber makes the running foreign method fail with the value in slot as
// its runtime error once it returns. A null value does nothing.
func (vm *VM) AbortFiber(slot int) error {
	v, err := vm.slot(slot)
	if err != nil {
		return err
	}
	if !vm.engine.InForeignCall() {
		return ErrNoFiber
	}
	vm.engine.AbortFiber(v)
	return nil
}
