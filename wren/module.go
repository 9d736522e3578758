package wren

import "fmt"

// ResolveModuleFn canonicalizes the name in an import statement relative to
// the importing module. Returning false fails the import.
type ResolveModuleFn func(vm *VM, importer, name string) (string, bool)

// LoadModuleFn returns the source of a module. It is called at most once per
// canonical name. Returning false fails the import.
type LoadModuleFn func(vm *VM, name string) (LoadModuleResult, bool)

// LoadModuleResult is the source of a loaded module.
type LoadModuleResult struct {
	Source string

	// OnComplete, if set, is called once the VM has finished compiling
	// Source.
	OnComplete func(vm *VM, name string, result LoadModuleResult)

	// UserData is passed back to OnComplete.
	UserData any
}

// HasModule reports whether a module has been loaded.
func (vm *VM) HasModule(name string) bool {
	if vm.check() != nil {
		return false
	}
	return vm.engine.HasModule(name)
}

// HasVariable reports whether a loaded module defines a top-level variable.
func (vm *VM) HasVariable(module, name string) bool {
	if vm.check() != nil {
		return false
	}
	_, ok := vm.engine.Variable(module, name)
	return ok
}

// GetVariable stores a top-level variable of a loaded module in slot.
func (vm *VM) GetVariable(module, name string, slot int) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	if !vm.engine.HasModule(module) {
		return fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}
	v, ok := vm.engine.Variable(module, name)
	if !ok {
		return fmt.Errorf("%w: %q in module %q", ErrUnknownVariable, name, module)
	}
	vm.engine.SetSlot(slot, v)
	return nil
}
