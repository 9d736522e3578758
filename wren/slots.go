package wren

import (
	"fmt"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

// The slot window is the array of values shared between the host and the
// VM. Foreign methods find their receiver and arguments in it, and Call
// reads its receiver and arguments from it.

// EnsureSlots grows the window to at least n slots. It never shrinks it.
func (vm *VM) EnsureSlots(n int) error {
	if err := vm.check(); err != nil {
		return err
	}
	vm.engine.EnsureSlots(n)
	return nil
}

// SlotCount is the number of slots in the window.
func (vm *VM) SlotCount() int {
	if vm.check() != nil {
		return 0
	}
	return vm.engine.SlotCount()
}

func (vm *VM) slot(i int) (engine.Value, error) {
	if err := vm.check(); err != nil {
		return nil, err
	}
	if n := vm.engine.SlotCount(); i < 0 || i >= n {
		return nil, fmt.Errorf("%w: slot %d of %d", ErrSlotOutOfRange, i, n)
	}
	return vm.engine.Slot(i), nil
}

func (vm *VM) setSlot(i int, v engine.Value) error {
	if _, err := vm.slot(i); err != nil {
		return err
	}
	vm.engine.SetSlot(i, v)
	return nil
}

func typeOf(v engine.Value) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBool
	case float64:
		return TypeNum
	case string:
		return TypeString
	case *engine.List:
		return TypeList
	case *engine.Map:
		return TypeMap
	case *engine.Foreign:
		return TypeForeign
	}
	return TypeUnknown
}

// SlotType reports the kind of value in slot.
func (vm *VM) SlotType(slot int) (Type, error) {
	v, err := vm.slot(slot)
	if err != nil {
		return TypeUnknown, err
	}
	return typeOf(v), nil
}

// slotAs reads slot and checks that it holds a T.
func slotAs[T any](vm *VM, slot int, want Type) (T, error) {
	var zero T
	v, err := vm.slot(slot)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &SlotTypeError{Slot: slot, Want: want, Got: typeOf(v)}
	}
	return t, nil
}

// GetSlotBool reads a Bool.
func (vm *VM) GetSlotBool(slot int) (bool, error) {
	return slotAs[bool](vm, slot, TypeBool)
}

// GetSlotDouble reads a Num.
func (vm *VM) GetSlotDouble(slot int) (float64, error) {
	return slotAs[float64](vm, slot, TypeNum)
}

// GetSlotBytes reads a String as bytes. The result is a copy.
func (vm *VM) GetSlotBytes(slot int) ([]byte, error) {
	s, err := slotAs[string](vm, slot, TypeString)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// GetSlotString reads a String.
func (vm *VM) GetSlotString(slot int) (string, error) {
	return slotAs[string](vm, slot, TypeString)
}

// GetSlotForeign returns the storage of a foreign object. The slice aliases
// VM memory and is only valid until the next call into the VM.
func (vm *VM) GetSlotForeign(slot int) ([]byte, error) {
	f, err := slotAs[*engine.Foreign](vm, slot, TypeForeign)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

// SetSlotBool stores a Bool.
func (vm *VM) SetSlotBool(slot int, v bool) error { return vm.setSlot(slot, v) }

// SetSlotDouble stores a Num.
func (vm *VM) SetSlotDouble(slot int, v float64) error { return vm.setSlot(slot, v) }

// SetSlotNull stores null.
func (vm *VM) SetSlotNull(slot int) error { return vm.setSlot(slot, nil) }

// SetSlotBytes stores a String holding a copy of data, which may contain any
// bytes.
func (vm *VM) SetSlotBytes(slot int, data []byte) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	vm.engine.SetSlot(slot, vm.engine.NewString(string(data)))
	return nil
}

// SetSlotString stores a String.
func (vm *VM) SetSlotString(slot int, s string) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	vm.engine.SetSlot(slot, vm.engine.NewString(s))
	return nil
}

// SetSlotNewList stores a new empty List.
func (vm *VM) SetSlotNewList(slot int) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	vm.engine.SetSlot(slot, vm.engine.NewList())
	return nil
}

// SetSlotNewMap stores a new empty Map.
func (vm *VM) SetSlotNewMap(slot int) error {
	if _, err := vm.slot(slot); err != nil {
		return err
	}
	vm.engine.SetSlot(slot, vm.engine.NewMap())
	return nil
}

// SetSlotNewForeign creates an instance of the foreign class in classSlot
// with size bytes of zeroed storage, stores it in slot and returns the
// storage. The slice aliases VM memory and is only valid until the next
// call into the VM.
func (vm *VM) SetSlotNewForeign(slot, classSlot, size int) ([]byte, error) {
	if _, err := vm.slot(slot); err != nil {
		return nil, err
	}
	v, err := vm.slot(classSlot)
	if err != nil {
		return nil, err
	}
	cls, ok := v.(*engine.Class)
	if !ok || !cls.Foreign {
		return nil, fmt.Errorf("%w: slot %d", ErrNotForeignClass, classSlot)
	}
	if size < 0 {
		size = 0
	}
	f := vm.engine.NewForeign(cls, size)
	vm.engine.SetSlot(slot, f)
	return f.Data, nil
}

// listIndex resolves a possibly negative element index.
func listIndex(index, count int) (int, error) {
	if index < 0 {
		index += count
	}
	if index < 0 || index >= count {
		return 0, fmt.Errorf("%w: index %d of %d", ErrIndexOutOfRange, index, count)
	}
	return index, nil
}

// GetListCount returns the number of elements of the List in slot.
func (vm *VM) GetListCount(slot int) (int, error) {
	l, err := slotAs[*engine.List](vm, slot, TypeList)
	if err != nil {
		return 0, err
	}
	return len(l.Elements), nil
}

// GetListElement stores element index of the List in listSlot into
// elementSlot. Negative indices count from the end.
func (vm *VM) GetListElement(listSlot, index, elementSlot int) error {
	l, err := slotAs[*engine.List](vm, listSlot, TypeList)
	if err != nil {
		return err
	}
	if _, err := vm.slot(elementSlot); err != nil {
		return err
	}
	i, err := listIndex(index, len(l.Elements))
	if err != nil {
		return err
	}
	vm.engine.SetSlot(elementSlot, l.Elements[i])
	return nil
}

// SetListElement replaces element index of the List in listSlot with the
// value in elementSlot. Negative indices count from the end.
func (vm *VM) SetListElement(listSlot, index, elementSlot int) error {
	l, err := slotAs[*engine.List](vm, listSlot, TypeList)
	if err != nil {
		return err
	}
	v, err := vm.slot(elementSlot)
	if err != nil {
		return err
	}
	i, err := listIndex(index, len(l.Elements))
	if err != nil {
		return err
	}
	l.Elements[i] = v
	return nil
}

// InsertInList inserts the value in elementSlot into the List in listSlot
// before index. Negative indices count from the end, so -1 appends.
func (vm *VM) InsertInList(listSlot, index, elementSlot int) error {
	l, err := slotAs[*engine.List](vm, listSlot, TypeList)
	if err != nil {
		return err
	}
	v, err := vm.slot(elementSlot)
	if err != nil {
		return err
	}
	count := len(l.Elements)
	if index < 0 {
		index += count + 1
	}
	if index < 0 || index > count {
		return fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, index, count)
	}
	vm.engine.InsertInList(l, index, v)
	return nil
}

func (vm *VM) mapKey(slot int) (engine.Value, error) {
	k, err := vm.slot(slot)
	if err != nil {
		return nil, err
	}
	if !engine.IsValidKey(k) {
		return nil, fmt.Errorf("%w: slot %d holds %s", ErrInvalidKey, slot, typeOf(k))
	}
	return k, nil
}

// GetMapCount returns the number of entries of the Map in slot.
func (vm *VM) GetMapCount(slot int) (int, error) {
	m, err := slotAs[*engine.Map](vm, slot, TypeMap)
	if err != nil {
		return 0, err
	}
	return m.Count(), nil
}

// GetMapContainsKey reports whether the Map in mapSlot has the key in
// keySlot.
func (vm *VM) GetMapContainsKey(mapSlot, keySlot int) (bool, error) {
	m, err := slotAs[*engine.Map](vm, mapSlot, TypeMap)
	if err != nil {
		return false, err
	}
	k, err := vm.mapKey(keySlot)
	if err != nil {
		return false, err
	}
	_, ok := m.Get(k)
	return ok, nil
}

// GetMapValue stores the value for the key in keySlot into valueSlot, or
// null if the key is absent.
func (vm *VM) GetMapValue(mapSlot, keySlot, valueSlot int) error {
	m, err := slotAs[*engine.Map](vm, mapSlot, TypeMap)
	if err != nil {
		return err
	}
	k, err := vm.mapKey(keySlot)
	if err != nil {
		return err
	}
	if _, err := vm.slot(valueSlot); err != nil {
		return err
	}
	v, _ := m.Get(k)
	vm.engine.SetSlot(valueSlot, v)
	return nil
}

// SetMapValue stores the value in valueSlot under the key in keySlot.
func (vm *VM) SetMapValue(mapSlot, keySlot, valueSlot int) error {
	m, err := slotAs[*engine.Map](vm, mapSlot, TypeMap)
	if err != nil {
		return err
	}
	k, err := vm.mapKey(keySlot)
	if err != nil {
		return err
	}
	v, err := vm.slot(valueSlot)
	if err != nil {
		return err
	}
	vm.engine.SetMapValue(m, k, v)
	return nil
}

// RemoveMapValue removes the key in keySlot and stores the removed value, or
// null, into removedSlot.
func (vm *VM) RemoveMapValue(mapSlot, keySlot, removedSlot int) error {
	m, err := slotAs[*engine.Map](vm, mapSlot, TypeMap)
	if err != nil {
		return err
	}
	k, err := vm.mapKey(keySlot)
	if err != nil {
		return err
	}
	if _, err := vm.slot(removedSlot); err != nil {
		return err
	}
	vm.engine.SetSlot(removedSlot, m.Remove(k))
	return nil
}
