package wren

import (
	"errors"
	"fmt"
)

// Errors returned for misuse of the host API. Script failures are never Go
// errors; they are reported through [ErrorFn] and the [InterpretResult].
var (
	ErrClosed           = errors.New("wren: vm is closed")
	ErrInFinalizer      = errors.New("wren: vm cannot be used from a finalizer")
	ErrInForeignCall    = errors.New("wren: vm cannot be closed from a foreign method")
	ErrSlotOutOfRange   = errors.New("wren: slot out of range")
	ErrWrongSlotType    = errors.New("wren: wrong slot type")
	ErrIndexOutOfRange  = errors.New("wren: index out of range")
	ErrInvalidKey       = errors.New("wren: map key must be a value type")
	ErrHandleReleased   = errors.New("wren: handle already released")
	ErrForeignHandle    = errors.New("wren: handle belongs to another vm")
	ErrInvalidSignature = errors.New("wren: invalid method signature")
	ErrNotForeignClass  = errors.New("wren: class is not foreign")
	ErrNoFiber          = errors.New("wren: no foreign call in progress")
	ErrUnknownModule    = errors.New("wren: module not loaded")
	ErrUnknownVariable  = errors.New("wren: variable not defined")
)

// SlotTypeError reports a typed slot read that found a different kind of
// value.
type SlotTypeError struct {
	Slot int
	Want Type
	Got  Type
}

func (e *SlotTypeError) Error() string {
	return fmt.Sprintf("wren: slot %d holds %s, not %s", e.Slot, e.Got, e.Want)
}

// Is makes a SlotTypeError match [ErrWrongSlotType].
func (e *SlotTypeError) Is(target error) bool { return target == ErrWrongSlotType }
