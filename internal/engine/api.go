package engine

import (
	"fmt"
	"strings"
)

// Slot window and handle table used by the embedding layer. None of these
// methods check their arguments; the caller validates indices and types.

// EnsureSlots grows the window to at least n slots.
func (vm *VM) EnsureSlots(n int) {
	for len(vm.api) < n {
		vm.api = append(vm.api, nil)
	}
}

func (vm *VM) SlotCount() int { return len(vm.api) }

func (vm *VM) Slot(i int) Value { return vm.api[i] }

func (vm *VM) SetSlot(i int, v Value) { vm.api[i] = v }

// NewList allocates an empty list.
func (vm *VM) NewList() *List { return vm.newList(0) }

// NewMap allocates an empty map.
func (vm *VM) NewMap() *Map { return vm.newMap() }

// NewString accounts for a string created by the host.
func (vm *VM) NewString(s string) string { return vm.newString(s) }

// NewForeign allocates a foreign instance of cls with size bytes of storage
// obtained from the host allocator.
func (vm *VM) NewForeign(cls *Class, size int) *Foreign {
	vm.track(sizeObject + size)
	f := &Foreign{Class: cls, Data: vm.host.Reallocate(nil, size)}
	vm.foreigns[f] = struct{}{}
	return f
}

// InsertInList inserts v at index i, which is already normalized.
func (vm *VM) InsertInList(l *List, i int, v Value) {
	vm.track(sizeSlot)
	l.Elements = insertAt(l.Elements, i, v)
}

// SetMapValue stores v under key, which must be a valid key.
func (vm *VM) SetMapValue(m *Map, key, v Value) {
	vm.track(2 * sizeSlot)
	m.Set(key, v)
}

// MakeHandle roots v and returns its handle id.
func (vm *VM) MakeHandle(v Value) int {
	vm.nextHandle++
	vm.handles[vm.nextHandle] = v
	return vm.nextHandle
}

// HandleValue returns the value rooted by a handle.
func (vm *VM) HandleValue(id int) (Value, bool) {
	v, ok := vm.handles[id]
	return v, ok
}

// ReleaseHandle unroots a handle.
func (vm *VM) ReleaseHandle(id int) {
	delete(vm.handles, id)
}

// HandleCount is the number of live handles.
func (vm *VM) HandleCount() int { return len(vm.handles) }

// AbortFiber makes the running foreign call fail with v once it returns.
// Aborting with null does nothing.
func (vm *VM) AbortFiber(v Value) {
	if v == nil {
		return
	}
	vm.aborting = true
	vm.abortValue = v
}

// Variable returns a top-level variable of a loaded module.
func (vm *VM) Variable(module, name string) (Value, bool) {
	m, ok := vm.modules[module]
	if !ok {
		return nil, false
	}
	v, ok := m.Vars[name]
	return v, ok
}

// HasModule reports whether a module has been loaded.
func (vm *VM) HasModule(name string) bool {
	_, ok := vm.modules[name]
	return ok
}

// Call invokes sig on the receiver in slot 0 with slots 1..arity as
// arguments. Slots past the arguments are ignored. Afterwards the window
// holds only the result.
func (vm *VM) Call(sig string, arity int) (Result, error) {
	if len(vm.api) < arity+1 {
		supplied := len(vm.api) - 1
		if supplied < 0 {
			supplied = 0
		}
		vm.report(&RuntimeError{Value: fmt.Sprintf(
			"Call of '%s' expects %d argument(s) but %d were supplied.", sig, arity, supplied)})
		vm.api = []Value{nil}
		return ResultRuntimeError, nil
	}

	recv := vm.api[0]
	args := append([]Value(nil), vm.api[1:arity+1]...)
	var result Value
	res, err := vm.protect(func() {
		mark := len(vm.temps)
		vm.pushTemp(recv)
		for _, a := range args {
			vm.pushTemp(a)
		}
		result = vm.invoke(recv, sig, args)
		vm.popTemps(mark)
	})
	vm.api = []Value{result}
	return res, err
}

// ParseSignature checks that sig is a well-formed method signature and
// returns its arity.
func ParseSignature(sig string) (int, bool) {
	if sig == "" || strings.ContainsAny(sig, " \t\r\n") {
		return 0, false
	}
	toks := Tokenize(sig)
	p := 0
	at := func(t TokenType) bool {
		if toks[p].Type != t {
			return false
		}
		if t != TokenEOF {
			p++
		}
		return true
	}
	// params reads "_,_,...", then the closing token.
	params := func(close TokenType) (int, bool) {
		if at(close) {
			return 0, true
		}
		n := 0
		for {
			if toks[p].Type != TokenField || toks[p].Lexeme != "_" {
				return 0, false
			}
			p++
			n++
			if at(close) {
				return n, true
			}
			if !at(TokenComma) {
				return 0, false
			}
		}
	}
	single := func() bool {
		if !at(TokenLeftParen) {
			return false
		}
		n, ok := params(TokenRightParen)
		return ok && n == 1
	}

	n, ok := 0, true
	switch t := toks[p].Type; {
	case t == TokenName:
		p++
		switch {
		case at(TokenLeftParen):
			n, ok = params(TokenRightParen)
		case at(TokenEq):
			n, ok = 1, single()
		}
	case t == TokenLeftBracket:
		p++
		n, ok = params(TokenRightBracket)
		ok = ok && n > 0
		if ok && at(TokenEq) {
			n, ok = n+1, single()
		}
	case t == TokenBang || t == TokenTilde:
		p++
	case isOperatorToken(t):
		p++
		if toks[p].Type == TokenLeftParen {
			n, ok = 1, single()
		} else {
			ok = t == TokenMinus
		}
	default:
		return 0, false
	}
	return n, ok && toks[p].Type == TokenEOF
}

func isOperatorToken(t TokenType) bool {
	switch t {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenLt, TokenGt, TokenLtEq, TokenGtEq, TokenEqEq, TokenBangEq,
		TokenAmp, TokenPipe, TokenCaret, TokenLtLt, TokenGtGt,
		TokenDotDot, TokenDotDotDot, TokenIs:
		return true
	}
	return false
}
