package jit

import "github.com/ristrettovm/ristretto/internal/vm"

// LocalVariables is the compiled method's local slot store, typed per slot
// (spec §4.E JIT lowering: "access requires matching the verifier-established
// type or returns LocalTypeMismatch"). Ristretto's bring-up JIT has no
// standalone verifier pass of its own to establish that type ahead of time,
// so a slot's kind is pinned by whichever instruction (an incoming argument,
// or the method's first store) touches it first, and every access after that
// must agree.
type LocalVariables struct {
	slots []vm.Value
	typed []bool
}

func newLocalVariables(n int) *LocalVariables {
	return &LocalVariables{slots: make([]vm.Value, n), typed: make([]bool, n)}
}

func (l *LocalVariables) bind(index int, v vm.Value) error {
	if index < 0 || index >= len(l.slots) {
		return &LocalTypeMismatch{Index: index, Expected: v.Kind, Actual: v.Kind}
	}
	l.slots[index] = v
	l.typed[index] = true
	return nil
}

func (l *LocalVariables) set(index int, v vm.Value) error {
	if index < 0 || index >= len(l.slots) {
		return &LocalTypeMismatch{Index: index, Expected: v.Kind, Actual: v.Kind}
	}
	if l.typed[index] && l.slots[index].Kind != v.Kind {
		return &LocalTypeMismatch{Index: index, Expected: l.slots[index].Kind, Actual: v.Kind}
	}
	l.slots[index] = v
	l.typed[index] = true
	return nil
}

func (l *LocalVariables) get(index int, want vm.Kind) (vm.Value, error) {
	if index < 0 || index >= len(l.slots) || !l.typed[index] {
		return vm.Value{}, &LocalTypeMismatch{Index: index, Expected: want, Actual: vm.KindNull}
	}
	v := l.slots[index]
	if v.Kind != want {
		return vm.Value{}, &LocalTypeMismatch{Index: index, Expected: v.Kind, Actual: want}
	}
	return v, nil
}
