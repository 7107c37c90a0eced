package jit

import "github.com/ristrettovm/ristretto/internal/vm"

// OperandStack is the typed value stack Program.Run pushes/pops while
// executing a compiled method's IR (spec §4.E JIT lowering: "An
// OperandStack of IR values"). Unlike internal/vm's Frame.OperandStack,
// which tracks category-2 width in slot units because real bytecode
// indexes locals by slot, this one is a plain Go slice of vm.Value — the IR
// already carries each operation's kind, so there is nothing left to infer
// from slot arithmetic.
type OperandStack struct {
	values []vm.Value
}

func (s *OperandStack) push(v vm.Value) { s.values = append(s.values, v) }

func (s *OperandStack) pop() vm.Value {
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v
}
