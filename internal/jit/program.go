package jit

import (
	"math"

	"github.com/ristrettovm/ristretto/internal/vm"
)

// ReturnSlot is the compiled method's calling-convention return value: a
// discriminant tagging which of the four numeric kinds is live, plus a
// 64-bit payload wide enough to hold any of them (spec §4.E JIT lowering:
// "Return encodes the value into a shared {discriminant, 64-bit payload}
// slot so the calling convention stays uniform across primitive widths").
// Grounded on the original's own `jit_value` discriminant constants
// (`ireturn` in instruction/integer.rs stores `jit_value::I32` alongside the
// sign-extended payload at a fixed offset); Go has no raw pointer-and-offset
// store to model, so the two fields are named struct fields instead.
type ReturnSlot struct {
	Discriminant vm.Kind
	Payload      uint64
}

func encodeReturn(v vm.Value) ReturnSlot {
	switch v.Kind {
	case vm.KindInt32:
		return ReturnSlot{Discriminant: vm.KindInt32, Payload: uint64(uint32(v.I32))}
	case vm.KindInt64:
		return ReturnSlot{Discriminant: vm.KindInt64, Payload: uint64(v.I64)}
	case vm.KindFloat32:
		return ReturnSlot{Discriminant: vm.KindFloat32, Payload: uint64(math.Float32bits(v.F32))}
	case vm.KindFloat64:
		return ReturnSlot{Discriminant: vm.KindFloat64, Payload: math.Float64bits(v.F64)}
	default:
		return ReturnSlot{Discriminant: v.Kind}
	}
}

// Decode recovers the vm.Value a ReturnSlot encodes.
func (r ReturnSlot) Decode() vm.Value {
	switch r.Discriminant {
	case vm.KindInt32:
		return vm.Int32Value(int32(uint32(r.Payload)))
	case vm.KindInt64:
		return vm.Int64Value(int64(r.Payload))
	case vm.KindFloat32:
		return vm.Float32Value(math.Float32frombits(uint32(r.Payload)))
	case vm.KindFloat64:
		return vm.Float64Value(math.Float64frombits(r.Payload))
	default:
		return vm.NullValue()
	}
}

// Run executes the compiled program with args already bound to locals 0..N
// in calling-convention order (the same convention internal/vm.executeMethod
// uses for its own args parameter), returning the decoded result.
func (p *Program) Run(args []vm.Value) (vm.Value, error) {
	slot, err := p.RunEncoded(args)
	if err != nil {
		return vm.Value{}, err
	}
	return slot.Decode(), nil
}

// RunEncoded is Run without the final Decode, for callers that want the raw
// calling-convention slot spec §4.E names.
func (p *Program) RunEncoded(args []vm.Value) (ReturnSlot, error) {
	locals := newLocalVariables(p.maxLocals)
	for i, a := range args {
		if err := locals.bind(i, a); err != nil {
			return ReturnSlot{}, err
		}
	}
	stack := &OperandStack{}

	for _, in := range p.insts {
		switch in.op {
		case opConst:
			stack.push(in.cnst)
		case opLoad:
			v, err := locals.get(in.local, in.kind)
			if err != nil {
				return ReturnSlot{}, err
			}
			stack.push(v)
		case opStore:
			if err := locals.set(in.local, stack.pop()); err != nil {
				return ReturnSlot{}, err
			}
		case opIncLocal:
			v, err := locals.get(in.local, vm.KindInt32)
			if err != nil {
				return ReturnSlot{}, err
			}
			if err := locals.set(in.local, vm.Int32Value(v.I32+in.inc)); err != nil {
				return ReturnSlot{}, err
			}
		case opAdd, opSub, opMul, opDiv, opRem:
			v2, v1 := stack.pop(), stack.pop()
			result, err := binary(in.op, in.kind, v1, v2)
			if err != nil {
				return ReturnSlot{}, err
			}
			stack.push(result)
		case opNeg:
			stack.push(negate(in.kind, stack.pop()))
		case opShl, opShr, opUshr, opAnd, opOr, opXor:
			v2, v1 := stack.pop(), stack.pop()
			stack.push(bitwise(in.op, in.kind, v1, v2))
		case opCmpG, opCmpL:
			v2, v1 := stack.pop(), stack.pop()
			stack.push(vm.Int32Value(compare(in.kind, v1, v2, in.op == opCmpG)))
		case opReturn:
			return encodeReturn(stack.pop()), nil
		}
	}
	return ReturnSlot{}, nil
}

// binary implements add/sub/mul/div/rem for one of {I,L,F,D}. Division and
// remainder insert the zero-check-and-throw prologue spec §9's "Division-by-zero
// in the JIT" design note requires — the original Cranelift lowering
// (instruction/integer.rs's idiv/irem, instruction/long.rs's ldiv/lrem)
// emits the raw sdiv/srem instruction with the check left as a TODO; this
// port does not carry that gap forward; it checks before dividing, same as
// internal/vm's interpreter does.
func binary(o op, kind vm.Kind, v1, v2 vm.Value) (vm.Value, error) {
	switch kind {
	case vm.KindInt32:
		if (o == opDiv || o == opRem) && v2.I32 == 0 {
			return vm.Value{}, vm.NewArithmeticException("/ by zero")
		}
		switch o {
		case opAdd:
			return vm.Int32Value(v1.I32 + v2.I32), nil
		case opSub:
			return vm.Int32Value(v1.I32 - v2.I32), nil
		case opMul:
			return vm.Int32Value(v1.I32 * v2.I32), nil
		case opDiv:
			return vm.Int32Value(v1.I32 / v2.I32), nil
		default:
			return vm.Int32Value(v1.I32 % v2.I32), nil
		}
	case vm.KindInt64:
		if (o == opDiv || o == opRem) && v2.I64 == 0 {
			return vm.Value{}, vm.NewArithmeticException("/ by zero")
		}
		switch o {
		case opAdd:
			return vm.Int64Value(v1.I64 + v2.I64), nil
		case opSub:
			return vm.Int64Value(v1.I64 - v2.I64), nil
		case opMul:
			return vm.Int64Value(v1.I64 * v2.I64), nil
		case opDiv:
			return vm.Int64Value(v1.I64 / v2.I64), nil
		default:
			return vm.Int64Value(v1.I64 % v2.I64), nil
		}
	case vm.KindFloat32:
		switch o {
		case opAdd:
			return vm.Float32Value(v1.F32 + v2.F32), nil
		case opSub:
			return vm.Float32Value(v1.F32 - v2.F32), nil
		case opMul:
			return vm.Float32Value(v1.F32 * v2.F32), nil
		case opDiv:
			return vm.Float32Value(v1.F32 / v2.F32), nil
		default:
			return vm.Float32Value(float32(math.Mod(float64(v1.F32), float64(v2.F32)))), nil
		}
	default: // KindFloat64
		switch o {
		case opAdd:
			return vm.Float64Value(v1.F64 + v2.F64), nil
		case opSub:
			return vm.Float64Value(v1.F64 - v2.F64), nil
		case opMul:
			return vm.Float64Value(v1.F64 * v2.F64), nil
		case opDiv:
			return vm.Float64Value(v1.F64 / v2.F64), nil
		default:
			return vm.Float64Value(math.Mod(v1.F64, v2.F64)), nil
		}
	}
}

func negate(kind vm.Kind, v vm.Value) vm.Value {
	switch kind {
	case vm.KindInt32:
		return vm.Int32Value(-v.I32)
	case vm.KindInt64:
		return vm.Int64Value(-v.I64)
	case vm.KindFloat32:
		return vm.Float32Value(-v.F32)
	default:
		return vm.Float64Value(-v.F64)
	}
}

// bitwise implements shl/shr/ushr/and/or/xor for int/long, masking shift
// amounts to 5 bits (int) or 6 bits (long) per JVMS §6.5.ishl/lshl, the same
// mask the original's ishl/lshl apply with a band against 0x1f/0x3f before
// the shift.
func bitwise(o op, kind vm.Kind, v1, v2 vm.Value) vm.Value {
	if kind == vm.KindInt32 {
		shift := uint(v2.I32) & 0x1F
		switch o {
		case opShl:
			return vm.Int32Value(v1.I32 << shift)
		case opShr:
			return vm.Int32Value(v1.I32 >> shift)
		case opUshr:
			return vm.Int32Value(int32(uint32(v1.I32) >> shift))
		case opAnd:
			return vm.Int32Value(v1.I32 & v2.I32)
		case opOr:
			return vm.Int32Value(v1.I32 | v2.I32)
		default:
			return vm.Int32Value(v1.I32 ^ v2.I32)
		}
	}
	shift := uint(v2.I64) & 0x3F
	switch o {
	case opShl:
		return vm.Int64Value(v1.I64 << shift)
	case opShr:
		return vm.Int64Value(v1.I64 >> shift)
	case opUshr:
		return vm.Int64Value(int64(uint64(v1.I64) >> shift))
	case opAnd:
		return vm.Int64Value(v1.I64 & v2.I64)
	case opOr:
		return vm.Int64Value(v1.I64 | v2.I64)
	default:
		return vm.Int64Value(v1.I64 ^ v2.I64)
	}
}

// compare implements lcmp/fcmpl/fcmpg/dcmpl/dcmpg's {-1,0,1} result as the
// five-block pattern (equal / else / greater / less / merge) spec §4.E
// names collapses to, since this IR has no basic blocks of its own to
// branch between — the four-way branch the original builds with
// create_block/brif/jump (instruction/float.rs's fcmpl/fcmpg) has exactly
// one control-flow shape regardless of backend, so a plain if/else chain
// reproduces the same four outcomes (equal, greater, less, and NaN, which
// only float/double can reach) without needing basic blocks to express it.
// Unlike the original's fcmpl/fcmpg (both carry a "TODO: Handle
// f32::is_nan" and never branch on it), this port does handle NaN, per
// spec's JVMS-exact comparison semantics: NaN compares greater for *g,
// lesser for *l.
func compare(kind vm.Kind, v1, v2 vm.Value, isG bool) int32 {
	switch kind {
	case vm.KindInt64:
		switch {
		case v1.I64 == v2.I64:
			return 0
		case v1.I64 > v2.I64:
			return 1
		default:
			return -1
		}
	case vm.KindFloat32:
		return fcmp(float64(v1.F32), float64(v2.F32), isG)
	default:
		return fcmp(v1.F64, v2.F64, isG)
	}
}

func fcmp(a, b float64, isG bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if isG {
			return 1
		}
		return -1
	}
	switch {
	case a == b:
		return 0
	case a > b:
		return 1
	default:
		return -1
	}
}
