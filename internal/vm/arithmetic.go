package vm

import (
	"math"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// binaryInt32 implements the iadd/isub/.../iushr family: two's-complement
// wraparound on add/sub/mul (Go's own int32 arithmetic already wraps this
// way), truncated-toward-zero division/remainder with ArithmeticException
// on divide-by-zero (JVMS §6.5.idiv/irem), and shift amounts masked to the
// low 5 bits (JVMS §6.5.ishl: "only the low order 5 bits ... are used").
func binaryInt32(f *Frame, opcode uint8) error {
	b, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	a, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	var r int32
	switch opcode {
	case classfile.OpIadd:
		r = a.I32 + b.I32
	case classfile.OpIsub:
		r = a.I32 - b.I32
	case classfile.OpImul:
		r = a.I32 * b.I32
	case classfile.OpIdiv:
		if b.I32 == 0 {
			return NewArithmeticException("/ by zero")
		}
		r = a.I32 / b.I32
	case classfile.OpIrem:
		if b.I32 == 0 {
			return NewArithmeticException("/ by zero")
		}
		r = a.I32 % b.I32
	case classfile.OpIand:
		r = a.I32 & b.I32
	case classfile.OpIor:
		r = a.I32 | b.I32
	case classfile.OpIxor:
		r = a.I32 ^ b.I32
	case classfile.OpIshl:
		r = a.I32 << (uint32(b.I32) & 0x1F)
	case classfile.OpIshr:
		r = a.I32 >> (uint32(b.I32) & 0x1F)
	case classfile.OpIushr:
		r = int32(uint32(a.I32) >> (uint32(b.I32) & 0x1F))
	}
	return f.Push(Int32Value(r))
}

// binaryInt64 is binaryInt32's category-2 counterpart. Shift amounts mask to
// the low 6 bits per JVMS §6.5.lshl (the shift *count* itself is still an
// int32, per the JVM spec — only the value being shifted is a long).
func binaryInt64(f *Frame, opcode uint8) error {
	switch opcode {
	case classfile.OpLshl, classfile.OpLshr, classfile.OpLushr:
		shift, err := f.PopExpect(KindInt32)
		if err != nil {
			return err
		}
		a, err := f.PopExpect(KindInt64)
		if err != nil {
			return err
		}
		n := uint64(shift.I32) & 0x3F
		var r int64
		switch opcode {
		case classfile.OpLshl:
			r = a.I64 << n
		case classfile.OpLshr:
			r = a.I64 >> n
		case classfile.OpLushr:
			r = int64(uint64(a.I64) >> n)
		}
		return f.Push(Int64Value(r))
	}

	b, err := f.PopExpect(KindInt64)
	if err != nil {
		return err
	}
	a, err := f.PopExpect(KindInt64)
	if err != nil {
		return err
	}
	var r int64
	switch opcode {
	case classfile.OpLadd:
		r = a.I64 + b.I64
	case classfile.OpLsub:
		r = a.I64 - b.I64
	case classfile.OpLmul:
		r = a.I64 * b.I64
	case classfile.OpLdiv:
		if b.I64 == 0 {
			return NewArithmeticException("/ by zero")
		}
		r = a.I64 / b.I64
	case classfile.OpLrem:
		if b.I64 == 0 {
			return NewArithmeticException("/ by zero")
		}
		r = a.I64 % b.I64
	case classfile.OpLand:
		r = a.I64 & b.I64
	case classfile.OpLor:
		r = a.I64 | b.I64
	case classfile.OpLxor:
		r = a.I64 ^ b.I64
	}
	return f.Push(Int64Value(r))
}

// binaryFloat32/binaryFloat64 follow IEEE 754 throughout (JVMS §6.5.fadd
// etc.: "Java virtual machine ... uses IEEE 754 arithmetic"), including
// division by zero producing +-Inf/NaN rather than ArithmeticException —
// unlike the integer families, floating point has no exceptional case here.
func binaryFloat32(f *Frame, opcode uint8) error {
	b, err := f.PopExpect(KindFloat32)
	if err != nil {
		return err
	}
	a, err := f.PopExpect(KindFloat32)
	if err != nil {
		return err
	}
	var r float32
	switch opcode {
	case classfile.OpFadd:
		r = a.F32 + b.F32
	case classfile.OpFsub:
		r = a.F32 - b.F32
	case classfile.OpFmul:
		r = a.F32 * b.F32
	case classfile.OpFdiv:
		r = a.F32 / b.F32
	case classfile.OpFrem:
		r = float32(math.Mod(float64(a.F32), float64(b.F32)))
	}
	return f.Push(Float32Value(r))
}

func binaryFloat64(f *Frame, opcode uint8) error {
	b, err := f.PopExpect(KindFloat64)
	if err != nil {
		return err
	}
	a, err := f.PopExpect(KindFloat64)
	if err != nil {
		return err
	}
	var r float64
	switch opcode {
	case classfile.OpDadd:
		r = a.F64 + b.F64
	case classfile.OpDsub:
		r = a.F64 - b.F64
	case classfile.OpDmul:
		r = a.F64 * b.F64
	case classfile.OpDdiv:
		r = a.F64 / b.F64
	case classfile.OpDrem:
		r = math.Mod(a.F64, b.F64)
	}
	return f.Push(Float64Value(r))
}

func unaryInt32(f *Frame, fn func(int32) int32) error {
	v, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	return f.Push(Int32Value(fn(v.I32)))
}

func unaryInt64(f *Frame, fn func(int64) int64) error {
	v, err := f.PopExpect(KindInt64)
	if err != nil {
		return err
	}
	return f.Push(Int64Value(fn(v.I64)))
}

func unaryFloat32(f *Frame, fn func(float32) float32) error {
	v, err := f.PopExpect(KindFloat32)
	if err != nil {
		return err
	}
	return f.Push(Float32Value(fn(v.F32)))
}

func unaryFloat64(f *Frame, fn func(float64) float64) error {
	v, err := f.PopExpect(KindFloat64)
	if err != nil {
		return err
	}
	return f.Push(Float64Value(fn(v.F64)))
}
