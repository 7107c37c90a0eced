package vm

import (
	"math"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// step executes one instruction at frame.PC (already advanced past opcode),
// returning (result, true, nil) on a return instruction, (zero, false, nil)
// to continue, or a non-nil error (an interpreter bug as a plain error, or a
// *Throwable for anything JVMS defines as throwing). Grounded on the
// teacher's executeInstruction big-switch shape (pkg/vm/instructions.go),
// generalized from the teacher's int/ref/null value model to the full
// {I,L,F,D,ref} matrix spec §4.E requires.
func (vm *VM) step(t *Thread, f *Frame, opcode uint8) (Value, bool, error) {
	switch opcode {
	case classfile.OpNop:
		return Value{}, false, nil

	case classfile.OpAconstNull:
		return Value{}, false, f.Push(NullValue())

	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2, classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
		return Value{}, false, f.Push(Int32Value(int32(opcode) - int32(classfile.OpIconst0)))

	case classfile.OpLconst0, classfile.OpLconst1:
		return Value{}, false, f.Push(Int64Value(int64(opcode) - int64(classfile.OpLconst0)))

	case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2:
		return Value{}, false, f.Push(Float32Value(float32(opcode) - float32(classfile.OpFconst0)))

	case classfile.OpDconst0, classfile.OpDconst1:
		return Value{}, false, f.Push(Float64Value(float64(opcode) - float64(classfile.OpDconst0)))

	case classfile.OpBipush:
		return Value{}, false, f.Push(Int32Value(int32(f.ReadI8())))

	case classfile.OpSipush:
		return Value{}, false, f.Push(Int32Value(int32(f.ReadI16())))

	case classfile.OpLdc:
		return Value{}, false, vm.executeLdc(t, f, uint16(f.ReadU8()))
	case classfile.OpLdcW, classfile.OpLdc2W:
		return Value{}, false, vm.executeLdc(t, f, f.ReadU16())

	case classfile.OpIload:
		return Value{}, false, loadLocal(f, int(f.ReadU8()), KindInt32)
	case classfile.OpLload:
		return Value{}, false, loadLocal(f, int(f.ReadU8()), KindInt64)
	case classfile.OpFload:
		return Value{}, false, loadLocal(f, int(f.ReadU8()), KindFloat32)
	case classfile.OpDload:
		return Value{}, false, loadLocal(f, int(f.ReadU8()), KindFloat64)
	case classfile.OpAload:
		return Value{}, false, loadLocalRef(f, int(f.ReadU8()))

	case classfile.OpIload0, classfile.OpIload1, classfile.OpIload2, classfile.OpIload3:
		return Value{}, false, loadLocal(f, int(opcode-classfile.OpIload0), KindInt32)
	case classfile.OpLload0, classfile.OpLload1, classfile.OpLload2, classfile.OpLload3:
		return Value{}, false, loadLocal(f, int(opcode-classfile.OpLload0), KindInt64)
	case classfile.OpFload0, classfile.OpFload1, classfile.OpFload2, classfile.OpFload3:
		return Value{}, false, loadLocal(f, int(opcode-classfile.OpFload0), KindFloat32)
	case classfile.OpDload0, classfile.OpDload1, classfile.OpDload2, classfile.OpDload3:
		return Value{}, false, loadLocal(f, int(opcode-classfile.OpDload0), KindFloat64)
	case classfile.OpAload0, classfile.OpAload1, classfile.OpAload2, classfile.OpAload3:
		return Value{}, false, loadLocalRef(f, int(opcode-classfile.OpAload0))

	case classfile.OpIstore:
		return Value{}, false, storeLocal(f, int(f.ReadU8()), KindInt32)
	case classfile.OpLstore:
		return Value{}, false, storeLocal(f, int(f.ReadU8()), KindInt64)
	case classfile.OpFstore:
		return Value{}, false, storeLocal(f, int(f.ReadU8()), KindFloat32)
	case classfile.OpDstore:
		return Value{}, false, storeLocal(f, int(f.ReadU8()), KindFloat64)
	case classfile.OpAstore:
		return Value{}, false, storeLocalRef(f, int(f.ReadU8()))

	case classfile.OpIstore0, classfile.OpIstore1, classfile.OpIstore2, classfile.OpIstore3:
		return Value{}, false, storeLocal(f, int(opcode-classfile.OpIstore0), KindInt32)
	case classfile.OpLstore0, classfile.OpLstore1, classfile.OpLstore2, classfile.OpLstore3:
		return Value{}, false, storeLocal(f, int(opcode-classfile.OpLstore0), KindInt64)
	case classfile.OpFstore0, classfile.OpFstore1, classfile.OpFstore2, classfile.OpFstore3:
		return Value{}, false, storeLocal(f, int(opcode-classfile.OpFstore0), KindFloat32)
	case classfile.OpDstore0, classfile.OpDstore1, classfile.OpDstore2, classfile.OpDstore3:
		return Value{}, false, storeLocal(f, int(opcode-classfile.OpDstore0), KindFloat64)
	case classfile.OpAstore0, classfile.OpAstore1, classfile.OpAstore2, classfile.OpAstore3:
		return Value{}, false, storeLocalRef(f, int(opcode-classfile.OpAstore0))

	case classfile.OpPop:
		return Value{}, false, applyPop(f)
	case classfile.OpPop2:
		return Value{}, false, applyPop2(f)
	case classfile.OpDup:
		return Value{}, false, applyDup(f)
	case classfile.OpDupX1:
		return Value{}, false, applyDupX1(f)
	case classfile.OpDupX2:
		return Value{}, false, applyDupX2(f)
	case classfile.OpDup2:
		return Value{}, false, applyDup2(f)
	case classfile.OpDup2X1:
		return Value{}, false, applyDup2X1(f)
	case classfile.OpDup2X2:
		return Value{}, false, applyDup2X2(f)
	case classfile.OpSwap:
		return Value{}, false, applySwap(f)

	case classfile.OpIadd, classfile.OpIsub, classfile.OpImul, classfile.OpIdiv, classfile.OpIrem,
		classfile.OpIand, classfile.OpIor, classfile.OpIxor, classfile.OpIshl, classfile.OpIshr, classfile.OpIushr:
		return Value{}, false, binaryInt32(f, opcode)
	case classfile.OpLadd, classfile.OpLsub, classfile.OpLmul, classfile.OpLdiv, classfile.OpLrem,
		classfile.OpLand, classfile.OpLor, classfile.OpLxor, classfile.OpLshl, classfile.OpLshr, classfile.OpLushr:
		return Value{}, false, binaryInt64(f, opcode)
	case classfile.OpFadd, classfile.OpFsub, classfile.OpFmul, classfile.OpFdiv, classfile.OpFrem:
		return Value{}, false, binaryFloat32(f, opcode)
	case classfile.OpDadd, classfile.OpDsub, classfile.OpDmul, classfile.OpDdiv, classfile.OpDrem:
		return Value{}, false, binaryFloat64(f, opcode)

	case classfile.OpIneg:
		return Value{}, false, unaryInt32(f, func(v int32) int32 { return -v })
	case classfile.OpLneg:
		return Value{}, false, unaryInt64(f, func(v int64) int64 { return -v })
	case classfile.OpFneg:
		return Value{}, false, unaryFloat32(f, func(v float32) float32 { return -v })
	case classfile.OpDneg:
		return Value{}, false, unaryFloat64(f, func(v float64) float64 { return -v })

	case classfile.OpIinc:
		index := int(f.ReadU8())
		delta := int32(f.ReadI8())
		v, err := f.GetLocal(index)
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.SetLocal(index, Int32Value(v.I32+delta))

	case classfile.OpI2l:
		return Value{}, false, convert(f, KindInt32, KindInt64)
	case classfile.OpI2f:
		return Value{}, false, convert(f, KindInt32, KindFloat32)
	case classfile.OpI2d:
		return Value{}, false, convert(f, KindInt32, KindFloat64)
	case classfile.OpL2i:
		return Value{}, false, convert(f, KindInt64, KindInt32)
	case classfile.OpL2f:
		return Value{}, false, convert(f, KindInt64, KindFloat32)
	case classfile.OpL2d:
		return Value{}, false, convert(f, KindInt64, KindFloat64)
	case classfile.OpF2i:
		return Value{}, false, convert(f, KindFloat32, KindInt32)
	case classfile.OpF2l:
		return Value{}, false, convert(f, KindFloat32, KindInt64)
	case classfile.OpF2d:
		return Value{}, false, convert(f, KindFloat32, KindFloat64)
	case classfile.OpD2i:
		return Value{}, false, convert(f, KindFloat64, KindInt32)
	case classfile.OpD2l:
		return Value{}, false, convert(f, KindFloat64, KindInt64)
	case classfile.OpD2f:
		return Value{}, false, convert(f, KindFloat64, KindFloat32)
	case classfile.OpI2b:
		return Value{}, false, truncateInt32(f, func(v int32) int32 { return int32(int8(v)) })
	case classfile.OpI2c:
		return Value{}, false, truncateInt32(f, func(v int32) int32 { return int32(uint16(v)) })
	case classfile.OpI2s:
		return Value{}, false, truncateInt32(f, func(v int32) int32 { return int32(int16(v)) })

	case classfile.OpLcmp:
		b, err := f.PopExpect(KindInt64)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.PopExpect(KindInt64)
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.Push(Int32Value(cmp64(a.I64, b.I64)))

	case classfile.OpFcmpl, classfile.OpFcmpg:
		b, err := f.PopExpect(KindFloat32)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.PopExpect(KindFloat32)
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.Push(Int32Value(fcmp(float64(a.F32), float64(b.F32), opcode == classfile.OpFcmpg)))

	case classfile.OpDcmpl, classfile.OpDcmpg:
		b, err := f.PopExpect(KindFloat64)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.PopExpect(KindFloat64)
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.Push(Int32Value(fcmp(a.F64, b.F64, opcode == classfile.OpDcmpg)))

	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle:
		return Value{}, false, vm.branchUnary(t, f, opcode)
	case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt, classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple:
		return Value{}, false, vm.branchBinaryInt(t, f, opcode)
	case classfile.OpIfAcmpeq, classfile.OpIfAcmpne:
		return Value{}, false, vm.branchBinaryRef(t, f, opcode)
	case classfile.OpIfnull, classfile.OpIfnonnull:
		return Value{}, false, vm.branchNull(t, f, opcode)

	case classfile.OpGoto:
		target := int(f.ReadI16())
		pc := f.PC - 3
		vm.branchTo(t, f, pc, pc+target)
		return Value{}, false, nil
	case classfile.OpGotoW:
		target := int(f.ReadI32())
		pc := f.PC - 5
		vm.branchTo(t, f, pc, pc+target)
		return Value{}, false, nil

	case classfile.OpTableswitch:
		return Value{}, false, vm.executeTableswitch(t, f)
	case classfile.OpLookupswitch:
		return Value{}, false, vm.executeLookupswitch(t, f)

	case classfile.OpIreturn:
		v, err := f.PopExpect(KindInt32)
		return v, true, err
	case classfile.OpLreturn:
		v, err := f.PopExpect(KindInt64)
		return v, true, err
	case classfile.OpFreturn:
		v, err := f.PopExpect(KindFloat32)
		return v, true, err
	case classfile.OpDreturn:
		v, err := f.PopExpect(KindFloat64)
		return v, true, err
	case classfile.OpAreturn:
		v, err := f.PopRef()
		return v, true, err
	case classfile.OpReturn:
		return Value{}, true, nil

	case classfile.OpGetstatic:
		return Value{}, false, vm.executeGetstatic(t, f)
	case classfile.OpPutstatic:
		return Value{}, false, vm.executePutstatic(t, f)
	case classfile.OpGetfield:
		return Value{}, false, vm.executeGetfield(f)
	case classfile.OpPutfield:
		return Value{}, false, vm.executePutfield(f)

	case classfile.OpInvokevirtual:
		return vm.executeInvokevirtual(t, f)
	case classfile.OpInvokespecial:
		return vm.executeInvokespecial(t, f)
	case classfile.OpInvokestatic:
		return vm.executeInvokestatic(t, f)
	case classfile.OpInvokeinterface:
		return vm.executeInvokeinterface(t, f)

	case classfile.OpNew:
		return Value{}, false, vm.executeNew(t, f)
	case classfile.OpNewarray:
		return Value{}, false, vm.executeNewarray(t, f)
	case classfile.OpAnewarray:
		return Value{}, false, vm.executeAnewarray(t, f)
	case classfile.OpArraylength:
		return Value{}, false, vm.executeArraylength(f)
	case classfile.OpMultianewarray:
		return Value{}, false, vm.executeMultianewarray(t, f)

	case classfile.OpIaload, classfile.OpLaload, classfile.OpFaload, classfile.OpDaload, classfile.OpAaload, classfile.OpBaload, classfile.OpCaload, classfile.OpSaload:
		return Value{}, false, vm.executeArrayLoad(f, opcode)
	case classfile.OpIastore, classfile.OpLastore, classfile.OpFastore, classfile.OpDastore, classfile.OpAastore, classfile.OpBastore, classfile.OpCastore, classfile.OpSastore:
		return Value{}, false, vm.executeArrayStore(f, opcode)

	case classfile.OpAthrow:
		return Value{}, false, vm.executeAthrow(f)

	case classfile.OpCheckcast:
		return Value{}, false, vm.executeCheckcast(f)
	case classfile.OpInstanceof:
		return Value{}, false, vm.executeInstanceof(f)

	case classfile.OpMonitorenter:
		return Value{}, false, vm.executeMonitorenter(t, f)
	case classfile.OpMonitorexit:
		return Value{}, false, vm.executeMonitorexit(t, f)

	default:
		return Value{}, false, newThrowable("java/lang/InternalError", "unimplemented opcode 0x%02X at PC=%d", opcode, f.PC-1)
	}
}

func loadLocal(f *Frame, index int, want Kind) error {
	v, err := f.GetLocal(index)
	if err != nil {
		return err
	}
	if v.Kind != want {
		return &TypeMismatchError{Expected: want, Actual: v.Kind}
	}
	return f.Push(v)
}

func loadLocalRef(f *Frame, index int) error {
	v, err := f.GetLocal(index)
	if err != nil {
		return err
	}
	if v.Kind != KindRef && v.Kind != KindNull {
		return &TypeMismatchError{Expected: KindRef, Actual: v.Kind}
	}
	return f.Push(v)
}

func storeLocal(f *Frame, index int, want Kind) error {
	v, err := f.PopExpect(want)
	if err != nil {
		return err
	}
	return f.SetLocal(index, v)
}

func storeLocalRef(f *Frame, index int) error {
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	return f.SetLocal(index, v)
}

func convert(f *Frame, from, to Kind) error {
	v, err := f.PopExpect(from)
	if err != nil {
		return err
	}
	var out Value
	switch from {
	case KindInt32:
		switch to {
		case KindInt64:
			out = Int64Value(int64(v.I32))
		case KindFloat32:
			out = Float32Value(float32(v.I32))
		case KindFloat64:
			out = Float64Value(float64(v.I32))
		}
	case KindInt64:
		switch to {
		case KindInt32:
			out = Int32Value(int32(v.I64))
		case KindFloat32:
			out = Float32Value(float32(v.I64))
		case KindFloat64:
			out = Float64Value(float64(v.I64))
		}
	case KindFloat32:
		switch to {
		case KindInt32:
			out = Int32Value(float32ToInt32(v.F32))
		case KindInt64:
			out = Int64Value(float32ToInt64(v.F32))
		case KindFloat64:
			out = Float64Value(float64(v.F32))
		}
	case KindFloat64:
		switch to {
		case KindInt32:
			out = Int32Value(float64ToInt32(v.F64))
		case KindInt64:
			out = Int64Value(float64ToInt64(v.F64))
		case KindFloat32:
			out = Float32Value(float32(v.F64))
		}
	}
	return f.Push(out)
}

func truncateInt32(f *Frame, fn func(int32) int32) error {
	v, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	return f.Push(Int32Value(fn(v.I32)))
}

// float32ToInt32/float32ToInt64/float64ToInt32/float64ToInt64 implement
// JVMS §2.8.3's narrowing conversion for NaN (-> 0) and out-of-range values
// (-> MinInt/MaxInt saturating, by sign), rather than Go's own overflow
// behavior for float-to-int conversions (which is undefined for
// out-of-range values).
func float64ToInt32(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func float64ToInt64(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}

func float32ToInt32(f float32) int32 { return float64ToInt32(float64(f)) }
func float32ToInt64(f float32) int64 { return float64ToInt64(float64(f)) }

// cmp64 implements lcmp: -1/0/1, no NaN case for integers.
func cmp64(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg and dcmpl/dcmpg: NaN compares unordered, and
// the g/l suffix picks which sentinel (1 or -1) an unordered comparison
// produces (JVMS §6.5.fcmp<op>) — the one comparison-family detail spec §9
// calls out as easy to get backwards.
func fcmp(a, b float64, nanIsGreater bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if nanIsGreater {
			return 1
		}
		return -1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
