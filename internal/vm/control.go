package vm

import "github.com/ristrettovm/ristretto/internal/classfile"

// branchTo applies a computed target relative to the instruction's own PC
// (fromPC, the opcode's own offset, not frame.PC after reading operands) and
// polls the safepoint on any backward branch — a loop body is exactly the
// place spec §5 requires a safepoint besides method prologue/allocation/
// blocking-intrinsic, since a tight loop with no calls would otherwise never
// let the collector stop this thread.
func (vm *VM) branchTo(t *Thread, f *Frame, fromPC, target int) {
	if target <= fromPC {
		t.Safepoint()
	}
	f.PC = target
}

func (vm *VM) branchUnary(t *Thread, f *Frame, opcode uint8) error {
	fromPC := f.PC - 1
	offset := int(f.ReadI16())
	v, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	taken := false
	switch opcode {
	case classfile.OpIfeq:
		taken = v.I32 == 0
	case classfile.OpIfne:
		taken = v.I32 != 0
	case classfile.OpIflt:
		taken = v.I32 < 0
	case classfile.OpIfge:
		taken = v.I32 >= 0
	case classfile.OpIfgt:
		taken = v.I32 > 0
	case classfile.OpIfle:
		taken = v.I32 <= 0
	}
	if taken {
		vm.branchTo(t, f, fromPC, fromPC+offset)
	}
	return nil
}

func (vm *VM) branchBinaryInt(t *Thread, f *Frame, opcode uint8) error {
	fromPC := f.PC - 1
	offset := int(f.ReadI16())
	b, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	a, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	taken := false
	switch opcode {
	case classfile.OpIfIcmpeq:
		taken = a.I32 == b.I32
	case classfile.OpIfIcmpne:
		taken = a.I32 != b.I32
	case classfile.OpIfIcmplt:
		taken = a.I32 < b.I32
	case classfile.OpIfIcmpge:
		taken = a.I32 >= b.I32
	case classfile.OpIfIcmpgt:
		taken = a.I32 > b.I32
	case classfile.OpIfIcmple:
		taken = a.I32 <= b.I32
	}
	if taken {
		vm.branchTo(t, f, fromPC, fromPC+offset)
	}
	return nil
}

func (vm *VM) branchBinaryRef(t *Thread, f *Frame, opcode uint8) error {
	fromPC := f.PC - 1
	offset := int(f.ReadI16())
	b, err := f.PopRef()
	if err != nil {
		return err
	}
	a, err := f.PopRef()
	if err != nil {
		return err
	}
	same := refEquals(a, b)
	taken := same
	if opcode == classfile.OpIfAcmpne {
		taken = !same
	}
	if taken {
		vm.branchTo(t, f, fromPC, fromPC+offset)
	}
	return nil
}

func (vm *VM) branchNull(t *Thread, f *Frame, opcode uint8) error {
	fromPC := f.PC - 1
	offset := int(f.ReadI16())
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	isNull := v.IsNullRef()
	taken := isNull
	if opcode == classfile.OpIfnonnull {
		taken = !isNull
	}
	if taken {
		vm.branchTo(t, f, fromPC, fromPC+offset)
	}
	return nil
}

// refEquals implements if_acmpeq/if_acmpne's reference identity comparison
// (not Object.equals): two null values are equal, a null and a non-null
// reference are never equal, and two non-null handles are equal only if
// they name the same collector cell.
func refEquals(a, b Value) bool {
	aNull, bNull := a.IsNullRef(), b.IsNullRef()
	if aNull || bNull {
		return aNull && bNull
	}
	return a.Ref == b.Ref
}

// executeTableswitch decodes JVMS §6.5.tableswitch: 0-3 bytes of padding to
// align to a 4-byte boundary, a default offset, low/high bounds, then
// (high-low+1) jump offsets.
func (vm *VM) executeTableswitch(t *Thread, f *Frame) error {
	fromPC := f.PC - 1
	f.PC += (4 - (f.PC % 4)) % 4 // align to next 4-byte boundary
	defaultOffset := int(f.ReadI32())
	low := f.ReadI32()
	high := f.ReadI32()

	v, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	if v.I32 < low || v.I32 > high {
		vm.branchTo(t, f, fromPC, fromPC+defaultOffset)
		return nil
	}
	index := int(v.I32 - low)
	f.PC += index * 4
	offset := int(f.ReadI32())
	vm.branchTo(t, f, fromPC, fromPC+offset)
	return nil
}

// executeLookupswitch decodes JVMS §6.5.lookupswitch: padding, a default
// offset, a pair count, then that many (match, offset) pairs in ascending
// match order.
func (vm *VM) executeLookupswitch(t *Thread, f *Frame) error {
	fromPC := f.PC - 1
	f.PC += (4 - (f.PC % 4)) % 4
	defaultOffset := int(f.ReadI32())
	npairs := int(f.ReadI32())

	v, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	for i := 0; i < npairs; i++ {
		match := f.ReadI32()
		offset := int(f.ReadI32())
		if match == v.I32 {
			vm.branchTo(t, f, fromPC, fromPC+offset)
			return nil
		}
	}
	vm.branchTo(t, f, fromPC, fromPC+defaultOffset)
	return nil
}

// executeLdc resolves a loadable constant pool entry onto the stack (JVMS
// §6.5.ldc/ldc_w/ldc2_w). Class/MethodType/MethodHandle/Dynamic constants
// are out of scope (no reflection, no invokedynamic — spec Non-goals), so
// only the primitive/String cases are handled.
func (vm *VM) executeLdc(t *Thread, f *Frame, index uint16) error {
	entry, err := f.Class.ConstantPool.Get(index)
	if err != nil {
		return err
	}
	switch c := entry.(type) {
	case classfile.IntegerEntry:
		return f.Push(Int32Value(c.Value))
	case classfile.FloatEntry:
		return f.Push(Float32Value(c.Value))
	case classfile.LongEntry:
		return f.Push(Int64Value(c.Value))
	case classfile.DoubleEntry:
		return f.Push(Float64Value(c.Value))
	case classfile.StringEntry:
		s, err := f.Class.ConstantPool.Utf8(c.StringIndex)
		if err != nil {
			return err
		}
		v, err := t.NewString(s)
		if err != nil {
			return err
		}
		return f.Push(v)
	default:
		return newThrowable("java/lang/InternalError", "ldc: unsupported constant pool entry at index %d", index)
	}
}
