package vm

import "github.com/ristrettovm/ristretto/internal/classfile"

// newarrayDescriptor maps JVMS §6.5.newarray's atype byte to the field
// descriptor letter NewArray expects.
func newarrayDescriptor(atype uint8) (string, error) {
	switch atype {
	case classfile.ATBoolean:
		return "Z", nil
	case classfile.ATChar:
		return "C", nil
	case classfile.ATFloat:
		return "F", nil
	case classfile.ATDouble:
		return "D", nil
	case classfile.ATByte:
		return "B", nil
	case classfile.ATShort:
		return "S", nil
	case classfile.ATInt:
		return "I", nil
	case classfile.ATLong:
		return "J", nil
	default:
		return "", newThrowable("java/lang/InternalError", "newarray: unknown atype %d", atype)
	}
}

func (vm *VM) executeNewarray(t *Thread, f *Frame) error {
	atype := f.ReadU8()
	desc, err := newarrayDescriptor(atype)
	if err != nil {
		return err
	}
	count, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	v, err := t.NewArray(desc, int(count.I32))
	if err != nil {
		return err
	}
	return f.Push(v)
}

func (vm *VM) executeAnewarray(t *Thread, f *Frame) error {
	index := f.ReadU16()
	className, err := f.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	count, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	v, err := t.NewArray("L"+className+";", int(count.I32))
	if err != nil {
		return err
	}
	return f.Push(v)
}

// executeMultianewarray handles multianewarray by nesting anewarray-style
// allocations dimension by dimension (JVMS §6.5.multianewarray); only the
// outermost dimension's count is guaranteed meaningful per the spec (inner
// dimensions may be left unallocated when their count is 0), which this
// builds top-down and recurses for.
func (vm *VM) executeMultianewarray(t *Thread, f *Frame) error {
	index := f.ReadU16()
	arrayClassName, err := f.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	dimensions := int(f.ReadU8())
	counts := make([]int32, dimensions)
	for i := dimensions - 1; i >= 0; i-- {
		c, err := f.PopExpect(KindInt32)
		if err != nil {
			return err
		}
		counts[i] = c.I32
	}
	elemDesc := arrayClassName
	for i := 0; i < dimensions; i++ {
		if len(elemDesc) > 0 && elemDesc[0] == '[' {
			elemDesc = elemDesc[1:]
		}
	}
	v, err := vm.buildMultiarray(t, elemDesc, counts)
	if err != nil {
		return err
	}
	return f.Push(v)
}

func (vm *VM) buildMultiarray(t *Thread, elemDesc string, counts []int32) (Value, error) {
	if counts[0] < 0 {
		return Value{}, NewNegativeArraySizeException(counts[0])
	}
	n := int(counts[0])
	if len(counts) == 1 {
		return t.NewArray(elemDesc, n)
	}
	inner := "[" + elemDesc
	for i := 2; i < len(counts); i++ {
		inner = "[" + inner
	}
	arrVal, err := t.NewArray(inner, n)
	if err != nil {
		return Value{}, err
	}
	arr := arrVal.Ref.Get().(*JArray)
	for i := 0; i < n; i++ {
		child, err := vm.buildMultiarray(t, elemDesc, counts[1:])
		if err != nil {
			return Value{}, err
		}
		arr.Elements[i] = child
	}
	return arrVal, nil
}

func (vm *VM) executeArraylength(f *Frame) error {
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	if v.IsNullRef() {
		return NewNullPointerException()
	}
	arr, ok := v.Ref.Get().(*JArray)
	if !ok {
		return newThrowable("java/lang/InternalError", "arraylength: receiver is not an array")
	}
	return f.Push(Int32Value(int32(len(arr.Elements))))
}

func (vm *VM) arrayAndIndex(f *Frame) (*JArray, int32, error) {
	index, err := f.PopExpect(KindInt32)
	if err != nil {
		return nil, 0, err
	}
	ref, err := f.PopRef()
	if err != nil {
		return nil, 0, err
	}
	if ref.IsNullRef() {
		return nil, 0, NewNullPointerException()
	}
	arr, ok := ref.Ref.Get().(*JArray)
	if !ok {
		return nil, 0, newThrowable("java/lang/InternalError", "array op: receiver is not an array")
	}
	if index.I32 < 0 || int(index.I32) >= len(arr.Elements) {
		return nil, 0, NewArrayIndexOutOfBoundsException(int(index.I32), len(arr.Elements))
	}
	return arr, index.I32, nil
}

func (vm *VM) executeArrayLoad(f *Frame, opcode uint8) error {
	index, err := f.PopExpect(KindInt32)
	if err != nil {
		return err
	}
	ref, err := f.PopRef()
	if err != nil {
		return err
	}
	if ref.IsNullRef() {
		return NewNullPointerException()
	}
	arr, ok := ref.Ref.Get().(*JArray)
	if !ok {
		return newThrowable("java/lang/InternalError", "array load: receiver is not an array")
	}
	if index.I32 < 0 || int(index.I32) >= len(arr.Elements) {
		return NewArrayIndexOutOfBoundsException(int(index.I32), len(arr.Elements))
	}
	v := arr.Elements[index.I32]
	switch opcode {
	case classfile.OpBaload, classfile.OpCaload, classfile.OpSaload:
		// boolean/byte, char, short arrays all store their promoted int32
		// form already (spec §4.E keeps one representation per category);
		// no further narrowing is needed on load.
	}
	return f.Push(v)
}

func (vm *VM) executeArrayStore(f *Frame, opcode uint8) error {
	var value Value
	var err error
	switch opcode {
	case classfile.OpIastore, classfile.OpBastore, classfile.OpCastore, classfile.OpSastore:
		value, err = f.PopExpect(KindInt32)
	case classfile.OpLastore:
		value, err = f.PopExpect(KindInt64)
	case classfile.OpFastore:
		value, err = f.PopExpect(KindFloat32)
	case classfile.OpDastore:
		value, err = f.PopExpect(KindFloat64)
	case classfile.OpAastore:
		value, err = f.PopRef()
	}
	if err != nil {
		return err
	}
	arr, index, err := vm.arrayAndIndex(f)
	if err != nil {
		return err
	}
	if opcode == classfile.OpAastore && !value.IsNullRef() {
		elemClass := arr.ElemDescriptor
		if len(elemClass) > 2 && elemClass[0] == 'L' {
			elemClass = elemClass[1 : len(elemClass)-1]
			if got := value.Ref.Get().ClassName(); got != elemClass && !isSubclass(vm.ClassLoader, got, elemClass) {
				return NewArrayStoreException(got)
			}
		}
	}
	arr.Elements[index] = value
	return nil
}
