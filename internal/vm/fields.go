package vm

// executeGetstatic handles getstatic: resolve the field, force <clinit>,
// then read the class-wide slot (defaulting per descriptor if <clinit>
// never wrote it explicitly — JVMS §5.4.3.2/5.5).
func (vm *VM) executeGetstatic(t *Thread, f *Frame) error {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Fieldref(index)
	if err != nil {
		return err
	}
	if err := vm.ensureInitialized(t, ref.ClassName); err != nil {
		return err
	}
	v, ok := vm.getStaticField(ref.ClassName, ref.Name)
	if !ok {
		v = defaultValueForDescriptor(ref.Descriptor)
	}
	return f.Push(v)
}

// executePutstatic handles putstatic.
func (vm *VM) executePutstatic(t *Thread, f *Frame) error {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Fieldref(index)
	if err != nil {
		return err
	}
	if err := vm.ensureInitialized(t, ref.ClassName); err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	vm.setStaticField(ref.ClassName, ref.Name, v)
	return nil
}

// executeGetfield handles getfield: pop the receiver (null-checked), read
// the named field out of its field table, defaulting per descriptor for a
// field <init> hasn't assigned yet.
func (vm *VM) executeGetfield(f *Frame) error {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Fieldref(index)
	if err != nil {
		return err
	}
	objVal, err := f.PopRef()
	if err != nil {
		return err
	}
	if objVal.IsNullRef() {
		return NewNullPointerException()
	}
	obj, ok := objVal.Ref.Get().(*JObject)
	if !ok {
		return newThrowable("java/lang/InternalError", "getfield: receiver is not a JObject")
	}
	v, exists := obj.Fields[ref.Name]
	if !exists {
		v = defaultValueForDescriptor(ref.Descriptor)
	}
	return f.Push(v)
}

// executePutfield handles putfield.
func (vm *VM) executePutfield(f *Frame) error {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Fieldref(index)
	if err != nil {
		return err
	}
	value, err := f.Pop()
	if err != nil {
		return err
	}
	objVal, err := f.PopRef()
	if err != nil {
		return err
	}
	if objVal.IsNullRef() {
		return NewNullPointerException()
	}
	obj, ok := objVal.Ref.Get().(*JObject)
	if !ok {
		return newThrowable("java/lang/InternalError", "putfield: receiver is not a JObject")
	}
	obj.Fields[ref.Name] = value
	return nil
}
