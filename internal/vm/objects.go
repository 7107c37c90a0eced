package vm

// executeNew handles new: resolve the ConstantClass operand and allocate a
// zeroed instance (JVMS §6.5.new — the class must already be initialized by
// the time <init> runs, but new itself does not force initialization beyond
// what the verifier already assumes happened via an earlier getstatic/
// invokestatic/explicit new in the same class, so this forces it here too
// rather than leaving it to a later access that may never come).
func (vm *VM) executeNew(t *Thread, f *Frame) error {
	index := f.ReadU16()
	className, err := f.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	if err := vm.ensureInitialized(t, className); err != nil {
		return err
	}
	v, err := t.NewObject(className)
	if err != nil {
		return err
	}
	return f.Push(v)
}

// executeAthrow handles athrow (JVMS §6.5.athrow): pop the reference (a
// null reference here throws NullPointerException in its own right, the one
// case where popping null is itself the failure rather than a precondition
// check) and turn it into the *Throwable error type the interpreter loop's
// exception-table search understands.
func (vm *VM) executeAthrow(f *Frame) error {
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	if v.IsNullRef() {
		return NewNullPointerException()
	}
	obj, ok := v.Ref.Get().(*JObject)
	if !ok {
		return newThrowable("java/lang/InternalError", "athrow: thrown value is not a JObject")
	}
	msg := ""
	if m, ok := obj.Fields["message"]; ok && !m.IsNullRef() && m.Kind == KindRef {
		if s, ok := m.Ref.Get().(*JString); ok {
			msg = s.Value
		}
	}
	return &Throwable{ClassName: obj.Class, Message: msg, Object: obj}
}

// executeCheckcast handles checkcast: a null reference always passes (JVMS
// §6.5.checkcast), a non-null reference must be assignable to the resolved
// target class/interface or it throws ClassCastException. The reference
// itself is left on the stack either way.
func (vm *VM) executeCheckcast(f *Frame) error {
	index := f.ReadU16()
	target, err := f.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	if !v.IsNullRef() {
		got := runtimeClassOf(v)
		if got != target && !isSubclass(vm.ClassLoader, got, target) {
			return NewClassCastException(got, target)
		}
	}
	return f.Push(v)
}

// executeInstanceof handles instanceof: pushes 0 for a null reference
// (JVMS §6.5.instanceof: null is not an instance of anything) or 1/0 for
// whether a non-null reference's runtime class is assignable to the
// resolved target.
func (vm *VM) executeInstanceof(f *Frame) error {
	index := f.ReadU16()
	target, err := f.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	v, err := f.PopRef()
	if err != nil {
		return err
	}
	if v.IsNullRef() {
		return f.Push(Int32Value(0))
	}
	got := runtimeClassOf(v)
	if got == target || isSubclass(vm.ClassLoader, got, target) {
		return f.Push(Int32Value(1))
	}
	return f.Push(Int32Value(0))
}

// executeMonitorenter handles monitorenter: pop the reference, null-check,
// lazily create the object's Monitor on first use (JVMS's "the monitor
// entry count" is conceptually associated with the object from the start,
// but nothing requires allocating it until something actually locks it).
func (vm *VM) executeMonitorenter(t *Thread, f *Frame) error {
	obj, err := vm.monitorReceiver(f)
	if err != nil {
		return err
	}
	if obj.Monitor == nil {
		obj.Monitor = NewMonitor(obj.Class)
	}
	return obj.Monitor.Enter(t)
}

// executeMonitorexit handles monitorexit.
func (vm *VM) executeMonitorexit(t *Thread, f *Frame) error {
	obj, err := vm.monitorReceiver(f)
	if err != nil {
		return err
	}
	if obj.Monitor == nil {
		return NewIllegalMonitorStateException()
	}
	return obj.Monitor.Exit(t)
}

func (vm *VM) monitorReceiver(f *Frame) (*JObject, error) {
	v, err := f.PopRef()
	if err != nil {
		return nil, err
	}
	if v.IsNullRef() {
		return nil, NewNullPointerException()
	}
	obj, ok := v.Ref.Get().(*JObject)
	if !ok {
		return nil, newThrowable("java/lang/InternalError", "monitor op: receiver is not a JObject")
	}
	return obj, nil
}
