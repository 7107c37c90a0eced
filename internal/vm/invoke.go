package vm

// popArgs pops len(params) values off f in reverse (JVMS §3.11: arguments
// are pushed left to right, so the last parameter is on top) and returns
// them back in declaration order.
func popArgs(f *Frame, params []Kind) ([]Value, error) {
	args := make([]Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		var v Value
		var err error
		if params[i] == KindRef {
			v, err = f.PopRef()
		} else {
			v, err = f.PopExpect(params[i])
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// pushResult pushes a call's return value, if it has one, and reports the
// step result the way every other non-returning instruction does (continue
// running the caller's frame, not the callee's).
func pushResult(f *Frame, result Value, hasReturn bool, err error) (Value, bool, error) {
	if err != nil {
		return Value{}, false, err
	}
	if hasReturn {
		if err := f.Push(result); err != nil {
			return Value{}, false, err
		}
	}
	return Value{}, false, nil
}

// runtimeClassOf returns the dynamic class name of a non-null reference
// Value, following through JObject/JArray/JString the same way (spec §4.E
// "re-resolve virtual/interface dispatch against the receiver's runtime
// class").
func runtimeClassOf(v Value) string {
	return v.Ref.Get().ClassName()
}

// executeInvokevirtual handles invokevirtual (JVMS §6.5.invokevirtual):
// resolve the Methodref symbolically for its descriptor, pop arguments and
// the receiver, then re-resolve dispatch against the receiver's actual
// runtime class — the step that makes overriding work. Grounded on the
// teacher's executeInvokevirtual (pkg/vm/vm.go), generalized from its
// extensive inline native special-casing (PrintStream, String, etc.) to a
// clean resolve.go dispatch plus the Intrinsics hook for anything native,
// since built-in method bodies now live in internal/intrinsics instead of
// being hardcoded here.
func (vm *VM) executeInvokevirtual(t *Thread, f *Frame) (Value, bool, error) {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Methodref(index)
	if err != nil {
		return Value{}, false, err
	}
	params, _, hasReturn, err := paramKinds(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(f, params)
	if err != nil {
		return Value{}, false, err
	}
	recv, err := f.PopRef()
	if err != nil {
		return Value{}, false, err
	}
	if recv.IsNullRef() {
		return Value{}, false, NewNullPointerException()
	}
	runtimeClass := runtimeClassOf(recv)
	resolved, err := ResolveVirtual(vm.ClassLoader, runtimeClass, ref.Name, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	callArgs := append([]Value{recv}, args...)
	result, err := vm.executeMethod(t, resolved.Class, resolved.Method, callArgs)
	return pushResult(f, result, hasReturn, err)
}

// executeInvokespecial handles invokespecial (<init>, private methods,
// super-calls): binds to the exact named class rather than the receiver's
// runtime class.
func (vm *VM) executeInvokespecial(t *Thread, f *Frame) (Value, bool, error) {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Methodref(index)
	if err != nil {
		return Value{}, false, err
	}
	params, _, hasReturn, err := paramKinds(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(f, params)
	if err != nil {
		return Value{}, false, err
	}
	recv, err := f.PopRef()
	if err != nil {
		return Value{}, false, err
	}
	if recv.IsNullRef() {
		return Value{}, false, NewNullPointerException()
	}
	resolved, err := ResolveSpecial(vm.ClassLoader, ref.ClassName, ref.Name, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	callArgs := append([]Value{recv}, args...)
	result, err := vm.executeMethod(t, resolved.Class, resolved.Method, callArgs)
	return pushResult(f, result, hasReturn, err)
}

// executeInvokestatic handles invokestatic: no receiver, resolved once
// against the declared class's hierarchy.
func (vm *VM) executeInvokestatic(t *Thread, f *Frame) (Value, bool, error) {
	index := f.ReadU16()
	ref, err := f.Class.ConstantPool.Methodref(index)
	if err != nil {
		return Value{}, false, err
	}
	if err := vm.ensureInitialized(t, ref.ClassName); err != nil {
		return Value{}, false, err
	}
	params, _, hasReturn, err := paramKinds(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(f, params)
	if err != nil {
		return Value{}, false, err
	}
	resolved, err := ResolveStatic(vm.ClassLoader, ref.ClassName, ref.Name, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	result, err := vm.executeMethod(t, resolved.Class, resolved.Method, args)
	return pushResult(f, result, hasReturn, err)
}

// executeInvokeinterface handles invokeinterface. The trailing count/zero
// operand bytes (JVMS §6.5.invokeinterface, a historical artifact of the
// original interpreter loop needing the argument count up front) are read
// and discarded, since paramKinds already derives the same count from the
// descriptor.
func (vm *VM) executeInvokeinterface(t *Thread, f *Frame) (Value, bool, error) {
	index := f.ReadU16()
	_ = f.ReadU8() // count, unused: paramKinds recomputes it from the descriptor
	_ = f.ReadU8() // zero
	ref, err := f.Class.ConstantPool.InterfaceMethodref(index)
	if err != nil {
		return Value{}, false, err
	}
	params, _, hasReturn, err := paramKinds(ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(f, params)
	if err != nil {
		return Value{}, false, err
	}
	recv, err := f.PopRef()
	if err != nil {
		return Value{}, false, err
	}
	if recv.IsNullRef() {
		return Value{}, false, NewNullPointerException()
	}
	runtimeClass := runtimeClassOf(recv)
	resolved, err := ResolveInterface(vm.ClassLoader, ref.ClassName, runtimeClass, ref.Name, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	callArgs := append([]Value{recv}, args...)
	result, err := vm.executeMethod(t, resolved.Class, resolved.Method, callArgs)
	return pushResult(f, result, hasReturn, err)
}

// invokedynamic itself is out of scope (no bootstrap resolution, spec
// Non-goals) and has no handler in interpreter.go's step switch.
