package vm

// The dup/pop/swap family's legal shapes depend on whether the values
// involved are category-1 (one slot) or category-2 (two slots), per
// JVMS §6.5. Ported from internal/verifier's stackops.go (which applies the
// same Forms to VType during static analysis) onto live Values during
// execution — the two packages independently re-derive identical JVMS Forms
// over different element types, so duplication here is deliberate rather
// than shared via a generic helper.

func (f *Frame) top(n int) ([]Value, error) {
	if f.sp < n {
		return nil, &OperandStackUnderflowError{}
	}
	return f.stack[f.sp-n : f.sp], nil
}

func (f *Frame) popN(n int) error {
	for i := 0; i < n; i++ {
		if _, err := f.Pop(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) pushAll(vs ...Value) error {
	for _, v := range vs {
		if err := f.Push(v); err != nil {
			return err
		}
	}
	return nil
}

func applyPop(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	if top[0].Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: top[0].Kind}
	}
	_, err = f.Pop()
	return err
}

func applyPop2(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	if top[0].Category() == 2 {
		_, err := f.Pop()
		return err
	}
	return f.popN(2)
}

func applyDup(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	v1 := top[0]
	if v1.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	return f.Push(v1)
}

func applyDupX1(f *Frame) error {
	top, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := top[0], top[1]
	if v1.Category() == 2 || v2.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	if err := f.popN(2); err != nil {
		return err
	}
	return f.pushAll(v1, v2, v1)
}

func applyDupX2(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	v1 := top[0]
	if v1.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	below, err := f.top(2)
	if err != nil {
		return err
	}
	if below[0].Category() == 2 {
		v2 := below[0]
		if err := f.popN(2); err != nil {
			return err
		}
		return f.pushAll(v1, v2, v1)
	}
	three, err := f.top(3)
	if err != nil {
		return err
	}
	v3, v2 := three[0], three[1]
	if err := f.popN(3); err != nil {
		return err
	}
	return f.pushAll(v1, v3, v2, v1)
}

func applyDup2(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	if top[0].Category() == 2 {
		v1 := top[0]
		if _, err := f.Pop(); err != nil {
			return err
		}
		return f.pushAll(v1, v1)
	}
	two, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := two[0], two[1]
	if v1.Category() == 2 || v2.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	if err := f.popN(2); err != nil {
		return err
	}
	return f.pushAll(v2, v1, v2, v1)
}

func applyDup2X1(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	if top[0].Category() == 2 {
		two, err := f.top(2)
		if err != nil {
			return err
		}
		v1, v2 := two[1], two[0]
		if v2.Category() == 2 {
			return &TypeMismatchError{Expected: KindInt32, Actual: v2.Kind}
		}
		if err := f.popN(2); err != nil {
			return err
		}
		return f.pushAll(v1, v2, v1)
	}
	three, err := f.top(3)
	if err != nil {
		return err
	}
	v3, v2, v1 := three[0], three[1], three[2]
	if v1.Category() == 2 || v2.Category() == 2 || v3.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	if err := f.popN(3); err != nil {
		return err
	}
	return f.pushAll(v2, v1, v3, v2, v1)
}

func applyDup2X2(f *Frame) error {
	two, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := two[0], two[1]
	switch {
	case v1.Category() == 2 && v2.Category() == 2:
		if err := f.popN(2); err != nil {
			return err
		}
		return f.pushAll(v1, v2, v1)
	case v1.Category() != 2 && v2.Category() != 2:
		three, err := f.top(3)
		if err != nil {
			return err
		}
		v3 := three[0]
		if v3.Category() == 2 {
			if err := f.popN(3); err != nil {
				return err
			}
			return f.pushAll(v2, v1, v3, v2, v1)
		}
		four, err := f.top(4)
		if err != nil {
			return err
		}
		v4 := four[0]
		if err := f.popN(4); err != nil {
			return err
		}
		return f.pushAll(v2, v1, v4, v3, v2, v1)
	default:
		// Form 2: ..., v3, v2, v1(cat2) -> ..., v1, v3, v2, v1
		if v1.Category() == 2 && v2.Category() != 2 {
			three, err := f.top(3)
			if err != nil {
				return err
			}
			v3 := three[0]
			if err := f.popN(3); err != nil {
				return err
			}
			return f.pushAll(v1, v3, v2, v1)
		}
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
}

func applySwap(f *Frame) error {
	top, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := top[0], top[1]
	if v1.Category() == 2 || v2.Category() == 2 {
		return &TypeMismatchError{Expected: KindInt32, Actual: v1.Kind}
	}
	if err := f.popN(2); err != nil {
		return err
	}
	return f.pushAll(v1, v2)
}
