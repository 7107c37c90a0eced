package verifier

// The dup/pop/swap family's legal shapes depend on whether the values
// involved are category-1 (one slot) or category-2 (two slots), per
// JVMS §6.5. Each function below implements exactly the "Form" JVMS
// documents for its opcode, rejecting shapes no Form permits.

func (f *Frame) top(n int) ([]VType, error) {
	if len(f.Stack) < n {
		return nil, &StackUnderflowError{}
	}
	return f.Stack[len(f.Stack)-n:], nil
}

func (f *Frame) popN(n int) error {
	for i := 0; i < n; i++ {
		if _, err := f.Pop(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) pushAll(vs ...VType) error {
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
	if top[0].IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: top[0]}
	}
	_, err = f.Pop()
	return err
}

func applyPop2(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	if top[0].IsCategory2() {
		_, err := f.Pop()
		return err
	}
	two, err := f.top(2)
	if err != nil {
		return err
	}
	if two[0].IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: two[0]}
	}
	return f.popN(2)
}

func applyDup(f *Frame) error {
	top, err := f.top(1)
	if err != nil {
		return err
	}
	v1 := top[0]
	if v1.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
	}
	return f.Push(v1)
}

func applyDupX1(f *Frame) error {
	top, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := top[0], top[1]
	if v1.IsCategory2() || v2.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
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
	if v1.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
	}
	below, err := f.top(2)
	if err != nil {
		return err
	}
	if below[0].IsCategory2() {
		// Form 2: ..., v2(cat2), v1 -> ..., v1, v2, v1
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
	if v3.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v3}
	}
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
	if top[0].IsCategory2() {
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
	if v1.IsCategory2() || v2.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
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
	if top[0].IsCategory2() {
		// Form 2: ..., v2, v1(cat2) -> ..., v1, v2, v1
		two, err := f.top(2)
		if err != nil {
			return err
		}
		v1, v2 := two[1], two[0]
		if v2.IsCategory2() {
			return &Category2MisalignmentError{Expected: Integer, Actual: v2}
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
	if v1.IsCategory2() || v2.IsCategory2() || v3.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
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
	case v1.IsCategory2() && v2.IsCategory2():
		// Form 4: ..., v2, v1 -> ..., v1, v2, v1
		if err := f.popN(2); err != nil {
			return err
		}
		return f.pushAll(v1, v2, v1)
	case !v1.IsCategory2() && !v2.IsCategory2():
		// need a third value; could be Form 1 (all cat1) or Form 3 (v3 cat2)
		three, err := f.top(3)
		if err != nil {
			return err
		}
		v3 := three[0]
		if v3.IsCategory2() {
			// Form 3: ..., v3(cat2), v2, v1 -> ..., v2, v1, v3, v2, v1
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
		if v4.IsCategory2() {
			return &Category2MisalignmentError{Expected: Integer, Actual: v4}
		}
		if err := f.popN(4); err != nil {
			return err
		}
		// Form 1: ..., v4, v3, v2, v1 -> ..., v2, v1, v4, v3, v2, v1
		return f.pushAll(v2, v1, v4, v3, v2, v1)
	default:
		// Form 2: ..., v3, v2, v1(cat2) -> ..., v1, v3, v2, v1
		if v1.IsCategory2() && !v2.IsCategory2() {
			three, err := f.top(3)
			if err != nil {
				return err
			}
			v3 := three[0]
			if v3.IsCategory2() {
				return &Category2MisalignmentError{Expected: Integer, Actual: v3}
			}
			if err := f.popN(3); err != nil {
				return err
			}
			return f.pushAll(v1, v3, v2, v1)
		}
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
	}
}

func applySwap(f *Frame) error {
	top, err := f.top(2)
	if err != nil {
		return err
	}
	v2, v1 := top[0], top[1]
	if v1.IsCategory2() || v2.IsCategory2() {
		return &Category2MisalignmentError{Expected: Integer, Actual: v1}
	}
	if err := f.popN(2); err != nil {
		return err
	}
	return f.pushAll(v1, v2)
}
