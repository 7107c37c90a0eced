package vm

import (
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
	"github.com/ristrettovm/ristretto/internal/gc"
)

func newTestVM(t *testing.T, loader classLoader) *VM {
	t.Helper()
	return New(loader, gc.NewCollector(nil), nil, nil, nil)
}

// buildMethodClass builds a single-class, single-method ClassFile whose Code
// attribute is code, for hand-encoded bytecode fixtures — the same shape as
// internal/verifier's buildClass helper, minus the StackMapTable plumbing
// this package's execution path never reads.
func buildMethodClass(t *testing.T, className, methodName, descriptor string, access uint16, maxLocals, maxStack uint16, code []byte, handlers []classfile.ExceptionHandler) *classfile.ClassFile {
	t.Helper()
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass(className)
	version, err := classfile.NewVersion(52, 0)
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}
	codeAttr := &classfile.CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
	}
	return &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    thisClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: access,
					Name:        methodName,
					Descriptor:  descriptor,
				},
				Code: codeAttr,
			},
		},
	}
}

// loopSumCode computes sum(1..n) for a static int method taking n in local
// 0, using local 1 as the running sum and local 2 as the loop counter —
// exercises iconst/istore/iload/if_icmpgt/iadd/iinc/goto/ireturn together,
// including a backward branch (the safepoint-polling site spec §5 requires).
func loopSumCode() []byte {
	return []byte{
		byte(classfile.OpIconst0), byte(classfile.OpIstore1),
		byte(classfile.OpIconst1), byte(classfile.OpIstore2),
		byte(classfile.OpIload2), byte(classfile.OpIload0),
		byte(classfile.OpIfIcmpgt), 0x00, 0x0D,
		byte(classfile.OpIload1), byte(classfile.OpIload2), byte(classfile.OpIadd), byte(classfile.OpIstore1),
		byte(classfile.OpIinc), 0x02, 0x01,
		byte(classfile.OpGoto), 0xFF, 0xF4,
		byte(classfile.OpIload1), byte(classfile.OpIreturn),
	}
}

func TestExecuteMethodLoopSum(t *testing.T) {
	cf := buildMethodClass(t, "com/example/Sample", "sum", "(I)I",
		classfile.AccPublic|classfile.AccStatic, 3, 2, loopSumCode(), nil)
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{"com/example/Sample": cf}}
	v := newTestVM(t, loader)
	th := NewThread(v)
	defer th.Detach()

	result, err := v.executeMethod(th, cf, &cf.Methods[0], []Value{Int32Value(5)})
	if err != nil {
		t.Fatalf("executeMethod: %v", err)
	}
	if result.Kind != KindInt32 || result.I32 != 15 {
		t.Fatalf("sum(5) = %+v, want Int32Value(15)", result)
	}
}

func TestExecuteMethodCatchesArithmeticException(t *testing.T) {
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass("com/example/Sample")
	catchType := pool.AddClass("java/lang/ArithmeticException")
	version, _ := classfile.NewVersion(52, 0)

	code := []byte{
		byte(classfile.OpIload0), byte(classfile.OpIload1), byte(classfile.OpIdiv), byte(classfile.OpIreturn),
		byte(classfile.OpPop), byte(classfile.OpIconstM1), byte(classfile.OpIreturn),
	}
	codeAttr := &classfile.CodeAttribute{
		MaxStack:  2,
		MaxLocals: 2,
		Code:      code,
		ExceptionHandlers: []classfile.ExceptionHandler{
			{StartPC: 0, EndPC: 4, HandlerPC: 4, CatchType: catchType},
		},
	}
	cf := &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    thisClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: classfile.AccPublic | classfile.AccStatic,
					Name:        "divSafe",
					Descriptor:  "(II)I",
				},
				Code: codeAttr,
			},
		},
	}
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{"com/example/Sample": cf}}
	v := newTestVM(t, loader)
	th := NewThread(v)
	defer th.Detach()

	result, err := v.executeMethod(th, cf, &cf.Methods[0], []Value{Int32Value(10), Int32Value(0)})
	if err != nil {
		t.Fatalf("executeMethod: %v", err)
	}
	if result.I32 != -1 {
		t.Fatalf("divSafe(10, 0) = %d, want -1 (caught by the ArithmeticException handler)", result.I32)
	}
}

func TestExecuteMethodInvokestaticDispatch(t *testing.T) {
	bPool := classfile.NewConstantPool()
	bThisClass := bPool.AddClass("com/example/B")
	bVersion, _ := classfile.NewVersion(52, 0)
	bCode := []byte{
		byte(classfile.OpIload0), byte(classfile.OpIconst1), byte(classfile.OpIadd), byte(classfile.OpIreturn),
	}
	classB := &classfile.ClassFile{
		Version:      bVersion,
		ConstantPool: bPool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    bThisClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: classfile.AccPublic | classfile.AccStatic,
					Name:        "addOne",
					Descriptor:  "(I)I",
				},
				Code: &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 1, Code: bCode},
			},
		},
	}

	aPool := classfile.NewConstantPool()
	aThisClass := aPool.AddClass("com/example/A")
	methodRefIndex := aPool.AddMethodref("com/example/B", "addOne", "(I)I")
	aVersion, _ := classfile.NewVersion(52, 0)
	aCode := []byte{
		byte(classfile.OpIload0),
		byte(classfile.OpInvokestatic), byte(methodRefIndex >> 8), byte(methodRefIndex),
		byte(classfile.OpIreturn),
	}
	classA := &classfile.ClassFile{
		Version:      aVersion,
		ConstantPool: aPool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    aThisClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: classfile.AccPublic | classfile.AccStatic,
					Name:        "callAddOne",
					Descriptor:  "(I)I",
				},
				Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: aCode},
			},
		},
	}

	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/A": classA,
		"com/example/B": classB,
	}}
	v := newTestVM(t, loader)
	th := NewThread(v)
	defer th.Detach()

	result, err := v.executeMethod(th, classA, &classA.Methods[0], []Value{Int32Value(41)})
	if err != nil {
		t.Fatalf("executeMethod: %v", err)
	}
	if result.I32 != 42 {
		t.Fatalf("callAddOne(41) = %d, want 42 (dispatched through invokestatic to com/example/B.addOne)", result.I32)
	}
}
