package verifier

import (
	"strings"
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// buildClass assembles a minimal but structurally complete ClassFile
// carrying a single method, mirroring classfile's buildSampleClass helper
// but parameterized over the bits each verifier test varies.
func buildClass(t *testing.T, major uint16, methodName, descriptor string, accessFlags uint16, code []byte, maxLocals, maxStack uint16, smt *classfile.StackMapTableAttribute) *classfile.ClassFile {
	t.Helper()
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass("com/example/Sample")
	superClass := pool.AddClass("java/lang/Object")

	version, err := classfile.NewVersion(major, 0)
	if err != nil {
		t.Fatalf("NewVersion(%d): %v", major, err)
	}

	var nested []classfile.Attribute
	if smt != nil {
		nested = append(nested, classfile.Attribute{Name: "StackMapTable", StackMapTable: smt})
	}
	codeAttr := &classfile.CodeAttribute{
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       code,
		Attributes: nested,
	}

	return &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: accessFlags,
					Name:        methodName,
					Descriptor:  descriptor,
					Attributes:  []classfile.Attribute{{Name: "Code", Code: codeAttr}},
				},
				Code: codeAttr,
			},
		},
	}
}

// buildClassNamed is buildClass with the class name parameterized, for the
// handful of tests that care about package prefix (e.g. VerifyRemote).
func buildClassNamed(t *testing.T, className string, major uint16, methodName, descriptor string, accessFlags uint16, code []byte, maxLocals, maxStack uint16, smt *classfile.StackMapTableAttribute) *classfile.ClassFile {
	t.Helper()
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass(className)
	superClass := pool.AddClass("java/lang/Object")

	version, err := classfile.NewVersion(major, 0)
	if err != nil {
		t.Fatalf("NewVersion(%d): %v", major, err)
	}

	var nested []classfile.Attribute
	if smt != nil {
		nested = append(nested, classfile.Attribute{Name: "StackMapTable", StackMapTable: smt})
	}
	codeAttr := &classfile.CodeAttribute{
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       code,
		Attributes: nested,
	}

	return &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Methods: []classfile.MethodInfo{
			{
				MemberInfo: classfile.MemberInfo{
					AccessFlags: accessFlags,
					Name:        methodName,
					Descriptor:  descriptor,
					Attributes:  []classfile.Attribute{{Name: "Code", Code: codeAttr}},
				},
				Code: codeAttr,
			},
		},
	}
}

// badMethodClass returns a class whose sole method would fail VerifyMethod
// under the strict fallback: major >= 50, no StackMapTable, strict checker.
func badMethodClass(t *testing.T, className string) *classfile.ClassFile {
	return buildClassNamed(t, className, 52, "add", "(II)I", classfile.AccPublic|classfile.AccStatic, addCode(), 2, 2, nil)
}

func TestVerifyRemoteSkipsSystemClass(t *testing.T) {
	cf := badMethodClass(t, "java/lang/Foo")
	cfg := DefaultConfig()
	cfg.VerifyMode = VerifyRemote
	cfg.FallbackStrategy = StrictTypeChecker
	v := New(cfg, nil, nil)
	if err := v.Verify(cf); err != nil {
		t.Fatalf("Verify under VerifyRemote should skip a java/ class, got: %v", err)
	}
}

func TestVerifyRemoteStillChecksNonSystemClass(t *testing.T) {
	cf := badMethodClass(t, "com/example/Sample")
	cfg := DefaultConfig()
	cfg.VerifyMode = VerifyRemote
	cfg.FallbackStrategy = StrictTypeChecker
	v := New(cfg, nil, nil)
	err := v.Verify(cf)
	if err == nil {
		t.Fatal("Verify under VerifyRemote should still check a non-system class")
	}
	if _, ok := err.(*MissingStackMapTableError); !ok {
		t.Fatalf("error = %T, want *MissingStackMapTableError", err)
	}
}

func TestVerifyAllChecksSystemClass(t *testing.T) {
	cf := badMethodClass(t, "java/lang/Foo")
	cfg := DefaultConfig()
	cfg.FallbackStrategy = StrictTypeChecker
	v := New(cfg, nil, nil)
	err := v.Verify(cf)
	if err == nil {
		t.Fatal("Verify under VerifyAll should check even a java/ class")
	}
	if _, ok := err.(*MissingStackMapTableError); !ok {
		t.Fatalf("error = %T, want *MissingStackMapTableError", err)
	}
}

func TestFormatCheckRejectsEmbeddedNUL(t *testing.T) {
	pool := classfile.NewConstantPool()
	pool.AddUtf8("bad\x00name")
	version, _ := classfile.NewVersion(52, 0)
	cf := &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		ThisClass:    pool.AddClass("com/example/Sample"),
		SuperClass:   pool.AddClass("java/lang/Object"),
	}
	if err := formatCheck(cf); err == nil {
		t.Fatal("formatCheck should reject a Utf8 entry with an embedded NUL byte")
	}
}

func TestFormatCheckRejectsAbstractMethodWithCode(t *testing.T) {
	cf := buildClass(t, 52, "doStuff", "()V", classfile.AccPublic|classfile.AccAbstract,
		[]byte{byte(classfile.OpReturn)}, 0, 0, nil)
	if err := formatCheck(cf); err == nil {
		t.Fatal("formatCheck should reject an abstract method carrying a Code attribute")
	} else if _, ok := err.(*FormatCheckError); !ok {
		t.Fatalf("error = %T, want *FormatCheckError", err)
	}
}

func TestFormatCheckAcceptsWellFormedClass(t *testing.T) {
	cf := buildClass(t, 52, "<init>", "()V", 0, []byte{byte(classfile.OpReturn)}, 1, 1, nil)
	if err := formatCheck(cf); err != nil {
		t.Fatalf("formatCheck on a well-formed class: %v", err)
	}
}

// addCode builds "iload_0; iload_1; iadd; ireturn" - static int add(int, int).
func addCode() []byte {
	return []byte{
		byte(classfile.OpIload0),
		byte(classfile.OpIload1),
		byte(classfile.OpIadd),
		byte(classfile.OpIreturn),
	}
}

func TestVerifyMethodInferencePreJava6(t *testing.T) {
	cf := buildClass(t, 49, "add", "(II)I", classfile.AccPublic|classfile.AccStatic, addCode(), 2, 2, nil)
	v := New(DefaultConfig(), nil, nil)
	path, err := v.VerifyMethod(cf, "com/example/Sample", &cf.Methods[0])
	if err != nil {
		t.Fatalf("VerifyMethod: %v", err)
	}
	if path != PathInference {
		t.Fatalf("path = %v, want inference (major < 50 forces inference)", path)
	}
}

func TestVerifyMethodMissingStackMapTableStrict(t *testing.T) {
	cf := buildClass(t, 52, "add", "(II)I", classfile.AccPublic|classfile.AccStatic, addCode(), 2, 2, nil)
	cfg := DefaultConfig()
	cfg.FallbackStrategy = StrictTypeChecker
	v := New(cfg, nil, nil)
	_, err := v.VerifyMethod(cf, "com/example/Sample", &cf.Methods[0])
	if err == nil {
		t.Fatal("VerifyMethod should fail: major >= 50, no StackMapTable, strict fallback")
	}
	if _, ok := err.(*MissingStackMapTableError); !ok {
		t.Fatalf("error = %T, want *MissingStackMapTableError", err)
	}
}

// loopCode builds a static int method summing 0..n-1 via a back edge, the
// shape that forces a real StackMapTable at both the loop header and the
// loop exit.
//
//	0: iconst_0        istore_1   // sum = 0
//	2: iconst_0        istore_2   // i = 0
//	4: iload_2         iload_0    // loop: i, n
//	6: if_icmpge -> 19
//	9: iload_1         iload_2    iadd    istore_1 // sum += i
//	13: iinc 2, 1                          // i++
//	16: goto 4
//	19: iload_1        ireturn
func loopCode() []byte {
	return []byte{
		0x03, 0x3C, // iconst_0, istore_1
		0x03, 0x3D, // iconst_0, istore_2
		0x1C, 0x1A, // iload_2, iload_0
		0xA2, 0x00, 0x0D, // if_icmpge +13 -> pc 19
		0x1B, 0x1C, 0x60, 0x3C, // iload_1, iload_2, iadd, istore_1
		0x84, 0x02, 0x01, // iinc 2, +1
		0xA7, 0xFF, 0xF4, // goto -12 -> pc 4
		0x1B, 0xAC, // iload_1, ireturn
	}
}

func loopStackMapTable() *classfile.StackMapTableAttribute {
	locals := []classfile.VerificationType{{Kind: classfile.VTInteger}, {Kind: classfile.VTInteger}, {Kind: classfile.VTInteger}}
	return &classfile.StackMapTableAttribute{
		Frames: []classfile.StackMapFrame{
			{Kind: classfile.FrameFull, OffsetDelta: 4, Locals: locals},  // pc 4 (loop header)
			{Kind: classfile.FrameFull, OffsetDelta: 14, Locals: locals}, // pc 19 (loop exit)
		},
	}
}

func TestVerifyMethodFastPathLoop(t *testing.T) {
	cf := buildClass(t, 52, "sum", "(I)I", classfile.AccPublic|classfile.AccStatic, loopCode(), 3, 2, loopStackMapTable())
	v := New(DefaultConfig(), nil, nil)
	path, err := v.VerifyMethod(cf, "com/example/Sample", &cf.Methods[0])
	if err != nil {
		t.Fatalf("VerifyMethod: %v", err)
	}
	if path != PathFast {
		t.Fatalf("path = %v, want fast (StackMapTable present)", path)
	}
}

func TestInferenceDidNotConverge(t *testing.T) {
	// Two instructions is enough: the worklist still holds pc 1, the first
	// instruction's successor, when the ceiling of 1 is checked, regardless of
	// whether the dataflow would otherwise converge immediately.
	cf := buildClass(t, 49, "value", "()I", classfile.AccPublic|classfile.AccStatic,
		[]byte{byte(classfile.OpIconst0), byte(classfile.OpIreturn)}, 0, 1, nil)
	cfg := DefaultConfig()
	cfg.MaxInferenceIterations = 1
	v := New(cfg, nil, nil)
	_, err := v.VerifyMethod(cf, "com/example/Sample", &cf.Methods[0])
	if err == nil {
		t.Fatal("VerifyMethod should fail to converge with MaxInferenceIterations=1")
	}
	if _, ok := err.(*InferenceDidNotConvergeError); !ok {
		t.Fatalf("error = %T, want *InferenceDidNotConvergeError", err)
	}
}

func TestFrameStackOverflow(t *testing.T) {
	f := NewFrame(0, 1)
	if err := f.Push(Integer); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := f.Push(Integer); err == nil {
		t.Fatal("second push should overflow max_stack=1")
	} else if _, ok := err.(*StackOverflowError); !ok {
		t.Fatalf("error = %T, want *StackOverflowError", err)
	}
}

func TestFrameStackUnderflow(t *testing.T) {
	f := NewFrame(0, 1)
	if _, err := f.Pop(); err == nil {
		t.Fatal("Pop on an empty stack should underflow")
	} else if _, ok := err.(*StackUnderflowError); !ok {
		t.Fatalf("error = %T, want *StackUnderflowError", err)
	}
}

func TestFramePopExpectCategory2Misalignment(t *testing.T) {
	f := NewFrame(0, 2)
	if err := f.Push(Integer); err != nil {
		t.Fatalf("Push: %v", err)
	}
	ctx := objectOnlyContext{}
	if _, err := f.PopExpect(ctx, Long); err == nil {
		t.Fatal("PopExpect(Long) on an Integer slot should report category-2 misalignment")
	} else if _, ok := err.(*Category2MisalignmentError); !ok {
		t.Fatalf("error = %T, want *Category2MisalignmentError", err)
	}
}

func TestFrameGetLocalUninitialized(t *testing.T) {
	f := NewFrame(2, 0)
	ctx := objectOnlyContext{}
	if _, err := f.GetLocal(ctx, 0, Integer); err == nil {
		t.Fatal("GetLocal on a never-written slot should report an uninitialized read")
	} else if _, ok := err.(*UninitializedLocalError); !ok {
		t.Fatalf("error = %T, want *UninitializedLocalError", err)
	}
}

func TestDup2X2AllCategory1(t *testing.T) {
	// JVMS 6.5 dup2_x2 Form 1: ..., v4, v3, v2, v1 -> ..., v2, v1, v4, v3, v2, v1
	f := NewFrame(0, 8)
	// All four distinct and category-1, so a wrong ordering is caught
	// rather than masked by two equal-looking slots.
	v1, v2, v3, v4 := Integer, Float, Object("C"), Object("D")
	for _, v := range []VType{v4, v3, v2, v1} {
		if err := f.Push(v); err != nil {
			t.Fatalf("Push(%v): %v", v, err)
		}
	}
	if err := applyDup2X2(f); err != nil {
		t.Fatalf("applyDup2X2: %v", err)
	}
	want := []VType{v2, v1, v4, v3, v2, v1}
	if len(f.Stack) != len(want) {
		t.Fatalf("stack depth = %d, want %d (%v)", len(f.Stack), len(want), f.Stack)
	}
	for i, w := range want {
		if !f.Stack[i].equal(w) {
			t.Fatalf("stack[%d] = %v, want %v (full stack: %v)", i, f.Stack[i], w, f.Stack)
		}
	}
}

func TestDup2X2Form2(t *testing.T) {
	// JVMS 6.5 dup2_x2 Form 2: ..., v3, v2, v1(cat2) -> ..., v1, v3, v2, v1
	f := NewFrame(0, 8)
	v1, v2, v3 := Long, Integer, Float
	for _, v := range []VType{v3, v2, v1} {
		if err := f.Push(v); err != nil {
			t.Fatalf("Push(%v): %v", v, err)
		}
	}
	if err := applyDup2X2(f); err != nil {
		t.Fatalf("applyDup2X2: %v", err)
	}
	want := []VType{v1, v3, v2, v1}
	if len(f.Stack) != len(want) {
		t.Fatalf("stack depth = %d, want %d (%v)", len(f.Stack), len(want), f.Stack)
	}
	for i, w := range want {
		if !f.Stack[i].equal(w) {
			t.Fatalf("stack[%d] = %v, want %v (full stack: %v)", i, f.Stack[i], w, f.Stack)
		}
	}
}

func TestDup2X2Form3(t *testing.T) {
	// JVMS 6.5 dup2_x2 Form 3: ..., v3(cat2), v2, v1 -> ..., v2, v1, v3, v2, v1
	f := NewFrame(0, 8)
	v1, v2, v3 := Integer, Float, Double
	for _, v := range []VType{v3, v2, v1} {
		if err := f.Push(v); err != nil {
			t.Fatalf("Push(%v): %v", v, err)
		}
	}
	if err := applyDup2X2(f); err != nil {
		t.Fatalf("applyDup2X2: %v", err)
	}
	want := []VType{v2, v1, v3, v2, v1}
	if len(f.Stack) != len(want) {
		t.Fatalf("stack depth = %d, want %d (%v)", len(f.Stack), len(want), f.Stack)
	}
	for i, w := range want {
		if !f.Stack[i].equal(w) {
			t.Fatalf("stack[%d] = %v, want %v (full stack: %v)", i, f.Stack[i], w, f.Stack)
		}
	}
}

func TestDup2X2Form4(t *testing.T) {
	// JVMS 6.5 dup2_x2 Form 4: ..., v2(cat2), v1(cat2) -> ..., v1, v2, v1
	f := NewFrame(0, 8)
	v1, v2 := Long, Double
	for _, v := range []VType{v2, v1} {
		if err := f.Push(v); err != nil {
			t.Fatalf("Push(%v): %v", v, err)
		}
	}
	if err := applyDup2X2(f); err != nil {
		t.Fatalf("applyDup2X2: %v", err)
	}
	want := []VType{v1, v2, v1}
	if len(f.Stack) != len(want) {
		t.Fatalf("stack depth = %d, want %d (%v)", len(f.Stack), len(want), f.Stack)
	}
	for i, w := range want {
		if !f.Stack[i].equal(w) {
			t.Fatalf("stack[%d] = %v, want %v (full stack: %v)", i, f.Stack[i], w, f.Stack)
		}
	}
}

func TestDiagnosticReproStringAndDetailedString(t *testing.T) {
	f := NewFrame(1, 1)
	f.Locals[0] = Integer
	ins := classfile.Instruction{Offset: 3, Opcode: classfile.OpIreturn}

	d := NewDiagnostic("com/example/Sample", "add", "(II)I", 3, "type mismatch on return").
		WithInstruction(ins).
		WithFrame(f).
		WithExpected(Integer).
		WithActual(Float).
		WithNote("checked by the fast path")

	repro := d.ReproString()
	if !strings.HasPrefix(repro, "com/example/Sample#add(II)I @3: ") {
		t.Fatalf("ReproString = %q, want the class#method(descriptor) @pc prefix", repro)
	}

	detailed := d.DetailedString()
	for _, want := range []string{"add(II)I", "PC: 3", "Expected: int", "Actual: float", "checked by the fast path"} {
		if !strings.Contains(detailed, want) {
			t.Fatalf("DetailedString() missing %q:\n%s", want, detailed)
		}
	}
}

func TestVerificationTraceLogNoteAppendsToSamePC(t *testing.T) {
	trace := NewTrace(true)
	trace.LogNote(7, "first note")
	trace.LogNote(7, "second note")
	trace.LogNote(8, "different pc")

	entries := trace.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (two notes at pc 7 collapse into one entry)", len(entries))
	}
	if len(entries[0].Notes) != 2 {
		t.Fatalf("entries[0].Notes = %v, want 2 notes", entries[0].Notes)
	}
	if entries[1].PC != 8 {
		t.Fatalf("entries[1].PC = %d, want 8", entries[1].PC)
	}
}

// mockContext is the small hand-rolled VerificationContext spec §4.B calls
// out tests being able to inject, standing in for a classloader-backed one.
type mockContext struct {
	parent map[string]string
}

func (m mockContext) IsSubclass(sub, super string) bool {
	for sub != "" {
		if sub == super {
			return true
		}
		sub = m.parent[sub]
	}
	return false
}

func (m mockContext) IsAssignable(target, source VType) bool {
	return assignable(m, target, source)
}

func (m mockContext) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	for anc := a; anc != ""; anc = m.parent[anc] {
		if m.IsSubclass(b, anc) {
			return anc
		}
	}
	return "java/lang/Object"
}

func TestAssignableAndJoinWithMockHierarchy(t *testing.T) {
	ctx := mockContext{parent: map[string]string{"Dog": "Animal", "Cat": "Animal"}}

	if !assignable(ctx, Object("Animal"), Object("Dog")) {
		t.Fatal("a Dog should be assignable to an Animal-typed slot")
	}
	if assignable(ctx, Object("Dog"), Object("Cat")) {
		t.Fatal("a Cat should not be assignable to a Dog-typed slot")
	}

	got := join(ctx, Object("Dog"), Object("Cat"))
	if !got.equal(Object("Animal")) {
		t.Fatalf("join(Dog, Cat) = %v, want Animal", got)
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	args, ret, retOK, err := ParseMethodDescriptor("(I[Ljava/lang/String;D)Z")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if len(args) != 3 {
		t.Fatalf("len(args) = %d, want 3", len(args))
	}
	if !args[0].equal(Integer) {
		t.Fatalf("args[0] = %v, want int", args[0])
	}
	if args[1].Kind != classfile.VTObject || args[1].ClassName != "[Ljava/lang/String;" {
		t.Fatalf("args[1] = %v, want array-of-String reference", args[1])
	}
	if !args[2].equal(Double) {
		t.Fatalf("args[2] = %v, want double", args[2])
	}
	if !retOK || !ret.equal(Integer) {
		t.Fatalf("ret = %v, retOK = %v, want int/true", ret, retOK)
	}
}

func TestParseMethodDescriptorVoidReturn(t *testing.T) {
	args, _, retOK, err := ParseMethodDescriptor("()V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("len(args) = %d, want 0", len(args))
	}
	if retOK {
		t.Fatal("retOK should be false for a void return")
	}
}

func TestParseFieldDescriptorRejectsTrailingData(t *testing.T) {
	if _, err := ParseFieldDescriptor("II"); err == nil {
		t.Fatal("ParseFieldDescriptor should reject trailing data after a complete descriptor")
	}
}
