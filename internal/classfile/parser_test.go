package classfile

import (
	"bytes"
	"testing"
)

// buildSampleClass constructs a small but structurally complete ClassFile:
// a public class extending java/lang/Object with a single no-arg
// constructor and a SourceFile attribute.
func buildSampleClass(t *testing.T) *ClassFile {
	t.Helper()
	pool := NewConstantPool()
	thisClass := pool.AddClass("com/example/Sample")
	superClass := pool.AddClass("java/lang/Object")
	ctorRef := pool.AddMethodref("java/lang/Object", "<init>", "()V")
	sourceFileIndex := pool.AddUtf8("Sample.java")

	// Code: aload_0; invokespecial Object.<init>; return
	code := []byte{
		byte(OpAload0),
		byte(OpInvokespecial), byte(ctorRef >> 8), byte(ctorRef & 0xFF),
		byte(OpReturn),
	}
	codeRaw := new(bytes.Buffer)
	codeRaw.Write([]byte{0x00, 0x01}) // max_stack
	codeRaw.Write([]byte{0x00, 0x01}) // max_locals
	codeRaw.Write([]byte{0x00, 0x00, 0x00, byte(len(code))})
	codeRaw.Write(code)
	codeRaw.Write([]byte{0x00, 0x00}) // exception_table_length
	codeRaw.Write([]byte{0x00, 0x00}) // nested attributes_count

	version, err := NewVersion(52, 0)
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}

	sourceFileRaw := []byte{byte(sourceFileIndex >> 8), byte(sourceFileIndex & 0xFF)}

	cf := &ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  AccPublic | AccSuper,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Methods: []MethodInfo{
			{
				MemberInfo: MemberInfo{
					Name:       "<init>",
					Descriptor: "()V",
					Attributes: []Attribute{
						{
							Name: "Code",
							Raw:  codeRaw.Bytes(),
							Code: &CodeAttribute{
								MaxStack:  1,
								MaxLocals: 1,
								Code:      code,
							},
						},
					},
				},
			},
		},
		Attributes: []Attribute{
			{Name: "SourceFile", Raw: sourceFileRaw, SourceFile: &SourceFileAttribute{SourceFileIndex: sourceFileIndex}},
		},
	}
	return cf
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	original := buildSampleClass(t)

	var buf bytes.Buffer
	if err := Write(&buf, original); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Version.Major() != original.Version.Major() || got.Version.Minor() != original.Version.Minor() {
		t.Fatalf("version mismatch: got %v, want %v", got.Version, original.Version)
	}
	if got.AccessFlags != original.AccessFlags {
		t.Fatalf("access_flags mismatch: got %#x, want %#x", got.AccessFlags, original.AccessFlags)
	}

	gotName, err := got.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if gotName != "com/example/Sample" {
		t.Fatalf("ClassName = %q", gotName)
	}

	gotSuper, err := got.SuperClassName()
	if err != nil {
		t.Fatalf("SuperClassName: %v", err)
	}
	if gotSuper != "java/lang/Object" {
		t.Fatalf("SuperClassName = %q", gotSuper)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("len(Methods) = %d, want 1", len(got.Methods))
	}
	ctor := got.Methods[0]
	if ctor.Name != "<init>" || ctor.Descriptor != "()V" {
		t.Fatalf("constructor mismatch: %+v", ctor.MemberInfo)
	}
	if ctor.Code == nil {
		t.Fatal("constructor has no decoded Code attribute")
	}

	instructions, err := DecodeInstructions(ctor.Code.Code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instructions) != 3 {
		t.Fatalf("len(instructions) = %d, want 3", len(instructions))
	}
	if instructions[0].Opcode != OpAload0 {
		t.Fatalf("instructions[0].Opcode = %#x, want aload_0", instructions[0].Opcode)
	}
	if instructions[1].Opcode != OpInvokespecial {
		t.Fatalf("instructions[1].Opcode = %#x, want invokespecial", instructions[1].Opcode)
	}
	if instructions[2].Opcode != OpReturn {
		t.Fatalf("instructions[2].Opcode = %#x, want return", instructions[2].Opcode)
	}

	var found bool
	for _, attr := range got.Attributes {
		if attr.Name == "SourceFile" && attr.SourceFile != nil {
			found = true
			name, err := got.ConstantPool.Utf8(attr.SourceFile.SourceFileIndex)
			if err != nil {
				t.Fatalf("resolving SourceFile index: %v", err)
			}
			if name != "Sample.java" {
				t.Fatalf("SourceFile = %q, want Sample.java", name)
			}
		}
	}
	if !found {
		t.Fatal("SourceFile attribute missing after round trip")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 52})
	if _, err := Read(buf); err == nil {
		t.Fatal("Read should reject a bad magic number")
	} else if _, ok := err.(*InvalidMagicError); !ok {
		t.Fatalf("error = %T, want *InvalidMagicError", err)
	}
}

func TestReadRejectsTruncatedStream(t *testing.T) {
	buf := bytes.NewReader([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0})
	if _, err := Read(buf); err == nil {
		t.Fatal("Read should reject a truncated stream")
	}
}
