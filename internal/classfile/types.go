package classfile

// Magic is the required first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// Access flags (the subset referenced by the verifier and execution engine).
const (
	AccPublic     uint16 = 0x0001
	AccPrivate    uint16 = 0x0002
	AccProtected  uint16 = 0x0004
	AccStatic     uint16 = 0x0008
	AccFinal      uint16 = 0x0010
	AccSuper      uint16 = 0x0020
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccSynthetic  uint16 = 0x1000
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
	AccNative     uint16 = 0x0100
	AccSynchronized uint16 = 0x0020
	AccVolatile   uint16 = 0x0040
)

// ClassFile is the aggregate parsed/serialized representation of a .class
// file (spec §3 "ClassFile").
type ClassFile struct {
	Version      Version
	ConstantPool *ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []Attribute
}

// ClassName returns the fully qualified name of this class, dereferencing
// this_class through the constant pool.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.ConstantPool.ClassName(cf.ThisClass)
}

// SuperClassName returns the super class name, or "" for java/lang/Object
// (super_class == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.ConstantPool.ClassName(cf.SuperClass)
}

// InterfaceNames resolves every declared interface index to a name, in
// declaration order.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := cf.ConstantPool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// FindMethod finds a method by exact name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by exact name and descriptor.
func (cf *ClassFile) FindField(name, descriptor string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name && cf.Fields[i].Descriptor == descriptor {
			return &cf.Fields[i]
		}
	}
	return nil
}

// MemberInfo is the shared shape of FieldInfo and MethodInfo.
type MemberInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	MemberInfo
	ConstantValue *Entry // non-nil for "static final" fields with a ConstantValue attribute
}

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	MemberInfo
	Code *CodeAttribute // nil for abstract/native methods
}

// IsStatic, IsNative, IsAbstract report on MethodInfo's access flags.
func (m *MethodInfo) IsStatic() bool   { return m.AccessFlags&AccStatic != 0 }
func (m *MethodInfo) IsNative() bool   { return m.AccessFlags&AccNative != 0 }
func (m *MethodInfo) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }
func (m *MethodInfo) IsPrivate() bool  { return m.AccessFlags&AccPrivate != 0 }

// Attribute is a tagged union over the known attribute kinds, keyed by a
// UTF-8 name in the constant pool (spec §3 "Attribute"). Unknown attributes
// round-trip as opaque bytes via Raw.
type Attribute struct {
	Name string

	Code             *CodeAttribute
	StackMapTable    *StackMapTableAttribute
	SourceFile       *SourceFileAttribute
	BootstrapMethods *BootstrapMethodsAttribute
	LineNumberTable  *LineNumberTableAttribute
	Exceptions       *ExceptionsAttribute

	// Raw holds the undecoded bytes for attributes not listed above, and is
	// also populated (alongside the typed field) for known attributes so
	// the writer never needs to re-derive length-prefixed encoding rules
	// it didn't originally decode.
	Raw []byte
}

// CodeAttribute is the Code attribute of a method: max-stack, max-locals,
// bytecode, exception table, and nested attributes (spec §3 "Attribute").
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	Attributes        []Attribute
}

// ExceptionHandler is one entry of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means "catch all" (finally)
}

// SourceFileAttribute names the source file a class was compiled from.
type SourceFileAttribute struct {
	SourceFileIndex uint16
}

// BootstrapMethod is one entry of a BootstrapMethods attribute, used to
// resolve invokedynamic call sites (bootstrapping itself is out of scope
// per spec §1 Non-goals; the table is retained for completeness).
type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

// BootstrapMethodsAttribute holds the class-level bootstrap method table.
type BootstrapMethodsAttribute struct {
	Methods []BootstrapMethod
}

// LineNumberTableAttribute maps bytecode offsets to source line numbers.
type LineNumberTableAttribute struct {
	Entries []LineNumberEntry
}

// LineNumberEntry is one (bytecode offset, source line) pair.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// ExceptionsAttribute lists the checked exception classes a method may
// throw, by constant pool Class index.
type ExceptionsAttribute struct {
	ExceptionIndexTable []uint16
}
