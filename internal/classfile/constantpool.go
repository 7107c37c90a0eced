package classfile

// Constant pool tags, per the JVM specification.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref           uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// Entry is implemented by every constant pool entry kind.
type Entry interface {
	Tag() uint8
}

type Utf8Entry struct{ Value string }

func (Utf8Entry) Tag() uint8 { return TagUtf8 }

type IntegerEntry struct{ Value int32 }

func (IntegerEntry) Tag() uint8 { return TagInteger }

type FloatEntry struct{ Value float32 }

func (FloatEntry) Tag() uint8 { return TagFloat }

type LongEntry struct{ Value int64 }

func (LongEntry) Tag() uint8 { return TagLong }

type DoubleEntry struct{ Value float64 }

func (DoubleEntry) Tag() uint8 { return TagDouble }

type ClassEntry struct{ NameIndex uint16 }

func (ClassEntry) Tag() uint8 { return TagClass }

type StringEntry struct{ StringIndex uint16 }

func (StringEntry) Tag() uint8 { return TagString }

type FieldrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (FieldrefEntry) Tag() uint8 { return TagFieldref }

type MethodrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (MethodrefEntry) Tag() uint8 { return TagMethodref }

type InterfaceMethodrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (InterfaceMethodrefEntry) Tag() uint8 { return TagInterfaceMethodref }

type NameAndTypeEntry struct{ NameIndex, DescriptorIndex uint16 }

func (NameAndTypeEntry) Tag() uint8 { return TagNameAndType }

type MethodHandleEntry struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (MethodHandleEntry) Tag() uint8 { return TagMethodHandle }

type MethodTypeEntry struct{ DescriptorIndex uint16 }

func (MethodTypeEntry) Tag() uint8 { return TagMethodType }

type DynamicEntry struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (DynamicEntry) Tag() uint8 { return TagDynamic }

type InvokeDynamicEntry struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (InvokeDynamicEntry) Tag() uint8 { return TagInvokeDynamic }

type ModuleEntry struct{ NameIndex uint16 }

func (ModuleEntry) Tag() uint8 { return TagModule }

type PackageEntry struct{ NameIndex uint16 }

func (PackageEntry) Tag() uint8 { return TagPackage }

// ConstantPool is the ordered, 1-indexed sequence of constant pool entries.
// Index 0 is a reserved nil sentinel; the second slot of a Long/Double entry
// is also nil (the "unused" slot mandated by the class file format).
type ConstantPool struct {
	entries []Entry
}

// NewConstantPool creates an empty pool with the reserved index-0 sentinel.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: make([]Entry, 1)}
}

// Len returns the number of slots, including the reserved index-0 slot and
// unused second slots of wide (Long/Double) entries. This is the value
// serialized as constant_pool_count.
func (p *ConstantPool) Len() int { return len(p.entries) }

// Get returns the entry at index, or an error if the index is 0, out of
// range, or unoccupied.
func (p *ConstantPool) Get(index uint16) (Entry, error) {
	if index == 0 || int(index) >= len(p.entries) || p.entries[index] == nil {
		return nil, &InvalidConstantPoolIndexError{Index: index}
	}
	return p.entries[index], nil
}

// raw appends an entry (or, for Long/Double, an entry plus an unused
// second slot) and returns its index.
func (p *ConstantPool) raw(e Entry) uint16 {
	index := uint16(len(p.entries))
	p.entries = append(p.entries, e)
	if e.Tag() == TagLong || e.Tag() == TagDouble {
		p.entries = append(p.entries, nil)
	}
	return index
}

// Utf8 resolves the Utf8 string at index.
func (p *ConstantPool) Utf8(index uint16) (string, error) {
	e, err := p.Get(index)
	if err != nil {
		return "", err
	}
	u, ok := e.(Utf8Entry)
	if !ok {
		return "", &InvalidConstantPoolIndexError{Index: index, WantedTag: "Utf8", ActualKind: kindName(e)}
	}
	return u.Value, nil
}

// ClassName resolves the name referenced by a CONSTANT_Class entry.
func (p *ConstantPool) ClassName(classIndex uint16) (string, error) {
	e, err := p.Get(classIndex)
	if err != nil {
		return "", err
	}
	c, ok := e.(ClassEntry)
	if !ok {
		return "", &InvalidConstantPoolIndexError{Index: classIndex, WantedTag: "Class", ActualKind: kindName(e)}
	}
	return p.Utf8(c.NameIndex)
}

// NameAndType resolves a CONSTANT_NameAndType entry into (name, descriptor).
func (p *ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	e, err := p.Get(index)
	if err != nil {
		return "", "", err
	}
	nat, ok := e.(NameAndTypeEntry)
	if !ok {
		return "", "", &InvalidConstantPoolIndexError{Index: index, WantedTag: "NameAndType", ActualKind: kindName(e)}
	}
	name, err = p.Utf8(nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.Utf8(nat.DescriptorIndex)
	return name, descriptor, err
}

// MemberRef is the resolved {class, name, descriptor} triple shared by
// Fieldref/Methodref/InterfaceMethodref entries.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (p *ConstantPool) resolveMemberRef(index uint16, classIndex, natIndex uint16) (MemberRef, error) {
	className, err := p.ClassName(classIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, descriptor, err := p.NameAndType(natIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{ClassName: className, Name: name, Descriptor: descriptor}, nil
}

// Fieldref resolves a CONSTANT_Fieldref entry.
func (p *ConstantPool) Fieldref(index uint16) (MemberRef, error) {
	e, err := p.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	f, ok := e.(FieldrefEntry)
	if !ok {
		return MemberRef{}, &InvalidConstantPoolIndexError{Index: index, WantedTag: "Fieldref", ActualKind: kindName(e)}
	}
	return p.resolveMemberRef(index, f.ClassIndex, f.NameAndTypeIndex)
}

// Methodref resolves a CONSTANT_Methodref entry.
func (p *ConstantPool) Methodref(index uint16) (MemberRef, error) {
	e, err := p.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	m, ok := e.(MethodrefEntry)
	if !ok {
		return MemberRef{}, &InvalidConstantPoolIndexError{Index: index, WantedTag: "Methodref", ActualKind: kindName(e)}
	}
	return p.resolveMemberRef(index, m.ClassIndex, m.NameAndTypeIndex)
}

// InterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func (p *ConstantPool) InterfaceMethodref(index uint16) (MemberRef, error) {
	e, err := p.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	m, ok := e.(InterfaceMethodrefEntry)
	if !ok {
		return MemberRef{}, &InvalidConstantPoolIndexError{Index: index, WantedTag: "InterfaceMethodref", ActualKind: kindName(e)}
	}
	return p.resolveMemberRef(index, m.ClassIndex, m.NameAndTypeIndex)
}

func kindName(e Entry) string {
	if e == nil {
		return "nil"
	}
	switch e.(type) {
	case Utf8Entry:
		return "Utf8"
	case IntegerEntry:
		return "Integer"
	case FloatEntry:
		return "Float"
	case LongEntry:
		return "Long"
	case DoubleEntry:
		return "Double"
	case ClassEntry:
		return "Class"
	case StringEntry:
		return "String"
	case FieldrefEntry:
		return "Fieldref"
	case MethodrefEntry:
		return "Methodref"
	case InterfaceMethodrefEntry:
		return "InterfaceMethodref"
	case NameAndTypeEntry:
		return "NameAndType"
	case MethodHandleEntry:
		return "MethodHandle"
	case MethodTypeEntry:
		return "MethodType"
	case DynamicEntry:
		return "Dynamic"
	case InvokeDynamicEntry:
		return "InvokeDynamic"
	case ModuleEntry:
		return "Module"
	case PackageEntry:
		return "Package"
	default:
		return "unknown"
	}
}

// --- Deduplicating add* operations (spec §4.A "ConstantPool.addXxx") ---

// AddUtf8 adds (or finds an existing) Utf8 entry with the given value.
func (p *ConstantPool) AddUtf8(value string) uint16 {
	for i := 1; i < len(p.entries); i++ {
		if u, ok := p.entries[i].(Utf8Entry); ok && u.Value == value {
			return uint16(i)
		}
	}
	return p.raw(Utf8Entry{Value: value})
}

// AddInteger adds (or finds an existing) Integer entry.
func (p *ConstantPool) AddInteger(value int32) uint16 {
	for i := 1; i < len(p.entries); i++ {
		if c, ok := p.entries[i].(IntegerEntry); ok && c.Value == value {
			return uint16(i)
		}
	}
	return p.raw(IntegerEntry{Value: value})
}

// AddFloat adds (or finds an existing) Float entry.
func (p *ConstantPool) AddFloat(value float32) uint16 {
	for i := 1; i < len(p.entries); i++ {
		if c, ok := p.entries[i].(FloatEntry); ok && c.Value == value {
			return uint16(i)
		}
	}
	return p.raw(FloatEntry{Value: value})
}

// AddLong adds a Long entry, consuming two slots.
func (p *ConstantPool) AddLong(value int64) uint16 {
	for i := 1; i < len(p.entries); i++ {
		if c, ok := p.entries[i].(LongEntry); ok && c.Value == value {
			return uint16(i)
		}
	}
	return p.raw(LongEntry{Value: value})
}

// AddDouble adds a Double entry, consuming two slots.
func (p *ConstantPool) AddDouble(value float64) uint16 {
	for i := 1; i < len(p.entries); i++ {
		if c, ok := p.entries[i].(DoubleEntry); ok && c.Value == value {
			return uint16(i)
		}
	}
	return p.raw(DoubleEntry{Value: value})
}

// AddClass adds (or finds) a CONSTANT_Class entry for the named class.
func (p *ConstantPool) AddClass(name string) uint16 {
	nameIndex := p.AddUtf8(name)
	for i := 1; i < len(p.entries); i++ {
		if c, ok := p.entries[i].(ClassEntry); ok && c.NameIndex == nameIndex {
			return uint16(i)
		}
	}
	return p.raw(ClassEntry{NameIndex: nameIndex})
}

// AddString adds (or finds) a CONSTANT_String entry wrapping value.
func (p *ConstantPool) AddString(value string) uint16 {
	stringIndex := p.AddUtf8(value)
	for i := 1; i < len(p.entries); i++ {
		if s, ok := p.entries[i].(StringEntry); ok && s.StringIndex == stringIndex {
			return uint16(i)
		}
	}
	return p.raw(StringEntry{StringIndex: stringIndex})
}

// AddNameAndType adds (or finds) a CONSTANT_NameAndType entry.
func (p *ConstantPool) AddNameAndType(name, descriptor string) uint16 {
	nameIndex := p.AddUtf8(name)
	descIndex := p.AddUtf8(descriptor)
	for i := 1; i < len(p.entries); i++ {
		if n, ok := p.entries[i].(NameAndTypeEntry); ok && n.NameIndex == nameIndex && n.DescriptorIndex == descIndex {
			return uint16(i)
		}
	}
	return p.raw(NameAndTypeEntry{NameIndex: nameIndex, DescriptorIndex: descIndex})
}

// AddMethodref adds (or finds) a CONSTANT_Methodref entry.
func (p *ConstantPool) AddMethodref(className, name, descriptor string) uint16 {
	classIndex := p.AddClass(className)
	natIndex := p.AddNameAndType(name, descriptor)
	for i := 1; i < len(p.entries); i++ {
		if m, ok := p.entries[i].(MethodrefEntry); ok && m.ClassIndex == classIndex && m.NameAndTypeIndex == natIndex {
			return uint16(i)
		}
	}
	return p.raw(MethodrefEntry{ClassIndex: classIndex, NameAndTypeIndex: natIndex})
}

// AddFieldref adds (or finds) a CONSTANT_Fieldref entry.
func (p *ConstantPool) AddFieldref(className, name, descriptor string) uint16 {
	classIndex := p.AddClass(className)
	natIndex := p.AddNameAndType(name, descriptor)
	for i := 1; i < len(p.entries); i++ {
		if m, ok := p.entries[i].(FieldrefEntry); ok && m.ClassIndex == classIndex && m.NameAndTypeIndex == natIndex {
			return uint16(i)
		}
	}
	return p.raw(FieldrefEntry{ClassIndex: classIndex, NameAndTypeIndex: natIndex})
}

// Entries exposes the raw slot slice for iteration (e.g. by the writer and
// the format checker). Index 0 and wide-entry second slots are nil.
func (p *ConstantPool) Entries() []Entry { return p.entries }

// entriesFromSlice wraps a pre-built slice (used by the parser, which must
// place entries at exact parsed indices before dedup bookkeeping matters).
func entriesFromSlice(entries []Entry) *ConstantPool {
	return &ConstantPool{entries: entries}
}
