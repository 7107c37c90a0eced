package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Write serializes a ClassFile back to its binary form (spec §4.A "write"),
// satisfying the round-trip invariant Read(Write(cf)) == cf.
//
// Attributes are re-emitted from their Raw bytes rather than re-encoded from
// their typed field: Raw is populated at parse time for every attribute,
// known or not (see Attribute's doc comment), so writing it back verbatim is
// both simpler and exact by construction. The typed fields exist for readers
// (the verifier, the disassembler) that want structure without re-parsing.
func Write(w io.Writer, cf *ClassFile) error {
	if err := binary.Write(w, binary.BigEndian, Magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, cf.Version.Minor()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, cf.Version.Major()); err != nil {
		return err
	}

	// writeMember and writeAttribute look names up with AddUtf8; register
	// them before the pool is emitted so every index written later is in range.
	names := func(m MemberInfo) []Attribute {
		cf.ConstantPool.AddUtf8(m.Name)
		cf.ConstantPool.AddUtf8(m.Descriptor)
		return m.Attributes
	}
	attrs := append([]Attribute(nil), cf.Attributes...)
	for i := range cf.Fields {
		attrs = append(attrs, names(cf.Fields[i].MemberInfo)...)
	}
	for i := range cf.Methods {
		attrs = append(attrs, names(cf.Methods[i].MemberInfo)...)
	}
	for _, a := range attrs {
		cf.ConstantPool.AddUtf8(a.Name)
	}

	if err := writeConstantPool(w, cf.ConstantPool); err != nil {
		return fmt.Errorf("writing constant pool: %w", err)
	}

	if err := binary.Write(w, binary.BigEndian, cf.AccessFlags); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, cf.ThisClass); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, cf.SuperClass); err != nil {
		return err
	}

	if err := writeU16Count(w, "interfaces", len(cf.Interfaces)); err != nil {
		return err
	}
	for _, idx := range cf.Interfaces {
		if err := binary.Write(w, binary.BigEndian, idx); err != nil {
			return err
		}
	}

	if err := writeU16Count(w, "fields", len(cf.Fields)); err != nil {
		return err
	}
	for i := range cf.Fields {
		if err := writeMember(w, cf.ConstantPool, cf.Fields[i].MemberInfo); err != nil {
			return fmt.Errorf("writing field[%d]: %w", i, err)
		}
	}

	if err := writeU16Count(w, "methods", len(cf.Methods)); err != nil {
		return err
	}
	for i := range cf.Methods {
		if err := writeMember(w, cf.ConstantPool, cf.Methods[i].MemberInfo); err != nil {
			return fmt.Errorf("writing method[%d]: %w", i, err)
		}
	}

	if err := writeAttributes(w, cf.ConstantPool, cf.Attributes); err != nil {
		return fmt.Errorf("writing class attributes: %w", err)
	}
	return nil
}

func writeU16Count(w io.Writer, context string, n int) error {
	if n > 0xFFFF {
		return &TooManyEntriesError{Context: context, Count: n}
	}
	return binary.Write(w, binary.BigEndian, uint16(n))
}

func writeConstantPool(w io.Writer, pool *ConstantPool) error {
	if err := writeU16Count(w, "constant pool", pool.Len()); err != nil {
		return err
	}
	entries := pool.Entries()
	for i := 1; i < len(entries); i++ {
		e := entries[i]
		if e == nil {
			continue // unused second slot of a preceding Long/Double
		}
		if err := binary.Write(w, binary.BigEndian, e.Tag()); err != nil {
			return err
		}
		if err := writeConstantPoolBody(w, e); err != nil {
			return fmt.Errorf("cp[%d]: %w", i, err)
		}
	}
	return nil
}

func writeConstantPoolBody(w io.Writer, e Entry) error {
	switch v := e.(type) {
	case Utf8Entry:
		b := []byte(v.Value)
		if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	case IntegerEntry:
		return binary.Write(w, binary.BigEndian, v.Value)
	case FloatEntry:
		return binary.Write(w, binary.BigEndian, math.Float32bits(v.Value))
	case LongEntry:
		return binary.Write(w, binary.BigEndian, v.Value)
	case DoubleEntry:
		return binary.Write(w, binary.BigEndian, math.Float64bits(v.Value))
	case ClassEntry:
		return binary.Write(w, binary.BigEndian, v.NameIndex)
	case StringEntry:
		return binary.Write(w, binary.BigEndian, v.StringIndex)
	case FieldrefEntry:
		return writeU16Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case MethodrefEntry:
		return writeU16Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case InterfaceMethodrefEntry:
		return writeU16Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case NameAndTypeEntry:
		return writeU16Pair(w, v.NameIndex, v.DescriptorIndex)
	case MethodHandleEntry:
		if err := binary.Write(w, binary.BigEndian, v.ReferenceKind); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v.ReferenceIndex)
	case MethodTypeEntry:
		return binary.Write(w, binary.BigEndian, v.DescriptorIndex)
	case DynamicEntry:
		return writeU16Pair(w, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case InvokeDynamicEntry:
		return writeU16Pair(w, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case ModuleEntry:
		return binary.Write(w, binary.BigEndian, v.NameIndex)
	case PackageEntry:
		return binary.Write(w, binary.BigEndian, v.NameIndex)
	default:
		return fmt.Errorf("unwritable constant pool entry: %T", e)
	}
}

func writeU16Pair(w io.Writer, a, b uint16) error {
	if err := binary.Write(w, binary.BigEndian, a); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, b)
}

func writeMember(w io.Writer, pool *ConstantPool, m MemberInfo) error {
	if err := binary.Write(w, binary.BigEndian, m.AccessFlags); err != nil {
		return err
	}
	nameIndex := pool.AddUtf8(m.Name)
	if err := binary.Write(w, binary.BigEndian, nameIndex); err != nil {
		return err
	}
	descIndex := pool.AddUtf8(m.Descriptor)
	if err := binary.Write(w, binary.BigEndian, descIndex); err != nil {
		return err
	}
	return writeAttributes(w, pool, m.Attributes)
}

func writeAttributes(w io.Writer, pool *ConstantPool, attrs []Attribute) error {
	if err := writeU16Count(w, "attributes", len(attrs)); err != nil {
		return err
	}
	for i := range attrs {
		if err := writeAttribute(w, pool, attrs[i]); err != nil {
			return fmt.Errorf("attribute[%d] %q: %w", i, attrs[i].Name, err)
		}
	}
	return nil
}

func writeAttribute(w io.Writer, pool *ConstantPool, attr Attribute) error {
	// An attribute with no name (a malformed name_index that failed to
	// resolve at parse time, or a hand-built Attribute left unnamed) has
	// nothing sane to re-emit.
	if attr.Name == "" {
		return fmt.Errorf("attribute has no name")
	}
	nameIndex := pool.AddUtf8(attr.Name)
	if err := binary.Write(w, binary.BigEndian, nameIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(attr.Raw))); err != nil {
		return err
	}
	_, err := w.Write(attr.Raw)
	return err
}
