package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Read consumes a big-endian class file from r and returns the parsed
// ClassFile (spec §4.A "read").
func Read(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, &TruncatedStreamError{Context: "magic", Cause: err}
	}
	if magic != Magic {
		return nil, &InvalidMagicError{Got: magic}
	}

	var minor, major uint16
	if err := binary.Read(r, binary.BigEndian, &minor); err != nil {
		return nil, &TruncatedStreamError{Context: "minor version", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &major); err != nil {
		return nil, &TruncatedStreamError{Context: "major version", Cause: err}
	}
	version, err := NewVersion(major, minor)
	if err != nil {
		return nil, err
	}
	cf.Version = version

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, &TruncatedStreamError{Context: "constant_pool_count", Cause: err}
	}
	pool, err := readConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, &TruncatedStreamError{Context: "access_flags", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, &TruncatedStreamError{Context: "this_class", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, &TruncatedStreamError{Context: "super_class", Cause: err}
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, &TruncatedStreamError{Context: "interfaces_count", Cause: err}
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, &TruncatedStreamError{Context: fmt.Sprintf("interface[%d]", i), Cause: err}
		}
	}

	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, &TruncatedStreamError{Context: "fields_count", Cause: err}
	}
	cf.Fields, err = readFields(r, pool, fieldsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}

	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, &TruncatedStreamError{Context: "methods_count", Cause: err}
	}
	cf.Methods, err = readMethods(r, pool, methodsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}

	var attrsCount uint16
	if err := binary.Read(r, binary.BigEndian, &attrsCount); err != nil {
		return nil, &TruncatedStreamError{Context: "class attributes_count", Cause: err}
	}
	cf.Attributes, err = readAttributes(r, pool, attrsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

func readConstantPool(r io.Reader, count uint16) (*ConstantPool, error) {
	entries := make([]Entry, count)
	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] tag", i), Cause: err}
		}
		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] utf8 length", i), Cause: err}
			}
			buf := make([]byte, length)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] utf8 bytes", i), Cause: err}
			}
			entries[i] = Utf8Entry{Value: string(buf)}

		case TagInteger:
			var v int32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] integer", i), Cause: err}
			}
			entries[i] = IntegerEntry{Value: v}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] float", i), Cause: err}
			}
			entries[i] = FloatEntry{Value: math.Float32frombits(bits)}

		case TagLong:
			var v int64
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] long", i), Cause: err}
			}
			entries[i] = LongEntry{Value: v}
			i++ // second slot unused

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] double", i), Cause: err}
			}
			entries[i] = DoubleEntry{Value: math.Float64frombits(bits)}
			i++ // second slot unused

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] class", i), Cause: err}
			}
			entries[i] = ClassEntry{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] string", i), Cause: err}
			}
			entries[i] = StringEntry{StringIndex: stringIndex}

		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] ref class_index", i), Cause: err}
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] ref nat_index", i), Cause: err}
			}
			switch tag {
			case TagFieldref:
				entries[i] = FieldrefEntry{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
			case TagMethodref:
				entries[i] = MethodrefEntry{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
			default:
				entries[i] = InterfaceMethodrefEntry{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
			}

		case TagNameAndType:
			var nameIndex, descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] nat name", i), Cause: err}
			}
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] nat descriptor", i), Cause: err}
			}
			entries[i] = NameAndTypeEntry{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var kind uint8
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] methodhandle kind", i), Cause: err}
			}
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] methodhandle ref", i), Cause: err}
			}
			entries[i] = MethodHandleEntry{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] methodtype", i), Cause: err}
			}
			entries[i] = MethodTypeEntry{DescriptorIndex: descIndex}

		case TagDynamic, TagInvokeDynamic:
			var bsmIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &bsmIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] dynamic bsm", i), Cause: err}
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] dynamic nat", i), Cause: err}
			}
			if tag == TagDynamic {
				entries[i] = DynamicEntry{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}
			} else {
				entries[i] = InvokeDynamicEntry{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}
			}

		case TagModule:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] module", i), Cause: err}
			}
			entries[i] = ModuleEntry{NameIndex: nameIndex}

		case TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, &TruncatedStreamError{Context: fmt.Sprintf("cp[%d] package", i), Cause: err}
			}
			entries[i] = PackageEntry{NameIndex: nameIndex}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}
	return entriesFromSlice(entries), nil
}

func readFields(r io.Reader, pool *ConstantPool, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := range fields {
		member, err := readMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("field[%d]: %w", i, err)
		}
		f := FieldInfo{MemberInfo: member}
		for j := range f.Attributes {
			if f.Attributes[j].Name == "ConstantValue" && len(f.Attributes[j].Raw) >= 2 {
				idx := uint16(f.Attributes[j].Raw[0])<<8 | uint16(f.Attributes[j].Raw[1])
				entry, err := pool.Get(idx)
				if err == nil {
					f.ConstantValue = &entry
				}
			}
		}
		fields[i] = f
	}
	return fields, nil
}

func readMethods(r io.Reader, pool *ConstantPool, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := range methods {
		member, err := readMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("method[%d]: %w", i, err)
		}
		m := MethodInfo{MemberInfo: member}
		for j := range m.Attributes {
			if m.Attributes[j].Name == "Code" {
				m.Code = m.Attributes[j].Code
			}
		}
		methods[i] = m
	}
	return methods, nil
}

func readMember(r io.Reader, pool *ConstantPool) (MemberInfo, error) {
	var accessFlags, nameIndex, descIndex, attrCount uint16
	if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
		return MemberInfo{}, &TruncatedStreamError{Context: "member access_flags", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
		return MemberInfo{}, &TruncatedStreamError{Context: "member name_index", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
		return MemberInfo{}, &TruncatedStreamError{Context: "member descriptor_index", Cause: err}
	}
	if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
		return MemberInfo{}, &TruncatedStreamError{Context: "member attributes_count", Cause: err}
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return MemberInfo{}, fmt.Errorf("resolving member name: %w", err)
	}
	desc, err := pool.Utf8(descIndex)
	if err != nil {
		return MemberInfo{}, fmt.Errorf("resolving member descriptor: %w", err)
	}
	attrs, err := readAttributes(r, pool, attrCount)
	if err != nil {
		return MemberInfo{}, fmt.Errorf("member %s attributes: %w", name, err)
	}
	return MemberInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}, nil
}

func readAttributes(r io.Reader, pool *ConstantPool, count uint16) ([]Attribute, error) {
	attrs := make([]Attribute, count)
	for i := range attrs {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, &TruncatedStreamError{Context: fmt.Sprintf("attribute[%d] name_index", i), Cause: err}
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, &TruncatedStreamError{Context: fmt.Sprintf("attribute[%d] length", i), Cause: err}
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, &TruncatedStreamError{Context: fmt.Sprintf("attribute[%d] data", i), Cause: err}
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			// Unknown name index: keep the raw bytes, name left empty.
			attrs[i] = Attribute{Raw: data}
			continue
		}
		attrs[i] = decodeAttribute(name, data, pool)
	}
	return attrs, nil
}

func decodeAttribute(name string, data []byte, pool *ConstantPool) Attribute {
	attr := Attribute{Name: name, Raw: data}
	switch name {
	case "Code":
		if code, err := parseCodeAttribute(data, pool); err == nil {
			attr.Code = code
		}
	case "StackMapTable":
		if smt, err := parseStackMapTable(data); err == nil {
			attr.StackMapTable = smt
		}
	case "SourceFile":
		if len(data) >= 2 {
			attr.SourceFile = &SourceFileAttribute{SourceFileIndex: uint16(data[0])<<8 | uint16(data[1])}
		}
	case "BootstrapMethods":
		if bm, err := parseBootstrapMethods(data); err == nil {
			attr.BootstrapMethods = bm
		}
	case "LineNumberTable":
		if lnt, err := parseLineNumberTable(data); err == nil {
			attr.LineNumberTable = lnt
		}
	case "Exceptions":
		if ex, err := parseExceptions(data); err == nil {
			attr.Exceptions = ex
		}
	}
	return attr
}

func parseCodeAttribute(data []byte, pool *ConstantPool) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}
	r := bytes.NewReader(data)
	var maxStack, maxLocals uint16
	var codeLength uint32
	binary.Read(r, binary.BigEndian, &maxStack)
	binary.Read(r, binary.BigEndian, &maxLocals)
	if err := binary.Read(r, binary.BigEndian, &codeLength); err != nil {
		return nil, err
	}
	code := make([]byte, codeLength)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, fmt.Errorf("Code attribute: reading %d code bytes: %w", codeLength, err)
	}

	var exTableLen uint16
	if err := binary.Read(r, binary.BigEndian, &exTableLen); err != nil {
		return nil, err
	}
	handlers := make([]ExceptionHandler, exTableLen)
	for i := range handlers {
		var h ExceptionHandler
		binary.Read(r, binary.BigEndian, &h.StartPC)
		binary.Read(r, binary.BigEndian, &h.EndPC)
		binary.Read(r, binary.BigEndian, &h.HandlerPC)
		if err := binary.Read(r, binary.BigEndian, &h.CatchType); err != nil {
			return nil, err
		}
		handlers[i] = h
	}

	var attrCount uint16
	if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
		return nil, err
	}
	attrs, err := readAttributes(r, pool, attrCount)
	if err != nil {
		return nil, fmt.Errorf("Code nested attributes: %w", err)
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
		Attributes:        attrs,
	}, nil
}

func parseVerificationType(r *bytes.Reader) (VerificationType, error) {
	var tag uint8
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		return VerificationType{}, err
	}
	switch tag {
	case 0:
		return VerificationType{Kind: VTTop}, nil
	case 1:
		return VerificationType{Kind: VTInteger}, nil
	case 2:
		return VerificationType{Kind: VTFloat}, nil
	case 3:
		return VerificationType{Kind: VTDouble}, nil
	case 4:
		return VerificationType{Kind: VTLong}, nil
	case 5:
		return VerificationType{Kind: VTNull}, nil
	case 6:
		return VerificationType{Kind: VTUninitializedThis}, nil
	case 7:
		var classIndex uint16
		if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
			return VerificationType{}, err
		}
		return VerificationType{Kind: VTObject, ClassIndex: classIndex}, nil
	case 8:
		var offset uint16
		if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
			return VerificationType{}, err
		}
		return VerificationType{Kind: VTUninitialized, NewOffset: offset}, nil
	default:
		return VerificationType{}, fmt.Errorf("unknown verification type tag %d", tag)
	}
}

func parseStackMapTable(data []byte) (*StackMapTableAttribute, error) {
	r := bytes.NewReader(data)
	var numEntries uint16
	if err := binary.Read(r, binary.BigEndian, &numEntries); err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, 0, numEntries)
	for i := 0; i < int(numEntries); i++ {
		var frameType uint8
		if err := binary.Read(r, binary.BigEndian, &frameType); err != nil {
			return nil, err
		}
		var f StackMapFrame
		switch {
		case frameType <= 63:
			f.Kind = FrameSame
			f.OffsetDelta = uint16(frameType)
		case frameType <= 127:
			f.Kind = FrameSameLocals1StackItem
			f.OffsetDelta = uint16(frameType - 64)
			vt, err := parseVerificationType(r)
			if err != nil {
				return nil, err
			}
			f.Stack = []VerificationType{vt}
		case frameType >= 247 && frameType <= 247:
			f.Kind = FrameSameLocals1StackItem
			if err := binary.Read(r, binary.BigEndian, &f.OffsetDelta); err != nil {
				return nil, err
			}
			vt, err := parseVerificationType(r)
			if err != nil {
				return nil, err
			}
			f.Stack = []VerificationType{vt}
		case frameType >= 248 && frameType <= 250:
			f.Kind = FrameChop
			f.ChopCount = int(251 - frameType)
			if err := binary.Read(r, binary.BigEndian, &f.OffsetDelta); err != nil {
				return nil, err
			}
		case frameType == 251:
			f.Kind = FrameSameExtended
			if err := binary.Read(r, binary.BigEndian, &f.OffsetDelta); err != nil {
				return nil, err
			}
		case frameType >= 252 && frameType <= 254:
			f.Kind = FrameAppend
			if err := binary.Read(r, binary.BigEndian, &f.OffsetDelta); err != nil {
				return nil, err
			}
			n := int(frameType - 251)
			f.Locals = make([]VerificationType, n)
			for j := 0; j < n; j++ {
				vt, err := parseVerificationType(r)
				if err != nil {
					return nil, err
				}
				f.Locals[j] = vt
			}
		case frameType == 255:
			f.Kind = FrameFull
			if err := binary.Read(r, binary.BigEndian, &f.OffsetDelta); err != nil {
				return nil, err
			}
			var numLocals uint16
			if err := binary.Read(r, binary.BigEndian, &numLocals); err != nil {
				return nil, err
			}
			f.Locals = make([]VerificationType, numLocals)
			for j := range f.Locals {
				vt, err := parseVerificationType(r)
				if err != nil {
					return nil, err
				}
				f.Locals[j] = vt
			}
			var numStack uint16
			if err := binary.Read(r, binary.BigEndian, &numStack); err != nil {
				return nil, err
			}
			f.Stack = make([]VerificationType, numStack)
			for j := range f.Stack {
				vt, err := parseVerificationType(r)
				if err != nil {
					return nil, err
				}
				f.Stack[j] = vt
			}
		default:
			return nil, fmt.Errorf("reserved StackMapTable frame type %d", frameType)
		}
		frames = append(frames, f)
	}
	return &StackMapTableAttribute{Frames: frames}, nil
}

func parseBootstrapMethods(data []byte) (*BootstrapMethodsAttribute, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, count)
	for i := range methods {
		var methodRef, numArgs uint16
		if err := binary.Read(r, binary.BigEndian, &methodRef); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &numArgs); err != nil {
			return nil, err
		}
		args := make([]uint16, numArgs)
		for j := range args {
			if err := binary.Read(r, binary.BigEndian, &args[j]); err != nil {
				return nil, err
			}
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, Arguments: args}
	}
	return &BootstrapMethodsAttribute{Methods: methods}, nil
}

func parseLineNumberTable(data []byte) (*LineNumberTableAttribute, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, count)
	for i := range entries {
		if err := binary.Read(r, binary.BigEndian, &entries[i].StartPC); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &entries[i].LineNumber); err != nil {
			return nil, err
		}
	}
	return &LineNumberTableAttribute{Entries: entries}, nil
}

func parseExceptions(data []byte) (*ExceptionsAttribute, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	table := make([]uint16, count)
	for i := range table {
		if err := binary.Read(r, binary.BigEndian, &table[i]); err != nil {
			return nil, err
		}
	}
	return &ExceptionsAttribute{ExceptionIndexTable: table}, nil
}
