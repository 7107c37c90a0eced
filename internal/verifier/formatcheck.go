package verifier

import (
	"fmt"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// FormatCheckError reports a structural violation found by the
// constant-pool / member format-check pre-pass (JVMS §4.8, requirement 4
// and 5), run before the type-checking or inference passes.
type FormatCheckError struct {
	Detail string
}

func (e *FormatCheckError) Error() string { return "format check failed: " + e.Detail }

// formatCheck walks the already-parsed ClassFile and re-validates every
// cross-reference a .class file's binary format requires, the way a real
// loader double-checks what parsing only partially enforced. Adapted from
// the jacobin class loader's formatCheckClass/validateConstantPool, which
// walks the same checks against its own parsed-class representation.
func formatCheck(cf *classfile.ClassFile) error {
	if err := validateConstantPool(cf.ConstantPool); err != nil {
		return err
	}
	return validateMembers(cf)
}

// validateConstantPool re-resolves every entry that references another
// slot, so a dangling or wrong-tag index surfaces here rather than as a
// confusing failure deep inside the type checker.
func validateConstantPool(pool *classfile.ConstantPool) error {
	entries := pool.Entries()
	for i := 1; i < len(entries); i++ {
		entry := entries[i]
		if entry == nil {
			continue // unused second half of a Long/Double slot
		}
		switch e := entry.(type) {
		case classfile.Utf8Entry:
			if err := validateModifiedUTF8(e.Value); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d: %v", i, err)}
			}
		case classfile.ClassEntry:
			if _, err := pool.Utf8(e.NameIndex); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (Class): %v", i, err)}
			}
		case classfile.StringEntry:
			if _, err := pool.Utf8(e.StringIndex); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (String): %v", i, err)}
			}
		case classfile.NameAndTypeEntry:
			if _, err := pool.Utf8(e.NameIndex); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (NameAndType name): %v", i, err)}
			}
			if _, err := pool.Utf8(e.DescriptorIndex); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (NameAndType descriptor): %v", i, err)}
			}
		case classfile.FieldrefEntry:
			if _, err := pool.Fieldref(uint16(i)); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (Fieldref): %v", i, err)}
			}
		case classfile.MethodrefEntry:
			if _, err := pool.Methodref(uint16(i)); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (Methodref): %v", i, err)}
			}
		case classfile.InterfaceMethodrefEntry:
			if _, err := pool.InterfaceMethodref(uint16(i)); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (InterfaceMethodref): %v", i, err)}
			}
		case classfile.MethodHandleEntry:
			if e.ReferenceKind < 1 || e.ReferenceKind > 9 {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (MethodHandle): invalid reference_kind %d", i, e.ReferenceKind)}
			}
		case classfile.MethodTypeEntry:
			if _, err := pool.Utf8(e.DescriptorIndex); err != nil {
				return &FormatCheckError{Detail: fmt.Sprintf("CP entry #%d (MethodType): %v", i, err)}
			}
		}
	}
	return nil
}

// validateModifiedUTF8 enforces the two byte-level restrictions the JVM
// places on a CONSTANT_Utf8 payload beyond ordinary UTF-8: no embedded NUL,
// and no byte in 0xF0-0xFF (those would encode a 4-byte UTF-8 sequence,
// which modified UTF-8 disallows in favor of surrogate pairs).
func validateModifiedUTF8(s string) error {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == 0x00 {
			return fmt.Errorf("embedded NUL byte")
		}
		if b >= 0xF0 {
			return fmt.Errorf("byte 0x%02X outside modified UTF-8 range", b)
		}
	}
	return nil
}

// validateMembers checks that every field and method has a valid
// name/descriptor pair already resolved by the parser (the parser reads
// them as strings directly, so this pass mainly guards against an empty
// name, which is never legal for a field or method).
func validateMembers(cf *classfile.ClassFile) error {
	for i, f := range cf.Fields {
		if f.Name == "" {
			return &FormatCheckError{Detail: fmt.Sprintf("field #%d: empty name", i)}
		}
		if f.Descriptor == "" {
			return &FormatCheckError{Detail: fmt.Sprintf("field %s: empty descriptor", f.Name)}
		}
	}
	for i, m := range cf.Methods {
		if m.Name == "" {
			return &FormatCheckError{Detail: fmt.Sprintf("method #%d: empty name", i)}
		}
		if m.Descriptor == "" {
			return &FormatCheckError{Detail: fmt.Sprintf("method %s: empty descriptor", m.Name)}
		}
		if m.IsAbstract() && m.Code != nil {
			return &FormatCheckError{Detail: fmt.Sprintf("method %s%s: abstract method has a Code attribute", m.Name, m.Descriptor)}
		}
		if !m.IsAbstract() && !m.IsNative() && m.Code == nil {
			return &FormatCheckError{Detail: fmt.Sprintf("method %s%s: concrete method has no Code attribute", m.Name, m.Descriptor)}
		}
	}
	return nil
}
