package classfile

import "fmt"

// VerificationTypeKind enumerates the verification-type lattice elements
// used both in the StackMapTable wire format and by the verifier (spec §3
// "Frame (verifier)").
type VerificationTypeKind uint8

const (
	VTTop VerificationTypeKind = iota
	VTInteger
	VTFloat
	VTDouble
	VTLong
	VTNull
	VTUninitializedThis
	VTObject
	VTUninitialized
)

// VerificationType is one element of a StackMapTable frame's locals/stack
// vector. Object carries a constant-pool Class index; Uninitialized carries
// the bytecode offset of the `new` instruction that created the object.
type VerificationType struct {
	Kind        VerificationTypeKind
	ClassIndex  uint16 // valid when Kind == VTObject
	NewOffset   uint16 // valid when Kind == VTUninitialized
}

func (t VerificationType) String() string {
	switch t.Kind {
	case VTTop:
		return "top"
	case VTInteger:
		return "int"
	case VTFloat:
		return "float"
	case VTDouble:
		return "double"
	case VTLong:
		return "long"
	case VTNull:
		return "null"
	case VTUninitializedThis:
		return "uninitializedThis"
	case VTObject:
		return fmt.Sprintf("object(#%d)", t.ClassIndex)
	case VTUninitialized:
		return fmt.Sprintf("uninitialized(@%d)", t.NewOffset)
	default:
		return "?"
	}
}

// IsCategory2 reports whether this type occupies two adjacent slots.
func (t VerificationType) IsCategory2() bool {
	return t.Kind == VTLong || t.Kind == VTDouble
}

// StackMapFrameKind enumerates the StackMapTable frame encodings (JVMS §4.7.4).
type StackMapFrameKind int

const (
	FrameSame StackMapFrameKind = iota
	FrameSameLocals1StackItem
	FrameChop
	FrameSameExtended
	FrameAppend
	FrameFull
)

// StackMapFrame is one decoded entry of a StackMapTable attribute. OffsetDelta
// is the raw wire delta; the verifier accumulates it into an absolute
// bytecode offset as it walks the table (spec §4.B "anchors ... applied
// cumulatively").
type StackMapFrame struct {
	Kind          StackMapFrameKind
	OffsetDelta   uint16
	ChopCount     int                 // FrameChop: number of locals removed
	Locals        []VerificationType  // FrameAppend (new locals only), FrameFull (entire vector)
	Stack         []VerificationType  // FrameSameLocals1StackItem (1 item), FrameFull (entire stack)
}

// StackMapTableAttribute is the sequence of stack-map frames a method's
// Code attribute carries (spec §3 "Attribute", §4.B "anchors").
type StackMapTableAttribute struct {
	Frames []StackMapFrame
}
