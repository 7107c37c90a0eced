package verifier

import (
	"fmt"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// VType is the verifier's own rendering of a StackMapTable verification
// type (classfile.VerificationType), with the Object/Uninitialized class
// reference already resolved to a name so the rest of the package never
// has to thread a *classfile.ConstantPool through join/assignability
// checks.
type VType struct {
	Kind      classfile.VerificationTypeKind
	ClassName string // valid when Kind == VTObject
	NewOffset int    // valid when Kind == VTUninitialized
}

var (
	Top               = VType{Kind: classfile.VTTop}
	Integer           = VType{Kind: classfile.VTInteger}
	Float             = VType{Kind: classfile.VTFloat}
	Long              = VType{Kind: classfile.VTLong}
	Double            = VType{Kind: classfile.VTDouble}
	Null              = VType{Kind: classfile.VTNull}
	UninitializedThis = VType{Kind: classfile.VTUninitializedThis}
)

// Object returns the verification type for a reference of the named class.
func Object(className string) VType {
	return VType{Kind: classfile.VTObject, ClassName: className}
}

// Uninitialized returns the verification type for an object mid-construction,
// tagged with the offset of the `new` instruction that created it.
func Uninitialized(newOffset int) VType {
	return VType{Kind: classfile.VTUninitialized, NewOffset: newOffset}
}

func (t VType) String() string {
	switch t.Kind {
	case classfile.VTTop:
		return "top"
	case classfile.VTInteger:
		return "int"
	case classfile.VTFloat:
		return "float"
	case classfile.VTLong:
		return "long"
	case classfile.VTDouble:
		return "double"
	case classfile.VTNull:
		return "null"
	case classfile.VTUninitializedThis:
		return "uninitializedThis"
	case classfile.VTObject:
		return fmt.Sprintf("object(%s)", t.ClassName)
	case classfile.VTUninitialized:
		return fmt.Sprintf("uninitialized(@%d)", t.NewOffset)
	default:
		return "?"
	}
}

// IsCategory2 reports whether this type occupies two adjacent slots
// (spec §4.B "Category-2 discipline").
func (t VType) IsCategory2() bool {
	return t.Kind == classfile.VTLong || t.Kind == classfile.VTDouble
}

// IsReference reports whether t denotes a reference-typed slot (including
// null and not-yet-initialized objects).
func (t VType) IsReference() bool {
	switch t.Kind {
	case classfile.VTObject, classfile.VTNull, classfile.VTUninitialized, classfile.VTUninitializedThis:
		return true
	default:
		return false
	}
}

func (t VType) equal(o VType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case classfile.VTObject:
		return t.ClassName == o.ClassName
	case classfile.VTUninitialized:
		return t.NewOffset == o.NewOffset
	default:
		return true
	}
}

// ResolveVerificationType turns a decoded classfile.VerificationType (which
// carries a raw constant-pool class index) into a VType with the class name
// already resolved, so downstream code never touches the pool again.
func ResolveVerificationType(pool *classfile.ConstantPool, vt classfile.VerificationType) (VType, error) {
	switch vt.Kind {
	case classfile.VTObject:
		name, err := pool.ClassName(vt.ClassIndex)
		if err != nil {
			return VType{}, err
		}
		return Object(name), nil
	case classfile.VTUninitialized:
		return Uninitialized(int(vt.NewOffset)), nil
	default:
		return VType{Kind: vt.Kind}, nil
	}
}

// assignable implements spec §4.B's "width, Object subtyping, Null ⊑ any
// reference" rule, falling back to the context for Object/Object pairs.
func assignable(ctx VerificationContext, target, source VType) bool {
	if target.equal(source) {
		return true
	}
	if source.Kind == classfile.VTNull && target.IsReference() {
		return true
	}
	if target.Kind == classfile.VTObject && source.Kind == classfile.VTObject {
		return ctx.IsSubclass(source.ClassName, target.ClassName)
	}
	return false
}

// join computes the least-upper-bound of two verification types at a
// control-flow merge point (spec §4.B "Inference path"). Top absorbs any
// pair that cannot be reconciled.
func join(ctx VerificationContext, a, b VType) VType {
	if a.equal(b) {
		return a
	}
	if a.Kind == classfile.VTTop || b.Kind == classfile.VTTop {
		return Top
	}
	if a.Kind == classfile.VTNull && b.IsReference() {
		return b
	}
	if b.Kind == classfile.VTNull && a.IsReference() {
		return a
	}
	if a.Kind == classfile.VTObject && b.Kind == classfile.VTObject {
		return Object(ctx.CommonSuperclass(a.ClassName, b.ClassName))
	}
	return Top
}
