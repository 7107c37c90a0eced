package verifier

// VerificationContext is the subtype oracle the verifier is parameterized
// over (spec §4.B "Subtype oracle"). Decoupling verification from a fully
// materialized class hierarchy lets tests inject mock hierarchies instead
// of loading real JDK classes.
type VerificationContext interface {
	// IsSubclass reports whether sub is super or a (transitive) subclass
	// of super.
	IsSubclass(sub, super string) bool

	// IsAssignable reports whether a value of kind source may be used
	// where kind target is expected (width match plus Object subtyping
	// and Null ⊑ any reference).
	IsAssignable(target, source VType) bool

	// CommonSuperclass returns the nearest common ancestor of a and b,
	// used when two control-flow edges merge with different static
	// types on the same stack/local slot.
	CommonSuperclass(a, b string) string
}
