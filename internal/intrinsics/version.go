// Package intrinsics is Ristretto's native-method registry (spec §6
// "Intrinsic method keys" / §1 "intrinsic method bodies are external
// collaborators"). It implements vm.Intrinsics so internal/vm can dispatch
// native calls without importing this package back — the registry depends
// on vm.Thread/vm.Value, vm would otherwise have to import intrinsics to
// call it, and intrinsics already has to import vm for those types, so the
// dependency only works pointed one way.
package intrinsics

// specKind distinguishes the six admission shapes spec §6 names for
// gating a binding's registration by Java release number.
type specKind int

const (
	specAny specKind = iota
	specLessThanOrEqual
	specGreaterThanOrEqual
	specEqual
	specBetween
	specGreaterThan
)

// VersionSpec gates whether a binding is registered for a given Java
// release number (8, 11, 17, 21, 25, ...), per spec §6's six admission
// shapes.
type VersionSpec struct {
	kind specKind
	a, b int
}

func Any() VersionSpec                        { return VersionSpec{kind: specAny} }
func LessThanOrEqual(v int) VersionSpec        { return VersionSpec{kind: specLessThanOrEqual, a: v} }
func GreaterThanOrEqual(v int) VersionSpec     { return VersionSpec{kind: specGreaterThanOrEqual, a: v} }
func Equal(v int) VersionSpec                  { return VersionSpec{kind: specEqual, a: v} }
func Between(a, b int) VersionSpec             { return VersionSpec{kind: specBetween, a: a, b: b} }
func GreaterThan(v int) VersionSpec            { return VersionSpec{kind: specGreaterThan, a: v} }

// Admits reports whether release satisfies the spec.
func (s VersionSpec) Admits(release int) bool {
	switch s.kind {
	case specAny:
		return true
	case specLessThanOrEqual:
		return release <= s.a
	case specGreaterThanOrEqual:
		return release >= s.a
	case specEqual:
		return release == s.a
	case specBetween:
		return release >= s.a && release <= s.b
	case specGreaterThan:
		return release > s.a
	default:
		return false
	}
}

// javaRelease maps a classfile major version to the Java release number
// whose intrinsic table governs it (spec §6: "For V >= 69 -> Java25,
// >= 65 -> Java21, >= 61 -> Java17, >= 55 -> Java11, else Java8").
func javaRelease(classfileMajor int) int {
	switch {
	case classfileMajor >= 69:
		return 25
	case classfileMajor >= 65:
		return 21
	case classfileMajor >= 61:
		return 17
	case classfileMajor >= 55:
		return 11
	default:
		return 8
	}
}
