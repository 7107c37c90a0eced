package verifier

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// Path identifies which algorithm verified a method, returned to callers
// per spec §4.B "Results ... callers can exploit this for telemetry and
// for the fallback decision on sibling methods".
type Path int

const (
	PathFast Path = iota
	PathInference
)

func (p Path) String() string {
	if p == PathFast {
		return "fast"
	}
	return "inference"
}

// Verifier runs the bytecode verifier over a ClassFile's methods (spec
// §4.B). It implements classloader.Verifier structurally, so a
// *Verifier can be passed straight to classloader.New.
type Verifier struct {
	Config  Config
	Context VerificationContext
	log     *logrus.Logger
}

// New builds a Verifier. A nil context defaults to objectOnlyContext,
// which only ever considers java/lang/Object assignable — adequate for
// classes with no interesting hierarchy, but callers with a real
// classpath should supply a classloader-backed context instead.
func New(cfg Config, ctx VerificationContext, log *logrus.Logger) *Verifier {
	if ctx == nil {
		ctx = objectOnlyContext{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Verifier{Config: cfg, Context: ctx, log: log}
}

// isSystemClass reports whether className falls under one of the
// trusted system package prefixes VerifyRemote exempts from verification
// (spec §4.B "Remote checks non-system"), falling back to
// defaultSystemPackagePrefixes when Config.SystemPackagePrefixes is unset.
func (v *Verifier) isSystemClass(className string) bool {
	prefixes := v.Config.SystemPackagePrefixes
	if prefixes == nil {
		prefixes = defaultSystemPackagePrefixes
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(className, prefix) {
			return true
		}
	}
	return false
}

// objectOnlyContext is the minimal VerificationContext: every reference
// type is only assignable to itself or java/lang/Object.
type objectOnlyContext struct{}

func (objectOnlyContext) IsSubclass(sub, super string) bool {
	return sub == super || super == "java/lang/Object"
}
func (objectOnlyContext) IsAssignable(target, source VType) bool {
	return assignable(objectOnlyContext{}, target, source)
}
func (objectOnlyContext) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	return "java/lang/Object"
}

// Verify runs format-checking and per-method verification over cf,
// honoring Config.VerifyMode. It is the method classloader.Verifier
// requires.
func (v *Verifier) Verify(cf *classfile.ClassFile) error {
	if v.Config.VerifyMode == VerifyNone {
		return nil
	}
	if err := formatCheck(cf); err != nil {
		return err
	}
	className, err := cf.ClassName()
	if err != nil {
		return err
	}
	if v.Config.VerifyMode == VerifyRemote && v.isSystemClass(className) {
		v.log.WithField("class", className).Debug("skipping verification of trusted system class")
		return nil
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Code == nil {
			continue // abstract or native: nothing to verify
		}
		path, err := v.VerifyMethod(cf, className, m)
		if err != nil {
			return err
		}
		v.log.WithFields(logrus.Fields{
			"class": className, "method": m.Name + m.Descriptor, "path": path.String(),
		}).Debug("verified method")
	}
	return nil
}

// VerifyMethod runs path selection (spec §4.B "Path selection") and then
// the chosen algorithm over a single method, returning which path ran.
func (v *Verifier) VerifyMethod(cf *classfile.ClassFile, className string, m *classfile.MethodInfo) (Path, error) {
	args, ret, retOK, err := ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return 0, err
	}

	var smt *classfile.StackMapTableAttribute
	for _, a := range m.Code.Attributes {
		if a.StackMapTable != nil {
			smt = a.StackMapTable
			break
		}
	}

	instrs, err := classfile.DecodeInstructions(m.Code.Code)
	if err != nil {
		return 0, err
	}

	mv := &methodVerifier{
		cf: cf, pool: cf.ConstantPool, className: className, method: m,
		args: args, ret: ret, retOK: retOK, ctx: v.Context, cfg: v.Config,
	}
	if v.Config.Trace {
		mv.trace = NewTrace(true)
	}

	major := cf.Version.Major()
	switch {
	case major < preJava6Major:
		return PathInference, mv.runInference(instrs)
	case smt != nil:
		return PathFast, mv.runFastPath(instrs, smt)
	case v.Config.FallbackStrategy != StrictTypeChecker:
		return PathInference, mv.runInference(instrs)
	default:
		return 0, &MissingStackMapTableError{Method: className + "#" + m.Name + m.Descriptor}
	}
}
