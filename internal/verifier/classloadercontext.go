package verifier

import "github.com/ristrettovm/ristretto/internal/classfile"

// classLoader is the narrow slice of classloader.ClassLoader this package
// needs, so verifier doesn't import internal/classloader directly — the
// same direction-reversed dependency inversion classloader.Verifier already
// uses to avoid importing internal/verifier.
type classLoader interface {
	ReadClass(name string) (*classfile.ClassFile, error)
}

// ClassLoaderContext is the production VerificationContext: it answers
// subtype queries by walking the real class hierarchy through a
// classloader, rather than objectOnlyContext's "only java/lang/Object"
// stand-in. Build it after the ClassLoader exists, then attach the
// resulting Verifier back with ClassLoader.SetVerifier.
type ClassLoaderContext struct {
	cl classLoader
}

// NewClassLoaderContext wraps cl for use as a VerificationContext.
func NewClassLoaderContext(cl classLoader) *ClassLoaderContext {
	return &ClassLoaderContext{cl: cl}
}

func (c *ClassLoaderContext) superclass(name string) (string, bool) {
	if name == "" || name == "java/lang/Object" {
		return "", false
	}
	cf, err := c.cl.ReadClass(name)
	if err != nil {
		return "", false
	}
	super, err := cf.SuperClassName()
	if err != nil || super == "" {
		return "", false
	}
	return super, true
}

func (c *ClassLoaderContext) interfaces(name string) []string {
	cf, err := c.cl.ReadClass(name)
	if err != nil {
		return nil
	}
	names, err := cf.InterfaceNames()
	if err != nil {
		return nil
	}
	return names
}

// IsSubclass reports whether sub is super, a transitive superclass of sub,
// or transitively implemented by sub.
func (c *ClassLoaderContext) IsSubclass(sub, super string) bool {
	if sub == super {
		return true
	}
	if super == "java/lang/Object" {
		return true
	}
	seen := map[string]bool{}
	var walk func(name string) bool
	walk = func(name string) bool {
		if name == "" || seen[name] {
			return false
		}
		seen[name] = true
		if name == super {
			return true
		}
		for _, iface := range c.interfaces(name) {
			if walk(iface) {
				return true
			}
		}
		if parent, ok := c.superclass(name); ok {
			return walk(parent)
		}
		return false
	}
	return walk(sub)
}

func (c *ClassLoaderContext) IsAssignable(target, source VType) bool {
	return assignable(c, target, source)
}

// CommonSuperclass walks a's superclass chain (interfaces don't factor in,
// matching JVMS 4.10.1.3's assignability rule that always bottoms out at
// java/lang/Object for unrelated classes) looking for an ancestor b is
// assignable to, falling back to java/lang/Object.
func (c *ClassLoaderContext) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	for anc, ok := a, true; ok; anc, ok = c.superclass(anc) {
		if c.IsSubclass(b, anc) {
			return anc
		}
	}
	return "java/lang/Object"
}
