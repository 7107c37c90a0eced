package verifier

import (
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// fakeLoader is a minimal stand-in for classloader.ClassLoader, keyed
// directly by class name to super/interfaces rather than parsing real
// bytes, enough to exercise ClassLoaderContext's hierarchy walk.
type fakeLoader struct {
	super map[string]string
	ifs   map[string][]string
}

func (f *fakeLoader) ReadClass(name string) (*classfile.ClassFile, error) {
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass(name)
	var superClass uint16
	if s, ok := f.super[name]; ok {
		superClass = pool.AddClass(s)
	}
	var ifaces []uint16
	for _, i := range f.ifs[name] {
		ifaces = append(ifaces, pool.AddClass(i))
	}
	version, err := classfile.NewVersion(52, 0)
	if err != nil {
		return nil, err
	}
	return &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Interfaces:   ifaces,
	}, nil
}

func TestClassLoaderContextIsSubclassWalksSuperchain(t *testing.T) {
	ctx := NewClassLoaderContext(&fakeLoader{
		super: map[string]string{
			"com/example/Labrador": "com/example/Dog",
			"com/example/Dog":      "com/example/Animal",
		},
	})
	if !ctx.IsSubclass("com/example/Labrador", "com/example/Animal") {
		t.Fatal("Labrador should be a transitive subclass of Animal")
	}
	if ctx.IsSubclass("com/example/Animal", "com/example/Dog") {
		t.Fatal("Animal is not a subclass of Dog")
	}
	if !ctx.IsSubclass("com/example/Dog", "java/lang/Object") {
		t.Fatal("every class should be a subclass of java/lang/Object")
	}
}

func TestClassLoaderContextIsSubclassWalksInterfaces(t *testing.T) {
	ctx := NewClassLoaderContext(&fakeLoader{
		ifs: map[string][]string{
			"com/example/ArrayList": {"com/example/List"},
			"com/example/List":      {"com/example/Collection"},
		},
	})
	if !ctx.IsSubclass("com/example/ArrayList", "com/example/Collection") {
		t.Fatal("ArrayList should transitively implement Collection")
	}
}

func TestClassLoaderContextCommonSuperclass(t *testing.T) {
	ctx := NewClassLoaderContext(&fakeLoader{
		super: map[string]string{
			"com/example/Dog": "com/example/Animal",
			"com/example/Cat": "com/example/Animal",
		},
	})
	if got := ctx.CommonSuperclass("com/example/Dog", "com/example/Cat"); got != "com/example/Animal" {
		t.Fatalf("CommonSuperclass(Dog, Cat) = %q, want Animal", got)
	}
	if got := ctx.CommonSuperclass("com/example/Dog", "com/example/Dog"); got != "com/example/Dog" {
		t.Fatalf("CommonSuperclass(Dog, Dog) = %q, want Dog (identity short-circuit)", got)
	}
}
