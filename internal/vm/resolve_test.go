package vm

import (
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// fakeClassLoader is a minimal classLoader stand-in, the same shape as
// internal/verifier's fakeLoader: real ClassFiles built in memory, keyed by
// name, enough to exercise resolveDepthFirst's superclass/interface walk
// without parsing actual .class bytes.
type fakeClassLoader struct {
	classes map[string]*classfile.ClassFile
}

func (f *fakeClassLoader) ReadClass(name string) (*classfile.ClassFile, error) {
	cf, ok := f.classes[name]
	if !ok {
		return nil, newThrowable("java/lang/ClassNotFoundException", "%s", name)
	}
	return cf, nil
}

func newFakeClass(t *testing.T, name, super string, ifaces []string, methods map[string]uint16) *classfile.ClassFile {
	t.Helper()
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass(name)
	var superClass uint16
	if super != "" {
		superClass = pool.AddClass(super)
	}
	var ifaceIdx []uint16
	for _, i := range ifaces {
		ifaceIdx = append(ifaceIdx, pool.AddClass(i))
	}
	version, err := classfile.NewVersion(52, 0)
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}
	cf := &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		ThisClass:    thisClass,
		SuperClass:   superClass,
		Interfaces:   ifaceIdx,
	}
	for methodName, flags := range methods {
		cf.Methods = append(cf.Methods, classfile.MethodInfo{
			MemberInfo: classfile.MemberInfo{
				AccessFlags: flags,
				Name:        methodName,
				Descriptor:  "()V",
			},
		})
	}
	return cf
}

func TestResolveVirtualFindsOverrideOnSubclass(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Animal": newFakeClass(t, "com/example/Animal", "", nil, map[string]uint16{"speak": classfile.AccPublic}),
		"com/example/Dog":     newFakeClass(t, "com/example/Dog", "com/example/Animal", nil, map[string]uint16{"speak": classfile.AccPublic}),
	}}
	r, err := ResolveVirtual(loader, "com/example/Dog", "speak", "()V")
	if err != nil {
		t.Fatalf("ResolveVirtual: %v", err)
	}
	className, _ := r.Class.ClassName()
	if className != "com/example/Dog" {
		t.Fatalf("resolved to %s, want com/example/Dog (override should win over inherited)", className)
	}
}

func TestResolveVirtualInheritsWhenNotOverridden(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Animal": newFakeClass(t, "com/example/Animal", "", nil, map[string]uint16{"speak": classfile.AccPublic}),
		"com/example/Dog":     newFakeClass(t, "com/example/Dog", "com/example/Animal", nil, nil),
	}}
	r, err := ResolveVirtual(loader, "com/example/Dog", "speak", "()V")
	if err != nil {
		t.Fatalf("ResolveVirtual: %v", err)
	}
	className, _ := r.Class.ClassName()
	if className != "com/example/Animal" {
		t.Fatalf("resolved to %s, want com/example/Animal (inherited)", className)
	}
}

func TestResolveVirtualRejectsStatic(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Util": newFakeClass(t, "com/example/Util", "", nil, map[string]uint16{"helper": classfile.AccPublic | classfile.AccStatic}),
	}}
	if _, err := ResolveVirtual(loader, "com/example/Util", "helper", "()V"); err == nil {
		t.Fatal("invokevirtual against a static method should fail with IncompatibleClassChangeError")
	}
}

func TestResolveInterfaceDispatchesAgainstRuntimeClass(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Shape":   newFakeClass(t, "com/example/Shape", "", nil, map[string]uint16{"area": classfile.AccPublic | classfile.AccAbstract}),
		"com/example/Circle":  newFakeClass(t, "com/example/Circle", "", []string{"com/example/Shape"}, map[string]uint16{"area": classfile.AccPublic}),
	}}
	r, err := ResolveInterface(loader, "com/example/Shape", "com/example/Circle", "area", "()V")
	if err != nil {
		t.Fatalf("ResolveInterface: %v", err)
	}
	className, _ := r.Class.ClassName()
	if className != "com/example/Circle" {
		t.Fatalf("resolved to %s, want com/example/Circle", className)
	}
}

func TestResolveStaticRejectsInstanceMethod(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Thing": newFakeClass(t, "com/example/Thing", "", nil, map[string]uint16{"go": classfile.AccPublic}),
	}}
	if _, err := ResolveStatic(loader, "com/example/Thing", "go", "()V"); err == nil {
		t.Fatal("invokestatic against an instance method should fail")
	}
}

func TestIsSubclassWalksInterfacesAndSuperclass(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/ArrayList": newFakeClass(t, "com/example/ArrayList", "", []string{"com/example/List"}, nil),
		"com/example/List":      newFakeClass(t, "com/example/List", "", nil, nil),
	}}
	if !isSubclass(loader, "com/example/ArrayList", "com/example/List") {
		t.Fatal("ArrayList should be a subclass of List via its declared interface")
	}
	if !isSubclass(loader, "com/example/ArrayList", "java/lang/Object") {
		t.Fatal("every class is a subclass of java/lang/Object")
	}
	if isSubclass(loader, "com/example/List", "com/example/ArrayList") {
		t.Fatal("List should not be a subclass of ArrayList")
	}
}

func TestResolveMethodNotFound(t *testing.T) {
	loader := &fakeClassLoader{classes: map[string]*classfile.ClassFile{
		"com/example/Empty": newFakeClass(t, "com/example/Empty", "", nil, nil),
	}}
	if _, err := ResolveVirtual(loader, "com/example/Empty", "missing", "()V"); err == nil {
		t.Fatal("resolving a method that doesn't exist anywhere in the hierarchy should fail")
	} else if th, ok := err.(*Throwable); !ok || th.ClassName != "java/lang/NoSuchMethodError" {
		t.Fatalf("error = %v, want NoSuchMethodError", err)
	}
}
