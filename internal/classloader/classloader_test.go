package classloader

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

func buildMinimalClassBytes(t *testing.T, name string) []byte {
	t.Helper()
	pool := classfile.NewConstantPool()
	thisClass := pool.AddClass(name)
	superClass := pool.AddClass("java/lang/Object")
	version, err := classfile.NewVersion(52, 0)
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}
	cf := &classfile.ClassFile{
		Version:      version,
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    thisClass,
		SuperClass:   superClass,
	}
	var buf bytes.Buffer
	if err := classfile.Write(&buf, cf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

func buildZipFile(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%s): %v", name, err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestClassLoaderReadClassAndCache(t *testing.T) {
	classBytes := buildMinimalClassBytes(t, "com/example/Sample")
	archiveData := buildZipFile(t, map[string][]byte{
		"com/example/Sample.class": classBytes,
	})
	archive := NewArchiveFromBytes(archiveData)
	cl := New(nil, nil, archive)

	cf, err := cl.ReadClass("com/example/Sample")
	if err != nil {
		t.Fatalf("ReadClass: %v", err)
	}
	name, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if name != "com/example/Sample" {
		t.Fatalf("ClassName = %q", name)
	}

	if !cl.Loaded("com/example/Sample") {
		t.Fatal("class should be cached after first load")
	}

	// Second call must hit the cache, not the archive again.
	cf2, err := cl.ReadClass("com/example/Sample")
	if err != nil {
		t.Fatalf("ReadClass (cached): %v", err)
	}
	if cf2 != cf {
		t.Fatal("expected the cached *ClassFile instance to be returned")
	}
}

func TestClassLoaderDelegatesAcrossArchives(t *testing.T) {
	empty := NewArchiveFromBytes(buildZipFile(t, map[string][]byte{"unrelated.txt": []byte("x")}))
	classBytes := buildMinimalClassBytes(t, "com/example/Other")
	withClass := NewArchiveFromBytes(buildZipFile(t, map[string][]byte{
		"com/example/Other.class": classBytes,
	}))

	cl := New(nil, nil, empty, withClass)
	cf, err := cl.ReadClass("com/example/Other")
	if err != nil {
		t.Fatalf("ReadClass: %v", err)
	}
	name, _ := cf.ClassName()
	if name != "com/example/Other" {
		t.Fatalf("ClassName = %q", name)
	}
}

func TestClassLoaderClassNotFound(t *testing.T) {
	archive := NewArchiveFromBytes(buildZipFile(t, map[string][]byte{"x.txt": []byte("x")}))
	cl := New(nil, nil, archive)
	if _, err := cl.ReadClass("does/not/Exist"); err == nil {
		t.Fatal("expected ClassNotFoundError")
	} else if _, ok := err.(*ClassNotFoundError); !ok {
		t.Fatalf("error = %T, want *ClassNotFoundError", err)
	}
}

type rejectEverythingVerifier struct{}

func (rejectEverythingVerifier) Verify(cf *classfile.ClassFile) error {
	return &classfile.InvalidMagicError{Got: 0}
}

func TestClassLoaderVerifierFailurePropagates(t *testing.T) {
	classBytes := buildMinimalClassBytes(t, "com/example/Rejected")
	archive := NewArchiveFromBytes(buildZipFile(t, map[string][]byte{
		"com/example/Rejected.class": classBytes,
	}))
	cl := New(rejectEverythingVerifier{}, nil, archive)

	_, err := cl.ReadClass("com/example/Rejected")
	if err == nil {
		t.Fatal("expected verification failure to propagate")
	}
	if _, ok := err.(*ClassFileError); !ok {
		t.Fatalf("error = %T, want *ClassFileError", err)
	}
	if cl.Loaded("com/example/Rejected") {
		t.Fatal("a class that failed verification must not be cached")
	}
}
