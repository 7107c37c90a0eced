package classloader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirLoaderReadsLooseClassFile(t *testing.T) {
	dir := t.TempDir()
	classBytes := buildMinimalClassBytes(t, "com/example/Sample")
	if err := os.MkdirAll(filepath.Join(dir, "com/example"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "com/example/Sample.class"), classBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	dl := NewDirLoader(dir, nil, nil)
	cf, err := dl.ReadClass("com/example/Sample")
	if err != nil {
		t.Fatalf("ReadClass: %v", err)
	}
	name, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if name != "com/example/Sample" {
		t.Errorf("ClassName() = %q, want com/example/Sample", name)
	}

	// second read comes from the cache, not the filesystem.
	if err := os.Remove(filepath.Join(dir, "com/example/Sample.class")); err != nil {
		t.Fatal(err)
	}
	if _, err := dl.ReadClass("com/example/Sample"); err != nil {
		t.Fatalf("cached ReadClass: %v", err)
	}
}

func TestDirLoaderPrefersParentOverDirectory(t *testing.T) {
	dir := t.TempDir()
	classBytes := buildMinimalClassBytes(t, "java/lang/Object")
	if err := os.MkdirAll(filepath.Join(dir, "java/lang"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "java/lang/Object.class"), classBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	parentBytes := buildMinimalClassBytes(t, "java/lang/Object")
	archive := NewArchiveFromBytes(mustZip(t, map[string][]byte{"java/lang/Object.class": parentBytes}))
	parent := New(nil, nil, archive)

	dl := NewDirLoader(dir, parent, nil)
	if _, err := dl.ReadClass("java/lang/Object"); err != nil {
		t.Fatalf("ReadClass should resolve through parent: %v", err)
	}
	if !parent.Loaded("java/lang/Object") {
		t.Fatal("parent did not load java/lang/Object; the directory copy was used instead")
	}
}

func TestDirLoaderNotFound(t *testing.T) {
	dl := NewDirLoader(t.TempDir(), nil, nil)
	if _, err := dl.ReadClass("does/not/Exist"); err == nil {
		t.Fatal("expected ClassNotFoundError")
	} else if _, ok := err.(*ClassNotFoundError); !ok {
		t.Fatalf("err = %v (%T), want *ClassNotFoundError", err, err)
	}
}

func mustZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	return buildZipFile(t, files)
}
