package classloader

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
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

func TestArchiveReadFile(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"hello.txt": []byte("hello world"),
	})
	a := NewArchiveFromBytes(data)

	got, ok, err := a.ReadFile("hello.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !ok || string(got) != "hello world" {
		t.Fatalf("ReadFile = %q, %v; want %q, true", got, ok, "hello world")
	}

	_, ok, err = a.ReadFile("missing.txt")
	if err != nil {
		t.Fatalf("ReadFile(missing): %v", err)
	}
	if ok {
		t.Fatal("ReadFile(missing.txt) should report ok=false")
	}
}

func TestArchiveIsModuleFalseWithoutMarker(t *testing.T) {
	data := buildZip(t, map[string][]byte{"README": []byte("x")})
	a := NewArchiveFromBytes(data)
	isModule, err := a.IsModule()
	if err != nil {
		t.Fatalf("IsModule: %v", err)
	}
	if isModule {
		t.Fatal("archive without classes/module-info.class should not be a module")
	}
}

func TestArchiveIsModuleTrueWithMarker(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"classes/module-info.class": []byte{0xCA, 0xFE, 0xBA, 0xBE},
	})
	a := NewArchiveFromBytes(data)
	isModule, err := a.IsModule()
	if err != nil {
		t.Fatalf("IsModule: %v", err)
	}
	if !isModule {
		t.Fatal("archive with classes/module-info.class should be a module")
	}
}

func TestArchiveManifest(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\nMain-Class: App\n"),
	})
	a := NewArchiveFromBytes(data)
	m, err := a.Manifest()
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	mc, ok := m.MainClass()
	if !ok || mc != "App" {
		t.Fatalf("MainClass = %q, %v", mc, ok)
	}
}

func TestArchiveManifestMissing(t *testing.T) {
	data := buildZip(t, map[string][]byte{"x.txt": []byte("x")})
	a := NewArchiveFromBytes(data)
	if _, err := a.Manifest(); err == nil {
		t.Fatal("expected FileNotFoundError when manifest is absent")
	}
}
