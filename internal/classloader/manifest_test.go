package classloader

import "testing"

func TestParseManifestBasic(t *testing.T) {
	data := []byte("Manifest-Version: 1.0\nMain-Class: com.example.Main\n")
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	mc, ok := m.MainClass()
	if !ok || mc != "com.example.Main" {
		t.Fatalf("MainClass() = %q, %v; want com.example.Main, true", mc, ok)
	}
	v, ok := m.Get("Manifest-Version")
	if !ok || v != "1.0" {
		t.Fatalf("Get(Manifest-Version) = %q, %v", v, ok)
	}
}

func TestParseManifestContinuationLine(t *testing.T) {
	data := []byte("Class-Path: lib/a.jar lib/b.j\n ar lib/c.jar\n")
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	cp, ok := m.Get("Class-Path")
	if !ok {
		t.Fatal("Class-Path missing")
	}
	want := "lib/a.jar lib/b.jar lib/c.jar"
	if cp != want {
		t.Fatalf("Class-Path = %q, want %q", cp, want)
	}
}

func TestParseManifestMissingColon(t *testing.T) {
	if _, err := ParseManifest([]byte("not a valid line")); err == nil {
		t.Fatal("expected an error for a line without ':'")
	}
}
