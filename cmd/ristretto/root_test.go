package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindBootstrapPathPrefersEnvVar(t *testing.T) {
	dir := t.TempDir()
	jmod := filepath.Join(dir, "java.base.jmod")
	if err := os.WriteFile(jmod, []byte("JM"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RISTRETTO_BOOTSTRAP", jmod)
	t.Setenv("JAVA_HOME", "")

	if got := findBootstrapPath(); got != jmod {
		t.Errorf("findBootstrapPath() = %q, want %q", got, jmod)
	}
}

func TestFindBootstrapPathFallsBackToJavaHome(t *testing.T) {
	dir := t.TempDir()
	jmodDir := filepath.Join(dir, "jmods")
	if err := os.MkdirAll(jmodDir, 0o755); err != nil {
		t.Fatal(err)
	}
	jmod := filepath.Join(jmodDir, "java.base.jmod")
	if err := os.WriteFile(jmod, []byte("JM"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RISTRETTO_BOOTSTRAP", "")
	t.Setenv("JAVA_HOME", dir)

	if got := findBootstrapPath(); got != jmod {
		t.Errorf("findBootstrapPath() = %q, want %q", got, jmod)
	}
}

func TestFindBootstrapPathEmptyWhenNothingFound(t *testing.T) {
	t.Setenv("RISTRETTO_BOOTSTRAP", "")
	t.Setenv("JAVA_HOME", t.TempDir())

	if got := findBootstrapPath(); got != "" {
		t.Errorf("findBootstrapPath() = %q, want empty", got)
	}
}
