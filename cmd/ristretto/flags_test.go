package main

import (
	"testing"

	"github.com/ristrettovm/ristretto/internal/verifier"
)

func TestVerifyModeFlagSet(t *testing.T) {
	var mode verifier.VerifyMode
	f := verifyModeFlag{&mode}

	for _, tc := range []struct {
		in   string
		want verifier.VerifyMode
	}{
		{"none", verifier.VerifyNone},
		{"remote", verifier.VerifyRemote},
		{"all", verifier.VerifyAll},
	} {
		if err := f.Set(tc.in); err != nil {
			t.Fatalf("Set(%q): %v", tc.in, err)
		}
		if mode != tc.want {
			t.Errorf("Set(%q) = %v, want %v", tc.in, mode, tc.want)
		}
	}

	if err := f.Set("bogus"); err == nil {
		t.Error("Set(\"bogus\") should reject an unrecognized mode")
	}
}

func TestFallbackFlagSet(t *testing.T) {
	var strategy verifier.FallbackStrategy
	f := fallbackFlag{&strategy}

	if err := f.Set("inference-only"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if strategy != verifier.InferenceOnly {
		t.Errorf("strategy = %v, want InferenceOnly", strategy)
	}
	if err := f.Set("bogus"); err == nil {
		t.Error("Set(\"bogus\") should reject an unrecognized strategy")
	}
}

func TestClassNameStripsSuffix(t *testing.T) {
	if got := className("Main.class"); got != "Main" {
		t.Errorf("className(%q) = %q, want %q", "Main.class", got, "Main")
	}
	if got := className("com/example/Main"); got != "com/example/Main" {
		t.Errorf("className(%q) = %q, want unchanged", "com/example/Main", got)
	}
}
