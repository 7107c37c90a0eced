package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/ristrettovm/ristretto/internal/verifier"
)

var (
	_ pflag.Value = verifyModeFlag{}
	_ pflag.Value = fallbackFlag{}
)

// verifyModeFlag adapts verifier.VerifyMode to pflag.Value so --verify-mode
// only ever lands on one of the three real modes (spec §4.B), rather than
// a loose string the caller must re-parse and validate by hand.
type verifyModeFlag struct {
	mode *verifier.VerifyMode
}

func (f verifyModeFlag) String() string {
	if f.mode == nil {
		return verifier.VerifyAll.String()
	}
	return f.mode.String()
}

func (f verifyModeFlag) Set(s string) error {
	switch s {
	case "none":
		*f.mode = verifier.VerifyNone
	case "remote":
		*f.mode = verifier.VerifyRemote
	case "all":
		*f.mode = verifier.VerifyAll
	default:
		return fmt.Errorf("invalid --verify-mode %q: want one of none, remote, all", s)
	}
	return nil
}

func (f verifyModeFlag) Type() string { return "verifyMode" }

// fallbackFlag adapts verifier.FallbackStrategy to pflag.Value the same way.
type fallbackFlag struct {
	strategy *verifier.FallbackStrategy
}

func (f fallbackFlag) String() string {
	if f.strategy == nil {
		return verifier.FallbackToInference.String()
	}
	return f.strategy.String()
}

func (f fallbackFlag) Set(s string) error {
	switch s {
	case "strict-type-checker":
		*f.strategy = verifier.StrictTypeChecker
	case "fallback-to-inference":
		*f.strategy = verifier.FallbackToInference
	case "inference-only":
		*f.strategy = verifier.InferenceOnly
	default:
		return fmt.Errorf("invalid --fallback %q: want one of strict-type-checker, fallback-to-inference, inference-only", s)
	}
	return nil
}

func (f fallbackFlag) Type() string { return "fallbackStrategy" }
