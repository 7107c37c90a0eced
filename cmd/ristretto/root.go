package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ristrettovm/ristretto/internal/classloader"
	"github.com/ristrettovm/ristretto/internal/gc"
	"github.com/ristrettovm/ristretto/internal/intrinsics"
	"github.com/ristrettovm/ristretto/internal/verifier"
	"github.com/ristrettovm/ristretto/internal/vm"
)

// config holds the tunables every subcommand builds its engine from (spec's
// expanded AMBIENT STACK section: "verifier mode, fallback strategy,
// inference iteration ceiling, trace/verbose flags, classpath, bootstrap
// archive path"), built from flags and environment variables the way
// cmd/gojvm/main.go's findJmodPath cascade builds a single path.
type config struct {
	classpath string
	bootstrap string

	verifyMode       verifier.VerifyMode
	fallbackStrategy verifier.FallbackStrategy
	maxInferenceIter int
	trace            bool
	verbose          bool
}

// findBootstrapPath generalizes the teacher's findJmodPath cascade
// (explicit flag, checked by the caller before this runs → env var →
// JAVA_HOME → glob fallback) to also accept a plain .jar/.jmod classpath
// entry, since Ristretto's bootstrap archive need not be a real JDK jmod.
func findBootstrapPath() string {
	if env := os.Getenv("RISTRETTO_BOOTSTRAP"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "ristretto",
		Short: "A from-scratch JVM execution engine",
		Long: "ristretto loads, verifies, and runs JVM class files: " +
			"run a class's main method, run the verifier alone, or " +
			"disassemble a class's constant pool and bytecode.",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.classpath, "classpath", ".", "directory to search for user classes")
	flags.StringVar(&cfg.bootstrap, "bootstrap", "", "bootstrap archive (jmod/jar) providing java.lang.*; defaults to $RISTRETTO_BOOTSTRAP, then $JAVA_HOME, then a system glob")
	flags.Var(verifyModeFlag{&cfg.verifyMode}, "verify-mode", "verification mode: none, remote, all")
	flags.Var(fallbackFlag{&cfg.fallbackStrategy}, "fallback", "verifier fallback strategy: strict-type-checker, fallback-to-inference, inference-only")
	flags.IntVar(&cfg.maxInferenceIter, "max-inference-iterations", 10000, "dataflow worklist ceiling for the inference verification path")
	flags.BoolVar(&cfg.trace, "trace", false, "log every verifier instruction step")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug-level logging")

	cfg.verifyMode = verifier.VerifyAll
	cfg.fallbackStrategy = verifier.FallbackToInference

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newVerifyCmd(cfg))
	root.AddCommand(newDisasmCmd(cfg))
	return root
}

func (cfg *config) logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func (cfg *config) verifierConfig() verifier.Config {
	return verifier.Config{
		VerifyMode:             cfg.verifyMode,
		FallbackStrategy:       cfg.fallbackStrategy,
		Verbose:                cfg.verbose,
		Trace:                  cfg.trace,
		MaxInferenceIterations: cfg.maxInferenceIter,
	}
}

// buildClassLoader wires a classloader.ClassLoader over the bootstrap
// archive, a verifier attached against its own class hierarchy (breaking
// the construction-order cycle the same way classloader.ClassLoader.SetVerifier's
// doc comment describes), and a DirLoader over cfg.classpath delegating to
// it — the directory-of-loose-.class-files analogue of the teacher's
// UserClassLoader-over-JmodClassLoader pair.
func (cfg *config) buildClassLoader(log *logrus.Logger) (*classloader.DirLoader, error) {
	bootstrap := cfg.bootstrap
	if bootstrap == "" {
		bootstrap = findBootstrapPath()
	}

	cl := classloader.New(nil, log)
	if bootstrap != "" {
		cl.AddArchive(classloader.NewArchiveFromPath(bootstrap))
	} else {
		log.Warn("no bootstrap archive found; java.lang.* classes will fail to resolve (set --bootstrap, $RISTRETTO_BOOTSTRAP, or $JAVA_HOME)")
	}

	if cfg.verifyMode != verifier.VerifyNone {
		ctx := verifier.NewClassLoaderContext(cl)
		v := verifier.New(cfg.verifierConfig(), ctx, log)
		cl.SetVerifier(v)
	}

	return classloader.NewDirLoader(cfg.classpath, cl, log), nil
}

// buildVM wires the collector and VM over dl. Intrinsics are attached
// separately once the main class's classfile major version is known (spec
// §6's per-release binding admission needs that version), via
// intrinsicsFor and vm.VM.Intrinsics.
func (cfg *config) buildVM(dl *classloader.DirLoader, log *logrus.Logger, stdout *os.File) *vm.VM {
	return vm.New(dl, gc.NewCollector(log), nil, stdout, log)
}

// intrinsicsFor builds a version-gated registry once the main class's
// classfile major version is known (registry.New admits a binding only if
// its VersionSpec accepts that release, spec §6 "admission shapes").
func intrinsicsFor(major int) *intrinsics.Registry {
	return intrinsics.New(major)
}

func className(arg string) string {
	name := arg
	if filepath.Ext(name) == ".class" {
		name = name[:len(name)-len(".class")]
	}
	return name
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
