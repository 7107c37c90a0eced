package verifier

// VerifyMode selects which classes a ClassLoader's read_class pipeline
// runs the verifier against (spec §4.B).
type VerifyMode int

const (
	VerifyNone VerifyMode = iota
	VerifyRemote
	VerifyAll
)

func (m VerifyMode) String() string {
	switch m {
	case VerifyNone:
		return "none"
	case VerifyRemote:
		return "remote"
	case VerifyAll:
		return "all"
	default:
		return "unknown"
	}
}

// FallbackStrategy governs what happens when the fast (StackMapTable)
// path cannot be applied to a method.
type FallbackStrategy int

const (
	StrictTypeChecker FallbackStrategy = iota
	FallbackToInference
	InferenceOnly
)

func (s FallbackStrategy) String() string {
	switch s {
	case StrictTypeChecker:
		return "strict-type-checker"
	case FallbackToInference:
		return "fallback-to-inference"
	case InferenceOnly:
		return "inference-only"
	default:
		return "unknown"
	}
}

// Config holds the tunables spec §4.B enumerates under "Configuration".
type Config struct {
	VerifyMode       VerifyMode
	FallbackStrategy FallbackStrategy
	Verbose          bool
	Trace            bool

	// MaxInferenceIterations bounds the inference path's dataflow
	// worklist; exceeding it yields InferenceDidNotConvergeError.
	MaxInferenceIterations int

	// SystemPackagePrefixes names the '/'-separated package prefixes
	// VerifyRemote treats as trusted "system" classes and skips (spec
	// §4.B "Remote checks non-system"). A nil slice falls back to
	// defaultSystemPackagePrefixes.
	SystemPackagePrefixes []string
}

// defaultSystemPackagePrefixes are the JDK's own bootstrap packages: code
// a real deployment loads from the platform's own trusted class path
// rather than a remote/untrusted source.
var defaultSystemPackagePrefixes = []string{"java/", "javax/", "jdk/", "sun/"}

// DefaultConfig matches the defaults a production JVM loader would use:
// verify everything, fall back to inference when StackMapTable is absent.
func DefaultConfig() Config {
	return Config{
		VerifyMode:             VerifyAll,
		FallbackStrategy:       FallbackToInference,
		MaxInferenceIterations: 10000,
	}
}

// preJava6Major is the first major version (Java 6, class file version 50) at
// which javac started emitting StackMapTable attributes (spec §4.B "path
// selection", rule 1).
const preJava6Major = 50
