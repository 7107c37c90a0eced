package classloader

import (
	"bytes"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// Verifier is implemented by the bytecode verifier component (spec §4.B).
// ClassLoader depends on this narrow interface rather than the verifier
// package directly, so the two components can be built, tested, and
// versioned independently — the loader only ever needs "verify or fail".
type Verifier interface {
	Verify(cf *classfile.ClassFile) error
}

// ClassLoader turns a path/URL/bytes, by way of one or more Archives, into
// a cached, linked ClassFile (spec §4.C). It implements classpath
// delegation: archives are searched in registration order and the first
// hit wins.
type ClassLoader struct {
	mu       sync.RWMutex
	archives []*Archive
	classes  map[string]*classfile.ClassFile

	verifier Verifier
	log      *logrus.Logger
}

// New constructs a ClassLoader over the given archives, in search order. A
// nil verifier skips verification entirely (useful for disasm-only tools);
// a nil logger disables structured logging.
func New(verifier Verifier, log *logrus.Logger, archives ...*Archive) *ClassLoader {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &ClassLoader{
		archives: archives,
		classes:  make(map[string]*classfile.ClassFile),
		verifier: verifier,
		log:      log,
	}
}

// SetVerifier installs (or replaces) the verifier run against classes not
// yet cached. This exists for the verifier's production wiring, where a
// VerificationContext needs to query this very ClassLoader's hierarchy: the
// loader is built first with a nil verifier, a context is built referencing
// it, a Verifier is built over that context, and only then is it attached
// here — breaking what would otherwise be a construction-order cycle
// between the two packages.
func (cl *ClassLoader) SetVerifier(v Verifier) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.verifier = v
}

// AddArchive appends an archive to the end of the search order.
func (cl *ClassLoader) AddArchive(a *Archive) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.archives = append(cl.archives, a)
}

// ReadClass fetches "<name>.class" from the first archive that has it,
// parses it (spec §4.A), and verifies it (spec §4.B), caching the result
// (spec §4.C "read_class(name) -> ClassFile"). name uses '/'-separated
// internal form (e.g. "java/lang/Object").
func (cl *ClassLoader) ReadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.RLock()
	if cf, ok := cl.classes[name]; ok {
		cl.mu.RUnlock()
		return cf, nil
	}
	archives := cl.archives
	cl.mu.RUnlock()

	for _, archive := range archives {
		isModule, err := archive.IsModule()
		if err != nil {
			cl.log.WithError(err).WithField("class", name).Warn("skipping archive: failed module probe")
			continue
		}
		entryName := name
		if isModule {
			entryName = "classes/" + name
		}
		raw, ok, err := archive.ReadFile(entryName + ".class")
		if err != nil {
			return nil, &ClassFileError{Name: name, Cause: err}
		}
		if !ok {
			continue
		}

		cf, err := classfile.Read(bytes.NewReader(raw))
		if err != nil {
			return nil, &ClassFileError{Name: name, Cause: err}
		}
		if cl.verifier != nil {
			if err := cl.verifier.Verify(cf); err != nil {
				return nil, &ClassFileError{Name: name, Cause: err}
			}
		}

		cl.mu.Lock()
		cl.classes[name] = cf
		cl.mu.Unlock()

		cl.log.WithFields(logrus.Fields{"class": name, "module": isModule}).Debug("loaded class")
		return cf, nil
	}
	return nil, &ClassNotFoundError{Name: name}
}

// Loaded reports whether name is already in the resolution cache.
func (cl *ClassLoader) Loaded(name string) bool {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	_, ok := cl.classes[name]
	return ok
}
