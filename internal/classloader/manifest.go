package classloader

import (
	"fmt"
	"strings"
)

// Manifest is the parsed key/value bag of a META-INF/MANIFEST.MF file (spec
// §4.C "manifest()", glossary "META-INF/MANIFEST.MF is a text file of
// Key: value lines with continuation via leading spaces").
type Manifest struct {
	entries map[string]string
}

// ParseManifest parses the MANIFEST.MF grammar: "Key: value" lines, where a
// line starting with a single leading space continues the previous value
// (with the leading space itself stripped).
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{entries: make(map[string]string)}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var currentKey string
	for lineNo, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, " ") {
			if currentKey == "" {
				return nil, fmt.Errorf("manifest line %d: continuation with no preceding key", lineNo+1)
			}
			m.entries[currentKey] += line[1:]
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			return nil, fmt.Errorf("manifest line %d: missing ':' in %q", lineNo+1, line)
		}
		key := strings.TrimSpace(line[:colon])
		value := strings.TrimPrefix(line[colon+1:], " ")
		m.entries[key] = value
		currentKey = key
	}
	return m, nil
}

// Get returns the value for key and whether it was present.
func (m *Manifest) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// MainClass returns the "Main-Class" entry, if present.
func (m *Manifest) MainClass() (string, bool) {
	return m.Get("Main-Class")
}

// Entries exposes the full key/value bag, for diagnostics.
func (m *Manifest) Entries() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
