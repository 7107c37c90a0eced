package verifier

import (
	"fmt"
	"strings"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// Diagnostic carries the context a verification failure needs to be
// debuggable: which class/method, where, what was expected, and a snapshot
// of the frame at the point of failure (spec §4.B "Diagnostics").
type Diagnostic struct {
	ClassName        string
	MethodName       string
	MethodDescriptor string
	PC               int

	Instruction string
	PreFrame    *FrameSnapshot
	Expected    []VType
	Actual      []VType
	Message     string
	Notes       []string
}

// FrameSnapshot is a locals+stack snapshot taken for a Diagnostic.
type FrameSnapshot struct {
	Locals []VType
	Stack  []VType
}

func snapshotOf(f *Frame) *FrameSnapshot {
	return &FrameSnapshot{
		Locals: append([]VType(nil), f.Locals...),
		Stack:  append([]VType(nil), f.Stack...),
	}
}

// NewDiagnostic starts a Diagnostic for a failure at pc in method#descriptor.
func NewDiagnostic(className, methodName, descriptor string, pc int, message string) *Diagnostic {
	return &Diagnostic{
		ClassName:        className,
		MethodName:       methodName,
		MethodDescriptor: descriptor,
		PC:               pc,
		Message:          message,
	}
}

func (d *Diagnostic) WithInstruction(ins classfile.Instruction) *Diagnostic {
	d.Instruction = ins.String()
	return d
}

func (d *Diagnostic) WithFrame(f *Frame) *Diagnostic {
	d.PreFrame = snapshotOf(f)
	return d
}

func (d *Diagnostic) WithExpected(types ...VType) *Diagnostic {
	d.Expected = types
	return d
}

func (d *Diagnostic) WithActual(types ...VType) *Diagnostic {
	d.Actual = types
	return d
}

func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// ReproString is the deterministic, single-line identifier spec §6
// standardizes: "<class>#<method><descriptor> @<pc>: <first-50-chars>".
func (d *Diagnostic) ReproString() string {
	msg := d.Message
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return fmt.Sprintf("%s#%s%s @%d: %s", d.ClassName, d.MethodName, d.MethodDescriptor, d.PC, msg)
}

func joinVTypes(ts []VType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// DetailedString renders a multi-line, human-readable report.
func (d *Diagnostic) DetailedString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "VerifyError in %s\n", d.ClassName)
	fmt.Fprintf(&b, "  Method: %s%s\n", d.MethodName, d.MethodDescriptor)
	fmt.Fprintf(&b, "  PC: %d\n", d.PC)
	if d.Instruction != "" {
		fmt.Fprintf(&b, "  Instruction: %s\n", d.Instruction)
	}
	fmt.Fprintf(&b, "  Error: %s\n", d.Message)
	if d.Expected != nil {
		fmt.Fprintf(&b, "  Expected: %s\n", joinVTypes(d.Expected))
	}
	if d.Actual != nil {
		fmt.Fprintf(&b, "  Actual: %s\n", joinVTypes(d.Actual))
	}
	if d.PreFrame != nil {
		b.WriteString("  Frame state:\n")
		fmt.Fprintf(&b, "    Locals: [%s]\n", joinVTypes(d.PreFrame.Locals))
		fmt.Fprintf(&b, "    Stack: [%s]\n", joinVTypes(d.PreFrame.Stack))
	}
	for _, note := range d.Notes {
		fmt.Fprintf(&b, "  Note: %s\n", note)
	}
	fmt.Fprintf(&b, "  Repro: %s\n", d.ReproString())
	return b.String()
}

func (d *Diagnostic) Error() string { return d.DetailedString() }

// VerificationTrace accumulates a verbose, instruction-by-instruction log
// of a verification run, enabled by Config.Trace (spec §4.B "When tracing
// is enabled, every instruction verification step is logged").
type VerificationTrace struct {
	enabled bool
	entries []TraceEntry
}

// TraceEntry is one logged step: either an instruction verification, a
// StackMapTable anchor, or a free-form note.
type TraceEntry struct {
	PC          int
	Instruction string
	PreStack    []VType
	PostStack   []VType
	IsAnchor    bool
	Notes       []string
}

func NewTrace(enabled bool) *VerificationTrace {
	return &VerificationTrace{enabled: enabled}
}

func (t *VerificationTrace) Enabled() bool { return t.enabled }

func (t *VerificationTrace) LogInstruction(pc int, ins classfile.Instruction, pre, post *Frame) {
	if !t.enabled {
		return
	}
	t.entries = append(t.entries, TraceEntry{
		PC:          pc,
		Instruction: ins.String(),
		PreStack:    append([]VType(nil), pre.Stack...),
		PostStack:   append([]VType(nil), post.Stack...),
	})
}

func (t *VerificationTrace) LogNote(pc int, note string) {
	if !t.enabled {
		return
	}
	if n := len(t.entries); n > 0 && t.entries[n-1].PC == pc {
		t.entries[n-1].Notes = append(t.entries[n-1].Notes, note)
		return
	}
	t.entries = append(t.entries, TraceEntry{PC: pc, Notes: []string{note}})
}

func (t *VerificationTrace) LogAnchor(pc int, f *Frame) {
	if !t.enabled {
		return
	}
	t.entries = append(t.entries, TraceEntry{
		PC:          pc,
		Instruction: "[StackMapTable Frame]",
		PostStack:   append([]VType(nil), f.Stack...),
		IsAnchor:    true,
		Notes:       []string{fmt.Sprintf("Locals: %s", joinVTypes(f.Locals))},
	})
}

func (t *VerificationTrace) Entries() []TraceEntry { return t.entries }

func (t *VerificationTrace) Clear() { t.entries = nil }

// Format renders the trace as a multi-line string for CLI `--trace` output.
func (t *VerificationTrace) Format() string {
	var b strings.Builder
	for _, e := range t.entries {
		if e.IsAnchor {
			fmt.Fprintf(&b, "\n=== PC %d [ANCHOR] ===\n", e.PC)
		} else {
			fmt.Fprintf(&b, "PC %4d: %s\n", e.PC, e.Instruction)
		}
		if len(e.PreStack) > 0 || len(e.PostStack) > 0 {
			fmt.Fprintf(&b, "         Stack: %s -> %s\n", joinVTypes(e.PreStack), joinVTypes(e.PostStack))
		}
		for _, note := range e.Notes {
			fmt.Fprintf(&b, "         Note: %s\n", note)
		}
	}
	return b.String()
}
