package verifier

import "fmt"

// parseFieldType reads one field descriptor element starting at s[i],
// returning its VType and the index just past it. Grounded on the
// descriptor-letter switch the teacher's defaultValueForDescriptor uses
// to pick a default Value for a field, generalized here to the full
// recursive grammar (arrays, object references).
func parseFieldType(s string, i int) (VType, int, error) {
	if i >= len(s) {
		return VType{}, i, fmt.Errorf("descriptor %q: truncated at %d", s, i)
	}
	switch s[i] {
	case 'B', 'C', 'I', 'S', 'Z':
		return Integer, i + 1, nil
	case 'F':
		return Float, i + 1, nil
	case 'J':
		return Long, i + 1, nil
	case 'D':
		return Double, i + 1, nil
	case 'L':
		end := i + 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		if end >= len(s) {
			return VType{}, i, fmt.Errorf("descriptor %q: unterminated class name starting at %d", s, i)
		}
		return Object(s[i+1 : end]), end + 1, nil
	case '[':
		_, next, err := parseFieldType(s, i+1)
		if err != nil {
			return VType{}, i, err
		}
		// Arrays are modeled as references named by their own descriptor
		// (e.g. "[I"), since the verifier only needs reference identity
		// and assignability for them, not element-wise typing.
		return Object(s[i:next]), next, nil
	default:
		return VType{}, i, fmt.Errorf("descriptor %q: unknown field type tag %q at %d", s, s[i], i)
	}
}

// ParseMethodDescriptor splits "(ARGS)RET" into its argument types (in
// declaration order) and its return type. A void return is reported as
// the zero VType with ok=false.
func ParseMethodDescriptor(descriptor string) (args []VType, ret VType, retOK bool, err error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil, VType{}, false, fmt.Errorf("descriptor %q: missing '('", descriptor)
	}
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		var t VType
		t, i, err = parseFieldType(descriptor, i)
		if err != nil {
			return nil, VType{}, false, err
		}
		args = append(args, t)
	}
	if i >= len(descriptor) {
		return nil, VType{}, false, fmt.Errorf("descriptor %q: missing ')'", descriptor)
	}
	i++ // skip ')'
	if i >= len(descriptor) {
		return nil, VType{}, false, fmt.Errorf("descriptor %q: missing return type", descriptor)
	}
	if descriptor[i] == 'V' {
		return args, VType{}, false, nil
	}
	ret, _, err = parseFieldType(descriptor, i)
	if err != nil {
		return nil, VType{}, false, err
	}
	return args, ret, true, nil
}

// ParseFieldDescriptor parses a single field descriptor, e.g. "I" or
// "Ljava/lang/String;" or "[[J".
func ParseFieldDescriptor(descriptor string) (VType, error) {
	t, end, err := parseFieldType(descriptor, 0)
	if err != nil {
		return VType{}, err
	}
	if end != len(descriptor) {
		return VType{}, fmt.Errorf("descriptor %q: trailing data after %d", descriptor, end)
	}
	return t, nil
}
