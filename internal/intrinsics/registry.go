package intrinsics

import (
	"fmt"

	"github.com/ristrettovm/ristretto/internal/vm"
)

// Binding is a native method body. args is in calling-convention order
// (receiver first for an instance method, matching vm.executeMethod's
// calling convention), already popped and null-checked by the interpreter
// dispatch path the same way an ordinary Java frame's args would be.
type Binding func(t *vm.Thread, args []vm.Value) (vm.Value, error)

type entry struct {
	key  string
	spec VersionSpec
	fn   Binding
}

// Registry is a per-Java-version snapshot of registered native bindings,
// keyed by the exact string spec §6 names: "class/name.methodName(descriptor)".
// It implements vm.Intrinsics.
type Registry struct {
	bindings map[string]Binding
}

// New builds a Registry for the Java release governing classfileMajor
// (spec §6's table-selection rule), including only bindings whose
// VersionSpec admits that release.
func New(classfileMajor int) *Registry {
	release := javaRelease(classfileMajor)
	r := &Registry{bindings: make(map[string]Binding)}
	for _, e := range allBindings() {
		if e.spec.Admits(release) {
			r.bindings[e.key] = e.fn
		}
	}
	return r
}

func key(class, name, descriptor string) string {
	return fmt.Sprintf("%s.%s%s", class, name, descriptor)
}

// Invoke implements vm.Intrinsics.
func (r *Registry) Invoke(t *vm.Thread, className, methodName, descriptor string, args []vm.Value) (vm.Value, bool, error) {
	fn, ok := r.bindings[key(className, methodName, descriptor)]
	if !ok {
		return vm.Value{}, false, nil
	}
	result, err := fn(t, args)
	return result, true, err
}
