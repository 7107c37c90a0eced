package vm

import (
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/ristrettovm/ristretto/internal/classfile"
	"github.com/ristrettovm/ristretto/internal/gc"
)

// defaultMaxThreads bounds how many Threads may be live against one VM at
// once (spec's DOMAIN STACK table: "bounds the number of concurrently
// running mutator threads sharing one VM, used by the thread table").
// NewThread beyond this count blocks until an existing Thread detaches,
// rather than letting an unbounded number of goroutines register as
// mutators the collector must rendezvous with on every cycle.
const defaultMaxThreads = 256

// Intrinsics is implemented by the intrinsics registry (spec §4.E/§6
// "native method dispatch table"). VM depends on this narrow interface
// rather than internal/intrinsics directly, the same inversion
// classloader.Verifier already uses, since intrinsics bindings need the
// vm.Thread/vm.Value types this package defines and would otherwise create
// an import cycle.
type Intrinsics interface {
	// Invoke looks up and runs the native binding for
	// className.methodName:descriptor. found is false if no binding is
	// registered, in which case the caller should fail with
	// UnsatisfiedLinkError rather than treat it as a thrown exception.
	Invoke(t *Thread, className, methodName, descriptor string, args []Value) (result Value, found bool, err error)
}

// VM is the execution engine: a class loader, the heap's garbage collector,
// the intrinsic method registry, and the per-class static field tables and
// <clinit> bookkeeping that span every thread (spec §4.E "VM"). Grounded on
// the teacher's VM struct (pkg/vm/vm.go), generalized from a single
// int/ref/null Value and a panic-on-overflow frame stack to the five-Kind
// Value model and Thread-scoped call stacks of this package.
type VM struct {
	ClassLoader classLoader
	Collector   *gc.Collector
	Intrinsics  Intrinsics
	Stdout      io.Writer
	Log         *logrus.Logger

	threadSem *semaphore.Weighted

	staticFields       map[string]map[string]Value
	initializedClasses map[string]bool
}

// New constructs a VM with the default thread-table bound
// (defaultMaxThreads). A nil logger disables structured logging; a nil
// intrinsics registry means every native method call fails with
// UnsatisfiedLinkError.
func New(cl classLoader, collector *gc.Collector, intrinsics Intrinsics, stdout io.Writer, log *logrus.Logger) *VM {
	return NewWithMaxThreads(cl, collector, intrinsics, stdout, log, defaultMaxThreads)
}

// NewWithMaxThreads is New with an explicit thread-table bound, for
// embedders that need a tighter or looser limit than defaultMaxThreads.
func NewWithMaxThreads(cl classLoader, collector *gc.Collector, intrinsics Intrinsics, stdout io.Writer, log *logrus.Logger, maxThreads int64) *VM {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &VM{
		ClassLoader:        cl,
		Collector:          collector,
		threadSem:          semaphore.NewWeighted(maxThreads),
		Intrinsics:         intrinsics,
		Stdout:             stdout,
		Log:                log,
		staticFields:       make(map[string]map[string]Value),
		initializedClasses: make(map[string]bool),
	}
}

// Run loads mainClassName, runs its static initializer, and executes its
// public static void main(String[]) (spec §4.E "Execute") on a new Thread,
// which is detached before Run returns.
func (vm *VM) Run(mainClassName string) error {
	t := NewThread(vm)
	defer t.Detach()

	cf, err := vm.ClassLoader.ReadClass(mainClassName)
	if err != nil {
		return err
	}
	method := cf.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return NewNoSuchMethodError(mainClassName, "main", "([Ljava/lang/String;)V")
	}
	if err := vm.ensureInitialized(t, mainClassName); err != nil {
		return err
	}
	_, err = vm.executeMethod(t, cf, method, []Value{NullValue()})
	return err
}

// executeMethod runs method (native, abstract-rejecting, or interpreted)
// with args already in calling convention order (receiver first for
// instance methods), returning its result.
func (vm *VM) executeMethod(t *Thread, cf *classfile.ClassFile, method *classfile.MethodInfo, args []Value) (Value, error) {
	className, err := cf.ClassName()
	if err != nil {
		return Value{}, err
	}

	if method.IsNative() {
		if vm.Intrinsics == nil {
			return Value{}, newThrowable("java/lang/UnsatisfiedLinkError", "%s.%s%s", className, method.Name, method.Descriptor)
		}
		result, found, err := vm.Intrinsics.Invoke(t, className, method.Name, method.Descriptor, args)
		if !found {
			return Value{}, newThrowable("java/lang/UnsatisfiedLinkError", "%s.%s%s", className, method.Name, method.Descriptor)
		}
		return result, err
	}
	if method.IsAbstract() {
		return Value{}, NewAbstractMethodError(className, method.Name, method.Descriptor)
	}
	if method.Code == nil {
		return Value{}, newThrowable("java/lang/ClassFormatError", "%s.%s%s: no Code attribute", className, method.Name, method.Descriptor)
	}

	frame := NewFrame(int(method.Code.MaxLocals), int(method.Code.MaxStack), method.Code.Code, cf, method)
	for i, arg := range args {
		if err := frame.SetLocal(i, arg); err != nil {
			return Value{}, err
		}
	}
	if err := t.pushFrame(frame); err != nil {
		return Value{}, err
	}
	defer t.popFrame()

	t.Safepoint()

	for frame.PC < len(frame.Code) {
		instructionPC := frame.PC
		opcode := frame.Code[frame.PC]
		frame.PC++

		result, done, err := vm.step(t, frame, opcode)
		if err != nil {
			throwable, isThrowable := err.(*Throwable)
			if !isThrowable {
				return Value{}, err
			}
			if handler := vm.findExceptionHandler(t, method.Code, instructionPC, throwable, cf); handler != nil {
				for frame.Depth() > 0 {
					frame.Pop()
				}
				excVal, excErr := vm.throwableValue(t, throwable)
				if excErr != nil {
					return Value{}, excErr
				}
				if err := frame.Push(excVal); err != nil {
					return Value{}, err
				}
				frame.PC = int(handler.HandlerPC)
				continue
			}
			return Value{}, throwable
		}
		if done {
			return result, nil
		}
	}
	return Value{}, nil
}

// throwableValue materializes a Throwable as a heap-allocated JObject
// reference Value so a handler's catch block finds an ordinary object on
// the stack (JVMS §3.12 "the operand stack ... contains only the
// reference to the Throwable object").
func (vm *VM) throwableValue(t *Thread, th *Throwable) (Value, error) {
	if th.Object != nil {
		handle, _, err := allocate(vm.Collector, th.Object)
		if err != nil {
			return Value{}, err
		}
		return RefValue(handle), nil
	}
	obj := NewObject(th.ClassName)
	obj.Fields["message"] = RefValue(gc.Gc[Ref]{})
	handle, _, err := allocate(vm.Collector, obj)
	if err != nil {
		return Value{}, err
	}
	th.Object = obj
	return RefValue(handle), nil
}

// findExceptionHandler searches code's exception table for the innermost
// handler covering pc whose catch type th is an instance of (catch_type==0
// matches unconditionally, modeling finally blocks).
func (vm *VM) findExceptionHandler(t *Thread, code *classfile.CodeAttribute, pc int, th *Throwable, cf *classfile.ClassFile) *classfile.ExceptionHandler {
	for i := range code.ExceptionHandlers {
		h := &code.ExceptionHandlers[i]
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return h
		}
		catchClassName, err := cf.ConstantPool.ClassName(h.CatchType)
		if err != nil {
			continue
		}
		if isSubclass(vm.ClassLoader, th.ClassName, catchClassName) {
			return h
		}
	}
	return nil
}

// ensureInitialized runs <clinit> for className (and, transitively, its
// superclass) exactly once per VM (JVMS §5.5 "Initialization").
func (vm *VM) ensureInitialized(t *Thread, className string) error {
	if vm.initializedClasses[className] {
		return nil
	}
	vm.initializedClasses[className] = true

	cf, err := vm.ClassLoader.ReadClass(className)
	if err != nil {
		vm.initializedClasses[className] = false
		return nil
	}
	super, err := cf.SuperClassName()
	if err == nil && super != "" {
		if err := vm.ensureInitialized(t, super); err != nil {
			return err
		}
	}
	clinit := cf.FindMethod("<clinit>", "()V")
	if clinit != nil {
		if _, err := vm.executeMethod(t, cf, clinit, nil); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) getStaticField(className, fieldName string) (Value, bool) {
	if fields, ok := vm.staticFields[className]; ok {
		if v, ok := fields[fieldName]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func (vm *VM) setStaticField(className, fieldName string, v Value) {
	if _, ok := vm.staticFields[className]; !ok {
		vm.staticFields[className] = make(map[string]Value)
	}
	vm.staticFields[className][fieldName] = v
}
