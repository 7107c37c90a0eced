package vm

import "github.com/ristrettovm/ristretto/internal/classfile"

// Frame is one activation record: the local variable array, the operand
// stack, the program counter, and a back-reference to the class/method it is
// executing (needed for constant pool lookups and exception table search).
// Grounded on the teacher's pkg/vm/frame.go, generalized from panic-on-bug to
// explicit errors and from a single int/ref/null Value to the five-Kind
// Value of this package (spec §4.E "Frame").
type Frame struct {
	Locals  []Value
	stack   []Value
	sp      int
	slots   int // occupied operand stack slots, counting category-2 as 2

	Code   []byte
	PC     int
	Class  *classfile.ClassFile
	Method *classfile.MethodInfo

	maxStack int
}

// NewFrame allocates a Frame sized for method's declared max_locals /
// max_stack (JVMS §4.7.3).
func NewFrame(maxLocals, maxStack int, code []byte, class *classfile.ClassFile, method *classfile.MethodInfo) *Frame {
	return &Frame{
		Locals:   make([]Value, maxLocals),
		stack:    make([]Value, maxStack),
		Code:     code,
		Class:    class,
		Method:   method,
		maxStack: maxStack,
	}
}

// Push pushes v, failing if doing so would exceed max_stack (accounting for
// v's category).
func (f *Frame) Push(v Value) error {
	if f.slots+v.Category() > f.maxStack {
		return &OperandStackOverflowError{MaxStack: f.maxStack}
	}
	if f.sp >= len(f.stack) {
		return &OperandStackOverflowError{MaxStack: f.maxStack}
	}
	f.stack[f.sp] = v
	f.sp++
	f.slots += v.Category()
	return nil
}

// Pop pops the top value, whatever its kind.
func (f *Frame) Pop() (Value, error) {
	if f.sp <= 0 {
		return Value{}, &OperandStackUnderflowError{}
	}
	f.sp--
	v := f.stack[f.sp]
	f.slots -= v.Category()
	return v, nil
}

// PopExpect pops the top value and requires its Kind to be want exactly
// (spec §4.E category-2 width tracking: calling PopExpect(KindInt32) against
// a long value on top is a category misalignment, reported the same way a
// plain kind mismatch is).
func (f *Frame) PopExpect(want Kind) (Value, error) {
	v, err := f.Pop()
	if err != nil {
		return Value{}, err
	}
	if v.Kind != want {
		return Value{}, &TypeMismatchError{Expected: want, Actual: v.Kind}
	}
	return v, nil
}

// PopRef pops a reference (or null) value.
func (f *Frame) PopRef() (Value, error) {
	v, err := f.Pop()
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KindRef && v.Kind != KindNull {
		return Value{}, &TypeMismatchError{Expected: KindRef, Actual: v.Kind}
	}
	return v, nil
}

// Peek returns the top value without popping it.
func (f *Frame) Peek() (Value, error) {
	if f.sp <= 0 {
		return Value{}, &OperandStackUnderflowError{}
	}
	return f.stack[f.sp-1], nil
}

// Depth is the number of values currently on the operand stack.
func (f *Frame) Depth() int { return f.sp }

// GetLocal reads local variable index.
func (f *Frame) GetLocal(index int) (Value, error) {
	if index < 0 || index >= len(f.Locals) {
		return Value{}, &LocalIndexError{Index: index, Max: len(f.Locals)}
	}
	return f.Locals[index], nil
}

// SetLocal writes local variable index.
func (f *Frame) SetLocal(index int, v Value) error {
	if index < 0 || index >= len(f.Locals) {
		return &LocalIndexError{Index: index, Max: len(f.Locals)}
	}
	f.Locals[index] = v
	return nil
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadI8 reads an int8 operand and advances PC.
func (f *Frame) ReadI8() int8 {
	val := int8(f.Code[f.PC])
	f.PC++
	return val
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI16 reads an int16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadI16() int16 {
	val := int16(f.Code[f.PC])<<8 | int16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI32 reads a big-endian int32 operand and advances PC by 4 (used by
// goto_w/jsr_w and the padded tableswitch/lookupswitch operands).
func (f *Frame) ReadI32() int32 {
	val := int32(f.Code[f.PC])<<24 | int32(f.Code[f.PC+1])<<16 | int32(f.Code[f.PC+2])<<8 | int32(f.Code[f.PC+3])
	f.PC += 4
	return val
}
