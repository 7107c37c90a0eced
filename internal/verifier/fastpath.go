package verifier

import (
	"fmt"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

// methodVerifier holds the state shared across one method's verification
// pass, both fast-path and inference-path (spec §4.B).
type methodVerifier struct {
	cf         *classfile.ClassFile
	pool       *classfile.ConstantPool
	className  string
	method     *classfile.MethodInfo
	args       []VType
	ret        VType
	retOK      bool
	ctx        VerificationContext
	cfg        Config
	trace      *VerificationTrace
	iterations int // inference path iteration counter, for diagnostics
}

func (mv *methodVerifier) diag(pc int, message string) *Diagnostic {
	return NewDiagnostic(mv.className, mv.method.Name, mv.method.Descriptor, pc, message)
}

// seedArguments writes a method's receiver (if any) and declared
// parameters into the entry frame's local slots, per JVMS §4.10.1.3.
func (mv *methodVerifier) seedArguments(frame *Frame) error {
	index := 0
	if !mv.method.IsStatic() {
		recv := Object(mv.className)
		if mv.method.Name == "<init>" && mv.className != "java/lang/Object" {
			recv = UninitializedThis
		}
		if err := frame.SetLocal(index, recv); err != nil {
			return err
		}
		index++
	}
	for _, a := range mv.args {
		if err := frame.SetLocal(index, a); err != nil {
			return err
		}
		index += a.slots()
	}
	return nil
}

// runFastPath walks the method's instructions in program order, applying
// each instruction's stack effect and checking jump and switch targets
// against the StackMapTable anchors (spec §4.B "Fast path"). Exception
// handler edges are not checked: the frames inside a protected range are
// never compared to the anchor at its handler_pc.
func (mv *methodVerifier) runFastPath(instrs []classfile.Instruction, smt *classfile.StackMapTableAttribute) error {
	code := mv.method.Code
	anchors, err := mv.resolveAnchors(smt, code.MaxLocals, code.MaxStack)
	if err != nil {
		return err
	}

	frame := NewFrame(int(code.MaxLocals), int(code.MaxStack))
	if err := mv.seedArguments(frame); err != nil {
		return err
	}
	if a, ok := anchors[0]; ok {
		frame = a.Clone()
	}

	for _, ins := range instrs {
		if a, ok := anchors[ins.Offset]; ok && ins.Offset != 0 {
			if !frame.AssignableTo(mv.ctx, a) {
				return mv.diag(ins.Offset, "frame not assignable to StackMapTable anchor").
					WithInstruction(ins).WithFrame(frame)
			}
			frame = a.Clone()
		}
		if _, ok := anchors[ins.Offset]; ok && mv.trace != nil {
			mv.trace.LogAnchor(ins.Offset, frame)
		}
		pre := frame.Clone()
		if err := mv.applyEffect(frame, ins); err != nil {
			if d, ok := err.(*Diagnostic); ok {
				return d
			}
			return mv.diag(ins.Offset, err.Error()).WithInstruction(ins).WithFrame(pre)
		}
		if mv.trace != nil {
			mv.trace.LogInstruction(ins.Offset, ins, pre, frame)
		}
		if target, ok := branchTarget(ins); ok {
			if a, ok := anchors[target]; ok {
				if !frame.AssignableTo(mv.ctx, a) {
					return mv.diag(ins.Offset, fmt.Sprintf("branch target %d: frame not assignable to anchor", target)).
						WithInstruction(ins).WithFrame(frame)
				}
			}
		}
		if ins.Opcode == classfile.OpTableswitch || ins.Opcode == classfile.OpLookupswitch {
			for _, target := range append([]int{ins.DefaultTarget}, ins.JumpTargets...) {
				if a, ok := anchors[target]; ok && !frame.AssignableTo(mv.ctx, a) {
					return mv.diag(ins.Offset, fmt.Sprintf("switch target %d: frame not assignable to anchor", target)).
						WithInstruction(ins).WithFrame(frame)
				}
			}
		}
	}
	return nil
}

// resolveAnchors accumulates StackMapTable frame deltas into absolute
// bytecode offsets -> Frame snapshots (spec §4.B "anchors ... applied
// cumulatively").
func (mv *methodVerifier) resolveAnchors(smt *classfile.StackMapTableAttribute, maxLocals, maxStack uint16) (map[int]*Frame, error) {
	anchors := make(map[int]*Frame)
	if smt == nil {
		return anchors, nil
	}
	offset := -1 // first frame's offset_delta is absolute, not +1
	var locals []VType
	var stack []VType
	for _, f := range smt.Frames {
		offset += int(f.OffsetDelta) + 1
		switch f.Kind {
		case classfile.FrameSame:
			stack = nil
		case classfile.FrameSameLocals1StackItem:
			vt, err := ResolveVerificationType(mv.pool, f.Stack[0])
			if err != nil {
				return nil, err
			}
			stack = []VType{vt}
		case classfile.FrameChop:
			if f.ChopCount > len(locals) {
				return nil, fmt.Errorf("StackMapTable chop_frame removes more locals than present")
			}
			locals = locals[:len(locals)-f.ChopCount]
			stack = nil
		case classfile.FrameSameExtended:
			stack = nil
		case classfile.FrameAppend:
			for _, vt := range f.Locals {
				resolved, err := ResolveVerificationType(mv.pool, vt)
				if err != nil {
					return nil, err
				}
				locals = append(locals, resolved)
			}
			stack = nil
		case classfile.FrameFull:
			locals = nil
			for _, vt := range f.Locals {
				resolved, err := ResolveVerificationType(mv.pool, vt)
				if err != nil {
					return nil, err
				}
				locals = append(locals, resolved)
			}
			stack = nil
			for _, vt := range f.Stack {
				resolved, err := ResolveVerificationType(mv.pool, vt)
				if err != nil {
					return nil, err
				}
				stack = append(stack, resolved)
			}
		}
		frame := NewFrame(int(maxLocals), int(maxStack))
		for i, l := range locals {
			if i >= len(frame.Locals) {
				break
			}
			frame.Locals[i] = l
		}
		for _, s := range stack {
			if err := frame.Push(s); err != nil {
				return nil, err
			}
		}
		anchors[offset] = frame
	}
	return anchors, nil
}

// branchTarget returns the single successor offset an instruction forces
// a frame check against, if any (conditional/unconditional jumps only;
// tableswitch/lookupswitch targets are checked via their own JumpTargets).
func branchTarget(ins classfile.Instruction) (int, bool) {
	switch ins.Opcode {
	case classfile.OpGoto, classfile.OpGotoW, classfile.OpJsr, classfile.OpJsrW,
		classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle,
		classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt, classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple,
		classfile.OpIfAcmpeq, classfile.OpIfAcmpne, classfile.OpIfnull, classfile.OpIfnonnull:
		return ins.Target, true
	}
	return 0, false
}

// localVarIndex resolves the effective local-variable-table index an
// instruction addresses, whether that index is an explicit operand (the
// general iload/istore/... forms) or implied by the opcode itself (the
// dedicated iload_0..iload_3 family and its siblings).
func localVarIndex(ins classfile.Instruction) int {
	switch ins.Opcode {
	case classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload,
		classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore, classfile.OpRet:
		return ins.Index
	case classfile.OpIload0, classfile.OpIload1, classfile.OpIload2, classfile.OpIload3:
		return int(ins.Opcode) - classfile.OpIload0
	case classfile.OpLload0, classfile.OpLload1, classfile.OpLload2, classfile.OpLload3:
		return int(ins.Opcode) - classfile.OpLload0
	case classfile.OpFload0, classfile.OpFload1, classfile.OpFload2, classfile.OpFload3:
		return int(ins.Opcode) - classfile.OpFload0
	case classfile.OpDload0, classfile.OpDload1, classfile.OpDload2, classfile.OpDload3:
		return int(ins.Opcode) - classfile.OpDload0
	case classfile.OpAload0, classfile.OpAload1, classfile.OpAload2, classfile.OpAload3:
		return int(ins.Opcode) - classfile.OpAload0
	case classfile.OpIstore0, classfile.OpIstore1, classfile.OpIstore2, classfile.OpIstore3:
		return int(ins.Opcode) - classfile.OpIstore0
	case classfile.OpLstore0, classfile.OpLstore1, classfile.OpLstore2, classfile.OpLstore3:
		return int(ins.Opcode) - classfile.OpLstore0
	case classfile.OpFstore0, classfile.OpFstore1, classfile.OpFstore2, classfile.OpFstore3:
		return int(ins.Opcode) - classfile.OpFstore0
	case classfile.OpDstore0, classfile.OpDstore1, classfile.OpDstore2, classfile.OpDstore3:
		return int(ins.Opcode) - classfile.OpDstore0
	case classfile.OpAstore0, classfile.OpAstore1, classfile.OpAstore2, classfile.OpAstore3:
		return int(ins.Opcode) - classfile.OpAstore0
	}
	return ins.Index
}

// applyEffect mutates frame in place to reflect ins's stack/locals effect
// (spec §4.B "Pop expected operand types ... Push result types").
func (mv *methodVerifier) applyEffect(frame *Frame, ins classfile.Instruction) error {
	ctx := mv.ctx
	binary := func(t VType) error {
		if _, err := frame.PopExpect(ctx, t); err != nil {
			return err
		}
		if _, err := frame.PopExpect(ctx, t); err != nil {
			return err
		}
		return frame.Push(t)
	}
	unary := func(t VType) error {
		if _, err := frame.PopExpect(ctx, t); err != nil {
			return err
		}
		return frame.Push(t)
	}
	convert := func(from, to VType) error {
		if _, err := frame.PopExpect(ctx, from); err != nil {
			return err
		}
		return frame.Push(to)
	}
	compare := func(t VType) error {
		if _, err := frame.PopExpect(ctx, t); err != nil {
			return err
		}
		if _, err := frame.PopExpect(ctx, t); err != nil {
			return err
		}
		return frame.Push(Integer)
	}

	switch ins.Opcode {
	case classfile.OpNop:
		return nil

	case classfile.OpAconstNull:
		return frame.Push(Null)
	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2, classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5,
		classfile.OpBipush, classfile.OpSipush:
		return frame.Push(Integer)
	case classfile.OpLconst0, classfile.OpLconst1:
		return frame.Push(Long)
	case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2:
		return frame.Push(Float)
	case classfile.OpDconst0, classfile.OpDconst1:
		return frame.Push(Double)

	case classfile.OpLdc, classfile.OpLdcW:
		return mv.applyLdc(frame, ins)
	case classfile.OpLdc2W:
		return mv.applyLdc2(frame, ins)

	case classfile.OpIload, classfile.OpIload0, classfile.OpIload1, classfile.OpIload2, classfile.OpIload3:
		_, err := frame.GetLocal(ctx, localVarIndex(ins), Integer)
		if err != nil {
			return err
		}
		return frame.Push(Integer)
	case classfile.OpLload, classfile.OpLload0, classfile.OpLload1, classfile.OpLload2, classfile.OpLload3:
		if _, err := frame.GetLocal(ctx, localVarIndex(ins), Long); err != nil {
			return err
		}
		return frame.Push(Long)
	case classfile.OpFload, classfile.OpFload0, classfile.OpFload1, classfile.OpFload2, classfile.OpFload3:
		if _, err := frame.GetLocal(ctx, localVarIndex(ins), Float); err != nil {
			return err
		}
		return frame.Push(Float)
	case classfile.OpDload, classfile.OpDload0, classfile.OpDload1, classfile.OpDload2, classfile.OpDload3:
		if _, err := frame.GetLocal(ctx, localVarIndex(ins), Double); err != nil {
			return err
		}
		return frame.Push(Double)
	case classfile.OpAload, classfile.OpAload0, classfile.OpAload1, classfile.OpAload2, classfile.OpAload3:
		got := frame.Locals[localVarIndex(ins)]
		if !got.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<reference>")}, Actual: []VType{got}}
		}
		return frame.Push(got)

	case classfile.OpIstore, classfile.OpIstore0, classfile.OpIstore1, classfile.OpIstore2, classfile.OpIstore3:
		v, err := frame.PopExpect(ctx, Integer)
		if err != nil {
			return err
		}
		return frame.SetLocal(localVarIndex(ins), v)
	case classfile.OpLstore, classfile.OpLstore0, classfile.OpLstore1, classfile.OpLstore2, classfile.OpLstore3:
		v, err := frame.PopExpect(ctx, Long)
		if err != nil {
			return err
		}
		return frame.SetLocal(localVarIndex(ins), v)
	case classfile.OpFstore, classfile.OpFstore0, classfile.OpFstore1, classfile.OpFstore2, classfile.OpFstore3:
		v, err := frame.PopExpect(ctx, Float)
		if err != nil {
			return err
		}
		return frame.SetLocal(localVarIndex(ins), v)
	case classfile.OpDstore, classfile.OpDstore0, classfile.OpDstore1, classfile.OpDstore2, classfile.OpDstore3:
		v, err := frame.PopExpect(ctx, Double)
		if err != nil {
			return err
		}
		return frame.SetLocal(localVarIndex(ins), v)
	case classfile.OpAstore, classfile.OpAstore0, classfile.OpAstore1, classfile.OpAstore2, classfile.OpAstore3:
		v, err := frame.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<reference>")}, Actual: []VType{v}}
		}
		return frame.SetLocal(localVarIndex(ins), v)

	case classfile.OpIaload:
		return arrayLoad(ctx, frame, Integer)
	case classfile.OpLaload:
		return arrayLoad(ctx, frame, Long)
	case classfile.OpFaload:
		return arrayLoad(ctx, frame, Float)
	case classfile.OpDaload:
		return arrayLoad(ctx, frame, Double)
	case classfile.OpAaload:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		ref, err := frame.Pop()
		if err != nil {
			return err
		}
		if !ref.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<array>")}, Actual: []VType{ref}}
		}
		return frame.Push(Object("java/lang/Object"))
	case classfile.OpBaload, classfile.OpCaload, classfile.OpSaload:
		return arrayLoad(ctx, frame, Integer)

	case classfile.OpIastore:
		return arrayStore(ctx, frame, Integer)
	case classfile.OpLastore:
		return arrayStore(ctx, frame, Long)
	case classfile.OpFastore:
		return arrayStore(ctx, frame, Float)
	case classfile.OpDastore:
		return arrayStore(ctx, frame, Double)
	case classfile.OpAastore:
		if _, err := frame.Pop(); err != nil { // value
			return err
		}
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		_, err := frame.Pop() // arrayref
		return err
	case classfile.OpBastore, classfile.OpCastore, classfile.OpSastore:
		return arrayStore(ctx, frame, Integer)

	case classfile.OpPop:
		return applyPop(frame)
	case classfile.OpPop2:
		return applyPop2(frame)
	case classfile.OpDup:
		return applyDup(frame)
	case classfile.OpDupX1:
		return applyDupX1(frame)
	case classfile.OpDupX2:
		return applyDupX2(frame)
	case classfile.OpDup2:
		return applyDup2(frame)
	case classfile.OpDup2X1:
		return applyDup2X1(frame)
	case classfile.OpDup2X2:
		return applyDup2X2(frame)
	case classfile.OpSwap:
		return applySwap(frame)

	case classfile.OpIadd, classfile.OpIsub, classfile.OpImul, classfile.OpIdiv, classfile.OpIrem,
		classfile.OpIand, classfile.OpIor, classfile.OpIxor:
		return binary(Integer)
	case classfile.OpLadd, classfile.OpLsub, classfile.OpLmul, classfile.OpLdiv, classfile.OpLrem,
		classfile.OpLand, classfile.OpLor, classfile.OpLxor:
		return binary(Long)
	case classfile.OpFadd, classfile.OpFsub, classfile.OpFmul, classfile.OpFdiv, classfile.OpFrem:
		return binary(Float)
	case classfile.OpDadd, classfile.OpDsub, classfile.OpDmul, classfile.OpDdiv, classfile.OpDrem:
		return binary(Double)
	case classfile.OpIneg:
		return unary(Integer)
	case classfile.OpLneg:
		return unary(Long)
	case classfile.OpFneg:
		return unary(Float)
	case classfile.OpDneg:
		return unary(Double)

	case classfile.OpIshl, classfile.OpIshr, classfile.OpIushr:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		return frame.Push(Integer)
	case classfile.OpLshl, classfile.OpLshr, classfile.OpLushr:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		if _, err := frame.PopExpect(ctx, Long); err != nil {
			return err
		}
		return frame.Push(Long)

	case classfile.OpIinc:
		_, err := frame.GetLocal(ctx, localVarIndex(ins), Integer)
		return err

	case classfile.OpI2l:
		return convert(Integer, Long)
	case classfile.OpI2f:
		return convert(Integer, Float)
	case classfile.OpI2d:
		return convert(Integer, Double)
	case classfile.OpL2i:
		return convert(Long, Integer)
	case classfile.OpL2f:
		return convert(Long, Float)
	case classfile.OpL2d:
		return convert(Long, Double)
	case classfile.OpF2i:
		return convert(Float, Integer)
	case classfile.OpF2l:
		return convert(Float, Long)
	case classfile.OpF2d:
		return convert(Float, Double)
	case classfile.OpD2i:
		return convert(Double, Integer)
	case classfile.OpD2l:
		return convert(Double, Long)
	case classfile.OpD2f:
		return convert(Double, Float)
	case classfile.OpI2b, classfile.OpI2c, classfile.OpI2s:
		return convert(Integer, Integer)

	case classfile.OpLcmp:
		return compare(Long)
	case classfile.OpFcmpl, classfile.OpFcmpg:
		return compare(Float)
	case classfile.OpDcmpl, classfile.OpDcmpg:
		return compare(Double)

	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle:
		_, err := frame.PopExpect(ctx, Integer)
		return err
	case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt, classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		_, err := frame.PopExpect(ctx, Integer)
		return err
	case classfile.OpIfAcmpeq, classfile.OpIfAcmpne:
		if _, err := frame.Pop(); err != nil {
			return err
		}
		_, err := frame.Pop()
		return err
	case classfile.OpIfnull, classfile.OpIfnonnull:
		v, err := frame.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<reference>")}, Actual: []VType{v}}
		}
		return nil
	case classfile.OpGoto, classfile.OpGotoW:
		return nil
	case classfile.OpJsr, classfile.OpJsrW:
		return frame.Push(Top) // return-address type: only reachable via the (pre-Java-6) inference path
	case classfile.OpRet:
		return nil

	case classfile.OpTableswitch, classfile.OpLookupswitch:
		_, err := frame.PopExpect(ctx, Integer)
		return err

	case classfile.OpIreturn:
		_, err := frame.PopExpect(ctx, Integer)
		return err
	case classfile.OpLreturn:
		_, err := frame.PopExpect(ctx, Long)
		return err
	case classfile.OpFreturn:
		_, err := frame.PopExpect(ctx, Float)
		return err
	case classfile.OpDreturn:
		_, err := frame.PopExpect(ctx, Double)
		return err
	case classfile.OpAreturn:
		v, err := frame.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<reference>")}, Actual: []VType{v}}
		}
		return nil
	case classfile.OpReturn:
		return nil

	case classfile.OpGetstatic:
		return mv.applyGetstatic(frame, ins)
	case classfile.OpPutstatic:
		return mv.applyPutstatic(frame, ins)
	case classfile.OpGetfield:
		return mv.applyGetfield(frame, ins)
	case classfile.OpPutfield:
		return mv.applyPutfield(frame, ins)

	case classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokeinterface:
		return mv.applyInvoke(frame, ins, true)
	case classfile.OpInvokestatic:
		return mv.applyInvoke(frame, ins, false)
	case classfile.OpInvokedynamic:
		return mv.applyInvokedynamic(frame, ins)

	case classfile.OpNew:
		return frame.Push(Uninitialized(ins.Offset))
	case classfile.OpNewarray:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		return frame.Push(Object(primitiveArrayClassName(ins.ArrayType)))
	case classfile.OpAnewarray:
		if _, err := frame.PopExpect(ctx, Integer); err != nil {
			return err
		}
		name, err := mv.pool.ClassName(uint16(ins.Index))
		if err != nil {
			return err
		}
		return frame.Push(Object("[L" + name + ";"))
	case classfile.OpArraylength:
		ref, err := frame.Pop()
		if err != nil {
			return err
		}
		if !ref.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("<array>")}, Actual: []VType{ref}}
		}
		return frame.Push(Integer)
	case classfile.OpAthrow:
		v, err := frame.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object("java/lang/Throwable")}, Actual: []VType{v}}
		}
		return nil
	case classfile.OpCheckcast:
		if _, err := frame.Pop(); err != nil {
			return err
		}
		name, err := mv.pool.ClassName(uint16(ins.Index))
		if err != nil {
			return err
		}
		return frame.Push(Object(name))
	case classfile.OpInstanceof:
		if _, err := frame.Pop(); err != nil {
			return err
		}
		return frame.Push(Integer)
	case classfile.OpMonitorenter, classfile.OpMonitorexit:
		_, err := frame.Pop()
		return err
	case classfile.OpMultianewarray:
		for i := 0; i < int(ins.Dimensions); i++ {
			if _, err := frame.PopExpect(ctx, Integer); err != nil {
				return err
			}
		}
		name, err := mv.pool.ClassName(uint16(ins.Index))
		if err != nil {
			return err
		}
		return frame.Push(Object(name))

	default:
		return nil
	}
}

func arrayLoad(ctx VerificationContext, frame *Frame, element VType) error {
	if _, err := frame.PopExpect(ctx, Integer); err != nil {
		return err
	}
	ref, err := frame.Pop()
	if err != nil {
		return err
	}
	if !ref.IsReference() {
		return &TypeMismatchError{Expected: []VType{Object("<array>")}, Actual: []VType{ref}}
	}
	return frame.Push(element)
}

func arrayStore(ctx VerificationContext, frame *Frame, element VType) error {
	if _, err := frame.PopExpect(ctx, element); err != nil {
		return err
	}
	if _, err := frame.PopExpect(ctx, Integer); err != nil {
		return err
	}
	ref, err := frame.Pop()
	if err != nil {
		return err
	}
	if !ref.IsReference() {
		return &TypeMismatchError{Expected: []VType{Object("<array>")}, Actual: []VType{ref}}
	}
	return nil
}

func primitiveArrayClassName(code uint8) string {
	switch code {
	case classfile.ATBoolean:
		return "[Z"
	case classfile.ATChar:
		return "[C"
	case classfile.ATFloat:
		return "[F"
	case classfile.ATDouble:
		return "[D"
	case classfile.ATByte:
		return "[B"
	case classfile.ATShort:
		return "[S"
	case classfile.ATInt:
		return "[I"
	case classfile.ATLong:
		return "[J"
	default:
		return "[?"
	}
}

func (mv *methodVerifier) applyLdc(frame *Frame, ins classfile.Instruction) error {
	entry, err := mv.pool.Get(uint16(ins.Index))
	if err != nil {
		return err
	}
	switch entry.(type) {
	case classfile.IntegerEntry:
		return frame.Push(Integer)
	case classfile.FloatEntry:
		return frame.Push(Float)
	case classfile.StringEntry:
		return frame.Push(Object("java/lang/String"))
	case classfile.ClassEntry:
		return frame.Push(Object("java/lang/Class"))
	case classfile.MethodHandleEntry:
		return frame.Push(Object("java/lang/invoke/MethodHandle"))
	case classfile.MethodTypeEntry:
		return frame.Push(Object("java/lang/invoke/MethodType"))
	default:
		return fmt.Errorf("ldc: constant pool entry #%d has a tag not valid for ldc", ins.Index)
	}
}

func (mv *methodVerifier) applyLdc2(frame *Frame, ins classfile.Instruction) error {
	entry, err := mv.pool.Get(uint16(ins.Index))
	if err != nil {
		return err
	}
	switch entry.(type) {
	case classfile.LongEntry:
		return frame.Push(Long)
	case classfile.DoubleEntry:
		return frame.Push(Double)
	default:
		return fmt.Errorf("ldc2_w: constant pool entry #%d is not a Long or Double", ins.Index)
	}
}

func (mv *methodVerifier) applyGetstatic(frame *Frame, ins classfile.Instruction) error {
	ref, err := mv.pool.Fieldref(uint16(ins.Index))
	if err != nil {
		return err
	}
	t, err := ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	return frame.Push(t)
}

func (mv *methodVerifier) applyPutstatic(frame *Frame, ins classfile.Instruction) error {
	ref, err := mv.pool.Fieldref(uint16(ins.Index))
	if err != nil {
		return err
	}
	t, err := ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	_, err = frame.PopExpect(mv.ctx, t)
	return err
}

func (mv *methodVerifier) applyGetfield(frame *Frame, ins classfile.Instruction) error {
	ref, err := mv.pool.Fieldref(uint16(ins.Index))
	if err != nil {
		return err
	}
	t, err := ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	objref, err := frame.Pop()
	if err != nil {
		return err
	}
	if !objref.IsReference() {
		return &TypeMismatchError{Expected: []VType{Object(ref.ClassName)}, Actual: []VType{objref}}
	}
	return frame.Push(t)
}

func (mv *methodVerifier) applyPutfield(frame *Frame, ins classfile.Instruction) error {
	ref, err := mv.pool.Fieldref(uint16(ins.Index))
	if err != nil {
		return err
	}
	t, err := ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	if _, err := frame.PopExpect(mv.ctx, t); err != nil {
		return err
	}
	objref, err := frame.Pop()
	if err != nil {
		return err
	}
	if !objref.IsReference() {
		return &TypeMismatchError{Expected: []VType{Object(ref.ClassName)}, Actual: []VType{objref}}
	}
	return nil
}

func (mv *methodVerifier) applyInvoke(frame *Frame, ins classfile.Instruction, hasReceiver bool) error {
	var ref classfile.MemberRef
	var err error
	if ins.Opcode == classfile.OpInvokeinterface {
		ref, err = mv.pool.InterfaceMethodref(uint16(ins.Index))
	} else {
		ref, err = mv.pool.Methodref(uint16(ins.Index))
	}
	if err != nil {
		return err
	}
	args, ret, retOK, err := ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	for i := len(args) - 1; i >= 0; i-- {
		if _, err := frame.PopExpect(mv.ctx, args[i]); err != nil {
			return err
		}
	}
	if hasReceiver {
		objref, err := frame.Pop()
		if err != nil {
			return err
		}
		if !objref.IsReference() {
			return &TypeMismatchError{Expected: []VType{Object(ref.ClassName)}, Actual: []VType{objref}}
		}
	}
	if retOK {
		return frame.Push(ret)
	}
	return nil
}

func (mv *methodVerifier) applyInvokedynamic(frame *Frame, ins classfile.Instruction) error {
	entry, err := mv.pool.Get(uint16(ins.Index))
	if err != nil {
		return err
	}
	idyn, ok := entry.(classfile.InvokeDynamicEntry)
	if !ok {
		return fmt.Errorf("invokedynamic: constant pool entry #%d is not InvokeDynamic", ins.Index)
	}
	_, descriptor, err := mv.pool.NameAndType(idyn.NameAndTypeIndex)
	if err != nil {
		return err
	}
	args, ret, retOK, err := ParseMethodDescriptor(descriptor)
	if err != nil {
		return err
	}
	for i := len(args) - 1; i >= 0; i-- {
		if _, err := frame.PopExpect(mv.ctx, args[i]); err != nil {
			return err
		}
	}
	if retOK {
		return frame.Push(ret)
	}
	return nil
}
