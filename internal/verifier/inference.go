package verifier

import "github.com/ristrettovm/ristretto/internal/classfile"

// runInference performs the monotone dataflow fallback (spec §4.B
// "Inference path"): a worklist seeded at offset 0, joining frames at
// merge points until a fixpoint, bounded by Config.MaxInferenceIterations.
func (mv *methodVerifier) runInference(instrs []classfile.Instruction) error {
	code := mv.method.Code
	byOffset := make(map[int]classfile.Instruction, len(instrs))
	order := make([]int, 0, len(instrs))
	for _, ins := range instrs {
		byOffset[ins.Offset] = ins
		order = append(order, ins.Offset)
	}
	successors := buildSuccessors(instrs, code.ExceptionHandlers)

	entry := make(map[int]*Frame, len(instrs))
	start := NewFrame(int(code.MaxLocals), int(code.MaxStack))
	if err := mv.seedArguments(start); err != nil {
		return err
	}
	entry[order[0]] = start

	ceiling := mv.cfg.MaxInferenceIterations
	if ceiling <= 0 {
		ceiling = 10000
	}

	worklist := []int{order[0]}
	onWorklist := map[int]bool{order[0]: true}

	for iterations := 0; len(worklist) > 0; iterations++ {
		if iterations >= ceiling {
			return &InferenceDidNotConvergeError{
				Method:     mv.className + "#" + mv.method.Name + mv.method.Descriptor,
				Iterations: iterations,
			}
		}
		pc := worklist[0]
		worklist = worklist[1:]
		onWorklist[pc] = false

		ins, ok := byOffset[pc]
		if !ok {
			continue // exception handler target with no real instruction at that pc shouldn't happen
		}
		frame := entry[pc].Clone()
		pre := frame.Clone()
		if err := mv.applyEffect(frame, ins); err != nil {
			if d, ok := err.(*Diagnostic); ok {
				return d
			}
			return mv.diag(pc, err.Error()).WithInstruction(ins).WithFrame(pre)
		}
		if mv.trace != nil {
			mv.trace.LogInstruction(pc, ins, pre, frame)
		}

		for _, succ := range successors[pc] {
			existing, seen := entry[succ]
			var merged *Frame
			if !seen {
				merged = frame.Clone()
			} else {
				merged = existing.Join(mv.ctx, frame)
			}
			if !seen || !merged.Equal(existing) {
				entry[succ] = merged
				if !onWorklist[succ] {
					worklist = append(worklist, succ)
					onWorklist[succ] = true
				}
			}
		}
	}
	return nil
}

// buildSuccessors computes each instruction's fallthrough/branch/switch
// successors plus exception-handler edges (any instruction inside a
// handler's protected range can transfer control to handler_pc).
//
// Exception edges are modeled as ordinary control-flow joins rather than
// frames reset to a bare "operand stack holds just the thrown exception"
// shape; this undercounts precision for methods whose try blocks leave
// unrelated values on the stack at throw time, which is the inference
// path's documented cost relative to the fast path (see DESIGN.md).
func buildSuccessors(instrs []classfile.Instruction, handlers []classfile.ExceptionHandler) map[int][]int {
	out := make(map[int][]int, len(instrs))
	for i, ins := range instrs {
		var succ []int
		switch ins.Opcode {
		case classfile.OpGoto, classfile.OpGotoW:
			succ = append(succ, ins.Target)
		case classfile.OpJsr, classfile.OpJsrW:
			succ = append(succ, ins.Target)
			if i+1 < len(instrs) {
				succ = append(succ, instrs[i+1].Offset)
			}
		case classfile.OpIreturn, classfile.OpLreturn, classfile.OpFreturn, classfile.OpDreturn,
			classfile.OpAreturn, classfile.OpReturn, classfile.OpAthrow, classfile.OpRet:
			// no fallthrough/branch successor
		case classfile.OpTableswitch, classfile.OpLookupswitch:
			succ = append(succ, ins.DefaultTarget)
			succ = append(succ, ins.JumpTargets...)
		default:
			if target, ok := branchTarget(ins); ok {
				succ = append(succ, target)
			}
			if i+1 < len(instrs) {
				succ = append(succ, instrs[i+1].Offset)
			}
		}
		out[ins.Offset] = succ
	}
	for _, h := range handlers {
		for _, ins := range instrs {
			if ins.Offset >= int(h.StartPC) && ins.Offset < int(h.EndPC) {
				out[ins.Offset] = append(out[ins.Offset], int(h.HandlerPC))
			}
		}
	}
	return out
}
