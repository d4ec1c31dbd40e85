package ir

// ValidateFlow checks that flow-control instructions nest properly and that
// every CALL and CALLNZ target is defined. Problems are reported at the
// offending instruction's offset.
func ValidateFlow(p *Program, errs *ErrorList) {
	type frame struct {
		op      Opcode
		offset  int
		sawElse bool
	}
	var stack []frame
	loops := 0

	defined := make(map[int]bool, len(p.Labels))
	for _, l := range p.Labels {
		defined[l] = true
	}

	closeBlock := func(inst *Instruction, want ...Opcode) {
		if len(stack) == 0 {
			errs.Addf(ErrDecode, inst.Offset, "%s without matching block", inst.Op)
			return
		}
		top := stack[len(stack)-1]
		for _, w := range want {
			if top.op == w {
				stack = stack[:len(stack)-1]
				if top.op == OpLoop || top.op == OpRep {
					loops--
				}
				return
			}
		}
		errs.Addf(ErrDecode, inst.Offset, "%s closes %s block", inst.Op, top.op)
		stack = stack[:len(stack)-1]
	}

	for i := range p.Instructions {
		inst := &p.Instructions[i]
		switch inst.Op {
		case OpIf, OpIfc:
			stack = append(stack, frame{op: OpIf, offset: inst.Offset})
		case OpLoop, OpRep:
			stack = append(stack, frame{op: inst.Op, offset: inst.Offset})
			loops++
		case OpElse:
			if len(stack) == 0 || stack[len(stack)-1].op != OpIf {
				errs.Addf(ErrDecode, inst.Offset, "else without matching if")
				continue
			}
			if stack[len(stack)-1].sawElse {
				errs.Addf(ErrDecode, inst.Offset, "duplicate else")
			}
			stack[len(stack)-1].sawElse = true
		case OpEndIf:
			closeBlock(inst, OpIf)
		case OpEndLoop:
			closeBlock(inst, OpLoop)
		case OpEndRep:
			closeBlock(inst, OpRep)
		case OpBreak, OpBreakc, OpBreakP:
			if loops == 0 {
				errs.Addf(ErrDecode, inst.Offset, "%s outside of a loop", inst.Op)
			}
		case OpLabel:
			if len(stack) > 0 {
				errs.Addf(ErrDecode, inst.Offset, "label inside an open %s block", stack[len(stack)-1].op)
				stack = stack[:0]
				loops = 0
			}
		case OpCall, OpCallNZ:
			if len(inst.Src) > 0 && !defined[inst.Src[0].RegNum] {
				errs.Addf(ErrDecode, inst.Offset, "call to undefined label l%d", inst.Src[0].RegNum)
			}
		}
	}
	for _, f := range stack {
		errs.Addf(ErrDecode, f.offset, "unterminated %s block", f.op)
	}
}
