package spirv

import (
	"github.com/gogpu/d3dbc/ir"
)

type ifFrame struct {
	merge, els uint32
	elsePlaced bool
}

type loopFrame struct {
	counter uint32
	// aL is zero for REP frames.
	aL   uint32
	step uint32

	header, cont, merge uint32
}

// selection branches to a fresh block when cond holds, runs body there and
// rejoins at a merge block. body reports whether it ended its block.
func (e *emitter) selection(cond uint32, body func() bool) {
	then, merge := e.b.AllocID(), e.b.AllocID()
	e.b.AddSelectionMerge(merge, SelectionControlNone)
	e.b.AddBranchConditional(cond, then, merge)
	e.b.PlaceLabel(then)
	if !body() {
		e.b.AddBranch(merge)
	}
	e.b.PlaceLabel(merge)
}

// terminate opens an unreachable block after a branch so that any
// instructions that follow still land in a block.
func (e *emitter) terminate() {
	e.b.AddLabel()
}

func (e *emitter) flow(inst *ir.Instruction) {
	switch inst.Op {
	case ir.OpIf:
		e.openIf(e.srcBool(&inst.Src[0]))
	case ir.OpIfc:
		a, b := e.srcScalar(&inst.Src[0]), e.srcScalar(&inst.Src[1])
		e.openIf(e.compare(inst.Compare(), a, b, 1))
	case ir.OpElse:
		if len(e.ifs) == 0 {
			e.fail("else without an open if")
			return
		}
		f := &e.ifs[len(e.ifs)-1]
		if f.elsePlaced {
			e.fail("second else in one if block")
			return
		}
		e.b.AddBranch(f.merge)
		e.b.PlaceLabel(f.els)
		f.elsePlaced = true
	case ir.OpEndIf:
		if len(e.ifs) == 0 {
			e.fail("endif without an open if")
			return
		}
		f := e.ifs[len(e.ifs)-1]
		e.ifs = e.ifs[:len(e.ifs)-1]
		e.b.AddBranch(f.merge)
		if !f.elsePlaced {
			e.b.PlaceLabel(f.els)
			e.b.AddBranch(f.merge)
		}
		e.b.PlaceLabel(f.merge)

	case ir.OpLoop:
		ctl := e.srcInt(&inst.Src[1])
		nAL := 0
		for _, f := range e.loops {
			if f.aL != 0 {
				nAL++
			}
		}
		aL := e.loopVar(&e.aLs, nAL, "aL")
		e.b.AddStore(aL, e.b.AddCompositeExtract(e.tInt, ctl, 1))
		e.openLoop(loopFrame{aL: aL, step: e.b.AddCompositeExtract(e.tInt, ctl, 2)}, ctl)
	case ir.OpRep:
		e.openLoop(loopFrame{}, e.srcInt(&inst.Src[0]))
	case ir.OpEndLoop, ir.OpEndRep:
		if len(e.loops) == 0 {
			e.fail("%s without an open loop", inst.Op)
			return
		}
		f := e.loops[len(e.loops)-1]
		e.loops = e.loops[:len(e.loops)-1]
		e.b.AddBranch(f.cont)
		e.b.PlaceLabel(f.cont)
		c := e.b.AddLoad(e.tInt, f.counter)
		e.b.AddStore(f.counter, e.b.AddBinaryOp(OpIAdd, e.tInt, c, e.iconst(1)))
		if f.aL != 0 {
			a := e.b.AddLoad(e.tInt, f.aL)
			e.b.AddStore(f.aL, e.b.AddBinaryOp(OpIAdd, e.tInt, a, f.step))
		}
		e.b.AddBranch(f.header)
		e.b.PlaceLabel(f.merge)

	case ir.OpBreak:
		if f := e.innerLoop(inst); f != nil {
			e.b.AddBranch(f.merge)
			e.terminate()
		}
	case ir.OpBreakc:
		if f := e.innerLoop(inst); f != nil {
			a, b := e.srcScalar(&inst.Src[0]), e.srcScalar(&inst.Src[1])
			e.breakIf(e.compare(inst.Compare(), a, b, 1), f)
		}
	case ir.OpBreakP:
		if f := e.innerLoop(inst); f != nil {
			e.breakIf(e.srcBool(&inst.Src[0]), f)
		}

	case ir.OpCall:
		e.callSub(inst.Src[0].RegNum)
	case ir.OpCallNZ:
		cond := e.srcBool(&inst.Src[1])
		e.selection(cond, func() bool {
			e.callSub(inst.Src[0].RegNum)
			return false
		})
	case ir.OpRet:
		if e.inMain {
			e.fail("early return is not supported by this profile")
			return
		}
		e.b.AddReturn()
		e.terminate()
	default:
		e.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

func (e *emitter) openIf(cond uint32) {
	f := ifFrame{merge: e.b.AllocID(), els: e.b.AllocID()}
	then := e.b.AllocID()
	e.b.AddSelectionMerge(f.merge, SelectionControlNone)
	e.b.AddBranchConditional(cond, then, f.els)
	e.b.PlaceLabel(then)
	e.ifs = append(e.ifs, f)
}

// loopVar returns the Private int variable for nesting depth d, creating
// it on first use.
func (e *emitter) loopVar(vars *[]uint32, d int, base string) uint32 {
	for len(*vars) <= d {
		name := e.prefix + "_" + base
		if n := len(*vars); n > 0 {
			name += string(rune('0' + n))
		}
		*vars = append(*vars, e.privateVar(kindInt, 1, name))
	}
	return (*vars)[d]
}

// openLoop starts a counted loop running ctl.x iterations.
func (e *emitter) openLoop(f loopFrame, ctl uint32) {
	f.counter = e.loopVar(&e.counters, len(e.loops), "lc")
	f.header, f.cont, f.merge = e.b.AllocID(), e.b.AllocID(), e.b.AllocID()
	body := e.b.AllocID()
	limit := e.b.AddCompositeExtract(e.tInt, ctl, 0)
	e.b.AddStore(f.counter, e.iconst(0))
	e.b.AddBranch(f.header)

	e.b.PlaceLabel(f.header)
	c := e.b.AddLoad(e.tInt, f.counter)
	cond := e.b.AddBinaryOp(OpSLessThan, e.tBool, c, limit)
	e.b.AddLoopMerge(f.merge, f.cont, LoopControlNone)
	e.b.AddBranchConditional(cond, body, f.merge)
	e.b.PlaceLabel(body)
	e.loops = append(e.loops, f)
}

func (e *emitter) innerLoop(inst *ir.Instruction) *loopFrame {
	if len(e.loops) == 0 {
		e.fail("%s outside a loop", inst.Op)
		return nil
	}
	return &e.loops[len(e.loops)-1]
}

func (e *emitter) breakIf(cond uint32, f *loopFrame) {
	e.selection(cond, func() bool {
		e.b.AddBranch(f.merge)
		return true
	})
}

// currentAL returns the aL variable of the innermost LOOP.
func (e *emitter) currentAL() uint32 {
	for i := len(e.loops) - 1; i >= 0; i-- {
		if e.loops[i].aL != 0 {
			return e.loops[i].aL
		}
	}
	if e.inMain {
		e.fail("aL read outside a loop")
	}
	return e.loopVar(&e.aLs, 0, "aL")
}

func (e *emitter) callSub(label int) {
	fn, ok := e.subs[label]
	if !ok {
		e.fail("call to undefined label l%d", label)
		return
	}
	if label == e.label {
		e.fail("recursive call to l%d", label)
		return
	}
	e.b.AddFunctionCall(e.tVoid, fn)
}
