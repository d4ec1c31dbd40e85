package arb1

import (
	"strconv"

	"github.com/gogpu/d3dbc/ir"
)

func (w *writer) newID() int {
	w.ids++
	return w.ids - 1
}

func (w *writer) flowLabel(kind string, id int) string {
	return w.prefix + "_" + kind + strconv.Itoa(id)
}

// setCC loads x into the condition code and returns the test that passes
// when x is nonzero, or zero when negate is set.
func (w *writer) setCC(x operand, negate bool) string {
	w.op("MOVC", w.tmp()+".x", x)
	if negate {
		return "EQ.x"
	}
	return "NE.x"
}

// invert returns the test that passes when test fails.
func invert(test string) string {
	if test[:2] == "NE" {
		return "EQ" + test[2:]
	}
	return "NE" + test[2:]
}

// compareCC evaluates a scalar comparison into the condition code.
func (w *writer) compareCC(inst *ir.Instruction) string {
	t := target{base: w.tmp(), mask: ir.MaskX}
	w.compare(t, inst.Compare(), w.scalar(&inst.Src[0]), w.scalar(&inst.Src[1]))
	return w.setCC(temp(t.lane(0)), false)
}

func (w *writer) boolCC(s *ir.SourceParam) string {
	x, negate := w.condition(s)
	return w.setCC(x, negate)
}

func (w *writer) flow(inst *ir.Instruction) {
	style := w.style()
	if style == flowNone {
		w.fail("flow control is not supported by this profile")
		return
	}
	structured := style == flowStructured

	switch inst.Op {
	case ir.OpIf:
		w.openIf(w.boolCC(&inst.Src[0]), structured)
	case ir.OpIfc:
		w.openIf(w.compareCC(inst), structured)
	case ir.OpElse:
		if len(w.ifs) == 0 {
			w.fail("else without an open if")
			return
		}
		f := &w.ifs[len(w.ifs)-1]
		if f.elsePlaced {
			w.fail("second else in one if block")
			return
		}
		f.elsePlaced = true
		w.body.Dedent()
		if structured {
			w.line("ELSE;")
		} else {
			w.line("BRA %s;", w.flowLabel("endif", f.id))
			w.line("%s:", w.flowLabel("else", f.id))
		}
		w.body.Indent()
	case ir.OpEndIf:
		if len(w.ifs) == 0 {
			w.fail("endif without an open if")
			return
		}
		f := w.ifs[len(w.ifs)-1]
		w.ifs = w.ifs[:len(w.ifs)-1]
		w.body.Dedent()
		if structured {
			w.line("ENDIF;")
			return
		}
		if !f.elsePlaced {
			w.line("%s:", w.flowLabel("else", f.id))
		}
		w.line("%s:", w.flowLabel("endif", f.id))

	case ir.OpRep:
		w.openLoop(loopFrame{}, w.scalar(&inst.Src[0]), structured)
	case ir.OpLoop:
		ctl := w.base(&inst.Src[1])
		nAL := 0
		for _, f := range w.loops {
			if f.aL != "" {
				nAL++
			}
		}
		f := loopFrame{aL: w.aLName(nAL), step: ctl.text + ".z"}
		if nAL+1 > w.maxAL {
			w.maxAL = nAL + 1
		}
		w.op("MOV", f.aL+".x", ctl.lane(1))
		w.openLoop(f, ctl.lane(0), structured)
	case ir.OpEndLoop, ir.OpEndRep:
		if len(w.loops) == 0 {
			w.fail("%s without an open loop", inst.Op)
			return
		}
		f := w.loops[len(w.loops)-1]
		w.loops = w.loops[:len(w.loops)-1]
		if f.aL != "" {
			w.op("ADD", f.aL+".x", temp(f.aL+".x"), operand{text: f.step, bind: f.step[:len(f.step)-2]})
		}
		if structured {
			w.body.Dedent()
			w.line("ENDREP;")
			return
		}
		w.op("ADD", f.counter+".x", temp(f.counter+".x"), splat(-1))
		w.line("BRA %s;", w.flowLabel("loop", f.id))
		w.body.Dedent()
		w.line("%s:", w.flowLabel("endloop", f.id))

	case ir.OpBreak:
		w.breakLoop(inst, "", structured)
	case ir.OpBreakc:
		w.breakLoop(inst, w.compareCC(inst), structured)
	case ir.OpBreakP:
		w.breakLoop(inst, w.boolCC(&inst.Src[0]), structured)

	case ir.OpCall:
		w.call(inst.Src[0].RegNum, "")
	case ir.OpCallNZ:
		w.call(inst.Src[0].RegNum, w.boolCC(&inst.Src[1]))
	case ir.OpRet:
		if w.inMain {
			w.fail("early return is not supported by this profile")
			return
		}
		w.line("RET;")
	default:
		w.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

func (w *writer) openIf(test string, structured bool) {
	f := ifFrame{id: w.newID()}
	if structured {
		w.line("IF %s;", test)
	} else {
		w.line("BRA %s (%s);", w.flowLabel("else", f.id), invert(test))
	}
	w.body.Indent()
	w.ifs = append(w.ifs, f)
}

// openLoop starts a loop running count times. Branching loops keep their
// own counter in a temporary.
func (w *writer) openLoop(f loopFrame, count operand, structured bool) {
	f.id = w.newID()
	if structured {
		w.op("REP", count.text)
		w.body.Indent()
		w.loops = append(w.loops, f)
		return
	}
	depth := len(w.loops)
	if depth+1 > w.maxLoops {
		w.maxLoops = depth + 1
	}
	f.counter = w.counterName(depth)
	w.op("MOV", f.counter+".x", count)
	w.line("%s:", w.flowLabel("loop", f.id))
	w.body.Indent()
	w.op("MOVC", w.tmp()+".x", temp(f.counter+".x"))
	w.line("BRA %s (LE.x);", w.flowLabel("endloop", f.id))
	w.loops = append(w.loops, f)
}

func (w *writer) breakLoop(inst *ir.Instruction, test string, structured bool) {
	if len(w.loops) == 0 {
		w.fail("%s outside a loop", inst.Op)
		return
	}
	f := w.loops[len(w.loops)-1]
	var text string
	if structured {
		text = "BRK"
	} else {
		text = "BRA " + w.flowLabel("endloop", f.id)
	}
	if test != "" {
		text += " (" + test + ")"
	}
	w.line("%s;", text)
}

func (w *writer) call(label int, test string) {
	if label == w.label {
		w.fail("recursive call to l%d", label)
		return
	}
	found := false
	for _, l := range w.prog.Labels {
		if l == label {
			found = true
			break
		}
	}
	if !found {
		w.fail("call to undefined label l%d", label)
		return
	}
	if test != "" {
		w.line("CAL %s (%s);", w.labelName(label), test)
		return
	}
	w.line("CAL %s;", w.labelName(label))
}

// currentAL returns the aL temporary of the innermost LOOP.
func (w *writer) currentAL() string {
	for i := len(w.loops) - 1; i >= 0; i-- {
		if w.loops[i].aL != "" {
			return w.loops[i].aL
		}
	}
	if w.inMain {
		w.fail("aL read outside a loop")
	}
	if w.maxAL == 0 {
		w.maxAL = 1
	}
	return w.aLName(0)
}
