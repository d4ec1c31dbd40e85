package shaderlang

import (
	"github.com/gogpu/d3dbc/ir"
)

// block lowers a straight run of instructions. A trailing RET at the top
// level ends the body and emits nothing.
func (w *Writer) block(insts []ir.Instruction) {
	for i := range insts {
		inst := &insts[i]
		if inst.Op == ir.OpRet && i == len(insts)-1 && w.depth() == 0 {
			continue
		}
		w.cur = inst
		w.instruction(inst)
	}
}

func (w *Writer) depth() int {
	return w.ifDepth + len(w.loops)
}

func (w *Writer) instruction(inst *ir.Instruction) {
	if inst.Op.IsFlowControl() {
		w.flow(inst)
		return
	}
	if inst.Op.IsTextureOp() || inst.Op == ir.OpBem {
		w.texture(inst)
		return
	}

	src := inst.Src
	lanes := lanesOf(inst.Dest.Mask)
	n := len(lanes)
	arg := func(i int) string { return w.srcFloat(&src[i], lanes) }

	switch inst.Op {
	case ir.OpNop, ir.OpPhase:
	case ir.OpMov:
		if w.destKind(&inst.Dest) == kindInt {
			w.store(inst, w.dialect.IntType(n)+"("+w.call(BuiltinFloor, arg(0))+")", kindInt)
			return
		}
		w.assign(inst, arg(0))
	case ir.OpMova:
		w.store(inst, w.dialect.IntType(n)+"("+w.call(BuiltinFloor, arg(0)+" + 0.5")+")", kindInt)
	case ir.OpAdd:
		w.assign(inst, arg(0)+" + "+arg(1))
	case ir.OpSub:
		w.assign(inst, arg(0)+" - "+arg(1))
	case ir.OpMul:
		w.assign(inst, arg(0)+" * "+arg(1))
	case ir.OpMad:
		w.assign(inst, arg(0)+" * "+arg(1)+" + "+arg(2))
	case ir.OpMin:
		w.assign(inst, w.call(BuiltinMin, arg(0), arg(1)))
	case ir.OpMax:
		w.assign(inst, w.call(BuiltinMax, arg(0), arg(1)))
	case ir.OpAbs:
		w.assign(inst, w.call(BuiltinAbs, arg(0)))
	case ir.OpFrc:
		w.assign(inst, w.call(BuiltinFract, arg(0)))
	case ir.OpSgn:
		w.assign(inst, w.call(BuiltinSign, arg(0)))
	case ir.OpLrp:
		w.assign(inst, w.call(BuiltinMix, arg(2), arg(1), arg(0)))
	case ir.OpSlt:
		w.assign(inst, w.dialect.FloatType(n)+"("+w.dialect.Compare(ir.CompareLT, arg(0), arg(1), n)+")")
	case ir.OpSge:
		w.assign(inst, w.dialect.FloatType(n)+"("+w.dialect.Compare(ir.CompareGE, arg(0), arg(1), n)+")")
	case ir.OpCmp:
		cond := w.dialect.Compare(ir.CompareGE, arg(0), w.zero(n), n)
		w.assign(inst, w.dialect.Select(cond, arg(1), arg(2), n))
	case ir.OpCnd:
		cond := w.dialect.Compare(ir.CompareGT, arg(0), w.broadcast("0.5", n), n)
		w.assign(inst, w.dialect.Select(cond, arg(1), arg(2), n))

	case ir.OpRcp:
		w.assign(inst, w.broadcast("(1.0 / "+w.srcScalar(&src[0])+")", n))
	case ir.OpRsq:
		w.assign(inst, w.broadcast(w.call(BuiltinInverseSqrt, w.call(BuiltinAbs, w.srcScalar(&src[0]))), n))
	case ir.OpExp, ir.OpExpP:
		w.assign(inst, w.broadcast(w.call(BuiltinExp2, w.srcScalar(&src[0])), n))
	case ir.OpLog, ir.OpLogP:
		w.assign(inst, w.broadcast(w.call(BuiltinLog2, w.call(BuiltinAbs, w.srcScalar(&src[0]))), n))
	case ir.OpPow:
		base := w.call(BuiltinAbs, w.srcScalar(&src[0]))
		w.assign(inst, w.broadcast(w.call(BuiltinPow, base, w.srcScalar(&src[1])), n))
	case ir.OpSinCos:
		x := w.srcScalar(&src[0])
		parts := make([]string, 0, 2)
		for _, l := range lanes {
			switch l {
			case 0:
				parts = append(parts, w.call(BuiltinCos, x))
			case 1:
				parts = append(parts, w.call(BuiltinSin, x))
			default:
				w.fail("sincos writes only .x and .y")
				return
			}
		}
		w.assign(inst, w.vec(parts...))

	case ir.OpDp3:
		w.assign(inst, w.broadcast(w.dot(&src[0], &src[1], 3), n))
	case ir.OpDp4:
		w.assign(inst, w.broadcast(w.dot(&src[0], &src[1], 4), n))
	case ir.OpDp2Add:
		w.assign(inst, w.broadcast("("+w.dot(&src[0], &src[1], 2)+" + "+w.srcScalar(&src[2])+")", n))
	case ir.OpM4x4, ir.OpM4x3, ir.OpM3x4, ir.OpM3x3, ir.OpM3x2:
		w.matrix(inst, lanes)
	case ir.OpCrs:
		x := w.call(BuiltinCross, w.srcFloat(&src[0], firstLanes(3)), w.srcFloat(&src[1], firstLanes(3)))
		for _, l := range lanes {
			if l > 2 {
				w.fail("crs cannot write .w")
				return
			}
		}
		if n < 3 {
			x = pick(x, lanes)
		}
		w.assign(inst, x)
	case ir.OpNrm:
		v3 := w.srcFloat(&src[0], firstLanes(3))
		w.assign(inst, arg(0)+" * "+w.call(BuiltinInverseSqrt, w.call(BuiltinDot, v3, v3)))
	case ir.OpLit:
		w.lit(inst, lanes)
	case ir.OpDst:
		x := w.vec("1.0",
			w.srcFloat(&src[0], []int{1})+" * "+w.srcFloat(&src[1], []int{1}),
			w.srcFloat(&src[0], []int{2}),
			w.srcFloat(&src[1], []int{3}))
		w.assign(inst, pick(x, lanes))

	case ir.OpDsx, ir.OpDsy:
		b := BuiltinDdx
		if inst.Op == ir.OpDsy {
			b = BuiltinDdy
		}
		w.needs.Derivatives = true
		w.assign(inst, w.call(b, arg(0)))
	case ir.OpSetP:
		w.store(inst, w.dialect.Compare(inst.Compare(), arg(0), arg(1), n), kindBool)

	default:
		w.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

func (w *Writer) dot(a, b *ir.SourceParam, n int) string {
	return w.call(BuiltinDot, w.srcFloat(a, firstLanes(n)), w.srcFloat(b, firstLanes(n)))
}

// matrix lowers the M*x* family: lane i is the dot product of src0 with
// register src1 + i.
func (w *Writer) matrix(inst *ir.Instruction, lanes []int) {
	cols, rows := 4, 4
	switch inst.Op {
	case ir.OpM4x3:
		rows = 3
	case ir.OpM3x4:
		cols = 3
	case ir.OpM3x3:
		cols, rows = 3, 3
	case ir.OpM3x2:
		cols, rows = 3, 2
	}
	parts := make([]string, 0, len(lanes))
	for _, l := range lanes {
		if l >= rows {
			w.fail("%s writes only %d components", inst.Op, rows)
			return
		}
		row := inst.Src[1]
		row.RegNum += l
		parts = append(parts, w.dot(&inst.Src[0], &row, cols))
	}
	w.assign(inst, w.vec(parts...))
}

func (w *Writer) lit(inst *ir.Instruction, lanes []int) {
	d := w.dialect
	s := w.prefix + "_lit"
	res := w.prefix + "_litres"
	w.out.Line("{")
	w.out.Indent()
	w.out.Line("%s %s = %s;", d.FloatType(4), s, w.srcFloat(&inst.Src[0], allLanes))
	w.out.Line("%s %s = %s(1.0, 0.0, 0.0, 1.0);", d.FloatType(4), res, d.FloatType(4))
	w.out.Line("if (%s.x > 0.0) {", s)
	w.out.Indent()
	w.out.Line("%s.y = %s.x;", res, s)
	w.out.Line("if (%s.y > 0.0) %s.z = %s;", s, res,
		w.call(BuiltinPow, s+".y", w.call(BuiltinClamp, s+".w", "-127.9961", "127.9961")))
	w.out.Dedent()
	w.out.Line("}")
	w.assign(inst, pick(res, lanes))
	w.out.Dedent()
	w.out.Line("}")
}

// =============================================================================
// Flow control
// =============================================================================

func (w *Writer) flow(inst *ir.Instruction) {
	d := w.dialect
	switch inst.Op {
	case ir.OpIf:
		w.out.Line("if (%s) {", w.srcBool(&inst.Src[0]))
		w.out.Indent()
		w.ifDepth++
	case ir.OpIfc:
		a, b := w.srcScalar(&inst.Src[0]), w.srcScalar(&inst.Src[1])
		w.out.Line("if (%s) {", d.Compare(inst.Compare(), a, b, 1))
		w.out.Indent()
		w.ifDepth++
	case ir.OpElse:
		w.out.Dedent()
		w.out.Line("} else {")
		w.out.Indent()
	case ir.OpEndIf:
		w.out.Dedent()
		w.out.Line("}")
		w.ifDepth--

	case ir.OpLoop:
		ctl := w.srcInt(&inst.Src[1])
		counter := w.loopName("lc", len(w.loops))
		nAL := 0
		for _, f := range w.loops {
			if f.aL != "" {
				nAL++
			}
		}
		aL := w.loopName("aL", nAL)
		w.out.Line("%s = %s.y;", aL, ctl)
		w.openLoop(loopFrame{counter: counter, aL: aL, step: ctl + ".z"}, ctl)
		if nAL+1 > w.maxAL {
			w.maxAL = nAL + 1
		}
	case ir.OpRep:
		ctl := w.srcInt(&inst.Src[0])
		w.openLoop(loopFrame{counter: w.loopName("lc", len(w.loops))}, ctl)
	case ir.OpEndLoop, ir.OpEndRep:
		if len(w.loops) == 0 {
			w.fail("%s without an open loop", inst.Op)
			return
		}
		f := w.loops[len(w.loops)-1]
		w.loops = w.loops[:len(w.loops)-1]
		if f.aL != "" {
			w.out.Line("%s += %s;", f.aL, f.step)
		}
		w.out.Dedent()
		w.out.Line("}")
	case ir.OpBreak:
		w.requireLoop(inst)
		w.out.Line("break;")
	case ir.OpBreakc:
		w.requireLoop(inst)
		a, b := w.srcScalar(&inst.Src[0]), w.srcScalar(&inst.Src[1])
		w.out.Line("if (%s) break;", d.Compare(inst.Compare(), a, b, 1))
	case ir.OpBreakP:
		w.requireLoop(inst)
		w.out.Line("if (%s) break;", w.srcBool(&inst.Src[0]))

	case ir.OpCall:
		w.callSub(inst.Src[0].RegNum)
	case ir.OpCallNZ:
		w.out.Line("if (%s) {", w.srcBool(&inst.Src[1]))
		w.out.Indent()
		w.callSub(inst.Src[0].RegNum)
		w.out.Dedent()
		w.out.Line("}")
	case ir.OpRet:
		if w.inMain || d.InlineSubroutines() {
			w.fail("early return is not supported by this profile")
			return
		}
		w.out.Line("return;")
	default:
		w.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

func (w *Writer) openLoop(f loopFrame, ctl string) {
	w.out.Line("for (%s = 0; %s < %s.x; %s++) {", f.counter, f.counter, ctl, f.counter)
	w.out.Indent()
	w.loops = append(w.loops, f)
	if len(w.loops) > w.maxLoops {
		w.maxLoops = len(w.loops)
	}
}

func (w *Writer) requireLoop(inst *ir.Instruction) {
	if len(w.loops) == 0 {
		w.fail("%s outside a loop", inst.Op)
	}
}

func (w *Writer) callSub(label int) {
	body, ok := w.subs[label]
	if !ok {
		w.fail("call to undefined label l%d", label)
		return
	}
	if !w.dialect.InlineSubroutines() {
		w.out.Line("%s();", w.LabelName(label))
		return
	}
	for _, l := range w.inlining {
		if l == label {
			w.fail("recursive call to l%d", label)
			return
		}
	}
	if len(w.inlining) >= maxCallDepth {
		w.fail("call nesting deeper than %d", maxCallDepth)
		return
	}
	cur := w.cur
	saveIf, saveLoops := w.ifDepth, w.loops
	w.inlining = append(w.inlining, label)
	w.ifDepth, w.loops = 0, append([]loopFrame(nil), w.loops...)
	base := len(w.loops)

	w.out.Line("{")
	w.out.Indent()
	for i := range body {
		inst := &body[i]
		if inst.Op == ir.OpRet && i == len(body)-1 && w.ifDepth == 0 && len(w.loops) == base {
			continue
		}
		w.cur = inst
		w.instruction(inst)
	}
	w.out.Dedent()
	w.out.Line("}")

	w.inlining = w.inlining[:len(w.inlining)-1]
	w.ifDepth, w.loops = saveIf, saveLoops
	w.cur = cur
}
