package arb1

import (
	"github.com/gogpu/d3dbc/ir"
)

// simpleOps map directly onto one instruction of the same shape.
var simpleOps = map[ir.Opcode]string{
	ir.OpAdd: "ADD",
	ir.OpSub: "SUB",
	ir.OpMul: "MUL",
	ir.OpMad: "MAD",
	ir.OpMin: "MIN",
	ir.OpMax: "MAX",
	ir.OpAbs: "ABS",
	ir.OpFrc: "FRC",
	ir.OpSlt: "SLT",
	ir.OpSge: "SGE",
	ir.OpDp3: "DP3",
	ir.OpDp4: "DP4",
	ir.OpLit: "LIT",
	ir.OpDst: "DST",
}

func (w *writer) instruction(inst *ir.Instruction) {
	if inst.Op.IsFlowControl() {
		w.flow(inst)
		return
	}
	if inst.Op.IsTextureOp() || inst.Op == ir.OpBem {
		w.texture(inst)
		return
	}

	switch inst.Op {
	case ir.OpNop, ir.OpPhase:
		return
	}

	src := inst.Src
	t := w.begin(inst)
	dst := t.String()

	if name, ok := simpleOps[inst.Op]; ok {
		ops := make([]operand, len(src))
		for i := range src {
			ops[i] = w.source(&src[i])
		}
		w.op(name, dst, ops...)
		w.finish(inst, t)
		return
	}

	switch inst.Op {
	case ir.OpMov:
		if w.vertex() && inst.Dest.RegType == ir.RegAddress {
			w.op("FLR", dst, w.source(&src[0]))
			break
		}
		w.op("MOV", dst, w.source(&src[0]))
	case ir.OpMova:
		s := w.tmp()
		w.op("ADD", s, w.source(&src[0]), splat(0.5))
		w.op("FLR", dst, temp(s))
	case ir.OpSgn:
		a, b := w.tmp(), w.tmp()
		x := w.source(&src[0])
		w.op("SLT", a, splat(0), x)
		w.op("SLT", b, x, splat(0))
		w.op("SUB", dst, temp(a), temp(b))
	case ir.OpLrp:
		s0, s1, s2 := w.source(&src[0]), w.source(&src[1]), w.source(&src[2])
		if !w.vertex() {
			w.op("LRP", dst, s0, s1, s2)
			break
		}
		s := w.tmp()
		w.op("SUB", s, s1, s2)
		w.op("MAD", dst, s0, temp(s), s2)
	case ir.OpCmp:
		s0, s1, s2 := w.source(&src[0]), w.source(&src[1]), w.source(&src[2])
		if !w.vertex() {
			w.op("CMP", dst, s0, s2, s1)
			break
		}
		m := w.tmp()
		w.op("SGE", m, s0, splat(0))
		w.blend(dst, temp(m), s1, s2)
	case ir.OpCnd:
		s0, s1, s2 := w.source(&src[0]), w.source(&src[1]), w.source(&src[2])
		m := w.tmp()
		if !w.vertex() {
			w.op("SUB", m, splat(0.5), s0)
			w.op("CMP", dst, temp(m), s1, s2)
			break
		}
		w.op("SLT", m, splat(0.5), s0)
		w.blend(dst, temp(m), s1, s2)

	case ir.OpRcp:
		w.op("RCP", dst, w.scalar(&src[0]))
	case ir.OpRsq:
		// RSQ takes the absolute value itself
		w.op("RSQ", dst, w.scalar(&src[0]))
	case ir.OpExp:
		w.op("EX2", dst, w.scalar(&src[0]))
	case ir.OpExpP:
		if w.vertex() {
			w.op("EXP", dst, w.scalar(&src[0]))
			break
		}
		w.op("EX2", dst, w.scalar(&src[0]))
	case ir.OpLog:
		w.op("LG2", dst, w.absScalar(&src[0]))
	case ir.OpLogP:
		if w.vertex() {
			w.op("LOG", dst, w.scalar(&src[0]))
			break
		}
		w.op("LG2", dst, w.absScalar(&src[0]))
	case ir.OpPow:
		w.op("POW", dst, w.absScalar(&src[0]), w.scalar(&src[1]))
	case ir.OpSinCos:
		w.sincos(inst, t)

	case ir.OpDp2Add:
		s := w.tmp()
		a, b := w.source(&src[0]), w.source(&src[1])
		w.op("MUL", s, a, b)
		w.op("ADD", s+".x", temp(s+".x"), temp(s+".y"))
		w.op("ADD", dst, temp(s+".x"), w.scalar(&src[2]))
	case ir.OpM4x4, ir.OpM4x3, ir.OpM3x4, ir.OpM3x3, ir.OpM3x2:
		w.matrix(inst, t)
	case ir.OpCrs:
		if inst.Dest.Mask.Has(3) {
			w.fail("crs cannot write .w")
		}
		w.op("XPD", dst, w.source(&src[0]), w.source(&src[1]))
	case ir.OpNrm:
		s := w.tmp()
		x := w.source(&src[0])
		w.op("DP3", s+".w", x, x)
		w.op("RSQ", s+".w", temp(s+".w"))
		w.op("MUL", dst, x, temp(s+".w"))

	case ir.OpDsx, ir.OpDsy:
		if w.vertex() || !w.d.derivatives {
			w.fail("%s is not supported by this profile", inst.Op)
			return
		}
		name := "DDX"
		if inst.Op == ir.OpDsy {
			name = "DDY"
		}
		w.op(name, dst, w.source(&src[0]))
	case ir.OpSetP:
		w.compare(t, inst.Compare(), w.source(&src[0]), w.source(&src[1]))

	default:
		w.fail("opcode %s is not supported by this profile", inst.Op)
		return
	}
	w.finish(inst, t)
}

// blend writes m ? a : b where every lane of m is 0 or 1.
func (w *writer) blend(dst string, m, a, b operand) {
	d := w.tmp()
	w.op("SUB", d, a, b)
	w.op("MAD", dst, m, temp(d), b)
}

// absScalar reads the first component of s as |x|.
func (w *writer) absScalar(s *ir.SourceParam) operand {
	c := *s
	switch c.Mod {
	case ir.SrcModNone, ir.SrcModNegate, ir.SrcModAbs, ir.SrcModAbsNegate:
		c.Mod = ir.SrcModAbs
		return w.scalar(&c)
	}
	t := w.tmp()
	w.op("ABS", t, w.scalar(&c))
	return temp(t + ".x")
}

func (w *writer) sincos(inst *ir.Instruction, t target) {
	x := w.scalar(&inst.Src[0])
	if inst.Dest.Mask&^(ir.MaskX|ir.MaskY) != 0 {
		w.fail("sincos writes only .x and .y")
		return
	}
	if !w.vertex() {
		w.op("SCS", t.String(), x)
		return
	}
	if !w.d.vsTrig {
		w.fail("sincos is not supported in vertex programs of this profile")
		return
	}
	if inst.Dest.Mask.Has(0) {
		w.op("COS", t.lane(0), x)
	}
	if inst.Dest.Mask.Has(1) {
		w.op("SIN", t.lane(1), x)
	}
}

// matrix lowers the M*x* family: lane i is the dot product of src0 with
// register src1 + i.
func (w *writer) matrix(inst *ir.Instruction, t target) {
	name, rows := "DP4", 4
	switch inst.Op {
	case ir.OpM4x3:
		rows = 3
	case ir.OpM3x4:
		name = "DP3"
	case ir.OpM3x3:
		name, rows = "DP3", 3
	case ir.OpM3x2:
		name, rows = "DP3", 2
	}
	for l := 0; l < 4; l++ {
		if !inst.Dest.Mask.Has(l) {
			continue
		}
		if l >= rows {
			w.fail("%s writes only %d components", inst.Op, rows)
			return
		}
		row := inst.Src[1]
		row.RegNum += l
		w.op(name, t.lane(l), w.source(&inst.Src[0]), w.source(&row))
	}
}
