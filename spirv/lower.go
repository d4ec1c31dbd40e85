package spirv

import (
	"github.com/gogpu/d3dbc/ir"
)

var compareOps = [...]OpCode{
	ir.CompareGT: OpFOrdGreaterThan,
	ir.CompareEQ: OpFOrdEqual,
	ir.CompareGE: OpFOrdGreaterThanEqual,
	ir.CompareLT: OpFOrdLessThan,
	ir.CompareNE: OpFOrdNotEqual,
	ir.CompareLE: OpFOrdLessThanEqual,
}

// compare returns a bool vector of width n.
func (e *emitter) compare(c ir.Compare, a, b uint32, n int) uint32 {
	if c == 0 || int(c) >= len(compareOps) {
		e.fail("invalid comparison %d", c)
		return e.zero(kindBool, n)
	}
	return e.b.AddBinaryOp(compareOps[c], e.typeOf(kindBool, n), a, b)
}

func (e *emitter) boolToFloat(cond uint32, n int) uint32 {
	return e.b.AddSelect(e.typeOf(kindFloat, n), cond, e.fsplat(1, n), e.fsplat(0, n))
}

func (e *emitter) instruction(inst *ir.Instruction) {
	if inst.Op.IsFlowControl() {
		e.flow(inst)
		return
	}
	if inst.Op.IsTextureOp() || inst.Op == ir.OpBem {
		e.texture(inst)
		return
	}

	src := inst.Src
	lanes := lanesOf(inst.Dest.Mask)
	n := len(lanes)
	t := e.typeOf(kindFloat, n)
	arg := func(i int) uint32 { return e.srcFloat(&src[i], lanes) }
	bin := func(op OpCode) uint32 { return e.b.AddBinaryOp(op, t, arg(0), arg(1)) }
	std := func(fn uint32, args ...uint32) uint32 { return e.ext(fn, t, args...) }
	scalar := func(x uint32) { e.assign(inst, e.splat(kindFloat, x, n)) }

	switch inst.Op {
	case ir.OpNop, ir.OpPhase:
	case ir.OpMov:
		if e.destKind(&inst.Dest) == kindInt {
			e.store(inst, e.toInt(std(GLSLstd450Floor, arg(0)), n))
			return
		}
		e.assign(inst, arg(0))
	case ir.OpMova:
		x := e.b.AddBinaryOp(OpFAdd, t, arg(0), e.fsplat(0.5, n))
		e.store(inst, e.toInt(std(GLSLstd450Floor, x), n))
	case ir.OpAdd:
		e.assign(inst, bin(OpFAdd))
	case ir.OpSub:
		e.assign(inst, bin(OpFSub))
	case ir.OpMul:
		e.assign(inst, bin(OpFMul))
	case ir.OpMad:
		x := bin(OpFMul)
		e.assign(inst, e.b.AddBinaryOp(OpFAdd, t, x, arg(2)))
	case ir.OpMin:
		e.assign(inst, std(GLSLstd450FMin, arg(0), arg(1)))
	case ir.OpMax:
		e.assign(inst, std(GLSLstd450FMax, arg(0), arg(1)))
	case ir.OpAbs:
		e.assign(inst, std(GLSLstd450FAbs, arg(0)))
	case ir.OpFrc:
		e.assign(inst, std(GLSLstd450Fract, arg(0)))
	case ir.OpSgn:
		e.assign(inst, std(GLSLstd450FSign, arg(0)))
	case ir.OpLrp:
		s0, s1, s2 := arg(0), arg(1), arg(2)
		e.assign(inst, std(GLSLstd450FMix, s2, s1, s0))
	case ir.OpSlt:
		e.assign(inst, e.boolToFloat(e.compare(ir.CompareLT, arg(0), arg(1), n), n))
	case ir.OpSge:
		e.assign(inst, e.boolToFloat(e.compare(ir.CompareGE, arg(0), arg(1), n), n))
	case ir.OpCmp:
		cond := e.compare(ir.CompareGE, arg(0), e.fsplat(0, n), n)
		e.assign(inst, e.b.AddSelect(t, cond, arg(1), arg(2)))
	case ir.OpCnd:
		cond := e.compare(ir.CompareGT, arg(0), e.fsplat(0.5, n), n)
		e.assign(inst, e.b.AddSelect(t, cond, arg(1), arg(2)))

	case ir.OpRcp:
		scalar(e.b.AddBinaryOp(OpFDiv, e.tFloat, e.fconst(1), e.srcScalar(&src[0])))
	case ir.OpRsq:
		x := e.ext(GLSLstd450FAbs, e.tFloat, e.srcScalar(&src[0]))
		scalar(e.ext(GLSLstd450InverseSqrt, e.tFloat, x))
	case ir.OpExp, ir.OpExpP:
		scalar(e.ext(GLSLstd450Exp2, e.tFloat, e.srcScalar(&src[0])))
	case ir.OpLog, ir.OpLogP:
		x := e.ext(GLSLstd450FAbs, e.tFloat, e.srcScalar(&src[0]))
		scalar(e.ext(GLSLstd450Log2, e.tFloat, x))
	case ir.OpPow:
		base := e.ext(GLSLstd450FAbs, e.tFloat, e.srcScalar(&src[0]))
		scalar(e.ext(GLSLstd450Pow, e.tFloat, base, e.srcScalar(&src[1])))
	case ir.OpSinCos:
		x := e.srcScalar(&src[0])
		parts := make([]uint32, 0, 2)
		for _, l := range lanes {
			switch l {
			case 0:
				parts = append(parts, e.ext(GLSLstd450Cos, e.tFloat, x))
			case 1:
				parts = append(parts, e.ext(GLSLstd450Sin, e.tFloat, x))
			default:
				e.fail("sincos writes only .x and .y")
				return
			}
		}
		e.assign(inst, e.vec(parts...))

	case ir.OpDp3:
		scalar(e.dot(&src[0], &src[1], 3))
	case ir.OpDp4:
		scalar(e.dot(&src[0], &src[1], 4))
	case ir.OpDp2Add:
		d := e.dot(&src[0], &src[1], 2)
		scalar(e.b.AddBinaryOp(OpFAdd, e.tFloat, d, e.srcScalar(&src[2])))
	case ir.OpM4x4, ir.OpM4x3, ir.OpM3x4, ir.OpM3x3, ir.OpM3x2:
		e.matrix(inst, lanes)
	case ir.OpCrs:
		for _, l := range lanes {
			if l > 2 {
				e.fail("crs cannot write .w")
				return
			}
		}
		a, b := e.srcFloat(&src[0], firstLanes(3)), e.srcFloat(&src[1], firstLanes(3))
		x := e.ext(GLSLstd450Cross, e.typeOf(kindFloat, 3), a, b)
		if n < 3 {
			x = e.swizzle(x, kindFloat, ir.SwizzleIdentity, lanes)
		}
		e.assign(inst, x)
	case ir.OpNrm:
		v3 := e.srcFloat(&src[0], firstLanes(3))
		inv := e.ext(GLSLstd450InverseSqrt, e.tFloat, e.b.AddBinaryOp(OpDot, e.tFloat, v3, v3))
		if n == 1 {
			e.assign(inst, e.b.AddBinaryOp(OpFMul, t, arg(0), inv))
			return
		}
		e.assign(inst, e.b.AddBinaryOp(OpVectorTimesScalar, t, arg(0), inv))
	case ir.OpLit:
		e.lit(inst, lanes)
	case ir.OpDst:
		y := e.b.AddBinaryOp(OpFMul, e.tFloat, e.srcFloat(&src[0], []int{1}), e.srcFloat(&src[1], []int{1}))
		x := e.vec(e.fconst(1), y, e.srcFloat(&src[0], []int{2}), e.srcFloat(&src[1], []int{3}))
		e.assign(inst, e.pick(x, lanes))

	case ir.OpDsx, ir.OpDsy:
		if !e.prog.IsPixel() {
			e.fail("%s is only valid in pixel shaders", inst.Op)
			return
		}
		op := OpDPdx
		if inst.Op == ir.OpDsy {
			op = OpDPdy
		}
		e.assign(inst, e.b.AddUnaryOp(op, t, arg(0)))
	case ir.OpSetP:
		e.store(inst, e.compare(inst.Compare(), arg(0), arg(1), n))

	default:
		e.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

func (e *emitter) dot(a, b *ir.SourceParam, n int) uint32 {
	return e.b.AddBinaryOp(OpDot, e.tFloat, e.srcFloat(a, firstLanes(n)), e.srcFloat(b, firstLanes(n)))
}

// matrix lowers the M*x* family: lane i is the dot product of src0 with
// register src1 + i.
func (e *emitter) matrix(inst *ir.Instruction, lanes []int) {
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
	parts := make([]uint32, 0, len(lanes))
	for _, l := range lanes {
		if l >= rows {
			e.fail("%s writes only %d components", inst.Op, rows)
			return
		}
		row := inst.Src[1]
		row.RegNum += l
		parts = append(parts, e.dot(&inst.Src[0], &row, cols))
	}
	e.assign(inst, e.vec(parts...))
}

// lit computes (1, max(x, 0), x > 0 && y > 0 ? y^w : 0, 1) with w clamped
// to the D3D range.
func (e *emitter) lit(inst *ir.Instruction, lanes []int) {
	s := e.srcFloat(&inst.Src[0], allLanes)
	x, y, w := e.extract(s, 0), e.extract(s, 1), e.extract(s, 3)
	zero, one := e.fconst(0), e.fconst(1)

	xPos := e.b.AddBinaryOp(OpFOrdGreaterThan, e.tBool, x, zero)
	yPos := e.b.AddBinaryOp(OpFOrdGreaterThan, e.tBool, y, zero)
	ly := e.b.AddSelect(e.tFloat, xPos, x, zero)
	exp := e.ext(GLSLstd450FClamp, e.tFloat, w, e.fconst(-127.9961), e.fconst(127.9961))
	pow := e.ext(GLSLstd450Pow, e.tFloat, y, exp)
	lz := e.b.AddSelect(e.tFloat, e.b.AddBinaryOp(OpLogicalAnd, e.tBool, xPos, yPos), pow, zero)

	res := e.b.AddCompositeConstruct(e.typeOf(kindFloat, 4), one, ly, lz, one)
	e.assign(inst, e.pick(res, lanes))
}
