package spirv

import (
	"github.com/gogpu/d3dbc/ir"
)

// value is an unswizzled register read.
type value struct {
	id    uint32
	kind  valueKind
	width int
}

var allLanes = []int{0, 1, 2, 3}

// lanesOf returns the lanes enabled in mask.
func lanesOf(mask ir.WriteMask) []int {
	lanes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		if mask.Has(i) {
			lanes = append(lanes, i)
		}
	}
	return lanes
}

func firstLanes(n int) []int { return allLanes[:n] }

// =============================================================================
// Constants and composites
// =============================================================================

func (e *emitter) fconst(f float32) uint32 {
	return e.b.AddConstantFloat32(e.tFloat, f)
}

func (e *emitter) iconst(i int) uint32 {
	return e.b.AddConstant(e.tInt, uint32(int32(i)))
}

// constSplat replicates a scalar constant into a constant vector.
func (e *emitter) constSplat(k valueKind, scalar uint32, n int) uint32 {
	if n == 1 {
		return scalar
	}
	parts := make([]uint32, n)
	for i := range parts {
		parts[i] = scalar
	}
	return e.b.AddConstantComposite(e.typeOf(k, n), parts...)
}

func (e *emitter) fsplat(f float32, n int) uint32 {
	return e.constSplat(kindFloat, e.fconst(f), n)
}

func (e *emitter) zero(k valueKind, n int) uint32 {
	switch k {
	case kindInt:
		return e.constSplat(k, e.iconst(0), n)
	case kindBool:
		return e.constSplat(k, e.b.AddConstantBool(e.tBool, false), n)
	}
	return e.fsplat(0, n)
}

// splat replicates a runtime scalar into a vector.
func (e *emitter) splat(k valueKind, x uint32, n int) uint32 {
	if n == 1 {
		return x
	}
	parts := make([]uint32, n)
	for i := range parts {
		parts[i] = x
	}
	return e.b.AddCompositeConstruct(e.typeOf(k, n), parts...)
}

// vec builds a float vector from scalars.
func (e *emitter) vec(parts ...uint32) uint32 {
	if len(parts) == 1 {
		return parts[0]
	}
	return e.b.AddCompositeConstruct(e.typeOf(kindFloat, len(parts)), parts...)
}

func (e *emitter) ext(inst uint32, t uint32, args ...uint32) uint32 {
	return e.b.AddExtInst(t, e.std, inst, args...)
}

func (e *emitter) load(v variable) uint32 {
	return e.b.AddLoad(e.typeOf(v.kind, v.width), v.id)
}

// swizzle applies swz to a width-4 vector for the given lanes.
func (e *emitter) swizzle(x uint32, k valueKind, swz ir.Swizzle, lanes []int) uint32 {
	comps := make([]uint32, len(lanes))
	identity := len(lanes) == 4
	for i, l := range lanes {
		c := swz.Component(l)
		if c != i {
			identity = false
		}
		comps[i] = uint32(c)
	}
	switch {
	case identity:
		return x
	case len(lanes) == 1:
		return e.b.AddCompositeExtract(e.typeOf(k, 1), x, comps[0])
	}
	return e.b.AddVectorShuffle(e.typeOf(k, len(lanes)), x, x, comps)
}

// pick selects lanes of a float vector.
func (e *emitter) pick(x uint32, lanes []int) uint32 {
	return e.swizzle(x, kindFloat, ir.SwizzleIdentity, lanes)
}

func (e *emitter) extract(x uint32, lane int) uint32 {
	return e.b.AddCompositeExtract(e.tFloat, x, uint32(lane))
}

func (e *emitter) toFloat(x uint32, k valueKind, n int) uint32 {
	switch k {
	case kindInt:
		return e.b.AddUnaryOp(OpConvertSToF, e.typeOf(kindFloat, n), x)
	case kindBool:
		return e.b.AddSelect(e.typeOf(kindFloat, n), x, e.fsplat(1, n), e.fsplat(0, n))
	}
	return x
}

func (e *emitter) toInt(x uint32, n int) uint32 {
	return e.b.AddUnaryOp(OpConvertFToS, e.typeOf(kindInt, n), x)
}

// =============================================================================
// Sources
// =============================================================================

func uniformTypeOf(m member) ir.UniformType {
	switch m {
	case memberInt:
		return ir.UniformInt
	case memberBool:
		return ir.UniformBool
	}
	return ir.UniformFloat
}

// memberPtr returns a pointer to element idx of a uniform block array.
func (e *emitter) memberPtr(m member, idx uint32) uint32 {
	if e.members[m] < 0 {
		e.fail("%s is not part of the uniform block", e.memberName(m))
		return e.ubo
	}
	pt := e.ptr(StorageClassUniform, e.memberElem(m))
	return e.b.AddAccessChain(pt, e.ubo, e.iconst(e.members[m]), idx)
}

func (e *emitter) uniformPtr(m member, reg int) uint32 {
	t := uniformTypeOf(m)
	slot, _, ok := e.prog.UniformSlot(t, reg)
	if !ok {
		e.fail("register %d of the %s file is not a uniform", reg, t)
	}
	return e.memberPtr(m, e.iconst(slot))
}

// regValue loads the register a source reads.
func (e *emitter) regValue(src *ir.SourceParam) value {
	switch src.RegType {
	case ir.RegConst:
		return value{e.floatConst(src), kindFloat, 4}
	case ir.RegConstInt:
		if id, ok := e.consts[regKey{src.RegType, src.RegNum}]; ok {
			return value{id, kindInt, 4}
		}
		return value{e.b.AddLoad(e.typeOf(kindInt, 4), e.uniformPtr(memberInt, src.RegNum)), kindInt, 4}
	case ir.RegConstBool:
		if id, ok := e.consts[regKey{src.RegType, src.RegNum}]; ok {
			return value{id, kindBool, 1}
		}
		i := e.b.AddLoad(e.tInt, e.uniformPtr(memberBool, src.RegNum))
		return value{e.b.AddBinaryOp(OpINotEqual, e.tBool, i, e.iconst(0)), kindBool, 1}
	case ir.RegLoop:
		return value{e.b.AddLoad(e.tInt, e.currentAL()), kindInt, 1}
	case ir.RegSampler, ir.RegLabel:
		e.fail("%s register cannot be read as a value", ir.RegisterName(e.prog.Type, e.prog.Version, src.RegType, src.RegNum))
		return value{e.fconst(0), kindFloat, 1}
	}
	v, ok := e.regs[regKey{src.RegType, src.RegNum}]
	if !ok {
		e.fail("register %s is not declared", ir.RegisterName(e.prog.Type, e.prog.Version, src.RegType, src.RegNum))
		return value{e.fconst(0), kindFloat, 1}
	}
	if src.Relative {
		e.fail("relative addressing of %s is not supported", ir.RegisterName(e.prog.Type, e.prog.Version, src.RegType, src.RegNum))
	}
	return value{e.load(v), v.kind, v.width}
}

func (e *emitter) floatConst(src *ir.SourceParam) uint32 {
	vec4 := e.typeOf(kindFloat, 4)
	if !src.Relative {
		if id, ok := e.consts[regKey{ir.RegConst, src.RegNum}]; ok {
			return id
		}
		return e.b.AddLoad(vec4, e.uniformPtr(memberFloat, src.RegNum))
	}
	arr := e.prog.ArrayFor(ir.UniformFloat, src.RegNum)
	if arr == nil {
		e.fail("relative read of c%d outside any constant array", src.RegNum)
		return e.fsplat(0, 4)
	}
	off := src.RegNum - arr.Index
	rel := e.relIndex(src)
	if arr.Constant {
		idx := e.b.AddBinaryOp(OpIAdd, e.tInt, e.iconst(off), rel)
		p := e.b.AddAccessChain(e.ptr(StorageClassPrivate, vec4), e.arrays[arr.Index], idx)
		return e.b.AddLoad(vec4, p)
	}
	slot, _, _ := e.prog.UniformSlot(ir.UniformFloat, arr.Index)
	idx := e.b.AddBinaryOp(OpIAdd, e.tInt, e.iconst(slot+off), rel)
	return e.b.AddLoad(vec4, e.memberPtr(memberFloat, idx))
}

func (e *emitter) relIndex(src *ir.SourceParam) uint32 {
	if src.RelType == ir.RegLoop {
		return e.b.AddLoad(e.tInt, e.currentAL())
	}
	a, ok := e.regs[regKey{ir.RegAddress, src.RelNum}]
	if !ok || a.kind != kindInt {
		e.fail("relative index a%d is not an address register", src.RelNum)
		return e.iconst(0)
	}
	return e.b.AddCompositeExtract(e.tInt, e.load(a), uint32(src.RelComponent&3))
}

// srcFloat returns source src as a float vector holding the swizzled
// components for the given lanes, with its modifier applied.
func (e *emitter) srcFloat(src *ir.SourceParam, lanes []int) uint32 {
	v := e.regValue(src)
	n := len(lanes)
	var x uint32
	if v.width == 1 {
		x = e.splat(kindFloat, e.toFloat(v.id, v.kind, 1), n)
	} else {
		x = e.toFloat(e.swizzle(v.id, v.kind, src.Swizzle, lanes), v.kind, n)
	}
	return e.modify(src, v, x, n)
}

func (e *emitter) modify(src *ir.SourceParam, v value, x uint32, n int) uint32 {
	t := e.typeOf(kindFloat, n)
	neg := func(y uint32) uint32 { return e.b.AddUnaryOp(OpFNegate, t, y) }
	switch src.Mod {
	case ir.SrcModNone:
		return x
	case ir.SrcModNegate:
		return neg(x)
	case ir.SrcModBias:
		return e.b.AddBinaryOp(OpFSub, t, x, e.fsplat(0.5, n))
	case ir.SrcModBiasNegate:
		return neg(e.b.AddBinaryOp(OpFSub, t, x, e.fsplat(0.5, n)))
	case ir.SrcModSign, ir.SrcModSignNegate:
		y := e.b.AddBinaryOp(OpFSub, t, e.b.AddBinaryOp(OpFMul, t, x, e.fsplat(2, n)), e.fsplat(1, n))
		if src.Mod == ir.SrcModSignNegate {
			return neg(y)
		}
		return y
	case ir.SrcModComplement:
		return e.b.AddBinaryOp(OpFSub, t, e.fsplat(1, n), x)
	case ir.SrcModX2:
		return e.b.AddBinaryOp(OpFMul, t, x, e.fsplat(2, n))
	case ir.SrcModX2Negate:
		return neg(e.b.AddBinaryOp(OpFMul, t, x, e.fsplat(2, n)))
	case ir.SrcModDz, ir.SrcModDw:
		lane := 2
		if src.Mod == ir.SrcModDw {
			lane = 3
		}
		div := v.id
		if v.width > 1 {
			div = e.b.AddCompositeExtract(e.typeOf(v.kind, 1), v.id, uint32(src.Swizzle.Component(lane)))
		}
		div = e.splat(kindFloat, e.toFloat(div, v.kind, 1), n)
		return e.b.AddBinaryOp(OpFDiv, t, x, div)
	case ir.SrcModAbs:
		return e.ext(GLSLstd450FAbs, t, x)
	case ir.SrcModAbsNegate:
		return neg(e.ext(GLSLstd450FAbs, t, x))
	}
	e.fail("source modifier %d is not valid on a float operand", src.Mod)
	return x
}

// srcScalar reads the first swizzled component of src.
func (e *emitter) srcScalar(src *ir.SourceParam) uint32 {
	return e.srcFloat(src, allLanes[:1])
}

// srcInt returns an integer register used as a loop control vector.
func (e *emitter) srcInt(src *ir.SourceParam) uint32 {
	v := e.regValue(src)
	if v.kind != kindInt || v.width != 4 {
		e.fail("loop control must be an integer register")
		return e.zero(kindInt, 4)
	}
	return v.id
}

// srcBool returns a boolean condition read from a bool or predicate register.
func (e *emitter) srcBool(src *ir.SourceParam) uint32 {
	v := e.regValue(src)
	if v.kind != kindBool {
		e.fail("condition must be a boolean register")
		return e.zero(kindBool, 1)
	}
	x := v.id
	if v.width == 4 {
		x = e.b.AddCompositeExtract(e.tBool, x, uint32(src.Swizzle.Component(0)))
	}
	if src.Mod == ir.SrcModNot {
		return e.b.AddUnaryOp(OpLogicalNot, e.tBool, x)
	}
	return x
}

// =============================================================================
// Destinations
// =============================================================================

func (e *emitter) destKind(d *ir.DestParam) valueKind {
	switch {
	case d.RegType == ir.RegAddress && e.prog.IsVertex():
		return kindInt
	case d.RegType == ir.RegPredicate:
		return kindBool
	}
	return kindFloat
}

// assign writes a float vector of the destination's width, applying the
// result shift and saturation.
func (e *emitter) assign(inst *ir.Instruction, x uint32) {
	d := &inst.Dest
	n := d.Mask.Count()
	t := e.typeOf(kindFloat, n)
	if d.Shift != 0 {
		scale := float32(1) / float32(int(1)<<uint(-d.Shift))
		if d.Shift > 0 {
			scale = float32(int(1) << uint(d.Shift))
		}
		x = e.b.AddBinaryOp(OpFMul, t, x, e.fsplat(scale, n))
	}
	if d.Saturate() {
		x = e.ext(GLSLstd450FClamp, t, x, e.fsplat(0, n), e.fsplat(1, n))
	}
	e.store(inst, x)
}

// store merges x into the destination through its write mask, honoring
// predication.
func (e *emitter) store(inst *ir.Instruction, x uint32) {
	d := &inst.Dest
	if d.Relative {
		e.fail("relative output addressing is not supported")
		return
	}
	v, ok := e.regs[regKey{d.RegType, d.RegNum}]
	if !ok || v.width != 4 {
		e.fail("%s cannot be written", ir.RegisterName(e.prog.Type, e.prog.Version, d.RegType, d.RegNum))
		return
	}
	lanes := lanesOf(d.Mask)
	if len(lanes) == 0 {
		return
	}
	if len(lanes) == 4 && !inst.Predicated {
		e.b.AddStore(v.id, x)
		return
	}

	t4 := e.typeOf(v.kind, 4)
	old := e.load(v)
	merged := x
	switch {
	case len(lanes) == 1:
		merged = e.b.AddCompositeInsert(t4, x, old, uint32(lanes[0]))
	case len(lanes) < 4:
		comps := []uint32{0, 1, 2, 3}
		for j, l := range lanes {
			comps[l] = uint32(4 + j)
		}
		merged = e.b.AddVectorShuffle(t4, old, x, comps)
	}
	if inst.Predicated {
		p := &inst.Predicate
		pv, ok := e.regs[regKey{p.RegType, p.RegNum}]
		if !ok {
			e.fail("predicate register is not declared")
			return
		}
		cond := e.swizzle(e.load(pv), kindBool, p.Swizzle, allLanes)
		if p.Mod == ir.SrcModNot {
			cond = e.b.AddUnaryOp(OpLogicalNot, e.typeOf(kindBool, 4), cond)
		}
		merged = e.b.AddSelect(t4, cond, merged, old)
	}
	e.b.AddStore(v.id, merged)
}
