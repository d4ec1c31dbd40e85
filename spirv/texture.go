package spirv

import (
	"github.com/gogpu/d3dbc/ir"
)

type padRow struct {
	reg uint32 // texcoord register as loaded by the pad
	dot uint32
}

type sampleKind uint8

const (
	samplePlain sampleKind = iota
	sampleBias
	sampleLod
	sampleGrad
)

func samplerDims(t ir.SamplerType) int {
	if samplerDim(t) == Dim2D {
		return 2
	}
	return 3
}

// sample emits a lookup through sampler stage and returns the vec4 result.
// coord yields the coordinate for the sampler's dimension count; extra
// yields the level, or the two gradients of a grad lookup.
func (e *emitter) sample(stage int, kind sampleKind, coord func(dims int) uint32, extra func(dims int) []uint32) uint32 {
	vec4 := e.typeOf(kindFloat, 4)
	s := e.prog.Sampler(stage)
	v, ok := e.samplers[stage]
	if s == nil || !ok {
		e.fail("sampler s%d is not declared", stage)
		return e.zero(kindFloat, 4)
	}
	dims := samplerDims(s.Type)
	img := e.b.AddLoad(e.sampled[stage], v)
	c := coord(dims)

	// Implicit-LOD sampling is fragment-only.
	if e.prog.IsVertex() && (kind == samplePlain || kind == sampleBias) {
		kind = sampleLod
		if extra == nil {
			extra = func(int) []uint32 { return []uint32{e.fconst(0)} }
		}
	}
	switch kind {
	case sampleBias:
		return e.b.AddImageSample(OpImageSampleImplicitLod, vec4, img, c, ImageOperandsBias, extra(dims)...)
	case sampleLod:
		return e.b.AddImageSample(OpImageSampleExplicitLod, vec4, img, c, ImageOperandsLod, extra(dims)...)
	case sampleGrad:
		return e.b.AddImageSample(OpImageSampleExplicitLod, vec4, img, c, ImageOperandsGrad, extra(dims)...)
	}
	return e.b.AddImageSample(OpImageSampleImplicitLod, vec4, img, c, 0)
}

// coordFrom builds a coordinate from the first lanes of a source.
func (e *emitter) coordFrom(src *ir.SourceParam) func(int) uint32 {
	return func(dims int) uint32 { return e.srcFloat(src, firstLanes(dims)) }
}

// coordOf builds a coordinate from scalars, padding with zeros up to the
// sampler dimension.
func (e *emitter) coordOf(parts ...uint32) func(int) uint32 {
	return func(dims int) uint32 {
		p := append([]uint32(nil), parts...)
		for len(p) < dims {
			p = append(p, e.fconst(0))
		}
		return e.vec(p[:dims]...)
	}
}

func (e *emitter) texReg(num int) uint32 {
	v, ok := e.regs[regKey{ir.RegTexture, num}]
	if !ok {
		e.fail("texture register t%d is not declared", num)
		return e.zero(kindFloat, 4)
	}
	return e.load(v)
}

func (e *emitter) texture(inst *ir.Instruction) {
	lanes := lanesOf(inst.Dest.Mask)
	src := inst.Src
	v := e.prog.Version
	stage := inst.Dest.RegNum

	switch inst.Op {
	case ir.OpTex:
		switch {
		case v.AtLeast(2, 0):
			e.texld(inst, lanes)
		case v.AtLeast(1, 4):
			e.assign(inst, e.pick(e.sample(stage, samplePlain, e.coordFrom(&src[0]), nil), lanes))
		default:
			t := e.texReg(stage)
			x := e.sample(stage, samplePlain, func(dims int) uint32 {
				return e.pick(t, firstLanes(dims))
			}, nil)
			e.assign(inst, e.pick(x, lanes))
		}
	case ir.OpTexLdl:
		x := e.sample(src[1].RegNum, sampleLod, e.coordFrom(&src[0]), func(int) []uint32 {
			return []uint32{e.srcFloat(&src[0], []int{3})}
		})
		e.assign(inst, e.swizzle(x, kindFloat, src[1].Swizzle, lanes))
	case ir.OpTexLdd:
		x := e.sample(src[1].RegNum, sampleGrad, e.coordFrom(&src[0]), func(dims int) []uint32 {
			return []uint32{e.srcFloat(&src[2], firstLanes(dims)), e.srcFloat(&src[3], firstLanes(dims))}
		})
		e.assign(inst, e.swizzle(x, kindFloat, src[1].Swizzle, lanes))

	case ir.OpTexCoord:
		if v.AtLeast(1, 4) {
			e.assign(inst, e.srcFloat(&src[0], lanes))
			return
		}
		t := e.texReg(stage)
		xyz := e.b.AddVectorShuffle(e.typeOf(kindFloat, 3), t, t, []uint32{0, 1, 2})
		sat := e.ext(GLSLstd450FClamp, e.typeOf(kindFloat, 3), xyz, e.fsplat(0, 3), e.fsplat(1, 3))
		x := e.b.AddCompositeConstruct(e.typeOf(kindFloat, 4), sat, e.fconst(1))
		e.assign(inst, e.pick(x, lanes))
	case ir.OpTexKill:
		r, ok := e.regs[regKey{inst.Dest.RegType, inst.Dest.RegNum}]
		if !ok {
			e.fail("texkill reads an undeclared register")
			return
		}
		x := e.load(r)
		xyz := e.b.AddVectorShuffle(e.typeOf(kindFloat, 3), x, x, []uint32{0, 1, 2})
		neg := e.compare(ir.CompareLT, xyz, e.fsplat(0, 3), 3)
		e.selection(e.b.AddUnaryOp(OpAny, e.tBool, neg), func() bool {
			e.b.AddKill()
			return true
		})

	case ir.OpTexBem, ir.OpTexBemL:
		t := e.texReg(stage)
		du, dv := e.srcFloat(&src[0], []int{0}), e.srcFloat(&src[0], []int{1})
		m, l := e.bumpEnv(stage)
		u := e.bumpRow(e.extract(t, 0), m[0], m[2], du, dv)
		w := e.bumpRow(e.extract(t, 1), m[1], m[3], du, dv)
		x := e.sample(stage, samplePlain, e.coordOf(u, w, e.extract(t, 2)), nil)
		if inst.Op == ir.OpTexBemL {
			lum := e.b.AddBinaryOp(OpFAdd, e.tFloat,
				e.b.AddBinaryOp(OpFMul, e.tFloat, e.srcFloat(&src[0], []int{2}), l[0]), l[1])
			x = e.b.AddBinaryOp(OpVectorTimesScalar, e.typeOf(kindFloat, 4), x, lum)
		}
		e.assign(inst, e.pick(x, lanes))
	case ir.OpBem:
		m, _ := e.bumpEnv(stage)
		s0x, s0y := e.srcFloat(&src[0], []int{0}), e.srcFloat(&src[0], []int{1})
		s1x, s1y := e.srcFloat(&src[1], []int{0}), e.srcFloat(&src[1], []int{1})
		full := [2]uint32{
			e.bumpRow(s0x, m[0], m[2], s1x, s1y),
			e.bumpRow(s0y, m[1], m[3], s1x, s1y),
		}
		parts := make([]uint32, 0, 2)
		for _, l := range lanes {
			if l > 1 {
				e.fail("bem writes only .x and .y")
				return
			}
			parts = append(parts, full[l])
		}
		e.assign(inst, e.vec(parts...))

	case ir.OpTexReg2AR, ir.OpTexReg2GB, ir.OpTexReg2RGB:
		c := func(i int) uint32 { return e.srcFloat(&src[0], []int{i}) }
		var coord func(int) uint32
		switch inst.Op {
		case ir.OpTexReg2AR:
			coord = e.coordOf(c(3), c(0))
		case ir.OpTexReg2GB:
			coord = e.coordOf(c(1), c(2))
		default:
			coord = e.coordOf(c(0), c(1), c(2))
		}
		e.assign(inst, e.pick(e.sample(stage, samplePlain, coord, nil), lanes))

	case ir.OpTexM3x2Pad, ir.OpTexM3x3Pad:
		t := e.texReg(stage)
		e.pads = append(e.pads, padRow{reg: t, dot: e.texDot(t, &src[0])})
	case ir.OpTexM3x2Tex:
		if rows := e.takePads(inst, 1); rows != nil {
			d := e.texDot(e.texReg(stage), &src[0])
			e.assign(inst, e.pick(e.sample(stage, samplePlain, e.coordOf(rows[0].dot, d), nil), lanes))
		}
	case ir.OpTexM3x3Tex:
		if rows := e.takePads(inst, 2); rows != nil {
			d := e.texDot(e.texReg(stage), &src[0])
			x := e.sample(stage, samplePlain, e.coordOf(rows[0].dot, rows[1].dot, d), nil)
			e.assign(inst, e.pick(x, lanes))
		}
	case ir.OpTexM3x3:
		if rows := e.takePads(inst, 2); rows != nil {
			d := e.texDot(e.texReg(stage), &src[0])
			e.assign(inst, e.pick(e.vec(rows[0].dot, rows[1].dot, d, e.fconst(1)), lanes))
		}
	case ir.OpTexM3x3Spec, ir.OpTexM3x3VSpec:
		rows := e.takePads(inst, 2)
		if rows == nil {
			return
		}
		vec3 := e.typeOf(kindFloat, 3)
		t := e.texReg(stage)
		normal := e.vec(rows[0].dot, rows[1].dot, e.texDot(t, &src[0]))
		var eye uint32
		if inst.Op == ir.OpTexM3x3Spec {
			eye = e.srcFloat(&src[1], firstLanes(3))
		} else {
			eye = e.vec(e.extract(rows[0].reg, 3), e.extract(rows[1].reg, 3), e.extract(t, 3))
		}
		// 2 * n * dot(n, e) / dot(n, n) - e
		ne := e.b.AddBinaryOp(OpDot, e.tFloat, normal, eye)
		nn := e.b.AddBinaryOp(OpDot, e.tFloat, normal, normal)
		k := e.b.AddBinaryOp(OpFMul, e.tFloat, e.fconst(2), e.b.AddBinaryOp(OpFDiv, e.tFloat, ne, nn))
		refl := e.b.AddBinaryOp(OpFSub, vec3, e.b.AddBinaryOp(OpVectorTimesScalar, vec3, normal, k), eye)
		x := e.sample(stage, samplePlain, func(dims int) uint32 {
			if dims == 2 {
				return e.b.AddVectorShuffle(e.typeOf(kindFloat, 2), refl, refl, []uint32{0, 1})
			}
			return refl
		}, nil)
		e.assign(inst, e.pick(x, lanes))

	case ir.OpTexDp3Tex:
		d := e.texDot(e.texReg(stage), &src[0])
		e.assign(inst, e.pick(e.sample(stage, samplePlain, e.coordOf(d), nil), lanes))
	case ir.OpTexDp3:
		e.assign(inst, e.splat(kindFloat, e.texDot(e.texReg(stage), &src[0]), len(lanes)))

	case ir.OpTexDepth, ir.OpTexM3x2Depth:
		e.fail("%s is not supported by this profile", inst.Op)
	default:
		e.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

// texld lowers the shader model 2+ sampling instruction.
func (e *emitter) texld(inst *ir.Instruction, lanes []int) {
	src := inst.Src
	stage := src[1].RegNum
	var x uint32
	switch {
	case inst.Projected():
		c4 := e.srcFloat(&src[0], allLanes)
		proj := e.srcFloat(&src[0], []int{3})
		x = e.sample(stage, samplePlain, func(dims int) uint32 {
			inv := e.b.AddBinaryOp(OpFDiv, e.tFloat, e.fconst(1), proj)
			return e.b.AddBinaryOp(OpVectorTimesScalar, e.typeOf(kindFloat, dims), e.pick(c4, firstLanes(dims)), inv)
		}, nil)
	case inst.Biased():
		x = e.sample(stage, sampleBias, e.coordFrom(&src[0]), func(int) []uint32 {
			return []uint32{e.srcFloat(&src[0], []int{3})}
		})
	default:
		x = e.sample(stage, samplePlain, e.coordFrom(&src[0]), nil)
	}
	e.assign(inst, e.swizzle(x, kindFloat, src[1].Swizzle, lanes))
}

// texDot is the row product of a ps 1.x matrix instruction: the dot of a
// texcoord register with the source register.
func (e *emitter) texDot(t uint32, src *ir.SourceParam) uint32 {
	xyz := e.b.AddVectorShuffle(e.typeOf(kindFloat, 3), t, t, []uint32{0, 1, 2})
	return e.b.AddBinaryOp(OpDot, e.tFloat, xyz, e.srcFloat(src, firstLanes(3)))
}

func (e *emitter) takePads(inst *ir.Instruction, n int) []padRow {
	if len(e.pads) < n {
		e.fail("%s without its pad instructions", inst.Op)
		e.pads = nil
		return nil
	}
	rows := e.pads[len(e.pads)-n:]
	e.pads = nil
	return rows
}

// bumpRow computes base + a*du + b*dv.
func (e *emitter) bumpRow(base, a, b, du, dv uint32) uint32 {
	f := e.tFloat
	x := e.b.AddBinaryOp(OpFAdd, f, base, e.b.AddBinaryOp(OpFMul, f, a, du))
	return e.b.AddBinaryOp(OpFAdd, f, x, e.b.AddBinaryOp(OpFMul, f, b, dv))
}

// bumpEnv returns the 2x2 matrix (m00 m01 m10 m11) and the luminance
// scale and offset of a sampler stage.
func (e *emitter) bumpEnv(stage int) ([4]uint32, [2]uint32) {
	if env, ok := e.opts.BumpEnv[stage]; ok {
		return [4]uint32{e.fconst(env.Mat[0]), e.fconst(env.Mat[1]), e.fconst(env.Mat[2]), e.fconst(env.Mat[3])},
			[2]uint32{e.fconst(env.LScale), e.fconst(env.LOffset)}
	}
	vec4 := e.typeOf(kindFloat, 4)
	mat := e.b.AddLoad(vec4, e.memberPtr(memberTexbem, e.iconst(2*stage)))
	lum := e.b.AddLoad(vec4, e.memberPtr(memberTexbem, e.iconst(2*stage+1)))
	return [4]uint32{e.extract(mat, 0), e.extract(mat, 1), e.extract(mat, 2), e.extract(mat, 3)},
		[2]uint32{e.extract(lum, 0), e.extract(lum, 1)}
}
