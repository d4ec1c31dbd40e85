package shaderlang

import (
	"github.com/gogpu/d3dbc/ir"
)

func samplerDims(s *ir.Sampler) int {
	if s.Type == ir.Sampler2D {
		return 2
	}
	return 3
}

// sample emits a lookup through sampler stage and returns the vec4 result.
// coord yields the coordinate for the sampler's dimension count.
func (w *Writer) sample(stage int, kind SampleKind, coord func(dims int) string, level, ddx, ddy func(dims int) string) string {
	s := w.prog.Sampler(stage)
	if s == nil {
		w.fail("sampler s%d is not declared", stage)
		return w.zero(4)
	}
	dims := samplerDims(s)
	req := SampleRequest{
		Sampler: s,
		Name:    w.SamplerName(stage),
		Kind:    kind,
		Coord:   coord(dims),
		Dims:    dims,
		Vertex:  w.prog.IsVertex(),
	}
	switch kind {
	case SampleBias, SampleLod:
		req.Level = level(dims)
		if kind == SampleLod {
			w.needs.TextureLod = true
		}
	case SampleGrad:
		req.DDX, req.DDY = ddx(dims), ddy(dims)
		w.needs.TextureLod = true
	}
	x, err := w.dialect.Sample(req)
	if err != nil {
		w.fail("%v", err)
		return w.zero(4)
	}
	return x
}

// coordFrom builds a coordinate from the first lanes of a source.
func (w *Writer) coordFrom(src *ir.SourceParam) func(int) string {
	return func(dims int) string { return w.srcFloat(src, firstLanes(dims)) }
}

// coordOf builds a coordinate from fixed component expressions, padding
// with zeros up to the sampler dimension.
func (w *Writer) coordOf(parts ...string) func(int) string {
	return func(dims int) string {
		p := append([]string(nil), parts...)
		for len(p) < dims {
			p = append(p, "0.0")
		}
		return w.vec(p[:dims]...)
	}
}

func (w *Writer) texReg(num int) string {
	return w.RegName(ir.RegTexture, num)
}

func (w *Writer) texture(inst *ir.Instruction) {
	lanes := lanesOf(inst.Dest.Mask)
	src := inst.Src
	v := w.prog.Version

	switch inst.Op {
	case ir.OpTex:
		switch {
		case v.AtLeast(2, 0):
			w.texld(inst, lanes)
		case v.AtLeast(1, 4):
			x := w.sample(inst.Dest.RegNum, SamplePlain, w.coordFrom(&src[0]), nil, nil, nil)
			w.assign(inst, pick(x, lanes))
		default:
			t := w.texReg(inst.Dest.RegNum)
			x := w.sample(inst.Dest.RegNum, SamplePlain, func(dims int) string { return pick(t, firstLanes(dims)) }, nil, nil, nil)
			w.assign(inst, pick(x, lanes))
		}
	case ir.OpTexLdl:
		x := w.sample(src[1].RegNum, SampleLod, w.coordFrom(&src[0]),
			func(int) string { return w.srcFloat(&src[0], []int{3}) }, nil, nil)
		w.assign(inst, swizzle(x, src[1].Swizzle, lanes))
	case ir.OpTexLdd:
		x := w.sample(src[1].RegNum, SampleGrad, w.coordFrom(&src[0]), nil,
			w.coordFrom(&src[2]), w.coordFrom(&src[3]))
		w.assign(inst, swizzle(x, src[1].Swizzle, lanes))

	case ir.OpTexCoord:
		if v.AtLeast(1, 4) {
			w.assign(inst, w.srcFloat(&src[0], lanes))
			return
		}
		t := w.texReg(inst.Dest.RegNum)
		x := w.vec(w.dialect.Saturate(t+".xyz"), "1.0")
		w.assign(inst, pick(x, lanes))
	case ir.OpTexKill:
		r := w.RegName(inst.Dest.RegType, inst.Dest.RegNum) + ".xyz"
		cond := w.dialect.Any(w.dialect.Compare(ir.CompareLT, r, w.zero(3), 3), 3)
		w.out.Line("if (%s) %s;", cond, w.dialect.Discard())
		w.needs.Discard = true

	case ir.OpTexBem, ir.OpTexBemL:
		stage := inst.Dest.RegNum
		t := w.texReg(stage)
		du, dv := w.srcFloat(&src[0], []int{0}), w.srcFloat(&src[0], []int{1})
		m, l := w.bumpEnv(stage)
		u := t + ".x + " + m[0] + " * " + du + " + " + m[2] + " * " + dv
		vv := t + ".y + " + m[1] + " * " + du + " + " + m[3] + " * " + dv
		x := w.sample(stage, SamplePlain, w.coordOf(u, vv, t+".z"), nil, nil, nil)
		if inst.Op == ir.OpTexBemL {
			x = "(" + x + " * (" + w.srcFloat(&src[0], []int{2}) + " * " + l[0] + " + " + l[1] + "))"
		}
		w.assign(inst, pick(x, lanes))
	case ir.OpBem:
		m, _ := w.bumpEnv(inst.Dest.RegNum)
		s0x, s0y := w.srcFloat(&src[0], []int{0}), w.srcFloat(&src[0], []int{1})
		s1x, s1y := w.srcFloat(&src[1], []int{0}), w.srcFloat(&src[1], []int{1})
		full := []string{
			s0x + " + " + m[0] + " * " + s1x + " + " + m[2] + " * " + s1y,
			s0y + " + " + m[1] + " * " + s1x + " + " + m[3] + " * " + s1y,
		}
		parts := make([]string, 0, 2)
		for _, l := range lanes {
			if l > 1 {
				w.fail("bem writes only .x and .y")
				return
			}
			parts = append(parts, "("+full[l]+")")
		}
		w.assign(inst, w.vec(parts...))

	case ir.OpTexReg2AR, ir.OpTexReg2GB, ir.OpTexReg2RGB:
		c := func(i int) string { return w.srcFloat(&src[0], []int{i}) }
		var coord func(int) string
		switch inst.Op {
		case ir.OpTexReg2AR:
			coord = w.coordOf(c(3), c(0))
		case ir.OpTexReg2GB:
			coord = w.coordOf(c(1), c(2))
		default:
			coord = w.coordOf(c(0), c(1), c(2))
		}
		x := w.sample(inst.Dest.RegNum, SamplePlain, coord, nil, nil, nil)
		w.assign(inst, pick(x, lanes))

	case ir.OpTexM3x2Pad, ir.OpTexM3x3Pad:
		w.pads = append(w.pads, padRow{
			reg: w.texReg(inst.Dest.RegNum),
			dot: w.texDot(inst),
		})
	case ir.OpTexM3x2Tex:
		if rows := w.takePads(inst, 1); rows != nil {
			x := w.sample(inst.Dest.RegNum, SamplePlain, w.coordOf(rows[0].dot, w.texDot(inst)), nil, nil, nil)
			w.assign(inst, pick(x, lanes))
		}
	case ir.OpTexM3x3Tex:
		if rows := w.takePads(inst, 2); rows != nil {
			x := w.sample(inst.Dest.RegNum, SamplePlain, w.coordOf(rows[0].dot, rows[1].dot, w.texDot(inst)), nil, nil, nil)
			w.assign(inst, pick(x, lanes))
		}
	case ir.OpTexM3x3:
		if rows := w.takePads(inst, 2); rows != nil {
			x := w.vec(rows[0].dot, rows[1].dot, w.texDot(inst), "1.0")
			w.assign(inst, pick(x, lanes))
		}
	case ir.OpTexM3x3Spec, ir.OpTexM3x3VSpec:
		rows := w.takePads(inst, 2)
		if rows == nil {
			return
		}
		d := w.dialect
		normal := w.prefix + "_n"
		eye := w.prefix + "_e"
		var e string
		if inst.Op == ir.OpTexM3x3Spec {
			e = w.srcFloat(&src[1], firstLanes(3))
		} else {
			e = w.vec(rows[0].reg+".w", rows[1].reg+".w", w.texReg(inst.Dest.RegNum)+".w")
		}
		w.out.Line("{")
		w.out.Indent()
		w.out.Line("%s %s = %s;", d.FloatType(3), normal, w.vec(rows[0].dot, rows[1].dot, w.texDot(inst)))
		w.out.Line("%s %s = %s;", d.FloatType(3), eye, e)
		refl := "2.0 * " + normal + " * (" + w.call(BuiltinDot, normal, eye) + " / " +
			w.call(BuiltinDot, normal, normal) + ") - " + eye
		x := w.sample(inst.Dest.RegNum, SamplePlain, func(dims int) string {
			if dims == 2 {
				return "(" + refl + ").xy"
			}
			return refl
		}, nil, nil, nil)
		w.assign(inst, pick(x, lanes))
		w.out.Dedent()
		w.out.Line("}")

	case ir.OpTexDp3Tex:
		x := w.sample(inst.Dest.RegNum, SamplePlain, w.coordOf(w.texDot(inst)), nil, nil, nil)
		w.assign(inst, pick(x, lanes))
	case ir.OpTexDp3:
		w.assign(inst, w.broadcast(w.texDot(inst), len(lanes)))

	case ir.OpTexDepth, ir.OpTexM3x2Depth:
		w.fail("%s is not supported by this profile", inst.Op)
	default:
		w.fail("opcode %s is not supported by this profile", inst.Op)
	}
}

// texld lowers the shader model 2+ sampling instruction.
func (w *Writer) texld(inst *ir.Instruction, lanes []int) {
	src := inst.Src
	stage := src[1].RegNum
	var x string
	switch {
	case inst.Projected():
		c4 := w.srcFloat(&src[0], allLanes)
		proj := w.srcFloat(&src[0], []int{3})
		x = w.sample(stage, SamplePlain, func(dims int) string {
			return "(" + pick(c4, firstLanes(dims)) + " / " + proj + ")"
		}, nil, nil, nil)
	case inst.Biased():
		x = w.sample(stage, SampleBias, w.coordFrom(&src[0]),
			func(int) string { return w.srcFloat(&src[0], []int{3}) }, nil, nil)
	default:
		x = w.sample(stage, SamplePlain, w.coordFrom(&src[0]), nil, nil, nil)
	}
	w.assign(inst, swizzle(x, src[1].Swizzle, lanes))
}

// texDot is the row product of a ps 1.x matrix instruction: the dot of the
// destination texcoord with the source register.
func (w *Writer) texDot(inst *ir.Instruction) string {
	return w.call(BuiltinDot, w.texReg(inst.Dest.RegNum)+".xyz", w.srcFloat(&inst.Src[0], firstLanes(3)))
}

func (w *Writer) takePads(inst *ir.Instruction, n int) []padRow {
	if len(w.pads) < n {
		w.fail("%s without its pad instructions", inst.Op)
		w.pads = nil
		return nil
	}
	rows := w.pads[len(w.pads)-n:]
	w.pads = nil
	return rows
}

// bumpEnv returns the 2x2 matrix (m00 m01 m10 m11) and the luminance
// scale and offset of a sampler stage.
func (w *Writer) bumpEnv(stage int) ([4]string, [2]string) {
	if env, ok := w.opts.BumpEnv[stage]; ok {
		return [4]string{Float(env.Mat[0]), Float(env.Mat[1]), Float(env.Mat[2]), Float(env.Mat[3])},
			[2]string{Float(env.LScale), Float(env.LOffset)}
	}
	if stage+1 > w.texbem {
		w.texbem = stage + 1
	}
	name, _ := w.TexbemUniform()
	ref := w.dialect.UniformRef(name)
	mat := ref + "[" + itoa(2*stage) + "]"
	lum := ref + "[" + itoa(2*stage+1) + "]"
	return [4]string{mat + ".x", mat + ".y", mat + ".z", mat + ".w"}, [2]string{lum + ".x", lum + ".y"}
}
