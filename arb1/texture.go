package arb1

import (
	"strconv"

	"github.com/gogpu/d3dbc/ir"
)

func (w *writer) textureUnit(stage int) (string, string) {
	s := w.prog.Sampler(stage)
	if s == nil {
		w.fail("sampler s%d is not declared", stage)
		return "texture[0]", "2D"
	}
	target := "2D"
	switch s.Type {
	case ir.SamplerCube:
		target = "CUBE"
	case ir.SamplerVolume:
		target = "3D"
	}
	return "texture[" + strconv.Itoa(stage) + "]", target
}

// sample emits one lookup instruction. extra holds the gradients of TXD.
func (w *writer) sample(name, dst string, coord operand, stage int, extra ...operand) {
	if w.vertex() && !w.d.vsTexture {
		w.fail("vertex texture fetch is not supported by this profile")
		return
	}
	unit, target := w.textureUnit(stage)
	srcs := append([]operand{coord}, extra...)
	srcs = append(srcs, temp(unit), temp(target))
	w.op(name, dst, srcs...)
}

// sampleSwizzled samples into t, applying the sampler swizzle of a texld.
func (w *writer) sampleSwizzled(name string, t target, coord operand, s *ir.SourceParam, extra ...operand) {
	if s.Swizzle == ir.SwizzleIdentity {
		w.sample(name, t.String(), coord, s.RegNum, extra...)
		return
	}
	x := w.tmp()
	w.sample(name, x, coord, s.RegNum, extra...)
	w.op("MOV", t.String(), temp(x+s.Swizzle.String()))
}

func (w *writer) texReg(num int) operand {
	return temp(w.reg(ir.RegTexture, num))
}

func (w *writer) texmTemp() string {
	w.texm = true
	return w.prefix + "_texm"
}

func (w *writer) texture(inst *ir.Instruction) {
	if w.vertex() && inst.Op != ir.OpTexLdl {
		w.fail("%s is not valid in vertex programs", inst.Op)
		return
	}
	if inst.Op == ir.OpTexKill {
		reg := w.reg(inst.Dest.RegType, inst.Dest.RegNum)
		w.line("KIL %s.xyzz;", reg)
		return
	}

	src := inst.Src
	v := w.prog.Version
	stage := inst.Dest.RegNum
	t := w.begin(inst)
	dst := t.String()

	switch inst.Op {
	case ir.OpTex:
		switch {
		case v.AtLeast(2, 0):
			w.texld(inst, t)
		case v.AtLeast(1, 4):
			w.sample("TEX", dst, w.source(&src[0]), stage)
		default:
			w.sample("TEX", dst, w.texReg(stage), stage)
		}
	case ir.OpTexLdl:
		if !w.d.textureLod {
			w.fail("texldl is not supported by this profile")
			return
		}
		w.sampleSwizzled("TXL", t, w.source(&src[0]), &src[1])
	case ir.OpTexLdd:
		if !w.d.derivatives || !w.d.textureLod {
			w.fail("texldd is not supported by this profile")
			return
		}
		w.sampleSwizzled("TXD", t, w.source(&src[0]), &src[1], w.source(&src[2]), w.source(&src[3]))

	case ir.OpTexCoord:
		if v.AtLeast(1, 4) {
			w.op("MOV", dst, w.source(&src[0]))
			break
		}
		x := w.tmp()
		w.line("MOV_SAT %s, %s;", x, w.texReg(stage).text)
		w.op("MOV", x+".w", splat(1))
		w.op("MOV", dst, temp(x))

	case ir.OpTexBem, ir.OpTexBemL:
		c := w.tmp()
		w.bump(c+".xy", w.texReg(stage), &src[0], stage)
		w.op("MOV", c+".zw", w.texReg(stage))
		if inst.Op == ir.OpTexBem {
			w.sample("TEX", dst, temp(c), stage)
			break
		}
		x := w.tmp()
		w.sample("TEX", x, temp(c), stage)
		scale, offset := w.luminance(stage)
		l := w.tmp()
		w.op("MAD", l+".x", w.sourceLanes(&src[0], 2), scale, offset)
		w.op("MUL", dst, temp(x), temp(l+".x"))
	case ir.OpBem:
		if inst.Dest.Mask&^(ir.MaskX|ir.MaskY) != 0 {
			w.fail("bem writes only .x and .y")
			return
		}
		c := w.tmp()
		w.bump(c+".xy", w.source(&src[0]), &src[1], stage)
		w.op("MOV", dst, temp(c))

	case ir.OpTexReg2AR, ir.OpTexReg2GB, ir.OpTexReg2RGB:
		var coord operand
		switch inst.Op {
		case ir.OpTexReg2AR:
			coord = w.sourceLanes(&src[0], 3, 0)
		case ir.OpTexReg2GB:
			coord = w.sourceLanes(&src[0], 1, 2)
		default:
			coord = w.sourceLanes(&src[0], 0, 1, 2)
		}
		w.sample("TEX", dst, coord, stage)

	case ir.OpTexM3x2Pad, ir.OpTexM3x3Pad:
		if len(w.pads) > 1 {
			w.fail("%s after two pad instructions", inst.Op)
			return
		}
		lane := string(components[len(w.pads)])
		w.op("DP3", w.texmTemp()+"."+lane, w.texReg(stage), w.source(&src[0]))
		w.pads = append(w.pads, w.reg(ir.RegTexture, stage))
		return
	case ir.OpTexM3x2Tex:
		if w.takePads(inst, 1) == nil {
			return
		}
		m := w.texmTemp()
		w.op("DP3", m+".y", w.texReg(stage), w.source(&src[0]))
		w.sample("TEX", dst, temp(m), stage)
	case ir.OpTexM3x3Tex, ir.OpTexM3x3:
		if w.takePads(inst, 2) == nil {
			return
		}
		m := w.texmTemp()
		w.op("DP3", m+".z", w.texReg(stage), w.source(&src[0]))
		if inst.Op == ir.OpTexM3x3Tex {
			w.sample("TEX", dst, temp(m), stage)
			break
		}
		w.op("MOV", m+".w", splat(1))
		w.op("MOV", dst, temp(m))
	case ir.OpTexM3x3Spec, ir.OpTexM3x3VSpec:
		rows := w.takePads(inst, 2)
		if rows == nil {
			return
		}
		m := w.texmTemp()
		w.op("DP3", m+".z", w.texReg(stage), w.source(&src[0]))
		var eye operand
		if inst.Op == ir.OpTexM3x3Spec {
			eye = w.source(&src[1])
		} else {
			e := w.tmp()
			w.op("MOV", e+".x", temp(rows[0]+".w"))
			w.op("MOV", e+".y", temp(rows[1]+".w"))
			w.op("MOV", e+".z", w.texReg(stage).lane(3))
			eye = temp(e)
		}
		// 2 * n * dot(n, e) / dot(n, n) - e
		k := w.tmp()
		w.op("DP3", k+".x", temp(m), eye)
		w.op("DP3", k+".y", temp(m), temp(m))
		w.op("RCP", k+".y", temp(k+".y"))
		w.op("MUL", k+".x", temp(k+".x"), temp(k+".y"))
		w.op("ADD", k+".x", temp(k+".x"), temp(k+".x"))
		r := w.tmp()
		w.op("MAD", r, temp(m), temp(k+".x"), eye.neg())
		w.sample("TEX", dst, temp(r), stage)

	case ir.OpTexDp3Tex:
		c := w.tmp()
		w.op("MOV", c, splat(0))
		w.op("DP3", c+".x", w.texReg(stage), w.source(&src[0]))
		w.sample("TEX", dst, temp(c), stage)
	case ir.OpTexDp3:
		w.op("DP3", dst, w.texReg(stage), w.source(&src[0]))

	default:
		w.fail("%s is not supported by this profile", inst.Op)
		return
	}
	w.finish(inst, t)
}

// texld lowers the shader model 2 sampling instruction. TXP and TXB take
// the divisor or bias from w as texld does.
func (w *writer) texld(inst *ir.Instruction, t target) {
	name := "TEX"
	switch {
	case inst.Projected():
		name = "TXP"
	case inst.Biased():
		name = "TXB"
	}
	w.sampleSwizzled(name, t, w.source(&inst.Src[0]), &inst.Src[1])
}

func (w *writer) takePads(inst *ir.Instruction, n int) []string {
	if len(w.pads) != n {
		w.fail("%s without its pad instructions", inst.Op)
		w.pads = nil
		return nil
	}
	rows := w.pads
	w.pads = nil
	return rows
}

// bump writes base.xy plus the bump matrix of stage applied to the du and
// dv lanes of d.
func (w *writer) bump(dst string, base operand, d *ir.SourceParam, stage int) {
	var cols [2]operand
	if env, ok := w.opts.BumpEnv[stage]; ok {
		m := env.Mat
		cols[0] = splatVector([4]float32{m[0], m[1], m[0], m[1]})
		cols[1] = splatVector([4]float32{m[2], m[3], m[2], m[3]})
	} else {
		p := w.texbemParam() + "[" + strconv.Itoa(2*stage) + "]"
		cols[0] = operand{text: p, bind: p}
		cols[1] = operand{text: p + ".zwzw", bind: p}
	}
	w.op("MAD", dst, cols[0], w.sourceLanes(d, 0), base)
	w.op("MAD", dst, cols[1], w.sourceLanes(d, 1), temp(dst[:len(dst)-3]))
}

func (w *writer) luminance(stage int) (operand, operand) {
	if env, ok := w.opts.BumpEnv[stage]; ok {
		return splat(env.LScale), splat(env.LOffset)
	}
	p := w.texbemParam() + "[" + strconv.Itoa(2*stage+1) + "]"
	return operand{text: p + ".x", bind: p}, operand{text: p + ".y", bind: p}
}

func splatVector(v [4]float32) operand {
	s := vector(v)
	return operand{text: s, bind: s}
}
