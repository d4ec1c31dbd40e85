package arb1

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

type ifFrame struct {
	id         int
	elsePlaced bool
}

type loopFrame struct {
	id      int
	counter string
	// aL and step are empty for REP frames.
	aL   string
	step string
}

// writer lowers one program. A writer is used once.
type writer struct {
	prog   *ir.Program
	d      *dialect
	opts   *Options
	prefix string

	body *shaderlang.Buffer
	cur  *ir.Instruction
	err  *ir.Error

	scratch    int
	maxScratch int
	address    bool
	texm       bool
	pads       []string
	ifs        []ifFrame
	loops      []loopFrame
	maxLoops   int
	maxAL      int
	ids        int
	texbem     int
	label      int
	inMain     bool
	mrt        bool
}

func newWriter(prog *ir.Program, d *dialect, opts *Options) *writer {
	return &writer{
		prog:   prog,
		d:      d,
		opts:   opts,
		prefix: prog.Type.Prefix(),
		label:  -1,
	}
}

func (w *writer) vertex() bool { return w.prog.IsVertex() }

func (w *writer) style() flowStyle {
	if w.vertex() {
		return w.d.vsFlow
	}
	return w.d.psFlow
}

func (w *writer) fail(format string, args ...any) {
	if w.err != nil {
		return
	}
	pos := ir.PositionNone
	if w.cur != nil {
		pos = w.cur.Offset
	}
	w.err = ir.NewError(ir.ErrProfile, pos, format, args...)
}

func (w *writer) line(format string, args ...any) {
	w.body.Line(format, args...)
}

// =============================================================================
// Names
// =============================================================================

func (w *writer) reg(t ir.RegisterType, num int) string {
	return w.prefix + "_" + ir.RegisterName(w.prog.Type, w.prog.Version, t, num)
}

func (w *writer) uniformArray(t ir.UniformType) string {
	switch t {
	case ir.UniformInt:
		return w.prefix + "_uniforms_ivec4"
	case ir.UniformBool:
		return w.prefix + "_uniforms_bool"
	}
	return w.prefix + "_uniforms_vec4"
}

func (w *writer) constArray(index int) string {
	return w.prefix + "_c_array_" + strconv.Itoa(index)
}

func (w *writer) texbemParam() string { return w.prefix + "_texbem" }

func (w *writer) labelName(l int) string { return w.reg(ir.RegLabel, l) }

func (w *writer) counterName(depth int) string {
	return w.prefix + "_lc" + strconv.Itoa(depth)
}

func (w *writer) aLName(depth int) string {
	return w.prefix + "_aL" + strconv.Itoa(depth)
}

func (w *writer) scratchName(i int) string {
	return w.prefix + "_scratch" + strconv.Itoa(i)
}

// tmp returns a scratch temporary that stays reserved until the next
// instruction.
func (w *writer) tmp() string {
	name := w.scratchName(w.scratch)
	w.scratch++
	if w.scratch > w.maxScratch {
		w.maxScratch = w.scratch
	}
	return name
}

// formatFloat renders a literal in the float grammar of the program
// languages, which has no infinities or NaNs.
func formatFloat(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		f = 0
	case math.IsInf(float64(f), 1):
		f = math.MaxFloat32
	case math.IsInf(float64(f), -1):
		f = -math.MaxFloat32
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func vector(v [4]float32) string {
	return "{" + formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " +
		formatFloat(v[2]) + ", " + formatFloat(v[3]) + "}"
}

// =============================================================================
// Program
// =============================================================================

func (w *writer) program() ([]byte, error) {
	w.scanTexbem()
	w.body = shaderlang.NewBuffer(0)

	main, subs := w.prog.Split()
	if len(subs) > 0 && w.style() == flowNone {
		w.fail("subroutines are not supported by this profile")
		return nil, w.err
	}
	w.inMain = true
	w.prologue()
	w.block(main)
	if len(w.ifs) > 0 || len(w.loops) > 0 {
		w.fail("unterminated flow control at the end of the main body")
	}
	w.epilogue()
	if len(subs) > 0 {
		w.line("RET;")
	}
	w.inMain = false
	for _, s := range subs {
		w.label = s.Label
		w.line("%s:", w.labelName(s.Label))
		w.body.Indent()
		w.block(s.Body)
		if len(w.ifs) > 0 || len(w.loops) > 0 {
			w.fail("unterminated flow control at the end of l%d", s.Label)
		}
		w.line("RET;")
		w.body.Dedent()
	}
	if w.err != nil {
		return nil, w.err
	}

	out := shaderlang.NewBuffer(0)
	w.header(out)
	w.declarations(out)
	out.Raw(w.body.String())
	out.Line("END")
	return []byte(out.String()), nil
}

func (w *writer) block(insts []ir.Instruction) {
	for i := range insts {
		inst := &insts[i]
		// a trailing top-level RET ends the body
		if inst.Op == ir.OpRet && i == len(insts)-1 && len(w.ifs) == 0 && len(w.loops) == 0 {
			continue
		}
		w.cur = inst
		w.scratch = 0
		w.instruction(inst)
	}
	w.cur = nil
}

func (w *writer) scanTexbem() {
	for i := range w.prog.Instructions {
		inst := &w.prog.Instructions[i]
		switch inst.Op {
		case ir.OpTexBem, ir.OpTexBemL, ir.OpBem:
		default:
			continue
		}
		stage := inst.Dest.RegNum
		if _, ok := w.opts.BumpEnv[stage]; !ok && stage+1 > w.texbem {
			w.texbem = stage + 1
		}
	}
}

func (w *writer) header(out *shaderlang.Buffer) {
	lines := w.d.psHeader
	if w.vertex() {
		lines = w.d.vsHeader
	}
	for _, l := range lines {
		out.Line("%s", l)
	}
	if w.mrt && w.d != dialects[ProfileNV4] {
		out.Line("OPTION ARB_draw_buffers;")
	}
}

// =============================================================================
// Declarations
// =============================================================================

func (w *writer) declarations(out *shaderlang.Buffer) {
	local := 0
	param := func(name string, n int) {
		if n == 0 {
			return
		}
		out.Line("PARAM %s[%d] = { program.local[%d..%d] };", name, n, local, local+n-1)
		local += n
	}
	param(w.uniformArray(ir.UniformFloat), w.prog.UniformSlots(ir.UniformFloat))
	param(w.uniformArray(ir.UniformInt), w.prog.UniformSlots(ir.UniformInt))
	param(w.uniformArray(ir.UniformBool), w.prog.UniformSlots(ir.UniformBool))
	param(w.texbemParam(), 2*w.texbem)

	for _, c := range w.prog.Constants {
		name := w.reg(c.Type.RegisterType(), c.Index)
		switch c.Type {
		case ir.UniformFloat:
			out.Line("PARAM %s = %s;", name, vector(c.Float))
		case ir.UniformInt:
			out.Line("PARAM %s = %s;", name, vector([4]float32{
				float32(c.Int[0]), float32(c.Int[1]), float32(c.Int[2]), float32(c.Int[3])}))
		case ir.UniformBool:
			b := float32(0)
			if c.Bool {
				b = 1
			}
			out.Line("PARAM %s = %s;", name, vector([4]float32{b, b, b, b}))
		}
	}
	for i := range w.prog.Uniforms {
		u := &w.prog.Uniforms[i]
		if !u.Constant {
			continue
		}
		vals := make([]string, u.Slots())
		for j := range vals {
			var v [4]float32
			if c := w.prog.Constant(ir.UniformFloat, u.Index+j); c != nil {
				v = c.Float
			}
			vals[j] = vector(v)
		}
		out.Line("PARAM %s[%d] = { %s };", w.constArray(u.Index), len(vals), strings.Join(vals, ", "))
	}

	for i, a := range w.prog.Attributes {
		if w.vertex() {
			out.Line("ATTRIB %s = vertex.attribute[%d];", w.reg(a.RegType, a.RegNum), i)
		}
	}

	var temps []string
	for i := range w.prog.Registers {
		r := &w.prog.Registers[i]
		switch r.Type {
		case ir.RegTemp, ir.RegAddress, ir.RegRastOut, ir.RegAttrOut, ir.RegOutput,
			ir.RegColorOut, ir.RegDepthOut, ir.RegPredicate, ir.RegMisc:
		case ir.RegInput:
			if w.vertex() {
				continue
			}
		default:
			continue
		}
		temps = append(temps, w.reg(r.Type, r.Num))
	}
	for i := 0; i < w.maxLoops; i++ {
		temps = append(temps, w.counterName(i))
	}
	for i := 0; i < w.maxAL; i++ {
		temps = append(temps, w.aLName(i))
	}
	if w.texm {
		temps = append(temps, w.prefix+"_texm")
	}
	for i := 0; i < w.maxScratch; i++ {
		temps = append(temps, w.scratchName(i))
	}
	for _, t := range temps {
		out.Line("TEMP %s;", t)
	}
	if w.address {
		if w.d.intAddress {
			out.Line("INT TEMP A0;")
		} else {
			out.Line("ADDRESS A0;")
		}
	}
}

// =============================================================================
// Interface
// =============================================================================

// inputBinding returns the fragment attribute feeding a pixel shader input.
func (w *writer) inputBinding(r *ir.Register) string {
	if r.Type == ir.RegMisc {
		if r.Num == ir.MiscFace {
			if !w.d.face {
				w.fail("vFace is not supported by this profile")
			}
			return "fragment.facing"
		}
		return "fragment.position"
	}
	switch r.Usage {
	case ir.UsageColor:
		switch r.UsageIndex {
		case 0:
			return "fragment.color.primary"
		case 1:
			return "fragment.color.secondary"
		}
	case ir.UsageTexCoord:
		return "fragment.texcoord[" + strconv.Itoa(r.UsageIndex) + "]"
	case ir.UsageFog:
		return "fragment.fogcoord"
	}
	w.fail("input %s%d has no fragment attribute binding", r.Usage, r.UsageIndex)
	return ""
}

func (w *writer) prologue() {
	if w.vertex() {
		return
	}
	for i := range w.prog.Registers {
		r := &w.prog.Registers[i]
		switch {
		case r.Type == ir.RegMisc:
		case (r.Type == ir.RegInput || r.Type == ir.RegTexture) && r.Usage != ir.UsageUnknown:
		default:
			continue
		}
		w.line("MOV %s, %s;", w.reg(r.Type, r.Num), w.inputBinding(r))
	}
}

// outputBinding returns the result binding of an output and whether it is
// scalar, read from the x lane.
func (w *writer) outputBinding(o *ir.Attribute) (string, string) {
	if w.vertex() {
		switch o.Usage {
		case ir.UsagePosition:
			if o.Index == 0 {
				return "result.position", ""
			}
		case ir.UsagePointSize:
			return "result.pointsize", ".x"
		case ir.UsageFog:
			return "result.fogcoord", ".x"
		case ir.UsageColor:
			switch o.Index {
			case 0:
				return "result.color.primary", ""
			case 1:
				return "result.color.secondary", ""
			}
		case ir.UsageTexCoord:
			return "result.texcoord[" + strconv.Itoa(o.Index) + "]", ""
		}
		w.fail("output %s%d has no vertex result binding", o.Usage, o.Index)
		return "", ""
	}
	if o.Usage == ir.UsageDepth || o.RegType == ir.RegDepthOut {
		return "result.depth", ".z"
	}
	if o.Index == 0 {
		return "result.color", ""
	}
	w.mrt = true
	return "result.color[" + strconv.Itoa(o.Index) + "]", ""
}

func (w *writer) epilogue() {
	w.scratch = 0
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		if o.Index > 0 && o.Usage == ir.UsageColor && w.prog.IsPixel() {
			w.mrt = true
		}
	}
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		dst, lane := w.outputBinding(o)
		src := w.reg(o.RegType, o.RegNum)
		if lane != "" {
			w.line("MOV %s%s, %s.x;", dst, lane, src)
			continue
		}
		if w.mrt && dst == "result.color" {
			dst = "result.color[0]"
		}
		w.line("MOV %s, %s;", dst, src)
	}
}

// =============================================================================
// Results
// =============================================================================

func (w *writer) translation(code []byte) *ir.Translation {
	t := ir.NewTranslation(w.opts.Profile, w.prog)
	t.Code = code
	if w.mrt && w.d != dialects[ProfileNV4] {
		t.Extensions = append(t.Extensions, "GL_ARB_draw_buffers")
	}
	t.NameResources(
		func(u *ir.Uniform) string {
			if u.Constant {
				return w.constArray(u.Index)
			}
			return w.uniformArray(u.Type)
		},
		func(s *ir.Sampler) string { return "texture[" + strconv.Itoa(s.Index) + "]" },
		func(a *ir.Attribute, output bool) string {
			if output {
				name, _ := w.outputBinding(a)
				return name
			}
			if w.vertex() {
				return w.reg(a.RegType, a.RegNum)
			}
			r := w.prog.Register(a.RegType, a.RegNum)
			if r == nil {
				return w.reg(a.RegType, a.RegNum)
			}
			return w.inputBinding(r)
		},
	)
	return t
}
