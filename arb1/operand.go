package arb1

import (
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
)

const components = "xyzw"

// operand is a formatted source. bind names the program parameter or
// vertex attribute it reads; vertex instructions may read only one of each.
type operand struct {
	text string
	bind string
	attr bool
}

func temp(name string) operand { return operand{text: name} }

func (o operand) neg() operand {
	if strings.HasPrefix(o.text, "-") {
		o.text = o.text[1:]
	} else {
		o.text = "-" + o.text
	}
	return o
}

// lane selects one component of an unswizzled operand.
func (o operand) lane(i int) operand {
	o.text += "." + string(components[i])
	return o
}

// splat is an inline constant with f in every lane.
func splat(f float32) operand {
	v := vector([4]float32{f, f, f, f})
	return operand{text: v, bind: v}
}

// target is where an instruction leaves its result.
type target struct {
	base string
	mask ir.WriteMask
}

func (t target) String() string { return t.base + t.mask.String() }

func (t target) lane(i int) string { return t.base + "." + string(components[i]) }

func (t target) value() operand { return temp(t.base) }

// op emits one instruction. In vertex programs a second distinct parameter
// or attribute is first copied to a temporary.
func (w *writer) op(name, dst string, srcs ...operand) {
	if w.vertex() {
		var param, attr string
		for i, s := range srcs {
			if s.bind == "" {
				continue
			}
			seen := &param
			if s.attr {
				seen = &attr
			}
			switch *seen {
			case "":
				*seen = s.bind
			case s.bind:
			default:
				t := w.tmp()
				w.line("MOV %s, %s;", t, s.text)
				srcs[i] = temp(t)
			}
		}
	}
	parts := make([]string, 0, len(srcs)+1)
	parts = append(parts, dst)
	for _, s := range srcs {
		parts = append(parts, s.text)
	}
	w.line("%s %s;", name, strings.Join(parts, ", "))
}

// =============================================================================
// Sources
// =============================================================================

// loadAddress loads A0.x for a relative operand and returns the index text.
func (w *writer) loadAddress(s *ir.SourceParam) string {
	if !w.vertex() && !w.d.psRelative {
		w.fail("relative addressing is not supported in fragment programs of this profile")
		return "0"
	}
	var from string
	if s.RelType == ir.RegLoop {
		from = w.currentAL() + ".x"
	} else {
		from = w.reg(ir.RegAddress, s.RelNum) + "." + string(components[s.RelComponent&3])
	}
	w.address = true
	if w.d.intAddress {
		w.line("FLR.S A0.x, %s;", from)
	} else {
		w.line("ARL A0.x, %s;", from)
	}
	return "A0.x"
}

func indexed(array, idx string, off int) string {
	switch {
	case off > 0:
		idx += " + " + strconv.Itoa(off)
	case off < 0:
		idx += " - " + strconv.Itoa(-off)
	}
	return array + "[" + idx + "]"
}

func (w *writer) uniform(t ir.UniformType, reg int) string {
	slot, _, ok := w.prog.UniformSlot(t, reg)
	if !ok {
		w.fail("register %d of the %s file is not a uniform", reg, t)
	}
	return w.uniformArray(t) + "[" + strconv.Itoa(slot) + "]"
}

func (w *writer) floatConst(s *ir.SourceParam) string {
	if !s.Relative {
		if w.prog.Constant(ir.UniformFloat, s.RegNum) != nil {
			return w.reg(ir.RegConst, s.RegNum)
		}
		return w.uniform(ir.UniformFloat, s.RegNum)
	}
	arr := w.prog.ArrayFor(ir.UniformFloat, s.RegNum)
	if arr == nil {
		w.fail("relative read of c%d outside any constant array", s.RegNum)
		return w.reg(ir.RegConst, s.RegNum)
	}
	idx := w.loadAddress(s)
	off := s.RegNum - arr.Index
	if arr.Constant {
		return indexed(w.constArray(arr.Index), idx, off)
	}
	slot, _, _ := w.prog.UniformSlot(ir.UniformFloat, arr.Index)
	return indexed(w.uniformArray(ir.UniformFloat), idx, slot+off)
}

// base returns the unswizzled register a source reads.
func (w *writer) base(s *ir.SourceParam) operand {
	switch s.RegType {
	case ir.RegConst:
		name := w.floatConst(s)
		return operand{text: name, bind: name}
	case ir.RegConstInt, ir.RegConstBool:
		t := ir.UniformInt
		if s.RegType == ir.RegConstBool {
			t = ir.UniformBool
		}
		name := w.reg(s.RegType, s.RegNum)
		if w.prog.Constant(t, s.RegNum) == nil {
			name = w.uniform(t, s.RegNum)
		}
		return operand{text: name, bind: name}
	case ir.RegLoop:
		return temp(w.currentAL())
	case ir.RegSampler, ir.RegLabel:
		w.fail("%s cannot be read as a value", ir.RegisterName(w.prog.Type, w.prog.Version, s.RegType, s.RegNum))
		return temp("0")
	}
	if s.Relative {
		w.fail("relative addressing of %s is not supported", ir.RegisterName(w.prog.Type, w.prog.Version, s.RegType, s.RegNum))
	}
	name := w.reg(s.RegType, s.RegNum)
	if s.RegType == ir.RegInput && w.vertex() {
		return operand{text: name, bind: name, attr: true}
	}
	return temp(name)
}

// source formats s with its swizzle and modifier applied. Modifiers the
// languages lack are computed into a scratch temporary.
func (w *writer) source(s *ir.SourceParam) operand {
	b := w.base(s)
	x := b
	x.text += s.Swizzle.String()

	switch s.Mod {
	case ir.SrcModNone:
		return x
	case ir.SrcModNegate:
		return x.neg()
	case ir.SrcModAbs, ir.SrcModAbsNegate:
		var a operand
		if w.d.abs {
			a = x
			a.text = "|" + x.text + "|"
		} else {
			t := w.tmp()
			w.op("ABS", t, x)
			a = temp(t)
		}
		if s.Mod == ir.SrcModAbsNegate {
			return a.neg()
		}
		return a
	}

	t := w.tmp()
	negate := false
	switch s.Mod {
	case ir.SrcModBias, ir.SrcModBiasNegate:
		w.op("ADD", t, x, splat(-0.5))
		negate = s.Mod == ir.SrcModBiasNegate
	case ir.SrcModSign, ir.SrcModSignNegate:
		w.op("ADD", t, x, splat(-0.5))
		w.op("ADD", t, temp(t), temp(t))
		negate = s.Mod == ir.SrcModSignNegate
	case ir.SrcModComplement:
		w.op("SUB", t, splat(1), x)
	case ir.SrcModX2, ir.SrcModX2Negate:
		w.op("ADD", t, x, x)
		negate = s.Mod == ir.SrcModX2Negate
	case ir.SrcModDz, ir.SrcModDw:
		lane := 2
		if s.Mod == ir.SrcModDw {
			lane = 3
		}
		w.op("RCP", t+".x", b.lane(s.Swizzle.Component(lane)))
		w.op("MUL", t, x, temp(t+".x"))
	default:
		w.fail("source modifier %d is not valid on a float operand", s.Mod)
	}
	if negate {
		return temp(t).neg()
	}
	return temp(t)
}

// scalar formats the first swizzled component of s.
func (w *writer) scalar(s *ir.SourceParam) operand {
	c := *s
	first := s.Swizzle.Component(0)
	c.Swizzle = ir.MakeSwizzle(first, first, first, first)
	return w.source(&c)
}

// sourceLanes formats s reading the components selected for the given lanes,
// padded by repeating the last one.
func (w *writer) sourceLanes(s *ir.SourceParam, want ...int) operand {
	c := *s
	var comp [4]int
	for i := range comp {
		l := want[len(want)-1]
		if i < len(want) {
			l = want[i]
		}
		comp[i] = s.Swizzle.Component(l)
	}
	c.Swizzle = ir.MakeSwizzle(comp[0], comp[1], comp[2], comp[3])
	return w.source(&c)
}

// condition reads a boolean register as a scalar operand. The second
// result is set for a NOT modifier.
func (w *writer) condition(s *ir.SourceParam) (operand, bool) {
	c := *s
	c.Mod = ir.SrcModNone
	switch s.RegType {
	case ir.RegConstBool, ir.RegPredicate:
	default:
		w.fail("condition must be a boolean register")
	}
	return w.scalar(&c), s.Mod == ir.SrcModNot
}

// =============================================================================
// Destinations
// =============================================================================

// begin returns where the result of inst is computed. Predicated results go
// to a scratch temporary that finish copies through the predicate.
func (w *writer) begin(inst *ir.Instruction) target {
	d := &inst.Dest
	if d.Relative {
		w.fail("relative output addressing is not supported")
	}
	if inst.Predicated {
		if !w.d.cc {
			w.fail("predication is not supported by this profile")
		}
		return target{base: w.tmp(), mask: d.Mask}
	}
	return target{base: w.reg(d.RegType, d.RegNum), mask: d.Mask}
}

func (w *writer) saturate(t target) {
	if !w.vertex() || w.d.vsSaturate {
		w.line("MOV_SAT %s, %s;", t, t.base)
		return
	}
	w.op("MAX", t.String(), t.value(), splat(0))
	w.op("MIN", t.String(), t.value(), splat(1))
}

// finish applies the result shift and saturation and commits a predicated
// result.
func (w *writer) finish(inst *ir.Instruction, t target) {
	d := &inst.Dest
	if d.Shift != 0 {
		scale := float32(1) / float32(int(1)<<uint(-d.Shift))
		if d.Shift > 0 {
			scale = float32(int(1) << uint(d.Shift))
		}
		w.op("MUL", t.String(), t.value(), splat(scale))
	}
	if d.Saturate() {
		w.saturate(t)
	}
	if !inst.Predicated {
		return
	}
	p := &inst.Predicate
	cc := w.tmp()
	w.line("MOVC %s, %s;", cc, w.reg(p.RegType, p.RegNum))
	test := "NE"
	if p.Mod == ir.SrcModNot {
		test = "EQ"
	}
	dst := target{base: w.reg(d.RegType, d.RegNum), mask: d.Mask}
	w.line("MOV %s (%s%s), %s;", dst, test, p.Swizzle, t.base)
}

// compare writes 1 to the lanes of t where a c b holds and 0 elsewhere.
func (w *writer) compare(t target, c ir.Compare, a, b operand) {
	switch c {
	case ir.CompareGT:
		w.op("SLT", t.String(), b, a)
	case ir.CompareLT:
		w.op("SLT", t.String(), a, b)
	case ir.CompareGE:
		w.op("SGE", t.String(), a, b)
	case ir.CompareLE:
		w.op("SGE", t.String(), b, a)
	case ir.CompareEQ, ir.CompareNE:
		s := w.tmp()
		w.op("SGE", s, a, b)
		w.op("SGE", t.String(), b, a)
		w.op("MUL", t.String(), t.value(), temp(s))
		if c == ir.CompareNE {
			w.op("SUB", t.String(), splat(1), t.value())
		}
	default:
		w.fail("invalid comparison %d", c)
	}
}
