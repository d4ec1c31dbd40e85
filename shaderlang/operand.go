package shaderlang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
)

const componentLetters = "xyzw"

type valueKind uint8

const (
	kindFloat valueKind = iota
	kindInt
	kindBool
)

// value is an unswizzled register read.
type value struct {
	expr  string
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

// pick selects lanes of a width-4 expression.
func pick(expr string, lanes []int) string {
	if len(lanes) == 4 {
		return expr
	}
	var b strings.Builder
	b.WriteString(expr)
	b.WriteByte('.')
	for _, l := range lanes {
		b.WriteByte(componentLetters[l])
	}
	return b.String()
}

// swizzle applies swz to a width-4 expression for the given lanes.
func swizzle(expr string, swz ir.Swizzle, lanes []int) string {
	identity := len(lanes) == 4
	var b strings.Builder
	b.WriteString(expr)
	b.WriteByte('.')
	for i, l := range lanes {
		c := swz.Component(l)
		if c != i {
			identity = false
		}
		b.WriteByte(componentLetters[c])
	}
	if identity {
		return expr
	}
	return b.String()
}

func (w *Writer) typeOf(k valueKind, n int) string {
	switch k {
	case kindInt:
		return w.dialect.IntType(n)
	case kindBool:
		return w.dialect.BoolType(n)
	}
	return w.dialect.FloatType(n)
}

// regValue returns the variable or uniform element a source reads.
func (w *Writer) regValue(src *ir.SourceParam) value {
	switch src.RegType {
	case ir.RegConst:
		return value{w.floatConst(src), kindFloat, 4}
	case ir.RegConstInt:
		if c := w.prog.Constant(ir.UniformInt, src.RegNum); c != nil {
			return value{w.RegName(src.RegType, src.RegNum), kindInt, 4}
		}
		return value{w.uniformElem(ir.UniformInt, src.RegNum), kindInt, 4}
	case ir.RegConstBool:
		if c := w.prog.Constant(ir.UniformBool, src.RegNum); c != nil {
			return value{w.RegName(src.RegType, src.RegNum), kindBool, 1}
		}
		return value{w.dialect.BoolUniform(w.uniformElem(ir.UniformBool, src.RegNum)), kindBool, 1}
	case ir.RegLoop:
		return value{w.currentAL(), kindInt, 1}
	case ir.RegPredicate:
		return value{w.RegName(src.RegType, src.RegNum), kindBool, 4}
	case ir.RegAddress:
		if w.prog.IsVertex() {
			return value{w.RegName(src.RegType, src.RegNum), kindInt, 4}
		}
	case ir.RegMisc:
		if src.RegNum == ir.MiscFace {
			return value{w.RegName(src.RegType, src.RegNum), kindFloat, 1}
		}
	case ir.RegSampler, ir.RegLabel:
		w.fail("%s register cannot be read as a value", ir.RegisterName(w.prog.Type, w.prog.Version, src.RegType, src.RegNum))
		return value{"0.0", kindFloat, 1}
	}
	if src.Relative {
		w.fail("relative addressing of %s is not supported", ir.RegisterName(w.prog.Type, w.prog.Version, src.RegType, src.RegNum))
	}
	return value{w.RegName(src.RegType, src.RegNum), kindFloat, 4}
}

func (w *Writer) uniformElem(t ir.UniformType, reg int) string {
	slot, _, ok := w.prog.UniformSlot(t, reg)
	if !ok {
		w.fail("register %d of the %s file is not a uniform", reg, t)
	}
	return fmt.Sprintf("%s[%d]", w.dialect.UniformRef(w.UniformArray(t)), slot)
}

func (w *Writer) floatConst(src *ir.SourceParam) string {
	if !src.Relative {
		if w.prog.Constant(ir.UniformFloat, src.RegNum) != nil {
			return w.RegName(ir.RegConst, src.RegNum)
		}
		return w.uniformElem(ir.UniformFloat, src.RegNum)
	}
	arr := w.prog.ArrayFor(ir.UniformFloat, src.RegNum)
	if arr == nil {
		w.fail("relative read of c%d outside any constant array", src.RegNum)
		return "0.0"
	}
	off := src.RegNum - arr.Index
	idx := w.relIndex(src)
	if arr.Constant {
		return fmt.Sprintf("%s[%d + %s]", w.ConstArrayName(arr), off, idx)
	}
	slot, _, _ := w.prog.UniformSlot(ir.UniformFloat, arr.Index)
	return fmt.Sprintf("%s[%d + %s]", w.dialect.UniformRef(w.UniformArray(ir.UniformFloat)), slot+off, idx)
}

func (w *Writer) relIndex(src *ir.SourceParam) string {
	if src.RelType == ir.RegLoop {
		return w.currentAL()
	}
	return w.RegName(ir.RegAddress, src.RelNum) + "." + string(componentLetters[src.RelComponent&3])
}

// currentAL names the loop counter register of the innermost LOOP.
func (w *Writer) currentAL() string {
	for i := len(w.loops) - 1; i >= 0; i-- {
		if w.loops[i].aL != "" {
			return w.loops[i].aL
		}
	}
	if w.inMain && len(w.inlining) == 0 {
		w.fail("aL read outside a loop")
	}
	if w.maxAL == 0 {
		w.maxAL = 1
	}
	return w.loopName("aL", 0)
}

// srcFloat returns source src as a float vector holding the swizzled
// components for the given lanes, with its modifier applied.
func (w *Writer) srcFloat(src *ir.SourceParam, lanes []int) string {
	v := w.regValue(src)
	n := len(lanes)
	var x string
	if v.width == 1 {
		x = v.expr
		switch {
		case n > 1:
			x = w.splat(w.dialect.FloatType(n), x)
		case v.kind != kindFloat:
			x = w.dialect.FloatType(1) + "(" + x + ")"
		}
	} else {
		x = swizzle(v.expr, src.Swizzle, lanes)
		if v.kind != kindFloat {
			x = w.dialect.FloatType(n) + "(" + x + ")"
		}
	}
	return w.modify(src, v, x)
}

func (w *Writer) modify(src *ir.SourceParam, v value, x string) string {
	switch src.Mod {
	case ir.SrcModNone:
		return x
	case ir.SrcModNegate:
		return "-" + x
	case ir.SrcModBias:
		return "(" + x + " - 0.5)"
	case ir.SrcModBiasNegate:
		return "-(" + x + " - 0.5)"
	case ir.SrcModSign:
		return "(" + x + " * 2.0 - 1.0)"
	case ir.SrcModSignNegate:
		return "-(" + x + " * 2.0 - 1.0)"
	case ir.SrcModComplement:
		return "(1.0 - " + x + ")"
	case ir.SrcModX2:
		return "(" + x + " * 2.0)"
	case ir.SrcModX2Negate:
		return "-(" + x + " * 2.0)"
	case ir.SrcModDz, ir.SrcModDw:
		lane := 2
		if src.Mod == ir.SrcModDw {
			lane = 3
		}
		div := v.expr
		if v.width > 1 {
			div += "." + string(componentLetters[src.Swizzle.Component(lane)])
		}
		return "(" + x + " / " + div + ")"
	case ir.SrcModAbs:
		return w.call(BuiltinAbs, x)
	case ir.SrcModAbsNegate:
		return "-" + w.call(BuiltinAbs, x)
	}
	w.fail("source modifier %d is not valid on a float operand", src.Mod)
	return x
}

// srcScalar reads the first swizzled component of src.
func (w *Writer) srcScalar(src *ir.SourceParam) string {
	return w.srcFloat(src, allLanes[:1])
}

// srcInt returns an integer register used as a loop control vector.
func (w *Writer) srcInt(src *ir.SourceParam) string {
	v := w.regValue(src)
	if v.kind != kindInt || v.width != 4 {
		w.fail("loop control must be an integer register")
	}
	return v.expr
}

// srcBool returns a boolean condition read from a bool or predicate register.
func (w *Writer) srcBool(src *ir.SourceParam) string {
	v := w.regValue(src)
	x := v.expr
	switch {
	case v.kind != kindBool:
		w.fail("condition must be a boolean register")
		return "false"
	case v.width == 4:
		x += "." + string(componentLetters[src.Swizzle.Component(0)])
	}
	if src.Mod == ir.SrcModNot {
		return "!" + x
	}
	return x
}

// =============================================================================
// Destinations
// =============================================================================

func (w *Writer) destKind(d *ir.DestParam) valueKind {
	switch {
	case d.RegType == ir.RegAddress && w.prog.IsVertex():
		return kindInt
	case d.RegType == ir.RegPredicate:
		return kindBool
	}
	return kindFloat
}

// assign writes a float expression of the destination's width, applying
// the result shift and saturation.
func (w *Writer) assign(inst *ir.Instruction, expr string) {
	d := &inst.Dest
	if d.Shift != 0 {
		scale := float32(1) / float32(int(1)<<uint(-d.Shift))
		if d.Shift > 0 {
			scale = float32(int(1) << uint(d.Shift))
		}
		expr = "(" + expr + " * " + Float(scale) + ")"
	}
	if d.Saturate() {
		expr = w.dialect.Saturate(expr)
	}
	w.store(inst, expr, w.destKind(d))
}

// store writes expr through the destination mask, honoring predication.
func (w *Writer) store(inst *ir.Instruction, expr string, kind valueKind) {
	d := &inst.Dest
	if d.Relative {
		w.fail("relative output addressing is not supported")
		return
	}
	name := w.RegName(d.RegType, d.RegNum)
	if !inst.Predicated {
		w.out.Line("%s%s = %s;", name, d.Mask.String(), expr)
		return
	}
	lanes := lanesOf(d.Mask)
	tmp := w.prefix + "_pt"
	pred := w.RegName(inst.Predicate.RegType, inst.Predicate.RegNum)
	not := ""
	if inst.Predicate.Mod == ir.SrcModNot {
		not = "!"
	}
	w.out.Line("{")
	w.out.Indent()
	w.out.Line("%s %s = %s;", w.typeOf(kind, len(lanes)), tmp, expr)
	for i, l := range lanes {
		src := tmp
		if len(lanes) > 1 {
			src += "." + string(componentLetters[i])
		}
		w.out.Line("if (%s%s.%c) %s.%c = %s;", not, pred,
			componentLetters[inst.Predicate.Swizzle.Component(l)], name, componentLetters[l], src)
	}
	w.out.Dedent()
	w.out.Line("}")
}

func itoa(i int) string { return strconv.Itoa(i) }
