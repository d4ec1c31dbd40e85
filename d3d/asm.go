package d3d

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Disassemble renders prog as D3D assembly text. Declarations come first,
// then DEF-class constants, then the instruction stream.
func Disassemble(prog *ir.Program) string {
	d := &disassembler{prog: prog, out: shaderlang.NewBuffer(0)}
	d.out.Line("%s", prog.Target())
	d.out.Indent()
	d.declarations()
	d.definitions()
	for i := range prog.Instructions {
		d.instruction(&prog.Instructions[i])
	}
	d.out.Dedent()

	slots := "slots"
	if prog.InstructionCount == 1 {
		slots = "slot"
	}
	d.out.Line("// approximately %d instruction %s used", prog.InstructionCount, slots)
	return d.out.String()
}

type disassembler struct {
	prog *ir.Program
	out  *shaderlang.Buffer
}

func (d *disassembler) reg(t ir.RegisterType, num int) string {
	return ir.RegisterName(d.prog.Type, d.prog.Version, t, num)
}

// usageDecl reports whether DCLs of register type t carry a usage.
func (d *disassembler) usageDecl(t ir.RegisterType) bool {
	if d.prog.IsVertex() {
		return t == ir.RegInput || t == ir.RegOutput
	}
	return t == ir.RegInput && d.prog.Version.AtLeast(3, 0)
}

func (d *disassembler) declMask(r *ir.Register) ir.WriteMask {
	if a := d.prog.Attribute(r.Type, r.Num); a != nil && a.Mask != 0 {
		return a.Mask
	}
	if o := d.prog.Output(r.Type, r.Num); o != nil && o.Mask != 0 {
		return o.Mask
	}
	return ir.MaskAll
}

func (d *disassembler) declarations() {
	for i := range d.prog.Registers {
		r := &d.prog.Registers[i]
		if !r.Declared || r.Type == ir.RegSampler {
			continue
		}
		name := "dcl"
		if d.usageDecl(r.Type) && r.Usage != ir.UsageUnknown {
			name += "_" + strings.ToLower(r.Usage.String())
			if r.UsageIndex > 0 {
				name += strconv.Itoa(r.UsageIndex)
			}
		}
		name += resultModSuffix(r.Mod, 0)
		d.out.Line("%s %s%s", name, d.reg(r.Type, r.Num), d.declMask(r))
	}
	for _, s := range d.prog.Samplers {
		if s.DeclOffset == 0 {
			continue
		}
		d.out.Line("dcl_%s %s", s.Type, d.reg(ir.RegSampler, s.Index))
	}
}

func (d *disassembler) definitions() {
	for _, c := range d.prog.Constants {
		reg := d.reg(c.Type.RegisterType(), c.Index)
		switch c.Type {
		case ir.UniformFloat:
			d.out.Line("def %s, %s, %s, %s, %s", reg,
				formatFloat(c.Float[0]), formatFloat(c.Float[1]), formatFloat(c.Float[2]), formatFloat(c.Float[3]))
		case ir.UniformInt:
			d.out.Line("defi %s, %d, %d, %d, %d", reg, c.Int[0], c.Int[1], c.Int[2], c.Int[3])
		case ir.UniformBool:
			d.out.Line("defb %s, %t", reg, c.Bool)
		}
	}
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (d *disassembler) instruction(inst *ir.Instruction) {
	switch inst.Op {
	case ir.OpElse, ir.OpEndIf, ir.OpEndLoop, ir.OpEndRep:
		d.out.Dedent()
	}

	var b strings.Builder
	if inst.Coissue {
		b.WriteByte('+')
	}
	if inst.Predicated {
		b.WriteByte('(')
		b.WriteString(d.source(inst.Predicate))
		b.WriteString(") ")
	}
	b.WriteString(inst.Mnemonic(d.prog.Type, d.prog.Version))

	var ops []string
	if inst.HasDest {
		b.WriteString(resultModSuffix(inst.Dest.ResultMod, inst.Dest.Shift))
		ops = append(ops, d.dest(inst.Dest))
	}
	for _, s := range inst.Src {
		ops = append(ops, d.source(s))
	}
	if len(ops) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(ops, ", "))
	}
	d.out.Line("%s", b.String())

	switch inst.Op {
	case ir.OpIf, ir.OpIfc, ir.OpElse, ir.OpLoop, ir.OpRep:
		d.out.Indent()
	}
}

var shiftSuffix = map[int8]string{
	1: "_x2", 2: "_x4", 3: "_x8",
	-1: "_d2", -2: "_d4", -3: "_d8",
}

func resultModSuffix(mod ir.ResultMod, shift int8) string {
	s := shiftSuffix[shift]
	if mod&ir.ResultModSaturate != 0 {
		s += "_sat"
	}
	if mod&ir.ResultModPartialPrecision != 0 {
		s += "_pp"
	}
	if mod&ir.ResultModCentroid != 0 {
		s += "_centroid"
	}
	return s
}

func (d *disassembler) dest(p ir.DestParam) string {
	name := d.reg(p.RegType, p.RegNum)
	if p.Relative {
		name += "[" + d.relative(p.RelType, p.RelNum, p.RelSwizzle.Component(0)) + "]"
	}
	return name + p.Mask.String()
}

func (d *disassembler) relative(t ir.RegisterType, num, comp int) string {
	if t == ir.RegLoop {
		return "aL"
	}
	return d.reg(t, num) + "." + string("xyzw"[comp&3])
}

func (d *disassembler) source(p ir.SourceParam) string {
	name := d.reg(p.RegType, p.RegNum)
	if p.Relative {
		name += "[" + d.relative(p.RelType, p.RelNum, p.RelComponent) + "]"
	}
	switch p.RegType {
	case ir.RegLabel, ir.RegLoop, ir.RegSampler:
	default:
		name += p.Swizzle.String()
	}
	if int(p.Mod) >= len(sourceModFormat) {
		return name
	}
	return fmt.Sprintf(sourceModFormat[p.Mod], name)
}

var sourceModFormat = [...]string{
	ir.SrcModNone:       "%s",
	ir.SrcModNegate:     "-%s",
	ir.SrcModBias:       "%s_bias",
	ir.SrcModBiasNegate: "-%s_bias",
	ir.SrcModSign:       "%s_bx2",
	ir.SrcModSignNegate: "-%s_bx2",
	ir.SrcModComplement: "1-%s",
	ir.SrcModX2:         "%s_x2",
	ir.SrcModX2Negate:   "-%s_x2",
	ir.SrcModDz:         "%s_dz",
	ir.SrcModDw:         "%s_dw",
	ir.SrcModAbs:        "%s_abs",
	ir.SrcModAbsNegate:  "-%s_abs",
	ir.SrcModNot:        "!%s",
	ir.SrcModTotal:      "%s",
}
