package bytecode

import (
	"math"
	"sort"

	"github.com/gogpu/d3dbc/ir"
)

// dcl decodes a DCL instruction: a usage token followed by a destination.
func (d *decoder) dcl(off int) error {
	utok, err := d.r.Next()
	if err != nil {
		return err
	}
	dst, err := d.destParam()
	if err != nil {
		return err
	}
	p := d.prog
	vs := p.IsVertex()
	v := p.Version
	t, num := dst.RegType, dst.RegNum

	usage := ir.Usage(utok & 0x1F)
	index := int((utok >> 16) & 0xF)

	switch {
	case t == ir.RegSampler:
		if !vs && v.Less(2, 0) || vs && v.Less(3, 0) {
			d.errs.Addf(ir.ErrDecode, off, "sampler declarations are not valid in %s", p.Target())
			return nil
		}
		var st ir.SamplerType
		switch (utok >> 27) & 0xF {
		case textureType2D:
			st = ir.Sampler2D
		case textureTypeCube:
			st = ir.SamplerCube
		case textureTypeVolume:
			st = ir.SamplerVolume
		default:
			d.errs.Addf(ir.ErrDecode, off, "unknown sampler texture type %d", (utok>>27)&0xF)
			return nil
		}
		d.sampler(num).declared = st
		d.sampler(num).declOffset = off + 4
		usage = ir.UsageUnknown
		index = 0

	case vs && t == ir.RegInput:
	case vs && t == ir.RegOutput && v.AtLeast(3, 0):
	case !vs && t == ir.RegInput && v.AtLeast(3, 0):
	case !vs && t == ir.RegInput:
		usage, index = ir.UsageColor, num
	case !vs && t == ir.RegTexture && v.AtLeast(2, 0):
		usage, index = ir.UsageTexCoord, num
	case !vs && t == ir.RegMisc && v.AtLeast(3, 0):
		if num > ir.MiscFace {
			d.errs.Addf(ir.ErrDecode, off, "unknown misc register %d", num)
			return nil
		}
		usage, index = ir.UsageUnknown, 0
	default:
		d.errs.Addf(ir.ErrDecode, off, "%s cannot be declared in %s", d.regName(t, num), p.Target())
		return nil
	}
	if usage != ir.UsageUnknown && usage >= ir.UsageTotal {
		d.errs.Addf(ir.ErrDecode, off, "unknown usage %d", usage)
		return nil
	}

	r := d.reg(t, num)
	if r.Declared {
		d.errs.Addf(ir.ErrDecode, off, "%s declared twice", d.regName(t, num))
		return nil
	}
	r.Declared = true
	r.Usage = usage
	r.UsageIndex = index
	r.Mod = dst.ResultMod
	d.masks[regKey{t, num}] = dst.Mask
	return nil
}

// def decodes DEF, DEFI and DEFB into the constants table. A later
// definition of the same register replaces an earlier one.
func (d *decoder) def(shape ir.Shape, off int) error {
	dst, err := d.destParam()
	if err != nil {
		return err
	}
	c := ir.Constant{Index: dst.RegNum}
	want := ir.RegConst
	switch shape {
	case ir.ShapeDef:
		c.Type = ir.UniformFloat
		for i := range c.Float {
			tok, err := d.r.Next()
			if err != nil {
				return err
			}
			c.Float[i] = math.Float32frombits(tok)
		}
	case ir.ShapeDefI:
		c.Type = ir.UniformInt
		want = ir.RegConstInt
		for i := range c.Int {
			tok, err := d.r.Next()
			if err != nil {
				return err
			}
			c.Int[i] = int32(tok)
		}
	case ir.ShapeDefB:
		c.Type = ir.UniformBool
		want = ir.RegConstBool
		tok, err := d.r.Next()
		if err != nil {
			return err
		}
		c.Bool = tok != 0
	}
	if dst.RegType != want {
		d.errs.Addf(ir.ErrDecode, off, "cannot define %s", d.regName(dst.RegType, dst.RegNum))
		return nil
	}
	for i := range d.prog.Constants {
		if d.prog.Constants[i].Type == c.Type && d.prog.Constants[i].Index == c.Index {
			d.prog.Constants[i] = c
			return nil
		}
	}
	d.prog.Constants = append(d.prog.Constants, c)
	return nil
}

// maxConstFloat returns the size of the float constant file.
func maxConstFloat(p *ir.Program) int {
	switch {
	case p.IsVertex() && p.Version.Less(2, 0):
		return 96
	case p.IsVertex():
		return 256
	case p.Version.Less(2, 0):
		return 8
	case p.Version.Less(3, 0):
		return 32
	default:
		return 224
	}
}

type span struct{ lo, hi int } // [lo, hi)

func (d *decoder) buildUniforms() {
	p := d.prog
	defined := [3]map[int]bool{{}, {}, {}}
	for _, c := range p.Constants {
		defined[c.Type][c.Index] = true
	}

	var spans []span
	for _, base := range d.relBases {
		spans = append(spans, d.arraySpan(base))
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	var merged []span
	for _, s := range spans {
		if n := len(merged); n > 0 && s.lo < merged[n-1].hi {
			if s.hi > merged[n-1].hi {
				merged[n-1].hi = s.hi
			}
			continue
		}
		merged = append(merged, s)
	}

	inArray := func(reg int) bool {
		for _, s := range merged {
			if reg >= s.lo && reg < s.hi {
				return true
			}
		}
		return false
	}

	for _, s := range merged {
		constant := true
		for i := s.lo; i < s.hi; i++ {
			if !defined[ir.UniformFloat][i] {
				constant = false
				break
			}
		}
		p.Uniforms = append(p.Uniforms, ir.Uniform{
			Type:       ir.UniformFloat,
			Index:      s.lo,
			ArrayCount: s.hi - s.lo,
			Constant:   constant,
		})
	}
	for t := range d.reads {
		for reg := range d.reads[t] {
			if defined[t][reg] || (ir.UniformType(t) == ir.UniformFloat && inArray(reg)) {
				continue
			}
			p.Uniforms = append(p.Uniforms, ir.Uniform{Type: ir.UniformType(t), Index: reg})
		}
	}
	sort.Slice(p.Uniforms, func(i, j int) bool {
		a, b := p.Uniforms[i], p.Uniforms[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Index < b.Index
	})
	sort.Slice(p.Constants, func(i, j int) bool {
		a, b := p.Constants[i], p.Constants[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Index < b.Index
	})
}

// arraySpan finds the register range a relative read from base may touch:
// the symbol containing base, or the whole constant file.
func (d *decoder) arraySpan(base int) span {
	for _, sym := range d.prog.Symbols {
		if sym.Contains(ir.SymbolRegisterFloat4, base) {
			return span{int(sym.RegisterIndex), int(sym.RegisterIndex + sym.RegisterCount)}
		}
	}
	return span{0, maxConstFloat(d.prog)}
}
