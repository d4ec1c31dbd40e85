package bytecode

import (
	"github.com/gogpu/d3dbc/ir"
)

func (d *decoder) destParam() (ir.DestParam, error) {
	off := d.r.Offset()
	tok, err := d.r.Next()
	if err != nil {
		return ir.DestParam{}, err
	}
	dst := ir.DestParam{
		RegType:   regTypeOf(tok),
		RegNum:    int(tok & 0x7FF),
		Mask:      ir.WriteMask((tok >> 16) & 0xF),
		ResultMod: ir.ResultMod((tok >> 20) & 0xF),
		Shift:     int8(uint8(tok>>24)<<4) >> 4,
		Token:     tok,
		Offset:    off,
	}
	if tok&paramBit == 0 {
		d.errs.Addf(ir.ErrDecode, off, "malformed destination parameter token %#08x", tok)
	}
	if tok&relativeBit != 0 {
		dst.Relative = true
		if !(d.prog.IsVertex() && d.prog.Version.AtLeast(3, 0) && dst.RegType == ir.RegOutput) {
			d.errs.Addf(ir.ErrDecode, off, "relative addressing of destination %s is not allowed", d.regName(dst.RegType, dst.RegNum))
		}
		rel, err := d.r.Next()
		if err != nil {
			return dst, err
		}
		dst.RelType = regTypeOf(rel)
		dst.RelNum = int(rel & 0x7FF)
		dst.RelSwizzle = ir.Swizzle(rel >> 16)
	}
	dst.RegType, dst.RegNum = normalizeConst(dst.RegType, dst.RegNum)
	return dst, nil
}

func (d *decoder) srcParam() (ir.SourceParam, error) {
	off := d.r.Offset()
	tok, err := d.r.Next()
	if err != nil {
		return ir.SourceParam{}, err
	}
	src := ir.SourceParam{
		RegType: regTypeOf(tok),
		RegNum:  int(tok & 0x7FF),
		Swizzle: ir.Swizzle(tok >> 16),
		Mod:     ir.SourceMod((tok >> 24) & 0xF),
		Token:   tok,
		Offset:  off,
	}
	if tok&paramBit == 0 {
		d.errs.Addf(ir.ErrDecode, off, "malformed source parameter token %#08x", tok)
	}
	if src.Mod >= ir.SrcModTotal {
		d.errs.Addf(ir.ErrDecode, off, "unknown source modifier %d", src.Mod)
	}
	if tok&relativeBit != 0 {
		src.Relative = true
		if d.prog.Version.Major >= 2 {
			rel, err := d.r.Next()
			if err != nil {
				return src, err
			}
			src.RelType = regTypeOf(rel)
			src.RelNum = int(rel & 0x7FF)
			src.RelComponent = ir.Swizzle(rel >> 16).Component(0)
		} else {
			// vs_1_1 always addresses through a0.x.
			src.RelType = ir.RegAddress
			src.RelNum = 0
			src.RelComponent = 0
		}
	}
	src.RegType, src.RegNum = normalizeConst(src.RegType, src.RegNum)
	return src, nil
}

// normalizeConst folds the c2048+ banks into the main constant file.
func normalizeConst(t ir.RegisterType, num int) (ir.RegisterType, int) {
	switch t {
	case ir.RegConst2:
		return ir.RegConst, num + 2048
	case ir.RegConst3:
		return ir.RegConst, num + 4096
	case ir.RegConst4:
		return ir.RegConst, num + 6144
	}
	return t, num
}

func (d *decoder) checkOperands(inst *ir.Instruction) {
	if inst.HasDest {
		dst := &inst.Dest
		d.use(dst.RegType, dst.RegNum, true, dst.Offset)
		if dst.Relative {
			d.useRelative(dst.RelType, dst.RelNum, dst.Offset)
		}
		if dst.Mask == 0 && inst.Op != ir.OpTexKill {
			d.errs.Addf(ir.ErrDecode, dst.Offset, "%s: empty write mask", inst.Op)
		}
	}
	if inst.Predicated {
		p := &inst.Predicate
		if p.RegType != ir.RegPredicate {
			d.errs.Addf(ir.ErrDecode, p.Offset, "predicate operand must be a predicate register")
		}
		d.use(p.RegType, p.RegNum, false, p.Offset)
	}
	for i := range inst.Src {
		src := &inst.Src[i]
		// src1 of the matrix opcodes names the first of several rows.
		rows := 1
		if i == 1 {
			rows = matrixRows(inst.Op)
		}
		if src.Relative {
			d.useRelative(src.RelType, src.RelNum, src.Offset)
			switch {
			case src.RegType == ir.RegConst:
				for r := 0; r < rows; r++ {
					d.relBases = append(d.relBases, src.RegNum+r)
				}
				d.reg(ir.RegConst, src.RegNum).Read = true
				continue
			case src.RegType == ir.RegInput && d.prog.Version.AtLeast(3, 0):
			default:
				d.errs.Addf(ir.ErrDecode, src.Offset, "relative addressing of %s is not allowed", d.regName(src.RegType, src.RegNum))
			}
		}
		for r := 0; r < rows; r++ {
			d.use(src.RegType, src.RegNum+r, false, src.Offset)
		}
	}
}

// matrixRows is the number of consecutive registers src1 of op reads.
func matrixRows(op ir.Opcode) int {
	switch op {
	case ir.OpM4x4, ir.OpM3x4:
		return 4
	case ir.OpM4x3, ir.OpM3x3:
		return 3
	case ir.OpM3x2:
		return 2
	}
	return 1
}

func (d *decoder) useRelative(t ir.RegisterType, num, off int) {
	switch {
	case t == ir.RegAddress && d.prog.IsVertex():
	case t == ir.RegLoop:
	default:
		d.errs.Addf(ir.ErrDecode, off, "%s cannot be used as a relative address", d.regName(t, num))
		return
	}
	d.use(t, num, false, off)
	d.reg(t, num).Relative = true
}

// use records a register access and enforces declare-before-use.
func (d *decoder) use(t ir.RegisterType, num int, write bool, off int) {
	if !d.validRegister(t, num, off) {
		return
	}
	r := d.reg(t, num)
	if !r.Declared && !d.implicit(t) {
		key := regKey{t, num}
		if !d.reported[key] {
			d.reported[key] = true
			d.errs.Addf(ir.ErrDecode, off, "%s used before declaration", d.regName(t, num))
		}
	}
	if write {
		r.Written = true
		switch t {
		case ir.RegConst, ir.RegConstInt, ir.RegConstBool, ir.RegSampler, ir.RegLabel:
			d.errs.Addf(ir.ErrDecode, off, "%s is read-only", d.regName(t, num))
		case ir.RegInput:
			if d.prog.IsVertex() || d.prog.Version.AtLeast(2, 0) {
				d.errs.Addf(ir.ErrDecode, off, "%s is read-only", d.regName(t, num))
			}
		}
	} else {
		r.Read = true
	}
	d.implicitUsage(r)

	switch t {
	case ir.RegConst:
		d.reads[ir.UniformFloat][num] = true
	case ir.RegConstInt:
		d.reads[ir.UniformInt][num] = true
	case ir.RegConstBool:
		d.reads[ir.UniformBool][num] = true
	case ir.RegSampler:
		d.sampler(num)
	}
}

func (d *decoder) validRegister(t ir.RegisterType, num, off int) bool {
	vs, ps := d.prog.IsVertex(), d.prog.IsPixel()
	v := d.prog.Version
	ok := true
	switch t {
	case ir.RegRastOut:
		ok = vs && v.Less(3, 0) && num <= ir.RastOutPointSize
	case ir.RegAttrOut:
		ok = vs && v.Less(3, 0)
	case ir.RegOutput:
		ok = vs
	case ir.RegColorOut, ir.RegDepthOut:
		ok = ps
	case ir.RegMisc:
		ok = ps && v.AtLeast(3, 0) && num <= ir.MiscFace
	case ir.RegConst2, ir.RegConst3, ir.RegConst4, ir.RegTempFloat16:
		ok = false
	default:
		ok = t < ir.RegMax
	}
	if !ok {
		d.errs.Addf(ir.ErrDecode, off, "register type %d (%s) is not valid in %s", t, d.regName(t, num), d.prog.Target())
	}
	return ok
}

// implicit reports whether registers of type t exist without a DCL.
func (d *decoder) implicit(t ir.RegisterType) bool {
	vs := d.prog.IsVertex()
	v := d.prog.Version
	switch t {
	case ir.RegTemp, ir.RegConst, ir.RegConstInt, ir.RegConstBool,
		ir.RegLoop, ir.RegLabel, ir.RegPredicate:
		return true
	case ir.RegAddress:
		return vs || v.Less(2, 0)
	case ir.RegInput, ir.RegSampler:
		return !vs && v.Less(2, 0)
	case ir.RegRastOut, ir.RegAttrOut, ir.RegTexCrdOut:
		return vs && v.Less(3, 0)
	case ir.RegColorOut, ir.RegDepthOut:
		return !vs
	}
	return false
}

// implicitUsage assigns the fixed usages of registers that predate DCL.
func (d *decoder) implicitUsage(r *ir.Register) {
	if r.Usage != ir.UsageUnknown || r.Declared {
		return
	}
	vs := d.prog.IsVertex()
	v := d.prog.Version
	switch {
	case !vs && v.Less(2, 0) && r.Type == ir.RegInput:
		r.Usage, r.UsageIndex = ir.UsageColor, r.Num
	case !vs && v.Less(2, 0) && r.Type == ir.RegTexture:
		r.Usage, r.UsageIndex = ir.UsageTexCoord, r.Num
	case vs && v.Less(3, 0) && r.Type == ir.RegRastOut:
		switch r.Num {
		case ir.RastOutPosition:
			r.Usage = ir.UsagePosition
		case ir.RastOutFog:
			r.Usage = ir.UsageFog
		case ir.RastOutPointSize:
			r.Usage = ir.UsagePointSize
		}
	case vs && v.Less(3, 0) && r.Type == ir.RegAttrOut:
		r.Usage, r.UsageIndex = ir.UsageColor, r.Num
	case vs && v.Less(3, 0) && r.Type == ir.RegTexCrdOut:
		r.Usage, r.UsageIndex = ir.UsageTexCoord, r.Num
	case !vs && r.Type == ir.RegColorOut:
		r.Usage, r.UsageIndex = ir.UsageColor, r.Num
	case !vs && r.Type == ir.RegDepthOut:
		r.Usage = ir.UsageDepth
	}
}
