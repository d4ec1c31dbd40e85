package ir

// ApplyOverrides returns p with caller overrides applied. The input program
// is not modified; when no override matches, p itself is returned.
//
// A swizzle override rewrites every direct read of the vertex input bound
// to its usage and index: lane i of the new swizzle reads
// override[old lane i]. A sampler override replaces the sampler's type.
func ApplyOverrides(p *Program, swizzles []SwizzleOverride, samplers []SamplerOverride) *Program {
	out := p
	clone := func() {
		if out == p {
			cp := *p
			out = &cp
		}
	}

	if len(samplers) > 0 {
		for _, ov := range samplers {
			for i := range out.Samplers {
				if out.Samplers[i].Index != ov.Index || out.Samplers[i].Type == ov.Type {
					continue
				}
				if out == p {
					clone()
					out.Samplers = append([]Sampler(nil), p.Samplers...)
				}
				out.Samplers[i].Type = ov.Type
			}
		}
	}

	if p.Type != ShaderVertex || len(swizzles) == 0 {
		return out
	}
	table := make(map[int][4]uint8)
	for _, a := range p.Attributes {
		if a.RegType != RegInput {
			continue
		}
		for _, ov := range swizzles {
			if ov.Usage == a.Usage && ov.Index == a.Index && !identityOverride(ov.Swizzle) {
				table[a.RegNum] = ov.Swizzle
			}
		}
	}
	if len(table) == 0 {
		return out
	}

	copied := false
	for i := range p.Instructions {
		inst := &p.Instructions[i]
		for j, src := range inst.Src {
			if src.RegType != RegInput || src.Relative {
				continue
			}
			ov, ok := table[src.RegNum]
			if !ok {
				continue
			}
			if !copied {
				clone()
				out.Instructions = append([]Instruction(nil), p.Instructions...)
				copied = true
			}
			dst := &out.Instructions[i]
			if &dst.Src[0] == &inst.Src[0] {
				dst.Src = append([]SourceParam(nil), inst.Src...)
			}
			dst.Src[j].Swizzle = src.Swizzle.Remap(ov)
		}
	}
	return out
}

func identityOverride(s [4]uint8) bool {
	return s == [4]uint8{0, 1, 2, 3}
}

// SwizzleFor returns the override matching usage and index, if any.
func SwizzleFor(swizzles []SwizzleOverride, usage Usage, index int) ([4]uint8, bool) {
	for _, ov := range swizzles {
		if ov.Usage == usage && ov.Index == index {
			return ov.Swizzle, true
		}
	}
	return [4]uint8{}, false
}
