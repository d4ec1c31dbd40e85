// Package ir defines the profile-independent program model for d3dbc.
//
// A Program is the result of decoding one Direct3D 9 shader token stream.
// It is shared read-only by every profile emitter.
package ir

import "sort"

// ShaderType identifies the pipeline stage of a shader. Values are bit
// flags so opcode applicability can be expressed as a mask.
type ShaderType uint32

const (
	ShaderUnknown  ShaderType = 0
	ShaderPixel    ShaderType = 1 << 0
	ShaderVertex   ShaderType = 1 << 1
	ShaderGeometry ShaderType = 1 << 2

	// ShaderAny matches every stage.
	ShaderAny = ShaderPixel | ShaderVertex | ShaderGeometry
)

// String returns a human-readable stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderPixel:
		return "pixel"
	case ShaderVertex:
		return "vertex"
	case ShaderGeometry:
		return "geometry"
	default:
		return "unknown"
	}
}

// Prefix returns the short stage prefix used in generated names ("vs", "ps").
func (t ShaderType) Prefix() string {
	switch t {
	case ShaderPixel:
		return "ps"
	case ShaderVertex:
		return "vs"
	case ShaderGeometry:
		return "gs"
	default:
		return "xx"
	}
}

// Version is a shader model version. Minor 1 on major 2 is the "2_x"
// extended model and minor 0xFF is the software model.
type Version struct {
	Major uint8
	Minor uint8
}

const (
	// MinorExtended marks the 2_x models.
	MinorExtended uint8 = 0x01
	// MinorSoftware marks the sw models.
	MinorSoftware uint8 = 0xFF
)

// AtLeast reports whether v is maj.min or newer.
func (v Version) AtLeast(maj, min uint8) bool {
	return uint16(v.Major)<<8|uint16(v.Minor) >= uint16(maj)<<8|uint16(min)
}

// Less reports whether v is older than maj.min.
func (v Version) Less(maj, min uint8) bool {
	return !v.AtLeast(maj, min)
}

// Suffix returns the version part of a profile string, e.g. "2_x" or "1_4".
func (v Version) Suffix() string {
	switch {
	case v.Minor == MinorSoftware:
		return string('0'+rune(v.Major)) + "_sw"
	case v.Major == 2 && v.Minor == MinorExtended:
		return "2_x"
	default:
		return string('0'+rune(v.Major)) + "_" + string('0'+rune(v.Minor))
	}
}

// Program is a decoded shader.
type Program struct {
	Type    ShaderType
	Version Version

	// Instructions holds every executable instruction in stream order.
	// DCL and DEF-class opcodes are not listed here.
	Instructions []Instruction

	Uniforms   []Uniform
	Constants  []Constant
	Samplers   []Sampler
	Attributes []Attribute
	Outputs    []Attribute

	// Registers lists every register the shader declares or references,
	// sorted by type and number.
	Registers []Register

	// Labels lists the subroutine labels defined by LABEL instructions.
	Labels []int

	Symbols   []Symbol
	CTAB      *CTABHeader
	Preshader *Preshader

	// InstructionCount is the instruction-slot estimate.
	InstructionCount int
}

// Target returns the shader profile string, e.g. "vs_2_0".
func (p *Program) Target() string {
	return p.Type.Prefix() + "_" + p.Version.Suffix()
}

// IsVertex reports whether p is a vertex shader.
func (p *Program) IsVertex() bool { return p.Type == ShaderVertex }

// IsPixel reports whether p is a pixel shader.
func (p *Program) IsPixel() bool { return p.Type == ShaderPixel }

// Register returns the tracked register of the given type and number, or nil.
func (p *Program) Register(t RegisterType, num int) *Register {
	i := sort.Search(len(p.Registers), func(i int) bool {
		r := &p.Registers[i]
		return r.Type > t || (r.Type == t && r.Num >= num)
	})
	if i < len(p.Registers) && p.Registers[i].Type == t && p.Registers[i].Num == num {
		return &p.Registers[i]
	}
	return nil
}

// RegistersOf returns all tracked registers of type t in ascending order.
func (p *Program) RegistersOf(t RegisterType) []Register {
	lo := sort.Search(len(p.Registers), func(i int) bool { return p.Registers[i].Type >= t })
	hi := sort.Search(len(p.Registers), func(i int) bool { return p.Registers[i].Type > t })
	return p.Registers[lo:hi]
}

// Sampler returns the sampler bound to register s<index>, or nil.
func (p *Program) Sampler(index int) *Sampler {
	for i := range p.Samplers {
		if p.Samplers[i].Index == index {
			return &p.Samplers[i]
		}
	}
	return nil
}

// Constant returns the DEF-class constant for register index of the given
// file, or nil.
func (p *Program) Constant(t UniformType, index int) *Constant {
	for i := range p.Constants {
		if p.Constants[i].Type == t && p.Constants[i].Index == index {
			return &p.Constants[i]
		}
	}
	return nil
}

// UniformSlot returns the slot of register reg within the packed array of
// uniform type t, along with the uniform that covers it.
func (p *Program) UniformSlot(t UniformType, reg int) (int, *Uniform, bool) {
	slot := 0
	for i := range p.Uniforms {
		u := &p.Uniforms[i]
		if u.Type != t || u.Constant {
			continue
		}
		if reg >= u.Index && reg < u.Index+u.Slots() {
			return slot + reg - u.Index, u, true
		}
		slot += u.Slots()
	}
	return 0, nil, false
}

// UniformSlots returns the size of the packed uniform array of type t.
func (p *Program) UniformSlots(t UniformType) int {
	n := 0
	for i := range p.Uniforms {
		if p.Uniforms[i].Type == t && !p.Uniforms[i].Constant {
			n += p.Uniforms[i].Slots()
		}
	}
	return n
}

// ArrayFor returns the uniform array of type t containing reg, or nil.
func (p *Program) ArrayFor(t UniformType, reg int) *Uniform {
	for i := range p.Uniforms {
		u := &p.Uniforms[i]
		if u.Type == t && u.ArrayCount > 0 && reg >= u.Index && reg < u.Index+u.ArrayCount {
			return u
		}
	}
	return nil
}

// Attribute returns the input bound to register (t, num), or nil.
func (p *Program) Attribute(t RegisterType, num int) *Attribute {
	for i := range p.Attributes {
		if p.Attributes[i].RegType == t && p.Attributes[i].RegNum == num {
			return &p.Attributes[i]
		}
	}
	return nil
}

// Output returns the output bound to register (t, num), or nil.
func (p *Program) Output(t RegisterType, num int) *Attribute {
	for i := range p.Outputs {
		if p.Outputs[i].RegType == t && p.Outputs[i].RegNum == num {
			return &p.Outputs[i]
		}
	}
	return nil
}

// UsesTexbem reports whether any sampler is read by TEXBEM or TEXBEML.
func (p *Program) UsesTexbem() bool {
	for i := range p.Samplers {
		if p.Samplers[i].Texbem {
			return true
		}
	}
	return false
}

// Subroutine is a LABEL-delimited block of instructions.
type Subroutine struct {
	Label int
	Body  []Instruction
}

// Split divides the instruction list into the main body and subroutines.
// The main body ends at the first LABEL. Each subroutine runs from its
// LABEL to the instruction before the next LABEL; the leading LABEL is
// dropped and the trailing RET is kept.
func (p *Program) Split() ([]Instruction, []Subroutine) {
	var subs []Subroutine
	main := p.Instructions
	for i, inst := range p.Instructions {
		if inst.Op == OpLabel {
			main = p.Instructions[:i]
			break
		}
	}
	rest := p.Instructions[len(main):]
	for len(rest) > 0 {
		label := rest[0].Src[0].RegNum
		end := len(rest)
		for j := 1; j < len(rest); j++ {
			if rest[j].Op == OpLabel {
				end = j
				break
			}
		}
		subs = append(subs, Subroutine{Label: label, Body: rest[1:end]})
		rest = rest[end:]
	}
	return main, subs
}
