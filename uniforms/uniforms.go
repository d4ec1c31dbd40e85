// Package uniforms keeps a stage's D3D constant registers and packs them
// into the uniform arrays a translation declares.
//
// Emitters compact the registers a shader reads into three arrays per
// stage: vec4 floats, ivec4 integers and scalar booleans. A Layout records
// where each register lands; a RegisterFile holds the caller's values and
// Sync copies them through the layout, running the shader's preshader first
// when it has one.
package uniforms

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/preshader"
)

// Range maps Count consecutive registers starting at Reg to packed slots
// starting at Slot.
type Range struct {
	Reg   int
	Slot  int
	Count int
}

// Layout is the packed uniform layout of one translation.
type Layout struct {
	Floats []Range
	Ints   []Range
	Bools  []Range
}

// NewLayout computes the layout of a translation's uniform table. Arrays
// whose values are all literal take no slots.
func NewLayout(us []ir.Uniform) *Layout {
	var l Layout
	slots := [3]int{}
	for _, u := range us {
		if u.Constant || u.Type > ir.UniformBool {
			continue
		}
		r := Range{Reg: u.Index, Slot: slots[u.Type], Count: u.Slots()}
		slots[u.Type] += r.Count
		switch u.Type {
		case ir.UniformFloat:
			l.Floats = append(l.Floats, r)
		case ir.UniformInt:
			l.Ints = append(l.Ints, r)
		case ir.UniformBool:
			l.Bools = append(l.Bools, r)
		}
	}
	return &l
}

func count(rs []Range) int {
	if len(rs) == 0 {
		return 0
	}
	last := rs[len(rs)-1]
	return last.Slot + last.Count
}

// Slots returns the length of the packed array of type t.
func (l *Layout) Slots(t ir.UniformType) int {
	switch t {
	case ir.UniformInt:
		return count(l.Ints)
	case ir.UniformBool:
		return count(l.Bools)
	}
	return count(l.Floats)
}

// Block is packed uniform data. Floats and Ints hold four values per slot;
// Bools holds one.
type Block struct {
	Floats []float32
	Ints   []int32
	Bools  []int32
}

// NewBlock allocates a block sized for l.
func NewBlock(l *Layout) *Block {
	return &Block{
		Floats: make([]float32, 4*l.Slots(ir.UniformFloat)),
		Ints:   make([]int32, 4*l.Slots(ir.UniformInt)),
		Bools:  make([]int32, l.Slots(ir.UniformBool)),
	}
}

// Std140 serialises b as the uniform block the SPIR-V profiles declare:
// the float array, then the integer array, then the booleans as one int per
// 16-byte element. Empty arrays are omitted.
func (b *Block) Std140() []byte {
	out := make([]byte, 0, 4*(len(b.Floats)+len(b.Ints)+4*len(b.Bools)))
	for _, f := range b.Floats {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	for _, v := range b.Ints {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	for _, v := range b.Bools {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
		out = append(out, make([]byte, 12)...)
	}
	return out
}

// RegisterFile holds the float, integer and boolean constant registers of
// one stage as a D3D application sets them. Registers read past the end of
// a file are zero. A RegisterFile is not safe for concurrent use.
type RegisterFile struct {
	Floats []float32 // four per register
	Ints   []int32   // four per register
	Bools  []bool

	machine preshader.Machine
	folded  []float32
}

// NewRegisterFile returns a file with the given register counts. D3D9
// exposes 256 float, 16 integer and 16 boolean registers.
func NewRegisterFile(floats, ints, bools int) *RegisterFile {
	return &RegisterFile{
		Floats: make([]float32, 4*floats),
		Ints:   make([]int32, 4*ints),
		Bools:  make([]bool, bools),
	}
}

// SetFloat sets float register reg, growing the file when needed.
func (f *RegisterFile) SetFloat(reg int, v [4]float32) {
	if need := 4 * (reg + 1); len(f.Floats) < need {
		f.Floats = append(f.Floats, make([]float32, need-len(f.Floats))...)
	}
	copy(f.Floats[4*reg:], v[:])
}

// SetInt sets integer register reg, growing the file when needed.
func (f *RegisterFile) SetInt(reg int, v [4]int32) {
	if need := 4 * (reg + 1); len(f.Ints) < need {
		f.Ints = append(f.Ints, make([]int32, need-len(f.Ints))...)
	}
	copy(f.Ints[4*reg:], v[:])
}

// SetBool sets boolean register reg, growing the file when needed.
func (f *RegisterFile) SetBool(reg int, v bool) {
	if len(f.Bools) <= reg {
		f.Bools = append(f.Bools, make([]bool, reg+1-len(f.Bools))...)
	}
	f.Bools[reg] = v
}

// Sync packs the registers into b following l. When pre is non-nil it runs
// first: it reads the float registers and its results replace the float
// registers it writes, for this sync only.
func (f *RegisterFile) Sync(l *Layout, pre *ir.Preshader, b *Block) error {
	floats := f.Floats
	if pre != nil {
		f.folded = append(f.folded[:0], f.Floats...)
		if err := f.machine.Run(pre, f.Floats, f.folded); err != nil {
			return fmt.Errorf("uniforms: preshader: %w", err)
		}
		floats = f.folded
	}

	for _, r := range l.Floats {
		dst := b.Floats[4*r.Slot : 4*(r.Slot+r.Count)]
		clear(dst)
		if lo := 4 * r.Reg; lo < len(floats) {
			copy(dst, floats[lo:])
		}
	}
	for _, r := range l.Ints {
		dst := b.Ints[4*r.Slot : 4*(r.Slot+r.Count)]
		clear(dst)
		if lo := 4 * r.Reg; lo < len(f.Ints) {
			copy(dst, f.Ints[lo:])
		}
	}
	for _, r := range l.Bools {
		for i := 0; i < r.Count; i++ {
			var v int32
			if reg := r.Reg + i; reg < len(f.Bools) && f.Bools[reg] {
				v = 1
			}
			b.Bools[r.Slot+i] = v
		}
	}
	return nil
}
