package ir

import "strings"

// Swizzle selects a source component for each of the four result lanes.
// Lane i reads component (s >> 2i) & 3.
type Swizzle uint8

// SwizzleIdentity is ".xyzw".
const SwizzleIdentity Swizzle = 0xE4

// MakeSwizzle builds a swizzle from four component indices.
func MakeSwizzle(x, y, z, w int) Swizzle {
	return Swizzle(x&3 | (y&3)<<2 | (z&3)<<4 | (w&3)<<6)
}

// Component returns the component read by lane i.
func (s Swizzle) Component(i int) int {
	return int(s>>(2*uint(i))) & 3
}

// Remap applies an override table: new lane i reads ov[old lane i].
func (s Swizzle) Remap(ov [4]uint8) Swizzle {
	return MakeSwizzle(
		int(ov[s.Component(0)]), int(ov[s.Component(1)]),
		int(ov[s.Component(2)]), int(ov[s.Component(3)]))
}

// Replicated reports whether all lanes read the same component.
func (s Swizzle) Replicated() bool {
	c := s.Component(0)
	return s.Component(1) == c && s.Component(2) == c && s.Component(3) == c
}

const componentChars = "xyzw"

// String returns the swizzle as ".xyzw" text; identity is empty and a
// replicated swizzle is a single letter.
func (s Swizzle) String() string {
	if s == SwizzleIdentity {
		return ""
	}
	if s.Replicated() {
		return "." + string(componentChars[s.Component(0)])
	}
	return "." + s.Letters(MaskAll)
}

// Letters returns the components selected for the lanes enabled in mask.
func (s Swizzle) Letters(mask WriteMask) string {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		if mask.Has(i) {
			b.WriteByte(componentChars[s.Component(i)])
		}
	}
	return b.String()
}

// WriteMask selects the destination components an instruction writes.
type WriteMask uint8

const (
	MaskX   WriteMask = 1 << 0
	MaskY   WriteMask = 1 << 1
	MaskZ   WriteMask = 1 << 2
	MaskW   WriteMask = 1 << 3
	MaskAll WriteMask = MaskX | MaskY | MaskZ | MaskW
)

// Has reports whether lane i is written.
func (m WriteMask) Has(i int) bool { return m&(1<<uint(i)) != 0 }

// Count returns the number of lanes written.
func (m WriteMask) Count() int {
	n := 0
	for i := 0; i < 4; i++ {
		if m.Has(i) {
			n++
		}
	}
	return n
}

// First returns the first lane written, or -1 for an empty mask.
func (m WriteMask) First() int {
	for i := 0; i < 4; i++ {
		if m.Has(i) {
			return i
		}
	}
	return -1
}

// String returns the mask as ".xyz" text; a full mask is empty.
func (m WriteMask) String() string {
	if m == MaskAll {
		return ""
	}
	var b strings.Builder
	b.WriteByte('.')
	for i := 0; i < 4; i++ {
		if m.Has(i) {
			b.WriteByte(componentChars[i])
		}
	}
	return b.String()
}

// SourceMod is a source operand modifier.
type SourceMod uint8

const (
	SrcModNone SourceMod = iota
	SrcModNegate
	SrcModBias
	SrcModBiasNegate
	SrcModSign
	SrcModSignNegate
	SrcModComplement
	SrcModX2
	SrcModX2Negate
	SrcModDz
	SrcModDw
	SrcModAbs
	SrcModAbsNegate
	SrcModNot

	SrcModTotal
)

// ResultMod holds destination result modifier flags.
type ResultMod uint8

const (
	ResultModSaturate         ResultMod = 1 << 0
	ResultModPartialPrecision ResultMod = 1 << 1
	ResultModCentroid         ResultMod = 1 << 2
)

// Compare is the comparison function of IFC, BREAKC and SETP.
type Compare uint8

const (
	CompareNone Compare = iota
	CompareGT
	CompareEQ
	CompareGE
	CompareLT
	CompareNE
	CompareLE
)

var compareSuffix = [...]string{"", "_gt", "_eq", "_ge", "_lt", "_ne", "_le"}

// Suffix returns the assembly suffix of the comparison, e.g. "_gt".
func (c Compare) Suffix() string {
	if int(c) < len(compareSuffix) {
		return compareSuffix[c]
	}
	return ""
}

// Texld control flags.
const (
	TexldProject uint8 = 1 << 0
	TexldBias    uint8 = 1 << 1
)

// DestParam is a decoded destination operand.
type DestParam struct {
	RegType   RegisterType
	RegNum    int
	Mask      WriteMask
	ResultMod ResultMod
	// Shift is the result scale exponent (-8..7).
	Shift int8

	// Relative addressing (vs_3_0 output arrays only).
	Relative   bool
	RelType    RegisterType
	RelNum     int
	RelSwizzle Swizzle

	// Token and Offset locate the parameter token in the input.
	Token  uint32
	Offset int
}

// Saturate reports whether the result is clamped to [0, 1].
func (d DestParam) Saturate() bool { return d.ResultMod&ResultModSaturate != 0 }

// SourceParam is a decoded source operand.
type SourceParam struct {
	RegType RegisterType
	RegNum  int
	Swizzle Swizzle
	Mod     SourceMod

	// Relative addressing: the index is RegNum + RelType[RelNum].RelComponent.
	Relative     bool
	RelType      RegisterType
	RelNum       int
	RelComponent int

	Token  uint32
	Offset int
}

// Instruction is one decoded executable instruction.
type Instruction struct {
	Op Opcode

	// Controls holds the raw control bits (comparison or texld flags).
	Controls uint8

	Coissue    bool
	Predicated bool
	Predicate  SourceParam

	HasDest bool
	Dest    DestParam
	Src     []SourceParam

	// Offset is the byte offset of the opcode token; Length counts tokens
	// including the opcode token.
	Offset int
	Length int
}

// Compare returns the comparison of IFC, BREAKC and SETP.
func (inst *Instruction) Compare() Compare {
	return Compare(inst.Controls & 7)
}

// Projected reports whether a texld divides by w.
func (inst *Instruction) Projected() bool {
	return inst.Controls&TexldProject != 0
}

// Biased reports whether a texld applies an LOD bias from w.
func (inst *Instruction) Biased() bool {
	return inst.Controls&TexldBias != 0
}
