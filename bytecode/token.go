package bytecode

import "github.com/gogpu/d3dbc/ir"

// Special tokens.
const (
	TokenEnd     uint32 = 0x0000FFFF
	opcodeMask   uint32 = 0x0000FFFF
	commentMask  uint32 = 0x7FFF0000
	paramBit     uint32 = 1 << 31
	relativeBit  uint32 = 1 << 13
	predicateBit uint32 = 1 << 28
	coissueBit   uint32 = 1 << 30
)

// Comment payload magics.
const (
	MagicCTAB uint32 = 0x42415443 // "CTAB"
	MagicPRES uint32 = 0x53455250 // "PRES"
	MagicCLIT uint32 = 0x54494C43 // "CLIT"
	MagicFXLC uint32 = 0x434C5846 // "FXLC"
	MagicPRSI uint32 = 0x49535250 // "PRSI"

	// preshaderVersion is the high half of the PRES version token.
	preshaderVersion uint32 = 0x4658
)

// Version token prefixes.
const (
	versionPixel    uint32 = 0xFFFF
	versionVertex   uint32 = 0xFFFE
	versionGeometry uint32 = 0x4753
)

// VersionToken encodes a version token.
func VersionToken(t ir.ShaderType, major, minor uint8) uint32 {
	prefix := versionVertex
	switch t {
	case ir.ShaderPixel:
		prefix = versionPixel
	case ir.ShaderGeometry:
		prefix = versionGeometry
	}
	return prefix<<16 | uint32(major)<<8 | uint32(minor)
}

// regTypeOf extracts the register type of a parameter token.
func regTypeOf(tok uint32) ir.RegisterType {
	return ir.RegisterType(((tok >> 28) & 0x7) | ((tok >> 8) & 0x18))
}

// regBits encodes a register type and number into parameter bits.
func regBits(t ir.RegisterType, num int) uint32 {
	return paramBit | (uint32(t)&0x7)<<28 | (uint32(t)&0x18)<<8 | uint32(num)&0x7FF
}

// DestToken encodes a destination parameter.
func DestToken(t ir.RegisterType, num int, mask ir.WriteMask) uint32 {
	return regBits(t, num) | uint32(mask&0xF)<<16
}

// DestTokenMod encodes a destination parameter with result modifiers and shift.
func DestTokenMod(t ir.RegisterType, num int, mask ir.WriteMask, mod ir.ResultMod, shift int8) uint32 {
	return DestToken(t, num, mask) | uint32(mod&0xF)<<20 | (uint32(shift)&0xF)<<24
}

// SrcToken encodes a source parameter.
func SrcToken(t ir.RegisterType, num int, swz ir.Swizzle, mod ir.SourceMod) uint32 {
	return regBits(t, num) | uint32(swz)<<16 | uint32(mod&0xF)<<24
}

// Relative sets the relative-addressing bit of a parameter token.
func Relative(tok uint32) uint32 { return tok | relativeBit }

// WithSwizzle replaces the swizzle bits of a source token.
func WithSwizzle(tok uint32, swz ir.Swizzle) uint32 {
	return tok&^(0xFF<<16) | uint32(swz)<<16
}

// DclUsageToken encodes the usage token of an input or output DCL.
func DclUsageToken(usage ir.Usage, index int) uint32 {
	return paramBit | uint32(usage)&0x1F | (uint32(index)&0xF)<<16
}

// Texture type values in sampler DCL tokens.
const (
	textureType2D     uint32 = 2
	textureTypeCube   uint32 = 3
	textureTypeVolume uint32 = 4
)

// DclSamplerToken encodes the usage token of a sampler DCL.
func DclSamplerToken(t ir.SamplerType) uint32 {
	return paramBit | samplerTextureBits(t)<<27
}

func samplerTextureBits(t ir.SamplerType) uint32 {
	switch t {
	case ir.SamplerCube:
		return textureTypeCube
	case ir.SamplerVolume:
		return textureTypeVolume
	default:
		return textureType2D
	}
}

// WithSamplerType replaces the texture type bits of a sampler DCL token.
func WithSamplerType(tok uint32, t ir.SamplerType) uint32 {
	return tok&^(0xF<<27) | samplerTextureBits(t)<<27
}

// InstructionToken encodes an opcode token. length is the number of
// parameter tokens that follow; it is only encoded for SM2 and newer.
func InstructionToken(op ir.Opcode, controls uint8, length int) uint32 {
	return uint32(op) | uint32(controls)<<16 | (uint32(length)&0xF)<<24
}

// CommentToken encodes a comment header for a payload of n tokens.
func CommentToken(n int) uint32 {
	return uint32(ir.OpComment) | (uint32(n)&0x7FFF)<<16
}
