package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/d3dbc/ir"
)

// Builder assembles a token stream. It is used by tests and tools that
// need to produce bytecode without an HLSL compiler.
type Builder struct {
	tokens []uint32
	major  uint8
}

// NewBuilder creates a builder whose stream starts with a version token.
func NewBuilder(t ir.ShaderType, major, minor uint8) *Builder {
	b := &Builder{tokens: make([]uint32, 0, 32), major: major}
	b.tokens = append(b.tokens, VersionToken(t, major, minor))
	return b
}

// AddWord appends a raw token.
func (b *Builder) AddWord(tok uint32) *Builder {
	b.tokens = append(b.tokens, tok)
	return b
}

// Op appends an instruction followed by its parameter tokens. The length
// field is filled in for SM2 and newer streams.
func (b *Builder) Op(op ir.Opcode, params ...uint32) *Builder {
	return b.OpControls(op, 0, params...)
}

// OpControls appends an instruction with control bits (comparison or
// texld flags).
func (b *Builder) OpControls(op ir.Opcode, controls uint8, params ...uint32) *Builder {
	length := 0
	if b.major >= 2 {
		length = len(params)
	}
	b.tokens = append(b.tokens, InstructionToken(op, controls, length))
	b.tokens = append(b.tokens, params...)
	return b
}

// Def appends a DEF of float constant c<reg>.
func (b *Builder) Def(reg int, x, y, z, w float32) *Builder {
	return b.Op(ir.OpDef, DestToken(ir.RegConst, reg, ir.MaskAll),
		math.Float32bits(x), math.Float32bits(y), math.Float32bits(z), math.Float32bits(w))
}

// DefI appends a DEFI of integer constant i<reg>.
func (b *Builder) DefI(reg int, x, y, z, w int32) *Builder {
	return b.Op(ir.OpDefI, DestToken(ir.RegConstInt, reg, ir.MaskAll),
		uint32(x), uint32(y), uint32(z), uint32(w))
}

// DefB appends a DEFB of boolean constant b<reg>.
func (b *Builder) DefB(reg int, v bool) *Builder {
	var bit uint32
	if v {
		bit = 1
	}
	return b.Op(ir.OpDefB, DestToken(ir.RegConstBool, reg, ir.MaskAll), bit)
}

// DclInput appends an input or output DCL with a usage.
func (b *Builder) DclInput(t ir.RegisterType, reg int, usage ir.Usage, index int, mask ir.WriteMask) *Builder {
	return b.Op(ir.OpDcl, DclUsageToken(usage, index), DestToken(t, reg, mask))
}

// DclSampler appends a sampler DCL.
func (b *Builder) DclSampler(reg int, t ir.SamplerType) *Builder {
	return b.Op(ir.OpDcl, DclSamplerToken(t), DestToken(ir.RegSampler, reg, ir.MaskAll))
}

// Comment appends a comment block holding the given payload tokens.
func (b *Builder) Comment(payload ...uint32) *Builder {
	b.tokens = append(b.tokens, CommentToken(len(payload)))
	b.tokens = append(b.tokens, payload...)
	return b
}

// CommentBytes appends a comment block holding raw bytes, zero padded to a
// token boundary.
func (b *Builder) CommentBytes(payload []byte) *Builder {
	return b.Comment(BytesToTokens(payload)...)
}

// End appends the END token.
func (b *Builder) End() *Builder {
	b.tokens = append(b.tokens, TokenEnd)
	return b
}

// Tokens returns the assembled tokens.
func (b *Builder) Tokens() []uint32 { return b.tokens }

// Bytes returns the assembled stream in little-endian byte order.
func (b *Builder) Bytes() []byte {
	return TokensToBytes(b.tokens)
}

// TokensToBytes encodes tokens little endian.
func TokensToBytes(tokens []uint32) []byte {
	out := make([]byte, len(tokens)*4)
	for i, tok := range tokens {
		binary.LittleEndian.PutUint32(out[i*4:], tok)
	}
	return out
}

// BytesToTokens decodes a byte slice into tokens, zero padding the tail.
func BytesToTokens(b []byte) []uint32 {
	padded := b
	if len(b)%4 != 0 {
		padded = make([]byte, (len(b)+3)&^3)
		copy(padded, b)
	}
	out := make([]uint32, len(padded)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(padded[i*4:])
	}
	return out
}
