package ir

// SymbolRegisterSet is the register file a symbol is bound to.
type SymbolRegisterSet uint32

const (
	SymbolRegisterBool SymbolRegisterSet = iota
	SymbolRegisterInt4
	SymbolRegisterFloat4
	SymbolRegisterSampler
)

// SymbolClass is the parameter class of a symbol type.
type SymbolClass uint32

const (
	SymbolClassScalar SymbolClass = iota
	SymbolClassVector
	SymbolClassMatrixRows
	SymbolClassMatrixColumns
	SymbolClassObject
	SymbolClassStruct
)

// SymbolType is the parameter type of a symbol.
type SymbolType uint32

const (
	SymbolTypeVoid SymbolType = iota
	SymbolTypeBool
	SymbolTypeInt
	SymbolTypeFloat
	SymbolTypeString
	SymbolTypeTexture
	SymbolTypeTexture1D
	SymbolTypeTexture2D
	SymbolTypeTexture3D
	SymbolTypeTextureCube
	SymbolTypeSampler
	SymbolTypeSampler1D
	SymbolTypeSampler2D
	SymbolTypeSampler3D
	SymbolTypeSamplerCube
	SymbolTypePixelShader
	SymbolTypeVertexShader
	SymbolTypePixelFragment
	SymbolTypeVertexFragment
	SymbolTypeUnsupported
)

// SymbolTypeInfo describes the shape of a symbol.
type SymbolTypeInfo struct {
	Class    SymbolClass
	Type     SymbolType
	Rows     uint32
	Columns  uint32
	Elements uint32
	Members  []SymbolStructMember
}

// SymbolStructMember is one member of a struct symbol.
type SymbolStructMember struct {
	Name string
	Info SymbolTypeInfo
}

// Symbol is a named HLSL variable bound to a register range.
type Symbol struct {
	Name          string
	RegisterSet   SymbolRegisterSet
	RegisterIndex uint32
	RegisterCount uint32
	Info          SymbolTypeInfo
}

// Contains reports whether register reg of the set is within the symbol.
func (s Symbol) Contains(set SymbolRegisterSet, reg int) bool {
	return s.RegisterSet == set && reg >= int(s.RegisterIndex) &&
		reg < int(s.RegisterIndex)+int(s.RegisterCount)
}

// SamplerType maps a sampler symbol to the sampler type it implies.
func (s Symbol) SamplerType() (SamplerType, bool) {
	switch s.Info.Type {
	case SymbolTypeSampler1D, SymbolTypeSampler2D, SymbolTypeSampler:
		return Sampler2D, true
	case SymbolTypeSamplerCube:
		return SamplerCube, true
	case SymbolTypeSampler3D:
		return SamplerVolume, true
	}
	return SamplerUnknown, false
}

// CTABHeader holds the constant table header fields that carry no
// decoding semantics. Flags is kept but never interpreted.
type CTABHeader struct {
	Creator string
	Version uint32
	Flags   uint32
	Target  string
}
