package ir

// UniformType is the register file of a uniform or constant.
type UniformType uint8

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformBool
)

// String returns the register file name.
func (t UniformType) String() string {
	switch t {
	case UniformFloat:
		return "float"
	case UniformInt:
		return "int"
	case UniformBool:
		return "bool"
	default:
		return "unknown"
	}
}

// RegisterType returns the register file that holds uniforms of type t.
func (t UniformType) RegisterType() RegisterType {
	switch t {
	case UniformInt:
		return RegConstInt
	case UniformBool:
		return RegConstBool
	default:
		return RegConst
	}
}

// Uniform is a register (or register array) the caller supplies per draw.
type Uniform struct {
	Type  UniformType
	Index int
	// ArrayCount is zero for a single register.
	ArrayCount int
	// Constant is set for arrays whose every element comes from a DEF
	// opcode; such arrays are emitted as literals and take no slots.
	Constant bool
	Name     string
}

// Slots returns the number of packed slots the uniform occupies.
func (u Uniform) Slots() int {
	if u.ArrayCount > 0 {
		return u.ArrayCount
	}
	return 1
}

// Constant is a register whose value is fixed by DEF, DEFI or DEFB.
type Constant struct {
	Type  UniformType
	Index int
	Float [4]float32
	Int   [4]int32
	Bool  bool
}

// SamplerType is the texture dimensionality a sampler reads.
type SamplerType uint8

const (
	Sampler2D SamplerType = iota
	SamplerCube
	SamplerVolume

	// SamplerUnknown is used while decoding before a type is inferred.
	SamplerUnknown SamplerType = 0xFF
)

// String returns the assembly spelling of the sampler type.
func (t SamplerType) String() string {
	switch t {
	case Sampler2D:
		return "2d"
	case SamplerCube:
		return "cube"
	case SamplerVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// ParseSamplerType parses "2d", "cube" or "volume".
func ParseSamplerType(s string) (SamplerType, bool) {
	switch s {
	case "2d", "2D":
		return Sampler2D, true
	case "cube", "CUBE":
		return SamplerCube, true
	case "volume", "3d", "VOLUME", "3D":
		return SamplerVolume, true
	}
	return SamplerUnknown, false
}

// Sampler is a texture sampler register.
type Sampler struct {
	Type  SamplerType
	Index int
	Name  string
	// Texbem is set when TEXBEM or TEXBEML reads through this sampler.
	Texbem bool
	// DeclOffset is the byte offset of the sampler DCL's usage token, or
	// zero when the sampler is not declared.
	DeclOffset int
}

// Attribute is a stage input or output bound to a usage.
type Attribute struct {
	Usage   Usage
	Index   int
	RegType RegisterType
	RegNum  int
	Mask    WriteMask
	Name    string
}

// SwizzleOverride remaps the components of a vertex input.
type SwizzleOverride struct {
	Usage   Usage
	Index   int
	Swizzle [4]uint8
}

// SamplerOverride forces the type of sampler register s<Index>.
type SamplerOverride struct {
	Index int
	Type  SamplerType
}

// BumpEnv is the per-sampler bump environment used by TEXBEM and TEXBEML.
type BumpEnv struct {
	Mat     [4]float32 // m00 m01 m10 m11
	LScale  float32
	LOffset float32
}
