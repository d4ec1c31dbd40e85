package shaderlang

import "github.com/gogpu/d3dbc/ir"

// Builtin names an intrinsic whose spelling differs between languages.
type Builtin uint8

const (
	BuiltinAbs Builtin = iota
	BuiltinMin
	BuiltinMax
	BuiltinClamp
	BuiltinDot
	BuiltinCross
	BuiltinNormalize
	BuiltinFloor
	BuiltinFract
	BuiltinExp2
	BuiltinLog2
	BuiltinPow
	BuiltinSqrt
	BuiltinInverseSqrt
	BuiltinSin
	BuiltinCos
	BuiltinSign
	BuiltinMix
	BuiltinDdx
	BuiltinDdy

	builtinCount
)

// commonNames holds the spelling shared by all three languages.
var commonNames = [builtinCount]string{
	BuiltinAbs:         "abs",
	BuiltinMin:         "min",
	BuiltinMax:         "max",
	BuiltinClamp:       "clamp",
	BuiltinDot:         "dot",
	BuiltinCross:       "cross",
	BuiltinNormalize:   "normalize",
	BuiltinFloor:       "floor",
	BuiltinFract:       "fract",
	BuiltinExp2:        "exp2",
	BuiltinLog2:        "log2",
	BuiltinPow:         "pow",
	BuiltinSqrt:        "sqrt",
	BuiltinInverseSqrt: "inversesqrt",
	BuiltinSin:         "sin",
	BuiltinCos:         "cos",
	BuiltinSign:        "sign",
	BuiltinMix:         "mix",
	BuiltinDdx:         "dFdx",
	BuiltinDdy:         "dFdy",
}

// CommonName returns the GLSL spelling of b, which most dialects share.
func CommonName(b Builtin) string {
	if b < builtinCount {
		return commonNames[b]
	}
	return "?"
}

// SampleKind selects the texture lookup variant.
type SampleKind uint8

const (
	SamplePlain SampleKind = iota
	SampleBias
	SampleLod
	SampleGrad
)

// SampleRequest describes one texture lookup.
type SampleRequest struct {
	Sampler *ir.Sampler
	// Name is the sampler variable name, e.g. "ps_s0".
	Name string
	Kind SampleKind
	// Coord has Dims components: 2 for 2D samplers, 3 for cube and volume.
	Coord string
	Dims  int
	// Level is the bias or LOD scalar.
	Level    string
	DDX, DDY string
	Vertex   bool
}

// Dialect spells the language-specific parts of lowered code. A Dialect
// may keep per-compile state, such as the extensions its calls require.
type Dialect interface {
	// FloatType returns the float vector type of width n; width 1 is the scalar type.
	FloatType(n int) string
	IntType(n int) string
	BoolType(n int) string

	Builtin(b Builtin) string
	Saturate(x string) string

	// Compare returns the lane-wise comparison of two width-n operands as
	// a bool vector of width n.
	Compare(op ir.Compare, a, b string, n int) string
	// Select returns cond ? t : f lane by lane; cond is a width-n bool vector.
	Select(cond, t, f string, n int) string
	// Any reports whether a lane of a width-n bool vector is set.
	Any(x string, n int) string

	Discard() string
	Sample(req SampleRequest) (string, error)

	// UniformRef returns the expression that names a uniform variable.
	UniformRef(name string) string
	// BoolUniform converts an element of the packed bool array to a bool.
	BoolUniform(elem string) string

	// InlineSubroutines reports whether CALL targets are expanded in place
	// rather than emitted as functions.
	InlineSubroutines() bool
}

// Splatter is implemented by dialects whose vector constructors do not
// accept a single scalar. Splat returns x replicated into vector type typ.
type Splatter interface {
	Splat(typ, x string) string
}
