package msl

import (
	"errors"
	"fmt"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

var errBiasInVertex = errors.New("biased texture lookups are not available in vertex shaders")

// uniformsArg is the entry point parameter holding the uniform struct.
const uniformsArg = "uniforms"

// dialect spells lowered statements in MSL.
type dialect struct{}

var mslBuiltins = map[shaderlang.Builtin]string{
	shaderlang.BuiltinInverseSqrt: "rsqrt",
	shaderlang.BuiltinDdx:         "dfdx",
	shaderlang.BuiltinDdy:         "dfdy",
}

// Builtin returns the namespaced MSL spelling of an intrinsic.
func (d *dialect) Builtin(b shaderlang.Builtin) string {
	if name, ok := mslBuiltins[b]; ok {
		return Namespace + name
	}
	return Namespace + shaderlang.CommonName(b)
}

// Saturate clamps x to [0, 1].
func (d *dialect) Saturate(x string) string {
	return Namespace + "saturate(" + x + ")"
}

var compareOps = map[ir.Compare]string{
	ir.CompareGT: ">",
	ir.CompareEQ: "==",
	ir.CompareGE: ">=",
	ir.CompareLT: "<",
	ir.CompareNE: "!=",
	ir.CompareLE: "<=",
}

// Compare uses infix operators, which MSL applies per component.
func (d *dialect) Compare(op ir.Compare, a, b string, _ int) string {
	spell, ok := compareOps[op]
	if !ok {
		return "false"
	}
	return fmt.Sprintf("(%s %s %s)", a, spell, b)
}

// Select uses the ternary operator on scalars and select() on vectors.
func (d *dialect) Select(cond, t, f string, n int) string {
	if n == 1 {
		return fmt.Sprintf("(%s ? %s : %s)", cond, t, f)
	}
	return fmt.Sprintf("%sselect(%s, %s, %s)", Namespace, f, t, cond)
}

// Any reports whether a lane of a bool vector is set.
func (d *dialect) Any(x string, n int) string {
	if n == 1 {
		return x
	}
	return Namespace + "any(" + x + ")"
}

// Discard ends the fragment invocation.
func (d *dialect) Discard() string { return Namespace + "discard_fragment()" }

// UniformRef names a member of the uniform struct parameter.
func (d *dialect) UniformRef(name string) string { return uniformsArg + "." + name }

// BoolUniform tests the first lane of a packed bool slot; bools are
// stored as int4 so every slot keeps a 16-byte stride.
func (d *dialect) BoolUniform(elem string) string { return "(" + elem + ".x != 0)" }

// InlineSubroutines is true; registers are locals of the entry point.
func (d *dialect) InlineSubroutines() bool { return true }

// Sample writes a method call on the texture parameter paired with the
// sampler.
func (d *dialect) Sample(req shaderlang.SampleRequest) (string, error) {
	tex := textureName(req.Name)
	switch req.Kind {
	case shaderlang.SampleBias:
		if req.Vertex {
			return "", errBiasInVertex
		}
		return fmt.Sprintf("%s.sample(%s, %s, %sbias(%s))", tex, req.Name, req.Coord, Namespace, req.Level), nil
	case shaderlang.SampleLod:
		return fmt.Sprintf("%s.sample(%s, %s, %slevel(%s))", tex, req.Name, req.Coord, Namespace, req.Level), nil
	case shaderlang.SampleGrad:
		return fmt.Sprintf("%s.sample(%s, %s, %s(%s, %s))", tex, req.Name, req.Coord,
			gradientType(req.Sampler.Type), req.DDX, req.DDY), nil
	}
	if req.Vertex {
		return fmt.Sprintf("%s.sample(%s, %s, %slevel(0.0))", tex, req.Name, req.Coord, Namespace), nil
	}
	return fmt.Sprintf("%s.sample(%s, %s)", tex, req.Name, req.Coord), nil
}

// textureName returns the texture parameter bound alongside a sampler.
func textureName(sampler string) string {
	return sampler + "_texture"
}
