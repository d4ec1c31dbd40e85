// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"errors"
	"fmt"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

var errBiasInVertex = errors.New("biased texture lookups are not available in vertex shaders")

// dialect spells lowered statements in Shader Model 4 HLSL.
type dialect struct{}

// hlslBuiltins lists the intrinsics whose HLSL names differ from GLSL.
var hlslBuiltins = map[shaderlang.Builtin]string{
	shaderlang.BuiltinFract:       "frac",
	shaderlang.BuiltinInverseSqrt: "rsqrt",
	shaderlang.BuiltinMix:         "lerp",
	shaderlang.BuiltinDdx:         "ddx",
	shaderlang.BuiltinDdy:         "ddy",
}

// Builtin returns the HLSL spelling of an intrinsic.
func (d *dialect) Builtin(b shaderlang.Builtin) string {
	if name, ok := hlslBuiltins[b]; ok {
		return name
	}
	return shaderlang.CommonName(b)
}

// Saturate clamps x to [0, 1].
func (d *dialect) Saturate(x string) string {
	return "saturate(" + x + ")"
}

var compareOps = map[ir.Compare]string{
	ir.CompareGT: ">",
	ir.CompareEQ: "==",
	ir.CompareGE: ">=",
	ir.CompareLT: "<",
	ir.CompareNE: "!=",
	ir.CompareLE: "<=",
}

// Compare uses infix operators, which HLSL applies per component.
func (d *dialect) Compare(op ir.Compare, a, b string, _ int) string {
	spell, ok := compareOps[op]
	if !ok {
		return "false"
	}
	return fmt.Sprintf("(%s %s %s)", a, spell, b)
}

// Select uses the ternary operator, which HLSL applies per component.
func (d *dialect) Select(cond, t, f string, _ int) string {
	return fmt.Sprintf("(%s ? %s : %s)", cond, t, f)
}

// Any reports whether a lane of a bool vector is set.
func (d *dialect) Any(x string, n int) string {
	if n == 1 {
		return x
	}
	return "any(" + x + ")"
}

// Discard ends the pixel invocation.
func (d *dialect) Discard() string { return "discard" }

// UniformRef returns a uniform's name; cbuffer members are globals.
func (d *dialect) UniformRef(name string) string { return name }

// BoolUniform returns an element of the bool uniform array unchanged.
func (d *dialect) BoolUniform(elem string) string { return elem }

// InlineSubroutines is false; static globals are visible to functions.
func (d *dialect) InlineSubroutines() bool { return false }

// Sample writes a method call on the texture object paired with the
// sampler state. Vertex shaders have no implicit derivatives, so plain
// lookups there read level 0.
func (d *dialect) Sample(req shaderlang.SampleRequest) (string, error) {
	tex := textureName(req.Name)
	switch req.Kind {
	case shaderlang.SampleBias:
		if req.Vertex {
			return "", errBiasInVertex
		}
		return fmt.Sprintf("%s.SampleBias(%s, %s, %s)", tex, req.Name, req.Coord, req.Level), nil
	case shaderlang.SampleLod:
		return fmt.Sprintf("%s.SampleLevel(%s, %s, %s)", tex, req.Name, req.Coord, req.Level), nil
	case shaderlang.SampleGrad:
		return fmt.Sprintf("%s.SampleGrad(%s, %s, %s, %s)", tex, req.Name, req.Coord, req.DDX, req.DDY), nil
	}
	if req.Vertex {
		return fmt.Sprintf("%s.SampleLevel(%s, %s, 0.0)", tex, req.Name, req.Coord), nil
	}
	return fmt.Sprintf("%s.Sample(%s, %s)", tex, req.Name, req.Coord), nil
}

// textureName returns the texture object bound alongside a sampler.
func textureName(sampler string) string {
	return sampler + "_texture"
}
