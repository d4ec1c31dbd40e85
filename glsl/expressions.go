// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"errors"
	"fmt"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Extension names the generated code may require.
const (
	extTextureLodARB = "GL_ARB_shader_texture_lod"
	extTextureLodEXT = "GL_EXT_shader_texture_lod"
	extDerivatives   = "GL_OES_standard_derivatives"
	extDrawBuffers   = "GL_ARB_draw_buffers"
	extTexture3D     = "GL_OES_texture_3D"
	extFragDepth     = "GL_EXT_frag_depth"
)

var errBiasInVertex = errors.New("biased texture lookups are not available in vertex shaders")

// dialect spells lowered statements in one GLSL version.
type dialect struct {
	version    Version
	extensions map[string]bool
}

func newDialect(v Version) *dialect {
	return &dialect{version: v, extensions: make(map[string]bool)}
}

func (d *dialect) require(ext string) {
	d.extensions[ext] = true
}

// Builtin returns the GLSL spelling of an intrinsic.
func (d *dialect) Builtin(b shaderlang.Builtin) string {
	return shaderlang.CommonName(b)
}

// Saturate clamps x to [0, 1].
func (d *dialect) Saturate(x string) string {
	return fmt.Sprintf("clamp(%s, 0.0, 1.0)", x)
}

var compareOps = map[ir.Compare][2]string{
	ir.CompareGT: {">", "greaterThan"},
	ir.CompareEQ: {"==", "equal"},
	ir.CompareGE: {">=", "greaterThanEqual"},
	ir.CompareLT: {"<", "lessThan"},
	ir.CompareNE: {"!=", "notEqual"},
	ir.CompareLE: {"<=", "lessThanEqual"},
}

// Compare uses infix operators on scalars and the relational functions on
// vectors.
func (d *dialect) Compare(op ir.Compare, a, b string, n int) string {
	spell, ok := compareOps[op]
	if !ok {
		return "false"
	}
	if n == 1 {
		return fmt.Sprintf("(%s %s %s)", a, spell[0], b)
	}
	return fmt.Sprintf("%s(%s, %s)", spell[1], a, b)
}

// Select picks lanes of t where cond is set. Versions without a boolean
// mix() blend with the condition converted to float.
func (d *dialect) Select(cond, t, f string, n int) string {
	switch {
	case n == 1:
		return fmt.Sprintf("(%s ? %s : %s)", cond, t, f)
	case d.version.modern():
		return fmt.Sprintf("mix(%s, %s, %s)", f, t, cond)
	}
	return fmt.Sprintf("mix(%s, %s, %s(%s))", f, t, d.FloatType(n), cond)
}

// Any reports whether a lane of a bool vector is set.
func (d *dialect) Any(x string, n int) string {
	if n == 1 {
		return x
	}
	return "any(" + x + ")"
}

// Discard ends the fragment invocation.
func (d *dialect) Discard() string { return "discard" }

// UniformRef returns a uniform's name; GLSL uniforms are plain globals.
func (d *dialect) UniformRef(name string) string { return name }

// BoolUniform returns an element of the bool uniform array unchanged.
func (d *dialect) BoolUniform(elem string) string { return elem }

// InlineSubroutines is false; GLSL registers are globals visible to functions.
func (d *dialect) InlineSubroutines() bool { return false }

// Sample writes a texture lookup.
func (d *dialect) Sample(req shaderlang.SampleRequest) (string, error) {
	s := req.Name
	if req.Sampler.Type == ir.SamplerVolume && d.version == VersionES100 {
		d.require(extTexture3D)
	}
	if d.version.modern() {
		switch req.Kind {
		case shaderlang.SampleBias:
			return fmt.Sprintf("texture(%s, %s, %s)", s, req.Coord, req.Level), nil
		case shaderlang.SampleLod:
			return fmt.Sprintf("textureLod(%s, %s, %s)", s, req.Coord, req.Level), nil
		case shaderlang.SampleGrad:
			return fmt.Sprintf("textureGrad(%s, %s, %s, %s)", s, req.Coord, req.DDX, req.DDY), nil
		}
		return fmt.Sprintf("texture(%s, %s)", s, req.Coord), nil
	}

	fn := textureFunc(req.Sampler.Type)
	switch req.Kind {
	case shaderlang.SampleBias:
		if req.Vertex {
			return "", errBiasInVertex
		}
		return fmt.Sprintf("%s(%s, %s, %s)", fn, s, req.Coord, req.Level), nil
	case shaderlang.SampleLod:
		return fmt.Sprintf("%s(%s, %s, %s)", fn+"Lod"+d.lodSuffix(req.Vertex), s, req.Coord, req.Level), nil
	case shaderlang.SampleGrad:
		return fmt.Sprintf("%s(%s, %s, %s, %s)", fn+"Grad"+d.gradSuffix(), s, req.Coord, req.DDX, req.DDY), nil
	}
	return fmt.Sprintf("%s(%s, %s)", fn, s, req.Coord), nil
}

// lodSuffix returns the suffix of explicit-LOD lookups. Vertex shaders
// have them built in; fragment shaders need an extension.
func (d *dialect) lodSuffix(vertex bool) string {
	switch {
	case vertex:
		return ""
	case d.version.ES:
		d.require(extTextureLodEXT)
		return "EXT"
	}
	d.require(extTextureLodARB)
	return ""
}

func (d *dialect) gradSuffix() string {
	if d.version.ES {
		d.require(extTextureLodEXT)
		return "EXT"
	}
	d.require(extTextureLodARB)
	return "ARB"
}
