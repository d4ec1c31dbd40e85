// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strconv"

	"github.com/gogpu/d3dbc/ir"
)

// vectorType returns "<base>N", or the scalar name for width 1.
func vectorType(base string, n int, scalar string) string {
	if n == 1 {
		return scalar
	}
	return base + strconv.Itoa(n)
}

// FloatType returns the GLSL float vector type of width n.
func (d *dialect) FloatType(n int) string { return vectorType("vec", n, "float") }

// IntType returns the GLSL int vector type of width n.
func (d *dialect) IntType(n int) string { return vectorType("ivec", n, "int") }

// BoolType returns the GLSL bool vector type of width n.
func (d *dialect) BoolType(n int) string { return vectorType("bvec", n, "bool") }

// samplerType returns the GLSL sampler type for a D3D sampler.
func samplerType(t ir.SamplerType) string {
	switch t {
	case ir.SamplerCube:
		return "samplerCube"
	case ir.SamplerVolume:
		return "sampler3D"
	default:
		return "sampler2D"
	}
}

// textureFunc returns the legacy lookup function base for a sampler type.
func textureFunc(t ir.SamplerType) string {
	switch t {
	case ir.SamplerCube:
		return "textureCube"
	case ir.SamplerVolume:
		return "texture3D"
	default:
		return "texture2D"
	}
}
