// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strconv"

	"github.com/gogpu/d3dbc/ir"
)

// Type name constants.
const (
	hlslTypeFloat = "float"
	hlslTypeInt   = "int"
	hlslTypeBool  = "bool"
)

// vectorType returns the HLSL vector type of width n, e.g. "float4".
// Width 1 is the scalar type.
func vectorType(scalar string, n int) string {
	if n == 1 {
		return scalar
	}
	return scalar + strconv.Itoa(n)
}

// FloatType returns the HLSL float vector type of width n.
func (d *dialect) FloatType(n int) string { return vectorType(hlslTypeFloat, n) }

// IntType returns the HLSL int vector type of width n.
func (d *dialect) IntType(n int) string { return vectorType(hlslTypeInt, n) }

// BoolType returns the HLSL bool vector type of width n.
func (d *dialect) BoolType(n int) string { return vectorType(hlslTypeBool, n) }

// Splat replicates a scalar with a cast; FXC rejects single-argument
// vector constructors.
func (d *dialect) Splat(typ, x string) string {
	return "((" + typ + ")" + x + ")"
}

// textureType returns the texture object type for a D3D sampler.
func textureType(t ir.SamplerType) string {
	switch t {
	case ir.SamplerCube:
		return "TextureCube"
	case ir.SamplerVolume:
		return "Texture3D"
	default:
		return "Texture2D"
	}
}

// semantic returns the D3D10 semantic of a usage, e.g. "TEXCOORD1".
func semantic(u ir.Usage, index int) string {
	return u.String() + strconv.Itoa(index)
}
