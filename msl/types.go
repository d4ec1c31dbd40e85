package msl

import (
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
)

// Type name constants
const (
	typeFloat = "float"
	typeInt   = "int"
	typeBool  = "bool"
)

// Namespace is the MSL metal namespace prefix.
const Namespace = "metal::"

func vectorType(scalar string, n int) string {
	if n == 1 {
		return scalar
	}
	return scalar + strconv.Itoa(n)
}

// FloatType returns the MSL float vector type of width n.
func (d *dialect) FloatType(n int) string { return vectorType(typeFloat, n) }

// IntType returns the MSL int vector type of width n.
func (d *dialect) IntType(n int) string { return vectorType(typeInt, n) }

// BoolType returns the MSL bool vector type of width n.
func (d *dialect) BoolType(n int) string { return vectorType(typeBool, n) }

// textureType returns the texture parameter type for a D3D sampler.
func textureType(t ir.SamplerType) string {
	switch t {
	case ir.SamplerCube:
		return Namespace + "texturecube<float>"
	case ir.SamplerVolume:
		return Namespace + "texture3d<float>"
	default:
		return Namespace + "texture2d<float>"
	}
}

// gradientType returns the gradient option constructor for a sampler.
func gradientType(t ir.SamplerType) string {
	switch t {
	case ir.SamplerCube:
		return Namespace + "gradientcube"
	case ir.SamplerVolume:
		return Namespace + "gradient3d"
	default:
		return Namespace + "gradient2d"
	}
}

// userLocation returns the [[user(...)]] tag linking a varying across
// stages, e.g. "texcoord0".
func userLocation(u ir.Usage, index int) string {
	return strings.ToLower(u.String()) + strconv.Itoa(index)
}
