// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// BindTarget specifies the HLSL register binding for a resource.
// HLSL uses register(x#, space#) syntax for resource binding.
type BindTarget struct {
	// Space is the register space (0-based). It is written only for
	// Shader Model 5.1 and newer.
	Space uint8

	// Register is the register index within the space.
	Register uint32
}

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for textures and shader resource views.
	RegisterTypeT

	// RegisterTypeS is for samplers.
	RegisterTypeS
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeB:
		return "b"
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	default:
		return "b"
	}
}

// DefaultBindTarget returns a BindTarget with default values.
// Defaults to space 0, register 0.
func DefaultBindTarget() BindTarget {
	return BindTarget{
		Space:    0,
		Register: 0,
	}
}

// WithSpace returns a copy of the BindTarget with the specified space.
func (bt BindTarget) WithSpace(space uint8) BindTarget {
	bt.Space = space
	return bt
}

// WithRegister returns a copy of the BindTarget with the specified register.
func (bt BindTarget) WithRegister(register uint32) BindTarget {
	bt.Register = register
	return bt
}

// Offset returns a copy of the BindTarget moved n registers further.
func (bt BindTarget) Offset(n int) BindTarget {
	bt.Register += uint32(n)
	return bt
}

// Annotation returns the register annotation for a declaration, such as
// " : register(t3)" or " : register(t3, space1)".
func (bt BindTarget) Annotation(rt RegisterType, sm ShaderModel) string {
	if sm.SupportsSpaces() {
		return fmt.Sprintf(" : register(%s%d, space%d)", rt, bt.Register, bt.Space)
	}
	return fmt.Sprintf(" : register(%s%d)", rt, bt.Register)
}
