// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// ShaderModel represents a DirectX Shader Model version.
// The generated code targets the Direct3D 10+ resource model, so the
// oldest supported model is 4.0.
type ShaderModel uint8

// Supported Shader Model versions.
const (
	// ShaderModel4_0 is the base SM4 version (DirectX 10). This is the
	// default.
	ShaderModel4_0 ShaderModel = iota

	// ShaderModel4_1 is the DirectX 10.1 model.
	ShaderModel4_1

	// ShaderModel5_0 is the base SM5 version (DirectX 11).
	ShaderModel5_0

	// ShaderModel5_1 adds register spaces.
	ShaderModel5_1
)

// String returns a human-readable representation of the shader model.
// Example: "SM 4.0", "SM 5.1"
func (sm ShaderModel) String() string {
	major, minor := sm.version()
	return fmt.Sprintf("SM %d.%d", major, minor)
}

// ProfileSuffix returns the shader profile suffix for this model.
// Example: "4_0", "5_1"
// Used to construct profiles like "vs_4_0", "ps_5_1".
func (sm ShaderModel) ProfileSuffix() string {
	major, minor := sm.version()
	return fmt.Sprintf("%d_%d", major, minor)
}

// Target returns the compiler target for a stage, e.g. "ps_4_0".
func (sm ShaderModel) Target(t ir.ShaderType) string {
	return t.Prefix() + "_" + sm.ProfileSuffix()
}

// version returns the major and minor version numbers.
func (sm ShaderModel) version() (major, minor uint8) {
	switch sm {
	case ShaderModel4_0:
		return 4, 0
	case ShaderModel4_1:
		return 4, 1
	case ShaderModel5_0:
		return 5, 0
	case ShaderModel5_1:
		return 5, 1
	default:
		return 4, 0 // Default to 4.0 for unknown
	}
}

// Major returns the major version number.
func (sm ShaderModel) Major() uint8 {
	major, _ := sm.version()
	return major
}

// Minor returns the minor version number.
func (sm ShaderModel) Minor() uint8 {
	_, minor := sm.version()
	return minor
}

// SupportsSpaces returns true if register bindings may name a space.
// Register spaces were introduced in Shader Model 5.1.
func (sm ShaderModel) SupportsSpaces() bool {
	return sm >= ShaderModel5_1
}
