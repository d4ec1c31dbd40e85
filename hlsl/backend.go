// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Profile is the profile name served by this package.
const Profile = "hlsl"

// Options configures HLSL code generation.
type Options struct {
	// ShaderModel specifies the target shader model.
	// Defaults to ShaderModel4_0.
	ShaderModel ShaderModel

	// Uniforms is the binding of the constant buffer holding the packed
	// uniform arrays.
	Uniforms BindTarget

	// Textures is the binding of sampler stage 0's texture. Stage n binds
	// n registers further.
	Textures BindTarget

	// Samplers is the binding of sampler stage 0's sampler state.
	Samplers BindTarget

	// BumpEnv folds per-sampler bump environments into the code as literals.
	BumpEnv map[int]ir.BumpEnv

	// EntryPoint names the generated function. Defaults to "main".
	EntryPoint string
}

// DefaultOptions returns sensible default options for HLSL generation.
// Uses Shader Model 4.0 with every binding at register 0 of space 0.
func DefaultOptions() *Options {
	return &Options{
		ShaderModel: ShaderModel4_0,
		Uniforms:    DefaultBindTarget(),
		Textures:    DefaultBindTarget(),
		Samplers:    DefaultBindTarget(),
	}
}

// Compile generates HLSL source code from a decoded program.
func Compile(prog *ir.Program, options *Options) (*ir.Translation, error) {
	// Apply defaults for nil options
	if options == nil {
		options = DefaultOptions()
	}
	if options.EntryPoint == "" {
		opts := *options
		opts.EntryPoint = "main"
		options = &opts
	}
	if !shaderlang.IsIdentifier(options.EntryPoint) {
		return nil, fmt.Errorf("hlsl: entry point %q is not an identifier", options.EntryPoint)
	}

	w := newWriter(prog, options)
	if err := w.writeProgram(); err != nil {
		return nil, fmt.Errorf("hlsl: %w", err)
	}
	return w.translation(), nil
}
