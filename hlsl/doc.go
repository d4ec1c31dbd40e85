// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl provides HLSL (High-Level Shading Language) code generation
// for decoded Direct3D 9 shader programs.
//
// The output targets the Direct3D 10 resource model (Shader Model 4.0 and
// newer): constant registers live in a cbuffer, each sampler stage becomes a
// texture object paired with a SamplerState, and the entry point exchanges
// data through input and output structs carrying D3D10 semantics.
//
// # Usage
//
//	options := hlsl.DefaultOptions()
//	options.ShaderModel = hlsl.ShaderModel5_0
//
//	tr, err := hlsl.Compile(prog, options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Register Binding
//
// HLSL uses register-based resource binding:
//
//	cbuffer : register(b#)  // Packed uniform arrays
//	Texture : register(t#)  // One per sampler stage
//	Sampler : register(s#)  // One per sampler stage
//
// Shader Model 5.1 and newer also write the register space. The bindings
// in Options set the first register of each kind.
package hlsl
