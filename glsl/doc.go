// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl provides a GLSL (OpenGL Shading Language) backend for
// decoded Direct3D 9 shader programs.
//
// It generates source for four language versions, one per profile:
//
//   - "glsl": GLSL 1.10 (OpenGL 2.0)
//   - "glsl120": GLSL 1.20 (OpenGL 2.1)
//   - "glsles": GLSL ES 1.00 (OpenGL ES 2.0 / WebGL 1.0)
//   - "glsles3": GLSL ES 3.00 (OpenGL ES 3.0 / WebGL 2.0)
//
// # Basic Usage
//
//	tr, err := glsl.Compile(prog, glsl.Options{
//	    LangVersion: glsl.Version120,
//	})
//
// # Uniforms
//
// Float, integer and boolean constant registers are packed into the arrays
// vs_uniforms_vec4, vs_uniforms_ivec4 and vs_uniforms_bool (ps_ for pixel
// shaders). The translation's Uniforms table maps each register range to
// its slot in those arrays.
//
// # Interface
//
// Vertex outputs and pixel inputs are exchanged through varyings named
// after their usage, such as v_TEXCOORD0, so a vertex and pixel shader
// compiled separately link by name.
//
// # Extensions
//
// Explicit LOD and gradient lookups in fragment shaders, derivatives and
// depth output on GLSL ES 1.00, and multiple render targets on desktop
// GLSL add #extension directives. Translation.Extensions lists them.
package glsl
