// Package msl implements Metal Shading Language (MSL) code generation for
// decoded Direct3D 9 shader programs.
//
// MSL is Apple's shader language for the Metal graphics API. It is based on C++14
// with extensions for GPU programming, including explicit address spaces, attribute-based
// parameter binding, and a metal:: namespace for standard library functions.
//
// # Usage
//
//	tr, err := msl.Compile(prog, msl.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
// # Register Mapping
//
// D3D registers map to MSL as follows:
//
//	D3D            MSL
//	---            ---
//	r#, v#, o#     float4 locals of the entry point
//	a0             int4 local (vertex shaders)
//	p0             bool4 local
//	c# (DEF)       constant float4 at file scope
//	c#, i#, b#     members of the uniform struct in the constant address space
//	s#             metal::texture2d<float> plus metal::sampler parameters
//
// Boolean uniforms are stored as int4 so every packed array keeps a
// 16-byte stride.
//
// # Entry Points
//
// Entry points are generated with appropriate stage keywords:
//   - vertex: <prefix>_main with [[stage_in]] attributes and a [[position]] output
//   - fragment: <prefix>_main with [[user(...)]] inputs and [[color(N)]] outputs
//
// Metal functions cannot reach another function's locals, so CALL targets
// are expanded in place rather than emitted as functions.
package msl
