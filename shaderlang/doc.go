// Package shaderlang lowers decoded Direct3D 9 programs to structured
// statements for C-like shading languages.
//
// The lowering is shared by the GLSL, HLSL and Metal profiles. Each profile
// supplies a Dialect that spells types, intrinsics and texture lookups, then
// assembles the declarations, prologue and epilogue around the statements
// returned by Writer.Generate.
//
// Registers become variables named after their stage and assembly name
// ("vs_r0", "ps_t1"). Uniform registers are packed into per-type arrays
// ("vs_uniforms_vec4") in ascending register order. Registers fixed by DEF
// become literal constants.
package shaderlang
