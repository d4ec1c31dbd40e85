// Package arb1 lowers decoded D3D9 shaders to the OpenGL assembly program
// languages: ARB_vertex_program and ARB_fragment_program, optionally
// extended by the NVIDIA program options.
//
// ProfileARB1 emits the plain ARB languages and accepts shader model 2 at
// most, without flow control. ProfileNV2 and ProfileNV3 add the
// NV_vertex_program2/3 and NV_fragment_program/2 options, which bring
// condition codes, branches and loops. ProfileNV4 targets the
// NV_gpu_program4 languages.
//
//	tr, err := arb1.Compile(prog, arb1.Options{Profile: arb1.ProfileNV3})
//
// Every D3D register becomes a TEMP named after the stage prefix and the
// register ("vs_r0", "ps_t1"). Uniform registers are packed into
// program.local; the package comment of Compile gives the layout.
package arb1
