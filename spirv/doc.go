// Package spirv lowers decoded D3D9 shaders to SPIR-V modules.
//
// Two profiles are served. ProfileSPIRV targets Vulkan: uniforms live in
// descriptor set 0 (vertex) or 1 (pixel) and samplers in sets 2 and 3.
// ProfileGLSPIRV targets OpenGL's SPIR-V path: everything shares set 0 and
// fragment coordinates use a lower-left origin.
//
//	tr, err := spirv.Compile(prog, spirv.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Registers
//
// Every D3D register becomes a Private variable. The entry point copies
// stage inputs into those variables on entry and copies outputs back to the
// interface variables before returning. Subroutines are void functions
// sharing the same Private state.
//
// # Linking
//
// Varying locations depend on both stages of a pair, so each module ends with
// a patch table naming its relocatable Location decorations. Link rewrites
// them in place; callers drop the final PatchTableSize bytes before handing
// the modules to a driver.
//
// # Binary Writer
//
// ModuleBuilder assembles modules section by section and deduplicates types
// and constants:
//
//	b := spirv.NewModuleBuilder(spirv.Version1_0)
//	b.AddCapability(spirv.CapabilityShader)
//	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//	f32 := b.AddTypeFloat(32)
//	vec4 := b.AddTypeVector(f32, 4)
//	binary := b.Build()
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
