// Package d3d implements the two profiles that stay in Direct3D form.
//
// The "d3d" profile disassembles a decoded program into assembly text in
// the style of the D3DX disassembler:
//
//	vs_2_0
//	    dcl_position v0
//	    def c5, 1, 0.5, 0, 1
//	    mov oPos, v0
//	// approximately 1 instruction slot used
//
// The "bytecode" profile returns the input token stream. Tokens are only
// rewritten where caller overrides changed a source swizzle or a sampler
// type, so a program without overrides round-trips byte for byte.
//
// # Usage
//
//	tr, err := d3d.Compile(prog, d3d.Options{Profile: d3d.ProfileBytecode, Source: buf})
//	if err != nil {
//	    return err
//	}
package d3d
