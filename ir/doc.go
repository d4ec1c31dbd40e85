// Package ir defines the intermediate representation for d3dbc.
//
// The IR is the profile-independent result of decoding a Direct3D 9 shader
// token stream. It is designed to be:
//   - Exact: swizzles, write masks and modifiers are preserved bit for bit
//   - Closed: opcodes form a fixed enum with an explicit operand-shape table
//   - Shared: every profile emitter reads the same Program
//
// # Structure
//
// A Program contains:
//   - Instructions: executable instructions in stream order
//   - Uniforms, Constants, Samplers: the register files the shader reads
//   - Attributes, Outputs: stage inputs and outputs bound to usages
//   - Registers: usage records for every register referenced
//   - Symbols and Preshader: optional metadata from comment blocks
//
// # Translation Pipeline
//
//	bytecode → Program → ApplyOverrides → emitter → Translation
//
// Errors found anywhere along the way are collected in an ErrorList.
package ir
