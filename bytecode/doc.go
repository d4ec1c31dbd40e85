// Package bytecode reads Direct3D 9 shader token streams.
//
// Decode walks the stream once and builds an ir.Program: the instruction
// list, the register usage records, and the resource tables the emitters
// need. Comment blocks carrying a constant table (CTAB) or a preshader
// (PRES) are parsed into the program's Symbols and Preshader.
//
// Decoding never stops at the first problem. Every malformed instruction
// is recorded in an ir.ErrorList with its byte offset and decoding resumes
// at the next instruction. Only a bad version token is fatal.
//
// Builder produces token streams for tests and tools.
package bytecode
