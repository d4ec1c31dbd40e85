// Package preshader evaluates preshader programs.
//
// A preshader folds constant expressions on the CPU before a draw: it reads
// the caller's uniform registers, runs a short list of scalar or vector
// instructions, and writes the results into the registers the shader reads.
// Registers are scalar addressed: register r component c is index r*4+c.
package preshader
