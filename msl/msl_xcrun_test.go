//go:build darwin

package msl

import "testing"

func TestMSLCompilesWithXcrun(t *testing.T) {
	opts := DefaultOptions()
	tr, err := Compile(vertexProgram(t), opts)
	if err != nil {
		t.Fatalf("msl.Compile failed: %v", err)
	}
	verifyMSLWithXcrun(t, string(tr.Code), opts.LangVersion)
}
