package reflection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gogpu/d3dbc"
	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

func parse(t *testing.T, profile string) *d3dbc.Result {
	t.Helper()
	src := func(rt ir.RegisterType, n int) uint32 {
		return bytecode.SrcToken(rt, n, ir.SwizzleIdentity, ir.SrcModNone)
	}
	code := bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		Def(1, 0.5, 0.5, 0.5, 1).
		DclInput(ir.RegTexture, 0, ir.UsageTexCoord, 0, ir.MaskAll).
		DclSampler(0, ir.SamplerCube).
		Op(ir.OpTex, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTexture, 0), src(ir.RegSampler, 0)).
		Op(ir.OpMad, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTemp, 0), src(ir.RegConst, 0), src(ir.RegConst, 1)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegColorOut, 0, ir.MaskAll), src(ir.RegTemp, 0)).
		End().Bytes()
	r := d3dbc.Parse(profile, "", code, nil)
	if len(r.Errors) > 0 {
		t.Fatalf("parse: %v", r.Errors[0])
	}
	t.Cleanup(r.Free)
	return r
}

// =============================================================================
// FromResult
// =============================================================================

func TestFromResult(t *testing.T) {
	doc := FromResult(parse(t, "glsl"))

	if doc.Format != FormatVersion || doc.Profile != "glsl" {
		t.Errorf("header = %d %q", doc.Format, doc.Profile)
	}
	if doc.Major != 2 || doc.Minor != 0 {
		t.Errorf("version = %d.%d, want 2.0", doc.Major, doc.Minor)
	}
	if doc.OutputSize == 0 {
		t.Error("OutputSize is zero")
	}
	if len(doc.Samplers) != 1 || doc.Samplers[0].Type != ir.SamplerCube.String() {
		t.Errorf("Samplers = %+v, want one cube sampler", doc.Samplers)
	}
	if len(doc.Constants) != 1 || doc.Constants[0].Register != 1 || doc.Constants[0].Float[3] != 1 {
		t.Errorf("Constants = %+v", doc.Constants)
	}
	found := false
	for _, u := range doc.Uniforms {
		if u.Type == ir.UniformFloat.String() && u.Register == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("Uniforms = %+v, want c0", doc.Uniforms)
	}
	if len(doc.Errors) != 0 {
		t.Errorf("Errors = %v", doc.Errors)
	}
}

func TestFromResult_Failed(t *testing.T) {
	r := d3dbc.Parse("nope", "", nil, nil)
	defer r.Free()
	doc := FromResult(r)
	if len(doc.Errors) != 1 || !strings.Contains(doc.Errors[0], "nope") {
		t.Errorf("Errors = %v", doc.Errors)
	}
}

// =============================================================================
// Encoding
// =============================================================================

func TestEncode_Deterministic(t *testing.T) {
	for _, profile := range []string{"glsl", "hlsl", "spirv", "arb1"} {
		r := parse(t, profile)
		a, err := Encode(r)
		if err != nil {
			t.Fatalf("%s: Encode: %v", profile, err)
		}
		b, err := Encode(r)
		if err != nil {
			t.Fatalf("%s: Encode: %v", profile, err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s: two encodings differ", profile)
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	data, err := Encode(parse(t, "metal"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Profile != "metal" || len(doc.Samplers) != 1 {
		t.Errorf("decoded = %+v", doc)
	}
	again, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("re-encoding a decoded document changed its bytes")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xFF, 0x00, 0x13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Error("expected an error")
			}
		})
	}

	future, err := Marshal(&Document{Format: FormatVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(future); err == nil || !strings.Contains(err.Error(), "format version") {
		t.Errorf("err = %v, want a format version error", err)
	}
}
