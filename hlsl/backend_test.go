// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

func decode(t *testing.T, b *bytecode.Builder) *ir.Program {
	t.Helper()
	prog, errs := bytecode.Decode(b.End().Bytes(), bytecode.Options{})
	if errs.HasErrors() {
		t.Fatalf("Decode: %s", errs.FormatAll())
	}
	return prog
}

func src(t ir.RegisterType, num int) uint32 {
	return bytecode.SrcToken(t, num, ir.SwizzleIdentity, ir.SrcModNone)
}

func compile(t *testing.T, prog *ir.Program, opts *Options) *ir.Translation {
	t.Helper()
	tr, err := Compile(prog, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return tr
}

func wantCode(t *testing.T, tr *ir.Translation, want ...string) {
	t.Helper()
	code := string(tr.Code)
	for _, s := range want {
		if !strings.Contains(code, s) {
			t.Errorf("missing %q in:\n%s", s, code)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts == nil {
		t.Fatal("DefaultOptions() returned nil")
	}
	if opts.ShaderModel != ShaderModel4_0 {
		t.Errorf("ShaderModel = %v, want ShaderModel4_0", opts.ShaderModel)
	}
	if opts.Uniforms != DefaultBindTarget() || opts.Textures != DefaultBindTarget() {
		t.Errorf("bindings = %+v, %+v; want defaults", opts.Uniforms, opts.Textures)
	}
	if opts.BumpEnv != nil {
		t.Error("BumpEnv should be nil by default")
	}
}

// =============================================================================
// Compile Tests
// =============================================================================

func TestCompile_Vertex(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclInput(ir.RegInput, 1, ir.UsageTexCoord, 0, ir.MaskAll).
		Op(ir.OpMov, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, ir.MaskAll), src(ir.RegInput, 0)).
		Op(ir.OpFrc, bytecode.DestToken(ir.RegTexCrdOut, 0, ir.MaskAll), src(ir.RegInput, 1)).
		Op(ir.OpMul, bytecode.DestToken(ir.RegTexCrdOut, 1, ir.MaskAll), src(ir.RegInput, 1), src(ir.RegConst, 2)))

	tr := compile(t, prog, nil)
	wantCode(t, tr,
		"// vs_2_0, compile as vs_4_0",
		"cbuffer vs_uniforms : register(b0)",
		"float4 vs_uniforms_vec4[1];",
		"static float4 vs_oPos = ((float4)0.0);",
		"struct vs_input",
		"float4 v0 : POSITION0;",
		"float4 v1 : TEXCOORD0;",
		"struct vs_output",
		"float4 oPos : SV_Position;",
		"float4 oT0 : TEXCOORD0;",
		"vs_output main(vs_input input)",
		"vs_v0 = input.v0;",
		"vs_oT0 = frac(vs_v1);",
		"vs_oT1 = vs_v1 * vs_uniforms_vec4[0];",
		"output.oPos = vs_oPos;",
		"return output;",
	)

	if tr.Profile != Profile || tr.MainFn != "main" {
		t.Errorf("profile, main = %q, %q", tr.Profile, tr.MainFn)
	}
	if len(tr.Attributes) != 2 || tr.Attributes[0].Name != "POSITION0" || tr.Attributes[1].Name != "TEXCOORD0" {
		t.Errorf("attributes = %+v", tr.Attributes)
	}
	for _, o := range tr.Outputs {
		if o.Usage == ir.UsagePosition && o.Name != "SV_Position" {
			t.Errorf("position output named %q, want SV_Position", o.Name)
		}
	}
	if len(tr.Uniforms) != 1 || tr.Uniforms[0].Name != "vs_uniforms_vec4" {
		t.Errorf("uniforms = %+v", tr.Uniforms)
	}
}

func TestCompile_EntryPoint(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderVertex, 1, 1).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(ir.OpMov, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, ir.MaskAll), src(ir.RegInput, 0)))

	tests := []struct {
		entry string
		want  string
	}{
		{"", "main"},
		{"main", "main"},
		{"VSMain", "VSMain"},
		{"_vs2", "_vs2"},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.EntryPoint = tt.entry
		tr := compile(t, prog, opts)
		wantCode(t, tr, "vs_output "+tt.want+"(vs_input input)")
		if tr.MainFn != tt.want {
			t.Errorf("entry %q: MainFn = %q, want %q", tt.entry, tr.MainFn, tt.want)
		}
	}

	for _, bad := range []string{"2main", "main()", "vs main"} {
		opts := DefaultOptions()
		opts.EntryPoint = bad
		if _, err := Compile(prog, opts); err == nil {
			t.Errorf("entry %q accepted", bad)
		}
	}
}

func TestCompile_Pixel(t *testing.T) {
	sat := bytecode.DestTokenMod(ir.RegTemp, 0, ir.MaskAll, ir.ResultModSaturate, 0)
	prog := decode(t, bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegTexture, 0, ir.UsageTexCoord, 0, ir.MaskX|ir.MaskY).
		DclSampler(0, ir.Sampler2D).
		Op(ir.OpTex, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTexture, 0), src(ir.RegSampler, 0)).
		Op(ir.OpAdd, sat, src(ir.RegTemp, 0), src(ir.RegConst, 0)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegColorOut, 0, ir.MaskAll), src(ir.RegTemp, 0)))

	opts := DefaultOptions()
	opts.Textures = opts.Textures.WithRegister(4)
	tr := compile(t, prog, opts)
	wantCode(t, tr,
		"Texture2D ps_s0_texture : register(t4);",
		"SamplerState ps_s0 : register(s0);",
		"float4 t0 : TEXCOORD0;",
		"ps_t0 = input.t0;",
		"ps_s0_texture.Sample(ps_s0, ps_t0.xy)",
		"ps_r0 = saturate(ps_r0 + ps_uniforms_vec4[0]);",
		"float4 oC0 : SV_Target0;",
		"ps_output main(ps_input input)",
		"output.oC0 = ps_oC0;",
	)
	if len(tr.Samplers) != 1 || tr.Samplers[0].Name != "ps_s0" {
		t.Errorf("samplers = %+v", tr.Samplers)
	}
}

func TestCompile_PixelLegacyColor(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderPixel, 1, 1).
		Op(ir.OpTex, bytecode.DestToken(ir.RegTexture, 0, ir.MaskAll)).
		Op(ir.OpMul, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTexture, 0), src(ir.RegInput, 0)))

	tr := compile(t, prog, nil)
	wantCode(t, tr,
		"float4 t0 : TEXCOORD0;",
		"float4 v0 : COLOR0;",
		"Texture2D ps_s0_texture",
		"output.oC0 = ps_r0;",
	)
}

func TestCompile_VertexTextureLookup(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderVertex, 3, 0).
		DclInput(ir.RegInput, 0, ir.UsageTexCoord, 0, ir.MaskAll).
		DclInput(ir.RegOutput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclSampler(0, ir.SamplerVolume).
		Op(ir.OpTexLdl, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegInput, 0), src(ir.RegSampler, 0)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegOutput, 0, ir.MaskAll), src(ir.RegTemp, 0)))

	opts := DefaultOptions()
	opts.ShaderModel = ShaderModel5_1
	opts.Samplers = opts.Samplers.WithSpace(2)
	tr := compile(t, prog, opts)
	wantCode(t, tr,
		"// vs_3_0, compile as vs_5_1",
		"Texture3D vs_s0_texture : register(t0, space0);",
		"SamplerState vs_s0 : register(s0, space2);",
		"vs_s0_texture.SampleLevel(vs_s0, ",
		"float4 o0 : SV_Position;",
	)
}

// =============================================================================
// Error Tests
// =============================================================================

func TestCompile_UnsupportedInstruction(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderPixel, 1, 4).
		Op(ir.OpTexDepth, bytecode.DestToken(ir.RegTemp, 5, ir.MaskAll)))
	_, err := Compile(prog, nil)
	if err == nil {
		t.Fatal("Compile succeeded, want error")
	}
	if !strings.HasPrefix(err.Error(), "hlsl: ") {
		t.Errorf("error %q lacks the hlsl prefix", err)
	}
	var e *ir.Error
	if !errors.As(err, &e) || !e.IsProfile() {
		t.Errorf("error %v is not a profile error", err)
	}
}
