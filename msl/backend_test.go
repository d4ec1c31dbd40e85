package msl

import (
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

func compile(t *testing.T, prog *ir.Program) string {
	t.Helper()
	tr, err := Compile(prog, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return string(tr.Code)
}

func wantCode(t *testing.T, code string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(code, s) {
			t.Errorf("missing %q in:\n%s", s, code)
		}
	}
}

// vertexProgram is a vs_2_0 shader with a DEF, a boolean branch and a
// subroutine call.
func vertexProgram(t *testing.T) *ir.Program {
	return decode(t, bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Def(5, 1, 0.5, 0, 1).
		Op(ir.OpMov, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegInput, 0)).
		Op(ir.OpIf, src(ir.RegConstBool, 0)).
		Op(ir.OpCall, src(ir.RegLabel, 1)).
		Op(ir.OpEndIf).
		Op(ir.OpMov, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, ir.MaskAll), src(ir.RegTemp, 0)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegTexCrdOut, 0, ir.MaskAll), src(ir.RegConst, 1)).
		Op(ir.OpRet).
		Op(ir.OpLabel, src(ir.RegLabel, 1)).
		Op(ir.OpMul, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTemp, 0), src(ir.RegConst, 5)).
		Op(ir.OpRet))
}

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version{1, 2}, "1.2"},
		{Version{2, 0}, "2.0"},
		{Version{2, 1}, "2.1"},
		{Version{3, 0}, "3.0"},
	}

	for _, tt := range tests {
		got := tt.version.String()
		if got != tt.want {
			t.Errorf("Version{%d, %d}.String() = %q, want %q",
				tt.version.Major, tt.version.Minor, got, tt.want)
		}
	}
	if got := Version2_1.Std(); got != "macos-metal2.1" {
		t.Errorf("Std() = %q", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.LangVersion != Version2_1 {
		t.Errorf("Expected LangVersion 2.1, got %v", opts.LangVersion)
	}
	if opts.Bindings.Buffer != 16 {
		t.Errorf("Expected uniform buffer slot 16, got %d", opts.Bindings.Buffer)
	}
}

func TestCompile_Vertex(t *testing.T) {
	code := compile(t, vertexProgram(t))
	wantCode(t, code,
		"#include <metal_stdlib>",
		"constant float4 vs_c5 = float4(1.0, 0.5, 0.0, 1.0);",
		"struct vs_uniforms {",
		"float4 vs_uniforms_vec4[1];",
		"int4 vs_uniforms_bool[1];",
		"float4 v0 [[attribute(0)]];",
		"float4 position [[position]];",
		"float4 v_TEXCOORD0 [[user(texcoord0)]];",
		"vertex vs_main_out vs_main(",
		"vs_main_in stage_in [[stage_in]],",
		"constant vs_uniforms& uniforms [[buffer(16)]]",
		"float4 vs_r0 = float4(0.0);",
		"vs_v0 = stage_in.v0;",
		"if ((uniforms.vs_uniforms_bool[0].x != 0)) {",
		"vs_r0 = vs_r0 * vs_c5;",
		"vs_oT0 = uniforms.vs_uniforms_vec4[0];",
		"out.position = vs_oPos;",
		"return out;",
	)
	if strings.Contains(code, "void vs_l1") {
		t.Errorf("subroutine emitted as a function:\n%s", code)
	}
}

func TestCompile_EntryPoint(t *testing.T) {
	prog := vertexProgram(t)
	tests := []struct {
		entry string
		want  string
	}{
		{"", "vs_main"},
		{"VSMain", "VSMain"},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.EntryPoint = tt.entry
		tr, err := Compile(prog, opts)
		if err != nil {
			t.Fatalf("entry %q: %v", tt.entry, err)
		}
		wantCode(t, string(tr.Code), "vertex vs_main_out "+tt.want+"(")
		if tr.MainFn != tt.want {
			t.Errorf("entry %q: MainFn = %q, want %q", tt.entry, tr.MainFn, tt.want)
		}
	}

	for _, bad := range []string{"main", "1st", "a-b"} {
		opts := DefaultOptions()
		opts.EntryPoint = bad
		if _, err := Compile(prog, opts); err == nil {
			t.Errorf("entry %q accepted", bad)
		}
	}
}

func TestCompile_Pixel(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderPixel, 3, 0).
		DclInput(ir.RegInput, 0, ir.UsageTexCoord, 2, ir.MaskAll).
		DclInput(ir.RegMisc, ir.MiscFace, ir.UsageUnknown, 0, ir.MaskAll).
		DclSampler(1, ir.SamplerCube).
		Op(ir.OpTex, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegInput, 0), src(ir.RegSampler, 1)).
		Op(ir.OpCmp, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll),
			src(ir.RegTemp, 0), src(ir.RegConst, 0), src(ir.RegConst, 1)).
		Op(ir.OpTexKill, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll)).
		Op(ir.OpMul, bytecode.DestToken(ir.RegColorOut, 0, ir.MaskAll), src(ir.RegTemp, 0), src(ir.RegMisc, ir.MiscFace)))

	tr, err := Compile(prog, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	code := string(tr.Code)
	wantCode(t, code,
		"float4 v_TEXCOORD2 [[user(texcoord2)]];",
		"float4 color0 [[color(0)]];",
		"fragment ps_main_out ps_main(",
		"bool front_facing [[front_facing]]",
		"metal::texturecube<float> ps_s1_texture [[texture(1)]]",
		"metal::sampler ps_s1 [[sampler(1)]]",
		"ps_v0 = stage_in.v_TEXCOORD2;",
		"ps_vFace = front_facing ? 1.0 : -1.0;",
		"ps_s1_texture.sample(ps_s1, ps_v0.xyz)",
		"metal::select(",
		"metal::discard_fragment();",
		"out.color0 = ps_oC0;",
	)
	if tr.MainFn != "ps_main" {
		t.Errorf("MainFn = %q, want ps_main", tr.MainFn)
	}
	if len(tr.Samplers) != 1 || tr.Samplers[0].Name != "ps_s1" {
		t.Errorf("samplers = %+v", tr.Samplers)
	}
}

func TestCompile_RecursiveCall(t *testing.T) {
	prog := decode(t, bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		Op(ir.OpCall, src(ir.RegLabel, 0)).
		Op(ir.OpRet).
		Op(ir.OpLabel, src(ir.RegLabel, 0)).
		Op(ir.OpCall, src(ir.RegLabel, 0)).
		Op(ir.OpRet))

	_, err := Compile(prog, DefaultOptions())
	if err == nil {
		t.Fatal("Compile succeeded, want recursion error")
	}
	if !strings.HasPrefix(err.Error(), "msl: ") {
		t.Errorf("error %q lacks the msl prefix", err)
	}
}
