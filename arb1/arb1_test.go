package arb1

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

func decode(t *testing.T, buf []byte) *ir.Program {
	t.Helper()
	prog, errs := bytecode.Decode(buf, bytecode.Options{})
	if errs.HasErrors() {
		t.Fatalf("Decode: %s", errs.FormatAll())
	}
	return prog
}

func src(t ir.RegisterType, num int) uint32 {
	return bytecode.SrcToken(t, num, ir.SwizzleIdentity, ir.SrcModNone)
}

func dst(t ir.RegisterType, num int) uint32 {
	return bytecode.DestToken(t, num, ir.MaskAll)
}

func vertexShader() []byte {
	return bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclInput(ir.RegInput, 1, ir.UsageColor, 0, ir.MaskAll).
		Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegAttrOut, 0), src(ir.RegInput, 1)).
		Op(ir.OpMov, dst(ir.RegTexCrdOut, 0), src(ir.RegInput, 0)).
		End().Bytes()
}

func pixelShader() []byte {
	return bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsageColor, 0, ir.MaskAll).
		DclInput(ir.RegTexture, 0, ir.UsageTexCoord, 0, ir.MaskAll).
		DclSampler(0, ir.Sampler2D).
		Op(ir.OpTex, dst(ir.RegTemp, 0), src(ir.RegTexture, 0), src(ir.RegSampler, 0)).
		Op(ir.OpMul, dst(ir.RegTemp, 0), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegColorOut, 0), src(ir.RegTemp, 0)).
		End().Bytes()
}

// repShader runs a REP loop in a vertex shader.
func repShader() []byte {
	return bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DefI(0, 4, 0, 1, 0).
		Op(ir.OpMov, dst(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpRep, src(ir.RegConstInt, 0)).
		Op(ir.OpAdd, dst(ir.RegTemp, 0), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpEndRep).
		Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0)).
		End().Bytes()
}

func compile(t *testing.T, buf []byte, opts Options) string {
	t.Helper()
	tr, err := Compile(decode(t, buf), opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return string(tr.Code)
}

func mustContain(t *testing.T, code string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(code, w) {
			t.Errorf("output missing %q\n%s", w, code)
		}
	}
}

// =============================================================================
// Profiles
// =============================================================================

func TestMaxShaderModel(t *testing.T) {
	tests := []struct {
		profile string
		want    int
	}{
		{ProfileARB1, 2},
		{ProfileNV2, 2},
		{ProfileNV3, 3},
		{ProfileNV4, 3},
		{"glsl", -1},
	}
	for _, tt := range tests {
		if got := MaxShaderModel(tt.profile); got != tt.want {
			t.Errorf("MaxShaderModel(%q) = %d, want %d", tt.profile, got, tt.want)
		}
	}
}

func TestCompile_Headers(t *testing.T) {
	tests := []struct {
		profile string
		vs, ps  string
	}{
		{ProfileARB1, "!!ARBvp1.0\n", "!!ARBfp1.0\n"},
		{ProfileNV2, "!!ARBvp1.0\nOPTION NV_vertex_program2;\n", "!!ARBfp1.0\nOPTION NV_fragment_program;\n"},
		{ProfileNV3, "!!ARBvp1.0\nOPTION NV_vertex_program3;\n", "!!ARBfp1.0\nOPTION NV_fragment_program2;\n"},
		{ProfileNV4, "!!NVvp4.0\n", "!!NVfp4.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			vs := compile(t, vertexShader(), Options{Profile: tt.profile})
			if !strings.HasPrefix(vs, tt.vs) {
				t.Errorf("vertex header:\n%s", vs)
			}
			ps := compile(t, pixelShader(), Options{Profile: tt.profile})
			if !strings.HasPrefix(ps, tt.ps) {
				t.Errorf("fragment header:\n%s", ps)
			}
			if !strings.HasSuffix(vs, "END\n") || !strings.HasSuffix(ps, "END\n") {
				t.Error("program not terminated by END")
			}
		})
	}
}

func TestCompile_DefaultProfile(t *testing.T) {
	tr, err := Compile(decode(t, vertexShader()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Profile != ProfileARB1 {
		t.Errorf("Profile = %q, want %q", tr.Profile, ProfileARB1)
	}
}

func TestCompile_UnknownProfile(t *testing.T) {
	_, err := Compile(decode(t, vertexShader()), Options{Profile: "nv5"})
	if err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Errorf("err = %v, want unknown profile", err)
	}
}

func TestCompile_ShaderModelTooHigh(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 3, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclInput(ir.RegOutput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(ir.OpMov, dst(ir.RegOutput, 0), src(ir.RegInput, 0)).
		End().Bytes()
	prog := decode(t, buf)
	if _, err := Compile(prog, Options{Profile: ProfileNV2}); err == nil {
		t.Error("vs_3_0 compiled for nv2")
	}
	if _, err := Compile(prog, Options{Profile: ProfileNV4}); err != nil {
		t.Errorf("vs_3_0 for nv4: %v", err)
	}
}

// =============================================================================
// Interface
// =============================================================================

func TestCompile_VertexBindings(t *testing.T) {
	code := compile(t, vertexShader(), Options{})
	mustContain(t, code,
		"ATTRIB vs_v0 = vertex.attribute[0];",
		"ATTRIB vs_v1 = vertex.attribute[1];",
		"TEMP vs_oPos;",
		"MOV vs_oPos, vs_v0;",
		"MOV result.position, vs_oPos;",
		"MOV result.color.primary, vs_oD0;",
		"MOV result.texcoord[0], vs_oT0;",
	)
	if strings.Contains(code, "TEMP vs_v0;") {
		t.Error("vertex attribute declared as a temporary")
	}
}

func TestCompile_PixelBindings(t *testing.T) {
	tr, err := Compile(decode(t, pixelShader()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, string(tr.Code),
		"MOV ps_v0, fragment.color.primary;",
		"MOV ps_t0, fragment.texcoord[0];",
		"TEX ps_r0, ps_t0, texture[0], 2D;",
		"MUL ps_r0, ps_r0, ps_v0;",
		"MOV result.color, ps_oC0;",
	)
	if len(tr.Samplers) != 1 || tr.Samplers[0].Name != "texture[0]" {
		t.Errorf("Samplers = %+v", tr.Samplers)
	}
}

func TestCompile_MultipleRenderTargets(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsageColor, 0, ir.MaskAll).
		Op(ir.OpMov, dst(ir.RegColorOut, 0), src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegColorOut, 1), src(ir.RegInput, 0)).
		End().Bytes()

	tr, err := Compile(decode(t, buf), Options{})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, string(tr.Code),
		"OPTION ARB_draw_buffers;",
		"MOV result.color[0], ps_oC0;",
		"MOV result.color[1], ps_oC1;",
	)
	if len(tr.Extensions) != 1 || tr.Extensions[0] != "GL_ARB_draw_buffers" {
		t.Errorf("Extensions = %v", tr.Extensions)
	}

	code := compile(t, buf, Options{Profile: ProfileNV4})
	if strings.Contains(code, "ARB_draw_buffers") {
		t.Error("nv4 requested ARB_draw_buffers")
	}
}

// =============================================================================
// Instructions
// =============================================================================

func TestCompile_VertexParamLimit(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(ir.OpAdd, dst(ir.RegTemp, 0), src(ir.RegConst, 0), src(ir.RegConst, 1)).
		Op(ir.OpAdd, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		End().Bytes()
	code := compile(t, buf, Options{})
	mustContain(t, code,
		"PARAM vs_uniforms_vec4[2] = { program.local[0..1] };",
		"TEMP vs_scratch0;",
		"MOV vs_scratch0, vs_uniforms_vec4[1];",
		"ADD vs_r0, vs_uniforms_vec4[0], vs_scratch0;",
	)
}

func TestCompile_Matrix(t *testing.T) {
	tests := []struct {
		op   ir.Opcode
		mask ir.WriteMask
		name string
		rows int
	}{
		{ir.OpM4x4, ir.MaskAll, "DP4", 4},
		{ir.OpM4x3, ir.MaskX | ir.MaskY | ir.MaskZ, "DP4", 3},
		{ir.OpM3x4, ir.MaskAll, "DP3", 4},
		{ir.OpM3x3, ir.MaskX | ir.MaskY | ir.MaskZ, "DP3", 3},
		{ir.OpM3x2, ir.MaskX | ir.MaskY, "DP3", 2},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			matrix := func(rows ir.RegisterType, base int) []byte {
				return bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
					DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
					Op(tt.op, bytecode.DestToken(ir.RegTemp, 0, tt.mask), src(ir.RegInput, 0), src(rows, base)).
					Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0)).
					End().Bytes()
			}

			code := compile(t, matrix(ir.RegConst, 0), Options{})
			want := []string{fmt.Sprintf("PARAM vs_uniforms_vec4[%d] = { program.local[0..%d] };", tt.rows, tt.rows-1)}
			for i := 0; i < tt.rows; i++ {
				want = append(want, fmt.Sprintf("%s vs_r0.%c, vs_v0, vs_uniforms_vec4[%d];", tt.name, "xyzw"[i], i))
			}
			mustContain(t, code, want...)

			code = compile(t, matrix(ir.RegTemp, 4), Options{})
			want = want[:0]
			for i := 0; i < tt.rows; i++ {
				want = append(want,
					fmt.Sprintf("TEMP vs_r%d;", 4+i),
					fmt.Sprintf("%s vs_r0.%c, vs_v0, vs_r%d;", tt.name, "xyzw"[i], 4+i))
			}
			mustContain(t, code, want...)
		})
	}
}

func TestCompile_Saturate(t *testing.T) {
	sat := bytecode.DestTokenMod(ir.RegTemp, 0, ir.MaskAll, ir.ResultModSaturate, 0)

	ps := bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsageColor, 0, ir.MaskAll).
		Op(ir.OpMov, sat, src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegColorOut, 0), src(ir.RegTemp, 0)).
		End().Bytes()
	mustContain(t, compile(t, ps, Options{}), "MOV_SAT ps_r0, ps_r0;")

	vs := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(ir.OpMov, sat, src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0)).
		End().Bytes()
	mustContain(t, compile(t, vs, Options{}),
		"MAX vs_r0, vs_r0, {0, 0, 0, 0};",
		"MIN vs_r0, vs_r0, {1, 1, 1, 1};",
	)
	mustContain(t, compile(t, vs, Options{Profile: ProfileNV3}), "MOV_SAT vs_r0, vs_r0;")
}

func TestCompile_TexKill(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsageColor, 0, ir.MaskAll).
		Op(ir.OpMov, dst(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpTexKill, dst(ir.RegTemp, 0)).
		Op(ir.OpMov, dst(ir.RegColorOut, 0), src(ir.RegTemp, 0)).
		End().Bytes()
	mustContain(t, compile(t, buf, Options{}), "KIL ps_r0.xyzz;")
}

func TestCompile_Literals(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Def(0, 0.5, 1, 2, -4).
		Op(ir.OpMul, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegInput, 0), src(ir.RegConst, 0)).
		End().Bytes()
	mustContain(t, compile(t, buf, Options{}),
		"PARAM vs_c0 = {0.5, 1, 2, -4};",
		"MUL vs_oPos, vs_v0, vs_c0;",
	)
}

// =============================================================================
// Flow control
// =============================================================================

func TestCompile_FlowControl(t *testing.T) {
	if _, err := Compile(decode(t, repShader()), Options{Profile: ProfileARB1}); err == nil {
		t.Error("arb1 accepted a rep loop")
	}

	mustContain(t, compile(t, repShader(), Options{Profile: ProfileNV2}),
		"TEMP vs_lc0;",
		"MOV vs_lc0.x, vs_i0.x;",
		"vs_loop0:",
		"BRA vs_endloop0 (LE.x);",
		"ADD vs_lc0.x, vs_lc0.x, {-1, -1, -1, -1};",
		"BRA vs_loop0;",
		"vs_endloop0:",
	)

	code := compile(t, repShader(), Options{Profile: ProfileNV4})
	mustContain(t, code, "REP vs_i0.x;", "ENDREP;")
	if strings.Contains(code, "BRA") {
		t.Error("nv4 lowered a loop to branches")
	}
}

func TestCompile_If(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderPixel, 3, 0).
		DclInput(ir.RegInput, 0, ir.UsageColor, 0, ir.MaskAll).
		DefB(0, true).
		Op(ir.OpMov, dst(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpIf, src(ir.RegConstBool, 0)).
		Op(ir.OpAdd, dst(ir.RegTemp, 0), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpElse).
		Op(ir.OpMul, dst(ir.RegTemp, 0), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpEndIf).
		Op(ir.OpMov, dst(ir.RegColorOut, 0), src(ir.RegTemp, 0)).
		End().Bytes()

	code := compile(t, buf, Options{Profile: ProfileNV3})
	mustContain(t, code,
		"PARAM ps_b0 = {1, 1, 1, 1};",
		"MOVC ps_scratch0.x, ps_b0.x;",
		"IF NE.x;",
		"ELSE;",
		"ENDIF;",
	)
}
