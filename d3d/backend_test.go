package d3d

import (
	"bytes"
	"errors"
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

// positionShader is a one-instruction vs_2_0 shader copying a POSITION0
// attribute to oPos.
func positionShader() []byte {
	return bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(ir.OpMov, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, ir.MaskAll), src(ir.RegInput, 0)).
		End().Bytes()
}

// textureShader is a ps_2_0 shader with a declared 2D sampler.
func textureShader() []byte {
	return bytecode.NewBuilder(ir.ShaderPixel, 2, 0).
		DclInput(ir.RegTexture, 0, ir.UsageTexCoord, 0, ir.MaskX|ir.MaskY).
		DclSampler(0, ir.Sampler2D).
		Def(1, 1, 0.5, 0, 1).
		Op(ir.OpTex, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegTexture, 0), src(ir.RegSampler, 0)).
		Op(ir.OpMul, bytecode.DestTokenMod(ir.RegTemp, 0, ir.MaskAll, ir.ResultModSaturate, 0),
			src(ir.RegTemp, 0),
			bytecode.SrcToken(ir.RegConst, 1, ir.MakeSwizzle(0, 0, 0, 0), ir.SrcModNegate)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegColorOut, 0, ir.MaskAll), src(ir.RegTemp, 0)).
		End().Bytes()
}

// =============================================================================
// Bytecode passthrough
// =============================================================================

func TestPassthrough_EndToEnd(t *testing.T) {
	buf := positionShader()
	prog := decode(t, buf)

	tr, err := Compile(prog, Options{Profile: ProfileBytecode, Source: buf})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(tr.Attributes) != 1 {
		t.Errorf("attributes = %d, want 1", len(tr.Attributes))
	}
	if len(tr.Outputs) != 1 {
		t.Errorf("outputs = %d, want 1", len(tr.Outputs))
	}
	if !bytes.Equal(tr.Code, buf) {
		t.Errorf("output differs from input:\n got %x\nwant %x", tr.Code, buf)
	}
	if tr.Attributes[0].Name != "v0" || tr.Outputs[0].Name != "oPos" {
		t.Errorf("names = %q, %q", tr.Attributes[0].Name, tr.Outputs[0].Name)
	}
}

func TestPassthrough_IdentitySwizzle(t *testing.T) {
	buf := positionShader()
	prog := decode(t, buf)
	ov := []ir.SwizzleOverride{{Usage: ir.UsagePosition, Index: 0, Swizzle: [4]uint8{0, 1, 2, 3}}}

	got, err := Passthrough(buf, ir.ApplyOverrides(prog, ov, nil))
	if err != nil {
		t.Fatalf("Passthrough failed: %v", err)
	}
	if !bytes.Equal(got, buf) {
		t.Errorf("identity override changed the stream")
	}
}

func TestPassthrough_SwizzleOverride(t *testing.T) {
	buf := positionShader()
	prog := decode(t, buf)
	ov := []ir.SwizzleOverride{{Usage: ir.UsagePosition, Index: 0, Swizzle: [4]uint8{2, 1, 0, 3}}}

	got, err := Passthrough(buf, ir.ApplyOverrides(prog, ov, nil))
	if err != nil {
		t.Fatalf("Passthrough failed: %v", err)
	}
	if len(got) != len(buf) {
		t.Fatalf("length = %d, want %d", len(got), len(buf))
	}
	if bytes.Equal(got, buf) {
		t.Fatal("override did not change the stream")
	}

	patched := decode(t, got)
	want := ir.MakeSwizzle(2, 1, 0, 3)
	if s := patched.Instructions[0].Src[0].Swizzle; s != want {
		t.Errorf("swizzle = %#x, want %#x", s, want)
	}
	if !bytes.Equal(got[:8], buf[:8]) {
		t.Errorf("override touched the version or DCL tokens")
	}
}

func TestPassthrough_SamplerOverride(t *testing.T) {
	buf := textureShader()
	prog := decode(t, buf)
	if prog.Samplers[0].DeclOffset == 0 {
		t.Fatal("sampler declaration offset not recorded")
	}
	ov := []ir.SamplerOverride{{Index: 0, Type: ir.SamplerCube}}

	got, err := Passthrough(buf, ir.ApplyOverrides(prog, nil, ov))
	if err != nil {
		t.Fatalf("Passthrough failed: %v", err)
	}
	patched := decode(t, got)
	if typ := patched.Samplers[0].Type; typ != ir.SamplerCube {
		t.Errorf("sampler type = %v, want cube", typ)
	}
}

func TestPassthrough_NoSource(t *testing.T) {
	prog := decode(t, positionShader())
	_, err := Compile(prog, Options{Profile: ProfileBytecode})
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}

func TestPassthrough_Idempotent(t *testing.T) {
	buf := textureShader()
	a, err := Passthrough(buf, decode(t, buf))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Passthrough(buf, decode(t, buf))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two passes produced different bytes")
	}
}

// =============================================================================
// Assembly text
// =============================================================================

func TestDisassemble_Vertex(t *testing.T) {
	got := Disassemble(decode(t, positionShader()))
	want := "vs_2_0\n" +
		"    dcl_position v0\n" +
		"    mov oPos, v0\n" +
		"// approximately 1 instruction slot used\n"
	if got != want {
		t.Errorf("Disassemble() =\n%s\nwant\n%s", got, want)
	}
}

func TestDisassemble_Pixel(t *testing.T) {
	got := Disassemble(decode(t, textureShader()))
	for _, line := range []string{
		"ps_2_0",
		"    dcl t0.xy",
		"    dcl_2d s0",
		"    def c1, 1, 0.5, 0, 1",
		"    texld r0, t0, s0",
		"    mul_sat r0, r0, -c1.x",
		"    mov oC0, r0",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("missing %q in:\n%s", line, got)
		}
	}
}

func TestDisassemble_FlowControl(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 3, 0).
		DclInput(ir.RegOutput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DefI(0, 4, 0, 1, 0).
		Op(ir.OpMov, bytecode.DestToken(ir.RegTemp, 0, ir.MaskAll), src(ir.RegConst, 0)).
		Op(ir.OpLoop, src(ir.RegLoop, 0), src(ir.RegConstInt, 0)).
		Op(ir.OpAdd, bytecode.DestToken(ir.RegTemp, 0, ir.MaskX),
			src(ir.RegTemp, 0),
			bytecode.SrcToken(ir.RegConst, 1, ir.SwizzleIdentity, ir.SrcModAbs)).
		Op(ir.OpEndLoop).
		Op(ir.OpMov, bytecode.DestToken(ir.RegOutput, 0, ir.MaskAll), src(ir.RegTemp, 0)).
		End().Bytes()

	got := Disassemble(decode(t, buf))
	for _, line := range []string{
		"vs_3_0",
		"    dcl_position o0",
		"    defi i0, 4, 0, 1, 0",
		"    loop aL, i0",
		"        add r0.x, r0, c1_abs",
		"    endloop",
		"    mov o0, r0",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("missing %q in:\n%s", line, got)
		}
	}
}

func TestCompile_UnknownProfile(t *testing.T) {
	prog := decode(t, positionShader())
	_, err := Compile(prog, Options{Profile: "d3d11"})
	if err == nil || !strings.HasPrefix(err.Error(), "d3d: ") {
		t.Errorf("err = %v, want a d3d error", err)
	}
}
