package spirv

import (
	"encoding/binary"
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

// vertexShader writes oPos, oD0 and oT0 from two attributes.
func vertexShader() []byte {
	return bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclInput(ir.RegInput, 1, ir.UsageColor, 0, ir.MaskAll).
		Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegInput, 0)).
		Op(ir.OpMov, dst(ir.RegAttrOut, 0), src(ir.RegInput, 1)).
		Op(ir.OpMov, dst(ir.RegTexCrdOut, 0), src(ir.RegInput, 0)).
		End().Bytes()
}

// pixelShader samples s0 at t0 and modulates it by v0.
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

func compile(t *testing.T, buf []byte, opts Options) *ir.Translation {
	t.Helper()
	tr, err := Compile(decode(t, buf), opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return tr
}

func words(b []byte) []uint32 {
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return w
}

// instructions walks the module part of a compiled shader and calls fn for
// every instruction with its operand words.
func instructions(t *testing.T, code []byte, fn func(op OpCode, operands []uint32)) {
	t.Helper()
	w := words(code)
	w = w[:len(w)-PatchTableSize/4]
	for i := 5; i < len(w); {
		n := int(w[i] >> 16)
		if n == 0 || i+n > len(w) {
			t.Fatalf("malformed instruction at word %d", i)
		}
		fn(OpCode(w[i]&0xFFFF), w[i+1:i+n])
		i += n
	}
}

// decodeString reads a literal string operand.
func decodeString(ops []uint32) string {
	var sb strings.Builder
	for _, w := range ops {
		for k := 0; k < 4; k++ {
			c := byte(w >> (8 * k))
			if c == 0 {
				return sb.String()
			}
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// locations returns the Location decoration of every named variable.
func locations(t *testing.T, code []byte) map[string]uint32 {
	t.Helper()
	names := make(map[uint32]string)
	locs := make(map[uint32]uint32)
	instructions(t, code, func(op OpCode, ops []uint32) {
		switch {
		case op == OpName:
			names[ops[0]] = decodeString(ops[1:])
		case op == OpDecorate && Decoration(ops[1]) == DecorationLocation:
			locs[ops[0]] = ops[2]
		}
	})
	out := make(map[string]uint32, len(locs))
	for id, loc := range locs {
		out[names[id]] = loc
	}
	return out
}

func hasOp(t *testing.T, code []byte, want OpCode) bool {
	t.Helper()
	found := false
	instructions(t, code, func(op OpCode, _ []uint32) {
		if op == want {
			found = true
		}
	})
	return found
}

// =============================================================================
// Module structure
// =============================================================================

func TestCompile_VertexModule(t *testing.T) {
	tr := compile(t, vertexShader(), Options{})
	w := words(tr.Code)
	if w[0] != MagicNumber {
		t.Fatalf("magic = %#x, want %#x", w[0], MagicNumber)
	}
	if w[len(w)-1] != PatchMagic {
		t.Errorf("patch magic = %#x, want %#x", w[len(w)-1], PatchMagic)
	}
	// two attributes and two varyings
	if n := w[len(w)-2]; n != 4 {
		t.Errorf("patch entries = %d, want 4", n)
	}
	if tr.Profile != ProfileSPIRV || tr.MainFn != "main" {
		t.Errorf("profile, main = %q, %q", tr.Profile, tr.MainFn)
	}

	locs := locations(t, tr.Code)
	tests := []struct {
		name string
		want uint32
	}{
		{"a_POSITION0", 0},
		{"a_COLOR0", 1},
		{"v_COLOR0", 0},
		{"v_TEXCOORD0", 1},
	}
	for _, tt := range tests {
		if got, ok := locs[tt.name]; !ok || got != tt.want {
			t.Errorf("location of %s = %d (present %v), want %d", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := locs["Position"]; ok {
		t.Error("Position builtin carries a Location")
	}
}

func TestCompile_PixelModule(t *testing.T) {
	tr := compile(t, pixelShader(), Options{})
	if !hasOp(t, tr.Code, OpImageSampleImplicitLod) {
		t.Error("pixel shader does not sample its texture")
	}
	locs := locations(t, tr.Code)
	if locs["FragData0"] != 0 {
		t.Errorf("FragData0 location = %d", locs["FragData0"])
	}
	if len(tr.Samplers) != 1 || tr.Samplers[0].Name != "ps_s0" {
		t.Errorf("samplers = %+v", tr.Samplers)
	}
	if len(tr.Attributes) != 2 || tr.Attributes[0].Name != "v_COLOR0" {
		t.Errorf("attributes = %+v", tr.Attributes)
	}
}

func TestCompile_FragmentOrigin(t *testing.T) {
	tests := []struct {
		profile string
		want    ExecutionMode
	}{
		{ProfileSPIRV, ExecutionModeOriginUpperLeft},
		{ProfileGLSPIRV, ExecutionModeOriginLowerLeft},
	}
	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			tr := compile(t, pixelShader(), Options{Profile: tt.profile})
			var modes []ExecutionMode
			instructions(t, tr.Code, func(op OpCode, ops []uint32) {
				if op == OpExecutionMode {
					modes = append(modes, ExecutionMode(ops[1]))
				}
			})
			if len(modes) != 1 || modes[0] != tt.want {
				t.Errorf("execution modes = %v, want [%v]", modes, tt.want)
			}
		})
	}
}

func TestCompile_VertexSamplingUsesExplicitLod(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 3, 0).
		DclInput(ir.RegInput, 0, ir.UsageTexCoord, 0, ir.MaskAll).
		DclInput(ir.RegOutput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclSampler(0, ir.Sampler2D).
		Op(ir.OpTexLdl, dst(ir.RegOutput, 0), src(ir.RegInput, 0), src(ir.RegSampler, 0)).
		End().Bytes()
	tr := compile(t, buf, Options{})
	if hasOp(t, tr.Code, OpImageSampleImplicitLod) {
		t.Error("vertex module uses implicit-LOD sampling")
	}
	if !hasOp(t, tr.Code, OpImageSampleExplicitLod) {
		t.Error("texldl did not emit an explicit-LOD sample")
	}
}

func TestCompile_Loop(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DefI(0, 4, 0, 1, 0).
		Op(ir.OpMov, dst(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpRep, src(ir.RegConstInt, 0)).
		Op(ir.OpAdd, dst(ir.RegTemp, 0), src(ir.RegTemp, 0), src(ir.RegInput, 0)).
		Op(ir.OpEndRep).
		Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0)).
		End().Bytes()
	tr := compile(t, buf, Options{})
	if !hasOp(t, tr.Code, OpLoopMerge) {
		t.Error("rep did not produce a structured loop")
	}
}

// =============================================================================
// Errors
// =============================================================================

// =============================================================================
// Matrix opcodes
// =============================================================================

func TestCompile_Matrix(t *testing.T) {
	tests := []struct {
		op   ir.Opcode
		mask ir.WriteMask
		rows int
	}{
		{ir.OpM4x4, ir.MaskAll, 4},
		{ir.OpM4x3, ir.MaskX | ir.MaskY | ir.MaskZ, 3},
		{ir.OpM3x4, ir.MaskAll, 4},
		{ir.OpM3x3, ir.MaskX | ir.MaskY | ir.MaskZ, 3},
		{ir.OpM3x2, ir.MaskX | ir.MaskY, 2},
	}
	for _, tt := range tests {
		for _, rows := range []ir.RegisterType{ir.RegConst, ir.RegTemp} {
			name := tt.op.String() + "/const"
			if rows == ir.RegTemp {
				name = tt.op.String() + "/temp"
			}
			t.Run(name, func(t *testing.T) {
				buf := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
					DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
					Op(tt.op, bytecode.DestToken(ir.RegTemp, 0, tt.mask), src(ir.RegInput, 0), src(rows, 4)).
					Op(ir.OpMov, dst(ir.RegRastOut, ir.RastOutPosition), src(ir.RegTemp, 0)).
					End().Bytes()
				tr := compile(t, buf, Options{})

				dots := 0
				names := map[string]bool{}
				instructions(t, tr.Code, func(op OpCode, ops []uint32) {
					switch op {
					case OpDot:
						dots++
					case OpName:
						names[decodeString(ops[1:])] = true
					}
				})
				if dots != tt.rows {
					t.Errorf("%d OpDot, want %d", dots, tt.rows)
				}
				if rows == ir.RegConst {
					if len(tr.Uniforms) != tt.rows || tr.Uniforms[0].Index != 4 {
						t.Errorf("uniforms = %+v, want c4..c%d", tr.Uniforms, 3+tt.rows)
					}
					return
				}
				for i := 0; i < tt.rows; i++ {
					if reg := fmt.Sprintf("vs_r%d", 4+i); !names[reg] {
						t.Errorf("%s is not declared", reg)
					}
				}
			})
		}
	}
}

func TestCompile_UnknownProfile(t *testing.T) {
	_, err := Compile(decode(t, vertexShader()), Options{Profile: "spirv2"})
	if err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Errorf("err = %v, want unknown profile", err)
	}
}

func TestCompile_UnsupportedOpcode(t *testing.T) {
	buf := bytecode.NewBuilder(ir.ShaderPixel, 1, 4).
		Op(ir.OpTexDepth, dst(ir.RegTemp, 5)).
		End().Bytes()
	prog, errs := bytecode.Decode(buf, bytecode.Options{})
	if errs.HasErrors() {
		t.Skipf("decoder rejects texdepth here: %s", errs.FormatAll())
	}
	if _, err := Compile(prog, Options{}); err == nil {
		t.Error("texdepth compiled without error")
	}
}
