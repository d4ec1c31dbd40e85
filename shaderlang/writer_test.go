package shaderlang

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

// testDialect spells GLSL 1.10.
type testDialect struct {
	inline bool
}

func vecType(base string, n int, scalar string) string {
	if n == 1 {
		return scalar
	}
	return base + strconv.Itoa(n)
}

func (testDialect) FloatType(n int) string { return vecType("vec", n, "float") }
func (testDialect) IntType(n int) string   { return vecType("ivec", n, "int") }
func (testDialect) BoolType(n int) string  { return vecType("bvec", n, "bool") }
func (testDialect) Builtin(b Builtin) string {
	return CommonName(b)
}
func (testDialect) Saturate(x string) string { return "clamp(" + x + ", 0.0, 1.0)" }

func (testDialect) Compare(op ir.Compare, a, b string, n int) string {
	ops := map[ir.Compare][2]string{
		ir.CompareGT: {">", "greaterThan"},
		ir.CompareEQ: {"==", "equal"},
		ir.CompareGE: {">=", "greaterThanEqual"},
		ir.CompareLT: {"<", "lessThan"},
		ir.CompareNE: {"!=", "notEqual"},
		ir.CompareLE: {"<=", "lessThanEqual"},
	}
	if n == 1 {
		return "(" + a + " " + ops[op][0] + " " + b + ")"
	}
	return ops[op][1] + "(" + a + ", " + b + ")"
}

func (d testDialect) Select(cond, t, f string, n int) string {
	if n == 1 {
		return "(" + cond + " ? " + t + " : " + f + ")"
	}
	return "mix(" + f + ", " + t + ", " + d.FloatType(n) + "(" + cond + "))"
}

func (testDialect) Any(x string, n int) string {
	if n == 1 {
		return x
	}
	return "any(" + x + ")"
}

func (testDialect) Discard() string { return "discard" }

func (testDialect) Sample(req SampleRequest) (string, error) {
	switch req.Kind {
	case SampleLod:
		return "texture2DLod(" + req.Name + ", " + req.Coord + ", " + req.Level + ")", nil
	case SampleGrad:
		return "", errors.New("gradients unsupported")
	}
	return "texture2D(" + req.Name + ", " + req.Coord + ")", nil
}

func (testDialect) UniformRef(name string) string  { return name }
func (testDialect) BoolUniform(elem string) string { return elem }
func (d testDialect) InlineSubroutines() bool      { return d.inline }

// =============================================================================
// Program construction helpers
// =============================================================================

func dest(t ir.RegisterType, n int, mask ir.WriteMask) ir.DestParam {
	return ir.DestParam{RegType: t, RegNum: n, Mask: mask}
}

func source(t ir.RegisterType, n int) ir.SourceParam {
	return ir.SourceParam{RegType: t, RegNum: n, Swizzle: ir.SwizzleIdentity}
}

func swizzled(t ir.RegisterType, n int, swz ir.Swizzle) ir.SourceParam {
	return ir.SourceParam{RegType: t, RegNum: n, Swizzle: swz}
}

func op(o ir.Opcode, d ir.DestParam, s ...ir.SourceParam) ir.Instruction {
	return ir.Instruction{Op: o, HasDest: true, Dest: d, Src: s}
}

func flow(o ir.Opcode, s ...ir.SourceParam) ir.Instruction {
	return ir.Instruction{Op: o, Src: s}
}

func vertex(insts ...ir.Instruction) *ir.Program {
	return &ir.Program{
		Type:         ir.ShaderVertex,
		Version:      ir.Version{Major: 3},
		Instructions: insts,
	}
}

func generate(t *testing.T, p *ir.Program, d Dialect, opts Options) (*Writer, *Code) {
	t.Helper()
	w := NewWriter(p, d, opts)
	code, err := w.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return w, code
}

func wantLines(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, line := range want {
		if !strings.Contains(got, line) {
			t.Errorf("missing line %q in:\n%s", line, got)
		}
	}
}

// =============================================================================
// Arithmetic
// =============================================================================

func TestGenerate_Arithmetic(t *testing.T) {
	p := vertex(
		op(ir.OpAdd, dest(ir.RegTemp, 0, ir.MaskX|ir.MaskY),
			source(ir.RegConst, 0), swizzled(ir.RegInput, 0, ir.MakeSwizzle(1, 0, 2, 3))),
		op(ir.OpDp3, dest(ir.RegTemp, 1, ir.MaskW), source(ir.RegTemp, 0), source(ir.RegInput, 0)),
		op(ir.OpRcp, dest(ir.RegTemp, 1, ir.MaskX|ir.MaskY), swizzled(ir.RegTemp, 1, ir.MakeSwizzle(3, 3, 3, 3))),
		op(ir.OpLog, dest(ir.RegTemp, 2, ir.MaskAll), source(ir.RegTemp, 1)),
		op(ir.OpM4x3, dest(ir.RegTemp, 3, ir.MaskX|ir.MaskY|ir.MaskZ), source(ir.RegInput, 0), source(ir.RegConst, 0)),
	)
	p.Uniforms = []ir.Uniform{{Type: ir.UniformFloat, Index: 0, ArrayCount: 3}}
	_, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main,
		"vs_r0.xy = vs_uniforms_vec4[0].xy + vs_v0.yx;",
		"vs_r1.w = dot(vs_r0.xyz, vs_v0.xyz);",
		"vs_r1.xy = vec2((1.0 / vs_r1.w));",
		"vs_r2 = vec4(log2(abs(vs_r1.x)));",
		"vs_r3.xyz = vec3(dot(vs_v0, vs_uniforms_vec4[0]), dot(vs_v0, vs_uniforms_vec4[1]), dot(vs_v0, vs_uniforms_vec4[2]));",
	)
}

func TestGenerate_Modifiers(t *testing.T) {
	d := dest(ir.RegTemp, 0, ir.MaskAll)
	d.ResultMod = ir.ResultModSaturate
	d.Shift = 1
	neg := source(ir.RegTemp, 1)
	neg.Mod = ir.SrcModNegate
	bx2 := source(ir.RegTemp, 2)
	bx2.Mod = ir.SrcModSign
	p := &ir.Program{
		Type:         ir.ShaderPixel,
		Version:      ir.Version{Major: 1, Minor: 4},
		Instructions: []ir.Instruction{op(ir.OpMul, d, neg, bx2)},
	}
	_, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main, "ps_r0 = clamp((-ps_r1 * (ps_r2 * 2.0 - 1.0) * 2.0), 0.0, 1.0);")
}

func TestGenerate_Constants(t *testing.T) {
	p := vertex(op(ir.OpMov, dest(ir.RegTemp, 0, ir.MaskAll), source(ir.RegConst, 4)))
	p.Constants = []ir.Constant{
		{Type: ir.UniformFloat, Index: 4, Float: [4]float32{1, 0.5, -2, 3e9}},
		{Type: ir.UniformInt, Index: 0, Int: [4]int32{4, 0, 1, 0}},
		{Type: ir.UniformBool, Index: 2, Bool: true},
	}
	w, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main, "vs_r0 = vs_c4;")
	consts := w.Constants()
	want := []Decl{
		{Name: "vs_c4", Type: "vec4", Init: "vec4(1.0, 0.5, -2.0, 3e+09)"},
		{Name: "vs_i0", Type: "ivec4", Init: "ivec4(4, 0, 1, 0)"},
		{Name: "vs_b2", Type: "bool", Init: "true"},
	}
	if len(consts) != len(want) {
		t.Fatalf("Constants() = %d entries, want %d", len(consts), len(want))
	}
	for i := range want {
		if consts[i] != want[i] {
			t.Errorf("Constants()[%d] = %+v, want %+v", i, consts[i], want[i])
		}
	}
}

func TestGenerate_RelativeAddressing(t *testing.T) {
	rel := source(ir.RegConst, 3)
	rel.Relative = true
	rel.RelType = ir.RegAddress
	rel.RelComponent = 1
	p := vertex(
		op(ir.OpMova, dest(ir.RegAddress, 0, ir.MaskY), source(ir.RegInput, 0)),
		op(ir.OpMov, dest(ir.RegTemp, 0, ir.MaskAll), rel),
	)
	p.Uniforms = []ir.Uniform{
		{Type: ir.UniformFloat, Index: 0},
		{Type: ir.UniformFloat, Index: 2, ArrayCount: 8},
	}
	_, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main,
		"vs_a0.y = int(floor(vs_v0.y + 0.5));",
		"vs_r0 = vs_uniforms_vec4[2 + vs_a0.y];",
	)
}

func TestGenerate_ConstArray(t *testing.T) {
	rel := source(ir.RegConst, 0)
	rel.Relative = true
	rel.RelType = ir.RegAddress
	p := vertex(op(ir.OpMov, dest(ir.RegTemp, 0, ir.MaskAll), rel))
	p.Uniforms = []ir.Uniform{{Type: ir.UniformFloat, Index: 0, ArrayCount: 2, Constant: true}}
	p.Constants = []ir.Constant{
		{Type: ir.UniformFloat, Index: 0, Float: [4]float32{1, 2, 3, 4}},
		{Type: ir.UniformFloat, Index: 1, Float: [4]float32{5, 6, 7, 8}},
	}
	w, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main, "vs_r0 = vs_c_array_0[0 + vs_a0.x];")
	arrs := w.ConstArrays()
	if len(arrs) != 1 || len(arrs[0].Values) != 2 || arrs[0].Values[1] != "vec4(5.0, 6.0, 7.0, 8.0)" {
		t.Errorf("ConstArrays() = %+v", arrs)
	}
}

// =============================================================================
// Flow control
// =============================================================================

func TestGenerate_Loop(t *testing.T) {
	aL := source(ir.RegLoop, 0)
	p := vertex(
		flow(ir.OpLoop, aL, source(ir.RegConstInt, 0)),
		op(ir.OpAdd, dest(ir.RegTemp, 0, ir.MaskAll), source(ir.RegTemp, 0), source(ir.RegInput, 0)),
		flow(ir.OpRep, source(ir.RegConstInt, 0)),
		flow(ir.OpBreak),
		flow(ir.OpEndRep),
		flow(ir.OpEndLoop),
	)
	p.Constants = []ir.Constant{{Type: ir.UniformInt, Index: 0, Int: [4]int32{3, 0, 1, 0}}}
	w, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main,
		"vs_aL = vs_i0.y;",
		"for (vs_lc = 0; vs_lc < vs_i0.x; vs_lc++) {",
		"        for (vs_lc1 = 0; vs_lc1 < vs_i0.x; vs_lc1++) {",
		"            break;",
		"        vs_aL += vs_i0.z;",
	)
	names := map[string]bool{}
	for _, d := range w.Registers() {
		names[d.Name] = true
	}
	for _, n := range []string{"vs_aL", "vs_lc", "vs_lc1"} {
		if !names[n] {
			t.Errorf("Registers() lacks %s", n)
		}
	}
	if names["vs_aL1"] {
		t.Error("Registers() declares an aL for a REP frame")
	}
}

func TestGenerate_Subroutines(t *testing.T) {
	label := source(ir.RegLabel, 1)
	insts := []ir.Instruction{
		flow(ir.OpCall, label),
		flow(ir.OpRet),
		flow(ir.OpLabel, label),
		op(ir.OpMov, dest(ir.RegTemp, 0, ir.MaskAll), source(ir.RegInput, 0)),
		flow(ir.OpRet),
	}

	t.Run("functions", func(t *testing.T) {
		_, code := generate(t, vertex(insts...), testDialect{}, Options{})
		if len(code.Subroutines) != 1 || code.Subroutines[0].Name != "vs_l1" {
			t.Fatalf("Subroutines = %+v", code.Subroutines)
		}
		wantLines(t, code.Main, "vs_l1();")
		wantLines(t, code.Subroutines[0].Body, "vs_r0 = vs_v0;")
		if strings.Contains(code.Subroutines[0].Body, "return") {
			t.Errorf("trailing ret emitted:\n%s", code.Subroutines[0].Body)
		}
	})

	t.Run("inline", func(t *testing.T) {
		_, code := generate(t, vertex(insts...), testDialect{inline: true}, Options{})
		if len(code.Subroutines) != 0 {
			t.Errorf("Subroutines = %d, want 0", len(code.Subroutines))
		}
		wantLines(t, code.Main, "{", "        vs_r0 = vs_v0;")
	})
}

func TestGenerate_Predicated(t *testing.T) {
	inst := op(ir.OpMov, dest(ir.RegTemp, 0, ir.MaskX|ir.MaskZ), source(ir.RegInput, 0))
	inst.Predicated = true
	inst.Predicate = source(ir.RegPredicate, 0)
	_, code := generate(t, vertex(inst), testDialect{}, Options{})
	wantLines(t, code.Main,
		"vec2 vs_pt = vs_v0.xz;",
		"if (vs_p0.x) vs_r0.x = vs_pt.x;",
		"if (vs_p0.z) vs_r0.z = vs_pt.y;",
	)
}

// =============================================================================
// Textures
// =============================================================================

func TestGenerate_Texld(t *testing.T) {
	p := &ir.Program{
		Type:    ir.ShaderPixel,
		Version: ir.Version{Major: 2},
		Instructions: []ir.Instruction{
			op(ir.OpTex, dest(ir.RegTemp, 0, ir.MaskAll), source(ir.RegTexture, 0), source(ir.RegSampler, 0)),
			{Op: ir.OpTexKill, HasDest: true, Dest: dest(ir.RegTexture, 1, ir.MaskAll)},
		},
		Samplers: []ir.Sampler{{Type: ir.Sampler2D, Index: 0}},
	}
	w, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main,
		"ps_r0 = texture2D(ps_s0, ps_t0.xy);",
		"if (any(lessThan(ps_t1.xyz, vec3(0.0)))) discard;",
	)
	if !w.Needs().Discard {
		t.Error("Needs().Discard not set")
	}
}

func TestGenerate_Texbem(t *testing.T) {
	p := &ir.Program{
		Type:    ir.ShaderPixel,
		Version: ir.Version{Major: 1, Minor: 1},
		Instructions: []ir.Instruction{
			op(ir.OpTexBem, dest(ir.RegTexture, 1, ir.MaskAll), source(ir.RegTexture, 0)),
		},
		Samplers: []ir.Sampler{{Type: ir.Sampler2D, Index: 1, Texbem: true}},
	}

	w, code := generate(t, p, testDialect{}, Options{})
	wantLines(t, code.Main, "ps_texbem[2].x * ps_t0.x")
	if name, n := w.TexbemUniform(); name != "ps_texbem" || n != 4 {
		t.Errorf("TexbemUniform() = %s, %d; want ps_texbem, 4", name, n)
	}

	env := map[int]ir.BumpEnv{1: {Mat: [4]float32{1, 0, 0, 1}}}
	w, code = generate(t, p, testDialect{}, Options{BumpEnv: env})
	if strings.Contains(code.Main, "ps_texbem") {
		t.Errorf("bump env literal not folded:\n%s", code.Main)
	}
	if _, n := w.TexbemUniform(); n != 0 {
		t.Errorf("TexbemUniform() count = %d with literal env", n)
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestGenerate_Errors(t *testing.T) {
	ps13 := func(insts ...ir.Instruction) *ir.Program {
		return &ir.Program{Type: ir.ShaderPixel, Version: ir.Version{Major: 1, Minor: 3}, Instructions: insts}
	}
	tests := []struct {
		name string
		p    *ir.Program
		want string
	}{
		{
			"texdepth",
			ps13(ir.Instruction{Op: ir.OpTexM3x2Depth, HasDest: true, Dest: dest(ir.RegTexture, 1, ir.MaskAll),
				Src: []ir.SourceParam{source(ir.RegTexture, 0)}, Offset: 8}),
			"texm3x2depth",
		},
		{
			"early return",
			vertex(flow(ir.OpIf, source(ir.RegConstBool, 0)), flow(ir.OpRet), flow(ir.OpEndIf)),
			"early return",
		},
		{
			"undefined label",
			vertex(flow(ir.OpCall, source(ir.RegLabel, 7))),
			"undefined label",
		},
		{
			"gradient lookup",
			&ir.Program{
				Type: ir.ShaderPixel, Version: ir.Version{Major: 3},
				Instructions: []ir.Instruction{op(ir.OpTexLdd, dest(ir.RegTemp, 0, ir.MaskAll),
					source(ir.RegInput, 0), source(ir.RegSampler, 0), source(ir.RegInput, 1), source(ir.RegInput, 2))},
				Samplers: []ir.Sampler{{Index: 0}},
			},
			"gradients unsupported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.Constants == nil {
				tt.p.Constants = []ir.Constant{{Type: ir.UniformBool, Index: 0}}
			}
			_, err := NewWriter(tt.p, testDialect{}, Options{}).Generate()
			if err == nil {
				t.Fatal("Generate succeeded, want error")
			}
			var e *ir.Error
			if !errors.As(err, &e) || e.Kind != ir.ErrProfile {
				t.Fatalf("err = %v, want a profile *ir.Error", err)
			}
			if !strings.Contains(e.Message, tt.want) {
				t.Errorf("message %q does not mention %q", e.Message, tt.want)
			}
		})
	}
}

// =============================================================================
// Declarations and literals
// =============================================================================

func TestRegisters_Roles(t *testing.T) {
	p := &ir.Program{
		Type:    ir.ShaderPixel,
		Version: ir.Version{Major: 3},
		Registers: []ir.Register{
			{Type: ir.RegTemp, Num: 0},
			{Type: ir.RegInput, Num: 1, Usage: ir.UsageTexCoord},
			{Type: ir.RegColorOut, Num: 0},
			{Type: ir.RegMisc, Num: ir.MiscFace},
			{Type: ir.RegPredicate, Num: 0},
		},
	}
	w := NewWriter(p, testDialect{}, Options{})
	want := []struct {
		name string
		typ  string
		role Role
	}{
		{"ps_r0", "vec4", RoleTemp},
		{"ps_v1", "vec4", RoleInput},
		{"ps_oC0", "vec4", RoleOutput},
		{"ps_vFace", "float", RoleInput},
		{"ps_p0", "bvec4", RoleTemp},
	}
	got := w.Registers()
	if len(got) != len(want) {
		t.Fatalf("Registers() = %d entries, want %d", len(got), len(want))
	}
	for i, wt := range want {
		if got[i].Name != wt.name || got[i].Type != wt.typ || got[i].Role != wt.role {
			t.Errorf("Registers()[%d] = %s %s role %d, want %s %s role %d",
				i, got[i].Type, got[i].Name, got[i].Role, wt.typ, wt.name, wt.role)
		}
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{-0.25, "-0.25"},
		{1e20, "1e+20"},
		{float32(1) / 3, "0.33333334"},
	}
	for _, tt := range tests {
		if got := Float(tt.in); got != tt.want {
			t.Errorf("Float(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVarying(t *testing.T) {
	if got := Varying(ir.UsageTexCoord, 3); got != "v_TEXCOORD3" {
		t.Errorf("Varying = %q", got)
	}
}

// =============================================================================
// Matrix opcodes
// =============================================================================

// matrixShader decodes vs_2_0: dcl_position v0; <op> r0.<mask>, v0, <rows>;
// mov oPos, r0.
func matrixShader(t *testing.T, o ir.Opcode, mask ir.WriteMask, rows ir.RegisterType, base int) *ir.Program {
	t.Helper()
	buf := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		Op(o, bytecode.DestToken(ir.RegTemp, 0, mask),
			bytecode.SrcToken(ir.RegInput, 0, ir.SwizzleIdentity, ir.SrcModNone),
			bytecode.SrcToken(rows, base, ir.SwizzleIdentity, ir.SrcModNone)).
		Op(ir.OpMov, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, ir.MaskAll),
			bytecode.SrcToken(ir.RegTemp, 0, ir.SwizzleIdentity, ir.SrcModNone)).
		End().Bytes()
	p, errs := bytecode.Decode(buf, bytecode.Options{})
	if errs.HasErrors() {
		t.Fatalf("Decode: %s", errs.FormatAll())
	}
	return p
}

var matrixOps = []struct {
	op   ir.Opcode
	mask ir.WriteMask
	rows int
	cols int
}{
	{ir.OpM4x4, ir.MaskAll, 4, 4},
	{ir.OpM4x3, ir.MaskX | ir.MaskY | ir.MaskZ, 3, 4},
	{ir.OpM3x4, ir.MaskAll, 4, 3},
	{ir.OpM3x3, ir.MaskX | ir.MaskY | ir.MaskZ, 3, 3},
	{ir.OpM3x2, ir.MaskX | ir.MaskY, 2, 3},
}

func TestGenerate_Matrix(t *testing.T) {
	for _, tt := range matrixOps {
		t.Run(tt.op.String(), func(t *testing.T) {
			sfx := ""
			if tt.cols == 3 {
				sfx = ".xyz"
			}

			p := matrixShader(t, tt.op, tt.mask, ir.RegConst, 0)
			if len(p.Uniforms) != tt.rows {
				t.Fatalf("uniforms = %+v, want c0..c%d", p.Uniforms, tt.rows-1)
			}
			_, code := generate(t, p, testDialect{}, Options{})
			for i := 0; i < tt.rows; i++ {
				wantLines(t, code.Main, fmt.Sprintf("dot(vs_v0%s, vs_uniforms_vec4[%d]%s)", sfx, i, sfx))
			}

			p = matrixShader(t, tt.op, tt.mask, ir.RegTemp, 4)
			w, code := generate(t, p, testDialect{}, Options{})
			declared := map[string]bool{}
			for _, d := range w.Registers() {
				declared[d.Name] = true
			}
			for i := 0; i < tt.rows; i++ {
				name := fmt.Sprintf("vs_r%d", 4+i)
				wantLines(t, code.Main, fmt.Sprintf("dot(vs_v0%s, %s%s)", sfx, name, sfx))
				if !declared[name] {
					t.Errorf("%s read but not declared", name)
				}
			}
		})
	}
}

func TestGenerate_MatrixTooManyLanes(t *testing.T) {
	p := vertex(op(ir.OpM3x2, dest(ir.RegTemp, 0, ir.MaskX|ir.MaskY|ir.MaskZ),
		source(ir.RegInput, 0), source(ir.RegTemp, 1)))
	_, err := NewWriter(p, testDialect{}, Options{}).Generate()
	if err == nil || !strings.Contains(err.Error(), "writes only 2 components") {
		t.Errorf("Generate err = %v, want a lane count error", err)
	}
}
