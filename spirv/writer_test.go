package spirv

import (
	"encoding/binary"
	"math"
	"testing"
)

// opcodes lists the opcodes of a word stream after the header.
func opcodes(words []uint32) []OpCode {
	var ops []OpCode
	for i := 5; i < len(words); {
		n := int(words[i] >> 16)
		if n == 0 {
			break
		}
		ops = append(ops, OpCode(words[i]&0xFFFF))
		i += n
	}
	return ops
}

func indexOf(ops []OpCode, op OpCode) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

// =============================================================================
// Header
// =============================================================================

func TestModuleBuilder_Header(t *testing.T) {
	tests := []struct {
		version Version
		word    uint32
	}{
		{Version1_0, 1<<16 | 0<<8},
		{Version1_3, 1<<16 | 3<<8},
	}
	for _, tt := range tests {
		b := NewModuleBuilder(tt.version)
		b.AddCapability(CapabilityShader)
		b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
		data := b.Build()
		if len(data) < 20 || len(data)%4 != 0 {
			t.Fatalf("module size %d", len(data))
		}
		header := []struct {
			name string
			got  uint32
			want uint32
		}{
			{"magic", binary.LittleEndian.Uint32(data[0:]), MagicNumber},
			{"version", binary.LittleEndian.Uint32(data[4:]), tt.word},
			{"generator", binary.LittleEndian.Uint32(data[8:]), GeneratorID},
			{"bound", binary.LittleEndian.Uint32(data[12:]), b.Bound()},
			{"schema", binary.LittleEndian.Uint32(data[16:]), 0},
		}
		for _, h := range header {
			if h.got != h.want {
				t.Errorf("%s = %#08x, want %#08x", h.name, h.got, h.want)
			}
		}
	}
}

func TestModuleBuilder_BoundCoversIDs(t *testing.T) {
	builder := NewModuleBuilder(Version1_0)
	builder.AddTypeVoid()
	last := builder.AllocID()
	words := builder.Words()
	if words[3] != last+1 {
		t.Errorf("bound = %d, want %d", words[3], last+1)
	}
	if last == 0 {
		t.Error("id 0 allocated")
	}
}

// =============================================================================
// Layout
// =============================================================================

// TestModuleBuilder_SectionOrder declares things out of order and checks
// they are written in the logical layout order.
func TestModuleBuilder_SectionOrder(t *testing.T) {
	b := NewModuleBuilder(Version1_0)
	void := b.AddTypeVoid()
	fn := b.AddFunction(b.AddTypeFunction(void), void, FunctionControlNone)
	b.AddLabel()
	b.AddReturn()
	b.AddFunctionEnd()
	b.AddName(fn, "main")
	b.AddEntryPoint(ExecutionModelFragment, fn, "main", nil)
	b.AddExecutionMode(fn, ExecutionModeOriginUpperLeft)
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	b.AddExtInstImport("GLSL.std.450")
	b.AddCapability(CapabilityShader)

	ops := opcodes(b.Words())
	order := []OpCode{
		OpCapability, OpExtInstImport, OpMemoryModel, OpEntryPoint,
		OpExecutionMode, OpName, OpTypeVoid, OpFunction, OpLabel, OpReturn, OpFunctionEnd,
	}
	last := -1
	for _, op := range order {
		i := indexOf(ops, op)
		if i < 0 {
			t.Fatalf("opcode %d missing from %v", op, ops)
		}
		if i <= last {
			t.Errorf("opcode %d at %d, want after %d", op, i, last)
		}
		last = i
	}
}

// =============================================================================
// Types and constants
// =============================================================================

func TestModuleBuilder_Dedup(t *testing.T) {
	builder := NewModuleBuilder(Version1_0)
	f32 := builder.AddTypeFloat(32)
	if again := builder.AddTypeFloat(32); again != f32 {
		t.Errorf("float type declared twice: %d, %d", f32, again)
	}
	vec4 := builder.AddTypeVector(f32, 4)
	if again := builder.AddTypeVector(f32, 4); again != vec4 {
		t.Errorf("vec4 type declared twice: %d, %d", vec4, again)
	}
	one := builder.AddConstantFloat32(f32, 1)
	if again := builder.AddConstantFloat32(f32, 1); again != one {
		t.Errorf("constant declared twice: %d, %d", one, again)
	}
	if two := builder.AddConstantFloat32(f32, 2); two == one {
		t.Error("distinct constants share an id")
	}
	// arrays and structs are never shared
	a := builder.AddTypeArray(vec4, builder.AddConstant(builder.AddTypeInt(32, true), 4))
	b := builder.AddTypeArray(vec4, builder.AddConstant(builder.AddTypeInt(32, true), 4))
	if a == b {
		t.Error("array types were merged")
	}
}

func TestModuleBuilder_FloatBits(t *testing.T) {
	b := NewModuleBuilder(Version1_0)
	f32 := b.AddTypeFloat(32)
	id := b.AddConstantFloat32(f32, -0.5)
	words := b.Words()
	for i := 5; i < len(words); i += int(words[i] >> 16) {
		if OpCode(words[i]&0xFFFF) == OpConstant && words[i+2] == id {
			if got := math.Float32frombits(words[i+3]); got != -0.5 {
				t.Errorf("constant = %v, want -0.5", got)
			}
			return
		}
	}
	t.Fatal("OpConstant not found")
}

// =============================================================================
// Instructions
// =============================================================================

func TestInstructionBuilder_String(t *testing.T) {
	tests := []struct {
		s     string
		words int
	}{
		{"", 2},
		{"abc", 2},
		{"main", 3},
		{"vs_main", 3},
	}
	for _, tt := range tests {
		builder := NewInstructionBuilder()
		builder.AddString(tt.s)
		encoded := builder.Build(OpName).Encode()
		if OpCode(encoded[0]&0xFFFF) != OpName {
			t.Errorf("%q: opcode %d", tt.s, encoded[0]&0xFFFF)
		}
		if n := int(encoded[0] >> 16); n != tt.words || n != len(encoded) {
			t.Errorf("%q: word count %d (len %d), want %d", tt.s, n, len(encoded), tt.words)
		}
		if last := encoded[len(encoded)-1]; last>>24 != 0 {
			t.Errorf("%q: string not NUL terminated", tt.s)
		}
	}
}
