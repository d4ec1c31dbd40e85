package uniforms

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/d3dbc/ir"
)

func sampleUniforms() []ir.Uniform {
	return []ir.Uniform{
		{Type: ir.UniformFloat, Index: 2},
		{Type: ir.UniformFloat, Index: 4, ArrayCount: 3},
		{Type: ir.UniformFloat, Index: 10, ArrayCount: 2, Constant: true},
		{Type: ir.UniformInt, Index: 1},
		{Type: ir.UniformBool, Index: 0},
		{Type: ir.UniformBool, Index: 3},
	}
}

// =============================================================================
// Layout
// =============================================================================

func TestNewLayout(t *testing.T) {
	l := NewLayout(sampleUniforms())

	wantFloats := []Range{{Reg: 2, Slot: 0, Count: 1}, {Reg: 4, Slot: 1, Count: 3}}
	if len(l.Floats) != len(wantFloats) {
		t.Fatalf("Floats = %+v, want %+v", l.Floats, wantFloats)
	}
	for i, r := range wantFloats {
		if l.Floats[i] != r {
			t.Errorf("Floats[%d] = %+v, want %+v", i, l.Floats[i], r)
		}
	}

	tests := []struct {
		typ  ir.UniformType
		want int
	}{
		{ir.UniformFloat, 4},
		{ir.UniformInt, 1},
		{ir.UniformBool, 2},
	}
	for _, tt := range tests {
		if got := l.Slots(tt.typ); got != tt.want {
			t.Errorf("Slots(%s) = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestNewLayout_Empty(t *testing.T) {
	l := NewLayout(nil)
	b := NewBlock(l)
	if len(b.Floats)+len(b.Ints)+len(b.Bools) != 0 {
		t.Errorf("block for empty layout = %+v", b)
	}
	if len(b.Std140()) != 0 {
		t.Error("Std140 of an empty block is not empty")
	}
}

// =============================================================================
// Sync
// =============================================================================

func TestSync(t *testing.T) {
	l := NewLayout(sampleUniforms())
	b := NewBlock(l)

	f := NewRegisterFile(8, 2, 4)
	f.SetFloat(2, [4]float32{1, 2, 3, 4})
	f.SetFloat(5, [4]float32{5, 6, 7, 8})
	f.SetInt(1, [4]int32{9, 0, 1, 0})
	f.SetBool(3, true)

	if err := f.Sync(l, nil, b); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	wantFloats := []float32{
		1, 2, 3, 4, // c2
		0, 0, 0, 0, // c4
		5, 6, 7, 8, // c5
		0, 0, 0, 0, // c6
	}
	for i, w := range wantFloats {
		if b.Floats[i] != w {
			t.Errorf("Floats[%d] = %v, want %v", i, b.Floats[i], w)
		}
	}
	if b.Ints[0] != 9 || b.Ints[2] != 1 {
		t.Errorf("Ints = %v", b.Ints)
	}
	if b.Bools[0] != 0 || b.Bools[1] != 1 {
		t.Errorf("Bools = %v, want [0 1]", b.Bools)
	}
}

func TestSync_ShortFile(t *testing.T) {
	l := NewLayout(sampleUniforms())
	b := NewBlock(l)
	for i := range b.Floats {
		b.Floats[i] = -1
	}

	f := NewRegisterFile(3, 0, 0)
	f.SetFloat(2, [4]float32{1, 1, 1, 1})
	if err := f.Sync(l, nil, b); err != nil {
		t.Fatal(err)
	}
	for i := 4; i < len(b.Floats); i++ {
		if b.Floats[i] != 0 {
			t.Errorf("Floats[%d] = %v, want 0 past the end of the file", i, b.Floats[i])
		}
	}
}

func TestSync_Preshader(t *testing.T) {
	// c4.x = c2.x * 2
	pre := &ir.Preshader{
		Literals: []float64{2},
		Instructions: []ir.PreshaderInstruction{{
			Opcode:   ir.PreshaderMul,
			Elements: 1,
			Operands: []ir.PreshaderOperand{
				{Type: ir.PreshaderOperandLiteral, Index: 0},
				{Type: ir.PreshaderOperandInput, Index: 8},
				{Type: ir.PreshaderOperandOutput, Index: 16},
			},
		}},
	}
	l := NewLayout(sampleUniforms())
	b := NewBlock(l)
	f := NewRegisterFile(8, 0, 0)
	f.SetFloat(2, [4]float32{3, 0, 0, 0})

	if err := f.Sync(l, pre, b); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if b.Floats[0] != 3 {
		t.Errorf("c2.x = %v, want 3", b.Floats[0])
	}
	if b.Floats[4] != 6 {
		t.Errorf("folded c4.x = %v, want 6", b.Floats[4])
	}
	if f.Floats[16] != 0 {
		t.Error("preshader wrote into the caller's registers")
	}
}

func TestSync_PreshaderError(t *testing.T) {
	pre := &ir.Preshader{
		Instructions: []ir.PreshaderInstruction{{
			Opcode:   ir.PreshaderMov,
			Elements: 1,
			Operands: []ir.PreshaderOperand{
				{Type: ir.PreshaderOperandInput, Index: 1 << 20},
				{Type: ir.PreshaderOperandOutput, Index: 0},
			},
		}},
	}
	l := NewLayout(sampleUniforms())
	if err := NewRegisterFile(8, 0, 0).Sync(l, pre, NewBlock(l)); err == nil {
		t.Error("out of range preshader input synced without error")
	}
}

// =============================================================================
// Serialization
// =============================================================================

func TestBlock_Std140(t *testing.T) {
	b := &Block{
		Floats: []float32{1, 2, 3, 4},
		Ints:   []int32{5, 6, 7, 8},
		Bools:  []int32{1, 0},
	}
	out := b.Std140()
	if len(out) != 16+16+32 {
		t.Fatalf("len = %d, want 64", len(out))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(out[4:])); got != 2 {
		t.Errorf("float[1] = %v, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(out[16:]); got != 5 {
		t.Errorf("int[0] = %d, want 5", got)
	}
	if got := binary.LittleEndian.Uint32(out[32:]); got != 1 {
		t.Errorf("bool[0] = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(out[48:]); got != 0 {
		t.Errorf("bool[1] = %d, want 0", got)
	}
}
