package preshader

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/d3dbc/ir"
)

func opnd(t ir.PreshaderOperandType, idx uint32) ir.PreshaderOperand {
	return ir.PreshaderOperand{Type: t, Index: idx}
}

func inst(op ir.PreshaderOpcode, elems uint32, ops ...ir.PreshaderOperand) ir.PreshaderInstruction {
	return ir.PreshaderInstruction{Opcode: op, Elements: elems, Operands: ops}
}

const (
	lit = ir.PreshaderOperandLiteral
	in  = ir.PreshaderOperandInput
	out = ir.PreshaderOperandOutput
	tmp = ir.PreshaderOperandTemp
)

// samplePreshader computes
//
//	t0.xy  = in0.xy * lit0
//	out0.xy = t0.xy + in4.xy
//	out4   = rcp(in8)
func samplePreshader() *ir.Preshader {
	return &ir.Preshader{
		Literals:  []float64{2},
		TempCount: 2,
		Instructions: []ir.PreshaderInstruction{
			inst(ir.PreshaderMulScalar, 2, opnd(lit, 0), opnd(in, 0), opnd(tmp, 0)),
			inst(ir.PreshaderAdd, 2, opnd(tmp, 0), opnd(in, 4), opnd(out, 0)),
			inst(ir.PreshaderRcp, 1, opnd(in, 8), opnd(out, 4)),
		},
	}
}

// =============================================================================
// Evaluation
// =============================================================================

func TestRun_Sample(t *testing.T) {
	inputs := []float32{1, 2, 0, 0, 10, 20, 0, 0, 4}
	outputs := make([]float32, 8)
	if err := Run(samplePreshader(), inputs, outputs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float32{12, 24, 0, 0, 0.25, 0, 0, 0}
	for i := range want {
		if outputs[i] != want[i] {
			t.Errorf("outputs[%d] = %v, want %v", i, outputs[i], want[i])
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	p := samplePreshader()
	inputs := []float32{1, 2, 0, 0, 10, 20, 0, 0, 4}
	var m Machine
	a := make([]float32, 8)
	b := make([]float32, 8)
	if err := m.Run(p, inputs, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(p, inputs, b); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("run 2 outputs[%d] = %v, run 1 = %v", i, b[i], a[i])
		}
	}

	// changing in8 only changes out4
	inputs[8] = 8
	c := make([]float32, 8)
	if err := m.Run(p, inputs, c); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		changed := a[i] != c[i]
		if changed != (i == 4) {
			t.Errorf("outputs[%d]: %v -> %v", i, a[i], c[i])
		}
	}
}

func TestRun_Opcodes(t *testing.T) {
	tests := []struct {
		name string
		op   ir.PreshaderOpcode
		args []float64
		want float32
	}{
		{"mov", ir.PreshaderMov, []float64{3}, 3},
		{"neg", ir.PreshaderNeg, []float64{3}, -3},
		{"frc", ir.PreshaderFrc, []float64{-1.25}, 0.75},
		{"exp", ir.PreshaderExp, []float64{3}, 8},
		{"log", ir.PreshaderLog, []float64{8}, 3},
		{"rsq", ir.PreshaderRsq, []float64{4}, 0.5},
		{"min", ir.PreshaderMin, []float64{1, 2}, 1},
		{"max", ir.PreshaderMax, []float64{1, 2}, 2},
		{"lt true", ir.PreshaderLt, []float64{1, 2}, 1},
		{"lt false", ir.PreshaderLt, []float64{2, 1}, 0},
		{"ge", ir.PreshaderGe, []float64{2, 2}, 1},
		{"div", ir.PreshaderDiv, []float64{1, 4}, 0.25},
		{"cmp ge", ir.PreshaderCmp, []float64{0, 5, 6}, 5},
		{"cmp lt", ir.PreshaderCmp, []float64{-1, 5, 6}, 6},
		{"movc", ir.PreshaderMovc, []float64{0, 5, 6}, 6},
		{"dot", ir.PreshaderDot, []float64{3, 4}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := make([]ir.PreshaderOperand, 0, len(tt.args)+1)
			for i := range tt.args {
				ops = append(ops, opnd(lit, uint32(i)))
			}
			ops = append(ops, opnd(out, 0))
			p := &ir.Preshader{
				Literals:     tt.args,
				Instructions: []ir.PreshaderInstruction{inst(tt.op, 1, ops...)},
			}
			outputs := make([]float32, 1)
			if err := Run(p, nil, outputs); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if math.Abs(float64(outputs[0]-tt.want)) > 1e-6 {
				t.Errorf("%s = %v, want %v", tt.op, outputs[0], tt.want)
			}
		})
	}
}

func TestRun_DotBroadcast(t *testing.T) {
	p := &ir.Preshader{
		Literals: []float64{1, 2, 3, 4, 5, 6},
		Instructions: []ir.PreshaderInstruction{
			inst(ir.PreshaderDot, 3, opnd(lit, 0), opnd(lit, 3), opnd(out, 0)),
		},
	}
	outputs := make([]float32, 3)
	if err := Run(p, nil, outputs); err != nil {
		t.Fatal(err)
	}
	for i, v := range outputs {
		if v != 32 {
			t.Errorf("outputs[%d] = %v, want 32", i, v)
		}
	}
}

func TestRun_RelativeInput(t *testing.T) {
	// out0 = in[4 + int(in1)*4]
	src := ir.PreshaderOperand{
		Type:   in,
		Index:  4,
		Arrays: []ir.PreshaderArrayRef{{Type: in, Index: 1}},
	}
	p := &ir.Preshader{
		Instructions: []ir.PreshaderInstruction{inst(ir.PreshaderMov, 1, src, opnd(out, 0))},
	}
	inputs := []float32{0, 1, 0, 0, 7, 0, 0, 0, 9}
	outputs := make([]float32, 1)
	if err := Run(p, inputs, outputs); err != nil {
		t.Fatal(err)
	}
	if outputs[0] != 9 {
		t.Errorf("outputs[0] = %v, want 9", outputs[0])
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    *ir.Preshader
		want error
	}{
		{
			"input out of range",
			&ir.Preshader{Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, opnd(in, 100), opnd(out, 0)),
			}},
			ErrOutOfRange,
		},
		{
			"output out of range",
			&ir.Preshader{Literals: []float64{1}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, opnd(lit, 0), opnd(out, 9)),
			}},
			ErrOutOfRange,
		},
		{
			"write to literal",
			&ir.Preshader{Literals: []float64{1}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, opnd(lit, 0), opnd(lit, 0)),
			}},
			ErrOutOfRange,
		},
		{
			"noise",
			&ir.Preshader{Literals: []float64{1}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderNoise, 1, opnd(lit, 0), opnd(lit, 0), opnd(out, 0)),
			}},
			ErrUnsupported,
		},
		{
			"too many elements",
			&ir.Preshader{Literals: []float64{1}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 9, opnd(lit, 0), opnd(out, 0)),
			}},
			ErrOutOfRange,
		},
		{
			"temp count",
			&ir.Preshader{TempCount: 0x7FFFFFF0, Literals: []float64{1}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, opnd(lit, 0), opnd(tmp, 0x7FFFFFEF)),
			}},
			ErrOutOfRange,
		},
		{
			"temp past count",
			&ir.Preshader{TempCount: 4, Literals: []float64{1, 2}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 2, opnd(lit, 0), opnd(tmp, 3)),
			}},
			ErrOutOfRange,
		},
		{
			"huge array index",
			&ir.Preshader{Literals: []float64{1e18}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, ir.PreshaderOperand{
					Type:   in,
					Arrays: []ir.PreshaderArrayRef{{Type: lit, Index: 0}},
				}, opnd(out, 0)),
			}},
			ErrOutOfRange,
		},
		{
			"NaN array index",
			&ir.Preshader{Literals: []float64{math.NaN()}, Instructions: []ir.PreshaderInstruction{
				inst(ir.PreshaderMov, 1, opnd(lit, 0), ir.PreshaderOperand{
					Type:   out,
					Arrays: []ir.PreshaderArrayRef{{Type: lit, Index: 0}},
				}),
			}},
			ErrOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Run(tt.p, []float32{1}, make([]float32, 4))
			if !errors.Is(err, tt.want) {
				t.Errorf("Run err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_Nil(t *testing.T) {
	if err := Run(nil, nil, nil); err != nil {
		t.Errorf("Run(nil) = %v", err)
	}
}
