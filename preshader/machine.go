package preshader

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/d3dbc/ir"
)

var (
	// ErrOutOfRange is returned when an operand addresses past its register space.
	ErrOutOfRange = errors.New("preshader operand out of range")

	// ErrUnsupported is returned for opcodes the evaluator does not implement.
	ErrUnsupported = errors.New("unsupported preshader opcode")
)

// maxElements bounds the element count of one instruction.
const maxElements = 4

// Machine evaluates preshaders. It keeps its scratch memory between runs
// and is not safe for concurrent use.
type Machine struct {
	temps []float64
	src   [3][maxElements]float64
	dst   [maxElements]float64
}

// Run evaluates p with a fresh Machine.
func Run(p *ir.Preshader, inputs, outputs []float32) error {
	var m Machine
	return m.Run(p, inputs, outputs)
}

// Run evaluates every instruction of p. inputs is the caller's register
// snapshot, scalar addressed; results are stored into outputs. Neither
// slice is retained.
func (m *Machine) Run(p *ir.Preshader, inputs, outputs []float32) error {
	if p == nil {
		return nil
	}
	if p.TempCount > ir.PreshaderRegisterLimit {
		return fmt.Errorf("%w: %d temp registers", ErrOutOfRange, p.TempCount)
	}
	n := int(p.TempCount)
	if cap(m.temps) < n {
		m.temps = make([]float64, n)
	}
	m.temps = m.temps[:n]
	clear(m.temps)

	for i := range p.Instructions {
		if err := m.step(p, &p.Instructions[i], inputs, outputs); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, p.Instructions[i].Opcode, err)
		}
	}
	return nil
}

func (m *Machine) step(p *ir.Preshader, inst *ir.PreshaderInstruction, inputs, outputs []float32) error {
	elems := int(inst.Elements)
	if elems < 1 || elems > maxElements {
		return fmt.Errorf("%w: %d elements", ErrOutOfRange, elems)
	}
	nsrc := inst.Opcode.Sources()
	if len(inst.Operands) != nsrc+1 {
		return fmt.Errorf("%w: %d operands", ErrOutOfRange, len(inst.Operands))
	}
	for s := 0; s < nsrc; s++ {
		count := elems
		if s == 0 && inst.Opcode.Scalar() {
			count = 1
		}
		if err := m.load(p, &inst.Operands[s], count, m.src[s][:], inputs); err != nil {
			return err
		}
		if count == 1 {
			for i := 1; i < elems; i++ {
				m.src[s][i] = m.src[s][0]
			}
		}
	}

	s0, s1, s2 := &m.src[0], &m.src[1], &m.src[2]
	d := &m.dst
	switch inst.Opcode {
	case ir.PreshaderNop:
		return nil
	case ir.PreshaderDot, ir.PreshaderDotScalar:
		var sum float64
		for i := 0; i < elems; i++ {
			sum += s0[i] * s1[i]
		}
		for i := 0; i < elems; i++ {
			d[i] = sum
		}
	case ir.PreshaderNoise, ir.PreshaderNoiseScalar:
		return ErrUnsupported
	default:
		f, ok := unary[inst.Opcode]
		if ok {
			for i := 0; i < elems; i++ {
				d[i] = f(s0[i])
			}
			break
		}
		g, ok := binary[inst.Opcode]
		if ok {
			for i := 0; i < elems; i++ {
				d[i] = g(s0[i], s1[i])
			}
			break
		}
		switch inst.Opcode {
		case ir.PreshaderCmp:
			for i := 0; i < elems; i++ {
				d[i] = pick(s0[i] >= 0, s1[i], s2[i])
			}
		case ir.PreshaderMovc:
			for i := 0; i < elems; i++ {
				d[i] = pick(s0[i] != 0, s1[i], s2[i])
			}
		default:
			return fmt.Errorf("%w: %#04x", ErrUnsupported, uint16(inst.Opcode))
		}
	}
	return m.store(p, inst.Dest(), elems, inputs, outputs)
}

func (m *Machine) index(p *ir.Preshader, op *ir.PreshaderOperand, inputs []float32) (int, error) {
	idx := int(op.Index)
	for _, arr := range op.Arrays {
		v, err := m.scalar(p, arr.Type, int(arr.Index), inputs)
		if err != nil {
			return 0, err
		}
		if !(v >= 0 && v < ir.PreshaderRegisterLimit) {
			return 0, fmt.Errorf("%w: array index %v", ErrOutOfRange, v)
		}
		idx += int(v) * 4
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: negative index", ErrOutOfRange)
	}
	return idx, nil
}

func (m *Machine) scalar(p *ir.Preshader, t ir.PreshaderOperandType, idx int, inputs []float32) (float64, error) {
	switch t {
	case ir.PreshaderOperandLiteral:
		if idx < len(p.Literals) {
			return p.Literals[idx], nil
		}
	case ir.PreshaderOperandInput:
		if idx < len(inputs) {
			return float64(inputs[idx]), nil
		}
	case ir.PreshaderOperandTemp:
		if idx < len(m.temps) {
			return m.temps[idx], nil
		}
	}
	return 0, fmt.Errorf("%w: %s register %d", ErrOutOfRange, operandName(t), idx)
}

func (m *Machine) load(p *ir.Preshader, op *ir.PreshaderOperand, count int, out []float64, inputs []float32) error {
	base, err := m.index(p, op, inputs)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		v, err := m.scalar(p, op.Type, base+i, inputs)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (m *Machine) store(p *ir.Preshader, op *ir.PreshaderOperand, elems int, inputs, outputs []float32) error {
	base, err := m.index(p, op, inputs)
	if err != nil {
		return err
	}
	switch op.Type {
	case ir.PreshaderOperandTemp:
		if base+elems > len(m.temps) {
			return fmt.Errorf("%w: temp register %d", ErrOutOfRange, base+elems-1)
		}
		copy(m.temps[base:], m.dst[:elems])
	case ir.PreshaderOperandOutput:
		if base+elems > len(outputs) {
			return fmt.Errorf("%w: output register %d", ErrOutOfRange, base+elems-1)
		}
		for i := 0; i < elems; i++ {
			outputs[base+i] = float32(m.dst[i])
		}
	default:
		return fmt.Errorf("%w: cannot write %s", ErrOutOfRange, operandName(op.Type))
	}
	return nil
}

func operandName(t ir.PreshaderOperandType) string {
	switch t {
	case ir.PreshaderOperandLiteral:
		return "literal"
	case ir.PreshaderOperandInput:
		return "input"
	case ir.PreshaderOperandOutput:
		return "output"
	case ir.PreshaderOperandTemp:
		return "temp"
	}
	return "unknown"
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var unary = map[ir.PreshaderOpcode]func(float64) float64{
	ir.PreshaderMov:  func(x float64) float64 { return x },
	ir.PreshaderNeg:  func(x float64) float64 { return -x },
	ir.PreshaderRcp:  func(x float64) float64 { return 1 / x },
	ir.PreshaderFrc:  func(x float64) float64 { return x - math.Floor(x) },
	ir.PreshaderExp:  math.Exp2,
	ir.PreshaderLog:  math.Log2,
	ir.PreshaderRsq:  func(x float64) float64 { return 1 / math.Sqrt(x) },
	ir.PreshaderSin:  math.Sin,
	ir.PreshaderCos:  math.Cos,
	ir.PreshaderAsin: math.Asin,
	ir.PreshaderAcos: math.Acos,
	ir.PreshaderAtan: math.Atan,
}

var binary = map[ir.PreshaderOpcode]func(float64, float64) float64{
	ir.PreshaderMin:         math.Min,
	ir.PreshaderMax:         math.Max,
	ir.PreshaderLt:          func(a, b float64) float64 { return boolFloat(a < b) },
	ir.PreshaderGe:          func(a, b float64) float64 { return boolFloat(a >= b) },
	ir.PreshaderAdd:         func(a, b float64) float64 { return a + b },
	ir.PreshaderMul:         func(a, b float64) float64 { return a * b },
	ir.PreshaderAtan2:       math.Atan2,
	ir.PreshaderDiv:         func(a, b float64) float64 { return a / b },
	ir.PreshaderMinScalar:   math.Min,
	ir.PreshaderMaxScalar:   math.Max,
	ir.PreshaderLtScalar:    func(a, b float64) float64 { return boolFloat(a < b) },
	ir.PreshaderGeScalar:    func(a, b float64) float64 { return boolFloat(a >= b) },
	ir.PreshaderAddScalar:   func(a, b float64) float64 { return a + b },
	ir.PreshaderMulScalar:   func(a, b float64) float64 { return a * b },
	ir.PreshaderAtan2Scalar: math.Atan2,
	ir.PreshaderDivScalar:   func(a, b float64) float64 { return a / b },
}
