package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/d3dbc/ir"
)

// ErrPreshader reports a malformed preshader block.
var ErrPreshader = errors.New("malformed preshader")

// ParsePreshader parses a PRES payload. data starts at the byte after the
// PRES magic: a version token, a run of comment blocks, then END.
func ParsePreshader(data []byte) (*ir.Preshader, error) {
	r := NewReader(data)
	ver, err := r.Next()
	if err != nil || ver>>16 != preshaderVersion {
		return nil, fmt.Errorf("%w: bad version token", ErrPreshader)
	}
	pre := &ir.Preshader{}
	sawCode := false
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: missing END token", ErrPreshader)
		}
		if tok == TokenEnd {
			break
		}
		if tok&opcodeMask != uint32(ir.OpComment) {
			return nil, fmt.Errorf("%w: unexpected token %#08x", ErrPreshader, tok)
		}
		block, err := r.Tokens(int((tok & commentMask) >> 16))
		if err != nil {
			return nil, fmt.Errorf("%w: truncated block", ErrPreshader)
		}
		if len(block) < 4 {
			continue
		}
		body := block[4:]
		switch binary.LittleEndian.Uint32(block) {
		case MagicCLIT:
			if pre.Literals, err = parseLiterals(body); err != nil {
				return nil, err
			}
		case MagicFXLC:
			if pre.Instructions, err = parseCode(body); err != nil {
				return nil, err
			}
			sawCode = true
		case MagicCTAB:
			_, syms, err := ParseCTAB(body)
			if err != nil {
				return nil, err
			}
			pre.Symbols = syms
		case MagicPRSI:
		}
	}
	if !sawCode {
		return nil, fmt.Errorf("%w: no code block", ErrPreshader)
	}
	for i := range pre.Instructions {
		inst := &pre.Instructions[i]
		for _, op := range inst.Operands {
			if op.Type != ir.PreshaderOperandTemp {
				continue
			}
			n := uint64(op.Index) + uint64(inst.Elements)
			if n > ir.PreshaderRegisterLimit {
				return nil, fmt.Errorf("%w: temp register %d out of range", ErrPreshader, op.Index)
			}
			if uint32(n) > pre.TempCount {
				pre.TempCount = uint32(n)
			}
		}
	}
	return pre, nil
}

func parseLiterals(body []byte) ([]float64, error) {
	count, ok := u32(body, 0)
	if !ok || uint64(count)*8 > uint64(len(body)-4) {
		return nil, fmt.Errorf("%w: literal pool out of bounds", ErrPreshader)
	}
	lits := make([]float64, count)
	for i := range lits {
		lits[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[4+i*8:]))
	}
	return lits, nil
}

func parseCode(body []byte) ([]ir.PreshaderInstruction, error) {
	r := NewReader(body)
	count, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated code block", ErrPreshader)
	}
	// Each instruction takes at least two tokens.
	if uint64(count)*2 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: instruction count %d out of bounds", ErrPreshader, count)
	}
	insts := make([]ir.PreshaderInstruction, 0, count)
	for i := uint32(0); i < count; i++ {
		optok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated instruction", ErrPreshader)
		}
		nops, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated instruction", ErrPreshader)
		}
		inst := ir.PreshaderInstruction{
			Opcode:   ir.PreshaderOpcode(optok >> 16),
			Elements: optok & 0xFF,
		}
		if inst.Elements > 4 {
			return nil, fmt.Errorf("%w: %d elements", ErrPreshader, inst.Elements)
		}
		if !inst.Opcode.Known() {
			return nil, fmt.Errorf("%w: unknown opcode %#04x", ErrPreshader, uint16(inst.Opcode))
		}
		if int(nops) != inst.Opcode.Sources()+1 {
			return nil, fmt.Errorf("%w: %s takes %d operands, got %d",
				ErrPreshader, inst.Opcode, inst.Opcode.Sources()+1, nops)
		}
		inst.Operands = make([]ir.PreshaderOperand, 0, nops)
		for j := uint32(0); j < nops; j++ {
			op, err := parseOperand(r)
			if err != nil {
				return nil, err
			}
			inst.Operands = append(inst.Operands, op)
		}
		switch inst.Dest().Type {
		case ir.PreshaderOperandOutput, ir.PreshaderOperandTemp:
		default:
			return nil, fmt.Errorf("%w: %s writes a read-only operand", ErrPreshader, inst.Opcode)
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

func parseOperand(r *Reader) (ir.PreshaderOperand, error) {
	var op ir.PreshaderOperand
	hdr, err := r.Tokens(3)
	if err != nil {
		return op, fmt.Errorf("%w: truncated operand", ErrPreshader)
	}
	narrays := binary.LittleEndian.Uint32(hdr)
	op.Type = ir.PreshaderOperandType(binary.LittleEndian.Uint32(hdr[4:]))
	op.Index = binary.LittleEndian.Uint32(hdr[8:])
	if !validOperandType(op.Type) {
		return op, fmt.Errorf("%w: operand type %d", ErrPreshader, op.Type)
	}
	if !inRange(op.Type, op.Index) {
		return op, fmt.Errorf("%w: operand type %d index %d out of range", ErrPreshader, op.Type, op.Index)
	}
	if uint64(narrays)*2 > uint64(r.Remaining()) {
		return op, fmt.Errorf("%w: operand arrays out of bounds", ErrPreshader)
	}
	if narrays > 0 {
		op.Arrays = make([]ir.PreshaderArrayRef, narrays)
		for k := range op.Arrays {
			t, _ := r.Next()
			idx, _ := r.Next()
			op.Arrays[k] = ir.PreshaderArrayRef{Type: ir.PreshaderOperandType(t), Index: idx}
			if !validOperandType(op.Arrays[k].Type) {
				return op, fmt.Errorf("%w: array operand type %d", ErrPreshader, t)
			}
			if !inRange(op.Arrays[k].Type, idx) {
				return op, fmt.Errorf("%w: array index %d out of range", ErrPreshader, idx)
			}
		}
	}
	return op, nil
}

func validOperandType(t ir.PreshaderOperandType) bool {
	switch t {
	case ir.PreshaderOperandLiteral, ir.PreshaderOperandInput,
		ir.PreshaderOperandOutput, ir.PreshaderOperandTemp:
		return true
	}
	return false
}

// inRange reports whether idx fits the register space of t. Literal
// indices are checked against the pool when the preshader runs.
func inRange(t ir.PreshaderOperandType, idx uint32) bool {
	return t == ir.PreshaderOperandLiteral || idx < ir.PreshaderRegisterLimit
}
