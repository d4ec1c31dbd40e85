package ir

// PreshaderOpcode is a preshader (FXLC) opcode.
type PreshaderOpcode uint16

const (
	PreshaderNop         PreshaderOpcode = 0x0000
	PreshaderMov         PreshaderOpcode = 0x1000
	PreshaderNeg         PreshaderOpcode = 0x1010
	PreshaderRcp         PreshaderOpcode = 0x1030
	PreshaderFrc         PreshaderOpcode = 0x1040
	PreshaderExp         PreshaderOpcode = 0x1050
	PreshaderLog         PreshaderOpcode = 0x1060
	PreshaderRsq         PreshaderOpcode = 0x1070
	PreshaderSin         PreshaderOpcode = 0x1080
	PreshaderCos         PreshaderOpcode = 0x1090
	PreshaderAsin        PreshaderOpcode = 0x10A0
	PreshaderAcos        PreshaderOpcode = 0x10B0
	PreshaderAtan        PreshaderOpcode = 0x10C0
	PreshaderMin         PreshaderOpcode = 0x2000
	PreshaderMax         PreshaderOpcode = 0x2010
	PreshaderLt          PreshaderOpcode = 0x2020
	PreshaderGe          PreshaderOpcode = 0x2030
	PreshaderAdd         PreshaderOpcode = 0x2040
	PreshaderMul         PreshaderOpcode = 0x2050
	PreshaderAtan2       PreshaderOpcode = 0x2060
	PreshaderDiv         PreshaderOpcode = 0x2080
	PreshaderCmp         PreshaderOpcode = 0x3000
	PreshaderMovc        PreshaderOpcode = 0x3010
	PreshaderDot         PreshaderOpcode = 0x5000
	PreshaderNoise       PreshaderOpcode = 0x5020
	PreshaderMinScalar   PreshaderOpcode = 0xA000
	PreshaderMaxScalar   PreshaderOpcode = 0xA010
	PreshaderLtScalar    PreshaderOpcode = 0xA020
	PreshaderGeScalar    PreshaderOpcode = 0xA030
	PreshaderAddScalar   PreshaderOpcode = 0xA040
	PreshaderMulScalar   PreshaderOpcode = 0xA050
	PreshaderAtan2Scalar PreshaderOpcode = 0xA060
	PreshaderDivScalar   PreshaderOpcode = 0xA080
	PreshaderDotScalar   PreshaderOpcode = 0xD000
	PreshaderNoiseScalar PreshaderOpcode = 0xD020
)

var preshaderOpNames = map[PreshaderOpcode]string{
	PreshaderNop: "nop", PreshaderMov: "mov", PreshaderNeg: "neg",
	PreshaderRcp: "rcp", PreshaderFrc: "frc", PreshaderExp: "exp",
	PreshaderLog: "log", PreshaderRsq: "rsq", PreshaderSin: "sin",
	PreshaderCos: "cos", PreshaderAsin: "asin", PreshaderAcos: "acos",
	PreshaderAtan: "atan", PreshaderMin: "min", PreshaderMax: "max",
	PreshaderLt: "lt", PreshaderGe: "ge", PreshaderAdd: "add",
	PreshaderMul: "mul", PreshaderAtan2: "atan2", PreshaderDiv: "div",
	PreshaderCmp: "cmp", PreshaderMovc: "movc", PreshaderDot: "dot",
	PreshaderNoise: "noise", PreshaderMinScalar: "min", PreshaderMaxScalar: "max",
	PreshaderLtScalar: "lt", PreshaderGeScalar: "ge", PreshaderAddScalar: "add",
	PreshaderMulScalar: "mul", PreshaderAtan2Scalar: "atan2", PreshaderDivScalar: "div",
	PreshaderDotScalar: "dot", PreshaderNoiseScalar: "noise",
}

// String returns the preshader mnemonic.
func (op PreshaderOpcode) String() string {
	if name, ok := preshaderOpNames[op]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether op is a recognised preshader opcode.
func (op PreshaderOpcode) Known() bool {
	_, ok := preshaderOpNames[op]
	return ok
}

// Scalar reports whether op broadcasts its first source to every element.
func (op PreshaderOpcode) Scalar() bool {
	return op >= PreshaderMinScalar
}

// Sources returns the number of source operands op reads.
func (op PreshaderOpcode) Sources() int {
	switch op {
	case PreshaderNop:
		return 0
	case PreshaderCmp, PreshaderMovc:
		return 3
	}
	if op >= 0x2000 {
		return 2
	}
	return 1
}

// PreshaderOperandType selects the register space of a preshader operand.
type PreshaderOperandType uint32

const (
	PreshaderOperandLiteral PreshaderOperandType = 1
	PreshaderOperandInput   PreshaderOperandType = 2
	PreshaderOperandOutput  PreshaderOperandType = 4
	PreshaderOperandTemp    PreshaderOperandType = 7
)

// PreshaderArrayRef is one level of relative addressing on an operand.
type PreshaderArrayRef struct {
	Type  PreshaderOperandType
	Index uint32
}

// PreshaderOperand is a scalar-indexed preshader operand.
type PreshaderOperand struct {
	Type   PreshaderOperandType
	Index  uint32
	Arrays []PreshaderArrayRef
}

// PreshaderInstruction is one preshader instruction. The last operand is
// the destination.
type PreshaderInstruction struct {
	Opcode   PreshaderOpcode
	Elements uint32
	Operands []PreshaderOperand
}

// Dest returns the destination operand.
func (inst *PreshaderInstruction) Dest() *PreshaderOperand {
	return &inst.Operands[len(inst.Operands)-1]
}

// PreshaderRegisterLimit bounds the scalar index space of preshader input,
// output and temp operands: the 256 four-component registers of the float
// constant file.
const PreshaderRegisterLimit = 4 * 256

// Preshader is a constant-folding program extracted from a PRES block.
type Preshader struct {
	Literals     []float64
	TempCount    uint32
	Symbols      []Symbol
	Instructions []PreshaderInstruction
}
