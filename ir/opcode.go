package ir

// Opcode is a Direct3D 9 shader instruction opcode.
type Opcode uint16

const (
	OpNop          Opcode = 0
	OpMov          Opcode = 1
	OpAdd          Opcode = 2
	OpSub          Opcode = 3
	OpMad          Opcode = 4
	OpMul          Opcode = 5
	OpRcp          Opcode = 6
	OpRsq          Opcode = 7
	OpDp3          Opcode = 8
	OpDp4          Opcode = 9
	OpMin          Opcode = 10
	OpMax          Opcode = 11
	OpSlt          Opcode = 12
	OpSge          Opcode = 13
	OpExp          Opcode = 14
	OpLog          Opcode = 15
	OpLit          Opcode = 16
	OpDst          Opcode = 17
	OpLrp          Opcode = 18
	OpFrc          Opcode = 19
	OpM4x4         Opcode = 20
	OpM4x3         Opcode = 21
	OpM3x4         Opcode = 22
	OpM3x3         Opcode = 23
	OpM3x2         Opcode = 24
	OpCall         Opcode = 25
	OpCallNZ       Opcode = 26
	OpLoop         Opcode = 27
	OpRet          Opcode = 28
	OpEndLoop      Opcode = 29
	OpLabel        Opcode = 30
	OpDcl          Opcode = 31
	OpPow          Opcode = 32
	OpCrs          Opcode = 33
	OpSgn          Opcode = 34
	OpAbs          Opcode = 35
	OpNrm          Opcode = 36
	OpSinCos       Opcode = 37
	OpRep          Opcode = 38
	OpEndRep       Opcode = 39
	OpIf           Opcode = 40
	OpIfc          Opcode = 41
	OpElse         Opcode = 42
	OpEndIf        Opcode = 43
	OpBreak        Opcode = 44
	OpBreakc       Opcode = 45
	OpMova         Opcode = 46
	OpDefB         Opcode = 47
	OpDefI         Opcode = 48
	OpTexCoord     Opcode = 64
	OpTexKill      Opcode = 65
	OpTex          Opcode = 66
	OpTexBem       Opcode = 67
	OpTexBemL      Opcode = 68
	OpTexReg2AR    Opcode = 69
	OpTexReg2GB    Opcode = 70
	OpTexM3x2Pad   Opcode = 71
	OpTexM3x2Tex   Opcode = 72
	OpTexM3x3Pad   Opcode = 73
	OpTexM3x3Tex   Opcode = 74
	OpTexM3x3Spec  Opcode = 76
	OpTexM3x3VSpec Opcode = 77
	OpExpP         Opcode = 78
	OpLogP         Opcode = 79
	OpCnd          Opcode = 80
	OpDef          Opcode = 81
	OpTexReg2RGB   Opcode = 82
	OpTexDp3Tex    Opcode = 83
	OpTexM3x2Depth Opcode = 84
	OpTexDp3       Opcode = 85
	OpTexM3x3      Opcode = 86
	OpTexDepth     Opcode = 87
	OpCmp          Opcode = 88
	OpBem          Opcode = 89
	OpDp2Add       Opcode = 90
	OpDsx          Opcode = 91
	OpDsy          Opcode = 92
	OpTexLdd       Opcode = 93
	OpSetP         Opcode = 94
	OpTexLdl       Opcode = 95
	OpBreakP       Opcode = 96

	OpPhase   Opcode = 0xFFFD
	OpComment Opcode = 0xFFFE
	OpEnd     Opcode = 0xFFFF
)

// Shape describes the operand layout of an instruction.
type Shape uint8

const (
	ShapeNull  Shape = iota // no operands
	ShapeD                  // dest
	ShapeS                  // src
	ShapeSS                 // src, src
	ShapeDS                 // dest, src
	ShapeDSS                // dest, src, src
	ShapeDSSS               // dest, src, src, src
	ShapeDSSSS              // dest, src, src, src, src
	ShapeDef                // dest, 4 floats
	ShapeDefI               // dest, 4 ints
	ShapeDefB               // dest, 1 bool
	ShapeDcl                // usage token, dest

	// The following shapes depend on the shader version and are resolved
	// by OpInfo.ShapeFor.
	shapeTexCrd
	shapeTexLd
	shapeSinCos
)

// Sources returns the number of source parameters of a resolved shape.
func (s Shape) Sources() int {
	switch s {
	case ShapeS, ShapeDS:
		return 1
	case ShapeSS, ShapeDSS:
		return 2
	case ShapeDSSS:
		return 3
	case ShapeDSSSS:
		return 4
	}
	return 0
}

// HasDest reports whether a resolved shape has a destination parameter.
func (s Shape) HasDest() bool {
	switch s {
	case ShapeD, ShapeDS, ShapeDSS, ShapeDSSS, ShapeDSSSS, ShapeDef, ShapeDefI, ShapeDefB, ShapeDcl:
		return true
	}
	return false
}

// OpInfo describes one opcode.
type OpInfo struct {
	Name  string
	Shape Shape
	Types ShaderType
	// Slots is the instruction-slot cost used for the complexity estimate.
	Slots int
	// Min and Max bound the shader models that accept the opcode. A zero
	// Max means no upper bound.
	Min Version
	Max Version
}

var anyVersion = Version{}

var opTable = map[Opcode]OpInfo{
	OpNop:          {"nop", ShapeNull, ShaderAny, 0, anyVersion, anyVersion},
	OpMov:          {"mov", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpAdd:          {"add", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpSub:          {"sub", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpMad:          {"mad", ShapeDSSS, ShaderAny, 1, anyVersion, anyVersion},
	OpMul:          {"mul", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpRcp:          {"rcp", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpRsq:          {"rsq", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpDp3:          {"dp3", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpDp4:          {"dp4", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpMin:          {"min", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpMax:          {"max", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpSlt:          {"slt", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpSge:          {"sge", ShapeDSS, ShaderAny, 1, anyVersion, anyVersion},
	OpExp:          {"exp", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpLog:          {"log", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpLit:          {"lit", ShapeDS, ShaderVertex, 3, anyVersion, anyVersion},
	OpDst:          {"dst", ShapeDSS, ShaderVertex, 1, anyVersion, anyVersion},
	OpLrp:          {"lrp", ShapeDSSS, ShaderAny, 2, anyVersion, anyVersion},
	OpFrc:          {"frc", ShapeDS, ShaderAny, 1, anyVersion, anyVersion},
	OpM4x4:         {"m4x4", ShapeDSS, ShaderAny, 4, anyVersion, anyVersion},
	OpM4x3:         {"m4x3", ShapeDSS, ShaderAny, 3, anyVersion, anyVersion},
	OpM3x4:         {"m3x4", ShapeDSS, ShaderAny, 4, anyVersion, anyVersion},
	OpM3x3:         {"m3x3", ShapeDSS, ShaderAny, 3, anyVersion, anyVersion},
	OpM3x2:         {"m3x2", ShapeDSS, ShaderAny, 2, anyVersion, anyVersion},
	OpCall:         {"call", ShapeS, ShaderAny, 2, Version{2, 0}, anyVersion},
	OpCallNZ:       {"callnz", ShapeSS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpLoop:         {"loop", ShapeSS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpRet:          {"ret", ShapeNull, ShaderAny, 1, Version{2, 0}, anyVersion},
	OpEndLoop:      {"endloop", ShapeNull, ShaderAny, 2, Version{2, 0}, anyVersion},
	OpLabel:        {"label", ShapeS, ShaderAny, 0, Version{2, 0}, anyVersion},
	OpDcl:          {"dcl", ShapeDcl, ShaderAny, 0, anyVersion, anyVersion},
	OpPow:          {"pow", ShapeDSS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpCrs:          {"crs", ShapeDSS, ShaderAny, 2, Version{2, 0}, anyVersion},
	OpSgn:          {"sgn", ShapeDSSS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpAbs:          {"abs", ShapeDS, ShaderAny, 1, Version{2, 0}, anyVersion},
	OpNrm:          {"nrm", ShapeDS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpSinCos:       {"sincos", shapeSinCos, ShaderAny, 8, Version{2, 0}, anyVersion},
	OpRep:          {"rep", ShapeS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpEndRep:       {"endrep", ShapeNull, ShaderAny, 2, Version{2, 0}, anyVersion},
	OpIf:           {"if", ShapeS, ShaderAny, 3, Version{2, 0}, anyVersion},
	OpIfc:          {"if", ShapeSS, ShaderAny, 3, Version{2, 1}, anyVersion},
	OpElse:         {"else", ShapeNull, ShaderAny, 1, Version{2, 0}, anyVersion},
	OpEndIf:        {"endif", ShapeNull, ShaderAny, 1, Version{2, 0}, anyVersion},
	OpBreak:        {"break", ShapeNull, ShaderAny, 1, Version{2, 1}, anyVersion},
	OpBreakc:       {"break", ShapeSS, ShaderAny, 3, Version{2, 1}, anyVersion},
	OpMova:         {"mova", ShapeDS, ShaderVertex, 1, Version{2, 0}, anyVersion},
	OpDefB:         {"defb", ShapeDefB, ShaderAny, 0, Version{2, 0}, anyVersion},
	OpDefI:         {"defi", ShapeDefI, ShaderAny, 0, Version{2, 0}, anyVersion},
	OpTexCoord:     {"texcoord", shapeTexCrd, ShaderPixel, 1, anyVersion, Version{1, 4}},
	OpTexKill:      {"texkill", ShapeD, ShaderPixel, 2, anyVersion, anyVersion},
	OpTex:          {"tex", shapeTexLd, ShaderPixel, 1, anyVersion, anyVersion},
	OpTexBem:       {"texbem", ShapeDS, ShaderPixel, 2, anyVersion, Version{1, 3}},
	OpTexBemL:      {"texbeml", ShapeDS, ShaderPixel, 2, anyVersion, Version{1, 3}},
	OpTexReg2AR:    {"texreg2ar", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexReg2GB:    {"texreg2gb", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x2Pad:   {"texm3x2pad", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x2Tex:   {"texm3x2tex", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x3Pad:   {"texm3x3pad", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x3Tex:   {"texm3x3tex", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x3Spec:  {"texm3x3spec", ShapeDSS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpTexM3x3VSpec: {"texm3x3vspec", ShapeDS, ShaderPixel, 1, anyVersion, Version{1, 3}},
	OpExpP:         {"expp", ShapeDS, ShaderVertex, 1, anyVersion, anyVersion},
	OpLogP:         {"logp", ShapeDS, ShaderVertex, 1, anyVersion, anyVersion},
	OpCnd:          {"cnd", ShapeDSSS, ShaderPixel, 1, anyVersion, Version{1, 4}},
	OpDef:          {"def", ShapeDef, ShaderAny, 0, anyVersion, anyVersion},
	OpTexReg2RGB:   {"texreg2rgb", ShapeDS, ShaderPixel, 1, Version{1, 2}, Version{1, 3}},
	OpTexDp3Tex:    {"texdp3tex", ShapeDS, ShaderPixel, 1, Version{1, 2}, Version{1, 3}},
	OpTexM3x2Depth: {"texm3x2depth", ShapeDS, ShaderPixel, 1, Version{1, 3}, Version{1, 3}},
	OpTexDp3:       {"texdp3", ShapeDS, ShaderPixel, 1, Version{1, 2}, Version{1, 3}},
	OpTexM3x3:      {"texm3x3", ShapeDS, ShaderPixel, 1, Version{1, 2}, Version{1, 3}},
	OpTexDepth:     {"texdepth", ShapeD, ShaderPixel, 1, Version{1, 4}, Version{1, 4}},
	OpCmp:          {"cmp", ShapeDSSS, ShaderPixel, 1, Version{1, 2}, anyVersion},
	OpBem:          {"bem", ShapeDSS, ShaderPixel, 2, Version{1, 4}, Version{1, 4}},
	OpDp2Add:       {"dp2add", ShapeDSSS, ShaderPixel, 2, Version{2, 0}, anyVersion},
	OpDsx:          {"dsx", ShapeDS, ShaderPixel, 2, Version{2, 1}, anyVersion},
	OpDsy:          {"dsy", ShapeDS, ShaderPixel, 2, Version{2, 1}, anyVersion},
	OpTexLdd:       {"texldd", ShapeDSSSS, ShaderPixel, 3, Version{2, 1}, anyVersion},
	OpSetP:         {"setp", ShapeDSS, ShaderAny, 1, Version{2, 1}, anyVersion},
	OpTexLdl:       {"texldl", ShapeDSS, ShaderAny, 2, Version{3, 0}, anyVersion},
	OpBreakP:       {"breakp", ShapeS, ShaderAny, 3, Version{2, 1}, anyVersion},
	OpPhase:        {"phase", ShapeNull, ShaderPixel, 0, Version{1, 4}, Version{1, 4}},
}

// Info returns the table entry of op.
func (op Opcode) Info() (OpInfo, bool) {
	info, ok := opTable[op]
	return info, ok
}

// Valid reports whether op is a known instruction opcode.
func (op Opcode) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// ShapeFor resolves the operand shape of op for a shader type and version.
func (info OpInfo) ShapeFor(t ShaderType, v Version) Shape {
	switch info.Shape {
	case shapeTexCrd:
		if v.AtLeast(1, 4) {
			return ShapeDS
		}
		return ShapeD
	case shapeTexLd:
		switch {
		case v.AtLeast(2, 0):
			return ShapeDSS
		case v.AtLeast(1, 4):
			return ShapeDS
		}
		return ShapeD
	case shapeSinCos:
		if v.AtLeast(3, 0) {
			return ShapeDS
		}
		return ShapeDSSS
	}
	return info.Shape
}

// Supports reports whether the opcode is valid for shader type t at version v.
func (info OpInfo) Supports(t ShaderType, v Version) bool {
	if info.Types&t == 0 {
		return false
	}
	// Pixel-only version bounds describe ps models; vs models start at 1.1.
	if t == ShaderVertex && info.Types&ShaderPixel != 0 {
		return info.Min.Major < 2 || v.AtLeast(info.Min.Major, info.Min.Minor)
	}
	if v.Less(info.Min.Major, info.Min.Minor) {
		return false
	}
	if info.Max != anyVersion && v.AtLeast(info.Max.Major, info.Max.Minor+1) {
		return false
	}
	return true
}

// String returns the base mnemonic of op.
func (op Opcode) String() string {
	if info, ok := opTable[op]; ok {
		return info.Name
	}
	return "unknown"
}

// Mnemonic returns the assembly mnemonic of an instruction, including
// version-dependent spellings and control suffixes.
func (inst *Instruction) Mnemonic(t ShaderType, v Version) string {
	switch inst.Op {
	case OpTexCoord:
		if v.AtLeast(1, 4) {
			return "texcrd"
		}
	case OpTex:
		if v.AtLeast(1, 4) {
			name := "texld"
			if inst.Projected() {
				name += "p"
			} else if inst.Biased() {
				name += "b"
			}
			return name
		}
	case OpIfc, OpBreakc, OpSetP:
		return inst.Op.String() + inst.Compare().Suffix()
	}
	return inst.Op.String()
}

// IsFlowControl reports whether op opens, closes or transfers control.
func (op Opcode) IsFlowControl() bool {
	switch op {
	case OpCall, OpCallNZ, OpLoop, OpRet, OpEndLoop, OpLabel, OpRep, OpEndRep,
		OpIf, OpIfc, OpElse, OpEndIf, OpBreak, OpBreakc, OpBreakP:
		return true
	}
	return false
}

// IsTextureOp reports whether op samples or manipulates texture registers.
func (op Opcode) IsTextureOp() bool {
	switch op {
	case OpTexCoord, OpTexKill, OpTex, OpTexBem, OpTexBemL, OpTexReg2AR,
		OpTexReg2GB, OpTexM3x2Pad, OpTexM3x2Tex, OpTexM3x3Pad, OpTexM3x3Tex,
		OpTexM3x3Spec, OpTexM3x3VSpec, OpTexReg2RGB, OpTexDp3Tex,
		OpTexM3x2Depth, OpTexDp3, OpTexM3x3, OpTexDepth, OpTexLdd, OpTexLdl:
		return true
	}
	return false
}

// IsScalarOp reports whether op reads only the replicated first component
// of its source.
func (op Opcode) IsScalarOp() bool {
	switch op {
	case OpRcp, OpRsq, OpExp, OpLog, OpExpP, OpLogP, OpPow:
		return true
	}
	return false
}
