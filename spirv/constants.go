package spirv

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes used by the emitter and the linker.
const (
	OpNop                   OpCode = 0
	OpUndef                 OpCode = 1
	OpSource                OpCode = 3
	OpName                  OpCode = 5
	OpMemberName            OpCode = 6
	OpString                OpCode = 7
	OpExtension             OpCode = 10
	OpExtInstImport         OpCode = 11
	OpExtInst               OpCode = 12
	OpMemoryModel           OpCode = 14
	OpEntryPoint            OpCode = 15
	OpExecutionMode         OpCode = 16
	OpCapability            OpCode = 17
	OpTypeVoid              OpCode = 19
	OpTypeBool              OpCode = 20
	OpTypeInt               OpCode = 21
	OpTypeFloat             OpCode = 22
	OpTypeVector            OpCode = 23
	OpTypeMatrix            OpCode = 24
	OpTypeImage             OpCode = 25
	OpTypeSampler           OpCode = 26
	OpTypeSampledImage      OpCode = 27
	OpTypeArray             OpCode = 28
	OpTypeStruct            OpCode = 30
	OpTypePointer           OpCode = 32
	OpTypeFunction          OpCode = 33
	OpConstantTrue          OpCode = 41
	OpConstantFalse         OpCode = 42
	OpConstant              OpCode = 43
	OpConstantComposite     OpCode = 44
	OpFunction              OpCode = 54
	OpFunctionParameter     OpCode = 55
	OpFunctionEnd           OpCode = 56
	OpFunctionCall          OpCode = 57
	OpVariable              OpCode = 59
	OpLoad                  OpCode = 61
	OpStore                 OpCode = 62
	OpAccessChain           OpCode = 65
	OpDecorate              OpCode = 71
	OpMemberDecorate        OpCode = 72
	OpVectorShuffle         OpCode = 79
	OpCompositeConstruct    OpCode = 80
	OpCompositeExtract      OpCode = 81
	OpCompositeInsert       OpCode = 82
	OpConvertFToS          OpCode = 110
	OpConvertSToF           OpCode = 111
	OpFNegate               OpCode = 127
	OpIAdd                  OpCode = 128
	OpFAdd                  OpCode = 129
	OpFSub                  OpCode = 131
	OpFMul                  OpCode = 133
	OpFDiv                  OpCode = 136
	OpVectorTimesScalar     OpCode = 142
	OpDot                   OpCode = 148
	OpAny                   OpCode = 154
	OpLogicalAnd            OpCode = 167
	OpLogicalNot            OpCode = 168
	OpSelect                OpCode = 169
	OpIEqual                OpCode = 170
	OpINotEqual             OpCode = 171
	OpSLessThan             OpCode = 177
	OpFOrdEqual             OpCode = 180
	OpFOrdNotEqual          OpCode = 182
	OpFOrdLessThan          OpCode = 184
	OpFOrdGreaterThan       OpCode = 186
	OpFOrdLessThanEqual     OpCode = 188
	OpFOrdGreaterThanEqual  OpCode = 190
	OpDPdx                  OpCode = 207
	OpDPdy                  OpCode = 208
	OpLoopMerge             OpCode = 246
	OpSelectionMerge        OpCode = 247
	OpLabel                 OpCode = 248
	OpBranch                OpCode = 249
	OpBranchConditional     OpCode = 250
	OpKill                  OpCode = 252
	OpReturn                OpCode = 253
	OpReturnValue           OpCode = 254
)

// Image sampling opcodes.
const (
	OpSampledImage               OpCode = 86
	OpImageSampleImplicitLod     OpCode = 87
	OpImageSampleExplicitLod     OpCode = 88
	OpImageSampleProjImplicitLod OpCode = 91
)

// Capability represents a SPIR-V capability.
type Capability uint32

const (
	CapabilityMatrix Capability = 0
	CapabilityShader Capability = 1
)

// AddressingModel is the operand of OpMemoryModel.
type AddressingModel uint32

const AddressingModelLogical AddressingModel = 0

// MemoryModel is the operand of OpMemoryModel.
type MemoryModel uint32

const MemoryModelGLSL450 MemoryModel = 1

// ExecutionModel identifies the stage of an entry point.
type ExecutionModel uint32

const (
	ExecutionModelVertex   ExecutionModel = 0
	ExecutionModelFragment ExecutionModel = 4
)

// ExecutionMode configures an entry point.
type ExecutionMode uint32

const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeOriginLowerLeft ExecutionMode = 8
	ExecutionModeDepthReplacing  ExecutionMode = 12
)

// StorageClass is the storage class of a pointer or variable.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationArrayStride   Decoration = 6
	DecorationBuiltIn       Decoration = 11
	DecorationCentroid      Decoration = 16
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn is the operand of a BuiltIn decoration.
type BuiltIn uint32

const (
	BuiltInPosition    BuiltIn = 0
	BuiltInPointSize   BuiltIn = 1
	BuiltInFragCoord   BuiltIn = 15
	BuiltInFrontFacing BuiltIn = 17
	BuiltInFragDepth   BuiltIn = 22
)

// Dim is the dimensionality of an image type.
type Dim uint32

const (
	Dim2D   Dim = 1
	Dim3D   Dim = 2
	DimCube Dim = 3
)

// ImageOperands selects the optional operands of an image instruction.
type ImageOperands uint32

const (
	ImageOperandsBias ImageOperands = 0x1
	ImageOperandsLod  ImageOperands = 0x2
	ImageOperandsGrad ImageOperands = 0x4
)

// FunctionControl, SelectionControl and LoopControl hints.
type (
	FunctionControl  uint32
	SelectionControl uint32
	LoopControl      uint32
)

const (
	FunctionControlNone  FunctionControl  = 0
	SelectionControlNone SelectionControl = 0
	LoopControlNone      LoopControl      = 0
)

// GLSL.std.450 extended instructions.
const (
	GLSLstd450FAbs        uint32 = 4
	GLSLstd450FSign       uint32 = 6
	GLSLstd450Floor       uint32 = 8
	GLSLstd450Fract       uint32 = 10
	GLSLstd450Sin         uint32 = 13
	GLSLstd450Cos         uint32 = 14
	GLSLstd450Pow         uint32 = 26
	GLSLstd450Exp2        uint32 = 29
	GLSLstd450Log2        uint32 = 30
	GLSLstd450InverseSqrt uint32 = 32
	GLSLstd450FMin        uint32 = 37
	GLSLstd450FMax        uint32 = 40
	GLSLstd450FClamp      uint32 = 43
	GLSLstd450FMix        uint32 = 46
	GLSLstd450Cross       uint32 = 68
)
