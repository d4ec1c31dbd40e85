package spirv

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{words: make([]uint32, 0, 8)}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddString adds a nul-terminated UTF-8 literal padded to a word boundary.
func (b *InstructionBuilder) AddString(s string) {
	b.words = appendString(b.words, s)
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{Opcode: opcode, Words: b.words}
}

// Encode encodes the instruction to binary.
func (i Instruction) Encode() []uint32 {
	wordCount := uint32(len(i.Words) + 1)
	result := make([]uint32, 0, wordCount)
	result = append(result, (wordCount<<16)|uint32(i.Opcode))
	return append(result, i.Words...)
}

func appendString(words []uint32, s string) []uint32 {
	buf := make([]byte, (len(s)/4+1)*4)
	copy(buf, s)
	for i := 0; i < len(buf); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(buf[i:]))
	}
	return words
}

// section is a logical layout section of a module, in the order the
// binary requires.
type section uint8

const (
	secCapabilities section = iota
	secExtensions
	secExtInstImports
	secMemoryModel
	secEntryPoints
	secExecutionModes
	secDebugStrings
	secDebugNames
	secAnnotations
	secTypes // OpType*, OpConstant*
	secGlobals
	secFunctions
	sectionCount
)

// ModuleBuilder builds complete SPIR-V modules. Non-aggregate types and
// scalar or composite constants are deduplicated.
type ModuleBuilder struct {
	version   Version
	generator uint32
	schema    uint32

	sections [sectionCount][]Instruction
	unique   map[string]uint32
	nextID   uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		unique:    make(map[string]uint32),
		nextID:    1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns one past the largest allocated ID.
func (b *ModuleBuilder) Bound() uint32 { return b.nextID }

func (b *ModuleBuilder) emit(sec section, op OpCode, words ...uint32) {
	b.sections[sec] = append(b.sections[sec], Instruction{Opcode: op, Words: words})
}

// result emits op with a fresh result ID placed after the result type.
// A zero resultType marks an instruction with no result type.
func (b *ModuleBuilder) result(sec section, op OpCode, resultType uint32, operands ...uint32) uint32 {
	id := b.AllocID()
	words := make([]uint32, 0, len(operands)+2)
	if resultType != 0 {
		words = append(words, resultType)
	}
	words = append(words, id)
	b.emit(sec, op, append(words, operands...)...)
	return id
}

// uniq returns the ID of an identical earlier type or constant, or emits
// a new one.
func (b *ModuleBuilder) uniq(op OpCode, resultType uint32, operands ...uint32) uint32 {
	var key strings.Builder
	fmt.Fprintf(&key, "%d:%d", op, resultType)
	for _, w := range operands {
		fmt.Fprintf(&key, ",%d", w)
	}
	if id, ok := b.unique[key.String()]; ok {
		return id
	}
	id := b.result(secTypes, op, resultType, operands...)
	b.unique[key.String()] = id
	return id
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	b.emit(secCapabilities, OpCapability, uint32(capability))
}

// AddExtension adds an extension.
func (b *ModuleBuilder) AddExtension(name string) {
	b.emit(secExtensions, OpExtension, appendString(nil, name)...)
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	return b.result(secExtInstImports, OpExtInstImport, 0, appendString(nil, name)...)
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	b.sections[secMemoryModel] = []Instruction{{
		Opcode: OpMemoryModel,
		Words:  []uint32{uint32(addressing), uint32(memory)},
	}}
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	words := appendString([]uint32{uint32(execModel), funcID}, name)
	b.emit(secEntryPoints, OpEntryPoint, append(words, interfaces...)...)
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ExecutionMode, params ...uint32) {
	b.emit(secExecutionModes, OpExecutionMode, append([]uint32{entryPoint, uint32(mode)}, params...)...)
}

// AddString adds a debug string.
func (b *ModuleBuilder) AddString(text string) uint32 {
	return b.result(secDebugStrings, OpString, 0, appendString(nil, text)...)
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	b.emit(secDebugNames, OpName, appendString([]uint32{id}, name)...)
}

// AddMemberName adds a debug member name.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	b.emit(secDebugNames, OpMemberName, appendString([]uint32{structID, member}, name)...)
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	b.emit(secAnnotations, OpDecorate, append([]uint32{id, uint32(decoration)}, params...)...)
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	b.emit(secAnnotations, OpMemberDecorate, append([]uint32{structID, member, uint32(decoration)}, params...)...)
}

// =============================================================================
// Types and constants
// =============================================================================

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() uint32 { return b.uniq(OpTypeVoid, 0) }

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() uint32 { return b.uniq(OpTypeBool, 0) }

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) uint32 {
	return b.uniq(OpTypeFloat, 0, width)
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) uint32 {
	var s uint32
	if signed {
		s = 1
	}
	return b.uniq(OpTypeInt, 0, width, s)
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType uint32, count uint32) uint32 {
	return b.uniq(OpTypeVector, 0, componentType, count)
}

// AddTypeMatrix adds OpTypeMatrix.
func (b *ModuleBuilder) AddTypeMatrix(columnType uint32, columnCount uint32) uint32 {
	return b.uniq(OpTypeMatrix, 0, columnType, columnCount)
}

// AddTypeArray adds OpTypeArray. length is the ID of a constant.
// Arrays are not shared so each can carry its own ArrayStride.
func (b *ModuleBuilder) AddTypeArray(elementType uint32, length uint32) uint32 {
	return b.result(secTypes, OpTypeArray, 0, elementType, length)
}

// AddTypePointer adds OpTypePointer.
func (b *ModuleBuilder) AddTypePointer(storageClass StorageClass, baseType uint32) uint32 {
	return b.uniq(OpTypePointer, 0, uint32(storageClass), baseType)
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType uint32, paramTypes ...uint32) uint32 {
	return b.uniq(OpTypeFunction, 0, append([]uint32{returnType}, paramTypes...)...)
}

// AddTypeStruct adds OpTypeStruct.
func (b *ModuleBuilder) AddTypeStruct(memberTypes ...uint32) uint32 {
	return b.result(secTypes, OpTypeStruct, 0, memberTypes...)
}

// AddTypeImage adds a single-sampled, non-arrayed float image type.
func (b *ModuleBuilder) AddTypeImage(sampledType uint32, dim Dim) uint32 {
	// depth 0, arrayed 0, ms 0, sampled 1, format Unknown
	return b.uniq(OpTypeImage, 0, sampledType, uint32(dim), 0, 0, 0, 1, 0)
}

// AddTypeSampledImage adds OpTypeSampledImage.
func (b *ModuleBuilder) AddTypeSampledImage(imageType uint32) uint32 {
	return b.uniq(OpTypeSampledImage, 0, imageType)
}

// AddConstant adds OpConstant.
func (b *ModuleBuilder) AddConstant(typeID uint32, values ...uint32) uint32 {
	return b.uniq(OpConstant, typeID, values...)
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID uint32, value float32) uint32 {
	return b.AddConstant(typeID, math.Float32bits(value))
}

// AddConstantBool adds OpConstantTrue or OpConstantFalse.
func (b *ModuleBuilder) AddConstantBool(typeID uint32, value bool) uint32 {
	if value {
		return b.uniq(OpConstantTrue, typeID)
	}
	return b.uniq(OpConstantFalse, typeID)
}

// AddConstantComposite adds OpConstantComposite.
func (b *ModuleBuilder) AddConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	return b.uniq(OpConstantComposite, typeID, constituents...)
}

// =============================================================================
// Variables and functions
// =============================================================================

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType uint32, storageClass StorageClass) uint32 {
	return b.result(secGlobals, OpVariable, pointerType, uint32(storageClass))
}

// AddVariableWithInit adds a module-scope OpVariable with an initializer.
func (b *ModuleBuilder) AddVariableWithInit(pointerType uint32, storageClass StorageClass, initID uint32) uint32 {
	return b.result(secGlobals, OpVariable, pointerType, uint32(storageClass), initID)
}

// AddFunction begins a function definition.
func (b *ModuleBuilder) AddFunction(funcType uint32, returnType uint32, control FunctionControl) uint32 {
	return b.result(secFunctions, OpFunction, returnType, uint32(control), funcType)
}

// AddFunctionAt begins a function definition with a preallocated ID.
func (b *ModuleBuilder) AddFunctionAt(id, funcType, returnType uint32, control FunctionControl) {
	b.emit(secFunctions, OpFunction, returnType, id, uint32(control), funcType)
}

// AddLabel adds a label with a fresh ID.
func (b *ModuleBuilder) AddLabel() uint32 {
	id := b.AllocID()
	b.PlaceLabel(id)
	return id
}

// PlaceLabel starts a block whose label ID was allocated earlier.
func (b *ModuleBuilder) PlaceLabel(id uint32) {
	b.emit(secFunctions, OpLabel, id)
}

// AddReturn adds OpReturn.
func (b *ModuleBuilder) AddReturn() { b.emit(secFunctions, OpReturn) }

// AddFunctionEnd adds OpFunctionEnd.
func (b *ModuleBuilder) AddFunctionEnd() { b.emit(secFunctions, OpFunctionEnd) }

// AddFunctionCall adds OpFunctionCall.
func (b *ModuleBuilder) AddFunctionCall(resultType, function uint32, args ...uint32) uint32 {
	return b.result(secFunctions, OpFunctionCall, resultType, append([]uint32{function}, args...)...)
}

// =============================================================================
// Code
// =============================================================================

// AddOp adds an instruction with a result type and result ID.
func (b *ModuleBuilder) AddOp(opcode OpCode, resultType uint32, operands ...uint32) uint32 {
	return b.result(secFunctions, opcode, resultType, operands...)
}

// AddBinaryOp adds a binary operation instruction.
func (b *ModuleBuilder) AddBinaryOp(opcode OpCode, resultType uint32, left uint32, right uint32) uint32 {
	return b.AddOp(opcode, resultType, left, right)
}

// AddUnaryOp adds a unary operation instruction.
func (b *ModuleBuilder) AddUnaryOp(opcode OpCode, resultType uint32, operand uint32) uint32 {
	return b.AddOp(opcode, resultType, operand)
}

// AddLoad adds OpLoad.
func (b *ModuleBuilder) AddLoad(resultType uint32, pointer uint32) uint32 {
	return b.AddOp(OpLoad, resultType, pointer)
}

// AddStore adds OpStore.
func (b *ModuleBuilder) AddStore(pointer uint32, value uint32) {
	b.emit(secFunctions, OpStore, pointer, value)
}

// AddAccessChain adds OpAccessChain.
func (b *ModuleBuilder) AddAccessChain(resultType uint32, base uint32, indices ...uint32) uint32 {
	return b.AddOp(OpAccessChain, resultType, append([]uint32{base}, indices...)...)
}

// AddCompositeConstruct adds OpCompositeConstruct.
func (b *ModuleBuilder) AddCompositeConstruct(resultType uint32, constituents ...uint32) uint32 {
	return b.AddOp(OpCompositeConstruct, resultType, constituents...)
}

// AddCompositeExtract adds OpCompositeExtract.
func (b *ModuleBuilder) AddCompositeExtract(resultType uint32, composite uint32, indices ...uint32) uint32 {
	return b.AddOp(OpCompositeExtract, resultType, append([]uint32{composite}, indices...)...)
}

// AddCompositeInsert adds OpCompositeInsert.
func (b *ModuleBuilder) AddCompositeInsert(resultType uint32, object, composite uint32, indices ...uint32) uint32 {
	return b.AddOp(OpCompositeInsert, resultType, append([]uint32{object, composite}, indices...)...)
}

// AddVectorShuffle adds OpVectorShuffle for vector swizzle operations.
func (b *ModuleBuilder) AddVectorShuffle(resultType uint32, vec1 uint32, vec2 uint32, components []uint32) uint32 {
	return b.AddOp(OpVectorShuffle, resultType, append([]uint32{vec1, vec2}, components...)...)
}

// AddSelect adds OpSelect.
func (b *ModuleBuilder) AddSelect(resultType uint32, condition uint32, accept uint32, reject uint32) uint32 {
	return b.AddOp(OpSelect, resultType, condition, accept, reject)
}

// AddImageSample adds an image sampling instruction. Image operand IDs
// follow the operand mask when it is non-zero.
func (b *ModuleBuilder) AddImageSample(opcode OpCode, resultType, sampledImage, coord uint32, mask ImageOperands, operands ...uint32) uint32 {
	words := []uint32{sampledImage, coord}
	if mask != 0 {
		words = append(words, uint32(mask))
		words = append(words, operands...)
	}
	return b.AddOp(opcode, resultType, words...)
}

// AddSelectionMerge adds OpSelectionMerge.
func (b *ModuleBuilder) AddSelectionMerge(mergeLabel uint32, control SelectionControl) {
	b.emit(secFunctions, OpSelectionMerge, mergeLabel, uint32(control))
}

// AddLoopMerge adds OpLoopMerge.
func (b *ModuleBuilder) AddLoopMerge(mergeLabel uint32, continueLabel uint32, control LoopControl) {
	b.emit(secFunctions, OpLoopMerge, mergeLabel, continueLabel, uint32(control))
}

// AddBranch adds OpBranch.
func (b *ModuleBuilder) AddBranch(target uint32) {
	b.emit(secFunctions, OpBranch, target)
}

// AddBranchConditional adds OpBranchConditional.
func (b *ModuleBuilder) AddBranchConditional(condition uint32, trueLabel uint32, falseLabel uint32) {
	b.emit(secFunctions, OpBranchConditional, condition, trueLabel, falseLabel)
}

// AddKill adds OpKill (fragment shader discard).
func (b *ModuleBuilder) AddKill() { b.emit(secFunctions, OpKill) }

// AddExtInst adds OpExtInst (extended instruction).
func (b *ModuleBuilder) AddExtInst(resultType uint32, extSet uint32, instruction uint32, operands ...uint32) uint32 {
	return b.AddOp(OpExtInst, resultType, append([]uint32{extSet, instruction}, operands...)...)
}

// =============================================================================
// Output
// =============================================================================

// Words returns the module as words: the five-word header followed by
// every section in layout order.
func (b *ModuleBuilder) Words() []uint32 {
	words := []uint32{
		MagicNumber,
		versionToWord(b.version),
		b.generator,
		b.nextID,
		b.schema,
	}
	for _, sec := range b.sections {
		for _, inst := range sec {
			words = append(words, inst.Encode()...)
		}
	}
	return words
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	words := b.Words()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}
