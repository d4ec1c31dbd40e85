package spirv

import (
	"encoding/binary"
	"strconv"

	"github.com/gogpu/d3dbc/ir"
)

type valueKind uint8

const (
	kindFloat valueKind = iota
	kindInt
	kindBool
)

type regKey struct {
	t   ir.RegisterType
	num int
}

// variable is the Private variable backing a register.
type variable struct {
	id    uint32
	kind  valueKind
	width int
}

// member is a member of the uniform block.
type member uint8

const (
	memberFloat member = iota
	memberInt
	memberBool
	memberTexbem
	memberCount
)

type copyIn struct {
	dst, src uint32
	face     bool
}

type copyOut struct {
	src, dst uint32
	scalar   bool
}

// emitter lowers one Program to a SPIR-V module. An emitter is used once.
type emitter struct {
	prog   *ir.Program
	opts   *Options
	gl     bool
	prefix string

	b   *ModuleBuilder
	std uint32

	tVoid, tBool, tFloat, tInt uint32

	regs     map[regKey]variable
	consts   map[regKey]uint32
	arrays   map[int]uint32
	ubo      uint32
	members  [memberCount]int
	samplers map[int]uint32
	sampled  map[int]uint32

	iface   []uint32
	patches []patch
	inputs  []copyIn
	outputs []copyOut
	subs    map[int]uint32

	cur       *ir.Instruction
	err       *ir.Error
	inMain    bool
	label     int
	ifs       []ifFrame
	loops     []loopFrame
	counters  []uint32
	aLs       []uint32
	pads      []padRow
	texbem    int
	fragDepth bool
}

func newEmitter(prog *ir.Program, opts *Options) *emitter {
	e := &emitter{
		prog:     prog,
		opts:     opts,
		gl:       opts.Profile == ProfileGLSPIRV,
		prefix:   prog.Type.Prefix(),
		b:        NewModuleBuilder(Version1_0),
		regs:     make(map[regKey]variable),
		consts:   make(map[regKey]uint32),
		arrays:   make(map[int]uint32),
		samplers: make(map[int]uint32),
		sampled:  make(map[int]uint32),
		subs:     make(map[int]uint32),
		label:    -1,
	}
	for i := range e.members {
		e.members[i] = -1
	}
	return e
}

// emit builds the module and appends its patch table.
func (e *emitter) emit() ([]byte, error) {
	e.b.AddCapability(CapabilityShader)
	e.std = e.b.AddExtInstImport("GLSL.std.450")
	e.b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	e.tVoid = e.b.AddTypeVoid()
	e.tBool = e.b.AddTypeBool()
	e.tFloat = e.b.AddTypeFloat(32)
	e.tInt = e.b.AddTypeInt(32, true)

	e.scanTexbem()
	e.declareUniforms()
	e.declareSamplers()
	e.declareConstants()
	e.declareRegisters()
	e.declareInterface()

	main, subs := e.prog.Split()
	for _, s := range subs {
		e.subs[s.Label] = e.b.AllocID()
		e.b.AddName(e.subs[s.Label], e.name(ir.RegLabel, s.Label))
	}
	mainID := e.b.AllocID()
	fnType := e.b.AddTypeFunction(e.tVoid)
	for _, s := range subs {
		e.label = s.Label
		e.function(e.subs[s.Label], fnType, s.Body, false)
	}
	e.label = -1
	e.function(mainID, fnType, main, true)
	if e.err != nil {
		return nil, e.err
	}

	if e.prog.IsVertex() {
		e.b.AddEntryPoint(ExecutionModelVertex, mainID, e.opts.EntryPoint, e.iface)
	} else {
		e.b.AddEntryPoint(ExecutionModelFragment, mainID, e.opts.EntryPoint, e.iface)
		origin := ExecutionModeOriginUpperLeft
		if e.gl {
			origin = ExecutionModeOriginLowerLeft
		}
		e.b.AddExecutionMode(mainID, origin)
		if e.fragDepth {
			e.b.AddExecutionMode(mainID, ExecutionModeDepthReplacing)
		}
	}
	e.b.AddName(mainID, e.opts.EntryPoint)

	words := e.b.Words()
	table, err := patchTable(words, e.patches)
	if err != nil {
		return nil, err
	}
	words = append(words, table...)
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out, nil
}

func (e *emitter) fail(format string, args ...any) {
	if e.err != nil {
		return
	}
	pos := ir.PositionNone
	if e.cur != nil {
		pos = e.cur.Offset
	}
	e.err = ir.NewError(ir.ErrProfile, pos, format, args...)
}

// =============================================================================
// Names
// =============================================================================

func (e *emitter) name(t ir.RegisterType, num int) string {
	return e.prefix + "_" + ir.RegisterName(e.prog.Type, e.prog.Version, t, num)
}

func varying(u ir.Usage, index int) string {
	return "v_" + u.String() + strconv.Itoa(index)
}

func attribute(u ir.Usage, index int) string {
	return "a_" + u.String() + strconv.Itoa(index)
}

func (e *emitter) memberName(m member) string {
	switch m {
	case memberInt:
		return e.prefix + "_uniforms_ivec4"
	case memberBool:
		return e.prefix + "_uniforms_bool"
	case memberTexbem:
		return e.prefix + "_texbem"
	}
	return e.prefix + "_uniforms_vec4"
}

func (e *emitter) constArrayName(index int) string {
	return e.prefix + "_c_array_" + strconv.Itoa(index)
}

// =============================================================================
// Declarations
// =============================================================================

func (e *emitter) typeOf(k valueKind, n int) uint32 {
	s := e.tFloat
	switch k {
	case kindInt:
		s = e.tInt
	case kindBool:
		s = e.tBool
	}
	if n == 1 {
		return s
	}
	return e.b.AddTypeVector(s, uint32(n))
}

func (e *emitter) ptr(sc StorageClass, t uint32) uint32 {
	return e.b.AddTypePointer(sc, t)
}

// scanTexbem sizes the texbem uniform from the stages bump lookups read
// without a folded environment.
func (e *emitter) scanTexbem() {
	for i := range e.prog.Instructions {
		inst := &e.prog.Instructions[i]
		switch inst.Op {
		case ir.OpTexBem, ir.OpTexBemL, ir.OpBem:
		default:
			continue
		}
		stage := inst.Dest.RegNum
		if _, ok := e.opts.BumpEnv[stage]; !ok && stage+1 > e.texbem {
			e.texbem = stage + 1
		}
	}
}

func (e *emitter) memberElem(m member) uint32 {
	switch m {
	case memberInt:
		return e.typeOf(kindInt, 4)
	case memberBool:
		return e.tInt
	}
	return e.typeOf(kindFloat, 4)
}

func (e *emitter) declareUniforms() {
	counts := [memberCount]int{
		memberFloat:  e.prog.UniformSlots(ir.UniformFloat),
		memberInt:    e.prog.UniformSlots(ir.UniformInt),
		memberBool:   e.prog.UniformSlots(ir.UniformBool),
		memberTexbem: 2 * e.texbem,
	}
	var types []uint32
	var present []member
	for m, n := range counts {
		if n == 0 {
			continue
		}
		arr := e.b.AddTypeArray(e.memberElem(member(m)), e.iconst(n))
		e.b.AddDecorate(arr, DecorationArrayStride, 16)
		e.members[m] = len(types)
		types = append(types, arr)
		present = append(present, member(m))
	}
	if len(types) == 0 {
		return
	}

	st := e.b.AddTypeStruct(types...)
	e.b.AddDecorate(st, DecorationBlock)
	e.b.AddName(st, e.prefix+"_uniforms")
	offset := 0
	for i, m := range present {
		e.b.AddMemberDecorate(st, uint32(i), DecorationOffset, uint32(offset))
		e.b.AddMemberName(st, uint32(i), e.memberName(m))
		offset += 16 * counts[m]
	}

	e.ubo = e.b.AddVariable(e.ptr(StorageClassUniform, st), StorageClassUniform)
	e.b.AddName(e.ubo, e.prefix+"_uniforms")
	set, binding := e.uniformBinding()
	e.b.AddDecorate(e.ubo, DecorationDescriptorSet, set)
	e.b.AddDecorate(e.ubo, DecorationBinding, binding)
}

func (e *emitter) uniformBinding() (set, binding uint32) {
	switch {
	case e.gl && e.prog.IsVertex():
		return 0, 0
	case e.gl:
		return 0, 1
	case e.prog.IsVertex():
		return 0, 0
	}
	return 1, 0
}

func (e *emitter) samplerBinding(index int) (set, binding uint32) {
	switch {
	case e.gl && e.prog.IsVertex():
		return 0, uint32(16 + index)
	case e.gl:
		return 0, uint32(index)
	case e.prog.IsVertex():
		return 2, uint32(index)
	}
	return 3, uint32(index)
}

func samplerDim(t ir.SamplerType) Dim {
	switch t {
	case ir.SamplerCube:
		return DimCube
	case ir.SamplerVolume:
		return Dim3D
	}
	return Dim2D
}

func (e *emitter) declareSamplers() {
	for _, s := range e.prog.Samplers {
		img := e.b.AddTypeImage(e.tFloat, samplerDim(s.Type))
		si := e.b.AddTypeSampledImage(img)
		v := e.b.AddVariable(e.ptr(StorageClassUniformConstant, si), StorageClassUniformConstant)
		e.b.AddName(v, e.name(ir.RegSampler, s.Index))
		set, binding := e.samplerBinding(s.Index)
		e.b.AddDecorate(v, DecorationDescriptorSet, set)
		e.b.AddDecorate(v, DecorationBinding, binding)
		e.samplers[s.Index] = v
		e.sampled[s.Index] = si
	}
}

func (e *emitter) vec4Const(v [4]float32) uint32 {
	return e.b.AddConstantComposite(e.typeOf(kindFloat, 4),
		e.fconst(v[0]), e.fconst(v[1]), e.fconst(v[2]), e.fconst(v[3]))
}

func (e *emitter) declareConstants() {
	for _, c := range e.prog.Constants {
		var id uint32
		switch c.Type {
		case ir.UniformFloat:
			id = e.vec4Const(c.Float)
		case ir.UniformInt:
			id = e.b.AddConstantComposite(e.typeOf(kindInt, 4),
				e.iconst(int(c.Int[0])), e.iconst(int(c.Int[1])), e.iconst(int(c.Int[2])), e.iconst(int(c.Int[3])))
		case ir.UniformBool:
			id = e.b.AddConstantBool(e.tBool, c.Bool)
		}
		e.consts[regKey{c.Type.RegisterType(), c.Index}] = id
	}

	vec4 := e.typeOf(kindFloat, 4)
	for i := range e.prog.Uniforms {
		u := &e.prog.Uniforms[i]
		if !u.Constant {
			continue
		}
		vals := make([]uint32, u.Slots())
		for j := range vals {
			var v [4]float32
			if c := e.prog.Constant(ir.UniformFloat, u.Index+j); c != nil {
				v = c.Float
			}
			vals[j] = e.vec4Const(v)
		}
		arr := e.b.AddTypeArray(vec4, e.iconst(len(vals)))
		init := e.b.AddConstantComposite(arr, vals...)
		v := e.b.AddVariableWithInit(e.ptr(StorageClassPrivate, arr), StorageClassPrivate, init)
		e.b.AddName(v, e.constArrayName(u.Index))
		e.arrays[u.Index] = v
	}
}

// declareRegisters creates a zero-initialized Private variable for every
// register the program reads or writes as a value.
func (e *emitter) declareRegisters() {
	for i := range e.prog.Registers {
		r := &e.prog.Registers[i]
		kind, width := kindFloat, 4
		switch r.Type {
		case ir.RegTemp, ir.RegInput, ir.RegRastOut, ir.RegAttrOut, ir.RegOutput, ir.RegColorOut, ir.RegDepthOut:
		case ir.RegAddress:
			if e.prog.IsVertex() {
				kind = kindInt
			}
		case ir.RegPredicate:
			kind = kindBool
		case ir.RegMisc:
			if r.Num == ir.MiscFace {
				width = 1
			}
		default:
			continue
		}
		v := e.privateVar(kind, width, e.name(r.Type, r.Num))
		e.regs[regKey{r.Type, r.Num}] = variable{v, kind, width}
	}
}

func (e *emitter) privateVar(kind valueKind, width int, name string) uint32 {
	t := e.typeOf(kind, width)
	v := e.b.AddVariableWithInit(e.ptr(StorageClassPrivate, t), StorageClassPrivate, e.zero(kind, width))
	e.b.AddName(v, name)
	return v
}

func (e *emitter) interfaceVar(sc StorageClass, t uint32, name string) uint32 {
	v := e.b.AddVariable(e.ptr(sc, t), sc)
	e.b.AddName(v, name)
	e.iface = append(e.iface, v)
	return v
}

func (e *emitter) builtin(sc StorageClass, t uint32, b BuiltIn, name string) uint32 {
	v := e.interfaceVar(sc, t, name)
	e.b.AddDecorate(v, DecorationBuiltIn, uint32(b))
	return v
}

// located decorates a patchable interface variable with its default
// location and records it in the patch table.
func (e *emitter) located(v uint32, u ir.Usage, index, loc int) {
	e.b.AddDecorate(v, DecorationLocation, uint32(loc))
	e.patches = append(e.patches, patch{usage: u, index: index, target: v})
}

func (e *emitter) declareInterface() {
	vec4 := e.typeOf(kindFloat, 4)
	if e.prog.IsVertex() {
		for i, a := range e.prog.Attributes {
			reg, ok := e.regs[regKey{a.RegType, a.RegNum}]
			if !ok {
				continue
			}
			in := e.interfaceVar(StorageClassInput, vec4, attribute(a.Usage, a.Index))
			e.located(in, a.Usage, a.Index, i)
			e.inputs = append(e.inputs, copyIn{dst: reg.id, src: in})
		}
	} else {
		loc := 0
		for i := range e.prog.Registers {
			r := &e.prog.Registers[i]
			reg, ok := e.regs[regKey{r.Type, r.Num}]
			if !ok {
				continue
			}
			switch {
			case r.Type == ir.RegMisc && r.Num == ir.MiscFace:
				in := e.builtin(StorageClassInput, e.tBool, BuiltInFrontFacing, "FrontFacing")
				e.inputs = append(e.inputs, copyIn{dst: reg.id, src: in, face: true})
			case r.Type == ir.RegMisc:
				in := e.builtin(StorageClassInput, vec4, BuiltInFragCoord, "FragCoord")
				e.inputs = append(e.inputs, copyIn{dst: reg.id, src: in})
			case isVaryingInput(r):
				in := e.interfaceVar(StorageClassInput, vec4, varying(r.Usage, r.UsageIndex))
				if r.Mod&ir.ResultModCentroid != 0 {
					e.b.AddDecorate(in, DecorationCentroid)
				}
				e.located(in, r.Usage, r.UsageIndex, loc)
				loc++
				e.inputs = append(e.inputs, copyIn{dst: reg.id, src: in})
			}
		}
	}

	loc := 0
	for i := range e.prog.Outputs {
		o := &e.prog.Outputs[i]
		reg, ok := e.regs[regKey{o.RegType, o.RegNum}]
		if !ok {
			continue
		}
		out := copyOut{src: reg.id}
		switch {
		case e.prog.IsPixel() && (o.Usage == ir.UsageDepth || o.RegType == ir.RegDepthOut):
			out.dst = e.builtin(StorageClassOutput, e.tFloat, BuiltInFragDepth, "FragDepth")
			out.scalar = true
			e.fragDepth = true
		case e.prog.IsPixel():
			out.dst = e.interfaceVar(StorageClassOutput, vec4, "FragData"+strconv.Itoa(o.Index))
			e.b.AddDecorate(out.dst, DecorationLocation, uint32(o.Index))
		case o.Usage == ir.UsagePosition && o.Index == 0:
			out.dst = e.builtin(StorageClassOutput, vec4, BuiltInPosition, "Position")
		case o.Usage == ir.UsagePointSize:
			out.dst = e.builtin(StorageClassOutput, e.tFloat, BuiltInPointSize, "PointSize")
			out.scalar = true
		default:
			out.dst = e.interfaceVar(StorageClassOutput, vec4, varying(o.Usage, o.Index))
			e.located(out.dst, o.Usage, o.Index, loc)
			loc++
		}
		e.outputs = append(e.outputs, out)
	}
}

func isVaryingInput(r *ir.Register) bool {
	if r.Usage == ir.UsageUnknown || r.Type == ir.RegMisc {
		return false
	}
	return r.Type == ir.RegInput || r.Type == ir.RegTexture
}

// =============================================================================
// Functions
// =============================================================================

func (e *emitter) function(id, fnType uint32, body []ir.Instruction, main bool) {
	e.b.AddFunctionAt(id, fnType, e.tVoid, FunctionControlNone)
	e.b.AddLabel()
	e.inMain = main
	e.ifs, e.loops, e.pads = nil, nil, nil
	if main {
		e.prologue()
	}
	e.block(body)
	if len(e.ifs) > 0 || len(e.loops) > 0 {
		e.fail("unterminated flow control at the end of %s", e.functionName())
	}
	if main {
		e.epilogue()
	}
	e.b.AddReturn()
	e.b.AddFunctionEnd()
}

func (e *emitter) functionName() string {
	if e.inMain {
		return "the main body"
	}
	return "l" + strconv.Itoa(e.label)
}

// block lowers a straight run of instructions. A trailing RET at the top
// level ends the body and emits nothing.
func (e *emitter) block(insts []ir.Instruction) {
	for i := range insts {
		inst := &insts[i]
		if inst.Op == ir.OpRet && i == len(insts)-1 && len(e.ifs) == 0 && len(e.loops) == 0 {
			continue
		}
		e.cur = inst
		e.instruction(inst)
	}
	e.cur = nil
}

func (e *emitter) prologue() {
	vec4 := e.typeOf(kindFloat, 4)
	for _, c := range e.inputs {
		if c.face {
			front := e.b.AddLoad(e.tBool, c.src)
			e.b.AddStore(c.dst, e.b.AddSelect(e.tFloat, front, e.fconst(1), e.fconst(-1)))
			continue
		}
		e.b.AddStore(c.dst, e.b.AddLoad(vec4, c.src))
	}
}

func (e *emitter) epilogue() {
	vec4 := e.typeOf(kindFloat, 4)
	for _, c := range e.outputs {
		v := e.b.AddLoad(vec4, c.src)
		if c.scalar {
			v = e.b.AddCompositeExtract(e.tFloat, v, 0)
		}
		e.b.AddStore(c.dst, v)
	}
}

// =============================================================================
// Results
// =============================================================================

func (e *emitter) translation(code []byte) *ir.Translation {
	t := ir.NewTranslation(e.opts.Profile, e.prog)
	t.Code = code
	t.MainFn = e.opts.EntryPoint
	t.NameResources(
		func(u *ir.Uniform) string {
			if u.Constant {
				return e.constArrayName(u.Index)
			}
			switch u.Type {
			case ir.UniformInt:
				return e.memberName(memberInt)
			case ir.UniformBool:
				return e.memberName(memberBool)
			}
			return e.memberName(memberFloat)
		},
		func(s *ir.Sampler) string { return e.name(ir.RegSampler, s.Index) },
		func(a *ir.Attribute, output bool) string {
			switch {
			case !output && e.prog.IsVertex():
				return attribute(a.Usage, a.Index)
			case !output:
				return varying(a.Usage, a.Index)
			case e.prog.IsPixel() && (a.Usage == ir.UsageDepth || a.RegType == ir.RegDepthOut):
				return "FragDepth"
			case e.prog.IsPixel():
				return "FragData" + strconv.Itoa(a.Index)
			case a.Usage == ir.UsagePosition && a.Index == 0:
				return "Position"
			case a.Usage == ir.UsagePointSize:
				return "PointSize"
			}
			return varying(a.Usage, a.Index)
		},
	)
	return t
}
