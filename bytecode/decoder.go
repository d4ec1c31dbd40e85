package bytecode

import (
	"encoding/binary"
	"sort"

	"go.uber.org/zap"

	"github.com/gogpu/d3dbc/ir"
)

// Options configures decoding.
type Options struct {
	// Filename is attached to every error record.
	Filename string

	// Logger receives debug output; nil means no logging.
	Logger *zap.Logger
}

type regKey struct {
	t   ir.RegisterType
	num int
}

type samplerState struct {
	declared ir.SamplerType
	implied  ir.SamplerType
	texbem   bool
	// declOffset locates the DCL usage token.
	declOffset int
}

type decoder struct {
	r    *Reader
	log  *zap.Logger
	errs *ir.ErrorList
	prog *ir.Program

	regs     map[regKey]*ir.Register
	masks    map[regKey]ir.WriteMask
	reported map[regKey]bool
	samplers map[int]*samplerState
	reads    [3]map[int]bool
	relBases []int
	labels   map[int]bool
	stop     bool
}

// Decode decodes a shader token stream into a program. The error list is
// never nil. The program is nil only when the version token is missing or
// unsupported; otherwise it holds everything decoded, even when errors were
// recorded along the way.
func Decode(buf []byte, opts Options) (*ir.Program, *ir.ErrorList) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &decoder{
		r:        NewReader(buf),
		log:      log,
		errs:     &ir.ErrorList{Filename: opts.Filename},
		prog:     &ir.Program{},
		regs:     make(map[regKey]*ir.Register),
		masks:    make(map[regKey]ir.WriteMask),
		reported: make(map[regKey]bool),
		samplers: make(map[int]*samplerState),
		labels:   make(map[int]bool),
	}
	for i := range d.reads {
		d.reads[i] = make(map[int]bool)
	}
	if !d.header() {
		return nil, d.errs
	}
	d.run()
	d.finish()
	return d.prog, d.errs
}

func (d *decoder) header() bool {
	tok, err := d.r.Next()
	if err != nil {
		d.errs.Addf(ir.ErrDecode, d.r.Offset(), "truncated version token")
		return false
	}
	major, minor := uint8(tok>>8), uint8(tok)
	switch tok >> 16 {
	case versionPixel:
		d.prog.Type = ir.ShaderPixel
	case versionVertex:
		d.prog.Type = ir.ShaderVertex
	case versionGeometry:
		d.errs.Addf(ir.ErrDecode, 0, "geometry shaders are not supported")
		return false
	default:
		d.errs.Addf(ir.ErrDecode, 0, "unsupported shader type or invalid version token %#08x", tok)
		return false
	}
	d.prog.Version = ir.Version{Major: major, Minor: minor}
	if !supportedVersion(d.prog.Type, d.prog.Version) {
		d.errs.Addf(ir.ErrDecode, 0, "unsupported shader model %d.%d", major, minor)
		return false
	}
	d.log.Debug("decoding shader",
		zap.String("target", d.prog.Target()),
		zap.Int("bytes", d.r.Len()))
	return true
}

func supportedVersion(t ir.ShaderType, v ir.Version) bool {
	switch v.Major {
	case 1:
		if t == ir.ShaderVertex {
			return v.Minor == 1
		}
		return v.Minor >= 1 && v.Minor <= 4
	case 2:
		return v.Minor == 0 || v.Minor == ir.MinorExtended || v.Minor == ir.MinorSoftware
	case 3:
		return v.Minor == 0 || v.Minor == ir.MinorSoftware
	}
	return false
}

func (d *decoder) run() {
	for !d.stop {
		if d.r.AtEnd() {
			if d.r.Offset() < d.r.Len() {
				d.truncated()
			} else {
				d.errs.Addf(ir.ErrDecode, ir.PositionAfter, "missing END token")
			}
			return
		}
		off := d.r.Offset()
		tok, _ := d.r.Next()
		if tok == TokenEnd {
			if n := d.r.Remaining(); n > 0 {
				d.log.Debug("ignoring data after END token", zap.Int("tokens", n))
			}
			return
		}
		if tok&opcodeMask == uint32(ir.OpComment) {
			d.comment(tok, off)
			continue
		}
		d.instruction(tok, off)
	}
}

func (d *decoder) truncated() {
	d.errs.Addf(ir.ErrDecode, d.r.Offset(), "unexpected end of bytecode")
	d.stop = true
}

func (d *decoder) instruction(tok uint32, off int) {
	op := ir.Opcode(tok & opcodeMask)
	v := d.prog.Version
	sm2 := v.Major >= 2
	length := int(tok>>24) & 0xF
	next := off + 4 + length*4

	info, ok := op.Info()
	if !ok {
		d.errs.Addf(ir.ErrDecode, off, "unknown opcode %d", uint16(op))
		d.resync(sm2, next)
		return
	}
	if !info.Supports(d.prog.Type, v) {
		d.errs.Addf(ir.ErrDecode, off, "%s is not valid in %s", op, d.prog.Target())
		d.resync(sm2, next)
		return
	}

	inst := ir.Instruction{
		Op:         op,
		Controls:   uint8(tok >> 16),
		Coissue:    tok&coissueBit != 0,
		Predicated: sm2 && tok&predicateBit != 0,
		Offset:     off,
	}
	shape := info.ShapeFor(d.prog.Type, v)
	var err error
	switch shape {
	case ir.ShapeDcl:
		err = d.dcl(off)
	case ir.ShapeDef, ir.ShapeDefI, ir.ShapeDefB:
		err = d.def(shape, off)
	default:
		err = d.operands(&inst, shape)
	}
	if err != nil {
		d.truncated()
		return
	}

	if sm2 {
		if got := (d.r.Offset()-off)/4 - 1; got != length {
			d.errs.Addf(ir.ErrDecode, off, "%s: encoded length %d but decoded %d tokens", op, length, got)
			d.r.Seek(next)
			return
		}
	}
	if shape == ir.ShapeDcl || shape == ir.ShapeDef || shape == ir.ShapeDefI || shape == ir.ShapeDefB {
		return
	}
	inst.Length = (d.r.Offset() - off) / 4
	d.semantics(&inst)
	d.prog.Instructions = append(d.prog.Instructions, inst)
	d.prog.InstructionCount += info.Slots
}

// resync skips the remainder of an instruction that could not be decoded.
// SM2 streams carry the length; SM1 streams are skipped up to the next
// token without the parameter bit.
func (d *decoder) resync(sm2 bool, next int) {
	if sm2 {
		d.r.Seek(next)
		return
	}
	skipped := 0
	for {
		tok, err := d.r.Peek()
		if err != nil || tok&paramBit == 0 {
			break
		}
		_, _ = d.r.Next()
		skipped++
	}
	d.log.Debug("resynced after bad instruction", zap.Int("skipped", skipped))
}

func (d *decoder) operands(inst *ir.Instruction, shape ir.Shape) error {
	if shape.HasDest() {
		dst, err := d.destParam()
		if err != nil {
			return err
		}
		inst.HasDest = true
		inst.Dest = dst
	}
	if inst.Predicated {
		p, err := d.srcParam()
		if err != nil {
			return err
		}
		inst.Predicate = p
	}
	if n := shape.Sources(); n > 0 {
		inst.Src = make([]ir.SourceParam, 0, n)
		for i := 0; i < n; i++ {
			src, err := d.srcParam()
			if err != nil {
				return err
			}
			inst.Src = append(inst.Src, src)
		}
	}
	d.checkOperands(inst)
	return nil
}

func (d *decoder) comment(tok uint32, off int) {
	n := int((tok & commentMask) >> 16)
	data, err := d.r.Tokens(n)
	if err != nil {
		d.truncated()
		return
	}
	if len(data) < 4 {
		return
	}
	switch magic := binary.LittleEndian.Uint32(data); magic {
	case MagicCTAB:
		if d.prog.CTAB != nil {
			d.log.Debug("ignoring duplicate constant table", zap.Int("offset", off))
			return
		}
		hdr, syms, err := ParseCTAB(data[4:])
		if err != nil {
			d.errs.Addf(ir.ErrDecode, off, "invalid constant table: %v", err)
			return
		}
		d.prog.CTAB = hdr
		d.prog.Symbols = syms
		d.log.Debug("constant table", zap.String("creator", hdr.Creator), zap.Int("symbols", len(syms)))
	case MagicPRES:
		pre, err := ParsePreshader(data[4:])
		if err != nil {
			d.errs.Addf(ir.ErrDecode, off, "invalid preshader: %v", err)
			return
		}
		d.prog.Preshader = pre
		d.log.Debug("preshader", zap.Int("instructions", len(pre.Instructions)), zap.Int("literals", len(pre.Literals)))
	default:
		d.log.Debug("skipping comment", zap.Int("offset", off), zap.Int("tokens", n))
	}
}

// semantics records per-opcode side effects: labels, implicit samplers of
// ps_1_x texture instructions, and sampler type hints.
func (d *decoder) semantics(inst *ir.Instruction) {
	v := d.prog.Version
	switch inst.Op {
	case ir.OpLabel:
		num := inst.Src[0].RegNum
		if d.labels[num] {
			d.errs.Addf(ir.ErrDecode, inst.Offset, "label l%d defined twice", num)
		}
		d.labels[num] = true
	case ir.OpTex:
		if v.Less(2, 0) {
			d.stageSampler(inst, ir.SamplerUnknown, false)
		}
	case ir.OpTexBem, ir.OpTexBemL:
		d.stageSampler(inst, ir.SamplerUnknown, true)
	case ir.OpTexReg2AR, ir.OpTexReg2GB, ir.OpTexReg2RGB, ir.OpTexDp3Tex, ir.OpTexM3x2Tex:
		d.stageSampler(inst, ir.SamplerUnknown, false)
	case ir.OpTexM3x3Tex, ir.OpTexM3x3Spec, ir.OpTexM3x3VSpec:
		d.stageSampler(inst, ir.SamplerCube, false)
	}
}

// stageSampler marks the sampler implied by a ps_1_x texture instruction:
// the stage equals the destination register number.
func (d *decoder) stageSampler(inst *ir.Instruction, implied ir.SamplerType, texbem bool) {
	stage := inst.Dest.RegNum
	d.use(ir.RegSampler, stage, false, inst.Dest.Offset)
	s := d.sampler(stage)
	if implied != ir.SamplerUnknown {
		s.implied = implied
	}
	if texbem {
		s.texbem = true
	}
}

func (d *decoder) sampler(num int) *samplerState {
	s, ok := d.samplers[num]
	if !ok {
		s = &samplerState{declared: ir.SamplerUnknown, implied: ir.SamplerUnknown}
		d.samplers[num] = s
	}
	return s
}

func (d *decoder) reg(t ir.RegisterType, num int) *ir.Register {
	key := regKey{t, num}
	r, ok := d.regs[key]
	if !ok {
		r = &ir.Register{Type: t, Num: num, Usage: ir.UsageUnknown}
		d.regs[key] = r
	}
	return r
}

func (d *decoder) regName(t ir.RegisterType, num int) string {
	return ir.RegisterName(d.prog.Type, d.prog.Version, t, num)
}

// finish builds the resource tables from everything decoded.
func (d *decoder) finish() {
	p := d.prog

	if p.IsPixel() && p.Version.Less(2, 0) {
		d.reg(ir.RegTemp, 0)
	}

	p.Registers = make([]ir.Register, 0, len(d.regs))
	for _, r := range d.regs {
		p.Registers = append(p.Registers, *r)
	}
	sort.Slice(p.Registers, func(i, j int) bool {
		a, b := p.Registers[i], p.Registers[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Num < b.Num
	})

	for _, r := range p.Registers {
		if r.Usage == ir.UsageUnknown {
			continue
		}
		attr := ir.Attribute{
			Usage:   r.Usage,
			Index:   r.UsageIndex,
			RegType: r.Type,
			RegNum:  r.Num,
			Mask:    ir.MaskAll,
		}
		if m, ok := d.masks[regKey{r.Type, r.Num}]; ok {
			attr.Mask = m
		}
		if d.isInput(r.Type) {
			p.Attributes = append(p.Attributes, attr)
		} else {
			p.Outputs = append(p.Outputs, attr)
		}
	}
	if p.IsPixel() && p.Version.Less(2, 0) {
		p.Outputs = append(p.Outputs, ir.Attribute{
			Usage: ir.UsageColor, RegType: ir.RegTemp, RegNum: 0, Mask: ir.MaskAll,
		})
	}

	d.buildSamplers()
	d.buildUniforms()

	for l := range d.labels {
		p.Labels = append(p.Labels, l)
	}
	sort.Ints(p.Labels)
	ir.ValidateFlow(p, d.errs)
}

func (d *decoder) isInput(t ir.RegisterType) bool {
	if t == ir.RegInput {
		return true
	}
	return d.prog.IsPixel() && t == ir.RegTexture
}

func (d *decoder) buildSamplers() {
	nums := make([]int, 0, len(d.samplers))
	for n := range d.samplers {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		s := d.samplers[n]
		typ := s.declared
		if typ == ir.SamplerUnknown {
			typ = d.symbolSamplerType(n)
		}
		if typ == ir.SamplerUnknown {
			typ = s.implied
		}
		if typ == ir.SamplerUnknown {
			typ = ir.Sampler2D
		}
		d.prog.Samplers = append(d.prog.Samplers, ir.Sampler{Type: typ, Index: n, Texbem: s.texbem, DeclOffset: s.declOffset})
	}
}

func (d *decoder) symbolSamplerType(num int) ir.SamplerType {
	for _, sym := range d.prog.Symbols {
		if sym.Contains(ir.SymbolRegisterSampler, num) {
			if t, ok := sym.SamplerType(); ok {
				return t
			}
		}
	}
	return ir.SamplerUnknown
}
