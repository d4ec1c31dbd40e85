package shaderlang

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/d3dbc/ir"
)

// maxCallDepth is the deepest subroutine nesting the shader models allow.
const maxCallDepth = 4

// Options configures lowering.
type Options struct {
	// BumpEnv folds the bump environment of a sampler stage into the code.
	// Stages without an entry read the texbem uniform instead.
	BumpEnv map[int]ir.BumpEnv
}

// Needs records language features the lowered code relies on.
type Needs struct {
	Derivatives bool
	Discard     bool
	// TextureLod is set for explicit-LOD or gradient lookups.
	TextureLod bool
}

// Function is one lowered subroutine.
type Function struct {
	Label int
	Name  string
	Body  string
}

// Code is the lowered body of a program.
type Code struct {
	Subroutines []Function
	// Main holds the statements of the entry point, without prologue
	// or epilogue.
	Main string
}

type loopFrame struct {
	counter string
	// aL is empty for REP frames.
	aL   string
	step string
}

type padRow struct {
	reg string
	dot string
}

// Writer lowers a Program to structured statements using a Dialect.
// A Writer is used for a single program.
type Writer struct {
	prog    *ir.Program
	dialect Dialect
	opts    Options
	prefix  string

	subs map[int][]ir.Instruction

	out      *Buffer
	cur      *ir.Instruction
	err      *ir.Error
	inMain   bool
	ifDepth  int
	loops    []loopFrame
	maxLoops int
	maxAL    int
	inlining []int
	pads     []padRow

	texbem int
	needs  Needs
}

// NewWriter creates a writer for prog.
func NewWriter(prog *ir.Program, d Dialect, opts Options) *Writer {
	return &Writer{
		prog:    prog,
		dialect: d,
		opts:    opts,
		prefix:  prog.Type.Prefix(),
		subs:    make(map[int][]ir.Instruction),
	}
}

// Program returns the program being lowered.
func (w *Writer) Program() *ir.Program { return w.prog }

// Prefix returns the stage prefix, "vs" or "ps".
func (w *Writer) Prefix() string { return w.prefix }

// Needs returns the features used by the code produced so far.
func (w *Writer) Needs() Needs { return w.needs }

// Generate lowers every subroutine and the main body.
func (w *Writer) Generate() (*Code, error) {
	main, subs := w.prog.Split()
	for _, s := range subs {
		w.subs[s.Label] = s.Body
	}
	code := &Code{}
	if !w.dialect.InlineSubroutines() {
		for _, s := range subs {
			w.out = NewBuffer(1)
			w.inMain = false
			w.block(s.Body)
			code.Subroutines = append(code.Subroutines, Function{
				Label: s.Label,
				Name:  w.LabelName(s.Label),
				Body:  w.out.String(),
			})
		}
	}
	w.out = NewBuffer(1)
	w.inMain = true
	w.block(main)
	code.Main = w.out.String()
	if w.err != nil {
		return nil, w.err
	}
	return code, nil
}

func (w *Writer) fail(format string, args ...any) {
	if w.err != nil {
		return
	}
	pos := ir.PositionNone
	if w.cur != nil {
		pos = w.cur.Offset
	}
	w.err = ir.NewError(ir.ErrProfile, pos, format, args...)
}

// =============================================================================
// Names
// =============================================================================

// RegName returns the variable name of a register, e.g. "vs_r0".
func (w *Writer) RegName(t ir.RegisterType, num int) string {
	return w.prefix + "_" + ir.RegisterName(w.prog.Type, w.prog.Version, t, num)
}

// SamplerName returns the variable name of sampler s<index>.
func (w *Writer) SamplerName(index int) string {
	return w.RegName(ir.RegSampler, index)
}

// LabelName returns the function name of subroutine l<label>.
func (w *Writer) LabelName(label int) string {
	return w.RegName(ir.RegLabel, label)
}

// UniformArray returns the name of the packed uniform array of type t.
func (w *Writer) UniformArray(t ir.UniformType) string {
	switch t {
	case ir.UniformInt:
		return w.prefix + "_uniforms_ivec4"
	case ir.UniformBool:
		return w.prefix + "_uniforms_bool"
	default:
		return w.prefix + "_uniforms_vec4"
	}
}

// ConstArrayName returns the name of a literal array built from DEFs.
func (w *Writer) ConstArrayName(u *ir.Uniform) string {
	return w.prefix + "_c_array_" + strconv.Itoa(u.Index)
}

// TexbemUniform returns the name and vec4 count of the bump environment
// uniform. The count is zero when no lookup reads it.
func (w *Writer) TexbemUniform() (string, int) {
	return w.prefix + "_texbem", 2 * w.texbem
}

// Varying returns the interpolant name for a usage, e.g. "v_TEXCOORD0".
func Varying(u ir.Usage, index int) string {
	return "v_" + u.String() + strconv.Itoa(index)
}

func (w *Writer) loopName(base string, depth int) string {
	if depth == 0 {
		return w.prefix + "_" + base
	}
	return w.prefix + "_" + base + strconv.Itoa(depth)
}

// =============================================================================
// Declarations
// =============================================================================

// Role classifies a declared register.
type Role uint8

const (
	RoleTemp Role = iota
	RoleInput
	RoleOutput
)

// Decl is one variable the generated code needs.
type Decl struct {
	Name string
	Type string
	Init string
	Role Role
	// Reg is nil for loop bookkeeping variables.
	Reg *ir.Register
}

// Registers returns the variables backing the program's registers. Loop
// variables are included once Generate has run.
func (w *Writer) Registers() []Decl {
	d := w.dialect
	var decls []Decl
	for i := range w.prog.Registers {
		r := &w.prog.Registers[i]
		decl := Decl{
			Name: w.RegName(r.Type, r.Num),
			Type: d.FloatType(4),
			Init: w.splat(d.FloatType(4), "0.0"),
			Reg:  r,
		}
		switch r.Type {
		case ir.RegTemp:
		case ir.RegInput:
			decl.Role = RoleInput
		case ir.RegAddress:
			switch {
			case w.prog.IsVertex():
				decl.Type = d.IntType(4)
				decl.Init = w.splat(d.IntType(4), "0")
			case w.prog.Attribute(r.Type, r.Num) != nil:
				decl.Role = RoleInput
			}
		case ir.RegRastOut, ir.RegAttrOut, ir.RegOutput, ir.RegColorOut, ir.RegDepthOut:
			decl.Role = RoleOutput
		case ir.RegPredicate:
			decl.Type = d.BoolType(4)
			decl.Init = w.splat(d.BoolType(4), "false")
		case ir.RegMisc:
			decl.Role = RoleInput
			if r.Num == ir.MiscFace {
				decl.Type = d.FloatType(1)
				decl.Init = "0.0"
			}
		default:
			continue
		}
		decls = append(decls, decl)
	}
	for i := 0; i < w.maxAL; i++ {
		decls = append(decls, Decl{Name: w.loopName("aL", i), Type: d.IntType(1), Init: "0"})
	}
	for i := 0; i < w.maxLoops; i++ {
		decls = append(decls, Decl{Name: w.loopName("lc", i), Type: d.IntType(1), Init: "0"})
	}
	return decls
}

// Constants returns a declaration for every DEF, DEFI and DEFB register.
func (w *Writer) Constants() []Decl {
	d := w.dialect
	decls := make([]Decl, 0, len(w.prog.Constants))
	for _, c := range w.prog.Constants {
		decl := Decl{Name: w.RegName(c.Type.RegisterType(), c.Index)}
		switch c.Type {
		case ir.UniformFloat:
			decl.Type = d.FloatType(4)
			decl.Init = w.floatVec(c.Float)
		case ir.UniformInt:
			decl.Type = d.IntType(4)
			decl.Init = fmt.Sprintf("%s(%d, %d, %d, %d)", d.IntType(4), c.Int[0], c.Int[1], c.Int[2], c.Int[3])
		case ir.UniformBool:
			decl.Type = d.BoolType(1)
			decl.Init = strconv.FormatBool(c.Bool)
		}
		decls = append(decls, decl)
	}
	return decls
}

// ConstArray is a relatively addressed array whose elements all come from DEF.
type ConstArray struct {
	Name   string
	Values []string
}

// ConstArrays returns the literal arrays of the program.
func (w *Writer) ConstArrays() []ConstArray {
	var arrs []ConstArray
	for i := range w.prog.Uniforms {
		u := &w.prog.Uniforms[i]
		if !u.Constant {
			continue
		}
		arr := ConstArray{Name: w.ConstArrayName(u)}
		for j := 0; j < u.Slots(); j++ {
			var v [4]float32
			if c := w.prog.Constant(ir.UniformFloat, u.Index+j); c != nil {
				v = c.Float
			}
			arr.Values = append(arr.Values, w.floatVec(v))
		}
		arrs = append(arrs, arr)
	}
	return arrs
}

// =============================================================================
// Interface
// =============================================================================

// Interface classifies how a stage input or output reaches the pipeline.
type Interface uint8

const (
	InterfaceVarying Interface = iota
	InterfacePosition
	InterfacePointSize
	InterfaceColor
	InterfaceDepth
	InterfaceFragCoord
	InterfaceFace
)

// OutputInterface classifies an entry of Program.Outputs.
func (w *Writer) OutputInterface(a *ir.Attribute) Interface {
	if w.prog.IsPixel() {
		if a.Usage == ir.UsageDepth || a.RegType == ir.RegDepthOut {
			return InterfaceDepth
		}
		return InterfaceColor
	}
	switch {
	case a.Usage == ir.UsagePosition && a.Index == 0:
		return InterfacePosition
	case a.Usage == ir.UsagePointSize:
		return InterfacePointSize
	}
	return InterfaceVarying
}

// InputInterface classifies an input register of a pixel shader.
func (w *Writer) InputInterface(r *ir.Register) Interface {
	if r.Type == ir.RegMisc {
		if r.Num == ir.MiscFace {
			return InterfaceFace
		}
		return InterfaceFragCoord
	}
	return InterfaceVarying
}

// =============================================================================
// Literals
// =============================================================================

// Float formats a float literal that every dialect parses as float.
func Float(f float32) string {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return "(0.0 / 0.0)"
	case math.IsInf(v, 1):
		return "(1.0 / 0.0)"
	case math.IsInf(v, -1):
		return "(-1.0 / 0.0)"
	}
	s := strconv.FormatFloat(v, 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (w *Writer) floatVec(v [4]float32) string {
	return fmt.Sprintf("%s(%s, %s, %s, %s)", w.dialect.FloatType(4),
		Float(v[0]), Float(v[1]), Float(v[2]), Float(v[3]))
}

func (w *Writer) vec(parts ...string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return w.dialect.FloatType(len(parts)) + "(" + strings.Join(parts, ", ") + ")"
}

func (w *Writer) broadcast(x string, n int) string {
	if n == 1 {
		return x
	}
	return w.splat(w.dialect.FloatType(n), x)
}

// splat replicates scalar x into a vector of type typ.
func (w *Writer) splat(typ, x string) string {
	if s, ok := w.dialect.(Splatter); ok {
		return s.Splat(typ, x)
	}
	return typ + "(" + x + ")"
}

func (w *Writer) zero(n int) string {
	return w.broadcast("0.0", n)
}

func (w *Writer) call(b Builtin, args ...string) string {
	return w.dialect.Builtin(b) + "(" + strings.Join(args, ", ") + ")"
}
