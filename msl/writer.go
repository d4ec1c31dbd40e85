package msl

import (
	"fmt"
	"strings"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Writer generates MSL source code from a decoded program.
type Writer struct {
	prog    *ir.Program
	options *Options
	lower   *shaderlang.Writer

	// Output buffer
	out *shaderlang.Buffer

	// Entry point interface
	inputs   []member
	outputs  []member
	params   []string
	prologue []string
}

// member is a field of the entry point's stage_in or output struct.
type member struct {
	typ  string
	name string
	attr string
	// copy moves the member to or from its register.
	copy string
	reg  *ir.Attribute
}

// newWriter creates a new MSL writer.
func newWriter(prog *ir.Program, options *Options) *Writer {
	return &Writer{
		prog:    prog,
		options: options,
		lower:   shaderlang.NewWriter(prog, &dialect{}, shaderlang.Options{BumpEnv: options.BumpEnv}),
		out:     shaderlang.NewBuffer(0),
	}
}

// String returns the generated MSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

func (w *Writer) typeName(kind string) string {
	return w.lower.Prefix() + "_" + kind
}

func (w *Writer) entryName() string {
	if w.options.EntryPoint != "" {
		return w.options.EntryPoint
	}
	return w.typeName("main")
}

// writeProgram generates the complete shader.
func (w *Writer) writeProgram() error {
	code, err := w.lower.Generate()
	if err != nil {
		return err
	}
	w.collectInputs()
	w.collectOutputs()

	w.writeHeader()
	w.writeConstants()
	w.writeUniforms()
	w.writeStruct("main_in", w.inputs)
	w.writeStruct("main_out", w.outputs)
	w.writeEntryPoint(code.Main)
	return nil
}

// writeHeader writes the MSL file header.
func (w *Writer) writeHeader() {
	w.out.Line("#include <metal_stdlib>")
	w.out.Line("#include <simd/simd.h>")
	w.out.Blank()
	w.out.Line("using metal::uint;")
	w.out.Blank()
	w.out.Line("// %s, Metal %s", w.prog.Target(), w.options.LangVersion)
	w.out.Blank()
}

func (w *Writer) writeConstants() {
	consts := w.lower.Constants()
	arrs := w.lower.ConstArrays()
	for _, c := range consts {
		w.out.Line("constant %s %s = %s;", c.Type, c.Name, c.Init)
	}
	for _, arr := range arrs {
		w.out.Line("constant float4 %s[%d] = { %s };", arr.Name, len(arr.Values), strings.Join(arr.Values, ", "))
	}
	if len(consts)+len(arrs) > 0 {
		w.out.Blank()
	}
}

// writeUniforms declares the uniform struct. Bools are int4 so the layout
// matches the other packed arrays.
func (w *Writer) writeUniforms() {
	types := [...]struct {
		t   ir.UniformType
		typ string
	}{
		{ir.UniformFloat, "float4"},
		{ir.UniformInt, "int4"},
		{ir.UniformBool, "int4"},
	}
	var fields []string
	for _, u := range types {
		if n := w.prog.UniformSlots(u.t); n > 0 {
			fields = append(fields, fmt.Sprintf("%s %s[%d];", u.typ, w.lower.UniformArray(u.t), n))
		}
	}
	if name, n := w.lower.TexbemUniform(); n > 0 {
		fields = append(fields, fmt.Sprintf("float4 %s[%d];", name, n))
	}
	if len(fields) == 0 {
		return
	}
	w.out.Line("struct %s {", w.typeName("uniforms"))
	w.out.Indent()
	for _, f := range fields {
		w.out.Line("%s", f)
	}
	w.out.Dedent()
	w.out.Line("};")
	w.out.Blank()
	w.params = append(w.params, fmt.Sprintf("constant %s& %s [[buffer(%d)]]",
		w.typeName("uniforms"), uniformsArg, w.options.Bindings.Buffer))
}

// collectInputs builds the stage_in struct and the prologue copying it
// into registers.
func (w *Writer) collectInputs() {
	if w.prog.IsVertex() {
		for i := range w.prog.Attributes {
			a := &w.prog.Attributes[i]
			name := ir.RegisterName(w.prog.Type, w.prog.Version, a.RegType, a.RegNum)
			w.inputs = append(w.inputs, member{
				typ:  "float4",
				name: name,
				attr: fmt.Sprintf("attribute(%d)", i),
				copy: fmt.Sprintf("%s = stage_in.%s;", w.lower.RegName(a.RegType, a.RegNum), name),
				reg:  a,
			})
		}
		return
	}
	for _, d := range w.lower.Registers() {
		if d.Role != shaderlang.RoleInput {
			continue
		}
		r := d.Reg
		switch w.lower.InputInterface(r) {
		case shaderlang.InterfaceFace:
			w.params = append(w.params, "bool front_facing [[front_facing]]")
			w.prologue = append(w.prologue, fmt.Sprintf("%s = front_facing ? 1.0 : -1.0;", d.Name))
		case shaderlang.InterfaceFragCoord:
			w.inputs = append(w.inputs, member{
				typ:  "float4",
				name: "position",
				attr: "position",
				copy: fmt.Sprintf("%s = stage_in.position;", d.Name),
			})
		default:
			if r.Usage == ir.UsageUnknown {
				continue
			}
			name := shaderlang.Varying(r.Usage, r.UsageIndex)
			attr := "user(" + userLocation(r.Usage, r.UsageIndex) + ")"
			if r.Mod&ir.ResultModCentroid != 0 {
				attr += ", centroid_perspective"
			}
			w.inputs = append(w.inputs, member{
				typ:  "float4",
				name: name,
				attr: attr,
				copy: fmt.Sprintf("%s = stage_in.%s;", d.Name, name),
				reg:  w.prog.Attribute(r.Type, r.Num),
			})
		}
	}
}

// collectOutputs builds the output struct from Program.Outputs.
func (w *Writer) collectOutputs() {
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		reg := w.lower.RegName(o.RegType, o.RegNum)
		m := member{typ: "float4", reg: o}
		switch w.lower.OutputInterface(o) {
		case shaderlang.InterfacePosition:
			m.name, m.attr = "position", "position"
		case shaderlang.InterfacePointSize:
			m.typ, m.name, m.attr = "float", "point_size", "point_size"
			reg += ".x"
		case shaderlang.InterfaceColor:
			m.name, m.attr = fmt.Sprintf("color%d", o.Index), fmt.Sprintf("color(%d)", o.Index)
		case shaderlang.InterfaceDepth:
			m.typ, m.name, m.attr = "float", "depth", "depth(any)"
			reg += ".x"
		default:
			m.name = shaderlang.Varying(o.Usage, o.Index)
			m.attr = "user(" + userLocation(o.Usage, o.Index) + ")"
		}
		m.copy = fmt.Sprintf("out.%s = %s;", m.name, reg)
		w.outputs = append(w.outputs, m)
	}
}

func (w *Writer) writeStruct(kind string, members []member) {
	if len(members) == 0 {
		return
	}
	w.out.Line("struct %s {", w.typeName(kind))
	w.out.Indent()
	for _, m := range members {
		w.out.Line("%s %s [[%s]];", m.typ, m.name, m.attr)
	}
	w.out.Dedent()
	w.out.Line("};")
	w.out.Blank()
}

// writeEntryPoint writes the stage function. Registers are locals, and
// subroutines were expanded in place during lowering.
func (w *Writer) writeEntryPoint(body string) {
	params := w.params
	if len(w.inputs) > 0 {
		params = append([]string{w.typeName("main_in") + " stage_in [[stage_in]]"}, params...)
	}
	for _, s := range w.prog.Samplers {
		name := w.lower.SamplerName(s.Index)
		params = append(params,
			fmt.Sprintf("%s %s [[texture(%d)]]", textureType(s.Type), textureName(name), int(w.options.Bindings.Texture)+s.Index),
			fmt.Sprintf("%ssampler %s [[sampler(%d)]]", Namespace, name, int(w.options.Bindings.Sampler)+s.Index))
	}
	ret := "void"
	if len(w.outputs) > 0 {
		ret = w.typeName("main_out")
	}
	stage := "vertex"
	if w.prog.IsPixel() {
		stage = "fragment"
	}

	w.out.Line("%s %s %s(", stage, ret, w.entryName())
	w.out.Indent()
	for i, p := range params {
		sep := ","
		if i == len(params)-1 {
			sep = ""
		}
		w.out.Line("%s%s", p, sep)
	}
	w.out.Dedent()
	w.out.Line(") {")
	w.out.Indent()
	for _, d := range w.lower.Registers() {
		w.out.Line("%s %s = %s;", d.Type, d.Name, d.Init)
	}
	for _, m := range w.inputs {
		w.out.Line("%s", m.copy)
	}
	for _, line := range w.prologue {
		w.out.Line("%s", line)
	}
	w.out.Dedent()
	w.out.Raw(body)
	w.out.Indent()
	if len(w.outputs) > 0 {
		w.out.Line("%s out;", ret)
		for _, m := range w.outputs {
			w.out.Line("%s", m.copy)
		}
		w.out.Line("return out;")
	}
	w.out.Dedent()
	w.out.Line("}")
}

// translation builds the result tables with MSL names.
func (w *Writer) translation() *ir.Translation {
	t := ir.NewTranslation(Profile, w.prog)
	t.Code = []byte(w.String())
	t.MainFn = w.entryName()
	t.NameResources(
		func(u *ir.Uniform) string {
			if u.Constant {
				return w.lower.ConstArrayName(u)
			}
			return w.lower.UniformArray(u.Type)
		},
		func(s *ir.Sampler) string { return w.lower.SamplerName(s.Index) },
		func(a *ir.Attribute, output bool) string {
			members := w.inputs
			if output {
				members = w.outputs
			}
			for _, m := range members {
				if m.reg != nil && m.reg.RegType == a.RegType && m.reg.RegNum == a.RegNum {
					return m.name
				}
			}
			return shaderlang.Varying(a.Usage, a.Index)
		},
	)
	return t
}
