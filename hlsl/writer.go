// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Writer generates HLSL source code from a decoded program.
type Writer struct {
	prog    *ir.Program
	options *Options
	lower   *shaderlang.Writer

	// Output buffer
	out *shaderlang.Buffer

	// Entry point interface
	inputs  []field
	outputs []field
}

// field is a member of the entry point's input or output struct.
type field struct {
	typ      string
	name     string
	semantic string
	// copy is the statement moving the member to or from its register.
	copy string
	attr *ir.Attribute
}

// newWriter creates a new HLSL writer.
func newWriter(prog *ir.Program, options *Options) *Writer {
	return &Writer{
		prog:    prog,
		options: options,
		lower:   shaderlang.NewWriter(prog, &dialect{}, shaderlang.Options{BumpEnv: options.BumpEnv}),
		out:     shaderlang.NewBuffer(0),
	}
}

// String returns the generated source.
func (w *Writer) String() string {
	return w.out.String()
}

func (w *Writer) structName(kind string) string {
	return w.lower.Prefix() + "_" + kind
}

// writeProgram generates the complete shader.
func (w *Writer) writeProgram() error {
	code, err := w.lower.Generate()
	if err != nil {
		return err
	}
	w.collectInputs()
	w.collectOutputs()

	w.out.Line("// %s, compile as %s", w.prog.Target(), w.options.ShaderModel.Target(w.prog.Type))
	w.out.Blank()
	w.writeResources()
	w.writeGlobals()
	w.writeStruct("input", w.inputs)
	w.writeStruct("output", w.outputs)
	for _, fn := range code.Subroutines {
		w.out.Line("void %s()", fn.Name)
		w.out.Line("{")
		w.out.Raw(fn.Body)
		w.out.Line("}")
		w.out.Blank()
	}
	w.writeMain(code.Main)
	return nil
}

// writeResources declares the uniform cbuffer and the texture objects.
func (w *Writer) writeResources() {
	types := [...]struct {
		t   ir.UniformType
		typ string
	}{
		{ir.UniformFloat, "float4"},
		{ir.UniformInt, "int4"},
		{ir.UniformBool, "bool"},
	}
	var members []string
	for _, u := range types {
		if n := w.prog.UniformSlots(u.t); n > 0 {
			members = append(members, fmt.Sprintf("%s %s[%d];", u.typ, w.lower.UniformArray(u.t), n))
		}
	}
	if name, n := w.lower.TexbemUniform(); n > 0 {
		members = append(members, fmt.Sprintf("float4 %s[%d];", name, n))
	}
	sm := w.options.ShaderModel
	if len(members) > 0 {
		w.out.Line("cbuffer %s%s", w.structName("uniforms"), w.options.Uniforms.Annotation(RegisterTypeB, sm))
		w.out.Line("{")
		w.out.Indent()
		for _, m := range members {
			w.out.Line("%s", m)
		}
		w.out.Dedent()
		w.out.Line("};")
		w.out.Blank()
	}
	for _, s := range w.prog.Samplers {
		name := w.lower.SamplerName(s.Index)
		w.out.Line("%s %s%s;", textureType(s.Type), textureName(name),
			w.options.Textures.Offset(s.Index).Annotation(RegisterTypeT, sm))
		w.out.Line("SamplerState %s%s;", name, w.options.Samplers.Offset(s.Index).Annotation(RegisterTypeS, sm))
	}
	if len(w.prog.Samplers) > 0 {
		w.out.Blank()
	}
}

func (w *Writer) writeGlobals() {
	for _, c := range w.lower.Constants() {
		w.out.Line("static const %s %s = %s;", c.Type, c.Name, c.Init)
	}
	for _, arr := range w.lower.ConstArrays() {
		w.out.Line("static const float4 %s[%d] = { %s };", arr.Name, len(arr.Values), strings.Join(arr.Values, ", "))
	}
	for _, d := range w.lower.Registers() {
		w.out.Line("static %s %s = %s;", d.Type, d.Name, d.Init)
	}
	w.out.Blank()
}

// collectInputs builds the input struct from the stage's inputs.
func (w *Writer) collectInputs() {
	if w.prog.IsVertex() {
		for i := range w.prog.Attributes {
			a := &w.prog.Attributes[i]
			name := w.memberName(a.RegType, a.RegNum)
			w.inputs = append(w.inputs, field{
				typ:      "float4",
				name:     name,
				semantic: semantic(a.Usage, a.Index),
				copy:     fmt.Sprintf("%s = input.%s;", w.lower.RegName(a.RegType, a.RegNum), name),
				attr:     a,
			})
		}
		return
	}
	for _, d := range w.lower.Registers() {
		if d.Role != shaderlang.RoleInput {
			continue
		}
		r := d.Reg
		name := w.memberName(r.Type, r.Num)
		f := field{typ: "float4", name: name}
		switch w.lower.InputInterface(r) {
		case shaderlang.InterfaceFace:
			f.typ, f.semantic = "bool", "SV_IsFrontFace"
			f.copy = fmt.Sprintf("%s = input.%s ? 1.0 : -1.0;", d.Name, name)
		case shaderlang.InterfaceFragCoord:
			f.semantic = "SV_Position"
			f.copy = fmt.Sprintf("%s = input.%s;", d.Name, name)
		default:
			if r.Usage == ir.UsageUnknown {
				continue
			}
			if r.Mod&ir.ResultModCentroid != 0 {
				f.typ = "centroid float4"
			}
			f.semantic = semantic(r.Usage, r.UsageIndex)
			f.copy = fmt.Sprintf("%s = input.%s;", d.Name, name)
			f.attr = w.prog.Attribute(r.Type, r.Num)
		}
		w.inputs = append(w.inputs, f)
	}
}

// collectOutputs builds the output struct from Program.Outputs.
func (w *Writer) collectOutputs() {
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		reg := w.lower.RegName(o.RegType, o.RegNum)
		f := field{typ: "float4", attr: o}
		switch w.lower.OutputInterface(o) {
		case shaderlang.InterfacePosition:
			f.name, f.semantic = w.memberName(o.RegType, o.RegNum), "SV_Position"
		case shaderlang.InterfacePointSize:
			f.typ, f.name, f.semantic = "float", w.memberName(o.RegType, o.RegNum), "PSIZE"
			reg += ".x"
		case shaderlang.InterfaceColor:
			f.name, f.semantic = fmt.Sprintf("oC%d", o.Index), fmt.Sprintf("SV_Target%d", o.Index)
		case shaderlang.InterfaceDepth:
			f.typ, f.name, f.semantic = "float", "oDepth", "SV_Depth"
			reg += ".x"
		default:
			f.name, f.semantic = w.memberName(o.RegType, o.RegNum), semantic(o.Usage, o.Index)
		}
		f.copy = fmt.Sprintf("output.%s = %s;", f.name, reg)
		w.outputs = append(w.outputs, f)
	}
}

// memberName is the unprefixed register name, e.g. "oT0".
func (w *Writer) memberName(t ir.RegisterType, num int) string {
	return ir.RegisterName(w.prog.Type, w.prog.Version, t, num)
}

func (w *Writer) writeStruct(kind string, fields []field) {
	if len(fields) == 0 {
		return
	}
	w.out.Line("struct %s", w.structName(kind))
	w.out.Line("{")
	w.out.Indent()
	for _, f := range fields {
		w.out.Line("%s %s : %s;", f.typ, f.name, f.semantic)
	}
	w.out.Dedent()
	w.out.Line("};")
	w.out.Blank()
}

func (w *Writer) writeMain(body string) {
	ret := "void"
	if len(w.outputs) > 0 {
		ret = w.structName("output")
	}
	params := ""
	if len(w.inputs) > 0 {
		params = w.structName("input") + " input"
	}
	w.out.Line("%s %s(%s)", ret, w.options.EntryPoint, params)
	w.out.Line("{")
	w.out.Indent()
	for _, f := range w.inputs {
		w.out.Line("%s", f.copy)
	}
	w.out.Dedent()
	w.out.Raw(body)
	w.out.Indent()
	if len(w.outputs) > 0 {
		w.out.Line("%s output;", ret)
		for _, f := range w.outputs {
			w.out.Line("%s", f.copy)
		}
		w.out.Line("return output;")
	}
	w.out.Dedent()
	w.out.Line("}")
}

// translation builds the result tables. Attributes and outputs are named
// by semantic, the key D3D10 input layouts match on.
func (w *Writer) translation() *ir.Translation {
	t := ir.NewTranslation(Profile, w.prog)
	t.Code = []byte(w.String())
	t.MainFn = w.options.EntryPoint
	t.NameResources(
		func(u *ir.Uniform) string {
			if u.Constant {
				return w.lower.ConstArrayName(u)
			}
			return w.lower.UniformArray(u.Type)
		},
		func(s *ir.Sampler) string { return w.lower.SamplerName(s.Index) },
		func(a *ir.Attribute, output bool) string {
			fields := w.inputs
			if output {
				fields = w.outputs
			}
			for _, f := range fields {
				if f.attr != nil && f.attr.RegType == a.RegType && f.attr.RegNum == a.RegNum {
					return f.semantic
				}
			}
			return semantic(a.Usage, a.Index)
		},
	)
	return t
}
