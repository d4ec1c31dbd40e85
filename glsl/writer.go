// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Writer generates GLSL source code from a decoded program.
type Writer struct {
	prog    *ir.Program
	options *Options
	dialect *dialect
	lower   *shaderlang.Writer

	// Output buffer
	out *shaderlang.Buffer

	// Output tracking
	extensions []string
	// colorOutputs counts the pixel color targets written.
	colorOutputs int
}

// newWriter creates a new GLSL writer.
func newWriter(prog *ir.Program, options *Options) *Writer {
	d := newDialect(options.LangVersion)
	return &Writer{
		prog:    prog,
		options: options,
		dialect: d,
		lower:   shaderlang.NewWriter(prog, d, shaderlang.Options{BumpEnv: options.BumpEnv}),
		out:     shaderlang.NewBuffer(0),
	}
}

// String returns the generated source.
func (w *Writer) String() string {
	return w.out.String()
}

// writeProgram generates the complete shader.
func (w *Writer) writeProgram() error {
	code, err := w.lower.Generate()
	if err != nil {
		return err
	}
	v := w.options.LangVersion
	needs := w.lower.Needs()
	if needs.Derivatives && v == VersionES100 {
		w.dialect.require(extDerivatives)
	}
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		switch w.lower.OutputInterface(o) {
		case shaderlang.InterfaceColor:
			if o.Index+1 > w.colorOutputs {
				w.colorOutputs = o.Index + 1
			}
		case shaderlang.InterfaceDepth:
			if v == VersionES100 {
				w.dialect.require(extFragDepth)
			}
		}
	}
	if w.colorOutputs > 1 && !v.ES {
		w.dialect.require(extDrawBuffers)
	}

	w.writeHeader()
	w.writeUniforms()
	w.writeInterface()
	w.writeGlobals()
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

func (w *Writer) writeHeader() {
	v := w.options.LangVersion
	w.out.Line("#version %s", v)
	for ext := range w.dialect.extensions {
		w.extensions = append(w.extensions, ext)
	}
	sort.Strings(w.extensions)
	for _, ext := range w.extensions {
		w.out.Line("#extension %s : require", ext)
	}
	if v.ES {
		w.out.Line("precision highp float;")
		w.out.Line("precision highp int;")
	}
	w.out.Blank()
}

func (w *Writer) writeUniforms() {
	types := [...]struct {
		t   ir.UniformType
		typ string
	}{
		{ir.UniformFloat, "vec4"},
		{ir.UniformInt, "ivec4"},
		{ir.UniformBool, "bool"},
	}
	for _, u := range types {
		if n := w.prog.UniformSlots(u.t); n > 0 {
			w.out.Line("uniform %s %s[%d];", u.typ, w.lower.UniformArray(u.t), n)
		}
	}
	if name, n := w.lower.TexbemUniform(); n > 0 {
		w.out.Line("uniform vec4 %s[%d];", name, n)
	}
	for _, s := range w.prog.Samplers {
		w.out.Line("uniform %s %s;", samplerType(s.Type), w.lower.SamplerName(s.Index))
	}
}

// writeInterface declares stage inputs and outputs.
func (w *Writer) writeInterface() {
	v := w.options.LangVersion
	in, out := "varying", "varying"
	if v.modern() {
		in, out = "in", "out"
	}
	if w.prog.IsVertex() {
		for i, a := range w.prog.Attributes {
			name := w.lower.RegName(a.RegType, a.RegNum)
			if v.modern() {
				w.out.Line("layout(location = %d) in vec4 %s;", i, name)
			} else {
				w.out.Line("attribute vec4 %s;", name)
			}
		}
		for i := range w.prog.Outputs {
			o := &w.prog.Outputs[i]
			if w.lower.OutputInterface(o) == shaderlang.InterfaceVarying {
				w.out.Line("%s vec4 %s;", out, shaderlang.Varying(o.Usage, o.Index))
			}
		}
		return
	}

	for i := range w.prog.Registers {
		r := &w.prog.Registers[i]
		if !w.isVaryingInput(r) {
			continue
		}
		qual := in
		if r.Mod&ir.ResultModCentroid != 0 && v != VersionES100 && v != Version110 {
			qual = "centroid " + in
		}
		w.out.Line("%s vec4 %s;", qual, shaderlang.Varying(r.Usage, r.UsageIndex))
	}
	if v.modern() {
		for i := 0; i < w.colorOutputs; i++ {
			w.out.Line("layout(location = %d) out vec4 %s;", i, w.fragData(i))
		}
	}
}

func (w *Writer) isVaryingInput(r *ir.Register) bool {
	if r.Usage == ir.UsageUnknown || r.Type == ir.RegMisc {
		return false
	}
	return r.Type == ir.RegInput || r.Type == ir.RegTexture
}

func (w *Writer) writeGlobals() {
	for _, c := range w.lower.Constants() {
		w.out.Line("const %s %s = %s;", c.Type, c.Name, c.Init)
	}
	for _, arr := range w.lower.ConstArrays() {
		if w.constArrayInit() {
			w.out.Line("const vec4 %s[%d] = vec4[%d](%s);", arr.Name, len(arr.Values), len(arr.Values),
				strings.Join(arr.Values, ", "))
		} else {
			w.out.Line("vec4 %s[%d];", arr.Name, len(arr.Values))
		}
	}
	for _, d := range w.lower.Registers() {
		if d.Role == shaderlang.RoleInput && w.prog.IsVertex() {
			continue
		}
		w.out.Line("%s %s;", d.Type, d.Name)
	}
	w.out.Blank()
}

// constArrayInit reports whether array constructors are available.
func (w *Writer) constArrayInit() bool {
	v := w.options.LangVersion
	return v == Version120 || v.modern()
}

func (w *Writer) writeMain(body string) {
	w.out.Line("void main()")
	w.out.Line("{")
	w.out.Indent()
	if !w.constArrayInit() {
		for _, arr := range w.lower.ConstArrays() {
			for i, val := range arr.Values {
				w.out.Line("%s[%d] = %s;", arr.Name, i, val)
			}
		}
	}
	if w.prog.IsPixel() {
		w.writeInputCopies()
	}
	w.out.Dedent()
	w.out.Raw(body)
	w.out.Indent()
	w.writeOutputCopies()
	w.out.Dedent()
	w.out.Line("}")
}

func (w *Writer) writeInputCopies() {
	for _, d := range w.lower.Registers() {
		if d.Role != shaderlang.RoleInput {
			continue
		}
		switch w.lower.InputInterface(d.Reg) {
		case shaderlang.InterfaceFace:
			w.out.Line("%s = gl_FrontFacing ? 1.0 : -1.0;", d.Name)
		case shaderlang.InterfaceFragCoord:
			w.out.Line("%s = gl_FragCoord;", d.Name)
		default:
			if w.isVaryingInput(d.Reg) {
				w.out.Line("%s = %s;", d.Name, shaderlang.Varying(d.Reg.Usage, d.Reg.UsageIndex))
			}
		}
	}
}

func (w *Writer) writeOutputCopies() {
	for i := range w.prog.Outputs {
		o := &w.prog.Outputs[i]
		name := w.lower.RegName(o.RegType, o.RegNum)
		switch w.lower.OutputInterface(o) {
		case shaderlang.InterfacePosition:
			w.out.Line("gl_Position = %s;", name)
		case shaderlang.InterfacePointSize:
			w.out.Line("gl_PointSize = %s.x;", name)
		case shaderlang.InterfaceColor:
			w.out.Line("%s = %s;", w.fragData(o.Index), name)
		case shaderlang.InterfaceDepth:
			w.out.Line("%s = %s.x;", w.fragDepth(), name)
		default:
			w.out.Line("%s = %s;", shaderlang.Varying(o.Usage, o.Index), name)
		}
	}
}

func (w *Writer) fragData(index int) string {
	switch {
	case w.options.LangVersion.modern():
		return fmt.Sprintf("ps_FragData%d", index)
	case w.colorOutputs <= 1:
		return "gl_FragColor"
	}
	return fmt.Sprintf("gl_FragData[%d]", index)
}

func (w *Writer) fragDepth() string {
	if w.options.LangVersion == VersionES100 {
		return "gl_FragDepthEXT"
	}
	return "gl_FragDepth"
}

// translation builds the result tables with GLSL names.
func (w *Writer) translation() *ir.Translation {
	t := ir.NewTranslation(w.options.Profile, w.prog)
	t.Code = []byte(w.String())
	t.MainFn = "main"
	t.Extensions = w.extensions
	t.NameResources(
		func(u *ir.Uniform) string {
			if u.Constant {
				return w.lower.ConstArrayName(u)
			}
			return w.lower.UniformArray(u.Type)
		},
		func(s *ir.Sampler) string { return w.lower.SamplerName(s.Index) },
		func(a *ir.Attribute, output bool) string {
			switch {
			case !output && w.prog.IsVertex():
				return w.lower.RegName(a.RegType, a.RegNum)
			case !output:
				return shaderlang.Varying(a.Usage, a.Index)
			}
			switch w.lower.OutputInterface(a) {
			case shaderlang.InterfacePosition:
				return "gl_Position"
			case shaderlang.InterfacePointSize:
				return "gl_PointSize"
			case shaderlang.InterfaceColor:
				return w.fragData(a.Index)
			case shaderlang.InterfaceDepth:
				return w.fragDepth()
			}
			return shaderlang.Varying(a.Usage, a.Index)
		},
	)
	return t
}
