// Package reflection serializes the resource tables of a translated shader
// so that a renderer can bind uniforms, samplers and attributes without
// decoding the bytecode again.
//
// Documents are CBOR with integer keys in canonical form: the same result
// always encodes to the same bytes.
package reflection

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/gogpu/d3dbc"
	"github.com/gogpu/d3dbc/ir"
)

// FormatVersion is bumped whenever the document layout changes.
const FormatVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("reflection: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Document describes one translated shader.
type Document struct {
	Format           int         `cbor:"1,keyasint"`
	Profile          string      `cbor:"2,keyasint"`
	Stage            string      `cbor:"3,keyasint"`
	Major            uint8       `cbor:"4,keyasint"`
	Minor            uint8       `cbor:"5,keyasint"`
	MainFn           string      `cbor:"6,keyasint"`
	InstructionCount int         `cbor:"7,keyasint"`
	OutputSize       int         `cbor:"8,keyasint"`
	Uniforms         []Uniform   `cbor:"9,keyasint,omitempty"`
	Constants        []Constant  `cbor:"10,keyasint,omitempty"`
	Samplers         []Sampler   `cbor:"11,keyasint,omitempty"`
	Attributes       []Attribute `cbor:"12,keyasint,omitempty"`
	Outputs          []Attribute `cbor:"13,keyasint,omitempty"`
	Symbols          []Symbol    `cbor:"14,keyasint,omitempty"`
	Extensions       []string    `cbor:"15,keyasint,omitempty"`
	Preshader        *Preshader  `cbor:"16,keyasint,omitempty"`
	Errors           []string    `cbor:"17,keyasint,omitempty"`
}

// Uniform is a uniform array as laid out by the emitter.
type Uniform struct {
	Type     string `cbor:"1,keyasint"`
	Register int    `cbor:"2,keyasint"`
	Count    int    `cbor:"3,keyasint"`
	Constant bool   `cbor:"4,keyasint,omitempty"`
	Name     string `cbor:"5,keyasint"`
}

// Constant is a DEF, DEFI or DEFB literal.
type Constant struct {
	Type     string     `cbor:"1,keyasint"`
	Register int        `cbor:"2,keyasint"`
	Float    [4]float32 `cbor:"3,keyasint,omitempty"`
	Int      [4]int32   `cbor:"4,keyasint,omitempty"`
	Bool     bool       `cbor:"5,keyasint,omitempty"`
}

// Sampler is a texture binding.
type Sampler struct {
	Type   string `cbor:"1,keyasint"`
	Stage  int    `cbor:"2,keyasint"`
	Name   string `cbor:"3,keyasint"`
	Texbem bool   `cbor:"4,keyasint,omitempty"`
}

// Attribute is a stage input or output.
type Attribute struct {
	Usage string `cbor:"1,keyasint"`
	Index int    `cbor:"2,keyasint"`
	Mask  string `cbor:"3,keyasint"`
	Name  string `cbor:"4,keyasint"`
}

// Symbol is a constant table entry.
type Symbol struct {
	Name     string `cbor:"1,keyasint"`
	Set      int    `cbor:"2,keyasint"`
	Register uint32 `cbor:"3,keyasint"`
	Count    uint32 `cbor:"4,keyasint"`
	Rows     uint32 `cbor:"5,keyasint,omitempty"`
	Columns  uint32 `cbor:"6,keyasint,omitempty"`
	Elements uint32 `cbor:"7,keyasint,omitempty"`
}

// Preshader summarizes the preshader a caller must run before drawing.
type Preshader struct {
	Instructions int      `cbor:"1,keyasint"`
	Temps        uint32   `cbor:"2,keyasint"`
	Literals     int      `cbor:"3,keyasint"`
	Symbols      []Symbol `cbor:"4,keyasint,omitempty"`
}

// FromResult builds the document of r. A failed result still yields the
// decoded tables and its error messages.
func FromResult(r *d3dbc.Result) *Document {
	doc := &Document{
		Format:           FormatVersion,
		Profile:          r.Profile,
		Stage:            r.ShaderType.String(),
		Major:            r.Major,
		Minor:            r.Minor,
		MainFn:           r.MainFn,
		InstructionCount: r.InstructionCount,
		OutputSize:       len(r.Output),
		Extensions:       r.Extensions,
		Symbols:          symbols(r.Symbols),
	}
	for _, u := range r.Uniforms {
		doc.Uniforms = append(doc.Uniforms, Uniform{
			Type:     u.Type.String(),
			Register: u.Index,
			Count:    u.Slots(),
			Constant: u.Constant,
			Name:     u.Name,
		})
	}
	for _, c := range r.Constants {
		dc := Constant{Type: c.Type.String(), Register: c.Index}
		switch c.Type {
		case ir.UniformFloat:
			dc.Float = c.Float
		case ir.UniformInt:
			dc.Int = c.Int
		case ir.UniformBool:
			dc.Bool = c.Bool
		}
		doc.Constants = append(doc.Constants, dc)
	}
	for _, s := range r.Samplers {
		doc.Samplers = append(doc.Samplers, Sampler{
			Type:   s.Type.String(),
			Stage:  s.Index,
			Name:   s.Name,
			Texbem: s.Texbem,
		})
	}
	doc.Attributes = attributes(r.Attributes)
	doc.Outputs = attributes(r.Outputs)
	if p := r.Preshader; p != nil {
		doc.Preshader = &Preshader{
			Instructions: len(p.Instructions),
			Temps:        p.TempCount,
			Literals:     len(p.Literals),
			Symbols:      symbols(p.Symbols),
		}
	}
	for _, e := range r.Errors {
		doc.Errors = append(doc.Errors, e.Error())
	}
	return doc
}

func attributes(in []ir.Attribute) []Attribute {
	var out []Attribute
	for _, a := range in {
		out = append(out, Attribute{
			Usage: a.Usage.String(),
			Index: a.Index,
			Mask:  a.Mask.String(),
			Name:  a.Name,
		})
	}
	return out
}

func symbols(in []ir.Symbol) []Symbol {
	var out []Symbol
	for _, s := range in {
		out = append(out, Symbol{
			Name:     s.Name,
			Set:      int(s.RegisterSet),
			Register: s.RegisterIndex,
			Count:    s.RegisterCount,
			Rows:     s.Info.Rows,
			Columns:  s.Info.Columns,
			Elements: s.Info.Elements,
		})
	}
	return out
}

// Encode serializes the document of r.
func Encode(r *d3dbc.Result) ([]byte, error) {
	return Marshal(FromResult(r))
}

// Marshal serializes doc in canonical form.
func Marshal(doc *Document) ([]byte, error) {
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("reflection: marshal: %w", err)
	}
	return data, nil
}

// Decode deserializes a document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("reflection: unmarshal: %w", err)
	}
	if doc.Format != FormatVersion {
		return nil, fmt.Errorf("reflection: unsupported format version %d", doc.Format)
	}
	return &doc, nil
}
