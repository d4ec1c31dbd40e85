package ir

// Translation is the output of a profile emitter.
type Translation struct {
	Profile string
	Code    []byte
	MainFn  string

	Uniforms   []Uniform
	Constants  []Constant
	Samplers   []Sampler
	Attributes []Attribute
	Outputs    []Attribute

	InstructionCount int

	// Extensions lists target-language extensions the code requires.
	Extensions []string
}

// NewTranslation copies the program's resource tables into a translation.
// Emitters then fill in profile-specific names.
func NewTranslation(profile string, p *Program) *Translation {
	return &Translation{
		Profile:          profile,
		Uniforms:         append([]Uniform(nil), p.Uniforms...),
		Constants:        append([]Constant(nil), p.Constants...),
		Samplers:         append([]Sampler(nil), p.Samplers...),
		Attributes:       append([]Attribute(nil), p.Attributes...),
		Outputs:          append([]Attribute(nil), p.Outputs...),
		InstructionCount: p.InstructionCount,
	}
}

// NameResources assigns names to every descriptor using the given
// functions. A nil function leaves that table unchanged.
func (t *Translation) NameResources(
	uniform func(*Uniform) string,
	sampler func(*Sampler) string,
	attr func(*Attribute, bool) string,
) {
	if uniform != nil {
		for i := range t.Uniforms {
			t.Uniforms[i].Name = uniform(&t.Uniforms[i])
		}
	}
	if sampler != nil {
		for i := range t.Samplers {
			t.Samplers[i].Name = sampler(&t.Samplers[i])
		}
	}
	if attr != nil {
		for i := range t.Attributes {
			t.Attributes[i].Name = attr(&t.Attributes[i], false)
		}
		for i := range t.Outputs {
			t.Outputs[i].Name = attr(&t.Outputs[i], true)
		}
	}
}
