package d3d

import (
	"errors"
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// Profile names served by this package.
const (
	ProfileD3D      = "d3d"
	ProfileBytecode = "bytecode"
)

// ErrNoSource is returned by the bytecode profile when Options.Source is
// empty.
var ErrNoSource = errors.New("the bytecode profile needs the source token stream")

// Options configures the Direct3D profiles.
type Options struct {
	// Profile selects ProfileD3D (the default) or ProfileBytecode.
	Profile string

	// Source is the token stream prog was decoded from. The bytecode
	// profile copies it and patches overridden tokens in the copy.
	Source []byte
}

// Compile emits prog in the selected profile.
func Compile(prog *ir.Program, options Options) (*ir.Translation, error) {
	if options.Profile == "" {
		options.Profile = ProfileD3D
	}

	var (
		code []byte
		err  error
	)
	switch options.Profile {
	case ProfileD3D:
		code = []byte(Disassemble(prog))
	case ProfileBytecode:
		code, err = Passthrough(options.Source, prog)
	default:
		err = fmt.Errorf("unknown profile %q", options.Profile)
	}
	if err != nil {
		return nil, fmt.Errorf("d3d: %w", err)
	}

	t := ir.NewTranslation(options.Profile, prog)
	t.Code = code
	t.NameResources(
		func(u *ir.Uniform) string {
			return ir.RegisterName(prog.Type, prog.Version, u.Type.RegisterType(), u.Index)
		},
		func(s *ir.Sampler) string {
			return ir.RegisterName(prog.Type, prog.Version, ir.RegSampler, s.Index)
		},
		func(a *ir.Attribute, _ bool) string {
			return ir.RegisterName(prog.Type, prog.Version, a.RegType, a.RegNum)
		},
	)
	return t, nil
}
