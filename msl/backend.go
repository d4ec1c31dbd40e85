package msl

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/shaderlang"
)

// Profile is the profile name served by this package.
const Profile = "metal"

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version1_2 = Version{Major: 1, Minor: 2}
	Version2_0 = Version{Major: 2, Minor: 0}
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version3_0 = Version{Major: 3, Minor: 0}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Std returns the compiler language standard flag value, e.g.
// "macos-metal2.1".
func (v Version) Std() string {
	return "macos-metal" + v.String()
}

// BindTarget specifies the Metal binding slots of the entry point's
// resources.
type BindTarget struct {
	// Buffer is the buffer slot of the uniform struct.
	Buffer uint8

	// Texture is the texture slot of sampler stage 0. Stage n binds n
	// slots further.
	Texture uint8

	// Sampler is the sampler slot of sampler stage 0.
	Sampler uint8
}

// Options configures MSL code generation.
type Options struct {
	// LangVersion is the target MSL version.
	// Defaults to Version2_1 if zero.
	LangVersion Version

	// Bindings places the uniform buffer, textures and samplers.
	Bindings BindTarget

	// BumpEnv folds per-sampler bump environments into the code as literals.
	BumpEnv map[int]ir.BumpEnv

	// EntryPoint names the vertex or fragment function. Empty means
	// vs_main or ps_main; Metal reserves "main".
	EntryPoint string
}

// DefaultOptions returns sensible default options for MSL generation.
// The uniform buffer sits at slot 16, past the vertex buffers a renderer
// usually binds from slot 0.
func DefaultOptions() Options {
	return Options{
		LangVersion: Version2_1,
		Bindings:    BindTarget{Buffer: 16},
	}
}

// Compile generates MSL source code from a decoded program.
func Compile(prog *ir.Program, options Options) (*ir.Translation, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version2_1
	}
	if options.EntryPoint != "" && (options.EntryPoint == "main" || !shaderlang.IsIdentifier(options.EntryPoint)) {
		return nil, fmt.Errorf("msl: %q cannot name an entry point", options.EntryPoint)
	}

	w := newWriter(prog, &options)
	if err := w.writeProgram(); err != nil {
		return nil, fmt.Errorf("msl: %w", err)
	}
	return w.translation(), nil
}
