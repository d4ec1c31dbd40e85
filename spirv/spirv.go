package spirv

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
)

// Profile names served by this package.
const (
	ProfileSPIRV   = "spirv"
	ProfileGLSPIRV = "glspirv"
)

// Options configures SPIR-V generation.
type Options struct {
	// Profile selects ProfileSPIRV (the default) or ProfileGLSPIRV. The
	// two differ in descriptor layout and fragment origin.
	Profile string

	// EntryPoint names the OpEntryPoint. Defaults to "main".
	EntryPoint string

	// BumpEnv folds per-sampler bump environments into the module as
	// constants. Stages without an entry read the texbem uniform.
	BumpEnv map[int]ir.BumpEnv
}

// Compile generates a SPIR-V module from a decoded program. The module is
// followed by the patch table that Link consumes.
func Compile(prog *ir.Program, options Options) (*ir.Translation, error) {
	if options.Profile == "" {
		options.Profile = ProfileSPIRV
	}
	if options.Profile != ProfileSPIRV && options.Profile != ProfileGLSPIRV {
		return nil, fmt.Errorf("spirv: unknown profile %q", options.Profile)
	}
	if options.EntryPoint == "" {
		options.EntryPoint = "main"
	}

	e := newEmitter(prog, &options)
	code, err := e.emit()
	if err != nil {
		return nil, fmt.Errorf("spirv: %w", err)
	}
	return e.translation(code), nil
}
