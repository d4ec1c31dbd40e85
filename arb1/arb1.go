package arb1

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// Profile names served by this package.
const (
	ProfileARB1 = "arb1"
	ProfileNV2  = "nv2"
	ProfileNV3  = "nv3"
	ProfileNV4  = "nv4"
)

// flowStyle is how a stage lowers flow control.
type flowStyle uint8

const (
	flowNone       flowStyle = iota
	flowBranch               // BRA to labels, counters in temporaries
	flowStructured           // IF, REP and BRK
)

// dialect captures what one profile's program languages accept.
type dialect struct {
	maxModel uint8

	vsHeader, psHeader []string
	vsFlow, psFlow     flowStyle

	// abs is set when |x| is legal on source operands.
	abs bool
	// cc is set when condition codes and masked writes are available.
	cc bool
	// vsSaturate is set when vertex instructions accept _SAT.
	vsSaturate bool
	// vsTrig is set when vertex programs have SIN and COS.
	vsTrig bool
	// derivatives, gradients and explicit lod sampling in fragments.
	derivatives bool
	textureLod  bool
	// vsTexture is set when vertex programs may sample.
	vsTexture bool
	face      bool
	// intAddress uses an INT TEMP for relative addressing instead of ARL.
	intAddress bool
	// psRelative allows relative constant reads in fragment programs.
	psRelative bool
}

var dialects = map[string]*dialect{
	ProfileARB1: {
		maxModel: 2,
		vsHeader: []string{"!!ARBvp1.0"},
		psHeader: []string{"!!ARBfp1.0"},
	},
	ProfileNV2: {
		maxModel:    2,
		vsHeader:    []string{"!!ARBvp1.0", "OPTION NV_vertex_program2;"},
		psHeader:    []string{"!!ARBfp1.0", "OPTION NV_fragment_program;"},
		vsFlow:      flowBranch,
		abs:         true,
		cc:          true,
		vsTrig:      true,
		derivatives: true,
	},
	ProfileNV3: {
		maxModel:    3,
		vsHeader:    []string{"!!ARBvp1.0", "OPTION NV_vertex_program3;"},
		psHeader:    []string{"!!ARBfp1.0", "OPTION NV_fragment_program2;"},
		vsFlow:      flowBranch,
		psFlow:      flowStructured,
		abs:         true,
		cc:          true,
		vsSaturate:  true,
		vsTrig:      true,
		derivatives: true,
		textureLod:  true,
		vsTexture:   true,
		face:        true,
	},
	ProfileNV4: {
		maxModel:    3,
		vsHeader:    []string{"!!NVvp4.0"},
		psHeader:    []string{"!!NVfp4.0"},
		vsFlow:      flowStructured,
		psFlow:      flowStructured,
		abs:         true,
		cc:          true,
		vsSaturate:  true,
		vsTrig:      true,
		derivatives: true,
		textureLod:  true,
		vsTexture:   true,
		face:        true,
		intAddress:  true,
		psRelative:  true,
	},
}

// MaxShaderModel returns the highest shader model a profile accepts, or -1
// for a name this package does not serve.
func MaxShaderModel(profile string) int {
	d, ok := dialects[profile]
	if !ok {
		return -1
	}
	return int(d.maxModel)
}

// Options configures assembly program generation.
type Options struct {
	// Profile selects ProfileARB1 (the default), ProfileNV2, ProfileNV3
	// or ProfileNV4.
	Profile string

	// BumpEnv folds per-sampler bump environments into the program as
	// literals. Stages without an entry read the texbem parameters.
	BumpEnv map[int]ir.BumpEnv
}

// Compile generates an ARB assembly program from a decoded program.
//
// Uniforms are bound to program.local in order: the float registers, then
// the integer registers, then the booleans, then two texbem vectors per
// bump-mapped sampler.
func Compile(prog *ir.Program, options Options) (*ir.Translation, error) {
	if options.Profile == "" {
		options.Profile = ProfileARB1
	}
	d, ok := dialects[options.Profile]
	if !ok {
		return nil, fmt.Errorf("arb1: unknown profile %q", options.Profile)
	}
	if prog.Version.Major > d.maxModel {
		return nil, fmt.Errorf("arb1: %s does not support shader model %d",
			options.Profile, prog.Version.Major)
	}

	w := newWriter(prog, d, &options)
	code, err := w.program()
	if err != nil {
		return nil, fmt.Errorf("arb1: %w", err)
	}
	return w.translation(code), nil
}
