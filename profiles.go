package d3dbc

import (
	"sort"

	"github.com/gogpu/d3dbc/arb1"
	"github.com/gogpu/d3dbc/d3d"
	"github.com/gogpu/d3dbc/glsl"
	"github.com/gogpu/d3dbc/hlsl"
	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/msl"
	"github.com/gogpu/d3dbc/spirv"
)

// emitRequest carries what an emitter may need besides the program.
type emitRequest struct {
	profile string
	entry   string
	source  []byte
	bumpEnv map[int]ir.BumpEnv
}

type emitFunc func(prog *ir.Program, req *emitRequest) (*ir.Translation, error)

func emitD3D(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	return d3d.Compile(prog, d3d.Options{Profile: req.profile, Source: req.source})
}

func emitGLSL(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	v, _ := glsl.VersionFor(req.profile)
	return glsl.Compile(prog, glsl.Options{LangVersion: v, Profile: req.profile, BumpEnv: req.bumpEnv})
}

func emitHLSL(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	opts := hlsl.DefaultOptions()
	opts.BumpEnv = req.bumpEnv
	opts.EntryPoint = req.entry
	return hlsl.Compile(prog, opts)
}

func emitMSL(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	opts := msl.DefaultOptions()
	opts.BumpEnv = req.bumpEnv
	// Metal reserves main; the default entry keeps the stage name.
	if req.entry != "main" {
		opts.EntryPoint = req.entry
	}
	return msl.Compile(prog, opts)
}

func emitSPIRV(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	return spirv.Compile(prog, spirv.Options{Profile: req.profile, EntryPoint: req.entry, BumpEnv: req.bumpEnv})
}

func emitARB1(prog *ir.Program, req *emitRequest) (*ir.Translation, error) {
	return arb1.Compile(prog, arb1.Options{Profile: req.profile, BumpEnv: req.bumpEnv})
}

// profiles is built once and never modified.
var profiles = map[string]emitFunc{
	d3d.ProfileD3D:       emitD3D,
	d3d.ProfileBytecode:  emitD3D,
	glsl.ProfileGLSL:     emitGLSL,
	glsl.ProfileGLSL120:  emitGLSL,
	glsl.ProfileGLSLES:   emitGLSL,
	glsl.ProfileGLSLES3:  emitGLSL,
	hlsl.Profile:         emitHLSL,
	msl.Profile:          emitMSL,
	spirv.ProfileSPIRV:   emitSPIRV,
	spirv.ProfileGLSPIRV: emitSPIRV,
	arb1.ProfileARB1:     emitARB1,
	arb1.ProfileNV2:      emitARB1,
	arb1.ProfileNV3:      emitARB1,
	arb1.ProfileNV4:      emitARB1,
}

// Profiles returns the names of every supported profile, sorted.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxShaderModel returns the highest shader model major version a profile
// accepts, or -1 for an unknown profile.
func MaxShaderModel(profile string) int {
	if _, ok := profiles[profile]; !ok {
		return -1
	}
	if n := arb1.MaxShaderModel(profile); n >= 0 {
		return n
	}
	return 3
}
