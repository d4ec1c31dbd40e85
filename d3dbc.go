// Package d3dbc translates compiled Direct3D 9 shader bytecode into other
// shading languages and binary formats.
//
// A shader is decoded once into the profile-independent program model of
// package ir and then handed to the emitter of the requested profile:
//   - d3d, bytecode: assembly listing and token-stream passthrough
//   - glsl, glsl120, glsles, glsles3: OpenGL Shading Language
//   - hlsl: HLSL for shader model 4 and later
//   - metal: Metal Shading Language
//   - spirv, glspirv: SPIR-V for Vulkan and OpenGL
//   - arb1, nv2, nv3, nv4: OpenGL assembly programs
//
// Example usage:
//
//	res := d3dbc.Parse("glsl", "main", code, nil)
//	defer res.Free()
//	if len(res.Errors) > 0 {
//	    log.Fatal(res.Errors[0])
//	}
//	fmt.Println(string(res.Output))
//
// SPIR-V modules carry a patch table; LinkSPIRV reconciles the varying
// locations of a vertex and pixel module before they are used together.
package d3dbc

import (
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/spirv"
)

// version is bumped whenever generated output changes.
const version = 1

// Version returns the version of the translator.
func Version() int { return version }

// Changeset returns the VCS revision the binary was built from, or "???"
// when it was not recorded.
func Changeset() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "???"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "???"
}

// Options configures Parse. The zero value is ready to use.
type Options struct {
	// Swizzles remaps vertex inputs by usage.
	Swizzles []ir.SwizzleOverride

	// Samplers forces sampler types.
	Samplers []ir.SamplerOverride

	// BumpEnv folds per-sampler bump environments into the output.
	BumpEnv map[int]ir.BumpEnv

	// Allocator owns the memory of the result. Defaults to HeapAllocator.
	Allocator Allocator

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger

	// Filename is attached to every error record.
	Filename string
}

// Result is the output of Parse. Everything in it is read-only.
type Result struct {
	Errors []*ir.Error

	Profile          string
	Output           []byte
	InstructionCount int

	ShaderType ir.ShaderType
	Major      uint8
	Minor      uint8
	MainFn     string

	Uniforms   []ir.Uniform
	Constants  []ir.Constant
	Samplers   []ir.Sampler
	Attributes []ir.Attribute
	Outputs    []ir.Attribute

	// Swizzles are the overrides that were applied.
	Swizzles []ir.SwizzleOverride

	Symbols   []ir.Symbol
	Preshader *ir.Preshader

	Extensions []string

	arena Arena
}

// outOfMemory is returned when the allocator cannot provide even the
// result's arena.
var outOfMemory = &Result{
	Errors: []*ir.Error{{
		Kind:     ir.ErrAlloc,
		Message:  "out of memory",
		Position: ir.PositionNone,
	}},
}

// Free releases the memory of r. It is safe on a nil result and may be
// called more than once.
func (r *Result) Free() {
	if r == nil || r.arena == nil {
		return
	}
	r.arena.Release()
	r.arena = nil
	r.Output = nil
}

// Parse decodes code and emits it in the named profile. entry names the
// entry point where the profile has one; empty means "main". The result is
// never nil: callers check len(Errors) and call Free when done.
func Parse(profile, entry string, code []byte, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}
	if entry == "" {
		entry = "main"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	arena := alloc.NewArena()
	if arena == nil {
		return outOfMemory
	}

	r := &Result{Profile: profile, MainFn: entry, arena: arena}
	emit, ok := profiles[profile]
	if !ok {
		e := ir.NewError(ir.ErrProfile, ir.PositionNone, "unknown profile %q", profile)
		e.Filename = opts.Filename
		r.Errors = []*ir.Error{e}
		return r
	}

	prog, errs := safeDecode(code, bytecode.Options{Filename: opts.Filename, Logger: log})
	if prog == nil {
		r.Errors = errs.Errors()
		return r
	}
	r.ShaderType = prog.Type
	r.Major, r.Minor = prog.Version.Major, prog.Version.Minor
	r.Symbols = prog.Symbols
	r.Preshader = prog.Preshader
	r.Swizzles = append([]ir.SwizzleOverride(nil), opts.Swizzles...)

	prog = ir.ApplyOverrides(prog, opts.Swizzles, opts.Samplers)
	tr, err := safeEmit(emit, prog, &emitRequest{
		profile: profile,
		entry:   entry,
		source:  code,
		bumpEnv: opts.BumpEnv,
	})
	if err != nil {
		// Emitters see the whole program, so their failures sit after it.
		e := *ir.AsError(err, ir.ErrProfile, ir.PositionAfter)
		e.Position = ir.PositionAfter
		errs.Add(&e)
		tr = ir.NewTranslation(profile, prog)
		log.Debug("emit failed", zap.String("profile", profile), zap.Error(err))
	}
	r.Errors = errs.Errors()

	if tr.Code != nil {
		out, err := arenaCopy(arena, tr.Code)
		if err != nil {
			arena.Release()
			return outOfMemory
		}
		r.Output = out
	}
	r.InstructionCount = tr.InstructionCount
	if tr.MainFn != "" {
		r.MainFn = tr.MainFn
	}
	r.Uniforms = tr.Uniforms
	r.Constants = tr.Constants
	r.Samplers = tr.Samplers
	r.Attributes = tr.Attributes
	r.Outputs = tr.Outputs
	r.Extensions = tr.Extensions
	return r
}

// safeDecode runs the decoder, turning a panic into a decode error.
func safeDecode(code []byte, opts bytecode.Options) (prog *ir.Program, errs *ir.ErrorList) {
	defer func() {
		if p := recover(); p != nil {
			prog = nil
			errs = &ir.ErrorList{Filename: opts.Filename}
			errs.Addf(ir.ErrDecode, ir.PositionNone, "internal error in the decoder: %v", p)
		}
	}()
	return bytecode.Decode(code, opts)
}

// safeEmit runs an emitter, turning a panic into a profile error.
func safeEmit(emit emitFunc, prog *ir.Program, req *emitRequest) (tr *ir.Translation, err error) {
	defer func() {
		if p := recover(); p != nil {
			tr = nil
			err = ir.NewError(ir.ErrProfile, ir.PositionAfter, "internal error in the %s emitter: %v", req.profile, p)
		}
	}()
	return emit(prog, req)
}

// Preshader is a standalone preshader, as found in effect files.
type Preshader struct {
	*ir.Preshader

	arena Arena
}

// Free releases p. It is safe on nil.
func (p *Preshader) Free() {
	if p == nil || p.arena == nil {
		return
	}
	p.arena.Release()
	p.arena = nil
}

// ParsePreshader parses a standalone preshader block: a version token,
// its comment blocks and END. It returns nil on malformed input or when
// alloc fails; a nil alloc means HeapAllocator.
func ParsePreshader(buf []byte, alloc Allocator) *Preshader {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	arena := alloc.NewArena()
	if arena == nil {
		return nil
	}
	data, err := arenaCopy(arena, buf)
	if err != nil {
		arena.Release()
		return nil
	}
	pre, err := bytecode.ParsePreshader(data)
	if err != nil {
		arena.Release()
		return nil
	}
	return &Preshader{Preshader: pre, arena: arena}
}

// LinkSPIRV assigns matching varying locations to a vertex and a pixel
// module produced by the spirv or glspirv profile, in place. attrs orders
// the vertex attributes; unlisted ones follow in declaration order. It
// returns the size of the trailing patch table, which callers drop before
// handing the modules to a driver.
func LinkSPIRV(vs, ps []byte, attrs []ir.Attribute) (int, error) {
	return spirv.Link(vs, ps, attrs, nil)
}
