// Package config loads d3dc.toml translation settings.
//
// A file looks like:
//
//	profile    = "glsl120"
//	output_dir = "out"
//	jobs       = 4
//
//	[[swizzle]]
//	usage   = "COLOR"
//	index   = 0
//	swizzle = "zyxw"
//
//	[[sampler]]
//	index = 1
//	type  = "cube"
//
//	[[bumpenv]]
//	stage  = 0
//	matrix = [1.0, 0.0, 0.0, 1.0]
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/gogpu/d3dbc"
	"github.com/gogpu/d3dbc/ir"
)

// FileName is the conventional name of a settings file.
const FileName = "d3dc.toml"

// Config holds translation settings.
type Config struct {
	Profile   string `toml:"profile"`
	Entry     string `toml:"entry"`
	OutputDir string `toml:"output_dir"`
	Jobs      int    `toml:"jobs"`
	Verbose   bool   `toml:"verbose"`
	Reflect   bool   `toml:"reflect"`

	Swizzles []Swizzle `toml:"swizzle"`
	Samplers []Sampler `toml:"sampler"`
	BumpEnv  []BumpEnv `toml:"bumpenv"`

	// Path is the file the settings were read from (set at load time).
	Path string `toml:"-"`
}

// Swizzle remaps the components of the vertex input bound to a usage.
type Swizzle struct {
	Usage   string `toml:"usage"`
	Index   int    `toml:"index"`
	Swizzle string `toml:"swizzle"`
}

// Sampler forces the type of a sampler.
type Sampler struct {
	Index int    `toml:"index"`
	Type  string `toml:"type"`
}

// BumpEnv is the bump environment of one texture stage.
type BumpEnv struct {
	Stage   int        `toml:"stage"`
	Matrix  [4]float32 `toml:"matrix"`
	LScale  float32    `toml:"lscale"`
	LOffset float32    `toml:"loffset"`
}

// Default returns the settings used without a file.
func Default() *Config {
	return &Config{
		Profile: "glsl",
		Entry:   "main",
		Jobs:    runtime.GOMAXPROCS(0),
	}
}

// Load reads and validates a settings file. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if d3dbc.MaxShaderModel(c.Profile) < 0 {
		return fmt.Errorf("unknown profile %q (want one of %s)", c.Profile, strings.Join(d3dbc.Profiles(), ", "))
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	for i, s := range c.Swizzles {
		if _, err := s.override(); err != nil {
			return fmt.Errorf("swizzle #%d: %w", i+1, err)
		}
	}
	for i, s := range c.Samplers {
		if _, err := s.override(); err != nil {
			return fmt.Errorf("sampler #%d: %w", i+1, err)
		}
	}
	seen := make(map[int]bool, len(c.BumpEnv))
	for i, b := range c.BumpEnv {
		if b.Stage < 0 || b.Stage > 7 {
			return fmt.Errorf("bumpenv #%d: stage %d out of range 0-7", i+1, b.Stage)
		}
		if seen[b.Stage] {
			return fmt.Errorf("bumpenv #%d: stage %d listed twice", i+1, b.Stage)
		}
		seen[b.Stage] = true
	}
	return nil
}

func (s Swizzle) override() (ir.SwizzleOverride, error) {
	usage, ok := ir.ParseUsage(strings.ToUpper(s.Usage))
	if !ok {
		return ir.SwizzleOverride{}, fmt.Errorf("unknown usage %q", s.Usage)
	}
	if s.Index < 0 || s.Index > 15 {
		return ir.SwizzleOverride{}, fmt.Errorf("usage index %d out of range 0-15", s.Index)
	}
	ov := ir.SwizzleOverride{Usage: usage, Index: s.Index}
	if len(s.Swizzle) != 4 {
		return ov, fmt.Errorf("swizzle %q must have four components", s.Swizzle)
	}
	for i, c := range strings.ToLower(s.Swizzle) {
		switch c {
		case 'x', 'r':
			ov.Swizzle[i] = 0
		case 'y', 'g':
			ov.Swizzle[i] = 1
		case 'z', 'b':
			ov.Swizzle[i] = 2
		case 'w', 'a':
			ov.Swizzle[i] = 3
		default:
			return ov, fmt.Errorf("swizzle %q: bad component %q", s.Swizzle, c)
		}
	}
	return ov, nil
}

func (s Sampler) override() (ir.SamplerOverride, error) {
	if s.Index < 0 || s.Index > 15 {
		return ir.SamplerOverride{}, fmt.Errorf("sampler index %d out of range 0-15", s.Index)
	}
	t, ok := ir.ParseSamplerType(strings.ToLower(s.Type))
	if !ok {
		return ir.SamplerOverride{}, fmt.Errorf("unknown sampler type %q", s.Type)
	}
	return ir.SamplerOverride{Index: s.Index, Type: t}, nil
}

// SwizzleOverrides converts the swizzle entries. Invalid entries are
// skipped; Load rejects them.
func (c *Config) SwizzleOverrides() []ir.SwizzleOverride {
	var out []ir.SwizzleOverride
	for _, s := range c.Swizzles {
		if ov, err := s.override(); err == nil {
			out = append(out, ov)
		}
	}
	return out
}

// SamplerOverrides converts the sampler entries.
func (c *Config) SamplerOverrides() []ir.SamplerOverride {
	var out []ir.SamplerOverride
	for _, s := range c.Samplers {
		if ov, err := s.override(); err == nil {
			out = append(out, ov)
		}
	}
	return out
}

// BumpEnvs returns the bump environments keyed by stage, or nil when none
// are set.
func (c *Config) BumpEnvs() map[int]ir.BumpEnv {
	if len(c.BumpEnv) == 0 {
		return nil
	}
	out := make(map[int]ir.BumpEnv, len(c.BumpEnv))
	for _, b := range c.BumpEnv {
		out[b.Stage] = ir.BumpEnv{Mat: b.Matrix, LScale: b.LScale, LOffset: b.LOffset}
	}
	return out
}

// Options builds the Parse options for one input file.
func (c *Config) Options(filename string, logger *zap.Logger) *d3dbc.Options {
	return &d3dbc.Options{
		Swizzles: c.SwizzleOverrides(),
		Samplers: c.SamplerOverrides(),
		BumpEnv:  c.BumpEnvs(),
		Logger:   logger,
		Filename: filename,
	}
}
