// Command d3dc translates compiled Direct3D 9 shaders.
//
// Usage:
//
//	d3dc [options] <input>...
//
// Examples:
//
//	d3dc -profile glsl120 shader.vso           # Translate to GLSL 1.20
//	d3dc -profile spirv -link a.vso a.pso      # Translate and link a pair
//	d3dc -j 8 -o out -reflect shaders/*.pso    # Batch with reflection data
//	d3dc -config d3dc.toml shaders/*.vso       # Settings from a file
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/gogpu/d3dbc"
	"github.com/gogpu/d3dbc/config"
	"github.com/gogpu/d3dbc/ir"
	"github.com/gogpu/d3dbc/reflection"
)

var (
	profile    = flag.String("profile", "", "output profile (default: glsl)")
	entry      = flag.String("entry", "", "entry point name (default: main)")
	outputDir  = flag.String("o", "", `output directory, or "-" for stdout (default: next to the input)`)
	jobs       = flag.Int("j", 0, "number of files translated in parallel (default: GOMAXPROCS)")
	verbose    = flag.Bool("v", false, "verbose logging")
	configPath = flag.String("config", "", "settings file (default: ./"+config.FileName+" when present)")
	reflect    = flag.Bool("reflect", false, "write <name>.refl.cbor next to each output")
	link       = flag.Bool("link", false, "link a vertex and pixel SPIR-V pair")
	list       = flag.Bool("profiles", false, "list profiles and exit")
	version    = flag.Bool("version", false, "print version")
)

var (
	fileStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
)

// styled reports whether diagnostics go to a terminal.
var styled = term.IsTerminal(int(os.Stderr.Fd()))

func render(s lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

// extensions maps profiles to output file extensions.
var extensions = map[string]string{
	"d3d":      ".asm",
	"bytecode": ".dxbc",
	"glsl":     ".glsl",
	"glsl120":  ".glsl",
	"glsles":   ".glsl",
	"glsles3":  ".glsl",
	"hlsl":     ".hlsl",
	"metal":    ".metal",
	"spirv":    ".spv",
	"glspirv":  ".spv",
	"arb1":     ".arb",
	"nv2":      ".arb",
	"nv3":      ".arb",
	"nv4":      ".arb",
}

// job is one input file and its translation.
type job struct {
	input  string
	result *d3dbc.Result
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("d3dc version %d (%s)\n", d3dbc.Version(), d3dbc.Changeset())
		return
	}
	if *list {
		for _, p := range d3dbc.Profiles() {
			fmt.Printf("%-10s shader model %d\n", p, d3dbc.MaxShaderModel(p))
		}
		return
	}

	inputs := flag.Args()
	if len(inputs) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *outputDir == "-" && len(inputs) > 1 {
		fmt.Fprintln(os.Stderr, "Error: -o - takes a single input")
		os.Exit(1)
	}

	logger := newLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	failed, err := run(context.Background(), cfg, inputs, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "Error:"), err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(2)
	}
}

// loadConfig reads the settings file and applies the flags that were set
// explicitly on top of it.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "profile":
			cfg.Profile = *profile
		case "entry":
			cfg.Entry = *entry
		case "o":
			cfg.OutputDir = *outputDir
		case "j":
			cfg.Jobs = *jobs
		case "v":
			cfg.Verbose = *verbose
		case "reflect":
			cfg.Reflect = *reflect
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// run translates every input and writes the outputs. It returns the number
// of inputs that failed to translate; err is set for I/O failures.
func run(ctx context.Context, cfg *config.Config, inputs []string, logger *zap.Logger) (int, error) {
	work := make([]job, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Jobs > 0 {
		g.SetLimit(cfg.Jobs)
	}
	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}
			log := logger.With(zap.String("file", input))
			r := d3dbc.Parse(cfg.Profile, cfg.Entry, code, cfg.Options(input, log))
			log.Debug("translated",
				zap.String("profile", cfg.Profile),
				zap.Int("instructions", r.InstructionCount),
				zap.Int("errors", len(r.Errors)),
			)
			work[i] = job{input: input, result: r}
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, j := range work {
			j.result.Free()
		}
	}()
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, j := range work {
		if len(j.result.Errors) > 0 {
			failed++
			report(j)
		}
	}

	if *link {
		if err := linkPair(work, logger); err != nil {
			return failed, err
		}
	}

	for _, j := range work {
		if len(j.result.Errors) > 0 {
			continue
		}
		if err := write(cfg, j); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func report(j job) {
	fmt.Fprintf(os.Stderr, "%s: %d error(s)\n", render(fileStyle, j.input), len(j.result.Errors))
	for _, e := range j.result.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", render(errorStyle, e.Error()))
	}
}

// linkPair links the single vertex and pixel module of a SPIR-V run.
func linkPair(pair []job, logger *zap.Logger) error {
	if len(pair) != 2 {
		return fmt.Errorf("-link takes exactly two inputs, got %d", len(pair))
	}
	vs, ps := pair[0].result, pair[1].result
	if vs.ShaderType == ir.ShaderPixel {
		vs, ps = ps, vs
	}
	if vs.ShaderType != ir.ShaderVertex || ps.ShaderType != ir.ShaderPixel {
		return fmt.Errorf("-link needs one vertex and one pixel shader")
	}
	if len(vs.Errors)+len(ps.Errors) > 0 {
		return fmt.Errorf("-link: inputs failed to translate")
	}
	n, err := d3dbc.LinkSPIRV(vs.Output, ps.Output, vs.Attributes)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	vs.Output = vs.Output[:len(vs.Output)-n]
	ps.Output = ps.Output[:len(ps.Output)-n]
	logger.Debug("linked", zap.Int("patch_table", n))
	return nil
}

func outputPath(cfg *config.Config, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dir := cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+extensions[cfg.Profile])
}

func write(cfg *config.Config, j job) error {
	r := j.result
	if cfg.OutputDir == "-" {
		_, err := os.Stdout.Write(r.Output)
		return err
	}
	out := outputPath(cfg, j.input)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, r.Output, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if cfg.Reflect {
		data, err := reflection.Encode(r)
		if err != nil {
			return err
		}
		refl := strings.TrimSuffix(out, filepath.Ext(out)) + ".refl.cbor"
		if err := os.WriteFile(refl, data, 0o644); err != nil {
			return fmt.Errorf("writing reflection: %w", err)
		}
	}
	fmt.Fprintf(os.Stderr, "%s %s -> %s (%d bytes)\n", render(okStyle, "ok"), j.input, out, len(r.Output))
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: d3dc [options] <input>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nProfiles: %s\n", strings.Join(d3dbc.Profiles(), ", "))
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  d3dc -profile hlsl shader.pso        Translate to HLSL\n")
	fmt.Fprintf(os.Stderr, "  d3dc -profile spirv -link a.vso a.pso Link a SPIR-V pair\n")
	fmt.Fprintf(os.Stderr, "  d3dc -o - shader.vso                  Write to stdout\n")
}
