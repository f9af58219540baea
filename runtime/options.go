package runtime

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/embervale/photon/target"
)

// DenoiserMode selects when the runtime driver runs a configured
// denoise pass (§4.E step 5).
type DenoiserMode int

const (
	// DenoiserOff never runs the denoiser, regardless of a
	// technique's DenoiserCompatible flag.
	DenoiserOff DenoiserMode = iota
	// DenoiserAlways runs the denoiser on every eligible iteration.
	DenoiserAlways
	// DenoiserOnlyFirstIteration runs the denoiser only for the
	// first iteration of the run, matching spec §4.E's "denoiser is
	// not OnlyFirstIteration or this is the first iteration" clause.
	DenoiserOnlyFirstIteration
)

// RuntimeOptions is the distilled spec's RuntimeOptions (§3) plus the
// ambient configuration layer the teacher's engine.Config/DefaultConfig
// pair adds: a file-loadable struct with a programmatic default,
// following engine.go's Config/DefaultConfig/Configure shape exactly.
type RuntimeOptions struct {
	// Target is the desired compile target (CPU vector width or GPU
	// device), resolved via the target package.
	Target target.Target

	// CacheDir is the directory the rescache.Cache writes exported
	// binaries into (§4.F).
	CacheDir string

	// SPIOverride, if nonzero, overrides every variant's ambient
	// samples-per-iteration count.
	SPIOverride int

	// EnableAOVs lists additional AOV names the caller wants enabled
	// beyond what the technique itself declares.
	EnableAOVs []string

	// Denoiser selects when the denoise pass runs.
	Denoiser DenoiserMode

	// DumpShaderSource writes the generated program source to stdout
	// before compiling it — a debugging aid, not a spec requirement,
	// grounded on the same "shader dump flags" wording in §3.
	DumpShaderSource bool

	// ScriptDir overrides the working directory LoadFromString uses
	// to resolve relative filenames (measured-BSDF/texture file
	// properties) when the scene source isn't read from a file.
	ScriptDir string

	// ForceSpecialization disables the shading tree's literal-baking
	// optimization, forcing every resolvable property through a
	// registry lookup. Useful for testing that setParameter reaches
	// every parameter a scene exposes.
	ForceSpecialization bool
}

// DefaultOptions returns the runtime's default configuration: CPU
// auto-detected target, denoiser on (best-effort, degrading to a
// warning per §4.G on failure), no AOV/SPI overrides.
func DefaultOptions() RuntimeOptions {
	return RuntimeOptions{
		Target:   target.DetectCPU(),
		CacheDir: ".igcache",
		Denoiser: DenoiserAlways,
	}
}

// LoadOptionsFile reads a TOML configuration file and overlays it onto
// DefaultOptions, following the ambient "configuration" layer the
// distilled spec's struct-only RuntimeOptions omits.
func LoadOptionsFile(path string) (RuntimeOptions, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(err, "runtime: reading options file")
	}
	var fileOpts struct {
		Target              string   `toml:"target"`
		Device              int      `toml:"device"`
		CacheDir            string   `toml:"cache_dir"`
		SPIOverride         int      `toml:"spi_override"`
		EnableAOVs          []string `toml:"enable_aovs"`
		Denoiser            string   `toml:"denoiser"`
		DumpShaderSource    bool     `toml:"dump_shader_source"`
		ScriptDir           string   `toml:"script_dir"`
		ForceSpecialization bool     `toml:"force_specialization"`
	}
	if err := toml.Unmarshal(data, &fileOpts); err != nil {
		return opts, errors.Wrap(err, "runtime: parsing options file")
	}
	if fileOpts.Target != "" {
		tgt, ok := target.Parse(fileOpts.Target)
		if !ok {
			return opts, errors.Errorf("runtime: unknown target %q", fileOpts.Target)
		}
		tgt.DeviceIndex = fileOpts.Device
		opts.Target = tgt
	}
	if fileOpts.CacheDir != "" {
		opts.CacheDir = fileOpts.CacheDir
	}
	if fileOpts.SPIOverride != 0 {
		opts.SPIOverride = fileOpts.SPIOverride
	}
	if len(fileOpts.EnableAOVs) > 0 {
		opts.EnableAOVs = fileOpts.EnableAOVs
	}
	switch fileOpts.Denoiser {
	case "off":
		opts.Denoiser = DenoiserOff
	case "always":
		opts.Denoiser = DenoiserAlways
	case "first_iteration":
		opts.Denoiser = DenoiserOnlyFirstIteration
	}
	opts.DumpShaderSource = fileOpts.DumpShaderSource
	if fileOpts.ScriptDir != "" {
		opts.ScriptDir = fileOpts.ScriptDir
	}
	opts.ForceSpecialization = fileOpts.ForceSpecialization
	return opts, nil
}
