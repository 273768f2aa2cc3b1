// Package config holds the settings of a voxmesh pipeline run and the logger
// built from them. Settings come from Default, optionally overlaid by a TOML
// or YAML file, and finally by command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/philipparndt/voxmesh/pkg/repair"
	"github.com/philipparndt/voxmesh/pkg/volume"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for unreadable or inconsistent settings
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultIsoValue separates inside from outside when neither an iso value, a
// threshold method nor a label is configured. It suits 0/1 voxel volumes.
const DefaultIsoValue = 0.5

// Config is the complete pipeline configuration
type Config struct {
	Input    InputConfig    `toml:"input" yaml:"input"`
	Extract  ExtractConfig  `toml:"extract" yaml:"extract"`
	Repair   RepairConfig   `toml:"repair" yaml:"repair"`
	Simplify SimplifyConfig `toml:"simplify" yaml:"simplify"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// InputConfig names the volume to read
type InputConfig struct {
	Path string `toml:"path" yaml:"path"`
	// Spacing overrides the voxel size stored in the file: empty or x, y, z.
	Spacing []float64 `toml:"spacing" yaml:"spacing"`
}

// ExtractConfig selects the surface to extract. At most one of IsoValue and
// Threshold may be set; Label takes precedence over both.
type ExtractConfig struct {
	IsoValue  *float64 `toml:"iso" yaml:"iso"`
	Threshold string   `toml:"threshold" yaml:"threshold"`
	Label     *float64 `toml:"label" yaml:"label"`
	Workers   int      `toml:"workers" yaml:"workers"`
	SlabDepth int      `toml:"slab_depth" yaml:"slab_depth"`
}

// RepairConfig controls the cleanup after extraction
type RepairConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Tolerance is the merge distance; unset derives it from the spacing.
	Tolerance    *float64 `toml:"tolerance" yaml:"tolerance"`
	AreaEpsilon  float64  `toml:"area_epsilon" yaml:"area_epsilon"`
	Keep         string   `toml:"keep" yaml:"keep"`
	MinTriangles int      `toml:"min_triangles" yaml:"min_triangles"`
}

// SimplifyConfig controls decimation; it is skipped while no target is set
type SimplifyConfig struct {
	TargetTriangles int     `toml:"target" yaml:"target"`
	TargetRatio     float64 `toml:"ratio" yaml:"ratio"`
	MaxError        float64 `toml:"max_error" yaml:"max_error"`
	// MaxNormalDeviation is in degrees.
	MaxNormalDeviation float64 `toml:"max_normal_deviation" yaml:"max_normal_deviation"`
	BoundaryWeight     float64 `toml:"boundary_weight" yaml:"boundary_weight"`
	Workers            int     `toml:"workers" yaml:"workers"`
}

// Enabled reports whether any stop condition is configured
func (s SimplifyConfig) Enabled() bool {
	return s.TargetTriangles > 0 || s.TargetRatio > 0 || s.MaxError > 0
}

// OutputConfig names the mesh to write
type OutputConfig struct {
	Path   string `toml:"path" yaml:"path"`
	Binary bool   `toml:"binary" yaml:"binary"`
}

// LogConfig selects the log level and handler
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Repair: RepairConfig{
			Enabled: true,
			Keep:    "all",
		},
		Output: OutputConfig{Binary: true},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over Default and validates the result. The
// decoder follows the extension: .toml, .yaml or .yml. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.NewDecoder(file).Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%w: %s: unknown key %q", ErrInvalidConfig, path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported config file type %q (expected .toml, .yaml or .yml)", ErrInvalidConfig, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency. Paths are not checked; the
// CLI may still supply them.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if n := len(c.Input.Spacing); n != 0 {
		check(n == 3, "input.spacing needs 3 values, got %d", n)
		for _, s := range c.Input.Spacing {
			check(finite(s) && s > 0, "input.spacing values must be positive, got %v", s)
		}
	}

	e := c.Extract
	check(e.IsoValue == nil || e.Threshold == "", "extract.iso and extract.threshold are mutually exclusive")
	if e.IsoValue != nil {
		check(finite(*e.IsoValue), "extract.iso must be finite, got %v", *e.IsoValue)
	}
	if e.Threshold != "" {
		_, err := volume.ParseMethod(e.Threshold)
		check(err == nil, "extract.threshold: %v", err)
	}
	if e.Label != nil {
		check(finite(*e.Label), "extract.label must be finite, got %v", *e.Label)
	}
	check(e.Workers >= 0, "extract.workers must not be negative, got %d", e.Workers)
	check(e.SlabDepth >= 0, "extract.slab_depth must not be negative, got %d", e.SlabDepth)

	r := c.Repair
	if r.Tolerance != nil {
		check(finite(*r.Tolerance) && *r.Tolerance >= 0, "repair.tolerance must not be negative, got %v", *r.Tolerance)
	}
	check(finite(r.AreaEpsilon) && r.AreaEpsilon >= 0, "repair.area_epsilon must not be negative, got %v", r.AreaEpsilon)
	if _, err := r.Selection(); err != nil {
		check(false, "repair.keep: %v", err)
	}

	s := c.Simplify
	check(s.TargetTriangles >= 0, "simplify.target must not be negative, got %d", s.TargetTriangles)
	check(s.TargetRatio >= 0 && s.TargetRatio <= 1, "simplify.ratio must be within [0, 1], got %v", s.TargetRatio)
	check(finite(s.MaxError) && s.MaxError >= 0, "simplify.max_error must not be negative, got %v", s.MaxError)
	check(s.MaxNormalDeviation >= 0 && s.MaxNormalDeviation <= 180, "simplify.max_normal_deviation must be within [0, 180] degrees, got %v", s.MaxNormalDeviation)
	check(finite(s.BoundaryWeight) && s.BoundaryWeight >= 0, "simplify.boundary_weight must not be negative, got %v", s.BoundaryWeight)
	check(s.Workers >= 0, "simplify.workers must not be negative, got %d", s.Workers)

	if _, err := c.Log.level(); err != nil {
		check(false, "log.level: %v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		check(false, "log.format must be text or json, got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Selection resolves Keep and MinTriangles
func (r RepairConfig) Selection() (repair.Selection, error) {
	return repair.ParseSelection(r.Keep, r.MinTriangles)
}

// MaxNormalDeviationRadians converts the configured angle
func (s SimplifyConfig) MaxNormalDeviationRadians() float64 {
	return s.MaxNormalDeviation * math.Pi / 180
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
