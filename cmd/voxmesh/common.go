package main

import (
	"fmt"
	"log/slog"

	"github.com/philipparndt/voxmesh/internal/config"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/meshio"
	"github.com/spf13/cobra"
)

// loadConfig reads --config when given and falls back to the defaults
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	return config.NewLogger(cmd.ErrOrStderr(), cfg.Log, verbose)
}

func readMesh(path string, tolerance float64) (*mesh.Mesh, error) {
	m, err := meshio.ReadFile(path, meshio.Options{Tolerance: tolerance})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return m, nil
}

func writeMesh(path string, m *mesh.Mesh, binary bool) error {
	if err := meshio.WriteFile(path, m, meshio.Options{Binary: binary}); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// pipelineFlags are the pipeline settings shared by extract and watch. Only
// flags the user set override the config file.
type pipelineFlags struct {
	output       string
	ascii        bool
	iso          float64
	threshold    string
	label        float64
	spacing      []float64
	workers      int
	noRepair     bool
	keep         string
	minTriangles int
	target       int
	ratio        float64
	maxError     float64
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "Output mesh (.stl or .ply, optionally .gz)")
	flags.BoolVar(&f.ascii, "ascii", false, "Write the ASCII variant of the output format")
	flags.Float64Var(&f.iso, "iso", 0.5, "Iso value separating inside (>= iso) from outside")
	flags.StringVar(&f.threshold, "threshold", "", "Compute the iso value automatically: otsu, mean or isodata")
	flags.Float64Var(&f.label, "label", 0, "Extract the boundary of this label instead of an isosurface")
	flags.Float64SliceVar(&f.spacing, "spacing", nil, "Voxel size as x,y,z")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Worker goroutines (0 = all CPUs)")
	flags.BoolVar(&f.noRepair, "no-repair", false, "Skip mesh repair")
	flags.StringVar(&f.keep, "keep", "all", "Components to keep: all, largest or min")
	flags.IntVar(&f.minTriangles, "min-triangles", 0, "Smallest component kept with --keep min")
	flags.IntVarP(&f.target, "target", "t", 0, "Simplify to this many triangles")
	flags.Float64Var(&f.ratio, "ratio", 0, "Simplify to this fraction of the triangles")
	flags.Float64Var(&f.maxError, "max-error", 0, "Stop simplifying once a collapse costs more than this")

	cmd.MarkFlagsMutuallyExclusive("iso", "threshold")
}

func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = f.output
	}
	if flags.Changed("ascii") {
		cfg.Output.Binary = !f.ascii
	}
	if flags.Changed("iso") {
		iso := f.iso
		cfg.Extract.IsoValue, cfg.Extract.Threshold = &iso, ""
	}
	if flags.Changed("threshold") {
		cfg.Extract.IsoValue, cfg.Extract.Threshold = nil, f.threshold
	}
	if flags.Changed("label") {
		label := f.label
		cfg.Extract.Label = &label
	}
	if flags.Changed("spacing") {
		cfg.Input.Spacing = f.spacing
	}
	if flags.Changed("workers") {
		cfg.Extract.Workers = f.workers
		cfg.Simplify.Workers = f.workers
	}
	if flags.Changed("no-repair") {
		cfg.Repair.Enabled = !f.noRepair
	}
	if flags.Changed("keep") {
		cfg.Repair.Keep = f.keep
	}
	if flags.Changed("min-triangles") {
		cfg.Repair.MinTriangles = f.minTriangles
	}
	if flags.Changed("target") {
		cfg.Simplify.TargetTriangles = f.target
	}
	if flags.Changed("ratio") {
		cfg.Simplify.TargetRatio = f.ratio
	}
	if flags.Changed("max-error") {
		cfg.Simplify.MaxError = f.maxError
	}
	return cfg.Validate()
}
