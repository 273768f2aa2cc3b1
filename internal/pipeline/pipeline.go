// Package pipeline runs the configured chain: load a volume, extract its
// surface, repair and simplify the mesh, then write it out. Each stage logs
// its statistics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/philipparndt/voxmesh/internal/config"
	"github.com/philipparndt/voxmesh/pkg/extract"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/meshio"
	"github.com/philipparndt/voxmesh/pkg/repair"
	"github.com/philipparndt/voxmesh/pkg/simplify"
	"github.com/philipparndt/voxmesh/pkg/volume"
)

// ErrNoInput is returned by Run when no volume path is configured
var ErrNoInput = errors.New("no input volume configured")

// Result collects what every stage produced
type Result struct {
	Mesh     *mesh.Mesh
	IsoValue float64
	Extract  extract.Stats
	Repair   *repair.Stats   // nil when repair is disabled
	Simplify *simplify.Stats // nil when simplification is disabled
	Output   string          // empty when nothing was written
	Elapsed  time.Duration
}

// Pipeline executes one configuration, as often as asked
type Pipeline struct {
	cfg    config.Config
	logger *slog.Logger
}

// New validates cfg and returns a pipeline for it
func New(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Config returns the configuration the pipeline runs with
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Run loads the configured volume, processes it and writes the mesh when an
// output path is configured.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.cfg.Input.Path == "" {
		return nil, ErrNoInput
	}

	start := time.Now()
	grid, err := volume.Load(p.cfg.Input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p.cfg.Input.Path, err)
	}
	nx, ny, nz := grid.Dimensions()
	p.logger.Info("volume loaded", "path", p.cfg.Input.Path, "dimensions", fmt.Sprintf("%dx%dx%d", nx, ny, nz))

	result, err := p.Process(ctx, grid)
	if err != nil {
		return nil, err
	}

	if out := p.cfg.Output.Path; out != "" {
		opts := meshio.Options{Binary: p.cfg.Output.Binary}
		if err := meshio.WriteFile(out, result.Mesh, opts); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", out, err)
		}
		result.Output = out
		p.logger.Info("mesh written", "path", out, "triangles", result.Mesh.TriangleCount())
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// Process runs extraction, repair and simplification on v without touching
// the filesystem.
func (p *Pipeline) Process(ctx context.Context, v volume.Volume) (*Result, error) {
	start := time.Now()
	if s := p.cfg.Input.Spacing; len(s) == 3 {
		spaced, err := volume.WithSpacing(v, s[0], s[1], s[2])
		if err != nil {
			return nil, err
		}
		v = spaced
	}

	result := &Result{}
	m, err := p.extract(ctx, v, result)
	if err != nil {
		return nil, err
	}

	if p.cfg.Repair.Enabled {
		m, err = p.repair(v, m, result)
		if err != nil {
			return nil, err
		}
	}

	if p.cfg.Simplify.Enabled() {
		m, err = p.simplify(ctx, m, result)
		if err != nil {
			return nil, err
		}
	}

	result.Mesh = m
	result.Elapsed = time.Since(start)
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, v volume.Volume, result *Result) (*mesh.Mesh, error) {
	ec := p.cfg.Extract
	opts := extract.Options{Workers: ec.Workers, SlabDepth: ec.SlabDepth}

	start := time.Now()
	var (
		m     *mesh.Mesh
		stats extract.Stats
		err   error
	)
	if ec.Label != nil {
		result.IsoValue = 0.5
		m, stats, err = extract.ExtractLabel(ctx, v, *ec.Label, opts)
	} else {
		result.IsoValue, err = p.isoValue(v)
		if err != nil {
			return nil, err
		}
		opts.IsoValue = result.IsoValue
		m, stats, err = extract.Extract(ctx, v, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract surface: %w", err)
	}
	result.Extract = stats

	attrs := []any{
		"iso", result.IsoValue,
		"vertices", stats.Vertices,
		"triangles", stats.Triangles,
		"active_cubes", stats.ActiveCubes,
		"elapsed", time.Since(start),
	}
	if ec.Label != nil {
		attrs = append(attrs, "label", *ec.Label)
	}
	p.logger.Info("surface extracted", attrs...)
	if stats.SkippedCubes > 0 {
		p.logger.Warn("cubes with missing samples skipped", "cubes", stats.SkippedCubes)
	}
	return m, nil
}

func (p *Pipeline) isoValue(v volume.Volume) (float64, error) {
	ec := p.cfg.Extract
	switch {
	case ec.Threshold != "":
		method, err := volume.ParseMethod(ec.Threshold)
		if err != nil {
			return 0, err
		}
		iso, err := volume.Threshold(v, method)
		if err != nil {
			return 0, fmt.Errorf("failed to compute %s threshold: %w", method, err)
		}
		p.logger.Debug("threshold computed", "method", method, "iso", iso)
		return iso, nil
	case ec.IsoValue != nil:
		return *ec.IsoValue, nil
	default:
		return config.DefaultIsoValue, nil
	}
}

func (p *Pipeline) repair(v volume.Volume, m *mesh.Mesh, result *Result) (*mesh.Mesh, error) {
	rc := p.cfg.Repair
	keep, err := rc.Selection()
	if err != nil {
		return nil, err
	}
	tolerance := repair.DefaultTolerance(v.Spacing())
	if rc.Tolerance != nil {
		tolerance = *rc.Tolerance
	}

	start := time.Now()
	out, stats := repair.Repair(m, repair.Options{
		Tolerance:   tolerance,
		AreaEpsilon: rc.AreaEpsilon,
		Keep:        keep,
	})
	result.Repair = &stats

	p.logger.Info("mesh repaired",
		"merged_vertices", stats.MergedVertices,
		"dropped_triangles", stats.DroppedTriangles(),
		"flipped_triangles", stats.FlippedTriangles,
		"components", stats.Components,
		"removed_components", stats.RemovedComponents,
		"elapsed", time.Since(start),
	)
	if stats.DegenerateGeometry {
		p.logger.Warn("repair removed every triangle")
	}
	return out, nil
}

func (p *Pipeline) simplify(ctx context.Context, m *mesh.Mesh, result *Result) (*mesh.Mesh, error) {
	sc := p.cfg.Simplify
	start := time.Now()
	out, stats, err := simplify.Simplify(ctx, m, simplify.Options{
		TargetTriangles:    sc.TargetTriangles,
		TargetRatio:        sc.TargetRatio,
		MaxError:           sc.MaxError,
		MaxNormalDeviation: sc.MaxNormalDeviationRadians(),
		BoundaryWeight:     sc.BoundaryWeight,
		Workers:            sc.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to simplify mesh: %w", err)
	}
	result.Simplify = &stats

	p.logger.Info("mesh simplified",
		"initial_triangles", stats.InitialTriangles,
		"final_triangles", stats.FinalTriangles,
		"collapses", stats.Collapses,
		"max_cost", stats.MaxCost,
		"stopped", stats.Stopped,
		"elapsed", time.Since(start),
	)
	if stats.SingularFallbacks > 0 {
		p.logger.Debug("singular quadrics fell back to edge points", "edges", stats.SingularFallbacks)
	}
	return out, nil
}
