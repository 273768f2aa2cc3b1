package main

import (
	"fmt"
	"io"
	"time"

	"github.com/philipparndt/voxmesh/internal/pipeline"
	"github.com/spf13/cobra"
)

var extractFlags pipelineFlags

var extractCmd = &cobra.Command{
	Use:   "extract [volume]",
	Short: "Extract a mesh from a voxel volume",
	Long: `Extract the isosurface of a .binvox or .json volume, repair and optionally
simplify it, and write the mesh. The volume and output may also come from the
config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractFlags.register(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	if err := extractFlags.apply(cmd, &cfg); err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(w io.Writer, result *pipeline.Result) {
	fmt.Fprintln(w, "Extraction Summary")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Iso value: %g\n", result.IsoValue)
	fmt.Fprintf(w, "Extracted: %d vertices, %d triangles\n", result.Extract.Vertices, result.Extract.Triangles)
	if result.Extract.SkippedCubes > 0 {
		fmt.Fprintf(w, "  Skipped cubes: %d\n", result.Extract.SkippedCubes)
	}

	if r := result.Repair; r != nil {
		fmt.Fprintln(w, "Repair:")
		fmt.Fprintf(w, "  Merged vertices: %d\n", r.MergedVertices)
		fmt.Fprintf(w, "  Dropped triangles: %d\n", r.DroppedTriangles())
		fmt.Fprintf(w, "  Flipped triangles: %d\n", r.FlippedTriangles)
		fmt.Fprintf(w, "  Components: %d (%d removed)\n", r.Components, r.RemovedComponents)
	}

	if s := result.Simplify; s != nil {
		fmt.Fprintln(w, "Simplify:")
		fmt.Fprintf(w, "  Triangles: %d -> %d\n", s.InitialTriangles, s.FinalTriangles)
		fmt.Fprintf(w, "  Collapses: %d (max cost %.3g)\n", s.Collapses, s.MaxCost)
		fmt.Fprintf(w, "  Stopped: %s\n", s.Stopped)
	}

	fmt.Fprintf(w, "Result: %d vertices, %d triangles\n", result.Mesh.VertexCount(), result.Mesh.TriangleCount())
	if result.Output != "" {
		fmt.Fprintf(w, "Written to: %s\n", result.Output)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", result.Elapsed.Round(time.Millisecond))
}
