package main

import (
	"errors"
	"fmt"

	"github.com/philipparndt/voxmesh/pkg/simplify"
	"github.com/spf13/cobra"
)

var (
	simplifyOutput         string
	simplifyASCII          bool
	simplifyTarget         int
	simplifyRatio          float64
	simplifyMaxError       float64
	simplifyNormalDegrees  float64
	simplifyBoundaryWeight float64
	simplifyWorkers        int
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify [file]",
	Short: "Reduce the triangle count of a mesh",
	Long: `Collapse edges in order of their quadric error until the target triangle
count or ratio is reached, or the next collapse would exceed the error bound.
Boundaries are kept in place and collapses that fold faces over are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimplify,
}

func init() {
	rootCmd.AddCommand(simplifyCmd)

	simplifyCmd.Flags().StringVarP(&simplifyOutput, "output", "o", "", "Output mesh (.stl or .ply, optionally .gz)")
	simplifyCmd.Flags().BoolVar(&simplifyASCII, "ascii", false, "Write the ASCII variant of the output format")
	simplifyCmd.Flags().IntVarP(&simplifyTarget, "target", "t", 0, "Target triangle count")
	simplifyCmd.Flags().Float64Var(&simplifyRatio, "ratio", 0, "Target as a fraction of the input triangles")
	simplifyCmd.Flags().Float64Var(&simplifyMaxError, "max-error", 0, "Largest quadric error a collapse may cost")
	simplifyCmd.Flags().Float64Var(&simplifyNormalDegrees, "max-normal-deviation", 0, "Largest face rotation in degrees (0 = 90)")
	simplifyCmd.Flags().Float64Var(&simplifyBoundaryWeight, "boundary-weight", 0, "Weight of the boundary-preserving planes (0 = default)")
	simplifyCmd.Flags().IntVarP(&simplifyWorkers, "workers", "w", 0, "Worker goroutines (0 = all CPUs)")
	_ = simplifyCmd.MarkFlagRequired("output")
}

func runSimplify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Simplify.TargetTriangles = simplifyTarget
	}
	if flags.Changed("ratio") {
		cfg.Simplify.TargetRatio = simplifyRatio
	}
	if flags.Changed("max-error") {
		cfg.Simplify.MaxError = simplifyMaxError
	}
	if flags.Changed("max-normal-deviation") {
		cfg.Simplify.MaxNormalDeviation = simplifyNormalDegrees
	}
	if flags.Changed("boundary-weight") {
		cfg.Simplify.BoundaryWeight = simplifyBoundaryWeight
	}
	if flags.Changed("workers") {
		cfg.Simplify.Workers = simplifyWorkers
	}
	if flags.Changed("ascii") {
		cfg.Output.Binary = !simplifyASCII
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Simplify.Enabled() {
		return errors.New("nothing to do: set --target, --ratio or --max-error")
	}

	m, err := readMesh(args[0], 0)
	if err != nil {
		return err
	}

	sc := cfg.Simplify
	out, stats, err := simplify.Simplify(cmd.Context(), m, simplify.Options{
		TargetTriangles:    sc.TargetTriangles,
		TargetRatio:        sc.TargetRatio,
		MaxError:           sc.MaxError,
		MaxNormalDeviation: sc.MaxNormalDeviationRadians(),
		BoundaryWeight:     sc.BoundaryWeight,
		Workers:            sc.Workers,
	})
	if err != nil {
		return fmt.Errorf("failed to simplify %s: %w", args[0], err)
	}
	if err := writeMesh(simplifyOutput, out, cfg.Output.Binary); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Simplify Summary")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "Triangles: %d -> %d\n", stats.InitialTriangles, stats.FinalTriangles)
	fmt.Fprintf(w, "Vertices: %d -> %d\n", m.VertexCount(), out.VertexCount())
	fmt.Fprintf(w, "Collapses: %d (%d rejected)\n", stats.Collapses, stats.Rejected)
	fmt.Fprintf(w, "Max cost: %.6g\n", stats.MaxCost)
	fmt.Fprintf(w, "Stopped: %s\n", stats.Stopped)
	fmt.Fprintf(w, "Written to: %s\n", simplifyOutput)
	return nil
}
