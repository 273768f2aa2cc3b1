package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	convertASCII     bool
	convertTolerance float64
)

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert a mesh between STL and PLY",
	Long: `Read a mesh and write it in the format named by the output extension.
Both sides may be gzip compressed (.stl.gz, .ply.gz).`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().BoolVar(&convertASCII, "ascii", false, "Write the ASCII variant of the output format")
	convertCmd.Flags().Float64Var(&convertTolerance, "tolerance", 0, "Weld STL corners closer than this on read")
}

func runConvert(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	m, err := readMesh(input, convertTolerance)
	if err != nil {
		return err
	}
	if err := writeMesh(output, m, !convertASCII); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s (%d vertices, %d triangles)\n",
		input, output, m.VertexCount(), m.TriangleCount())
	return nil
}
