package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philipparndt/voxmesh/pkg/analysis"
	"github.com/philipparndt/voxmesh/pkg/repair"
	"github.com/spf13/cobra"
)

var (
	componentsSplit string
	componentsASCII bool
)

var componentsCmd = &cobra.Command{
	Use:   "components [file]",
	Short: "List the connected components of a mesh",
	Long: `List every edge-connected component with its size, area and, for closed
components, its volume. With --split each component is written to a file of
its own.`,
	Args: cobra.ExactArgs(1),
	RunE: runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)

	componentsCmd.Flags().StringVar(&componentsSplit, "split", "", "Write component N to <name>-N<ext>, e.g. part.stl")
	componentsCmd.Flags().BoolVar(&componentsASCII, "ascii", false, "Write the ASCII variant of the output format")
}

func runComponents(cmd *cobra.Command, args []string) error {
	m, err := readMesh(args[0], 0)
	if err != nil {
		return err
	}
	parts := repair.SplitComponents(m)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Components of %s: %d\n", args[0], len(parts))
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "%-6s %-10s %-10s %-15s %-15s %-8s\n", "Index", "Triangles", "Vertices", "Area", "Volume", "Closed")
	fmt.Fprintln(w, "--------------------------------------------------------------------")
	for i, part := range parts {
		volume := "-"
		if v, err := analysis.Volume(part); err == nil {
			volume = fmt.Sprintf("%.6f", v)
		}
		fmt.Fprintf(w, "%-6d %-10d %-10d %-15.6f %-15s %-8t\n",
			i+1, part.TriangleCount(), part.VertexCount(), analysis.SurfaceArea(part), volume, part.IsClosed())
	}

	if componentsSplit == "" {
		return nil
	}
	for i, part := range parts {
		path := splitName(componentsSplit, i+1)
		if err := writeMesh(path, part, !componentsASCII); err != nil {
			return err
		}
		fmt.Fprintf(w, "Written: %s\n", path)
	}
	return nil
}

// splitName inserts -n before the extension; a .gz suffix stays last
func splitName(pattern string, n int) string {
	gz := ""
	if strings.HasSuffix(strings.ToLower(pattern), ".gz") {
		gz = pattern[len(pattern)-3:]
		pattern = pattern[:len(pattern)-3]
	}
	ext := filepath.Ext(pattern)
	return fmt.Sprintf("%s-%d%s%s", strings.TrimSuffix(pattern, ext), n, ext, gz)
}
