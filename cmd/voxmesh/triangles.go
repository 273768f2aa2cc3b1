package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/voxmesh/pkg/analysis"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/spf13/cobra"
)

var (
	triCount    int
	triLargest  bool
	triSmallest bool
)

type triangleInfo struct {
	Index     int
	Area      float64
	Perimeter float64
	Vertices  string
}

var trianglesCmd = &cobra.Command{
	Use:   "triangles [file]",
	Short: "Analyze triangles in a mesh file",
	Long:  "Display information about triangles including area, perimeter, and vertex positions.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriangles,
}

func init() {
	rootCmd.AddCommand(trianglesCmd)

	trianglesCmd.Flags().IntVarP(&triCount, "count", "n", 10, "Number of triangles to display")
	trianglesCmd.Flags().BoolVarP(&triLargest, "largest", "l", false, "Show largest triangles by area")
	trianglesCmd.Flags().BoolVarP(&triSmallest, "smallest", "s", false, "Show smallest triangles by area")
	trianglesCmd.MarkFlagsMutuallyExclusive("largest", "smallest")
}

func runTriangles(cmd *cobra.Command, args []string) error {
	filename := args[0]

	m, err := readMesh(filename, 0)
	if err != nil {
		return err
	}

	triangles := make([]triangleInfo, 0, m.TriangleCount())
	totalArea := 0.0
	minArea := math.MaxFloat64
	maxArea := 0.0

	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		tri := m.Geometry(i)
		area := tri.Area()

		triangles = append(triangles, triangleInfo{
			Index:     i,
			Area:      area,
			Perimeter: tri.Perimeter(),
			Vertices: fmt.Sprintf("%s, %s, %s",
				analysis.FormatVector(tri.V1),
				analysis.FormatVector(tri.V2),
				analysis.FormatVector(tri.V3)),
		})

		totalArea += area
		minArea = math.Min(minArea, area)
		maxArea = math.Max(maxArea, area)
	})

	w := cmd.OutOrStdout()
	if len(triangles) == 0 {
		fmt.Fprintln(w, "The mesh has no triangles.")
		return nil
	}

	var title string
	switch {
	case triLargest:
		sort.SliceStable(triangles, func(i, j int) bool {
			return triangles[i].Area > triangles[j].Area
		})
		title = fmt.Sprintf("Top %d Largest Triangles", min(triCount, len(triangles)))
	case triSmallest:
		sort.SliceStable(triangles, func(i, j int) bool {
			return triangles[i].Area < triangles[j].Area
		})
		title = fmt.Sprintf("Top %d Smallest Triangles", min(triCount, len(triangles)))
	default:
		title = fmt.Sprintf("First %d Triangles", min(triCount, len(triangles)))
	}

	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "Total triangles: %d\n", len(triangles))
	fmt.Fprintf(w, "Total surface area: %.6f square units\n", totalArea)
	fmt.Fprintf(w, "Min triangle area: %.6f square units\n", minArea)
	fmt.Fprintf(w, "Max triangle area: %.6f square units\n", maxArea)
	fmt.Fprintf(w, "Avg triangle area: %.6f square units\n\n", totalArea/float64(len(triangles)))

	for _, tri := range triangles[:min(triCount, len(triangles))] {
		fmt.Fprintf(w, "Triangle #%d:\n", tri.Index)
		fmt.Fprintf(w, "  Area: %.6f square units\n", tri.Area)
		fmt.Fprintf(w, "  Perimeter: %.6f units\n", tri.Perimeter)
		fmt.Fprintf(w, "  Vertices: %s\n\n", tri.Vertices)
	}
	return nil
}
