package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/philipparndt/voxmesh/pkg/analysis"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/repair"
	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about a mesh file",
	Long:  "Show comprehensive information including dimensions, topology, surface area, volume, shape descriptors and edge statistics.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the report as JSON")
}

// meshInfo is the machine-readable form of the info report
type meshInfo struct {
	File          string      `json:"file"`
	Vertices      int         `json:"vertices"`
	Triangles     int         `json:"triangles"`
	Edges         int         `json:"edges"`
	BoundaryEdges int         `json:"boundaryEdges"`
	NonManifold   int         `json:"nonManifoldEdges"`
	Components    int         `json:"components"`
	Closed        bool        `json:"closed"`
	SurfaceArea   float64     `json:"surfaceArea"`
	Volume        *float64    `json:"volume,omitempty"`
	Sphericity    *float64    `json:"sphericity,omitempty"`
	Compactness   *float64    `json:"compactness,omitempty"`
	Boxivity      *float64    `json:"boxivity,omitempty"`
	Min           [3]float64  `json:"min"`
	Max           [3]float64  `json:"max"`
	Centroid      [3]float64  `json:"centroid"`
	EdgeLength    edgeSummary `json:"edgeLength"`
}

type edgeSummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	m, err := readMesh(filename, 0)
	if err != nil {
		return err
	}
	result := analysis.AnalyzeMesh(m)

	info := meshInfo{
		File:          filename,
		Vertices:      result.VertexCount,
		Triangles:     result.TriangleCount,
		Edges:         result.EdgeCount,
		BoundaryEdges: result.BoundaryEdges,
		NonManifold:   result.NonManifold,
		Components:    len(repair.Components(m)),
		Closed:        result.Closed,
		SurfaceArea:   result.SurfaceArea,
		Min:           array(result.BoundingBox.Min),
		Max:           array(result.BoundingBox.Max),
		Centroid:      array(result.Centroid),
		EdgeLength: edgeSummary{
			Min: result.MinEdgeLength,
			Max: result.MaxEdgeLength,
			Avg: result.AvgEdgeLength,
		},
	}
	if result.Closed {
		info.Volume = &result.Volume
		info.Sphericity = optional(analysis.Sphericity(m))
		info.Compactness = optional(analysis.Compactness(m))
		info.Boxivity = optional(analysis.Boxivity(m))
	}

	w := cmd.OutOrStdout()
	if infoJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	printInfo(w, result, info)
	return nil
}

func printInfo(w io.Writer, result *analysis.MeasurementResult, info meshInfo) {
	fmt.Fprintln(w, "Mesh File Information")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintf(w, "File: %s\n\n", info.File)

	fmt.Fprintln(w, "Mesh Statistics:")
	fmt.Fprintf(w, "  Vertices: %d\n", info.Vertices)
	fmt.Fprintf(w, "  Triangles: %d\n", info.Triangles)
	fmt.Fprintf(w, "  Edges: %d (%d boundary, %d non-manifold)\n", info.Edges, info.BoundaryEdges, info.NonManifold)
	fmt.Fprintf(w, "  Components: %d\n", info.Components)
	fmt.Fprintf(w, "  Closed: %t\n", info.Closed)
	fmt.Fprintf(w, "  Surface Area: %.6f square units\n\n", info.SurfaceArea)

	fmt.Fprintln(w, "Bounding Box:")
	fmt.Fprintf(w, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(w, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(w, "  Center: %s\n", analysis.FormatVector(result.BoundingBox.Center()))
	fmt.Fprintf(w, "  Centroid: %s\n\n", analysis.FormatVector(result.Centroid))

	fmt.Fprintln(w, "Dimensions:")
	fmt.Fprintf(w, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(w, "  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(w, "  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(w, "  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
	if info.Volume != nil {
		fmt.Fprintf(w, "  Volume: %.6f cubic units\n", *info.Volume)
	} else {
		fmt.Fprintln(w, "  Volume: n/a (mesh is not closed)")
	}
	fmt.Fprintln(w)

	if info.Sphericity != nil {
		fmt.Fprintln(w, "Shape:")
		fmt.Fprintf(w, "  Sphericity: %.6f\n", *info.Sphericity)
		if info.Compactness != nil {
			fmt.Fprintf(w, "  Compactness: %.6f\n", *info.Compactness)
		}
		if info.Boxivity != nil {
			fmt.Fprintf(w, "  Boxivity: %.6f\n", *info.Boxivity)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Edge Lengths:")
	fmt.Fprintf(w, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(w, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(w, "  Average: %.6f units\n", result.AvgEdgeLength)
}

func array(v geometry.Vector3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func optional(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &v
}
