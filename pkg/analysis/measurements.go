package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// EdgeInfo contains information about an edge in the mesh
type EdgeInfo struct {
	A, B       int
	Start      geometry.Vector3
	End        geometry.Vector3
	Length     float64
	Triangles  int // triangles sharing the edge
	TriangleID int // first triangle holding the edge
}

// MeasurementResult contains various measurements of a mesh
type MeasurementResult struct {
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	Centroid      geometry.Vector3
	Volume        float64 // zero unless Closed
	SurfaceArea   float64
	Closed        bool
	VertexCount   int
	TriangleCount int
	EdgeCount     int
	BoundaryEdges int
	NonManifold   int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	AllEdges      []EdgeInfo
}

// AnalyzeMesh measures m. Every edge is listed once, in (A, B) order.
func AnalyzeMesh(m *mesh.Mesh) *MeasurementResult {
	adj := mesh.BuildAdjacency(m)
	result := &MeasurementResult{
		BoundingBox:   BoundingBox(m),
		SurfaceArea:   SurfaceArea(m),
		Centroid:      Centroid(m),
		Closed:        adj.IsClosed(),
		VertexCount:   m.VertexCount(),
		TriangleCount: m.TriangleCount(),
		BoundaryEdges: len(adj.BoundaryEdges()),
		NonManifold:   len(adj.NonManifoldEdges()),
	}
	if !result.BoundingBox.Empty() {
		result.Dimensions = result.BoundingBox.Size()
	}
	if result.Closed {
		result.Volume = math.Abs(SignedVolume(m, result.BoundingBox.Center()))
	}

	edges := adj.Edges()
	result.AllEdges = make([]EdgeInfo, 0, len(edges))
	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0

	for _, e := range edges {
		triangles := adj.EdgeTriangles(e)
		start, end := m.Vertex(e.A), m.Vertex(e.B)
		length := start.Distance(end)

		result.AllEdges = append(result.AllEdges, EdgeInfo{
			A:          e.A,
			B:          e.B,
			Start:      start,
			End:        end,
			Length:     length,
			Triangles:  len(triangles),
			TriangleID: triangles[0],
		})

		totalLength += length
		minLength = math.Min(minLength, length)
		maxLength = math.Max(maxLength, length)
	}

	result.EdgeCount = len(result.AllEdges)
	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}

	return result
}

// FindEdgesByLength finds all edges within a length range
func FindEdgesByLength(result *MeasurementResult, minLength, maxLength float64) []EdgeInfo {
	var edges []EdgeInfo
	for _, edge := range result.AllEdges {
		if edge.Length >= minLength && edge.Length <= maxLength {
			edges = append(edges, edge)
		}
	}
	return edges
}

// FindLongestEdges returns the N longest edges in the mesh
func FindLongestEdges(result *MeasurementResult, count int) []EdgeInfo {
	return sortedEdges(result, count, func(a, b EdgeInfo) bool { return a.Length > b.Length })
}

// FindShortestEdges returns the N shortest edges in the mesh
func FindShortestEdges(result *MeasurementResult, count int) []EdgeInfo {
	return sortedEdges(result, count, func(a, b EdgeInfo) bool { return a.Length < b.Length })
}

func sortedEdges(result *MeasurementResult, count int, less func(a, b EdgeInfo) bool) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.AllEdges))
	copy(edges, result.AllEdges)

	sort.SliceStable(edges, func(i, j int) bool {
		return less(edges[i], edges[j])
	})

	count = max(0, min(count, len(edges)))
	return edges[:count]
}

// FindNearestVertex finds the live vertex nearest to a given point. The index
// is -1 for a mesh without vertices.
func FindNearestVertex(m *mesh.Mesh, point geometry.Vector3) (int, geometry.Vector3, float64) {
	nearest := -1
	var nearestVertex geometry.Vector3
	minDistance := math.MaxFloat64

	m.ForEachVertex(func(i int, vertex geometry.Vector3) {
		if distance := point.Distance(vertex); distance < minDistance {
			nearest, nearestVertex, minDistance = i, vertex, distance
		}
	})

	return nearest, nearestVertex, minDistance
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
