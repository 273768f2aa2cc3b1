// Package volume provides read-only access to 3D scalar and label grids with
// physical axis spacing.
package volume

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidVolume is returned for volumes with bad dimensions or spacing.
	ErrInvalidVolume = errors.New("invalid volume")

	// ErrOutOfBounds is returned when a sample outside the lattice is requested.
	ErrOutOfBounds = errors.New("sample out of bounds")
)

// Volume is random access into a regular 3D lattice of samples. Coordinates
// outside [0,n) on any axis are rejected with ErrOutOfBounds.
type Volume interface {
	Dimensions() (nx, ny, nz int)
	Spacing() (sx, sy, sz float64)
	Sample(x, y, z int) (float64, error)
}

// Validate checks dimensions and spacing of a volume
func Validate(v Volume) error {
	if v == nil {
		return fmt.Errorf("%w: nil volume", ErrInvalidVolume)
	}
	nx, ny, nz := v.Dimensions()
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidVolume, nx, ny, nz)
	}
	sx, sy, sz := v.Spacing()
	for _, s := range []float64{sx, sy, sz} {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: spacing (%g, %g, %g)", ErrInvalidVolume, sx, sy, sz)
		}
	}
	return nil
}

// InBounds reports whether (x, y, z) lies inside the volume
func InBounds(v Volume, x, y, z int) bool {
	nx, ny, nz := v.Dimensions()
	return x >= 0 && y >= 0 && z >= 0 && x < nx && y < ny && z < nz
}

// Grid is a dense in-memory volume, stored x fastest, then y, then z.
type Grid struct {
	nx, ny, nz int
	sx, sy, sz float64
	values     []float64
}

// NewGrid allocates a zero-filled grid
func NewGrid(nx, ny, nz int, sx, sy, sz float64) (*Grid, error) {
	g := &Grid{nx: nx, ny: ny, nz: nz, sx: sx, sy: sy, sz: sz}
	if err := Validate(g); err != nil {
		return nil, err
	}
	g.values = make([]float64, nx*ny*nz)
	return g, nil
}

// FromFunc builds a grid by evaluating f at every lattice point. f receives
// integer coordinates.
func FromFunc(nx, ny, nz int, sx, sy, sz float64, f func(x, y, z int) float64) (*Grid, error) {
	g, err := NewGrid(nx, ny, nz, sx, sy, sz)
	if err != nil {
		return nil, err
	}
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				g.values[g.index(x, y, z)] = f(x, y, z)
			}
		}
	}
	return g, nil
}

// Dimensions returns the number of samples along each axis
func (g *Grid) Dimensions() (int, int, int) { return g.nx, g.ny, g.nz }

// Spacing returns the physical distance between neighbouring samples
func (g *Grid) Spacing() (float64, float64, float64) { return g.sx, g.sy, g.sz }

// Sample returns the value at (x, y, z)
func (g *Grid) Sample(x, y, z int) (float64, error) {
	if !InBounds(g, x, y, z) {
		return 0, fmt.Errorf("%w: (%d, %d, %d) outside %dx%dx%d", ErrOutOfBounds, x, y, z, g.nx, g.ny, g.nz)
	}
	return g.values[g.index(x, y, z)], nil
}

// At returns the value at (x, y, z) without bounds reporting; it panics on
// out-of-range coordinates like a slice index would.
func (g *Grid) At(x, y, z int) float64 {
	return g.values[g.index(x, y, z)]
}

// Set stores a value at (x, y, z)
func (g *Grid) Set(x, y, z int, value float64) error {
	if !InBounds(g, x, y, z) {
		return fmt.Errorf("%w: (%d, %d, %d) outside %dx%dx%d", ErrOutOfBounds, x, y, z, g.nx, g.ny, g.nz)
	}
	g.values[g.index(x, y, z)] = value
	return nil
}

func (g *Grid) index(x, y, z int) int {
	return x + g.nx*(y+g.ny*z)
}

// labelView maps one label to 1 and everything else to 0
type labelView struct {
	Volume
	label float64
}

// Labels returns a view of v in which samples equal to label read as 1 and
// all other samples as 0. Extracting it at iso 0.5 yields the label boundary.
func Labels(v Volume, label float64) Volume {
	return labelView{Volume: v, label: label}
}

func (l labelView) Sample(x, y, z int) (float64, error) {
	s, err := l.Volume.Sample(x, y, z)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(s) {
		return s, nil
	}
	if s == l.label {
		return 1, nil
	}
	return 0, nil
}

// spacingView overrides the calibration of another volume
type spacingView struct {
	Volume
	sx, sy, sz float64
}

// WithSpacing returns a view of v with a different physical spacing
func WithSpacing(v Volume, sx, sy, sz float64) (Volume, error) {
	view := spacingView{Volume: v, sx: sx, sy: sy, sz: sz}
	if err := Validate(view); err != nil {
		return nil, err
	}
	return view, nil
}

func (s spacingView) Spacing() (float64, float64, float64) { return s.sx, s.sy, s.sz }
