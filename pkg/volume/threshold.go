package volume

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Method selects an automatic iso-level
type Method string

const (
	// Otsu maximizes the between-class variance of the sample histogram.
	Otsu Method = "otsu"
	// Mean uses the mean sample value.
	Mean Method = "mean"
	// IsoData iterates t = (mean below t + mean above t) / 2 to a fixed point.
	IsoData Method = "isodata"
)

const histogramBins = 256

// ParseMethod parses a threshold method name, case-insensitively
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case Otsu, Mean, IsoData:
		return m, nil
	default:
		return "", fmt.Errorf("unknown threshold method %q (expected otsu, mean or isodata)", name)
	}
}

// Threshold computes an iso-level for v with the given method. NaN samples
// are ignored.
func Threshold(v Volume, method Method) (float64, error) {
	samples, err := collect(v)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: no finite samples", ErrInvalidVolume)
	}

	switch method {
	case Mean:
		return stat.Mean(samples, nil), nil
	case Otsu:
		return otsu(samples), nil
	case IsoData:
		return isoData(samples), nil
	default:
		return 0, fmt.Errorf("unknown threshold method %q", method)
	}
}

func collect(v Volume) ([]float64, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	nx, ny, nz := v.Dimensions()
	samples := make([]float64, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				s, err := v.Sample(x, y, z)
				if err != nil {
					return nil, fmt.Errorf("failed to read sample (%d, %d, %d): %w", x, y, z, err)
				}
				if !math.IsNaN(s) && !math.IsInf(s, 0) {
					samples = append(samples, s)
				}
			}
		}
	}
	sort.Float64s(samples)
	return samples, nil
}

// otsu expects sorted samples
func otsu(samples []float64) float64 {
	lo, hi := samples[0], samples[len(samples)-1]
	if lo == hi {
		return lo
	}

	dividers := make([]float64, histogramBins+1)
	width := (hi - lo) / histogramBins
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	// The last divider must lie strictly above the maximum sample.
	dividers[histogramBins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, samples, nil)

	var total, sumAll float64
	for i, c := range counts {
		total += c
		sumAll += c * binCenter(dividers, i)
	}

	var weightBelow, sumBelow float64
	best, bestVariance := 0, -1.0
	for i, c := range counts {
		weightBelow += c
		if weightBelow == 0 {
			continue
		}
		weightAbove := total - weightBelow
		if weightAbove == 0 {
			break
		}
		sumBelow += c * binCenter(dividers, i)
		meanBelow := sumBelow / weightBelow
		meanAbove := (sumAll - sumBelow) / weightAbove
		variance := weightBelow * weightAbove * (meanBelow - meanAbove) * (meanBelow - meanAbove)
		if variance > bestVariance {
			best, bestVariance = i, variance
		}
	}
	// Everything in bins up to best falls below the threshold.
	return dividers[best+1]
}

func binCenter(dividers []float64, i int) float64 {
	return (dividers[i] + dividers[i+1]) / 2
}

// isoData expects sorted samples
func isoData(samples []float64) float64 {
	t := stat.Mean(samples, nil)
	for iter := 0; iter < 100; iter++ {
		split := sort.SearchFloat64s(samples, t)
		if split == 0 || split == len(samples) {
			return t
		}
		next := (stat.Mean(samples[:split], nil) + stat.Mean(samples[split:], nil)) / 2
		if math.Abs(next-t) <= 1e-9*math.Max(1, math.Abs(t)) {
			return next
		}
		t = next
	}
	return t
}
