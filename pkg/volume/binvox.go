package volume

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	binvoxSignature = "#binvox 1"
	binvoxMaxDim    = 4096
	// binvoxMaxVoxels caps the grid at 512³ samples.
	binvoxMaxVoxels = 1 << 27
)

// ReadBinvox decodes a run-length encoded binvox occupancy grid. Occupied
// voxels read as 1 and empty voxels as 0; the physical spacing is the model
// scale divided by the largest dimension.
//
// Binvox stores y fastest, then z, then x: index = x*(w*h) + z*w + y.
func ReadBinvox(r io.Reader) (*Grid, error) {
	br := bufio.NewReader(r)

	line, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}
	if line != binvoxSignature {
		return nil, fmt.Errorf("%w: not a binvox file (signature %q)", ErrInvalidVolume, line)
	}

	var d, h, w int
	scale := 1.0
	for {
		line, err := readHeaderLine(br)
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "dim":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: malformed dim line %q", ErrInvalidVolume, line)
			}
			dims := [3]int{}
			for i := range dims {
				if dims[i], err = strconv.Atoi(fields[i+1]); err != nil {
					return nil, fmt.Errorf("%w: malformed dim line %q", ErrInvalidVolume, line)
				}
				if dims[i] <= 0 || dims[i] > binvoxMaxDim {
					return nil, fmt.Errorf("%w: dimension %d out of range", ErrInvalidVolume, dims[i])
				}
			}
			if total := dims[0] * dims[1] * dims[2]; total > binvoxMaxVoxels {
				return nil, fmt.Errorf("%w: %d voxels exceed the limit of %d", ErrInvalidVolume, total, binvoxMaxVoxels)
			}
			d, h, w = dims[0], dims[1], dims[2]
		case "scale":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: malformed scale line %q", ErrInvalidVolume, line)
			}
			if scale, err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, fmt.Errorf("%w: malformed scale line %q", ErrInvalidVolume, line)
			}
		case "translate":
			// Origin is not part of the volume contract.
		case "data":
			if d == 0 {
				return nil, fmt.Errorf("%w: missing dim line", ErrInvalidVolume)
			}
			return readBinvoxData(br, d, h, w, scale)
		default:
			return nil, fmt.Errorf("%w: unexpected header line %q", ErrInvalidVolume, line)
		}
	}
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: truncated binvox header", ErrInvalidVolume)
		}
		return "", fmt.Errorf("failed to read binvox header: %w", err)
	}
	return strings.TrimSpace(line), nil
}

type binvoxRun struct {
	value byte
	count int
}

// readBinvoxData collects the runs before allocating the grid, so a header
// that promises more voxels than the data holds fails without the allocation
func readBinvoxData(br *bufio.Reader, d, h, w int, scale float64) (*Grid, error) {
	total := d * h * w
	var runs []binvoxRun
	for i := 0; i < total; {
		value, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated binvox data at voxel %d", ErrInvalidVolume, i)
		}
		count, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated binvox data at voxel %d", ErrInvalidVolume, i)
		}
		if i+int(count) > total {
			return nil, fmt.Errorf("%w: binvox run overflows grid at voxel %d", ErrInvalidVolume, i)
		}
		if count > 0 {
			runs = append(runs, binvoxRun{value: value, count: int(count)})
		}
		i += int(count)
	}

	spacing := scale / float64(max(d, h, w))
	g, err := NewGrid(d, w, h, spacing, spacing, spacing)
	if err != nil {
		return nil, err
	}
	i := 0
	for _, run := range runs {
		if run.value != 0 {
			for j := i; j < i+run.count; j++ {
				x := j / (w * h)
				z := (j / w) % h
				y := j % w
				g.values[g.index(x, y, z)] = 1
			}
		}
		i += run.count
	}
	return g, nil
}

// Load reads a volume file, choosing the decoder from the extension:
// .binvox or .json.
func Load(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume: %w", err)
	}
	defer file.Close()

	switch ext := strings.ToLower(extension(path)); ext {
	case ".binvox":
		return ReadBinvox(file)
	case ".json":
		return ReadJSON(file, 1, 1, 1)
	default:
		return nil, fmt.Errorf("%w: unsupported volume file type %q (expected .binvox or .json)", ErrInvalidVolume, ext)
	}
}

func extension(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}
