package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

func ioError(format string, err error) error {
	return &mesh.FormatError{Format: format, Offset: -1, Index: -1, Kind: mesh.ErrIOFailure, Err: err}
}

// ReadFile decodes the mesh stored at path. Compressed files are recognized
// by their .gz suffix or, failing that, by the gzip magic bytes.
func ReadFile(path string, opts Options) (*mesh.Mesh, error) {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	codec, err := format.Codec(opts)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, ioError(codec.Name(), fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if !compressed {
		magic, _ := br.Peek(2)
		compressed = len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b
	}

	var r io.Reader = br
	if compressed {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, ioError(codec.Name(), fmt.Errorf("failed to open gzip stream: %w", err))
		}
		defer zr.Close()
		r = zr
	}

	return codec.Decode(r)
}

// WriteFile encodes m to path with the codec matching its extension
func WriteFile(path string, m *mesh.Mesh, opts Options) error {
	format, _, err := DetectFormat(path)
	if err != nil {
		return err
	}
	codec, err := format.Codec(opts)
	if err != nil {
		return err
	}
	return WriteFileWith(path, m, codec)
}

// WriteFileWith encodes m to path with codec. The data goes to a temporary
// file next to path that is renamed into place only after a successful
// close; on any failure the temporary file is removed and path is left as
// it was.
func WriteFileWith(path string, m *mesh.Mesh, codec Codec) (err error) {
	_, compressed, _ := DetectFormat(path)

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return ioError(codec.Name(), fmt.Errorf("failed to create temporary file: %w", err))
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if compressed {
		zw := gzip.NewWriter(tmp)
		if err = codec.Encode(zw, m); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return ioError(codec.Name(), fmt.Errorf("failed to finish gzip stream: %w", err))
		}
	} else if err = codec.Encode(tmp, m); err != nil {
		return err
	}

	if err = tmp.Chmod(0o644); err != nil {
		return ioError(codec.Name(), fmt.Errorf("failed to set permissions: %w", err))
	}
	if err = tmp.Sync(); err != nil {
		return ioError(codec.Name(), fmt.Errorf("failed to sync: %w", err))
	}
	if err = tmp.Close(); err != nil {
		return ioError(codec.Name(), fmt.Errorf("failed to close: %w", err))
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return ioError(codec.Name(), fmt.Errorf("failed to replace %s: %w", path, err))
	}
	return nil
}
