package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// ErrNotFound is returned by a Source when the named table does not exist.
var ErrNotFound = errors.New("table not found")

// Source fetches one named table as a Frame.
type Source interface {
	Fetch(ctx context.Context, name string) (*table.Frame, error)
	String() string
}

// Object suffixes tried in order by the object-based sources.
const (
	suffixZstd  = ".csv.zst"
	suffixPlain = ".csv"
)

// decodeObject parses a CSV payload, decompressing it when compressed.
func decodeObject(r io.Reader, compressed bool) (*table.Frame, error) {
	if !compressed {
		return DecodeCSV(r)
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()
	return DecodeCSV(dec)
}

// FileSource reads tables from CSV files in a directory.
type FileSource struct {
	Dir string
}

// NewFileSource returns a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource { return &FileSource{Dir: dir} }

func (s *FileSource) String() string { return "file:" + s.Dir }

// Fetch reads <name>.csv.zst, falling back to <name>.csv.
func (s *FileSource) Fetch(_ context.Context, name string) (*table.Frame, error) {
	for _, suffix := range []string{suffixZstd, suffixPlain} {
		path := filepath.Join(s.Dir, name+suffix)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", path, err)
		}
		frame, err := decodeObject(f, suffix == suffixZstd)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return frame, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.Dir)
}
