package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"topomap/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format name
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformed wraps every parse failure
	ErrMalformed = errors.New("malformed topology document")
)

// Importer interface for importing topology data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Fragment, error)
	Format() string
}

// Exporter interface for exporting topology data to various formats
type Exporter interface {
	Export(fragment *domain.Fragment, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name ("json", "yaml" or "yml")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ForFormat(ext)
}
