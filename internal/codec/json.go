package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"topomap/internal/domain"
)

// JSONCodec handles JSON import/export of the native node/link shape
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports topology data from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	fragment := domain.NewFragment()
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(fragment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fragment.Nodes == nil {
		fragment.Nodes = make([]domain.Node, 0)
	}
	if fragment.Links == nil {
		fragment.Links = make([]domain.Link, 0)
	}

	return fragment, nil
}

// Export exports topology data to JSON
func (c *JSONCodec) Export(fragment *domain.Fragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
