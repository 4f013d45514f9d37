package watcher

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"topomap/internal/codec"
	"topomap/internal/domain"
)

// Reloader swaps in a whole topology
type Reloader interface {
	Reload(ctx context.Context, fragment *domain.Fragment) error
}

// LoadFile parses a JSON or YAML topology file, picking the codec from its extension
func LoadFile(path string) (*domain.Fragment, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	fragment, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fragment, nil
}

// ReloadOnChange reloads path into r every time the file changes. A file
// that fails to parse or validate is logged and the topology is kept.
func ReloadOnChange(ctx context.Context, path string, r Reloader, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	reload := func() {
		fragment, err := LoadFile(path)
		if err != nil {
			logger.Warn("ignoring unreadable seed file", zap.String("path", path), zap.Error(err))
			return
		}
		if err := r.Reload(ctx, fragment); err != nil {
			logger.Warn("ignoring invalid seed file", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("topology reloaded from file",
			zap.String("path", path),
			zap.Int("nodes", len(fragment.Nodes)),
			zap.Int("links", len(fragment.Links)),
		)
	}
	return New(path, reload, logger).Watch(ctx)
}
