package repository

import (
	"context"
	"errors"

	"topomap/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for topology data access
type Repository interface {
	// Read operations
	LoadTopology(ctx context.Context) (*domain.Fragment, error)
	GetNode(ctx context.Context, id string) (*domain.Node, error)
	GetLink(ctx context.Context, id string) (*domain.Link, error)

	// Write operations
	UpsertNode(ctx context.Context, node *domain.Node) error
	DeleteNode(ctx context.Context, id string) error
	UpsertLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, id string) error

	// Layout persistence
	SavePositions(ctx context.Context, positions []domain.NodePosition) error
	SaveViewport(ctx context.Context, vp domain.Viewport) error
	LoadViewport(ctx context.Context) (domain.Viewport, bool, error)

	// Bulk operations
	ReplaceTopology(ctx context.Context, fragment *domain.Fragment) error

	// Close releases resources
	Close() error
}
