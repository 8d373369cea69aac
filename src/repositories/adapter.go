package repositories

import (
	"context"
	"fmt"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

// Adapter is the storage contract every backend implements.
//
// FindByID returns a *domain.NotFoundError when nothing is stored under id, or when the stored
// record belongs to another class. An empty className matches any class.
// Query returns records ordered by sort value ascending and never returns nil.
// Delete reports whether a record was present.
type Adapter interface {
	Create(ctx context.Context, rec entities.Record) error
	FindByID(ctx context.Context, className string, id string) (entities.Record, error)
	Query(ctx context.Context, metadataFilter domain.MetadataFilter, propsFilter domain.PropsFilter, ids []string) ([]entities.Record, error)
	Save(ctx context.Context, rec entities.Record) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Traverser is implemented by adapters able to walk edges over several hops.
type Traverser interface {
	QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error)
	QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error)
}

// Claimer atomically picks the oldest record of a class matching propsFilter, merges patch into
// its props and persists it. It returns false when nothing matched.
type Claimer interface {
	ClaimNext(ctx context.Context, className string, propsFilter domain.PropsFilter, patch entities.Props) (entities.Record, bool, error)
}

// Initializer prepares the backing store (schema, buckets).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// DefaultTraversalDepth limits multi-hop traversal when callers pass a non-positive depth.
const DefaultTraversalDepth = 10

// BaseAdapter can be embedded by partial adapters; every operation reports ErrNotImplemented.
type BaseAdapter struct{}

func (BaseAdapter) Create(context.Context, entities.Record) error {
	return fmt.Errorf("BaseAdapter.Create - %w", domain.ErrNotImplemented)
}

func (BaseAdapter) FindByID(context.Context, string, string) (entities.Record, error) {
	return entities.Record{}, fmt.Errorf("BaseAdapter.FindByID - %w", domain.ErrNotImplemented)
}

func (BaseAdapter) Query(context.Context, domain.MetadataFilter, domain.PropsFilter, []string) ([]entities.Record, error) {
	return nil, fmt.Errorf("BaseAdapter.Query - %w", domain.ErrNotImplemented)
}

func (BaseAdapter) Save(context.Context, entities.Record) error {
	return fmt.Errorf("BaseAdapter.Save - %w", domain.ErrNotImplemented)
}

func (BaseAdapter) Delete(context.Context, string) (bool, error) {
	return false, fmt.Errorf("BaseAdapter.Delete - %w", domain.ErrNotImplemented)
}
