package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/repositories"
)

// Hook runs around persistence of a new node. A BeforeCreate error aborts the creation.
type Hook func(ctx context.Context, n *Node) error

type ClassOption func(c *Class)

func WithBeforeCreate(hook Hook) ClassOption {
	return func(c *Class) {
		c.beforeCreate = append(c.beforeCreate, hook)
	}
}

func WithAfterCreate(hook Hook) ClassOption {
	return func(c *Class) {
		c.afterCreate = append(c.afterCreate, hook)
	}
}

// Class is a registered node (or edge) type. It carries the relationship specs and is the
// entry point for every factory and query operation.
type Class struct {
	name          string
	relationships []RelationshipSpec
	beforeCreate  []Hook
	afterCreate   []Hook
	edge          bool
	generic       bool
}

var (
	classesMu sync.RWMutex
	classes   = map[string]*Class{}
)

func registerClass(c *Class) {
	classesMu.Lock()
	defer classesMu.Unlock()

	if _, exists := classes[c.name]; exists {
		panic(fmt.Sprintf("nodes: class %q is already defined", c.name))
	}
	classes[c.name] = c
}

func ClassByName(name string) (*Class, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()

	c, ok := classes[name]
	return c, ok
}

// ClassNames lists every registered class, sorted.
func ClassNames() []string {
	classesMu.RLock()
	defer classesMu.RUnlock()

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefineNode registers a node class. define may be nil for classes without relationships.
func DefineNode(name string, define func(b *SpecBuilder), opts ...ClassOption) *Class {
	c := newClass(name, define, opts...)
	registerClass(c)
	return c
}

func newClass(name string, define func(b *SpecBuilder), opts ...ClassOption) *Class {
	c := &Class{name: name}
	for _, opt := range opts {
		opt(c)
	}

	if define != nil {
		b := &SpecBuilder{}
		define(b)
		c.relationships = b.build()
	}
	return c
}

func (c *Class) Name() string {
	return c.name
}

func (c *Class) IsEdge() bool {
	return c.edge
}

// Relationships returns the declared specs in declaration order.
func (c *Class) Relationships() []RelationshipSpec {
	out := make([]RelationshipSpec, len(c.relationships))
	copy(out, c.relationships)
	return out
}

func (c *Class) Relationship(name string) (RelationshipSpec, bool) {
	for _, spec := range c.relationships {
		if spec.RelationName() == name {
			return spec, true
		}
	}
	return RelationshipSpec{}, false
}

// accepts reports whether a node of class other can be returned from a lookup on c.
func (c *Class) accepts(other *Class) bool {
	return c == other || (c.generic && other.edge)
}

func (c *Class) storageClassName() string {
	if c.generic {
		return ""
	}
	return c.name
}

// GenerateMetadata allocates a fresh id and sort value. Non-zero fields of overrides win.
func (c *Class) GenerateMetadata(vc domain.ViewerContext, overrides *entities.Metadata) entities.Metadata {
	m := entities.Metadata{
		GlobalID:  uuid.NewString(),
		ClassName: c.name,
		SortValue: domain.NextSortValue(),
	}
	if vc != nil {
		m.OwnerID = vc.OwnerID()
	}
	if overrides != nil {
		m = m.WithOverrides(*overrides)
	}
	return m
}

// CreateUnattached runs BeforeCreate hooks, persists the node, then runs AfterCreate hooks.
func (c *Class) CreateUnattached(ctx context.Context, vc domain.ViewerContext, props entities.Props, overrides *entities.Metadata, cache Cache) (*Node, error) {
	normalized, err := entities.NormalizeProps(props)
	if err != nil {
		return nil, &domain.CreationError{ClassName: c.name, Err: err}
	}

	n := &Node{
		class:    c,
		vc:       vc,
		metadata: c.GenerateMetadata(vc, overrides),
		props:    normalized,
	}

	for _, hook := range c.beforeCreate {
		if err := hook(ctx, n); err != nil {
			return nil, &domain.CreationError{ClassName: c.name, Err: err}
		}
	}

	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, fmt.Errorf("%s.CreateUnattached - %w", c.name, err)
	}

	if err := adapter.Create(ctx, n.record()); err != nil {
		return nil, fmt.Errorf("%s.CreateUnattached - %w", c.name, asAdapterError("Adapter.Create", err))
	}
	n.savedProps = n.props.Clone()

	for _, hook := range c.afterCreate {
		if err := hook(ctx, n); err != nil {
			return n, fmt.Errorf("%s.CreateUnattached - after create hook failed: %w", c.name, err)
		}
	}

	cacheSet(cache, n)
	slog.Debug("Node created", "node", n.String())
	return n, nil
}

// Find returns (nil, nil) when nothing of this class is stored under id.
func (c *Class) Find(ctx context.Context, vc domain.ViewerContext, id string, cache Cache) (*Node, error) {
	if cached, ok := cacheGet(cache, id); ok {
		if c.accepts(cached.class) {
			return cached, nil
		}
		return nil, nil
	}

	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, fmt.Errorf("%s.Find - %w", c.name, err)
	}

	rec, err := adapter.FindByID(ctx, c.storageClassName(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s.Find - %w", c.name, asAdapterError("Adapter.FindByID", err))
	}

	if c.generic && !rec.Metadata.IsEdge() {
		return nil, nil
	}

	n := c.hydrate(vc, rec)
	cacheSet(cache, n)
	return n, nil
}

func (c *Class) FindOrFail(ctx context.Context, vc domain.ViewerContext, id string, cache Cache) (*Node, error) {
	n, err := c.Find(ctx, vc, id, cache)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &domain.NotFoundError{ClassName: c.name, ID: id}
	}
	return n, nil
}

// Query returns every node of the class matching both filters (and ids, when non-empty),
// ordered by sort value. Nodes already in the cache are returned as the cached instance.
func (c *Class) Query(ctx context.Context, vc domain.ViewerContext, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string, cache Cache) ([]*Node, error) {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, fmt.Errorf("%s.Query - %w", c.name, err)
	}

	filter := mf
	if !c.generic {
		filter = mf.With(entities.FieldClassName, c.name)
	}

	records, err := adapter.Query(ctx, filter, pf, ids)
	if err != nil {
		return nil, fmt.Errorf("%s.Query - %w", c.name, asAdapterError("Adapter.Query", err))
	}

	return c.materialize(vc, records, cache), nil
}

func (c *Class) materialize(vc domain.ViewerContext, records []entities.Record, cache Cache) []*Node {
	result := make([]*Node, 0, len(records))
	for _, rec := range records {
		if c.generic && !rec.Metadata.IsEdge() {
			continue
		}

		if cached, ok := cacheGet(cache, rec.Metadata.GlobalID); ok {
			result = append(result, cached)
			continue
		}

		n := c.hydrate(vc, rec)
		cacheSet(cache, n)
		result = append(result, n)
	}
	return result
}

// ClaimNext atomically takes the oldest node matching pf and merges patch into its props.
// It returns (nil, nil) when nothing is available.
func (c *Class) ClaimNext(ctx context.Context, vc domain.ViewerContext, pf domain.PropsFilter, patch entities.Props, cache Cache) (*Node, error) {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, fmt.Errorf("%s.ClaimNext - %w", c.name, err)
	}

	claimer, ok := adapter.(repositories.Claimer)
	if !ok {
		return nil, fmt.Errorf("%s.ClaimNext - %w", c.name, domain.ErrNotImplemented)
	}

	normalizedPatch, err := entities.NormalizeProps(patch)
	if err != nil {
		return nil, fmt.Errorf("%s.ClaimNext - %w", c.name, err)
	}

	rec, found, err := claimer.ClaimNext(ctx, c.name, pf, normalizedPatch)
	if err != nil {
		return nil, fmt.Errorf("%s.ClaimNext - %w", c.name, asAdapterError("Adapter.ClaimNext", err))
	}
	if !found {
		return nil, nil
	}

	// a claimed node always reflects the stored state, even if an older copy is cached
	n := c.hydrate(vc, rec)
	cacheSet(cache, n)
	return n, nil
}

// hydrate builds a node from a record, using the record's own class when it is registered.
func (c *Class) hydrate(vc domain.ViewerContext, rec entities.Record) *Node {
	class := c
	if rec.Metadata.ClassName != c.name {
		if registered, ok := ClassByName(rec.Metadata.ClassName); ok {
			class = registered
		}
	}

	props := rec.Props
	if props == nil {
		props = entities.Props{}
	}

	return &Node{
		class:      class,
		vc:         vc,
		metadata:   rec.Metadata,
		props:      props,
		savedProps: props.Clone(),
	}
}

func asAdapterError(op string, err error) error {
	var adapterErr *domain.AdapterError
	if errors.As(err, &adapterErr) || errors.Is(err, domain.ErrNotImplemented) {
		return err
	}
	return domain.NewAdapterError(op, err)
}
