package repositories

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

// MemoryAdapter keeps records in a map. Records are copied on the way in and out so callers
// never share state with the store.
type MemoryAdapter struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	records map[string]entities.Record
}

func NewMemoryAdapter(logger *slog.Logger) *MemoryAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryAdapter{
		logger:  logger,
		records: make(map[string]entities.Record),
	}
}

func (a *MemoryAdapter) Create(ctx context.Context, rec entities.Record) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAdapterError("MemoryAdapter.Create", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.records[rec.Metadata.GlobalID]; exists {
		return domain.NewAdapterError("MemoryAdapter.Create", fmt.Errorf("record %s already exists", rec.Metadata.GlobalID))
	}

	a.records[rec.Metadata.GlobalID] = rec.Clone()
	a.logger.Debug("MemoryAdapter.Create", "id", rec.Metadata.GlobalID, "class", rec.Metadata.ClassName)
	return nil
}

func (a *MemoryAdapter) FindByID(ctx context.Context, className string, id string) (entities.Record, error) {
	if err := ctx.Err(); err != nil {
		return entities.Record{}, domain.NewAdapterError("MemoryAdapter.FindByID", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.records[id]
	if !ok || (className != "" && rec.Metadata.ClassName != className) {
		return entities.Record{}, &domain.NotFoundError{ClassName: className, ID: id}
	}
	return rec.Clone(), nil
}

func (a *MemoryAdapter) Query(ctx context.Context, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAdapterError("MemoryAdapter.Query", err)
	}

	normalized, err := pf.Normalize()
	if err != nil {
		return nil, domain.NewAdapterError("MemoryAdapter.Query", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.queryLocked(mf, normalized, ids), nil
}

func (a *MemoryAdapter) queryLocked(mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) []entities.Record {
	results := make([]entities.Record, 0)
	for _, rec := range a.records {
		if domain.MatchesRecord(rec, mf, pf, ids) {
			results = append(results, rec.Clone())
		}
	}
	sortRecords(results)
	return results
}

func (a *MemoryAdapter) Save(ctx context.Context, rec entities.Record) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAdapterError("MemoryAdapter.Save", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.records[rec.Metadata.GlobalID] = rec.Clone()
	return nil
}

func (a *MemoryAdapter) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewAdapterError("MemoryAdapter.Delete", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.records[id]; !ok {
		return false, nil
	}
	delete(a.records, id)
	a.logger.Debug("MemoryAdapter.Delete", "id", id)
	return true, nil
}

func (a *MemoryAdapter) ClaimNext(ctx context.Context, className string, pf domain.PropsFilter, patch entities.Props) (entities.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return entities.Record{}, false, domain.NewAdapterError("MemoryAdapter.ClaimNext", err)
	}

	normalized, err := pf.Normalize()
	if err != nil {
		return entities.Record{}, false, domain.NewAdapterError("MemoryAdapter.ClaimNext", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	candidates := a.queryLocked(domain.MetadataFilter{entities.FieldClassName: className}, normalized, nil)
	if len(candidates) == 0 {
		return entities.Record{}, false, nil
	}

	claimed := candidates[0]
	claimed.Props = claimed.Props.Merge(patch)
	a.records[claimed.Metadata.GlobalID] = claimed.Clone()

	return claimed, true, nil
}

func (a *MemoryAdapter) QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error) {
	return walkGraph(ctx, a.metadataQuery, id, targetClassName, depth, walkDescendants)
}

func (a *MemoryAdapter) QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error) {
	return walkGraph(ctx, a.metadataQuery, id, sourceClassName, depth, walkAncestors)
}

func (a *MemoryAdapter) metadataQuery(ctx context.Context, mf domain.MetadataFilter) ([]entities.Record, error) {
	return a.Query(ctx, mf, nil, nil)
}

// Reset drops every record.
func (a *MemoryAdapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = make(map[string]entities.Record)
}

func sortRecords(records []entities.Record) {
	slices.SortFunc(records, func(x, y entities.Record) int {
		if c := cmp.Compare(x.Metadata.SortValue, y.Metadata.SortValue); c != 0 {
			return c
		}
		return cmp.Compare(x.Metadata.GlobalID, y.Metadata.GlobalID)
	})
}
