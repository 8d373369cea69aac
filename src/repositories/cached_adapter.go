package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/infra/redis"
)

const anyClassRegistry = "registry:class:_any"

// CachedAdapter is a read-through Redis cache in front of another adapter.
//
// Every cached value is registered under the ids of the records it contains
// (registry:entity:<id>) and under the class it was filtered on (registry:class:<name>, or
// registry:class:_any when the query had no class filter). Writes drop the registries they can
// affect.
type CachedAdapter struct {
	logger      *slog.Logger
	inner       Adapter
	redisClient *redis.RedisClient
}

func NewCachedAdapter(logger *slog.Logger, inner Adapter, redisClient *redis.RedisClient) *CachedAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedAdapter{
		logger:      logger,
		inner:       inner,
		redisClient: redisClient,
	}
}

func entityRegistryKey(id string) string {
	return "registry:entity:" + id
}

func classRegistryKey(className string) string {
	return "registry:class:" + className
}

func recordCacheKey(id string) string {
	return "node:" + id
}

func (a *CachedAdapter) Create(ctx context.Context, rec entities.Record) error {
	if err := a.inner.Create(ctx, rec); err != nil {
		return err
	}

	a.invalidate(ctx, []string{rec.Metadata.GlobalID}, rec.Metadata.ClassName)
	return nil
}

func (a *CachedAdapter) FindByID(ctx context.Context, className string, id string) (entities.Record, error) {
	cacheKey := recordCacheKey(id)

	var cached entities.Record
	found, err := a.getFromCache(ctx, cacheKey, &cached)
	if found && err == nil {
		a.logger.Debug("Cache HIT", "key", cacheKey)
		if className != "" && cached.Metadata.ClassName != className {
			return entities.Record{}, &domain.NotFoundError{ClassName: className, ID: id}
		}
		return normalizeRecord(cached), nil
	}
	if err != nil {
		// erro de cache não impede a leitura no adapter
		a.logger.Warn("Cache error", "key", cacheKey, "error", err)
	}

	a.logger.Debug("Cache MISS", "key", cacheKey)

	rec, err := a.inner.FindByID(ctx, className, id)
	if err != nil {
		return entities.Record{}, err
	}

	a.setInCache(ctx, cacheKey, rec, []string{entityRegistryKey(id)})
	return rec, nil
}

func (a *CachedAdapter) Query(ctx context.Context, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	cacheKey, err := a.generateQueryCacheKey(mf, pf, ids)
	if err != nil {
		return a.inner.Query(ctx, mf, pf, ids)
	}

	var cached []entities.Record
	found, err := a.getFromCache(ctx, cacheKey, &cached)
	if found && err == nil {
		a.logger.Debug("Cache HIT", "key", cacheKey)
		for i := range cached {
			cached[i] = normalizeRecord(cached[i])
		}
		if cached == nil {
			cached = make([]entities.Record, 0)
		}
		return cached, nil
	}
	if err != nil {
		a.logger.Warn("Cache error", "key", cacheKey, "error", err)
	}

	a.logger.Debug("Cache MISS", "key", cacheKey)

	records, err := a.inner.Query(ctx, mf, pf, ids)
	if err != nil {
		return nil, err
	}

	registryKeys := make([]string, 0, len(records)+1)
	if className, ok := mf[entities.FieldClassName].(string); ok {
		registryKeys = append(registryKeys, classRegistryKey(className))
	} else {
		registryKeys = append(registryKeys, anyClassRegistry)
	}
	for _, rec := range records {
		registryKeys = append(registryKeys, entityRegistryKey(rec.Metadata.GlobalID))
	}

	a.setInCache(ctx, cacheKey, records, registryKeys)
	return records, nil
}

func (a *CachedAdapter) Save(ctx context.Context, rec entities.Record) error {
	if err := a.inner.Save(ctx, rec); err != nil {
		return err
	}

	a.invalidate(ctx, []string{rec.Metadata.GlobalID}, rec.Metadata.ClassName)
	return nil
}

func (a *CachedAdapter) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := a.inner.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if err := a.InvalidateByEntityIDs(ctx, []string{id}); err != nil {
		a.logger.Warn("Failed to invalidate cache after delete", "id", id, "error", err)
	}
	return deleted, nil
}

// ClaimNext is never served from cache.
func (a *CachedAdapter) ClaimNext(ctx context.Context, className string, pf domain.PropsFilter, patch entities.Props) (entities.Record, bool, error) {
	claimer, ok := a.inner.(Claimer)
	if !ok {
		return entities.Record{}, false, fmt.Errorf("CachedAdapter.ClaimNext - %w", domain.ErrNotImplemented)
	}

	rec, found, err := claimer.ClaimNext(ctx, className, pf, patch)
	if err != nil || !found {
		return rec, found, err
	}

	a.invalidate(ctx, []string{rec.Metadata.GlobalID}, rec.Metadata.ClassName)
	return rec, true, nil
}

func (a *CachedAdapter) QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error) {
	traverser, ok := a.inner.(Traverser)
	if !ok {
		return nil, fmt.Errorf("CachedAdapter.QueryDescendantsByClassName - %w", domain.ErrNotImplemented)
	}
	return traverser.QueryDescendantsByClassName(ctx, id, targetClassName, depth)
}

func (a *CachedAdapter) QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error) {
	traverser, ok := a.inner.(Traverser)
	if !ok {
		return nil, fmt.Errorf("CachedAdapter.QueryAncestorsByClassName - %w", domain.ErrNotImplemented)
	}
	return traverser.QueryAncestorsByClassName(ctx, id, sourceClassName, depth)
}

func (a *CachedAdapter) Initialize(ctx context.Context) error {
	if initializer, ok := a.inner.(Initializer); ok {
		return initializer.Initialize(ctx)
	}
	return nil
}

// InvalidateByEntityIDs drops every cached value that contains one of the ids.
func (a *CachedAdapter) InvalidateByEntityIDs(ctx context.Context, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	registryKeys := make([]string, len(entityIDs))
	for i, entityID := range entityIDs {
		registryKeys[i] = entityRegistryKey(entityID)
	}

	return a.invalidateRegistries(ctx, registryKeys, entityIDs)
}

// InvalidateByClassNames drops every cached query filtered on one of the classes, plus the
// queries that had no class filter.
func (a *CachedAdapter) InvalidateByClassNames(ctx context.Context, classNames []string) error {
	if len(classNames) == 0 {
		return nil
	}

	registryKeys := []string{anyClassRegistry}
	for _, className := range classNames {
		registryKeys = append(registryKeys, classRegistryKey(className))
	}

	return a.invalidateRegistries(ctx, registryKeys, nil)
}

func (a *CachedAdapter) invalidate(ctx context.Context, entityIDs []string, className string) {
	registryKeys := []string{classRegistryKey(className), anyClassRegistry}
	for _, entityID := range entityIDs {
		registryKeys = append(registryKeys, entityRegistryKey(entityID))
	}

	if err := a.invalidateRegistries(ctx, registryKeys, entityIDs); err != nil {
		a.logger.Warn("Failed to invalidate cache", "ids", entityIDs, "class", className, "error", err)
	}
}

func (a *CachedAdapter) invalidateRegistries(ctx context.Context, registryKeys []string, entityIDs []string) error {
	registryResults, err := a.redisClient.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return fmt.Errorf("failed to get registry data: %w", err)
	}

	allKeysToDelete := make(map[string]bool)
	for _, entityID := range entityIDs {
		allKeysToDelete[recordCacheKey(entityID)] = true
	}

	for registryKey, relatedKeys := range registryResults {
		// o próprio registry também sai
		allKeysToDelete[registryKey] = true

		for _, relatedKey := range relatedKeys {
			allKeysToDelete[relatedKey] = true
		}
	}

	keysToDelete := make([]string, 0, len(allKeysToDelete))
	for key := range allKeysToDelete {
		keysToDelete = append(keysToDelete, key)
	}
	slices.Sort(keysToDelete)

	a.logger.Debug("Invalidating cache keys", "keys", len(keysToDelete), "entities", len(entityIDs))
	return a.redisClient.InvalidateEntity(ctx, keysToDelete)
}

func (a *CachedAdapter) generateQueryCacheKey(mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) (string, error) {
	normalized, err := pf.Normalize()
	if err != nil {
		return "", err
	}

	sortedIDs := slices.Clone(ids)
	slices.Sort(sortedIDs)

	// json.Marshal ordena as chaves dos maps, então a chave é estável
	keyData, err := json.Marshal(map[string]any{
		"metadata": mf,
		"props":    normalized,
		"ids":      strings.Join(sortedIDs, ","),
	})
	if err != nil {
		return "", err
	}

	hash := md5.Sum(keyData)
	return fmt.Sprintf("query:%x", hash), nil
}

func (a *CachedAdapter) getFromCache(ctx context.Context, cacheKey string, target any) (bool, error) {
	cachedJSON, found, err := a.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return found, err
	}

	if err := json.Unmarshal([]byte(cachedJSON), target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return true, nil
}

func (a *CachedAdapter) setInCache(ctx context.Context, cacheKey string, value any, registryKeys []string) {
	dataJSON, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("Failed to marshal cache data", "key", cacheKey, "error", err)
		return
	}

	if err := a.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), registryKeys); err != nil {
		if !errors.Is(err, context.Canceled) {
			a.logger.Warn("Failed to set cache with registry", "key", cacheKey, "error", err)
		}
		return
	}

	a.logger.Debug("Cache SET with registry", "key", cacheKey, "registries", len(registryKeys))
}
