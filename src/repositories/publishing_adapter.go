package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

type ChangePublisher interface {
	PublishChanges(ctx context.Context, events []domain.ChangeEvent) error
}

// PublishingAdapter emits a domain.ChangeEvent after every successful write of the wrapped
// adapter. A publish failure is logged and does not fail the write, which already happened.
type PublishingAdapter struct {
	logger    *slog.Logger
	inner     Adapter
	publisher ChangePublisher
}

func NewPublishingAdapter(logger *slog.Logger, inner Adapter, publisher ChangePublisher) *PublishingAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishingAdapter{logger: logger, inner: inner, publisher: publisher}
}

func (a *PublishingAdapter) Create(ctx context.Context, rec entities.Record) error {
	if err := a.inner.Create(ctx, rec); err != nil {
		return err
	}

	a.publish(ctx, domain.NewChangeEvent(domain.ChangeCreated, rec))
	return nil
}

func (a *PublishingAdapter) FindByID(ctx context.Context, className string, id string) (entities.Record, error) {
	return a.inner.FindByID(ctx, className, id)
}

func (a *PublishingAdapter) Query(ctx context.Context, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	return a.inner.Query(ctx, mf, pf, ids)
}

func (a *PublishingAdapter) Save(ctx context.Context, rec entities.Record) error {
	if err := a.inner.Save(ctx, rec); err != nil {
		return err
	}

	a.publish(ctx, domain.NewChangeEvent(domain.ChangeUpdated, rec))
	return nil
}

func (a *PublishingAdapter) Delete(ctx context.Context, id string) (bool, error) {
	// o registro é lido antes para que o evento carregue a metadata completa
	rec, findErr := a.inner.FindByID(ctx, "", id)

	deleted, err := a.inner.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if findErr != nil {
		rec = entities.Record{Metadata: entities.Metadata{GlobalID: id}}
	}
	rec.Props = nil

	a.publish(ctx, domain.NewChangeEvent(domain.ChangeDeleted, rec))
	return true, nil
}

func (a *PublishingAdapter) ClaimNext(ctx context.Context, className string, pf domain.PropsFilter, patch entities.Props) (entities.Record, bool, error) {
	claimer, ok := a.inner.(Claimer)
	if !ok {
		return entities.Record{}, false, fmt.Errorf("PublishingAdapter.ClaimNext - %w", domain.ErrNotImplemented)
	}

	rec, found, err := claimer.ClaimNext(ctx, className, pf, patch)
	if err != nil || !found {
		return rec, found, err
	}

	a.publish(ctx, domain.NewChangeEvent(domain.ChangeUpdated, rec))
	return rec, true, nil
}

func (a *PublishingAdapter) QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error) {
	traverser, ok := a.inner.(Traverser)
	if !ok {
		return nil, fmt.Errorf("PublishingAdapter.QueryDescendantsByClassName - %w", domain.ErrNotImplemented)
	}
	return traverser.QueryDescendantsByClassName(ctx, id, targetClassName, depth)
}

func (a *PublishingAdapter) QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error) {
	traverser, ok := a.inner.(Traverser)
	if !ok {
		return nil, fmt.Errorf("PublishingAdapter.QueryAncestorsByClassName - %w", domain.ErrNotImplemented)
	}
	return traverser.QueryAncestorsByClassName(ctx, id, sourceClassName, depth)
}

func (a *PublishingAdapter) Initialize(ctx context.Context) error {
	if initializer, ok := a.inner.(Initializer); ok {
		return initializer.Initialize(ctx)
	}
	return nil
}

func (a *PublishingAdapter) publish(ctx context.Context, event domain.ChangeEvent) {
	if err := a.publisher.PublishChanges(ctx, []domain.ChangeEvent{event}); err != nil {
		a.logger.Error("Failed to publish change event",
			"error", err,
			"event_type", event.Type,
			"entity_id", event.Metadata.GlobalID)
	}
}
