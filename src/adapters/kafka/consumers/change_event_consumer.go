package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"nodegraph/src/domain"
	"nodegraph/src/infra/kafka"
)

// CacheInvalidator is the part of repositories.CachedAdapter the consumer needs.
type CacheInvalidator interface {
	InvalidateByEntityIDs(ctx context.Context, entityIDs []string) error
	InvalidateByClassNames(ctx context.Context, classNames []string) error
}

// ChangeEventConsumer drops cached values touched by change events published by other
// processes, for deployments where they don't share the same Redis key space.
type ChangeEventConsumer struct {
	logger      *slog.Logger
	invalidator CacheInvalidator
}

func NewChangeEventConsumer(logger *slog.Logger, invalidator CacheInvalidator) *ChangeEventConsumer {
	return &ChangeEventConsumer{
		logger:      logger,
		invalidator: invalidator,
	}
}

func (c *ChangeEventConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting change event consumer", "topic", topic)

	handler := func(messages []kafka.Message) error {
		return c.HandleMessages(ctx, messages)
	}

	return kafkaClient.Consumer(ctx, handler, topic)
}

// HandleMessages decodes a batch of published change events. A message that can't be decoded
// fails the whole batch so it is not committed.
func (c *ChangeEventConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	events := make([]domain.ChangeEvent, 0, len(messages))
	for _, msg := range messages {
		var event domain.ChangeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Failed to unmarshal change event",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			return fmt.Errorf("failed to unmarshal change event with key %s: %w", msg.Key, err)
		}
		events = append(events, event)
	}

	return c.HandleChangeEvents(ctx, events)
}

// HandleChangeEvents invalidates once per batch, whatever the source of the events
// (published by the adapter or captured from the nodes table).
func (c *ChangeEventConsumer) HandleChangeEvents(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	entityIDs := make(map[string]bool)
	classNames := make(map[string]bool)

	for _, event := range events {
		if event.Metadata.GlobalID == "" {
			c.logger.Warn("Skipping change event without entity id", "event_id", event.EventID)
			continue
		}

		entityIDs[event.Metadata.GlobalID] = true
		classNames[event.Metadata.ClassName] = true

		// relações em cache dos dois lados da aresta ficam velhas
		if event.Metadata.IsEdge() {
			entityIDs[event.Metadata.SourceID] = true
			entityIDs[event.Metadata.TargetID] = true
		}
	}

	ids := sortedKeys(entityIDs)
	classes := sortedKeys(classNames)

	if err := c.invalidator.InvalidateByEntityIDs(ctx, ids); err != nil {
		c.logger.Error("Failed to invalidate entities", "error", err, "count", len(ids))
		return fmt.Errorf("failed to invalidate entities: %w", err)
	}
	if err := c.invalidator.InvalidateByClassNames(ctx, classes); err != nil {
		c.logger.Error("Failed to invalidate classes", "error", err, "classes", classes)
		return fmt.Errorf("failed to invalidate classes: %w", err)
	}

	c.logger.Info("Successfully processed change events batch",
		"count", len(events),
		"entities", len(ids),
		"classes", len(classes))

	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		if key != "" {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}
