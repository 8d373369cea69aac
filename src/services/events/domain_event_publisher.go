package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"nodegraph/src/domain"
	"nodegraph/src/infra/kafka"
)

const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderEntityClass   = "entity_class"
	HeaderFieldsChanged = "fields_changed"
	HeaderIsEdge        = "is_edge"
	HeaderSchemaVersion = "schema_version"
	HeaderSource        = "source_service"
)

type DomainEventPublisher struct {
	logger      *slog.Logger
	kafkaClient *kafka.KafkaClient
	topic       string
}

func NewDomainEventPublisher(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	topic string,
) *DomainEventPublisher {
	return &DomainEventPublisher{
		logger:      logger,
		kafkaClient: kafkaClient,
		topic:       topic,
	}
}

// PublishChanges publishes a batch of change events keyed by entity id, so every change of the
// same entity lands on the same partition in order.
func (p *DomainEventPublisher) PublishChanges(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	p.logger.Debug("Publishing change events batch", "count", len(events))

	kafkaMessages := make([]kafka.Message, 0, len(events))

	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal change event",
				"error", err,
				"event_id", event.EventID,
				"entity_id", event.Metadata.GlobalID)
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     event.Metadata.GlobalID,
			Value:   eventBytes,
			Headers: p.createEventHeaders(event),
		})
	}

	if err := p.kafkaClient.Producer(kafkaMessages, p.topic); err != nil {
		p.logger.Error("Failed to publish change events to Kafka",
			"error", err,
			"topic", p.topic,
			"events_count", len(kafkaMessages))
		return fmt.Errorf("failed to publish change events to topic %s: %w", p.topic, err)
	}

	p.logger.Info("Successfully published change events",
		"topic", p.topic,
		"events_count", len(kafkaMessages))

	return nil
}

// createEventHeaders creates Kafka headers so consumers can filter without decoding the payload
func (p *DomainEventPublisher) createEventHeaders(event domain.ChangeEvent) map[string]string {
	headers := map[string]string{
		HeaderEventType:     string(event.Type),
		HeaderSource:        "nodegraph",
		HeaderSchemaVersion: "v1",
		HeaderEventID:       event.EventID,
		HeaderEntityClass:   event.Metadata.ClassName,
	}

	if event.Metadata.IsEdge() {
		headers[HeaderIsEdge] = "true"
	}

	if len(event.Props) > 0 {
		fields := make([]string, 0, len(event.Props))
		for field := range event.Props {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		headers[HeaderFieldsChanged] = strings.Join(fields, ",")
	}

	return headers
}
