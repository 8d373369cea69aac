package debezium

import (
	"context"
	"fmt"
	"log/slog"

	"nodegraph/src/domain"
	"nodegraph/src/infra/kafka"
)

// ChangeBatchHandler receives the change events decoded from one Kafka batch.
type ChangeBatchHandler func(ctx context.Context, events []domain.ChangeEvent) error

// CDCClient implements CDC event consumption using Kafka
type CDCClient struct {
	logger      *slog.Logger
	kafkaClient *kafka.KafkaClient
	serializer  *CDCSerializer
	topic       string
}

// NewCDCClient creates a new CDC client
func NewCDCClient(logger *slog.Logger, topic string, kafkaClient *kafka.KafkaClient, tables []string) *CDCClient {
	return &CDCClient{
		logger:      logger,
		kafkaClient: kafkaClient,
		serializer:  &CDCSerializer{IncludeTables: tables},
		topic:       topic,
	}
}

// ConsumeChangeEvents starts consuming CDC events and calls handler once per batch.
func (c *CDCClient) ConsumeChangeEvents(ctx context.Context, handler ChangeBatchHandler) error {
	c.logger.Info("Starting CDC event consumption", "topic", c.topic)

	kafkaHandler := func(messages []kafka.Message) error {
		return c.ProcessMessages(ctx, messages, handler)
	}

	return c.kafkaClient.Consumer(ctx, kafkaHandler, c.topic)
}

// ProcessMessages converts a batch of Kafka messages and hands the valid events to handler.
// Unparseable messages are skipped; the batch fails only when none could be used.
func (c *CDCClient) ProcessMessages(ctx context.Context, messages []kafka.Message, handler ChangeBatchHandler) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Debug("Processing CDC messages batch", "count", len(messages))

	var validEvents []domain.ChangeEvent
	skippedCount := 0
	errorCount := 0

	for _, msg := range messages {
		// tombstones do Debezium após deletes
		if len(msg.Value) == 0 {
			skippedCount++
			continue
		}

		cdcEvent, err := c.serializer.ParseCDCEvent(msg.Value)
		if err != nil {
			c.logger.Error("Failed to parse CDC message",
				"error", err,
				"key", msg.Key,
				"value_length", len(msg.Value))
			errorCount++
			continue
		}

		if !c.serializer.ShouldProcessEvent(cdcEvent) {
			c.logger.Debug("Skipping CDC event",
				"table", cdcEvent.Source.Table,
				"operation", cdcEvent.Operation)
			skippedCount++
			continue
		}

		changeEvent, err := c.serializer.ToChangeEvent(cdcEvent)
		if err != nil {
			c.logger.Error("Failed to map CDC event",
				"error", err,
				"table", cdcEvent.Source.Table,
				"operation", cdcEvent.Operation)
			errorCount++
			continue
		}

		validEvents = append(validEvents, changeEvent)
	}

	if len(validEvents) > 0 {
		if err := handler(ctx, validEvents); err != nil {
			c.logger.Error("CDC batch event handler failed",
				"error", err,
				"valid_events", len(validEvents))
			return fmt.Errorf("failed to handle CDC events batch: %w", err)
		}
	}

	c.logger.Info("Completed CDC messages batch processing",
		"total", len(messages),
		"processed", len(validEvents),
		"skipped", skippedCount,
		"errors", errorCount)

	if errorCount > 0 && len(validEvents) == 0 {
		return fmt.Errorf("failed to process any CDC messages in batch")
	}

	return nil
}

// Close closes the CDC client
func (c *CDCClient) Close() error {
	c.logger.Info("Closing CDC client")
	return c.kafkaClient.Close()
}
