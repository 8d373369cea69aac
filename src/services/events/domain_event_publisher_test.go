package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/infra/kafka"
	"nodegraph/src/services/events"
	"nodegraph/src/test_artefacts/comparer"
	"nodegraph/src/test_artefacts/stubs"
)

func headerMap(msg *sarama.ProducerMessage) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[string(h.Key)] = string(h.Value)
	}
	return out
}

var _ = Describe("DomainEventPublisher", func() {
	var (
		ctx       context.Context
		producer  *mocks.SyncProducer
		publisher *events.DomainEventPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = mocks.NewSyncProducer(GinkgoT(), nil)
		publisher = events.NewDomainEventPublisher(slog.Default(), kafka.NewKafkaClientWithProducer(producer), "nodegraph.changes")
	})

	AfterEach(func() {
		Expect(producer.Close()).To(Succeed())
	})

	It("publishes one message per event keyed by entity id", func() {
		// ARRANGE
		rec := stubs.NewRecordStub().WithClassName("Person").WithProps(map[string]any{"name": "Alice", "email": "a@example.com"}).Get()
		event := domain.NewChangeEvent(domain.ChangeCreated, rec)
		expectedValue, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var sent *sarama.ProducerMessage
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			sent = msg
			return nil
		})

		// ACT
		err = publisher.PublishChanges(ctx, []domain.ChangeEvent{event})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(sent.Topic).To(Equal("nodegraph.changes"))

		key, _ := sent.Key.Encode()
		Expect(string(key)).To(Equal(rec.Metadata.GlobalID))

		value, _ := sent.Value.Encode()
		Expect(value).To(BeComparableTo(expectedValue, comparer.JSONBytes()))

		Expect(headerMap(sent)).To(Equal(map[string]string{
			events.HeaderEventType:     "created",
			events.HeaderEventID:       event.EventID,
			events.HeaderEntityClass:   "Person",
			events.HeaderFieldsChanged: "email,name",
			events.HeaderSchemaVersion: "v1",
			events.HeaderSource:        "nodegraph",
		}))
	})

	It("flags edge events", func() {
		// ARRANGE
		event := domain.NewChangeEvent(domain.ChangeDeleted, stubs.NewEdgeStub().Get())
		event.Props = nil

		var sent *sarama.ProducerMessage
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			sent = msg
			return nil
		})

		// ACT
		err := publisher.PublishChanges(ctx, []domain.ChangeEvent{event})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(headerMap(sent)).To(HaveKeyWithValue(events.HeaderIsEdge, "true"))
		Expect(headerMap(sent)).NotTo(HaveKey(events.HeaderFieldsChanged))
	})

	It("decodes back into the same event", func() {
		// ARRANGE
		event := domain.NewChangeEvent(domain.ChangeUpdated, stubs.NewRecordStub().Get())

		var sent *sarama.ProducerMessage
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			sent = msg
			return nil
		})

		// ACT
		Expect(publisher.PublishChanges(ctx, []domain.ChangeEvent{event})).To(Succeed())

		// ASSERT
		value, _ := sent.Value.Encode()
		var decoded domain.ChangeEvent
		Expect(json.Unmarshal(value, &decoded)).To(Succeed())
		Expect(decoded).To(BeComparableTo(event, comparer.TimeWithinTolerance(1)))
	})

	It("does nothing for an empty batch", func() {
		Expect(publisher.PublishChanges(ctx, nil)).To(Succeed())
	})

	It("returns an error when the broker refuses the batch", func() {
		// ARRANGE
		producer.ExpectSendMessageAndSucceed()
		producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		batch := []domain.ChangeEvent{
			domain.NewChangeEvent(domain.ChangeCreated, stubs.NewRecordStub().Get()),
			domain.NewChangeEvent(domain.ChangeCreated, stubs.NewRecordStub().Get()),
		}

		// ACT
		err := publisher.PublishChanges(ctx, batch)

		// ASSERT
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("nodegraph.changes"))
		Expect(errors.Unwrap(err)).To(MatchError(fmt.Sprintf("batch send failed: %d/%d messages failed", 1, 2)))
	})
})
