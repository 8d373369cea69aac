package consumers_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/adapters/kafka/consumers"
	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/infra/kafka"
	"nodegraph/src/infra/redis"
	"nodegraph/src/repositories"
	"nodegraph/src/test_artefacts/stubs"
)

type recordingInvalidator struct {
	entityIDs  [][]string
	classNames [][]string
	err        error
}

func (r *recordingInvalidator) InvalidateByEntityIDs(_ context.Context, entityIDs []string) error {
	r.entityIDs = append(r.entityIDs, entityIDs)
	return r.err
}

func (r *recordingInvalidator) InvalidateByClassNames(_ context.Context, classNames []string) error {
	r.classNames = append(r.classNames, classNames)
	return r.err
}

func toMessage(event domain.ChangeEvent) kafka.Message {
	raw, err := json.Marshal(event)
	Expect(err).NotTo(HaveOccurred())
	return kafka.Message{Key: event.Metadata.GlobalID, Value: raw}
}

var _ = Describe("ChangeEventConsumer", func() {
	var (
		ctx         context.Context
		invalidator *recordingInvalidator
		consumer    *consumers.ChangeEventConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		invalidator = &recordingInvalidator{}
		consumer = consumers.NewChangeEventConsumer(slog.Default(), invalidator)
	})

	It("does nothing for an empty batch", func() {
		Expect(consumer.HandleMessages(ctx, nil)).To(Succeed())
		Expect(invalidator.entityIDs).To(BeEmpty())
	})

	It("invalidates each entity and class once per batch", func() {
		// ARRANGE
		person := stubs.NewRecordStub().WithClassName("Person").Get()
		org := stubs.NewRecordStub().WithClassName("Org").Get()
		edge := stubs.NewEdgeStub().Between(person, org).Get()

		messages := []kafka.Message{
			toMessage(domain.NewChangeEvent(domain.ChangeCreated, person)),
			toMessage(domain.NewChangeEvent(domain.ChangeUpdated, person)),
			toMessage(domain.NewChangeEvent(domain.ChangeCreated, edge)),
		}

		// ACT
		err := consumer.HandleMessages(ctx, messages)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(invalidator.entityIDs).To(HaveLen(1))
		Expect(invalidator.entityIDs[0]).To(ConsistOf(person.Metadata.GlobalID, org.Metadata.GlobalID, edge.Metadata.GlobalID))
		Expect(invalidator.classNames).To(Equal([][]string{{"MemberOf", "Person"}}))
	})

	It("fails the batch on an undecodable message", func() {
		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{{Key: "k-1", Value: []byte("{not json")}})

		// ASSERT
		Expect(err).To(MatchError(ContainSubstring("k-1")))
		Expect(invalidator.entityIDs).To(BeEmpty())
	})

	It("skips events without an entity id", func() {
		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{{Key: "k-1", Value: []byte(`{"type":"created"}`)}})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(invalidator.entityIDs).To(Equal([][]string{{}}))
	})

	It("returns the invalidation error", func() {
		// ARRANGE
		invalidator.err = errors.New("redis down")
		rec := stubs.NewRecordStub().Get()

		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{toMessage(domain.NewChangeEvent(domain.ChangeDeleted, rec))})

		// ASSERT
		Expect(err).To(MatchError(ContainSubstring("redis down")))
	})

	Context("with a cached adapter", func() {
		var (
			mr     *miniredis.Miniredis
			client *redis.RedisClient
			cached *repositories.CachedAdapter
		)

		BeforeEach(func() {
			var err error
			mr, err = miniredis.Run()
			Expect(err).NotTo(HaveOccurred())

			client = redis.NewRedisClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
			cached = repositories.NewCachedAdapter(nil, repositories.NewMemoryAdapter(nil), client)
			consumer = consumers.NewChangeEventConsumer(slog.Default(), cached)
		})

		AfterEach(func() {
			_ = client.Close()
			mr.Close()
		})

		It("drops stale entries written by another process", func() {
			// ARRANGE
			rec := stubs.NewRecordStub().WithClassName("Person").Get()
			Expect(cached.Create(ctx, rec)).To(Succeed())
			_, err := cached.FindByID(ctx, "Person", rec.Metadata.GlobalID)
			Expect(err).NotTo(HaveOccurred())
			_, err = cached.Query(ctx, domain.MetadataFilter{entities.FieldClassName: "Person"}, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			err = consumer.HandleMessages(ctx, []kafka.Message{toMessage(domain.NewChangeEvent(domain.ChangeUpdated, rec))})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(mr.Exists("node:" + rec.Metadata.GlobalID)).To(BeFalse())
			Expect(mr.Exists("registry:class:Person")).To(BeFalse())
		})
	})
})

var _ = Describe("ChangeEventConsumer with captured changes", func() {
	It("accepts events decoded elsewhere", func() {
		// ARRANGE
		invalidator := &recordingInvalidator{}
		consumer := consumers.NewChangeEventConsumer(slog.Default(), invalidator)
		rec := stubs.NewRecordStub().WithClassName("Org").Get()

		// ACT
		err := consumer.HandleChangeEvents(context.Background(), []domain.ChangeEvent{domain.NewChangeEvent(domain.ChangeDeleted, rec)})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(invalidator.entityIDs).To(Equal([][]string{{rec.Metadata.GlobalID}}))
		Expect(invalidator.classNames).To(Equal([][]string{{"Org"}}))
	})
})
