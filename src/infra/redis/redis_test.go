package redis_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/infra/redis"
)

var _ = Describe("RedisClient", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.RedisClient
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client = redis.NewRedisClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), 30*time.Second)
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("reports a miss for unknown keys", func() {
		value, found, err := client.GetKey(ctx, "node:nope")

		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(value).To(BeEmpty())
	})

	It("stores a value with TTL and registers it", func() {
		// ACT
		err := client.SetWithRegistry(ctx, "node:1", `{"a":1}`, []string{"registry:entity:1", "registry:class:Person"})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())

		value, found, err := client.GetKey(ctx, "node:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(value).To(Equal(`{"a":1}`))

		Expect(mr.TTL("node:1")).To(Equal(30 * time.Second))
		Expect(mr.IsMember("registry:class:Person", "node:1")).To(BeTrue())

		members, err := client.GetMultipleSetMembers(ctx, []string{"registry:entity:1", "registry:entity:2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(members).To(HaveLen(2))
		Expect(members).To(HaveKeyWithValue("registry:entity:1", []string{"node:1"}))
		Expect(members["registry:entity:2"]).To(BeEmpty())
	})

	It("expires cached values", func() {
		// ARRANGE
		Expect(client.SetKey(ctx, "node:1", "x")).To(Succeed())

		// ACT
		mr.FastForward(31 * time.Second)

		// ASSERT
		_, found, err := client.GetKey(ctx, "node:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("namespaces keys with a prefix but keeps registry members unprefixed", func() {
		// ARRANGE
		scoped := client.WithPrefix("tenant-a:")

		// ACT
		Expect(scoped.SetWithRegistry(ctx, "node:1", "x", []string{"registry:entity:1"})).To(Succeed())

		// ASSERT
		Expect(mr.Exists("tenant-a:node:1")).To(BeTrue())
		Expect(mr.Exists("node:1")).To(BeFalse())
		Expect(mr.IsMember("tenant-a:registry:entity:1", "node:1")).To(BeTrue())

		exists, err := scoped.Exists(ctx, "node:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("invalidates keys and flushes by prefix", func() {
		// ARRANGE
		Expect(client.SetKey(ctx, "node:1", "x")).To(Succeed())
		Expect(client.SetKey(ctx, "node:2", "y")).To(Succeed())
		Expect(client.SetKey(ctx, "query:abc", "z")).To(Succeed())

		// ACT
		Expect(client.InvalidateEntity(ctx, []string{"node:1"})).To(Succeed())
		Expect(client.FlushByPrefix(ctx, "query:")).To(Succeed())

		// ASSERT
		Expect(mr.Keys()).To(ConsistOf("node:2"))
	})

	It("health checks the server", func() {
		Expect(client.HealthCheck(ctx)).To(Succeed())

		mr.Close()

		Expect(client.HealthCheck(ctx)).NotTo(Succeed())
	})
})
