package models_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/models"
	"nodegraph/src/nodes"
)

var _ = Describe("Org", func() {
	It("lower-cases the domain before persisting", func() {
		// ACT
		org, err := models.Org.Create(ctx, viewer, models.OrgProps{Name: "ACME", Domain: "  ACME.com "}, nil)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(org.Get("domain")).To(Equal("acme.com"))
	})

	It("refuses a second org with the same name", func() {
		// ARRANGE
		_, err := models.Org.Create(ctx, viewer, models.OrgProps{Name: "ACME"}, nil)
		Expect(err).NotTo(HaveOccurred())

		// ACT
		_, err = models.Org.Create(ctx, viewer, models.OrgProps{Name: "ACME"}, nil)

		// ASSERT
		Expect(errors.Is(err, domain.ErrCreation)).To(BeTrue())
		Expect(errors.Is(err, models.ErrDuplicateOrg)).To(BeTrue())
	})

	It("requires a name", func() {
		_, err := models.Org.Create(ctx, viewer, models.OrgProps{}, nil)

		Expect(errors.Is(err, domain.ErrCreation)).To(BeTrue())
	})
})

var _ = Describe("Person", func() {
	It("keeps orgs, removes comments and avatar on delete", func() {
		// ARRANGE
		cache := nodes.NewCache()
		alice, err := models.Person.Create(ctx, viewer, models.PersonProps{Name: "Alice"}, cache)
		Expect(err).NotTo(HaveOccurred())
		acme, err := alice.CreateRelated(ctx, "orgs", entities.Props{"name": "ACME"}, entities.Props{"role": "admin"}, cache)
		Expect(err).NotTo(HaveOccurred())
		comment, err := alice.CreateRelated(ctx, "comments", entities.Props{"text": "hello"}, nil, cache)
		Expect(err).NotTo(HaveOccurred())
		_, err = alice.CreateRelated(ctx, "avatar", entities.Props{"url": "https://example.com/alice.png"}, nil, cache)
		Expect(err).NotTo(HaveOccurred())

		author, err := comment.RelatedOne(ctx, "author", cache)
		Expect(err).NotTo(HaveOccurred())
		Expect(author).To(BeIdenticalTo(alice))

		// ACT
		_, err = alice.Delete(ctx)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		org, _ := models.Org.Find(ctx, viewer, acme.ID(), nil)
		Expect(org).NotTo(BeNil())
		avatars, _ := models.Avatar.Query(ctx, viewer, nil, nil, nil, nil)
		Expect(avatars).To(BeEmpty())
		comments, _ := models.Comment.Query(ctx, viewer, nil, nil, nil, nil)
		Expect(comments).To(BeEmpty())
	})

	It("refuses empty comments without leaving an edge behind", func() {
		// ARRANGE
		alice, _ := models.Person.Create(ctx, viewer, models.PersonProps{Name: "Alice"}, nil)

		// ACT
		_, err := alice.CreateRelated(ctx, "comments", entities.Props{"text": "  "}, nil, nil)

		// ASSERT
		Expect(errors.Is(err, domain.ErrCreation)).To(BeTrue())
		edges, _ := models.Authored.QueryTargetEdgesForNode(ctx, alice, nil)
		Expect(edges).To(BeEmpty())
	})
})

var _ = Describe("Jobs", func() {
	It("hands each pending job to exactly one worker", func() {
		// ARRANGE
		queue := models.NewJobs(viewer, "enqueuer")
		for i := range 20 {
			_, err := queue.Enqueue(ctx, "email", map[string]any{"n": i})
			Expect(err).NotTo(HaveOccurred())
		}

		var (
			mu      sync.Mutex
			claimed = map[string]string{}
			wg      sync.WaitGroup
		)

		// ACT
		for _, worker := range []string{"w1", "w2", "w3", "w4"} {
			wg.Add(1)
			go func(worker string) {
				defer GinkgoRecover()
				defer wg.Done()

				jobs := models.NewJobs(viewer, worker)
				for {
					job, err := jobs.ClaimNext(ctx, "email")
					Expect(err).NotTo(HaveOccurred())
					if job == nil {
						return
					}

					mu.Lock()
					_, dup := claimed[job.ID()]
					claimed[job.ID()] = worker
					mu.Unlock()
					Expect(dup).To(BeFalse())
				}
			}(worker)
		}
		wg.Wait()

		// ASSERT
		Expect(claimed).To(HaveLen(20))
		running, err := models.Job.Query(ctx, viewer, nil, domain.PropsFilter{"status": "running"}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(HaveLen(20))
	})

	It("claims the oldest job first and records the outcome", func() {
		// ARRANGE
		queue := models.NewJobs(viewer, "w1")
		first, _ := queue.Enqueue(ctx, "report", nil)
		_, _ = queue.Enqueue(ctx, "report", nil)
		_, _ = queue.Enqueue(ctx, "other", nil)

		// ACT
		job, err := queue.ClaimNext(ctx, "report")
		Expect(err).NotTo(HaveOccurred())
		Expect(queue.Complete(ctx, job)).To(Succeed())

		second, err := queue.ClaimNext(ctx, "report")
		Expect(err).NotTo(HaveOccurred())
		Expect(queue.Fail(ctx, second, errors.New("smtp down"))).To(Succeed())

		none, err := queue.ClaimNext(ctx, "report")

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeNil())
		Expect(job.ID()).To(Equal(first.ID()))

		props, err := models.Job.PropsOf(job)
		Expect(err).NotTo(HaveOccurred())
		Expect(props.Status).To(Equal(models.JobDone))
		Expect(props.Worker).To(Equal("w1"))
		Expect(props.ClaimedAt).NotTo(BeEmpty())

		Expect(second.Load(ctx)).To(Succeed())
		Expect(second.Get("status")).To(Equal("failed"))
		Expect(second.Get("error")).To(Equal("smtp down"))
	})
})
