package nodes_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/nodes"
	"nodegraph/src/repositories"
)

var _ = Describe("Relationships", func() {
	Context("SpecBuilder", func() {
		It("keeps declaration order and the declared shape", func() {
			// ACT
			specs := Person.Relationships()

			// ASSERT
			Expect(specs).To(HaveLen(3))

			Expect(specs[0].RelationName()).To(Equal("orgs"))
			Expect(specs[0].Direction).To(Equal(nodes.Out))
			Expect(specs[0].IsMany).To(BeTrue())
			Expect(specs[0].IsWeak).To(BeTrue())
			Expect(specs[0].Edge()).To(BeIdenticalTo(MemberOf))
			Expect(specs[0].TargetClass()).To(BeIdenticalTo(Org))

			Expect(specs[1].RelationName()).To(Equal("comments"))
			Expect(specs[1].IsWeak).To(BeFalse())
			Expect(specs[1].Edge()).To(BeIdenticalTo(nodes.BaseEdge))

			Expect(specs[2].RelationName()).To(Equal("avatar"))
			Expect(specs[2].IsMany).To(BeFalse())
		})

		It("defaults to a strong outgoing relationship named after the target", func() {
			// ACT
			spec, ok := Profile.Relationship("avatar")
			Expect(ok).To(BeTrue())
			Expect(spec.Direction).To(Equal(nodes.Out))
			Expect(spec.IsMany).To(BeFalse())
			Expect(spec.IsWeak).To(BeFalse())
			Expect(spec.EdgeClass).To(BeNil())
		})

		It("panics when the target class was never defined", func() {
			Expect(func() { nodes.ClassRef("Unicorn").Resolve() }).To(Panic())
		})
	})

	Context("CreateTargetNode", func() {
		It("creates the target and the edge", func() {
			// ARRANGE
			alice, _ := Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, nil)

			// ACT
			comment, err := alice.CreateTargetNode(ctx, Comment, entities.Props{"text": "hi"}, nil, nil, nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.ClassName()).To(Equal("Comment"))

			edges, err := nodes.BaseEdge.QueryTargetEdgesForNode(ctx, alice, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(HaveLen(1))
			Expect(edges[0].TargetID()).To(Equal(comment.ID()))
			Expect(edges[0].ClassName()).To(Equal("Edge"))
		})

		It("removes the new target when the edge cannot be stored", func() {
			// ARRANGE
			store := failingEdgeAdapter{MemoryAdapter: repositories.NewMemoryAdapter(nil)}

			// ACT
			err := repositories.WithIsolatedAdapter(ctx, store, func(ctx context.Context) error {
				alice, err := Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, nil)
				Expect(err).NotTo(HaveOccurred())

				_, err = alice.CreateTargetNode(ctx, Comment, entities.Props{"text": "lost"}, nil, nil, nil)
				return err
			})

			// ASSERT
			Expect(errors.Is(err, domain.ErrAdapter)).To(BeTrue())

			comments, err := store.Query(ctx, domain.MetadataFilter{entities.FieldClassName: "Comment"}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(BeEmpty())
		})

		It("keeps the removed target out of the caller's cache", func() {
			// ARRANGE
			store := failingEdgeAdapter{MemoryAdapter: repositories.NewMemoryAdapter(nil)}
			cache := nodes.NewCache()

			// ACT
			err := repositories.WithIsolatedAdapter(ctx, store, func(ctx context.Context) error {
				alice, err := Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, cache)
				Expect(err).NotTo(HaveOccurred())

				_, err = alice.CreateRelated(ctx, "comments", entities.Props{"text": "lost"}, nil, cache)
				return err
			})

			// ASSERT
			Expect(err).To(HaveOccurred())
			Expect(cache.Len()).To(Equal(1))
		})
	})

	Context("named relationships", func() {
		var alice *nodes.Node

		BeforeEach(func() {
			var err error
			alice, err = Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("CreateRelated follows the declared edge class", func() {
			// ACT
			acme, err := alice.CreateRelated(ctx, "orgs", entities.Props{"name": "ACME"}, entities.Props{"role": "admin"}, nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			edges, _ := MemberOf.QueryTargetEdgesForNode(ctx, alice, nil)
			Expect(edges).To(HaveLen(1))
			Expect(edges[0].TargetID()).To(Equal(acme.ID()))
			Expect(edges[0].Role()).To(Equal("admin"))
		})

		It("CreateRelated on an incoming relationship points the new node at the owner", func() {
			// ARRANGE
			acme, _ := Org.CreateUnattached(ctx, viewer, entities.Props{"name": "ACME"}, nil, nil)

			// ACT
			bob, err := acme.CreateRelated(ctx, "members", entities.Props{"name": "Bob"}, nil, nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(bob.ClassName()).To(Equal("Person"))

			orgs, err := bob.Related(ctx, "orgs", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(orgs).To(HaveLen(1))
			Expect(orgs[0].ID()).To(Equal(acme.ID()))
		})

		It("Link and Related work in both directions", func() {
			// ARRANGE
			acme, _ := Org.CreateUnattached(ctx, viewer, entities.Props{"name": "ACME"}, nil, nil)

			// ACT
			_, err := alice.Link(ctx, "orgs", acme, nil, nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			members, err := acme.Related(ctx, "members", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(1))
			Expect(members[0].ID()).To(Equal(alice.ID()))
		})

		It("RelatedOne returns nil when nothing is linked", func() {
			// ACT
			avatar, err := alice.RelatedOne(ctx, "avatar", nil)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(avatar).To(BeNil())
		})

		It("rejects unknown relationship names", func() {
			// ACT
			_, err := alice.Related(ctx, "friends", nil)

			// ASSERT
			Expect(errors.Is(err, nodes.ErrUnknownRelationship)).To(BeTrue())
		})

		It("Unlink drops the edges and optionally the nodes", func() {
			// ARRANGE
			first, _ := alice.CreateRelated(ctx, "comments", entities.Props{"text": "one"}, nil, nil)
			second, _ := alice.CreateRelated(ctx, "comments", entities.Props{"text": "two"}, nil, nil)
			acme, _ := alice.CreateRelated(ctx, "orgs", entities.Props{"name": "ACME"}, nil, nil)

			// ACT
			removedOrgs, err1 := alice.Unlink(ctx, "orgs", false)
			removedComments, err2 := alice.Unlink(ctx, "comments", true)

			// ASSERT
			Expect(err1).NotTo(HaveOccurred())
			Expect(err2).NotTo(HaveOccurred())
			Expect(removedOrgs).To(Equal(1))
			Expect(removedComments).To(Equal(2))

			stillThere, _ := Org.Find(ctx, viewer, acme.ID(), nil)
			Expect(stillThere).NotTo(BeNil())

			gone1, _ := Comment.Find(ctx, viewer, first.ID(), nil)
			gone2, _ := Comment.Find(ctx, viewer, second.ID(), nil)
			Expect(gone1).To(BeNil())
			Expect(gone2).To(BeNil())

			edges, _ := nodes.BaseEdge.QueryTargetEdgesForNode(ctx, alice, nil)
			Expect(edges).To(BeEmpty())
		})
	})

	Context("multi-hop traversal", func() {
		It("finds descendants and ancestors of a class", func() {
			// ARRANGE
			alice, _ := Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, nil)
			comment, _ := alice.CreateRelated(ctx, "comments", entities.Props{"text": "root"}, nil, nil)
			reply, _ := comment.CreateRelated(ctx, "replies", entities.Props{"text": "nested"}, nil, nil)

			// ACT
			replies, err1 := alice.QueryDescendants(ctx, Reply, 0, nil)
			authors, err2 := reply.QueryAncestors(ctx, Person.Class, 0, nil)
			tooShallow, err3 := alice.QueryDescendants(ctx, Reply, 1, nil)

			// ASSERT
			Expect(err1).NotTo(HaveOccurred())
			Expect(err2).NotTo(HaveOccurred())
			Expect(err3).NotTo(HaveOccurred())
			Expect(replies).To(HaveLen(1))
			Expect(replies[0].ID()).To(Equal(reply.ID()))
			Expect(authors).To(HaveLen(1))
			Expect(authors[0].ID()).To(Equal(alice.ID()))
			Expect(tooShallow).To(BeEmpty())
		})

		It("reports ErrNotImplemented for adapters that cannot traverse", func() {
			// ARRANGE
			plain := crudOnlyAdapter{inner: repositories.NewMemoryAdapter(nil)}

			// ACT
			err := repositories.WithIsolatedAdapter(ctx, plain, func(ctx context.Context) error {
				alice, err := Person.Create(ctx, viewer, PersonProps{Name: "Alice"}, nil)
				Expect(err).NotTo(HaveOccurred())
				_, err = alice.QueryDescendants(ctx, Reply, 0, nil)
				return err
			})

			// ASSERT
			Expect(errors.Is(err, domain.ErrNotImplemented)).To(BeTrue())
		})
	})
})
