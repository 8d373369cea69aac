package nodes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/nodes"
)

var _ = Describe("Node", func() {
	var task *nodes.Node

	BeforeEach(func() {
		var err error
		task, err = Task.CreateUnattached(ctx, viewer, entities.Props{"title": "ship it", "meta": map[string]any{"a": 1}}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("props", func() {
		It("is clean right after creation", func() {
			Expect(task.IsDirty()).To(BeFalse())
		})

		It("tracks unsaved changes until Save", func() {
			// ACT
			Expect(task.Set("title", "ship it now")).To(Succeed())

			// ASSERT
			Expect(task.IsDirty()).To(BeTrue())

			_, err := task.Save(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.IsDirty()).To(BeFalse())

			found, err := Task.Find(ctx, viewer, task.ID(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Get("title")).To(Equal("ship it now"))
		})

		It("does not leak internal state through Props", func() {
			// ACT
			props := task.Props()
			props["title"] = "tampered"
			props["meta"].(map[string]any)["a"] = 99

			// ASSERT
			Expect(task.Get("title")).To(Equal("ship it"))
			Expect(task.Get("meta")).To(Equal(map[string]any{"a": float64(1)}))
			Expect(task.IsDirty()).To(BeFalse())
		})

		It("SetProps merges and ReplaceProps swaps", func() {
			// ACT
			Expect(task.SetProps(entities.Props{"owner": "bob"})).To(Succeed())

			// ASSERT
			Expect(task.Props()).To(HaveKey("title"))
			Expect(task.Props()).To(HaveKeyWithValue("owner", "bob"))

			// ACT
			Expect(task.ReplaceProps(entities.Props{"only": true})).To(Succeed())

			// ASSERT
			Expect(task.Props()).To(Equal(entities.Props{"only": true}))
		})

		It("Load discards unsaved changes", func() {
			// ARRANGE
			Expect(task.Set("title", "draft")).To(Succeed())

			// ACT
			err := task.Load(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Get("title")).To(Equal("ship it"))
			Expect(task.IsDirty()).To(BeFalse())
		})

		It("last write wins between two instances", func() {
			// ARRANGE
			other, err := Task.Find(ctx, viewer, task.ID(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Set("title", "first")).To(Succeed())
			Expect(other.Set("title", "second")).To(Succeed())

			// ACT
			_, err1 := task.Save(ctx)
			_, err2 := other.Save(ctx)

			// ASSERT
			Expect(err1).NotTo(HaveOccurred())
			Expect(err2).NotTo(HaveOccurred())
			Expect(task.Load(ctx)).To(Succeed())
			Expect(task.Get("title")).To(Equal("second"))
		})
	})

	Context("representation", func() {
		It("exposes id and typename next to props", func() {
			out := task.ToExternalRepresentation()

			Expect(out).To(HaveKeyWithValue("id", task.ID()))
			Expect(out).To(HaveKeyWithValue("__typename", "Task"))
			Expect(out).To(HaveKeyWithValue("title", "ship it"))
		})

		It("prints class, id and owner", func() {
			Expect(task.String()).To(Equal("Task#" + task.ID() + "⚡owner-1"))
		})
	})
})

var _ = Describe("Model", func() {
	It("creates and decodes typed props", func() {
		// ACT
		n, err := Person.Create(ctx, viewer, PersonProps{Name: "Carol", Email: "carol@example.com", Age: 41}, nil)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := Person.PropsOf(n)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(PersonProps{Name: "Carol", Email: "carol@example.com", Age: 41}))
		Expect(n.Get("age")).To(Equal(float64(41)))
	})

	It("writes typed props back", func() {
		// ARRANGE
		n, _ := Person.Create(ctx, viewer, PersonProps{Name: "Dan"}, nil)

		// ACT
		Expect(nodes.SetTypedProps(n, PersonProps{Name: "Dan", Age: 7})).To(Succeed())
		_, err := n.Save(ctx)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(n.IsDirty()).To(BeFalse())

		found, err := Person.Query(ctx, viewer, nil, domain.PropsFilter{"age": 7}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(1))
		Expect(found[0].ID()).To(Equal(n.ID()))
	})
})
