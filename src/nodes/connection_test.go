package nodes_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/nodes"
)

var _ = Describe("Connection", func() {
	var created []*nodes.Node

	BeforeEach(func() {
		created = nil
		for _, title := range []string{"a", "b", "c", "d", "e"} {
			n, err := Task.CreateUnattached(ctx, viewer, entities.Props{"title": title, "kind": "page"}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			created = append(created, n)
		}
	})

	It("round-trips sort values through cursors", func() {
		cursor := nodes.SortValueToCursor(1717171717171717)

		sortValue, err := nodes.CursorToSortValue(cursor)

		Expect(err).NotTo(HaveOccurred())
		Expect(sortValue).To(Equal(int64(1717171717171717)))
	})

	It("rejects garbage cursors", func() {
		_, err1 := nodes.CursorToSortValue("%%%")
		_, err2 := nodes.CursorToSortValue("bm90LWEtbnVtYmVy") // "not-a-number"

		Expect(errors.Is(err1, nodes.ErrInvalidCursor)).To(BeTrue())
		Expect(errors.Is(err2, nodes.ErrInvalidCursor)).To(BeTrue())
	})

	It("pages forward with first and after", func() {
		// ACT
		page1, err := Task.Connection(ctx, viewer, nil, domain.PropsFilter{"kind": "page"}, nodes.ConnectionArgs{First: 2}, nil)
		Expect(err).NotTo(HaveOccurred())
		page2, err := Task.Connection(ctx, viewer, nil, domain.PropsFilter{"kind": "page"}, nodes.ConnectionArgs{First: 2, After: page1.PageInfo.EndCursor}, nil)
		Expect(err).NotTo(HaveOccurred())
		page3, err := Task.Connection(ctx, viewer, nil, domain.PropsFilter{"kind": "page"}, nodes.ConnectionArgs{First: 2, After: page2.PageInfo.EndCursor}, nil)
		Expect(err).NotTo(HaveOccurred())

		// ASSERT
		Expect(page1.Count).To(Equal(5))
		Expect(page1.PageInfo.HasNextPage).To(BeTrue())
		Expect(page1.Edges[0].Node.ID()).To(Equal(created[0].ID()))
		Expect(page1.Edges[1].Node.ID()).To(Equal(created[1].ID()))

		Expect(page2.Edges[0].Node.ID()).To(Equal(created[2].ID()))
		Expect(page2.PageInfo.HasNextPage).To(BeTrue())

		Expect(page3.Edges).To(HaveLen(1))
		Expect(page3.Edges[0].Node.ID()).To(Equal(created[4].ID()))
		Expect(page3.PageInfo.HasNextPage).To(BeFalse())
	})

	It("pages backward with last and before", func() {
		// ARRANGE
		before := nodes.SortValueToCursor(created[3].Metadata().SortValue)

		// ACT
		conn, err := Task.Connection(ctx, viewer, nil, nil, nodes.ConnectionArgs{Last: 2, Before: before}, nil)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.Count).To(Equal(3))
		Expect(conn.PageInfo.HasPreviousPage).To(BeTrue())
		Expect(conn.Edges).To(HaveLen(2))
		Expect(conn.Edges[0].Node.ID()).To(Equal(created[1].ID()))
		Expect(conn.Edges[1].Node.ID()).To(Equal(created[2].ID()))
		Expect(conn.PageInfo.StartCursor).To(Equal(conn.Edges[0].Cursor))
	})

	It("returns an empty page past the end", func() {
		// ARRANGE
		after := nodes.SortValueToCursor(created[4].Metadata().SortValue)

		// ACT
		conn, err := Task.Connection(ctx, viewer, nil, nil, nodes.ConnectionArgs{After: after}, nil)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.Edges).To(BeEmpty())
		Expect(conn.PageInfo.EndCursor).To(BeEmpty())
	})
})
