package domain_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

var _ = Describe("MatchesRecord", func() {
	var rec entities.Record

	BeforeEach(func() {
		props, err := entities.NormalizeProps(map[string]any{
			"name":  "Alice",
			"age":   30,
			"tags":  []string{"a", "b"},
			"inner": map[string]any{"x": 1},
		})
		Expect(err).ToNot(HaveOccurred())

		rec = entities.Record{
			Metadata: entities.Metadata{
				GlobalID:  "gid-1",
				OwnerID:   "owner-1",
				ClassName: "Person",
				SortValue: 42,
			},
			Props: props,
		}
	})

	When("filters are empty", func() {
		It("should match", func() {
			Expect(domain.MatchesRecord(rec, nil, nil, nil)).To(BeTrue())
		})
	})

	When("metadata filter uses canonical keys", func() {
		It("should match strings and sort values of any numeric type", func() {
			Expect(domain.MatchesRecord(rec, domain.MetadataFilter{"class_name": "Person"}, nil, nil)).To(BeTrue())
			Expect(domain.MatchesRecord(rec, domain.MetadataFilter{"sort_value": 42}, nil, nil)).To(BeTrue())
			Expect(domain.MatchesRecord(rec, domain.MetadataFilter{"sort_value": float64(42)}, nil, nil)).To(BeTrue())
			Expect(domain.MatchesRecord(rec, domain.MetadataFilter{"class_name": "Org"}, nil, nil)).To(BeFalse())
		})

		It("should never match unknown keys", func() {
			Expect(domain.MatchesRecord(rec, domain.MetadataFilter{"bogus": "Person"}, nil, nil)).To(BeFalse())
		})
	})

	When("props filter is normalized", func() {
		It("should compare nested values by their JSON form", func() {
			// ARRANGE
			pf, err := domain.PropsFilter{"age": 30, "tags": []string{"a", "b"}, "inner": map[string]int{"x": 1}}.Normalize()
			Expect(err).ToNot(HaveOccurred())

			// ACT
			matched := domain.MatchesRecord(rec, nil, pf, nil)

			// ASSERT
			Expect(matched).To(BeTrue())
		})

		It("should require every key", func() {
			pf, err := domain.PropsFilter{"name": "Alice", "missing": true}.Normalize()
			Expect(err).ToNot(HaveOccurred())

			Expect(domain.MatchesRecord(rec, nil, pf, nil)).To(BeFalse())
		})
	})

	When("an id list is given", func() {
		It("should require membership", func() {
			Expect(domain.MatchesRecord(rec, nil, nil, []string{"other", "gid-1"})).To(BeTrue())
			Expect(domain.MatchesRecord(rec, nil, nil, []string{"other"})).To(BeFalse())
		})
	})
})

var _ = Describe("NextSortValue", func() {
	It("should be strictly increasing even inside the same clock tick", func() {
		previous := domain.NextSortValue()
		for i := 0; i < 1000; i++ {
			next := domain.NextSortValue()
			Expect(next).To(BeNumerically(">", previous))
			previous = next
		}
	})
})

var _ = Describe("Errors", func() {
	It("should keep not found and adapter failures distinguishable", func() {
		notFound := fmt.Errorf("Class.FindOrFail - %w", &domain.NotFoundError{ClassName: "Person", ID: "x"})
		adapterErr := domain.NewAdapterError("MemoryAdapter.Create", errors.New("boom"))

		Expect(errors.Is(notFound, domain.ErrNotFound)).To(BeTrue())
		Expect(errors.Is(notFound, domain.ErrAdapter)).To(BeFalse())
		Expect(errors.Is(adapterErr, domain.ErrAdapter)).To(BeTrue())
		Expect(errors.Is(adapterErr, domain.ErrNotFound)).To(BeFalse())
	})

	It("should unwrap the hook failure from a creation error", func() {
		cause := errors.New("duplicate name")
		err := &domain.CreationError{ClassName: "Org", Err: cause}

		Expect(errors.Is(err, domain.ErrCreation)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})
