package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faker/faker/v4"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/models"
)

var (
	roles    = []string{"admin", "member", "viewer", "billing"}
	jobKinds = []string{"send-welcome-email", "rebuild-avatar", "export-org"}
)

// Seeder cria um grafo realista de Orgs, Persons e Comments através dos models.
type Seeder struct {
	vc                domain.ViewerContext
	peoplePerOrg      int
	commentsPerPerson int
}

func NewSeeder(vc domain.ViewerContext, peoplePerOrg int, commentsPerPerson int) *Seeder {
	return &Seeder{vc: vc, peoplePerOrg: peoplePerOrg, commentsPerPerson: commentsPerPerson}
}

// SeedOrg creates one org, its people with their avatars and comments.
// idx keeps org names unique across workers.
func (s *Seeder) SeedOrg(ctx context.Context, idx int) error {
	org, err := models.Org.Create(ctx, s.vc, models.OrgProps{
		Name:    fmt.Sprintf("%s %s #%d", faker.LastName(), faker.Word(), idx),
		Domain:  strings.ToLower(faker.DomainName()),
		Country: faker.GetRealAddress().State,
	}, nil)
	if err != nil {
		return err
	}

	for i := 0; i < s.peoplePerOrg; i++ {
		person, err := models.Person.Create(ctx, s.vc, models.PersonProps{
			Name:  faker.Name(),
			Email: faker.Email(),
			Title: faker.Word(),
		}, nil)
		if err != nil {
			return err
		}

		if _, err := person.Link(ctx, "orgs", org, entities.Props{"role": roles[i%len(roles)]}, nil); err != nil {
			return err
		}

		if _, err := person.CreateRelated(ctx, "avatar", entities.Props{
			"url":         faker.URL(),
			"contentType": "image/png",
		}, nil, nil); err != nil {
			return err
		}

		for c := 0; c < s.commentsPerPerson; c++ {
			if _, err := person.CreateRelated(ctx, "comments", entities.Props{"text": faker.Sentence()}, nil, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedJobs enqueues n pending jobs and returns how many were stored.
func (s *Seeder) SeedJobs(ctx context.Context, n int) (int, error) {
	queue := models.NewJobs(s.vc, "seed")

	for i := 0; i < n; i++ {
		payload := map[string]any{"requestId": faker.UUIDHyphenated()}
		if _, err := queue.Enqueue(ctx, jobKinds[i%len(jobKinds)], payload); err != nil {
			return i, err
		}
	}
	return n, nil
}
