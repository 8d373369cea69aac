package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nodegraph/src/domain"
	"nodegraph/src/nodes"
)

var ErrDuplicateOrg = errors.New("an org with this name already exists")

type OrgProps struct {
	Name    string `json:"name"`
	Domain  string `json:"domain,omitempty"`
	Country string `json:"country,omitempty"`
}

var Org = nodes.DefineModel[OrgProps]("Org", func(b *nodes.SpecBuilder) {
	b.LinkTo(nodes.ClassRef("Person")).In().Many().Edge(MemberOf).CascadeDelete(false).Named("members")
}, nodes.WithBeforeCreate(normalizeOrg), nodes.WithBeforeCreate(uniqueOrgName))

// normalizeOrg lower-cases the domain so lookups by domain are exact matches.
func normalizeOrg(_ context.Context, n *nodes.Node) error {
	d, ok := n.Get("domain").(string)
	if !ok || d == "" {
		return nil
	}
	return n.Set("domain", strings.ToLower(strings.TrimSpace(d)))
}

func uniqueOrgName(ctx context.Context, n *nodes.Node) error {
	name, _ := n.Get("name").(string)
	if strings.TrimSpace(name) == "" {
		return errors.New("org name is required")
	}

	existing, err := n.Class().Query(ctx, n.ViewerContext(), nil, domain.PropsFilter{"name": name}, nil, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateOrg, name)
	}
	return nil
}
