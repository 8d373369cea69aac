package repositories

import (
	"context"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

type walkDirection int

const (
	walkDescendants walkDirection = iota
	walkAncestors
)

type recordQuerier func(ctx context.Context, mf domain.MetadataFilter) ([]entities.Record, error)

// walkGraph does a breadth first walk over edges starting at startID and returns the endpoint
// records whose class is className, in discovery order. Every node is expanded at most once.
func walkGraph(ctx context.Context, query recordQuerier, startID string, className string, depth int, direction walkDirection) ([]entities.Record, error) {
	if depth <= 0 {
		depth = DefaultTraversalDepth
	}

	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	results := make([]entities.Record, 0)

	for level := 0; level < depth && len(frontier) > 0; level++ {
		next := make([]string, 0)

		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			mf := domain.MetadataFilter{entities.FieldSourceID: id}
			if direction == walkAncestors {
				mf = domain.MetadataFilter{entities.FieldTargetID: id}
			}

			edges, err := query(ctx, mf)
			if err != nil {
				return nil, err
			}

			for _, edge := range edges {
				otherID, otherClass := edge.Metadata.TargetID, edge.Metadata.TargetClassName
				if direction == walkAncestors {
					otherID, otherClass = edge.Metadata.SourceID, edge.Metadata.SourceClassName
				}
				if visited[otherID] {
					continue
				}
				visited[otherID] = true
				next = append(next, otherID)

				if otherClass != className {
					continue
				}

				found, err := query(ctx, domain.MetadataFilter{entities.FieldGlobalID: otherID})
				if err != nil {
					return nil, err
				}
				results = append(results, found...)
			}
		}

		frontier = next
	}

	return results, nil
}
