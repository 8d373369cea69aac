package nodes

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

const endpointFetchConcurrency = 8

// EdgeClass is a Class whose instances connect a source node to a target node.
type EdgeClass struct {
	*Class
}

// BaseEdge is the generic edge. Its queries see edges of every edge class.
var BaseEdge = defineBaseEdge()

func defineBaseEdge() *EdgeClass {
	c := newClass("Edge", nil)
	c.edge = true
	c.generic = true
	registerClass(c)
	return &EdgeClass{Class: c}
}

func DefineEdge(name string, opts ...ClassOption) *EdgeClass {
	c := newClass(name, nil, opts...)
	c.edge = true
	registerClass(c)
	return &EdgeClass{Class: c}
}

// CreateBetweenNodes persists an edge from source to target. The "role" prop defaults to "".
func (ec *EdgeClass) CreateBetweenNodes(ctx context.Context, vc domain.ViewerContext, source *Node, target *Node, props entities.Props, cache Cache) (*Node, error) {
	if source == nil || target == nil || source.ID() == "" || target.ID() == "" {
		return nil, &domain.CreationError{ClassName: ec.name, Err: errors.New("edge endpoints must exist")}
	}

	edgeProps := props.Clone()
	if _, ok := edgeProps["role"]; !ok {
		edgeProps["role"] = ""
	}

	overrides := &entities.Metadata{
		SourceID:        source.ID(),
		SourceClassName: source.ClassName(),
		TargetID:        target.ID(),
		TargetClassName: target.ClassName(),
	}

	return ec.CreateUnattached(ctx, vc, edgeProps, overrides, cache)
}

// QueryTargetInstances returns the distinct targets of edges leaving sourceID, in edge order.
// Edges must match edgePropsFilter and targets must match propsFilter.
func (ec *EdgeClass) QueryTargetInstances(ctx context.Context, vc domain.ViewerContext, targetClass *Class, sourceID string, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	return ec.targetInstances(ctx, vc, targetClass, domain.MetadataFilter{
		entities.FieldSourceID:        sourceID,
		entities.FieldTargetClassName: targetClass.Name(),
	}, propsFilter, edgePropsFilter, cache)
}

func (ec *EdgeClass) targetInstances(ctx context.Context, vc domain.ViewerContext, targetClass *Class, edgeFilter domain.MetadataFilter, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	edges, err := ec.Query(ctx, vc, edgeFilter, edgePropsFilter, nil, cache)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.TargetID())
	}

	return resolveEndpoints(ctx, vc, targetClass, ids, propsFilter, cache)
}

// QuerySourceInstances mirrors QueryTargetInstances for edges arriving at targetID.
func (ec *EdgeClass) QuerySourceInstances(ctx context.Context, vc domain.ViewerContext, sourceClass *Class, targetID string, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	return ec.sourceInstances(ctx, vc, sourceClass, domain.MetadataFilter{
		entities.FieldTargetID:        targetID,
		entities.FieldSourceClassName: sourceClass.Name(),
	}, propsFilter, edgePropsFilter, cache)
}

func (ec *EdgeClass) sourceInstances(ctx context.Context, vc domain.ViewerContext, sourceClass *Class, edgeFilter domain.MetadataFilter, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	edges, err := ec.Query(ctx, vc, edgeFilter, edgePropsFilter, nil, cache)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.SourceID())
	}

	return resolveEndpoints(ctx, vc, sourceClass, ids, propsFilter, cache)
}

// QuerySourceEdgesForNode returns the edges pointing at n.
func (ec *EdgeClass) QuerySourceEdgesForNode(ctx context.Context, n *Node, cache Cache) ([]*Node, error) {
	return ec.Query(ctx, n.vc, domain.MetadataFilter{entities.FieldTargetID: n.ID()}, nil, nil, cache)
}

// QueryTargetEdgesForNode returns the edges leaving n.
func (ec *EdgeClass) QueryTargetEdgesForNode(ctx context.Context, n *Node, cache Cache) ([]*Node, error) {
	return ec.Query(ctx, n.vc, domain.MetadataFilter{entities.FieldSourceID: n.ID()}, nil, nil, cache)
}

func resolveEndpoints(ctx context.Context, vc domain.ViewerContext, class *Class, ids []string, propsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	pf, err := propsFilter.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%s.resolveEndpoints - %w", class.name, err)
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found := make([]*Node, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(endpointFetchConcurrency)
	for i, id := range unique {
		g.Go(func() error {
			n, err := class.Find(gctx, vc, id, cache)
			if err != nil {
				return err
			}
			found[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*Node, 0, len(found))
	for _, n := range found {
		// endpoints deleted behind our back are skipped
		if n == nil || !domain.MatchesProps(n.props, pf) {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}
