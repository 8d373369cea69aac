package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/repositories"
)

var ErrUnknownRelationship = errors.New("unknown relationship")

// CreateTargetNode creates a node of targetClass and links n to it. The two writes are not
// atomic: when the edge cannot be created the new target is deleted again.
func (n *Node) CreateTargetNode(ctx context.Context, targetClass *Class, props entities.Props, edgeClass *EdgeClass, edgeProps entities.Props, cache Cache) (*Node, error) {
	if edgeClass == nil {
		edgeClass = BaseEdge
	}

	// o cache só recebe o alvo depois que a aresta existir
	target, err := targetClass.CreateUnattached(ctx, n.vc, props, nil, nil)
	if err != nil {
		return nil, err
	}

	if _, err := edgeClass.CreateBetweenNodes(ctx, n.vc, n, target, edgeProps, cache); err != nil {
		return nil, fmt.Errorf("%s.CreateTargetNode - %w", n.class.name, compensate(ctx, target, err))
	}

	cacheSet(cache, target)
	return target, nil
}

// createSourceNode is CreateTargetNode for IN relationships: the new node points at n.
func (n *Node) createSourceNode(ctx context.Context, sourceClass *Class, props entities.Props, edgeClass *EdgeClass, edgeProps entities.Props, cache Cache) (*Node, error) {
	source, err := sourceClass.CreateUnattached(ctx, n.vc, props, nil, nil)
	if err != nil {
		return nil, err
	}

	if _, err := edgeClass.CreateBetweenNodes(ctx, n.vc, source, n, edgeProps, cache); err != nil {
		return nil, fmt.Errorf("%s.createSourceNode - %w", n.class.name, compensate(ctx, source, err))
	}

	cacheSet(cache, source)
	return source, nil
}

func compensate(ctx context.Context, orphan *Node, cause error) error {
	adapter, err := repositories.ActiveAdapter()
	if err == nil {
		_, err = adapter.Delete(ctx, orphan.ID())
	}
	if err != nil {
		slog.Error("Failed to remove orphan node after edge creation failure",
			"node", orphan.String(),
			"error", err)
		return errors.Join(cause, err)
	}
	return cause
}

// QueryTargets follows edges of any class leaving n.
func (n *Node) QueryTargets(ctx context.Context, targetClass *Class, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	return BaseEdge.QueryTargetInstances(ctx, n.vc, targetClass, n.ID(), propsFilter, edgePropsFilter, cache)
}

// QuerySources follows edges of any class arriving at n.
func (n *Node) QuerySources(ctx context.Context, sourceClass *Class, propsFilter domain.PropsFilter, edgePropsFilter domain.PropsFilter, cache Cache) ([]*Node, error) {
	return BaseEdge.QuerySourceInstances(ctx, n.vc, sourceClass, n.ID(), propsFilter, edgePropsFilter, cache)
}

// QueryDescendants walks outgoing edges up to depth hops and returns nodes of targetClass.
func (n *Node) QueryDescendants(ctx context.Context, targetClass *Class, depth int, cache Cache) ([]*Node, error) {
	traverser, err := activeTraverser()
	if err != nil {
		return nil, fmt.Errorf("%s.QueryDescendants - %w", n.class.name, err)
	}

	records, err := traverser.QueryDescendantsByClassName(ctx, n.ID(), targetClass.Name(), depth)
	if err != nil {
		return nil, fmt.Errorf("%s.QueryDescendants - %w", n.class.name, asAdapterError("Adapter.QueryDescendantsByClassName", err))
	}
	return targetClass.materialize(n.vc, records, cache), nil
}

// QueryAncestors walks incoming edges up to depth hops and returns nodes of sourceClass.
func (n *Node) QueryAncestors(ctx context.Context, sourceClass *Class, depth int, cache Cache) ([]*Node, error) {
	traverser, err := activeTraverser()
	if err != nil {
		return nil, fmt.Errorf("%s.QueryAncestors - %w", n.class.name, err)
	}

	records, err := traverser.QueryAncestorsByClassName(ctx, n.ID(), sourceClass.Name(), depth)
	if err != nil {
		return nil, fmt.Errorf("%s.QueryAncestors - %w", n.class.name, asAdapterError("Adapter.QueryAncestorsByClassName", err))
	}
	return sourceClass.materialize(n.vc, records, cache), nil
}

func activeTraverser() (repositories.Traverser, error) {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, err
	}

	traverser, ok := adapter.(repositories.Traverser)
	if !ok {
		return nil, domain.ErrNotImplemented
	}
	return traverser, nil
}

// Related returns the nodes reachable through the named relationship.
func (n *Node) Related(ctx context.Context, name string, cache Cache) ([]*Node, error) {
	spec, ok := n.class.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("%s.Related - %q: %w", n.class.name, name, ErrUnknownRelationship)
	}
	return n.relatedBySpec(ctx, spec, cache)
}

// RelatedOne is Related for ONE relationships; it returns nil when nothing is linked.
func (n *Node) RelatedOne(ctx context.Context, name string, cache Cache) (*Node, error) {
	related, err := n.Related(ctx, name, cache)
	if err != nil || len(related) == 0 {
		return nil, err
	}
	return related[0], nil
}

// CreateRelated creates a node on the other side of the named relationship and links it
// with the relationship's edge class, respecting its direction.
func (n *Node) CreateRelated(ctx context.Context, name string, props entities.Props, edgeProps entities.Props, cache Cache) (*Node, error) {
	spec, ok := n.class.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("%s.CreateRelated - %q: %w", n.class.name, name, ErrUnknownRelationship)
	}

	if spec.Direction == In {
		return n.createSourceNode(ctx, spec.TargetClass(), props, spec.Edge(), edgeProps, cache)
	}
	return n.CreateTargetNode(ctx, spec.TargetClass(), props, spec.Edge(), edgeProps, cache)
}

// Link connects n to an existing node through the named relationship.
func (n *Node) Link(ctx context.Context, name string, other *Node, edgeProps entities.Props, cache Cache) (*Node, error) {
	spec, ok := n.class.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("%s.Link - %q: %w", n.class.name, name, ErrUnknownRelationship)
	}

	if spec.Direction == In {
		return spec.Edge().CreateBetweenNodes(ctx, n.vc, other, n, edgeProps, cache)
	}
	return spec.Edge().CreateBetweenNodes(ctx, n.vc, n, other, edgeProps, cache)
}

// Unlink removes the edges of the named relationship. With deleteNode the related nodes are
// deleted too, cascading as usual. It returns how many edges were removed.
func (n *Node) Unlink(ctx context.Context, name string, deleteNode bool) (int, error) {
	spec, ok := n.class.Relationship(name)
	if !ok {
		return 0, fmt.Errorf("%s.Unlink - %q: %w", n.class.name, name, ErrUnknownRelationship)
	}

	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return 0, fmt.Errorf("%s.Unlink - %w", n.class.name, err)
	}

	edges, err := n.edgesBySpec(ctx, spec)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, edge := range edges {
		deleted, err := adapter.Delete(ctx, edge.ID())
		if err != nil {
			return removed, fmt.Errorf("%s.Unlink - %w", n.class.name, asAdapterError("Adapter.Delete", err))
		}
		if deleted {
			removed++
		}

		if !deleteNode {
			continue
		}

		otherID := edge.TargetID()
		if spec.Direction == In {
			otherID = edge.SourceID()
		}
		other, err := spec.TargetClass().Find(ctx, n.vc, otherID, nil)
		if err != nil {
			return removed, err
		}
		if other != nil {
			if _, err := other.Delete(ctx); err != nil {
				return removed, err
			}
		}
	}

	return removed, nil
}

func (n *Node) relatedBySpec(ctx context.Context, spec RelationshipSpec, cache Cache) ([]*Node, error) {
	if spec.Direction == In {
		return spec.Edge().sourceInstances(ctx, n.vc, spec.TargetClass(), spec.edgeFilter(domain.MetadataFilter{
			entities.FieldTargetID:        n.ID(),
			entities.FieldSourceClassName: spec.TargetClass().Name(),
		}), nil, nil, cache)
	}
	return spec.Edge().targetInstances(ctx, n.vc, spec.TargetClass(), spec.edgeFilter(domain.MetadataFilter{
		entities.FieldSourceID:        n.ID(),
		entities.FieldTargetClassName: spec.TargetClass().Name(),
	}), nil, nil, cache)
}

func (n *Node) edgesBySpec(ctx context.Context, spec RelationshipSpec) ([]*Node, error) {
	mf := domain.MetadataFilter{
		entities.FieldSourceID:        n.ID(),
		entities.FieldTargetClassName: spec.TargetClass().Name(),
	}
	if spec.Direction == In {
		mf = domain.MetadataFilter{
			entities.FieldTargetID:        n.ID(),
			entities.FieldSourceClassName: spec.TargetClass().Name(),
		}
	}
	return spec.Edge().Query(ctx, n.vc, spec.edgeFilter(mf), nil, nil, nil)
}
