package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"nodegraph/src/repositories"
)

// Delete removes the node and reports whether it was stored.
//
// For regular nodes the delete cascades: for each strong relationship, in declaration order,
// related nodes are deleted first (targets for OUT, sources for IN), then every edge touching
// the node, then the node itself. Weak relationships only lose their edges. Deleting an edge
// never touches its endpoints.
func (n *Node) Delete(ctx context.Context) (bool, error) {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return false, fmt.Errorf("%s.Delete - %w", n.class.name, err)
	}

	if n.IsEdge() {
		deleted, err := adapter.Delete(ctx, n.ID())
		if err != nil {
			return false, fmt.Errorf("%s.Delete - %w", n.class.name, asAdapterError("Adapter.Delete", err))
		}
		return deleted, nil
	}

	return n.cascadeDelete(ctx, adapter, map[string]bool{})
}

func (n *Node) cascadeDelete(ctx context.Context, adapter repositories.Adapter, visited map[string]bool) (bool, error) {
	visited[n.ID()] = true

	for _, spec := range n.class.relationships {
		if spec.IsWeak {
			continue
		}

		related, err := n.relatedBySpec(ctx, spec, nil)
		if err != nil {
			return false, err
		}

		for _, other := range related {
			if visited[other.ID()] {
				continue
			}
			slog.Debug("Cascading delete", "from", n.String(), "to", other.String(), "relationship", spec.RelationName())
			if _, err := other.cascadeDelete(ctx, adapter, visited); err != nil {
				return false, err
			}
		}
	}

	if err := n.deleteTouchingEdges(ctx, adapter); err != nil {
		return false, err
	}

	deleted, err := adapter.Delete(ctx, n.ID())
	if err != nil {
		return false, fmt.Errorf("%s.Delete - %w", n.class.name, asAdapterError("Adapter.Delete", err))
	}
	return deleted, nil
}

func (n *Node) deleteTouchingEdges(ctx context.Context, adapter repositories.Adapter) error {
	outgoing, err := BaseEdge.QueryTargetEdgesForNode(ctx, n, nil)
	if err != nil {
		return err
	}
	incoming, err := BaseEdge.QuerySourceEdgesForNode(ctx, n, nil)
	if err != nil {
		return err
	}

	for _, edge := range append(outgoing, incoming...) {
		if _, err := adapter.Delete(ctx, edge.ID()); err != nil {
			return fmt.Errorf("%s.Delete - %w", n.class.name, asAdapterError("Adapter.Delete", err))
		}
	}
	return nil
}
