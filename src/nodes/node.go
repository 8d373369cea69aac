package nodes

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/repositories"
)

// Node is a persisted entity. Edges are nodes whose metadata carries source and target.
// A Node is not safe for concurrent mutation.
type Node struct {
	class      *Class
	vc         domain.ViewerContext
	metadata   entities.Metadata
	props      entities.Props
	savedProps entities.Props
}

func (n *Node) ID() string {
	return n.metadata.GlobalID
}

func (n *Node) Class() *Class {
	return n.class
}

func (n *Node) ClassName() string {
	return n.metadata.ClassName
}

func (n *Node) Metadata() entities.Metadata {
	return n.metadata
}

func (n *Node) ViewerContext() domain.ViewerContext {
	return n.vc
}

// Props returns a copy; use Set or SetProps to change the node.
func (n *Node) Props() entities.Props {
	return n.props.Clone()
}

func (n *Node) Get(key string) any {
	return n.props[key]
}

func (n *Node) Set(key string, value any) error {
	return n.SetProps(entities.Props{key: value})
}

// SetProps merges partial into the current props. Nothing is persisted until Save.
func (n *Node) SetProps(partial entities.Props) error {
	normalized, err := entities.NormalizeProps(partial)
	if err != nil {
		return fmt.Errorf("Node.SetProps - %w", err)
	}
	n.props = n.props.Merge(normalized)
	return nil
}

// ReplaceProps swaps the whole property bag.
func (n *Node) ReplaceProps(props entities.Props) error {
	normalized, err := entities.NormalizeProps(props)
	if err != nil {
		return fmt.Errorf("Node.ReplaceProps - %w", err)
	}
	n.props = normalized
	return nil
}

// IsDirty reports whether props changed since the last load or save.
func (n *Node) IsDirty() bool {
	return !cmp.Equal(n.props, n.savedProps, cmpopts.EquateEmpty())
}

func (n *Node) IsEdge() bool {
	return n.metadata.IsEdge()
}

func (n *Node) SourceID() string {
	return n.metadata.SourceID
}

func (n *Node) SourceClassName() string {
	return n.metadata.SourceClassName
}

func (n *Node) TargetID() string {
	return n.metadata.TargetID
}

func (n *Node) TargetClassName() string {
	return n.metadata.TargetClassName
}

// Role is the label of an edge.
func (n *Node) Role() string {
	return n.props.GetString("role")
}

// Save overwrites the stored record with the in-memory state. Last write wins.
func (n *Node) Save(ctx context.Context) (*Node, error) {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return nil, fmt.Errorf("%s.Save - %w", n.class.name, err)
	}

	if err := adapter.Save(ctx, n.record()); err != nil {
		return nil, fmt.Errorf("%s.Save - %w", n.class.name, asAdapterError("Adapter.Save", err))
	}

	n.savedProps = n.props.Clone()
	return n, nil
}

// Load re-reads metadata and props from the adapter, discarding unsaved changes.
func (n *Node) Load(ctx context.Context) error {
	adapter, err := repositories.ActiveAdapter()
	if err != nil {
		return fmt.Errorf("%s.Load - %w", n.class.name, err)
	}

	rec, err := adapter.FindByID(ctx, n.metadata.ClassName, n.ID())
	if err != nil {
		return fmt.Errorf("%s.Load - %w", n.class.name, err)
	}

	n.metadata = rec.Metadata
	n.props = rec.Props
	if n.props == nil {
		n.props = entities.Props{}
	}
	n.savedProps = n.props.Clone()
	return nil
}

// ToExternalRepresentation is the shape handed to schema/presentation layers.
func (n *Node) ToExternalRepresentation() map[string]any {
	out := make(map[string]any, len(n.props)+2)
	for k, v := range n.props.Clone() {
		out[k] = v
	}
	out["id"] = n.ID()
	out["__typename"] = n.metadata.ClassName
	return out
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%s⚡%s", n.metadata.ClassName, n.metadata.GlobalID, n.metadata.OwnerID)
}

func (n *Node) record() entities.Record {
	return entities.Record{
		Metadata: n.metadata,
		Props:    n.props.Clone(),
	}
}
