package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

// Model gives a class a typed property shape P. P is encoded through the JSON property bag,
// so filters and adapters keep working on plain maps.
type Model[P any] struct {
	*Class
}

func DefineModel[P any](name string, define func(b *SpecBuilder), opts ...ClassOption) Model[P] {
	return Model[P]{Class: DefineNode(name, define, opts...)}
}

func (m Model[P]) Create(ctx context.Context, vc domain.ViewerContext, props P, cache Cache) (*Node, error) {
	encoded, err := EncodeProps(props)
	if err != nil {
		return nil, &domain.CreationError{ClassName: m.name, Err: err}
	}
	return m.CreateUnattached(ctx, vc, encoded, nil, cache)
}

// PropsOf decodes the props of n into P.
func (m Model[P]) PropsOf(n *Node) (P, error) {
	return DecodeProps[P](n)
}

func EncodeProps[P any](props P) (entities.Props, error) {
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("EncodeProps - %w", err)
	}

	out := entities.Props{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("EncodeProps - props must encode as a JSON object: %w", err)
	}
	return out, nil
}

func DecodeProps[P any](n *Node) (P, error) {
	var out P

	raw, err := json.Marshal(n.props)
	if err != nil {
		return out, fmt.Errorf("DecodeProps - %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("DecodeProps - %s: %w", n.String(), err)
	}
	return out, nil
}

// SetTypedProps replaces the props of n with the encoding of props.
func SetTypedProps[P any](n *Node, props P) error {
	encoded, err := EncodeProps(props)
	if err != nil {
		return err
	}
	n.props = encoded
	return nil
}
