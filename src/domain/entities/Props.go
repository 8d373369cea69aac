package entities

import (
	"encoding/json"
	"fmt"
)

// Props é o "saco de propriedades" livre de um nó ou aresta.
// Valores são mantidos na forma JSON: números viram float64 e objetos map[string]any.
type Props map[string]any

// NormalizeProps converts arbitrary Go values to their JSON form so that values read back
// from any adapter compare equal to the ones held in memory.
func NormalizeProps(in map[string]any) (Props, error) {
	if len(in) == 0 {
		return Props{}, nil
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("NormalizeProps - failed to marshal props: %w", err)
	}

	out := Props{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("NormalizeProps - failed to unmarshal props: %w", err)
	}

	return out, nil
}

// NormalizeValue is NormalizeProps for a single value.
func NormalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}

	out := make(Props, len(p))
	for k, v := range p {
		out[k] = deepCopy(v)
	}
	return out
}

// Merge returns a copy of p with every key of patch applied on top.
func (p Props) Merge(patch Props) Props {
	out := p.Clone()
	for k, v := range patch {
		out[k] = deepCopy(v)
	}
	return out
}

func (p Props) GetString(key string) string {
	s, _ := p[key].(string)
	return s
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = deepCopy(inner)
		}
		return out
	case Props:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return v
	}
}
