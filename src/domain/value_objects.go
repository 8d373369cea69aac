package domain

import (
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"

	"nodegraph/src/domain/entities"
)

// ViewerContext identifies who is acting. The owner id is stamped into metadata, nothing more.
type ViewerContext interface {
	OwnerID() string
}

type Viewer struct {
	ownerID string
}

func NewViewer(ownerID string) Viewer {
	return Viewer{ownerID: ownerID}
}

func (v Viewer) OwnerID() string {
	return v.ownerID
}

// ############################################################
// ###################### FILTROS #############################
// ############################################################

// MetadataFilter keys are the canonical field names from entities (global_id, class_name, ...).
type MetadataFilter map[string]any

// PropsFilter matches props by exact equality of their JSON form.
type PropsFilter map[string]any

// With returns a copy of the filter with key set to value.
func (f MetadataFilter) With(key string, value any) MetadataFilter {
	out := make(MetadataFilter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}

// Normalize converts the filter values to their JSON form once, so matching can use plain equality.
func (f PropsFilter) Normalize() (PropsFilter, error) {
	if len(f) == 0 {
		return nil, nil
	}

	out := make(PropsFilter, len(f))
	for k, v := range f {
		normalized, err := entities.NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("PropsFilter.Normalize - invalid value for %s: %w", k, err)
		}
		out[k] = normalized
	}
	return out, nil
}

// MatchesRecord reports whether rec satisfies every key of both filters and, when ids is
// non-empty, whether its id is one of them. The props filter must already be normalized.
func MatchesRecord(rec entities.Record, mf MetadataFilter, pf PropsFilter, ids []string) bool {
	if len(ids) > 0 && !slices.Contains(ids, rec.Metadata.GlobalID) {
		return false
	}

	for key, expected := range mf {
		actual, ok := rec.Metadata.Field(key)
		if !ok || !metadataValueEquals(actual, expected) {
			return false
		}
	}

	return MatchesProps(rec.Props, pf)
}

func MatchesProps(props entities.Props, pf PropsFilter) bool {
	for key, expected := range pf {
		actual, ok := props[key]
		if !ok || !cmp.Equal(actual, expected) {
			return false
		}
	}
	return true
}

func metadataValueEquals(actual any, expected any) bool {
	switch a := actual.(type) {
	case int64:
		switch e := expected.(type) {
		case int64:
			return a == e
		case int:
			return a == int64(e)
		case int32:
			return a == int64(e)
		case float64:
			return float64(a) == e
		}
		return false
	case string:
		e, ok := expected.(string)
		return ok && a == e
	}
	return false
}
