package entities

// Nomes canônicos dos campos de metadata, usados nos filtros e nas colunas do banco.
const (
	FieldGlobalID        = "global_id"
	FieldOwnerID         = "owner_id"
	FieldClassName       = "class_name"
	FieldSortValue       = "sort_value"
	FieldSourceID        = "source_id"
	FieldSourceClassName = "source_class_name"
	FieldTargetID        = "target_id"
	FieldTargetClassName = "target_class_name"
)

// Metadata is the identity block attached to every node and edge.
// The Source*/Target* fields are only populated for edges.
type Metadata struct {
	GlobalID        string `json:"global_id"`
	OwnerID         string `json:"owner_id"`
	ClassName       string `json:"class_name"`
	SortValue       int64  `json:"sort_value"`
	SourceID        string `json:"source_id,omitempty"`
	SourceClassName string `json:"source_class_name,omitempty"`
	TargetID        string `json:"target_id,omitempty"`
	TargetClassName string `json:"target_class_name,omitempty"`
}

func (m Metadata) IsEdge() bool {
	return m.SourceID != "" && m.TargetID != ""
}

// Field returns the value stored under a canonical field name. Unknown names report false.
func (m Metadata) Field(name string) (any, bool) {
	switch name {
	case FieldGlobalID:
		return m.GlobalID, true
	case FieldOwnerID:
		return m.OwnerID, true
	case FieldClassName:
		return m.ClassName, true
	case FieldSortValue:
		return m.SortValue, true
	case FieldSourceID:
		return m.SourceID, true
	case FieldSourceClassName:
		return m.SourceClassName, true
	case FieldTargetID:
		return m.TargetID, true
	case FieldTargetClassName:
		return m.TargetClassName, true
	}
	return nil, false
}

// WithOverrides returns a copy of m where every non-zero field of o wins.
func (m Metadata) WithOverrides(o Metadata) Metadata {
	if o.GlobalID != "" {
		m.GlobalID = o.GlobalID
	}
	if o.OwnerID != "" {
		m.OwnerID = o.OwnerID
	}
	if o.ClassName != "" {
		m.ClassName = o.ClassName
	}
	if o.SortValue != 0 {
		m.SortValue = o.SortValue
	}
	if o.SourceID != "" {
		m.SourceID = o.SourceID
	}
	if o.SourceClassName != "" {
		m.SourceClassName = o.SourceClassName
	}
	if o.TargetID != "" {
		m.TargetID = o.TargetID
	}
	if o.TargetClassName != "" {
		m.TargetClassName = o.TargetClassName
	}
	return m
}
