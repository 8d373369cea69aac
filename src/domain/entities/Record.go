package entities

// Record é a forma serializada de um nó ou aresta que atravessa a fronteira do adapter.
type Record struct {
	Metadata Metadata `json:"metadata"`
	Props    Props    `json:"props"`
}

func (r Record) Clone() Record {
	return Record{
		Metadata: r.Metadata,
		Props:    r.Props.Clone(),
	}
}
