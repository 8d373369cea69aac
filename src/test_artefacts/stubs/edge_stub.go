package stubs

import (
	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

type EdgeStub struct {
	edge entities.Record
}

func NewEdgeStub() EdgeStub {
	edge := entities.Record{
		Metadata: entities.Metadata{
			GlobalID:        gofakeit.UUID(),
			OwnerID:         gofakeit.UUID(),
			ClassName:       "MemberOf",
			SortValue:       domain.NextSortValue(),
			SourceID:        gofakeit.UUID(),
			SourceClassName: "Person",
			TargetID:        gofakeit.UUID(),
			TargetClassName: "Org",
		},
		Props: entities.Props{"role": ""},
	}

	return EdgeStub{edge: edge}
}

// Between liga a aresta a dois registros existentes.
func (es EdgeStub) Between(source entities.Record, target entities.Record) EdgeStub {
	es.edge.Metadata.SourceID = source.Metadata.GlobalID
	es.edge.Metadata.SourceClassName = source.Metadata.ClassName
	es.edge.Metadata.TargetID = target.Metadata.GlobalID
	es.edge.Metadata.TargetClassName = target.Metadata.ClassName
	return es
}

func (es EdgeStub) WithClassName(className string) EdgeStub {
	es.edge.Metadata.ClassName = className
	return es
}

func (es EdgeStub) WithRole(role string) EdgeStub {
	es.edge.Props["role"] = role
	return es
}

func (es EdgeStub) Get() entities.Record {
	return es.edge.Clone()
}
