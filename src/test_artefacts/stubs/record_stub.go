package stubs

import (
	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

type RecordStub struct {
	record entities.Record
}

func NewRecordStub() RecordStub {
	record := entities.Record{
		Metadata: entities.Metadata{
			GlobalID:  gofakeit.UUID(),
			OwnerID:   gofakeit.UUID(),
			ClassName: "Person",
			SortValue: domain.NextSortValue(),
		},
		Props: entities.Props{
			"name":  gofakeit.Name(),
			"email": gofakeit.Email(),
		},
	}

	return RecordStub{record: record}
}

func (rs RecordStub) WithID(id string) RecordStub {
	rs.record.Metadata.GlobalID = id
	return rs
}

func (rs RecordStub) WithOwnerID(ownerID string) RecordStub {
	rs.record.Metadata.OwnerID = ownerID
	return rs
}

func (rs RecordStub) WithClassName(className string) RecordStub {
	rs.record.Metadata.ClassName = className
	return rs
}

func (rs RecordStub) WithSortValue(sortValue int64) RecordStub {
	rs.record.Metadata.SortValue = sortValue
	return rs
}

// WithProps substitui todas as props; os valores passam pela normalização JSON.
func (rs RecordStub) WithProps(props map[string]any) RecordStub {
	normalized, err := entities.NormalizeProps(props)
	if err != nil {
		panic(err)
	}
	rs.record.Props = normalized
	return rs
}

func (rs RecordStub) Get() entities.Record {
	return rs.record.Clone()
}
