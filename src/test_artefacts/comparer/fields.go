package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nodegraph/src/domain/entities"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// RecordsByID ignora a ordem ao comparar listas de registros.
func RecordsByID() cmp.Option {
	return cmpopts.SortSlices(func(x, y entities.Record) bool {
		return x.Metadata.GlobalID < y.Metadata.GlobalID
	})
}

// EmptyProps trata props nil e vazias como iguais.
func EmptyProps() cmp.Option {
	return cmpopts.EquateEmpty()
}
