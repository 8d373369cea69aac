package test_seeder

import (
	"context"
	"encoding/json"
	"fmt"

	"nodegraph/src/domain/entities"
)

// InsertRecord writes a record straight into the nodes table, bypassing the adapter.
func (ts TestSeeder) InsertRecord(ctx context.Context, rec entities.Record) {
	propsJSON, err := json.Marshal(rec.Props)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRecord failed to marshal props: %v", err))
	}

	query := `
		INSERT INTO nodes (global_id, owner_id, class_name, sort_value, source_id, source_class_name, target_id, target_class_name, props)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)`

	_, err = ts.pool.Exec(ctx, query,
		rec.Metadata.GlobalID,
		rec.Metadata.OwnerID,
		rec.Metadata.ClassName,
		rec.Metadata.SortValue,
		rec.Metadata.SourceID,
		rec.Metadata.SourceClassName,
		rec.Metadata.TargetID,
		rec.Metadata.TargetClassName,
		propsJSON,
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRecord failed: %v", err))
	}
}
