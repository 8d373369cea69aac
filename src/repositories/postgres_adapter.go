package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/infra/postgres"
)

var nodesSchema = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		global_id         TEXT PRIMARY KEY,
		owner_id          TEXT NOT NULL,
		class_name        TEXT NOT NULL,
		sort_value        BIGINT NOT NULL,
		source_id         TEXT NULL,
		source_class_name TEXT NULL,
		target_id         TEXT NULL,
		target_class_name TEXT NULL,
		props             JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_class_sort ON nodes (class_name, sort_value)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_source ON nodes (source_id) WHERE source_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_target ON nodes (target_id) WHERE target_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_props ON nodes USING GIN (props jsonb_path_ops)`,
}

const nodeColumns = `global_id, owner_id, class_name, sort_value, source_id, source_class_name, target_id, target_class_name, props`

// colunas aceitas nos filtros de metadata
var metadataColumns = map[string]string{
	entities.FieldGlobalID:        "global_id",
	entities.FieldOwnerID:         "owner_id",
	entities.FieldClassName:       "class_name",
	entities.FieldSortValue:       "sort_value",
	entities.FieldSourceID:        "source_id",
	entities.FieldSourceClassName: "source_class_name",
	entities.FieldTargetID:        "target_id",
	entities.FieldTargetClassName: "target_class_name",
}

// PostgresAdapter stores nodes and edges in a single `nodes` table. Reads go to the read pool,
// writes and claims to the write pool.
type PostgresAdapter struct {
	logger *slog.Logger
	client *postgres.ReadWriteClient
}

func NewPostgresAdapter(logger *slog.Logger, client *postgres.ReadWriteClient) *PostgresAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAdapter{logger: logger, client: client}
}

func (a *PostgresAdapter) Initialize(ctx context.Context) error {
	for _, statement := range nodesSchema {
		if _, err := a.client.GetWritePool().Exec(ctx, statement); err != nil {
			return domain.NewAdapterError("PostgresAdapter.Initialize", err)
		}
	}
	return nil
}

func (a *PostgresAdapter) Create(ctx context.Context, rec entities.Record) error {
	propsJSON, err := json.Marshal(rec.Props)
	if err != nil {
		return domain.NewAdapterError("PostgresAdapter.Create", fmt.Errorf("failed to marshal props: %w", err))
	}

	query := `
		INSERT INTO nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`

	m := rec.Metadata
	_, err = a.client.GetWritePool().Exec(ctx, query,
		m.GlobalID,
		m.OwnerID,
		m.ClassName,
		m.SortValue,
		postgres.NewNullString(&m.SourceID),
		postgres.NewNullString(&m.SourceClassName),
		postgres.NewNullString(&m.TargetID),
		postgres.NewNullString(&m.TargetClassName),
		string(propsJSON),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.NewAdapterError("PostgresAdapter.Create", fmt.Errorf("record %s already exists: %w", m.GlobalID, err))
		}
		return domain.NewAdapterError("PostgresAdapter.Create", err)
	}

	a.logger.Debug("PostgresAdapter.Create", "id", m.GlobalID, "class", m.ClassName)
	return nil
}

func (a *PostgresAdapter) FindByID(ctx context.Context, className string, id string) (entities.Record, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE global_id = $1`
	args := []any{id}
	if className != "" {
		query += ` AND class_name = $2`
		args = append(args, className)
	}

	rec, err := scanRecord(a.client.GetReadPool().QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return entities.Record{}, &domain.NotFoundError{ClassName: className, ID: id}
		}
		return entities.Record{}, domain.NewAdapterError("PostgresAdapter.FindByID", err)
	}
	return rec, nil
}

func (a *PostgresAdapter) Query(ctx context.Context, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	where, args, err := buildWhere(mf, pf, ids, 1)
	if err != nil {
		return nil, domain.NewAdapterError("PostgresAdapter.Query", err)
	}

	query := `SELECT ` + nodeColumns + ` FROM nodes` + where + ` ORDER BY sort_value ASC, global_id ASC`

	rows, err := a.client.GetReadPool().Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewAdapterError("PostgresAdapter.Query", err)
	}

	results, err := collectRecords(rows)
	if err != nil {
		return nil, domain.NewAdapterError("PostgresAdapter.Query", err)
	}
	return results, nil
}

func (a *PostgresAdapter) Save(ctx context.Context, rec entities.Record) error {
	propsJSON, err := json.Marshal(rec.Props)
	if err != nil {
		return domain.NewAdapterError("PostgresAdapter.Save", fmt.Errorf("failed to marshal props: %w", err))
	}

	query := `
		INSERT INTO nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (global_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			class_name = excluded.class_name,
			sort_value = excluded.sort_value,
			source_id = excluded.source_id,
			source_class_name = excluded.source_class_name,
			target_id = excluded.target_id,
			target_class_name = excluded.target_class_name,
			props = excluded.props,
			updated_at = NOW()`

	m := rec.Metadata
	_, err = a.client.GetWritePool().Exec(ctx, query,
		m.GlobalID,
		m.OwnerID,
		m.ClassName,
		m.SortValue,
		postgres.NewNullString(&m.SourceID),
		postgres.NewNullString(&m.SourceClassName),
		postgres.NewNullString(&m.TargetID),
		postgres.NewNullString(&m.TargetClassName),
		string(propsJSON),
	)
	if err != nil {
		return domain.NewAdapterError("PostgresAdapter.Save", err)
	}
	return nil
}

func (a *PostgresAdapter) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := a.client.GetWritePool().Exec(ctx, `DELETE FROM nodes WHERE global_id = $1`, id)
	if err != nil {
		return false, domain.NewAdapterError("PostgresAdapter.Delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimNext locks the oldest matching row with FOR UPDATE SKIP LOCKED so concurrent workers
// never claim the same record.
func (a *PostgresAdapter) ClaimNext(ctx context.Context, className string, pf domain.PropsFilter, patch entities.Props) (entities.Record, bool, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return entities.Record{}, false, domain.NewAdapterError("PostgresAdapter.ClaimNext", err)
	}

	where, args, err := buildWhere(domain.MetadataFilter{entities.FieldClassName: className}, pf, nil, 2)
	if err != nil {
		return entities.Record{}, false, domain.NewAdapterError("PostgresAdapter.ClaimNext", err)
	}

	query := `
		WITH next_node AS (
			SELECT global_id FROM nodes` + where + `
			ORDER BY sort_value ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE nodes
		SET props = nodes.props || $1::jsonb, updated_at = NOW()
		FROM next_node
		WHERE nodes.global_id = next_node.global_id
		RETURNING nodes.global_id, nodes.owner_id, nodes.class_name, nodes.sort_value,
			nodes.source_id, nodes.source_class_name, nodes.target_id, nodes.target_class_name, nodes.props`

	tx, err := a.client.GetWritePool().Begin(ctx)
	if err != nil {
		return entities.Record{}, false, domain.NewAdapterError("PostgresAdapter.ClaimNext", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, query, append([]any{string(patchJSON)}, args...)...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return entities.Record{}, false, nil
		}
		return entities.Record{}, false, domain.NewAdapterError("PostgresAdapter.ClaimNext", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return entities.Record{}, false, domain.NewAdapterError("PostgresAdapter.ClaimNext", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return rec, true, nil
}

func (a *PostgresAdapter) QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error) {
	return a.walk(ctx, id, targetClassName, depth, "source_id", "target_id")
}

func (a *PostgresAdapter) QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error) {
	return a.walk(ctx, id, sourceClassName, depth, "target_id", "source_id")
}

func (a *PostgresAdapter) walk(ctx context.Context, id string, className string, depth int, fromColumn string, toColumn string) ([]entities.Record, error) {
	if depth <= 0 {
		depth = DefaultTraversalDepth
	}

	baseWalkQuery := `
		WITH RECURSIVE node_walk (node_id, depth, path) AS (
			SELECT
				$1::TEXT,
				0,
				ARRAY[$1::TEXT]

			UNION ALL

			SELECT
				e.%[2]s,
				w.depth + 1,
				w.path || e.%[2]s
			FROM
				nodes e
			JOIN
				node_walk w ON e.%[1]s = w.node_id
			WHERE
				w.depth < $2
				AND NOT e.%[2]s = ANY(w.path)
		),
		reached AS (
			SELECT
				node_id,
				MIN(depth) AS depth
			FROM
				node_walk
			WHERE
				depth > 0
			GROUP BY
				node_id
		)
		SELECT
			n.global_id, n.owner_id, n.class_name, n.sort_value,
			n.source_id, n.source_class_name, n.target_id, n.target_class_name, n.props
		FROM
			nodes n
		JOIN
			reached r ON n.global_id = r.node_id
		WHERE
			n.class_name = $3
		ORDER BY
			r.depth, n.sort_value;
	`
	query := fmt.Sprintf(baseWalkQuery, fromColumn, toColumn)

	rows, err := a.client.GetReadPool().Query(ctx, query, id, depth, className)
	if err != nil {
		return nil, domain.NewAdapterError("PostgresAdapter.walk", err)
	}

	results, err := collectRecords(rows)
	if err != nil {
		return nil, domain.NewAdapterError("PostgresAdapter.walk", err)
	}
	return results, nil
}

func (a *PostgresAdapter) Close() error {
	a.client.Close()
	return nil
}

// buildWhere renders the filters as a WHERE clause with positional args starting at firstArg.
// Scalar props use @> so the GIN index applies; nested values compare with ->.
func buildWhere(mf domain.MetadataFilter, pf domain.PropsFilter, ids []string, firstArg int) (string, []any, error) {
	clauses := make([]string, 0, len(mf)+len(pf)+1)
	args := make([]any, 0, len(mf)+len(pf)+1)
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", firstArg+len(args)-1)
	}

	for key, value := range mf {
		column, ok := metadataColumns[key]
		if !ok {
			// chave desconhecida nunca casa
			clauses = append(clauses, "FALSE")
			continue
		}
		if column == "sort_value" {
			value = toInt64(value)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", column, next(value)))
	}

	normalized, err := pf.Normalize()
	if err != nil {
		return "", nil, err
	}

	for key, value := range normalized {
		if isScalar(value) && !strings.Contains(key, ".") {
			searchJSON, err := postgres.BuildSearchJSON(key, value)
			if err != nil {
				return "", nil, fmt.Errorf("failed to build search JSON: %w", err)
			}
			clauses = append(clauses, fmt.Sprintf("props @> %s::jsonb", next(searchJSON)))
			continue
		}

		valueJSON, err := json.Marshal(value)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, fmt.Sprintf("props -> %s = %s::jsonb", next(key), next(string(valueJSON))))
	}

	if len(ids) > 0 {
		clauses = append(clauses, fmt.Sprintf("global_id = ANY(%s)", next(ids)))
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func toInt64(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return value
}

func isScalar(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

func scanRecord(row pgx.Row) (entities.Record, error) {
	var (
		rec             entities.Record
		sourceID        *string
		sourceClassName *string
		targetID        *string
		targetClassName *string
		propsJSON       []byte
	)

	err := row.Scan(
		&rec.Metadata.GlobalID,
		&rec.Metadata.OwnerID,
		&rec.Metadata.ClassName,
		&rec.Metadata.SortValue,
		&sourceID,
		&sourceClassName,
		&targetID,
		&targetClassName,
		&propsJSON,
	)
	if err != nil {
		return entities.Record{}, err
	}

	rec.Metadata.SourceID = derefString(sourceID)
	rec.Metadata.SourceClassName = derefString(sourceClassName)
	rec.Metadata.TargetID = derefString(targetID)
	rec.Metadata.TargetClassName = derefString(targetClassName)

	if len(propsJSON) > 0 {
		if err := json.Unmarshal(propsJSON, &rec.Props); err != nil {
			return entities.Record{}, fmt.Errorf("failed to unmarshal props of %s: %w", rec.Metadata.GlobalID, err)
		}
	}

	return normalizeRecord(rec), nil
}

func collectRecords(rows pgx.Rows) ([]entities.Record, error) {
	defer rows.Close()

	results := make([]entities.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
