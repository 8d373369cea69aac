package test_seeder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TestSeeder struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) TestSeeder {
	return TestSeeder{pool: pool}
}

func (ts TestSeeder) TruncateTables(ctx context.Context) {
	tables := []string{
		"nodes",
	}

	for _, table := range tables {
		_, err := ts.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table))
		if err != nil {
			panic(fmt.Sprintf("Failed to truncate %s: %v", table, err))
		}
	}
}

// CountNodes conta as linhas de uma classe, ignorando qualquer cache na frente do banco.
func (ts TestSeeder) CountNodes(ctx context.Context, className string) int {
	var count int
	err := ts.pool.QueryRow(ctx, `SELECT COUNT(*) FROM nodes WHERE class_name = $1`, className).Scan(&count)
	if err != nil {
		panic(fmt.Sprintf("Seeder.CountNodes failed: %v", err))
	}
	return count
}
