package storage

import (
	"context"
	"fmt"
	"log/slog"

	"nodegraph/src/helper/env"
	infrabadger "nodegraph/src/infra/badger"
	"nodegraph/src/infra/postgres"
	"nodegraph/src/repositories"
)

const (
	KindMemory   = "memory"
	KindBadger   = "badger"
	KindPostgres = "postgres"
)

// Config escolhe o backend de armazenamento dos nodes.
type Config struct {
	Kind string

	// badger; vazio abre em memória
	BadgerPath string

	DBReadHost     string
	DBWriteHost    string
	DBReadPort     string
	DBWritePort    string
	DBName         string
	DBUser         string
	DBPassword     string
	MaxConnections int
}

// ConfigFromEnv reads ADAPTER (memory, badger or postgres) and the variables of the chosen backend.
func ConfigFromEnv() Config {
	cfg := Config{Kind: env.GetString("ADAPTER", KindMemory)}

	switch cfg.Kind {
	case KindBadger:
		cfg.BadgerPath = env.GetString("BADGER_PATH")
	case KindPostgres:
		cfg.DBReadHost = env.MustGetString("DB_READ_HOST")
		cfg.DBWriteHost = env.GetString("DB_WRITE_HOST", cfg.DBReadHost)
		cfg.DBReadPort = env.GetString("DB_READ_PORT", "5432")
		cfg.DBWritePort = env.GetString("DB_WRITE_PORT", cfg.DBReadPort)
		cfg.DBName = env.MustGetString("DB_NAME")
		cfg.DBUser = env.MustGetString("DB_USER")
		cfg.DBPassword = env.MustGetString("DB_PASSWORD")
		cfg.MaxConnections = env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)
	}

	return cfg
}

// Backend is an opened storage adapter plus whatever must be closed with it.
type Backend struct {
	Adapter repositories.Adapter
	close   func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, logger *slog.Logger, cfg Config) (*Backend, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return &Backend{Adapter: repositories.NewMemoryAdapter(logger)}, nil

	case KindBadger:
		db, err := infrabadger.NewBadgerClient(cfg.BadgerPath, cfg.BadgerPath == "", logger)
		if err != nil {
			return nil, err
		}
		adapter := repositories.NewBadgerAdapter(logger, db)
		return &Backend{Adapter: adapter, close: adapter.Close}, nil

	case KindPostgres:
		client, err := postgres.NewReadWriteClient(
			cfg.DBReadHost, cfg.DBWriteHost,
			cfg.DBReadPort, cfg.DBWritePort,
			cfg.DBName, cfg.DBUser, cfg.DBPassword,
			cfg.MaxConnections,
		)
		if err != nil {
			return nil, err
		}

		adapter := repositories.NewPostgresAdapter(logger, client)
		if err := adapter.Initialize(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
		}
		return &Backend{Adapter: adapter, close: adapter.Close}, nil
	}

	return nil, fmt.Errorf("unknown adapter %q: expected %s, %s or %s", cfg.Kind, KindMemory, KindBadger, KindPostgres)
}
