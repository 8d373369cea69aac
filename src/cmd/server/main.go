package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	api "nodegraph/src/adapters/http"
	"nodegraph/src/helper/env"
	"nodegraph/src/helper/storage"
	"nodegraph/src/infra/kafka"
	"nodegraph/src/infra/redis"
	_ "nodegraph/src/models"
	"nodegraph/src/repositories"
	"nodegraph/src/services/events"

	"go.uber.org/fx"
)

func main() {
	// Configurar logger
	log.SetOutput(os.Stdout)
	log.Println("Starting API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newBackend,
			newRedisClient,
			newProducerClient,
			newDomainEventPublisher,
			newAdapter,
			newServer,
		),

		// Invocations
		fx.Invoke(registerAdapter, registerServerHooks),
	)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for app to exit gracefully
	<-app.Done()
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newBackend(lc fx.Lifecycle, logger *slog.Logger) (*storage.Backend, error) {
	backend, err := storage.Open(context.Background(), logger, storage.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return backend.Close()
		},
	})
	return backend, nil
}

// newRedisClient returns nil when REDIS_HOSTS is not set or CACHE_ENABLED=false; the adapter
// then runs without cache.
func newRedisClient() *redis.RedisClient {
	redisHosts := env.GetString("REDIS_HOSTS")
	if redisHosts == "" || !env.GetBool("CACHE_ENABLED", true) {
		return nil
	}

	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTL := env.GetSeconds("REDIS_DEFAULT_TTL_SECONDS", 120)

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL)
}

// newProducerClient returns nil when KAFKA_BROKERS is not set or PUBLISH_CHANGE_EVENTS=false;
// no change events are published.
func newProducerClient() (*kafka.KafkaClient, error) {
	brokers := env.GetString("KAFKA_BROKERS")
	if brokers == "" || !env.GetBool("PUBLISH_CHANGE_EVENTS", true) {
		return nil, nil
	}
	return kafka.NewProducerClient(brokers)
}

func newDomainEventPublisher(logger *slog.Logger, kafkaClient *kafka.KafkaClient) *events.DomainEventPublisher {
	if kafkaClient == nil {
		return nil
	}
	topic := env.GetString("KAFKA_CHANGE_EVENTS_TOPIC", "nodegraph.change-events")
	return events.NewDomainEventPublisher(logger, kafkaClient, topic)
}

// newAdapter empilha cache e publicação sobre o backend escolhido.
func newAdapter(
	logger *slog.Logger,
	backend *storage.Backend,
	redisClient *redis.RedisClient,
	publisher *events.DomainEventPublisher,
) repositories.Adapter {
	adapter := backend.Adapter

	if redisClient != nil {
		adapter = repositories.NewCachedAdapter(logger, adapter, redisClient.WithPrefix(env.GetString("REDIS_KEY_PREFIX")))
	}
	if publisher != nil {
		adapter = repositories.NewPublishingAdapter(logger, adapter, publisher)
	}

	return adapter
}

func registerAdapter(
	lc fx.Lifecycle,
	logger *slog.Logger,
	adapter repositories.Adapter,
	redisClient *redis.RedisClient,
	kafkaClient *kafka.KafkaClient,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// sem redis o CachedAdapter cai para o backend, então só avisamos
			if redisClient != nil {
				if err := redisClient.HealthCheck(ctx); err != nil {
					logger.Warn("Redis unavailable, reads will bypass the cache", "error", err)
				}
			}

			repositories.RegisterAdapter(adapter)
			logger.Info("Adapter registered", "adapter", env.GetString("ADAPTER", storage.KindMemory))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			repositories.ClearAdapter()
			if kafkaClient != nil {
				if err := kafkaClient.Close(); err != nil {
					logger.Error("Failed to close Kafka client", "error", err)
				}
			}
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					logger.Error("Failed to close Redis client", "error", err)
				}
			}
			return nil
		},
	})
}

func newServer(logger *slog.Logger) *api.Server {
	port := 8888 // default value
	if portStr := os.Getenv("SERVER_ADDR"); portStr != "" {
		if val, err := strconv.Atoi(portStr); err == nil {
			port = val
		}
	}

	return api.NewServer(logger, port)
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, srv *api.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start server in a separate goroutine
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Create timeout context for graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			log.Println("Shutting down server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server forced to shutdown: %v", err)
				return err
			}
			log.Println("Server exited gracefully")
			return nil
		},
	})
}
