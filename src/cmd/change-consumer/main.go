package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nodegraph/src/adapters/kafka/consumers"
	"nodegraph/src/helper/env"
	"nodegraph/src/infra/debezium"
	"nodegraph/src/infra/kafka"
	"nodegraph/src/infra/redis"
	"nodegraph/src/repositories"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Change Event Consumer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newRedisClient,
			newKafkaClient,
			newCachedAdapter,
			newChangeEventConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	// Start the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down change event consumer...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Change event consumer shutdown complete")
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

func newRedisClient() *redis.RedisClient {
	redisHosts := env.MustGetString("REDIS_HOSTS")
	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTL := env.GetSeconds("REDIS_DEFAULT_TTL_SECONDS", 120)

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL).WithPrefix(env.GetString("REDIS_KEY_PREFIX"))
}

func newKafkaClient() (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.MustGetString("KAFKA_CHANGE_CONSUMER_GROUP_ID")
	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)

	return kafka.NewKafkaClient(brokers, groupID, batchSize)
}

// o consumer só invalida; leituras e escritas nunca passam por aqui
func newCachedAdapter(logger *slog.Logger, redisClient *redis.RedisClient) *repositories.CachedAdapter {
	return repositories.NewCachedAdapter(logger, repositories.BaseAdapter{}, redisClient)
}

func newChangeEventConsumer(
	logger *slog.Logger,
	cachedAdapter *repositories.CachedAdapter,
) *consumers.ChangeEventConsumer {
	return consumers.NewChangeEventConsumer(logger, cachedAdapter)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	redisClient *redis.RedisClient,
	changeConsumer *consumers.ChangeEventConsumer,
) {
	consumerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// events: eventos publicados pelo adapter; cdc: Debezium sobre a tabela nodes
			source := env.GetString("CHANGE_SOURCE", "events")

			switch source {
			case "cdc":
				topic := env.MustGetString("KAFKA_CDC_TOPIC")
				cdcClient := debezium.NewCDCClient(logger, topic, kafkaClient, []string{"nodes"})
				logger.Info("Starting change event consumer", "source", source, "topic", topic)

				go func() {
					if err := cdcClient.ConsumeChangeEvents(consumerCtx, changeConsumer.HandleChangeEvents); err != nil {
						logger.Error("Consumer failed", "error", err)
					}
				}()
			default:
				topic := env.GetString("KAFKA_CHANGE_EVENTS_TOPIC", "nodegraph.change-events")
				logger.Info("Starting change event consumer", "source", source, "topic", topic)

				go func() {
					if err := changeConsumer.Start(consumerCtx, kafkaClient, topic); err != nil {
						logger.Error("Consumer failed", "error", err)
					}
				}()
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()

			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close Redis client", "error", err)
			}
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
