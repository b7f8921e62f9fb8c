package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/infra/logging"
	"github.com/shelfmark/shelfmark/infra/tracing"
	"github.com/shelfmark/shelfmark/inventory/api"
	"github.com/shelfmark/shelfmark/inventory/config"
	"github.com/shelfmark/shelfmark/inventory/domain/item"
	"github.com/shelfmark/shelfmark/inventory/infra/events"
	"github.com/shelfmark/shelfmark/inventory/infra/repositories"
	"github.com/shelfmark/shelfmark/inventory/protocols"
	"github.com/shelfmark/shelfmark/inventory/use_cases/adjust"
	"github.com/shelfmark/shelfmark/inventory/use_cases/archive"
	"github.com/shelfmark/shelfmark/inventory/use_cases/purge"
	"github.com/shelfmark/shelfmark/inventory/use_cases/query"
	"github.com/shelfmark/shelfmark/inventory/use_cases/register"
	"github.com/shelfmark/shelfmark/inventory/use_cases/update"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, cleanup := logging.New("inventory", cfg.LokiURL)
	defer cleanup()

	if shutdown := tracing.Init("inventory"); shutdown != nil {
		defer shutdown()
	}

	itemRepository := buildRepository(cfg, logger)
	publisher := buildPublisher(cfg, logger)
	defer publisher.Close()

	handlers := api.NewHandlers(
		register.NewRegister(itemRepository),
		query.NewQuery(itemRepository),
		update.NewUpdate(itemRepository),
		archive.NewArchive(itemRepository),
		adjust.NewAdjust(itemRepository, publisher, logger),
		purge.NewPurge(itemRepository),
		logger,
	)

	r := api.NewRouter(handlers)
	logger.Info("inventory service listening", zap.String("port", cfg.ServerPort))
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildRepository(cfg *config.Config, logger *zap.Logger) item.Repository {
	if cfg.MongoURI == "" {
		logger.Info("no MONGO_URI set, using in-memory catalog")
		return repositories.NewItemRepositoryMemory()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := repositories.NewItemRepositoryMongo(ctx, client.Database(cfg.MongoDB))
	if err != nil {
		logger.Fatal("mongo catalog init", zap.Error(err))
	}
	return repo
}

func buildPublisher(cfg *config.Config, logger *zap.Logger) protocols.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no KAFKA_BROKERS set, inventory events disabled")
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
