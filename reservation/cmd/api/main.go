package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/infra/logging"
	"github.com/shelfmark/shelfmark/infra/tracing"
	invrepos "github.com/shelfmark/shelfmark/inventory/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/api"
	"github.com/shelfmark/shelfmark/reservation/config"
	"github.com/shelfmark/shelfmark/reservation/infra/events"
	"github.com/shelfmark/shelfmark/reservation/infra/gateways"
	"github.com/shelfmark/shelfmark/reservation/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/protocols"
	"github.com/shelfmark/shelfmark/reservation/use_cases/cancel"
	"github.com/shelfmark/shelfmark/reservation/use_cases/create"
	"github.com/shelfmark/shelfmark/reservation/use_cases/query"
	"github.com/shelfmark/shelfmark/reservation/use_cases/update_many"
	"github.com/shelfmark/shelfmark/reservation/use_cases/update_status"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, cleanup := logging.New("reservation", cfg.LokiURL)
	defer cleanup()

	if shutdown := tracing.Init("reservation"); shutdown != nil {
		defer shutdown()
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis ping failed, continuing without redis",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
			rdb = nil
		}
	}

	store, quotas, mongoDB := buildStores(cfg, logger)
	directory := buildDirectory(cfg, mongoDB, rdb, logger)
	idempotency := buildIdempotency(rdb, logger)
	publisher := buildPublisher(cfg, logger)
	defer publisher.Close()

	handlers := api.NewHandlers(
		create.NewCreate(directory, store, quotas, idempotency, publisher, logger),
		update_status.NewUpdateStatus(directory, store, publisher, logger),
		update_many.NewUpdateMany(directory, store, logger),
		cancel.NewCancel(directory, store, quotas, publisher, logger),
		query.NewQuery(store, quotas),
		logger,
	)

	r := api.NewRouter(handlers)
	logger.Info("reservation service listening", zap.String("port", cfg.ServerPort))
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildStores(cfg *config.Config, logger *zap.Logger) (protocols.ReservationStore, protocols.QuotaStore, *mongo.Database) {
	if cfg.MongoURI == "" {
		logger.Info("no MONGO_URI set, using in-memory stores")
		return repositories.NewReservationStoreMemory(), repositories.NewQuotaStoreMemory(), nil
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	db := client.Database(cfg.MongoDB)
	ctx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()
	store, err := repositories.NewReservationStoreMongo(ctx, db)
	if err != nil {
		logger.Fatal("mongo reservation store init", zap.Error(err))
	}
	quotas, err := repositories.NewQuotaStoreMongo(ctx, db)
	if err != nil {
		logger.Fatal("mongo quota store init", zap.Error(err))
	}
	return store, quotas, db
}

func buildDirectory(cfg *config.Config, db *mongo.Database, rdb *redis.Client, logger *zap.Logger) protocols.InventoryDirectory {
	var directory protocols.InventoryDirectory
	if cfg.InventoryURL != "" {
		httpClient := &http.Client{Timeout: time.Duration(cfg.InventoryTimeoutSec) * time.Second}
		directory = gateways.NewInventoryDirectoryHTTP(cfg.InventoryURL, httpClient)
	} else {
		// Standalone mode: serve the directory from the shared catalog store.
		logger.Info("no INVENTORY_URL set, using embedded inventory directory")
		if db != nil {
			repo, err := invrepos.NewItemRepositoryMongo(context.Background(), db)
			if err != nil {
				logger.Fatal("mongo catalog init", zap.Error(err))
			}
			directory = gateways.NewInventoryDirectoryEmbedded(repo)
		} else {
			directory = gateways.NewInventoryDirectoryEmbedded(invrepos.NewItemRepositoryMemory())
		}
	}
	if rdb != nil {
		logger.Info("inventory lookups cache-fronted by redis")
		directory = gateways.NewInventoryDirectoryCache(directory, rdb, logger)
	}
	return directory
}

func buildIdempotency(rdb *redis.Client, logger *zap.Logger) protocols.IdempotencyGateway {
	if rdb != nil {
		logger.Info("reservation idempotency: redis (TTL 24h)")
		return gateways.NewIdempotencyGatewayRedis(rdb)
	}
	logger.Info("reservation idempotency: in-memory (set REDIS_ADDR for redis)")
	return gateways.NewIdempotencyGatewayMemory()
}

func buildPublisher(cfg *config.Config, logger *zap.Logger) protocols.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no KAFKA_BROKERS set, reservation events disabled")
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
