package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	cataloghttp "github.com/warehouse-platform/goods-service/internal/catalog/http"
	catalogpg "github.com/warehouse-platform/goods-service/internal/catalog/postgres"
	"github.com/warehouse-platform/goods-service/internal/config"
	"github.com/warehouse-platform/goods-service/internal/inventory/application"
	inventoryhttp "github.com/warehouse-platform/goods-service/internal/inventory/http"
	inventorykafka "github.com/warehouse-platform/goods-service/internal/inventory/kafka"
	inventorypg "github.com/warehouse-platform/goods-service/internal/inventory/postgres"
	"github.com/warehouse-platform/goods-service/pkg/idempotency"
	"github.com/warehouse-platform/goods-service/pkg/logging"
	"github.com/warehouse-platform/goods-service/pkg/outbox"
	"github.com/warehouse-platform/goods-service/pkg/shutdown"
	"github.com/warehouse-platform/goods-service/pkg/tracing"
)

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPAddr, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyKeyTTL)

	// Inventory coordinator
	invRepo := inventorypg.NewRepository(log, pool, cfg.LockTimeout)
	invSvc := application.NewService(log, invRepo)

	// Catalog facade
	catRepo := catalogpg.NewRepository(log, pool)

	// Outbox relay publishing inventory events
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaAddr),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.InventoryEventsTopic)
	relay := outbox.NewRelay(log, inventorypg.NewOutboxStore(log, pool), dispatch, cfg.ServiceName+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	// Order events consumer
	consumer := inventorykafka.NewConsumer(log, []string{cfg.KafkaAddr}, cfg.OrderEventsTopic, cfg.ConsumerGroup, invSvc, idem)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	// HTTP server
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Warehouse Goods Service is running"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	products := chi.NewRouter()
	cataloghttp.NewHandler(log, catRepo).Register(products)
	inventoryhttp.NewHandler(log, invSvc).Register(products)
	r.Mount("/products", products)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("warehouse-service shutdown complete")
}
