package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"roster/internal/platform/config"
	platformredis "roster/internal/platform/redis"
	ratelimitmw "roster/internal/ratelimit/middleware"
	"roster/internal/ratelimit/store/bucket"
	"roster/internal/registry/adapters"
	"roster/internal/registry/models"
	"roster/internal/registry/service"
	"roster/internal/registry/store"
	"roster/pkg/platform/audit/publisher"
	"roster/pkg/platform/audit/publishers/kafka"
	auditmemory "roster/pkg/platform/audit/store/memory"
	auditpostgres "roster/pkg/platform/audit/store/postgres"
	"roster/pkg/platform/audit/worker"
)

const (
	auditQueueSize = 1024
	closeTimeout   = 5 * time.Second
)

// infra holds the backend connections and the event sink chosen by config.
type infra struct {
	txFor      func(kind models.Kind) service.StoreTx
	sink       service.EventSink
	buckets    ratelimitmw.BucketStore
	background []func(ctx context.Context) error
	health     func(ctx context.Context) error
	closers    []func(ctx context.Context) error
}

func (i *infra) close(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](ctx); err != nil {
			log.Warn("failed to release resource", "error", err)
		}
	}
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer) (*infra, error) {
	in := &infra{health: func(context.Context) error { return nil }}

	var db *sql.DB
	openDB := func() (*sql.DB, error) {
		if db != nil {
			return db, nil
		}
		conn, err := sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		db = conn
		in.closers = append(in.closers, func(context.Context) error { return conn.Close() })
		in.health = conn.PingContext
		return db, nil
	}

	in.buckets = bucket.NewInMemoryBucketStore()

	switch cfg.Backend {
	case config.BackendMemory:
		dense := store.NewInMemoryTx(store.NewInMemoryStore(), store.WithInMemoryTimeout(cfg.TxTimeout))
		linked := store.NewInMemoryTx(store.NewInMemoryStore(), store.WithInMemoryTimeout(cfg.TxTimeout))
		in.txFor = func(kind models.Kind) service.StoreTx {
			if kind == models.KindDense {
				return dense
			}
			return linked
		}
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, func(context.Context) error { return client.Close() })
		in.health = client.Health
		in.buckets = bucket.NewRedisBucketStore(client.Client, "roster:ratelimit:")
		in.txFor = func(kind models.Kind) service.StoreTx {
			return store.NewRedisTx(client.Client, string(kind)).WithTimeout(cfg.TxTimeout)
		}
	case config.BackendPostgres:
		conn, err := openDB()
		if err != nil {
			return nil, err
		}
		if err := store.NewPostgresStore(conn, "").EnsureSchema(ctx); err != nil {
			return nil, err
		}
		in.txFor = func(kind models.Kind) service.StoreTx {
			return store.NewPostgresTx(conn, store.NewPostgresStore(conn, string(kind))).WithTimeout(cfg.TxTimeout)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	switch cfg.Sink {
	case config.SinkMemory:
		pub := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
			publisher.WithAsyncBuffer(auditQueueSize),
			publisher.WithLogger(log),
		)
		in.closers = append(in.closers, func(context.Context) error { return pub.Close() })
		in.sink = adapters.NewAuditSink(pub)
	case config.SinkPostgres:
		conn, err := openDB()
		if err != nil {
			return nil, err
		}
		auditStore := auditpostgres.New(conn)
		if err := auditStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		queue := worker.NewQueue(auditQueueSize)
		w := worker.NewWorker(auditStore, queue.Inbox())
		in.background = append(in.background, func(ctx context.Context) error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit worker: %w", err)
			}
			return nil
		})
		in.sink = adapters.NewAuditSink(queue)
	case config.SinkKafka:
		pub, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			kafka.WithLogger(log),
			kafka.WithMetrics(kafka.NewMetrics(reg)),
		)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, pub.Close)
		in.sink = adapters.NewAuditSink(pub)
	default:
		return nil, fmt.Errorf("unknown event sink %q", cfg.Sink)
	}

	return in, nil
}
