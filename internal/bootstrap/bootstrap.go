// Package bootstrap builds the document store, change publisher and domain
// service selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/routines/internal/config"
	"example.com/routines/internal/domain"
	"example.com/routines/internal/events"
	"example.com/routines/internal/persistence/memory"
	"example.com/routines/internal/persistence/postgres"
	"example.com/routines/internal/persistence/redisdoc"
)

// Runtime holds the wired dependencies of one process.
type Runtime struct {
	Store     domain.DocumentStore
	Publisher events.Publisher
	Service   *domain.Service
	closers   []io.Closer
}

// Open connects the configured backend and wires the domain service.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: store, Publisher: events.NoopPublisher{}}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
		rt.Publisher = publisher
		rt.closers = append(rt.closers, publisher)
		logger.Printf("publishing changes to %s on %v", cfg.EventsTopic, cfg.KafkaBrokers)
	}
	rt.closers = append(rt.closers, store)

	rt.Service = domain.NewService(store, domain.WithLogger(logger), domain.WithPublisher(rt.Publisher))
	logger.Printf("using %s document store", cfg.StoreBackend)
	return rt, nil
}

func openStore(ctx context.Context, cfg config.Config) (domain.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		client := redisdoc.NewClient(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return redisdoc.NewStore(client, cfg.RedisPrefix), nil
	default:
		return memory.NewStore(), nil
	}
}

// Close releases the publisher and the store.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
