package orchestrator

import (
	"context"
	"fmt"

	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/storage"
	chstore "marksix-lab/internal/storage/clickhouse"
	"marksix-lab/internal/storage/memory"
	"marksix-lab/internal/storage/migrations"
	pgstore "marksix-lab/internal/storage/postgres"
)

// StoreOptions selects the store backends.
type StoreOptions struct {
	PostgresDSN   string // empty uses an in-memory draw store
	ClickhouseDSN string // empty uses UseMemory to decide
	UseMemory     bool   // in-memory indicator store when ClickhouseDSN is empty
	Migrate       bool   // apply embedded migrations on connect
	Metrics       *observability.Metrics
}

// Stores holds the opened draw and indicator stores.
type Stores struct {
	Draws      storage.DrawStore
	Indicators storage.IndicatorStore // may be nil

	closers []func()
}

// OpenStores connects the configured backends.
func OpenStores(ctx context.Context, opts StoreOptions) (*Stores, error) {
	s := &Stores{}

	if opts.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		pool.WithMetrics(opts.Metrics)
		s.closers = append(s.closers, pool.Close)
		if opts.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				s.Close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		s.Draws = pgstore.NewDrawStore(pool)
	} else {
		s.Draws = memory.NewDrawStore()
	}

	switch {
	case opts.ClickhouseDSN != "":
		var conn *chstore.Conn
		var err error
		if opts.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		conn.WithMetrics(opts.Metrics)
		s.closers = append(s.closers, func() { conn.Close() })
		s.Indicators = chstore.NewIndicatorStore(conn)
	case opts.UseMemory:
		s.Indicators = memory.NewIndicatorStore()
	}

	return s, nil
}

// Source returns an ingestion source reading back from the stores.
func (s *Stores) Source(name string) ingestion.Source {
	return ingestion.NewStoreSource(name, s.Draws, s.Indicators)
}

// Close releases every connection, last opened first.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
