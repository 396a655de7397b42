// Package postgres implements draw storage on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marksix-lab/internal/observability"
)

// applicationName tags sessions in pg_stat_activity.
const applicationName = "marksix-lab"

// Pool is a pgx pool with optional query metrics.
type Pool struct {
	*pgxpool.Pool
	metrics *observability.Metrics
}

// NewPool connects to dsn and pings the server. Pool sizing parameters in
// the DSN (pool_max_conns, ...) are honored.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// WithMetrics records query durations and errors on m.
func (p *Pool) WithMetrics(m *observability.Metrics) *Pool {
	p.metrics = m
	return p
}

func (p *Pool) observe(operation string, start time.Time, err error) {
	p.metrics.RecordDBQuery("postgres", operation, time.Since(start), err)
}

const pgUniqueViolation = "23505"

// isDuplicateKeyError reports a unique constraint violation, i.e. a period
// that is already stored.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
