package storage

import (
	"context"

	"marksix-lab/internal/domain"
)

// DrawStore provides access to draws storage.
type DrawStore interface {
	// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate period.
	InsertBulk(ctx context.Context, draws []*domain.Draw) error

	// GetAll retrieves every draw, ordered by date ASC, period ASC.
	GetAll(ctx context.Context) ([]*domain.Draw, error)

	// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
	GetByPeriod(ctx context.Context, period string) (*domain.Draw, error)

	// Count returns the number of stored draws.
	Count(ctx context.Context) (int, error)
}

// IndicatorStore provides access to precomputed indicator columns.
type IndicatorStore interface {
	// InsertBulk adds multiple indicator cells. Fails entire batch on duplicate (period, column).
	InsertBulk(ctx context.Context, values []*domain.IndicatorValue) error

	// GetAll retrieves every stored cell, ordered by period ASC, column ASC.
	GetAll(ctx context.Context) ([]*domain.IndicatorValue, error)

	// GetByPeriod retrieves the cells of one period, ordered by column ASC.
	GetByPeriod(ctx context.Context, period string) ([]*domain.IndicatorValue, error)
}
