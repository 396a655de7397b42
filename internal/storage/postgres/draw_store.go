package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

// DrawStore implements storage.DrawStore using PostgreSQL.
type DrawStore struct {
	pool *Pool
}

// NewDrawStore creates a new DrawStore.
func NewDrawStore(pool *Pool) *DrawStore {
	return &DrawStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DrawStore = (*DrawStore)(nil)

const drawColumns = `period, draw_date, draw_year, n1, n2, n3, n4, n5, n6, special`

// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate period.
func (s *DrawStore) InsertBulk(ctx context.Context, draws []*domain.Draw) (err error) {
	if len(draws) == 0 {
		return nil
	}
	for _, d := range draws {
		if d == nil || d.Period == "" || d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { s.pool.observe("insert_draws", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO draws (` + drawColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, d := range draws {
		var year *int
		if d.Year != 0 {
			year = &d.Year
		}
		batch.Queue(query,
			d.Period,
			d.Date,
			year,
			d.Numbers[0], d.Numbers[1], d.Numbers[2], d.Numbers[3], d.Numbers[4], d.Numbers[5],
			d.Special,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range draws {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert draw in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves every draw, ordered by date ASC, period ASC.
func (s *DrawStore) GetAll(ctx context.Context) (_ []*domain.Draw, err error) {
	start := time.Now()
	defer func() { s.pool.observe("get_draws", start, err) }()

	query := `SELECT ` + drawColumns + ` FROM draws ORDER BY draw_date ASC, period ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get draws: %w", err)
	}
	defer rows.Close()

	return scanDraws(rows)
}

// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
func (s *DrawStore) GetByPeriod(ctx context.Context, period string) (*domain.Draw, error) {
	query := `SELECT ` + drawColumns + ` FROM draws WHERE period = $1`

	d, err := scanDraw(s.pool.QueryRow(ctx, query, period))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get draw by period: %w", err)
	}
	return d, nil
}

// Count returns the number of stored draws.
func (s *DrawStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM draws`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count draws: %w", err)
	}
	return n, nil
}

// scanDraws scans multiple rows into a slice of Draw.
func scanDraws(rows pgx.Rows) ([]*domain.Draw, error) {
	var draws []*domain.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draws: %w", err)
	}
	return draws, nil
}

func scanDraw(row pgx.Row) (*domain.Draw, error) {
	var d domain.Draw
	var year *int
	err := row.Scan(
		&d.Period,
		&d.Date,
		&year,
		&d.Numbers[0], &d.Numbers[1], &d.Numbers[2], &d.Numbers[3], &d.Numbers[4], &d.Numbers[5],
		&d.Special,
	)
	if err != nil {
		return nil, err
	}
	if year != nil {
		d.Year = *year
	}
	d.Date = d.Date.UTC()
	return &d, nil
}
