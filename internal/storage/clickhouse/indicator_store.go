package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

// IndicatorStore implements storage.IndicatorStore using ClickHouse.
// Cells are stored long-form, one row per (period, indicator).
type IndicatorStore struct {
	conn *Conn
}

// NewIndicatorStore creates a new IndicatorStore.
func NewIndicatorStore(conn *Conn) *IndicatorStore {
	return &IndicatorStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndicatorStore = (*IndicatorStore)(nil)

type cellKey struct {
	period string
	column string
}

// InsertBulk adds multiple cells. Fails entire batch on duplicate.
// MergeTree does not enforce keys, so duplicates are checked before insert.
func (s *IndicatorStore) InsertBulk(ctx context.Context, values []*domain.IndicatorValue) (err error) {
	if len(values) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[cellKey]struct{}, len(values))
	periodSet := make(map[string]struct{})
	for _, v := range values {
		if v == nil || v.Period == "" || v.Column == "" || v.Value < 0 {
			return storage.ErrInvalidInput
		}
		k := cellKey{v.Period, v.Column}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		periodSet[v.Period] = struct{}{}
	}

	start := time.Now()
	defer func() { s.conn.observe("insert_indicators", start, err) }()

	// Check for duplicates against existing rows
	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	existing, err := s.keysFor(ctx, periods)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for k := range seen {
		if _, exists := existing[k]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO indicator_values (period, indicator, value)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, v := range values {
		if err := batch.Append(v.Period, v.Column, uint32(v.Value)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetAll retrieves every cell, ordered by period ASC, column ASC.
func (s *IndicatorStore) GetAll(ctx context.Context) (_ []*domain.IndicatorValue, err error) {
	start := time.Now()
	defer func() { s.conn.observe("get_indicators", start, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT period, indicator, value
		FROM indicator_values
		ORDER BY period ASC, indicator ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	return scanCells(rows)
}

// GetByPeriod retrieves the cells of one period, ordered by column ASC.
func (s *IndicatorStore) GetByPeriod(ctx context.Context, period string) ([]*domain.IndicatorValue, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT period, indicator, value
		FROM indicator_values
		WHERE period = ?
		ORDER BY indicator ASC
	`, period)
	if err != nil {
		return nil, fmt.Errorf("query indicators by period: %w", err)
	}
	defer rows.Close()

	return scanCells(rows)
}

func (s *IndicatorStore) keysFor(ctx context.Context, periods []string) (map[cellKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT period, indicator
		FROM indicator_values
		WHERE period IN (?)
	`, periods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[cellKey]struct{})
	for rows.Next() {
		var k cellKey
		if err := rows.Scan(&k.period, &k.column); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// scanCells scans rows into indicator values.
func scanCells(rows driver.Rows) ([]*domain.IndicatorValue, error) {
	var out []*domain.IndicatorValue
	for rows.Next() {
		var v domain.IndicatorValue
		var value uint32
		if err := rows.Scan(&v.Period, &v.Column, &value); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		v.Value = int(value)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indicators: %w", err)
	}
	return out, nil
}
