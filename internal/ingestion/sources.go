// Package ingestion supplies draw datasets to the outcome store.
package ingestion

import (
	"context"
	"errors"
	"strings"

	"marksix-lab/internal/domain"
)

var (
	// ErrMissingColumn is returned when a mandatory column is absent.
	ErrMissingColumn = errors.New("missing mandatory column")

	// ErrMalformedRow is returned when a row value cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")
)

// MandatoryColumns are the columns every dataset must carry.
var MandatoryColumns = []string{"period", "date", "n1", "n2", "n3", "n4", "n5", "n6", "special"}

// Dataset is an ordered draw series as supplied by a source.
type Dataset struct {
	Draws []domain.Draw

	// Indicators holds optional precomputed indicator columns keyed by column
	// name (om_<dim>_<v>, freq_<dim>_<v>_<window>). Row i belongs to Draws[i].
	Indicators map[string][]int
}

// Source provides a dataset.
type Source interface {
	// Load reads the full dataset. Draws may be in any order.
	Load(ctx context.Context) (*Dataset, error)

	// Name identifies the source in logs and stats.
	Name() string
}

// IsIndicatorColumn reports whether a column name looks like a precomputed indicator.
func IsIndicatorColumn(name string) bool {
	return strings.HasPrefix(name, "om_") || strings.HasPrefix(name, "freq_")
}

// MemorySource serves a fixed in-memory dataset.
// Load returns copies to prevent mutation.
type MemorySource struct {
	name    string
	dataset Dataset
}

// NewMemorySource creates a source over the given draws and optional indicator columns.
func NewMemorySource(name string, draws []domain.Draw, indicators map[string][]int) *MemorySource {
	if name == "" {
		name = "memory"
	}
	return &MemorySource{
		name:    name,
		dataset: Dataset{Draws: draws, Indicators: indicators},
	}
}

// Load returns a copy of the dataset.
func (s *MemorySource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &Dataset{Draws: append([]domain.Draw(nil), s.dataset.Draws...)}
	if len(s.dataset.Indicators) > 0 {
		out.Indicators = make(map[string][]int, len(s.dataset.Indicators))
		for name, col := range s.dataset.Indicators {
			out.Indicators[name] = append([]int(nil), col...)
		}
	}
	return out, nil
}

// Name returns the source name.
func (s *MemorySource) Name() string {
	return s.name
}

var _ Source = (*MemorySource)(nil)
