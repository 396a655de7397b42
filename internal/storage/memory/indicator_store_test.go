package memory

import (
	"context"
	"errors"
	"testing"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

func TestIndicatorStore_InsertAndGet(t *testing.T) {
	store := NewIndicatorStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.IndicatorValue{
		{Period: "2024002", Column: "om_color_0", Value: 0},
		{Period: "2024001", Column: "om_color_1", Value: 3},
		{Period: "2024001", Column: "freq_color_1_100", Value: 12},
		{Period: "2024002", Column: "freq_color_1_100", Value: 12},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []domain.IndicatorValue{
		{Period: "2024001", Column: "freq_color_1_100", Value: 12},
		{Period: "2024001", Column: "om_color_1", Value: 3},
		{Period: "2024002", Column: "freq_color_1_100", Value: 12},
		{Period: "2024002", Column: "om_color_0", Value: 0},
	}
	if len(all) != len(want) {
		t.Fatalf("Expected %d cells, got %d", len(want), len(all))
	}
	for i := range want {
		if *all[i] != want[i] {
			t.Errorf("all[%d] = %+v, want %+v", i, *all[i], want[i])
		}
	}

	row, err := store.GetByPeriod(ctx, "2024002")
	if err != nil {
		t.Fatalf("GetByPeriod failed: %v", err)
	}
	if len(row) != 2 || row[0].Column != "freq_color_1_100" {
		t.Errorf("GetByPeriod = %+v", row)
	}

	empty, err := store.GetByPeriod(ctx, "1999001")
	if err != nil || len(empty) != 0 {
		t.Errorf("GetByPeriod(unknown) = %v, %v; want empty", empty, err)
	}
}

func TestIndicatorStore_Duplicates(t *testing.T) {
	store := NewIndicatorStore()
	ctx := context.Background()

	cell := &domain.IndicatorValue{Period: "2024001", Column: "om_size_1", Value: 2}
	if err := store.InsertBulk(ctx, []*domain.IndicatorValue{cell}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.IndicatorValue{cell}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	other := &domain.IndicatorValue{Period: "2024002", Column: "om_size_1", Value: 3}
	if err := store.InsertBulk(ctx, []*domain.IndicatorValue{other, other}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestIndicatorStore_InvalidInput(t *testing.T) {
	store := NewIndicatorStore()
	err := store.InsertBulk(context.Background(), []*domain.IndicatorValue{{Period: "p", Column: "om_color_0", Value: -1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
