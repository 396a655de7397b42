package orchestrator

import (
	"context"
	"errors"
	"testing"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/indicator"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/storage/memory"
)

func fixtureSource(n int) ingestion.Source {
	return ingestion.FixtureSource(n)
}

func TestOrchestrator_Ingest(t *testing.T) {
	ctx := context.Background()
	draws := memory.NewDrawStore()
	cells := memory.NewIndicatorStore()

	orch := New(Options{Draws: draws, Indicators: cells, CellBatch: 500})

	result, err := orch.Ingest(ctx, fixtureSource(30))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.SourceRecords != 30 || result.Inserted != 30 || result.Skipped != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	columns := len(indicator.FullKeys())
	if result.Cells != 30*columns {
		t.Errorf("expected %d cells, got %d", 30*columns, result.Cells)
	}

	n, err := draws.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 30 {
		t.Errorf("expected 30 stored draws, got %d", n)
	}
}

func TestOrchestrator_IngestIsIncremental(t *testing.T) {
	ctx := context.Background()
	draws := memory.NewDrawStore()
	cells := memory.NewIndicatorStore()
	orch := New(Options{Draws: draws, Indicators: cells})

	if _, err := orch.Ingest(ctx, fixtureSource(20)); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	// The fixture is deterministic, so the first 20 draws repeat.
	result, err := orch.Ingest(ctx, fixtureSource(25))
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if result.Inserted != 5 || result.Skipped != 20 || result.StoredTotal != 25 {
		t.Errorf("unexpected result: %+v", result)
	}

	again, err := orch.Ingest(ctx, fixtureSource(25))
	if err != nil {
		t.Fatalf("third Ingest failed: %v", err)
	}
	if again.Inserted != 0 || again.Cells != 0 {
		t.Errorf("expected no-op, got %+v", again)
	}
}

func TestOrchestrator_StoredIndicatorsMatchRecompute(t *testing.T) {
	ctx := context.Background()
	draws := memory.NewDrawStore()
	cells := memory.NewIndicatorStore()
	orch := New(Options{Draws: draws, Indicators: cells})

	if _, err := orch.Ingest(ctx, fixtureSource(60)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := orch.Ingest(ctx, fixtureSource(150)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// Reloading through the stores must reuse every stored column, and
	// verification against a recompute must pass.
	src := ingestion.NewStoreSource("store", draws, cells)
	store, err := outcome.Load(ctx, src, outcome.WithVerify())
	if err != nil {
		t.Fatalf("Load with verify failed: %v", err)
	}
	if store.Len() != 150 {
		t.Errorf("expected 150 records, got %d", store.Len())
	}
	if got, want := len(store.IndicatorsReused()), len(indicator.FullKeys()); got != want {
		t.Errorf("expected %d reused columns, got %d", want, got)
	}
}

func TestOrchestrator_Backdated(t *testing.T) {
	ctx := context.Background()
	draws := memory.NewDrawStore()
	orch := New(Options{Draws: draws, Indicators: memory.NewIndicatorStore()})

	all := ingestion.Fixture(10)
	if _, err := orch.Ingest(ctx, ingestion.NewMemorySource("late", all[5:], nil)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	_, err := orch.Ingest(ctx, ingestion.NewMemorySource("early", all[:5], nil))
	if !errors.Is(err, ErrBackdated) {
		t.Fatalf("expected ErrBackdated, got %v", err)
	}

	// Without indicator persistence earlier draws are accepted.
	drawsOnly := New(Options{Draws: draws})
	result, err := drawsOnly.Ingest(ctx, ingestion.NewMemorySource("early", all[:5], nil))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Inserted != 5 || result.Cells != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestOrchestrator_InvalidSource(t *testing.T) {
	orch := New(Options{Draws: memory.NewDrawStore()})

	bad := []domain.Draw{{Period: "2024001", Special: 50}}
	_, err := orch.Ingest(context.Background(), ingestion.NewMemorySource("bad", bad, nil))
	if !errors.Is(err, outcome.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestOpenStores_Memory(t *testing.T) {
	stores, err := OpenStores(context.Background(), StoreOptions{UseMemory: true})
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer stores.Close()

	if stores.Draws == nil || stores.Indicators == nil {
		t.Fatal("expected memory stores")
	}
	if stores.Source("store").Name() != "store" {
		t.Errorf("unexpected source name %q", stores.Source("store").Name())
	}

	noIndicators, err := OpenStores(context.Background(), StoreOptions{})
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	if noIndicators.Indicators != nil {
		t.Error("expected no indicator store")
	}
}
