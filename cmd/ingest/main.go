package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marksix-lab/internal/config"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/orchestrator"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("warning: %v", err)
	}

	// Parse flags (env vars as defaults)
	dataPath := flag.String("data", "", "Draw history CSV to ingest (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv(config.EnvPostgresDSN), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv(config.EnvClickhouseDSN), "ClickHouse connection string (empty skips indicator columns)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations before ingesting")
	verify := flag.Bool("verify", false, "Recompute precomputed indicator columns in the CSV and fail on mismatch")
	batch := flag.Int("cell-batch", orchestrator.DefaultCellBatch, "Indicator cells per insert batch")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *dataPath == "" {
		logger.Fatal("--data is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required when not using --use-memory")
	}
	if *useMemory {
		*postgresDSN = ""
		*clickhouseDSN = ""
	}

	m := observability.NewMetrics("marksix_ingest")

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := orchestrator.OpenStores(ctx, orchestrator.StoreOptions{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
		Migrate:       *migrate,
		Metrics:       m,
	})
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	orch := orchestrator.New(orchestrator.Options{
		Draws:      stores.Draws,
		Indicators: stores.Indicators,
		Logger:     logger,
		Verify:     *verify,
		CellBatch:  *batch,
	})

	start := time.Now()
	result, err := orch.Ingest(ctx, ingestion.NewCSVSource(*dataPath))
	m.RecordLoad(resultRecords(result), 0, time.Since(start), err)
	if err != nil {
		logger.Fatalf("ingest failed: %v", err)
	}

	logger.Printf("Ingest complete in %v: %d read, %d inserted, %d skipped, %d indicator cells, %d stored",
		time.Since(start).Round(time.Millisecond),
		result.SourceRecords, result.Inserted, result.Skipped, result.Cells, result.StoredTotal)
}

func resultRecords(r *orchestrator.IngestResult) int {
	if r == nil {
		return 0
	}
	return r.StoredTotal
}
