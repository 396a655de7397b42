package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"marksix-lab/internal/condition"
	"marksix-lab/internal/config"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/metrics"
	"marksix-lab/internal/orchestrator"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/reporting"
	"marksix-lab/internal/simulation"
	"marksix-lab/internal/verification"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("warning: %v", err)
	}

	// Parse flags
	strategyPath := flag.String("strategy", "", "Strategy config file, .json or .yaml (required)")
	dataPath := flag.String("data", "", "Draw history CSV (required unless --source=store)")
	source := flag.String("source", "csv", "Data source: csv, store")
	postgresDSN := flag.String("postgres-dsn", os.Getenv(config.EnvPostgresDSN), "PostgreSQL connection string (--source=store)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv(config.EnvClickhouseDSN), "ClickHouse connection string (--source=store)")
	verify := flag.Bool("verify", false, "Recompute precomputed indicator columns and fail on mismatch")
	strict := flag.Bool("strict", false, "Reject unknown condition tokens instead of defaulting them")
	capital := flag.Float64("capital", simulation.InitialCapital, "Initial capital")
	format := flag.String("format", "text", "Output format: text, json, md")
	tradesCSV := flag.String("trades-csv", "", "Write every settled trade to this CSV file")
	curveCSV := flag.String("curve-csv", "", "Write the equity curve to this CSV file")
	checkDeterminism := flag.Bool("check-determinism", false, "Run twice and compare the ledgers")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *strategyPath == "" {
		logger.Fatal("--strategy is required")
	}
	*format = strings.ToLower(*format)
	if *format != "text" && *format != "json" && *format != "md" {
		logger.Fatalf("Invalid format: %s. Must be text, json, or md", *format)
	}

	cfg, err := config.LoadStrategy(*strategyPath)
	if err != nil {
		logger.Fatalf("load strategy: %v", err)
	}
	if *strict {
		if err := condition.Validate(cfg.Entry); err != nil {
			logger.Fatalf("invalid strategy: %v", err)
		}
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Resolve source
	var src ingestion.Source
	switch *source {
	case "csv":
		if *dataPath == "" {
			logger.Fatal("--data is required for --source=csv")
		}
		src = ingestion.NewCSVSource(*dataPath)
	case "store":
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required for --source=store")
		}
		stores, err := orchestrator.OpenStores(ctx, orchestrator.StoreOptions{
			PostgresDSN:   *postgresDSN,
			ClickhouseDSN: *clickhouseDSN,
		})
		if err != nil {
			logger.Fatalf("open stores: %v", err)
		}
		defer stores.Close()
		src = stores.Source("store")
	default:
		logger.Fatalf("Invalid source: %s. Must be csv or store", *source)
	}

	loadOpts := []outcome.Option{outcome.WithLogger(logger)}
	if *verify {
		loadOpts = append(loadOpts, outcome.WithVerify())
	}
	store, err := outcome.Load(ctx, src, loadOpts...)
	if err != nil {
		logger.Fatalf("load data: %v", err)
	}
	logger.Printf("Loaded %d records from %s (%d precomputed columns)",
		store.Len(), store.Source(), len(store.IndicatorsReused()))

	engine := simulation.NewEngine(simulation.EngineOptions{Logger: logger, InitialCapital: *capital})

	logger.Printf("Running backtest: strategy=%s mode=%s conditions=%d",
		*strategyPath, cfg.Money.Mode, len(cfg.Entry.Conditions))
	run, err := engine.Run(store, cfg)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}
	logger.Printf("Completed in %v", run.Elapsed)

	if *checkDeterminism {
		again, err := engine.Run(store, cfg)
		if err != nil {
			logger.Fatalf("determinism rerun failed: %v", err)
		}
		report := verification.CompareRuns(run.States, again.States, &run.Summary, &again.Summary)
		if !report.Match() {
			for _, d := range report.Divergences {
				logger.Printf("divergence: %s", d)
			}
			logger.Fatalf("runs diverged in %d fields", len(report.Divergences))
		}
		logger.Printf("Determinism check passed (%d states)", report.StatesCompared)
	}

	if *tradesCSV != "" {
		writeFile(logger, *tradesCSV, reporting.RenderTradesCSV(run.Trades))
	}
	if *curveCSV != "" {
		writeFile(logger, *curveCSV, reporting.RenderCurveCSV(run.Summary.Curve))
	}

	// Output result
	switch *format {
	case "json":
		stats, err := metrics.Compute(run)
		if err != nil {
			logger.Fatalf("compute stats: %v", err)
		}
		out := struct {
			ConfigKey string                   `json:"config_key"`
			Summary   domain.SimulationSummary `json:"summary"`
			Stats     *metrics.RunStats        `json:"stats"`
		}{run.Key, run.Summary, stats}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
	case "md":
		report, err := reporting.NewGenerator().Generate(store, run)
		if err != nil {
			logger.Fatalf("generate report: %v", err)
		}
		fmt.Print(reporting.RenderMarkdown(report))
	default:
		stats, err := metrics.Compute(run)
		if err != nil {
			logger.Fatalf("compute stats: %v", err)
		}
		printSummary(store, run, stats)
	}
}

func writeFile(logger *log.Logger, path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Fatalf("write %s: %v", path, err)
	}
	logger.Printf("Wrote %s", path)
}

// printSummary outputs a human-readable run summary.
func printSummary(store *outcome.Store, run *simulation.Run, stats *metrics.RunStats) {
	s := run.Summary
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", s.RunID)
	fmt.Printf("Dataset:            %s (%d records)\n", store.ID(), store.Len())
	fmt.Printf("Periods:            %s .. %s\n", store.Record(0).Period, store.Record(store.Len()-1).Period)
	fmt.Println()

	fmt.Println("Capital:")
	fmt.Printf("  Initial:          %.2f\n", s.InitialCapital)
	fmt.Printf("  Final:            %.2f\n", s.FinalCapital)
	fmt.Printf("  Profit:           %.2f\n", s.TotalProfit)
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Total:            %d\n", s.TotalTrades)
	fmt.Printf("  Wins / Losses:    %d / %d\n", s.Wins, s.Losses)
	fmt.Printf("  Win Rate:         %.2f%%\n", s.WinRate*100)
	fmt.Printf("  Stop Losses:      %d\n", stats.StopLosses)
	fmt.Println()

	fmt.Println("Risk:")
	fmt.Printf("  Max Bet:          %.2f\n", s.MaxBet)
	fmt.Printf("  Max Streak Stake: %.2f\n", s.MaxStreakStake)
	fmt.Printf("  Max Drawdown:     %.2f (%.2f%%)\n", stats.MaxDrawdown, stats.MaxDrawdownPct*100)
	fmt.Printf("  Max Loss Streak:  %d\n", stats.MaxConsecutiveLosses)
	fmt.Printf("  Exposure:         %.2f%%\n", stats.Exposure*100)

	if len(stats.ByTarget) > 0 {
		fmt.Println()
		fmt.Println("Targets:")
		for _, t := range stats.ByTarget {
			fmt.Printf("  %-16s %4d trades  %5.1f%% hit  %10.2f\n", t.Target, t.Trades, t.WinRate*100, t.Profit)
		}
	}
}
