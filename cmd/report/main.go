package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"marksix-lab/internal/config"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/reporting"
	"marksix-lab/internal/simulation"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	dataPath := flag.String("data", "", "Draw history CSV")
	useFixtures := flag.Int("use-fixtures", 0, "Use N synthetic draws instead of --data")
	strategies := flag.String("strategies", "", "Comma-separated strategy files, or a directory of .json/.yaml files (required)")
	flag.Parse()

	// Validate flags
	if *dataPath == "" && *useFixtures <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --data is required when not using fixtures")
		fmt.Fprintln(os.Stderr, "Use --use-fixtures=N to run with synthetic draws instead")
		os.Exit(1)
	}
	if *strategies == "" {
		fmt.Fprintln(os.Stderr, "Error: --strategies is required")
		os.Exit(1)
	}

	files, err := strategyFiles(*strategies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing strategies: %v\n", err)
		os.Exit(1)
	}

	var store *outcome.Store
	if *useFixtures > 0 {
		store, err = outcome.NewStore(ingestion.Fixture(*useFixtures))
	} else {
		store, err = outcome.Load(context.Background(), ingestion.NewCSVSource(*dataPath))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	engine := simulation.NewEngine(simulation.EngineOptions{})
	gen := reporting.NewGenerator()
	generatedAt := time.Now().UTC()
	gen.WithClock(func() time.Time { return generatedAt })

	var rows []reporting.ComparisonRow
	var dataset reporting.DatasetSection
	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		cfg, err := config.LoadStrategy(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		report, err := runOne(engine, gen, store, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", name, err)
			os.Exit(1)
		}
		dataset = report.Dataset

		mustWrite(filepath.Join(*outputDir, name+".md"), reporting.RenderMarkdown(report))
		mustWrite(filepath.Join(*outputDir, name+"_trades.csv"), reporting.RenderTradesCSV(report.Trades))
		mustWrite(filepath.Join(*outputDir, name+"_curve.csv"), reporting.RenderCurveCSV(report.Summary.Curve))
		rows = append(rows, reporting.NewComparisonRow(name, report))
	}

	mustWrite(filepath.Join(*outputDir, "comparison.md"), reporting.RenderComparisonMarkdown(generatedAt, dataset, rows))
	mustWrite(filepath.Join(*outputDir, "comparison.csv"), reporting.RenderComparisonCSV(rows))

	fmt.Printf("Reports for %d strategies written to %s\n", len(rows), *outputDir)
}

func runOne(engine *simulation.Engine, gen *reporting.Generator, store *outcome.Store, cfg domain.StrategyConfig) (*reporting.Report, error) {
	run, err := engine.Run(store, cfg)
	if err != nil {
		return nil, err
	}
	return gen.Generate(store, run)
}

// strategyFiles expands arg into a sorted list of strategy files.
func strategyFiles(arg string) ([]string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml":
				if !e.IsDir() {
					files = append(files, filepath.Join(arg, e.Name()))
				}
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("no strategy files in %s", arg)
		}
		return files, nil
	}

	var files []string
	for _, p := range strings.Split(arg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}
	return files, nil
}

func mustWrite(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Generated: %s\n", path)
}
