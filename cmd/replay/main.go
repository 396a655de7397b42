package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"marksix-lab/internal/config"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/replay"
)

func main() {
	// Parse flags
	dataPath := flag.String("data", "", "Draw history CSV (required)")
	periods := flag.String("period", "", "Comma-separated periods to replay (required)")
	strategyPath := flag.String("strategy", "", "Strategy config file; without it only draw and indicators are shown")
	verify := flag.Bool("verify", false, "Recompute precomputed indicator columns and fail on mismatch")
	strict := flag.Bool("strict", false, "Reject unknown condition tokens instead of defaulting them")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *dataPath == "" {
		logger.Fatal("--data is required")
	}
	if *periods == "" {
		logger.Fatal("--period is required")
	}

	var cfg *domain.StrategyConfig
	if *strategyPath != "" {
		c, err := config.LoadStrategy(*strategyPath)
		if err != nil {
			logger.Fatalf("load strategy: %v", err)
		}
		cfg = &c
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := replay.NewSession(replay.SessionOptions{
		Logger:       logger,
		Verify:       *verify,
		StrictTokens: *strict,
	})
	stats, err := session.Load(ctx, ingestion.NewCSVSource(*dataPath))
	if err != nil {
		logger.Fatalf("load data: %v", err)
	}
	logger.Printf("Loaded %d records (%s .. %s)", stats.Count, stats.MinPeriod, stats.MaxPeriod)

	for _, period := range strings.Split(*periods, ",") {
		period = strings.TrimSpace(period)
		if period == "" {
			continue
		}
		state, err := session.ReplayState(ctx, period, cfg)
		if err != nil {
			logger.Fatalf("replay %s: %v", period, err)
		}

		if *outputJSON {
			output, _ := json.MarshalIndent(state, "", "  ")
			fmt.Println(string(output))
		} else {
			printState(state)
		}
	}
}

// printState outputs a human-readable replay state.
func printState(s *replay.State) {
	d := s.Draw
	fmt.Println()
	fmt.Printf("=== Period %s (index %d) ===\n", s.Period, s.Index)
	fmt.Printf("Date:               %s\n", d.Date)
	fmt.Printf("Numbers:            %v + %d\n", d.Numbers, d.Special)
	fmt.Printf("Attributes:         color=%s zodiac=%s size=%d parity=%d tail=%d\n",
		d.ColorLabel, d.ZodiacLabel, d.Size, d.Parity, d.Tail)
	fmt.Println()

	fmt.Println("Omission (top 10):")
	for _, kv := range topN(s.Indicators.Omission, 10) {
		fmt.Printf("  %-12s %4d   freq %3d\n", kv.key, kv.value, s.Indicators.Frequency[kv.key])
	}

	if s.Ledger == nil {
		return
	}
	fmt.Println()
	fmt.Println("Ledger:")
	fmt.Printf("  Capital:          %.2f\n", s.Ledger.Capital)
	fmt.Printf("  Profit:           %.2f\n", s.Ledger.Profit)
	fmt.Printf("  Win Rate:         %.2f%%\n", s.Ledger.WinRate*100)
	fmt.Printf("  Trades:           %d\n", s.Ledger.TotalTrades)

	if r := s.Betting.LastResult; r != nil {
		outcome := "miss"
		if r.Hit {
			outcome = "hit"
		}
		fmt.Printf("  Settled:          %s:%d stake %.2f %s, profit %.2f\n",
			r.Dimension, r.Value, r.Amount, outcome, r.Profit)
	}
	if b := s.Betting.NextBet; b != nil {
		fmt.Printf("  Next Bet:         %s stake %.2f (step %d)\n", b.Target, b.Amount, b.Step)
	}

	if s.Signal != nil {
		fmt.Println()
		fmt.Printf("Signal (%s): triggered=%t\n", s.Signal.LogicOperator, s.Signal.Triggered)
		for _, c := range s.Signal.Conditions {
			mark := " "
			if c.Passed {
				mark = "x"
			}
			fmt.Printf("  [%s] %s %s=%s actual %d %s %g\n",
				mark, c.Type, c.Dimension, c.Token, c.Actual, c.Operator, c.Threshold)
		}
	}
}

type keyValue struct {
	key   string
	value int
}

// topN returns the n largest entries, ties broken by key.
func topN(m map[string]int, n int) []keyValue {
	out := make([]keyValue, 0, len(m))
	for k, v := range m {
		out = append(out, keyValue{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
