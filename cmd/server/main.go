// Package main runs the backtest service:
//   - HTTP API and WebSocket command protocol on one listener, with /metrics
//   - or the line-delimited command protocol on stdin/stdout (--stdio)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marksix-lab/internal/config"
	"marksix-lab/internal/dispatch"
	"marksix-lab/internal/httpapi"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/orchestrator"
	"marksix-lab/internal/replay"
	"marksix-lab/internal/simulation"
)

func main() {
	// Load .env file if exists
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("warning: %v", err)
	}

	configPath := flag.String("config", os.Getenv("MARKSIX_CONFIG"), "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dataDir := flag.String("data-dir", "", "Directory holding history/<name>.csv (overrides config)")
	stdio := flag.Bool("stdio", false, "Serve the command protocol on stdin/stdout instead of HTTP")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("apply env: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	// Stdout carries protocol responses in stdio mode.
	logger := log.New(os.Stderr, "[server] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := observability.NewMetrics(cfg.Server.MetricsPrefix)

	resolver := dispatch.FileResolver{DataDir: cfg.Data.Dir}
	if cfg.Postgres.DSN != "" {
		stores, err := orchestrator.OpenStores(ctx, orchestrator.StoreOptions{
			PostgresDSN:   cfg.Postgres.DSN,
			ClickhouseDSN: cfg.Clickhouse.DSN,
			Metrics:       m,
		})
		if err != nil {
			logger.Fatalf("open stores: %v", err)
		}
		defer stores.Close()
		resolver.Store = stores.Source("store")
		logger.Printf("Store source enabled (indicators: %t)", stores.Indicators != nil)
	}

	sessionOpts := replay.SessionOptions{
		Logger:       logger,
		Metrics:      m,
		Engine:       simulation.NewEngine(simulation.EngineOptions{Logger: logger, InitialCapital: cfg.Backtest.InitialCapital}),
		Verify:       cfg.Data.Verify,
		StrictTokens: cfg.Backtest.StrictTokens,
	}
	shared := replay.NewSession(sessionOpts)

	if cfg.Data.Source != "" {
		src, err := resolver.Resolve(ctx, dispatch.LoadParams{FilePath: cfg.Data.Source})
		if err != nil {
			logger.Fatalf("resolve startup dataset: %v", err)
		}
		stats, err := shared.Load(ctx, src)
		if err != nil {
			logger.Fatalf("load startup dataset: %v", err)
		}
		logger.Printf("Loaded %d records from %s", stats.Count, stats.Source)
	}

	if *stdio {
		d := dispatch.New(dispatch.Options{
			Session:   shared,
			Sources:   resolver,
			Logger:    logger,
			Metrics:   m,
			Transport: "stdio",
		})
		logger.Println("Serving command protocol on stdio")
		if err := d.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("stdio: %v", err)
		}
		return
	}

	wsCfg := dispatch.WSConfig{
		PingInterval:   cfg.WebSocket.PingInterval,
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}
	wsOpts := dispatch.WSOptions{
		Config:         &wsCfg,
		Logger:         logger,
		Metrics:        m,
		Sources:        resolver,
		SessionOptions: sessionOpts,
	}
	if cfg.Server.SharedSession {
		wsOpts.Shared = shared
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Dispatcher: dispatch.New(dispatch.Options{
			Session:   shared,
			Sources:   resolver,
			Logger:    logger,
			Metrics:   m,
			Transport: "http",
		}),
		WS:             dispatch.NewWSHandler(wsOpts),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s (data dir %s, shared ws session %t)",
			cfg.Server.Addr, cfg.Data.Dir, cfg.Server.SharedSession)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	case <-ctx.Done():
		logger.Println("Shutting down...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}
	logger.Println("Shutdown complete")
}
