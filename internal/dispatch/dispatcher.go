package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/replay"
)

var (
	// ErrUnknownCommand is returned for a cmd outside the protocol.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidParams is returned when params do not decode or miss a required field.
	ErrInvalidParams = errors.New("invalid params")

	// ErrSourceUnavailable is returned when load_data names a source that is not configured.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// SourceResolver turns load_data params into an ingestion source.
type SourceResolver interface {
	Resolve(ctx context.Context, p LoadParams) (ingestion.Source, error)
}

// FileResolver resolves file paths to CSV sources. A bare name without
// extension ("all", "2024") is looked up as <DataDir>/history/<name>.csv.
// When Store is set, source "store" loads from it instead.
type FileResolver struct {
	DataDir string
	Store   ingestion.Source
}

// Resolve implements SourceResolver.
func (r FileResolver) Resolve(_ context.Context, p LoadParams) (ingestion.Source, error) {
	switch p.Source {
	case "", "csv":
	case "store":
		if r.Store == nil {
			return nil, fmt.Errorf("%w: store", ErrSourceUnavailable)
		}
		return r.Store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, p.Source)
	}

	path := strings.TrimSpace(p.FilePath)
	if r.DataDir != "" && filepath.Ext(path) == "" && !strings.ContainsRune(path, filepath.Separator) {
		if path == "" {
			path = "all"
		}
		path = filepath.Join(r.DataDir, "history", path+".csv")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: file_path is required", ErrInvalidParams)
	}
	return ingestion.NewCSVSource(path), nil
}

// Options contains configuration for creating a Dispatcher.
type Options struct {
	Session   *replay.Session // nil creates a private session
	Sources   SourceResolver  // nil means FileResolver{}
	Logger    *log.Logger
	Metrics   *observability.Metrics
	Transport string // metrics label
}

// Dispatcher routes protocol commands to a replay session.
type Dispatcher struct {
	session   *replay.Session
	sources   SourceResolver
	logger    *log.Logger
	metrics   *observability.Metrics
	transport string
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	session := opts.Session
	if session == nil {
		session = replay.NewSession(replay.SessionOptions{Logger: logger, Metrics: opts.Metrics})
	}
	var sources SourceResolver = FileResolver{}
	if opts.Sources != nil {
		sources = opts.Sources
	}
	transport := opts.Transport
	if transport == "" {
		transport = "direct"
	}
	return &Dispatcher{
		session:   session,
		sources:   sources,
		logger:    logger,
		metrics:   opts.Metrics,
		transport: transport,
	}
}

// Session returns the session commands run against.
func (d *Dispatcher) Session() *replay.Session {
	return d.session
}

// HandleLine decodes one JSON request and handles it. Malformed input is
// answered with an error reply carrying a null request id.
func (d *Dispatcher) HandleLine(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.logger.Printf("invalid request: %v", err)
		return Response{
			RequestID: nullID(nil),
			Type:      ResponseType,
			Data:      errorReply(fmt.Errorf("invalid request: %w", err)),
		}
	}
	return d.Handle(ctx, req)
}

// Handle executes one request and wraps the outcome in a protocol response.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	reply, err := d.Execute(ctx, req)
	if err != nil {
		reply = errorReply(err)
	}
	return Response{
		RequestID: nullID(req.RequestID),
		Type:      ResponseType,
		Data:      reply,
	}
}

// Execute runs one request and returns its success reply or a typed error.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Reply, error) {
	start := time.Now()
	d.logger.Printf("received command: %s", req.Cmd)

	reply, err := d.execute(ctx, req)
	if err != nil {
		d.logger.Printf("command %s failed: %v", req.Cmd, err)
	}
	d.metrics.RecordCommand(metricsCmd(req.Cmd), d.transport, time.Since(start), err)
	return reply, err
}

func (d *Dispatcher) execute(ctx context.Context, req Request) (Reply, error) {
	switch req.Cmd {
	case CmdLoadData:
		var p LoadParams
		if err := decodeParams(req.Params, &p); err != nil {
			return Reply{}, err
		}
		return d.loadData(ctx, p)

	case CmdRunBacktest:
		var p BacktestParams
		if err := decodeParams(req.Params, &p); err != nil {
			return Reply{}, err
		}
		return d.runBacktest(ctx, p)

	case CmdGetReplayState:
		var p ReplayParams
		if err := decodeParams(req.Params, &p); err != nil {
			return Reply{}, err
		}
		return d.replayState(ctx, p)

	case CmdGetDataStats:
		stats, err := d.session.DataStats()
		if err != nil {
			return Reply{}, err
		}
		return Reply{Status: StatusSuccess, Stats: stats}, nil

	default:
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Cmd)
	}
}

func (d *Dispatcher) loadData(ctx context.Context, p LoadParams) (Reply, error) {
	src, err := d.sources.Resolve(ctx, p)
	if err != nil {
		return Reply{}, err
	}
	stats, err := d.session.Load(ctx, src)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Loaded %d records", stats.Count),
		Stats:   stats,
	}, nil
}

func (d *Dispatcher) runBacktest(ctx context.Context, p BacktestParams) (Reply, error) {
	if p.StrategyConfig == nil {
		return Reply{}, fmt.Errorf("%w: strategy_config is required", ErrInvalidParams)
	}
	prev, hadPrev := d.session.LatestRun()
	run, err := d.session.RunBacktest(ctx, *p.StrategyConfig)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Status: StatusSuccess,
		Result: &BacktestResult{
			SimulationSummary: run.Summary,
			ConfigKey:         run.Key,
			Periods:           len(run.States),
			ElapsedMS:         run.Elapsed.Milliseconds(),
			Cached:            hadPrev && prev == run,
		},
	}, nil
}

func (d *Dispatcher) replayState(ctx context.Context, p ReplayParams) (Reply, error) {
	if p.Period == "" {
		return Reply{}, fmt.Errorf("%w: period is required", ErrInvalidParams)
	}
	state, err := d.session.ReplayState(ctx, p.Period, p.StrategyConfig)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Status: StatusSuccess, State: state}, nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// metricsCmd bounds label cardinality to the known commands.
func metricsCmd(cmd string) string {
	switch cmd {
	case CmdLoadData, CmdRunBacktest, CmdGetReplayState, CmdGetDataStats:
		return cmd
	default:
		return "unknown"
	}
}
