// Package httpapi exposes a replay session over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marksix-lab/internal/dispatch"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/replay"
)

// maxBodySize bounds request bodies.
const maxBodySize = 4 << 20

// HandlerDeps are the dependencies of a Handler.
type HandlerDeps struct {
	Dispatcher *dispatch.Dispatcher
	Logger     *log.Logger
}

// Handler serves the REST endpoints. All endpoints share the dispatcher's session.
type Handler struct {
	d      *dispatch.Dispatcher
	logger *log.Logger
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{d: deps.Dispatcher, logger: logger}
}

// Health reports liveness and whether a dataset is loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.d.Session().Store()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"session_id":     h.d.Session().ID(),
		"dataset_loaded": err == nil,
	})
}

// Load loads a dataset. Body: {"file_path": "...", "source": "csv"|"store"}.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	var p dispatch.LoadParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	h.forward(w, r, dispatch.CmdLoadData, p)
}

// Backtest runs a strategy. Body: a strategy config.
func (h *Handler) Backtest(w http.ResponseWriter, r *http.Request) {
	var cfg domain.StrategyConfig
	if err := decode(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	h.forward(w, r, dispatch.CmdRunBacktest, dispatch.BacktestParams{StrategyConfig: &cfg})
}

// Replay returns the state at {period}. A POST body carries a strategy
// config to run first; GET uses the latest run.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	p := dispatch.ReplayParams{Period: chi.URLParam(r, "period")}
	if r.Method == http.MethodPost {
		var cfg domain.StrategyConfig
		if err := decode(r, &cfg); err != nil {
			writeError(w, err)
			return
		}
		p.StrategyConfig = &cfg
	}
	h.forward(w, r, dispatch.CmdGetReplayState, p)
}

// Stats returns metadata of the loaded dataset.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatch.CmdGetDataStats, nil)
}

// Command accepts a raw protocol request and returns the protocol response.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.d.HandleLine(r.Context(), body))
}

// forward runs cmd through the dispatcher so REST and protocol calls share
// metrics and logging, then unwraps the reply.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, cmd string, params any) {
	req := dispatch.Request{Cmd: cmd}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Params = raw
	}

	reply, err := h.d.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	switch {
	case reply.Result != nil:
		writeJSON(w, http.StatusOK, reply.Result)
	case reply.State != nil:
		writeJSON(w, http.StatusOK, reply.State)
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, outcome.ErrLoad),
		errors.Is(err, dispatch.ErrInvalidParams),
		errors.Is(err, dispatch.ErrUnknownCommand),
		errors.Is(err, dispatch.ErrSourceUnavailable),
		errors.Is(err, replay.ErrInvalidStrategy):
		return http.StatusBadRequest
	case errors.Is(err, replay.ErrPeriodNotFound):
		return http.StatusNotFound
	case errors.Is(err, replay.ErrNoDataset):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{
		"status":  dispatch.StatusError,
		"message": err.Error(),
	})
}
