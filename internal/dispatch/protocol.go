// Package dispatch serves the command protocol shared by the stdio,
// WebSocket and HTTP transports.
//
// A request is one JSON object:
//
//	{"cmd": "run_backtest", "params": {...}, "request_id": "42"}
//
// and is answered by:
//
//	{"request_id": "42", "type": "response", "data": {"status": "success", ...}}
package dispatch

import (
	"encoding/json"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/replay"
)

// Commands
const (
	CmdLoadData       = "load_data"
	CmdRunBacktest    = "run_backtest"
	CmdGetReplayState = "get_replay_state"
	CmdGetDataStats   = "get_data_stats"
)

// Reply statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ResponseType tags every response so clients can tell replies from other frames.
const ResponseType = "response"

// Request is one inbound command.
type Request struct {
	Cmd       string          `json:"cmd"`
	Params    json.RawMessage `json:"params,omitempty"`
	RequestID json.RawMessage `json:"request_id,omitempty"` // echoed verbatim
}

// Response wraps a Reply with the request id it answers.
type Response struct {
	RequestID json.RawMessage `json:"request_id"`
	Type      string          `json:"type"`
	Data      Reply           `json:"data"`
}

// Reply is the command payload. Only the field matching the command is set.
type Reply struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Result  *BacktestResult   `json:"result,omitempty"`
	State   *replay.State     `json:"state,omitempty"`
	Stats   *replay.DataStats `json:"stats,omitempty"`
}

// BacktestResult is the reply of run_backtest.
type BacktestResult struct {
	domain.SimulationSummary
	ConfigKey string `json:"config_key"`
	Periods   int    `json:"periods"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Cached    bool   `json:"cached"`
}

// LoadParams are the params of load_data.
type LoadParams struct {
	FilePath string `json:"file_path"`
	Source   string `json:"source,omitempty"` // "csv" (default) or "store"
}

// BacktestParams are the params of run_backtest.
type BacktestParams struct {
	StrategyConfig *domain.StrategyConfig `json:"strategy_config"`
}

// ReplayParams are the params of get_replay_state.
type ReplayParams struct {
	Period         string                 `json:"period"`
	StrategyConfig *domain.StrategyConfig `json:"strategy_config,omitempty"`
}

func errorReply(err error) Reply {
	return Reply{Status: StatusError, Message: err.Error()}
}

func nullID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
