package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksix-lab/internal/dispatch"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/replay"
)

const strategyBody = `{
	"entry": {
		"conditions": [
			{"type": "window_stat", "dimension": "size", "value": "big", "operator": "<", "threshold": 50}
		],
		"logicOperator": "AND"
	},
	"money": {"mode": "fixed", "params": {"baseBet": 5}}
}`

func newTestServer(t *testing.T, loaded int) (*httptest.Server, *replay.Session) {
	t.Helper()
	metrics := observability.NewMetrics("http_test")
	session := replay.NewSession(replay.SessionOptions{Metrics: metrics})
	if loaded > 0 {
		_, err := session.Load(context.Background(), ingestion.FixtureSource(loaded))
		require.NoError(t, err)
	}
	d := dispatch.New(dispatch.Options{Session: session, Metrics: metrics, Transport: "http"})
	srv := httptest.NewServer(NewRouter(RouterDeps{Dispatcher: d, Metrics: metrics}))
	t.Cleanup(srv.Close)
	return srv, session
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, false, got["dataset_loaded"])
}

func TestRouter_BacktestAndReplay(t *testing.T) {
	srv, session := newTestServer(t, 200)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/backtest", strategyBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result dispatch.BacktestResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 200, result.Periods)
	assert.NotEmpty(t, result.Curve)

	stats, err := session.DataStats()
	require.NoError(t, err)
	period := stats.Periods[150]

	resp, body = do(t, http.MethodGet, srv.URL+"/api/replay/"+period, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var state replay.State
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, period, state.Period)
	require.NotNil(t, state.Ledger)
	assert.Equal(t, result.RunID, state.RunID)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/replay/"+period, strategyBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestRouter_StatusMapping(t *testing.T) {
	srv, _ := newTestServer(t, 30)
	empty, _ := newTestServer(t, 0)

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		want   int
	}{
		{"unknown period", http.MethodGet, srv.URL + "/api/replay/1900001", "", http.StatusNotFound},
		{"bad load path", http.MethodPost, srv.URL + "/api/load", `{"file_path":"/missing.csv"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, srv.URL + "/api/backtest", `{`, http.StatusBadRequest},
		{"no dataset", http.MethodGet, empty.URL + "/api/stats", "", http.StatusConflict},
		{"stats", http.MethodGet, srv.URL + "/api/stats", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
		})
	}
}

func TestRouter_Command(t *testing.T) {
	srv, _ := newTestServer(t, 12)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/command", `{"cmd":"get_data_stats","request_id":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dispatch.Response
	require.NoError(t, json.NewDecoder(bytes.NewReader(body)).Decode(&out))
	assert.JSONEq(t, "5", string(out.RequestID))
	assert.Equal(t, dispatch.StatusSuccess, out.Data.Status)
	assert.Equal(t, 12, out.Data.Stats.Count)
}

func TestRouter_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, 12)

	do(t, http.MethodGet, srv.URL+"/api/stats", "")
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_test_dispatch_commands_total")
	assert.Contains(t, string(body), "http_test_dataset_records 12")
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/backtest", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:1420")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
