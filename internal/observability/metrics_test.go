package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("mstest")

	m.RecordLoad(42, 3, 10*time.Millisecond, nil)
	m.RecordLoad(0, 0, time.Millisecond, errors.New("boom"))
	m.RecordBacktest(7, time.Millisecond, nil)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.RecordReplay(nil)
	m.RecordCommand("run_backtest", "stdio", time.Millisecond, nil)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordDBQuery("postgres", "insert_draws", time.Millisecond, errors.New("dup"))

	body := scrape(t, m)
	for _, want := range []string{
		`mstest_dataset_records 42`,
		`mstest_dataset_indicator_columns_reused 3`,
		`mstest_dataset_loads_total{status="success"} 1`,
		`mstest_dataset_loads_total{status="error"} 1`,
		`mstest_backtest_trades_simulated_total 7`,
		`mstest_backtest_cache_lookups_total{result="hit"} 1`,
		`mstest_backtest_cache_lookups_total{result="miss"} 2`,
		`mstest_replay_requests_total{status="success"} 1`,
		`mstest_dispatch_commands_total{cmd="run_backtest",status="success",transport="stdio"} 1`,
		`mstest_dispatch_active_sessions 1`,
		`mstest_database_query_errors_total{database="postgres",operation="insert_draws"} 1`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestMetrics_Isolated(t *testing.T) {
	a := NewMetrics("iso")
	b := NewMetrics("iso")
	a.RecordBacktest(5, time.Millisecond, nil)

	assert.Contains(t, scrape(t, a), "iso_backtest_trades_simulated_total 5")
	assert.Contains(t, scrape(t, b), "iso_backtest_trades_simulated_total 0")
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLoad(1, 1, time.Second, nil)
		m.RecordBacktest(1, time.Second, nil)
		m.RecordCacheLookup(true)
		m.RecordReplay(nil)
		m.RecordCommand("load_data", "http", time.Second, nil)
		m.SessionOpened()
		m.SessionClosed()
		m.RecordDBQuery("clickhouse", "get_all", time.Second, nil)
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}
