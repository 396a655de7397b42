package replay

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/simulation"
)

func martingaleRed() domain.StrategyConfig {
	return domain.StrategyConfig{
		Entry: domain.EntryRule{
			Conditions: []domain.Condition{{
				Type: domain.ConditionOmission, Dimension: domain.DimensionColor,
				Value: "red", Operator: domain.OperatorGTE, Threshold: 3,
			}},
			LogicOperator: domain.LogicAnd,
		},
		Money: domain.MoneyRule{
			Mode:   domain.MoneyModeMartingale,
			Params: domain.MoneyParams{BaseBet: 10, Multipliers: []float64{1, 2, 4, 8}},
		},
	}
}

func loadedSession(t *testing.T, n int) *Session {
	t.Helper()
	s := NewSession(SessionOptions{Metrics: observability.NewMetrics("test")})
	_, err := s.Load(context.Background(), ingestion.FixtureSource(n))
	require.NoError(t, err)
	return s
}

func TestSession_NoDataset(t *testing.T) {
	s := NewSession(SessionOptions{})
	ctx := context.Background()

	_, err := s.DataStats()
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = s.RunBacktest(ctx, martingaleRed())
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = s.ReplayState(ctx, "2020001", nil)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, ok := s.LatestRun()
	assert.False(t, ok)
}

func TestSession_DataStats(t *testing.T) {
	s := loadedSession(t, 120)

	stats, err := s.DataStats()
	require.NoError(t, err)
	assert.Equal(t, 120, stats.Count)
	assert.Len(t, stats.Periods, 120)
	assert.Len(t, stats.Dates, 120)
	assert.Equal(t, stats.Periods[0], stats.MinPeriod)
	assert.Equal(t, stats.Periods[119], stats.MaxPeriod)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, stats.Dates[0])
	assert.NotEmpty(t, stats.DatasetID)
	assert.Zero(t, stats.ReusedColumns)
}

func TestSession_ReplayUnknownPeriod(t *testing.T) {
	s := loadedSession(t, 30)

	_, err := s.ReplayState(context.Background(), "1999999", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPeriodNotFound))
}

func TestSession_ReplayMatchesEquityCurve(t *testing.T) {
	s := loadedSession(t, 250)
	ctx := context.Background()
	cfg := martingaleRed()

	run, err := s.RunBacktest(ctx, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, run.Summary.Curve)

	for _, pt := range run.Summary.Curve {
		st, err := s.ReplayState(ctx, pt.Period, nil)
		require.NoError(t, err, pt.Period)
		require.NotNil(t, st.Ledger, pt.Period)
		assert.Equal(t, pt.Index, st.Index)
		assert.InDelta(t, pt.Capital, st.Ledger.Capital, 1e-9, pt.Period)
	}

	last := run.Summary.Curve[len(run.Summary.Curve)-1]
	assert.InDelta(t, run.Summary.FinalCapital, last.Capital, 1e-9)
}

func TestSession_ReplayPayload(t *testing.T) {
	s := loadedSession(t, 150)
	ctx := context.Background()
	cfg := martingaleRed()

	stats, err := s.DataStats()
	require.NoError(t, err)
	period := stats.Periods[120]

	st, err := s.ReplayState(ctx, period, &cfg)
	require.NoError(t, err)

	assert.Equal(t, period, st.Period)
	assert.Equal(t, 120, st.Index)
	assert.Equal(t, stats.Dates[120], st.Draw.Date)
	assert.NotEmpty(t, st.Draw.ColorLabel)
	assert.NotEmpty(t, st.Draw.ZodiacLabel)

	// 3 + 12 + 2 + 2 + 10 + 49 values, one omission and one frequency each.
	assert.Len(t, st.Indicators.Omission, 78)
	assert.Len(t, st.Indicators.Frequency, 78)
	assert.Equal(t, 0, st.Indicators.Omission["color_"+strconv.Itoa(st.Draw.Color)])

	require.NotNil(t, st.Signal)
	require.Len(t, st.Signal.Conditions, 1)
	assert.Equal(t, st.Indicators.Omission["color_0"], st.Signal.Conditions[0].Actual)

	require.NotNil(t, st.Ledger)
	assert.Equal(t, simulation.InitialCapital, st.Ledger.InitialCapital)
	assert.NotEmpty(t, st.RunID)
	assert.LessOrEqual(t, len(st.RecentTrades), simulation.RecentTradesLimit)

	if st.Betting.NextBet != nil {
		assert.Equal(t, stats.Periods[121], st.Betting.NextBet.Period)
	}
}

func TestSession_ReplayWithoutRun(t *testing.T) {
	s := loadedSession(t, 20)

	st, err := s.ReplayState(context.Background(), "2020005", nil)
	require.NoError(t, err)
	assert.Nil(t, st.Ledger)
	assert.Nil(t, st.Signal)
	assert.Empty(t, st.RecentTrades)
	assert.NotEmpty(t, st.Indicators.Omission)
}

func TestSession_CacheHit(t *testing.T) {
	s := loadedSession(t, 100)
	ctx := context.Background()

	first, err := s.RunBacktest(ctx, martingaleRed())
	require.NoError(t, err)
	second, err := s.RunBacktest(ctx, martingaleRed())
	require.NoError(t, err)
	assert.Same(t, first, second)

	other := martingaleRed()
	other.Money.Params.BaseBet = 20
	third, err := s.RunBacktest(ctx, other)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	latest, ok := s.LatestRun()
	require.True(t, ok)
	assert.Same(t, third, latest)
}

func TestSession_LoadClearsCache(t *testing.T) {
	s := loadedSession(t, 60)
	ctx := context.Background()

	_, err := s.RunBacktest(ctx, martingaleRed())
	require.NoError(t, err)

	_, err = s.Load(ctx, ingestion.FixtureSource(80))
	require.NoError(t, err)

	_, ok := s.LatestRun()
	assert.False(t, ok)
}

func TestSession_FailedLoadKeepsDataset(t *testing.T) {
	s := loadedSession(t, 40)
	before, err := s.DataStats()
	require.NoError(t, err)

	_, err = s.Load(context.Background(), ingestion.NewCSVSource("does/not/exist.csv"))
	require.Error(t, err)

	after, err := s.DataStats()
	require.NoError(t, err)
	assert.Equal(t, before.DatasetID, after.DatasetID)
}

func TestSession_ConcurrentIdenticalRuns(t *testing.T) {
	s := loadedSession(t, 300)
	ctx := context.Background()

	const workers = 16
	runs := make([]*simulation.Run, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := s.RunBacktest(ctx, martingaleRed())
			assert.NoError(t, err)
			runs[i] = run
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, runs[0], runs[i])
	}
}

func TestSession_StrictTokens(t *testing.T) {
	s := NewSession(SessionOptions{StrictTokens: true})
	_, err := s.Load(context.Background(), ingestion.FixtureSource(20))
	require.NoError(t, err)

	cfg := martingaleRed()
	cfg.Entry.Conditions[0].Value = "purple"
	_, err = s.RunBacktest(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid strategy")
}

func TestSession_CancelledContext(t *testing.T) {
	s := loadedSession(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunBacktest(ctx, martingaleRed())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_ReplayNeverMixesDatasets(t *testing.T) {
	ctx := context.Background()
	s := loadedSession(t, 60)
	stale, err := s.Store()
	require.NoError(t, err)

	_, err = s.Load(ctx, ingestion.FixtureSource(80))
	require.NoError(t, err)
	current, err := s.Store()
	require.NoError(t, err)
	require.NotEqual(t, stale.ID(), current.ID())

	cfg := martingaleRed()
	// Warm the cache for the new dataset with the same config.
	_, err = s.RunBacktest(ctx, cfg)
	require.NoError(t, err)

	period := stale.Record(10).Period
	_, err = s.runOn(ctx, stale, cfg)
	assert.ErrorIs(t, err, errDatasetReplaced)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = s.replayOn(ctx, stale, period, &cfg)
	assert.ErrorIs(t, err, errDatasetReplaced)

	// The public path picks up the current dataset.
	state, err := s.ReplayState(ctx, period, &cfg)
	require.NoError(t, err)
	run, ok := s.LatestRun()
	require.True(t, ok)
	assert.Len(t, run.States, current.Len())
	assert.Equal(t, period, state.Period)
	assert.Equal(t, current.Record(10).Special, state.Draw.Special)
}
