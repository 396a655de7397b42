package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
	"marksix-lab/internal/storage/clickhouse"
	"marksix-lab/internal/storage/migrations"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *clickhouse.Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/marksix_test", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestIndicatorStore(t *testing.T) {
	conn := setupTestDB(t)
	store := clickhouse.NewIndicatorStore(conn)
	ctx := context.Background()

	cells := []*domain.IndicatorValue{
		{Period: "2020002", Column: "om_color_1", Value: 0},
		{Period: "2020001", Column: "om_color_0", Value: 3},
		{Period: "2020001", Column: "om_color_1", Value: 1},
		{Period: "2020002", Column: "om_color_0", Value: 4},
	}

	t.Run("InsertBulk and GetAll", func(t *testing.T) {
		require.NoError(t, store.InsertBulk(ctx, cells))

		got, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "2020001", got[0].Period)
		assert.Equal(t, "om_color_0", got[0].Column)
		assert.Equal(t, 3, got[0].Value)
		assert.Equal(t, "2020002", got[3].Period)
		assert.Equal(t, "om_color_1", got[3].Column)
	})

	t.Run("GetByPeriod", func(t *testing.T) {
		got, err := store.GetByPeriod(ctx, "2020002")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 4, got[0].Value)
		assert.Equal(t, 0, got[1].Value)

		got, err = store.GetByPeriod(ctx, "1999001")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate against existing", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.IndicatorValue{
			{Period: "2020003", Column: "om_color_0", Value: 5},
			{Period: "2020001", Column: "om_color_0", Value: 9},
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.GetByPeriod(ctx, "2020003")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate within batch", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.IndicatorValue{
			{Period: "2020004", Column: "om_color_0", Value: 1},
			{Period: "2020004", Column: "om_color_0", Value: 2},
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.IndicatorValue{{Period: "2020005", Column: "om_color_0", Value: -1}})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})
}
