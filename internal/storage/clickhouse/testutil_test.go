package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	chstore "github.com/SteelyNinja/rocketpool-performance/internal/storage/clickhouse"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container with the validators tables and
// returns a connection. Returns a cleanup function that must be called when
// done.
func setupTestDB(t *testing.T) (*chstore.Conn, func()) {
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
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := chstore.NewConn(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, migrations.ApplyClickhouse(ctx, conn))

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// insertSummaryRow inserts one validators_summary row.
func insertSummaryRow(t *testing.T, conn *chstore.Conn, epoch, valID int64, status string, attHappened uint8, earned, missed, penalty, balance, effective int64) {
	t.Helper()
	err := conn.Exec(context.Background(), `
		INSERT INTO validators_summary
			(epoch, val_id, val_status, att_happened, att_earned_reward,
			 att_missed_reward, att_penalty, val_balance, val_effective_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, epoch, valID, status, attHappened, earned, missed, penalty, balance, effective)
	require.NoError(t, err)
}

// insertIndexRow inserts one validators_index row; pubkey is stored with the
// 0x prefix, matching the production index.
func insertIndexRow(t *testing.T, conn *chstore.Conn, valID int64, pubkey string) {
	t.Helper()
	err := conn.Exec(context.Background(), `
		INSERT INTO validators_index (val_id, val_pubkey) VALUES (?, ?)
	`, valID, "0x"+pubkey)
	require.NoError(t, err)
}
