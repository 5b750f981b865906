package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate-bot/internal/database"
	"studymate-bot/internal/models"
)

// newTestPostgresLog connects to TEST_DATABASE_URL and applies the schema.
// The test is skipped when no database is configured.
func newTestPostgresLog(t *testing.T) (*PostgresMemoryLog, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.RunMigrations(ctx, pool, zap.NewNop()))

	return NewPostgresMemoryLog(pool), pool
}

func TestPostgresMemoryLog_AppendLoadOrder(t *testing.T) {
	log, pool := newTestPostgresLog(t)
	ctx := context.Background()
	userID := time.Now().UnixNano()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM memory_log WHERE user_id = $1", userID)
	})

	empty, err := log.Load(ctx, userID, models.MemoryShort)
	require.NoError(t, err)
	assert.Empty(t, empty)

	lines := []string{"Material: cells", "Summary: short", "Task: draw a cell"}
	for _, line := range lines {
		require.NoError(t, log.Append(ctx, userID, models.MemoryShort, line))
	}
	require.NoError(t, log.Append(ctx, userID, models.MemoryLong, "Material: cells"))
	require.NoError(t, log.Append(ctx, userID+1, models.MemoryShort, "other user"))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM memory_log WHERE user_id = $1", userID+1)
	})

	short, err := log.Load(ctx, userID, models.MemoryShort)
	require.NoError(t, err)
	assert.Equal(t, "Material: cells\nSummary: short\nTask: draw a cell\n", short)
	assert.Equal(t, lines, SplitLines(short))

	long, err := log.Load(ctx, userID, models.MemoryLong)
	require.NoError(t, err)
	assert.Equal(t, "Material: cells\n", long)
}
