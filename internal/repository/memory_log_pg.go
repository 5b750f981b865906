package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"studymate-bot/internal/models"
)

// PostgresMemoryLog keeps memory lines in the memory_log table. Retention is
// left to the database operator.
type PostgresMemoryLog struct {
	pool *pgxpool.Pool
}

func NewPostgresMemoryLog(pool *pgxpool.Pool) *PostgresMemoryLog {
	return &PostgresMemoryLog{pool: pool}
}

func (r *PostgresMemoryLog) Append(ctx context.Context, userID int64, tier models.MemoryTier, line string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO memory_log (user_id, tier, line) VALUES ($1, $2, $3)",
		userID, string(tier), line,
	)
	if err != nil {
		return fmt.Errorf("append %s memory for user %d: %w", tier, userID, err)
	}
	return nil
}

func (r *PostgresMemoryLog) Load(ctx context.Context, userID int64, tier models.MemoryTier) (string, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT line FROM memory_log WHERE user_id = $1 AND tier = $2 ORDER BY id",
		userID, string(tier),
	)
	if err != nil {
		return "", fmt.Errorf("load %s memory for user %d: %w", tier, userID, err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), rows.Err()
}
