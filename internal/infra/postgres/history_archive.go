package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"timelyhub-quiz-engine/internal/domain"
)

// HistoryArchive mirrors finished sessions into Postgres as JSONB rows. It is
// a secondary, best-effort sink: the local session store stays the source of
// truth for the history viewer, the archive survives process restarts.
type HistoryArchive struct {
	pool *pgxpool.Pool
}

func NewHistoryArchive(pool *pgxpool.Pool) *HistoryArchive {
	return &HistoryArchive{pool: pool}
}

func (a *HistoryArchive) Archive(ctx context.Context, record domain.CompletedSession) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quiz_history (id, player_name, score, total_questions, completed_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		record.ID, record.PlayerName, record.Score, record.TotalQuestions, record.CompletedAt, data)
	if err != nil {
		return fmt.Errorf("archive record: %w", err)
	}
	return nil
}

// Recent returns the newest archived sessions, most recent first.
func (a *HistoryArchive) Recent(ctx context.Context, limit int) ([]domain.CompletedSession, error) {
	if limit <= 0 {
		limit = domain.MaxHistory
	}
	rows, err := a.pool.Query(ctx,
		`SELECT data FROM quiz_history ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var records []domain.CompletedSession
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		var record domain.CompletedSession
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
