package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"classlive-session-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists final session standings as JSONB so they survive the
// in-memory session's retention window.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result.Leaderboard)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_results (code, quiz_id, host_id, leaderboard, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code, ended_at) DO NOTHING`,
		result.Code, result.QuizID, result.HostID, data, result.EndedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
