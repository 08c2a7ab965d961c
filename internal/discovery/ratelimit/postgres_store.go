// internal/discovery/ratelimit/postgres_store.go
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	countSinceQuery = `SELECT COUNT(*) FROM ai_rate_limits WHERE identifier = $1 AND endpoint = $2 AND created_at >= $3`
	recordQuery     = `INSERT INTO ai_rate_limits (identifier, endpoint, created_at) VALUES ($1, $2, $3)`
	pruneQuery      = `DELETE FROM ai_rate_limits WHERE identifier = $1 AND endpoint = $2 AND created_at < $3`
)

// PostgresStore stores one ai_rate_limits row per permitted request.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CountSince(ctx context.Context, identity, endpoint string, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countSinceQuery, identity, endpoint, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rate limit rows: %w", err)
	}
	return count, nil
}

// Record inserts the usage row and drops this identity's rows older than ttl.
func (s *PostgresStore) Record(ctx context.Context, identity, endpoint string, at time.Time, ttl time.Duration) error {
	if _, err := s.db.ExecContext(ctx, recordQuery, identity, endpoint, at.UTC()); err != nil {
		return fmt.Errorf("insert rate limit row: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, pruneQuery, identity, endpoint, at.Add(-ttl).UTC()); err != nil {
		return fmt.Errorf("prune rate limit rows: %w", err)
	}
	return nil
}
