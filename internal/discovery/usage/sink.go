// internal/discovery/usage/sink.go
package usage

import (
	"context"
	"database/sql"
	"fmt"
)

// Usage is one served request as reported to analytics.
type Usage struct {
	Endpoint   string
	UserID     string
	LatencyMs  int64
	ErrorCount int
}

type Sink interface {
	Record(ctx context.Context, u Usage) error
}

// PostgresSink calls the log_ai_usage stored procedure.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

const logUsageQuery = `SELECT log_ai_usage($1, $2, $3, $4)`

func (s *PostgresSink) Record(ctx context.Context, u Usage) error {
	var userID sql.NullString
	if u.UserID != "" {
		userID = sql.NullString{String: u.UserID, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, logUsageQuery, u.Endpoint, userID, u.LatencyMs, u.ErrorCount); err != nil {
		return fmt.Errorf("log ai usage: %w", err)
	}
	return nil
}

// NopSink discards usage records.
type NopSink struct{}

func (NopSink) Record(context.Context, Usage) error { return nil }
