// internal/discovery/audit/audit.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	ActionRateLimitExceeded = "AI_RATE_LIMIT_EXCEEDED"
	ResourceTypeEndpoint    = "ai_endpoint"
	SeverityWarn            = "warn"
)

type Event struct {
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	UserID       string                 `json:"user_id,omitempty"`
	Severity     string                 `json:"severity"`
	Details      map[string]interface{} `json:"details"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// RateLimitExceeded builds the event recorded for every rejected request.
func RateLimitExceeded(endpoint, identity, userID string, at time.Time) Event {
	return Event{
		Action:       ActionRateLimitExceeded,
		ResourceType: ResourceTypeEndpoint,
		UserID:       userID,
		Severity:     SeverityWarn,
		Details: map[string]interface{}{
			"endpoint":   endpoint,
			"identifier": identity,
		},
		OccurredAt: at.UTC(),
	}
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// PostgresRecorder appends to the audit_logs table.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

const insertAuditQuery = `
	INSERT INTO audit_logs (action, resource_type, user_id, severity, details, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (r *PostgresRecorder) Record(ctx context.Context, e Event) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	var userID sql.NullString
	if e.UserID != "" {
		userID = sql.NullString{String: e.UserID, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, insertAuditQuery,
		e.Action, e.ResourceType, userID, e.Severity, details, e.OccurredAt); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Publisher is satisfied by the shared SNS client.
type Publisher interface {
	PublishJSON(ctx context.Context, action string, payload interface{}) (string, error)
}

// SNSRecorder fans audit events out to a notification topic.
type SNSRecorder struct {
	publisher Publisher
}

func NewSNSRecorder(p Publisher) *SNSRecorder {
	return &SNSRecorder{publisher: p}
}

func (r *SNSRecorder) Record(ctx context.Context, e Event) error {
	if _, err := r.publisher.PublishJSON(ctx, e.Action, e); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Mailer is satisfied by the shared SES client.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// EmailRecorder alerts on-call staff when a watched endpoint rejects a caller.
// Events for endpoints outside the watch list are ignored.
type EmailRecorder struct {
	mailer     Mailer
	recipients []string
	watched    map[string]bool
}

func NewEmailRecorder(m Mailer, recipients []string, endpoints []string) *EmailRecorder {
	watched := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		watched[e] = true
	}
	return &EmailRecorder{mailer: m, recipients: recipients, watched: watched}
}

func (r *EmailRecorder) Record(ctx context.Context, e Event) error {
	endpoint, _ := e.Details["endpoint"].(string)
	if !r.watched[endpoint] {
		return nil
	}
	subject := fmt.Sprintf("[%s] %s on %s", e.Severity, e.Action, endpoint)
	body := fmt.Sprintf("A caller (%v) exhausted the quota of %s at %s.\n"+
		"Hotline referrals were returned in place of an AI response.",
		e.Details["identifier"], endpoint, e.OccurredAt.Format(time.RFC3339))
	if _, err := r.mailer.SendText(ctx, r.recipients, subject, body); err != nil {
		return fmt.Errorf("send audit alert: %w", err)
	}
	return nil
}

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
