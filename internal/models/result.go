// internal/models/result.go
package models

import "time"

// Outcome classifies how a request was served.
type Outcome string

const (
	OutcomeRateLimited         Outcome = "rate_limited"
	OutcomeUpstreamUnavailable Outcome = "upstream_unavailable"
	OutcomeDegraded            Outcome = "ok_degraded"
	OutcomeOK                  Outcome = "ok"
)

// OrchestrationResult is the unit returned to callers.
type OrchestrationResult struct {
	Response           string     `json:"response"`
	Resources          []Resource `json:"resources"`
	WebResources       []Resource `json:"webResources"`
	UrgencyLevel       Urgency    `json:"urgencyLevel"`
	TotalResources     int        `json:"totalResources"`
	RateLimitRemaining *int       `json:"rateLimitRemaining,omitempty"`

	Outcome        Outcome       `json:"-"`
	RetryAfter     time.Duration `json:"-"`
	SupportMessage string        `json:"-"`
	RequestID      string        `json:"-"`
	Endpoint       string        `json:"-"`
	States         []string      `json:"-"`
}

// Empty reports whether the result carries nothing to show.
func (r *OrchestrationResult) Empty() bool {
	return r.Response == "" && len(r.Resources) == 0 && len(r.WebResources) == 0
}
