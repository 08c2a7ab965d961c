// internal/api/models.go
package api

import "resource-discovery/internal/models"

// OutcomeHeader carries the orchestration outcome: a header on JSON responses,
// a trailer on event streams.
const OutcomeHeader = "X-Discovery-Outcome"

// chatBody is the messages-style body accepted by streaming endpoints.
type chatBody struct {
	Messages     []models.ConversationTurn `json:"messages"`
	Location     string                    `json:"location,omitempty"`
	County       string                    `json:"county,omitempty"`
	UrgencyLevel models.Urgency            `json:"urgencyLevel,omitempty"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type rateLimitResponse struct {
	Error             string `json:"error"`
	RateLimitExceeded bool   `json:"rateLimitExceeded"`
	SupportMessage    string `json:"supportMessage,omitempty"`
	RetryAfter        int    `json:"retryAfter"`
}

type failureResponse struct {
	Error     string            `json:"error"`
	Resources []models.Resource `json:"resources"`
}

type contentFrame struct {
	Content string `json:"content"`
}

type resourcesFrame struct {
	Resources          []models.Resource `json:"resources"`
	WebResources       []models.Resource `json:"webResources"`
	UrgencyLevel       models.Urgency    `json:"urgencyLevel"`
	TotalResources     int               `json:"totalResources"`
	RateLimitRemaining *int              `json:"rateLimitRemaining,omitempty"`
	Outcome            models.Outcome    `json:"outcome"`
}

func frameFrom(r *models.OrchestrationResult) resourcesFrame {
	return resourcesFrame{
		Resources:          r.Resources,
		WebResources:       r.WebResources,
		UrgencyLevel:       r.UrgencyLevel,
		TotalResources:     r.TotalResources,
		RateLimitRemaining: r.RateLimitRemaining,
		Outcome:            r.Outcome,
	}
}
