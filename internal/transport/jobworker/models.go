// internal/transport/jobworker/models.go
package jobworker

import "resource-discovery/internal/models"

// Input is the job variable payload.
type Input struct {
	Endpoint string                  `json:"endpoint"`
	Identity IdentityInput           `json:"identity"`
	Request  models.DiscoveryRequest `json:"request"`
}

// IdentityInput names the caller on whose behalf the process runs.
type IdentityInput struct {
	UserID  string `json:"userId,omitempty"`
	Address string `json:"address,omitempty"`
}

// Output is written back as process variables.
type Output struct {
	Response           string            `json:"response"`
	Resources          []models.Resource `json:"resources"`
	WebResources       []models.Resource `json:"webResources"`
	UrgencyLevel       models.Urgency    `json:"urgencyLevel"`
	TotalResources     int               `json:"totalResources"`
	RateLimitRemaining *int              `json:"rateLimitRemaining,omitempty"`
	Outcome            models.Outcome    `json:"outcome"`
}
