// internal/models/request.go
package models

// Urgency is the caller-supplied or derived urgency classification.
type Urgency string

const (
	UrgencyImmediate     Urgency = "immediate"
	UrgencyUrgent        Urgency = "urgent"
	UrgencyModerate      Urgency = "moderate"
	UrgencyInformational Urgency = "informational"
)

// Valid reports whether u is one of the enumerated urgency levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyImmediate, UrgencyUrgent, UrgencyModerate, UrgencyInformational:
		return true
	}
	return false
}

// DiscoveryRequest is the inbound chat request body.
type DiscoveryRequest struct {
	Query           string             `json:"query"`
	Location        string             `json:"location,omitempty"`
	County          string             `json:"county,omitempty"`
	UrgencyLevel    Urgency            `json:"urgencyLevel,omitempty"`
	ResourceType    string             `json:"resourceType,omitempty"`
	PreviousContext []ConversationTurn `json:"previousContext,omitempty"`
}

// LocalityHint returns the location filter applied to catalog lookups.
func (r DiscoveryRequest) LocalityHint() string {
	if r.Location != "" {
		return r.Location
	}
	return r.County
}
