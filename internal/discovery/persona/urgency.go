// internal/discovery/persona/urgency.go
package persona

import (
	"strings"

	"resource-discovery/internal/models"
)

var immediatePhrases = []string{
	"suicide", "kill myself", "end my life", "self-harm", "hurt myself",
	"overdose", "in danger", "not safe", "unsafe", "being attacked",
	"going to hurt me", "emergency", "right now",
}

var urgentPhrases = []string{
	"eviction", "evicted", "court tomorrow", "no food today", "homeless tonight",
	"shelter tonight", "nowhere to sleep", "released today",
}

// ClassifyUrgency honours an explicit level and otherwise derives one from the query.
func ClassifyUrgency(requested models.Urgency, query string) models.Urgency {
	if requested.Valid() {
		return requested
	}
	q := strings.ToLower(query)
	for _, phrase := range immediatePhrases {
		if strings.Contains(q, phrase) {
			return models.UrgencyImmediate
		}
	}
	for _, phrase := range urgentPhrases {
		if strings.Contains(q, phrase) {
			return models.UrgencyUrgent
		}
	}
	return models.UrgencyModerate
}
