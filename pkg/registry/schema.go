// pkg/registry/schema.go
package registry

const (
	TransportBuffered = "buffered"
	TransportStream   = "stream"

	RankingScored = "scored"
	RankingFilter = "filter"
)

type EndpointRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Endpoints   []Endpoint `json:"endpoints"`
}

type Endpoint struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	Persona     string    `json:"persona"`
	Transport   string    `json:"transport"`
	RateLimit   RateLimit `json:"rateLimit"`
	Catalog     Catalog   `json:"catalog"`
	Ranking     Ranking   `json:"ranking"`
	WebSearch   bool      `json:"webSearch"`
	Tags        []string  `json:"tags,omitempty"`
}

type RateLimit struct {
	Anonymous     int `json:"anonymous"`
	Authenticated int `json:"authenticated"`
	WindowMinutes int `json:"windowMinutes"`
}

// Catalog drives the local lookup issued before reasoning.
type Catalog struct {
	Types        []string `json:"types,omitempty"`
	VerifiedOnly bool     `json:"verifiedOnly"`
	LookupLimit  int      `json:"lookupLimit"`
	PromptCap    int      `json:"promptCap"`
}

type Ranking struct {
	Mode            string         `json:"mode"`
	PresentationCap int            `json:"presentationCap"`
	KeywordGroups   []KeywordGroup `json:"keywordGroups,omitempty"`
	GenericTags     []string       `json:"genericTags,omitempty"`
	HonourTrustFlag bool           `json:"honourTrustFlag"`
}

type KeywordGroup struct {
	Triggers []string `json:"triggers"`
	Types    []string `json:"types"`
}

// MaxRequests returns the quota ceiling for the caller's tier.
func (r RateLimit) MaxRequests(authenticated bool) int {
	if authenticated {
		return r.Authenticated
	}
	return r.Anonymous
}

// Streaming reports whether the endpoint answers with server-sent events.
func (e Endpoint) Streaming() bool {
	return e.Transport == TransportStream
}

const registryJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "endpoints"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "lastUpdated": {"type": "string"},
    "endpoints": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "displayName", "persona", "transport", "rateLimit", "catalog", "ranking"],
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
          "displayName": {"type": "string", "minLength": 1},
          "persona": {"enum": ["crisis", "crisis-emergency", "reentry", "victim", "general", "coach"]},
          "transport": {"enum": ["buffered", "stream"]},
          "rateLimit": {
            "type": "object",
            "required": ["anonymous", "authenticated", "windowMinutes"],
            "properties": {
              "anonymous": {"type": "integer", "minimum": 1},
              "authenticated": {"type": "integer", "minimum": 1},
              "windowMinutes": {"type": "integer", "minimum": 1}
            }
          },
          "catalog": {
            "type": "object",
            "required": ["lookupLimit", "promptCap"],
            "properties": {
              "types": {"type": "array", "items": {"type": "string"}},
              "verifiedOnly": {"type": "boolean"},
              "lookupLimit": {"type": "integer", "minimum": 1},
              "promptCap": {"type": "integer", "minimum": 0}
            }
          },
          "ranking": {
            "type": "object",
            "required": ["mode", "presentationCap"],
            "properties": {
              "mode": {"enum": ["scored", "filter"]},
              "presentationCap": {"type": "integer", "minimum": 1},
              "keywordGroups": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["triggers", "types"],
                  "properties": {
                    "triggers": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
                    "types": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
                  }
                }
              },
              "genericTags": {"type": "array", "items": {"type": "string"}},
              "honourTrustFlag": {"type": "boolean"}
            }
          },
          "webSearch": {"type": "boolean"}
        }
      }
    }
  }
}`
