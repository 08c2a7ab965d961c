// internal/discovery/ranking/models.go
package ranking

type Mode string

const (
	// ModeScored orders kept resources by relevance score; ties keep store order.
	ModeScored Mode = "scored"
	// ModeFilter keeps store order exactly.
	ModeFilter Mode = "filter"
)

// KeywordGroup maps query trigger phrases to the resource types they select.
type KeywordGroup struct {
	Triggers []string `json:"triggers"`
	Types    []string `json:"types"`
}

// Profile is the per-endpoint ranking configuration.
type Profile struct {
	KeywordGroups   []KeywordGroup
	GenericTags     []string
	HonourTrustFlag bool
	PresentationCap int
	Mode            Mode
}

type Query struct {
	Text     string
	Locality string
}
