// internal/discovery/resourcestore/store.go
package resourcestore

import (
	"context"
	"errors"
	"strings"

	"resource-discovery/internal/models"
)

var ErrStoreUnavailable = errors.New("STORE_UNAVAILABLE")

// Filter selects catalog resources for a persona lookup.
type Filter struct {
	// TypeLike matches resources whose type contains any of the values.
	TypeLike []string `json:"typeLike,omitempty"`
	// Location matches either city or county.
	Location     string `json:"location,omitempty"`
	County       string `json:"county,omitempty"`
	VerifiedOnly bool   `json:"verifiedOnly,omitempty"`
	Limit        int    `json:"limit"`
}

// KeywordQuery is the degraded direct search: any term may match name,
// description or type.
type KeywordQuery struct {
	Terms    []string `json:"terms"`
	Location string   `json:"location,omitempty"`
	Limit    int      `json:"limit"`
}

// Store is the catalog collaborator. Implementations tag results with catalog provenance.
type Store interface {
	Query(ctx context.Context, filter Filter) ([]models.Resource, error)
	SearchKeywords(ctx context.Context, query KeywordQuery) ([]models.Resource, error)
}

// KeywordTerms returns up to max lowercase tokens of the raw query.
func KeywordTerms(query string, max int) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '\'' || r > 127)
	})
	if len(fields) > max {
		fields = fields[:max]
	}
	return fields
}

// likePattern escapes LIKE wildcards and wraps value in %...%.
func likePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(value) + "%"
}

func tagCatalog(resources []models.Resource) []models.Resource {
	for i := range resources {
		resources[i].Provenance = models.ProvenanceCatalog
	}
	return resources
}
