// internal/models/resource.go
package models

import "strings"

// Provenance marks where a resource came from.
type Provenance string

const (
	ProvenanceCatalog Provenance = "catalog"
	ProvenanceWeb     Provenance = "web"
)

// Resource is a candidate support entity returned to chat widgets.
type Resource struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Organization    string     `json:"organization,omitempty" db:"organization"`
	Type            string     `json:"type" db:"type"`
	Description     string     `json:"description,omitempty" db:"description"`
	Phone           string     `json:"phone,omitempty" db:"phone"`
	Email           string     `json:"email,omitempty" db:"email"`
	Website         string     `json:"website,omitempty" db:"website"`
	City            string     `json:"city,omitempty" db:"city"`
	County          string     `json:"county,omitempty" db:"county"`
	Verified        bool       `json:"verified" db:"verified"`
	JusticeFriendly bool       `json:"justice_friendly" db:"justice_friendly"`
	Provenance      Provenance `json:"provenance"`
	Source          string     `json:"source,omitempty"`
}

// IsWeb reports whether the resource came from an online search.
func (r Resource) IsWeb() bool {
	return r.Provenance == ProvenanceWeb
}

// Locality returns the most specific locality tag available.
func (r Resource) Locality() string {
	if r.City != "" {
		return r.City
	}
	return r.County
}

// MatchesText reports whether name or description contains needle (case-insensitive).
func (r Resource) MatchesText(needle string) bool {
	if needle == "" {
		return false
	}
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle)
}
