// internal/discovery/orchestrator/profile.go
package orchestrator

import (
	"fmt"

	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/discovery/ranking"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/models"
	"resource-discovery/pkg/registry"
)

// Profile is an endpoint's registry entry resolved into orchestrator terms.
type Profile struct {
	Endpoint  string
	Persona   persona.Persona
	Streaming bool
	RateLimit registry.RateLimit
	Catalog   registry.Catalog
	Ranking   ranking.Profile
	WebSearch bool
}

func ProfileFromEndpoint(ep registry.Endpoint) (Profile, error) {
	p, err := persona.Parse(ep.Persona)
	if err != nil {
		return Profile{}, fmt.Errorf("endpoint %s: %w", ep.ID, err)
	}

	groups := make([]ranking.KeywordGroup, 0, len(ep.Ranking.KeywordGroups))
	for _, g := range ep.Ranking.KeywordGroups {
		groups = append(groups, ranking.KeywordGroup{Triggers: g.Triggers, Types: g.Types})
	}
	mode := ranking.Mode(ep.Ranking.Mode)
	if mode == "" {
		mode = ranking.ModeScored
	}

	return Profile{
		Endpoint:  ep.ID,
		Persona:   p,
		Streaming: ep.Streaming(),
		RateLimit: ep.RateLimit,
		Catalog:   ep.Catalog,
		Ranking: ranking.Profile{
			KeywordGroups:   groups,
			GenericTags:     ep.Ranking.GenericTags,
			HonourTrustFlag: ep.Ranking.HonourTrustFlag,
			PresentationCap: ep.Ranking.PresentationCap,
			Mode:            mode,
		},
		WebSearch: ep.WebSearch,
	}, nil
}

// lookupFilter builds the catalog filter for a request.
func (p Profile) lookupFilter(req models.DiscoveryRequest) resourcestore.Filter {
	f := resourcestore.Filter{
		TypeLike:     p.Catalog.Types,
		VerifiedOnly: p.Catalog.VerifiedOnly,
		Limit:        p.Catalog.LookupLimit,
	}
	if req.ResourceType != "" && len(f.TypeLike) == 0 {
		f.TypeLike = []string{req.ResourceType}
	}
	f.Location = req.Location
	f.County = req.County
	return f
}
