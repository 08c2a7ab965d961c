// pkg/registry/defaults.go
package registry

var (
	crisisGroups = []KeywordGroup{
		{Triggers: []string{"suicide", "self-harm"}, Types: []string{"crisis", "mental health"}},
		{Triggers: []string{"domestic violence", "abuse"}, Types: []string{"domestic violence", "crisis"}},
		{Triggers: []string{"addiction", "substance"}, Types: []string{"substance abuse", "mental health"}},
	}
	crisisEmergencyGroups = []KeywordGroup{
		{Triggers: []string{"crisis", "emergency", "help"}, Types: []string{"crisis", "emergency", "support"}},
		{Triggers: []string{"mental health", "depression", "anxiety"}, Types: []string{"mental health", "counseling"}},
	}
	reentryGroups = []KeywordGroup{
		{Triggers: []string{"housing", "shelter", "apartment"}, Types: []string{"housing", "transitional"}},
		{Triggers: []string{"job", "employment", "work"}, Types: []string{"employment", "job training"}},
		{Triggers: []string{"legal", "expungement", "court"}, Types: []string{"legal aid", "advocacy"}},
		{Triggers: []string{"education", "school", "college"}, Types: []string{"education", "training"}},
		{Triggers: []string{"healthcare", "medical", "mental health"}, Types: []string{"healthcare", "mental health"}},
		{Triggers: []string{"family", "children", "parenting"}, Types: []string{"family", "support"}},
	}
	victimGroups = []KeywordGroup{
		{Triggers: []string{"legal", "rights", "lawyer"}, Types: []string{"legal aid", "advocacy"}},
		{Triggers: []string{"compensation", "financial", "money"}, Types: []string{"compensation", "financial"}},
		{Triggers: []string{"counseling", "therapy", "trauma"}, Types: []string{"counseling", "trauma", "mental health"}},
		{Triggers: []string{"domestic violence", "abuse"}, Types: []string{"domestic violence"}},
		{Triggers: []string{"sexual assault", "rape"}, Types: []string{"sexual assault"}},
	}
)

// Default returns the built-in endpoint registry.
func Default() *EndpointRegistry {
	return &EndpointRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-01-01T00:00:00Z",
		Endpoints: []Endpoint{
			{
				ID:          "crisis-support-ai",
				DisplayName: "Crisis Support",
				Persona:     "crisis",
				Transport:   TransportBuffered,
				RateLimit:   RateLimit{Anonymous: 10, Authenticated: 100, WindowMinutes: 5},
				Catalog: Catalog{
					Types:        []string{"crisis", "emergency", "mental health", "suicide", "domestic violence", "substance abuse"},
					VerifiedOnly: true,
					LookupLimit:  15,
					PromptCap:    10,
				},
				Ranking: Ranking{
					Mode:            RankingScored,
					PresentationCap: 8,
					KeywordGroups:   crisisGroups,
					GenericTags:     []string{"crisis", "emergency"},
				},
				WebSearch: true,
				Tags:      []string{"safety-critical"},
			},
			{
				ID:          "crisis-emergency-ai",
				DisplayName: "Crisis Emergency",
				Persona:     "crisis-emergency",
				Transport:   TransportBuffered,
				RateLimit:   RateLimit{Anonymous: 10, Authenticated: 100, WindowMinutes: 5},
				Catalog: Catalog{
					Types:        []string{"crisis", "emergency", "mental health", "support", "advocacy"},
					VerifiedOnly: true,
					LookupLimit:  15,
					PromptCap:    10,
				},
				Ranking: Ranking{
					Mode:            RankingScored,
					PresentationCap: 8,
					KeywordGroups:   crisisEmergencyGroups,
					GenericTags:     []string{"crisis", "support"},
				},
				WebSearch: true,
				Tags:      []string{"safety-critical"},
			},
			{
				ID:          "reentry-navigator-ai",
				DisplayName: "Reentry Navigator",
				Persona:     "reentry",
				Transport:   TransportBuffered,
				RateLimit:   RateLimit{Anonymous: 5, Authenticated: 50, WindowMinutes: 1440},
				Catalog: Catalog{
					Types: []string{"housing", "employment", "job training", "education", "reentry", "legal aid",
						"mental health", "substance abuse", "healthcare", "transportation"},
					VerifiedOnly: true,
					LookupLimit:  20,
					PromptCap:    12,
				},
				Ranking: Ranking{
					Mode:            RankingScored,
					PresentationCap: 10,
					KeywordGroups:   reentryGroups,
					GenericTags:     []string{"reentry"},
					HonourTrustFlag: true,
				},
				WebSearch: true,
			},
			{
				ID:          "victim-support-ai",
				DisplayName: "Victim Support",
				Persona:     "victim",
				Transport:   TransportBuffered,
				RateLimit:   RateLimit{Anonymous: 5, Authenticated: 50, WindowMinutes: 1440},
				Catalog: Catalog{
					Types: []string{"victim", "legal aid", "compensation", "counseling", "trauma", "advocacy",
						"domestic violence", "sexual assault"},
					VerifiedOnly: true,
					LookupLimit:  15,
					PromptCap:    10,
				},
				Ranking: Ranking{
					Mode:            RankingScored,
					PresentationCap: 8,
					KeywordGroups:   victimGroups,
					GenericTags:     []string{"victim", "advocacy"},
				},
				WebSearch: true,
				Tags:      []string{"safety-critical"},
			},
			{
				ID:          "ai-resource-discovery",
				DisplayName: "Resource Discovery",
				Persona:     "general",
				Transport:   TransportBuffered,
				RateLimit:   RateLimit{Anonymous: 5, Authenticated: 50, WindowMinutes: 1440},
				Catalog: Catalog{
					LookupLimit: 50,
					PromptCap:   50,
				},
				Ranking: Ranking{
					Mode:            RankingFilter,
					PresentationCap: 8,
				},
				WebSearch: false,
			},
			{
				ID:          "coach-k",
				DisplayName: "Coach K",
				Persona:     "coach",
				Transport:   TransportStream,
				RateLimit:   RateLimit{Anonymous: 5, Authenticated: 50, WindowMinutes: 1440},
				Catalog: Catalog{
					Types:        []string{"housing", "employment", "legal aid", "education", "food", "mental health", "childcare"},
					VerifiedOnly: true,
					LookupLimit:  20,
					PromptCap:    10,
				},
				Ranking: Ranking{
					Mode:            RankingScored,
					PresentationCap: 8,
					KeywordGroups:   reentryGroups,
					HonourTrustFlag: true,
				},
				WebSearch: false,
			},
		},
	}
}
