// internal/discovery/ranking/ranker.go
package ranking

import (
	"sort"
	"strings"

	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/models"
)

const Name = "ranking"

type Ranker struct {
	logger logger.Logger
}

func NewRanker(log logger.Logger) *Ranker {
	return &Ranker{
		logger: log.With(map[string]interface{}{
			"component": Name,
		}),
	}
}

type scored struct {
	resource models.Resource
	score    float64
}

// Rank filters resources by query relevance, orders them per the profile mode
// and truncates to the presentation cap. The input slice is not modified.
func (r *Ranker) Rank(resources []models.Resource, q Query, p Profile) []models.Resource {
	if len(resources) == 0 {
		return []models.Resource{}
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	group := matchGroup(text, p.KeywordGroups)

	kept := make([]scored, 0, len(resources))
	for _, res := range resources {
		if !keep(res, text, group, p) {
			continue
		}
		kept = append(kept, scored{resource: res})
	}

	if len(kept) == 0 {
		out := capped(resources, p.PresentationCap)
		r.logger.Debug("no relevant resources, returning store order", map[string]interface{}{
			"inputCount":  len(resources),
			"outputCount": len(out),
		})
		return out
	}

	if p.Mode != ModeFilter {
		terms := queryTerms(text)
		locality := strings.ToLower(strings.TrimSpace(q.Locality))
		for i := range kept {
			kept[i].score = score(kept[i].resource, terms, group, locality)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].score > kept[j].score
		})
	}

	out := make([]models.Resource, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.resource)
	}
	out = capped(out, p.PresentationCap)

	r.logger.Debug("ranking completed", map[string]interface{}{
		"inputCount":  len(resources),
		"outputCount": len(out),
		"mode":        p.Mode,
	})
	return out
}

func matchGroup(text string, groups []KeywordGroup) *KeywordGroup {
	if text == "" {
		return nil
	}
	for i := range groups {
		for _, trigger := range groups[i].Triggers {
			if trigger != "" && strings.Contains(text, strings.ToLower(trigger)) {
				return &groups[i]
			}
		}
	}
	return nil
}

func keep(res models.Resource, text string, group *KeywordGroup, p Profile) bool {
	if p.HonourTrustFlag && res.JusticeFriendly {
		return true
	}
	if text != "" && res.MatchesText(text) {
		return true
	}
	if group != nil {
		return typeContainsAny(res.Type, group.Types)
	}
	return typeContainsAny(res.Type, p.GenericTags)
}

// score rewards query term overlap, group type match, locality and verification.
func score(res models.Resource, terms []string, group *KeywordGroup, locality string) float64 {
	s := 0.0
	haystack := strings.ToLower(res.Name + " " + res.Description + " " + res.Type)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			s += 2
		}
	}
	if group != nil && typeContainsAny(res.Type, group.Types) {
		s += 3
	}
	if locality != "" &&
		(strings.EqualFold(res.City, locality) || strings.EqualFold(res.County, locality)) {
		s += 2
	}
	if res.Verified {
		s++
	}
	return s
}

func queryTerms(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})
	terms := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "need": true,
	"help": true, "can": true, "you": true, "where": true, "what": true,
	"how": true, "find": true, "get": true, "near": true, "some": true,
}

func typeContainsAny(kind string, tags []string) bool {
	kind = strings.ToLower(kind)
	if kind == "" {
		return false
	}
	for _, tag := range tags {
		if tag != "" && strings.Contains(kind, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func capped(resources []models.Resource, max int) []models.Resource {
	n := len(resources)
	if max > 0 && n > max {
		n = max
	}
	out := make([]models.Resource, n)
	copy(out, resources[:n])
	return out
}
