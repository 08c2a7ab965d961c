package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())

	assert.Equal(t, []string{
		"crisis-support-ai", "crisis-emergency-ai", "reentry-navigator-ai",
		"victim-support-ai", "ai-resource-discovery", "coach-k",
	}, reg.IDs())
}

func TestDefault_Limits(t *testing.T) {
	reg := Default()

	crisis, ok := reg.Lookup("crisis-support-ai")
	require.True(t, ok)
	assert.Equal(t, 10, crisis.RateLimit.MaxRequests(false))
	assert.Equal(t, 100, crisis.RateLimit.MaxRequests(true))
	assert.Equal(t, 5, crisis.RateLimit.WindowMinutes)
	assert.Equal(t, 15, crisis.Catalog.LookupLimit)
	assert.Equal(t, 8, crisis.Ranking.PresentationCap)

	reentry, _ := reg.Lookup("reentry-navigator-ai")
	assert.Equal(t, 20, reentry.Catalog.LookupLimit)
	assert.Equal(t, 12, reentry.Catalog.PromptCap)
	assert.Equal(t, 10, reentry.Ranking.PresentationCap)
	assert.True(t, reentry.Ranking.HonourTrustFlag)

	general, _ := reg.Lookup("ai-resource-discovery")
	assert.Equal(t, 50, general.Catalog.LookupLimit)
	assert.False(t, general.Catalog.VerifiedOnly)
	assert.Empty(t, general.Catalog.Types)

	coach, _ := reg.Lookup("coach-k")
	assert.True(t, coach.Streaming())

	_, ok = reg.Lookup("nope")
	assert.False(t, ok)
}

func TestTagged(t *testing.T) {
	assert.Equal(t,
		[]string{"crisis-support-ai", "crisis-emergency-ai", "victim-support-ai"},
		Default().Tagged("safety-critical"))
	assert.Empty(t, Default().Tagged("unknown"))
}

func TestLoadRegistry_RoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "endpoints.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Endpoints, 6)

	victim, ok := reg.Lookup("victim-support-ai")
	require.True(t, ok)
	assert.Len(t, victim.Ranking.KeywordGroups, 5)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `{`, "invalid endpoint registry"},
		{"no endpoints", `{"version":"1","endpoints":[]}`, "endpoints"},
		{"bad transport", `{"version":"1","endpoints":[{"id":"a","displayName":"A","persona":"general","transport":"ws",
			"rateLimit":{"anonymous":1,"authenticated":1,"windowMinutes":1},
			"catalog":{"lookupLimit":1,"promptCap":1},"ranking":{"mode":"scored","presentationCap":1}}]}`, "transport"},
		{"unknown persona", `{"version":"1","endpoints":[{"id":"a","displayName":"A","persona":"pirate","transport":"stream",
			"rateLimit":{"anonymous":1,"authenticated":1,"windowMinutes":1},
			"catalog":{"lookupLimit":1,"promptCap":1},"ranking":{"mode":"scored","presentationCap":1}}]}`, "persona"},
		{"authenticated below anonymous", `{"version":"1","endpoints":[{"id":"a","displayName":"A","persona":"general","transport":"stream",
			"rateLimit":{"anonymous":5,"authenticated":1,"windowMinutes":1},
			"catalog":{"lookupLimit":1,"promptCap":1},"ranking":{"mode":"scored","presentationCap":1}}]}`, "less than anonymous"},
		{"duplicate ids", `{"version":"1","endpoints":[
			{"id":"a","displayName":"A","persona":"general","transport":"stream",
			"rateLimit":{"anonymous":1,"authenticated":1,"windowMinutes":1},
			"catalog":{"lookupLimit":1,"promptCap":1},"ranking":{"mode":"scored","presentationCap":1}},
			{"id":"a","displayName":"A","persona":"general","transport":"stream",
			"rateLimit":{"anonymous":1,"authenticated":1,"windowMinutes":1},
			"catalog":{"lookupLimit":1,"promptCap":1},"ranking":{"mode":"scored","presentationCap":1}}]}`, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
