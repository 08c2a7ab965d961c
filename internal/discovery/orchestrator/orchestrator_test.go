package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "resource-discovery/internal/common/errors"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/discovery/audit"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/discovery/ratelimit"
	"resource-discovery/internal/discovery/reasoning"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/discovery/usage"
	"resource-discovery/internal/discovery/websearch"
	"resource-discovery/internal/models"
	"resource-discovery/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeStore struct {
	mu          sync.Mutex
	resources   []models.Resource
	keyword     []models.Resource
	queryErr    error
	keywordErr  error
	filters     []resourcestore.Filter
	keywordArgs []resourcestore.KeywordQuery
}

func (s *fakeStore) Query(ctx context.Context, f resourcestore.Filter) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return append([]models.Resource(nil), s.resources...), nil
}

func (s *fakeStore) SearchKeywords(ctx context.Context, q resourcestore.KeywordQuery) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywordArgs = append(s.keywordArgs, q)
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return append([]models.Resource(nil), s.keyword...), nil
}

type fakeReasoner struct {
	mu       sync.Mutex
	text     string
	chunks   []string
	err      error
	requests []reasoning.Request
}

func (r *fakeReasoner) Generate(ctx context.Context, req reasoning.Request, onChunk reasoning.ChunkFunc) (*reasoning.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if req.Stream && onChunk != nil && len(r.chunks) > 0 {
		text := ""
		for _, c := range r.chunks {
			if err := onChunk(c); err != nil {
				return nil, err
			}
			text += c
		}
		// a set err after chunks models a stream that breaks partway
		if r.err != nil {
			return nil, r.err
		}
		return &reasoning.Response{Text: text, Streamed: true}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return &reasoning.Response{Text: r.text}, nil
}

func (r *fakeReasoner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

type fakeSearcher struct {
	results []models.Resource
	err     error
	calls   int
}

func (s *fakeSearcher) Search(ctx context.Context, req websearch.Request) ([]models.Resource, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type captureSink struct {
	chunks []string
	resets int
}

func (c *captureSink) WriteChunk(chunk string) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *captureSink) Reset() error {
	c.resets++
	c.chunks = nil
	return nil
}

type captureAudit struct {
	mu     sync.Mutex
	events []audit.Event
	delay  time.Duration
}

func (c *captureAudit) Record(ctx context.Context, e audit.Event) error {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureAudit) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type captureUsage struct {
	mu      sync.Mutex
	records []usage.Usage
}

func (c *captureUsage) Record(ctx context.Context, u usage.Usage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, u)
	return nil
}

type countingObserver struct {
	outcomes []string
}

func (o *countingObserver) RecordRequest(ctx context.Context, endpoint, outcome string, d time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

type harness struct {
	orch     *Orchestrator
	store    *fakeStore
	reasoner *fakeReasoner
	searcher *fakeSearcher
	audit    *captureAudit
	usage    *captureUsage
	recorder *usage.Recorder
	observer *countingObserver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)
	h := &harness{
		store:    &fakeStore{},
		reasoner: &fakeReasoner{text: "Here are some options near you."},
		searcher: &fakeSearcher{},
		audit:    &captureAudit{},
		usage:    &captureUsage{},
		observer: &countingObserver{},
	}
	h.recorder = usage.NewRecorder(h.usage, time.Second, log)

	orch, err := New(DefaultConfig(), Dependencies{
		Registry: registry.Default(),
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), log),
		Store:    h.store,
		Reasoner: h.reasoner,
		Searcher: h.searcher,
		Usage:    h.recorder,
		Audit:    h.audit,
		Observer: h.observer,
		Logger:   log,
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

func request(endpoint, query string) Request {
	return Request{
		Endpoint:  endpoint,
		RequestID: "req-1",
		Identity:  ratelimit.IdentityFromAddress("203.0.113.7"),
		Body:      models.DiscoveryRequest{Query: query},
	}
}

func catalogResource(name, typ, city string) models.Resource {
	return models.Resource{
		ID:         name,
		Name:       name,
		Type:       typ,
		City:       city,
		Verified:   true,
		Provenance: models.ProvenanceCatalog,
	}
}

func webResource(name string) models.Resource {
	return models.Resource{
		ID:         "web-" + name,
		Name:       name,
		Type:       "web_search",
		Provenance: models.ProvenanceWeb,
		Source:     websearch.Source,
	}
}

func assertNonEmpty(t *testing.T, result *models.OrchestrationResult) {
	t.Helper()
	assert.False(t, result.Empty(), "result must carry a message or resources")
	assert.NotEmpty(t, result.Response)
}

// ==========================
// Construction
// ==========================

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, Dependencies{Registry: registry.Default()})
	assert.Error(t, err)
}

func TestNew_RejectsUnknownPersona(t *testing.T) {
	reg := registry.Default()
	reg.Endpoints[0].Persona = "astrologer"

	_, err := New(nil, Dependencies{
		Registry: reg,
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), logger.NewNoOpLogger()),
		Store:    &fakeStore{},
		Reasoner: &fakeReasoner{},
	})
	assert.Error(t, err)
}

func TestExecute_UnknownEndpoint(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Execute(context.Background(), request("nope", "help"), nil)

	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeNotFound, se.Code)
}

func TestExecute_EmptyQuery(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "   "), nil)

	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeValidation, se.Code)
	assert.Zero(t, h.reasoner.calls())
}

// ==========================
// Happy path and scenarios
// ==========================

func TestExecute_ScenarioA_LocalResourcesSuffice(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.store.resources = append(h.store.resources,
			catalogResource(fmt.Sprintf("Columbus Housing %d", i), "housing", "Columbus"))
	}
	req := request("reentry-navigator-ai", "I need housing options")
	req.Body.Location = "Columbus"

	result, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeOK, result.Outcome)
	assert.LessOrEqual(t, len(result.Resources), 10)
	assert.Len(t, result.Resources, 5)
	for _, r := range result.Resources {
		assert.Contains(t, r.Type, "housing")
	}
	assert.Empty(t, result.WebResources)
	assert.Zero(t, h.searcher.calls, "web search skipped when the catalog meets the threshold")
	assert.Equal(t, 5, result.TotalResources)
	require.NotNil(t, result.RateLimitRemaining)
	assert.Equal(t, 4, *result.RateLimitRemaining)

	require.Len(t, h.store.filters, 1)
	assert.Equal(t, "Columbus", h.store.filters[0].Location)
	assert.True(t, h.store.filters[0].VerifiedOnly)
	assert.Equal(t, []string{
		string(StateReceived), string(StateRateChecked), string(StateLocalLookup),
		string(StateReasoning), string(StateRanked), string(StateResponded),
	}, result.States)
}

func TestExecute_ScenarioB_WebAugmentOnSparseCatalog(t *testing.T) {
	h := newHarness(t)
	h.searcher.results = []models.Resource{webResource("Statewide Helpline")}

	result, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "obscure rare need"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeOK, result.Outcome)
	assert.Empty(t, result.Resources)
	require.NotEmpty(t, result.WebResources)
	for _, r := range result.WebResources {
		assert.Equal(t, models.ProvenanceWeb, r.Provenance)
		assert.False(t, r.Verified)
	}
	assert.Equal(t, 1, h.searcher.calls)
	assert.Contains(t, result.States, string(StateWebAugment))
}

func TestExecute_ScenarioC_RateLimitedSkipsReasoning(t *testing.T) {
	h := newHarness(t)
	h.store.resources = []models.Resource{catalogResource("Shelter", "housing", "Akron")}

	// reentry allows 5 anonymous requests per day
	for i := 0; i < 5; i++ {
		result, err := h.orch.Execute(context.Background(), request("reentry-navigator-ai", "housing"), nil)
		require.NoError(t, err)
		require.NotEqual(t, models.OutcomeRateLimited, result.Outcome, "request %d", i+1)
	}

	result, err := h.orch.Execute(context.Background(), request("reentry-navigator-ai", "housing"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeRateLimited, result.Outcome)
	assert.Equal(t, 5, h.reasoner.calls(), "no reasoning call once limited")
	assert.Equal(t, 1440*time.Minute, result.RetryAfter)
	assert.NotEmpty(t, result.SupportMessage)
	assert.Nil(t, result.RateLimitRemaining)
	assert.Empty(t, result.Resources)

	h.orch.Wait()
	require.Equal(t, 1, h.audit.count())
	h.audit.mu.Lock()
	event := h.audit.events[0]
	h.audit.mu.Unlock()
	assert.Equal(t, audit.ActionRateLimitExceeded, event.Action)
	assert.Equal(t, "reentry-navigator-ai", event.Details["endpoint"])
}

func TestExecute_ScenarioD_ReasoningTimeoutUsesKeywordFallback(t *testing.T) {
	h := newHarness(t)
	h.reasoner.err = fmt.Errorf("%w: deadline exceeded", reasoning.ErrReasoningTimeout)
	h.store.keyword = []models.Resource{
		catalogResource("Dayton Food Bank", "food", "Dayton"),
		catalogResource("Dayton Housing Help", "housing", "Dayton"),
	}

	req := request("ai-resource-discovery", "food and housing in Dayton")
	result, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDegraded, result.Outcome)
	assert.Len(t, result.Resources, 2)
	assertNonEmpty(t, result)
	assert.Contains(t, result.Response, "Dayton Food Bank")

	require.Len(t, h.store.keywordArgs, 1)
	assert.Equal(t, []string{"food", "and", "housing"}, h.store.keywordArgs[0].Terms)
	assert.Equal(t, 8, h.store.keywordArgs[0].Limit)
}

// ==========================
// Properties
// ==========================

func TestExecute_ProvenanceSeparation(t *testing.T) {
	h := newHarness(t)
	// a web-tagged row from the store must never reach the catalog bucket
	h.store.resources = []models.Resource{webResource("Leaked")}
	h.searcher.results = []models.Resource{
		{ID: "w1", Name: "Hotline", Type: "crisis", Verified: true, Provenance: models.ProvenanceCatalog},
	}

	result, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "crisis help"), nil)
	require.NoError(t, err)

	for _, r := range result.Resources {
		assert.False(t, r.IsWeb())
	}
	require.Len(t, result.WebResources, 1)
	assert.True(t, result.WebResources[0].IsWeb())
	assert.False(t, result.WebResources[0].Verified)

	ids := map[string]bool{}
	for _, r := range result.Resources {
		ids[r.ID] = true
	}
	for _, r := range result.WebResources {
		assert.False(t, ids[r.ID], "buckets must be disjoint")
	}
}

func TestExecute_NeverEmpty(t *testing.T) {
	cases := []struct {
		name       string
		endpoint   string
		queryErr   error
		reasonErr  error
		keywordErr error
		outcome    models.Outcome
	}{
		{"store down", "crisis-support-ai", resourcestore.ErrStoreUnavailable, nil, nil, models.OutcomeUpstreamUnavailable},
		{"reasoning down, empty keyword result", "victim-support-ai", nil, reasoning.ErrReasoningFailed, nil, models.OutcomeDegraded},
		{"everything down", "reentry-navigator-ai", nil, reasoning.ErrReasoningFailed, resourcestore.ErrStoreUnavailable, models.OutcomeUpstreamUnavailable},
		{"healthy with empty catalog", "ai-resource-discovery", nil, nil, nil, models.OutcomeOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.queryErr = tc.queryErr
			h.store.keywordErr = tc.keywordErr
			h.reasoner.err = tc.reasonErr

			result, err := h.orch.Execute(context.Background(), request(tc.endpoint, "anything at all"), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, result.Outcome)
			assertNonEmpty(t, result)
		})
	}
}

func TestExecute_DegradationOrdering(t *testing.T) {
	t.Run("healthy store serves keyword tier", func(t *testing.T) {
		h := newHarness(t)
		h.reasoner.err = reasoning.ErrReasoningFailed
		h.store.keyword = []models.Resource{catalogResource("Crisis Line", "crisis", "Toledo")}

		result, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "crisis"), nil)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDegraded, result.Outcome)
		assert.Contains(t, result.States, string(StateDegradedKeyword))
		assert.NotContains(t, result.States, string(StateDegradedStatic))
		assert.NotEmpty(t, result.Resources)
	})

	t.Run("failing store serves static tier", func(t *testing.T) {
		h := newHarness(t)
		h.reasoner.err = reasoning.ErrReasoningFailed
		h.store.keywordErr = resourcestore.ErrStoreUnavailable

		result, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "crisis"), nil)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeUpstreamUnavailable, result.Outcome)
		assert.Equal(t, persona.StaticSafetyMessage(persona.Crisis), result.Response)
		assert.Empty(t, result.Resources)
		assert.Empty(t, result.WebResources)
	})
}

func TestExecute_WebSearchFailureNeverEscalates(t *testing.T) {
	h := newHarness(t)
	h.searcher.err = fmt.Errorf("%w: status 502", websearch.ErrWebSearchFailed)

	result, err := h.orch.Execute(context.Background(), request("victim-support-ai", "legal help"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeOK, result.Outcome)
	assert.Empty(t, result.WebResources)
	assert.NotEmpty(t, result.Response)
}

func TestExecute_ContextBound(t *testing.T) {
	h := newHarness(t)
	req := request("crisis-support-ai", "I need help")
	for i := 0; i < 20; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		req.Body.PreviousContext = append(req.Body.PreviousContext,
			models.ConversationTurn{Role: role, Content: fmt.Sprintf("turn %d", i), Sequence: i})
	}

	_, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)

	require.Equal(t, 1, h.reasoner.calls())
	history := h.reasoner.requests[0].History
	assert.Len(t, history, 6)
	assert.Equal(t, "turn 19", history[len(history)-1].Content)
}

func TestExecute_UrgencyClassification(t *testing.T) {
	h := newHarness(t)
	req := request("crisis-support-ai", "I want to end my life")

	result, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyImmediate, result.UrgencyLevel)
	assert.Contains(t, h.reasoner.requests[0].SystemPrompt, "Urgency: immediate")
}

// ==========================
// Streaming
// ==========================

func TestExecute_StreamsChunksInOrder(t *testing.T) {
	h := newHarness(t)
	h.reasoner.chunks = []string{"Let's ", "find ", "housing."}
	sink := &captureSink{}

	result, err := h.orch.Execute(context.Background(), request("coach-k", "housing"), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"Let's ", "find ", "housing."}, sink.chunks)
	assert.Equal(t, "Let's find housing.", result.Response)
	assert.True(t, h.reasoner.requests[0].Stream)
}

func TestExecute_BufferedEndpointWithSinkWritesOnce(t *testing.T) {
	h := newHarness(t)
	sink := &captureSink{}

	_, err := h.orch.Execute(context.Background(), request("crisis-support-ai", "help"), sink)
	require.NoError(t, err)

	assert.False(t, h.reasoner.requests[0].Stream)
	assert.Equal(t, []string{"Here are some options near you."}, sink.chunks)
}

func TestExecute_StreamFallbackIsOneChunk(t *testing.T) {
	h := newHarness(t)
	h.reasoner.err = errors.New("stream reset")
	h.store.keywordErr = resourcestore.ErrStoreUnavailable
	sink := &captureSink{}

	result, err := h.orch.Execute(context.Background(), request("coach-k", "jobs"), sink)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeUpstreamUnavailable, result.Outcome)
	assert.Equal(t, []string{result.Response}, sink.chunks)
}

func TestExecute_PartialStreamIsRetractedBeforeFallback(t *testing.T) {
	h := newHarness(t)
	h.reasoner.chunks = []string{"Call Columbus Housing at 555-"}
	h.reasoner.err = reasoning.ErrReasoningFailed
	h.store.keyword = []models.Resource{catalogResource("Columbus Housing", "housing", "Columbus")}
	sink := &captureSink{}

	result, err := h.orch.Execute(context.Background(), request("coach-k", "housing"), sink)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDegraded, result.Outcome)
	assert.Equal(t, 1, sink.resets)
	assert.Equal(t, []string{result.Response}, sink.chunks)
	assert.NotContains(t, result.Response, "555-")
}

func TestExecute_FailureBeforeAnyChunkSendsNoReset(t *testing.T) {
	h := newHarness(t)
	h.reasoner.err = reasoning.ErrReasoningFailed
	sink := &captureSink{}

	_, err := h.orch.Execute(context.Background(), request("coach-k", "housing"), sink)
	require.NoError(t, err)

	assert.Zero(t, sink.resets)
	assert.Len(t, sink.chunks, 1)
}

// ==========================
// Side effects
// ==========================

func TestWait_DrainsSlowAuditWrites(t *testing.T) {
	h := newHarness(t)
	h.audit.delay = 50 * time.Millisecond
	req := request("reentry-navigator-ai", "jobs")

	for i := 0; i < 6; i++ {
		_, err := h.orch.Execute(context.Background(), req, nil)
		require.NoError(t, err)
	}

	h.orch.Wait()
	assert.Equal(t, 1, h.audit.count())
}

func TestExecute_RecordsUsageAndObserver(t *testing.T) {
	h := newHarness(t)
	h.reasoner.err = reasoning.ErrReasoningFailed

	req := request("crisis-support-ai", "help")
	req.Identity = ratelimit.IdentityFromUser("u-42")
	_, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)
	h.recorder.Wait()

	h.usage.mu.Lock()
	defer h.usage.mu.Unlock()
	require.Len(t, h.usage.records, 1)
	assert.Equal(t, "crisis-support-ai", h.usage.records[0].Endpoint)
	assert.Equal(t, "u-42", h.usage.records[0].UserID)
	assert.Equal(t, 1, h.usage.records[0].ErrorCount)
	assert.Equal(t, []string{string(models.OutcomeDegraded)}, h.observer.outcomes)
}

func TestExecute_AuthenticatedTierHasHigherCeiling(t *testing.T) {
	h := newHarness(t)
	req := request("reentry-navigator-ai", "jobs")
	req.Identity = ratelimit.IdentityFromUser("u-1")

	result, err := h.orch.Execute(context.Background(), req, nil)
	require.NoError(t, err)
	require.NotNil(t, result.RateLimitRemaining)
	assert.Equal(t, 49, *result.RateLimitRemaining)
}
