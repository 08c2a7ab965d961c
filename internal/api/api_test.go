package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "resource-discovery/internal/common/errors"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/discovery/orchestrator"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/discovery/ratelimit"
	"resource-discovery/internal/discovery/reasoning"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/models"
	"resource-discovery/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Stubs
// ==========================

type stubExecutor struct {
	profiles map[string]orchestrator.Profile
	result   *models.OrchestrationResult
	err      error
	chunks   []string
	fallback string
	last     orchestrator.Request
}

func newStubExecutor(t *testing.T) *stubExecutor {
	t.Helper()
	profiles := map[string]orchestrator.Profile{}
	for _, ep := range registry.Default().Endpoints {
		p, err := orchestrator.ProfileFromEndpoint(ep)
		require.NoError(t, err)
		profiles[ep.ID] = p
	}
	return &stubExecutor{profiles: profiles}
}

func (s *stubExecutor) Profile(endpoint string) (orchestrator.Profile, bool) {
	p, ok := s.profiles[endpoint]
	return p, ok
}

func (s *stubExecutor) Execute(ctx context.Context, req orchestrator.Request, sink orchestrator.ChunkSink) (*models.OrchestrationResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	if sink != nil {
		for _, c := range s.chunks {
			if err := sink.WriteChunk(c); err != nil {
				return nil, err
			}
		}
		if s.fallback != "" {
			if err := sink.Reset(); err != nil {
				return nil, err
			}
			if err := sink.WriteChunk(s.fallback); err != nil {
				return nil, err
			}
		}
	}
	return s.result, nil
}

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "good" {
		return "user-1", nil
	}
	return "", errors.New("invalid")
}

func newTestServer(t *testing.T, exec Executor) *httptest.Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	router := NewRouter(NewHandlers(exec, log), RouterOptions{Verifier: stubVerifier{}, TrustedProxyHops: 1}, log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, server *httptest.Server, endpoint, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/functions/v1/"+endpoint, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func okResult() *models.OrchestrationResult {
	remaining := 9
	return &models.OrchestrationResult{
		Response:           "Call 988 any time.",
		Resources:          []models.Resource{{ID: "1", Name: "Lifeline", Type: "crisis", Verified: true, Provenance: models.ProvenanceCatalog}},
		WebResources:       []models.Resource{{ID: "w", Name: "Web", Type: "web_search", Provenance: models.ProvenanceWeb, Source: "perplexity"}},
		UrgencyLevel:       models.UrgencyModerate,
		TotalResources:     1,
		RateLimitRemaining: &remaining,
		Outcome:            models.OutcomeOK,
	}
}

// ==========================
// Buffered contract
// ==========================

func TestDiscover_BufferedOK(t *testing.T) {
	exec := newStubExecutor(t)
	exec.result = okResult()
	server := newTestServer(t, exec)

	resp := post(t, server, "crisis-support-ai", `{"query":"I need help","location":"Columbus"}`,
		map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Header.Get(OutcomeHeader))
	body := decodeJSON(t, resp)
	assert.Equal(t, "Call 988 any time.", body["response"])
	assert.Len(t, body["resources"], 1)
	assert.Len(t, body["webResources"], 1)
	assert.EqualValues(t, 9, body["rateLimitRemaining"])
	assert.NotContains(t, body, "outcome")

	web := body["webResources"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "web", web["provenance"])
	assert.Equal(t, false, web["verified"])

	assert.Equal(t, "user:user-1", exec.last.Identity.Key)
	assert.Equal(t, "Columbus", exec.last.Body.Location)
	assert.NotEmpty(t, exec.last.RequestID)
}

func TestDiscover_InvalidTokenFallsBackToAddress(t *testing.T) {
	exec := newStubExecutor(t)
	exec.result = okResult()
	server := newTestServer(t, exec)

	post(t, server, "crisis-support-ai", `{"query":"help"}`, map[string]string{
		"Authorization":   "Bearer bad",
		"X-Forwarded-For": "203.0.113.9, 198.51.100.4",
	})
	assert.Equal(t, ratelimit.TierAnonymous, exec.last.Identity.Tier)
	assert.Equal(t, "ip:198.51.100.4", exec.last.Identity.Key)
}

func TestDiscover_UnknownEndpoint(t *testing.T) {
	server := newTestServer(t, newStubExecutor(t))
	resp := post(t, server, "horoscope-ai", `{"query":"help"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDiscover_ValidationErrors(t *testing.T) {
	exec := newStubExecutor(t)
	server := newTestServer(t, exec)

	cases := map[string]string{
		"missing query": `{"location":"Akron"}`,
		"bad urgency":   `{"query":"help","urgencyLevel":"whenever"}`,
		"bad role":      `{"query":"help","previousContext":[{"role":"system","content":"x"}]}`,
		"not json":      `{query`,
		"empty query":   `{"query":""}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := post(t, server, "victim-support-ai", body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			out := decodeJSON(t, resp)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestDiscover_RateLimited(t *testing.T) {
	exec := newStubExecutor(t)
	exec.result = &models.OrchestrationResult{
		Outcome:        models.OutcomeRateLimited,
		RetryAfter:     5 * time.Minute,
		SupportMessage: persona.RateLimitSupportMessage(persona.Crisis),
	}
	server := newTestServer(t, exec)

	resp := post(t, server, "crisis-support-ai", `{"query":"help"}`, nil)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "300", resp.Header.Get("Retry-After"))
	body := decodeJSON(t, resp)
	assert.Equal(t, true, body["rateLimitExceeded"])
	assert.Equal(t, persona.RateLimitError, body["error"])
	assert.EqualValues(t, 300, body["retryAfter"])
	assert.Contains(t, body["supportMessage"], "988")
	assert.NotContains(t, body, "resources")
}

func TestDiscover_UpstreamUnavailable(t *testing.T) {
	exec := newStubExecutor(t)
	exec.result = &models.OrchestrationResult{
		Response:     persona.StaticSafetyMessage(persona.Reentry),
		Resources:    []models.Resource{},
		WebResources: []models.Resource{},
		Outcome:      models.OutcomeUpstreamUnavailable,
	}
	server := newTestServer(t, exec)

	resp := post(t, server, "reentry-navigator-ai", `{"query":"housing"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "upstream_unavailable", resp.Header.Get(OutcomeHeader))
	body := decodeJSON(t, resp)
	assert.Contains(t, body["error"], "211")
	assert.Equal(t, []interface{}{}, body["resources"])
}

func TestDiscover_UnexpectedErrorIsSafe(t *testing.T) {
	exec := newStubExecutor(t)
	exec.err = apperrors.NewInternalError(errors.New("pq: connection reset by peer"))
	server := newTestServer(t, exec)

	resp := post(t, server, "crisis-emergency-ai", `{"query":"help"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.NotContains(t, body["error"], "pq:")
	assert.Contains(t, body["error"], "988")
	assert.Equal(t, []interface{}{}, body["resources"])
}

// ==========================
// Streaming contract
// ==========================

type sseEvent struct {
	event string
	data  string
}

func readEvents(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var (
		events  []sseEvent
		current sseEvent
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.data != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestDiscover_StreamFrames(t *testing.T) {
	exec := newStubExecutor(t)
	exec.chunks = []string{"Let's ", "look."}
	exec.result = okResult()
	server := newTestServer(t, exec)

	resp := post(t, server, "coach-k", `{"messages":[{"role":"user","content":"jobs?"},{"role":"assistant","content":"Sure"},{"role":"user","content":"near Akron"}]}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.Len(t, events, 4)
	assert.JSONEq(t, `{"content":"Let's "}`, events[0].data)
	assert.JSONEq(t, `{"content":"look."}`, events[1].data)
	assert.Equal(t, "resources", events[2].event)
	assert.Equal(t, "[DONE]", events[3].data)

	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &frame))
	assert.Len(t, frame["resources"], 1)
	assert.Equal(t, "ok", frame["outcome"])
	assert.Equal(t, "ok", resp.Trailer.Get(OutcomeHeader))

	assert.Equal(t, "near Akron", exec.last.Body.Query)
	assert.Len(t, exec.last.Body.PreviousContext, 2)
}

func TestDiscover_StreamResetBeforeFallback(t *testing.T) {
	exec := newStubExecutor(t)
	exec.chunks = []string{"Call Columbus Housing at 555-"}
	exec.fallback = "Please call 211."
	exec.result = &models.OrchestrationResult{
		Response:     "Please call 211.",
		Resources:    []models.Resource{},
		WebResources: []models.Resource{},
		Outcome:      models.OutcomeDegraded,
	}
	server := newTestServer(t, exec)

	resp := post(t, server, "coach-k", `{"query":"housing"}`, nil)

	events := readEvents(t, resp)
	require.Len(t, events, 5)
	assert.JSONEq(t, `{"content":"Call Columbus Housing at 555-"}`, events[0].data)
	assert.Equal(t, "reset", events[1].event)
	assert.JSONEq(t, `{"content":"Please call 211."}`, events[2].data)
	assert.Equal(t, "resources", events[3].event)
	assert.Equal(t, "[DONE]", events[4].data)
	assert.Equal(t, "ok_degraded", resp.Trailer.Get(OutcomeHeader))
}

func TestDiscover_StreamRateLimitedIsJSON(t *testing.T) {
	exec := newStubExecutor(t)
	exec.result = &models.OrchestrationResult{Outcome: models.OutcomeRateLimited, RetryAfter: time.Hour}
	server := newTestServer(t, exec)

	resp := post(t, server, "coach-k", `{"query":"jobs"}`, nil)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "3600", resp.Header.Get("Retry-After"))
}

// ==========================
// Health
// ==========================

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Ping(ctx context.Context) error { return s.err }

func TestHealthAndReady(t *testing.T) {
	log := logger.NewTestLogger(t)
	h := NewHandlers(newStubExecutor(t), log,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: errors.New("dial tcp: refused")},
	)
	server := httptest.NewServer(NewRouter(h, RouterOptions{}, log))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeJSON(t, resp)
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "ok", deps["postgres"])

	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

// ==========================
// End to end through the orchestrator
// ==========================

type emptyStore struct{ keywordErr error }

func (emptyStore) Query(ctx context.Context, f resourcestore.Filter) ([]models.Resource, error) {
	return nil, nil
}

func (s emptyStore) SearchKeywords(ctx context.Context, q resourcestore.KeywordQuery) ([]models.Resource, error) {
	return nil, s.keywordErr
}

type countingReasoner struct{ calls int }

func (r *countingReasoner) Generate(ctx context.Context, req reasoning.Request, onChunk reasoning.ChunkFunc) (*reasoning.Response, error) {
	r.calls++
	return &reasoning.Response{Text: "ok"}, nil
}

func TestDiscover_QuotaThroughOrchestrator(t *testing.T) {
	log := logger.NewTestLogger(t)
	reasoner := &countingReasoner{}
	orch, err := orchestrator.New(orchestrator.DefaultConfig(), orchestrator.Dependencies{
		Registry: registry.Default(),
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), log),
		Store:    emptyStore{},
		Reasoner: reasoner,
		Logger:   log,
	})
	require.NoError(t, err)
	server := newTestServer(t, orch)

	// the left-most entry rotates per request; the proxy-written one does not
	spoofed := func(i int) map[string]string {
		return map[string]string{"X-Forwarded-For": fmt.Sprintf("10.9.8.%d, 192.0.2.50", i)}
	}
	for i := 0; i < 5; i++ {
		resp := post(t, server, "victim-support-ai", `{"query":"legal help"}`, spoofed(i))
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp := post(t, server, "victim-support-ai", `{"query":"legal help"}`, spoofed(99))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 5, reasoner.calls)
	assert.Equal(t, "86400", resp.Header.Get("Retry-After"))
}
