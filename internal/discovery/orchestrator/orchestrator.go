// internal/discovery/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "resource-discovery/internal/common/errors"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/common/metrics"
	"resource-discovery/internal/discovery/audit"
	"resource-discovery/internal/discovery/conversation"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/discovery/ranking"
	"resource-discovery/internal/discovery/reasoning"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/discovery/usage"
	"resource-discovery/internal/discovery/websearch"
	"resource-discovery/internal/models"
	"resource-discovery/pkg/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const Name = "orchestrator"

// Dependencies are the collaborators of one Orchestrator. Searcher, Usage,
// Audit and Observer are optional.
type Dependencies struct {
	Registry *registry.EndpointRegistry
	Limiter  QuotaChecker
	Store    resourcestore.Store
	Reasoner reasoning.Generator
	Searcher websearch.Searcher
	Ranker   *ranking.Ranker
	Usage    *usage.Recorder
	Audit    audit.Recorder
	Observer RequestObserver
	Logger   logger.Logger
	Now      func() time.Time
}

type Orchestrator struct {
	config   *Config
	profiles map[string]Profile
	limiter  QuotaChecker
	store    resourcestore.Store
	reasoner reasoning.Generator
	searcher websearch.Searcher
	ranker   *ranking.Ranker
	usage    *usage.Recorder
	audit    audit.Recorder
	observer RequestObserver
	logger   logger.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// pending tracks detached audit writes.
	pending sync.WaitGroup
}

// Wait blocks until detached audit writes have finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

func New(config *Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Registry == nil || deps.Limiter == nil || deps.Store == nil || deps.Reasoner == nil {
		return nil, fmt.Errorf("orchestrator requires registry, limiter, store and reasoner")
	}
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	profiles := make(map[string]Profile, len(deps.Registry.Endpoints))
	for _, ep := range deps.Registry.Endpoints {
		p, err := ProfileFromEndpoint(ep)
		if err != nil {
			return nil, err
		}
		profiles[ep.ID] = p
	}

	o := &Orchestrator{
		config:   config,
		profiles: profiles,
		limiter:  deps.Limiter,
		store:    deps.Store,
		reasoner: deps.Reasoner,
		searcher: deps.Searcher,
		ranker:   deps.Ranker,
		usage:    deps.Usage,
		audit:    deps.Audit,
		observer: deps.Observer,
		logger: log.With(map[string]interface{}{
			"component": Name,
		}),
		tracer: otel.Tracer("resource-discovery/orchestrator"),
		now:    deps.Now,
	}
	if o.ranker == nil {
		o.ranker = ranking.NewRanker(log)
	}
	if o.usage == nil {
		o.usage = usage.NewRecorder(nil, 0, log)
	}
	if o.audit == nil {
		o.audit = audit.Nop{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Profile returns the resolved profile of an endpoint.
func (o *Orchestrator) Profile(endpoint string) (Profile, bool) {
	p, ok := o.profiles[endpoint]
	return p, ok
}

// run carries the per-request state through the pipeline.
type run struct {
	req        Request
	profile    Profile
	sink       ChunkSink
	result     *models.OrchestrationResult
	states     stateLog
	errorCount int
	started    time.Time

	// streamed is set once a reasoning chunk reached the sink.
	streamed bool
}

func (r *run) enter(s State) {
	r.states.enter(s)
}

// Execute drives one request through rate checking, lookup, reasoning,
// optional web augmentation and ranking. Upstream failures are absorbed by the
// degradation tiers; a non-nil error means the request itself was invalid.
func (o *Orchestrator) Execute(ctx context.Context, req Request, sink ChunkSink) (*models.OrchestrationResult, error) {
	profile, ok := o.profiles[req.Endpoint]
	if !ok {
		return nil, apperrors.NewNotFoundError("endpoint", req.Endpoint)
	}
	if strings.TrimSpace(req.Body.Query) == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "orchestrator.Execute", trace.WithAttributes(
		attribute.String("endpoint", req.Endpoint),
		attribute.String("persona", string(profile.Persona)),
		attribute.Bool("authenticated", req.Identity.Authenticated()),
	))
	defer span.End()

	r := &run{
		req:     req,
		profile: profile,
		sink:    sink,
		started: o.now(),
		result: &models.OrchestrationResult{
			Resources:    []models.Resource{},
			WebResources: []models.Resource{},
			RequestID:    req.RequestID,
			Endpoint:     req.Endpoint,
		},
	}
	r.enter(StateReceived)

	o.serve(ctx, r)

	r.enter(StateResponded)
	r.result.States = r.states
	o.finish(ctx, r)

	span.SetAttributes(attribute.String("outcome", string(r.result.Outcome)))
	return r.result, nil
}

func (o *Orchestrator) serve(ctx context.Context, r *run) {
	p := r.profile
	body := r.req.Body

	// RATE_CHECKED
	decision := o.limiter.Check(ctx, r.req.Identity, p.Endpoint,
		p.RateLimit.MaxRequests(r.req.Identity.Authenticated()), p.RateLimit.WindowMinutes)
	r.enter(StateRateChecked)
	if decision.Limited {
		o.rateLimited(ctx, r, decision.RetryAfter)
		return
	}
	remaining := decision.Remaining
	r.result.RateLimitRemaining = &remaining
	r.result.UrgencyLevel = persona.ClassifyUrgency(body.UrgencyLevel, body.Query)

	// LOCAL_LOOKUP
	r.enter(StateLocalLookup)
	local, err := o.lookup(ctx, p.lookupFilter(body))
	if err != nil {
		o.upstreamFailed(ctx, r, "resource_store", err)
		o.staticTier(ctx, r)
		return
	}
	r.result.TotalResources = len(local)

	// REASONING
	r.enter(StateReasoning)
	text, err := o.reason(ctx, r, local)
	if err != nil {
		o.upstreamFailed(ctx, r, reasoning.Name, err)
		r.discardStream()
		o.degrade(ctx, r)
		return
	}
	r.result.Response = text

	// WEB_AUGMENT
	var web []models.Resource
	if len(local) < o.config.MinLocalResources && p.WebSearch && o.searcher != nil {
		r.enter(StateWebAugment)
		web = o.augment(ctx, r)
	}

	// RANKED
	query := ranking.Query{Text: body.Query, Locality: body.LocalityHint()}
	r.result.Resources = o.ranker.Rank(local, query, p.Ranking)
	r.result.WebResources = o.ranker.Rank(web, query, p.Ranking)
	r.enter(StateRanked)
	r.result.Outcome = models.OutcomeOK
}

func (o *Orchestrator) lookup(ctx context.Context, filter resourcestore.Filter) ([]models.Resource, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.lookup")
	defer span.End()

	if o.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.LookupTimeout)
		defer cancel()
	}
	resources, err := o.store.Query(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("resources", len(resources)))
	return catalogOnly(resources), nil
}

func (o *Orchestrator) reason(ctx context.Context, r *run, local []models.Resource) (string, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.reason")
	defer span.End()

	body := r.req.Body
	prompt := persona.BuildSystemPrompt(r.profile.Persona, local, persona.PromptContext{
		Location:     body.Location,
		County:       body.County,
		Urgency:      r.result.UrgencyLevel,
		MaxResources: r.profile.Catalog.PromptCap,
	})

	stream := r.sink != nil && r.profile.Streaming
	var onChunk reasoning.ChunkFunc
	if stream {
		onChunk = func(chunk string) error {
			r.streamed = true
			return r.sink.WriteChunk(chunk)
		}
	}

	resp, err := o.reasoner.Generate(ctx, reasoning.Request{
		SystemPrompt: prompt,
		History:      conversation.Window(body.PreviousContext, o.config.MaxContextTurns),
		Query:        body.Query,
		Stream:       stream,
	}, onChunk)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning failed")
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty response", reasoning.ErrReasoningFailed)
	}
	if r.sink != nil && !resp.Streamed {
		r.writeChunk(resp.Text)
	}
	return resp.Text, nil
}

// augment is optional: failures are logged and counted, never escalated.
func (o *Orchestrator) augment(ctx context.Context, r *run) []models.Resource {
	ctx, span := o.tracer.Start(ctx, "orchestrator.web_augment")
	defer span.End()

	body := r.req.Body
	web, err := o.searcher.Search(ctx, websearch.Request{
		Persona:  r.profile.Persona,
		Query:    body.Query,
		Location: body.Location,
		County:   body.County,
	})
	if err != nil {
		span.RecordError(err)
		o.upstreamFailed(ctx, r, websearch.Name, err)
		return nil
	}
	return webOnly(web)
}

func (o *Orchestrator) rateLimited(ctx context.Context, r *run, retryAfter time.Duration) {
	r.result.Outcome = models.OutcomeRateLimited
	r.result.RetryAfter = retryAfter
	r.result.SupportMessage = persona.RateLimitSupportMessage(r.profile.Persona)
	r.result.RateLimitRemaining = nil

	event := audit.RateLimitExceeded(r.profile.Endpoint, r.req.Identity.Key, r.req.Identity.UserID, o.now())
	detached := context.WithoutCancel(ctx)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		ctx, cancel := context.WithTimeout(detached, 5*time.Second)
		defer cancel()
		if err := o.audit.Record(ctx, event); err != nil {
			o.logger.Warn("failed to record audit event", map[string]interface{}{
				"endpoint": r.profile.Endpoint,
				"error":    err,
			})
		}
	}()

	o.logger.Info("rate limit exceeded", map[string]interface{}{
		"endpoint":  r.profile.Endpoint,
		"identity":  r.req.Identity.Key,
		"requestId": r.req.RequestID,
	})
}

func (o *Orchestrator) upstreamFailed(ctx context.Context, r *run, upstream string, err error) {
	r.errorCount++
	code := classify(upstream, err).Code
	metrics.UpstreamFailures.WithLabelValues(upstream, string(code)).Inc()
	trace.SpanFromContext(ctx).AddEvent("upstream_failure", trace.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("code", string(code)),
	))
	o.logger.Warn("upstream call failed", map[string]interface{}{
		"endpoint":  r.profile.Endpoint,
		"upstream":  upstream,
		"errorCode": code,
		"requestId": r.req.RequestID,
		"error":     err,
	})
}

func (o *Orchestrator) finish(ctx context.Context, r *run) {
	elapsed := o.now().Sub(r.started)
	outcome := string(r.result.Outcome)

	metrics.RequestsTotal.WithLabelValues(r.profile.Endpoint, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(r.profile.Endpoint).Observe(elapsed.Seconds())
	if o.observer != nil {
		o.observer.RecordRequest(ctx, r.profile.Endpoint, outcome, elapsed)
	}

	if r.result.Outcome != models.OutcomeRateLimited {
		o.usage.RecordAsync(ctx, usage.Usage{
			Endpoint:   r.profile.Endpoint,
			UserID:     r.req.Identity.UserID,
			LatencyMs:  elapsed.Milliseconds(),
			ErrorCount: r.errorCount,
		})
	}

	o.logger.Info("request served", map[string]interface{}{
		"endpoint":     r.profile.Endpoint,
		"outcome":      outcome,
		"states":       strings.Join(r.states, ">"),
		"resources":    len(r.result.Resources),
		"webResources": len(r.result.WebResources),
		"errorCount":   r.errorCount,
		"durationMs":   elapsed.Milliseconds(),
		"requestId":    r.req.RequestID,
	})
}

// discardStream retracts partial reasoning text before a fallback is written.
func (r *run) discardStream() {
	if r.sink == nil || !r.streamed {
		return
	}
	r.streamed = false
	_ = r.sink.Reset()
}

func (r *run) writeChunk(text string) {
	if r.sink == nil || text == "" {
		return
	}
	_ = r.sink.WriteChunk(text)
}

// classify maps client sentinels onto the error taxonomy.
func classify(upstream string, err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, reasoning.ErrReasoningTimeout), errors.Is(err, websearch.ErrWebSearchTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUpstreamTimeoutError(upstream, err)
	case errors.Is(err, resourcestore.ErrStoreUnavailable):
		return apperrors.NewStoreUnavailableError(upstream, err)
	case errors.Is(err, reasoning.ErrReasoningFailed), errors.Is(err, websearch.ErrWebSearchFailed):
		return apperrors.NewUpstreamError(upstream, err)
	default:
		if upstream == "resource_store" {
			return apperrors.NewStoreUnavailableError(upstream, err)
		}
		return apperrors.NewUpstreamError(upstream, err)
	}
}

func catalogOnly(resources []models.Resource) []models.Resource {
	out := make([]models.Resource, 0, len(resources))
	for _, res := range resources {
		if res.IsWeb() {
			continue
		}
		res.Provenance = models.ProvenanceCatalog
		out = append(out, res)
	}
	return out
}

func webOnly(resources []models.Resource) []models.Resource {
	out := make([]models.Resource, 0, len(resources))
	for _, res := range resources {
		res.Provenance = models.ProvenanceWeb
		res.Verified = false
		out = append(out, res)
	}
	return out
}
