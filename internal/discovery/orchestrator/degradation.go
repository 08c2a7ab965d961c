// internal/discovery/orchestrator/degradation.go
package orchestrator

import (
	"context"

	"resource-discovery/internal/common/metrics"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/models"

	"go.opentelemetry.io/otel/codes"
)

const (
	tierKeyword = "keyword"
	tierStatic  = "static"
)

// degrade serves a reasoning failure from the direct keyword query, falling
// through to the static safety message when the store fails as well.
func (o *Orchestrator) degrade(ctx context.Context, r *run) {
	r.enter(StateDegradedKeyword)

	ctx, span := o.tracer.Start(ctx, "orchestrator.degrade_keyword")
	defer span.End()

	if o.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.LookupTimeout)
		defer cancel()
	}

	body := r.req.Body
	found, err := o.store.SearchKeywords(ctx, resourcestore.KeywordQuery{
		Terms:    resourcestore.KeywordTerms(body.Query, o.config.KeywordTerms),
		Location: body.LocalityHint(),
		Limit:    o.config.KeywordLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "keyword fallback failed")
		o.upstreamFailed(ctx, r, "resource_store", err)
		o.staticTier(ctx, r)
		return
	}

	resources := catalogOnly(found)
	r.result.TotalResources = len(resources)
	if len(resources) > r.profile.Ranking.PresentationCap && r.profile.Ranking.PresentationCap > 0 {
		resources = resources[:r.profile.Ranking.PresentationCap]
	}

	metrics.Degradations.WithLabelValues(r.profile.Endpoint, tierKeyword).Inc()
	r.result.Outcome = models.OutcomeDegraded
	r.result.Resources = resources
	r.result.Response = persona.DegradedMessage(r.profile.Persona, resources)
	r.writeChunk(r.result.Response)
}

// staticTier needs no upstream at all and always produces a message.
func (o *Orchestrator) staticTier(_ context.Context, r *run) {
	r.enter(StateDegradedStatic)

	metrics.Degradations.WithLabelValues(r.profile.Endpoint, tierStatic).Inc()
	r.result.Outcome = models.OutcomeUpstreamUnavailable
	r.result.Resources = []models.Resource{}
	r.result.WebResources = []models.Resource{}
	r.result.TotalResources = 0
	r.result.Response = persona.StaticSafetyMessage(r.profile.Persona)
	r.writeChunk(r.result.Response)
}
