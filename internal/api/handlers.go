// internal/api/handlers.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"resource-discovery/internal/common/database"
	apperrors "resource-discovery/internal/common/errors"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/common/validation"
	"resource-discovery/internal/discovery/conversation"
	"resource-discovery/internal/discovery/orchestrator"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// Executor runs one discovery request.
type Executor interface {
	Execute(ctx context.Context, req orchestrator.Request, sink orchestrator.ChunkSink) (*models.OrchestrationResult, error)
	Profile(endpoint string) (orchestrator.Profile, bool)
}

type Handlers struct {
	executor     Executor
	checkers     []database.Checker
	readyTimeout time.Duration
	logger       logger.Logger
}

func NewHandlers(executor Executor, log logger.Logger, checkers ...database.Checker) *Handlers {
	return &Handlers{
		executor:     executor,
		checkers:     checkers,
		readyTimeout: 2 * time.Second,
		logger:       log.With(map[string]interface{}{"component": "api"}),
	}
}

// Discover serves POST /functions/v1/{endpoint}.
func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	profile, ok := h.executor.Profile(endpoint)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown endpoint %q", endpoint))
		return
	}

	body, err := h.decode(w, r, profile.Streaming)
	if err != nil {
		h.respondStandardError(w, profile, err)
		return
	}

	req := orchestrator.Request{
		Endpoint:  endpoint,
		RequestID: chimw.GetReqID(r.Context()),
		Identity:  IdentityFrom(r.Context()),
		Body:      body,
	}

	if profile.Streaming {
		h.stream(w, r, profile, req)
		return
	}

	result, err := h.executor.Execute(r.Context(), req, nil)
	if err != nil {
		h.respondStandardError(w, profile, err)
		return
	}
	h.respondResult(w, result)
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, profile orchestrator.Profile, req orchestrator.Request) {
	sink, err := newSSESink(w, profile.Endpoint)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := h.executor.Execute(r.Context(), req, sink)
	if err != nil {
		if sink.started {
			sink.finish(resourcesFrame{Resources: []models.Resource{}, WebResources: []models.Resource{}})
			return
		}
		h.respondStandardError(w, profile, err)
		return
	}
	if result.Outcome == models.OutcomeRateLimited && !sink.started {
		h.respondResult(w, result)
		return
	}

	sink.finish(frameFrom(result))
}

// decode validates the body against the endpoint's schema. Streaming
// endpoints also accept a messages list, whose last user turn is the query.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, streaming bool) (models.DiscoveryRequest, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return models.DiscoveryRequest{}, apperrors.NewValidationError("unreadable request body", err.Error())
	}

	if streaming && isChatBody(raw) {
		if err := validate(validation.ChatRequest, raw); err != nil {
			return models.DiscoveryRequest{}, err
		}
		var cb chatBody
		if err := json.Unmarshal(raw, &cb); err != nil {
			return models.DiscoveryRequest{}, apperrors.NewValidationError("malformed request body", err.Error())
		}
		query, prior := conversation.SplitMessages(cb.Messages)
		return models.DiscoveryRequest{
			Query:           query,
			Location:        cb.Location,
			County:          cb.County,
			UrgencyLevel:    cb.UrgencyLevel,
			PreviousContext: prior,
		}, nil
	}

	if err := validate(validation.DiscoveryRequest, raw); err != nil {
		return models.DiscoveryRequest{}, err
	}
	var body models.DiscoveryRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return models.DiscoveryRequest{}, apperrors.NewValidationError("malformed request body", err.Error())
	}
	for i := range body.PreviousContext {
		body.PreviousContext[i].Sequence = i
	}
	return body, nil
}

func validate(schema *validation.Schema, raw []byte) error {
	result, err := schema.ValidateBytes(raw)
	if err != nil {
		return apperrors.NewValidationError("malformed request body", err.Error())
	}
	if !result.Valid {
		return apperrors.NewValidationError("invalid request body", result.GetErrorMessages()...)
	}
	return nil
}

func isChatBody(raw []byte) bool {
	var probe struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(bytes.TrimSpace(probe.Messages)) > 0
}

func (h *Handlers) respondResult(w http.ResponseWriter, result *models.OrchestrationResult) {
	w.Header().Set(OutcomeHeader, string(result.Outcome))

	switch result.Outcome {
	case models.OutcomeRateLimited:
		seconds := int(math.Ceil(result.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondJSON(w, http.StatusTooManyRequests, rateLimitResponse{
			Error:             persona.RateLimitError,
			RateLimitExceeded: true,
			SupportMessage:    result.SupportMessage,
			RetryAfter:        seconds,
		})
	case models.OutcomeUpstreamUnavailable:
		respondJSON(w, http.StatusInternalServerError, failureResponse{
			Error:     result.Response,
			Resources: []models.Resource{},
		})
	default:
		respondJSON(w, http.StatusOK, result)
	}
}

// respondStandardError maps taxonomy errors onto the HTTP contract. Server
// side failures never expose internals and carry the persona safety message.
func (h *Handlers) respondStandardError(w http.ResponseWriter, profile orchestrator.Profile, err error) {
	stdErr := apperrors.As(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		h.logger.Error("discovery request failed", map[string]interface{}{
			"endpoint": profile.Endpoint,
			"error":    err,
		})
		respondJSON(w, http.StatusInternalServerError, failureResponse{
			Error:     persona.StaticSafetyMessage(profile.Persona),
			Resources: []models.Resource{},
		})
		return
	}

	resp := errorResponse{Error: stdErr.Message}
	if stdErr.Details != "" {
		resp.Details = []string{stdErr.Details}
	}
	respondJSON(w, status, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "resource-discovery",
	})
}

// Ready pings every configured dependency.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	status, healthy := database.CheckAll(r.Context(), h.readyTimeout, h.checkers...)
	code := http.StatusOK
	state := "ready"
	if !healthy {
		code = http.StatusServiceUnavailable
		state = "not_ready"
	}
	respondJSON(w, code, map[string]interface{}{
		"status":       state,
		"dependencies": status,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
