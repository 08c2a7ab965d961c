// internal/transport/jobworker/handler.go
package jobworker

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "resource-discovery/internal/common/errors"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/discovery/orchestrator"
	"resource-discovery/internal/discovery/ratelimit"
	"resource-discovery/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "ai-resource-discovery"

// Executor is satisfied by *orchestrator.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, req orchestrator.Request, sink orchestrator.ChunkSink) (*models.OrchestrationResult, error)
}

// Handler runs discovery requests submitted as workflow jobs. Jobs always use
// the buffered contract.
type Handler struct {
	config       *Config
	executor     Executor
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, executor Executor, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": config.JobType,
	})
	return &Handler{
		config:       config,
		executor:     executor,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		err = apperrors.NewValidationError("invalid job variables", err.Error())
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("encode job output: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("complete job %d: %w", job.Key, err)
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":  job.Key,
		"outcome": output.Outcome,
	})
	return nil
}

// Execute maps job input onto one orchestrated request. A quota rejection is
// returned as QUOTA_EXCEEDED so the process can model the wait.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Endpoint == "" {
		return nil, apperrors.NewValidationError("endpoint is required")
	}

	identity := ratelimit.IdentityFromAddress(input.Identity.Address)
	if input.Identity.UserID != "" {
		identity = ratelimit.IdentityFromUser(input.Identity.UserID)
	}

	result, err := h.executor.Execute(ctx, orchestrator.Request{
		Endpoint: input.Endpoint,
		Identity: identity,
		Body:     input.Request,
	}, nil)
	if err != nil {
		return nil, err
	}

	if result.Outcome == models.OutcomeRateLimited {
		return nil, apperrors.NewQuotaExceededError(identity.Key, input.Endpoint, result.RetryAfter).
			WithMetadata("supportMessage", result.SupportMessage)
	}

	return &Output{
		Response:           result.Response,
		Resources:          result.Resources,
		WebResources:       result.WebResources,
		UrgencyLevel:       result.UrgencyLevel,
		TotalResources:     result.TotalResources,
		RateLimitRemaining: result.RateLimitRemaining,
		Outcome:            result.Outcome,
	}, nil
}
