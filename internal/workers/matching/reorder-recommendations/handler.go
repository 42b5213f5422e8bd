// internal/workers/matching/reorder-recommendations/handler.go
package reorderrecommendations

import (
	"context"
	"fmt"
	"time"

	"care-match-workers/internal/common/camunda"
	"care-match-workers/internal/common/config"
	"care-match-workers/internal/common/errors"
	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/common/metrics"
	"care-match-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TaskType = "reorder-recommendations"

type Handler struct {
	config       *Config
	logger       logger.Logger
	reorderer    Reorderer
	validator    InputValidator
	recorder     ReorderRecorder
	tracer       trace.Tracer
	errorHandler *errors.ErrorHandler
	retry        *camunda.RetryConfig
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Reorderer    Reorderer
	Validator    InputValidator
	Recorder     ReorderRecorder
	Tracer       trace.Tracer
	Retry        *camunda.RetryConfig
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Reorderer == nil {
		return nil, fmt.Errorf("reorderer is required for %s", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"worker": TaskType})

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("care-match-workers")
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		reorderer:    opts.Reorderer,
		validator:    opts.Validator,
		recorder:     opts.Recorder,
		tracer:       tracer,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		retry:        opts.Retry,
	}, nil
}

func (h *Handler) Config() *Config {
	return h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing reorder request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		code := string(errors.Normalize(err).Code)
		h.record(ctx, code)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return nil
	}

	output := h.Execute(ctx, input)

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	return nil
}

// Execute reorders in memory; it performs no lookups and cannot fail.
func (h *Handler) Execute(ctx context.Context, input *Input) models.ReorderResult {
	ctx, span := h.tracer.Start(ctx, TaskType, trace.WithAttributes(
		attribute.Int("recommendations.count", len(input.Recommendations)),
		attribute.String("urgency", string(input.Urgency)),
	))
	defer span.End()

	started := time.Now()
	result := h.reorderer.Reorder(input.Recommendations, input.DynamicContext, input.Urgency)
	metrics.ReorderDuration.Observe(time.Since(started).Seconds())
	h.record(ctx, "success")
	span.SetAttributes(attribute.Int("recommendations.moved", len(result.PositionChanges)))

	h.logger.Info("Recommendations reordered", map[string]interface{}{
		"recommendations": len(result.Recommendations),
		"positionChanges": len(result.PositionChanges),
		"changesApplied":  result.ChangesApplied,
	})
	return result
}

func (h *Handler) record(ctx context.Context, status string) {
	if h.recorder != nil {
		h.recorder.RecordReorder(ctx, status)
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	if h.validator != nil {
		if err := h.validator.ValidateInput(TaskType, variables); err != nil {
			return nil, err
		}
	}

	input := &Input{}
	if err := job.GetVariablesAs(input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	if len(input.Recommendations) == 0 {
		return nil, errors.NewInputValidationFailedError("recommendations must not be empty")
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output models.ReorderResult) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return errors.NewWorkflowEngineError("complete job", err, false)
	}

	err = camunda.ExecuteWithRetry(ctx, h.retry, "complete job", func(ctx context.Context) error {
		_, sendErr := request.Send(ctx)
		return sendErr
	})
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}
	return nil
}
