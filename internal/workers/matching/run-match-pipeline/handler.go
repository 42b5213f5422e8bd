// internal/workers/matching/run-match-pipeline/handler.go
package runmatchpipeline

import (
	"context"
	"encoding/json"
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
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TaskType = "run-match-pipeline"

type Handler struct {
	config       *Config
	logger       logger.Logger
	pipeline     PipelineRunner
	validator    InputValidator
	recorder     RunRecorder
	tracer       trace.Tracer
	errorHandler *errors.ErrorHandler
	retry        *camunda.RetryConfig
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Pipeline     PipelineRunner
	Validator    InputValidator
	Recorder     RunRecorder
	Tracer       trace.Tracer
	Retry        *camunda.RetryConfig
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required for %s", TaskType)
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
		pipeline:     opts.Pipeline,
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

// Handle runs the pipeline for one job. Failures are reported to Zeebe through
// the error handler; only a failed completion is returned.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing match pipeline request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return nil
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return nil
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	return nil
}

// Execute runs the pipeline and records the outcome.
func (h *Handler) Execute(ctx context.Context, input *Input) (*models.GroupedRecommendations, error) {
	ctx, span := h.tracer.Start(ctx, TaskType, trace.WithAttributes(attribute.String("request.id", input.RequestID)))
	defer span.End()

	started := time.Now()
	output, err := h.pipeline.Run(ctx, input.RequestID)

	status, requestType := "success", ""
	if err != nil {
		status = string(errors.Normalize(err).Code)
	} else {
		requestType = string(output.RequestType)
	}
	if h.recorder != nil {
		h.recorder.RecordPipelineRun(ctx, status, requestType, time.Since(started))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("request.type", requestType),
		attribute.Int("recommendations.combined", len(output.Combined)),
		attribute.Int("recommendations.care", len(output.Split.Care)),
		attribute.Int("recommendations.transport", len(output.Split.Transport)),
		attribute.String("scoring.mode", string(output.Meta.ScoringMode)),
	)

	h.logger.Info("Match pipeline completed", map[string]interface{}{
		"requestId":   input.RequestID,
		"requestType": requestType,
		"combined":    len(output.Combined),
		"care":        len(output.Split.Care),
		"transport":   len(output.Split.Transport),
		"scoringMode": string(output.Meta.ScoringMode),
		"durationMs":  time.Since(started).Milliseconds(),
	})
	return output, nil
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

	requestID, _ := variables["requestId"].(string)
	if requestID == "" {
		return nil, errors.NewInputValidationFailedError("requestId is required")
	}
	return &Input{RequestID: requestID}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *models.GroupedRecommendations) error {
	variables, err := toVariables(output)
	if err != nil {
		return errors.NewInternalError(err)
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
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

	h.logger.Info("Successfully completed match pipeline job", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"requestId": output.RequestID,
	})
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// toVariables flattens the grouped result into process variables and adds
// the counts gateways branch on.
func toVariables(output *models.GroupedRecommendations) (map[string]interface{}, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshal recommendations: %w", err)
	}

	variables := make(map[string]interface{})
	if err := json.Unmarshal(data, &variables); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}

	total := len(output.Combined) + len(output.Split.Care) + len(output.Split.Transport)
	variables["recommendationCount"] = total
	variables["hasRecommendations"] = total > 0
	return variables, nil
}
