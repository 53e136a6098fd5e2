package promptdispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"sales-assistant/internal/assistant"
	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/metrics"
	"sales-assistant/internal/dispatch"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "sales-assistant.prompt-dispatch"
	WorkerName = "prompt-dispatch"
)

// Pipeline handles one prompt end to end.
type Pipeline interface {
	Handle(ctx context.Context, req assistant.Request) *assistant.Outcome
}

type Handler struct {
	config       *Config
	pipeline     Pipeline
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, pipeline Pipeline, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// Execute runs the prompt. Error results come back as the carried
// StandardError; success and unhandled results complete the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out := h.pipeline.Handle(ctx, assistant.Request{Prompt: input.Prompt, Params: input.Params})
	res := out.Result

	if res.Status == dispatch.StatusError {
		if res.Error == nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("intent %s failed without an error", res.Intent))
		}
		return nil, res.Error
	}

	output := &Output{
		RequestID: out.RequestID,
		Intent:    string(res.Intent),
		Status:    string(res.Status),
		Data:      res.Data,
	}
	if out.Classification != nil {
		output.Confidence = out.Classification.Confidence
	}

	h.logger.Info("prompt dispatched", map[string]interface{}{
		"requestId": output.RequestID,
		"intent":    output.Intent,
		"status":    output.Status,
	})
	return output, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(apperrors.ErrCodeInternal)
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
