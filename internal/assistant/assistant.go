// Package assistant runs one prompt through classification and dispatch.
package assistant

import (
	"context"
	"strings"
	"time"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/observability"
	"sales-assistant/internal/dispatch"
	"sales-assistant/internal/intent"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Classifier maps a prompt to an intent. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, prompt string) intent.Result
}

// Dispatcher runs the workflow for an intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, params map[string]interface{}) *dispatch.Result
}

type Request struct {
	Prompt string                 `json:"prompt"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type Outcome struct {
	RequestID      string           `json:"requestId"`
	Classification *intent.Result   `json:"classification,omitempty"`
	Result         *dispatch.Result `json:"result"`
}

type Assistant struct {
	classifier Classifier
	dispatcher Dispatcher
	obs        *observability.Observability
	logger     logger.Logger
}

func New(classifier Classifier, dispatcher Dispatcher, obs *observability.Observability, log logger.Logger) *Assistant {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Assistant{
		classifier: classifier,
		dispatcher: dispatcher,
		obs:        obs,
		logger:     log.With(map[string]interface{}{"component": "assistant"}),
	}
}

// Handle classifies req.Prompt and dispatches the result. Caller params are
// merged over the extracted ones; userPrompt always carries the prompt itself.
func (a *Assistant) Handle(ctx context.Context, req Request) *Outcome {
	start := time.Now()
	requestID := uuid.New().String()
	log := a.logger.With(map[string]interface{}{"requestId": requestID})

	if strings.TrimSpace(req.Prompt) == "" {
		res := dispatch.Failure(intent.Unknown, apperrors.NewInvalidRequestError("prompt is required"))
		a.obs.RecordPrompt(ctx, string(intent.Unknown), string(res.Status), time.Since(start))
		return &Outcome{RequestID: requestID, Result: res}
	}

	classification := a.Classify(ctx, req.Prompt)
	log.Info("prompt classified", map[string]interface{}{
		"intent":     string(classification.Intent),
		"confidence": classification.Confidence,
		"source":     string(classification.Source),
	})

	params := MergeParams(classification.ExtractedParams, req.Params, req.Prompt)
	result := a.Dispatch(ctx, classification.Intent, params)

	fields := map[string]interface{}{
		"intent":     string(result.Intent),
		"status":     string(result.Status),
		"durationMs": time.Since(start).Milliseconds(),
	}
	if result.Error != nil {
		fields["errorCode"] = string(result.Error.Code)
	}
	log.Info("prompt handled", fields)

	a.obs.RecordPrompt(ctx, string(result.Intent), string(result.Status), time.Since(start))
	return &Outcome{RequestID: requestID, Classification: &classification, Result: result}
}

// Classify wraps the classifier in a span.
func (a *Assistant) Classify(ctx context.Context, prompt string) intent.Result {
	ctx, span := a.obs.StartSpan(ctx, "assistant.classify")
	defer span.End()

	res := a.classifier.Classify(ctx, prompt)
	span.SetAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.String("source", string(res.Source)),
		attribute.Float64("confidence", res.Confidence),
	)
	return res
}

// Dispatch wraps the dispatcher in a span.
func (a *Assistant) Dispatch(ctx context.Context, in intent.Intent, params map[string]interface{}) *dispatch.Result {
	ctx, span := a.obs.StartSpan(ctx, "assistant.dispatch", attribute.String("intent", string(in)))
	defer span.End()

	res := a.dispatcher.Dispatch(ctx, in, params)
	span.SetAttributes(attribute.String("status", string(res.Status)))
	return res
}

// MergeParams layers caller over extracted and pins userPrompt to prompt.
func MergeParams(extracted, caller map[string]interface{}, prompt string) map[string]interface{} {
	out := make(map[string]interface{}, len(extracted)+len(caller)+1)
	for k, v := range extracted {
		out[k] = v
	}
	for k, v := range caller {
		out[k] = v
	}
	out[intent.ParamUserPrompt] = prompt
	return out
}
