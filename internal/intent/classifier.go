package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/metrics"
	"sales-assistant/internal/common/validation"
	"sales-assistant/internal/completion"

	apperrors "sales-assistant/internal/common/errors"
)

// Fallback reasons reported on the classifier fallback counter.
const (
	reasonCompletionError = "completion_error"
	reasonEmptyResponse   = "empty_response"
	reasonInvalidJSON     = "invalid_json"
	reasonSchema          = "schema_violation"
	reasonPanic           = "panic"
)

var replySchema = validation.MustSchemaValidator(map[string]interface{}{
	"type":     "object",
	"required": []string{"intent"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
			"enum": intentNames(),
		},
		"extracted_params": map[string]interface{}{
			"type": []string{"object", "null"},
		},
		"confidence": map[string]interface{}{
			"type":    []string{"number", "null"},
			"minimum": 0,
			"maximum": 1,
		},
	},
})

func intentNames() []string {
	names := make([]string, len(All))
	for i, in := range All {
		names[i] = string(in)
	}
	return names
}

// Classifier asks the completion service for an intent and falls back to the
// keyword rules whenever the reply cannot be trusted. It never retries.
type Classifier struct {
	completer completion.Completer
	fallback  *FallbackClassifier
	timeout   time.Duration
	logger    logger.Logger
}

func NewClassifier(completer completion.Completer, fallback *FallbackClassifier, timeout time.Duration, log logger.Logger) *Classifier {
	if fallback == nil {
		fallback = NewFallbackClassifier(DefaultRules)
	}
	return &Classifier{
		completer: completer,
		fallback:  fallback,
		timeout:   timeout,
		logger:    log.With(map[string]interface{}{"component": "intent-classifier"}),
	}
}

type classifyError struct {
	reason string
	err    error
}

func (e *classifyError) Error() string { return e.reason + ": " + e.err.Error() }

func (e *classifyError) Unwrap() error { return e.err }

// Classify never fails. Any completion, decoding or validation problem yields
// the fallback classification of the same prompt.
func (c *Classifier) Classify(ctx context.Context, prompt string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = c.fallBack(prompt, &classifyError{reason: reasonPanic, err: fmt.Errorf("%v", r)})
		}
		metrics.Classifications.WithLabelValues(string(result.Source), string(result.Intent)).Inc()
	}()

	res, err := c.classifyLLM(ctx, prompt)
	if err != nil {
		return c.fallBack(prompt, err)
	}
	return res
}

// Fallback exposes the rule-based path for callers that skip the LLM.
func (c *Classifier) Fallback(prompt string) Result {
	return c.fallback.Classify(prompt)
}

func (c *Classifier) fallBack(prompt string, err error) Result {
	reason := reasonCompletionError
	var ce *classifyError
	if errors.As(err, &ce) {
		reason = ce.reason
	}
	metrics.ClassifierFallbacks.WithLabelValues(reason).Inc()

	stdErr := apperrors.NewClassificationAmbiguousError(err.Error())
	c.logger.Warn("LLM classification rejected, using rule-based classifier", map[string]interface{}{
		"code":   stdErr.Code,
		"reason": reason,
		"error":  stdErr.Details,
	})
	return c.fallback.Classify(prompt)
}

func (c *Classifier) classifyLLM(ctx context.Context, prompt string) (Result, error) {
	if c.completer == nil {
		return Result{}, &classifyError{reason: reasonCompletionError, err: errors.New("no completion service configured")}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.completer.Complete(ctx, []completion.Message{
		{Role: completion.RoleSystem, Content: SystemPrompt},
		{Role: completion.RoleUser, Content: prompt},
	})
	if err != nil {
		return Result{}, &classifyError{reason: reasonCompletionError, err: err}
	}

	last, ok := resp.Last()
	if !ok || strings.TrimSpace(last.Content) == "" {
		return Result{}, &classifyError{reason: reasonEmptyResponse, err: completion.ErrEmptyResponse}
	}

	var doc interface{}
	if err := completion.DecodeReply(last.Content, &doc); err != nil {
		if errors.Is(err, completion.ErrEmptyResponse) {
			return Result{}, &classifyError{reason: reasonEmptyResponse, err: err}
		}
		return Result{}, &classifyError{reason: reasonInvalidJSON, err: err}
	}

	if v := replySchema.Validate(doc); !v.Valid {
		return Result{}, &classifyError{reason: reasonSchema, err: errors.New(v.Error())}
	}

	return buildResult(doc.(map[string]interface{}), prompt)
}

func buildResult(reply map[string]interface{}, prompt string) (Result, error) {
	in := Intent(reply["intent"].(string))
	if !IsKnown(in) {
		return Result{}, &classifyError{reason: reasonSchema, err: fmt.Errorf("intent %q not allowed", in)}
	}

	params := Params{}
	if raw, ok := reply["extracted_params"].(map[string]interface{}); ok {
		for k, v := range raw {
			params[k] = normalizeNumbers(v)
		}
	}
	params[ParamUserPrompt] = prompt

	var confidence float64
	if n, ok := reply["confidence"].(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return Result{}, &classifyError{reason: reasonSchema, err: err}
		}
		confidence = f
	}
	if in == Unknown {
		confidence = 0
	}

	return Result{Intent: in, ExtractedParams: params, Confidence: confidence, Source: SourceLLM}, nil
}

// normalizeNumbers turns json.Number into int64 when integral, float64 otherwise.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeNumbers(e)
		}
		return out
	default:
		return v
	}
}
