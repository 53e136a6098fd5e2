// Package dispatch routes a classified intent to its workflow after checking
// the intent's required parameters. Every call returns a Result; nothing
// panics or errors past Dispatch.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"sales-assistant/internal/backend"
	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/metrics"
	"sales-assistant/internal/common/validation"
	"sales-assistant/internal/intent"
	"sales-assistant/internal/workflows"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/spf13/cast"
)

// Parameter keys understood by the dispatcher.
const (
	ParamDescription     = "description"
	ParamUserPrompt      = intent.ParamUserPrompt
	ParamLeads           = "leads"
	ParamProjectID       = "projectId"
	ParamProjectName     = "projectName"
	ParamLeadID          = "leadId"
	ParamFeedbackSummary = "feedbackSummary"
	ParamUserFeedback    = "userFeedback"
	ParamEmailContent    = "emailContent"
)

// RewriteMarker in a rejection forces an immediate rewrite.
const RewriteMarker = "재작성요청"

// Workflows is the set of operations the dispatcher can invoke.
type Workflows interface {
	RegisterProject(ctx context.Context, description string) (*backend.Project, error)
	RegisterLeads(ctx context.Context, leads interface{}, userPrompt string) ([]backend.Lead, error)
	ConnectLeads(ctx context.Context, projectID int64, projectName string) (*backend.ConnectResult, error)
	InitialEmail(ctx context.Context, projectID int64, leads interface{}, userPrompt string) ([]backend.Email, error)
	FollowupEmail(ctx context.Context, projectID, leadID int64, feedbackSummary string) (*backend.Email, error)
	RewriteEmail(ctx context.Context, projectID, leadID int64, userFeedback string) (*backend.Email, error)
	AnalyzeEmail(ctx context.Context, emailContent, userFeedback string) (*workflows.Analysis, error)
	SummarizeFeedback(ctx context.Context, projectID, leadID int64) (*workflows.FeedbackSummary, error)
	LatestEmail(ctx context.Context, projectID, leadID int64) (*backend.Email, error)
	RecordFeedback(ctx context.Context, emailID int64, content string) (*backend.Feedback, error)
	ListProjects(ctx context.Context) ([]backend.Project, error)
	ListLeads(ctx context.Context) ([]backend.Lead, error)
}

// requirement is one entry of the per-intent parameter table. Each group is
// satisfied when at least one of its keys is present.
type requirement [][]string

func all(keys ...string) requirement {
	r := make(requirement, len(keys))
	for i, k := range keys {
		r[i] = []string{k}
	}
	return r
}

func (r requirement) and(anyOf ...string) requirement {
	return append(r, anyOf)
}

// Requirements is the canonical required-parameter table.
var Requirements = map[intent.Intent]requirement{
	intent.RegisterProject:      requirement{{ParamDescription, ParamUserPrompt}},
	intent.RegisterLead:         requirement{{ParamLeads, ParamUserPrompt}},
	intent.ConnectLeads:         requirement{{ParamProjectID, ParamProjectName}},
	intent.InitialEmail:         all(ParamProjectID).and(ParamLeads, ParamUserPrompt),
	intent.FollowupEmail:        all(ParamProjectID, ParamLeadID, ParamFeedbackSummary),
	intent.EmailRewriteRequest:  all(ParamProjectID, ParamLeadID, ParamUserFeedback),
	intent.AnalyzeEmail:         all(ParamEmailContent, ParamUserFeedback),
	intent.HandleEmailRejection: all(ParamProjectID, ParamLeadID).and(ParamUserFeedback, ParamUserPrompt),
	intent.SummarizeFeedback:    all(ParamProjectID, ParamLeadID),
	intent.ListProjects:         nil,
	intent.ListLeads:            nil,
}

// Missing returns the unmet groups of the intent's requirement, each rendered
// as "a" or "a|b".
func Missing(in intent.Intent, params map[string]interface{}) []string {
	var missing []string
	for _, group := range Requirements[in] {
		if len(validation.MissingFields(params, group...)) == len(group) {
			missing = append(missing, strings.Join(group, "|"))
		}
	}
	return missing
}

type Dispatcher struct {
	workflows Workflows
	logger    logger.Logger
}

func NewDispatcher(wf Workflows, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		workflows: wf,
		logger:    log.With(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch validates params for in and runs the matching workflow.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, params map[string]interface{}) (result *Result) {
	start := time.Now()
	if params == nil {
		params = map[string]interface{}{}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("workflow panicked", map[string]interface{}{
				"intent": string(in),
				"panic":  fmt.Sprint(r),
			})
			result = failure(in, apperrors.NewWorkflowFailedError(string(in), fmt.Errorf("panic: %v", r)))
		}
		metrics.Dispatches.WithLabelValues(string(in), string(result.Status)).Inc()
		metrics.DispatchDuration.WithLabelValues(string(in)).Observe(time.Since(start).Seconds())
	}()

	if _, handled := Requirements[in]; !handled {
		d.logger.Info("unhandled intent", map[string]interface{}{"intent": string(in)})
		return unhandled(in)
	}

	if missing := Missing(in, params); len(missing) > 0 {
		d.logger.Info("missing parameters", map[string]interface{}{
			"intent":  string(in),
			"missing": missing,
		})
		return failure(in, apperrors.NewMissingParameterError(string(in), missing))
	}

	data, err := d.route(ctx, in, params)
	if err != nil {
		stdErr := asStandard(in, err)
		d.logger.Warn("workflow failed", map[string]interface{}{
			"intent": string(in),
			"code":   stdErr.Code,
			"error":  stdErr.Details,
		})
		return failure(in, stdErr)
	}
	return success(in, data)
}

func (d *Dispatcher) route(ctx context.Context, in intent.Intent, p map[string]interface{}) (interface{}, error) {
	switch in {
	case intent.RegisterProject:
		return d.workflows.RegisterProject(ctx, firstString(p, ParamDescription, ParamUserPrompt))

	case intent.RegisterLead:
		return d.workflows.RegisterLeads(ctx, present(p, ParamLeads), str(p, ParamUserPrompt))

	case intent.ConnectLeads:
		var projectID int64
		if present(p, ParamProjectID) != nil {
			id, err := requireID(p, ParamProjectID)
			if err != nil {
				return nil, err
			}
			projectID = id
		}
		return d.workflows.ConnectLeads(ctx, projectID, str(p, ParamProjectName))

	case intent.InitialEmail:
		projectID, err := requireID(p, ParamProjectID)
		if err != nil {
			return nil, err
		}
		return d.workflows.InitialEmail(ctx, projectID, present(p, ParamLeads), str(p, ParamUserPrompt))

	case intent.FollowupEmail:
		projectID, leadID, err := pairIDs(p)
		if err != nil {
			return nil, err
		}
		return d.workflows.FollowupEmail(ctx, projectID, leadID, str(p, ParamFeedbackSummary))

	case intent.EmailRewriteRequest:
		projectID, leadID, err := pairIDs(p)
		if err != nil {
			return nil, err
		}
		return d.workflows.RewriteEmail(ctx, projectID, leadID, str(p, ParamUserFeedback))

	case intent.AnalyzeEmail:
		return d.workflows.AnalyzeEmail(ctx, str(p, ParamEmailContent), str(p, ParamUserFeedback))

	case intent.HandleEmailRejection:
		projectID, leadID, err := pairIDs(p)
		if err != nil {
			return nil, err
		}
		return d.handleRejection(ctx, projectID, leadID, firstString(p, ParamUserFeedback, ParamUserPrompt), str(p, ParamUserPrompt))

	case intent.SummarizeFeedback:
		projectID, leadID, err := pairIDs(p)
		if err != nil {
			return nil, err
		}
		return d.workflows.SummarizeFeedback(ctx, projectID, leadID)

	case intent.ListProjects:
		return d.workflows.ListProjects(ctx)

	case intent.ListLeads:
		return d.workflows.ListLeads(ctx)
	}
	return nil, apperrors.NewUnrecognizedIntentError(string(in))
}

// handleRejection records the rejection text and either rewrites right away
// (marker in the prompt or the feedback), rewrites after a severe analysis, or
// returns the analysis alone.
func (d *Dispatcher) handleRejection(ctx context.Context, projectID, leadID int64, text, prompt string) (*RejectionOutcome, error) {
	prev, err := d.workflows.LatestEmail(ctx, projectID, leadID)
	if err != nil {
		return nil, err
	}

	if _, err := d.workflows.RecordFeedback(ctx, prev.ID, text); err != nil {
		d.logger.Warn("could not record rejection feedback", map[string]interface{}{
			"emailId": prev.ID,
			"error":   err.Error(),
		})
	}

	if strings.Contains(prompt, RewriteMarker) || strings.Contains(text, RewriteMarker) {
		email, err := d.workflows.RewriteEmail(ctx, projectID, leadID, text)
		if err != nil {
			return nil, err
		}
		return &RejectionOutcome{Path: PathRewrite, Email: email}, nil
	}

	analysis, err := d.workflows.AnalyzeEmail(ctx, prev.Subject+"\n\n"+prev.Body, text)
	if err != nil {
		return nil, err
	}
	if !analysis.Severe() {
		return &RejectionOutcome{Path: PathAnalyzeOnly, Analysis: analysis}, nil
	}

	feedback := analysis.Summary
	if strings.TrimSpace(feedback) == "" {
		feedback = text
	}
	email, err := d.workflows.RewriteEmail(ctx, projectID, leadID, feedback)
	if err != nil {
		return nil, err
	}
	return &RejectionOutcome{Path: PathAnalyzeRewrite, Email: email, Analysis: analysis}, nil
}

func asStandard(in intent.Intent, err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	return apperrors.NewWorkflowFailedError(string(in), err)
}

// present returns the value for key, or nil when it is falsy.
func present(p map[string]interface{}, key string) interface{} {
	v := p[key]
	if validation.IsFalsy(v) {
		return nil
	}
	return v
}

func str(p map[string]interface{}, key string) string {
	v := present(p, key)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func firstString(p map[string]interface{}, keys ...string) string {
	if k, ok := validation.FirstPresent(p, keys...); ok {
		return str(p, k)
	}
	return ""
}

// requireID accepts positive integers, integral floats and numeric strings.
// Fractional values are rejected rather than truncated.
func requireID(p map[string]interface{}, key string) (int64, error) {
	switch f := p[key].(type) {
	case float64:
		if f != math.Trunc(f) {
			return 0, apperrors.NewInvalidRequestError(fmt.Sprintf("%s must be a positive integer, got %v", key, f))
		}
	case float32:
		if float64(f) != math.Trunc(float64(f)) {
			return 0, apperrors.NewInvalidRequestError(fmt.Sprintf("%s must be a positive integer, got %v", key, f))
		}
	}
	id, err := cast.ToInt64E(p[key])
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidRequestError(fmt.Sprintf("%s must be a positive integer, got %v", key, p[key]))
	}
	return id, nil
}

func pairIDs(p map[string]interface{}) (int64, int64, error) {
	projectID, err := requireID(p, ParamProjectID)
	if err != nil {
		return 0, 0, err
	}
	leadID, err := requireID(p, ParamLeadID)
	if err != nil {
		return 0, 0, err
	}
	return projectID, leadID, nil
}
