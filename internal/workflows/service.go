// Package workflows implements the operations behind each intent. Every
// function pairs a completion call with backend gateway calls.
package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sales-assistant/internal/backend"
	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/completion"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

// Service holds the collaborators shared by all workflows. Pass a completer
// already wrapped with completion.WithRetry.
type Service struct {
	completer completion.Completer
	gateway   backend.Gateway
	logger    logger.Logger
}

func NewService(completer completion.Completer, gateway backend.Gateway, log logger.Logger) *Service {
	return &Service{
		completer: completer,
		gateway:   gateway,
		logger:    log.With(map[string]interface{}{"component": "workflows"}),
	}
}

// complete runs one completion and strictly decodes the final turn into v.
func (s *Service) complete(ctx context.Context, workflow string, msgs []completion.Message, v interface{}) error {
	resp, err := s.completer.Complete(ctx, msgs)
	if err != nil {
		return apperrors.NewUpstreamUnavailableError("completion", err)
	}
	last, ok := resp.Last()
	if !ok {
		return apperrors.NewWorkflowFailedError(workflow, completion.ErrEmptyResponse)
	}
	if err := completion.DecodeReply(last.Content, v); err != nil {
		s.logger.Warn("undecodable model reply", map[string]interface{}{
			"workflow": workflow,
			"error":    err.Error(),
		})
		return apperrors.NewWorkflowFailedError(workflow, err)
	}
	return nil
}

func backendError(resource string, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return apperrors.NewNotFoundError(resource, err.Error())
	}
	return apperrors.NewUpstreamUnavailableError("backend", err)
}

func (s *Service) RegisterProject(ctx context.Context, description string) (*backend.Project, error) {
	var d projectDraft
	if err := s.complete(ctx, "register_project", messages(projectSystem, description), &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, apperrors.NewWorkflowFailedError("register_project", errors.New("model returned a project without a name"))
	}
	if d.Description == "" {
		d.Description = description
	}

	created, err := s.gateway.CreateProject(ctx, backend.Project{
		Name:           d.Name,
		Description:    d.Description,
		Industry:       d.Industry,
		TargetCustomer: d.TargetCustomer,
	})
	if err != nil {
		return nil, backendError("project", err)
	}

	s.logger.Info("project registered", map[string]interface{}{"projectId": created.ID, "name": created.Name})
	return created, nil
}

// RegisterLeads stores structured leads as given. Free text, either in leads
// or in userPrompt, is parsed by the model first.
func (s *Service) RegisterLeads(ctx context.Context, leads interface{}, userPrompt string) ([]backend.Lead, error) {
	var toCreate []backend.Lead
	switch v := leads.(type) {
	case string:
		userPrompt = v
	case nil:
	default:
		parsed, err := decodeLeads(v)
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("leads: %v", err))
		}
		toCreate = parsed
	}

	if len(toCreate) == 0 {
		var d leadsDraft
		if err := s.complete(ctx, "register_lead", messages(leadsSystem, userPrompt), &d); err != nil {
			return nil, err
		}
		for _, l := range d.Leads {
			if strings.TrimSpace(l.Name) == "" {
				continue
			}
			toCreate = append(toCreate, backend.Lead{
				Name: l.Name, Company: l.Company, Email: l.Email,
				Position: l.Position, Industry: l.Industry, Notes: l.Notes,
			})
		}
	}
	if len(toCreate) == 0 {
		return nil, apperrors.NewInvalidRequestError("no lead details found in request")
	}

	created := make([]backend.Lead, 0, len(toCreate))
	for _, l := range toCreate {
		c, err := s.gateway.CreateLead(ctx, l)
		if err != nil {
			return nil, backendError("lead", err)
		}
		created = append(created, *c)
	}

	s.logger.Info("leads registered", map[string]interface{}{"count": len(created)})
	return created, nil
}

func decodeLeads(v interface{}) ([]backend.Lead, error) {
	if m, ok := v.(map[string]interface{}); ok {
		v = []interface{}{m}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var leads []backend.Lead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return nil, err
	}
	out := leads[:0]
	for _, l := range leads {
		if strings.TrimSpace(l.Name) != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// ConnectLeads resolves projectName when projectID is zero.
func (s *Service) ConnectLeads(ctx context.Context, projectID int64, projectName string) (*backend.ConnectResult, error) {
	if projectID == 0 {
		p, err := s.gateway.FindProjectByName(ctx, projectName)
		if err != nil {
			return nil, backendError("project", err)
		}
		projectID = p.ID
	}

	res, err := s.gateway.AutoConnect(ctx, projectID)
	if err != nil {
		return nil, backendError("project", err)
	}
	s.logger.Info("leads connected", map[string]interface{}{"projectId": projectID, "count": res.Count})
	return res, nil
}

// InitialEmail drafts and stores one email per lead. leads may hold ids,
// lead objects or names; with no leads, leads named in userPrompt are used.
func (s *Service) InitialEmail(ctx context.Context, projectID int64, leads interface{}, userPrompt string) ([]backend.Email, error) {
	project, err := s.gateway.GetProject(ctx, projectID)
	if err != nil {
		return nil, backendError("project", err)
	}

	targets, err := s.resolveLeads(ctx, leads, userPrompt)
	if err != nil {
		return nil, err
	}

	emails := make([]backend.Email, 0, len(targets))
	for i := range targets {
		lead := &targets[i]
		var d draft
		if err := s.complete(ctx, "initial_email", initialEmailMessages(project, lead, userPrompt), &d); err != nil {
			return nil, err
		}
		stored, err := s.storeEmail(ctx, projectID, lead.ID, d, backend.EmailTypeInitial)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *stored)
	}
	return emails, nil
}

func (s *Service) resolveLeads(ctx context.Context, leads interface{}, userPrompt string) ([]backend.Lead, error) {
	var refs []interface{}
	switch v := leads.(type) {
	case nil:
	case []interface{}:
		refs = v
	case string:
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				refs = append(refs, name)
			}
		}
	default:
		refs = []interface{}{v}
	}

	var all []backend.Lead
	loadAll := func() error {
		if all != nil {
			return nil
		}
		list, err := s.gateway.ListLeads(ctx)
		if err != nil {
			return backendError("lead", err)
		}
		all = list
		return nil
	}

	var out []backend.Lead
	for _, ref := range refs {
		if m, ok := ref.(map[string]interface{}); ok {
			if id := cast.ToInt64(m["id"]); id > 0 {
				ref = id
			} else {
				ref = cast.ToString(m["name"])
			}
		}

		if id, err := cast.ToInt64E(ref); err == nil && id > 0 {
			l, err := s.gateway.GetLead(ctx, id)
			if err != nil {
				return nil, backendError("lead", err)
			}
			out = append(out, *l)
			continue
		}

		name := strings.TrimSpace(cast.ToString(ref))
		if name == "" {
			continue
		}
		if err := loadAll(); err != nil {
			return nil, err
		}
		l, ok := findLeadByName(all, name)
		if !ok {
			return nil, apperrors.NewNotFoundError("lead", fmt.Sprintf("no lead named %q", name))
		}
		out = append(out, l)
	}

	if len(refs) == 0 && strings.TrimSpace(userPrompt) != "" {
		if err := loadAll(); err != nil {
			return nil, err
		}
		out = leadsMentioned(all, userPrompt)
	}

	if len(out) == 0 {
		return nil, apperrors.NewNotFoundError("lead", "no lead matched the request")
	}
	return out, nil
}

func findLeadByName(leads []backend.Lead, name string) (backend.Lead, bool) {
	for _, l := range leads {
		if strings.EqualFold(strings.TrimSpace(l.Name), name) {
			return l, true
		}
	}
	return backend.Lead{}, false
}

func leadsMentioned(leads []backend.Lead, text string) []backend.Lead {
	text = strings.ToLower(text)
	var out []backend.Lead
	for _, l := range leads {
		name := strings.ToLower(strings.TrimSpace(l.Name))
		company := strings.ToLower(strings.TrimSpace(l.Company))
		if (name != "" && strings.Contains(text, name)) || (company != "" && strings.Contains(text, company)) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Service) FollowupEmail(ctx context.Context, projectID, leadID int64, feedbackSummary string) (*backend.Email, error) {
	var (
		project *backend.Project
		lead    *backend.Lead
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.gateway.GetProject(gctx, projectID)
		if err != nil {
			return backendError("project", err)
		}
		project = p
		return nil
	})
	g.Go(func() error {
		l, err := s.gateway.GetLead(gctx, leadID)
		if err != nil {
			return backendError("lead", err)
		}
		lead = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var d draft
	if err := s.complete(ctx, "followup_email", followupEmailMessages(project, lead, feedbackSummary), &d); err != nil {
		return nil, err
	}
	return s.storeEmail(ctx, projectID, leadID, d, backend.EmailTypeFollowup)
}

// RewriteEmail rewrites the latest email sent to the lead for the project.
func (s *Service) RewriteEmail(ctx context.Context, projectID, leadID int64, userFeedback string) (*backend.Email, error) {
	prev, err := s.LatestEmail(ctx, projectID, leadID)
	if err != nil {
		return nil, err
	}

	var d draft
	if err := s.complete(ctx, "email_rewrite_request", rewriteEmailMessages(prev, userFeedback), &d); err != nil {
		return nil, err
	}
	return s.storeEmail(ctx, projectID, leadID, d, backend.EmailTypeRewrite)
}

func (s *Service) AnalyzeEmail(ctx context.Context, emailContent, userFeedback string) (*Analysis, error) {
	var a Analysis
	if err := s.complete(ctx, "analyze_email", analysisMessages(emailContent, userFeedback), &a); err != nil {
		return nil, err
	}
	a.Priority = strings.ToLower(strings.TrimSpace(a.Priority))
	return &a, nil
}

func (s *Service) SummarizeFeedback(ctx context.Context, projectID, leadID int64) (*FeedbackSummary, error) {
	email, err := s.LatestEmail(ctx, projectID, leadID)
	if err != nil {
		return nil, err
	}

	fb, err := s.gateway.LatestFeedback(ctx, email.ID)
	if err != nil {
		return nil, backendError("feedback", err)
	}

	var d summaryDraft
	if err := s.complete(ctx, "summarize_feedback", summaryMessages(email, fb.Content), &d); err != nil {
		return nil, err
	}

	return &FeedbackSummary{
		ProjectID:       projectID,
		LeadID:          leadID,
		EmailID:         email.ID,
		Feedback:        fb.Content,
		FeedbackSummary: d.Summary,
	}, nil
}

// LatestEmail returns the newest email for the pair or a NOT_FOUND error.
func (s *Service) LatestEmail(ctx context.Context, projectID, leadID int64) (*backend.Email, error) {
	emails, err := s.gateway.FindEmails(ctx, projectID, leadID)
	if err != nil {
		return nil, backendError("email", err)
	}
	if len(emails) == 0 {
		return nil, apperrors.NewNotFoundError("email",
			fmt.Sprintf("no prior email for project %d and lead %d", projectID, leadID))
	}
	return &emails[0], nil
}

func (s *Service) RecordFeedback(ctx context.Context, emailID int64, content string) (*backend.Feedback, error) {
	fb, err := s.gateway.CreateFeedback(ctx, backend.Feedback{EmailID: emailID, Content: content})
	if err != nil {
		return nil, backendError("feedback", err)
	}
	return fb, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]backend.Project, error) {
	projects, err := s.gateway.ListProjects(ctx)
	if err != nil {
		return nil, backendError("project", err)
	}
	return projects, nil
}

func (s *Service) ListLeads(ctx context.Context) ([]backend.Lead, error) {
	leads, err := s.gateway.ListLeads(ctx)
	if err != nil {
		return nil, backendError("lead", err)
	}
	return leads, nil
}

func (s *Service) storeEmail(ctx context.Context, projectID, leadID int64, d draft, emailType string) (*backend.Email, error) {
	if strings.TrimSpace(d.Body) == "" {
		return nil, apperrors.NewWorkflowFailedError(emailType+"_email", errors.New("model returned an empty email body"))
	}
	stored, err := s.gateway.CreateEmail(ctx, backend.Email{
		ProjectID: projectID,
		LeadID:    leadID,
		Subject:   d.Subject,
		Body:      d.Body,
		Type:      emailType,
	})
	if err != nil {
		return nil, backendError("email", err)
	}
	s.logger.Info("email stored", map[string]interface{}{
		"emailId":   stored.ID,
		"projectId": projectID,
		"leadId":    leadID,
		"type":      emailType,
	})
	return stored, nil
}
