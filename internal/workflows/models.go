package workflows

import "strings"

// Analysis is the model's assessment of an email against the user's feedback.
type Analysis struct {
	Priority    string   `json:"priority"`
	Issues      []string `json:"issues"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

// Severe reports whether the email should be rewritten rather than just
// annotated.
func (a *Analysis) Severe() bool {
	return strings.EqualFold(strings.TrimSpace(a.Priority), "high") || len(a.Issues) > 2
}

// FeedbackSummary condenses the latest feedback on a (project, lead) email.
// FeedbackSummary feeds directly into a followup_email request.
type FeedbackSummary struct {
	ProjectID       int64  `json:"projectId"`
	LeadID          int64  `json:"leadId"`
	EmailID         int64  `json:"emailId"`
	Feedback        string `json:"feedback"`
	FeedbackSummary string `json:"feedbackSummary"`
}

type draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type projectDraft struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Industry       string `json:"industry"`
	TargetCustomer string `json:"targetCustomer"`
}

type leadDraft struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Position string `json:"position"`
	Industry string `json:"industry"`
	Notes    string `json:"notes"`
}

type leadsDraft struct {
	Leads []leadDraft `json:"leads"`
}

type summaryDraft struct {
	Summary string `json:"summary"`
}
