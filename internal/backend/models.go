package backend

import "time"

type Project struct {
	ID             int64      `json:"id,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Industry       string     `json:"industry,omitempty"`
	TargetCustomer string     `json:"targetCustomer,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

type Lead struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Company   string     `json:"company,omitempty"`
	Email     string     `json:"email,omitempty"`
	Position  string     `json:"position,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Email types stored by the workflows.
const (
	EmailTypeInitial  = "initial"
	EmailTypeFollowup = "followup"
	EmailTypeRewrite  = "rewrite"
)

type Email struct {
	ID        int64      `json:"id,omitempty"`
	ProjectID int64      `json:"projectId"`
	LeadID    int64      `json:"leadId"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Type      string     `json:"type,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type Feedback struct {
	ID        int64      `json:"id,omitempty"`
	EmailID   int64      `json:"emailId"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ConnectResult is the outcome of auto-connecting leads to a project.
type ConnectResult struct {
	ProjectID        int64   `json:"projectId"`
	ConnectedLeadIDs []int64 `json:"connectedLeadIds"`
	Count            int     `json:"count"`
}
