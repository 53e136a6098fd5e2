// Package backend is the client for the sales backend gateway, which owns all
// projects, leads, emails and feedback.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the gateway answers 404 or a lookup has no match.
var ErrNotFound = errors.New("not found")

// Gateway is the set of backend operations the assistant depends on.
type Gateway interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	FindProjectByName(ctx context.Context, name string) (*Project, error)
	CreateProject(ctx context.Context, p Project) (*Project, error)

	ListLeads(ctx context.Context) ([]Lead, error)
	GetLead(ctx context.Context, id int64) (*Lead, error)
	CreateLead(ctx context.Context, l Lead) (*Lead, error)

	AutoConnect(ctx context.Context, projectID int64) (*ConnectResult, error)

	CreateEmail(ctx context.Context, e Email) (*Email, error)
	FindEmails(ctx context.Context, projectID, leadID int64) ([]Email, error)

	CreateFeedback(ctx context.Context, f Feedback) (*Feedback, error)
	LatestFeedback(ctx context.Context, emailID int64) (*Feedback, error)
}

// Doer executes HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is a non-2xx, non-404 gateway response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s failed (status %d): %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int { return e.Status }

// Client talks JSON to the gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient Doer
}

// NewClient creates a gateway client. apiKey may be empty when httpClient
// already authenticates requests.
func NewClient(baseURL, apiKey string, httpClient Doer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("backend %s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// --- projects ---

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.doRequest(ctx, http.MethodGet, "/projects", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (*Project, error) {
	var p Project
	if err := c.doRequest(ctx, http.MethodGet, idPath("/projects", id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProjectByName prefers an exact (case-insensitive) name match and falls
// back to the first result the gateway returns.
func (c *Client) FindProjectByName(ctx context.Context, name string) (*Project, error) {
	var projects []Project
	query := url.Values{"name": []string{name}}
	if err := c.doRequest(ctx, http.MethodGet, "/projects", query, nil, &projects); err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	for i := range projects {
		if strings.EqualFold(strings.TrimSpace(projects[i].Name), strings.TrimSpace(name)) {
			return &projects[i], nil
		}
	}
	return &projects[0], nil
}

func (c *Client) CreateProject(ctx context.Context, p Project) (*Project, error) {
	var created Project
	if err := c.doRequest(ctx, http.MethodPost, "/projects", nil, p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- leads ---

func (c *Client) ListLeads(ctx context.Context) ([]Lead, error) {
	var leads []Lead
	if err := c.doRequest(ctx, http.MethodGet, "/leads", nil, nil, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

func (c *Client) GetLead(ctx context.Context, id int64) (*Lead, error) {
	var l Lead
	if err := c.doRequest(ctx, http.MethodGet, idPath("/leads", id), nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) CreateLead(ctx context.Context, l Lead) (*Lead, error) {
	var created Lead
	if err := c.doRequest(ctx, http.MethodPost, "/leads", nil, l, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- connections ---

func (c *Client) AutoConnect(ctx context.Context, projectID int64) (*ConnectResult, error) {
	var res ConnectResult
	if err := c.doRequest(ctx, http.MethodPost, idPath("/projects", projectID)+"/auto-connect", nil, struct{}{}, &res); err != nil {
		return nil, err
	}
	if res.ProjectID == 0 {
		res.ProjectID = projectID
	}
	if res.Count == 0 {
		res.Count = len(res.ConnectedLeadIDs)
	}
	return &res, nil
}

// --- emails ---

func (c *Client) CreateEmail(ctx context.Context, e Email) (*Email, error) {
	var created Email
	if err := c.doRequest(ctx, http.MethodPost, "/emails", nil, e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindEmails returns the emails for a project/lead pair, newest first.
func (c *Client) FindEmails(ctx context.Context, projectID, leadID int64) ([]Email, error) {
	query := url.Values{
		"projectId": []string{strconv.FormatInt(projectID, 10)},
		"leadId":    []string{strconv.FormatInt(leadID, 10)},
	}
	var emails []Email
	if err := c.doRequest(ctx, http.MethodGet, "/emails", query, nil, &emails); err != nil {
		return nil, err
	}
	SortNewestFirst(emails)
	return emails, nil
}

// SortNewestFirst orders emails by creation time, then id, descending.
func SortNewestFirst(emails []Email) {
	sort.SliceStable(emails, func(i, j int) bool {
		a, b := emails[i], emails[j]
		if a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt) {
			return a.CreatedAt.After(*b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// --- feedback ---

func (c *Client) CreateFeedback(ctx context.Context, f Feedback) (*Feedback, error) {
	var created Feedback
	if err := c.doRequest(ctx, http.MethodPost, "/feedback", nil, f, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) LatestFeedback(ctx context.Context, emailID int64) (*Feedback, error) {
	var f Feedback
	if err := c.doRequest(ctx, http.MethodGet, idPath("/feedback/latest", emailID), nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
