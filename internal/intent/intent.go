// Package intent maps a free-text sales request to exactly one intent from a
// closed set, with an LLM classifier backed by a keyword-rule fallback.
package intent

// Intent is a tag from the closed set below.
type Intent string

const (
	RegisterProject      Intent = "register_project"
	RegisterLead         Intent = "register_lead"
	ConnectLeads         Intent = "connect_leads"
	InitialEmail         Intent = "initial_email"
	FollowupEmail        Intent = "followup_email"
	EmailRewriteRequest  Intent = "email_rewrite_request"
	AnalyzeEmail         Intent = "analyze_email"
	HandleEmailRejection Intent = "handle_email_rejection"
	SummarizeFeedback    Intent = "summarize_feedback"
	ListProjects         Intent = "list_projects"
	ListLeads            Intent = "list_leads"
	Unknown              Intent = "unknown"
)

// All lists every intent, unknown last.
var All = []Intent{
	RegisterProject,
	RegisterLead,
	ConnectLeads,
	InitialEmail,
	FollowupEmail,
	EmailRewriteRequest,
	AnalyzeEmail,
	HandleEmailRejection,
	SummarizeFeedback,
	ListProjects,
	ListLeads,
	Unknown,
}

var known = func() map[Intent]struct{} {
	m := make(map[Intent]struct{}, len(All))
	for _, i := range All {
		m[i] = struct{}{}
	}
	return m
}()

// IsKnown reports membership in the closed set.
func IsKnown(i Intent) bool {
	_, ok := known[i]
	return ok
}

func (i Intent) String() string { return string(i) }

// Source records which classifier produced a Result.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// ParamUserPrompt carries the verbatim prompt in every result.
const ParamUserPrompt = "userPrompt"

// Params is the open parameter bag extracted from a prompt.
type Params map[string]interface{}

// Result is the outcome of classifying one prompt.
type Result struct {
	Intent          Intent  `json:"intent"`
	ExtractedParams Params  `json:"extracted_params"`
	Confidence      float64 `json:"confidence"`
	Source          Source  `json:"source"`
}
