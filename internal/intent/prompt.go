package intent

import (
	"strings"
)

const systemPromptHeader = `You are the intent classifier of a B2B sales assistant.
Read the user's request and choose exactly one intent from this list:
`

const systemPromptFooter = `
Rules:
- Choose a single intent. Use "unknown" when none fits, with confidence 0.
- Reply with one line of strict JSON and nothing else, no code fences, no commentary.
- The reply shape is {"intent": "<intent>", "extracted_params": {"userPrompt": "<the user's request, verbatim>"}, "confidence": <number between 0 and 1>}.`

var intentDescriptions = map[Intent]string{
	RegisterProject:      "register a new sales project from a description",
	RegisterLead:         "register one or more leads (prospective customers)",
	ConnectLeads:         "automatically connect leads to a project",
	InitialEmail:         "draft the first sales email to leads of a project",
	FollowupEmail:        "draft a follow-up email using the lead's feedback",
	EmailRewriteRequest:  "rewrite the previous email based on the user's feedback",
	AnalyzeEmail:         "analyse an email together with feedback about it",
	HandleEmailRejection: "the user rejected a drafted email and it needs handling",
	SummarizeFeedback:    "summarise the latest feedback on an email",
	ListProjects:         "show the list of projects",
	ListLeads:            "show the list of leads",
	Unknown:              "anything else",
}

// SystemPrompt is the fixed instruction sent ahead of every prompt.
var SystemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for _, i := range All {
		b.WriteString("- ")
		b.WriteString(string(i))
		b.WriteString(": ")
		b.WriteString(intentDescriptions[i])
		b.WriteString("\n")
	}
	b.WriteString(systemPromptFooter)
	return b.String()
}
