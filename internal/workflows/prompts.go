package workflows

import (
	"fmt"
	"strings"

	"sales-assistant/internal/backend"
	"sales-assistant/internal/completion"
)

const jsonOnly = "Reply with strict JSON only. No code fences, no commentary."

const (
	projectSystem = `You turn a short business description into a sales project record.
Return {"name": string, "description": string, "industry": string, "targetCustomer": string}.
` + jsonOnly

	leadsSystem = `You extract prospective customers (leads) from free text.
Return {"leads": [{"name": string, "company": string, "email": string, "position": string, "industry": string, "notes": string}]}.
Use empty strings for unknown fields. Return an empty list when the text names nobody.
` + jsonOnly

	emailSystem = `You write concise, polite B2B sales emails in Korean.
Return {"subject": string, "body": string}.
` + jsonOnly

	analysisSystem = `You review a sales email against the recipient's or user's feedback.
Return {"priority": "high"|"medium"|"low", "issues": [string], "summary": string, "suggestions": [string]}.
` + jsonOnly

	summarySystem = `You summarise a lead's feedback on a sales email in two or three sentences so a follow-up can address it.
Return {"summary": string}.
` + jsonOnly
)

func messages(system string, userParts ...string) []completion.Message {
	return []completion.Message{
		{Role: completion.RoleSystem, Content: system},
		{Role: completion.RoleUser, Content: strings.Join(userParts, "\n\n")},
	}
}

func projectBlock(p *backend.Project) string {
	return fmt.Sprintf("Project: %s\nDescription: %s\nIndustry: %s\nTarget customer: %s",
		p.Name, p.Description, p.Industry, p.TargetCustomer)
}

func leadBlock(l *backend.Lead) string {
	return fmt.Sprintf("Lead: %s\nCompany: %s\nPosition: %s\nIndustry: %s\nNotes: %s",
		l.Name, l.Company, l.Position, l.Industry, l.Notes)
}

func emailBlock(e *backend.Email) string {
	return fmt.Sprintf("Subject: %s\n\n%s", e.Subject, e.Body)
}

func initialEmailMessages(p *backend.Project, l *backend.Lead, userPrompt string) []completion.Message {
	parts := []string{"Write the first outreach email.", projectBlock(p), leadBlock(l)}
	if strings.TrimSpace(userPrompt) != "" {
		parts = append(parts, "Request: "+userPrompt)
	}
	return messages(emailSystem, parts...)
}

func followupEmailMessages(p *backend.Project, l *backend.Lead, feedbackSummary string) []completion.Message {
	return messages(emailSystem,
		"Write a follow-up email that addresses the lead's feedback.",
		projectBlock(p),
		leadBlock(l),
		"Feedback summary: "+feedbackSummary,
	)
}

func rewriteEmailMessages(prev *backend.Email, userFeedback string) []completion.Message {
	return messages(emailSystem,
		"Rewrite the previous email so that it resolves the feedback. Keep what already works.",
		"Previous email:\n"+emailBlock(prev),
		"Feedback: "+userFeedback,
	)
}

func analysisMessages(emailContent, userFeedback string) []completion.Message {
	return messages(analysisSystem, "Email:\n"+emailContent, "Feedback: "+userFeedback)
}

func summaryMessages(e *backend.Email, feedback string) []completion.Message {
	return messages(summarySystem, "Email:\n"+emailBlock(e), "Feedback: "+feedback)
}
