package intent

import (
	"math"
	"strings"
)

const (
	baseConfidence    = 0.4
	optionalBonus     = 0.1
	maxRuleConfidence = 0.95
)

// ScoringRule fires when every MustInclude keyword is a substring of the
// lower-cased prompt. Each Optional keyword found adds to the score.
type ScoringRule struct {
	Intent      Intent
	MustInclude []string
	Optional    []string
}

// DefaultRules is evaluated in order; on equal scores the earlier rule wins.
var DefaultRules = []ScoringRule{
	{Intent: EmailRewriteRequest, MustInclude: []string{"재작성"}, Optional: []string{"메일", "다시", "수정"}},
	{Intent: FollowupEmail, MustInclude: []string{"후속"}, Optional: []string{"메일", "팔로업", "피드백", "답장"}},
	{Intent: AnalyzeEmail, MustInclude: []string{"분석"}, Optional: []string{"메일", "피드백", "문제", "이유"}},
	{Intent: SummarizeFeedback, MustInclude: []string{"피드백"}, Optional: []string{"요약", "정리"}},
	{Intent: InitialEmail, MustInclude: []string{"메일"}, Optional: []string{"작성", "초안", "처음", "첫", "보내"}},
	{Intent: HandleEmailRejection, MustInclude: []string{"메일"}, Optional: []string{"재작성요청", "안 맞", "마음에 안", "별로", "거절", "반려"}},
	{Intent: ConnectLeads, MustInclude: []string{"연결"}, Optional: []string{"리드", "프로젝트", "매칭", "자동"}},
	{Intent: RegisterProject, MustInclude: []string{"프로젝트"}, Optional: []string{"등록", "신규", "추가", "만들"}},
	{Intent: ListProjects, MustInclude: []string{"프로젝트"}, Optional: []string{"목록", "리스트", "전체", "보여"}},
	{Intent: RegisterLead, MustInclude: []string{"리드"}, Optional: []string{"등록", "신규", "추가", "고객"}},
	{Intent: ListLeads, MustInclude: []string{"리드"}, Optional: []string{"목록", "리스트", "전체", "보여"}},
}

// FallbackClassifier is a deterministic keyword scorer. It holds no mutable
// state and is safe for concurrent use.
type FallbackClassifier struct {
	rules []ScoringRule
}

func NewFallbackClassifier(rules []ScoringRule) *FallbackClassifier {
	lowered := make([]ScoringRule, len(rules))
	for i, r := range rules {
		lowered[i] = ScoringRule{
			Intent:      r.Intent,
			MustInclude: lowerAll(r.MustInclude),
			Optional:    lowerAll(r.Optional),
		}
	}
	return &FallbackClassifier{rules: lowered}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Classify scores prompt against every rule. No match yields Unknown with
// zero confidence.
func (f *FallbackClassifier) Classify(prompt string) Result {
	text := strings.ToLower(prompt)

	best := -1
	bestScore := 0
	bestHits := 0
	for i, rule := range f.rules {
		if !containsAll(text, rule.MustInclude) {
			continue
		}
		hits := countContained(text, rule.Optional)
		if score := 1 + hits; score > bestScore {
			best, bestScore, bestHits = i, score, hits
		}
	}

	params := Params{ParamUserPrompt: prompt}
	if best < 0 {
		return Result{Intent: Unknown, ExtractedParams: params, Confidence: 0, Source: SourceFallback}
	}

	return Result{
		Intent:          f.rules[best].Intent,
		ExtractedParams: params,
		Confidence:      ruleConfidence(bestHits),
		Source:          SourceFallback,
	}
}

func ruleConfidence(hits int) float64 {
	c := baseConfidence + optionalBonus*float64(hits)
	// round away float noise so 0.4+0.1 reads as 0.5
	c = math.Round(c*100) / 100
	return math.Min(maxRuleConfidence, c)
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

func countContained(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}
