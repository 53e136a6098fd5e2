package assistant

import (
	"context"
	"testing"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/dispatch"
	"sales-assistant/internal/intent"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	result intent.Result
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, prompt string) intent.Result {
	s.calls++
	r := s.result
	r.ExtractedParams = intent.Params{intent.ParamUserPrompt: prompt, "projectId": int64(1)}
	return r
}

type recordingDispatcher struct {
	intent intent.Intent
	params map[string]interface{}
}

func (r *recordingDispatcher) Dispatch(_ context.Context, in intent.Intent, params map[string]interface{}) *dispatch.Result {
	r.intent = in
	r.params = params
	return &dispatch.Result{Status: dispatch.StatusSuccess, Intent: in, Data: "ok"}
}

func TestAssistant_Handle(t *testing.T) {
	cls := &stubClassifier{result: intent.Result{Intent: intent.FollowupEmail, Confidence: 0.9, Source: intent.SourceLLM}}
	disp := &recordingDispatcher{}
	a := New(cls, disp, nil, logger.NewTestLogger(t))

	out := a.Handle(context.Background(), Request{
		Prompt: "후속 메일 작성",
		Params: map[string]interface{}{
			"projectId":       int64(4),
			"leadId":          int64(9),
			"feedbackSummary": "가격",
			"userPrompt":      "overridden?",
		},
	})

	_, err := uuid.Parse(out.RequestID)
	require.NoError(t, err)
	require.NotNil(t, out.Classification)
	assert.Equal(t, intent.FollowupEmail, out.Classification.Intent)
	assert.True(t, out.Result.OK())

	assert.Equal(t, intent.FollowupEmail, disp.intent)
	assert.Equal(t, int64(4), disp.params["projectId"])
	assert.Equal(t, int64(9), disp.params["leadId"])
	assert.Equal(t, "후속 메일 작성", disp.params["userPrompt"])
}

func TestAssistant_BlankPrompt(t *testing.T) {
	cls := &stubClassifier{}
	disp := &recordingDispatcher{}
	a := New(cls, disp, nil, logger.NewTestLogger(t))

	out := a.Handle(context.Background(), Request{Prompt: "  \n"})

	assert.Equal(t, dispatch.StatusError, out.Result.Status)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, out.Result.Error.Code)
	assert.Nil(t, out.Classification)
	assert.Zero(t, cls.calls)
	assert.Empty(t, disp.intent)
}

func TestAssistant_RequestIDsAreUnique(t *testing.T) {
	a := New(&stubClassifier{result: intent.Result{Intent: intent.ListLeads}}, &recordingDispatcher{}, nil, logger.NewNoOpLogger())

	first := a.Handle(context.Background(), Request{Prompt: "리드 목록"})
	second := a.Handle(context.Background(), Request{Prompt: "리드 목록"})
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestMergeParams(t *testing.T) {
	got := MergeParams(
		map[string]interface{}{"userPrompt": "model paraphrase", "projectName": "A", "leadId": int64(1)},
		map[string]interface{}{"leadId": int64(2)},
		"원문",
	)

	assert.Equal(t, map[string]interface{}{
		"userPrompt":  "원문",
		"projectName": "A",
		"leadId":      int64(2),
	}, got)
}
