// Package completion is the chat-completion client used by the classifier and
// the workflow functions.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the conversation after the call: the request turns followed by
// the model's reply.
type Response struct {
	Turns []Message `json:"turns"`
}

// Last returns the final turn, which is the model's reply.
func (r *Response) Last() (Message, bool) {
	if r == nil || len(r.Turns) == 0 {
		return Message{}, false
	}
	return r.Turns[len(r.Turns)-1], true
}

// Completer produces a reply for a sequence of messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (*Response, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (*Response, error) {
	return f(ctx, messages)
}

var ErrEmptyResponse = errors.New("empty completion response")

// RateLimitError is returned when the provider throttles the call.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

func (e *RateLimitError) RetryAfterHint() time.Duration { return e.RetryAfter }

func (e *RateLimitError) HTTPStatus() int { return 429 }

// APIError is a non-throttling provider failure.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion api error (status %d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) HTTPStatus() int { return e.Status }
