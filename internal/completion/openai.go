package completion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	commonhttp "sales-assistant/internal/common/http"
	"sales-assistant/internal/common/logger"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config configures the OpenAI-compatible client.
type Config struct {
	Provider    string // openai, azure, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// RequestsPerSecond <= 0 disables client-side throttling.
	RequestsPerSecond float64
	Burst             int
}

// OpenAIClient implements Completer on any OpenAI-compatible chat API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	logger      logger.Logger
}

func NewOpenAIClient(cfg Config, log logger.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("completion model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := commonhttp.NewClient(cfg.Timeout).HTTPClient()

	var clientConfig openai.ClientConfig
	switch cfg.Provider {
	case "", "openai":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	case "azure":
		if cfg.BaseURL == "" {
			return nil, errors.New("azure provider requires base_url")
		}
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	case "ollama":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = "http://localhost:11434/v1"
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
	clientConfig.HTTPClient = httpClient

	c := &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      log.With(map[string]interface{}{"component": "completion", "model": cfg.Model}),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("completion limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    convertMessages(messages),
	})
	if err != nil {
		mapped := mapError(err)
		c.logger.Warn("completion request failed", map[string]interface{}{
			"error":      mapped.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil, mapped
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"totalTokens": resp.Usage.TotalTokens,
		"durationMs":  time.Since(start).Milliseconds(),
	})

	turns := make([]Message, 0, len(messages)+1)
	turns = append(turns, messages...)
	reply := resp.Choices[0].Message
	turns = append(turns, Message{Role: RoleAssistant, Content: reply.Content})
	return &Response{Turns: turns}, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return &RateLimitError{RetryAfter: parseRetryAfter(apiErr.Message), Message: apiErr.Message}
		}
		return &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			return &RateLimitError{Message: reqErr.Error()}
		}
		return &APIError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}

	return err
}

var retryAfterPattern = regexp.MustCompile(`(?i)try again in ([0-9]+(?:\.[0-9]+)?)\s*(ms|s)`)

// parseRetryAfter reads hints such as "Please try again in 20ms." or "try again in 1.5s".
func parseRetryAfter(msg string) time.Duration {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if strings.EqualFold(m[2], "ms") {
		return time.Duration(v * float64(time.Millisecond))
	}
	return time.Duration(v * float64(time.Second))
}
