package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"asic-advisor/internal/domain"
)

// DefaultBaseURL points at Mistral's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.mistral.ai/v1"

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []domain.ChatMessage
	Tools       []domain.ToolSpec
	Temperature float32
	// JSONResponse asks the provider for a JSON object response.
	JSONResponse bool
}

// Completion is the first choice returned by the provider.
type Completion struct {
	Content   string
	ToolCalls []domain.ToolCall
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// chatAPI is the subset of *goopenai.Client used by Client.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client is a focused OpenAI-compatible client for chat completions with tool
// calling.
type Client struct {
	api chatAPI
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*options)

func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	o := options{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(o.baseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg)}, nil
}

// Complete sends one chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if req.Model == "" {
		return Completion{}, errors.New("openai: model must not be empty")
	}

	resp, err := c.api.CreateChatCompletion(ctx, toRequest(req))
	if err != nil {
		return Completion{}, fmt.Errorf("openai: request failed: %w", statusError(err))
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("openai: no choices in response")
	}
	return fromMessage(resp.Choices[0].Message), nil
}

func toRequest(req CompletionRequest) goopenai.ChatCompletionRequest {
	out := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
	}
	// A zero temperature is dropped by omitempty.
	if out.Temperature == 0 {
		out.Temperature = math.SmallestNonzeroFloat32
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toMessage(m))
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.JSONResponse {
		out.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func toMessage(m domain.ChatMessage) goopenai.ChatCompletionMessage {
	msg := goopenai.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
			ID:   tc.ID,
			Type: goopenai.ToolTypeFunction,
			Function: goopenai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func fromMessage(m goopenai.ChatCompletionMessage) Completion {
	out := Completion{Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

// statusError lifts go-openai's status-bearing errors into HTTPStatusError so
// callers do not depend on the SDK's error types.
func statusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return err
}
