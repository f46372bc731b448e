package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"asic-advisor/internal/domain"
	"asic-advisor/internal/integrations/openai"
	"asic-advisor/internal/tools"
)

const defaultMaxToolRounds = 3

type LLMClient interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (openai.Completion, error)
}

// Toolkit is the tool set bound to every completion request.
type Toolkit interface {
	Specs() []domain.ToolSpec
	Invoke(ctx context.Context, name, args string) tools.Result
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Agent answers one conversational turn with the advisor persona.
type Agent struct {
	llm           LLMClient
	toolkit       Toolkit
	model         string
	temperature   float32
	maxToolRounds int
	logger        *slog.Logger
}

type AgentOption func(*Agent)

func WithTemperature(t float32) AgentOption {
	return func(a *Agent) { a.temperature = t }
}

// WithMaxToolRounds bounds how many times tool results are fed back within
// one turn.
func WithMaxToolRounds(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAgent(llm LLMClient, toolkit Toolkit, model string, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if toolkit == nil {
		return nil, errors.New("usecase: toolkit must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	a := &Agent{
		llm:           llm,
		toolkit:       toolkit,
		model:         model,
		maxToolRounds: defaultMaxToolRounds,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer returns history with exactly one assistant message appended. Tool
// calls made while producing it stay internal to the turn.
func (a *Agent) Answer(ctx context.Context, history []domain.ChatMessage) ([]domain.ChatMessage, error) {
	if latestUserMessage(history) == "" {
		return nil, newError(ErrorInvalidInput, "no_user_message", nil)
	}

	messages := buildPromptMessages(history)
	specs := a.toolkit.Specs()

	for round := 0; ; round++ {
		out, err := a.llm.Complete(ctx, openai.CompletionRequest{
			Model:        a.model,
			Messages:     messages,
			Tools:        specs,
			Temperature:  a.temperature,
			JSONResponse: true,
		})
		if err != nil {
			if status, ok := upstreamStatusCode(err); ok && status == 429 {
				return nil, newError(ErrorRateLimited, "llm_rate_limited", err)
			}
			return nil, newError(ErrorUpstream, "llm_error", err)
		}

		if len(out.ToolCalls) == 0 {
			reply := domain.ChatMessage{Role: domain.RoleAssistant, Content: out.Content}
			return append(append(make([]domain.ChatMessage, 0, len(history)+1), history...), reply), nil
		}
		if round >= a.maxToolRounds {
			return nil, newError(ErrorUpstream, "tool_round_limit",
				fmt.Errorf("model still requested tools after %d rounds", a.maxToolRounds))
		}

		messages = append(messages, domain.ChatMessage{
			Role:      domain.RoleAssistant,
			Content:   out.Content,
			ToolCalls: out.ToolCalls,
		})
		for _, call := range out.ToolCalls {
			res := a.toolkit.Invoke(ctx, call.Name, call.Arguments)
			a.logger.InfoContext(ctx, "tool call", "tool", call.Name, "round", round+1, "ok", res.OK())
			messages = append(messages, domain.ChatMessage{
				Role:       domain.RoleTool,
				Content:    res.String(),
				ToolCallID: call.ID,
			})
		}
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
