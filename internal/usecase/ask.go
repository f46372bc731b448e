package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"asic-advisor/internal/domain"
	"asic-advisor/internal/workflow"
)

// NoResponse is returned when the workflow produced no assistant text.
const NoResponse = "No response generated."

// AgentStep is the single step of the advisor workflow.
const AgentStep = "agent"

type Answerer interface {
	Answer(ctx context.Context, history []domain.ChatMessage) ([]domain.ChatMessage, error)
}

type Workflow interface {
	Invoke(ctx context.Context, st workflow.State) (workflow.State, error)
}

// NewAdvisorWorkflow wires the agent as the only step; the run ends after
// one turn.
func NewAdvisorWorkflow(agent Answerer, logger *slog.Logger) (*workflow.Graph, error) {
	if agent == nil {
		return nil, errors.New("usecase: agent must not be nil")
	}
	return workflow.New(AgentStep, map[string]workflow.Step{
		AgentStep: func(ctx context.Context, st workflow.State) (workflow.State, string, error) {
			msgs, err := agent.Answer(ctx, st.Messages)
			if err != nil {
				return st, "", err
			}
			st.Messages = msgs
			return st, workflow.End, nil
		},
	}, workflow.WithMaxSteps(1), workflow.WithLogger(logger))
}

type AskService struct {
	workflow Workflow
	logger   *slog.Logger
}

type AskInput struct {
	SessionID string
	Message   string
}

type AskOutput struct {
	Response string
}

func NewAskService(wf Workflow, logger *slog.Logger) (*AskService, error) {
	if wf == nil {
		return nil, errors.New("usecase: workflow must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AskService{workflow: wf, logger: logger}, nil
}

// Ask runs one workflow turn for a fresh conversation holding only the new
// message. Nothing is kept between calls.
func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	message := strings.TrimSpace(in.Message)
	if sessionID == "" || message == "" {
		return AskOutput{}, &Error{Code: ErrorInvalidInput, Reason: "missing_field", Message: MsgMissingFields}
	}

	out, err := s.workflow.Invoke(ctx, workflow.State{
		SessionID: sessionID,
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: message}},
	})
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			return AskOutput{}, err
		}
		return AskOutput{}, newError(ErrorInternal, "workflow_error", err)
	}

	s.logger.InfoContext(ctx, "ask completed", "session_id", sessionID, "messages", len(out.Messages))
	return AskOutput{Response: lastResponse(out.Messages)}, nil
}

func lastResponse(msgs []domain.ChatMessage) string {
	if len(msgs) == 0 {
		return NoResponse
	}
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleAssistant || strings.TrimSpace(last.Content) == "" {
		return NoResponse
	}
	return last.Content
}
