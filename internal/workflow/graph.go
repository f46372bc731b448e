// Package workflow runs conversation state through a graph of named steps.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"asic-advisor/internal/domain"
)

// End is returned by a step to stop the run.
const End = "__end__"

const defaultMaxSteps = 25

// State is the conversation carried through one run.
type State struct {
	SessionID string
	Messages  []domain.ChatMessage
}

// Step transforms state and names the step to run next, or End.
type Step func(ctx context.Context, st State) (State, string, error)

// Graph is an immutable set of steps with an entry point.
type Graph struct {
	entry    string
	steps    map[string]Step
	maxSteps int
	logger   *slog.Logger
}

type Option func(*Graph)

// WithMaxSteps bounds how many steps a single Invoke may run.
func WithMaxSteps(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxSteps = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New builds a graph. entry must name one of steps.
func New(entry string, steps map[string]Step, opts ...Option) (*Graph, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, errors.New("workflow: entry step must not be empty")
	}
	if len(steps) == 0 {
		return nil, errors.New("workflow: at least one step is required")
	}
	copied := make(map[string]Step, len(steps))
	for name, step := range steps {
		if name == End {
			return nil, fmt.Errorf("workflow: %q is reserved", End)
		}
		if step == nil {
			return nil, fmt.Errorf("workflow: step %q is nil", name)
		}
		copied[name] = step
	}
	if _, ok := copied[entry]; !ok {
		return nil, fmt.Errorf("workflow: entry step %q is not defined", entry)
	}

	g := &Graph{entry: entry, steps: copied, maxSteps: defaultMaxSteps, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Invoke runs steps from the entry until one returns End.
func (g *Graph) Invoke(ctx context.Context, st State) (State, error) {
	current := g.entry
	for i := 0; i < g.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		step, ok := g.steps[current]
		if !ok {
			return st, fmt.Errorf("workflow: unknown step %q", current)
		}

		g.logger.DebugContext(ctx, "workflow step", "session_id", st.SessionID, "step", current)
		next, nextName, err := step(ctx, st)
		if err != nil {
			return st, fmt.Errorf("workflow: step %q: %w", current, err)
		}
		st = next
		if nextName == End {
			return st, nil
		}
		current = nextName
	}
	return st, fmt.Errorf("workflow: exceeded %d steps", g.maxSteps)
}
