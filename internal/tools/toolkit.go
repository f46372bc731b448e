package tools

import (
	"context"
	"errors"
	"fmt"

	"asic-advisor/internal/domain"
)

const (
	SellerToolName = "retrieve_seller_listings"
	BuyerToolName  = "retrieve_buyer_requests"
)

// Handler runs a tool with the raw JSON arguments sent by the model.
type Handler func(ctx context.Context, args string) Result

// Tool pairs a descriptor the LLM client can introspect with its handler.
type Tool struct {
	Spec    domain.ToolSpec
	Handler Handler
}

// Toolkit is an ordered set of tools keyed by name.
type Toolkit struct {
	tools []Tool
	index map[string]int
}

// NewToolkit builds a toolkit; names must be unique.
func NewToolkit(tools ...Tool) (*Toolkit, error) {
	tk := &Toolkit{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if t.Spec.Name == "" || t.Handler == nil {
			return nil, errors.New("tools: tool requires a name and a handler")
		}
		if _, dup := tk.index[t.Spec.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool %q", t.Spec.Name)
		}
		tk.index[t.Spec.Name] = len(tk.tools)
		tk.tools = append(tk.tools, t)
	}
	return tk, nil
}

// NewAdvisorToolkit returns the seller tool followed by the buyer tool.
func NewAdvisorToolkit(seller, buyer *Retriever) (*Toolkit, error) {
	if seller == nil || buyer == nil {
		return nil, errors.New("tools: seller and buyer tools are required")
	}
	return NewToolkit(seller.Tool(), buyer.Tool())
}

// Specs returns the tool specs in registration order.
func (t *Toolkit) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(t.tools))
	for _, tool := range t.tools {
		specs = append(specs, tool.Spec)
	}
	return specs
}

// Invoke runs the named tool. An unknown name yields an error result.
func (t *Toolkit) Invoke(ctx context.Context, name, args string) Result {
	i, ok := t.index[name]
	if !ok {
		return Result{Err: fmt.Errorf("unknown tool %q", name)}
	}
	return t.tools[i].Handler(ctx, args)
}
