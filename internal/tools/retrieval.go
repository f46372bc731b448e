package tools

import (
	"context"
	"errors"
	"strings"

	"asic-advisor/internal/domain"
)

// Source is the dataset read by a retrieval tool.
type Source interface {
	Records(ctx context.Context) ([]domain.Record, error)
}

// Retriever reads a whole dataset and reports it as a Result. It takes no
// query parameters.
type Retriever struct {
	name        string
	description string
	source      Source
}

// NewRetriever creates a Retriever bound to source.
func NewRetriever(name, description string, source Source) (*Retriever, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("tools: name must not be empty")
	}
	if source == nil {
		return nil, errors.New("tools: source must not be nil")
	}
	return &Retriever{name: name, description: description, source: source}, nil
}

// Retrieve never returns an error; failures are carried in the Result.
func (r *Retriever) Retrieve(ctx context.Context) Result {
	records, err := r.source.Records(ctx)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Records: records}
}

// Tool describes the retriever as a tool the model can call.
func (r *Retriever) Tool() Tool {
	return Tool{
		Spec: domain.ToolSpec{
			Name:        r.name,
			Description: r.description,
			Parameters:  emptyObjectSchema(),
		},
		Handler: func(ctx context.Context, _ string) Result {
			return r.Retrieve(ctx)
		},
	}
}

// NewSellerTool reads the seller listing dataset.
func NewSellerTool(source Source) (*Retriever, error) {
	return NewRetriever(
		SellerToolName,
		"Returns every ASIC seller listing available for rent (model, hashrate, power draw, efficiency, rental price, availability).",
		source,
	)
}

// NewBuyerTool reads the buyer/renter request dataset.
func NewBuyerTool(source Source) (*Retriever, error) {
	return NewRetriever(
		BuyerToolName,
		"Returns every buyer rental request (budget, target hashrate, power cost, runtime).",
		source,
	)
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
