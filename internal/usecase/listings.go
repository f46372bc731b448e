package usecase

import (
	"context"
	"errors"

	"asic-advisor/internal/domain"
)

type RecordSource interface {
	Records(ctx context.Context) ([]domain.Record, error)
}

// ListingsService exposes the seller dataset verbatim.
type ListingsService struct {
	sellers RecordSource
}

func NewListingsService(sellers RecordSource) (*ListingsService, error) {
	if sellers == nil {
		return nil, errors.New("usecase: seller source must not be nil")
	}
	return &ListingsService{sellers: sellers}, nil
}

// Listings returns every seller record, re-read on each call.
func (s *ListingsService) Listings(ctx context.Context) ([]domain.Record, error) {
	records, err := s.sellers.Records(ctx)
	if err != nil {
		return nil, &Error{Code: ErrorInternal, Reason: "dataset_read_error", Message: err.Error(), Err: err}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}
