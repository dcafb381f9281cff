package service

import (
	"context"

	"kyra/internal/kyc/models"
	"kyra/internal/kyc/store"
	dErrors "kyra/pkg/domain-errors"
)

// Dashboard is the reviewer-facing case listing with aggregate counts.
type Dashboard struct {
	Cases  []store.CaseSummary   `json:"cases"`
	Total  int                   `json:"total"`
	Page   int                   `json:"page"`
	Size   int                   `json:"size"`
	Counts map[models.Status]int `json:"counts"`
}

// ListCases returns the filtered, paginated dashboard view.
func (s *Service) ListCases(ctx context.Context, filter store.ListFilter) (*Dashboard, error) {
	if filter.Size <= 0 {
		filter.Size = 10
	}
	if filter.Page < 0 {
		filter.Page = 0
	}

	summaries, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count cases")
	}

	return &Dashboard{
		Cases:  summaries,
		Total:  total,
		Page:   filter.Page,
		Size:   filter.Size,
		Counts: counts,
	}, nil
}
