// Package store provides the persistence implementations for KYC cases: an
// in-memory store for tests and development and a PostgreSQL store for
// production. Both expose the same operations; the service layer defines the
// interfaces it consumes.
package store

import (
	"time"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
)

// ListFilter narrows dashboard listings.
type ListFilter struct {
	Status *models.Status
	// Search matches case id, applicant name, or email (case-insensitive).
	Search string
	Page   int
	Size   int
}

// CaseSummary is the projection used by dashboard listings.
type CaseSummary struct {
	CaseID    id.CaseID     `json:"caseId"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	State     models.Status `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
