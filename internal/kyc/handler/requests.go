package handler

import (
	"kyra/internal/kyc/models"
	"kyra/internal/kyc/store"
)

// InitiateRequest opens a new case.
type InitiateRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobileNo"`
}

// DecisionRequest carries an admin approve/reject/reinitiate action.
type DecisionRequest struct {
	Reason string `json:"reason"`
}

// StatusResponse is the transition result returned to callers.
type StatusResponse struct {
	CaseID    string        `json:"caseId"`
	Status    models.Status `json:"status"`
	ChangedAt string        `json:"changedAt"`
}

func statusResponse(record *models.StatusRecord) StatusResponse {
	return StatusResponse{
		CaseID:    record.CaseID.String(),
		Status:    record.State,
		ChangedAt: record.ChangedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// listFilterFromQuery builds the dashboard filter from query parameters.
// Unknown status values and malformed numbers degrade to the defaults rather
// than failing the listing.
func listFilterFromQuery(status, search, page, size string) store.ListFilter {
	filter := store.ListFilter{Search: search}
	if status != "" {
		if parsed, err := models.ParseStatus(status); err == nil {
			filter.Status = &parsed
		}
	}
	filter.Page = atoiOrZero(page)
	filter.Size = atoiOrZero(size)
	return filter
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0
		}
	}
	return n
}
