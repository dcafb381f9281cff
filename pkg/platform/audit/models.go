package audit

import (
	"context"
	"time"

	id "kyra/pkg/domain"
)

// Event is emitted from domain logic to capture key case actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// The status register keeps a single mutable row per case, so the audit trail
// is the only durable record of prior states.
type Event struct {
	Timestamp time.Time
	CaseID    id.CaseID
	// ActorID tracks who performed the action. Empty for applicant-initiated
	// and pipeline-initiated events; set to the admin ID for review actions.
	ActorID   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

type CaseEvent string

const (
	EventCaseInitiated    CaseEvent = "case_initiated"
	EventCaseSubmitted    CaseEvent = "case_submitted"
	EventCaseAutoApproved CaseEvent = "case_auto_approved"
	EventCaseApproved     CaseEvent = "case_approved"
	EventCaseRejected     CaseEvent = "case_rejected"
	EventCaseReinitiated  CaseEvent = "case_reinitiated"
	EventCaseEnriched     CaseEvent = "case_enriched"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Event, error)
}
