package models

import (
	"time"

	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
)

// Status enumerates the verification states of a case.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether s is a decision state. Terminal states can still
// be overridden by an admin decision or reopened through reinitiation.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus validates a status string from a trust boundary.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", s)
	}
	return status, nil
}

// StatusRecord is the single current-status row for a case.
//
// Invariants:
//   - Exactly one record exists per case from creation to deletion
//   - Version increases by one on every applied mutation; writers supply the
//     version they read so the store can refuse stale compare-and-swap updates
//   - AdminID is recorded only for admin-initiated transitions; the pipeline's
//     auto-approval leaves it untouched
type StatusRecord struct {
	CaseID    id.CaseID  `json:"caseId"`
	UserID    id.UserID  `json:"userId"`
	AdminID   id.AdminID `json:"adminId"`
	State     Status     `json:"status"`
	ChangedAt time.Time  `json:"changedAt"`
	Version   int64      `json:"version"`
}

// NewStatusRecord constructs the initial PENDING record for a case.
func NewStatusRecord(caseID id.CaseID, userID id.UserID, adminID id.AdminID, now time.Time) *StatusRecord {
	return &StatusRecord{
		CaseID:    caseID,
		UserID:    userID,
		AdminID:   adminID,
		State:     StatusPending,
		ChangedAt: now,
		Version:   1,
	}
}

// CanAccept reports whether intake writes are currently permitted.
func (r *StatusRecord) CanAccept() error {
	if r.State != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "case is %s, intake requires %s", r.State, StatusPending)
	}
	return nil
}

// CanSubmit checks the submit transition precondition.
func (r *StatusRecord) CanSubmit() error {
	if r.State != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "case is %s, submit requires %s", r.State, StatusPending)
	}
	return nil
}

// ApplySubmit moves the case into review. Call CanSubmit first.
func (r *StatusRecord) ApplySubmit(now time.Time) {
	r.State = StatusUnderReview
	r.ChangedAt = now
	r.Version++
}

// ApplyDecision records an admin approve/reject. Admin decisions are
// deliberately unguarded by current state: a reviewer may override any
// outcome, including a prior terminal one.
func (r *StatusRecord) ApplyDecision(state Status, adminID id.AdminID, now time.Time) {
	r.State = state
	r.AdminID = adminID
	r.ChangedAt = now
	r.Version++
}

// ApplyAutoApproval records the pipeline's approval without admin attribution.
func (r *StatusRecord) ApplyAutoApproval(now time.Time) {
	r.State = StatusApproved
	r.ChangedAt = now
	r.Version++
}

// ApplyReinitiation resets the case to PENDING for a fresh verification round.
func (r *StatusRecord) ApplyReinitiation(adminID id.AdminID, now time.Time) {
	r.State = StatusPending
	r.AdminID = adminID
	r.ChangedAt = now
	r.Version++
}
