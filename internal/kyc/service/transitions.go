package service

import (
	"context"
	"errors"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
	"kyra/pkg/email"
	"kyra/pkg/platform/audit"
	"kyra/pkg/platform/sentinel"
	"kyra/pkg/requestcontext"
)

// Submit moves a PENDING case into review and schedules the enrichment run.
// The check-and-transition happens atomically in the store, so two concurrent
// submits produce exactly one transition and one scheduled run. Document
// completeness is not a precondition: a case submitted without uploads simply
// has no evidence to match and lands in manual review.
func (s *Service) Submit(ctx context.Context, caseID id.CaseID) (*models.StatusRecord, error) {
	now := requestcontext.Now(ctx)
	record, err := s.store.ExecuteStatus(ctx, caseID,
		func(r *models.StatusRecord) error { return r.CanSubmit() },
		func(r *models.StatusRecord) { r.ApplySubmit(now) },
	)
	if err != nil {
		return nil, translateTransition(err)
	}

	if s.scheduler != nil {
		s.scheduler.Schedule(caseID)
	}

	s.logAudit(ctx, audit.EventCaseSubmitted,
		"case_id", caseID.String(),
		"user_id", record.UserID.String())
	if s.metrics != nil {
		s.metrics.CasesSubmitted.Inc()
	}
	s.countTransition(models.StatusUnderReview)
	return record, nil
}

// Approve records a reviewer's approval. Admin decisions are not gated on the
// current state; a reviewer may override any outcome.
func (s *Service) Approve(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error) {
	return s.decide(ctx, caseID, adminID, models.StatusApproved, reason)
}

// Reject records a reviewer's rejection.
func (s *Service) Reject(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error) {
	return s.decide(ctx, caseID, adminID, models.StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, caseID id.CaseID, adminID id.AdminID, state models.Status, reason string) (*models.StatusRecord, error) {
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer identity is required")
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.ExecuteStatus(ctx, caseID,
		nil,
		func(r *models.StatusRecord) { r.ApplyDecision(state, adminID, now) },
	)
	if err != nil {
		return nil, translateTransition(err)
	}

	event := audit.EventCaseRejected
	if state == models.StatusApproved {
		event = audit.EventCaseApproved
	}
	s.logAudit(ctx, event,
		"case_id", caseID.String(),
		"admin_id", adminID.String(),
		"decision", string(state),
		"reason", reason)
	s.countTransition(state)

	if state == models.StatusApproved {
		s.sendApproval(ctx, caseID)
	}
	return record, nil
}

// Reinitiate reopens a case for a fresh verification round. The document is
// cleared except for the applicant's identity seed; review notes from the
// prior round are kept for the next reviewer.
func (s *Service) Reinitiate(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error) {
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer identity is required")
	}

	sub, err := s.store.FindSubmission(ctx, caseID)
	if err != nil {
		return nil, translateLookup(err)
	}
	name := applicantName(sub)

	now := requestcontext.Now(ctx)
	record, err := s.store.ExecuteStatus(ctx, caseID,
		nil,
		func(r *models.StatusRecord) { r.ApplyReinitiation(adminID, now) },
	)
	if err != nil {
		return nil, translateTransition(err)
	}

	if err := s.store.ResetDocument(ctx, caseID); err != nil {
		return nil, translateLookup(err)
	}
	if _, err := s.store.MergeDocument(ctx, caseID, models.Document{
		Personal: &models.PersonalInfo{Name: name, Email: sub.Email},
	}); err != nil {
		return nil, translateLookup(err)
	}

	s.logAudit(ctx, audit.EventCaseReinitiated,
		"case_id", caseID.String(),
		"admin_id", adminID.String(),
		"reason", reason)
	s.countTransition(models.StatusPending)

	s.notify(ctx, func() error {
		return s.notifier.SendReverification(ctx, sub.Email, name)
	}, "reverification", caseID)
	return record, nil
}

func (s *Service) sendApproval(ctx context.Context, caseID id.CaseID) {
	if s.notifier == nil {
		return
	}
	sub, err := s.store.FindSubmission(ctx, caseID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "approval notification skipped, case unreadable",
				"case_id", caseID, "error", err)
		}
		return
	}
	name := applicantName(sub)
	s.notify(ctx, func() error {
		return s.notifier.SendApproval(ctx, sub.Email, name)
	}, "approval", caseID)
}

// applicantName prefers the document's name and falls back to one derived
// from the email address.
func applicantName(sub *models.Submission) string {
	if sub.Document.Personal != nil && sub.Document.Personal.Name != "" {
		return sub.Document.Personal.Name
	}
	first, last := email.DeriveNameFromEmail(sub.Email)
	return first + " " + last
}

func translateTransition(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "case was modified concurrently, retry")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "status transition failed")
}
