package service

import (
	"context"
	"errors"
	"strings"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
	"kyra/pkg/platform/audit"
	"kyra/pkg/platform/sentinel"
	"kyra/pkg/requestcontext"
)

// CaseDetail is the full read model for one case.
type CaseDetail struct {
	Submission *models.Submission   `json:"submission"`
	Status     *models.StatusRecord `json:"status"`
}

// InitiateCase opens a fresh PENDING case for an applicant.
func (s *Service) InitiateCase(ctx context.Context, userID id.UserID, name, email, mobile string) (*CaseDetail, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}

	now := requestcontext.Now(ctx)
	caseID := id.NewCaseID()

	sub, err := models.NewSubmission(caseID, userID, strings.TrimSpace(name), email, strings.TrimSpace(mobile), now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	record := models.NewStatusRecord(caseID, userID, id.AdminID{}, now)

	if err := s.store.CreateCase(ctx, sub, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "case already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}

	s.logAudit(ctx, audit.EventCaseInitiated,
		"case_id", caseID.String(),
		"user_id", userID.String())
	if s.metrics != nil {
		s.metrics.CasesInitiated.Inc()
	}
	return &CaseDetail{Submission: sub, Status: record}, nil
}

// GetCase returns the submission and its current status.
func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*CaseDetail, error) {
	sub, err := s.store.FindSubmission(ctx, caseID)
	if err != nil {
		return nil, translateLookup(err)
	}
	record, err := s.store.FindStatus(ctx, caseID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return &CaseDetail{Submission: sub, Status: record}, nil
}

// ApplyPersonalInfo merges the applicant's identity block. Dates of birth are
// normalized to the stored day/month/year form before persisting.
func (s *Service) ApplyPersonalInfo(ctx context.Context, caseID id.CaseID, info models.PersonalInfo) (*models.Submission, error) {
	if strings.TrimSpace(info.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	dob, err := models.NormalizeDOB(info.DOB)
	if err != nil {
		return nil, err
	}
	info.DOB = dob

	return s.mergeGuarded(ctx, caseID, models.Document{Personal: &info})
}

// ApplyAddresses merges the permanent and correspondence addresses.
func (s *Service) ApplyAddresses(ctx context.Context, caseID id.CaseID, addresses models.AddressPair) (*models.Submission, error) {
	if addresses.Permanent.StreetAddress == "" || addresses.Correspondence.StreetAddress == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "both permanent and correspondence addresses are required")
	}
	return s.mergeGuarded(ctx, caseID, models.Document{Addresses: &addresses})
}

// ApplyDocuments merges the proof-of-address uploads.
func (s *Service) ApplyDocuments(ctx context.Context, caseID id.CaseID, docs models.DocumentPair) (*models.Submission, error) {
	for _, poa := range []models.ProofOfAddress{docs.Permanent, docs.Correspondence} {
		if !models.KnownOVDType(poa.OVDType) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported document type %q", poa.OVDType)
		}
	}
	return s.mergeGuarded(ctx, caseID, models.Document{POADocs: &docs})
}

// ApplyLiveness merges the synchronous liveness check outcome.
func (s *Service) ApplyLiveness(ctx context.Context, caseID id.CaseID, liveness models.LivenessInfo) (*models.Submission, error) {
	if liveness.Status != models.LivenessPass && liveness.Status != models.LivenessFail {
		return nil, dErrors.Newf(dErrors.CodeValidation, "liveness status must be %s or %s", models.LivenessPass, models.LivenessFail)
	}
	return s.mergeGuarded(ctx, caseID, models.Document{Liveness: &liveness})
}

// mergeGuarded enforces the intake rule: document writes are accepted only
// while the case is PENDING. The status is checked first so a rejected write
// leaves the document untouched.
func (s *Service) mergeGuarded(ctx context.Context, caseID id.CaseID, patch models.Document) (*models.Submission, error) {
	record, err := s.store.FindStatus(ctx, caseID)
	if err != nil {
		return nil, translateLookup(err)
	}
	if err := record.CanAccept(); err != nil {
		return nil, err
	}

	sub, err := s.store.MergeDocument(ctx, caseID, patch)
	if err != nil {
		return nil, translateLookup(err)
	}
	return sub, nil
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "case store failure")
}
