package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
	"kyra/pkg/platform/sentinel"
)

type CaseStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CaseStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCaseStoreSuite(t *testing.T) {
	suite.Run(t, new(CaseStoreSuite))
}

func (s *CaseStoreSuite) newCase(email string) (*models.Submission, *models.StatusRecord) {
	caseID := id.NewCaseID()
	userID := id.UserID(uuid.New())
	now := time.Now()
	sub, err := models.NewSubmission(caseID, userID, "", email, "", now)
	s.Require().NoError(err)
	record := models.NewStatusRecord(caseID, userID, id.AdminID{}, now)
	return sub, record
}

func (s *CaseStoreSuite) mustCreate(email string) (*models.Submission, *models.StatusRecord) {
	sub, record := s.newCase(email)
	s.Require().NoError(s.store.CreateCase(s.ctx, sub, record))
	return sub, record
}

// TestCreationAndLookups verifies cases are created with their status record
// and retrievable afterwards.
func (s *CaseStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds submission and status", func() {
		sub, _ := s.mustCreate("applicant@example.com")

		found, err := s.store.FindSubmission(s.ctx, sub.CaseID)
		s.Require().NoError(err)
		s.Equal(sub.Email, found.Email)

		record, err := s.store.FindStatus(s.ctx, sub.CaseID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, record.State)
		s.Equal(int64(1), record.Version)
	})

	s.Run("returns ErrNotFound for unknown case", func() {
		_, err := s.store.FindSubmission(s.ctx, id.NewCaseID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindStatus(s.ctx, id.NewCaseID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate case id", func() {
		sub, record := s.mustCreate("dup@example.com")
		err := s.store.CreateCase(s.ctx, sub, record)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestReadIsolation verifies returned submissions are detached copies: a
// caller mutating blocks or notes must not reach back into store state.
func (s *CaseStoreSuite) TestReadIsolation() {
	sub, _ := s.mustCreate("isolated@example.com")
	_, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
		Personal: &models.PersonalInfo{Name: "Asha Rao"},
		PerPOA: &models.ConfidenceBlock{Fields: map[string]models.ConfidenceField{
			"name": {Value: "Asha Rao", Confidence: models.ConfidenceHigh, Score: 0.97},
		}},
	})
	s.Require().NoError(err)
	_, err = s.store.MergeNotes(s.ctx, sub.CaseID, models.Notes{
		MatchReview: models.StringPtr("initial analysis"),
	})
	s.Require().NoError(err)

	leaked, err := s.store.FindSubmission(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	leaked.Document.Personal.Name = "Mutated"
	leaked.Document.PerPOA.Fields["name"] = models.ConfidenceField{Value: "Mutated"}
	*leaked.Notes.MatchReview = "mutated"

	fresh, err := s.store.FindSubmission(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.Equal("Asha Rao", fresh.Document.Personal.Name)
	s.Equal("Asha Rao", fresh.Document.PerPOA.Fields["name"].Value)
	s.Equal("initial analysis", *fresh.Notes.MatchReview)
}

// TestDocumentMerge verifies merges replace only the patched blocks.
func (s *CaseStoreSuite) TestDocumentMerge() {
	s.Run("patch replaces its block and leaves others intact", func() {
		sub, _ := s.mustCreate("merge@example.com")

		merged, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
			Personal: &models.PersonalInfo{Name: "Asha Rao", Email: "merge@example.com"},
		})
		s.Require().NoError(err)
		s.Require().NotNil(merged.Document.Personal)
		s.Equal("Asha Rao", merged.Document.Personal.Name)

		merged, err = s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
			Liveness: &models.LivenessInfo{Status: "PASS", Score: 0.91},
		})
		s.Require().NoError(err)
		s.Require().NotNil(merged.Document.Personal)
		s.Equal("Asha Rao", merged.Document.Personal.Name)
		s.Require().NotNil(merged.Document.Liveness)
		s.Equal("PASS", merged.Document.Liveness.Status)
	})

	s.Run("re-sending a block replaces it wholesale", func() {
		sub, _ := s.mustCreate("replace@example.com")

		_, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
			Personal: &models.PersonalInfo{Name: "First", FatherName: "Anand"},
		})
		s.Require().NoError(err)

		merged, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
			Personal: &models.PersonalInfo{Name: "Second"},
		})
		s.Require().NoError(err)
		s.Equal("Second", merged.Document.Personal.Name)
		s.Empty(merged.Document.Personal.FatherName)
	})

	s.Run("unknown case returns ErrNotFound", func() {
		_, err := s.store.MergeDocument(s.ctx, id.NewCaseID(), models.Document{})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestNotesMerge verifies note patches are additive across pipeline stages.
func (s *CaseStoreSuite) TestNotesMerge() {
	sub, _ := s.mustCreate("notes@example.com")

	_, err := s.store.MergeNotes(s.ctx, sub.CaseID, models.Notes{
		TamperReview: models.StringPtr("no tampering detected"),
	})
	s.Require().NoError(err)

	merged, err := s.store.MergeNotes(s.ctx, sub.CaseID, models.Notes{
		MatchReview: models.StringPtr("address mismatch on correspondence proof"),
		RiskScore:   models.Float64Ptr(0.42),
	})
	s.Require().NoError(err)
	s.Require().NotNil(merged.Notes.TamperReview)
	s.Equal("no tampering detected", *merged.Notes.TamperReview)
	s.Require().NotNil(merged.Notes.MatchReview)
	s.Require().NotNil(merged.Notes.RiskScore)
	s.InDelta(0.42, *merged.Notes.RiskScore, 1e-9)
	s.Nil(merged.Notes.LivenessReview)
}

// TestResetDocument verifies reinitiation clears the document but keeps notes.
func (s *CaseStoreSuite) TestResetDocument() {
	sub, _ := s.mustCreate("reset@example.com")

	_, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
		Personal: &models.PersonalInfo{Name: "Asha Rao"},
	})
	s.Require().NoError(err)
	_, err = s.store.MergeNotes(s.ctx, sub.CaseID, models.Notes{
		MatchReview: models.StringPtr("round one findings"),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.ResetDocument(s.ctx, sub.CaseID))

	found, err := s.store.FindSubmission(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.True(found.Document.IsEmpty())
	s.Require().NotNil(found.Notes.MatchReview)
	s.Equal("round one findings", *found.Notes.MatchReview)
}

// TestExecuteStatus verifies the validate-then-mutate callback contract.
func (s *CaseStoreSuite) TestExecuteStatus() {
	s.Run("validate failure leaves the record untouched", func() {
		sub, _ := s.mustCreate("guard@example.com")

		_, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
			func(*models.StatusRecord) error {
				return dErrors.New(dErrors.CodeInvalidState, "not allowed")
			},
			func(r *models.StatusRecord) { r.ApplySubmit(time.Now()) },
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		record, err := s.store.FindStatus(s.ctx, sub.CaseID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, record.State)
		s.Equal(int64(1), record.Version)
	})

	s.Run("mutation persists and bumps the version", func() {
		sub, _ := s.mustCreate("submit@example.com")

		updated, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
			func(r *models.StatusRecord) error { return r.CanSubmit() },
			func(r *models.StatusRecord) { r.ApplySubmit(time.Now()) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, updated.State)
		s.Equal(int64(2), updated.Version)

		record, err := s.store.FindStatus(s.ctx, sub.CaseID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, record.State)
	})

	s.Run("second submit is rejected by the guard", func() {
		sub, _ := s.mustCreate("double@example.com")

		_, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
			func(r *models.StatusRecord) error { return r.CanSubmit() },
			func(r *models.StatusRecord) { r.ApplySubmit(time.Now()) },
		)
		s.Require().NoError(err)

		_, err = s.store.ExecuteStatus(s.ctx, sub.CaseID,
			func(r *models.StatusRecord) error { return r.CanSubmit() },
			func(r *models.StatusRecord) { r.ApplySubmit(time.Now()) },
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// TestList verifies dashboard filtering, ordering, and pagination.
func (s *CaseStoreSuite) TestList() {
	base := time.Now()
	names := []string{"Asha Rao", "Vikram Shah", "Meera Iyer"}
	for i, name := range names {
		caseID := id.NewCaseID()
		userID := id.UserID(uuid.New())
		sub, err := models.NewSubmission(caseID, userID, name, name+"@example.com", "", base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		record := models.NewStatusRecord(caseID, userID, id.AdminID{}, base)
		s.Require().NoError(s.store.CreateCase(s.ctx, sub, record))
	}

	s.Run("returns newest first with total", func() {
		summaries, total, err := s.store.List(s.ctx, ListFilter{Size: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(summaries, 3)
		s.Equal("Meera Iyer", summaries[0].Name)
		s.Equal("Asha Rao", summaries[2].Name)
	})

	s.Run("filters by status", func() {
		approved := models.StatusApproved
		summaries, total, err := s.store.List(s.ctx, ListFilter{Status: &approved, Size: 10})
		s.Require().NoError(err)
		s.Zero(total)
		s.Empty(summaries)
	})

	s.Run("searches name and email case-insensitively", func() {
		summaries, total, err := s.store.List(s.ctx, ListFilter{Search: "vikram", Size: 10})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Require().Len(summaries, 1)
		s.Equal("Vikram Shah", summaries[0].Name)
	})

	s.Run("paginates past the end", func() {
		summaries, total, err := s.store.List(s.ctx, ListFilter{Page: 5, Size: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(summaries)
	})
}

// TestCountByStatus verifies the dashboard aggregate.
func (s *CaseStoreSuite) TestCountByStatus() {
	s.mustCreate("one@example.com")
	sub, _ := s.mustCreate("two@example.com")

	_, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
		nil,
		func(r *models.StatusRecord) { r.ApplySubmit(time.Now()) },
	)
	s.Require().NoError(err)

	counts, err := s.store.CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[models.StatusPending])
	s.Equal(1, counts[models.StatusUnderReview])
}
