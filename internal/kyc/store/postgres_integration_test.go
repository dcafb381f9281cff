//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	"kyra/pkg/platform/sentinel"
	"kyra/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *Postgres
	ctx       context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T(), Schema())
	s.store = NewPostgres(s.container.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateTables(s.ctx, "kyc_status", "kyc_cases"))
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) mustCreate(name, email string) *models.Submission {
	caseID := id.NewCaseID()
	userID := id.UserID(uuid.New())
	sub, err := models.NewSubmission(caseID, userID, name, email, "9999900000", time.Now().UTC())
	s.Require().NoError(err)
	record := models.NewStatusRecord(caseID, userID, id.AdminID{}, time.Now().UTC())
	s.Require().NoError(s.store.CreateCase(s.ctx, sub, record))
	return sub
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	sub := s.mustCreate("Asha Rao", "asha@example.com")

	found, err := s.store.FindSubmission(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.Equal("asha@example.com", found.Email)
	s.Require().NotNil(found.Document.Personal)
	s.Equal("Asha Rao", found.Document.Personal.Name)

	record, err := s.store.FindStatus(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, record.State)
	s.Equal(int64(1), record.Version)
	s.True(record.AdminID.IsNil())

	err = s.store.CreateCase(s.ctx, sub, models.NewStatusRecord(sub.CaseID, sub.UserID, id.AdminID{}, time.Now().UTC()))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestJSONBMergeIsBlockLevel() {
	sub := s.mustCreate("Asha Rao", "merge@example.com")

	_, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
		Addresses: &models.AddressPair{
			Permanent: models.Address{StreetAddress: "12 MG Road", City: "Bengaluru", State: "KA", ZipCode: "560001"},
		},
	})
	s.Require().NoError(err)

	merged, err := s.store.MergeDocument(s.ctx, sub.CaseID, models.Document{
		Liveness: &models.LivenessInfo{Status: "PASS", Score: 0.93},
	})
	s.Require().NoError(err)

	s.Require().NotNil(merged.Document.Personal)
	s.Equal("Asha Rao", merged.Document.Personal.Name)
	s.Require().NotNil(merged.Document.Addresses)
	s.Equal("Bengaluru", merged.Document.Addresses.Permanent.City)
	s.Require().NotNil(merged.Document.Liveness)
	s.Equal("PASS", merged.Document.Liveness.Status)
}

func (s *PostgresStoreSuite) TestNotesMergeAndReset() {
	sub := s.mustCreate("Asha Rao", "reset@example.com")

	_, err := s.store.MergeNotes(s.ctx, sub.CaseID, models.Notes{
		TamperReview: models.StringPtr("clean"),
		RiskScore:    models.Float64Ptr(0.2),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.ResetDocument(s.ctx, sub.CaseID))

	found, err := s.store.FindSubmission(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.True(found.Document.IsEmpty())
	s.Require().NotNil(found.Notes.TamperReview)
	s.Equal("clean", *found.Notes.TamperReview)

	s.Require().ErrorIs(s.store.ResetDocument(s.ctx, id.NewCaseID()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteStatusLifecycle() {
	sub := s.mustCreate("Asha Rao", "lifecycle@example.com")
	adminID := id.AdminID(uuid.New())

	updated, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
		func(r *models.StatusRecord) error { return r.CanSubmit() },
		func(r *models.StatusRecord) { r.ApplySubmit(time.Now().UTC()) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, updated.State)
	s.Equal(int64(2), updated.Version)

	updated, err = s.store.ExecuteStatus(s.ctx, sub.CaseID,
		nil,
		func(r *models.StatusRecord) { r.ApplyDecision(models.StatusApproved, adminID, time.Now().UTC()) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.State)
	s.Equal(adminID, updated.AdminID)
	s.Equal(int64(3), updated.Version)

	record, err := s.store.FindStatus(s.ctx, sub.CaseID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, record.State)
	s.Equal(adminID, record.AdminID)

	_, err = s.store.ExecuteStatus(s.ctx, id.NewCaseID(), nil,
		func(r *models.StatusRecord) { r.ApplySubmit(time.Now().UTC()) })
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAndCounts() {
	s.mustCreate("Asha Rao", "asha@example.com")
	sub := s.mustCreate("Vikram Shah", "vikram@example.com")

	_, err := s.store.ExecuteStatus(s.ctx, sub.CaseID,
		nil,
		func(r *models.StatusRecord) { r.ApplySubmit(time.Now().UTC()) },
	)
	s.Require().NoError(err)

	summaries, total, err := s.store.List(s.ctx, ListFilter{Size: 10})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(summaries, 2)

	pending := models.StatusPending
	summaries, total, err = s.store.List(s.ctx, ListFilter{Status: &pending, Size: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(summaries, 1)
	s.Equal("Asha Rao", summaries[0].Name)

	summaries, total, err = s.store.List(s.ctx, ListFilter{Search: "vikram", Size: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(summaries, 1)
	s.Equal("vikram@example.com", summaries[0].Email)

	counts, err := s.store.CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[models.StatusPending])
	s.Equal(1, counts[models.StatusUnderReview])
}
