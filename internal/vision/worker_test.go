package vision

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyra/internal/kyc/models"
	"kyra/internal/kyc/store"
	id "kyra/pkg/domain"
)

func seedCase(t *testing.T, cases *store.InMemory) id.CaseID {
	t.Helper()
	caseID := id.NewCaseID()
	userID := id.UserID(uuid.New())
	sub, err := models.NewSubmission(caseID, userID, "Asha Rao", "asha@example.com", "", time.Now())
	require.NoError(t, err)
	record := models.NewStatusRecord(caseID, userID, id.AdminID{}, time.Now())
	require.NoError(t, cases.CreateCase(context.Background(), sub, record))
	return caseID
}

func TestDeepReviewWorkerMergesTamperNote(t *testing.T) {
	cases := store.NewInMemory()
	caseID := seedCase(t, cases)

	worker := NewDeepReviewWorker(cases, 8, nil)
	worker.Enqueue(caseID, TamperResult{Tampered: true, Confidence: 0.93, Analysis: "address block retouched"})
	worker.Close()

	sub, err := cases.FindSubmission(context.Background(), caseID)
	require.NoError(t, err)
	require.NotNil(t, sub.Notes.TamperReview)
	assert.Equal(t, "Tampering indicators found (confidence 0.93). address block retouched", *sub.Notes.TamperReview)
}

func TestDeepReviewWorkerKeepsOtherNotes(t *testing.T) {
	cases := store.NewInMemory()
	caseID := seedCase(t, cases)

	_, err := cases.MergeNotes(context.Background(), caseID, models.Notes{
		MatchReview: models.StringPtr("prior match analysis"),
	})
	require.NoError(t, err)

	worker := NewDeepReviewWorker(cases, 8, nil)
	worker.Enqueue(caseID, TamperResult{Tampered: false, Confidence: 0.90})
	worker.Close()

	sub, err := cases.FindSubmission(context.Background(), caseID)
	require.NoError(t, err)
	require.NotNil(t, sub.Notes.MatchReview)
	assert.Equal(t, "prior match analysis", *sub.Notes.MatchReview)
	require.NotNil(t, sub.Notes.TamperReview)
	assert.Equal(t, "No tampering detected (confidence 0.90).", *sub.Notes.TamperReview)
}

func TestTamperIndicatedRoundTripsVerdicts(t *testing.T) {
	assert.True(t, TamperIndicated(FormatTamperReview(TamperResult{Tampered: true, Confidence: 0.85})))
	assert.False(t, TamperIndicated(FormatTamperReview(TamperResult{Tampered: false, Confidence: 0.90})))
	assert.False(t, TamperIndicated(""))
}

func TestDeepReviewWorkerIgnoresEnqueueAfterClose(t *testing.T) {
	cases := store.NewInMemory()
	caseID := seedCase(t, cases)

	worker := NewDeepReviewWorker(cases, 8, nil)
	worker.Close()
	worker.Enqueue(caseID, TamperResult{Tampered: true, Confidence: 0.85})

	sub, err := cases.FindSubmission(context.Background(), caseID)
	require.NoError(t, err)
	assert.Nil(t, sub.Notes.TamperReview)
}
