package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
)

func newRecord() *StatusRecord {
	return NewStatusRecord(id.NewCaseID(), id.UserID(uuid.New()), id.AdminID{}, time.Now())
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "under_review", "approved", "rejected"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.True(t, status.Valid())
	}

	_, err := ParseStatus("PENDING")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIntakeAndSubmitGuards(t *testing.T) {
	record := newRecord()
	assert.NoError(t, record.CanAccept())
	assert.NoError(t, record.CanSubmit())

	record.ApplySubmit(time.Now())

	err := record.CanAccept()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Error(t, record.CanSubmit())
}

func TestVersionAdvancesOnEveryMutation(t *testing.T) {
	record := newRecord()
	assert.Equal(t, int64(1), record.Version)

	record.ApplySubmit(time.Now())
	assert.Equal(t, int64(2), record.Version)

	adminID := id.AdminID(uuid.New())
	record.ApplyDecision(StatusRejected, adminID, time.Now())
	assert.Equal(t, int64(3), record.Version)
	assert.Equal(t, adminID, record.AdminID)

	record.ApplyReinitiation(adminID, time.Now())
	assert.Equal(t, int64(4), record.Version)
	assert.Equal(t, StatusPending, record.State)
}

func TestAutoApprovalLeavesAdminUnset(t *testing.T) {
	record := newRecord()
	record.ApplySubmit(time.Now())
	record.ApplyAutoApproval(time.Now())

	assert.Equal(t, StatusApproved, record.State)
	assert.True(t, record.AdminID.IsNil())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusUnderReview.IsTerminal())
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
}
