package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kyra/pkg/domain"
)

func TestNewSubmission(t *testing.T) {
	t.Run("seeds personal block from contact identity", func(t *testing.T) {
		sub, err := NewSubmission(id.NewCaseID(), id.UserID(uuid.New()), "Asha Rao", "asha@example.com", "9999900000", time.Now())
		require.NoError(t, err)
		require.NotNil(t, sub.Document.Personal)
		assert.Equal(t, "Asha Rao", sub.Document.Personal.Name)
		assert.Equal(t, "asha@example.com", sub.Document.Personal.Email)
	})

	t.Run("requires an email", func(t *testing.T) {
		_, err := NewSubmission(id.NewCaseID(), id.UserID(uuid.New()), "Asha Rao", "", "", time.Now())
		require.Error(t, err)
	})
}

func TestDocumentMerge(t *testing.T) {
	doc := Document{Personal: &PersonalInfo{Name: "Asha Rao"}}

	doc.Merge(Document{Liveness: &LivenessInfo{Status: LivenessPass, Score: 0.9}})
	require.NotNil(t, doc.Personal)
	require.NotNil(t, doc.Liveness)

	doc.Merge(Document{Personal: &PersonalInfo{Name: "New Name"}})
	assert.Equal(t, "New Name", doc.Personal.Name)
	assert.Equal(t, LivenessPass, doc.Liveness.Status)

	doc.Merge(Document{})
	require.NotNil(t, doc.Personal)
	require.NotNil(t, doc.Liveness)
}

func TestDocumentIsEmpty(t *testing.T) {
	assert.True(t, Document{}.IsEmpty())
	assert.False(t, Document{Personal: &PersonalInfo{}}.IsEmpty())
	assert.False(t, Document{PerPOA: &ConfidenceBlock{}}.IsEmpty())
}

func TestAddressLine(t *testing.T) {
	address := Address{StreetAddress: "12 MG Road", City: "Bengaluru", State: "KA", ZipCode: "560001"}
	assert.Equal(t, "12 MG Road, Bengaluru, KA, India - 560001", address.Line())

	address.Country = "Nepal"
	assert.Equal(t, "12 MG Road, Bengaluru, KA, Nepal - 560001", address.Line())
}

func TestMatcherVariant(t *testing.T) {
	assert.Equal(t, "AadhaarRegular", MatcherVariant(OVDAadhaar))
	assert.Equal(t, "PassportRegular", MatcherVariant(OVDPassport))
	assert.Equal(t, "VoterCardRegular", MatcherVariant(OVDVoterID))
	assert.Equal(t, "Unknown", MatcherVariant("Unknown"))
}
