package summary

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyra/internal/kyc/models"
	dErrors "kyra/pkg/domain-errors"
)

func TestClientMatchReview(t *testing.T) {
	var gotPath string
	var gotBody MatchContext
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(summaryResponse{Summary: "permanent side matched cleanly"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	review, err := client.MatchReview(t.Context(), MatchContext{
		Permanent: &models.ConfidenceBlock{Fields: map[string]models.ConfidenceField{
			"name": {Value: "Asha Rao", Confidence: models.ConfidenceHigh, Score: 0.97},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/summaries/match", gotPath)
	assert.Equal(t, "permanent side matched cleanly", review)
	require.NotNil(t, gotBody.Permanent)
	assert.Nil(t, gotBody.Correspondence)
}

func TestClientLivenessReview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/summaries/liveness", r.URL.Path)
		_ = json.NewEncoder(w).Encode(summaryResponse{Summary: "liveness passed with high score"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	review, err := client.LivenessReview(t.Context(), models.LivenessInfo{Status: models.LivenessPass, Score: 0.93})
	require.NoError(t, err)
	assert.Equal(t, "liveness passed with high score", review)
}

func TestClientProviderFailures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, 0).MatchReview(t.Context(), MatchContext{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExternal))
	})

	t.Run("unreachable provider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		_, err := NewClient(server.URL, 0).MatchReview(t.Context(), MatchContext{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExternal))
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, 0).MatchReview(t.Context(), MatchContext{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExternal))
	})
}
