// Package summary adapts the external review-summarization provider, which
// turns raw match and liveness data into short prose a reviewer can act on.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kyra/internal/kyc/models"
	dErrors "kyra/pkg/domain-errors"
)

// MatchContext carries the data the summarizer sees for a match review.
type MatchContext struct {
	Permanent      *models.ConfidenceBlock `json:"permanent,omitempty"`
	Correspondence *models.ConfidenceBlock `json:"correspondence,omitempty"`
}

// Summarizer produces reviewer-facing prose for a case under manual review.
type Summarizer interface {
	MatchReview(ctx context.Context, input MatchContext) (string, error)
	LivenessReview(ctx context.Context, liveness models.LivenessInfo) (string, error)
}

// Client is the HTTP adapter for the summarization provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) MatchReview(ctx context.Context, input MatchContext) (string, error) {
	return c.summarize(ctx, "/v1/summaries/match", input)
}

func (c *Client) LivenessReview(ctx context.Context, liveness models.LivenessInfo) (string, error) {
	return c.summarize(ctx, "/v1/summaries/liveness", liveness)
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func (c *Client) summarize(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal summary request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "summarizer unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.Newf(dErrors.CodeExternal, "summarizer returned status %d", resp.StatusCode)
	}

	var parsed summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "summarizer returned malformed response")
	}
	return parsed.Summary, nil
}
