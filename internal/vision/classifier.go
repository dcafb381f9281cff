// Package vision adapts the image-analysis provider behind two capabilities:
// tamper detection on document scans and liveness detection on selfie
// captures. The provider answers in prose; adapters first look for an
// embedded JSON verdict and fall back to keyword heuristics when the provider
// does not produce one.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"kyra/internal/enrichment/matcher"
	dErrors "kyra/pkg/domain-errors"
)

// TamperResult is the verdict on one document image.
type TamperResult struct {
	Tampered   bool    `json:"tampered"`
	Confidence float64 `json:"confidence"`
	Analysis   string  `json:"analysis"`
}

// LivenessResult is the verdict on one selfie capture.
type LivenessResult struct {
	Live       bool    `json:"live"`
	Confidence float64 `json:"confidence"`
	Analysis   string  `json:"analysis"`
}

// TamperClassifier inspects a document image for manipulation.
type TamperClassifier interface {
	ClassifyTamper(ctx context.Context, image string) (*TamperResult, error)
}

// LivenessClassifier decides whether a capture shows a live person.
type LivenessClassifier interface {
	ClassifyLiveness(ctx context.Context, image string) (*LivenessResult, error)
}

// Client is the HTTP adapter for the vision provider. One provider serves
// both capabilities through different analysis prompts.
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

type analyzeRequest struct {
	Image string `json:"image"`
	Task  string `json:"task"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
}

func (c *Client) analyze(ctx context.Context, image, task string) (string, error) {
	image = matcher.CleanBase64(image)
	if image == "" {
		return "", dErrors.New(dErrors.CodeValidation, "image is empty")
	}

	body, err := json.Marshal(analyzeRequest{Image: image, Task: task})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "vision provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.Newf(dErrors.CodeExternal, "vision provider returned status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "vision provider returned malformed response")
	}
	return parsed.Analysis, nil
}

var jsonObject = regexp.MustCompile(`\{[^{}]*\}`)

// extractJSON pulls the first JSON object out of a prose answer and decodes
// it into target. Returns false when no decodable object is present.
func extractJSON(analysis string, target any) bool {
	for _, candidate := range jsonObject.FindAllString(analysis, -1) {
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
