// Package matcher adapts the external document-matching provider. The
// provider extracts fields from a proof-of-address image and scores each one
// against the applicant-entered values.
package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"kyra/internal/kyc/models"
	dErrors "kyra/pkg/domain-errors"
)

// Input is one side's matching request: the uploaded image plus the values
// the applicant claims, which the provider verifies field by field.
type Input struct {
	Image    string            `json:"image"`
	Variant  string            `json:"documentVariant"`
	Expected map[string]string `json:"expected"`
}

// Matcher scores one document image against expected field values.
type Matcher interface {
	Match(ctx context.Context, input Input) (*models.ConfidenceBlock, error)
}

// Client is the HTTP adapter for the matching provider.
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

type matchResponse struct {
	Fields map[string]models.ConfidenceField `json:"fields"`
}

func (c *Client) Match(ctx context.Context, input Input) (*models.ConfidenceBlock, error) {
	input.Image = CleanBase64(input.Image)
	if input.Image == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document image is empty")
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal match request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/match", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "document matcher unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeExternal, "document matcher returned status %d", resp.StatusCode)
	}

	var parsed matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "document matcher returned malformed response")
	}
	return &models.ConfidenceBlock{Fields: parsed.Fields}, nil
}

var dataURIPrefix = regexp.MustCompile(`^data:[a-zA-Z0-9/+.-]+;base64,`)

// CleanBase64 strips a data-URI prefix and all whitespace from an uploaded
// image payload. Browsers and mobile SDKs wrap uploads inconsistently; the
// providers want the bare encoding.
func CleanBase64(image string) string {
	image = strings.TrimSpace(image)
	image = dataURIPrefix.ReplaceAllString(image, "")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, image)
}
