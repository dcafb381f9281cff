package vision

import (
	"context"
)

const tamperTask = "tamper-detection"

// tamperKeywords flag a manipulated document when the provider answers in
// prose without a JSON verdict.
var tamperKeywords = []string{"fake", "tampered", "forged", "edited", "altered", "manipulated"}

// ClassifyTamper analyzes a document image for signs of manipulation.
func (c *Client) ClassifyTamper(ctx context.Context, image string) (*TamperResult, error) {
	analysis, err := c.analyze(ctx, image, tamperTask)
	if err != nil {
		return nil, err
	}
	result := parseTamperAnalysis(analysis)
	return result, nil
}

// parseTamperAnalysis prefers an embedded JSON verdict and falls back to
// keyword scanning. The fallback is asymmetric on purpose: a keyword hit is a
// moderately confident positive, a clean text is a slightly stronger negative.
func parseTamperAnalysis(analysis string) *TamperResult {
	var verdict struct {
		Tampered   *bool    `json:"tampered"`
		Confidence *float64 `json:"confidence"`
	}
	if extractJSON(analysis, &verdict) && verdict.Tampered != nil {
		confidence := 0.85
		if verdict.Confidence != nil {
			confidence = *verdict.Confidence
		}
		return &TamperResult{Tampered: *verdict.Tampered, Confidence: confidence, Analysis: analysis}
	}

	if containsAny(analysis, tamperKeywords) {
		return &TamperResult{Tampered: true, Confidence: 0.85, Analysis: analysis}
	}
	return &TamperResult{Tampered: false, Confidence: 0.90, Analysis: analysis}
}
