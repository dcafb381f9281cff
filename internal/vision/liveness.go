package vision

import (
	"context"
)

const livenessTask = "liveness-detection"

// spoofKeywords veto a liveness pass in the text fallback: any of these in
// the analysis means the capture may not be a live person.
var spoofKeywords = []string{"spoof", "fake", "photo", "printed", "mask"}

// ClassifyLiveness analyzes a selfie capture for liveness.
func (c *Client) ClassifyLiveness(ctx context.Context, image string) (*LivenessResult, error) {
	analysis, err := c.analyze(ctx, image, livenessTask)
	if err != nil {
		return nil, err
	}
	result := parseLivenessAnalysis(analysis)
	return result, nil
}

// parseLivenessAnalysis prefers an embedded JSON verdict. The text fallback
// requires an affirmative "live" with no spoof indicators; anything else is a
// low-confidence failure, biasing toward manual review.
func parseLivenessAnalysis(analysis string) *LivenessResult {
	var verdict struct {
		Live       *bool    `json:"live"`
		Confidence *float64 `json:"confidence"`
	}
	if extractJSON(analysis, &verdict) && verdict.Live != nil {
		confidence := 0.85
		if verdict.Confidence != nil {
			confidence = *verdict.Confidence
		}
		return &LivenessResult{Live: *verdict.Live, Confidence: confidence, Analysis: analysis}
	}

	if containsAny(analysis, []string{"live"}) && !containsAny(analysis, spoofKeywords) {
		return &LivenessResult{Live: true, Confidence: 0.85, Analysis: analysis}
	}
	return &LivenessResult{Live: false, Confidence: 0.60, Analysis: analysis}
}
