package models

// ConfidenceLabel classifies how sure the document matcher is about one
// extracted field.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// ConfidenceField is one extracted field with its confidence metadata.
type ConfidenceField struct {
	Value      string          `json:"value"`
	Confidence ConfidenceLabel `json:"confidence"`
	Score      float64         `json:"score"`
}

// ConfidenceBlock is the matcher's per-side extraction result, keyed by field
// name (name, dob, address, documentNumber, ...).
type ConfidenceBlock struct {
	Fields map[string]ConfidenceField `json:"fields"`
}

// AllFieldsHighConfidence reports whether every populated field carries the
// high-confidence label. The rule is label equality, not score thresholding;
// the matcher owns the score-to-label mapping. A block with no populated
// fields passes vacuously, mirroring presence being decided separately.
func (b *ConfidenceBlock) AllFieldsHighConfidence() bool {
	if b == nil {
		return false
	}
	for _, field := range b.Fields {
		if field.Value == "" {
			continue
		}
		if field.Confidence != ConfidenceHigh {
			return false
		}
	}
	return true
}

// Notes is the derived analysis document the pipeline and the deep-review
// worker accumulate for manual adjudication. Pointer fields distinguish
// "not yet produced" from an empty result so merges stay additive.
type Notes struct {
	MatchReview    *string  `json:"kycMatchReview,omitempty"`
	LivenessReview *string  `json:"livenessReview,omitempty"`
	TamperReview   *string  `json:"tamperReview,omitempty"`
	RiskScore      *float64 `json:"riskScore,omitempty"`
}

// Merge applies the non-nil fields of patch onto n.
func (n *Notes) Merge(patch Notes) {
	if patch.MatchReview != nil {
		n.MatchReview = patch.MatchReview
	}
	if patch.LivenessReview != nil {
		n.LivenessReview = patch.LivenessReview
	}
	if patch.TamperReview != nil {
		n.TamperReview = patch.TamperReview
	}
	if patch.RiskScore != nil {
		n.RiskScore = patch.RiskScore
	}
}

// StringPtr and Float64Ptr build note patches without intermediate variables.
func StringPtr(s string) *string    { return &s }
func Float64Ptr(f float64) *float64 { return &f }
