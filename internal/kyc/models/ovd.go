package models

// Officially valid documents accepted as proof of address.
const (
	OVDAadhaar  = "AadhaarCard"
	OVDPassport = "Passport"
	OVDVoterID  = "VoterCard"
)

// Liveness check outcomes recorded on the document.
const (
	LivenessPass = "PASS"
	LivenessFail = "FAIL"
)

// KnownOVDType reports whether the type is an accepted proof of address.
func KnownOVDType(ovdType string) bool {
	switch ovdType {
	case OVDAadhaar, OVDPassport, OVDVoterID:
		return true
	}
	return false
}

// matcherVariants maps intake document types onto the template names the
// document matcher is trained on.
var matcherVariants = map[string]string{
	OVDAadhaar:  "AadhaarRegular",
	OVDPassport: "PassportRegular",
	OVDVoterID:  "VoterCardRegular",
}

// MatcherVariant resolves the matcher template name for an intake document
// type. Unknown types pass through unchanged so the matcher can reject them
// with its own error.
func MatcherVariant(ovdType string) string {
	if variant, ok := matcherVariants[ovdType]; ok {
		return variant
	}
	return ovdType
}
