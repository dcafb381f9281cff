package models

import (
	"time"

	dErrors "kyra/pkg/domain-errors"
)

const (
	dobInputLayout  = "2006-01-02"
	dobStoredLayout = "02/01/2006"
)

// NormalizeDOB converts an ISO date of birth into the fixed day/month/year
// form stored on the document. Already-normalized values pass through.
func NormalizeDOB(dob string) (string, error) {
	if dob == "" {
		return "", nil
	}
	if _, err := time.Parse(dobStoredLayout, dob); err == nil {
		return dob, nil
	}
	parsed, err := time.Parse(dobInputLayout, dob)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeValidation, "date of birth %q must use YYYY-MM-DD", dob)
	}
	return parsed.Format(dobStoredLayout), nil
}
