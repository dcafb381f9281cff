// Package domain holds the typed identifiers shared across modules.
// Construct IDs via the Parse functions at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "kyra/pkg/domain-errors"
)

// CaseID identifies one KYC case.
type CaseID uuid.UUID

// UserID identifies an applicant.
type UserID uuid.UUID

// AdminID identifies a reviewer. The zero value means "no reviewer", used for
// applicant-initiated and pipeline-initiated actions.
type AdminID uuid.UUID

// NewCaseID generates a fresh random case ID.
func NewCaseID() CaseID {
	return CaseID(uuid.New())
}

func (i CaseID) String() string  { return uuid.UUID(i).String() }
func (i UserID) String() string  { return uuid.UUID(i).String() }
func (i AdminID) String() string { return uuid.UUID(i).String() }

func (i CaseID) IsNil() bool  { return uuid.UUID(i) == uuid.Nil }
func (i UserID) IsNil() bool  { return uuid.UUID(i) == uuid.Nil }
func (i AdminID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

// The ID types marshal as their canonical UUID strings. AdminID additionally
// round-trips its zero value through the empty string, since "no reviewer" is
// a legal state.

func (i CaseID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i UserID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i AdminID) MarshalText() ([]byte, error) {
	if i.IsNil() {
		return []byte(""), nil
	}
	return []byte(i.String()), nil
}

func (i *CaseID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*i = CaseID(parsed)
	return nil
}

func (i *UserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*i = UserID(parsed)
	return nil
}

func (i *AdminID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*i = AdminID{}
		return nil
	}
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*i = AdminID(parsed)
	return nil
}

// ParseCaseID validates a case ID from external input.
func ParseCaseID(s string) (CaseID, error) {
	parsed, err := parse(s, "case id")
	return CaseID(parsed), err
}

// ParseUserID validates an applicant ID from external input.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parse(s, "user id")
	return UserID(parsed), err
}

// ParseAdminID validates a reviewer ID from external input.
func ParseAdminID(s string) (AdminID, error) {
	parsed, err := parse(s, "admin id")
	return AdminID(parsed), err
}

func parse(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", kind)
	}
	return parsed, nil
}
