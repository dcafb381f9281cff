package models

import (
	"time"

	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
)

// Submission is the aggregate root for one KYC case.
//
// Invariants:
//   - CaseID is immutable once created
//   - Document is only ever merged into, never wholesale-replaced, except on
//     reinitiation (full reset) or read
//   - Mutations flow through the intake guard or the enrichment pipeline only
type Submission struct {
	CaseID    id.CaseID `json:"caseId"`
	UserID    id.UserID `json:"userId"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Document  Document  `json:"document"`
	Notes     Notes     `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSubmission seeds a case with the contact identity captured at initiation.
func NewSubmission(caseID id.CaseID, userID id.UserID, name, email, mobile string, now time.Time) (*Submission, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submission email cannot be empty")
	}
	return &Submission{
		CaseID: caseID,
		UserID: userID,
		Email:  email,
		Mobile: mobile,
		Document: Document{
			Personal: &PersonalInfo{Name: name, Email: email, Mobile: mobile},
		},
		CreatedAt: now,
	}, nil
}

// Document is the incrementally assembled case file. Each sub-structure is a
// named optional block; a patch carries only the blocks it intends to write
// and merging happens at block granularity, so concurrent writers touching
// different blocks never clobber each other.
type Document struct {
	Personal  *PersonalInfo `json:"personal,omitempty"`
	Addresses *AddressPair  `json:"addresses,omitempty"`
	POADocs   *DocumentPair `json:"poaDocuments,omitempty"`
	Liveness  *LivenessInfo `json:"liveness,omitempty"`

	// Filled by the enrichment pipeline, same merge discipline as intake.
	PerPOA *ConfidenceBlock `json:"perPOA,omitempty"`
	CorPOA *ConfidenceBlock `json:"corPOA,omitempty"`
}

// Merge applies the non-nil blocks of patch onto d. Blocks absent from the
// patch are preserved.
func (d *Document) Merge(patch Document) {
	if patch.Personal != nil {
		d.Personal = patch.Personal
	}
	if patch.Addresses != nil {
		d.Addresses = patch.Addresses
	}
	if patch.POADocs != nil {
		d.POADocs = patch.POADocs
	}
	if patch.Liveness != nil {
		d.Liveness = patch.Liveness
	}
	if patch.PerPOA != nil {
		d.PerPOA = patch.PerPOA
	}
	if patch.CorPOA != nil {
		d.CorPOA = patch.CorPOA
	}
}

// IsEmpty reports whether no blocks have been written yet.
func (d Document) IsEmpty() bool {
	return d.Personal == nil && d.Addresses == nil && d.POADocs == nil &&
		d.Liveness == nil && d.PerPOA == nil && d.CorPOA == nil
}

// PersonalInfo carries the applicant-entered identity fields.
type PersonalInfo struct {
	Name       string `json:"name"`
	Gender     string `json:"gender,omitempty"`
	DOB        string `json:"dob,omitempty"`
	Email      string `json:"emailId,omitempty"`
	Mobile     string `json:"mobileNo,omitempty"`
	FatherName string `json:"fatherName,omitempty"`
	SpouseName string `json:"spouseName,omitempty"`
	PhotoImage string `json:"photoImage,omitempty"`
}

// Address is one postal address block.
type Address struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	ZipCode       string `json:"zipCode"`
}

// Line renders the address as a single matcher-friendly line. Country
// defaults to India, matching the document formats the matcher understands.
func (a Address) Line() string {
	country := a.Country
	if country == "" {
		country = "India"
	}
	return a.StreetAddress + ", " + a.City + ", " + a.State + ", " + country + " - " + a.ZipCode
}

// AddressPair holds both tracked address variants.
type AddressPair struct {
	Permanent      Address `json:"permanentAddress"`
	Correspondence Address `json:"correspondenceAddress"`
}

// ProofOfAddress is one uploaded POA document.
type ProofOfAddress struct {
	OVDType   string `json:"ovdType"`
	OVDNumber string `json:"ovdNumber"`
	OVDImage  string `json:"ovdImage,omitempty"`
}

// DocumentPair holds the POA document for each address side.
type DocumentPair struct {
	Permanent      ProofOfAddress `json:"permanentPOA"`
	Correspondence ProofOfAddress `json:"correspondencePOA"`
}

// LivenessInfo records the outcome of the synchronous liveness check.
type LivenessInfo struct {
	Status string  `json:"livenessStatus"`
	Score  float64 `json:"livenessScore"`
	Image  string  `json:"livenessImage,omitempty"`
}
