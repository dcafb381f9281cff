package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	"kyra/pkg/platform/sentinel"
)

// InMemory keeps submissions and status records in process. It backs unit
// tests and single-node development; the postgres store is the production
// implementation.
type InMemory struct {
	mu     sync.RWMutex
	cases  map[id.CaseID]*models.Submission
	status map[id.CaseID]*models.StatusRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:  make(map[id.CaseID]*models.Submission),
		status: make(map[id.CaseID]*models.StatusRecord),
	}
}

// CreateCase persists the submission and its status record in lockstep.
func (s *InMemory) CreateCase(_ context.Context, sub *models.Submission, record *models.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[sub.CaseID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[sub.CaseID] = cloneSubmission(sub)
	s.status[record.CaseID] = cloneStatus(record)
	return nil
}

func (s *InMemory) FindSubmission(_ context.Context, caseID id.CaseID) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSubmission(sub), nil
}

func (s *InMemory) FindStatus(_ context.Context, caseID id.CaseID) (*models.StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.status[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneStatus(record), nil
}

// MergeDocument applies a block-level patch to the case document and returns
// the merged submission.
func (s *InMemory) MergeDocument(_ context.Context, caseID id.CaseID, patch models.Document) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	sub.Document.Merge(patch)
	return cloneSubmission(sub), nil
}

// MergeNotes applies a field-level patch to the case notes.
func (s *InMemory) MergeNotes(_ context.Context, caseID id.CaseID, patch models.Notes) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	sub.Notes.Merge(patch)
	return cloneSubmission(sub), nil
}

// ResetDocument clears the case document for reinitiation. Notes survive the
// reset so reviewers keep the prior round's analysis trail.
func (s *InMemory) ResetDocument(_ context.Context, caseID id.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.cases[caseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sub.Document = models.Document{}
	return nil
}

// ExecuteStatus runs validate and mutate on the status record while holding
// the store lock, so no other writer can move the record between the check
// and the update. The postgres implementation uses SELECT ... FOR UPDATE for
// the same guarantee.
func (s *InMemory) ExecuteStatus(
	_ context.Context,
	caseID id.CaseID,
	validate func(*models.StatusRecord) error,
	mutate func(*models.StatusRecord),
) (*models.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.status[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(record); err != nil {
			return nil, err
		}
	}
	mutate(record)
	return cloneStatus(record), nil
}

// List returns dashboard summaries matching the filter, newest first, with
// the total match count for pagination.
func (s *InMemory) List(_ context.Context, filter ListFilter) ([]CaseSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []CaseSummary
	for caseID, sub := range s.cases {
		record := s.status[caseID]
		if record == nil {
			continue
		}
		summary := toSummary(sub, record)
		if !filter.matches(summary) {
			continue
		}
		matched = append(matched, summary)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, filter.Page, filter.Size), total, nil
}

// CountByStatus returns the number of cases currently in each state.
func (s *InMemory) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, record := range s.status {
		counts[record.State]++
	}
	return counts, nil
}

func toSummary(sub *models.Submission, record *models.StatusRecord) CaseSummary {
	summary := CaseSummary{
		CaseID:    sub.CaseID,
		Email:     sub.Email,
		State:     record.State,
		CreatedAt: sub.CreatedAt,
	}
	if sub.Document.Personal != nil {
		summary.Name = sub.Document.Personal.Name
	}
	return summary
}

func (f ListFilter) matches(summary CaseSummary) bool {
	if f.Status != nil && summary.State != *f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(summary.Name), needle) &&
			!strings.Contains(strings.ToLower(summary.Email), needle) &&
			!strings.Contains(summary.CaseID.String(), needle) {
			return false
		}
	}
	return true
}

func paginate(items []CaseSummary, page, size int) []CaseSummary {
	if size <= 0 {
		return items
	}
	start := page * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// cloneSubmission deep-copies the optional blocks so callers can mutate a
// returned submission without reaching back into store state.
func cloneSubmission(sub *models.Submission) *models.Submission {
	out := *sub
	out.Document = cloneDocument(sub.Document)
	out.Notes = cloneNotes(sub.Notes)
	return &out
}

func cloneDocument(doc models.Document) models.Document {
	var out models.Document
	if doc.Personal != nil {
		v := *doc.Personal
		out.Personal = &v
	}
	if doc.Addresses != nil {
		v := *doc.Addresses
		out.Addresses = &v
	}
	if doc.POADocs != nil {
		v := *doc.POADocs
		out.POADocs = &v
	}
	if doc.Liveness != nil {
		v := *doc.Liveness
		out.Liveness = &v
	}
	out.PerPOA = cloneBlock(doc.PerPOA)
	out.CorPOA = cloneBlock(doc.CorPOA)
	return out
}

func cloneBlock(block *models.ConfidenceBlock) *models.ConfidenceBlock {
	if block == nil {
		return nil
	}
	out := models.ConfidenceBlock{Fields: make(map[string]models.ConfidenceField, len(block.Fields))}
	for name, field := range block.Fields {
		out.Fields[name] = field
	}
	return &out
}

func cloneNotes(notes models.Notes) models.Notes {
	var out models.Notes
	if notes.MatchReview != nil {
		v := *notes.MatchReview
		out.MatchReview = &v
	}
	if notes.LivenessReview != nil {
		v := *notes.LivenessReview
		out.LivenessReview = &v
	}
	if notes.TamperReview != nil {
		v := *notes.TamperReview
		out.TamperReview = &v
	}
	if notes.RiskScore != nil {
		v := *notes.RiskScore
		out.RiskScore = &v
	}
	return out
}

func cloneStatus(record *models.StatusRecord) *models.StatusRecord {
	out := *record
	return &out
}
