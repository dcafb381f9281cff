// Package enrichment runs the post-submit verification pipeline: document
// matching, the approval decision, and reviewer note generation. Each stage
// persists its output before the next begins, so a crashed run leaves partial
// results a reviewer can still see.
package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"kyra/internal/enrichment/matcher"
	"kyra/internal/enrichment/summary"
	"kyra/internal/kyc/metrics"
	"kyra/internal/kyc/models"
	"kyra/internal/vision"
	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
	"kyra/pkg/platform/audit"
)

// CaseStore is the persistence surface the pipeline consumes.
type CaseStore interface {
	FindSubmission(ctx context.Context, caseID id.CaseID) (*models.Submission, error)
	FindStatus(ctx context.Context, caseID id.CaseID) (*models.StatusRecord, error)
	MergeDocument(ctx context.Context, caseID id.CaseID, patch models.Document) (*models.Submission, error)
	MergeNotes(ctx context.Context, caseID id.CaseID, patch models.Notes) (*models.Submission, error)
	ExecuteStatus(ctx context.Context, caseID id.CaseID,
		validate func(*models.StatusRecord) error,
		mutate func(*models.StatusRecord)) (*models.StatusRecord, error)
}

// Notifier delivers the auto-approval email.
type Notifier interface {
	SendApproval(ctx context.Context, email, name string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Pipeline enriches one submitted case end to end.
type Pipeline struct {
	store          CaseStore
	matcher        matcher.Matcher
	summarizer     summary.Summarizer
	notifier       Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(p *Pipeline)

func WithNotifier(notifier Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = notifier
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(p *Pipeline) {
		p.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New constructs a Pipeline.
func New(cases CaseStore, m matcher.Matcher, s summary.Summarizer, opts ...Option) *Pipeline {
	p := &Pipeline{store: cases, matcher: m, summarizer: s}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one enrichment pass for the case. It is safe to call on a case
// in any state: runs against cases that already left UNDER_REVIEW exit early.
func (p *Pipeline) Run(ctx context.Context, caseID id.CaseID) error {
	start := time.Now()

	record, err := p.store.FindStatus(ctx, caseID)
	if err != nil {
		return p.fail(ctx, caseID, "load status", err)
	}
	if record.State != models.StatusUnderReview {
		p.skip(ctx, caseID, record.State)
		return nil
	}

	sub, err := p.store.FindSubmission(ctx, caseID)
	if err != nil {
		return p.fail(ctx, caseID, "load submission", err)
	}

	perBlock, corBlock, err := p.matchDocuments(ctx, sub)
	if err != nil {
		return p.fail(ctx, caseID, "document matching", err)
	}

	if shouldAutoApprove(perBlock, corBlock) {
		err = p.autoApprove(ctx, sub)
	} else {
		err = p.routeToReview(ctx, sub, perBlock, corBlock)
	}
	if err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.ObservePipeline(start)
	}
	return nil
}

// matchDocuments runs the matcher for each uploaded side and persists each
// confidence block as soon as it arrives.
func (p *Pipeline) matchDocuments(ctx context.Context, sub *models.Submission) (*models.ConfidenceBlock, *models.ConfidenceBlock, error) {
	if sub.Document.POADocs == nil {
		return nil, nil, nil
	}

	expected := expectedFields(sub)
	var perBlock, corBlock *models.ConfidenceBlock

	if poa := sub.Document.POADocs.Permanent; poa.OVDImage != "" {
		block, err := p.matcher.Match(ctx, matcher.Input{
			Image:    poa.OVDImage,
			Variant:  models.MatcherVariant(poa.OVDType),
			Expected: withAddress(expected, sub, permanentSide),
		})
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.store.MergeDocument(ctx, sub.CaseID, models.Document{PerPOA: block}); err != nil {
			return nil, nil, err
		}
		perBlock = block
	}

	if poa := sub.Document.POADocs.Correspondence; poa.OVDImage != "" {
		block, err := p.matcher.Match(ctx, matcher.Input{
			Image:    poa.OVDImage,
			Variant:  models.MatcherVariant(poa.OVDType),
			Expected: withAddress(expected, sub, correspondenceSide),
		})
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.store.MergeDocument(ctx, sub.CaseID, models.Document{CorPOA: block}); err != nil {
			return nil, nil, err
		}
		corBlock = block
	}

	return perBlock, corBlock, nil
}

// shouldAutoApprove implements the approval decision: every side that was
// matched must be fully high-confidence, and at least one side must have been
// matched at all.
func shouldAutoApprove(perBlock, corBlock *models.ConfidenceBlock) bool {
	if perBlock == nil && corBlock == nil {
		return false
	}
	if perBlock != nil && !perBlock.AllFieldsHighConfidence() {
		return false
	}
	if corBlock != nil && !corBlock.AllFieldsHighConfidence() {
		return false
	}
	return true
}

// autoApprove finalizes the case without reviewer involvement. The status
// write re-checks the state under lock: if an admin decided while the
// pipeline was running, the admin wins and the approval is dropped.
func (p *Pipeline) autoApprove(ctx context.Context, sub *models.Submission) error {
	now := time.Now()
	_, err := p.store.ExecuteStatus(ctx, sub.CaseID,
		func(r *models.StatusRecord) error {
			if r.State != models.StatusUnderReview {
				return dErrors.Newf(dErrors.CodeInvalidState, "case moved to %s during enrichment", r.State)
			}
			return nil
		},
		func(r *models.StatusRecord) { r.ApplyAutoApproval(now) },
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			p.skip(ctx, sub.CaseID, "")
			return nil
		}
		return p.fail(ctx, sub.CaseID, "auto approval", err)
	}

	if _, err := p.store.MergeNotes(ctx, sub.CaseID, models.Notes{
		RiskScore: models.Float64Ptr(0),
	}); err != nil {
		return p.fail(ctx, sub.CaseID, "persist risk score", err)
	}

	if p.auditPublisher != nil {
		_ = p.auditPublisher.Emit(ctx, audit.Event{
			CaseID:   sub.CaseID,
			Action:   string(audit.EventCaseAutoApproved),
			Decision: string(models.StatusApproved),
		})
	}
	if p.metrics != nil {
		p.metrics.AutoApproved.Inc()
		p.metrics.Transitions.WithLabelValues(string(models.StatusApproved)).Inc()
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "case auto-approved", "case_id", sub.CaseID)
	}

	if p.notifier != nil {
		name := ""
		if sub.Document.Personal != nil {
			name = sub.Document.Personal.Name
		}
		if err := p.notifier.SendApproval(ctx, sub.Email, name); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "approval notification failed", "case_id", sub.CaseID, "error", err)
		}
	}
	return nil
}

// routeToReview leaves the case UNDER_REVIEW and generates the reviewer
// notes. Stages are independent and each artifact is persisted as soon as it
// exists: the risk score needs no provider call and is written first, and the
// match and liveness summaries merge their own notes on return, so one failing
// summarizer never discards a sibling's output.
func (p *Pipeline) routeToReview(ctx context.Context, sub *models.Submission, perBlock, corBlock *models.ConfidenceBlock) error {
	if _, err := p.store.MergeNotes(ctx, sub.CaseID, models.Notes{
		RiskScore: models.Float64Ptr(riskScore(sub, perBlock, corBlock)),
	}); err != nil {
		return p.fail(ctx, sub.CaseID, "persist risk score", err)
	}

	var group errgroup.Group
	group.Go(func() error {
		review, err := p.summarizer.MatchReview(ctx, summary.MatchContext{
			Permanent:      perBlock,
			Correspondence: corBlock,
		})
		if err != nil {
			return err
		}
		_, err = p.store.MergeNotes(ctx, sub.CaseID, models.Notes{
			MatchReview: models.StringPtr(review),
		})
		return err
	})
	if sub.Document.Liveness != nil {
		liveness := *sub.Document.Liveness
		group.Go(func() error {
			review, err := p.summarizer.LivenessReview(ctx, liveness)
			if err != nil {
				return err
			}
			_, err = p.store.MergeNotes(ctx, sub.CaseID, models.Notes{
				LivenessReview: models.StringPtr(review),
			})
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return p.fail(ctx, sub.CaseID, "review summaries", err)
	}

	if p.auditPublisher != nil {
		_ = p.auditPublisher.Emit(ctx, audit.Event{
			CaseID: sub.CaseID,
			Action: string(audit.EventCaseEnriched),
		})
	}
	if p.metrics != nil {
		p.metrics.ManualReview.Inc()
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "case routed to manual review", "case_id", sub.CaseID)
	}
	return nil
}

// riskScore derives a 0..1 score from the evidence at hand: the average
// matcher confidence shortfall, a fixed penalty for a failed liveness check,
// and a fixed penalty when a prior deep review flagged the document as
// tampered. No matched evidence at all scores high risk.
func riskScore(sub *models.Submission, blocks ...*models.ConfidenceBlock) float64 {
	var total float64
	var count int
	for _, block := range blocks {
		if block == nil {
			continue
		}
		for _, field := range block.Fields {
			if field.Value == "" {
				continue
			}
			total += 1 - field.Score
			count++
		}
	}

	score := 0.75
	if count > 0 {
		score = total / float64(count)
	}
	if sub.Document.Liveness != nil && sub.Document.Liveness.Status == models.LivenessFail {
		score += 0.25
	}
	if sub.Notes.TamperReview != nil && vision.TamperIndicated(*sub.Notes.TamperReview) {
		score += 0.25
	}
	score = math.Min(1, math.Max(0, score))
	return math.Round(score*100) / 100
}

const (
	permanentSide      = "permanent"
	correspondenceSide = "correspondence"
)

func expectedFields(sub *models.Submission) map[string]string {
	expected := make(map[string]string)
	if sub.Document.Personal != nil {
		expected["name"] = sub.Document.Personal.Name
		expected["dob"] = sub.Document.Personal.DOB
	}
	return expected
}

func withAddress(base map[string]string, sub *models.Submission, side string) map[string]string {
	expected := make(map[string]string, len(base)+1)
	for key, value := range base {
		expected[key] = value
	}
	if sub.Document.Addresses != nil {
		switch side {
		case permanentSide:
			expected["address"] = sub.Document.Addresses.Permanent.Line()
		case correspondenceSide:
			expected["address"] = sub.Document.Addresses.Correspondence.Line()
		}
	}
	return expected
}

func (p *Pipeline) skip(ctx context.Context, caseID id.CaseID, state models.Status) {
	if p.metrics != nil {
		p.metrics.EnrichmentSkipped.Inc()
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "enrichment skipped", "case_id", caseID, "state", state)
	}
}

func (p *Pipeline) fail(ctx context.Context, caseID id.CaseID, stage string, err error) error {
	if p.metrics != nil {
		p.metrics.PipelineFailures.Inc()
	}
	if p.logger != nil {
		p.logger.ErrorContext(ctx, "enrichment failed", "case_id", caseID, "stage", stage, "error", err)
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "enrichment "+stage+" failed")
}
