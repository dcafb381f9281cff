package service

import (
	"context"
	"log/slog"

	"kyra/internal/kyc/metrics"
	"kyra/internal/kyc/models"
	"kyra/internal/kyc/store"
	"kyra/pkg/attrs"
	id "kyra/pkg/domain"
	"kyra/pkg/platform/audit"
	"kyra/pkg/requestcontext"
)

// CaseStore is the persistence surface the service consumes. Both the
// in-memory and the postgres store satisfy it.
type CaseStore interface {
	CreateCase(ctx context.Context, sub *models.Submission, record *models.StatusRecord) error
	FindSubmission(ctx context.Context, caseID id.CaseID) (*models.Submission, error)
	FindStatus(ctx context.Context, caseID id.CaseID) (*models.StatusRecord, error)
	MergeDocument(ctx context.Context, caseID id.CaseID, patch models.Document) (*models.Submission, error)
	MergeNotes(ctx context.Context, caseID id.CaseID, patch models.Notes) (*models.Submission, error)
	ResetDocument(ctx context.Context, caseID id.CaseID) error
	ExecuteStatus(ctx context.Context, caseID id.CaseID,
		validate func(*models.StatusRecord) error,
		mutate func(*models.StatusRecord)) (*models.StatusRecord, error)
	List(ctx context.Context, filter store.ListFilter) ([]store.CaseSummary, int, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}

// Scheduler starts an enrichment run for a submitted case. Scheduling is
// fire-and-forget; the run's outcome surfaces through the case itself.
type Scheduler interface {
	Schedule(caseID id.CaseID)
}

// Notifier delivers applicant-facing emails. Failures are logged, never
// propagated; a lost email must not fail a transition.
type Notifier interface {
	SendApproval(ctx context.Context, email, name string) error
	SendReverification(ctx context.Context, email, name string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the KYC case lifecycle: intake, transitions, and the
// dashboard surface. The enrichment pipeline mutates cases through the same
// store but is driven separately by the scheduler.
type Service struct {
	store          CaseStore
	scheduler      Scheduler
	notifier       Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(cases CaseStore, scheduler Scheduler, opts ...Option) *Service {
	s := &Service{store: cases, scheduler: scheduler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.CaseEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	caseID, _ := id.ParseCaseID(attrs.ExtractString(attributes, "case_id"))
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		CaseID:    caseID,
		ActorID:   attrs.ExtractString(attributes, "admin_id"),
		Action:    string(event),
		Decision:  attrs.ExtractString(attributes, "decision"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestID,
	})
}

func (s *Service) notify(ctx context.Context, send func() error, kind string, caseID id.CaseID) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"kind", kind, "case_id", caseID, "error", err)
	}
}

func (s *Service) countTransition(to models.Status) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(to)).Inc()
	}
}
