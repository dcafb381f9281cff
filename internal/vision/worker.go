package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
)

// NotesMerger is the slice of the case store the worker needs.
type NotesMerger interface {
	MergeNotes(ctx context.Context, caseID id.CaseID, patch models.Notes) (*models.Submission, error)
}

// DeepReviewWorker folds tamper verdicts into case notes off the request
// path. The synchronous check answers the caller immediately; the note write
// happens here so a slow store never delays the check response.
type DeepReviewWorker struct {
	merger NotesMerger
	logger *slog.Logger

	mu     sync.Mutex
	inbox  chan deepReviewJob
	done   chan struct{}
	closed bool
}

type deepReviewJob struct {
	caseID id.CaseID
	result TamperResult
}

func NewDeepReviewWorker(merger NotesMerger, buffer int, logger *slog.Logger) *DeepReviewWorker {
	w := &DeepReviewWorker{
		merger: merger,
		logger: logger,
		inbox:  make(chan deepReviewJob, buffer),
		done:   make(chan struct{}),
	}
	go w.drain()
	return w
}

// Enqueue submits a tamper verdict for note merging. A full buffer drops the
// job; the verdict was already returned to the caller synchronously.
func (w *DeepReviewWorker) Enqueue(caseID id.CaseID, result TamperResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.inbox <- deepReviewJob{caseID: caseID, result: result}:
	default:
		if w.logger != nil {
			w.logger.Warn("deep review buffer full, verdict dropped", "case_id", caseID)
		}
	}
}

// Close drains pending jobs and stops the worker.
func (w *DeepReviewWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.inbox)
	w.mu.Unlock()
	<-w.done
}

func (w *DeepReviewWorker) drain() {
	defer close(w.done)
	for job := range w.inbox {
		review := FormatTamperReview(job.result)
		if _, err := w.merger.MergeNotes(context.Background(), job.caseID, models.Notes{
			TamperReview: models.StringPtr(review),
		}); err != nil && w.logger != nil {
			w.logger.Error("deep review note merge failed", "case_id", job.caseID, "error", err)
		}
	}
}

// TamperIndicated reports whether a review line produced by
// FormatTamperReview records a positive tamper verdict. The enrichment
// pipeline weighs prior deep-review output into the risk score through this.
func TamperIndicated(review string) bool {
	return strings.HasPrefix(review, "Tampering indicators found")
}

// FormatTamperReview renders a verdict as the reviewer-facing note line.
func FormatTamperReview(result TamperResult) string {
	var b strings.Builder
	if result.Tampered {
		fmt.Fprintf(&b, "Tampering indicators found (confidence %.2f).", result.Confidence)
	} else {
		fmt.Fprintf(&b, "No tampering detected (confidence %.2f).", result.Confidence)
	}
	if analysis := strings.TrimSpace(result.Analysis); analysis != "" {
		b.WriteString(" ")
		b.WriteString(analysis)
	}
	return b.String()
}
