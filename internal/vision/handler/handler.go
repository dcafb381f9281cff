package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kyra/internal/vision"
	id "kyra/pkg/domain"
	"kyra/pkg/platform/httputil"
)

// DeepReviewer accepts tamper verdicts for asynchronous note merging.
type DeepReviewer interface {
	Enqueue(caseID id.CaseID, result vision.TamperResult)
}

// Handler exposes the synchronous image-check endpoints. Tamper verdicts are
// additionally queued for deep review so the reviewer notes pick them up.
type Handler struct {
	tamper   vision.TamperClassifier
	liveness vision.LivenessClassifier
	reviewer DeepReviewer
	logger   *slog.Logger
}

func New(tamper vision.TamperClassifier, liveness vision.LivenessClassifier, reviewer DeepReviewer, logger *slog.Logger) *Handler {
	return &Handler{tamper: tamper, liveness: liveness, reviewer: reviewer, logger: logger}
}

// Register mounts the vision endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vision/tamper-check", h.HandleTamperCheck)
	r.Post("/vision/liveness-check", h.HandleLivenessCheck)
}

type checkRequest struct {
	CaseID string `json:"caseId"`
	Image  string `json:"image"`
}

func (h *Handler) HandleTamperCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[checkRequest](w, r, h.logger)
	if !ok {
		return
	}
	caseID, err := id.ParseCaseID(req.CaseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.tamper.ClassifyTamper(ctx, req.Image)
	if err != nil {
		h.logger.ErrorContext(ctx, "tamper check failed", "case_id", caseID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	if h.reviewer != nil {
		h.reviewer.Enqueue(caseID, *result)
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[checkRequest](w, r, h.logger)
	if !ok {
		return
	}
	if _, err := id.ParseCaseID(req.CaseID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.liveness.ClassifyLiveness(ctx, req.Image)
	if err != nil {
		h.logger.ErrorContext(ctx, "liveness check failed", "case_id", req.CaseID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
