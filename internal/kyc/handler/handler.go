package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kyra/internal/kyc/models"
	"kyra/internal/kyc/service"
	"kyra/internal/kyc/store"
	id "kyra/pkg/domain"
	dErrors "kyra/pkg/domain-errors"
	"kyra/pkg/platform/httputil"
	"kyra/pkg/requestcontext"
)

// Service defines the case operations the handler exposes.
type Service interface {
	InitiateCase(ctx context.Context, userID id.UserID, name, email, mobile string) (*service.CaseDetail, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*service.CaseDetail, error)
	ApplyPersonalInfo(ctx context.Context, caseID id.CaseID, info models.PersonalInfo) (*models.Submission, error)
	ApplyAddresses(ctx context.Context, caseID id.CaseID, addresses models.AddressPair) (*models.Submission, error)
	ApplyDocuments(ctx context.Context, caseID id.CaseID, docs models.DocumentPair) (*models.Submission, error)
	ApplyLiveness(ctx context.Context, caseID id.CaseID, liveness models.LivenessInfo) (*models.Submission, error)
	Submit(ctx context.Context, caseID id.CaseID) (*models.StatusRecord, error)
	Approve(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error)
	Reject(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error)
	Reinitiate(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error)
	ListCases(ctx context.Context, filter store.ListFilter) (*service.Dashboard, error)
}

// Handler wires the case lifecycle endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the applicant-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc/cases", func(r chi.Router) {
		r.Post("/", h.HandleInitiate)
		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.HandleGetCase)
			r.Post("/personal", h.HandlePersonal)
			r.Post("/address", h.HandleAddress)
			r.Post("/documents", h.HandleDocuments)
			r.Post("/liveness", h.HandleLiveness)
			r.Post("/submit", h.HandleSubmit)
		})
	})
}

// RegisterAdmin mounts the reviewer endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/admin/cases", func(r chi.Router) {
		r.Get("/", h.HandleDashboard)
		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.HandleGetCase)
			r.Post("/approve", h.HandleApprove)
			r.Post("/reject", h.HandleReject)
			r.Post("/reinitiate", h.HandleReinitiate)
		})
	})
}

func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "authenticated user required"))
		return
	}

	req, ok := httputil.Decode[InitiateRequest](w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.service.InitiateCase(ctx, userID, req.Name, req.Email, req.Mobile)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetCase(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) HandlePersonal(w http.ResponseWriter, r *http.Request) {
	applyIntake(h, w, r, h.service.ApplyPersonalInfo)
}

func (h *Handler) HandleAddress(w http.ResponseWriter, r *http.Request) {
	applyIntake(h, w, r, h.service.ApplyAddresses)
}

func (h *Handler) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	applyIntake(h, w, r, h.service.ApplyDocuments)
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	applyIntake(h, w, r, h.service.ApplyLiveness)
}

// applyIntake is the shared decode-merge-respond shape of the four intake
// endpoints.
func applyIntake[T any](h *Handler, w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, caseID id.CaseID, payload T) (*models.Submission, error),
) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	payload, ok := httputil.Decode[T](w, r, h.logger)
	if !ok {
		return
	}

	sub, err := apply(r.Context(), caseID, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, caseID)
	if err != nil {
		h.logger.WarnContext(ctx, "submit rejected",
			"case_id", caseID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, statusResponse(record))
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) HandleReinitiate(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reinitiate)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, caseID id.CaseID, adminID id.AdminID, reason string) (*models.StatusRecord, error),
) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	adminID := requestcontext.AdminID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "authenticated reviewer required"))
		return
	}

	req, ok := httputil.Decode[DecisionRequest](w, r, h.logger)
	if !ok {
		return
	}

	record, err := action(ctx, caseID, adminID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse(record))
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := listFilterFromQuery(
		query.Get("status"),
		query.Get("search"),
		query.Get("page"),
		query.Get("size"),
	)

	dashboard, err := h.service.ListCases(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, false
	}
	return caseID, true
}
