package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carebridge/internal/verification/models"
	"carebridge/internal/verification/service"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/httputil"
	auth "carebridge/pkg/platform/middleware/auth"
	metadata "carebridge/pkg/platform/middleware/metadata"
	request "carebridge/pkg/platform/middleware/request"
	"carebridge/pkg/platform/middleware/requesttime"
	"carebridge/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	List(ctx context.Context, status string) ([]*models.Record, error)
	Get(ctx context.Context, therapistID id.TherapistID) (*models.Record, workflow.Summary, error)
	Register(ctx context.Context, in service.RegisterInput) (*models.Record, error)
	Decide(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, notes string) (*models.Record, error)
}

// Handler handles therapist verification endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator auth.JWTValidator
	latency      func(http.Handler) http.Handler
}

// New creates a new verification Handler. latency may be nil.
func New(svc Service, jwtValidator auth.JWTValidator, logger *slog.Logger, latency func(http.Handler) http.Handler) *Handler {
	if latency == nil {
		latency = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		logger:       logger,
		service:      svc,
		jwtValidator: jwtValidator,
		latency:      latency,
	}
}

// registerRequest is the body of POST /api/therapists.
type registerRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number"`
	LicenseState  string `json:"license_state"`
}

type detailResponse struct {
	Therapist models.TherapistResponse `json:"therapist"`
	Workflow  workflow.Summary         `json:"workflow"`
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/therapists", func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(request.Timeout(30 * time.Second))
		r.Use(request.ContentTypeJSON)
		r.Use(metadata.ClientMetadata)
		r.Use(requesttime.Middleware)
		r.Use(h.latency)

		r.Post("/", h.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
			r.Get("/", h.handleList)
			r.Get("/{id}", h.handleGet)
			r.With(auth.RequireRole(auth.RoleAdmin, h.logger)).Post("/{id}/verification", h.handleDecide)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.List(ctx, r.URL.Query().Get("status"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list therapists",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	out := make([]models.TherapistResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, models.ToResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	therapistID, err := id.ParseTherapistID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, summary, err := h.service.Get(ctx, therapistID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detailResponse{
		Therapist: models.ToResponse(rec),
		Workflow:  summary,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode registration request",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	rec, err := h.service.Register(ctx, service.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
		LicenseState:  req.LicenseState,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(rec))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	therapistID, err := id.ParseTherapistID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req models.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode decision request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	stage, decision, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Decide(ctx, therapistID, stage, decision, req.Notes)
	if err != nil {
		h.logger.InfoContext(ctx, "decision not applied",
			"error", err,
			"therapist_id", therapistID.String(),
			"stage", string(stage),
			"actor_id", requestcontext.ActorID(ctx),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(rec))
}
