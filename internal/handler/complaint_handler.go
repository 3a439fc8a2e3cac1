package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"civiceye/internal/model"
	"civiceye/internal/service"
	"civiceye/internal/util"
)

// ComplaintHandler handles HTTP requests for the complaint lifecycle
type ComplaintHandler struct {
	complaintService *service.ComplaintService
	userService      *service.UserService
	logger           *zap.Logger
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(complaintService *service.ComplaintService, userService *service.UserService, logger *zap.Logger) *ComplaintHandler {
	return &ComplaintHandler{
		complaintService: complaintService,
		userService:      userService,
		logger:           logger,
	}
}

// RegisterRoutes registers all complaint routes
func (h *ComplaintHandler) RegisterRoutes(router chi.Router) {
	router.Route("/complaints", func(r chi.Router) {
		// Tracking is public: complaint IDs are handed to citizens as
		// reference numbers.
		r.Get("/{reportID}", h.Track)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.userService))

			r.Post("/", h.Register)
			r.Get("/", h.ListOwn)
			r.Get("/search", h.Search)

			// Authority operations
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleAuthority, model.RoleAdmin))
				r.Get("/feed/today", h.TodayFeed)
				r.Patch("/{reportID}/status", h.UpdateStatus)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleAdmin))
				r.Post("/{reportID}/fake", h.FlagFake)
			})
		})
	})
}

// Register files a new complaint for the logged-in citizen
// @Summary Register a complaint
// @Tags complaints
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /complaints [post]
func (h *ComplaintHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	session := sessionFrom(ctx)

	var req service.RegisterComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	report, err := h.complaintService.Register(ctx, session.Username, req)
	if err != nil {
		h.respondRegistrationError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(report, "Complaint registered successfully"))
	h.logger.Info("Complaint registered via HTTP",
		util.String("report_id", report.ReportID),
		util.String("username", session.Username),
		util.Duration("duration", time.Since(startTime)),
	)
}

// respondRegistrationError surfaces the policy decision to the client when
// registration is blocked, so the UI can show the required points.
func (h *ComplaintHandler) respondRegistrationError(w http.ResponseWriter, err error) {
	var blocked *service.RegistrationBlockedError
	if errors.As(err, &blocked) {
		respondWithJSON(w, http.StatusForbidden, Response{
			Success: false,
			Error:   blocked.Error(),
			Message: "Complaint registration blocked",
			Data:    blocked.Decision,
		})
		return
	}
	respondWithError(w, getStatusCode(err), err, "Failed to register complaint")
}

// Track returns a single complaint by tracking ID
func (h *ComplaintHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.complaintService.Track(ctx, chi.URLParam(r, "reportID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to track complaint")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(report, "Complaint retrieved successfully"))
}

// ListOwn returns the caller's complaints
func (h *ComplaintHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFrom(ctx)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.complaintService.ListUserReports(ctx, session.Username, limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list complaints")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    reports,
		Meta:    &Meta{Total: len(reports)},
	})
}

// TodayFeed returns today's complaints for authority dashboards
func (h *ComplaintHandler) TodayFeed(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.complaintService.ListRecent(r.Context(), limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list complaints")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    reports,
		Meta:    &Meta{Total: len(reports)},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves a complaint through its lifecycle (authority/admin)
// @Summary Update complaint status
// @Tags complaints
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /complaints/{reportID}/status [patch]
func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	report, err := h.complaintService.UpdateStatus(ctx, sessionFrom(ctx), chi.URLParam(r, "reportID"), req.Status)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update status")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(report, "Status updated successfully"))
}

type flagFakeRequest struct {
	FakeScore float64 `json:"fake_score"`
}

// FlagFake marks a complaint as fake and applies the penalty (authority/admin)
// @Summary Flag a complaint as fake
// @Tags complaints
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /complaints/{reportID}/fake [post]
func (h *ComplaintHandler) FlagFake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req flagFakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	report, err := h.complaintService.FlagFake(ctx, sessionFrom(ctx), chi.URLParam(r, "reportID"), req.FakeScore)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to flag complaint")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(report, "Complaint flagged as fake"))
}

// Search runs a full-text query over indexed complaints
func (h *ComplaintHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.complaintService.Search(r.Context(), query, limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    reports,
		Meta:    &Meta{Total: len(reports)},
	})
}
