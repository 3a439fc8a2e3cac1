package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"civiceye/internal/service"
	"civiceye/internal/util"
)

// UserHandler handles HTTP requests for accounts, sessions, and
// reputation views
type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user and auth routes
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.userService))
			r.Post("/logout", h.Logout)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.userService))

		r.Get("/users/me/profile", h.Profile)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/leaderboard", h.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("admin"))
			r.Post("/admin/points", h.AdjustPoints)
		})
	})
}

// Signup handles citizen registration
// @Summary Register a new citizen account
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /auth/signup [post]
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	user, err := h.userService.Signup(ctx, req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create account")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	}, "Account created successfully"))
	h.logger.Info("User signed up via HTTP",
		util.String("username", user.Username),
		util.Duration("duration", time.Since(startTime)),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and issues a session token
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /auth/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	token, user, err := h.userService.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	}, "Login successful"))
}

// Logout terminates the current session
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Logout(r.Context(), extractToken(r)); err != nil {
		respondWithError(w, http.StatusInternalServerError, err, "Logout failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
}

// Profile returns the caller's reputation profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} Response
// @Router /users/me/profile [get]
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	view, err := h.userService.Profile(r.Context(), session.Username)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(view, "Profile retrieved successfully"))
}

// Dashboard returns the logged-in landing page data
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	view, err := h.userService.Dashboard(r.Context(), user)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(view, "Dashboard retrieved successfully"))
}

// Leaderboard returns the community point ranking
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.userService.Leaderboard(r.Context(), limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    entries,
		Meta:    &Meta{Total: len(entries)},
	})
}

type adjustPointsRequest struct {
	Username string `json:"username"`
	Delta    int    `json:"delta"`
	Reason   string `json:"reason"`
}

// AdjustPoints applies a manual point correction (admin only)
// @Summary Adjust a user's points
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /admin/points [post]
func (h *UserHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req adjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	summary, err := h.userService.AdjustPoints(ctx, sessionFrom(ctx), req.Username, req.Delta, req.Reason)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to adjust points")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(summary, "Points adjusted successfully"))
	h.logger.Info("Points adjusted via HTTP",
		util.String("username", req.Username),
		util.Int("delta", req.Delta),
		util.Duration("duration", time.Since(startTime)),
	)
}
