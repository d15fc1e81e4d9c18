package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appMiddleware "taskmaster/internal/middleware"
	"taskmaster/internal/web"
)

// Handler — HTTP слой аутентификации.
type Handler struct {
	svc *Service
	rs  *web.Responder
}

// NewHandler создаёт Handler.
func NewHandler(svc *Service, rs *web.Responder) *Handler {
	return &Handler{svc: svc, rs: rs}
}

// Routes собирает роутер /api/auth. requireAuth навешивается только на /me.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.With(requireAuth).Get("/me", h.me)
	return r
}

// register обрабатывает POST /api/auth/register
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		h.rs.Fail(w, r, err, "Failed to register user")
		return
	}

	sess, err := h.svc.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			web.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.rs.Fail(w, r, err, "Failed to register user")
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

// login обрабатывает POST /api/auth/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		h.rs.Fail(w, r, err, "Failed to login")
		return
	}

	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			web.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.rs.Fail(w, r, err, "Failed to login")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

// me обрабатывает GET /api/auth/me
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			web.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.rs.Fail(w, r, err, "Failed to fetch user")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"user": user})
}
