package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/dr-oncall-be/internal/auth"
	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// AuthHandler handles the registration, login and dashboard pages.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions auth.Store
	views    ViewRenderer
	metrics  *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler. m may be nil.
func NewAuthHandler(users services.UserServiceProvider, sessions auth.Store, views ViewRenderer, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, views: views, metrics: m}
}

// authReply is the JSON answer given to clients that do not follow redirects.
type authReply struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, ViewRegister, ViewData{Flashes: popFlashes(w, r)})
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	form := map[string]string{"username": username, "email": email}

	_, err := h.users.Register(r.Context(), username, email, r.PostFormValue("password"))
	switch {
	case err == nil:
		h.metrics.Auth(metrics.RegisterSuccess)
		log.Info().Str("username", username).Msg("User registered")
		h.succeed(w, r, loginPath, FlashSuccess, "Registration successful! Please log in.")
	case services.IsValidation(err):
		h.fail(w, r, http.StatusBadRequest, ViewRegister, form, "Username, email and password are required.")
	case errors.Is(err, services.ErrDuplicateIdentity):
		h.metrics.Auth(metrics.RegisterDuplicate)
		h.fail(w, r, http.StatusConflict, ViewRegister, form, "Username or email already exists.")
	default:
		log.Error().Err(err).Str("username", username).Msg("Failed to register user")
		h.fail(w, r, http.StatusInternalServerError, ViewRegister, form, "Registration failed. Please try again.")
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, ViewLogin, ViewData{Flashes: popFlashes(w, r)})
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	form := map[string]string{"username": username}

	user, err := h.users.Authenticate(r.Context(), username, r.PostFormValue("password"))
	switch {
	case err == nil:
	case services.IsValidation(err):
		h.fail(w, r, http.StatusBadRequest, ViewLogin, form, "Username and password are required.")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		h.metrics.Auth(metrics.LoginFailure)
		log.Warn().Str("username", username).Msg("Failed authentication attempt")
		h.fail(w, r, http.StatusUnauthorized, ViewLogin, form, "Invalid username or password.")
		return
	default:
		log.Error().Err(err).Str("username", username).Msg("Failed to authenticate user")
		h.fail(w, r, http.StatusInternalServerError, ViewLogin, form, "Login failed. Please try again.")
		return
	}

	if _, err := h.sessions.Create(w, r, user); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create session")
		h.fail(w, r, http.StatusInternalServerError, ViewLogin, form, "Login failed. Please try again.")
		return
	}

	h.metrics.Auth(metrics.LoginSuccess)
	h.succeed(w, r, dashboardPath, FlashSuccess, "Login successful!")
}

// Logout clears the session. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		log.Error().Err(err).Msg("Failed to destroy session")
	}
	h.metrics.Auth(metrics.Logout)
	h.succeed(w, r, loginPath, FlashInfo, "You have been logged out.")
}

// Dashboard renders the protected landing page. It must sit behind
// auth.RequireSession.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		h.Unauthenticated(w, r)
		return
	}
	h.views.Render(w, http.StatusOK, ViewDashboard, ViewData{
		Username: sess.Username,
		Flashes:  popFlashes(w, r),
	})
}

// Unauthenticated sends clients without a session back to the login page.
func (h *AuthHandler) Unauthenticated(w http.ResponseWriter, r *http.Request) {
	const msg = "Please log in first."
	if wantsJSON(r) {
		writeJSON(w, http.StatusUnauthorized, authReply{Status: FlashWarning, Message: msg, Redirect: loginPath})
		return
	}
	setFlash(w, FlashWarning, msg)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *AuthHandler) succeed(w http.ResponseWriter, r *http.Request, target, category, msg string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, authReply{Status: category, Message: msg, Redirect: target})
		return
	}
	setFlash(w, category, msg)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail re-renders view with a danger flash.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, status int, view string, form map[string]string, msg string) {
	if wantsJSON(r) {
		writeJSON(w, status, authReply{Status: FlashDanger, Message: msg})
		return
	}
	flashes := append(popFlashes(w, r), Flash{Category: FlashDanger, Message: msg})
	h.views.Render(w, status, view, ViewData{Flashes: flashes, Form: form})
}
