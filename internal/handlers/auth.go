package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/internal/auth"
	"github.com/eduquest/adventure-engine/internal/middleware"
	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/game"
)

const minPasswordLength = 8

// AuthHandler serves signup, login, logout and the current-user endpoint.
// Routes:
// POST /v1/auth/signup - Create account and issue a token
// POST /v1/auth/login  - Issue a token for existing credentials
// POST /v1/auth/logout - Revoke the presented token (authenticated)
// GET  /v1/auth/me     - Current user (authenticated)
type AuthHandler struct {
	storage storage.Storage
	tokens  *auth.TokenService
	logger  *slog.Logger
}

func NewAuthHandler(storage storage.Storage, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		storage: storage,
		tokens:  tokens,
		logger:  logger,
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type authResponse struct {
	User  game.PublicUser `json:"user"`
	Token string          `json:"token"`
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/auth"), "/")

	switch {
	case action == "signup" && r.Method == http.MethodPost:
		h.handleSignup(w, r)
	case action == "login" && r.Method == http.MethodPost:
		h.handleLogin(w, r)
	case action == "logout" && r.Method == http.MethodPost:
		h.handleLogout(w, r)
	case action == "me" && r.Method == http.MethodGet:
		h.handleMe(w, r)
	case action == "signup" || action == "login" || action == "logout":
		methodNotAllowed(w, h.logger, "POST")
	case action == "me":
		methodNotAllowed(w, h.logger, "GET")
	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	}
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeValidationError(w, h.logger, "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, h.logger, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user := &game.User{
		ID:           uuid.New(),
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, h.logger, apperr.New(apperr.KindConflict, "Email is already registered"))
			return
		}
		writeError(w, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("User signed up", "user_id", user.ID)
	writeJSON(w, h.logger, http.StatusCreated, authResponse{User: user.Public(), Token: token})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}

	user, err := h.storage.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// Same response for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Invalid email or password"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged in", "user_id", user.ID)
	writeJSON(w, h.logger, http.StatusOK, authResponse{User: user.Public(), Token: token})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.TokenClaims(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	if err := h.storage.RevokeToken(r.Context(), claims.JTI, claims.RemainingTTL()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	user, err := h.storage.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.New(apperr.KindNotFound, "User not found"))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user.Public())
}
