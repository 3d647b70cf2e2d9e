// Package handlers implements the HTTP surface. Handlers parse and validate
// requests, enforce ownership, call the engine, and map error kinds to
// statuses.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error's kind to a status and writes the standard error
// body. Server-side kinds are logged with the cause; client errors are not.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: apperr.Message(err)})
}

func writeValidationError(w http.ResponseWriter, logger *slog.Logger, msg string) {
	writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, logger *slog.Logger, supported string) {
	writeJSON(w, logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: " + supported})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// loadOwnedGame loads a game and checks it belongs to the user.
func loadOwnedGame(ctx context.Context, store storage.Storage, gameID, userID uuid.UUID) (*game.Game, error) {
	g, err := store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.New(apperr.KindNotFound, "game not found")
	}
	if g.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "game belongs to another user")
	}
	return g, nil
}
