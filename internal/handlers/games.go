package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/internal/engine"
	"github.com/eduquest/adventure-engine/internal/middleware"
	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/game"
)

// GamesHandler serves the game resource.
// Routes:
// POST   /v1/games             - Create a game record
// GET    /v1/games             - List the user's games
// GET    /v1/games/{id}        - Full aggregate for one game
// DELETE /v1/games/{id}        - Delete a game and everything under it
// POST   /v1/games/{id}/action - Play one turn
type GamesHandler struct {
	storage storage.Storage
	engine  *engine.Engine
	logger  *slog.Logger
}

func NewGamesHandler(storage storage.Storage, eng *engine.Engine, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		storage: storage,
		engine:  eng,
		logger:  logger,
	}
}

// GameAggregate is the full state of one game in a single response.
type GameAggregate struct {
	Game       *game.Game       `json:"game"`
	World      *game.World      `json:"world,omitempty"`
	Rules      *game.Rules      `json:"rules,omitempty"`
	Quests     []game.Quest     `json:"quests"`
	Characters []game.Character `json:"characters"`
	Session    *game.Session    `json:"session,omitempty"`
}

type actionRequest struct {
	CharacterID uuid.UUID `json:"characterId"`
	Action      string    `json:"action"`
}

func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r, userID)
		case http.MethodGet:
			h.handleList(w, r, userID)
		default:
			methodNotAllowed(w, h.logger, "POST, GET")
		}
		return
	}

	idStr, rest, _ := strings.Cut(path, "/")
	gameID, err := uuid.Parse(idStr)
	if err != nil {
		writeValidationError(w, h.logger, "Invalid game ID format")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, userID, gameID)
	case rest == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, userID, gameID)
	case rest == "":
		methodNotAllowed(w, h.logger, "GET, DELETE")
	case rest == "action" && r.Method == http.MethodPost:
		h.handleAction(w, r, userID, gameID)
	case rest == "action":
		methodNotAllowed(w, h.logger, "POST")
	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	}
}

func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var settings game.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}

	g, err := h.engine.CreateGame(r.Context(), userID, settings)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Game created", "game_id", g.ID, "user_id", userID)
	writeJSON(w, h.logger, http.StatusCreated, g)
}

func (h *GamesHandler) handleList(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	games, err := h.storage.ListGames(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, games)
}

func (h *GamesHandler) handleGet(w http.ResponseWriter, r *http.Request, userID, gameID uuid.UUID) {
	ctx := r.Context()
	g, err := loadOwnedGame(ctx, h.storage, gameID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	agg := GameAggregate{Game: g}
	if agg.World, err = h.storage.GetWorld(ctx, gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if agg.Rules, err = h.storage.GetRules(ctx, gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if agg.Quests, err = h.storage.ListQuests(ctx, gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if agg.Characters, err = h.storage.ListGameCharacters(ctx, gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if agg.Session, err = h.storage.GetSession(ctx, gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, agg)
}

func (h *GamesHandler) handleDelete(w http.ResponseWriter, r *http.Request, userID, gameID uuid.UUID) {
	if _, err := loadOwnedGame(r.Context(), h.storage, gameID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.storage.DeleteGame(r.Context(), gameID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Game deleted", "game_id", gameID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GamesHandler) handleAction(w http.ResponseWriter, r *http.Request, userID, gameID uuid.UUID) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}
	if req.CharacterID == uuid.Nil {
		writeValidationError(w, h.logger, "characterId is required")
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeValidationError(w, h.logger, "action is required")
		return
	}

	g, err := loadOwnedGame(r.Context(), h.storage, gameID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	turn, err := h.engine.SubmitAction(r.Context(), g, req.CharacterID, req.Action)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, turn)
}
