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

// CharactersHandler serves the character resource.
// Routes:
// POST   /v1/characters           - Create a character in an owned game
// GET    /v1/characters           - List the user's characters (?gameId= filters)
// GET    /v1/characters/{id}      - Read one character
// PUT    /v1/characters/{id}      - Update name, background, or attributes
// DELETE /v1/characters/{id}      - Delete a character
type CharactersHandler struct {
	storage storage.Storage
	engine  *engine.Engine
	logger  *slog.Logger
}

func NewCharactersHandler(storage storage.Storage, eng *engine.Engine, logger *slog.Logger) *CharactersHandler {
	return &CharactersHandler{
		storage: storage,
		engine:  eng,
		logger:  logger,
	}
}

type createCharacterRequest struct {
	GameID     uuid.UUID      `json:"gameId"`
	Name       string         `json:"name"`
	Archetype  string         `json:"archetype"`
	Background string         `json:"background,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
}

func (h *CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/characters"), "/")

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

	characterID, err := uuid.Parse(path)
	if err != nil {
		writeValidationError(w, h.logger, "Invalid character ID format")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, userID, characterID)
	case http.MethodPut:
		h.handleUpdate(w, r, userID, characterID)
	case http.MethodDelete:
		h.handleDelete(w, r, userID, characterID)
	default:
		methodNotAllowed(w, h.logger, "GET, PUT, DELETE")
	}
}

func (h *CharactersHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var req createCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}
	if req.GameID == uuid.Nil {
		writeValidationError(w, h.logger, "gameId is required")
		return
	}

	if _, err := loadOwnedGame(r.Context(), h.storage, req.GameID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.engine.CreateCharacter(r.Context(), userID, &game.Character{
		GameID:     req.GameID,
		Name:       strings.TrimSpace(req.Name),
		Archetype:  strings.TrimSpace(req.Archetype),
		Background: req.Background,
		Attributes: req.Attributes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Character created", "character_id", c.ID, "game_id", c.GameID)
	writeJSON(w, h.logger, http.StatusCreated, c)
}

func (h *CharactersHandler) handleList(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ctx := r.Context()

	if gameIDStr := r.URL.Query().Get("gameId"); gameIDStr != "" {
		gameID, err := uuid.Parse(gameIDStr)
		if err != nil {
			writeValidationError(w, h.logger, "Invalid game ID format")
			return
		}
		if _, err := loadOwnedGame(ctx, h.storage, gameID, userID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		chars, err := h.storage.ListGameCharacters(ctx, gameID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, chars)
		return
	}

	chars, err := h.storage.ListUserCharacters(ctx, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, chars)
}

func (h *CharactersHandler) loadOwnedCharacter(r *http.Request, userID, characterID uuid.UUID) (*game.Character, error) {
	c, err := h.storage.GetCharacter(r.Context(), characterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "character not found")
	}
	if c.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "character belongs to another user")
	}
	return c, nil
}

func (h *CharactersHandler) handleGet(w http.ResponseWriter, r *http.Request, userID, characterID uuid.UUID) {
	c, err := h.loadOwnedCharacter(r, userID, characterID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

type updateCharacterRequest struct {
	Name       string         `json:"name,omitempty"`
	Background *string        `json:"background,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
}

func (h *CharactersHandler) handleUpdate(w http.ResponseWriter, r *http.Request, userID, characterID uuid.UUID) {
	c, err := h.loadOwnedCharacter(r, userID, characterID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if req.Background != nil {
		c.Background = *req.Background
	}
	if req.Attributes != nil {
		c.Attributes = req.Attributes
	}

	updated, err := h.engine.UpdateCharacter(r.Context(), c)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *CharactersHandler) handleDelete(w http.ResponseWriter, r *http.Request, userID, characterID uuid.UUID) {
	if _, err := h.loadOwnedCharacter(r, userID, characterID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.storage.DeleteCharacter(r.Context(), characterID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
