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

// GenerateHandler serves the AI generation endpoints. All routes are POST.
// Routes:
// /v1/ai/generate-world      - Generate and persist the world
// /v1/ai/generate-rules      - Generate and persist the rules
// /v1/ai/generate-quests     - Generate and persist the quest batch
// /v1/ai/generate-characters - Generate archetype templates (not persisted)
// /v1/ai/generate-adventure  - Full pipeline: world, rules, quests, templates
// /v1/ai/generate-scene      - Opening scene, or next scene for an action
// /v1/ai/evaluate-action     - Judge an action and apply its updates
// /v1/ai/generate-image      - Standalone image for a prompt
type GenerateHandler struct {
	storage storage.Storage
	engine  *engine.Engine
	logger  *slog.Logger
}

func NewGenerateHandler(storage storage.Storage, eng *engine.Engine, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		storage: storage,
		engine:  eng,
		logger:  logger,
	}
}

type generateRequest struct {
	GameID      uuid.UUID          `json:"gameId"`
	CharacterID uuid.UUID          `json:"characterId,omitempty"`
	Action      string             `json:"action,omitempty"`
	Result      *game.ActionResult `json:"result,omitempty"`
	Prompt      string             `json:"prompt,omitempty"`
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, "POST")
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, h.logger, "Invalid request body")
		return
	}

	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/ai"), "/")

	// Image generation is the only kind that works without a game.
	if kind == "generate-image" {
		h.handleImage(w, r, req)
		return
	}

	if req.GameID == uuid.Nil {
		writeValidationError(w, h.logger, "gameId is required")
		return
	}
	g, err := loadOwnedGame(r.Context(), h.storage, req.GameID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch kind {
	case "generate-world":
		world, err := h.engine.GenerateWorld(r.Context(), g)
		h.respond(w, world, err)
	case "generate-rules":
		rules, err := h.engine.GenerateRules(r.Context(), g)
		h.respond(w, rules, err)
	case "generate-quests":
		h.handleQuests(w, r, g)
	case "generate-characters":
		h.handleCharacterOptions(w, r, g)
	case "generate-adventure":
		adv, err := h.engine.BuildAdventure(r.Context(), g)
		h.respond(w, adv, err)
	case "generate-scene":
		h.handleScene(w, r, g, req)
	case "evaluate-action":
		h.handleEvaluate(w, r, g, req)
	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	}
}

// respond writes v on success and maps err otherwise. Shared by the kinds
// with no extra request fields.
func (h *GenerateHandler) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, v)
}

func (h *GenerateHandler) handleQuests(w http.ResponseWriter, r *http.Request, g *game.Game) {
	world, err := h.requireWorld(r, g.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	quests, err := h.engine.GenerateQuests(r.Context(), g, world)
	h.respond(w, quests, err)
}

func (h *GenerateHandler) handleCharacterOptions(w http.ResponseWriter, r *http.Request, g *game.Game) {
	world, err := h.requireWorld(r, g.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	rules, err := h.storage.GetRules(r.Context(), g.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if rules == nil {
		writeError(w, h.logger, apperr.New(apperr.KindNotFound, "rules not found for game"))
		return
	}
	options, err := h.engine.GenerateCharacterOptions(r.Context(), g, world, rules)
	h.respond(w, options, err)
}

// handleScene creates the opening scene when no action is given, and the
// follow-up scene for an action otherwise. The caller may pass the action's
// evaluation so it is not recomputed.
func (h *GenerateHandler) handleScene(w http.ResponseWriter, r *http.Request, g *game.Game, req generateRequest) {
	if strings.TrimSpace(req.Action) == "" {
		session, err := h.engine.StartSession(r.Context(), g)
		h.respond(w, session, err)
		return
	}
	session, err := h.engine.NextScene(r.Context(), g, req.Action, req.Result)
	h.respond(w, session, err)
}

func (h *GenerateHandler) handleEvaluate(w http.ResponseWriter, r *http.Request, g *game.Game, req generateRequest) {
	if req.CharacterID == uuid.Nil {
		writeValidationError(w, h.logger, "characterId is required")
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeValidationError(w, h.logger, "action is required")
		return
	}
	result, err := h.engine.EvaluateAction(r.Context(), g, req.CharacterID, req.Action)
	h.respond(w, result, err)
}

func (h *GenerateHandler) handleImage(w http.ResponseWriter, r *http.Request, req generateRequest) {
	if strings.TrimSpace(req.Prompt) == "" {
		writeValidationError(w, h.logger, "prompt is required")
		return
	}
	url, err := h.engine.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"url": url})
}

func (h *GenerateHandler) requireWorld(r *http.Request, gameID uuid.UUID) (*game.World, error) {
	world, err := h.storage.GetWorld(r.Context(), gameID)
	if err != nil {
		return nil, err
	}
	if world == nil {
		return nil, apperr.New(apperr.KindNotFound, "world not found for game")
	}
	return world, nil
}
