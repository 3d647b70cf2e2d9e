package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquest/adventure-engine/pkg/game"
)

func TestGenerateHandler_World(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	g := env.newGame(t, userID)

	env.llm.SetResponses(testWorldJSON)
	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-world", token, map[string]any{"gameId": g.ID})
	require.Equal(t, http.StatusOK, w.Code)
	world := decodeBody[game.World](t, w)
	assert.Equal(t, g.ID, world.GameID)
	assert.Len(t, world.Locations, 2)

	// The world was persisted, not just returned.
	stored, err := env.store.GetWorld(context.Background(), g.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestGenerateHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	_, intruderToken := env.newUser(t, "intruder@example.com")
	g := env.newGame(t, userID)

	t.Run("missing gameId", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-world", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not the owner", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-world", intruderToken, map[string]any{"gameId": g.ID})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown game", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-world", token, map[string]any{"gameId": uuid.New()})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-everything", token, map[string]any{"gameId": g.ID})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/v1/ai/generate-world", token, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestGenerateHandler_QuestsRequireWorld(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	g := env.newGame(t, userID)

	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-quests", token, map[string]any{"gameId": g.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateHandler_Adventure(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	g := env.newGame(t, userID)

	env.llm.SetResponses(testWorldJSON, testRulesJSON, testQuestsJSON, testOptionsJSON)
	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-adventure", token, map[string]any{"gameId": g.ID})
	require.Equal(t, http.StatusOK, w.Code)

	adv := decodeBody[struct {
		World            *game.World              `json:"world"`
		Rules            *game.Rules              `json:"rules"`
		Quests           []game.Quest             `json:"quests"`
		CharacterOptions []game.CharacterTemplate `json:"characterOptions"`
	}](t, w)
	require.NotNil(t, adv.World)
	require.NotNil(t, adv.Rules)
	assert.Len(t, adv.Quests, 1)
	require.Len(t, adv.CharacterOptions, 1)
	// Normalized against the declared attribute schema.
	assert.Equal(t, 8, adv.CharacterOptions[0].StartingAttributes["Wisdom"])
}

func TestGenerateHandler_MalformedModelOutput(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	g := env.newGame(t, userID)

	env.llm.SetResponses("I would love to help, but not in JSON")
	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-world", token, map[string]any{"gameId": g.ID})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.NotEmpty(t, resp.Error)
}

func TestGenerateHandler_SceneAndEvaluate(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	userID, token := env.newUser(t, "learner@example.com")
	g := env.newGame(t, userID)
	ctx := context.Background()

	env.llm.SetResponses(testWorldJSON, testRulesJSON, testQuestsJSON, testOptionsJSON)
	adv, err := env.engine.BuildAdventure(ctx, g)
	require.NoError(t, err)
	c, err := env.engine.CreateCharacter(ctx, userID, &game.Character{
		GameID:     g.ID,
		Name:       "Nova",
		Archetype:  adv.CharacterOptions[0].Name,
		Attributes: adv.CharacterOptions[0].StartingAttributes,
	})
	require.NoError(t, err)

	// No action: opening scene.
	env.llm.SetResponses(testSceneJSON)
	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-scene", token, map[string]any{"gameId": g.ID})
	require.Equal(t, http.StatusOK, w.Code)
	session := decodeBody[game.Session](t, w)
	require.NotNil(t, session.CurrentScene)
	assert.Len(t, session.History, 1)

	// Evaluate an action.
	env.llm.SetResponses(testResultJSON)
	w = doJSON(t, h, http.MethodPost, "/v1/ai/evaluate-action", token, map[string]any{
		"gameId":      g.ID,
		"characterId": c.ID,
		"action":      "Answer the gate",
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decodeBody[game.ActionResult](t, w)
	assert.True(t, result.Success)

	// With an action: follow-up scene appended to history.
	env.llm.SetResponses(testSceneJSON)
	w = doJSON(t, h, http.MethodPost, "/v1/ai/generate-scene", token, map[string]any{
		"gameId": g.ID,
		"action": "Answer the gate",
		"result": result,
	})
	require.Equal(t, http.StatusOK, w.Code)
	session = decodeBody[game.Session](t, w)
	assert.Len(t, session.History, 2)

	t.Run("evaluate without characterId", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/evaluate-action", token, map[string]any{
			"gameId": g.ID,
			"action": "wave",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGenerateHandler_Image(t *testing.T) {
	env := newTestEnv(t)
	h := env.authed(NewGenerateHandler(env.store, env.engine, env.logger))
	_, token := env.newUser(t, "learner@example.com")

	w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-image", token, map[string]any{"prompt": "a castle of numbers"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[map[string]string](t, w)
	assert.NotEmpty(t, resp["url"])

	t.Run("missing prompt", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/v1/ai/generate-image", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewHealthHandler(env.store, env.logger)

	w := doJSON(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)

	env.store.SetPingError(assert.AnError)
	w = doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
