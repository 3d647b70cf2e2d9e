package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eduquest/adventure-engine/internal/auth"
	"github.com/eduquest/adventure-engine/internal/engine"
	"github.com/eduquest/adventure-engine/internal/middleware"
	"github.com/eduquest/adventure-engine/internal/services"
	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/game"
)

const (
	testWorldJSON = `{
		"description": "A kingdom where every gate demands arithmetic.",
		"locations": [{"name": "Castle of Sums", "description": "The seat of power."}, {"name": "Division Docks", "description": "Busy harbor."}],
		"npcs": [{"name": "Count Cardinal", "role": "mentor", "description": "Keeper of numbers.", "motivation": "teach"}],
		"history": "Founded on the first theorem.",
		"challenges": [{"name": "The Broken Ledger", "description": "Accounts gone wrong.", "learningConnection": "addition"}],
		"imagePrompt": "a bright castle made of numbers"
	}`

	testRulesJSON = `{
		"coreMechanics": [{"name": "Answer to Act", "description": "Solve to proceed.", "howToUse": "Answer the NPC."}],
		"characterAttributes": [{"name": "Wisdom", "description": "Problem solving.", "range": "1-10"}],
		"challengeRules": "Players answer a question matching the difficulty.",
		"progressionSystem": "Attributes rise with correct answers.",
		"learningMechanics": []
	}`

	testQuestsJSON = `[
		{"title": "The Broken Ledger", "description": "Fix the castle accounts.", "learningGoals": ["addition"], "steps": [{"order": 1, "description": "Find the ledger.", "challenge": "riddle", "hint": "library"}], "npcsInvolved": ["Count Cardinal"], "locationsInvolved": ["Castle of Sums"], "rewards": {"knowledge": "sums", "inGameRewards": []}, "difficulty": "easy"}
	]`

	testOptionsJSON = `[
		{"name": "Scholar", "description": "Reads everything.", "strengths": ["curious"], "challenges": ["shy"], "startingAttributes": {"Wisdom": 8}, "specialAbility": {"name": "Insight", "description": "Sees patterns.", "educationalAspect": "analysis"}, "backgroundOptions": [{"name": "Library kid", "description": "Grew up in the stacks."}]}
	]`

	testSceneJSON = `{
		"id": "scene-1",
		"title": "Arrival at the Castle",
		"description": "The numbered gates tower above.",
		"narration": "You stand before the Castle of Sums.",
		"npcsPresent": [],
		"challenges": [],
		"availableActions": ["Answer the gate", "Look around"]
	}`

	testResultJSON = `{
		"success": true,
		"description": "The gate swings open.",
		"educationalValue": {"topic": "addition", "learningPoints": ["7+5=12"]},
		"feedback": "Great adding!"
	}`
)

type testEnv struct {
	store  *storage.MockStorage
	llm    *services.MockLLM
	engine *engine.Engine
	tokens *auth.TokenService
	logger *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage()
	llm := services.NewMockLLM()
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	return &testEnv{
		store:  store,
		llm:    llm,
		engine: engine.New(store, engine.NewGenerator(llm, logger), llm, logger),
		tokens: tokens,
		logger: logger,
	}
}

// authed wraps a handler in the real auth middleware.
func (env *testEnv) authed(h http.Handler) http.Handler {
	return middleware.Auth(env.tokens, env.store, env.logger)(h)
}

// newUser creates a user row and an access token for it.
func (env *testEnv) newUser(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u := &game.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, env.store.CreateUser(context.Background(), u))
	token, err := env.tokens.Issue(u.ID)
	require.NoError(t, err)
	return u.ID, token
}

// newGame creates a game row owned by the user.
func (env *testEnv) newGame(t *testing.T, userID uuid.UUID) *game.Game {
	t.Helper()
	g := game.NewGame(userID, game.Settings{
		Title:             "The Math Kingdom",
		LearningObjective: "multiplication tables",
		AgeGroup:          "7-9",
		Theme:             "Fantasy Kingdom",
		DifficultyLevel:   "beginner",
	})
	require.NoError(t, env.store.SaveGame(context.Background(), g))
	return g
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
