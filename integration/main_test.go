//go:build integration
// +build integration

// End-to-end tests against a running API. Requires Redis and a configured
// LLM provider:
//
//	go test -tags=integration ./integration/
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquest/adventure-engine/pkg/game"
)

var (
	apiBaseURL string
	httpClient = &http.Client{Timeout: 5 * time.Minute}
)

func TestMain(m *testing.M) {
	apiBaseURL = os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}

	fmt.Printf("Running Adventure Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	os.Exit(m.Run())
}

type env struct {
	t     *testing.T
	token string
}

func (e *env) do(method, path string, payload any, wantStatus int, out any) {
	e.t.Helper()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(e.t, err)
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, apiBaseURL+path, reqBody)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := httpClient.Do(req)
	require.NoError(e.t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	require.Equal(e.t, wantStatus, resp.StatusCode, "unexpected status for %s %s: %s", method, path, string(body))

	if out != nil {
		require.NoError(e.t, json.Unmarshal(body, out), "body: %s", string(body))
	}
}

func signup(t *testing.T) *env {
	t.Helper()
	e := &env{t: t}

	var resp struct {
		User  game.PublicUser `json:"user"`
		Token string          `json:"token"`
	}
	e.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email":       fmt.Sprintf("it-%s@example.com", uuid.NewString()[:8]),
		"password":    "password123",
		"displayName": "Integration Tester",
	}, http.StatusCreated, &resp)
	require.NotEmpty(t, resp.Token)

	e.token = resp.Token
	return e
}

func TestHealth(t *testing.T) {
	resp, err := httpClient.Get(apiBaseURL + "/health")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestFullAdventureFlow drives the whole lifecycle: account, game,
// generated adventure, character, opening scene, one evaluated turn.
func TestFullAdventureFlow(t *testing.T) {
	e := signup(t)

	var g game.Game
	e.do(http.MethodPost, "/v1/games", game.Settings{
		Title:             "Integration Kingdom",
		LearningObjective: "basic fractions",
		AgeGroup:          "8-10",
		Theme:             "Fantasy Kingdom",
		DifficultyLevel:   "beginner",
	}, http.StatusCreated, &g)
	require.NotEqual(t, uuid.Nil, g.ID)

	defer e.do(http.MethodDelete, "/v1/games/"+g.ID.String(), nil, http.StatusNoContent, nil)

	var adv struct {
		World            *game.World              `json:"world"`
		Rules            *game.Rules              `json:"rules"`
		Quests           []game.Quest             `json:"quests"`
		CharacterOptions []game.CharacterTemplate `json:"characterOptions"`
	}
	e.do(http.MethodPost, "/v1/ai/generate-adventure", map[string]string{"gameId": g.ID.String()}, http.StatusOK, &adv)
	require.NotNil(t, adv.World)
	require.NotNil(t, adv.Rules)
	require.NotEmpty(t, adv.Quests)
	require.NotEmpty(t, adv.CharacterOptions)

	tmpl := adv.CharacterOptions[0]
	var c game.Character
	e.do(http.MethodPost, "/v1/characters", map[string]any{
		"gameId":     g.ID.String(),
		"name":       "Integration Hero",
		"archetype":  tmpl.Name,
		"attributes": tmpl.StartingAttributes,
	}, http.StatusCreated, &c)

	var session game.Session
	e.do(http.MethodPost, "/v1/ai/generate-scene", map[string]string{"gameId": g.ID.String()}, http.StatusOK, &session)
	require.NotNil(t, session.CurrentScene)
	require.Len(t, session.History, 1)
	assert.NotEmpty(t, session.CurrentScene.Narration)

	action := "Look around and greet whoever is here"
	if len(session.CurrentScene.AvailableActions) > 0 {
		action = session.CurrentScene.AvailableActions[0]
	}

	var turn struct {
		Result  *game.ActionResult `json:"result"`
		Scene   *game.Scene        `json:"scene"`
		Session *game.Session      `json:"session"`
	}
	e.do(http.MethodPost, "/v1/games/"+g.ID.String()+"/action", map[string]string{
		"characterId": c.ID.String(),
		"action":      action,
	}, http.StatusOK, &turn)
	require.NotNil(t, turn.Result)
	require.NotNil(t, turn.Scene)
	require.NotNil(t, turn.Session)
	assert.Len(t, turn.Session.History, 2)

	// The aggregate reflects everything built so far.
	var agg struct {
		Game       *game.Game       `json:"game"`
		World      *game.World      `json:"world"`
		Characters []game.Character `json:"characters"`
		Session    *game.Session    `json:"session"`
	}
	e.do(http.MethodGet, "/v1/games/"+g.ID.String(), nil, http.StatusOK, &agg)
	require.NotNil(t, agg.World)
	require.Len(t, agg.Characters, 1)
	require.NotNil(t, agg.Session)
	assert.Len(t, agg.Session.History, 2)
}

func TestOwnershipIsolation(t *testing.T) {
	owner := signup(t)
	intruder := signup(t)

	var g game.Game
	owner.do(http.MethodPost, "/v1/games", game.Settings{
		Title:             "Private Game",
		LearningObjective: "spelling",
		AgeGroup:          "6-8",
		Theme:             "Space Station",
		DifficultyLevel:   "beginner",
	}, http.StatusCreated, &g)
	defer owner.do(http.MethodDelete, "/v1/games/"+g.ID.String(), nil, http.StatusNoContent, nil)

	intruder.do(http.MethodGet, "/v1/games/"+g.ID.String(), nil, http.StatusForbidden, nil)
	intruder.do(http.MethodDelete, "/v1/games/"+g.ID.String(), nil, http.StatusForbidden, nil)
}
