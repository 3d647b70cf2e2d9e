package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient is a thin authenticated client for the Adventure Engine API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type authResponse struct {
	User  game.PublicUser `json:"user"`
	Token string          `json:"token"`
}

// GameAggregate mirrors the GET /v1/games/{id} response.
type GameAggregate struct {
	Game       *game.Game       `json:"game"`
	World      *game.World      `json:"world,omitempty"`
	Rules      *game.Rules      `json:"rules,omitempty"`
	Quests     []game.Quest     `json:"quests"`
	Characters []game.Character `json:"characters"`
	Session    *game.Session    `json:"session,omitempty"`
}

// Adventure mirrors the POST /v1/ai/generate-adventure response.
type Adventure struct {
	Game             *game.Game               `json:"game"`
	World            *game.World              `json:"world"`
	Rules            *game.Rules              `json:"rules"`
	Quests           []game.Quest             `json:"quests"`
	CharacterOptions []game.CharacterTemplate `json:"characterOptions"`
}

// TurnResult mirrors the POST /v1/games/{id}/action response.
type TurnResult struct {
	Result  *game.ActionResult `json:"result"`
	Scene   *game.Scene        `json:"scene"`
	Session *game.Session      `json:"session"`
}

func newAPIClient(baseURL string, httpClient *http.Client) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    httpClient,
	}
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a JSON request, decodes errors from the API's error envelope,
// and unmarshals the response into out when out is non-nil.
func (c *apiClient) do(method, path string, payload any, wantStatus int, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) Login(email, password string) (*authResponse, error) {
	var resp authResponse
	err := c.do(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *apiClient) Signup(email, password, displayName string) (*authResponse, error) {
	var resp authResponse
	err := c.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}, http.StatusCreated, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *apiClient) ListGames() ([]game.Game, error) {
	var games []game.Game
	if err := c.do(http.MethodGet, "/v1/games", nil, http.StatusOK, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *apiClient) CreateGame(settings game.Settings) (*game.Game, error) {
	var g game.Game
	if err := c.do(http.MethodPost, "/v1/games", settings, http.StatusCreated, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *apiClient) GetGame(gameID uuid.UUID) (*GameAggregate, error) {
	var agg GameAggregate
	if err := c.do(http.MethodGet, "/v1/games/"+gameID.String(), nil, http.StatusOK, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (c *apiClient) BuildAdventure(gameID uuid.UUID) (*Adventure, error) {
	var adv Adventure
	err := c.do(http.MethodPost, "/v1/ai/generate-adventure", map[string]string{
		"gameId": gameID.String(),
	}, http.StatusOK, &adv)
	if err != nil {
		return nil, err
	}
	return &adv, nil
}

func (c *apiClient) GenerateCharacterOptions(gameID uuid.UUID) ([]game.CharacterTemplate, error) {
	var options []game.CharacterTemplate
	err := c.do(http.MethodPost, "/v1/ai/generate-characters", map[string]string{
		"gameId": gameID.String(),
	}, http.StatusOK, &options)
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (c *apiClient) ListCharacters(gameID uuid.UUID) ([]game.Character, error) {
	var chars []game.Character
	if err := c.do(http.MethodGet, "/v1/characters?gameId="+gameID.String(), nil, http.StatusOK, &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

func (c *apiClient) CreateCharacter(gameID uuid.UUID, name, archetype, background string, attrs map[string]int) (*game.Character, error) {
	var created game.Character
	err := c.do(http.MethodPost, "/v1/characters", map[string]any{
		"gameId":     gameID.String(),
		"name":       name,
		"archetype":  archetype,
		"background": background,
		"attributes": attrs,
	}, http.StatusCreated, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *apiClient) StartScene(gameID uuid.UUID) (*game.Session, error) {
	var session game.Session
	err := c.do(http.MethodPost, "/v1/ai/generate-scene", map[string]string{
		"gameId": gameID.String(),
	}, http.StatusOK, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *apiClient) SubmitAction(gameID, characterID uuid.UUID, action string) (*TurnResult, error) {
	var turn TurnResult
	err := c.do(http.MethodPost, "/v1/games/"+gameID.String()+"/action", map[string]string{
		"characterId": characterID.String(),
		"action":      action,
	}, http.StatusOK, &turn)
	if err != nil {
		return nil, err
	}
	return &turn, nil
}
