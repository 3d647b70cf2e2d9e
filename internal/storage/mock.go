package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/game"
)

// MockStorage is an in-memory implementation of Storage for testing.
type MockStorage struct {
	mu sync.Mutex

	users      map[uuid.UUID]*game.User
	emails     map[string]uuid.UUID
	games      map[uuid.UUID]*game.Game
	worlds     map[uuid.UUID]*game.World
	rules      map[uuid.UUID]*game.Rules
	characters map[uuid.UUID]*game.Character
	quests     map[uuid.UUID]*game.Quest
	sessions   map[uuid.UUID]*game.Session
	revoked    map[string]bool

	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		users:      make(map[uuid.UUID]*game.User),
		emails:     make(map[string]uuid.UUID),
		games:      make(map[uuid.UUID]*game.Game),
		worlds:     make(map[uuid.UUID]*game.World),
		rules:      make(map[uuid.UUID]*game.Rules),
		characters: make(map[uuid.UUID]*game.Character),
		quests:     make(map[uuid.UUID]*game.Quest),
		sessions:   make(map[uuid.UUID]*game.Session),
		revoked:    make(map[string]bool),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures every write to fail with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) CreateUser(ctx context.Context, u *game.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := m.emails[email]; exists {
		return ErrEmailTaken
	}
	cp := *u
	m.users[u.ID] = &cp
	m.emails[email] = u.ID
	return nil
}

func (m *MockStorage) GetUser(ctx context.Context, id uuid.UUID) (*game.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*game.User, error) {
	m.mu.Lock()
	id, ok := m.emails[strings.ToLower(strings.TrimSpace(email))]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.GetUser(ctx, id)
}

func (m *MockStorage) SaveGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *MockStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *MockStorage) ListGames(ctx context.Context, userID uuid.UUID) ([]game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	games := make([]game.Game, 0)
	for _, g := range m.games {
		if g.UserID == userID {
			games = append(games, *g)
		}
	}
	return games, nil
}

func (m *MockStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	delete(m.worlds, id)
	delete(m.rules, id)
	delete(m.sessions, id)
	for cid, c := range m.characters {
		if c.GameID == id {
			delete(m.characters, cid)
		}
	}
	for qid, q := range m.quests {
		if q.GameID == id {
			delete(m.quests, qid)
		}
	}
	return nil
}

func (m *MockStorage) SaveWorld(ctx context.Context, w *game.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *w
	m.worlds[w.GameID] = &cp
	return nil
}

func (m *MockStorage) GetWorld(ctx context.Context, gameID uuid.UUID) (*game.World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.worlds[gameID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *MockStorage) SaveRules(ctx context.Context, rules *game.Rules) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *rules
	m.rules[rules.GameID] = &cp
	return nil
}

func (m *MockStorage) GetRules(ctx context.Context, gameID uuid.UUID) (*game.Rules, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[gameID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockStorage) SaveCharacter(ctx context.Context, c *game.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *c
	m.characters[c.ID] = &cp
	return nil
}

func (m *MockStorage) GetCharacter(ctx context.Context, id uuid.UUID) (*game.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockStorage) ListGameCharacters(ctx context.Context, gameID uuid.UUID) ([]game.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chars := make([]game.Character, 0)
	for _, c := range m.characters {
		if c.GameID == gameID {
			chars = append(chars, *c)
		}
	}
	return chars, nil
}

func (m *MockStorage) ListUserCharacters(ctx context.Context, userID uuid.UUID) ([]game.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chars := make([]game.Character, 0)
	for _, c := range m.characters {
		if c.UserID == userID {
			chars = append(chars, *c)
		}
	}
	return chars, nil
}

func (m *MockStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	return nil
}

func (m *MockStorage) SaveQuest(ctx context.Context, q *game.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *q
	m.quests[q.ID] = &cp
	return nil
}

func (m *MockStorage) GetQuest(ctx context.Context, id uuid.UUID) (*game.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quests[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (m *MockStorage) ListQuests(ctx context.Context, gameID uuid.UUID) ([]game.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quests := make([]game.Quest, 0)
	for _, q := range m.quests {
		if q.GameID == gameID {
			quests = append(quests, *q)
		}
	}
	return quests, nil
}

func (m *MockStorage) GetSession(ctx context.Context, gameID uuid.UUID) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[gameID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockStorage) SaveSessionScene(ctx context.Context, gameID uuid.UUID, scene game.Scene, activeQuests []uuid.UUID) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return nil, m.saveError
	}
	s, ok := m.sessions[gameID]
	if !ok {
		s = game.NewSession(gameID, scene, activeQuests)
		m.sessions[gameID] = s
	} else {
		s.AppendScene(scene)
	}
	cp := *s
	return &cp, nil
}

func (m *MockStorage) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if jti == "" {
		return errors.New("jti cannot be empty")
	}
	if ttl > 0 {
		m.revoked[jti] = true
	}
	return nil
}

func (m *MockStorage) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}
