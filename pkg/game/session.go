package game

import (
	"time"

	"github.com/google/uuid"
)

// Session is the durable record of a game's scene history. At most one per
// game, created lazily when the first scene is generated. History is
// append-only and CurrentScene always equals the last history element.
type Session struct {
	GameID       uuid.UUID   `json:"gameId"`
	CurrentScene *Scene      `json:"currentScene"`
	History      []Scene     `json:"history"`
	ActiveQuests []uuid.UUID `json:"activeQuests"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// NewSession creates a session seeded with the opening scene.
func NewSession(gameID uuid.UUID, first Scene, activeQuests []uuid.UUID) *Session {
	now := time.Now().UTC()
	s := &Session{
		GameID:       gameID,
		History:      []Scene{first},
		ActiveQuests: activeQuests,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.CurrentScene = &s.History[0]
	return s
}

// AppendScene appends a scene to history and makes it current. This is the
// only way a session gains scenes, which keeps the current-equals-last
// invariant in one place.
func (s *Session) AppendScene(sc Scene) {
	s.History = append(s.History, sc)
	s.CurrentScene = &s.History[len(s.History)-1]
	s.UpdatedAt = time.Now().UTC()
}
