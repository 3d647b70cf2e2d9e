// Package game holds the domain model for generated educational adventures:
// the game record itself and the world, rules, characters, quests, scenes
// and session that hang off it.
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Game is one user-owned instance of a generated educational RPG.
// Immutable after creation except for delete.
type Game struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Title             string    `json:"title"`
	LearningObjective string    `json:"learningObjective"`
	AgeGroup          string    `json:"ageGroup"`
	Theme             string    `json:"theme"`
	DifficultyLevel   string    `json:"difficultyLevel"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Settings are the generation parameters of a game, embedded in every prompt.
type Settings struct {
	Title             string `json:"title"`
	LearningObjective string `json:"learningObjective"`
	AgeGroup          string `json:"ageGroup"`
	Theme             string `json:"theme"`
	DifficultyLevel   string `json:"difficultyLevel"`
}

// NewGame creates a game record for the given owner.
func NewGame(userID uuid.UUID, s Settings) *Game {
	return &Game{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             s.Title,
		LearningObjective: s.LearningObjective,
		AgeGroup:          s.AgeGroup,
		Theme:             s.Theme,
		DifficultyLevel:   s.DifficultyLevel,
		CreatedAt:         time.Now().UTC(),
	}
}

// Settings returns the game's generation parameters.
func (g *Game) Settings() Settings {
	return Settings{
		Title:             g.Title,
		LearningObjective: g.LearningObjective,
		AgeGroup:          g.AgeGroup,
		Theme:             g.Theme,
		DifficultyLevel:   g.DifficultyLevel,
	}
}

func (s Settings) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	if s.LearningObjective == "" {
		return fmt.Errorf("learningObjective is required")
	}
	if s.AgeGroup == "" {
		return fmt.Errorf("ageGroup is required")
	}
	if s.Theme == "" {
		return fmt.Errorf("theme is required")
	}
	if s.DifficultyLevel == "" {
		return fmt.Errorf("difficultyLevel is required")
	}
	return nil
}
