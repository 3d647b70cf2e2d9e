package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Location is a named place in the generated world.
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WorldNPC is a named inhabitant of the generated world.
type WorldNPC struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Motivation  string `json:"motivation"`
}

// WorldChallenge is a conflict in the world tied to the learning objective.
type WorldChallenge struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	LearningConnection string `json:"learningConnection"`
}

// World is the generated setting of a game. One per game, written once at
// generation time and never mutated afterwards.
type World struct {
	GameID      uuid.UUID        `json:"gameId"`
	Description string           `json:"description"`
	Locations   []Location       `json:"locations"`
	NPCs        []WorldNPC       `json:"npcs"`
	History     string           `json:"history"`
	Challenges  []WorldChallenge `json:"challenges"`
	ImagePrompt string           `json:"imagePrompt,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Validate checks the shape a generated world must have. Anything less is
// treated as a malformed generation, not patched up.
func (w *World) Validate() error {
	if w.Description == "" {
		return fmt.Errorf("world description is required")
	}
	if len(w.Locations) == 0 {
		return fmt.Errorf("world must have at least one location")
	}
	if len(w.NPCs) == 0 {
		return fmt.Errorf("world must have at least one NPC")
	}
	return nil
}

// LocationNames returns the location names only. Prompts reference locations
// by name to bound prompt size.
func (w *World) LocationNames() []string {
	names := make([]string, 0, len(w.Locations))
	for _, l := range w.Locations {
		names = append(names, l.Name)
	}
	return names
}

// NPCNames returns the NPC names only.
func (w *World) NPCNames() []string {
	names := make([]string, 0, len(w.NPCs))
	for _, n := range w.NPCs {
		names = append(names, n.Name)
	}
	return names
}
