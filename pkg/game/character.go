package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Character is a player character created from a generated template.
// Attributes are mutated by action-evaluation outcomes.
type Character struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	GameID     uuid.UUID      `json:"gameId"`
	Name       string         `json:"name"`
	Archetype  string         `json:"archetype"`
	Background string         `json:"background"`
	Attributes map[string]int `json:"attributes"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (c *Character) Validate() error {
	if c.GameID == uuid.Nil {
		return fmt.Errorf("gameId is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Archetype == "" {
		return fmt.Errorf("archetype is required")
	}
	return nil
}

// ApplyUpdates merges evaluation-driven attribute updates into the character,
// overwriting named keys. When rules are available, updated values are
// clamped to the declared attribute ranges.
func (c *Character) ApplyUpdates(updates map[string]int, rules *Rules) {
	if len(updates) == 0 {
		return
	}
	if c.Attributes == nil {
		c.Attributes = make(map[string]int, len(updates))
	}
	for name, value := range updates {
		if rules != nil {
			if def, ok := rules.Attribute(name); ok {
				value = def.Clamp(value)
			}
		}
		c.Attributes[name] = value
	}
	c.UpdatedAt = time.Now().UTC()
}

// SpecialAbility is a template ability with an educational angle.
type SpecialAbility struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	EducationalAspect string `json:"educationalAspect"`
}

// BackgroundOption is one selectable backstory for a template.
type BackgroundOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CharacterTemplate is a generated archetype the player picks a character
// from. Four are generated per game.
type CharacterTemplate struct {
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Strengths          []string           `json:"strengths"`
	Challenges         []string           `json:"challenges"`
	StartingAttributes map[string]int     `json:"startingAttributes"`
	SpecialAbility     SpecialAbility     `json:"specialAbility"`
	BackgroundOptions  []BackgroundOption `json:"backgroundOptions"`
	ImagePrompt        string             `json:"imagePrompt,omitempty"`
}

func (t *CharacterTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.Description == "" {
		return fmt.Errorf("template description is required")
	}
	return nil
}

// Normalize makes the template's starting attributes complete against the
// declared attribute schema: every declared attribute gets a value, sourced
// from the template's own stated value (direct key, then lower-cased key),
// falling back to the midpoint of the declared range. Values are clamped to
// the range. Attributes the schema does not declare are dropped.
func (t *CharacterTemplate) Normalize(defs []AttributeDef) {
	normalized := make(map[string]int, len(defs))
	for _, def := range defs {
		value, ok := t.StartingAttributes[def.Name]
		if !ok {
			value, ok = t.StartingAttributes[strings.ToLower(def.Name)]
		}
		if !ok {
			value = def.Midpoint()
		}
		normalized[def.Name] = def.Clamp(value)
	}
	t.StartingAttributes = normalized
}
