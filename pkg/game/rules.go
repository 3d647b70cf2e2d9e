package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAttributeMin and DefaultAttributeMax apply when an attribute
	// range string cannot be parsed.
	DefaultAttributeMin = 1
	DefaultAttributeMax = 10
)

// Mechanic is a core game mechanic generated for a game.
type Mechanic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HowToUse    string `json:"howToUse"`
}

// AttributeDef declares a character attribute and its numeric range.
// Range is a "min-max" string, e.g. "1-10", as produced by generation.
type AttributeDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Range       string `json:"range"`
}

// LearningMechanic is a mechanic that reinforces the learning objective.
type LearningMechanic struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	EducationalBenefit string `json:"educationalBenefit"`
}

// Rules are the generated mechanics and attribute schema of a game.
// One per game, immutable after creation.
type Rules struct {
	GameID              uuid.UUID          `json:"gameId"`
	CoreMechanics       []Mechanic         `json:"coreMechanics"`
	CharacterAttributes []AttributeDef     `json:"characterAttributes"`
	ChallengeRules      string             `json:"challengeRules"`
	ProgressionSystem   string             `json:"progressionSystem"`
	LearningMechanics   []LearningMechanic `json:"learningMechanics"`
	CreatedAt           time.Time          `json:"createdAt"`
}

func (r *Rules) Validate() error {
	if len(r.CharacterAttributes) == 0 {
		return fmt.Errorf("rules must declare at least one character attribute")
	}
	if r.ChallengeRules == "" {
		return fmt.Errorf("rules must include challenge resolution rules")
	}
	return nil
}

// Bounds parses the attribute's "min-max" range. Malformed ranges fall back
// to the 1-10 default rather than failing the whole generation.
func (a AttributeDef) Bounds() (min, max int) {
	min, max = DefaultAttributeMin, DefaultAttributeMax
	parts := strings.SplitN(strings.TrimSpace(a.Range), "-", 2)
	if len(parts) != 2 {
		return min, max
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || lo > hi {
		return min, max
	}
	return lo, hi
}

// Midpoint is the default starting value for the attribute.
func (a AttributeDef) Midpoint() int {
	min, max := a.Bounds()
	return (min + max) / 2
}

// Clamp forces v into the attribute's declared range.
func (a AttributeDef) Clamp(v int) int {
	min, max := a.Bounds()
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Attribute returns the definition with the given name, matched
// case-insensitively, or false when the rules do not declare it.
func (r *Rules) Attribute(name string) (AttributeDef, bool) {
	for _, a := range r.CharacterAttributes {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return AttributeDef{}, false
}

// AttributeNames returns the declared attribute names in order.
func (r *Rules) AttributeNames() []string {
	names := make([]string, 0, len(r.CharacterAttributes))
	for _, a := range r.CharacterAttributes {
		names = append(names, a.Name)
	}
	return names
}
