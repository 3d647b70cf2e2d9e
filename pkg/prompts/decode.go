package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eduquest/adventure-engine/pkg/game"
)

// extractJSON pulls the JSON document out of a model response. Models
// sometimes wrap output in markdown fences or lead with prose despite the
// system instruction.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON document in response")
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end < start {
		return "", fmt.Errorf("unterminated JSON document in response")
	}
	return s[start : end+1], nil
}

// decodeStrict unmarshals the model output into v, rejecting unparseable
// responses.
func decodeStrict(raw string, v any) error {
	doc, err := extractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("decoding generated JSON: %w", err)
	}
	return nil
}

// DecodeWorld parses and validates a generated world.
func DecodeWorld(raw string) (*game.World, error) {
	var w game.World
	if err := decodeStrict(raw, &w); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// DecodeRules parses and validates generated rules.
func DecodeRules(raw string) (*game.Rules, error) {
	var r game.Rules
	if err := decodeStrict(raw, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeCharacterOptions parses and validates generated archetype templates.
func DecodeCharacterOptions(raw string) ([]game.CharacterTemplate, error) {
	var templates []game.CharacterTemplate
	if err := decodeStrict(raw, &templates); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no character templates in response")
	}
	for i := range templates {
		if err := templates[i].Validate(); err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
	}
	return templates, nil
}

// DecodeQuests parses and validates a generated quest batch.
func DecodeQuests(raw string) ([]game.Quest, error) {
	// Generated quests may carry a throwaway string id ("quest1"); real ids
	// are assigned at persist time.
	type generatedQuest struct {
		ID                string            `json:"id"`
		Title             string            `json:"title"`
		Description       string            `json:"description"`
		LearningGoals     []string          `json:"learningGoals"`
		Steps             []game.QuestStep  `json:"steps"`
		NPCsInvolved      []string          `json:"npcsInvolved"`
		LocationsInvolved []string          `json:"locationsInvolved"`
		Rewards           game.QuestRewards `json:"rewards"`
		Difficulty        string            `json:"difficulty"`
	}

	var raws []generatedQuest
	if err := decodeStrict(raw, &raws); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("no quests in response")
	}

	quests := make([]game.Quest, 0, len(raws))
	for i, g := range raws {
		q := game.Quest{
			Title:             g.Title,
			Description:       g.Description,
			LearningGoals:     g.LearningGoals,
			Steps:             g.Steps,
			NPCsInvolved:      g.NPCsInvolved,
			LocationsInvolved: g.LocationsInvolved,
			Rewards:           g.Rewards,
			Difficulty:        g.Difficulty,
			Status:            game.QuestStatusActive,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("quest %d: %w", i, err)
		}
		quests = append(quests, q)
	}
	return quests, nil
}

// DecodeScene parses and validates a generated scene.
func DecodeScene(raw string) (*game.Scene, error) {
	var s game.Scene
	if err := decodeStrict(raw, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeActionResult parses and validates a generated action evaluation.
func DecodeActionResult(raw string) (*game.ActionResult, error) {
	var r game.ActionResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
