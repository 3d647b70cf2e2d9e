// Package engine turns generation requests into persisted game records: it
// prompts the model, decodes and validates the output, and coordinates the
// session turn loop.
package engine

import (
	"context"
	"log/slog"

	"github.com/eduquest/adventure-engine/internal/services"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/chat"
	"github.com/eduquest/adventure-engine/pkg/game"
	"github.com/eduquest/adventure-engine/pkg/prompts"
)

// Generator runs one prompt-generate-decode cycle per content kind. Upstream
// failures and malformed model output map to distinct error kinds so the
// boundary can report them separately.
type Generator struct {
	llm    services.LLMService
	logger *slog.Logger
}

func NewGenerator(llm services.LLMService, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

func (g *Generator) generate(ctx context.Context, messages []chat.Message) (string, error) {
	raw, err := g.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "content generation failed", err)
	}
	return raw, nil
}

// World generates a world for the given settings.
func (g *Generator) World(ctx context.Context, s game.Settings) (*game.World, error) {
	raw, err := g.generate(ctx, prompts.World(s))
	if err != nil {
		return nil, err
	}
	w, err := prompts.DecodeWorld(raw)
	if err != nil {
		g.logger.Warn("Generated world did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated world is malformed", err)
	}
	return w, nil
}

// Rules generates the rules for the given settings.
func (g *Generator) Rules(ctx context.Context, s game.Settings) (*game.Rules, error) {
	raw, err := g.generate(ctx, prompts.Rules(s))
	if err != nil {
		return nil, err
	}
	r, err := prompts.DecodeRules(raw)
	if err != nil {
		g.logger.Warn("Generated rules did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated rules are malformed", err)
	}
	return r, nil
}

// CharacterOptions generates archetype templates, normalized against the
// rules' attribute schema so every template is playable as-is.
func (g *Generator) CharacterOptions(ctx context.Context, s game.Settings, world *game.World, rules *game.Rules) ([]game.CharacterTemplate, error) {
	raw, err := g.generate(ctx, prompts.CharacterOptions(s, world, rules))
	if err != nil {
		return nil, err
	}
	templates, err := prompts.DecodeCharacterOptions(raw)
	if err != nil {
		g.logger.Warn("Generated character options did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated character options are malformed", err)
	}
	for i := range templates {
		templates[i].Normalize(rules.CharacterAttributes)
	}
	return templates, nil
}

// Quests generates the quest batch for a game.
func (g *Generator) Quests(ctx context.Context, s game.Settings, world *game.World) ([]game.Quest, error) {
	raw, err := g.generate(ctx, prompts.Quests(s, world))
	if err != nil {
		return nil, err
	}
	quests, err := prompts.DecodeQuests(raw)
	if err != nil {
		g.logger.Warn("Generated quests did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated quests are malformed", err)
	}
	return quests, nil
}

// InitialScene generates the opening scene of an adventure.
func (g *Generator) InitialScene(ctx context.Context, world *game.World, characters []game.Character, quests []game.Quest) (*game.Scene, error) {
	raw, err := g.generate(ctx, prompts.InitialScene(world, characters, quests))
	if err != nil {
		return nil, err
	}
	return g.decodeScene(raw)
}

// NextScene generates the follow-up scene for a player action and its
// evaluation.
func (g *Generator) NextScene(ctx context.Context, world *game.World, previous *game.Scene, action string, result *game.ActionResult) (*game.Scene, error) {
	raw, err := g.generate(ctx, prompts.NextScene(world, previous, action, result))
	if err != nil {
		return nil, err
	}
	return g.decodeScene(raw)
}

func (g *Generator) decodeScene(raw string) (*game.Scene, error) {
	scene, err := prompts.DecodeScene(raw)
	if err != nil {
		g.logger.Warn("Generated scene did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated scene is malformed", err)
	}
	return scene, nil
}

// EvaluateAction asks the model to judge a player action.
func (g *Generator) EvaluateAction(ctx context.Context, character *game.Character, scene *game.Scene, rules *game.Rules, quests []game.Quest, action string) (*game.ActionResult, error) {
	raw, err := g.generate(ctx, prompts.EvaluateAction(character, scene, rules, quests, action))
	if err != nil {
		return nil, err
	}
	result, err := prompts.DecodeActionResult(raw)
	if err != nil {
		g.logger.Warn("Generated action result did not validate", "error", err)
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "generated action result is malformed", err)
	}
	return result, nil
}
