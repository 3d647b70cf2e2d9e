package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/internal/services"
	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/game"
	"github.com/eduquest/adventure-engine/pkg/prompts"
	"github.com/eduquest/adventure-engine/pkg/textfilter"
)

// imageTimeout bounds the detached world-image generation.
const imageTimeout = 2 * time.Minute

// Engine coordinates generation, persistence and the session turn loop.
// Images is optional; when nil, image generation is skipped.
type Engine struct {
	store  storage.Storage
	gen    *Generator
	images services.ImageService
	filter *textfilter.Filter
	logger *slog.Logger
}

func New(store storage.Storage, gen *Generator, images services.ImageService, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		gen:    gen,
		images: images,
		filter: textfilter.New(),
		logger: logger,
	}
}

// Adventure is the bundle produced by a full creation pipeline.
type Adventure struct {
	Game             *game.Game               `json:"game"`
	World            *game.World              `json:"world"`
	Rules            *game.Rules              `json:"rules"`
	Quests           []game.Quest             `json:"quests"`
	CharacterOptions []game.CharacterTemplate `json:"characterOptions"`
}

// CreateGame validates the settings and persists a new game record.
func (e *Engine) CreateGame(ctx context.Context, userID uuid.UUID, s game.Settings) (*game.Game, error) {
	if err := s.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	g := game.NewGame(userID, s)
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// GenerateWorld generates and persists the world for a game, replacing any
// previous one. The world image is generated out of band; the world record
// is updated with the URL when it arrives.
func (e *Engine) GenerateWorld(ctx context.Context, g *game.Game) (*game.World, error) {
	w, err := e.gen.World(ctx, g.Settings())
	if err != nil {
		return nil, err
	}
	w.GameID = g.ID
	w.CreatedAt = time.Now().UTC()
	if err := e.store.SaveWorld(ctx, w); err != nil {
		return nil, err
	}
	e.generateWorldImage(g.ID, w.ImagePrompt)
	return w, nil
}

// generateWorldImage fills in the world's image URL without blocking the
// generation response. Failures are logged and dropped; the world stays
// usable without an image.
func (e *Engine) generateWorldImage(gameID uuid.UUID, imagePrompt string) {
	if e.images == nil || imagePrompt == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), imageTimeout)
		defer cancel()

		url, err := e.images.GenerateImage(ctx, prompts.ImagePrompt(imagePrompt))
		if err != nil {
			e.logger.Warn("World image generation failed", "game_id", gameID, "error", err)
			return
		}
		w, err := e.store.GetWorld(ctx, gameID)
		if err != nil || w == nil {
			e.logger.Warn("World image generated but world row is gone", "game_id", gameID, "error", err)
			return
		}
		w.ImageURL = url
		if err := e.store.SaveWorld(ctx, w); err != nil {
			e.logger.Warn("Failed to save world image URL", "game_id", gameID, "error", err)
		}
	}()
}

// GenerateRules generates and persists the rules for a game.
func (e *Engine) GenerateRules(ctx context.Context, g *game.Game) (*game.Rules, error) {
	r, err := e.gen.Rules(ctx, g.Settings())
	if err != nil {
		return nil, err
	}
	r.GameID = g.ID
	r.CreatedAt = time.Now().UTC()
	if err := e.store.SaveRules(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GenerateQuests generates the quest batch for a game and persists each
// quest as an active record.
func (e *Engine) GenerateQuests(ctx context.Context, g *game.Game, world *game.World) ([]game.Quest, error) {
	quests, err := e.gen.Quests(ctx, g.Settings(), world)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range quests {
		quests[i].ID = uuid.New()
		quests[i].GameID = g.ID
		quests[i].CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		quests[i].UpdatedAt = quests[i].CreatedAt
		if err := e.store.SaveQuest(ctx, &quests[i]); err != nil {
			return nil, err
		}
	}
	return quests, nil
}

// GenerateCharacterOptions generates normalized archetype templates for a
// game. Templates are returned to the caller, not persisted; a character
// row is only created when the player picks one.
func (e *Engine) GenerateCharacterOptions(ctx context.Context, g *game.Game, world *game.World, rules *game.Rules) ([]game.CharacterTemplate, error) {
	return e.gen.CharacterOptions(ctx, g.Settings(), world, rules)
}

// CreateCharacter persists a player character. Attributes are completed and
// clamped against the game's attribute schema when rules exist.
func (e *Engine) CreateCharacter(ctx context.Context, userID uuid.UUID, c *game.Character) (*game.Character, error) {
	c.ID = uuid.New()
	c.UserID = userID
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	rules, err := e.store.GetRules(ctx, c.GameID)
	if err != nil {
		return nil, err
	}
	if rules != nil {
		tpl := game.CharacterTemplate{StartingAttributes: c.Attributes}
		tpl.Normalize(rules.CharacterAttributes)
		c.Attributes = tpl.StartingAttributes
	}

	if err := e.store.SaveCharacter(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCharacter saves edits to an existing character, re-normalizing
// attributes against the game's declared schema.
func (e *Engine) UpdateCharacter(ctx context.Context, c *game.Character) (*game.Character, error) {
	c.UpdatedAt = time.Now().UTC()
	if err := c.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	rules, err := e.store.GetRules(ctx, c.GameID)
	if err != nil {
		return nil, err
	}
	if rules != nil {
		tpl := game.CharacterTemplate{StartingAttributes: c.Attributes}
		tpl.Normalize(rules.CharacterAttributes)
		c.Attributes = tpl.StartingAttributes
	}

	if err := e.store.SaveCharacter(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BuildAdventure runs the full creation pipeline in order: world, rules,
// quests, character options. Each stage persists before the next starts, so
// a failure leaves the earlier stages intact and retryable.
func (e *Engine) BuildAdventure(ctx context.Context, g *game.Game) (*Adventure, error) {
	world, err := e.GenerateWorld(ctx, g)
	if err != nil {
		return nil, err
	}
	rules, err := e.GenerateRules(ctx, g)
	if err != nil {
		return nil, err
	}
	quests, err := e.GenerateQuests(ctx, g, world)
	if err != nil {
		return nil, err
	}
	options, err := e.GenerateCharacterOptions(ctx, g, world, rules)
	if err != nil {
		return nil, err
	}
	return &Adventure{
		Game:             g,
		World:            world,
		Rules:            rules,
		Quests:           quests,
		CharacterOptions: options,
	}, nil
}

// GenerateImage generates a standalone image for a prompt, wrapped in the
// child-safety framing.
func (e *Engine) GenerateImage(ctx context.Context, description string) (string, error) {
	if e.images == nil {
		return "", apperr.New(apperr.KindUpstream, "image generation is not configured")
	}
	url, err := e.images.GenerateImage(ctx, prompts.ImagePrompt(description))
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "image generation failed", err)
	}
	return url, nil
}
