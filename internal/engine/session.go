package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/game"
)

// TurnResult is what one full player turn produces: the evaluation of the
// action and the scene that follows it.
type TurnResult struct {
	Result  *game.ActionResult `json:"result"`
	Scene   *game.Scene        `json:"scene"`
	Session *game.Session      `json:"session"`
}

// StartSession generates the opening scene for a game and creates its
// session. Requires the adventure pipeline to have run: world and at least
// one character must exist.
func (e *Engine) StartSession(ctx context.Context, g *game.Game) (*game.Session, error) {
	world, err := e.requireWorld(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	characters, err := e.store.ListGameCharacters(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if len(characters) == 0 {
		return nil, apperr.New(apperr.KindValidation, "game has no characters yet")
	}
	quests, err := e.store.ListQuests(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	scene, err := e.gen.InitialScene(ctx, world, characters, quests)
	if err != nil {
		return nil, err
	}
	e.stampScene(scene)

	active := make([]uuid.UUID, 0, len(quests))
	for _, q := range quests {
		if q.Status == game.QuestStatusActive {
			active = append(active, q.ID)
		}
	}
	return e.store.SaveSessionScene(ctx, g.ID, *scene, active)
}

// EvaluateAction judges a player action against the current scene and
// applies its character and quest updates. Update failures degrade: they are
// logged and the evaluation is still returned, because the narrative answer
// matters more to the player than a missed stat write.
func (e *Engine) EvaluateAction(ctx context.Context, g *game.Game, characterID uuid.UUID, action string) (*game.ActionResult, error) {
	action = e.filter.Sanitize(action)

	character, err := e.requireCharacter(ctx, g.ID, characterID)
	if err != nil {
		return nil, err
	}
	session, err := e.store.GetSession(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CurrentScene == nil {
		return nil, apperr.New(apperr.KindValidation, "game has no active scene")
	}
	rules, err := e.requireRules(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	quests, err := e.activeQuests(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	result, err := e.gen.EvaluateAction(ctx, character, session.CurrentScene, rules, quests, action)
	if err != nil {
		return nil, err
	}

	e.applyCharacterUpdates(ctx, character, result.CharacterUpdates, rules)
	e.applyQuestUpdates(ctx, quests, result.QuestUpdates)
	return result, nil
}

// NextScene generates the scene that follows an evaluated action and
// appends it to the session.
func (e *Engine) NextScene(ctx context.Context, g *game.Game, action string, result *game.ActionResult) (*game.Session, error) {
	world, err := e.requireWorld(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	session, err := e.store.GetSession(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CurrentScene == nil {
		return nil, apperr.New(apperr.KindValidation, "game has no active scene")
	}

	scene, err := e.gen.NextScene(ctx, world, session.CurrentScene, action, result)
	if err != nil {
		return nil, err
	}
	e.stampScene(scene)
	return e.store.SaveSessionScene(ctx, g.ID, *scene, session.ActiveQuests)
}

// SubmitAction runs one full turn: evaluate the action, then generate the
// following scene. The two calls run strictly in order; the second only
// happens once the first succeeds.
func (e *Engine) SubmitAction(ctx context.Context, g *game.Game, characterID uuid.UUID, action string) (*TurnResult, error) {
	action = e.filter.Sanitize(action)

	result, err := e.EvaluateAction(ctx, g, characterID, action)
	if err != nil {
		return nil, err
	}
	session, err := e.NextScene(ctx, g, action, result)
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Result:  result,
		Scene:   session.CurrentScene,
		Session: session,
	}, nil
}

// stampScene gives the scene an id when the model did not provide one.
func (e *Engine) stampScene(s *game.Scene) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
}

func (e *Engine) requireWorld(ctx context.Context, gameID uuid.UUID) (*game.World, error) {
	w, err := e.store.GetWorld(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.New(apperr.KindNotFound, "world not found for game")
	}
	return w, nil
}

func (e *Engine) requireRules(ctx context.Context, gameID uuid.UUID) (*game.Rules, error) {
	r, err := e.store.GetRules(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.New(apperr.KindNotFound, "rules not found for game")
	}
	return r, nil
}

func (e *Engine) requireCharacter(ctx context.Context, gameID, characterID uuid.UUID) (*game.Character, error) {
	c, err := e.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.GameID != gameID {
		return nil, apperr.New(apperr.KindNotFound, "character not found for game")
	}
	return c, nil
}

func (e *Engine) activeQuests(ctx context.Context, gameID uuid.UUID) ([]game.Quest, error) {
	quests, err := e.store.ListQuests(ctx, gameID)
	if err != nil {
		return nil, err
	}
	active := quests[:0]
	for _, q := range quests {
		if q.Status == game.QuestStatusActive {
			active = append(active, q)
		}
	}
	return active, nil
}

func (e *Engine) applyCharacterUpdates(ctx context.Context, character *game.Character, updates map[string]int, rules *game.Rules) {
	if len(updates) == 0 {
		return
	}
	character.ApplyUpdates(updates, rules)
	if err := e.store.SaveCharacter(ctx, character); err != nil {
		e.logger.Error("Failed to save character updates", "character_id", character.ID, "error", err)
	}
}

func (e *Engine) applyQuestUpdates(ctx context.Context, quests []game.Quest, updates []game.QuestUpdate) {
	if len(updates) == 0 {
		return
	}
	byID := make(map[string]*game.Quest, len(quests))
	for i := range quests {
		byID[quests[i].ID.String()] = &quests[i]
	}
	for _, u := range updates {
		q, ok := byID[u.QuestID]
		if !ok {
			e.logger.Warn("Quest update references unknown quest", "quest_id", u.QuestID)
			continue
		}
		if !q.ApplyUpdate(u) {
			continue
		}
		if err := e.store.SaveQuest(ctx, q); err != nil {
			e.logger.Error("Failed to save quest update", "quest_id", q.ID, "error", err)
		}
	}
}
