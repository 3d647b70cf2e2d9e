package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquest/adventure-engine/internal/services"
	"github.com/eduquest/adventure-engine/internal/storage"
	"github.com/eduquest/adventure-engine/pkg/apperr"
	"github.com/eduquest/adventure-engine/pkg/chat"
	"github.com/eduquest/adventure-engine/pkg/game"
)

const (
	worldJSON = `{
		"description": "A kingdom where every gate demands arithmetic.",
		"locations": [{"name": "Castle of Sums", "description": "The seat of Count Cardinal."}, {"name": "Division Docks", "description": "Busy harbor."}],
		"npcs": [{"name": "Count Cardinal", "role": "mentor", "description": "Keeper of numbers.", "motivation": "teach"}],
		"history": "Founded on the first theorem.",
		"challenges": [{"name": "The Broken Ledger", "description": "Accounts gone wrong.", "learningConnection": "addition"}],
		"imagePrompt": "a bright castle made of numbers"
	}`

	rulesJSON = `{
		"coreMechanics": [{"name": "Answer to Act", "description": "Solve to proceed.", "howToUse": "Answer the NPC."}],
		"characterAttributes": [{"name": "Wisdom", "description": "Problem solving.", "range": "1-10"}, {"name": "Courage", "description": "Bravery.", "range": "1-10"}],
		"challengeRules": "Players answer a question matching the difficulty.",
		"progressionSystem": "Attributes rise with correct answers.",
		"learningMechanics": [{"name": "Hints", "description": "NPCs offer hints.", "educationalBenefit": "scaffolding"}]
	}`

	questsJSON = `[
		{"title": "The Broken Ledger", "description": "Fix the castle accounts.", "learningGoals": ["addition"], "steps": [{"order": 1, "description": "Find the ledger.", "challenge": "riddle", "hint": "library"}], "npcsInvolved": ["Count Cardinal"], "locationsInvolved": ["Castle of Sums"], "rewards": {"knowledge": "sums", "inGameRewards": ["ledger badge"]}, "difficulty": "easy"},
		{"title": "Docks Delivery", "description": "Split the cargo fairly.", "learningGoals": ["division"], "steps": [{"order": 1, "description": "Count the crates.", "challenge": "count", "hint": "tens"}], "npcsInvolved": [], "locationsInvolved": ["Division Docks"], "rewards": {"knowledge": "division", "inGameRewards": []}, "difficulty": "medium"}
	]`

	optionsJSON = `[
		{"name": "Scholar", "description": "Reads everything.", "strengths": ["curious"], "challenges": ["shy"], "startingAttributes": {"Wisdom": 8}, "specialAbility": {"name": "Insight", "description": "Sees patterns.", "educationalAspect": "analysis"}, "backgroundOptions": [{"name": "Library kid", "description": "Grew up in the stacks."}]},
		{"name": "Explorer", "description": "Goes first.", "strengths": ["brave"], "challenges": ["hasty"], "startingAttributes": {"courage": 9}, "specialAbility": {"name": "Pathfinding", "description": "Finds routes.", "educationalAspect": "spatial"}, "backgroundOptions": [{"name": "Dock hand", "description": "Knows the harbor."}]}
	]`

	sceneJSON = `{
		"id": "scene-1",
		"title": "Arrival at the Castle",
		"description": "The numbered gates tower above.",
		"narration": "You stand before the Castle of Sums.",
		"npcsPresent": [{"name": "Count Cardinal", "dialogue": "Welcome!", "attitude": "warm"}],
		"challenges": [{"description": "The gate asks 7+5.", "difficulty": "easy", "skillsNeeded": ["Wisdom"]}],
		"availableActions": ["Answer the gate", "Look around"],
		"educationalContent": {"topic": "addition", "presentation": "gate riddle"},
		"imagePrompt": "castle gate with glowing numbers"
	}`
)

func testEngine(t *testing.T, llm *services.MockLLM) (*Engine, *storage.MockStorage) {
	t.Helper()
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, NewGenerator(llm, logger), llm, logger), store
}

func seedGame(t *testing.T, store *storage.MockStorage) *game.Game {
	t.Helper()
	g := game.NewGame(uuid.New(), game.Settings{
		Title:             "The Math Kingdom",
		LearningObjective: "multiplication tables",
		AgeGroup:          "7-9",
		Theme:             "Fantasy Kingdom",
		DifficultyLevel:   "beginner",
	})
	require.NoError(t, store.SaveGame(context.Background(), g))
	return g
}

func TestEngine_CreateGame(t *testing.T) {
	e, _ := testEngine(t, services.NewMockLLM())
	userID := uuid.New()

	g, err := e.CreateGame(context.Background(), userID, game.Settings{
		Title:             "The Math Kingdom",
		LearningObjective: "multiplication tables",
		AgeGroup:          "7-9",
		Theme:             "Fantasy Kingdom",
		DifficultyLevel:   "beginner",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, g.UserID)
	assert.NotEqual(t, uuid.Nil, g.ID)

	_, err = e.CreateGame(context.Background(), userID, game.Settings{Title: "incomplete"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEngine_BuildAdventure(t *testing.T) {
	llm := services.NewMockLLM()
	llm.SetResponses(worldJSON, rulesJSON, questsJSON, optionsJSON)
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g := seedGame(t, store)

	adv, err := e.BuildAdventure(ctx, g)
	require.NoError(t, err)

	assert.Equal(t, g.ID, adv.World.GameID)
	assert.Len(t, adv.World.Locations, 2)
	assert.Equal(t, g.ID, adv.Rules.GameID)

	require.Len(t, adv.Quests, 2)
	for _, q := range adv.Quests {
		assert.Equal(t, game.QuestStatusActive, q.Status)
		assert.Equal(t, g.ID, q.GameID)
		assert.NotEqual(t, uuid.Nil, q.ID)
	}

	// Templates come back normalized: every declared attribute present,
	// matched case-insensitively or defaulted to the range midpoint.
	require.Len(t, adv.CharacterOptions, 2)
	scholar := adv.CharacterOptions[0]
	assert.Equal(t, 8, scholar.StartingAttributes["Wisdom"])
	assert.Equal(t, 5, scholar.StartingAttributes["Courage"])
	explorer := adv.CharacterOptions[1]
	assert.Equal(t, 9, explorer.StartingAttributes["Courage"])
	assert.Equal(t, 5, explorer.StartingAttributes["Wisdom"])

	// Everything was persisted stage by stage.
	w, err := store.GetWorld(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, w)
	quests, err := store.ListQuests(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, quests, 2)
}

func TestEngine_BuildAdventure_PartialFailureKeepsEarlierStages(t *testing.T) {
	llm := services.NewMockLLM()
	llm.SetResponses(worldJSON, "this is not json at all")
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g := seedGame(t, store)

	_, err := e.BuildAdventure(ctx, g)
	require.Error(t, err)
	assert.Equal(t, apperr.KindMalformedResponse, apperr.KindOf(err))

	// The world from the successful first stage is still there.
	w, err := store.GetWorld(ctx, g.ID)
	require.NoError(t, err)
	assert.NotNil(t, w)
	r, err := store.GetRules(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestEngine_GenerateWorld_UpstreamFailure(t *testing.T) {
	llm := services.NewMockLLM()
	llm.SetError(fmt.Errorf("connection refused"))
	e, store := testEngine(t, llm)
	g := seedGame(t, store)

	_, err := e.GenerateWorld(context.Background(), g)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestEngine_CreateCharacter(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g := seedGame(t, store)

	var rules game.Rules
	require.NoError(t, json.Unmarshal([]byte(rulesJSON), &rules))
	rules.GameID = g.ID
	require.NoError(t, store.SaveRules(ctx, &rules))

	c, err := e.CreateCharacter(ctx, g.UserID, &game.Character{
		GameID:     g.ID,
		Name:       "Nova",
		Archetype:  "Scholar",
		Attributes: map[string]int{"Wisdom": 99, "Luck": 7},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	// Clamped to the declared range, undeclared attributes dropped,
	// missing ones defaulted.
	assert.Equal(t, 10, c.Attributes["Wisdom"])
	assert.Equal(t, 5, c.Attributes["Courage"])
	_, hasLuck := c.Attributes["Luck"]
	assert.False(t, hasLuck)

	_, err = e.CreateCharacter(ctx, g.UserID, &game.Character{GameID: g.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func seedAdventure(t *testing.T, e *Engine, store *storage.MockStorage, llm *services.MockLLM) (*game.Game, *game.Character) {
	t.Helper()
	ctx := context.Background()
	g := seedGame(t, store)

	llm.SetResponses(worldJSON, rulesJSON, questsJSON, optionsJSON)
	adv, err := e.BuildAdventure(ctx, g)
	require.NoError(t, err)

	c, err := e.CreateCharacter(ctx, g.UserID, &game.Character{
		GameID:     g.ID,
		Name:       "Nova",
		Archetype:  adv.CharacterOptions[0].Name,
		Attributes: adv.CharacterOptions[0].StartingAttributes,
	})
	require.NoError(t, err)
	return g, c
}

func TestEngine_StartSession(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g, _ := seedAdventure(t, e, store, llm)

	llm.SetResponses(sceneJSON)
	session, err := e.StartSession(ctx, g)
	require.NoError(t, err)
	require.NotNil(t, session.CurrentScene)
	assert.Equal(t, "Arrival at the Castle", session.CurrentScene.Title)
	assert.Len(t, session.History, 1)
	assert.Len(t, session.ActiveQuests, 2)
}

func TestEngine_StartSession_RequiresCharacters(t *testing.T) {
	llm := services.NewMockLLM()
	llm.SetResponses(worldJSON, rulesJSON, questsJSON, optionsJSON)
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g := seedGame(t, store)
	_, err := e.BuildAdventure(ctx, g)
	require.NoError(t, err)

	_, err = e.StartSession(ctx, g)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEngine_SubmitAction(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g, c := seedAdventure(t, e, store, llm)

	llm.SetResponses(sceneJSON)
	_, err := e.StartSession(ctx, g)
	require.NoError(t, err)

	quests, err := store.ListQuests(ctx, g.ID)
	require.NoError(t, err)
	questID := quests[0].ID

	resultJSON := fmt.Sprintf(`{
		"success": true,
		"description": "The gate swings open.",
		"educationalValue": {"topic": "addition", "learningPoints": ["7+5=12"]},
		"characterUpdates": {"Wisdom": 9},
		"questUpdates": [{"questId": %q, "stepCompleted": 1, "newStatus": "completed"}],
		"feedback": "Great adding!"
	}`, questID)
	nextSceneJSON := strings.Replace(sceneJSON, "Arrival at the Castle", "Inside the Courtyard", 1)
	llm.SetResponses(resultJSON, nextSceneJSON)

	before := llm.CallCount()
	turn, err := e.SubmitAction(ctx, g, c.ID, "Answer the gate: twelve")
	require.NoError(t, err)

	// One turn is exactly two generation calls: evaluate, then next scene.
	assert.Equal(t, before+2, llm.CallCount())

	assert.True(t, turn.Result.Success)
	assert.Equal(t, "Inside the Courtyard", turn.Scene.Title)
	assert.Len(t, turn.Session.History, 2)
	assert.Equal(t, turn.Scene.ID, turn.Session.CurrentScene.ID)

	// Character and quest updates were applied.
	updated, err := store.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Attributes["Wisdom"])

	q, err := store.GetQuest(ctx, questID)
	require.NoError(t, err)
	assert.Equal(t, game.QuestStatusCompleted, q.Status)
	assert.True(t, q.Steps[0].Completed)
}

func TestEngine_SubmitAction_MalformedEvaluationMutatesNothing(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g, c := seedAdventure(t, e, store, llm)

	llm.SetResponses(sceneJSON)
	_, err := e.StartSession(ctx, g)
	require.NoError(t, err)

	llm.SetResponses("sorry, I cannot respond in JSON today")
	_, err = e.SubmitAction(ctx, g, c.ID, "open the gate")
	require.Error(t, err)
	assert.Equal(t, apperr.KindMalformedResponse, apperr.KindOf(err))

	// Nothing moved: history unchanged, character untouched.
	session, err := store.GetSession(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, session.History, 1)
	unchanged, err := store.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Attributes, unchanged.Attributes)
}

func TestEngine_EvaluateAction_SanitizesInput(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g, c := seedAdventure(t, e, store, llm)

	llm.SetResponses(sceneJSON)
	_, err := e.StartSession(ctx, g)
	require.NoError(t, err)

	var lastPrompt string
	llm.GenerateContentFunc = func(ctx context.Context, messages []chat.Message) (string, error) {
		lastPrompt = messages[len(messages)-1].Content
		return `{"success": false, "description": "Nothing happens.", "educationalValue": {"topic": "", "learningPoints": []}, "feedback": "Try again."}`, nil
	}

	_, err = e.EvaluateAction(ctx, g, c.ID, "kick the damn gate")
	require.NoError(t, err)
	assert.NotContains(t, lastPrompt, "damn")
	assert.Contains(t, lastPrompt, "dang")
}

func TestEngine_EvaluateAction_IgnoresUnknownQuest(t *testing.T) {
	llm := services.NewMockLLM()
	e, store := testEngine(t, llm)
	ctx := context.Background()
	g, c := seedAdventure(t, e, store, llm)

	llm.SetResponses(sceneJSON)
	_, err := e.StartSession(ctx, g)
	require.NoError(t, err)

	llm.SetResponses(`{
		"success": true,
		"description": "Something shifts.",
		"educationalValue": {"topic": "", "learningPoints": []},
		"questUpdates": [{"questId": "not-a-real-quest", "stepCompleted": 1}],
		"feedback": "ok"
	}`)
	result, err := e.EvaluateAction(ctx, g, c.ID, "wave")
	require.NoError(t, err)
	assert.True(t, result.Success)

	quests, err := store.ListQuests(ctx, g.ID)
	require.NoError(t, err)
	for _, q := range quests {
		assert.Equal(t, game.QuestStatusActive, q.Status)
	}
}

func TestEngine_GenerateImage(t *testing.T) {
	llm := services.NewMockLLM()
	e, _ := testEngine(t, llm)

	url, err := e.GenerateImage(context.Background(), "a castle of numbers")
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	require.Len(t, llm.GenerateImageCalls, 1)
	assert.Contains(t, llm.GenerateImageCalls[0], "age-appropriate")
	assert.Contains(t, llm.GenerateImageCalls[0], "a castle of numbers")
}
