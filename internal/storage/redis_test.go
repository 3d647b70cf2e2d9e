package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduquest/adventure-engine/pkg/game"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rs := NewRedisStorage(mr.Addr(), logger)
	return rs, mr
}

func testGame(userID uuid.UUID) *game.Game {
	return game.NewGame(userID, game.Settings{
		Title:             "The Math Kingdom",
		LearningObjective: "multiplication tables",
		AgeGroup:          "7-9",
		Theme:             "Fantasy Kingdom",
		DifficultyLevel:   "beginner",
	})
}

func TestRedisStorage_Users(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	u := &game.User{
		ID:           uuid.New(),
		Email:        "Learner@Example.com",
		DisplayName:  "Learner",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, rs.CreateUser(ctx, u))

	// Email lookup is case-insensitive.
	got, err := rs.GetUserByEmail(ctx, "learner@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	// Duplicate signup is rejected regardless of case.
	dup := &game.User{ID: uuid.New(), Email: "LEARNER@example.com", PasswordHash: "x"}
	err = rs.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Unknown email resolves to (nil, nil).
	got, err = rs.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStorage_GameLifecycle(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	userID := uuid.New()
	g := testGame(userID)
	require.NoError(t, rs.SaveGame(ctx, g))

	got, err := rs.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Math Kingdom", got.Title)

	games, err := rs.ListGames(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, games, 1)

	// Absent rows come back as (nil, nil).
	missing, err := rs.GetGame(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisStorage_WorldAndRules(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	gameID := uuid.New()
	w := &game.World{
		GameID:      gameID,
		Description: "A kingdom built on numbers.",
		Locations:   []game.Location{{Name: "Castle of Sums"}},
		NPCs:        []game.WorldNPC{{Name: "Count Cardinal", Role: "mentor"}},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, rs.SaveWorld(ctx, w))

	gotW, err := rs.GetWorld(ctx, gameID)
	require.NoError(t, err)
	require.NotNil(t, gotW)
	assert.Equal(t, "A kingdom built on numbers.", gotW.Description)

	rules := &game.Rules{
		GameID: gameID,
		CharacterAttributes: []game.AttributeDef{
			{Name: "Wisdom", Range: "1-10"},
		},
		ChallengeRules: "Answer to act.",
	}
	require.NoError(t, rs.SaveRules(ctx, rules))

	gotR, err := rs.GetRules(ctx, gameID)
	require.NoError(t, err)
	require.NotNil(t, gotR)
	assert.Len(t, gotR.CharacterAttributes, 1)
}

func TestRedisStorage_Characters(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	userID := uuid.New()
	gameID := uuid.New()
	c := &game.Character{
		ID:         uuid.New(),
		UserID:     userID,
		GameID:     gameID,
		Name:       "Nova",
		Archetype:  "Explorer",
		Attributes: map[string]int{"Wisdom": 5},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, rs.SaveCharacter(ctx, c))

	byGame, err := rs.ListGameCharacters(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, byGame, 1)
	assert.Equal(t, "Nova", byGame[0].Name)

	byUser, err := rs.ListUserCharacters(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	require.NoError(t, rs.DeleteCharacter(ctx, c.ID))

	byGame, err = rs.ListGameCharacters(ctx, gameID)
	require.NoError(t, err)
	assert.Empty(t, byGame)
	byUser, err = rs.ListUserCharacters(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func TestRedisStorage_Quests(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	gameID := uuid.New()
	base := time.Now().UTC()
	for i, title := range []string{"First Steps", "Second Wind", "Final Count"} {
		q := &game.Quest{
			ID:        uuid.New(),
			GameID:    gameID,
			Title:     title,
			Steps:     []game.QuestStep{{Order: 1, Description: "do the thing"}},
			Status:    game.QuestStatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, rs.SaveQuest(ctx, q))
	}

	quests, err := rs.ListQuests(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, quests, 3)
	// Creation order is preserved.
	assert.Equal(t, "First Steps", quests[0].Title)
	assert.Equal(t, "Final Count", quests[2].Title)
}

func TestRedisStorage_SessionAppend(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	gameID := uuid.New()
	questID := uuid.New()

	// No session yet.
	s, err := rs.GetSession(ctx, gameID)
	require.NoError(t, err)
	assert.Nil(t, s)

	first := game.Scene{Title: "Arrival", Narration: "You arrive.", AvailableActions: []string{"look"}}
	s, err = rs.SaveSessionScene(ctx, gameID, first, []uuid.UUID{questID})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, s.History, 1)
	assert.Equal(t, "Arrival", s.CurrentScene.Title)
	assert.Equal(t, []uuid.UUID{questID}, s.ActiveQuests)

	second := game.Scene{Title: "The Gate", Narration: "A gate bars the way.", AvailableActions: []string{"open"}}
	s, err = rs.SaveSessionScene(ctx, gameID, second, nil)
	require.NoError(t, err)
	assert.Len(t, s.History, 2)
	assert.Equal(t, "The Gate", s.CurrentScene.Title)

	// Reload round-trips; current scene still points at the last entry.
	s, err = rs.GetSession(ctx, gameID)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, s.History, 2)
}

func TestRedisStorage_DeleteGameCascades(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	userID := uuid.New()
	g := testGame(userID)
	require.NoError(t, rs.SaveGame(ctx, g))

	require.NoError(t, rs.SaveWorld(ctx, &game.World{GameID: g.ID, Description: "w", Locations: []game.Location{{Name: "a"}}, NPCs: []game.WorldNPC{{Name: "n"}}}))
	require.NoError(t, rs.SaveRules(ctx, &game.Rules{GameID: g.ID, ChallengeRules: "r"}))

	c := &game.Character{ID: uuid.New(), UserID: userID, GameID: g.ID, Name: "Nova", Archetype: "Explorer"}
	require.NoError(t, rs.SaveCharacter(ctx, c))
	q := &game.Quest{ID: uuid.New(), GameID: g.ID, Title: "t", Steps: []game.QuestStep{{Order: 1}}, Status: game.QuestStatusActive}
	require.NoError(t, rs.SaveQuest(ctx, q))
	_, err := rs.SaveSessionScene(ctx, g.ID, game.Scene{Title: "s", Narration: "n", AvailableActions: []string{"a"}}, nil)
	require.NoError(t, err)

	require.NoError(t, rs.DeleteGame(ctx, g.ID))

	got, err := rs.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	w, err := rs.GetWorld(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, w)
	cc, err := rs.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, cc)
	qq, err := rs.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, qq)
	s, err := rs.GetSession(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, s)

	games, err := rs.ListGames(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, games)
	chars, err := rs.ListUserCharacters(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, chars)

	// Deleting an absent game is a no-op.
	require.NoError(t, rs.DeleteGame(ctx, g.ID))
}

func TestRedisStorage_TokenRevocation(t *testing.T) {
	rs, mr := setupTestRedis(t)
	defer mr.Close()
	defer rs.Close()
	ctx := context.Background()

	jti := uuid.NewString()
	revoked, err := rs.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, rs.RevokeToken(ctx, jti, time.Hour))
	revoked, err = rs.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Expired tokens need no tombstone.
	require.NoError(t, rs.RevokeToken(ctx, "expired", -time.Minute))
	revoked, err = rs.IsTokenRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
