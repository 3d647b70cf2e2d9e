package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eduquest/adventure-engine/pkg/game"
)

func (r *RedisStorage) SaveGame(ctx context.Context, g *game.Game) error {
	if err := r.setJSON(ctx, gameKey(g.ID), g); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, userGamesKey(g.UserID), g.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index game: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	var g game.Game
	found, err := r.getJSON(ctx, gameKey(id), &g)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (r *RedisStorage) ListGames(ctx context.Context, userID uuid.UUID) ([]game.Game, error) {
	ids, err := r.memberIDs(ctx, userGamesKey(userID))
	if err != nil {
		return nil, err
	}

	games := make([]game.Game, 0, len(ids))
	for _, id := range ids {
		g, err := r.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			games = append(games, *g)
		}
	}
	// Newest first, matching the listing order users expect.
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	return games, nil
}

// DeleteGame removes the game row and everything hanging off it: world,
// rules, characters, quests, session, and the index sets.
func (r *RedisStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	g, err := r.GetGame(ctx, id)
	if err != nil {
		return err
	}
	if g == nil {
		return nil // already gone
	}

	charIDs, err := r.memberIDs(ctx, gameCharsKey(id))
	if err != nil {
		return err
	}
	questIDs, err := r.memberIDs(ctx, gameQuestsKey(id))
	if err != nil {
		return err
	}

	keys := []string{
		gameKey(id),
		worldKey(id),
		rulesKey(id),
		sessionKey(id),
		gameCharsKey(id),
		gameQuestsKey(id),
	}
	for _, cid := range charIDs {
		keys = append(keys, characterKey(cid))
	}
	for _, qid := range questIDs {
		keys = append(keys, questKey(qid))
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, userGamesKey(g.UserID), id.String())
		for _, cid := range charIDs {
			pipe.SRem(ctx, userCharsKey(g.UserID), cid.String())
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to cascade game delete", "game_id", id, "error", err)
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveWorld(ctx context.Context, w *game.World) error {
	return r.setJSON(ctx, worldKey(w.GameID), w)
}

func (r *RedisStorage) GetWorld(ctx context.Context, gameID uuid.UUID) (*game.World, error) {
	var w game.World
	found, err := r.getJSON(ctx, worldKey(gameID), &w)
	if err != nil || !found {
		return nil, err
	}
	return &w, nil
}

func (r *RedisStorage) SaveRules(ctx context.Context, rules *game.Rules) error {
	return r.setJSON(ctx, rulesKey(rules.GameID), rules)
}

func (r *RedisStorage) GetRules(ctx context.Context, gameID uuid.UUID) (*game.Rules, error) {
	var rules game.Rules
	found, err := r.getJSON(ctx, rulesKey(gameID), &rules)
	if err != nil || !found {
		return nil, err
	}
	return &rules, nil
}
