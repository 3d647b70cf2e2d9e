package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eduquest/adventure-engine/pkg/game"
)

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *game.Character) error {
	if err := r.setJSON(ctx, characterKey(c.ID), c); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, gameCharsKey(c.GameID), c.ID.String())
		pipe.SAdd(ctx, userCharsKey(c.UserID), c.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index character: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetCharacter(ctx context.Context, id uuid.UUID) (*game.Character, error) {
	var c game.Character
	found, err := r.getJSON(ctx, characterKey(id), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *RedisStorage) ListGameCharacters(ctx context.Context, gameID uuid.UUID) ([]game.Character, error) {
	return r.listCharacters(ctx, gameCharsKey(gameID))
}

func (r *RedisStorage) ListUserCharacters(ctx context.Context, userID uuid.UUID) ([]game.Character, error) {
	return r.listCharacters(ctx, userCharsKey(userID))
}

func (r *RedisStorage) listCharacters(ctx context.Context, indexKey string) ([]game.Character, error) {
	ids, err := r.memberIDs(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	chars := make([]game.Character, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			chars = append(chars, *c)
		}
	}
	sort.Slice(chars, func(i, j int) bool {
		return chars[i].CreatedAt.After(chars[j].CreatedAt)
	})
	return chars, nil
}

func (r *RedisStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	c, err := r.GetCharacter(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, characterKey(id))
		pipe.SRem(ctx, gameCharsKey(c.GameID), id.String())
		pipe.SRem(ctx, userCharsKey(c.UserID), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}
