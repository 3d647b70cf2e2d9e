package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/game"
)

func (r *RedisStorage) SaveQuest(ctx context.Context, q *game.Quest) error {
	if err := r.setJSON(ctx, questKey(q.ID), q); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, gameQuestsKey(q.GameID), q.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index quest: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetQuest(ctx context.Context, id uuid.UUID) (*game.Quest, error) {
	var q game.Quest
	found, err := r.getJSON(ctx, questKey(id), &q)
	if err != nil || !found {
		return nil, err
	}
	return &q, nil
}

func (r *RedisStorage) ListQuests(ctx context.Context, gameID uuid.UUID) ([]game.Quest, error) {
	ids, err := r.memberIDs(ctx, gameQuestsKey(gameID))
	if err != nil {
		return nil, err
	}
	quests := make([]game.Quest, 0, len(ids))
	for _, id := range ids {
		q, err := r.GetQuest(ctx, id)
		if err != nil {
			return nil, err
		}
		if q != nil {
			quests = append(quests, *q)
		}
	}
	// Stable order for prompts and listings.
	sort.Slice(quests, func(i, j int) bool {
		if quests[i].CreatedAt.Equal(quests[j].CreatedAt) {
			return quests[i].Title < quests[j].Title
		}
		return quests[i].CreatedAt.Before(quests[j].CreatedAt)
	})
	return quests, nil
}
