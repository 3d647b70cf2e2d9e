package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/game"
)

// ErrEmailTaken is returned by CreateUser when the email is already
// registered.
var ErrEmailTaken = fmt.Errorf("email already registered")

func (r *RedisStorage) CreateUser(ctx context.Context, u *game.User) error {
	// SETNX on the email index gives signup its uniqueness guarantee.
	ok, err := r.client.SetNX(ctx, userEmailKey(u.Email), u.ID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if !ok {
		return ErrEmailTaken
	}
	if err := r.setJSON(ctx, userKey(u.ID), u); err != nil {
		// Release the reservation so a retry can succeed.
		r.client.Del(ctx, userEmailKey(u.Email))
		return err
	}
	return nil
}

func (r *RedisStorage) GetUser(ctx context.Context, id uuid.UUID) (*game.User, error) {
	var u game.User
	found, err := r.getJSON(ctx, userKey(id), &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (r *RedisStorage) GetUserByEmail(ctx context.Context, email string) (*game.User, error) {
	idStr, err := r.client.Get(ctx, userEmailKey(email)).Result()
	if err != nil {
		if isNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}
	return r.GetUser(ctx, id)
}
