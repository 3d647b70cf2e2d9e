package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eduquest/adventure-engine/pkg/game"
)

// RedisStorage implements the Storage interface using Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Key layout. Records are JSON blobs; membership lives in index sets so
// per-parent listings and cascade deletes stay O(children).

func userKey(id uuid.UUID) string           { return "user:" + id.String() }
func userEmailKey(email string) string      { return "user_email:" + strings.ToLower(strings.TrimSpace(email)) }
func gameKey(id uuid.UUID) string           { return "game:" + id.String() }
func userGamesKey(userID uuid.UUID) string  { return "user_games:" + userID.String() }
func worldKey(gameID uuid.UUID) string      { return "world:" + gameID.String() }
func rulesKey(gameID uuid.UUID) string      { return "rules:" + gameID.String() }
func characterKey(id uuid.UUID) string      { return "character:" + id.String() }
func gameCharsKey(gameID uuid.UUID) string  { return "game_characters:" + gameID.String() }
func userCharsKey(userID uuid.UUID) string  { return "user_characters:" + userID.String() }
func questKey(id uuid.UUID) string          { return "quest:" + id.String() }
func gameQuestsKey(gameID uuid.UUID) string { return "game_quests:" + gameID.String() }
func sessionKey(gameID uuid.UUID) string    { return "session:" + gameID.String() }
func revokedKey(jti string) string          { return "revoked_token:" + jti }

func isNil(err error) bool { return err == redis.Nil }

// setJSON marshals v and stores it durably (no TTL) at key.
func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// getJSON loads key into v. Returns (false, nil) when the key is absent.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// memberIDs reads an index set as UUIDs, skipping any corrupt members.
func (r *RedisStorage) memberIDs(ctx context.Context, key string) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", key, err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			r.logger.Warn("Skipping corrupt index member", "key", key, "member", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Auth token revocation

func (r *RedisStorage) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	if err := r.client.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisStorage) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// Sessions

func (r *RedisStorage) GetSession(ctx context.Context, gameID uuid.UUID) (*game.Session, error) {
	var s game.Session
	found, err := r.getJSON(ctx, sessionKey(gameID), &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

const sessionTxRetries = 3

func (r *RedisStorage) SaveSessionScene(ctx context.Context, gameID uuid.UUID, scene game.Scene, activeQuests []uuid.UUID) (*game.Session, error) {
	key := sessionKey(gameID)
	var saved *game.Session

	txf := func(tx *redis.Tx) error {
		var s *game.Session
		data, err := tx.Get(ctx, key).Result()
		switch {
		case err == redis.Nil:
			s = game.NewSession(gameID, scene, activeQuests)
		case err != nil:
			return fmt.Errorf("failed to load session: %w", err)
		default:
			s = &game.Session{}
			if err := json.Unmarshal([]byte(data), s); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			s.AppendScene(scene)
		}

		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		saved = s
		return nil
	}

	for attempt := 0; attempt < sessionTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return saved, nil
		}
		if err == redis.TxFailedErr {
			r.logger.Debug("Session append lost optimistic race, retrying", "game_id", gameID, "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("session append for game %s did not settle after %d attempts", gameID, sessionTxRetries)
}
