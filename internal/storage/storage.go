package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/adventure-engine/pkg/game"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage is the persistence gateway. Row-level CRUD per entity; lookups
// return (nil, nil) when the row is absent. Ownership is enforced by the
// caller, not here.
type Storage interface {
	HealthChecker
	Closer

	// Users
	CreateUser(ctx context.Context, u *game.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*game.User, error)
	GetUserByEmail(ctx context.Context, email string) (*game.User, error)

	// Games
	SaveGame(ctx context.Context, g *game.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error)
	ListGames(ctx context.Context, userID uuid.UUID) ([]game.Game, error)
	// DeleteGame removes the game and cascades to its world, rules,
	// characters, quests and session.
	DeleteGame(ctx context.Context, id uuid.UUID) error

	// World and rules, one per game
	SaveWorld(ctx context.Context, w *game.World) error
	GetWorld(ctx context.Context, gameID uuid.UUID) (*game.World, error)
	SaveRules(ctx context.Context, r *game.Rules) error
	GetRules(ctx context.Context, gameID uuid.UUID) (*game.Rules, error)

	// Characters
	SaveCharacter(ctx context.Context, c *game.Character) error
	GetCharacter(ctx context.Context, id uuid.UUID) (*game.Character, error)
	ListGameCharacters(ctx context.Context, gameID uuid.UUID) ([]game.Character, error)
	ListUserCharacters(ctx context.Context, userID uuid.UUID) ([]game.Character, error)
	DeleteCharacter(ctx context.Context, id uuid.UUID) error

	// Quests
	SaveQuest(ctx context.Context, q *game.Quest) error
	GetQuest(ctx context.Context, id uuid.UUID) (*game.Quest, error)
	ListQuests(ctx context.Context, gameID uuid.UUID) ([]game.Quest, error)

	// Sessions, one per game
	GetSession(ctx context.Context, gameID uuid.UUID) (*game.Session, error)
	// SaveSessionScene appends the scene to the game's session, creating
	// the session when absent. The create-or-append decision happens inside
	// one optimistic transaction so concurrent first scenes cannot clobber
	// each other.
	SaveSessionScene(ctx context.Context, gameID uuid.UUID, scene game.Scene, activeQuests []uuid.UUID) (*game.Session, error)

	// Auth token revocation
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}
