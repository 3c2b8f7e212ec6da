package storage

import (
	"context"

	"github.com/shardfall/journey-engine/pkg/player"
)

// TurnCommit bundles every row touched by one resolved turn. A store
// must apply the whole commit atomically: either all rows reflect the
// new state or none do.
type TurnCommit struct {
	Update       player.Update
	AddItems     []player.Item
	RemoveItems  []player.Item // Quantity = amount to remove
	SetFlags     map[string]int
	Achievements []string // newly unlocked ids
	History      *player.HistoryEntry
}

// Store is the sole owner of persisted per-user state. Every method is
// atomic per call; TurnCommit and Wipe are atomic across sub-tables.
// Lookups return nil (or zero values) for missing rows, not errors.
type Store interface {
	// Ping tests the backing connection.
	Ping(ctx context.Context) error
	// Close releases the backing connection.
	Close() error

	// GetPlayer returns the player state, or nil if the player does
	// not exist.
	GetPlayer(ctx context.Context, userID string) (*player.State, error)
	// CreatePlayer persists a fresh state and grants the starter
	// inventory. Creation is idempotent: an existing player is left
	// untouched.
	CreatePlayer(ctx context.Context, st *player.State, starter []player.Item) error
	// UpdatePlayer merges field assignments into the stored row and
	// stamps LastUpdated.
	UpdatePlayer(ctx context.Context, userID string, upd player.Update) error

	// UnlockAchievement reports whether this call newly unlocked the
	// achievement (false if it was already unlocked).
	UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error)
	// ListAchievements returns all unlocked achievements for a user.
	ListAchievements(ctx context.Context, userID string) ([]player.AchievementUnlock, error)

	SetFlag(ctx context.Context, userID, name string, value int) error
	// GetFlag returns the flag value, zero if unset.
	GetFlag(ctx context.Context, userID, name string) (int, error)

	AddItem(ctx context.Context, userID string, item player.Item) error
	// RemoveItem decrements quantity, clamping at zero and deleting
	// the row when it empties.
	RemoveItem(ctx context.Context, userID, itemID string, quantity int) error
	HasItem(ctx context.Context, userID, itemID string, quantity int) (bool, error)
	ListItems(ctx context.Context, userID string) ([]player.Item, error)

	AppendHistory(ctx context.Context, userID string, entry player.HistoryEntry) error
	// RecentHistory returns up to limit entries, most recent first.
	RecentHistory(ctx context.Context, userID string, limit int) ([]player.HistoryEntry, error)

	// CommitTurn applies a full turn as one atomic unit.
	CommitTurn(ctx context.Context, userID string, commit TurnCommit) error

	// Wipe deletes every row for a user across all sub-tables,
	// all-or-nothing.
	Wipe(ctx context.Context, userID string) error
}
