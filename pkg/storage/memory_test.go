package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfall/journey-engine/pkg/player"
)

func TestMemoryStore_ClonesOnRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreatePlayer(ctx, player.NewState("alice", "PART_01"), nil))

	first, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	first.Shards = 999

	second, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, second.Shards, "mutating a returned state must not affect the store")
}

func TestMemoryStore_CommitTurnAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreatePlayer(ctx, player.NewState("alice", "PART_01"), nil))

	shards := 5
	commit := TurnCommit{
		Update:       player.Update{Shards: &shards},
		AddItems:     []player.Item{{ID: "potion", Name: "Potion", Quantity: 1}},
		SetFlags:     map[string]int{"marked": 1},
		Achievements: []string{"brave"},
		History:      &player.HistoryEntry{PartID: "PART_01", Timestamp: time.Now().UTC()},
	}

	store.FailNext = errors.New("boom")
	require.Error(t, store.CommitTurn(ctx, "alice", commit))

	st, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, st.Shards, "a failed commit must leave no partial writes")
	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	flag, err := store.GetFlag(ctx, "alice", "marked")
	require.NoError(t, err)
	assert.Zero(t, flag)

	require.NoError(t, store.CommitTurn(ctx, "alice", commit))
	st, err = store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, st.Shards)
	history, err := store.RecentHistory(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].Seq)
}

func TestMemoryStore_NegativeGrantClampsToZero(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreatePlayer(ctx, player.NewState("alice", "PART_01"),
		[]player.Item{{ID: "potion", Name: "Potion", Quantity: 3}}))

	require.NoError(t, store.AddItem(ctx, "alice", player.Item{ID: "potion", Name: "Potion", Quantity: -5}))

	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items, "a grant past zero must drop the row, not store a negative count")

	// A negative grant for an item the player never held creates nothing.
	require.NoError(t, store.AddItem(ctx, "alice", player.Item{ID: "torch", Name: "Torch", Quantity: -1}))
	items, err = store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryStore_Wipe(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreatePlayer(ctx, player.NewState("alice", "PART_01"),
		[]player.Item{{ID: "potion", Name: "Potion", Quantity: 3}}))
	require.NoError(t, store.SetFlag(ctx, "alice", "marked", 1))

	require.NoError(t, store.Wipe(ctx, "alice"))

	st, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, st)
	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	flag, err := store.GetFlag(ctx, "alice", "marked")
	require.NoError(t, err)
	assert.Zero(t, flag)
}
