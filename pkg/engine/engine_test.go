package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/storage"
	"github.com/shardfall/journey-engine/pkg/story"
)

const engineContent = `{
  "metadata": {
    "achievements": ["brave"],
    "locations": ["Town", "Forest"]
  },
  "parts": {
    "PART_01": {
      "title": "Opening", "text": "A road forks ahead.",
      "choices": [
        {
          "text": "Take the sunny road",
          "next": "PART_02",
          "effects": {"shards": 2, "achievement": "brave"}
        },
        {
          "text": "Take the guarded gate",
          "next": "PART_02",
          "require": {"shards": 10}
        },
        {
          "text": "Take the secret tunnel",
          "next": "PART_02",
          "require": {"flag": "knows_tunnel"}
        },
        {
          "text": "Walk off the map",
          "next": "NOWHERE"
        }
      ]
    },
    "PART_02": {"title": "Onward", "text": "The road continues.", "choices": []}
  },
  "achievements_data": {
    "brave": {"id": "brave", "name": "Brave", "description": "d", "emoji": "🦁"}
  }
}`

// steadyRoller always returns min, so chance rolls succeed and gains
// are predictable.
type steadyRoller struct{}

func (steadyRoller) Between(min, max int) int { return min }

func newTestEngine(t *testing.T) (*Engine, *storage.MemoryStore) {
	t.Helper()
	s := mustParseStory(t, engineContent)
	store := storage.NewMemoryStore()
	eng := New(s, store, testLogger()).WithRoller(steadyRoller{})
	return eng, store
}

func TestStartJourneyProvisionsPlayer(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	result, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, result.Part)
	assert.Equal(t, story.StartPartID, result.Part.ID)
	assert.False(t, result.HasProgress)
	require.NotNil(t, result.Player)
	assert.Equal(t, player.AlignmentGray, result.Player.Alignment)

	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "potion", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestStartJourneyPreservesProgress(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	turn, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)
	require.Equal(t, StateDone, turn.State)

	result, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, result.HasProgress)
	require.NotNil(t, result.Part)
	assert.Equal(t, "PART_02", result.Part.ID, "existing progress must not be discarded")
}

func TestContinueJourneyWithoutPlayer(t *testing.T) {
	eng, _ := newTestEngine(t)

	result, err := eng.ContinueJourney(context.Background(), "ghost")
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectNotFound, result.Rejection.Kind)
}

func TestContinueJourneyRepairsDanglingPart(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	gone := "REMOVED_PART"
	require.NoError(t, store.UpdatePlayer(ctx, "alice", player.Update{CurrentPart: &gone}))

	result, err := eng.ContinueJourney(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, result.Part)
	assert.Equal(t, story.StartPartID, result.Part.ID)

	st, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, story.StartPartID, st.CurrentPart, "repair must be persisted")
}

func TestTakeChoiceCommitsTurn(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Success)
	require.NotNil(t, result.Part)
	assert.Equal(t, "PART_02", result.Part.ID)
	require.NotNil(t, result.Player)
	assert.Equal(t, 2, result.Player.Shards)
	assert.Equal(t, 10, result.Player.XP, "steady roller grants minimum XP")
	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, "Brave", result.NewAchievements[0].Name)

	history, err := store.RecentHistory(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PART_01", history[0].PartID)
	assert.Equal(t, "Take the sunny road", history[0].ChoiceText)
	assert.Contains(t, history[0].Impact, "Shards: +2")
}

func TestTakeChoiceEndsJourneyOffGraph(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 3)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Ended)
	assert.Nil(t, result.Part)
}

func TestTakeChoiceRejectsOutOfRange(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 99)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectInvalidInput, result.Rejection.Kind)

	result, err = eng.TakeChoice(ctx, "alice", "PART_01", -1)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
}

func TestTakeChoiceRejectsUnknownPart(t *testing.T) {
	eng, _ := newTestEngine(t)

	result, err := eng.TakeChoice(context.Background(), "alice", "NO_SUCH_PART", 0)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectNotFound, result.Rejection.Kind)
}

func TestTakeChoiceStatRequirement(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	before, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 1)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectRequirementNotMet, result.Rejection.Kind)
	assert.Equal(t, "shards", result.Rejection.Stat)
	assert.Equal(t, 10, result.Rejection.Need)
	assert.Equal(t, 0, result.Rejection.Have)

	after, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected turn must not mutate state")

	history, err := store.RecentHistory(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, history, "a rejected turn must not record history")
}

func TestTakeChoiceFlagRequirement(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 2)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	assert.Equal(t, "knows_tunnel", result.Rejection.Flag)

	require.NoError(t, store.SetFlag(ctx, "alice", "knows_tunnel", 1))
	result, err = eng.TakeChoice(ctx, "alice", "PART_01", 2)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
}

func TestTakeChoiceAchievementUnlocksOnce(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	first, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)
	assert.Len(t, first.NewAchievements, 1)

	second, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)
	assert.Empty(t, second.NewAchievements)

	unlocked, err := store.ListAchievements(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, unlocked, 1)
}

func TestTakeChoiceFaultsOnCommitFailure(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	store.FailNext = errors.New("connection reset")
	result, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.Error(t, err)
	assert.Equal(t, StateFaulted, result.State)
}

func TestTakeChoiceNegativeGrantNeverGoesBelowZero(t *testing.T) {
	const content = `{
	  "metadata": {},
	  "parts": {
	    "PART_01": {
	      "title": "Opening", "text": "A thief waits in the dark.",
	      "choices": [
	        {
	          "text": "Let the thief rifle your pack",
	          "next": "PART_02",
	          "effects": {"inventory_add": {"id": "potion", "name": "Potion", "qty": -5}}
	        }
	      ]
	    },
	    "PART_02": {"title": "Onward", "text": "The road continues.", "choices": []}
	  }
	}`
	s := mustParseStory(t, content)
	store := storage.NewMemoryStore()
	eng := New(s, store, testLogger()).WithRoller(steadyRoller{})
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	turn, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)
	require.Equal(t, StateDone, turn.State)

	// Three starter potions minus five: the row is gone, never negative.
	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, "potion", item.ID)
		assert.GreaterOrEqual(t, item.Quantity, 1)
	}
}

func TestUseItemPotion(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	corr := 40
	require.NoError(t, store.UpdatePlayer(ctx, "alice", player.Update{Corruption: &corr}))

	result, err := eng.UseItem(ctx, "alice", "potion")
	require.NoError(t, err)
	require.Nil(t, result.Rejection)
	assert.Equal(t, 30, result.Player.Corruption)
	assert.Contains(t, result.Summary, "Corruption fell by 10")

	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity, "use must consume exactly one")
}

func TestUseItemRejectsAtFloor(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.UseItem(ctx, "alice", "potion")
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectInvalidInput, result.Rejection.Kind)

	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, items[0].Quantity, "a rejected use must not consume the item")
}

func TestUseItemUnknownAndMissing(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	result, err := eng.UseItem(ctx, "alice", "philosophers_stone")
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectNotFound, result.Rejection.Kind)

	result, err = eng.UseItem(ctx, "alice", "dark_core")
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectRequirementNotMet, result.Rejection.Kind)
}

func TestClaimDailyAndCooldown(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng.WithClock(func() time.Time { return now })

	result, err := eng.ClaimDaily(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, 1, result.Shards, "steady roller grants minimum shards")
	require.NotNil(t, result.BonusItem, "steady roller always lands in the drop table")
	assert.Equal(t, "potion", result.BonusItem.ID)
	assert.Equal(t, 1, result.Player.Shards)

	// Claim again one hour later.
	now = now.Add(time.Hour)
	result, err = eng.ClaimDaily(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, RejectCooldownActive, result.Rejection.Kind)
	assert.Equal(t, 23*time.Hour, result.Rejection.RetryAfter)

	// And once the cooldown lapses.
	now = now.Add(23 * time.Hour)
	result, err = eng.ClaimDaily(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, 2, result.Player.Shards)
}

func TestDailyDropTable(t *testing.T) {
	tests := []struct {
		roll int
		want string
	}{
		{1, "potion"},
		{30, "potion"},
		{31, "crystal_heart"},
		{45, "crystal_heart"},
		{46, "pure_shard"},
		{55, "pure_shard"},
		{56, "dark_core"},
		{60, "dark_core"},
		{61, ""},
		{100, ""},
	}
	for _, tt := range tests {
		item := dailyDrop(tt.roll)
		if tt.want == "" {
			assert.Nil(t, item, "roll %d", tt.roll)
		} else {
			require.NotNil(t, item, "roll %d", tt.roll)
			assert.Equal(t, tt.want, item.ID, "roll %d", tt.roll)
		}
	}
}

func TestResetProgress(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	_, err = eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)

	require.NoError(t, eng.ResetProgress(ctx, "alice"))

	st, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, st)
	items, err := store.ListItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	history, err := store.RecentHistory(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	// A fresh start reprovisions from scratch.
	result, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, result.HasProgress)
	assert.Zero(t, result.Player.Shards)
}

func TestProfileAndViews(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	profile, err := eng.Profile(ctx, "ghost")
	require.NoError(t, err)
	require.NotNil(t, profile.Rejection)

	_, err = eng.StartJourney(ctx, "alice")
	require.NoError(t, err)
	_, err = eng.TakeChoice(ctx, "alice", "PART_01", 0)
	require.NoError(t, err)

	profile, err = eng.Profile(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, profile.Rejection)
	require.Len(t, profile.Achievements, 1)
	assert.Equal(t, "Brave", profile.Achievements[0].Name)

	statuses, rej, err := eng.Achievements(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, rej)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Unlocked)
	require.NotNil(t, statuses[0].UnlockedAt)

	m, err := eng.WorldMap(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Town", "Forest"}, m.Locations)
	assert.Equal(t, player.DefaultLocation, m.Current)

	entries, rej, err := eng.History(ctx, "alice", 5)
	require.NoError(t, err)
	require.Nil(t, rej)
	require.Len(t, entries, 1)
}

func TestConcurrentTurnsSerialize(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.StartJourney(ctx, "alice")
	require.NoError(t, err)

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.TakeChoice(ctx, "alice", "PART_01", 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := store.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2*turns, st.Shards, "no turn may be lost to a concurrent update")

	history, err := store.RecentHistory(ctx, "alice", turns+5)
	require.NoError(t, err)
	assert.Len(t, history, turns)
}
