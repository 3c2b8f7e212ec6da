package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/storage"
	"github.com/shardfall/journey-engine/pkg/story"
)

// DailyCooldown is the minimum interval between daily claims.
const DailyCooldown = 24 * time.Hour

// Engine drives journeys against a story graph and a state store.
// Turns for the same user are serialized; each turn commits atomically
// or not at all.
type Engine struct {
	story  *story.Story
	store  storage.Store
	roller Roller
	logger *slog.Logger
	locks  *userLocks
	now    func() time.Time
}

// New creates an Engine with the production roller and clock.
func New(s *story.Story, store storage.Store, logger *slog.Logger) *Engine {
	return &Engine{
		story:  s,
		store:  store,
		roller: NewRoller(),
		logger: logger,
		locks:  newUserLocks(),
		now:    time.Now,
	}
}

// WithRoller replaces the random source. Used in tests.
func (e *Engine) WithRoller(r Roller) *Engine {
	e.roller = r
	return e
}

// WithClock replaces the time source. Used in tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Story exposes the loaded story graph for read-only rendering.
func (e *Engine) Story() *story.Story {
	return e.story
}

// getOrCreate loads the player, provisioning a fresh one with the
// starter inventory on first contact. Callers must hold the user lock.
func (e *Engine) getOrCreate(ctx context.Context, userID string) (*player.State, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if st != nil {
		return st, nil
	}
	st = player.NewState(userID, story.StartPartID)
	st.LastUpdated = e.now().UTC()
	if err := e.store.CreatePlayer(ctx, st, StarterItems()); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	e.logger.Info("Player created", "user_id", userID)
	return st, nil
}

// StartJourney begins (or resumes) a journey. A brand-new player is
// provisioned and shown the first part. A player with progress keeps
// it: the result flags HasProgress and serves their current part so
// the caller can offer a reset instead of silently discarding state.
func (e *Engine) StartJourney(ctx context.Context, userID string) (*JourneyResult, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	st, err := e.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if st.CurrentPart != story.StartPartID {
		part, ok := e.story.Part(st.CurrentPart)
		if !ok {
			part, _ = e.story.Part(story.StartPartID)
		}
		return &JourneyResult{HasProgress: true, Part: part, Player: st}, nil
	}

	part, ok := e.story.Part(story.StartPartID)
	if !ok {
		return nil, fmt.Errorf("story has no part %q", story.StartPartID)
	}
	return &JourneyResult{Part: part, Player: st}, nil
}

// ContinueJourney serves the player's current part. A current-part
// pointer that no longer exists in the graph (story content changed
// under a live journey) is repaired back to the first part.
func (e *Engine) ContinueJourney(ctx context.Context, userID string) (*JourneyResult, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return &JourneyResult{Rejection: &Rejection{
			Kind:    RejectNotFound,
			Message: "No journey found. Start one first.",
		}}, nil
	}

	part, ok := e.story.Part(st.CurrentPart)
	if !ok {
		e.logger.Warn("Current part missing from story, resetting to start",
			"user_id", userID, "part_id", st.CurrentPart)
		start := story.StartPartID
		upd := player.Update{CurrentPart: &start}
		if err := e.store.UpdatePlayer(ctx, userID, upd); err != nil {
			return nil, fmt.Errorf("repair current part: %w", err)
		}
		upd.ApplyTo(st, e.now().UTC())
		part, ok = e.story.Part(story.StartPartID)
		if !ok {
			return nil, fmt.Errorf("story has no part %q", story.StartPartID)
		}
	}
	return &JourneyResult{Part: part, Player: st}, nil
}

// TakeChoice resolves and commits one turn: validate the choice and its
// requirements, roll the outcome, apply effects, and advance the story.
// Rejections leave all state untouched.
func (e *Engine) TakeChoice(ctx context.Context, userID, partID string, choiceIndex int) (*TurnResult, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	e.logger.Debug("Turn started", "user_id", userID, "part_id", partID,
		"choice", choiceIndex, "state", StateValidating)

	part, ok := e.story.Part(partID)
	if !ok {
		return &TurnResult{State: StateRejected, Rejection: &Rejection{
			Kind:    RejectNotFound,
			Message: fmt.Sprintf("Story part %q does not exist.", partID),
		}}, nil
	}
	if choiceIndex < 0 || choiceIndex >= len(part.Choices) {
		return &TurnResult{State: StateRejected, Rejection: &Rejection{
			Kind:    RejectInvalidInput,
			Message: fmt.Sprintf("Choice %d is out of range for this part.", choiceIndex),
		}}, nil
	}
	choice := &part.Choices[choiceIndex]

	st, err := e.getOrCreate(ctx, userID)
	if err != nil {
		return &TurnResult{State: StateFaulted}, err
	}

	for _, req := range choice.Require {
		if req.IsFlagGate() {
			v, err := e.store.GetFlag(ctx, userID, req.Flag)
			if err != nil {
				return &TurnResult{State: StateFaulted}, fmt.Errorf("check flag %q: %w", req.Flag, err)
			}
			if v == 0 {
				return &TurnResult{State: StateRejected, Rejection: &Rejection{
					Kind:    RejectRequirementNotMet,
					Message: "That path is not open to you yet.",
					Flag:    req.Flag,
				}}, nil
			}
			continue
		}
		if have := st.Stat(req.Stat); have < req.Min {
			return &TurnResult{State: StateRejected, Rejection: &Rejection{
				Kind: RejectRequirementNotMet,
				Message: fmt.Sprintf("You need at least %d %s to choose this path.",
					req.Min, player.DisplayName(req.Stat)),
				Stat: req.Stat,
				Need: req.Min,
				Have: have,
			}}, nil
		}
	}

	unlocked, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return &TurnResult{State: StateFaulted}, fmt.Errorf("list achievements: %w", err)
	}
	unlockedSet := make(map[string]bool, len(unlocked))
	for _, a := range unlocked {
		unlockedSet[a.ID] = true
	}

	res := ResolveChoice(st, choice, unlockedSet, e.roller, e.logger)

	impact := strings.Join(res.Impact, ", ")
	if impact == "" {
		impact = "No effect"
	}
	commit := storage.TurnCommit{
		Update:       res.Update,
		AddItems:     res.AddItems,
		RemoveItems:  res.RemoveItems,
		SetFlags:     res.SetFlags,
		Achievements: res.NewAchievements,
		History: &player.HistoryEntry{
			PartID:     partID,
			ChoiceText: choice.Text,
			Impact:     impact,
			Timestamp:  e.now().UTC(),
		},
	}
	if err := e.store.CommitTurn(ctx, userID, commit); err != nil {
		e.logger.Error("Turn commit failed", "user_id", userID, "part_id", partID, "error", err)
		return &TurnResult{State: StateFaulted}, fmt.Errorf("commit turn: %w", err)
	}

	refreshed, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return &TurnResult{State: StateFaulted}, fmt.Errorf("reload player: %w", err)
	}

	result := &TurnResult{
		State:   StateDone,
		Success: res.Success,
		Player:  refreshed,
		Impact:  res.Impact,
	}
	for _, id := range res.NewAchievements {
		result.NewAchievements = append(result.NewAchievements, e.story.AchievementInfo(id))
	}
	if next, ok := e.story.Part(res.NextPartID); ok {
		result.Part = next
	} else {
		result.Ended = true
	}

	e.logger.Info("Turn committed", "user_id", userID, "part_id", partID,
		"next", res.NextPartID, "success", res.Success, "levels_gained", res.LevelsGained)
	return result, nil
}

// UseItem consumes one unit of an inventory item and applies its
// effect. Unknown ids, empty inventories, and no-op uses (a potion at
// zero corruption) are rejected without consuming anything.
func (e *Engine) UseItem(ctx context.Context, userID, itemID string) (*UseItemResult, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return &UseItemResult{Rejection: &Rejection{
			Kind:    RejectNotFound,
			Message: "No journey found. Start one first.",
		}}, nil
	}

	itemID = strings.ToLower(strings.TrimSpace(itemID))
	c, ok := consumables[itemID]
	if !ok {
		return &UseItemResult{Rejection: &Rejection{
			Kind:    RejectNotFound,
			Message: fmt.Sprintf("Unknown item %q.", itemID),
		}}, nil
	}

	has, err := e.store.HasItem(ctx, userID, itemID, 1)
	if err != nil {
		return nil, fmt.Errorf("check inventory: %w", err)
	}
	if !has {
		return &UseItemResult{Rejection: &Rejection{
			Kind:    RejectRequirementNotMet,
			Message: fmt.Sprintf("You do not have a %s.", c.name),
		}}, nil
	}

	var upd player.Update
	summary, reason, ok := c.apply(st, &upd)
	if !ok {
		return &UseItemResult{Rejection: &Rejection{
			Kind:    RejectInvalidInput,
			Message: reason,
		}}, nil
	}

	commit := storage.TurnCommit{
		Update:      upd,
		RemoveItems: []player.Item{{ID: itemID, Quantity: 1}},
	}
	if err := e.store.CommitTurn(ctx, userID, commit); err != nil {
		return nil, fmt.Errorf("commit item use: %w", err)
	}

	refreshed, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload player: %w", err)
	}
	e.logger.Info("Item used", "user_id", userID, "item_id", itemID)
	return &UseItemResult{
		Item:    &player.Item{ID: c.id, Name: c.name, Quantity: 1},
		Summary: summary,
		Player:  refreshed,
	}, nil
}

// ClaimDaily grants the once-per-day shard bonus and a chance at a
// bonus item. An early claim is rejected with the remaining wait.
func (e *Engine) ClaimDaily(ctx context.Context, userID string) (*DailyResult, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	st, err := e.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	if st.LastDaily != nil {
		if elapsed := now.Sub(*st.LastDaily); elapsed < DailyCooldown {
			remaining := DailyCooldown - elapsed
			return &DailyResult{Rejection: &Rejection{
				Kind: RejectCooldownActive,
				Message: fmt.Sprintf("Daily reward already claimed. Try again in %s.",
					remaining.Round(time.Minute)),
				RetryAfter: remaining,
			}}, nil
		}
	}

	shards := e.roller.Between(1, 5)
	total := st.Shards + shards
	upd := player.Update{Shards: &total, LastDaily: &now}

	result := &DailyResult{
		Granted: true,
		Shards:  shards,
		Summary: fmt.Sprintf("💎 +%d shards", shards),
	}
	commit := storage.TurnCommit{Update: upd}
	if bonus := dailyDrop(e.roller.Between(1, 100)); bonus != nil {
		commit.AddItems = []player.Item{*bonus}
		result.BonusItem = bonus
		result.Summary += " and " + bonus.Name
	}
	if err := e.store.CommitTurn(ctx, userID, commit); err != nil {
		return nil, fmt.Errorf("commit daily: %w", err)
	}

	refreshed, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload player: %w", err)
	}
	result.Player = refreshed
	e.logger.Info("Daily claimed", "user_id", userID, "shards", shards,
		"bonus", result.BonusItem != nil)
	return result, nil
}

// ResetProgress deletes the player entirely: state, inventory, flags,
// achievements, and history. The next start provisions from scratch.
func (e *Engine) ResetProgress(ctx context.Context, userID string) error {
	unlock := e.locks.acquire(userID)
	defer unlock()

	if err := e.store.Wipe(ctx, userID); err != nil {
		return fmt.Errorf("wipe player: %w", err)
	}
	e.logger.Info("Progress reset", "user_id", userID)
	return nil
}

// Profile returns the player's state and unlocked achievements.
func (e *Engine) Profile(ctx context.Context, userID string) (*ProfileResult, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return &ProfileResult{Rejection: notFoundRejection()}, nil
	}
	unlocked, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	result := &ProfileResult{Player: st}
	for _, a := range unlocked {
		result.Achievements = append(result.Achievements, e.story.AchievementInfo(a.ID))
	}
	return result, nil
}

// Inventory lists the player's items.
func (e *Engine) Inventory(ctx context.Context, userID string) ([]player.Item, *Rejection, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return nil, notFoundRejection(), nil
	}
	items, err := e.store.ListItems(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil, nil
}

// Achievements returns every achievement the story declares, plus any
// unlocked ids the content no longer declares, each with its unlock
// state for the player.
func (e *Engine) Achievements(ctx context.Context, userID string) ([]AchievementStatus, *Rejection, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return nil, notFoundRejection(), nil
	}
	unlocked, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list achievements: %w", err)
	}
	unlockedAt := make(map[string]time.Time, len(unlocked))
	for _, a := range unlocked {
		unlockedAt[a.ID] = a.UnlockedAt
	}

	ids := e.story.AchievementIDs()
	var extras []string
	for id := range unlockedAt {
		if !slices.Contains(ids, id) {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	ids = append(ids, extras...)

	statuses := make([]AchievementStatus, 0, len(ids))
	for _, id := range ids {
		s := AchievementStatus{AchievementInfo: e.story.AchievementInfo(id)}
		if at, ok := unlockedAt[id]; ok {
			s.Unlocked = true
			t := at
			s.UnlockedAt = &t
		}
		statuses = append(statuses, s)
	}
	return statuses, nil, nil
}

// History returns the player's most recent turns, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]player.HistoryEntry, *Rejection, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return nil, notFoundRejection(), nil
	}
	entries, err := e.store.RecentHistory(ctx, userID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("recent history: %w", err)
	}
	return entries, nil, nil
}

// WorldMap places the player on the story's location ladder.
func (e *Engine) WorldMap(ctx context.Context, userID string) (*MapResult, error) {
	st, err := e.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if st == nil {
		return &MapResult{Rejection: notFoundRejection()}, nil
	}
	return &MapResult{Locations: e.story.Locations(), Current: st.Location}, nil
}

func notFoundRejection() *Rejection {
	return &Rejection{
		Kind:    RejectNotFound,
		Message: "No journey found. Start one first.",
	}
}
