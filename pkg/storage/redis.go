package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shardfall/journey-engine/pkg/player"
)

// RedisStore implements Store on Redis. Per-user rows live under
// prefixed keys; multi-row writes go through MULTI/EXEC so a turn is
// committed as one unit.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(addr string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func playerKey(userID string) string       { return "player:" + userID }
func inventoryKey(userID string) string    { return "inventory:" + userID }
func itemNamesKey(userID string) string    { return "inventory_names:" + userID }
func flagsKey(userID string) string        { return "flags:" + userID }
func achievementsKey(userID string) string { return "achievements:" + userID }
func historyKey(userID string) string      { return "history:" + userID }

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	s.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (s *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := s.Ping(ctx); err != nil {
			s.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		s.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (s *RedisStore) GetPlayer(ctx context.Context, userID string) (*player.State, error) {
	data, err := s.client.Get(ctx, playerKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // missing is a valid outcome
		}
		s.logger.Error("Failed to load player", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	var st player.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		s.logger.Error("Failed to unmarshal player", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}
	return &st, nil
}

func (s *RedisStore) CreatePlayer(ctx context.Context, st *player.State, starter []player.Item) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	created, err := s.client.SetNX(ctx, playerKey(st.UserID), string(data), 0).Result()
	if err != nil {
		s.logger.Error("Failed to create player", "user_id", st.UserID, "error", err)
		return fmt.Errorf("failed to create player: %w", err)
	}
	if !created {
		// Second create for an existing id must not duplicate or reset.
		return nil
	}

	if len(starter) > 0 {
		pipe := s.client.TxPipeline()
		for _, item := range starter {
			pipe.HIncrBy(ctx, inventoryKey(st.UserID), item.ID, int64(item.Quantity))
			pipe.HSet(ctx, itemNamesKey(st.UserID), item.ID, item.Name)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to grant starter inventory: %w", err)
		}
	}

	s.logger.Info("Player created", "user_id", st.UserID)
	return nil
}

func (s *RedisStore) UpdatePlayer(ctx context.Context, userID string, upd player.Update) error {
	st, err := s.GetPlayer(ctx, userID)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("player %s not found", userID)
	}

	upd.ApplyTo(st, time.Now().UTC())
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}
	if err := s.client.Set(ctx, playerKey(userID), string(data), 0).Err(); err != nil {
		s.logger.Error("Failed to update player", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}

func (s *RedisStore) UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	unlockedAt := time.Now().UTC().Format(time.RFC3339)
	added, err := s.client.HSetNX(ctx, achievementsKey(userID), achievementID, unlockedAt).Result()
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return added, nil
}

func (s *RedisStore) ListAchievements(ctx context.Context, userID string) ([]player.AchievementUnlock, error) {
	fields, err := s.client.HGetAll(ctx, achievementsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	unlocks := make([]player.AchievementUnlock, 0, len(fields))
	for id, ts := range fields {
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			s.logger.Warn("Achievement has unparsable timestamp", "user_id", userID, "achievement", id)
		}
		unlocks = append(unlocks, player.AchievementUnlock{ID: id, UnlockedAt: at})
	}
	sort.Slice(unlocks, func(i, j int) bool {
		if unlocks[i].UnlockedAt.Equal(unlocks[j].UnlockedAt) {
			return unlocks[i].ID < unlocks[j].ID
		}
		return unlocks[i].UnlockedAt.Before(unlocks[j].UnlockedAt)
	})
	return unlocks, nil
}

func (s *RedisStore) SetFlag(ctx context.Context, userID, name string, value int) error {
	if err := s.client.HSet(ctx, flagsKey(userID), name, value).Err(); err != nil {
		return fmt.Errorf("failed to set flag: %w", err)
	}
	return nil
}

func (s *RedisStore) GetFlag(ctx context.Context, userID, name string) (int, error) {
	val, err := s.client.HGet(ctx, flagsKey(userID), name).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get flag: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("flag %s has non-integer value %q: %w", name, val, err)
	}
	return n, nil
}

func (s *RedisStore) AddItem(ctx context.Context, userID string, item player.Item) error {
	current, err := s.itemQuantity(ctx, userID, item.ID)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	if current+item.Quantity <= 0 {
		// Negative grants clamp to zero and drop the row.
		if current == 0 {
			return nil
		}
		pipe.HDel(ctx, inventoryKey(userID), item.ID)
		pipe.HDel(ctx, itemNamesKey(userID), item.ID)
	} else {
		pipe.HIncrBy(ctx, inventoryKey(userID), item.ID, int64(item.Quantity))
		pipe.HSet(ctx, itemNamesKey(userID), item.ID, item.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveItem(ctx context.Context, userID, itemID string, quantity int) error {
	current, err := s.itemQuantity(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if current == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	if current-quantity <= 0 {
		pipe.HDel(ctx, inventoryKey(userID), itemID)
		pipe.HDel(ctx, itemNamesKey(userID), itemID)
	} else {
		pipe.HIncrBy(ctx, inventoryKey(userID), itemID, int64(-quantity))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

func (s *RedisStore) HasItem(ctx context.Context, userID, itemID string, quantity int) (bool, error) {
	current, err := s.itemQuantity(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	return current >= quantity, nil
}

func (s *RedisStore) ListItems(ctx context.Context, userID string) ([]player.Item, error) {
	quantities, err := s.client.HGetAll(ctx, inventoryKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	names, err := s.client.HGetAll(ctx, itemNamesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list item names: %w", err)
	}

	items := make([]player.Item, 0, len(quantities))
	for id, raw := range quantities {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			continue
		}
		name := names[id]
		if name == "" {
			name = id
		}
		items = append(items, player.Item{ID: id, Name: name, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, userID string, entry player.HistoryEntry) error {
	length, err := s.client.LLen(ctx, historyKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read history length: %w", err)
	}
	entry.Seq = length + 1

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	if err := s.client.RPush(ctx, historyKey(userID), string(data)).Err(); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentHistory(ctx context.Context, userID string, limit int) ([]player.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	raw, err := s.client.LRange(ctx, historyKey(userID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	// Redis returns oldest-first; callers want most recent first.
	entries := make([]player.HistoryEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e player.HistoryEntry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			s.logger.Warn("Skipping unparsable history entry", "user_id", userID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CommitTurn applies every row touched by a resolved turn inside one
// MULTI/EXEC. Quantities for removals and the history sequence are read
// first; the engine serializes turns per user, so the reads cannot race
// another writer for the same player.
func (s *RedisStore) CommitTurn(ctx context.Context, userID string, commit TurnCommit) error {
	st, err := s.GetPlayer(ctx, userID)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("player %s not found", userID)
	}

	commit.Update.ApplyTo(st, time.Now().UTC())
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	// Final quantities are precomputed so a negative grant (or a removal
	// past zero) drops the row instead of persisting a negative count.
	type grant struct {
		id    string
		name  string
		final int
	}
	grants := make([]grant, 0, len(commit.AddItems))
	pending := make(map[string]int)
	for _, item := range commit.AddItems {
		current, ok := pending[item.ID]
		if !ok {
			var err error
			current, err = s.itemQuantity(ctx, userID, item.ID)
			if err != nil {
				return err
			}
		}
		final := current + item.Quantity
		if final < 0 {
			final = 0
		}
		pending[item.ID] = final
		grants = append(grants, grant{id: item.ID, name: item.Name, final: final})
	}

	type removal struct {
		id    string
		final int
		count int
	}
	removals := make([]removal, 0, len(commit.RemoveItems))
	for _, item := range commit.RemoveItems {
		current, err := s.itemQuantity(ctx, userID, item.ID)
		if err != nil {
			return err
		}
		removals = append(removals, removal{id: item.ID, final: current - item.Quantity, count: item.Quantity})
	}

	var seq int64
	if commit.History != nil {
		length, err := s.client.LLen(ctx, historyKey(userID)).Result()
		if err != nil {
			return fmt.Errorf("failed to read history length: %w", err)
		}
		seq = length + 1
	}

	unlockedAt := time.Now().UTC().Format(time.RFC3339)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(userID), string(data), 0)
	for _, g := range grants {
		if g.final <= 0 {
			pipe.HDel(ctx, inventoryKey(userID), g.id)
			pipe.HDel(ctx, itemNamesKey(userID), g.id)
		} else {
			pipe.HSet(ctx, inventoryKey(userID), g.id, g.final)
			pipe.HSet(ctx, itemNamesKey(userID), g.id, g.name)
		}
	}
	for _, r := range removals {
		if r.final <= 0 {
			pipe.HDel(ctx, inventoryKey(userID), r.id)
			pipe.HDel(ctx, itemNamesKey(userID), r.id)
		} else {
			pipe.HIncrBy(ctx, inventoryKey(userID), r.id, int64(-r.count))
		}
	}
	for name, value := range commit.SetFlags {
		pipe.HSet(ctx, flagsKey(userID), name, value)
	}
	for _, id := range commit.Achievements {
		pipe.HSetNX(ctx, achievementsKey(userID), id, unlockedAt)
	}
	if commit.History != nil {
		entry := *commit.History
		entry.Seq = seq
		entryData, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal history entry: %w", err)
		}
		pipe.RPush(ctx, historyKey(userID), string(entryData))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Turn commit failed", "user_id", userID, "error", err)
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func (s *RedisStore) Wipe(ctx context.Context, userID string) error {
	// A single multi-key DEL is atomic in Redis, so a crash mid-wipe
	// cannot leave partial per-user state.
	err := s.client.Del(ctx,
		playerKey(userID),
		inventoryKey(userID),
		itemNamesKey(userID),
		flagsKey(userID),
		achievementsKey(userID),
		historyKey(userID),
	).Err()
	if err != nil {
		s.logger.Error("Failed to wipe player", "user_id", userID, "error", err)
		return fmt.Errorf("failed to wipe player: %w", err)
	}
	s.logger.Info("Player wiped", "user_id", userID)
	return nil
}

func (s *RedisStore) itemQuantity(ctx context.Context, userID, itemID string) (int, error) {
	val, err := s.client.HGet(ctx, inventoryKey(userID), itemID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read item quantity: %w", err)
	}
	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("item %s has non-integer quantity %q: %w", itemID, val, err)
	}
	return qty, nil
}
