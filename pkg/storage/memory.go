package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shardfall/journey-engine/pkg/player"
)

// MemoryStore is an in-memory Store used in tests and local development.
// A single mutex guards all tables, so every call (including CommitTurn
// and Wipe) is atomic.
type MemoryStore struct {
	mu           sync.Mutex
	players      map[string]*player.State
	inventory    map[string]map[string]*player.Item
	flags        map[string]map[string]int
	achievements map[string]map[string]time.Time
	history      map[string][]player.HistoryEntry

	// FailNext makes the next mutating call return this error without
	// touching state. Tests use it to simulate persistence failures.
	FailNext error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:      make(map[string]*player.State),
		inventory:    make(map[string]map[string]*player.Item),
		flags:        make(map[string]map[string]int),
		achievements: make(map[string]map[string]time.Time),
		history:      make(map[string][]player.HistoryEntry),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }

// takeFailure consumes FailNext. Callers must hold the mutex.
func (s *MemoryStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *MemoryStore) GetPlayer(ctx context.Context, userID string) (*player.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[userID].Clone(), nil
}

func (s *MemoryStore) CreatePlayer(ctx context.Context, st *player.State, starter []player.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, exists := s.players[st.UserID]; exists {
		return nil
	}
	s.players[st.UserID] = st.Clone()
	for _, item := range starter {
		s.addItemLocked(st.UserID, item)
	}
	return nil
}

func (s *MemoryStore) UpdatePlayer(ctx context.Context, userID string, upd player.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	st, ok := s.players[userID]
	if !ok {
		return fmt.Errorf("player %s not found", userID)
	}
	upd.ApplyTo(st, time.Now().UTC())
	return nil
}

func (s *MemoryStore) UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return false, err
	}
	return s.unlockLocked(userID, achievementID), nil
}

func (s *MemoryStore) unlockLocked(userID, achievementID string) bool {
	if s.achievements[userID] == nil {
		s.achievements[userID] = make(map[string]time.Time)
	}
	if _, exists := s.achievements[userID][achievementID]; exists {
		return false
	}
	s.achievements[userID][achievementID] = time.Now().UTC()
	return true
}

func (s *MemoryStore) ListAchievements(ctx context.Context, userID string) ([]player.AchievementUnlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlocks := make([]player.AchievementUnlock, 0, len(s.achievements[userID]))
	for id, at := range s.achievements[userID] {
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

func (s *MemoryStore) SetFlag(ctx context.Context, userID, name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.setFlagLocked(userID, name, value)
	return nil
}

func (s *MemoryStore) setFlagLocked(userID, name string, value int) {
	if s.flags[userID] == nil {
		s.flags[userID] = make(map[string]int)
	}
	s.flags[userID][name] = value
}

func (s *MemoryStore) GetFlag(ctx context.Context, userID, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[userID][name], nil
}

func (s *MemoryStore) AddItem(ctx context.Context, userID string, item player.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.addItemLocked(userID, item)
	return nil
}

func (s *MemoryStore) addItemLocked(userID string, item player.Item) {
	if s.inventory[userID] == nil {
		s.inventory[userID] = make(map[string]*player.Item)
	}
	if existing, ok := s.inventory[userID][item.ID]; ok {
		existing.Quantity += item.Quantity
		if item.Name != "" {
			existing.Name = item.Name
		}
		if existing.Quantity <= 0 {
			// Negative grants clamp to zero; no negative-quantity rows
			// ever persist.
			delete(s.inventory[userID], item.ID)
		}
		return
	}
	if item.Quantity <= 0 {
		return
	}
	copied := item
	if copied.Name == "" {
		copied.Name = copied.ID
	}
	s.inventory[userID][item.ID] = &copied
}

func (s *MemoryStore) RemoveItem(ctx context.Context, userID, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.removeItemLocked(userID, itemID, quantity)
	return nil
}

func (s *MemoryStore) removeItemLocked(userID, itemID string, quantity int) {
	existing, ok := s.inventory[userID][itemID]
	if !ok {
		return
	}
	existing.Quantity -= quantity
	if existing.Quantity <= 0 {
		// No negative-quantity rows ever persist.
		delete(s.inventory[userID], itemID)
	}
}

func (s *MemoryStore) HasItem(ctx context.Context, userID, itemID string, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.inventory[userID][itemID]
	return ok && existing.Quantity >= quantity, nil
}

func (s *MemoryStore) ListItems(ctx context.Context, userID string) ([]player.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]player.Item, 0, len(s.inventory[userID]))
	for _, item := range s.inventory[userID] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) AppendHistory(ctx context.Context, userID string, entry player.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.appendHistoryLocked(userID, entry)
	return nil
}

func (s *MemoryStore) appendHistoryLocked(userID string, entry player.HistoryEntry) {
	entry.Seq = int64(len(s.history[userID]) + 1)
	s.history[userID] = append(s.history[userID], entry)
}

func (s *MemoryStore) RecentHistory(ctx context.Context, userID string, limit int) ([]player.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	all := s.history[userID]
	if len(all) < limit {
		limit = len(all)
	}
	entries := make([]player.HistoryEntry, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		entries = append(entries, all[i])
	}
	return entries, nil
}

func (s *MemoryStore) CommitTurn(ctx context.Context, userID string, commit TurnCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	st, ok := s.players[userID]
	if !ok {
		return fmt.Errorf("player %s not found", userID)
	}

	commit.Update.ApplyTo(st, time.Now().UTC())
	for _, item := range commit.AddItems {
		s.addItemLocked(userID, item)
	}
	for _, item := range commit.RemoveItems {
		s.removeItemLocked(userID, item.ID, item.Quantity)
	}
	for name, value := range commit.SetFlags {
		s.setFlagLocked(userID, name, value)
	}
	for _, id := range commit.Achievements {
		s.unlockLocked(userID, id)
	}
	if commit.History != nil {
		s.appendHistoryLocked(userID, *commit.History)
	}
	return nil
}

func (s *MemoryStore) Wipe(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	delete(s.players, userID)
	delete(s.inventory, userID)
	delete(s.flags, userID)
	delete(s.achievements, userID)
	delete(s.history, userID)
	return nil
}
