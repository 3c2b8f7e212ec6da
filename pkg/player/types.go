package player

import "time"

// Item is an inventory row. Quantity is always positive in storage; a
// removal that reaches zero deletes the row.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// AchievementUnlock records one unlocked achievement. Unlocks are
// insert-once: a second unlock attempt is a no-op.
type AchievementUnlock struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// HistoryEntry is one committed turn in the append-only journey log.
// Seq increases with each entry and is assigned by the store.
type HistoryEntry struct {
	Seq        int64     `json:"seq"`
	PartID     string    `json:"part_id"`
	ChoiceText string    `json:"choice_text"`
	Impact     string    `json:"impact"`
	Timestamp  time.Time `json:"timestamp"`
}
