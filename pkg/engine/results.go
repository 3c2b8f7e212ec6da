package engine

import (
	"time"

	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/story"
)

// JourneyResult is returned by StartJourney and ContinueJourney: the
// part to render plus the player's state, or a rejection.
type JourneyResult struct {
	// HasProgress is set when a start request finds an existing journey
	// past the first part. The journey is served as-is; callers decide
	// whether to offer a reset.
	HasProgress bool          `json:"has_progress,omitempty"`
	Part        *story.Part   `json:"part,omitempty"`
	Player      *player.State `json:"player,omitempty"`
	Rejection   *Rejection    `json:"rejection,omitempty"`
}

// TurnResult is the outcome of TakeChoice.
type TurnResult struct {
	State   TurnState `json:"state"`
	Success bool      `json:"success"`
	// Part is the next part to render; nil with Ended set when the
	// choice led off the graph and the journey is over.
	Part            *story.Part             `json:"part,omitempty"`
	Ended           bool                    `json:"ended,omitempty"`
	Player          *player.State           `json:"player,omitempty"`
	Impact          []string                `json:"impact,omitempty"`
	NewAchievements []story.AchievementInfo `json:"new_achievements,omitempty"`
	Rejection       *Rejection              `json:"rejection,omitempty"`
}

// UseItemResult is the outcome of consuming an inventory item.
type UseItemResult struct {
	Item      *player.Item  `json:"item,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Player    *player.State `json:"player,omitempty"`
	Rejection *Rejection    `json:"rejection,omitempty"`
}

// DailyResult is the outcome of a daily claim.
type DailyResult struct {
	Granted   bool          `json:"granted"`
	Shards    int           `json:"shards,omitempty"`
	BonusItem *player.Item  `json:"bonus_item,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Player    *player.State `json:"player,omitempty"`
	Rejection *Rejection    `json:"rejection,omitempty"`
}

// ProfileResult bundles the player's state with their unlocked
// achievements.
type ProfileResult struct {
	Player       *player.State           `json:"player,omitempty"`
	Achievements []story.AchievementInfo `json:"achievements,omitempty"`
	Rejection    *Rejection              `json:"rejection,omitempty"`
}

// AchievementStatus is one achievement with its unlock state for a
// particular player.
type AchievementStatus struct {
	story.AchievementInfo
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// MapResult places the player on the world location ladder.
type MapResult struct {
	Locations []string   `json:"locations"`
	Current   string     `json:"current"`
	Rejection *Rejection `json:"rejection,omitempty"`
}
