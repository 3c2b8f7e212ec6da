package player

import "time"

// Alignment is the player's moral orientation.
type Alignment string

const (
	AlignmentLight Alignment = "Light"
	AlignmentGray  Alignment = "Gray"
	AlignmentDark  Alignment = "Dark"
)

// Emoji returns the display emoji for an alignment.
func (a Alignment) Emoji() string {
	switch a {
	case AlignmentLight:
		return "✨"
	case AlignmentDark:
		return "🌑"
	default:
		return "⚪"
	}
}

// DefaultLocation is the starting location of every journey.
const DefaultLocation = "Ruins"

// State is the persistent per-user record the engine reads and writes.
// All clamped stats stay inside their declared range after every commit
// (see ClampStat); XP is always in [0,100) and Level only increases.
type State struct {
	UserID         string    `json:"user_id"`
	CurrentPart    string    `json:"current_part"`
	Shards         int       `json:"shards"`
	Corruption     int       `json:"corruption"`
	Mystery        int       `json:"mystery"`
	Reputation     int       `json:"reputation"`
	Alignment      Alignment `json:"alignment"`
	TrustAren      int       `json:"trust_aren"`
	WorldStability int       `json:"world_stability"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	Location       string    `json:"location"`

	// Narrative holds enum-valued story fields assigned by effects
	// (dragon_alliance, rival_status, ...). Alignment is typed above.
	Narrative map[string]string `json:"narrative,omitempty"`

	// Extra holds numeric stats outside the fixed set. They floor at
	// zero and have no ceiling.
	Extra map[string]int `json:"extra,omitempty"`

	LastDaily   *time.Time `json:"last_daily,omitempty"`
	LastUpdated time.Time  `json:"last_updated"`
}

// NewState seeds the default stats for a fresh player: everything zero
// except world stability (100) and level (1), Gray alignment, positioned
// at the start of the story.
func NewState(userID, startPart string) *State {
	return &State{
		UserID:         userID,
		CurrentPart:    startPart,
		Alignment:      AlignmentGray,
		WorldStability: 100,
		Level:          1,
		Location:       DefaultLocation,
		LastUpdated:    time.Now().UTC(),
	}
}

// Stat returns the named numeric stat. Unknown names read from Extra
// and default to zero, matching how authored content may introduce
// stats the fixed schema does not know.
func (s *State) Stat(name string) int {
	switch name {
	case "shards":
		return s.Shards
	case "corruption":
		return s.Corruption
	case "mystery":
		return s.Mystery
	case "reputation":
		return s.Reputation
	case "trust_aren":
		return s.TrustAren
	case "world_stability":
		return s.WorldStability
	case "xp":
		return s.XP
	case "level":
		return s.Level
	}
	return s.Extra[name]
}

// Clone returns a deep copy. Stores hand out clones so callers never
// share mutable state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Narrative != nil {
		c.Narrative = make(map[string]string, len(s.Narrative))
		for k, v := range s.Narrative {
			c.Narrative[k] = v
		}
	}
	if s.Extra != nil {
		c.Extra = make(map[string]int, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	if s.LastDaily != nil {
		t := *s.LastDaily
		c.LastDaily = &t
	}
	return &c
}
