package engine

import (
	"fmt"

	"github.com/shardfall/journey-engine/pkg/player"
)

// consumable describes one usable item: its display name and the state
// change applied when consumed. apply inspects the current state and
// either records assignments on upd or refuses with a reason; a refusal
// leaves the inventory untouched.
type consumable struct {
	id   string
	name string
	apply func(st *player.State, upd *player.Update) (summary, reason string, ok bool)
}

var consumables = map[string]consumable{
	"potion": {
		id:   "potion",
		name: "🧪 Purity Potion",
		apply: func(st *player.State, upd *player.Update) (string, string, bool) {
			if st.Corruption <= 0 {
				return "", "Your corruption is already at its lowest.", false
			}
			v := player.ClampStat("corruption", st.Corruption-10)
			upd.SetStat("corruption", v)
			return fmt.Sprintf("Corruption fell by 10. Now %d/100.", v), "", true
		},
	},
	"crystal_heart": {
		id:   "crystal_heart",
		name: "💖 Crystal Heart",
		apply: func(st *player.State, upd *player.Update) (string, string, bool) {
			if st.WorldStability >= 100 {
				return "", "The world is already fully stable.", false
			}
			v := player.ClampStat("world_stability", st.WorldStability+10)
			upd.SetStat("world_stability", v)
			return fmt.Sprintf("World stability rose by 10. Now %d/100.", v), "", true
		},
	},
	"pure_shard": {
		id:   "pure_shard",
		name: "✨ Pure Shard",
		apply: func(st *player.State, upd *player.Update) (string, string, bool) {
			v := player.ClampStat("corruption", st.Corruption-15)
			upd.SetStat("corruption", v)
			upd.SetEnum("alignment", string(player.AlignmentLight))
			return fmt.Sprintf("Corruption fell by 15 and your alignment shifted to Light. Corruption now %d/100.", v), "", true
		},
	},
	"dark_core": {
		id:   "dark_core",
		name: "🌑 Dark Core",
		apply: func(st *player.State, upd *player.Update) (string, string, bool) {
			v := player.ClampStat("corruption", st.Corruption+20)
			upd.SetStat("corruption", v)
			upd.SetEnum("alignment", string(player.AlignmentDark))
			return fmt.Sprintf("Corruption rose by 20 and your alignment shifted to Dark. Corruption now %d/100.", v), "", true
		},
	},
}

// StarterItems is the inventory granted when a player is first created.
func StarterItems() []player.Item {
	return []player.Item{{ID: "potion", Name: consumables["potion"].name, Quantity: 3}}
}

// dailyDrop maps a d100 roll to the bonus item for a daily claim, or
// nil for no drop. Lower thresholds are the common items.
func dailyDrop(roll int) *player.Item {
	var id string
	switch {
	case roll <= 30:
		id = "potion"
	case roll <= 45:
		id = "crystal_heart"
	case roll <= 55:
		id = "pure_shard"
	case roll <= 60:
		id = "dark_core"
	default:
		return nil
	}
	c := consumables[id]
	return &player.Item{ID: c.id, Name: c.name, Quantity: 1}
}
