package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/story"
)

// Resolution is the pure output of resolving one choice: the state
// delta, the impact log, and where the story goes next. Nothing here
// has touched storage yet.
type Resolution struct {
	Success         bool
	NextPartID      string
	Update          player.Update
	AddItems        []player.Item
	RemoveItems     []player.Item
	SetFlags        map[string]int
	NewAchievements []string
	Impact          []string
	LevelsGained    int
}

// ResolveChoice computes the full delta for taking a choice. It performs
// no I/O and never mutates st. Effects are applied in declaration order
// and the impact log mirrors that order; the XP line (and any level-up
// line) always come last. unlocked holds already-earned achievement ids
// so repeats stay out of the result.
func ResolveChoice(st *player.State, ch *story.Choice, unlocked map[string]bool, roll Roller, logger *slog.Logger) Resolution {
	res := Resolution{
		Success:  roll.Between(1, 100) <= ch.Chance,
		SetFlags: make(map[string]int),
	}

	effects := ch.Effects
	res.NextPartID = ch.Next
	if !res.Success {
		effects = ch.FailEffects
		if ch.FailNext != "" {
			res.NextPartID = ch.FailNext
		}
	}
	next := res.NextPartID
	res.Update.CurrentPart = &next

	seen := make(map[string]bool)
	for _, eff := range effects {
		switch eff.Kind {
		case story.EffectAchievement:
			if unlocked[eff.Value] || seen[eff.Value] {
				continue
			}
			seen[eff.Value] = true
			res.NewAchievements = append(res.NewAchievements, eff.Value)

		case story.EffectInventoryAdd:
			res.AddItems = append(res.AddItems, player.Item{
				ID: eff.Item.ID, Name: eff.Item.Name, Quantity: eff.Item.Quantity,
			})
			res.Impact = append(res.Impact, fmt.Sprintf("Gained %s x%d", eff.Item.Name, eff.Item.Quantity))

		case story.EffectInventoryRemove:
			res.RemoveItems = append(res.RemoveItems, player.Item{
				ID: eff.Item.ID, Name: eff.Item.Name, Quantity: eff.Item.Quantity,
			})
			res.Impact = append(res.Impact, fmt.Sprintf("Lost %s x%d", eff.Item.Name, eff.Item.Quantity))

		case story.EffectFlagSet:
			res.SetFlags[eff.Value] = 1
			res.Impact = append(res.Impact, "Flag: "+eff.Value)

		case story.EffectRelationship:
			name, delta, err := parseRelationship(eff.Value)
			if err != nil {
				logger.Warn("Skipping malformed relationship effect",
					"value", eff.Value, "error", err)
				continue
			}
			res.SetFlags["rel_"+name] = delta
			res.Impact = append(res.Impact, fmt.Sprintf("Relationship %s: %+d", name, delta))

		case story.EffectEnumAssign:
			res.Update.SetEnum(eff.Stat, eff.Value)
			res.Impact = append(res.Impact, fmt.Sprintf("%s = %s", player.DisplayName(eff.Stat), eff.Value))

		case story.EffectStatDelta:
			if eff.Stat == "level" && eff.Delta < 0 {
				// Levels never go down, whatever the content says.
				logger.Warn("Skipping negative level delta", "delta", eff.Delta)
				continue
			}
			cur, ok := res.Update.Stat(eff.Stat)
			if !ok {
				cur = st.Stat(eff.Stat)
			}
			res.Update.SetStat(eff.Stat, player.ClampStat(eff.Stat, cur+eff.Delta))
			res.Impact = append(res.Impact, fmt.Sprintf("%s: %+d", player.DisplayName(eff.Stat), eff.Delta))
		}
	}

	gain := roll.Between(10, 20)
	total := st.XP + gain
	res.Update.SetStat("xp", total%100)
	res.Impact = append(res.Impact, fmt.Sprintf("XP: +%d", gain))
	if levels := total / 100; levels > 0 {
		res.LevelsGained = levels
		res.Update.SetStat("level", st.Level+levels)
		res.Impact = append(res.Impact, fmt.Sprintf("⬆️ Level %d!", st.Level+levels))
	}

	return res
}

// parseRelationship splits a "name:delta" value. The delta may carry an
// explicit sign.
func parseRelationship(v string) (string, int, error) {
	name, raw, ok := strings.Cut(v, ":")
	if !ok {
		return "", 0, fmt.Errorf("missing ':' separator")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, fmt.Errorf("empty character name")
	}
	delta, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, fmt.Errorf("bad delta %q: %w", raw, err)
	}
	return name, delta, nil
}
