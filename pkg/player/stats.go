package player

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// statRange is the declared bound for a clamped stat.
type statRange struct {
	min, max int
}

// Bounded stats and their declared ranges. Stats not listed here floor
// at zero with no ceiling (shards and any authored extras).
var statRanges = map[string]statRange{
	"corruption":      {0, 100},
	"mystery":         {0, 100},
	"world_stability": {0, 100},
	"trust_aren":      {0, 100},
	"reputation":      {-50, 50},
}

// ClampStat bounds a stat value to its declared range. Unlisted stats
// floor at zero and have no ceiling.
func ClampStat(name string, value int) int {
	if r, ok := statRanges[name]; ok {
		if value < r.min {
			return r.min
		}
		if value > r.max {
			return r.max
		}
		return value
	}
	if value < 0 {
		return 0
	}
	return value
}

var titleCaser = cases.Title(language.English)

// Display-name overrides for stats whose mechanical underscore form
// reads poorly.
var displayNames = map[string]string{
	"xp":         "XP",
	"trust_aren": "Aren's Trust",
}

// DisplayName renders a stat key for impact logs and profile views,
// e.g. "world_stability" -> "World Stability".
func DisplayName(stat string) string {
	if name, ok := displayNames[stat]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(stat, "_", " "))
}
