package story

import (
	"slices"
	"sort"
)

// StartPartID is the entry point of every journey. Authored content is
// expected to define it; the built-in default graph always does.
const StartPartID = "PART_01"

// Part is one authored story segment with narrative text and choices.
type Part struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Image   string   `json:"image,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is an option within a Part. It may gate on requirements,
// branch probabilistically, and declares effects to apply on resolution.
type Choice struct {
	Text     string `json:"text"`
	Emoji    string `json:"emoji,omitempty"`
	Next     string `json:"next"`
	FailNext string `json:"fail_next,omitempty"`

	// Chance is the success probability in percent, 1-100.
	// A roll above Chance routes to FailNext (or Next) with FailEffects.
	Chance int `json:"chance"`

	Require     []Requirement `json:"-"`
	Effects     []Effect      `json:"-"`
	FailEffects []Effect      `json:"-"`
}

// AchievementInfo is display metadata for an achievement.
type AchievementInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

// Metadata describes the authored content document.
type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Variables    []string `json:"variables"`
	Achievements []string `json:"achievements"`
	Locations    []string `json:"locations,omitempty"`
}

// Story is the immutable graph of authored content. It is loaded once at
// startup and never mutated afterwards, so it is safe for concurrent use.
type Story struct {
	meta         Metadata
	parts        map[string]*Part
	achievements map[string]AchievementInfo
}

// Metadata returns the content document metadata.
func (s *Story) Metadata() Metadata {
	return s.meta
}

// Part returns the part with the given id. Absence is a valid outcome:
// it signals the end of the journey, not an error.
func (s *Story) Part(id string) (*Part, bool) {
	p, ok := s.parts[id]
	return p, ok
}

// AchievementInfo returns display metadata for an achievement. Unknown
// ids get a synthesized placeholder so authored-content gaps never
// interrupt gameplay.
func (s *Story) AchievementInfo(id string) AchievementInfo {
	if info, ok := s.achievements[id]; ok {
		info.ID = id
		return info
	}
	return AchievementInfo{
		ID:          id,
		Name:        id,
		Description: "A mysterious achievement",
		Emoji:       "🏆",
	}
}

// AchievementIDs returns the declared achievement ids in a stable order.
func (s *Story) AchievementIDs() []string {
	ids := make([]string, 0, len(s.achievements))
	for _, id := range s.meta.Achievements {
		if _, ok := s.achievements[id]; ok {
			ids = append(ids, id)
		}
	}
	// Achievements present in achievements_data but missing from
	// metadata still render on the achievements screen.
	extra := make([]string, 0)
	for id := range s.achievements {
		if !slices.Contains(ids, id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

// Locations returns the authored world-map ladder.
func (s *Story) Locations() []string {
	return s.meta.Locations
}

// PartIDs returns all part ids. Used by the content validator.
func (s *Story) PartIDs() []string {
	ids := make([]string, 0, len(s.parts))
	for id := range s.parts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
