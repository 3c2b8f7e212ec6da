package story

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// document mirrors the authored JSON schema.
type document struct {
	Metadata         Metadata                   `json:"metadata"`
	Parts            map[string]*Part           `json:"parts"`
	AchievementsData map[string]AchievementInfo `json:"achievements_data"`
}

// Load reads authored content from path. A missing or malformed file
// falls back to the built-in default graph rather than failing startup,
// so the engine is always in a servable state.
func Load(path string, logger *slog.Logger) *Story {
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("Story file not readable, using default story", "path", path, "error", err)
		}
		return Default()
	}

	s, err := Parse(data)
	if err != nil {
		if logger != nil {
			logger.Error("Story file malformed, using default story", "path", path, "error", err)
		}
		return Default()
	}

	if logger != nil {
		logger.Info("Story loaded",
			"name", s.meta.Name,
			"version", s.meta.Version,
			"parts", len(s.parts))
	}
	return s
}

// Parse decodes authored content from raw JSON.
func Parse(data []byte) (*Story, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse story content: %w", err)
	}
	if len(doc.Parts) == 0 {
		return nil, fmt.Errorf("story content has no parts")
	}

	parts := make(map[string]*Part, len(doc.Parts))
	for id, p := range doc.Parts {
		// The map key is authoritative for the part id.
		p.ID = id
		parts[id] = p
	}

	achievements := doc.AchievementsData
	if achievements == nil {
		achievements = make(map[string]AchievementInfo)
	}

	return &Story{
		meta:         doc.Metadata,
		parts:        parts,
		achievements: achievements,
	}, nil
}
