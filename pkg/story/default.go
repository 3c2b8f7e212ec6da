package story

// Default returns the minimal built-in story used when authored content
// is missing or malformed: a start part, one follow-up, and a terminal
// exit. It exercises stat deltas, an achievement, and an enum assign.
func Default() *Story {
	return &Story{
		meta: Metadata{
			Name:    "Shard Journey",
			Version: "3.0",
			Variables: []string{
				"shards", "corruption", "mystery", "reputation",
				"alignment", "trust_aren", "world_stability", "xp", "level",
			},
			Achievements: []string{"first_choice"},
			Locations: []string{
				"🌌 Outer World",
				"🏰 Old City",
				"🌲 Enchanted Forest",
				"🏜️ Forgotten Desert",
				"💎 Crystal Realm",
				"🌑 Shadow Realm",
			},
		},
		parts: map[string]*Part{
			"PART_01": {
				ID:    "PART_01",
				Title: "⚡ The Discovery",
				Text:  "The ruins of a strange power site stretch before you. A shard pulses in the rubble.",
				Choices: []Choice{
					{
						Text:   "💎 Touch the shard at once",
						Emoji:  "💎",
						Next:   "PART_02",
						Chance: 100,
						Effects: []Effect{
							{Kind: EffectStatDelta, Stat: "shards", Delta: 1},
							{Kind: EffectStatDelta, Stat: "corruption", Delta: 5},
							{Kind: EffectStatDelta, Stat: "mystery", Delta: 3},
							{Kind: EffectAchievement, Value: "first_choice"},
						},
					},
					{
						Text:   "🔍 Study it first",
						Emoji:  "🔍",
						Next:   "PART_02",
						Chance: 100,
						Effects: []Effect{
							{Kind: EffectStatDelta, Stat: "shards", Delta: 1},
							{Kind: EffectStatDelta, Stat: "corruption", Delta: 2},
							{Kind: EffectStatDelta, Stat: "reputation", Delta: 1},
							{Kind: EffectAchievement, Value: "first_choice"},
						},
					},
				},
			},
			"PART_02": {
				ID:    "PART_02",
				Title: "The First Crossing",
				Text:  "You reach out. The air splits, and something on the far side watches you decide.",
				Choices: []Choice{
					{
						Text:   "🛡️ Stand your ground",
						Emoji:  "🛡️",
						Next:   "PART_03",
						Chance: 100,
						Effects: []Effect{
							{Kind: EffectEnumAssign, Stat: "alignment", Value: "Gray"},
						},
					},
				},
			},
		},
		achievements: map[string]AchievementInfo{
			"first_choice": {
				Name:        "First Decision",
				Description: "You made your first decision.",
				Emoji:       "🎯",
			},
		},
	}
}
