package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shardfall/journey-engine/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &StoryValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Story file is valid!")
}

type StoryValidator struct {
	errors []string
}

func (v *StoryValidator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	s, err := story.Parse(data)
	if err != nil {
		return fmt.Errorf("file %s failed to parse: %w", filename, err)
	}

	v.errors = nil
	v.validateStory(s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *StoryValidator) validateStory(s *story.Story) {
	ids := s.PartIDs()
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	if !known[story.StartPartID] {
		v.errorf("missing start part %q", story.StartPartID)
	}

	declared := make(map[string]bool)
	for _, id := range s.AchievementIDs() {
		declared[id] = true
	}

	for _, id := range ids {
		part, _ := s.Part(id)
		v.validatePart(part, declared)
	}
}

func (v *StoryValidator) validatePart(p *story.Part, declared map[string]bool) {
	if p.Text == "" {
		v.errorf("part %s: empty text", p.ID)
	}
	for i, ch := range p.Choices {
		if ch.Text == "" {
			v.errorf("part %s choice %d: empty text", p.ID, i)
		}
		if ch.Chance < 0 || ch.Chance > 100 {
			v.errorf("part %s choice %d: chance %d out of range [0,100]", p.ID, i, ch.Chance)
		}
		// A next pointing off the graph ends the journey; that is
		// legal, but a fail_next with no chance of firing is not.
		if ch.FailNext != "" && ch.Chance >= 100 {
			v.errorf("part %s choice %d: fail_next %q can never be reached (chance %d)", p.ID, i, ch.FailNext, ch.Chance)
		}
		for _, eff := range ch.Effects {
			v.validateEffect(p.ID, i, eff, declared)
		}
		for _, eff := range ch.FailEffects {
			v.validateEffect(p.ID, i, eff, declared)
		}
	}
}

func (v *StoryValidator) validateEffect(partID string, choice int, eff story.Effect, declared map[string]bool) {
	switch eff.Kind {
	case story.EffectAchievement:
		if !declared[eff.Value] {
			v.errorf("part %s choice %d: achievement %q has no metadata entry", partID, choice, eff.Value)
		}
	case story.EffectRelationship:
		name, raw, ok := strings.Cut(eff.Value, ":")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(raw) == "" {
			v.errorf("part %s choice %d: malformed relationship %q (want name:delta)", partID, choice, eff.Value)
		}
	case story.EffectInventoryAdd, story.EffectInventoryRemove:
		if eff.Item.ID == "" || eff.Item.ID == "unknown" {
			v.errorf("part %s choice %d: inventory effect without item id", partID, choice)
		}
		if eff.Item.Quantity <= 0 {
			v.errorf("part %s choice %d: inventory effect with quantity %d", partID, choice, eff.Item.Quantity)
		}
	}
}
