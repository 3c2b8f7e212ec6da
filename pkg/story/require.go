package story

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Requirement gates a choice. All requirements must pass for the choice
// to proceed; the first failing one is reported to the player.
type Requirement struct {
	// Flag, when non-empty, requires the named flag to be set (nonzero).
	Flag string
	// Stat and Min describe a stat floor: Stat >= Min.
	Stat string
	Min  int
}

// IsFlagGate reports whether this requirement is a flag gate rather
// than a stat floor.
func (r Requirement) IsFlagGate() bool {
	return r.Flag != ""
}

// parseRequirements decodes a require object in declaration order, so
// "first failing requirement" is deterministic.
func parseRequirements(raw json.RawMessage) ([]Requirement, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read require object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("require must be a JSON object, got %v", tok)
	}

	var reqs []Requirement
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read require key: %w", err)
		}
		key := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read require value for %q: %w", key, err)
		}

		if key == "flag" {
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return nil, fmt.Errorf("flag requirement must be a string name: %w", err)
			}
			reqs = append(reqs, Requirement{Flag: name})
			continue
		}

		var num json.Number
		if err := json.Unmarshal(value, &num); err != nil {
			return nil, fmt.Errorf("requirement %q must be an integer threshold: %w", key, err)
		}
		min, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("requirement %q must be an integer threshold: %w", key, err)
		}
		reqs = append(reqs, Requirement{Stat: key, Min: int(min)})
	}

	return reqs, nil
}

// UnmarshalJSON decodes a choice, including its ordered requirement and
// effect sets. Chance defaults to 100 (always succeeds).
func (c *Choice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text        string          `json:"text"`
		Emoji       string          `json:"emoji"`
		Next        string          `json:"next"`
		FailNext    string          `json:"fail_next"`
		Chance      *int            `json:"chance"`
		Require     json.RawMessage `json:"require"`
		Effects     json.RawMessage `json:"effects"`
		FailEffects json.RawMessage `json:"fail_effects"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Text = raw.Text
	c.Emoji = raw.Emoji
	c.Next = raw.Next
	c.FailNext = raw.FailNext
	c.Chance = 100
	if raw.Chance != nil {
		c.Chance = *raw.Chance
	}

	var err error
	if c.Require, err = parseRequirements(raw.Require); err != nil {
		return fmt.Errorf("invalid require for choice %q: %w", c.Text, err)
	}
	if c.Effects, err = parseEffects(raw.Effects); err != nil {
		return fmt.Errorf("invalid effects for choice %q: %w", c.Text, err)
	}
	if c.FailEffects, err = parseEffects(raw.FailEffects); err != nil {
		return fmt.Errorf("invalid fail_effects for choice %q: %w", c.Text, err)
	}
	return nil
}
