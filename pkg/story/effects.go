package story

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EffectKind enumerates the closed vocabulary of choice effects. New
// kinds are a compile-time decision: every consumer switches
// exhaustively over this type.
type EffectKind int

const (
	// EffectStatDelta adds a signed delta to a named numeric stat,
	// clamped to the stat's declared range afterwards.
	EffectStatDelta EffectKind = iota
	// EffectEnumAssign assigns a string value to an enum-valued field
	// (alignment, or a narrative flag such as dragon_alliance).
	EffectEnumAssign
	// EffectInventoryAdd grants an item.
	EffectInventoryAdd
	// EffectInventoryRemove removes item quantity, clamping at zero.
	EffectInventoryRemove
	// EffectFlagSet sets a named flag to 1 (boolean-style gate).
	EffectFlagSet
	// EffectRelationship adjusts a per-character relationship tracker.
	// The raw value has the form "<character>:<signedInteger>" and is
	// parsed at resolution time; malformed values are skipped there.
	EffectRelationship
	// EffectAchievement unlocks an achievement (insert-once).
	EffectAchievement
)

func (k EffectKind) String() string {
	switch k {
	case EffectStatDelta:
		return "stat_delta"
	case EffectEnumAssign:
		return "enum_assign"
	case EffectInventoryAdd:
		return "inventory_add"
	case EffectInventoryRemove:
		return "inventory_remove"
	case EffectFlagSet:
		return "flag_set"
	case EffectRelationship:
		return "relationship"
	case EffectAchievement:
		return "achievement"
	}
	return "unknown"
}

// ItemGrant names an item and quantity for inventory effects.
type ItemGrant struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"qty"`
}

// Effect is one declared mutation in a choice's effect set. Only the
// fields relevant to Kind are populated.
type Effect struct {
	Kind EffectKind

	// Stat is the stat or enum field name for EffectStatDelta and
	// EffectEnumAssign.
	Stat  string
	Delta int

	// Value carries the enum assignment, flag name, achievement id, or
	// the raw relationship string, depending on Kind.
	Value string

	// Item is set for inventory effects.
	Item ItemGrant
}

// parseEffects decodes an effects object while preserving declaration
// order. Go's map decoding loses ordering, and the impact log must list
// effects in the order they were authored, so the object is walked
// token by token.
func parseEffects(raw json.RawMessage) ([]Effect, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read effects object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("effects must be a JSON object, got %v", tok)
	}

	var effects []Effect
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read effect key: %w", err)
		}
		key := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read effect value for %q: %w", key, err)
		}

		eff, err := parseEffect(key, value)
		if err != nil {
			return nil, err
		}
		effects = append(effects, eff)
	}

	return effects, nil
}

func parseEffect(key string, value json.RawMessage) (Effect, error) {
	switch key {
	case "achievement":
		var id string
		if err := json.Unmarshal(value, &id); err != nil {
			return Effect{}, fmt.Errorf("achievement effect must be a string id: %w", err)
		}
		return Effect{Kind: EffectAchievement, Value: id}, nil

	case "inventory_add", "inventory_remove":
		kind := EffectInventoryAdd
		if key == "inventory_remove" {
			kind = EffectInventoryRemove
		}
		item, err := parseItemGrant(value)
		if err != nil {
			return Effect{}, fmt.Errorf("%s effect: %w", key, err)
		}
		return Effect{Kind: kind, Item: item}, nil

	case "flag":
		var name string
		if err := json.Unmarshal(value, &name); err != nil {
			return Effect{}, fmt.Errorf("flag effect must be a string name: %w", err)
		}
		return Effect{Kind: EffectFlagSet, Value: name}, nil

	case "relationship":
		var rel string
		if err := json.Unmarshal(value, &rel); err != nil {
			return Effect{}, fmt.Errorf("relationship effect must be a string: %w", err)
		}
		return Effect{Kind: EffectRelationship, Value: rel}, nil
	}

	// Remaining keys are stat names. Numeric values are additive
	// deltas; string values are enum assignments (alignment and
	// similarly-typed narrative flags).
	var num json.Number
	if err := json.Unmarshal(value, &num); err == nil {
		delta, err := num.Int64()
		if err != nil {
			return Effect{}, fmt.Errorf("stat effect %q must be an integer: %w", key, err)
		}
		return Effect{Kind: EffectStatDelta, Stat: key, Delta: int(delta)}, nil
	}

	var str string
	if err := json.Unmarshal(value, &str); err == nil {
		return Effect{Kind: EffectEnumAssign, Stat: key, Value: str}, nil
	}

	return Effect{}, fmt.Errorf("effect %q has unsupported value %s", key, string(value))
}

// parseItemGrant accepts either a bare item id (quantity 1) or a
// structured {id, name, qty} object.
func parseItemGrant(value json.RawMessage) (ItemGrant, error) {
	var id string
	if err := json.Unmarshal(value, &id); err == nil {
		return ItemGrant{ID: id, Name: id, Quantity: 1}, nil
	}

	var obj struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Qty      *int   `json:"qty"`
		Quantity *int   `json:"quantity"`
	}
	if err := json.Unmarshal(value, &obj); err != nil {
		return ItemGrant{}, fmt.Errorf("must be a string id or {id, name, qty} object: %w", err)
	}
	if obj.ID == "" {
		obj.ID = "unknown"
	}
	grant := ItemGrant{ID: obj.ID, Name: obj.Name, Quantity: 1}
	if grant.Name == "" {
		grant.Name = grant.ID
	}
	if obj.Qty != nil {
		grant.Quantity = *obj.Qty
	} else if obj.Quantity != nil {
		grant.Quantity = *obj.Quantity
	}
	return grant, nil
}
