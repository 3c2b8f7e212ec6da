package player

import "time"

// Update is a sparse set of field assignments produced by effect
// resolution and merged into the stored state. Nil pointers mean
// "leave unchanged".
type Update struct {
	CurrentPart    *string    `json:"current_part,omitempty"`
	Shards         *int       `json:"shards,omitempty"`
	Corruption     *int       `json:"corruption,omitempty"`
	Mystery        *int       `json:"mystery,omitempty"`
	Reputation     *int       `json:"reputation,omitempty"`
	Alignment      *Alignment `json:"alignment,omitempty"`
	TrustAren      *int       `json:"trust_aren,omitempty"`
	WorldStability *int       `json:"world_stability,omitempty"`
	XP             *int       `json:"xp,omitempty"`
	Level          *int       `json:"level,omitempty"`
	Location       *string    `json:"location,omitempty"`
	LastDaily      *time.Time `json:"last_daily,omitempty"`

	Narrative map[string]string `json:"narrative,omitempty"`
	Extra     map[string]int    `json:"extra,omitempty"`
}

// IsEmpty reports whether the update carries no assignments.
func (u *Update) IsEmpty() bool {
	return u == nil || (u.CurrentPart == nil && u.Shards == nil &&
		u.Corruption == nil && u.Mystery == nil && u.Reputation == nil &&
		u.Alignment == nil && u.TrustAren == nil && u.WorldStability == nil &&
		u.XP == nil && u.Level == nil && u.Location == nil &&
		u.LastDaily == nil && len(u.Narrative) == 0 && len(u.Extra) == 0)
}

// SetStat records an assignment for a named numeric stat. Unknown names
// land in Extra.
func (u *Update) SetStat(name string, value int) {
	v := value
	switch name {
	case "shards":
		u.Shards = &v
	case "corruption":
		u.Corruption = &v
	case "mystery":
		u.Mystery = &v
	case "reputation":
		u.Reputation = &v
	case "trust_aren":
		u.TrustAren = &v
	case "world_stability":
		u.WorldStability = &v
	case "xp":
		u.XP = &v
	case "level":
		u.Level = &v
	default:
		if u.Extra == nil {
			u.Extra = make(map[string]int)
		}
		u.Extra[name] = v
	}
}

// Stat returns the pending assignment for a named stat, if any.
func (u *Update) Stat(name string) (int, bool) {
	if u == nil {
		return 0, false
	}
	var p *int
	switch name {
	case "shards":
		p = u.Shards
	case "corruption":
		p = u.Corruption
	case "mystery":
		p = u.Mystery
	case "reputation":
		p = u.Reputation
	case "trust_aren":
		p = u.TrustAren
	case "world_stability":
		p = u.WorldStability
	case "xp":
		p = u.XP
	case "level":
		p = u.Level
	default:
		v, ok := u.Extra[name]
		return v, ok
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SetEnum records an enum assignment. "alignment" and "location" map
// to typed fields; everything else is a narrative flag.
func (u *Update) SetEnum(name, value string) {
	if name == "alignment" {
		a := Alignment(value)
		u.Alignment = &a
		return
	}
	if name == "location" {
		v := value
		u.Location = &v
		return
	}
	if u.Narrative == nil {
		u.Narrative = make(map[string]string)
	}
	u.Narrative[name] = value
}

// ApplyTo merges the update into a state and stamps LastUpdated.
func (u *Update) ApplyTo(s *State, now time.Time) {
	if u == nil {
		return
	}
	if u.CurrentPart != nil {
		s.CurrentPart = *u.CurrentPart
	}
	if u.Shards != nil {
		s.Shards = *u.Shards
	}
	if u.Corruption != nil {
		s.Corruption = *u.Corruption
	}
	if u.Mystery != nil {
		s.Mystery = *u.Mystery
	}
	if u.Reputation != nil {
		s.Reputation = *u.Reputation
	}
	if u.Alignment != nil {
		s.Alignment = *u.Alignment
	}
	if u.TrustAren != nil {
		s.TrustAren = *u.TrustAren
	}
	if u.WorldStability != nil {
		s.WorldStability = *u.WorldStability
	}
	if u.XP != nil {
		s.XP = *u.XP
	}
	if u.Level != nil {
		s.Level = *u.Level
	}
	if u.Location != nil {
		s.Location = *u.Location
	}
	if u.LastDaily != nil {
		t := *u.LastDaily
		s.LastDaily = &t
	}
	for k, v := range u.Narrative {
		if s.Narrative == nil {
			s.Narrative = make(map[string]string)
		}
		s.Narrative[k] = v
	}
	for k, v := range u.Extra {
		if s.Extra == nil {
			s.Extra = make(map[string]int)
		}
		s.Extra[k] = v
	}
	s.LastUpdated = now
}
