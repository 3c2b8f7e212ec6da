package engine

import "math/rand/v2"

// Roller supplies the uniform integer draws the engine needs: the
// percentile branch roll, XP gains, and daily bonuses. Tests install
// deterministic rollers.
type Roller interface {
	// Between returns a uniform integer in [min, max] inclusive.
	Between(min, max int) int
}

type defaultRoller struct{}

func (defaultRoller) Between(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.IntN(max-min+1)
}

// NewRoller returns the production Roller backed by math/rand/v2.
func NewRoller() Roller {
	return defaultRoller{}
}
