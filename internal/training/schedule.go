package training

import (
	"math/rand/v2"
	"slices"
)

// Schedule decays the learning rate at milestone epochs.
type Schedule struct {
	Milestones []int
	Decay      float64
}

// After returns the learning rate for the epoch following epoch.
func (s Schedule) After(epoch int, lr float64) float64 {
	if s.Decay <= 0 || !slices.Contains(s.Milestones, epoch) {
		return lr
	}
	return lr * s.Decay
}

// perturb scales lr by a random factor in [0.95, 1.05).
func perturb(lr float64, rng *rand.Rand) float64 {
	return lr * (1 + (rng.Float64()-0.5)*0.1)
}
