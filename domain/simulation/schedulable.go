package simulation

import "math/rand"

// Schedulable is the capability every activatable unit implements. Act runs
// the unit's work for one step to completion; the returned TimePoint is the
// next time the unit wants to be woken. There is no mid-step suspension.
type Schedulable interface {
	Act(step TimeInterval, rng *rand.Rand) TimePoint
}
