package simulation

import "fmt"

// TimePoint is a tick on the simulated clock. It has no relation to wall
// clock time; the driver decides how many ticks a run covers.
type TimePoint uint64

// TimeInterval is the half-open range [Lower, Upper) on the simulated clock.
// A simulation step activates agents exactly once per interval.
type TimeInterval struct {
	Lower TimePoint
	Upper TimePoint
}

// Empty reports whether the interval contains no time points.
func (i TimeInterval) Empty() bool {
	return i.Lower >= i.Upper
}

// Contains reports whether t falls inside [Lower, Upper).
func (i TimeInterval) Contains(t TimePoint) bool {
	return t >= i.Lower && t < i.Upper
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("[%d, %d)", i.Lower, i.Upper)
}
