package pipeline

import "time"

// Clock abstracts wall time so the scheduler and governor can be driven
// deterministically in tests. Pass nil to constructors for the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
