package pipeline

import "time"

// Frame is the context handed to the update callback on every executed
// tick. It carries the elapsed delta and the pipeline handles the game
// needs, so game code keeps no reference of its own to either.
type Frame struct {
	// Delta is the real time elapsed since the previous executed tick.
	Delta time.Duration

	Movement *Interpolator
	Emitter  *Particles

	aux map[string]time.Duration
}

// Observe adds a named phase timing (ai, collision, ...) to this tick's
// metrics sample. Repeated observations of the same name accumulate.
func (f *Frame) Observe(name string, d time.Duration) {
	if f.aux == nil {
		f.aux = make(map[string]time.Duration, 4)
	}
	f.aux[name] += d
}

// UpdateFunc runs the game's per tick logic.
type UpdateFunc func(*Frame)
