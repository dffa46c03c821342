package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Warning describes one FPS measurement window that landed below the
// configured minimum.
type Warning struct {
	FPS          float64
	AvgFrameTime time.Duration
}

const fpsWindow = time.Second

// Scheduler gates the host's per frame callback down to a fixed tick rate
// and measures the achieved rate over a sliding window. All methods are
// meant for the host callback goroutine; nothing is synchronized.
type Scheduler struct {
	interval time.Duration
	minFPS   float64
	clock    Clock
	log      *zap.Logger

	running     bool
	update      UpdateFunc
	lastTick    time.Time
	windowStart time.Time
	frames      int
	windowTime  time.Duration
	fps         float64
	warnFns     []func(Warning)
}

// NewScheduler creates a scheduler ticking at most once per interval.
// Windows measuring below minFPS notify the warning subscribers. Nil
// clock and logger take the system clock and no logging.
func NewScheduler(interval time.Duration, minFPS float64, log *zap.Logger, clock Clock) *Scheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	if clock == nil {
		clock = systemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		minFPS:   minFPS,
		clock:    clock,
		log:      log,
	}
}

// Start arms the scheduler with the update callback and re-arms the tick
// and FPS window timestamps, so resuming does not produce one inflated
// delta. Starting while running is a no-op.
func (s *Scheduler) Start(update UpdateFunc) {
	if s.running {
		return
	}
	now := s.clock.Now()
	s.update = update
	s.running = true
	s.lastTick = now
	s.windowStart = now
	s.frames = 0
	s.windowTime = 0
}

// Stop disarms the scheduler. Host callbacks arriving after Stop do
// nothing. Stopping twice is harmless.
func (s *Scheduler) Stop() {
	s.running = false
}

// Running reports whether the scheduler is armed.
func (s *Scheduler) Running() bool {
	return s.running
}

// Step gates one host callback. When a tick is due it resets the frame's
// observations, stamps the delta with the real elapsed time, runs the
// update callback once, and reports true. Callbacks arriving early (host
// faster than the target rate) or while stopped report false without
// side effects.
func (s *Scheduler) Step(f *Frame) bool {
	if !s.running {
		return false
	}
	now := s.clock.Now()
	delta := now.Sub(s.lastTick)
	if delta < s.interval {
		return false
	}
	s.lastTick = now
	clear(f.aux)
	f.Delta = delta
	s.invoke(f)
	s.observe(now, delta)
	return true
}

// invoke isolates update callback panics so a bad tick cannot take the
// host loop down. The rest of the tick proceeds normally.
func (s *Scheduler) invoke(f *Frame) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("update callback panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	if s.update != nil {
		s.update(f)
	}
}

func (s *Scheduler) observe(now time.Time, delta time.Duration) {
	s.frames++
	s.windowTime += delta
	elapsed := now.Sub(s.windowStart)
	if elapsed < fpsWindow {
		return
	}

	s.fps = float64(s.frames) / elapsed.Seconds()
	avg := s.windowTime / time.Duration(s.frames)
	if s.fps < s.minFPS {
		s.log.Warn("fps below minimum",
			zap.Float64("fps", s.fps),
			zap.Float64("min_fps", s.minFPS),
			zap.Duration("avg_frame_time", avg),
		)
		w := Warning{FPS: s.fps, AvgFrameTime: avg}
		for _, fn := range s.warnFns {
			fn(w)
		}
	}

	s.frames = 0
	s.windowTime = 0
	s.windowStart = now
}

// FPS returns the rate measured over the last completed window, zero
// until the first window completes.
func (s *Scheduler) FPS() float64 {
	return s.fps
}

// OnWarning subscribes fn to low FPS windows. Subscribers run
// synchronously on the host callback goroutine.
func (s *Scheduler) OnWarning(fn func(Warning)) {
	if fn != nil {
		s.warnFns = append(s.warnFns, fn)
	}
}
