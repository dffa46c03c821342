package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PerfLevel is the discrete quality level the governor adapts. Higher is
// better quality.
type PerfLevel int

const (
	LevelLow PerfLevel = iota
	LevelMedium
	LevelHigh
)

func (l PerfLevel) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	}
	return "unknown"
}

// PerfTrend summarizes whether frame times are getting better or worse.
type PerfTrend int

const (
	TrendStable PerfTrend = iota
	TrendImproving
	TrendDegrading
)

func (t PerfTrend) String() string {
	switch t {
	case TrendStable:
		return "stable"
	case TrendImproving:
		return "improving"
	case TrendDegrading:
		return "degrading"
	}
	return "unknown"
}

// Stats are averages over the most recent stats window.
type Stats struct {
	FPS        float64
	FrameTime  time.Duration
	UpdateTime time.Duration
	RenderTime time.Duration
	Aux        map[string]time.Duration
	Samples    int
}

// Level transition tuning. Transitions are rate limited so one bad frame
// burst cannot flap the level.
const (
	levelCooldown   = 2 * time.Second
	lowFrameTime    = 25 * time.Millisecond
	mediumFrameTime = 20 * time.Millisecond
	highFrameTime   = 16 * time.Millisecond
	trendDelta      = 2 * time.Millisecond
	poorFraction    = 0.7
)

// Governor keeps a sliding window of frame metrics and adapts a discrete
// quality level from it. It owns no goroutines and reads time only through
// its Clock, so it is driven entirely by Record calls.
type Governor struct {
	ring       metricsRing
	level      PerfLevel
	lastChange time.Time
	th         Thresholds
	clock      Clock
	log        *zap.Logger
}

// NewGovernor creates a governor starting at LevelHigh. A nil clock uses
// the system clock, a nil logger disables logging.
func NewGovernor(th Thresholds, log *zap.Logger, clock Clock) *Governor {
	if clock == nil {
		clock = systemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Governor{
		level: LevelHigh,
		th:    th,
		clock: clock,
		log:   log,
	}
}

// Record appends one frame sample and re-evaluates the level. The sample's
// aux map is copied, so the caller may reuse its map across frames.
func (g *Governor) Record(m FrameMetrics) {
	if m.Timestamp.IsZero() {
		m.Timestamp = g.clock.Now()
	}
	if len(m.Aux) > 0 {
		aux := make(map[string]time.Duration, len(m.Aux))
		for k, v := range m.Aux {
			aux[k] = v
		}
		m.Aux = aux
	}
	g.ring.push(m)
	g.evaluate()
}

func (g *Governor) evaluate() {
	if g.ring.len() < statsWindow {
		return
	}
	now := g.clock.Now()
	if now.Sub(g.lastChange) < levelCooldown {
		return
	}

	avg := g.avgFrameTime(statsWindow)
	next := g.level
	switch {
	case avg > lowFrameTime:
		next = LevelLow
	case avg > mediumFrameTime:
		next = LevelMedium
	case avg < highFrameTime:
		next = LevelHigh
	}
	if next == g.level {
		return
	}

	g.log.Info("performance level changed",
		zap.Stringer("from", g.level),
		zap.Stringer("to", next),
		zap.Duration("avg_frame_time", avg),
	)
	g.level = next
	g.lastChange = now
}

// Level returns the current quality level.
func (g *Governor) Level() PerfLevel {
	return g.level
}

// Stats averages the most recent samples. With no samples recorded yet all
// fields are zero.
func (g *Governor) Stats() Stats {
	n := min(statsWindow, g.ring.len())
	if n == 0 {
		return Stats{}
	}

	var s Stats
	aux := make(map[string]time.Duration)
	g.ring.tail(n, func(m FrameMetrics) {
		s.FrameTime += m.FrameTime
		s.UpdateTime += m.UpdateTime
		s.RenderTime += m.RenderTime
		for k, v := range m.Aux {
			aux[k] += v
		}
	})
	s.FrameTime /= time.Duration(n)
	s.UpdateTime /= time.Duration(n)
	s.RenderTime /= time.Duration(n)
	for k := range aux {
		aux[k] /= time.Duration(n)
	}
	s.Aux = aux
	s.Samples = n
	if s.FrameTime > 0 {
		s.FPS = float64(time.Second) / float64(s.FrameTime)
	}
	return s
}

// Trend compares the two most recent 10-sample windows. It reports stable
// until 20 samples exist.
func (g *Governor) Trend() PerfTrend {
	if g.ring.len() < 2*trendWindow {
		return TrendStable
	}
	var recent, prior time.Duration
	for i := 0; i < trendWindow; i++ {
		recent += g.ring.at(i).FrameTime
		prior += g.ring.at(i + trendWindow).FrameTime
	}
	recent /= trendWindow
	prior /= trendWindow

	switch {
	case recent > prior+trendDelta:
		return TrendDegrading
	case recent+trendDelta < prior:
		return TrendImproving
	}
	return TrendStable
}

// IsPerformanceGood reports whether the averaged window meets both the
// minimum FPS and the frame time budget. No samples yet means not good.
func (g *Governor) IsPerformanceGood() bool {
	s := g.Stats()
	if s.Samples == 0 {
		return false
	}
	return s.FPS >= g.th.MinFPS && s.FrameTime <= msToDuration(g.th.FrameMs)
}

// IsConsistentlyPoor reports whether more than 70% of the last 30 frames
// blew the frame budget. It needs a full stats window to say yes.
func (g *Governor) IsConsistentlyPoor() bool {
	if g.ring.len() < statsWindow {
		return false
	}
	budget := msToDuration(g.th.FrameMs)
	over := 0
	g.ring.tail(statsWindow, func(m FrameMetrics) {
		if m.FrameTime > budget {
			over++
		}
	})
	return float64(over)/float64(statsWindow) > poorFraction
}

// Recommendations derives advisory tuning hints from which budgets the
// current averages exceed. The pipeline never applies them itself.
func (g *Governor) Recommendations() []string {
	s := g.Stats()
	if s.Samples == 0 {
		return nil
	}

	var recs []string
	if ms := durationMs(s.FrameTime); ms > g.th.FrameMs {
		recs = append(recs, fmt.Sprintf("frame time %.1fms over %.0fms budget: lower the quality level or reduce entity count", ms, g.th.FrameMs))
	}
	if ms := durationMs(s.UpdateTime); ms > g.th.UpdateMs {
		recs = append(recs, fmt.Sprintf("update %.1fms over %.0fms budget: simplify per tick game logic", ms, g.th.UpdateMs))
	}
	if ms := durationMs(s.RenderTime); ms > g.th.RenderMs {
		recs = append(recs, fmt.Sprintf("render %.1fms over %.0fms budget: cut particle volume or drop the render scale", ms, g.th.RenderMs))
	}
	if ms := durationMs(s.Aux["ai"]); ms > g.th.AIMs {
		recs = append(recs, fmt.Sprintf("ai %.1fms over %.0fms budget: stagger decisions across ticks", ms, g.th.AIMs))
	}
	if ms := durationMs(s.Aux["collision"]); ms > g.th.CollisionMs {
		recs = append(recs, fmt.Sprintf("collision %.1fms over %.0fms budget: coarsen broad phase checks", ms, g.th.CollisionMs))
	}
	return recs
}

// FrameHistory appends the recorded frame times in milliseconds, oldest
// first, reusing buf. Suited for plotting.
func (g *Governor) FrameHistory(buf []float32) []float32 {
	g.ring.tail(g.ring.len(), func(m FrameMetrics) {
		buf = append(buf, float32(durationMs(m.FrameTime)))
	})
	return buf
}

func (g *Governor) avgFrameTime(n int) time.Duration {
	if n > g.ring.len() {
		n = g.ring.len()
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	g.ring.tail(n, func(m FrameMetrics) {
		sum += m.FrameTime
	})
	return sum / time.Duration(n)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
