package pipeline

import "time"

// FrameMetrics is one frame's timing sample. Aux carries named phase
// timings reported by the game (ai, collision, ...) alongside the phases
// the pipeline measures itself.
type FrameMetrics struct {
	FrameTime  time.Duration
	UpdateTime time.Duration
	RenderTime time.Duration
	Aux        map[string]time.Duration
	Timestamp  time.Time
}

const (
	historySize = 60
	statsWindow = 30
	trendWindow = 10
)

// metricsRing holds the most recent historySize samples. Recording past
// capacity evicts the oldest sample.
type metricsRing struct {
	buf  [historySize]FrameMetrics
	head int
	n    int
}

func (r *metricsRing) push(m FrameMetrics) {
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *metricsRing) len() int { return r.n }

// at returns the i-th most recent sample, 0 being the newest. The caller
// keeps i < len().
func (r *metricsRing) at(i int) FrameMetrics {
	idx := (r.head - 1 - i + 2*len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

// tail visits the most recent n samples, oldest first, without allocating.
func (r *metricsRing) tail(n int, visit func(FrameMetrics)) {
	if n > r.n {
		n = r.n
	}
	for i := n - 1; i >= 0; i-- {
		visit(r.at(i))
	}
}
