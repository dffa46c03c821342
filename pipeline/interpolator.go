package pipeline

import (
	"time"

	"github.com/kamstrup/intmap"
)

// EntityId identifies an entity tracked by the pipeline.
type EntityId uint64

// Point is a 2D position in world pixels.
type Point struct {
	X, Y float64
}

// Segments within this much progress of the target snap onto it exactly,
// so a leg never tails off into sub-pixel drift.
const snapThreshold = 0.95

type segment struct {
	cur      Point
	legStart Point
	target   Point
	progress float64
}

type entityTrack struct {
	segs []segment
}

// Interpolator eases per-entity segment chains between their logical
// targets. Each target change starts a new leg from the segment's current
// position; progress advances by a fixed per-tick step through the
// configured easing curve.
type Interpolator struct {
	tracks  *intmap.Map[EntityId, *entityTrack]
	ids     []EntityId
	speed   float64
	ease    EasingFunc
	enabled bool
}

// NewInterpolator creates an interpolator with the given per-tick speed in
// (0, 1] and easing curve. Zero speed and nil easing take defaults.
func NewInterpolator(speed float64, ease EasingFunc) *Interpolator {
	if speed == 0 {
		speed = 0.2
	}
	if ease == nil {
		ease = CubicOut
	}
	return &Interpolator{
		tracks:  intmap.New[EntityId, *entityTrack](64),
		speed:   clampRange(speed, 0.01, 1),
		ease:    ease,
		enabled: true,
	}
}

// Init registers an entity with all segments at rest on the given points.
// Re-initializing an entity replaces its segments.
func (ip *Interpolator) Init(id EntityId, points []Point) {
	segs := make([]segment, len(points))
	for i, p := range points {
		segs[i] = segment{cur: p, legStart: p, target: p, progress: 1}
	}
	if t, ok := ip.tracks.Get(id); ok {
		t.segs = segs
		return
	}
	ip.tracks.Put(id, &entityTrack{segs: segs})
	ip.ids = append(ip.ids, id)
}

// SetTargets starts a new leg for every segment whose target changed.
// Segment count changes are reconciled first: growth duplicates the last
// known segment (a snake growing by one starts its new tail where the old
// tail is), shrink truncates. Unknown entities are initialized at rest on
// the targets.
func (ip *Interpolator) SetTargets(id EntityId, targets []Point) {
	t, ok := ip.tracks.Get(id)
	if !ok {
		ip.Init(id, targets)
		return
	}

	for len(t.segs) < len(targets) {
		if n := len(t.segs); n > 0 {
			t.segs = append(t.segs, t.segs[n-1])
		} else {
			p := targets[len(t.segs)]
			t.segs = append(t.segs, segment{cur: p, legStart: p, target: p, progress: 1})
		}
	}
	if len(targets) < len(t.segs) {
		t.segs = t.segs[:len(targets)]
	}

	for i, target := range targets {
		seg := &t.segs[i]
		if !ip.enabled {
			*seg = segment{cur: target, legStart: target, target: target, progress: 1}
			continue
		}
		if seg.target != target {
			seg.legStart = seg.cur
			seg.target = target
			seg.progress = 0
		}
	}
}

// Advance steps every in-flight segment by the per-tick speed and moves it
// along its easing curve. Progress at or past the snap threshold lands the
// segment exactly on its target. The delta is not used to scale the step;
// ticks are the unit of progress.
func (ip *Interpolator) Advance(dt time.Duration) {
	if !ip.enabled {
		return
	}
	for _, id := range ip.ids {
		t, ok := ip.tracks.Get(id)
		if !ok {
			continue
		}
		for i := range t.segs {
			seg := &t.segs[i]
			if seg.progress >= 1 {
				continue
			}
			seg.progress += ip.speed
			if seg.progress >= snapThreshold {
				seg.progress = 1
				seg.cur = seg.target
				continue
			}
			f := ip.ease(seg.progress)
			seg.cur = Point{
				X: seg.legStart.X + (seg.target.X-seg.legStart.X)*f,
				Y: seg.legStart.Y + (seg.target.Y-seg.legStart.Y)*f,
			}
		}
	}
}

// Positions returns a copy of the entity's current, possibly mid-flight,
// segment positions. Unknown entities return nil.
func (ip *Interpolator) Positions(id EntityId) []Point {
	t, ok := ip.tracks.Get(id)
	if !ok {
		return nil
	}
	out := make([]Point, len(t.segs))
	for i, s := range t.segs {
		out[i] = s.cur
	}
	return out
}

// Remove forgets an entity. Removing an unknown entity is a no-op.
func (ip *Interpolator) Remove(id EntityId) {
	if _, ok := ip.tracks.Get(id); !ok {
		return
	}
	ip.tracks.Del(id)
	for i, other := range ip.ids {
		if other == id {
			ip.ids = append(ip.ids[:i], ip.ids[i+1:]...)
			break
		}
	}
}

// Tracked returns the number of registered entities.
func (ip *Interpolator) Tracked() int {
	return len(ip.ids)
}

// SetEnabled toggles interpolation. Disabling snaps every in-flight
// segment onto its target, and later SetTargets calls snap immediately.
func (ip *Interpolator) SetEnabled(enabled bool) {
	ip.enabled = enabled
	if enabled {
		return
	}
	for _, id := range ip.ids {
		t, ok := ip.tracks.Get(id)
		if !ok {
			continue
		}
		for i := range t.segs {
			seg := &t.segs[i]
			seg.cur = seg.target
			seg.legStart = seg.target
			seg.progress = 1
		}
	}
}

// Enabled reports whether interpolation is active.
func (ip *Interpolator) Enabled() bool {
	return ip.enabled
}

// SetSpeed changes the per-tick progress step, clamped to [0.01, 1].
func (ip *Interpolator) SetSpeed(speed float64) {
	ip.speed = clampRange(speed, 0.01, 1)
}

// SetEasing swaps the easing curve for subsequent advances. Nil restores
// the default.
func (ip *Interpolator) SetEasing(ease EasingFunc) {
	if ease == nil {
		ease = CubicOut
	}
	ip.ease = ease
}
