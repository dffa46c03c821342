// Package pipeline is a presentation layer for real time 2D games: fixed
// rate frame scheduling, adaptive quality governance, eased movement
// interpolation, typed particles and a batched renderer with a gpu and a
// cpu raster backend.
package pipeline

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// Visual describes how a tracked entity's segments are drawn.
type Visual struct {
	W, H  float64
	Color RGBA
	Shape Shape
}

// Pipeline owns every presentation subsystem and wires one frame's flow:
// Step gates the tick and runs game logic, interpolation and particles;
// Draw renders the batch and feeds the governor. Create one per game;
// there is no package level state. All methods belong to the host's
// frame callback goroutine.
type Pipeline struct {
	cfg   Config
	caps  Capabilities
	log   *zap.Logger
	clock Clock

	sched   *Scheduler
	gov     *Governor
	interp  *Interpolator
	parts   *Particles
	rend    *Renderer
	visuals *intmap.Map[EntityId, Visual]

	frame      Frame
	prims      []Primitive
	level      PerfLevel
	tick       tickTiming
	hasPending bool
}

type tickTiming struct {
	delta     time.Duration
	update    time.Duration
	interp    time.Duration
	particles time.Duration
}

// New builds a pipeline from the config: probes the device (unless the
// config overrides the capabilities), selects the renderer backend, and
// wires the subsystems. The only error is an unusable drawing surface;
// everything else degrades.
func New(cfg Config) (*Pipeline, error) {
	cfg = cfg.Normalized()
	log := cfg.logger()
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}

	caps := ProbeDevice()
	if cfg.Capabilities != nil {
		caps = *cfg.Capabilities
	}

	rend, err := NewRenderer(cfg.Renderer, caps, log)
	if err != nil {
		return nil, err
	}

	speed := cfg.Interpolation.Speed
	if speed == 0 {
		speed = tierSpeed(caps.Tier)
	}
	interp := NewInterpolator(speed, EasingByName(cfg.Interpolation.Easing))
	if cfg.Interpolation.Disabled {
		interp.SetEnabled(false)
	}

	parts := NewParticles(cfg.Particles.Gravity, cfg.Seed)
	parts.SetScale(cfg.Particles.Scale)

	p := &Pipeline{
		cfg:     cfg,
		caps:    caps,
		log:     log,
		clock:   clock,
		sched:   NewScheduler(cfg.targetInterval(), cfg.Thresholds.MinFPS, log, clock),
		gov:     NewGovernor(cfg.Thresholds, log, clock),
		interp:  interp,
		parts:   parts,
		rend:    rend,
		visuals: intmap.New[EntityId, Visual](64),
		level:   LevelHigh,
	}
	p.frame = Frame{
		Movement: interp,
		Emitter:  parts,
		aux:      make(map[string]time.Duration, 4),
	}

	log.Info("pipeline ready",
		zap.Int("target_fps", cfg.TargetFPS),
		zap.String("backend", rend.Backend()),
		zap.Stringer("tier", caps.Tier),
	)
	return p, nil
}

// Start arms the frame loop with the game's update callback.
func (p *Pipeline) Start(update UpdateFunc) {
	p.sched.Start(update)
}

// Stop halts ticking. Draw keeps presenting the last state.
func (p *Pipeline) Stop() {
	p.sched.Stop()
}

// Step is the host Update entry point. At most one tick executes per
// call: game update, then interpolation, then particles, each timed into
// the tick's pending metrics sample.
func (p *Pipeline) Step() bool {
	t0 := p.clock.Now()
	if !p.sched.Step(&p.frame) {
		return false
	}
	t1 := p.clock.Now()

	p.interp.Advance(p.frame.Delta)
	t2 := p.clock.Now()

	p.parts.Tick(p.frame.Delta)
	t3 := p.clock.Now()

	p.tick = tickTiming{
		delta:     p.frame.Delta,
		update:    t1.Sub(t0),
		interp:    t2.Sub(t1),
		particles: t3.Sub(t2),
	}
	p.hasPending = true
	return true
}

// Draw is the host Draw entry point: build the frame's primitive batch,
// render it, then record the tick's metrics. Recording happens strictly
// after the render and only once per executed tick, so a host drawing
// faster than the tick rate does not dilute the window.
func (p *Pipeline) Draw(dst *ebiten.Image) {
	p.prims = p.prims[:0]
	p.appendTracked()
	p.prims = p.parts.Primitives(p.prims)

	r0 := p.clock.Now()
	p.rend.BeginFrame(dst)
	p.rend.Clear(p.cfg.Renderer.Clear)
	p.rend.DrawBatch(p.prims)
	p.rend.EndFrame()
	renderTime := p.clock.Now().Sub(r0)

	if !p.hasPending {
		return
	}
	p.hasPending = false

	p.frame.aux["interpolate"] = p.tick.interp
	p.frame.aux["particles"] = p.tick.particles
	p.gov.Record(FrameMetrics{
		FrameTime:  p.tick.delta,
		UpdateTime: p.tick.update,
		RenderTime: renderTime,
		Aux:        p.frame.aux,
	})
	p.applyLevel()
}

// Run drives the pipeline headless, stepping and drawing at the host
// interval until the context is done, the way a window loop would.
func (p *Pipeline) Run(ctx context.Context, hostInterval time.Duration) {
	if hostInterval <= 0 {
		hostInterval = p.cfg.targetInterval()
	}
	ticker := time.NewTicker(hostInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Step()
			p.Draw(nil)
		}
	}
}

// Track registers an entity's visual and initial segment positions. The
// entity then moves via Movement().SetTargets and is drawn every frame.
func (p *Pipeline) Track(id EntityId, v Visual, points []Point) {
	p.visuals.Put(id, v)
	p.interp.Init(id, points)
}

// Untrack forgets an entity and its visual.
func (p *Pipeline) Untrack(id EntityId) {
	p.visuals.Del(id)
	p.interp.Remove(id)
}

func (p *Pipeline) appendTracked() {
	for _, id := range p.interp.ids {
		v, ok := p.visuals.Get(id)
		if !ok {
			continue
		}
		t, ok := p.interp.tracks.Get(id)
		if !ok {
			continue
		}
		for i := range t.segs {
			s := &t.segs[i]
			p.prims = append(p.prims, Primitive{
				X: s.cur.X, Y: s.cur.Y,
				W: v.W, H: v.H,
				Color: v.Color,
				Shape: v.Shape,
			})
		}
	}
}

// applyLevel pushes a changed quality level into the subsystems: step
// speed and easing for movement, emission scale and the trail kind for
// particles, the resolution knob for the renderer.
func (p *Pipeline) applyLevel() {
	level := p.gov.Level()
	if level == p.level {
		return
	}
	p.level = level

	speed := p.cfg.Interpolation.Speed
	if speed == 0 {
		speed = levelSpeed(level)
	}
	p.interp.SetSpeed(speed)

	switch level {
	case LevelLow:
		p.interp.SetEasing(Linear)
		p.parts.SetScale(0.3 * p.cfg.Particles.Scale)
		p.parts.SetKindEnabled(KindTrail, false)
	case LevelMedium:
		p.interp.SetEasing(EasingByName(p.cfg.Interpolation.Easing))
		p.parts.SetScale(0.6 * p.cfg.Particles.Scale)
		p.parts.SetKindEnabled(KindTrail, true)
	case LevelHigh:
		p.interp.SetEasing(EasingByName(p.cfg.Interpolation.Easing))
		p.parts.SetScale(p.cfg.Particles.Scale)
		p.parts.SetKindEnabled(KindTrail, true)
	}
	p.rend.SetLevel(level)
}

// Movement returns the interpolator handle.
func (p *Pipeline) Movement() *Interpolator {
	return p.interp
}

// Emitter returns the particle handle.
func (p *Pipeline) Emitter() *Particles {
	return p.parts
}

// Renderer returns the renderer for resize, backend and buffer access.
func (p *Pipeline) Renderer() *Renderer {
	return p.rend
}

// Governor returns the governor for stats, trend and history access.
func (p *Pipeline) Governor() *Governor {
	return p.gov
}

// FPS returns the scheduler's last completed window measurement.
func (p *Pipeline) FPS() float64 {
	return p.sched.FPS()
}

// Level returns the current quality level.
func (p *Pipeline) Level() PerfLevel {
	return p.gov.Level()
}

// Stats returns governor averages over the recent window.
func (p *Pipeline) Stats() Stats {
	return p.gov.Stats()
}

// Trend returns the governor's frame time trend.
func (p *Pipeline) Trend() PerfTrend {
	return p.gov.Trend()
}

// OnWarning subscribes fn to low FPS windows.
func (p *Pipeline) OnWarning(fn func(Warning)) {
	p.sched.OnWarning(fn)
}

// Capabilities returns what the device probe reported at construction.
func (p *Pipeline) Capabilities() Capabilities {
	return p.caps
}

// Dispose releases renderer resources.
func (p *Pipeline) Dispose() {
	p.rend.Dispose()
}

func tierSpeed(t Tier) float64 {
	switch t {
	case TierLow:
		return 0.15
	case TierHigh:
		return 0.25
	}
	return 0.2
}

func levelSpeed(l PerfLevel) float64 {
	switch l {
	case LevelLow:
		return 0.15
	case LevelHigh:
		return 0.25
	}
	return 0.2
}
