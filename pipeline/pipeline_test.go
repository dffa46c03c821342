package pipeline_test

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/plus3/pulse/pipeline"
	"github.com/stretchr/testify/assert"
)

// newTestPipeline builds a deterministic pipeline: raster backend, fixed
// seed, fake clock, probe overridden to a gpu-less host.
func newTestPipeline(t *testing.T, mutate func(*pipeline.Config)) (*pipeline.Pipeline, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	caps := softwareCaps()
	cfg := pipeline.DefaultConfig()
	cfg.Renderer = rasterConfig(64, 48)
	cfg.Seed = 99
	cfg.Clock = clock
	cfg.Capabilities = &caps
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := pipeline.New(cfg)
	assert.NoError(t, err)
	return p, clock
}

func TestPipelineNew(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	defer p.Dispose()

	assert.Equal(t, pipeline.BackendRaster, p.Renderer().Backend())
	assert.Equal(t, pipeline.LevelHigh, p.Level())
	assert.Equal(t, softwareCaps(), p.Capabilities())
	assert.Equal(t, 0.0, p.FPS())
	assert.True(t, p.Movement().Enabled())
	assert.Equal(t, 0, p.Emitter().ActiveCount())
	assert.Equal(t, pipeline.TrendStable, p.Trend())
	assert.Equal(t, 0, p.Stats().Samples)
}

func TestPipelineNewInvalidSurface(t *testing.T) {
	caps := softwareCaps()
	cfg := pipeline.DefaultConfig()
	cfg.Capabilities = &caps
	cfg.Renderer.Width = -1
	_, err := pipeline.New(cfg)
	assert.ErrorIs(t, err, pipeline.ErrInvalidSurface)
}

func TestPipelineStepGating(t *testing.T) {
	p, clock := newTestPipeline(t, nil)
	defer p.Dispose()

	ticks := 0
	p.Start(func(f *pipeline.Frame) {
		ticks++
		assert.Equal(t, tick, f.Delta)
		assert.Same(t, p.Movement(), f.Movement)
		assert.Same(t, p.Emitter(), f.Emitter)
	})

	assert.False(t, p.Step(), "no time has passed")
	clock.advance(tick)
	assert.True(t, p.Step())
	assert.False(t, p.Step(), "tick already consumed")
	assert.Equal(t, 1, ticks)

	p.Stop()
	clock.advance(tick)
	assert.False(t, p.Step())
	assert.Equal(t, 1, ticks)
}

func TestPipelineTrackDraw(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	defer p.Dispose()

	red := pipeline.RGBA{R: 255, A: 255}
	p.Track(1, pipeline.Visual{W: 4, H: 4, Color: red}, []pipeline.Point{{X: 10, Y: 10}, {X: 20, Y: 10}})

	p.Draw(nil)
	buf := p.Renderer().Buffer()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, buf.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, buf.RGBAAt(20, 10))
	assert.Equal(t, color.RGBA{A: 255}, buf.RGBAAt(40, 40))
	assert.Equal(t, 0, p.Stats().Samples, "draw without a tick records no sample")

	p.Untrack(1)
	p.Draw(nil)
	assert.Equal(t, color.RGBA{A: 255}, p.Renderer().Buffer().RGBAAt(10, 10))
}

func TestPipelineRecordsOncePerTick(t *testing.T) {
	p, clock := newTestPipeline(t, nil)
	defer p.Dispose()
	p.Start(nil)

	clock.advance(tick)
	assert.True(t, p.Step())
	p.Draw(nil)
	assert.Equal(t, 1, p.Stats().Samples)

	p.Draw(nil)
	p.Draw(nil)
	assert.Equal(t, 1, p.Stats().Samples, "redrawing the same tick is not a new sample")

	clock.advance(tick)
	assert.True(t, p.Step())
	p.Draw(nil)
	s := p.Stats()
	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, tick, s.FrameTime)
}

func TestPipelineObservationsFeedStats(t *testing.T) {
	p, clock := newTestPipeline(t, nil)
	defer p.Dispose()

	work := true
	p.Start(func(f *pipeline.Frame) {
		if work {
			f.Observe("ai", time.Millisecond)
			f.Observe("ai", 2*time.Millisecond)
		}
	})

	clock.advance(tick)
	p.Step()
	p.Draw(nil)
	s := p.Stats()
	assert.Equal(t, 3*time.Millisecond, s.Aux["ai"], "observations of one name accumulate")
	assert.Contains(t, s.Aux, "interpolate")
	assert.Contains(t, s.Aux, "particles")

	work = false
	clock.advance(tick)
	p.Step()
	p.Draw(nil)
	assert.Equal(t, 3*time.Millisecond/2, p.Stats().Aux["ai"], "observations reset each tick")
}

func TestPipelineDegradesToLowLevel(t *testing.T) {
	p, clock := newTestPipeline(t, nil)
	defer p.Dispose()
	p.Start(nil)

	for i := 0; i < 30; i++ {
		clock.advance(40 * time.Millisecond)
		assert.True(t, p.Step())
		p.Draw(nil)
	}

	assert.Equal(t, pipeline.LevelLow, p.Level())
	assert.True(t, p.Governor().IsConsistentlyPoor())

	// Raster backend drops to half resolution
	assert.Equal(t, 32, p.Renderer().Buffer().Bounds().Dx())
	assert.Equal(t, 24, p.Renderer().Buffer().Bounds().Dy())

	// Trail emissions are dropped, the rest emit at 0.3x volume
	p.Emitter().Emit(pipeline.KindTrail, 5, 5, 10, nil)
	assert.Equal(t, 0, p.Emitter().ActiveCount())
	p.Emitter().Emit(pipeline.KindFood, 5, 5, 10, nil)
	assert.Equal(t, 3, p.Emitter().ActiveCount())

	// Movement falls back to linear easing at the low step speed
	p.Track(7, pipeline.Visual{W: 2, H: 2}, []pipeline.Point{{}})
	p.Movement().SetTargets(7, []pipeline.Point{{X: 100}})
	clock.advance(tick)
	assert.True(t, p.Step())
	got := p.Movement().Positions(7)
	assert.InDelta(t, 15.0, got[0].X, 1e-9)
}

func TestPipelineConfigSpeedSurvivesLevelChange(t *testing.T) {
	p, clock := newTestPipeline(t, func(c *pipeline.Config) {
		c.Interpolation.Speed = 0.5
		c.Interpolation.Easing = "linear"
	})
	defer p.Dispose()
	p.Start(nil)

	for i := 0; i < 30; i++ {
		clock.advance(40 * time.Millisecond)
		p.Step()
		p.Draw(nil)
	}
	assert.Equal(t, pipeline.LevelLow, p.Level())

	p.Track(3, pipeline.Visual{W: 2, H: 2}, []pipeline.Point{{}})
	p.Movement().SetTargets(3, []pipeline.Point{{X: 10}})
	clock.advance(tick)
	p.Step()
	got := p.Movement().Positions(3)
	assert.InDelta(t, 5.0, got[0].X, 1e-9, "configured speed is not overridden per level")
}

func TestPipelineDisabledInterpolationSnaps(t *testing.T) {
	p, _ := newTestPipeline(t, func(c *pipeline.Config) {
		c.Interpolation.Disabled = true
	})
	defer p.Dispose()

	assert.False(t, p.Movement().Enabled())
	p.Track(1, pipeline.Visual{W: 2, H: 2}, []pipeline.Point{{}})
	p.Movement().SetTargets(1, []pipeline.Point{{X: 50, Y: 50}})
	assert.Equal(t, []pipeline.Point{{X: 50, Y: 50}}, p.Movement().Positions(1))
}

func TestPipelineLowFPSWarning(t *testing.T) {
	p, clock := newTestPipeline(t, nil)
	defer p.Dispose()
	p.Start(nil)

	var warns []pipeline.Warning
	p.OnWarning(func(w pipeline.Warning) { warns = append(warns, w) })

	for i := 0; i < 25; i++ {
		clock.advance(40 * time.Millisecond)
		assert.True(t, p.Step())
	}

	assert.Len(t, warns, 1)
	assert.InDelta(t, 25.0, warns[0].FPS, 0.01)
	assert.InDelta(t, 25.0, p.FPS(), 0.01)
}

func TestPipelineRun(t *testing.T) {
	caps := softwareCaps()
	cfg := pipeline.DefaultConfig()
	cfg.Renderer = rasterConfig(32, 32)
	cfg.Capabilities = &caps
	p, err := pipeline.New(cfg)
	assert.NoError(t, err)
	defer p.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticks := 0
	p.Start(func(f *pipeline.Frame) {
		ticks++
		if ticks == 3 {
			cancel()
		}
	})
	p.Run(ctx, time.Millisecond)

	assert.GreaterOrEqual(t, ticks, 3)
	assert.GreaterOrEqual(t, p.Stats().Samples, 3)
}

func TestPipelineDispose(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	assert.NotNil(t, p.Renderer().Buffer())
	p.Dispose()
	assert.Nil(t, p.Renderer().Buffer())
}
