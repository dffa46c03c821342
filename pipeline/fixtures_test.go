package pipeline_test

import (
	"time"

	"github.com/plus3/pulse/pipeline"
)

// Common test helpers

// fakeClock satisfies pipeline.Clock and only moves when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

var testPalette = []pipeline.RGBA{
	{R: 200, G: 40, B: 40, A: 255},
}

// frameSample builds a metrics sample with the given frame time.
func frameSample(frameTime time.Duration) pipeline.FrameMetrics {
	return pipeline.FrameMetrics{
		FrameTime:  frameTime,
		UpdateTime: frameTime / 4,
		RenderTime: frameTime / 8,
	}
}

// recordFrames feeds n identical samples, moving the clock by frameTime
// between each so cooldown windows elapse realistically.
func recordFrames(g *pipeline.Governor, clock *fakeClock, n int, frameTime time.Duration) {
	for i := 0; i < n; i++ {
		clock.advance(frameTime)
		g.Record(frameSample(frameTime))
	}
}

// rasterConfig is a renderer config that always selects the cpu backend.
func rasterConfig(w, h int) pipeline.RendererConfig {
	return pipeline.RendererConfig{
		Backend: pipeline.BackendRaster,
		Width:   w,
		Height:  h,
		Clear:   pipeline.RGBA{A: 255},
	}
}

// softwareCaps reports a host with no usable gpu.
func softwareCaps() pipeline.Capabilities {
	return pipeline.Capabilities{Tier: pipeline.TierLow, Renderer: "software"}
}
