package pipeline_test

import (
	"strings"
	"testing"

	"github.com/plus3/pulse/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()

	assert.Equal(t, 60, cfg.TargetFPS)
	assert.Equal(t, "cubic-out", cfg.Interpolation.Easing)
	assert.False(t, cfg.Interpolation.Disabled)
	assert.Equal(t, 240.0, cfg.Particles.Gravity)
	assert.Equal(t, 1.0, cfg.Particles.Scale)
	assert.Equal(t, 640, cfg.Renderer.Width)
	assert.Equal(t, 480, cfg.Renderer.Height)
	assert.Equal(t, 30.0, cfg.Thresholds.MinFPS)
	assert.Equal(t, 33.0, cfg.Thresholds.FrameMs)
}

func TestNormalizedDefaultsZeroValues(t *testing.T) {
	cfg := pipeline.Config{}.Normalized()
	assert.Equal(t, pipeline.DefaultConfig(), cfg)
}

func TestNormalizedClamps(t *testing.T) {
	cfg := pipeline.Config{TargetFPS: 1000}
	cfg.Interpolation.Speed = 7
	cfg.Particles.Scale = 9
	got := cfg.Normalized()
	assert.Equal(t, 240, got.TargetFPS)
	assert.Equal(t, 1.0, got.Interpolation.Speed)
	assert.Equal(t, 4.0, got.Particles.Scale)

	cfg = pipeline.Config{TargetFPS: -5}
	cfg.Interpolation.Speed = 0.0001
	cfg.Particles.Scale = -2
	got = cfg.Normalized()
	assert.Equal(t, 60, got.TargetFPS)
	assert.Equal(t, 0.01, got.Interpolation.Speed)
	assert.Equal(t, 0.0, got.Particles.Scale)
}

func TestNormalizedKeepsTierDefaultSpeed(t *testing.T) {
	// Zero speed means "derive from the device tier", so it must survive
	got := pipeline.Config{}.Normalized()
	assert.Equal(t, 0.0, got.Interpolation.Speed)
}

func TestNormalizedKeepsValidValues(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.TargetFPS = 120
	cfg.Interpolation.Speed = 0.4
	cfg.Particles.Scale = 2.5
	cfg.Renderer.Width = 800

	got := cfg.Normalized()
	assert.Equal(t, cfg, got)
}

func TestLoadConfig(t *testing.T) {
	doc := `
target_fps: 30
interpolation:
  speed: 0.5
  easing: quad-out
particles:
  scale: 2
renderer:
  backend: raster
  width: 320
  clear: {r: 1, g: 2, b: 3, a: 255}
thresholds:
  frame_ms: 40
`
	cfg, err := pipeline.LoadConfig(strings.NewReader(doc))
	assert.NoError(t, err)

	assert.Equal(t, 30, cfg.TargetFPS)
	assert.Equal(t, 0.5, cfg.Interpolation.Speed)
	assert.Equal(t, "quad-out", cfg.Interpolation.Easing)
	assert.Equal(t, 2.0, cfg.Particles.Scale)
	assert.Equal(t, pipeline.BackendRaster, cfg.Renderer.Backend)
	assert.Equal(t, 320, cfg.Renderer.Width)
	assert.Equal(t, pipeline.RGBA{R: 1, G: 2, B: 3, A: 255}, cfg.Renderer.Clear)
	assert.Equal(t, 40.0, cfg.Thresholds.FrameMs)

	// Everything the document does not mention keeps its default
	assert.Equal(t, 480, cfg.Renderer.Height)
	assert.Equal(t, 240.0, cfg.Particles.Gravity)
	assert.Equal(t, 30.0, cfg.Thresholds.MinFPS)
	assert.Equal(t, 8.0, cfg.Thresholds.UpdateMs)
}

func TestLoadConfigBadDocument(t *testing.T) {
	_, err := pipeline.LoadConfig(strings.NewReader("target_fps: [oops"))
	assert.ErrorContains(t, err, "parse config")
}

func TestColorWithAlpha(t *testing.T) {
	c := pipeline.RGBA{R: 200, G: 100, B: 50, A: 255}
	assert.Equal(t, uint8(127), c.WithAlpha(0.5).A)
	assert.Equal(t, uint8(255), c.WithAlpha(2).A)
	assert.Equal(t, uint8(0), c.WithAlpha(-1).A)
	assert.Equal(t, uint8(200), c.WithAlpha(0.5).R, "color channels untouched")
}
