package pipeline

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config controls pipeline construction. Zero values take defaults, so the
// zero Config is usable. Load a file over the defaults with LoadConfig.
type Config struct {
	TargetFPS     int                 `yaml:"target_fps" json:"target_fps"`
	Interpolation InterpolationConfig `yaml:"interpolation" json:"interpolation"`
	Particles     ParticleConfig      `yaml:"particles" json:"particles"`
	Renderer      RendererConfig      `yaml:"renderer" json:"renderer"`
	Thresholds    Thresholds          `yaml:"thresholds" json:"thresholds"`

	// Seed fixes the particle RNG for reproducible runs. Zero seeds from
	// the clock.
	Seed uint64 `yaml:"seed" json:"seed"`

	// Logger receives structured pipeline events. Nil means no logging.
	Logger *zap.Logger `yaml:"-" json:"-"`

	// Capabilities overrides the device probe when non-nil.
	Capabilities *Capabilities `yaml:"-" json:"-"`

	// Clock overrides wall time for the scheduler and governor.
	Clock Clock `yaml:"-" json:"-"`
}

// InterpolationConfig tunes the movement interpolator.
type InterpolationConfig struct {
	Disabled bool `yaml:"disabled" json:"disabled"`

	// Speed is the per-tick progress step in (0, 1]. Zero picks a default
	// from the probed device tier.
	Speed float64 `yaml:"speed" json:"speed"`

	// Easing names the curve applied to each leg, see EasingByName.
	Easing string `yaml:"easing" json:"easing"`
}

// ParticleConfig tunes the particle system.
type ParticleConfig struct {
	// Gravity in pixels per second squared, applied to non-exempt kinds.
	Gravity float64 `yaml:"gravity" json:"gravity"`

	// Scale multiplies every emission count. Zero means 1.0.
	Scale float64 `yaml:"scale" json:"scale"`
}

// RendererConfig tunes backend selection and the drawing surface.
type RendererConfig struct {
	// Backend forces "gpu" or "raster". Empty selects by capability.
	Backend string `yaml:"backend" json:"backend"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Clear   RGBA   `yaml:"clear" json:"clear"`
}

// Thresholds are the performance budgets the governor and scheduler
// measure against. Times are in milliseconds.
type Thresholds struct {
	MinFPS      float64 `yaml:"min_fps" json:"min_fps"`
	FrameMs     float64 `yaml:"frame_ms" json:"frame_ms"`
	UpdateMs    float64 `yaml:"update_ms" json:"update_ms"`
	RenderMs    float64 `yaml:"render_ms" json:"render_ms"`
	AIMs        float64 `yaml:"ai_ms" json:"ai_ms"`
	CollisionMs float64 `yaml:"collision_ms" json:"collision_ms"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TargetFPS: 60,
		Interpolation: InterpolationConfig{
			Easing: defaultEasingName,
		},
		Particles: ParticleConfig{
			Gravity: 240,
			Scale:   1,
		},
		Renderer: RendererConfig{
			Width:  640,
			Height: 480,
			Clear:  RGBA{R: 16, G: 16, B: 24, A: 255},
		},
		Thresholds: Thresholds{
			MinFPS:      30,
			FrameMs:     33,
			UpdateMs:    8,
			RenderMs:    10,
			AIMs:        5,
			CollisionMs: 3,
		},
	}
}

// LoadConfig decodes YAML from r over the defaults, so fields absent from
// the document keep their default values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.Normalized(), nil
}

// Normalized returns a copy with zero fields defaulted and out-of-range
// values clamped. Invalid settings degrade to usable ones instead of
// failing; the only construction-time error left is an unusable surface.
func (c Config) Normalized() Config {
	def := DefaultConfig()

	if c.TargetFPS <= 0 {
		c.TargetFPS = def.TargetFPS
	} else if c.TargetFPS > 240 {
		c.TargetFPS = 240
	}

	if c.Interpolation.Speed != 0 {
		c.Interpolation.Speed = clampRange(c.Interpolation.Speed, 0.01, 1)
	}
	if c.Interpolation.Easing == "" {
		c.Interpolation.Easing = def.Interpolation.Easing
	}

	if c.Particles.Gravity == 0 {
		c.Particles.Gravity = def.Particles.Gravity
	}
	if c.Particles.Scale == 0 {
		c.Particles.Scale = def.Particles.Scale
	} else {
		c.Particles.Scale = clampRange(c.Particles.Scale, 0, 4)
	}

	if c.Renderer.Width == 0 {
		c.Renderer.Width = def.Renderer.Width
	}
	if c.Renderer.Height == 0 {
		c.Renderer.Height = def.Renderer.Height
	}
	if c.Renderer.Clear == (RGBA{}) {
		c.Renderer.Clear = def.Renderer.Clear
	}

	if c.Thresholds.MinFPS <= 0 {
		c.Thresholds.MinFPS = def.Thresholds.MinFPS
	}
	if c.Thresholds.FrameMs <= 0 {
		c.Thresholds.FrameMs = def.Thresholds.FrameMs
	}
	if c.Thresholds.UpdateMs <= 0 {
		c.Thresholds.UpdateMs = def.Thresholds.UpdateMs
	}
	if c.Thresholds.RenderMs <= 0 {
		c.Thresholds.RenderMs = def.Thresholds.RenderMs
	}
	if c.Thresholds.AIMs <= 0 {
		c.Thresholds.AIMs = def.Thresholds.AIMs
	}
	if c.Thresholds.CollisionMs <= 0 {
		c.Thresholds.CollisionMs = def.Thresholds.CollisionMs
	}

	return c
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) targetInterval() time.Duration {
	return time.Second / time.Duration(c.TargetFPS)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
