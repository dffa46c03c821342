package pipeline

import (
	"math"
	"math/rand/v2"
	"time"
)

// ParticleKind selects the tuning profile of an emission.
type ParticleKind uint8

const (
	KindFood ParticleKind = iota
	KindTrail
	KindPowerUp
	KindCombo
	KindCrash

	kindCount = 5
)

func (k ParticleKind) String() string {
	switch k {
	case KindFood:
		return "food"
	case KindTrail:
		return "trail"
	case KindPowerUp:
		return "powerup"
	case KindCombo:
		return "combo"
	case KindCrash:
		return "crash"
	}
	return "unknown"
}

// Particle is one live particle. Life counts down from 1 to 0 over
// MaxLife seconds.
type Particle struct {
	Id      uint64
	Pos     Point
	Vel     Point
	Size    float64
	Color   RGBA
	Life    float64
	MaxLife float64
	Kind    ParticleKind
}

// kindProfile tunes a kind relative to the food baseline.
type kindProfile struct {
	speed   float64
	size    float64
	life    float64
	gravity bool
	shape   Shape
}

var kindProfiles = [kindCount]kindProfile{
	KindFood:    {speed: 1, size: 1, life: 1, gravity: true, shape: ShapeRect},
	KindTrail:   {speed: 0.35, size: 0.8, life: 0.45, gravity: false, shape: ShapeRect},
	KindPowerUp: {speed: 1.4, size: 1.5, life: 1.6, gravity: true, shape: ShapeCircle},
	KindCombo:   {speed: 1.5, size: 1.3, life: 1.4, gravity: true, shape: ShapeCircle},
	KindCrash:   {speed: 1.9, size: 1.1, life: 1.2, gravity: true, shape: ShapeRect},
}

func profileFor(k ParticleKind) kindProfile {
	if int(k) >= kindCount {
		return kindProfiles[KindFood]
	}
	return kindProfiles[k]
}

// Baseline emission ranges, scaled by the kind profile.
const (
	baseSpeedMin, baseSpeedMax = 40.0, 140.0
	baseSizeMin, baseSizeMax   = 3.0, 7.0
	baseLifeMin, baseLifeMax   = 0.5, 1.1
)

var defaultPalette = []RGBA{
	{R: 255, G: 214, B: 90, A: 255},
	{R: 255, G: 130, B: 80, A: 255},
	{R: 120, G: 220, B: 130, A: 255},
	{R: 110, G: 180, B: 255, A: 255},
}

// Particles owns the live particle pool and is the emitter handle the
// pipeline hands to the game. The pool has no hard cap; bounding emission
// volume is the caller's responsibility.
type Particles struct {
	live     []Particle
	rng      *rand.Rand
	gravity  float64
	scale    float64
	disabled [kindCount]bool
	nextId   uint64
}

// NewParticles creates a particle system. Gravity is in pixels per second
// squared; zero takes the default. Zero seed seeds from the clock.
func NewParticles(gravity float64, seed uint64) *Particles {
	if gravity == 0 {
		gravity = 240
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Particles{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		gravity: gravity,
		scale:   1,
	}
}

// Emit spawns count particles of the given kind at (x, y), each with a
// random direction and kind-scaled speed, size and lifetime, colored from
// the palette (or the default palette when empty). The emission scale
// multiplies count; disabled kinds and non-positive counts emit nothing.
func (ps *Particles) Emit(kind ParticleKind, x, y float64, count int, palette []RGBA) {
	if count <= 0 || ps.disabled[kind%kindCount] {
		return
	}
	count = int(math.Round(float64(count) * ps.scale))
	if count <= 0 {
		return
	}
	if len(palette) == 0 {
		palette = defaultPalette
	}
	prof := profileFor(kind)

	for i := 0; i < count; i++ {
		angle := ps.rng.Float64() * 2 * math.Pi
		speed := (baseSpeedMin + ps.rng.Float64()*(baseSpeedMax-baseSpeedMin)) * prof.speed
		ps.nextId++
		ps.live = append(ps.live, Particle{
			Id:      ps.nextId,
			Pos:     Point{X: x, Y: y},
			Vel:     Point{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
			Size:    (baseSizeMin + ps.rng.Float64()*(baseSizeMax-baseSizeMin)) * prof.size,
			Color:   palette[ps.rng.IntN(len(palette))],
			Life:    1,
			MaxLife: (baseLifeMin + ps.rng.Float64()*(baseLifeMax-baseLifeMin)) * prof.life,
			Kind:    kind,
		})
	}
}

// Tick integrates all live particles by dt and compacts expired ones away
// in place, so steady-state ticking does not allocate.
func (ps *Particles) Tick(dt time.Duration) {
	if dt <= 0 || len(ps.live) == 0 {
		return
	}
	sec := dt.Seconds()
	n := 0
	for i := range ps.live {
		p := &ps.live[i]
		p.Life -= sec / p.MaxLife
		if p.Life <= 0 {
			continue
		}
		if profileFor(p.Kind).gravity {
			p.Vel.Y += ps.gravity * sec
		}
		p.Pos.X += p.Vel.X * sec
		p.Pos.Y += p.Vel.Y * sec
		if i != n {
			ps.live[n] = *p
		}
		n++
	}
	ps.live = ps.live[:n]
}

// Active returns a snapshot copy of the live particles.
func (ps *Particles) Active() []Particle {
	out := make([]Particle, len(ps.live))
	copy(out, ps.live)
	return out
}

// ActiveCount returns the number of live particles.
func (ps *Particles) ActiveCount() int {
	return len(ps.live)
}

// Clear drops all live particles.
func (ps *Particles) Clear() {
	ps.live = ps.live[:0]
}

// SetScale sets the emission count multiplier, clamped to [0, 4].
func (ps *Particles) SetScale(scale float64) {
	ps.scale = clampRange(scale, 0, 4)
}

// SetKindEnabled enables or disables emissions of one kind. Live
// particles of a disabled kind keep playing out.
func (ps *Particles) SetKindEnabled(kind ParticleKind, enabled bool) {
	ps.disabled[kind%kindCount] = !enabled
}

// Primitives appends one primitive per live particle to buf, alpha faded
// by remaining life, and returns the extended slice.
func (ps *Particles) Primitives(buf []Primitive) []Primitive {
	for i := range ps.live {
		p := &ps.live[i]
		buf = append(buf, Primitive{
			X:     p.Pos.X,
			Y:     p.Pos.Y,
			W:     p.Size,
			H:     p.Size,
			Color: p.Color.WithAlpha(p.Life),
			Shape: profileFor(p.Kind).shape,
		})
	}
	return buf
}
