package pipeline_test

import (
	"testing"
	"time"

	"github.com/plus3/pulse/pipeline"
	"github.com/stretchr/testify/assert"
)

func newTestParticles() *pipeline.Particles {
	return pipeline.NewParticles(240, 12345)
}

func TestParticlesEmit(t *testing.T) {
	ps := newTestParticles()

	ps.Emit(pipeline.KindFood, 50, 60, 8, testPalette)
	assert.Equal(t, 8, ps.ActiveCount())

	prims := ps.Primitives(nil)
	assert.Len(t, prims, 8, "one primitive per live particle")
	for _, p := range prims {
		assert.Equal(t, 50.0, p.X)
		assert.Equal(t, 60.0, p.Y)
		assert.Equal(t, pipeline.ShapeRect, p.Shape)
	}

	for _, p := range ps.Active() {
		assert.Equal(t, pipeline.KindFood, p.Kind)
		assert.Equal(t, 1.0, p.Life)
		assert.Equal(t, testPalette[0].R, p.Color.R)
	}
}

func TestParticlesEmitNoop(t *testing.T) {
	ps := newTestParticles()

	ps.Emit(pipeline.KindFood, 0, 0, 0, nil)
	ps.Emit(pipeline.KindFood, 0, 0, -3, nil)
	assert.Equal(t, 0, ps.ActiveCount())
}

func TestParticlesExpire(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindFood, 0, 0, 20, nil)

	// Food lifetimes top out well under two seconds
	ps.Tick(2 * time.Second)
	assert.Equal(t, 0, ps.ActiveCount())
	assert.Empty(t, ps.Primitives(nil))
}

func TestParticlesIntegration(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindFood, 0, 0, 10, nil)

	before := ps.Active()
	ps.Tick(100 * time.Millisecond)
	after := ps.Active()

	for i := range after {
		assert.Equal(t, before[i].Id, after[i].Id)
		assert.InDelta(t, before[i].Vel.Y+24, after[i].Vel.Y, 1e-6, "gravity pulls velocity down")
		assert.InDelta(t, before[i].Pos.X+after[i].Vel.X*0.1, after[i].Pos.X, 1e-6)
		assert.Less(t, after[i].Life, before[i].Life)
	}
}

func TestParticlesTrailKind(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindTrail, 0, 0, 12, nil)

	before := ps.Active()
	for _, p := range before {
		assert.Equal(t, pipeline.KindTrail, p.Kind)
		assert.Less(t, p.MaxLife, 0.5, "trail lives shorter than any food particle")
	}

	ps.Tick(100 * time.Millisecond)
	after := ps.Active()
	for i := range after {
		assert.InDelta(t, before[i].Vel.Y, after[i].Vel.Y, 1e-9, "no gravity on trails")
	}
}

func TestParticlesKindProfiles(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindPowerUp, 0, 0, 6, nil)
	ps.Emit(pipeline.KindCombo, 0, 0, 6, nil)

	for _, p := range ps.Active() {
		assert.Greater(t, p.MaxLife, 0.5, "powerup and combo live long")
	}

	prims := ps.Primitives(nil)
	for _, pr := range prims {
		assert.Equal(t, pipeline.ShapeCircle, pr.Shape)
	}
}

func TestParticlesScale(t *testing.T) {
	ps := newTestParticles()

	ps.SetScale(0.5)
	ps.Emit(pipeline.KindFood, 0, 0, 8, nil)
	assert.Equal(t, 4, ps.ActiveCount())

	ps.SetScale(0)
	ps.Emit(pipeline.KindFood, 0, 0, 8, nil)
	assert.Equal(t, 4, ps.ActiveCount(), "zero scale emits nothing")
}

func TestParticlesKindDisable(t *testing.T) {
	ps := newTestParticles()

	ps.SetKindEnabled(pipeline.KindTrail, false)
	ps.Emit(pipeline.KindTrail, 0, 0, 10, nil)
	assert.Equal(t, 0, ps.ActiveCount())

	ps.Emit(pipeline.KindFood, 0, 0, 10, nil)
	assert.Equal(t, 10, ps.ActiveCount(), "other kinds unaffected")

	ps.SetKindEnabled(pipeline.KindTrail, true)
	ps.Emit(pipeline.KindTrail, 0, 0, 10, nil)
	assert.Equal(t, 20, ps.ActiveCount())
}

func TestParticleIdsIncrease(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindFood, 0, 0, 5, nil)
	ps.Emit(pipeline.KindCrash, 0, 0, 5, nil)

	var last uint64
	for _, p := range ps.Active() {
		assert.Greater(t, p.Id, last)
		last = p.Id
	}
}

func TestParticlesDeterministicWithSeed(t *testing.T) {
	a := pipeline.NewParticles(240, 7)
	b := pipeline.NewParticles(240, 7)

	a.Emit(pipeline.KindCrash, 10, 10, 30, nil)
	b.Emit(pipeline.KindCrash, 10, 10, 30, nil)

	assert.Equal(t, a.Active(), b.Active())
}

func TestParticlesClear(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindFood, 0, 0, 10, nil)
	ps.Clear()
	assert.Equal(t, 0, ps.ActiveCount())
}

func TestParticlesFadeWithLife(t *testing.T) {
	ps := newTestParticles()
	ps.Emit(pipeline.KindFood, 0, 0, 1, testPalette)

	full := ps.Primitives(nil)[0].Color.A
	ps.Tick(200 * time.Millisecond)
	assert.Equal(t, 1, ps.ActiveCount())
	faded := ps.Primitives(nil)[0].Color.A
	assert.Less(t, faded, full)
}
