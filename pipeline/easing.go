package pipeline

import (
	"math"
	"strings"
)

// EasingFunc maps normalized progress in [0, 1] to an eased value.
// Implementations clamp their input and map 0 to 0 and 1 to 1.
type EasingFunc func(t float64) float64

// Linear returns progress unchanged.
func Linear(t float64) float64 {
	return clamp01(t)
}

// QuadIn accelerates from zero velocity.
func QuadIn(t float64) float64 {
	t = clamp01(t)
	return t * t
}

// QuadOut decelerates to zero velocity.
func QuadOut(t float64) float64 {
	t = clamp01(t)
	return t * (2 - t)
}

// QuadInOut accelerates until halfway, then decelerates.
func QuadInOut(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 2 * t * t
	}
	f := -2*t + 2
	return 1 - f*f/2
}

// CubicIn accelerates from zero velocity, steeper than QuadIn.
func CubicIn(t float64) float64 {
	t = clamp01(t)
	return t * t * t
}

// CubicOut decelerates to zero velocity, steeper than QuadOut.
func CubicOut(t float64) float64 {
	t = clamp01(t)
	f := 1 - t
	return 1 - f*f*f
}

// CubicInOut accelerates until halfway, then decelerates.
func CubicInOut(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

// ElasticOut overshoots the target and oscillates before settling.
func ElasticOut(t float64) float64 {
	t = clamp01(t)
	if t == 0 || t == 1 {
		return t
	}
	const c4 = 2 * math.Pi / 3
	return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1
}

// BackOut overshoots the target slightly and eases back.
func BackOut(t float64) float64 {
	t = clamp01(t)
	const c1 = 1.70158
	const c3 = c1 + 1
	f := t - 1
	return 1 + c3*f*f*f + c1*f*f
}

const defaultEasingName = "cubic-out"

var easings = map[string]EasingFunc{
	"linear":       Linear,
	"quad-in":      QuadIn,
	"quad-out":     QuadOut,
	"quad-in-out":  QuadInOut,
	"cubic-in":     CubicIn,
	"cubic-out":    CubicOut,
	"cubic-in-out": CubicInOut,
	"elastic-out":  ElasticOut,
	"back-out":     BackOut,
}

// EasingByName resolves a config name to its easing function. Unknown or
// empty names fall back to the default (cubic-out) rather than failing.
func EasingByName(name string) EasingFunc {
	if fn, ok := easings[strings.ToLower(strings.TrimSpace(name))]; ok {
		return fn
	}
	return CubicOut
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
