// Package tween is an in-process animation surface. Values are not stepped
// by a ticker: the position is computed from the clock whenever it is read,
// which makes a whole animation reproducible with a mock clock.
package tween

import (
	"time"

	cluster "github.com/MadAppGang/animcluster"
	"github.com/MadAppGang/animcluster/internal/timeutil"
)

// Easing maps animation progress in [0, 1] to interpolation weight
type Easing func(t float64) float64

// Linear moves at constant speed
func Linear(t float64) float64 { return t }

// EaseInOut accelerates for the first half and decelerates for the second
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// Surface creates Values sharing one clock and easing
type Surface struct {
	Clock  timeutil.Clock
	Easing Easing

	created int
}

// NewSurface returns a linear surface on clock
func NewSurface(clock timeutil.Clock) *Surface {
	return &Surface{Clock: clock, Easing: Linear}
}

// NewAnimated implements cluster.Surface
func (s *Surface) NewAnimated(at cluster.Point) cluster.Animated {
	s.created++
	return NewValue(s.Clock, s.Easing, at)
}

// Created counts values made by the surface
func (s *Surface) Created() int {
	return s.created
}

// Value is one animated point
type Value struct {
	clock timeutil.Clock
	ease  Easing

	from, to cluster.Point
	start    time.Time
	duration time.Duration
	running  bool
}

// NewValue returns a value resting at p. A nil easing is linear.
func NewValue(clock timeutil.Clock, ease Easing, p cluster.Point) *Value {
	if ease == nil {
		ease = Linear
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Value{clock: clock, ease: ease, from: p, to: p}
}

// Timing moves the value from its current position to `to` within d.
// A non-positive d jumps.
func (v *Value) Timing(to cluster.Point, d time.Duration) {
	current := v.Value()
	if d <= 0 {
		v.from, v.to, v.running = to, to, false
		return
	}
	v.from = current
	v.to = to
	v.start = v.clock.Now()
	v.duration = d
	v.running = true
}

// Stop freezes the value where it is now
func (v *Value) Stop() {
	p := v.Value()
	v.from, v.to, v.running = p, p, false
}

// SetValue puts the value at p, stopping any animation
func (v *Value) SetValue(p cluster.Point) {
	v.from, v.to, v.running = p, p, false
}

// Value returns the current position
func (v *Value) Value() cluster.Point {
	if !v.running {
		return v.to
	}
	elapsed := v.clock.Since(v.start)
	if elapsed >= v.duration {
		v.from, v.running = v.to, false
		return v.to
	}
	w := v.ease(float64(elapsed) / float64(v.duration))
	return cluster.Point{
		Lat: v.from.Lat + (v.to.Lat-v.from.Lat)*w,
		Lon: v.from.Lon + (v.to.Lon-v.from.Lon)*w,
	}
}

// Target is where the value is heading, or where it rests
func (v *Value) Target() cluster.Point {
	return v.to
}

// Animating reports whether the value is still moving
func (v *Value) Animating() bool {
	return v.running && v.clock.Since(v.start) < v.duration
}
