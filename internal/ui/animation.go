package ui

import (
	"time"
)

const DefaultScrollDuration = 400 * time.Millisecond

// ScrollAnimator eases the lyric scroll offset toward the current line.
// offsets are in rows; line i sits at i*pitch.
type ScrollAnimator struct {
	pitch    float64
	viewport float64
	duration time.Duration

	current float64
	start   float64
	target  float64
	elapsed time.Duration

	index    int
	hasIndex bool
	lines    int
}

func NewScrollAnimator(pitch, viewport float64, duration time.Duration) *ScrollAnimator {
	if duration <= 0 {
		duration = DefaultScrollDuration
	}
	return &ScrollAnimator{
		pitch:    pitch,
		viewport: viewport,
		duration: duration,
		elapsed:  duration,
	}
}

// Reset prepares the animator for a new document with the given line count.
func (a *ScrollAnimator) Reset(lines int) {
	a.lines = lines
	a.current, a.start, a.target = 0, 0, 0
	a.elapsed = a.duration
	a.index, a.hasIndex = 0, false
}

// OnIndexChanged retargets the scroll to center the given line. it returns
// false and leaves the animation untouched when the index is out of range or
// is already the target line.
func (a *ScrollAnimator) OnIndexChanged(index int) bool {
	if index < 0 || index >= a.lines {
		return false
	}
	if a.hasIndex && index == a.index {
		return false
	}

	a.index, a.hasIndex = index, true
	a.start = a.current
	a.target = a.targetFor(index)
	a.elapsed = 0
	return true
}

// SetGeometry updates line pitch and viewport height. a settled animator
// snaps to the new target; a running one keeps easing toward it.
func (a *ScrollAnimator) SetGeometry(pitch, viewport float64) {
	a.pitch, a.viewport = pitch, viewport
	if !a.hasIndex {
		return
	}
	a.target = a.targetFor(a.index)
	if !a.Animating() {
		a.current = a.target
		a.start = a.target
	}
}

// Tick advances the animation by elapsed wall time and returns the offset.
func (a *ScrollAnimator) Tick(elapsed time.Duration) float64 {
	if !a.Animating() {
		return a.current
	}
	if elapsed > 0 {
		a.elapsed += elapsed
	}
	if a.elapsed >= a.duration {
		a.elapsed = a.duration
		a.current = a.target
		return a.current
	}

	t := float64(a.elapsed) / float64(a.duration)
	a.current = lerp(a.start, a.target, easeInOutQuad(t))
	return a.current
}

func (a *ScrollAnimator) Animating() bool {
	return a.elapsed < a.duration
}

func (a *ScrollAnimator) Offset() float64 {
	return a.current
}

func (a *ScrollAnimator) Target() float64 {
	return a.target
}

func (a *ScrollAnimator) Index() (int, bool) {
	return a.index, a.hasIndex
}

// Progress is the eased completion of the running scroll, 1 when settled.
func (a *ScrollAnimator) Progress() float64 {
	if a.duration <= 0 {
		return 1
	}
	return easeInOutQuad(float64(a.elapsed) / float64(a.duration))
}

func (a *ScrollAnimator) targetFor(index int) float64 {
	return float64(index)*a.pitch - a.viewport/2 + a.pitch/2
}

func easeInOutQuad(t float64) float64 {
	t = clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}

func clamp(val float64, min float64, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
