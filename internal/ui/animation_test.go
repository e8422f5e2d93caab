package ui

import (
	"testing"
	"time"
)

func TestScrollAnimatorTarget(t *testing.T) {
	a := NewScrollAnimator(40, 400, 0)
	a.Reset(10)

	if !a.OnIndexChanged(5) {
		t.Fatal("Expected animation to start")
	}
	// 5*40 - 400/2 + 40/2
	if a.Target() != 20 {
		t.Errorf("Expected target 20, got %v", a.Target())
	}
}

func TestScrollAnimatorSettlesExactly(t *testing.T) {
	a := NewScrollAnimator(2, 20, 400*time.Millisecond)
	a.Reset(30)
	a.OnIndexChanged(12)

	for i := 0; i < 10; i++ {
		a.Tick(40 * time.Millisecond)
	}
	if a.Animating() {
		t.Fatal("Expected animation to be finished after 400ms")
	}
	if a.Offset() != a.Target() {
		t.Errorf("Expected offset %v, got %v", a.Target(), a.Offset())
	}

	// ticks after completion are idempotent
	settled := a.Offset()
	a.Tick(time.Second)
	a.Tick(0)
	if a.Offset() != settled {
		t.Errorf("Expected offset to stay %v, got %v", settled, a.Offset())
	}
}

func TestScrollAnimatorNoOvershoot(t *testing.T) {
	t.Run("Forward", func(t *testing.T) {
		a := NewScrollAnimator(2, 10, 400*time.Millisecond)
		a.Reset(100)
		a.OnIndexChanged(50)
		start, target := a.Offset(), a.Target()
		prev := start
		for i := 0; i < 50; i++ {
			cur := a.Tick(10 * time.Millisecond)
			if cur < start || cur > target {
				t.Fatalf("Offset %v outside [%v, %v]", cur, start, target)
			}
			if cur < prev {
				t.Fatalf("Offset moved backwards: %v -> %v", prev, cur)
			}
			prev = cur
		}
	})

	t.Run("Backward", func(t *testing.T) {
		a := NewScrollAnimator(2, 10, 400*time.Millisecond)
		a.Reset(100)
		a.OnIndexChanged(60)
		a.Tick(time.Second)
		a.OnIndexChanged(3)
		start, target := a.Offset(), a.Target()
		for i := 0; i < 50; i++ {
			cur := a.Tick(10 * time.Millisecond)
			if cur > start || cur < target {
				t.Fatalf("Offset %v outside [%v, %v]", cur, target, start)
			}
		}
	})
}

func TestScrollAnimatorSameIndexStartsOnce(t *testing.T) {
	a := NewScrollAnimator(2, 20, 400*time.Millisecond)
	a.Reset(10)

	if !a.OnIndexChanged(4) {
		t.Fatal("Expected first call to start an animation")
	}
	a.Tick(200 * time.Millisecond)
	mid := a.Offset()

	if a.OnIndexChanged(4) {
		t.Error("Expected repeated index to be a no-op")
	}
	// the running animation must not restart
	a.Tick(200 * time.Millisecond)
	if a.Animating() {
		t.Error("Expected the original animation to finish on schedule")
	}
	if a.Offset() == mid {
		t.Error("Expected offset to keep moving after the repeated call")
	}
}

func TestScrollAnimatorInvalidIndex(t *testing.T) {
	a := NewScrollAnimator(2, 20, 400*time.Millisecond)
	a.Reset(3)
	a.OnIndexChanged(2)
	a.Tick(time.Second)
	target := a.Target()

	for _, index := range []int{-1, 3, 99} {
		if a.OnIndexChanged(index) {
			t.Errorf("Expected index %d to be rejected", index)
		}
	}
	if a.Target() != target {
		t.Errorf("Expected target to stay %v, got %v", target, a.Target())
	}
	if a.Animating() {
		t.Error("Expected no animation after invalid index")
	}
}

func TestScrollAnimatorRetargetMidFlight(t *testing.T) {
	a := NewScrollAnimator(2, 20, 400*time.Millisecond)
	a.Reset(20)
	a.OnIndexChanged(5)
	a.Tick(100 * time.Millisecond)
	mid := a.Offset()

	a.OnIndexChanged(10)
	if a.Offset() != mid {
		t.Errorf("Expected retarget to start from current offset %v, got %v", mid, a.Offset())
	}
	a.Tick(400 * time.Millisecond)
	if a.Offset() != a.Target() {
		t.Errorf("Expected to land on %v, got %v", a.Target(), a.Offset())
	}
}

func TestScrollAnimatorSetGeometry(t *testing.T) {
	a := NewScrollAnimator(2, 20, 400*time.Millisecond)
	a.Reset(20)
	a.OnIndexChanged(6)
	a.Tick(time.Second)

	a.SetGeometry(2, 10)
	// 6*2 - 10/2 + 2/2
	if a.Target() != 8 || a.Offset() != 8 {
		t.Errorf("Expected settled offset to snap to 8, got target=%v offset=%v", a.Target(), a.Offset())
	}
}

func TestEaseInOutQuad(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.125},
		{0.5, 0.5},
		{0.75, 0.875},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := easeInOutQuad(tt.in); got != tt.want {
			t.Errorf("easeInOutQuad(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
