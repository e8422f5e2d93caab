package player

import (
	"testing"

	"github.com/lankai7/Music/internal/transport"
)

type fakeTransport struct {
	ready    bool
	position int64
	duration int64
	paused   bool
	queryErr error
	pending  []transport.Notification
}

func (f *fakeTransport) Load(string) error          { return nil }
func (f *fakeTransport) Play() error                { f.paused = false; return nil }
func (f *fakeTransport) Pause() error               { f.paused = true; return nil }
func (f *fakeTransport) Stop() error                { return nil }
func (f *fakeTransport) SetVolume(int) error        { return nil }
func (f *fakeTransport) SetPosition(ms int64) error { f.position = ms; return nil }
func (f *fakeTransport) Ready() bool                { return f.ready }

func (f *fakeTransport) Position() (int64, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return f.position, nil
}

func (f *fakeTransport) Duration() (int64, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return f.duration, nil
}

func (f *fakeTransport) IsPaused() (bool, error) {
	if f.queryErr != nil {
		return false, f.queryErr
	}
	return f.paused, nil
}

func (f *fakeTransport) Drain() []transport.Notification {
	out := f.pending
	f.pending = nil
	return out
}

func countEvents(events []EventData, kind Event) int {
	n := 0
	for _, e := range events {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func newTestPoller(t *testing.T, ft *fakeTransport) *Poller {
	t.Helper()
	p, err := NewPoller(ft, 250)
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	return p
}

func TestNewPollerNilTransport(t *testing.T) {
	if _, err := NewPoller(nil, 0); err == nil {
		t.Error("Expected error for nil transport")
	}
}

func TestPollStateTransitions(t *testing.T) {
	ft := &fakeTransport{ready: true, duration: 200000}
	p := newTestPoller(t, ft)

	// playing, playing, paused, paused, playing
	sequence := []bool{false, false, true, true, false}
	total := 0
	for i, paused := range sequence {
		ft.paused = paused
		ft.position = int64(i) * 500
		total += countEvents(p.Poll(), EventStateChanged)
	}

	// not playing -> playing, playing -> paused, paused -> playing
	if total != 3 {
		t.Errorf("Expected 3 state events, got %d", total)
	}
}

func TestPollDurationOnlyOnChange(t *testing.T) {
	ft := &fakeTransport{ready: true, duration: 180000}
	p := newTestPoller(t, ft)

	if n := countEvents(p.Poll(), EventDurationChanged); n != 1 {
		t.Fatalf("Expected first poll to report duration, got %d", n)
	}
	if n := countEvents(p.Poll(), EventDurationChanged); n != 0 {
		t.Errorf("Expected no duration event for unchanged duration, got %d", n)
	}
	ft.duration = 240000
	events := p.Poll()
	if n := countEvents(events, EventDurationChanged); n != 1 {
		t.Errorf("Expected duration event after change, got %d", n)
	}
}

func TestPollPosition(t *testing.T) {
	t.Run("AlwaysWhilePlaying", func(t *testing.T) {
		ft := &fakeTransport{ready: true, duration: 100000}
		p := newTestPoller(t, ft)
		for i := 0; i < 3; i++ {
			ft.position = 1000 + int64(i)
			if n := countEvents(p.Poll(), EventPositionChanged); n != 1 {
				t.Fatalf("Poll %d: expected a position event while playing, got %d", i, n)
			}
		}
	})

	t.Run("MaterialChangeWhilePaused", func(t *testing.T) {
		ft := &fakeTransport{ready: true, duration: 100000, paused: true, position: 5000}
		p := newTestPoller(t, ft)

		if n := countEvents(p.Poll(), EventPositionChanged); n != 1 {
			t.Fatalf("Expected first observation to emit, got %d", n)
		}
		ft.position = 5100
		if n := countEvents(p.Poll(), EventPositionChanged); n != 0 {
			t.Errorf("Expected sub-tolerance drift to be ignored, got %d", n)
		}
		ft.position = 20000
		events := p.Poll()
		if n := countEvents(events, EventPositionChanged); n != 1 {
			t.Fatalf("Expected seek while paused to emit, got %d", n)
		}
		if events[0].PositionMs != 20000 {
			t.Errorf("Expected position 20000, got %d", events[0].PositionMs)
		}
	})
}

func TestPollEndOfStream(t *testing.T) {
	ft := &fakeTransport{ready: true, duration: 100000}
	p := newTestPoller(t, ft)
	p.Poll()

	ft.pending = []transport.Notification{{Reason: transport.EndStop}, {Reason: transport.EndEOF}}
	events := p.Poll()
	if n := countEvents(events, EventEnded); n != 1 {
		t.Fatalf("Expected one ended event, got %d", n)
	}
	if !p.Snapshot().JustEnded {
		t.Error("Expected JustEnded to be set for this tick")
	}

	events = p.Poll()
	if n := countEvents(events, EventEnded); n != 0 {
		t.Errorf("Expected ended to fire once, got %d", n)
	}
	if p.Snapshot().JustEnded {
		t.Error("Expected JustEnded to clear on the next tick")
	}
}

func TestPollIgnoresNonEOFEnd(t *testing.T) {
	ft := &fakeTransport{ready: true}
	p := newTestPoller(t, ft)
	ft.pending = []transport.Notification{{Reason: transport.EndStop}, {Reason: transport.EndError}}

	if n := countEvents(p.Poll(), EventEnded); n != 0 {
		t.Errorf("Expected stop and error to be ignored, got %d ended events", n)
	}
}

func TestPollUnavailableTransport(t *testing.T) {
	t.Run("NotReady", func(t *testing.T) {
		ft := &fakeTransport{ready: false, position: 1000}
		p := newTestPoller(t, ft)
		if events := p.Poll(); len(events) != 0 {
			t.Errorf("Expected no events, got %v", events)
		}
		// recovers once the transport comes back
		ft.ready = true
		if events := p.Poll(); len(events) == 0 {
			t.Error("Expected events once the transport is ready")
		}
	})

	t.Run("QueryFailsButEOFKept", func(t *testing.T) {
		ft := &fakeTransport{ready: true, queryErr: transport.ErrUnavailable}
		ft.pending = []transport.Notification{{Reason: transport.EndEOF}}
		p := newTestPoller(t, ft)

		events := p.Poll()
		if len(events) != 1 || events[0].Type != EventEnded {
			t.Errorf("Expected only the ended event, got %v", events)
		}
	})
}

func TestPollerReset(t *testing.T) {
	ft := &fakeTransport{ready: true, duration: 100000, paused: true}
	p := newTestPoller(t, ft)
	p.Poll()

	p.Reset()
	events := p.Poll()
	if countEvents(events, EventDurationChanged) != 1 {
		t.Error("Expected duration to be reported again after reset")
	}
	if countEvents(events, EventPositionChanged) != 1 {
		t.Error("Expected position to be reported again after reset")
	}
}
