package player

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/transport"
)

const DefaultPositionTolerance int64 = 250

type Event int

const (
	EventPositionChanged Event = iota
	EventDurationChanged
	EventStateChanged
	EventEnded
)

func (e Event) String() string {
	switch e {
	case EventPositionChanged:
		return "position"
	case EventDurationChanged:
		return "duration"
	case EventStateChanged:
		return "state"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type EventData struct {
	Type       Event
	PositionMs int64
	DurationMs int64
	Playing    bool
}

// Snapshot is the transport state observed by the latest poll.
type Snapshot struct {
	PositionMs int64
	DurationMs int64
	IsPlaying  bool
	JustEnded  bool
}

type Poller struct {
	transport transport.Transport
	tolerance int64

	mu    sync.RWMutex
	state Snapshot

	lastEmittedPos int64
	hasPosition    bool
	hasDuration    bool

	logger zerolog.Logger
}

func NewPoller(t transport.Transport, tolerance int64) (*Poller, error) {
	if t == nil {
		return nil, errors.New("nil transport")
	}
	if tolerance <= 0 {
		tolerance = DefaultPositionTolerance
	}
	return &Poller{
		transport: t,
		tolerance: tolerance,
		logger:    log.With().Str("component", "poller").Logger(),
	}, nil
}

// Poll runs one reconciliation tick and returns the events it produced, in
// order. an absent or failing transport yields no events; the caller keeps
// ticking regardless.
func (p *Poller) Poll() []EventData {
	if p.transport == nil || !p.transport.Ready() {
		p.setJustEnded(false)
		return nil
	}

	justEnded := false
	for _, n := range p.transport.Drain() {
		if n.IsEOF() {
			justEnded = true
			continue
		}
		p.logger.Debug().Str("reason", n.Reason.String()).Str("detail", n.Detail).Msg("ignoring end notification")
	}

	var events []EventData
	p.setJustEnded(justEnded)

	queried, err := p.query()
	if err != nil {
		if transport.IsUnavailable(err) {
			p.logger.Debug().Err(err).Msg("transport query skipped")
		} else {
			p.logger.Warn().Err(err).Msg("transport query failed")
		}
	} else {
		events = p.reconcile(queried)
	}

	if justEnded {
		p.mu.RLock()
		ended := EventData{Type: EventEnded, PositionMs: p.state.PositionMs, DurationMs: p.state.DurationMs}
		p.mu.RUnlock()
		events = append(events, ended)
	}

	return events
}

// Reset forgets the last known position and duration so a freshly loaded
// track reports both again.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.PositionMs = 0
	p.state.DurationMs = 0
	p.state.JustEnded = false
	p.hasPosition = false
	p.hasDuration = false
	p.lastEmittedPos = 0
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Poller) query() (Snapshot, error) {
	pos, err := p.transport.Position()
	if err != nil {
		return Snapshot{}, err
	}
	dur, err := p.transport.Duration()
	if err != nil {
		return Snapshot{}, err
	}
	paused, err := p.transport.IsPaused()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{PositionMs: pos, DurationMs: dur, IsPlaying: !paused}, nil
}

func (p *Poller) reconcile(next Snapshot) []EventData {
	p.mu.Lock()
	defer p.mu.Unlock()

	var events []EventData

	moved := next.PositionMs - p.lastEmittedPos
	if moved < 0 {
		moved = -moved
	}
	if next.IsPlaying || !p.hasPosition || moved >= p.tolerance {
		p.lastEmittedPos = next.PositionMs
		p.hasPosition = true
		events = append(events, EventData{Type: EventPositionChanged, PositionMs: next.PositionMs, Playing: next.IsPlaying})
	}

	if !p.hasDuration || next.DurationMs != p.state.DurationMs {
		p.hasDuration = true
		events = append(events, EventData{Type: EventDurationChanged, DurationMs: next.DurationMs})
	}

	if next.IsPlaying != p.state.IsPlaying {
		events = append(events, EventData{Type: EventStateChanged, Playing: next.IsPlaying, PositionMs: next.PositionMs})
	}

	p.state.PositionMs = next.PositionMs
	p.state.DurationMs = next.DurationMs
	p.state.IsPlaying = next.IsPlaying

	return events
}

func (p *Poller) setJustEnded(v bool) {
	p.mu.Lock()
	p.state.JustEnded = v
	p.mu.Unlock()
}
