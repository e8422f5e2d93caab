package transport

import (
	"errors"
	"sync"
)

var (
	// ErrUnavailable means the media engine has nothing to report right now,
	// e.g. no file is loaded or the process died.
	ErrUnavailable  = errors.New("transport unavailable")
	ErrNotConnected = errors.New("transport not connected")
)

// Transport is the playback engine the player drives. positions and
// durations are milliseconds; volume is a percentage 0..100.
type Transport interface {
	Load(url string) error
	Play() error
	Pause() error
	Stop() error
	SetVolume(percent int) error
	SetPosition(ms int64) error

	Position() (int64, error)
	Duration() (int64, error)
	IsPaused() (bool, error)

	// Ready reports whether the engine can answer queries.
	Ready() bool
	// Drain returns and clears the notifications queued since the last call.
	Drain() []Notification
}

type EndReason int

const (
	EndEOF EndReason = iota
	EndStop
	EndQuit
	EndError
	EndRedirect
	EndUnknown
)

func (r EndReason) String() string {
	switch r {
	case EndEOF:
		return "eof"
	case EndStop:
		return "stop"
	case EndQuit:
		return "quit"
	case EndError:
		return "error"
	case EndRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

func ParseEndReason(s string) EndReason {
	switch s {
	case "eof":
		return EndEOF
	case "stop":
		return EndStop
	case "quit":
		return EndQuit
	case "error":
		return EndError
	case "redirect":
		return EndRedirect
	default:
		return EndUnknown
	}
}

// Notification is an asynchronous engine event, currently only end-of-file.
type Notification struct {
	Reason EndReason
	Detail string
}

func (n Notification) IsEOF() bool {
	return n.Reason == EndEOF
}

// Queue is a goroutine-safe FIFO of notifications. producers are engine
// listener goroutines; the single consumer is the poller.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 64
	}
	return &Queue{limit: limit}
}

// Push appends n, dropping the oldest entry when the queue is full.
func (q *Queue) Push(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
