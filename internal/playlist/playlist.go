package playlist

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/lankai7/Music/internal/track"
)

type Mode int

const (
	Sequential Mode = iota
	Shuffled
	SingleLoop
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Shuffled:
		return "shuffle"
	case SingleLoop:
		return "loop-one"
	default:
		return "unknown"
	}
}

// Next is the mode that follows m in the mode toggle.
func (m Mode) Next() Mode {
	switch m {
	case Sequential:
		return Shuffled
	case Shuffled:
		return SingleLoop
	default:
		return Sequential
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "seq", "order":
		return Sequential, nil
	case "shuffle", "shuffled", "random":
		return Shuffled, nil
	case "loop-one", "single", "singleloop", "repeat-one":
		return SingleLoop, nil
	default:
		return Sequential, fmt.Errorf("unknown play mode %q", s)
	}
}

// Cursor is a playlist with an optional current position.
type Cursor struct {
	items []track.Ref
	index int
	has   bool
	mode  Mode
	rng   *rand.Rand
}

// NewCursor returns an empty cursor. rng drives shuffle; nil seeds from the clock.
func NewCursor(mode Mode, rng *rand.Rand) *Cursor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Cursor{mode: mode, rng: rng}
}

// Replace swaps in a new list and clears the current position.
func (c *Cursor) Replace(items []track.Ref) {
	c.items = append([]track.Ref(nil), items...)
	c.index, c.has = 0, false
}

// Clear keeps the items but drops the current position.
func (c *Cursor) Clear() {
	c.index, c.has = 0, false
}

func (c *Cursor) Items() []track.Ref {
	return append([]track.Ref(nil), c.items...)
}

func (c *Cursor) Len() int {
	return len(c.items)
}

func (c *Cursor) Item(i int) (track.Ref, bool) {
	if i < 0 || i >= len(c.items) {
		return track.Ref{}, false
	}
	return c.items[i], true
}

func (c *Cursor) Index() (int, bool) {
	return c.index, c.has
}

func (c *Cursor) Current() (track.Ref, bool) {
	if !c.has {
		return track.Ref{}, false
	}
	return c.items[c.index], true
}

func (c *Cursor) Mode() Mode {
	return c.mode
}

func (c *Cursor) SetMode(m Mode) {
	c.mode = m
}

// Select makes i current. it fails for indices outside the list.
func (c *Cursor) Select(i int) error {
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(c.items))
	}
	c.index, c.has = i, true
	return nil
}

// NextIndex is the manual "next" target, wrapping to the start.
func (c *Cursor) NextIndex() (int, bool) {
	n := len(c.items)
	if n == 0 {
		return 0, false
	}
	if !c.has {
		return 0, true
	}
	return (c.index + 1) % n, true
}

// PreviousIndex is the manual "previous" target, wrapping to the end.
func (c *Cursor) PreviousIndex() (int, bool) {
	n := len(c.items)
	if n == 0 {
		return 0, false
	}
	if !c.has || c.index <= 0 {
		return n - 1, true
	}
	return c.index - 1, true
}

// EndIndex picks the track to play after the current one finished, according
// to the play mode. SingleLoop returns the current index.
func (c *Cursor) EndIndex() (int, bool) {
	n := len(c.items)
	if n == 0 {
		return 0, false
	}

	switch c.mode {
	case SingleLoop:
		if c.has {
			return c.index, true
		}
		return 0, true
	case Shuffled:
		if n == 1 {
			return 0, true
		}
		if !c.has {
			return c.rng.Intn(n), true
		}
		// uniform over every index except the one that just played
		pick := c.rng.Intn(n - 1)
		if pick >= c.index {
			pick++
		}
		return pick, true
	default:
		return c.NextIndex()
	}
}
