package coordinator

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/player"
	"github.com/lankai7/Music/internal/playlist"
	"github.com/lankai7/Music/internal/track"
	"github.com/lankai7/Music/internal/transport"
)

var (
	ErrNoPlayableURL = errors.New("no playable url")
	ErrEmptyPlaylist = errors.New("playlist is empty")
)

// ResolutionError wraps a failed attempt to turn a playlist entry into a stream.
type ResolutionError struct {
	Index   int
	TrackID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve track %s (#%d): %v", e.TrackID, e.Index, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

type Phase int

const (
	Idle Phase = iota
	Loading
	Playing
	Paused
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the coordinator's view of playback. Audible is what the transport
// is doing: Idle, Playing or Paused. it differs from Phase while a track is
// loading or after a failed resolution, when the previous track keeps playing.
type State struct {
	Phase    Phase
	Audible  Phase
	Index    int
	HasIndex bool
	Err      error
}

// Request asks the caller to resolve Track and fetch its cover. results must
// be handed back with the same Token.
type Request struct {
	Token uint64
	Index int
	Track track.Ref
}

type Outcome struct {
	Applied bool
	Stale   bool
	Err     error
	Track   *track.Resolved
}

// Coordinator owns the playlist cursor and decides what the transport plays.
// it is not safe for concurrent use; drive it from one goroutine.
type Coordinator struct {
	transport transport.Transport
	cursor    *playlist.Cursor

	phase   Phase
	audible Phase
	token   uint64
	current *track.Resolved
	lastErr error
	volume  int
	onLoad  func()

	logger zerolog.Logger
}

func New(t transport.Transport, cursor *playlist.Cursor, volume int) (*Coordinator, error) {
	if t == nil {
		return nil, errors.New("nil transport")
	}
	if cursor == nil {
		cursor = playlist.NewCursor(playlist.Sequential, nil)
	}
	return &Coordinator{
		transport: t,
		cursor:    cursor,
		volume:    clampVolume(volume),
		logger:    log.With().Str("component", "coordinator").Logger(),
	}, nil
}

func (c *Coordinator) State() State {
	index, ok := c.cursor.Index()
	return State{Phase: c.phase, Audible: c.audible, Index: index, HasIndex: ok, Err: c.lastErr}
}

// OnLoad registers fn to run after every successful transport load.
func (c *Coordinator) OnLoad(fn func()) {
	c.onLoad = fn
}

func (c *Coordinator) Cursor() *playlist.Cursor {
	return c.cursor
}

// Current is the track the transport was last told to play.
func (c *Coordinator) Current() *track.Resolved {
	return c.current
}

func (c *Coordinator) Volume() int {
	return c.volume
}

func (c *Coordinator) Mode() playlist.Mode {
	return c.cursor.Mode()
}

// IsCurrent reports whether token belongs to the latest request.
func (c *Coordinator) IsCurrent(token uint64) bool {
	return token == c.token
}

// LoadPlaylist replaces the catalog list. playback stops, the cursor has no
// position and any pending resolution becomes stale.
func (c *Coordinator) LoadPlaylist(items []track.Ref) {
	c.token++
	c.cursor.Replace(items)
	c.stopTransport()
	c.current = nil
	c.lastErr = nil
	c.phase = Idle
	c.audible = Idle
	c.logger.Debug().Int("items", len(items)).Msg("playlist replaced")
}

func (c *Coordinator) Select(index int) (Request, error) {
	if c.cursor.Len() == 0 {
		return Request{}, ErrEmptyPlaylist
	}
	if err := c.cursor.Select(index); err != nil {
		return Request{}, err
	}
	return c.begin(index), nil
}

func (c *Coordinator) Next() (Request, error) {
	index, ok := c.cursor.NextIndex()
	if !ok {
		return Request{}, ErrEmptyPlaylist
	}
	return c.Select(index)
}

func (c *Coordinator) Previous() (Request, error) {
	index, ok := c.cursor.PreviousIndex()
	if !ok {
		return Request{}, ErrEmptyPlaylist
	}
	return c.Select(index)
}

// HandleEvent applies a poller event. it returns a Request when the event
// caused the cursor to advance to a track that needs resolving.
func (c *Coordinator) HandleEvent(ev player.EventData) (Request, bool) {
	switch ev.Type {
	case player.EventEnded:
		return c.handleEnded()
	case player.EventStateChanged:
		c.audible = follow(c.audible, ev.Playing)
		if c.phase == Playing || c.phase == Paused {
			c.phase = follow(c.phase, ev.Playing)
		}
	}
	return Request{}, false
}

func (c *Coordinator) handleEnded() (Request, bool) {
	c.audible = Idle
	if c.phase != Playing && c.phase != Paused && c.phase != Failed {
		c.logger.Debug().Str("phase", c.phase.String()).Msg("end of track ignored")
		return Request{}, false
	}

	if c.cursor.Mode() == playlist.SingleLoop && c.phase != Failed && c.current.Playable() {
		if err := c.load(c.current.PlayableURL); err != nil {
			c.fail(&ResolutionError{Index: c.indexOrZero(), TrackID: c.current.ID, Err: err})
			return Request{}, false
		}
		c.phase = Playing
		c.logger.Debug().Str("id", c.current.ID).Msg("looping track")
		return Request{}, false
	}

	index, ok := c.cursor.EndIndex()
	if !ok {
		c.phase = Idle
		return Request{}, false
	}
	req, err := c.Select(index)
	if err != nil {
		return Request{}, false
	}
	return req, true
}

// ApplyResolution hands the result of a Request back. results for anything but
// the latest request are dropped. on failure the cursor stays on the attempted
// entry and the transport keeps whatever it had.
func (c *Coordinator) ApplyResolution(token uint64, res *track.Resolved, err error) Outcome {
	if token != c.token || c.phase != Loading {
		c.logger.Debug().Uint64("token", token).Uint64("current", c.token).Msg("stale resolution dropped")
		return Outcome{Stale: true}
	}

	index := c.indexOrZero()
	ref, _ := c.cursor.Current()

	if err == nil && !res.Playable() {
		err = ErrNoPlayableURL
	}
	if err != nil {
		rerr := &ResolutionError{Index: index, TrackID: ref.ID, Err: err}
		c.fail(rerr)
		return Outcome{Err: rerr}
	}

	res.Merge(ref)
	if err := c.load(res.PlayableURL); err != nil {
		rerr := &ResolutionError{Index: index, TrackID: ref.ID, Err: fmt.Errorf("load: %w", err)}
		c.fail(rerr)
		return Outcome{Err: rerr}
	}
	if err := c.transport.SetVolume(c.volume); err != nil {
		c.logger.Warn().Err(err).Msg("failed to apply volume")
	}

	c.current = res
	c.lastErr = nil
	c.phase = Playing
	c.logger.Info().Str("id", res.ID).Str("title", res.Title).Int("index", index).Msg("playing")

	return Outcome{Applied: true, Track: res}
}

// TogglePause pauses or resumes whatever the transport is playing, including
// the previous track while another one loads or after it failed to resolve.
func (c *Coordinator) TogglePause() error {
	switch c.audible {
	case Playing:
		if err := c.transport.Pause(); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
	case Paused:
		if err := c.transport.Play(); err != nil {
			return fmt.Errorf("play: %w", err)
		}
	default:
		return nil
	}

	playing := c.audible == Paused
	c.audible = follow(c.audible, playing)
	if c.phase == Playing || c.phase == Paused {
		c.phase = follow(c.phase, playing)
	}
	return nil
}

// Stop halts playback and clears the cursor position.
func (c *Coordinator) Stop() {
	c.token++
	c.stopTransport()
	c.cursor.Clear()
	c.current = nil
	c.lastErr = nil
	c.phase = Idle
	c.audible = Idle
}

func (c *Coordinator) SetVolume(percent int) error {
	c.volume = clampVolume(percent)
	if !c.transport.Ready() {
		return nil
	}
	return c.transport.SetVolume(c.volume)
}

func (c *Coordinator) Seek(ms int64) error {
	if c.audible != Playing && c.audible != Paused {
		return nil
	}
	if ms < 0 {
		ms = 0
	}
	if d := c.current.DurationMs(); d > 0 && ms > d {
		ms = d
	}
	return c.transport.SetPosition(ms)
}

func (c *Coordinator) CycleMode() playlist.Mode {
	m := c.cursor.Mode().Next()
	c.cursor.SetMode(m)
	return m
}

func (c *Coordinator) SetMode(m playlist.Mode) {
	c.cursor.SetMode(m)
}

func (c *Coordinator) begin(index int) Request {
	c.token++
	c.phase = Loading
	c.lastErr = nil
	ref, _ := c.cursor.Item(index)
	c.logger.Debug().Uint64("token", c.token).Int("index", index).Str("id", ref.ID).Msg("resolving")
	return Request{Token: c.token, Index: index, Track: ref}
}

// load hands url to the transport and marks it audible.
func (c *Coordinator) load(url string) error {
	if err := c.transport.Load(url); err != nil {
		return err
	}
	c.audible = Playing
	if c.onLoad != nil {
		c.onLoad()
	}
	return nil
}

func follow(p Phase, playing bool) Phase {
	switch {
	case playing && p == Paused:
		return Playing
	case !playing && p == Playing:
		return Paused
	}
	return p
}

func (c *Coordinator) fail(err error) {
	c.phase = Failed
	c.lastErr = err
	c.logger.Warn().Err(err).Msg("resolution failed")
}

func (c *Coordinator) stopTransport() {
	if !c.transport.Ready() {
		return
	}
	if err := c.transport.Stop(); err != nil {
		c.logger.Debug().Err(err).Msg("transport stop failed")
	}
}

func (c *Coordinator) indexOrZero() int {
	index, _ := c.cursor.Index()
	return index
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
