package coordinator

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lankai7/Music/internal/player"
	"github.com/lankai7/Music/internal/playlist"
	"github.com/lankai7/Music/internal/track"
	"github.com/lankai7/Music/internal/transport"
)

type fakeTransport struct {
	loads   []string
	stops   int
	paused  bool
	volume  int
	seekMs  int64
	loadErr error
}

func (f *fakeTransport) Load(url string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loads = append(f.loads, url)
	f.paused = false
	return nil
}
func (f *fakeTransport) Play() error                     { f.paused = false; return nil }
func (f *fakeTransport) Pause() error                    { f.paused = true; return nil }
func (f *fakeTransport) Stop() error                     { f.stops++; return nil }
func (f *fakeTransport) SetVolume(v int) error           { f.volume = v; return nil }
func (f *fakeTransport) SetPosition(ms int64) error      { f.seekMs = ms; return nil }
func (f *fakeTransport) Position() (int64, error)        { return 0, nil }
func (f *fakeTransport) Duration() (int64, error)        { return 0, nil }
func (f *fakeTransport) IsPaused() (bool, error)         { return f.paused, nil }
func (f *fakeTransport) Ready() bool                     { return true }
func (f *fakeTransport) Drain() []transport.Notification { return nil }

func items(n int) []track.Ref {
	out := make([]track.Ref, n)
	for i := range out {
		out[i] = track.Ref{ID: string(rune('a' + i)), Title: string(rune('A' + i)), Singer: "S"}
	}
	return out
}

func resolvedFor(req Request) *track.Resolved {
	return &track.Resolved{ID: req.Track.ID, PlayableURL: "http://stream/" + req.Track.ID}
}

func newTestCoordinator(t *testing.T, mode playlist.Mode, n int) (*Coordinator, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c, err := New(ft, playlist.NewCursor(mode, rand.New(rand.NewSource(11))), 70)
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	c.LoadPlaylist(items(n))
	return c, ft
}

// play selects index and completes its resolution.
func play(t *testing.T, c *Coordinator, index int) {
	t.Helper()
	req, err := c.Select(index)
	if err != nil {
		t.Fatalf("Select(%d) failed: %v", index, err)
	}
	out := c.ApplyResolution(req.Token, resolvedFor(req), nil)
	if !out.Applied {
		t.Fatalf("Expected resolution to apply, got %+v", out)
	}
}

func ended() player.EventData {
	return player.EventData{Type: player.EventEnded}
}

func TestLoadPlaylistStartsIdle(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 3)
	st := c.State()
	if st.Phase != Idle || st.HasIndex {
		t.Errorf("Expected idle with no index, got %+v", st)
	}
	if ft.stops != 1 {
		t.Errorf("Expected transport stop on playlist load, got %d", ft.stops)
	}
}

func TestSelectAndResolve(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 3)

	req, err := c.Select(1)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if c.State().Phase != Loading {
		t.Errorf("Expected loading, got %v", c.State().Phase)
	}
	if req.Track.ID != "b" || req.Index != 1 {
		t.Errorf("Unexpected request: %+v", req)
	}

	out := c.ApplyResolution(req.Token, &track.Resolved{PlayableURL: "http://stream/b"}, nil)
	if !out.Applied {
		t.Fatalf("Expected applied, got %+v", out)
	}
	if c.State().Phase != Playing {
		t.Errorf("Expected playing, got %v", c.State().Phase)
	}
	if len(ft.loads) != 1 || ft.loads[0] != "http://stream/b" {
		t.Errorf("Unexpected loads: %v", ft.loads)
	}
	if ft.volume != 70 {
		t.Errorf("Expected volume 70 to be applied, got %d", ft.volume)
	}
	if out.Track.Title != "B" || out.Track.ID != "b" {
		t.Errorf("Expected metadata from the playlist entry, got %+v", out.Track)
	}
}

func TestEndedSequentialWraps(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.Sequential, 3)
	play(t, c, 2)

	req, ok := c.HandleEvent(ended())
	if !ok {
		t.Fatal("Expected an advance request")
	}
	if req.Index != 0 {
		t.Errorf("Expected wrap to 0, got %d", req.Index)
	}
	if st := c.State(); st.Index != 0 || st.Phase != Loading {
		t.Errorf("Expected cursor at 0 and loading, got %+v", st)
	}
}

func TestEndedSingleLoopReplays(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.SingleLoop, 3)
	play(t, c, 1)
	tokenBefore := c.token

	if _, ok := c.HandleEvent(ended()); ok {
		t.Fatal("Expected no resolve request in single loop")
	}
	if len(ft.loads) != 2 || ft.loads[1] != "http://stream/b" {
		t.Errorf("Expected the same url to be reloaded, got %v", ft.loads)
	}
	st := c.State()
	if st.Index != 1 || st.Phase != Playing {
		t.Errorf("Expected to stay on 1 and play, got %+v", st)
	}
	if c.token != tokenBefore {
		t.Error("Expected single loop to not issue a new token")
	}
}

func TestEndedShuffleTwoItems(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.Shuffled, 2)
	play(t, c, 0)

	for step := 0; step < 10; step++ {
		before := c.State().Index
		req, ok := c.HandleEvent(ended())
		if !ok {
			t.Fatalf("Step %d: expected advance", step)
		}
		if req.Index == before {
			t.Fatalf("Step %d: shuffle repeated %d", step, before)
		}
		c.ApplyResolution(req.Token, resolvedFor(req), nil)
	}
}

func TestManualNavigationIgnoresMode(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.Shuffled, 3)
	play(t, c, 2)

	req, err := c.Next()
	if err != nil || req.Index != 0 {
		t.Errorf("Expected next to wrap to 0, got %d (%v)", req.Index, err)
	}
	c.ApplyResolution(req.Token, resolvedFor(req), nil)

	req, err = c.Previous()
	if err != nil || req.Index != 2 {
		t.Errorf("Expected previous to wrap to 2, got %d (%v)", req.Index, err)
	}
}

func TestResolutionFailureKeepsCursor(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 3)
	play(t, c, 0)

	req, _ := c.Next()
	indexBefore := c.State().Index

	out := c.ApplyResolution(req.Token, nil, errors.New("network down"))
	if out.Err == nil {
		t.Fatal("Expected a resolution error")
	}
	var rerr *ResolutionError
	if !errors.As(out.Err, &rerr) || rerr.TrackID != "b" {
		t.Errorf("Expected ResolutionError for b, got %v", out.Err)
	}

	st := c.State()
	if st.Index != indexBefore {
		t.Errorf("Expected cursor to stay at %d, got %d", indexBefore, st.Index)
	}
	if st.Phase != Failed || st.Err == nil {
		t.Errorf("Expected failed phase with error, got %+v", st)
	}
	if len(ft.loads) != 1 {
		t.Errorf("Expected transport to be left alone, got loads %v", ft.loads)
	}

	t.Run("EmptyURL", func(t *testing.T) {
		req, _ := c.Select(2)
		out := c.ApplyResolution(req.Token, &track.Resolved{}, nil)
		if !errors.Is(out.Err, ErrNoPlayableURL) {
			t.Errorf("Expected ErrNoPlayableURL, got %v", out.Err)
		}
		if c.State().Index != 2 {
			t.Errorf("Expected cursor at attempted index 2, got %d", c.State().Index)
		}
	})

	t.Run("RetryAfterFailure", func(t *testing.T) {
		req, _ := c.Select(2)
		out := c.ApplyResolution(req.Token, resolvedFor(req), nil)
		if !out.Applied || c.State().Phase != Playing {
			t.Errorf("Expected retry to play, got %+v", out)
		}
	})
}

func TestFailureKeepsPreviousTrackControllable(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 3)
	play(t, c, 0)

	req, _ := c.Next()
	if st := c.State(); st.Phase != Loading || st.Audible != Playing {
		t.Fatalf("Expected loading over an audible track, got %+v", st)
	}
	c.ApplyResolution(req.Token, nil, errors.New("network down"))

	st := c.State()
	if st.Phase != Failed || st.Audible != Playing {
		t.Fatalf("Expected failed phase with the old track still playing, got %+v", st)
	}
	if c.Current() == nil || c.Current().ID != "a" {
		t.Errorf("Expected current track to stay a, got %+v", c.Current())
	}

	if err := c.TogglePause(); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}
	if !ft.paused || c.State().Audible != Paused {
		t.Errorf("Expected the old track to pause, got paused=%v audible=%v", ft.paused, c.State().Audible)
	}
	if c.State().Phase != Failed {
		t.Errorf("Expected phase to stay failed, got %v", c.State().Phase)
	}

	c.HandleEvent(player.EventData{Type: player.EventStateChanged, Playing: true})
	if c.State().Audible != Playing {
		t.Errorf("Expected external resume to be tracked, got %v", c.State().Audible)
	}

	if err := c.Seek(1000); err != nil || ft.seekMs != 1000 {
		t.Errorf("Expected seek on the audible track, got %d (%v)", ft.seekMs, err)
	}
}

func TestOnLoadRunsForEveryLoad(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.SingleLoop, 2)
	loads := 0
	c.OnLoad(func() { loads++ })

	play(t, c, 0)
	if loads != 1 {
		t.Fatalf("Expected 1 load callback, got %d", loads)
	}

	c.HandleEvent(ended())
	if loads != 2 {
		t.Errorf("Expected loop reload to run the callback, got %d", loads)
	}

	req, _ := c.Next()
	c.ApplyResolution(req.Token, nil, errors.New("boom"))
	if loads != 2 {
		t.Errorf("Expected no callback for a failed resolution, got %d", loads)
	}
}

func TestStaleResolutionDropped(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 3)

	first, _ := c.Select(0)
	second, _ := c.Select(1)

	out := c.ApplyResolution(first.Token, resolvedFor(first), nil)
	if !out.Stale || out.Applied {
		t.Errorf("Expected stale outcome, got %+v", out)
	}
	if len(ft.loads) != 0 {
		t.Errorf("Expected stale result to not load, got %v", ft.loads)
	}
	if c.IsCurrent(first.Token) {
		t.Error("Expected first token to be stale")
	}

	out = c.ApplyResolution(second.Token, resolvedFor(second), nil)
	if !out.Applied {
		t.Errorf("Expected latest result to apply, got %+v", out)
	}

	t.Run("AfterPlaylistReset", func(t *testing.T) {
		req, _ := c.Select(2)
		c.LoadPlaylist(items(2))
		out := c.ApplyResolution(req.Token, resolvedFor(req), nil)
		if !out.Stale {
			t.Errorf("Expected stale after playlist reset, got %+v", out)
		}
		if c.State().Phase != Idle {
			t.Errorf("Expected idle, got %v", c.State().Phase)
		}
	})
}

func TestPauseToggleAndStateEvents(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 2)
	play(t, c, 0)

	if err := c.TogglePause(); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}
	if c.State().Phase != Paused || !ft.paused {
		t.Errorf("Expected paused, got %v", c.State().Phase)
	}

	c.HandleEvent(player.EventData{Type: player.EventStateChanged, Playing: true})
	if c.State().Phase != Playing {
		t.Errorf("Expected external resume to move to playing, got %v", c.State().Phase)
	}
	c.HandleEvent(player.EventData{Type: player.EventStateChanged, Playing: false})
	if c.State().Phase != Paused {
		t.Errorf("Expected paused, got %v", c.State().Phase)
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 2)
	play(t, c, 1)
	stops := ft.stops

	c.Stop()
	st := c.State()
	if st.Phase != Idle || st.HasIndex {
		t.Errorf("Expected idle with no index, got %+v", st)
	}
	if ft.stops != stops+1 {
		t.Error("Expected transport to be stopped")
	}
	if _, ok := c.HandleEvent(ended()); ok {
		t.Error("Expected end-of-track to be ignored while idle")
	}
}

func TestEmptyPlaylist(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.Sequential, 0)
	if _, err := c.Next(); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("Expected ErrEmptyPlaylist, got %v", err)
	}
	if _, err := c.Select(0); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("Expected ErrEmptyPlaylist, got %v", err)
	}
}

func TestVolumeAndSeek(t *testing.T) {
	c, ft := newTestCoordinator(t, playlist.Sequential, 1)

	if err := c.Seek(5000); err != nil || ft.seekMs != 0 {
		t.Errorf("Expected seek to be ignored while idle, got %d (%v)", ft.seekMs, err)
	}

	_ = c.SetVolume(150)
	if c.Volume() != 100 || ft.volume != 100 {
		t.Errorf("Expected volume clamped to 100, got %d/%d", c.Volume(), ft.volume)
	}

	play(t, c, 0)
	if err := c.Seek(-10); err != nil || ft.seekMs != 0 {
		t.Errorf("Expected negative seek clamped to 0, got %d", ft.seekMs)
	}
	_ = c.Seek(42000)
	if ft.seekMs != 42000 {
		t.Errorf("Expected seek to 42000, got %d", ft.seekMs)
	}
}

func TestCycleMode(t *testing.T) {
	c, _ := newTestCoordinator(t, playlist.Sequential, 1)
	if m := c.CycleMode(); m != playlist.Shuffled {
		t.Errorf("Expected shuffle, got %v", m)
	}
	if c.Mode() != playlist.Shuffled {
		t.Errorf("Expected cursor mode to follow, got %v", c.Mode())
	}
}
