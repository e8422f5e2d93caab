package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lankai7/Music/internal/coordinator"
	"github.com/lankai7/Music/internal/lyrics"
	"github.com/lankai7/Music/internal/mpris"
	"github.com/lankai7/Music/internal/player"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.search.Width = max(msg.Width-6, 10)
		m.anim.SetGeometry(float64(m.pitch), float64(m.lyricViewportHeight()))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKeyPress(msg)

	case pollTickMsg:
		return m.handlePoll()

	case frameMsg:
		return m.handleFrame(time.Time(msg))

	case listMsg:
		return m.handleList(msg)

	case resolvedMsg:
		return m.handleResolved(msg)

	case coverMsg:
		return m.handleCover(msg)

	case mprisMsg:
		next, cmd := m.handleMPRIS(msg.cmd)
		return next, tea.Batch(cmd, m.listenMPRIS())

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.coord.State().Phase != coordinator.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil

	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		query := strings.TrimSpace(m.search.Value())
		m.listSeq++
		return m, m.fetchList(m.listSeq, sourceSearch, query)

	case tea.KeyCtrlC:
		return m.quit()
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < m.coord.Cursor().Len()-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Play):
		req, err := m.coord.Select(m.selected)
		return m.startRequest(req, err)

	case key.Matches(msg, m.keys.Next):
		req, err := m.coord.Next()
		return m.startRequest(req, err)

	case key.Matches(msg, m.keys.Previous):
		req, err := m.coord.Previous()
		return m.startRequest(req, err)

	case key.Matches(msg, m.keys.Pause):
		if err := m.coord.TogglePause(); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.publish()
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.coord.Stop()
		m.resetTrackDisplay()
		m.publish()
		return m, m.setStatus("stopped", false)

	case key.Matches(msg, m.keys.Mode):
		mode := m.coord.CycleMode()
		return m, m.setStatus("mode: "+mode.String(), false)

	case key.Matches(msg, m.keys.VolumeUp):
		return m.changeVolume(volumeStep)

	case key.Matches(msg, m.keys.VolumeDown):
		return m.changeVolume(-volumeStep)

	case key.Matches(msg, m.keys.SeekBack):
		return m.seek(-seekStep)

	case key.Matches(msg, m.keys.SeekFwd):
		return m.seek(seekStep)

	case key.Matches(msg, m.keys.Hot):
		m.listSeq++
		return m, m.fetchList(m.listSeq, sourceHot, "")

	case key.Matches(msg, m.keys.Latest):
		m.listSeq++
		return m, m.fetchList(m.listSeq, sourceLatest, "")

	case key.Matches(msg, m.keys.Favorites):
		if m.favorites == nil {
			return m, m.setStatus("favorites are disabled", true)
		}
		m.listSeq++
		return m, m.fetchList(m.listSeq, sourceFavorites, "")

	case key.Matches(msg, m.keys.Favorite):
		return m.toggleFavorite()

	case key.Matches(msg, m.keys.OffsetDown):
		return m.shiftOffset(-offsetStep)

	case key.Matches(msg, m.keys.OffsetUp):
		return m.shiftOffset(offsetStep)

	case key.Matches(msg, m.keys.OffsetZero):
		return m.shiftOffset(-m.trackOffset)

	case key.Matches(msg, m.keys.List):
		m.showList = !m.showList
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.anim.SetGeometry(float64(m.pitch), float64(m.lyricViewportHeight()))
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.coord.Stop()
	m.publish()
	return m, tea.Quit
}

// startRequest kicks off the resolve for a navigation result.
func (m Model) startRequest(req coordinator.Request, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if errors.Is(err, coordinator.ErrEmptyPlaylist) {
			return m, m.setStatus("nothing to play, search first", true)
		}
		return m, m.setStatus(err.Error(), true)
	}

	// the previous track keeps playing, with its lyrics, until the new one
	// resolves.
	m.selected = req.Index
	m.publish()
	status := m.setStatus("loading "+req.Track.Label(), false)
	return m, tea.Batch(m.resolveCmd(req), m.spinner.Tick, status)
}

func (m Model) handlePoll() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{pollCmd(m.pollInterval)}

	if m.poller != nil {
		for _, ev := range m.poller.Poll() {
			if cmd := m.handlePlayerEvent(ev); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	if cmd := m.syncLyrics(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.bridge.SetPosition(m.snapshot.PositionMs)

	return m, tea.Batch(cmds...)
}

// handlePlayerEvent folds one poller event into the model and the
// coordinator. it returns the command for a follow-up request, if any.
func (m *Model) handlePlayerEvent(ev player.EventData) tea.Cmd {
	switch ev.Type {
	case player.EventPositionChanged:
		m.snapshot.PositionMs = ev.PositionMs
	case player.EventDurationChanged:
		m.snapshot.DurationMs = ev.DurationMs
	case player.EventStateChanged:
		m.snapshot.IsPlaying = ev.Playing
	}

	before := m.coord.State().Phase
	req, ok := m.coord.HandleEvent(ev)
	if ok {
		next, cmd := m.startRequest(req, nil)
		*m = next.(Model)
		return cmd
	}

	if ev.Type == player.EventEnded && m.coord.State().Audible == coordinator.Playing {
		// looped in place
		m.snapshot.PositionMs = 0
	}
	if m.coord.State().Phase != before {
		m.publish()
	}
	return nil
}

// syncLyrics resolves the current line and starts a scroll when it moved.
func (m *Model) syncLyrics() tea.Cmd {
	if m.doc.Empty() {
		return nil
	}
	index, ok, changed := m.lines.Update(m.queryMs())
	if !changed || !ok {
		return nil
	}
	if !m.anim.OnIndexChanged(index) || m.framing {
		return nil
	}
	m.framing = true
	m.lastFrame = time.Now()
	return frameCmd()
}

func (m Model) handleFrame(now time.Time) (tea.Model, tea.Cmd) {
	elapsed := now.Sub(m.lastFrame)
	m.lastFrame = now
	m.anim.Tick(elapsed)

	if m.anim.Animating() {
		return m, frameCmd()
	}
	m.framing = false
	return m, nil
}

func (m Model) handleList(msg listMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.listSeq {
		m.logger.Debug().Uint64("seq", msg.seq).Uint64("current", m.listSeq).Msg("stale list dropped")
		return m, nil
	}
	if msg.err != nil {
		return m, m.setStatus(fmt.Sprintf("%s failed: %v", msg.source, msg.err), true)
	}

	m.coord.LoadPlaylist(msg.items)
	m.resetTrackDisplay()
	m.selected = 0
	m.listName = msg.source.String()
	if msg.query != "" {
		m.listName = fmt.Sprintf("%s %q", msg.source, msg.query)
	}
	m.publish()

	if len(msg.items) == 0 {
		return m, m.setStatus("no results", true)
	}
	return m, m.setStatus(fmt.Sprintf("%d tracks", len(msg.items)), false)
}

func (m Model) handleResolved(msg resolvedMsg) (tea.Model, tea.Cmd) {
	out := m.coord.ApplyResolution(msg.token, msg.res, msg.err)
	switch {
	case out.Stale:
		return m, nil
	case out.Err != nil:
		m.publish()
		return m, m.setStatus(describeFailure(out.Err), true)
	}

	res := out.Track
	m.resetTrackDisplay()
	m.doc = lyrics.Parse(res.LyricText)
	m.lines = lyrics.NewResolver(m.doc)
	m.anim.Reset(m.doc.Len())
	m.anim.SetGeometry(float64(m.pitch), float64(m.lyricViewportHeight()))
	if m.offsets != nil {
		m.trackOffset = m.offsets.SyncOffset(res.ID)
	}
	if m.favorites != nil {
		m.favorite, _ = m.favorites.Contains(res.ID)
	}
	m.publish()

	cmds := []tea.Cmd{m.coverCmd(msg.token, res.CoverURL)}
	if m.doc.Empty() {
		cmds = append(cmds, m.setStatus("no synced lyrics", false))
	} else {
		cmds = append(cmds, m.setStatus("", false))
	}
	return m, tea.Batch(cmds...)
}

func describeFailure(err error) string {
	var rerr *coordinator.ResolutionError
	if errors.As(err, &rerr) && errors.Is(rerr, coordinator.ErrNoPlayableURL) {
		return "track is not playable"
	}
	return err.Error()
}

func (m Model) handleCover(msg coverMsg) (tea.Model, tea.Cmd) {
	if !m.coord.IsCurrent(msg.token) {
		return m, nil
	}
	if msg.err != nil {
		m.logger.Debug().Err(msg.err).Msg("cover unavailable")
		return m, nil
	}
	m.cover = msg.image
	if msg.palette != nil {
		m.palette = msg.palette
	}
	return m, nil
}

func (m Model) handleMPRIS(cmd mpris.Command) (tea.Model, tea.Cmd) {
	audible := m.coord.State().Audible
	switch cmd {
	case mpris.CommandNext:
		req, err := m.coord.Next()
		return m.startRequest(req, err)
	case mpris.CommandPrevious:
		req, err := m.coord.Previous()
		return m.startRequest(req, err)
	case mpris.CommandStop:
		m.coord.Stop()
		m.resetTrackDisplay()
	case mpris.CommandPlayPause,
		mpris.CommandPlay,
		mpris.CommandPause:
		if wantsToggle(cmd, audible) {
			if err := m.coord.TogglePause(); err != nil {
				m.logger.Warn().Err(err).Stringer("command", cmd).Msg("media key failed")
			}
		}
	}
	m.publish()
	return m, nil
}

func wantsToggle(cmd mpris.Command, audible coordinator.Phase) bool {
	switch cmd {
	case mpris.CommandPlay:
		return audible == coordinator.Paused
	case mpris.CommandPause:
		return audible == coordinator.Playing
	default:
		return true
	}
}

func (m Model) changeVolume(delta int) (tea.Model, tea.Cmd) {
	if err := m.coord.SetVolume(m.coord.Volume() + delta); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	m.publish()
	return m, m.setStatus(fmt.Sprintf("volume %d%%", m.coord.Volume()), false)
}

func (m Model) seek(delta time.Duration) (tea.Model, tea.Cmd) {
	target := max(m.snapshot.PositionMs+delta.Milliseconds(), 0)
	if err := m.coord.Seek(target); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	return m, nil
}

func (m Model) toggleFavorite() (tea.Model, tea.Cmd) {
	if m.favorites == nil {
		return m, m.setStatus("favorites are disabled", true)
	}
	ref, ok := m.coord.Cursor().Current()
	if !ok {
		ref, ok = m.coord.Cursor().Item(m.selected)
	}
	if !ok {
		return m, nil
	}

	added, err := m.favorites.Toggle(ref)
	if err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	if cur := m.coord.Current(); cur != nil && cur.ID == ref.ID {
		m.favorite = added
	}
	if added {
		return m, m.setStatus("♥ "+ref.Label(), false)
	}
	return m, m.setStatus("removed "+ref.Label(), false)
}

func (m Model) shiftOffset(delta int64) (tea.Model, tea.Cmd) {
	cur := m.coord.Current()
	if cur == nil {
		return m, nil
	}
	m.trackOffset += delta
	if m.offsets != nil {
		if err := m.offsets.SetSyncOffset(cur.ID, m.trackOffset); err != nil {
			m.logger.Warn().Err(err).Str("id", cur.ID).Msg("failed to save sync offset")
		}
	}
	cmd := m.syncLyrics()
	return m, tea.Batch(cmd, m.setStatus(fmt.Sprintf("lyrics offset %+dms", m.trackOffset), false))
}

// publish pushes the playback state to the desktop bridge.
func (m Model) publish() {
	st := m.coord.State()
	status := mpris.StatusStopped
	switch {
	case st.Audible == coordinator.Paused:
		status = mpris.StatusPaused
	case st.Audible == coordinator.Playing, st.Phase == coordinator.Loading:
		status = mpris.StatusPlaying
	}
	m.bridge.Update(status, m.coord.Current(), m.coord.Volume())
}
