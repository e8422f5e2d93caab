package ui

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/artwork"
	"github.com/lankai7/Music/internal/coordinator"
	"github.com/lankai7/Music/internal/lyrics"
	"github.com/lankai7/Music/internal/mpris"
	"github.com/lankai7/Music/internal/player"
	"github.com/lankai7/Music/internal/terminal"
	"github.com/lankai7/Music/internal/track"
)

const (
	frameInterval   = 33 * time.Millisecond
	statusLifetime  = 4 * time.Second
	requestTimeout  = 15 * time.Second
	seekStep        = 5 * time.Second
	volumeStep      = 5
	offsetStep      = 100
	defaultPollRate = 500 * time.Millisecond
)

// Catalog lists tracks.
type Catalog interface {
	Search(ctx context.Context, keyword string) ([]track.Ref, error)
	Hot(ctx context.Context) ([]track.Ref, error)
	Latest(ctx context.Context) ([]track.Ref, error)
}

type Resolver interface {
	Resolve(ctx context.Context, id string) (*track.Resolved, error)
}

// OffsetStore remembers a per-track lyric offset in milliseconds.
type OffsetStore interface {
	SyncOffset(id string) int64
	SetSyncOffset(id string, offsetMs int64) error
}

type Favorites interface {
	Toggle(ref track.Ref) (bool, error)
	Contains(id string) (bool, error)
	List() ([]track.Ref, error)
}

// Options wires the model. Favorites, Offsets and MPRIS may be nil.
type Options struct {
	Coordinator *coordinator.Coordinator
	Poller      *player.Poller
	Catalog     Catalog
	Resolver    Resolver
	Offsets     OffsetStore
	Favorites   Favorites
	MPRIS       *mpris.Server
	HTTPClient  *http.Client
	Terminal    terminal.Capabilities

	PollInterval   time.Duration
	LinePitch      int
	ScrollDuration time.Duration
	SyncOffset     time.Duration
	InitialQuery   string
}

type listSource int

const (
	sourceSearch listSource = iota
	sourceHot
	sourceLatest
	sourceFavorites
)

func (s listSource) String() string {
	switch s {
	case sourceHot:
		return "hot"
	case sourceLatest:
		return "new"
	case sourceFavorites:
		return "favorites"
	default:
		return "search"
	}
}

type pollTickMsg time.Time

type frameMsg time.Time

type listMsg struct {
	seq    uint64
	source listSource
	query  string
	items  []track.Ref
	err    error
}

type resolvedMsg struct {
	token uint64
	res   *track.Resolved
	err   error
}

type coverMsg struct {
	token   uint64
	image   image.Image
	palette *artwork.Palette
	err     error
}

type mprisMsg struct {
	cmd mpris.Command
}

type statusExpiredMsg struct {
	id int
}

type Model struct {
	coord     *coordinator.Coordinator
	poller    *player.Poller
	catalog   Catalog
	resolver  Resolver
	offsets   OffsetStore
	favorites Favorites
	bridge    *mpris.Server
	client    *http.Client
	caps      terminal.Capabilities

	pollInterval time.Duration
	pitch        int
	baseOffset   int64
	initialQuery string

	keys    keyMap
	help    help.Model
	search  textinput.Model
	spinner spinner.Model

	searching bool
	showList  bool
	listSeq   uint64
	listName  string
	selected  int

	doc       lyrics.Document
	lines     *lyrics.Resolver
	anim      *ScrollAnimator
	framing   bool
	lastFrame time.Time

	snapshot    player.Snapshot
	trackOffset int64
	favorite    bool
	cover       image.Image
	palette     *artwork.Palette

	status    string
	statusErr bool
	statusID  int

	width    int
	height   int
	quitting bool

	logger zerolog.Logger
}

func NewModel(opts Options) Model {
	pitch := opts.LinePitch
	if pitch < 1 {
		pitch = 1
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollRate
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	search := textinput.New()
	search.Placeholder = "song or artist"
	search.Prompt = "/ "
	search.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		coord:        opts.Coordinator,
		poller:       opts.Poller,
		catalog:      opts.Catalog,
		resolver:     opts.Resolver,
		offsets:      opts.Offsets,
		favorites:    opts.Favorites,
		bridge:       opts.MPRIS,
		client:       client,
		caps:         opts.Terminal,
		pollInterval: poll,
		pitch:        pitch,
		baseOffset:   opts.SyncOffset.Milliseconds(),
		initialQuery: opts.InitialQuery,
		keys:         defaultKeyMap(),
		help:         help.New(),
		search:       search,
		spinner:      spin,
		showList:     true,
		listSeq:      1,
		anim:         NewScrollAnimator(float64(pitch), 0, opts.ScrollDuration),
		lines:        lyrics.NewResolver(lyrics.Document{}),
		palette:      artwork.DefaultPalette(),
		logger:       log.With().Str("component", "ui").Logger(),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{pollCmd(m.pollInterval), m.listenMPRIS()}
	if m.initialQuery != "" {
		cmds = append(cmds, m.fetchList(m.listSeq, sourceSearch, m.initialQuery))
	} else {
		cmds = append(cmds, m.fetchList(m.listSeq, sourceHot, ""))
	}
	return tea.Batch(cmds...)
}

func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func statusExpiry(id int) tea.Cmd {
	return tea.Tick(statusLifetime, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}

func (m Model) listenMPRIS() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	commands := m.bridge.Commands()
	return func() tea.Msg {
		cmd, ok := <-commands
		if !ok {
			return nil
		}
		return mprisMsg{cmd: cmd}
	}
}

// fetchList runs a list query tagged with seq. results whose seq no longer
// matches m.listSeq are dropped.
func (m Model) fetchList(seq uint64, source listSource, query string) tea.Cmd {
	catalog, favorites := m.catalog, m.favorites
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		msg := listMsg{seq: seq, source: source, query: query}
		switch source {
		case sourceHot:
			msg.items, msg.err = catalog.Hot(ctx)
		case sourceLatest:
			msg.items, msg.err = catalog.Latest(ctx)
		case sourceFavorites:
			if favorites == nil {
				return msg
			}
			msg.items, msg.err = favorites.List()
		default:
			msg.items, msg.err = catalog.Search(ctx, query)
		}
		return msg
	}
}

func (m Model) resolveCmd(req coordinator.Request) tea.Cmd {
	resolver := m.resolver
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := resolver.Resolve(ctx, req.Track.ID)
		return resolvedMsg{token: req.Token, res: res, err: err}
	}
}

func (m Model) coverCmd(token uint64, coverURL string) tea.Cmd {
	if coverURL == "" {
		return nil
	}
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		img, err := artwork.Fetch(ctx, client, coverURL)
		if err != nil {
			return coverMsg{token: token, err: err}
		}
		return coverMsg{token: token, image: img, palette: artwork.ExtractPalette(img)}
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.status = text
	m.statusErr = isErr
	return statusExpiry(m.statusID)
}

// queryMs is the playback position shifted by the configured and the
// per-track lyric offsets.
func (m Model) queryMs() int64 {
	return m.snapshot.PositionMs + m.baseOffset + m.trackOffset
}

func (m Model) lyricViewportHeight() int {
	return max(m.height-headerRows-m.footerHeight(), 1)
}

func (m *Model) resetTrackDisplay() {
	m.doc = lyrics.Document{}
	m.lines = lyrics.NewResolver(m.doc)
	m.anim.Reset(0)
	m.cover = nil
	m.palette = artwork.DefaultPalette()
	m.trackOffset = 0
	m.favorite = false
	m.snapshot = player.Snapshot{}
}

func (m Model) accent() lipgloss.Color {
	return lipgloss.Color(m.palette.Primary)
}

func (m Model) Width() int  { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Document() lyrics.Document { return m.doc }
func (m Model) Animator() *ScrollAnimator { return m.anim }
func (m Model) Status() string            { return m.status }
func (m Model) Selected() int             { return m.selected }
func (m Model) IsQuitting() bool          { return m.quitting }
