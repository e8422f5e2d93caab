package mpris

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/track"
)

const (
	busName         = "org.mpris.MediaPlayer2.musicbox"
	objectPath      = "/org/mpris/MediaPlayer2"
	rootIface       = "org.mpris.MediaPlayer2"
	playerIface     = "org.mpris.MediaPlayer2.Player"
	identity        = "musicbox"
	commandCapacity = 8
)

var ErrNameTaken = errors.New("mpris bus name already taken")

// Command is a control request received from the desktop.
type Command int

const (
	CommandPlayPause Command = iota
	CommandPlay
	CommandPause
	CommandStop
	CommandNext
	CommandPrevious
)

func (c Command) String() string {
	switch c {
	case CommandPlayPause:
		return "play-pause"
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandStop:
		return "stop"
	case CommandNext:
		return "next"
	case CommandPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// Status mirrors the MPRIS PlaybackStatus values.
type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

// Server exports the player on the session bus and forwards method calls
// as Commands. it never touches playback itself.
type Server struct {
	conn     *dbus.Conn
	props    *prop.Properties
	commands chan Command
	logger   zerolog.Logger

	closeOnce sync.Once
}

type rootObject struct{}

func (rootObject) Raise() *dbus.Error { return nil }
func (rootObject) Quit() *dbus.Error  { return nil }

type playerObject struct {
	server *Server
}

func (p playerObject) Next() *dbus.Error      { return p.server.forward(CommandNext) }
func (p playerObject) Previous() *dbus.Error  { return p.server.forward(CommandPrevious) }
func (p playerObject) Pause() *dbus.Error     { return p.server.forward(CommandPause) }
func (p playerObject) PlayPause() *dbus.Error { return p.server.forward(CommandPlayPause) }
func (p playerObject) Stop() *dbus.Error      { return p.server.forward(CommandStop) }
func (p playerObject) Play() *dbus.Error      { return p.server.forward(CommandPlay) }

func (p playerObject) Seek(offset int64) *dbus.Error                         { return nil }
func (p playerObject) SetPosition(id dbus.ObjectPath, pos int64) *dbus.Error { return nil }
func (p playerObject) OpenUri(uri string) *dbus.Error                        { return nil }

// Start connects to the session bus and claims the musicbox name.
func Start() (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	s, err := newServer(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newServer(conn *dbus.Conn) (*Server, error) {
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, ErrNameTaken
	}

	s := &Server{
		conn:     conn,
		commands: make(chan Command, commandCapacity),
		logger:   log.With().Str("component", "mpris").Logger(),
	}
	player := playerObject{server: s}

	if err := conn.Export(rootObject{}, objectPath, rootIface); err != nil {
		return nil, fmt.Errorf("failed to export root interface: %w", err)
	}
	if err := conn.Export(player, objectPath, playerIface); err != nil {
		return nil, fmt.Errorf("failed to export player interface: %w", err)
	}

	props, err := prop.Export(conn, objectPath, propertySpec())
	if err != nil {
		return nil, fmt.Errorf("failed to export properties: %w", err)
	}
	s.props = props

	node := &introspect.Node{
		Name: objectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{Name: rootIface, Methods: introspect.Methods(rootObject{})},
			{Name: playerIface, Methods: introspect.Methods(player)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	s.logger.Info().Str("name", busName).Msg("mpris bridge ready")
	return s, nil
}

func propertySpec() prop.Map {
	return prop.Map{
		rootIface: {
			"CanQuit":             {Value: false, Writable: false, Emit: prop.EmitTrue},
			"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitTrue},
			"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitTrue},
			"Identity":            {Value: identity, Writable: false, Emit: prop.EmitTrue},
			"SupportedUriSchemes": {Value: []string{"http", "https"}, Writable: false, Emit: prop.EmitTrue},
			"SupportedMimeTypes":  {Value: []string{"audio/mpeg", "audio/flac"}, Writable: false, Emit: prop.EmitTrue},
		},
		playerIface: {
			"PlaybackStatus": {Value: string(StatusStopped), Writable: false, Emit: prop.EmitTrue},
			"Rate":           {Value: 1.0, Writable: false, Emit: prop.EmitTrue},
			"Metadata":       {Value: map[string]dbus.Variant{}, Writable: false, Emit: prop.EmitTrue},
			"Volume":         {Value: 1.0, Writable: false, Emit: prop.EmitTrue},
			"Position":       {Value: int64(0), Writable: false, Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Writable: false, Emit: prop.EmitTrue},
			"MaximumRate":    {Value: 1.0, Writable: false, Emit: prop.EmitTrue},
			"CanGoNext":      {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanPlay":        {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanPause":       {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanSeek":        {Value: false, Writable: false, Emit: prop.EmitTrue},
			"CanControl":     {Value: true, Writable: false, Emit: prop.EmitTrue},
		},
	}
}

func (s *Server) forward(cmd Command) *dbus.Error {
	select {
	case s.commands <- cmd:
		s.logger.Debug().Stringer("command", cmd).Msg("forwarded")
	default:
		s.logger.Warn().Stringer("command", cmd).Msg("command queue full, dropping")
	}
	return nil
}

// Commands delivers control requests in arrival order.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

// Update publishes the playback status, the current track and the volume
// (0..100). res may be nil when nothing is loaded.
func (s *Server) Update(status Status, res *track.Resolved, volume int) {
	if s == nil || s.props == nil {
		return
	}
	s.props.SetMust(playerIface, "PlaybackStatus", string(status))
	s.props.SetMust(playerIface, "Metadata", Metadata(res))
	s.props.SetMust(playerIface, "Volume", float64(volume)/100)
}

// SetPosition records the playhead without emitting a signal.
func (s *Server) SetPosition(ms int64) {
	if s == nil || s.props == nil {
		return
	}
	s.props.SetMust(playerIface, "Position", ms*1000)
}

func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if _, relErr := s.conn.ReleaseName(busName); relErr != nil {
			s.logger.Debug().Err(relErr).Msg("failed to release bus name")
		}
		err = s.conn.Close()
	})
	return err
}

// Metadata builds the xesam/mpris map for res.
func Metadata(res *track.Resolved) map[string]dbus.Variant {
	md := map[string]dbus.Variant{}
	if res == nil || res.ID == "" {
		return md
	}

	md["mpris:trackid"] = dbus.MakeVariant(TrackPath(res.ID))
	md["xesam:title"] = dbus.MakeVariant(res.Title)
	if res.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{res.Artist})
	}
	if res.Album != "" {
		md["xesam:album"] = dbus.MakeVariant(res.Album)
	}
	if ms := res.DurationMs(); ms > 0 {
		md["mpris:length"] = dbus.MakeVariant(ms * 1000)
	}
	if res.CoverURL != "" {
		md["mpris:artUrl"] = dbus.MakeVariant(res.CoverURL)
	}
	return md
}

// TrackPath turns a catalog id into a valid object path.
func TrackPath(id string) dbus.ObjectPath {
	buf := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			buf = append(buf, c)
		} else {
			buf = append(buf, '_')
		}
	}
	return dbus.ObjectPath("/org/musicbox/track/t" + string(buf))
}
