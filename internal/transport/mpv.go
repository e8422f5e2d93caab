package transport

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/dexterlb/mpvipc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const socketWaitAttempts = 50

// MPVOptions configures the mpv child process.
type MPVOptions struct {
	Executable string
	SocketPath string
	Volume     int
	ExtraArgs  []string
}

// MPV drives an audio-only mpv process over its JSON IPC socket.
type MPV struct {
	opts MPVOptions

	mu   sync.RWMutex
	conn *mpvipc.Connection
	cmd  *exec.Cmd

	queue      *Queue
	stopEvents chan struct{}
	logger     zerolog.Logger
}

func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("musicbox-mpv-%d.sock", os.Getpid()))
}

func NewMPV(opts MPVOptions) *MPV {
	if opts.Executable == "" {
		opts.Executable = "mpv"
	}
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath()
	}
	return &MPV{
		opts:   opts,
		queue:  NewQueue(64),
		logger: log.With().Str("component", "mpv").Logger(),
	}
}

// Start launches mpv in idle mode and connects to its IPC socket.
func (m *MPV) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return nil
	}

	_ = os.Remove(m.opts.SocketPath)

	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server=" + m.opts.SocketPath,
		fmt.Sprintf("--volume=%d", clampVolume(m.opts.Volume)),
	}
	args = append(args, m.opts.ExtraArgs...)

	m.cmd = exec.Command(m.opts.Executable, args...)
	if err := m.cmd.Start(); err != nil {
		m.cmd = nil
		return fmt.Errorf("failed to start mpv: %w", err)
	}
	m.logger.Info().Int("pid", m.cmd.Process.Pid).Str("socket", m.opts.SocketPath).Msg("mpv started")

	for i := 0; i < socketWaitAttempts; i++ {
		if _, err := os.Stat(m.opts.SocketPath); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	conn := mpvipc.NewConnection(m.opts.SocketPath)
	if err := conn.Open(); err != nil {
		_ = m.cmd.Process.Kill()
		m.cmd = nil
		return fmt.Errorf("failed to connect to mpv ipc: %w", err)
	}
	m.conn = conn
	m.stopEvents = make(chan struct{})

	go m.listenEvents(conn, m.stopEvents)

	return nil
}

// Close quits mpv and removes its socket.
func (m *MPV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopEvents != nil {
		close(m.stopEvents)
		m.stopEvents = nil
	}
	if m.conn != nil {
		_, _ = m.conn.Call("quit")
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		done := make(chan struct{})
		go func(cmd *exec.Cmd) {
			_ = cmd.Wait()
			close(done)
		}(m.cmd)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = m.cmd.Process.Kill()
		}
		m.cmd = nil
	}
	_ = os.Remove(m.opts.SocketPath)
	return nil
}

func (m *MPV) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil && !m.conn.IsClosed()
}

func (m *MPV) Load(url string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	if _, err := conn.Call("loadfile", url, "replace"); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}
	return conn.Set("pause", false)
}

func (m *MPV) Play() error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.Set("pause", false)
}

func (m *MPV) Pause() error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.Set("pause", true)
}

func (m *MPV) Stop() error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	_, err = conn.Call("stop")
	return err
}

func (m *MPV) SetVolume(percent int) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.Set("volume", clampVolume(percent))
}

func (m *MPV) SetPosition(ms int64) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	if ms < 0 {
		ms = 0
	}
	_, err = conn.Call("seek", float64(ms)/1000, "absolute")
	return err
}

func (m *MPV) Position() (int64, error) {
	return m.getMillis("time-pos")
}

func (m *MPV) Duration() (int64, error) {
	return m.getMillis("duration")
}

func (m *MPV) IsPaused() (bool, error) {
	conn, err := m.connection()
	if err != nil {
		return false, err
	}
	value, err := conn.Get("pause")
	if err != nil {
		return false, fmt.Errorf("%w: pause: %v", ErrUnavailable, err)
	}
	paused, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: pause has type %T", ErrUnavailable, value)
	}
	return paused, nil
}

func (m *MPV) Drain() []Notification {
	return m.queue.Drain()
}

func (m *MPV) connection() (*mpvipc.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil || m.conn.IsClosed() {
		return nil, ErrNotConnected
	}
	return m.conn, nil
}

func (m *MPV) getMillis(property string) (int64, error) {
	conn, err := m.connection()
	if err != nil {
		return 0, err
	}
	value, err := conn.Get(property)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnavailable, property, err)
	}
	seconds, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s has type %T", ErrUnavailable, property, value)
	}
	return int64(math.Round(seconds * 1000)), nil
}

func (m *MPV) listenEvents(conn *mpvipc.Connection, stop chan struct{}) {
	events, stopListening := conn.NewEventListener()
	defer close(stopListening)

	for {
		select {
		case <-stop:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Name != "end-file" {
				continue
			}
			n := notificationFromEndFile(event)
			m.logger.Debug().Str("reason", n.Reason.String()).Str("detail", n.Detail).Msg("end-file")
			m.queue.Push(n)
		}
	}
}

// notificationFromEndFile decodes an mpv end-file event. mpvipc lifts the
// reason into Event.Reason; only the error detail stays in ExtraData.
func notificationFromEndFile(event *mpvipc.Event) Notification {
	if event == nil {
		return Notification{Reason: EndUnknown}
	}
	n := Notification{Reason: ParseEndReason(event.Reason)}
	if detail, ok := event.ExtraData["file_error"].(string); ok {
		n.Detail = detail
	}
	return n
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

// IsUnavailable reports whether err means the engine simply has nothing to say.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotConnected)
}
