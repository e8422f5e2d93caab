package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dexterlb/mpvipc"
)

func TestNotificationFromEndFile(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    EndReason
	}{
		{"EOF", `{"event":"end-file","reason":"eof","playlist_entry_id":1}`, EndEOF},
		{"Stop", `{"event":"end-file","reason":"stop","playlist_entry_id":2}`, EndStop},
		{"Quit", `{"event":"end-file","reason":"quit"}`, EndQuit},
		{"Redirect", `{"event":"end-file","reason":"redirect"}`, EndRedirect},
		{"Garbage", `{"event":"end-file","reason":"whatever"}`, EndUnknown},
		{"Missing", `{"event":"end-file"}`, EndUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event mpvipc.Event
			if err := json.Unmarshal([]byte(tt.payload), &event); err != nil {
				t.Fatalf("failed to decode event: %v", err)
			}
			got := notificationFromEndFile(&event)
			if got.Reason != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got.Reason)
			}
		})
	}

	t.Run("FileErrorDetail", func(t *testing.T) {
		var event mpvipc.Event
		payload := `{"event":"end-file","reason":"error","file_error":"loading failed"}`
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		got := notificationFromEndFile(&event)
		if got.Detail != "loading failed" {
			t.Errorf("Expected detail, got %q", got.Detail)
		}
		if got.Reason != EndError || got.IsEOF() {
			t.Errorf("Expected error end that is not EOF, got %v", got.Reason)
		}
	})

	t.Run("Nil", func(t *testing.T) {
		if got := notificationFromEndFile(nil); got.Reason != EndUnknown {
			t.Errorf("Expected unknown, got %v", got.Reason)
		}
	})
}

func TestQueue(t *testing.T) {
	t.Run("DrainEmpties", func(t *testing.T) {
		q := NewQueue(4)
		q.Push(Notification{Reason: EndStop})
		q.Push(Notification{Reason: EndEOF})

		got := q.Drain()
		if len(got) != 2 {
			t.Fatalf("Expected 2 notifications, got %d", len(got))
		}
		if got[0].Reason != EndStop || got[1].Reason != EndEOF {
			t.Errorf("Expected FIFO order, got %v", got)
		}
		if again := q.Drain(); len(again) != 0 {
			t.Errorf("Expected empty drain, got %d", len(again))
		}
	})

	t.Run("DropsOldestWhenFull", func(t *testing.T) {
		q := NewQueue(2)
		q.Push(Notification{Detail: "a"})
		q.Push(Notification{Detail: "b"})
		q.Push(Notification{Detail: "c"})

		got := q.Drain()
		if len(got) != 2 || got[0].Detail != "b" || got[1].Detail != "c" {
			t.Errorf("Expected [b c], got %v", got)
		}
	})
}

func TestIsUnavailable(t *testing.T) {
	if !IsUnavailable(fmt.Errorf("%w: time-pos: no file", ErrUnavailable)) {
		t.Error("Expected wrapped ErrUnavailable to match")
	}
	if !IsUnavailable(ErrNotConnected) {
		t.Error("Expected ErrNotConnected to match")
	}
	if IsUnavailable(errors.New("boom")) {
		t.Error("Expected unrelated error to not match")
	}
}

func TestMPVWithoutConnection(t *testing.T) {
	m := NewMPV(MPVOptions{SocketPath: "/nonexistent/socket"})
	if m.Ready() {
		t.Error("Expected unstarted mpv to not be ready")
	}
	if _, err := m.Position(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := m.Load("http://example.invalid/a.mp3"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if got := m.Drain(); len(got) != 0 {
		t.Errorf("Expected no notifications, got %v", got)
	}
}
