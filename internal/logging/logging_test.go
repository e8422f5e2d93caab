package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" WARN ", zerolog.WarnLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWritesFile(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "nested", "musicbox.log")
	closer, err := Setup("info", path)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	log.Info().Str("component", "test").Msg("hello file")
	log.Debug().Msg("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello file") {
		t.Errorf("Expected log line in file, got %q", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Error("Expected debug line to be filtered at info level")
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := Setup("chatty", ""); err == nil {
		t.Error("Expected error for invalid level")
	}
}
