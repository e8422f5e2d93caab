package track

import (
	"strconv"
	"strings"
)

// Ref is a catalog listing entry: enough to show a row and request a resolve.
type Ref struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Singer     string `json:"singer"`
	CoverURL   string `json:"cover_url,omitempty"`
	Popularity int    `json:"popularity,omitempty"`
}

func (r Ref) IsValid() bool {
	return r.ID != ""
}

// Label is the single-line display form, "title - singer".
func (r Ref) Label() string {
	switch {
	case r.Title == "":
		return r.Singer
	case r.Singer == "":
		return r.Title
	default:
		return r.Title + " - " + r.Singer
	}
}

// Resolved is a track after the catalog handed out a playable stream.
type Resolved struct {
	ID          string
	PlayableURL string
	Title       string
	Artist      string
	Album       string
	Quality     string
	Duration    string
	Size        string
	CoverURL    string
	LyricText   string
}

func (r *Resolved) Playable() bool {
	return r != nil && strings.TrimSpace(r.PlayableURL) != ""
}

func (r *Resolved) IsSameTrack(other *Resolved) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.ID != "" && other.ID != "" {
		return r.ID == other.ID
	}
	return r.Title == other.Title && r.Artist == other.Artist
}

// Merge fills empty display fields from the listing entry it was resolved from.
func (r *Resolved) Merge(ref Ref) {
	if r.ID == "" {
		r.ID = ref.ID
	}
	if r.Title == "" {
		r.Title = ref.Title
	}
	if r.Artist == "" {
		r.Artist = ref.Singer
	}
	if r.CoverURL == "" {
		r.CoverURL = ref.CoverURL
	}
}

// DurationMs parses the catalog duration, which is either plain seconds or
// "mm:ss". unknown formats give 0.
func (r *Resolved) DurationMs() int64 {
	if r == nil {
		return 0
	}
	raw := strings.TrimSpace(r.Duration)
	if raw == "" {
		return 0
	}
	if mins, secs, ok := strings.Cut(raw, ":"); ok {
		m, err1 := strconv.Atoi(mins)
		s, err2 := strconv.Atoi(secs)
		if err1 != nil || err2 != nil {
			return 0
		}
		return int64(m*60+s) * 1000
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return int64(secs * 1000)
}
