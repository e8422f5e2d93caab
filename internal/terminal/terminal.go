package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
)

const (
	kittyEnv       = "MUSICBOX_KITTY_GRAPHICS"
	kittyChunkSize = 4096
	cellWidthPx    = 10
	cellHeightPx   = 20
)

// Capabilities describes what the attached terminal can draw.
type Capabilities struct {
	KittyGraphics bool
	TermProgram   string
}

// Detect reads the environment through lookup. kitty images are opt-in
// because multiplexers tend to mangle them.
func Detect(lookup func(string) string) Capabilities {
	caps := Capabilities{TermProgram: lookup("TERM_PROGRAM")}

	switch strings.ToLower(lookup(kittyEnv)) {
	case "1", "true", "yes", "on":
		caps.KittyGraphics = true
		if caps.TermProgram == "" {
			caps.TermProgram = "kitty"
		}
	}
	return caps
}

// Restore undoes alt-screen, mouse and cursor modes. used after a crash
// left the terminal in raw mode.
func Restore(w io.Writer) {
	for _, seq := range []string{
		"\033[?25h",
		"\033[0m",
		"\033[?1049l",
		"\033[?1000l",
		"\033[?1002l",
		"\033[?1003l",
		"\033[?1006l",
	} {
		io.WriteString(w, seq)
	}
}

// KittyImage encodes img for the kitty graphics protocol, scaled to fit
// cols x rows cells. it returns "" when img cannot be encoded.
func KittyImage(img image.Image, cols int, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}

	w, h := fit(bounds.Dx(), bounds.Dy(), cols*cellWidthPx, rows*cellHeightPx)
	resized := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return ""
	}
	return kittyChunks(base64.StdEncoding.EncodeToString(buf.Bytes()), cols, rows)
}

// fit scales w x h into maxW x maxH keeping the aspect ratio.
func fit(w, h, maxW, maxH int) (int, int) {
	aspect := float64(w) / float64(h)
	outW, outH := maxW, maxH
	if aspect > float64(maxW)/float64(maxH) {
		outH = int(float64(maxW) / aspect)
	} else {
		outW = int(float64(maxH) * aspect)
	}
	return max(outW, cellWidthPx), max(outH, cellWidthPx)
}

func kittyChunks(payload string, cols int, rows int) string {
	var b strings.Builder
	for i := 0; i < len(payload); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(payload))
		more := 1
		if end == len(payload) {
			more = 0
		}

		if i == 0 {
			fmt.Fprintf(&b, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, payload[i:end])
		} else {
			fmt.Fprintf(&b, "\x1b_Gm=%d;%s\x1b\\", more, payload[i:end])
		}
	}
	return b.String()
}
