package colors

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const fallbackHex = "#FFFFFF"

func parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallbackHex)
	}
	return c
}

func toHex(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

// Gradient interpolates from start to end in HCL space, which keeps the
// perceived brightness even along the way.
func Gradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}
	start, end := parse(startHex), parse(endHex)

	out := make([]string, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		out[i] = toHex(start.BlendHcl(end, t))
	}
	return out
}

// Smoothness is the largest perceptual jump between neighbouring gradient
// steps. lower is smoother.
func Smoothness(startHex string, endHex string, steps int) float64 {
	gradient := Gradient(startHex, endHex, steps)
	maxJump := 0.0
	for i := 1; i < len(gradient); i++ {
		if d := parse(gradient[i-1]).DistanceCIEDE2000(parse(gradient[i])); d > maxJump {
			maxJump = d
		}
	}
	return maxJump
}

// Lightness returns L of the color in HCL, 0..1.
func Lightness(hex string) float64 {
	_, _, l := parse(hex).Hcl()
	return l
}

func Blend(hex1 string, hex2 string, t float64) string {
	return toHex(parse(hex1).BlendHcl(parse(hex2), clamp01(t)))
}

// Dim darkens a color by factor, 0 gives black and 1 leaves it unchanged.
func Dim(hex string, factor float64) string {
	h, c, l := parse(hex).Hcl()
	return toHex(colorful.Hcl(h, c, l*clamp01(factor)))
}

// GradientText colors each rune of text along the gradient.
func GradientText(text string, gradient []string, bold bool) string {
	runes := []rune(text)
	if len(runes) == 0 || len(gradient) == 0 {
		return text
	}

	var b strings.Builder
	for i, r := range runes {
		idx := 0
		if len(runes) > 1 {
			idx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[idx])).Bold(bold)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// FormatTime renders milliseconds as m:ss.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
