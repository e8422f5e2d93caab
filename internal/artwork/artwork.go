package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"

	"github.com/lankai7/Music/internal/colors"
)

const gradientSteps = 20

var ErrNoCover = errors.New("track has no cover")

// Palette is the set of accent colors derived from a cover image.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

// Fetch downloads and decodes a cover. file:// urls are read from disk.
func Fetch(ctx context.Context, client *http.Client, coverURL string) (image.Image, error) {
	if coverURL == "" {
		return nil, ErrNoCover
	}

	if path, ok := strings.CutPrefix(coverURL, "file://"); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cover file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cover file: %w", err)
		}
		return img, nil
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	return img, nil
}

type candidate struct {
	color colorful.Color
	sat   float64
	value float64
}

// ExtractPalette picks three vivid colors from img and the smoothest
// gradient between two of them. it falls back to DefaultPalette.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	cands := make([]candidate, 0, len(items))
	for _, item := range items {
		c := colorful.Color{
			R: float64(item.Color.R) / 255,
			G: float64(item.Color.G) / 255,
			B: float64(item.Color.B) / 255,
		}
		_, s, v := c.Hsv()
		cands = append(cands, candidate{color: c, sat: s, value: v})
	}

	primary := pick(cands, nil, 0.2, 0.3, true)
	secondary := pick(cands, []candidate{primary}, 0.15, 0.3, false)
	accent := pick(cands, []candidate{primary, secondary}, 0.1, 0.25, false)

	chosen := []candidate{primary, secondary, accent}
	// brightest first
	for i := 0; i < len(chosen); i++ {
		for j := i + 1; j < len(chosen); j++ {
			if chosen[i].value < chosen[j].value {
				chosen[i], chosen[j] = chosen[j], chosen[i]
			}
		}
	}

	p := &Palette{
		Primary:   boost(chosen[0]),
		Accent:    boost(chosen[1]),
		Secondary: boost(chosen[2]),
		Dim:       "#6272A4",
	}
	start, end := bestGradientPair(p.Primary, p.Secondary, p.Accent)
	p.Gradient = colors.Gradient(start, end, gradientSteps)
	return p
}

// pick returns the first candidate above the saturation and value floors
// that is not in exclude. with best set it returns the highest scoring one.
func pick(cands []candidate, exclude []candidate, minSat float64, minValue float64, best bool) candidate {
	var out candidate
	bestScore := -1.0
	for _, c := range cands {
		if excluded(c, exclude) || c.sat <= minSat || c.value <= minValue {
			continue
		}
		if !best {
			return c
		}
		score := c.sat * (1 - abs(c.value-0.6))
		if score > bestScore {
			bestScore = score
			out = c
		}
	}
	return out
}

func excluded(c candidate, exclude []candidate) bool {
	for _, e := range exclude {
		if c.color == e.color {
			return true
		}
	}
	return false
}

func bestGradientPair(primary string, secondary string, accent string) (string, string) {
	pairs := [][2]string{
		{primary, secondary},
		{primary, accent},
		{secondary, primary},
		{secondary, accent},
		{accent, primary},
		{accent, secondary},
	}

	scores := make([]float64, len(pairs))
	best := 0
	for i, pair := range pairs {
		scores[i] = colors.Smoothness(pair[0], pair[1], gradientSteps)
		if scores[i] < scores[best] {
			best = i
		}
	}

	// among nearly equal pairs, start from the lighter color
	for i, pair := range pairs {
		if i == best || scores[i]-scores[best] >= 5 {
			continue
		}
		if colors.Lightness(pair[0]) > colors.Lightness(pairs[best][0]) {
			best = i
		}
	}
	return pairs[best][0], pairs[best][1]
}

func boost(c candidate) string {
	col := c.color
	if c.value < 0.4 && c.value > 0 {
		factor := min(0.4/c.value, 2.5)
		col = colorful.Color{R: col.R * factor, G: col.G * factor, B: col.B * factor}.Clamped()
	}
	if c.value > 0.85 {
		h, s, v := col.Hsv()
		col = colorful.Hsv(h, s*0.7, v)
	}
	return strings.ToUpper(col.Hex())
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       "#6272A4",
		Gradient:  colors.Gradient("#8BA4E8", "#E8A4C8", gradientSteps),
	}
}

// RenderHalfBlockArt draws img as width x height cells, two pixels per cell
// using the upper half block.
func RenderHalfBlockArt(img image.Image, width int, height int) []string {
	if img == nil || width < 4 || height < 2 {
		return nil
	}

	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, height)
	for y := 0; y < height; y++ {
		var line strings.Builder
		top, bottom := y*2, y*2+1
		if bottom >= bounds.Dy() {
			bottom = top
		}

		for x := 0; x < bounds.Dx(); x++ {
			tc, ta := pixel(resized, bounds.Min.X+x, bounds.Min.Y+top)
			bc, ba := pixel(resized, bounds.Min.X+x, bounds.Min.Y+bottom)
			if ta < 128 && ba < 128 {
				line.WriteByte(' ')
				continue
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(tc)).
				Background(lipgloss.Color(bc))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}
	return lines
}

func pixel(img image.Image, x int, y int) (string, uint32) {
	r, g, b, a := img.At(x, y).RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8), a >> 8
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
