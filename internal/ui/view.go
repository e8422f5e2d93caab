package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"

	"github.com/lankai7/Music/internal/artwork"
	"github.com/lankai7/Music/internal/colors"
	"github.com/lankai7/Music/internal/coordinator"
	"github.com/lankai7/Music/internal/playlist"
	"github.com/lankai7/Music/internal/terminal"
)

const (
	coverCols    = 12
	coverRows    = 6
	headerRows   = coverRows + 3
	listMinWidth = 24
	listMaxWidth = 48
	errorColor   = "#FF6B6B"
	bannerText   = "musicbox"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	bodyHeight := max(height-m.footerHeight(), 1)
	mainWidth := width

	var listBlock string
	if m.showList && width >= 60 {
		listWidth := min(max(width/3, listMinWidth), listMaxWidth)
		mainWidth = width - listWidth - 1
		listBlock = m.renderList(listWidth, bodyHeight)
	}

	body := m.renderMain(mainWidth, bodyHeight)
	if listBlock != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, listBlock, " ", body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter(width))
}

func (m Model) footerHeight() int {
	return 1 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) renderMain(width int, height int) string {
	lines := make([]string, 0, height)
	lines = append(lines, m.renderHeader(width)...)
	lines = append(lines, m.renderLyrics(width, max(height-headerRows, 1))...)
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

// renderHeader always returns headerRows lines.
func (m Model) renderHeader(width int) []string {
	lines := make([]string, 0, headerRows)

	cur := m.coord.Current()
	state := m.coord.State()
	if cur == nil && state.Phase != coordinator.Loading {
		lines = append(lines, m.renderBanner(width)...)
	} else {
		cover := m.renderCover(width)
		info := m.renderTrackInfo(width - coverCols - 4)
		for i := 0; i < coverRows; i++ {
			var b strings.Builder
			if len(cover) > 0 {
				b.WriteString("  ")
				if i < len(cover) {
					b.WriteString(cover[i])
				} else {
					b.WriteString(strings.Repeat(" ", coverCols))
				}
				b.WriteString("  ")
			}
			if i < len(info) {
				b.WriteString(info[i])
			}
			lines = append(lines, b.String())
		}
	}

	for len(lines) < coverRows+1 {
		lines = append(lines, "")
	}
	lines = lines[:coverRows+1]
	lines = append(lines, m.renderProgress(width), "")
	return lines
}

func (m Model) renderBanner(width int) []string {
	gradient := m.palette.Gradient
	rows := figure.NewFigure(bannerText, "", true).Slicify()

	var lines []string
	for _, row := range rows {
		row = strings.TrimRight(row, " ")
		if row == "" {
			continue
		}
		lines = append(lines, row)
	}

	banner := make([]string, 0, len(lines)+1)
	if w := maxWidth(lines); w > 0 && w <= width {
		for _, row := range lines {
			banner = append(banner, center(colors.GradientText(row, gradient, true), runewidth.StringWidth(row), width))
		}
	} else {
		banner = append(banner, center(colors.GradientText(bannerText, gradient, true), len(bannerText), width))
	}

	hint := "press / to search, enter to play"
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Italic(true)
	return append(banner, center(dim.Render(hint), len(hint), width))
}

func (m Model) renderCover(width int) []string {
	if width < 50 {
		return nil
	}
	if m.cover == nil {
		placeholder := make([]string, coverRows)
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))
		placeholder[coverRows/2] = dim.Render(runewidth.FillRight(centerPlain("♪", coverCols), coverCols))
		for i := range placeholder {
			if placeholder[i] == "" {
				placeholder[i] = strings.Repeat(" ", coverCols)
			}
		}
		return placeholder
	}
	if m.caps.KittyGraphics {
		if encoded := terminal.KittyImage(m.cover, coverCols, coverRows); encoded != "" {
			out := make([]string, coverRows)
			out[0] = encoded
			for i := 1; i < coverRows; i++ {
				out[i] = strings.Repeat(" ", coverCols)
			}
			return out
		}
	}
	return artwork.RenderHalfBlockArt(m.cover, coverCols, coverRows)
}

func (m Model) renderTrackInfo(width int) []string {
	width = max(width, 10)
	state := m.coord.State()
	cur := m.coord.Current()

	title, artist, album, quality := "", "", "", ""
	if cur != nil {
		title, artist, album, quality = cur.Title, cur.Artist, cur.Album, cur.Quality
	}
	if state.Phase == coordinator.Loading || cur == nil {
		if ref, ok := m.coord.Cursor().Current(); ok {
			title, artist, album, quality = ref.Title, ref.Singer, "", ""
		}
	}

	titleText := truncate(title, width)
	lines := []string{colors.GradientText(titleText, m.palette.Gradient, true)}
	lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Secondary)).Render(truncate(artist, width)))

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))
	lines = append(lines, dim.Render(truncate(album, width)))
	lines = append(lines, "")

	meta := []string{m.stateGlyph(state), modeGlyph(m.coord.Mode()), fmt.Sprintf("vol %d%%", m.coord.Volume())}
	if quality != "" {
		meta = append(meta, quality)
	}
	if m.favorite {
		meta = append(meta, lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render("♥"))
	}
	if offset := m.baseOffset + m.trackOffset; offset != 0 {
		meta = append(meta, fmt.Sprintf("sync %+dms", offset))
	}
	lines = append(lines, dim.Render(strings.Join(meta, "  ")))
	return lines
}

func (m Model) stateGlyph(state coordinator.State) string {
	switch state.Phase {
	case coordinator.Loading:
		return m.spinner.View() + " loading"
	case coordinator.Playing:
		return "▶ playing"
	case coordinator.Paused:
		return "⏸ paused"
	case coordinator.Failed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render("✕ failed")
	default:
		return "■ stopped"
	}
}

func modeGlyph(mode playlist.Mode) string {
	switch mode {
	case playlist.Shuffled:
		return "⤮ " + mode.String()
	case playlist.SingleLoop:
		return "↻ " + mode.String()
	default:
		return "→ " + mode.String()
	}
}

func (m Model) renderProgress(width int) string {
	duration := m.snapshot.DurationMs
	if duration <= 0 {
		duration = m.coord.Current().DurationMs()
	}
	if duration <= 0 {
		return ""
	}

	barWidth := max(width-20, 10)
	progress := math.Max(0, math.Min(1, float64(m.snapshot.PositionMs)/float64(duration)))
	filled := int(float64(barWidth) * progress)

	filledStyle := lipgloss.NewStyle().Foreground(m.accent())
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Faint(true)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(filledStyle.Render("━"))
		case i == filled:
			bar.WriteString(filledStyle.Render("●"))
		default:
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(colors.FormatTime(m.snapshot.PositionMs)),
		bar.String(),
		timeStyle.Render(colors.FormatTime(duration)))
}

// renderLyrics draws line i at row round(i*pitch - offset).
func (m Model) renderLyrics(width int, height int) []string {
	rows := make([]string, height)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	if m.doc.Empty() {
		msg := "♪"
		switch m.coord.State().Phase {
		case coordinator.Loading:
			msg = m.spinner.View() + " resolving"
		case coordinator.Playing, coordinator.Paused:
			msg = "no synced lyrics"
		case coordinator.Failed:
			msg = "playback failed"
		}
		rows[height/2] = center(dim.Render(msg), runewidth.StringWidth(msg), width)
		return rows
	}

	current, hasCurrent := m.lines.Current()
	focus := lipgloss.NewStyle().Foreground(m.accent()).Bold(true)
	offset := m.anim.Offset()
	pitch := float64(m.pitch)

	for i, line := range m.doc.Lines() {
		row := int(math.Round(float64(i)*pitch - offset))
		if row < 0 || row >= height {
			continue
		}
		text := line.Text
		if text == "" {
			text = "···"
		}
		text = truncate(text, width-4)

		style := dim
		if hasCurrent && i == current {
			style = focus
		}
		rows[row] = center(style.Render(text), runewidth.StringWidth(text), width)
	}
	return rows
}

func (m Model) renderList(width int, height int) string {
	cursor := m.coord.Cursor()
	playing, hasPlaying := cursor.Index()

	header := m.listName
	if header == "" {
		header = "tracks"
	}
	titleStyle := lipgloss.NewStyle().Foreground(m.accent()).Bold(true)
	lines := []string{titleStyle.Render(truncate(fmt.Sprintf("%s (%d)", header, cursor.Len()), width)), ""}

	visible := max(height-len(lines), 1)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Secondary)).Bold(true)
	playStyle := lipgloss.NewStyle().Foreground(m.accent())

	items := cursor.Items()
	for i := start; i < len(items) && i < start+visible; i++ {
		marker := "  "
		if hasPlaying && i == playing {
			marker = "♪ "
		}
		if i == m.selected {
			marker = "› "
		}
		label := truncate(items[i].Label(), width-2)

		style := dim
		switch {
		case i == m.selected:
			style = selStyle
		case hasPlaying && i == playing:
			style = playStyle
		}
		lines = append(lines, style.Render(marker+label))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter(width int) string {
	var status string
	switch {
	case m.searching:
		status = m.search.View()
	case m.status != "":
		color := m.palette.Dim
		if m.statusErr {
			color = errorColor
		}
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(truncate(m.status, width-2))
	}
	return lipgloss.JoinVertical(lipgloss.Left, " "+status, m.help.View(m.keys))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// center pads styled to the middle of width. visual is the printed width of
// styled without escape codes.
func center(styled string, visual int, width int) string {
	pad := max((width-visual)/2, 0)
	return strings.Repeat(" ", pad) + styled
}

func centerPlain(s string, width int) string {
	return center(s, runewidth.StringWidth(s), width)
}

func maxWidth(lines []string) int {
	w := 0
	for _, l := range lines {
		w = max(w, runewidth.StringWidth(l))
	}
	return w
}
