package lyrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// timeTag matches an LRC time tag such as [01:02.34]. only minutes:seconds.fraction
// is accepted; metadata tags like [ar:...] or [offset:...] never match.
var timeTag = regexp.MustCompile(`\[(\d+):(\d+\.\d+)\]`)

var breakReplacer = strings.NewReplacer(
	"<br />", "\n",
	"<br/>", "\n",
	"<br>", "\n",
	"\r\n", "\n",
	"\r", "\n",
)

type Line struct {
	TimestampMs int64
	Text        string
}

// Document is an ordered table of timed lines, kept in source order.
type Document struct {
	lines []Line
}

func (d Document) Len() int {
	return len(d.lines)
}

func (d Document) Empty() bool {
	return len(d.lines) == 0
}

func (d Document) Line(i int) (Line, bool) {
	if i < 0 || i >= len(d.lines) {
		return Line{}, false
	}
	return d.lines[i], true
}

// Lines returns a copy of the line table.
func (d Document) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// NormalizeBreaks turns html line breaks and CR/CRLF endings into plain newlines.
func NormalizeBreaks(raw string) string {
	return breakReplacer.Replace(raw)
}

// Parse builds a Document from LRC text. lines without a time tag are dropped,
// lines whose tag is followed by nothing are kept with empty text.
func Parse(raw string) Document {
	if raw == "" {
		return Document{}
	}

	physical := strings.Split(NormalizeBreaks(raw), "\n")
	lines := make([]Line, 0, len(physical))

	for _, entry := range physical {
		ts, ok := parseTag(entry)
		if !ok {
			continue
		}

		text := strings.TrimSpace(timeTag.ReplaceAllString(entry, ""))
		lines = append(lines, Line{TimestampMs: ts, Text: text})
	}

	return Document{lines: lines}
}

func parseTag(entry string) (int64, bool) {
	match := timeTag.FindStringSubmatch(entry)
	if match == nil {
		return 0, false
	}

	minutes, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, false
	}

	return int64(math.Round((float64(minutes)*60 + seconds) * 1000)), true
}
