package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/lyrics"
)

var (
	// flags for lrc
	lrcAt string
)

var lrcCmd = &cobra.Command{
	Use:   "lrc <file>",
	Short: "parse a lyric file",
	Long: `parse an LRC lyric file and print its timed lines. with --at, only the line
that is current at that playback position is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read lyrics: %w", err)
		}
		doc := lyrics.Parse(string(raw))

		if lrcAt == "" {
			printDocument(os.Stdout, doc)
			return nil
		}

		at, err := parsePosition(lrcAt)
		if err != nil {
			return err
		}
		index, ok := lyrics.Resolve(doc, at)
		if !ok {
			fmt.Println("no line is current yet")
			return nil
		}
		line, _ := doc.Line(index)
		fmt.Printf("%d [%s] %s\n", index, formatStamp(line.TimestampMs), line.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lrcCmd)

	lrcCmd.Flags().StringVar(&lrcAt, "at", "", "playback position: mm:ss.xx, seconds, or a duration like 1m2s")
}

func printDocument(out io.Writer, doc lyrics.Document) {
	if doc.Empty() {
		fmt.Fprintln(out, "no timed lines")
		return
	}
	for _, line := range doc.Lines() {
		fmt.Fprintf(out, "[%s] %s\n", formatStamp(line.TimestampMs), line.Text)
	}
	fmt.Fprintf(out, "\ntotal: %d lines\n", doc.Len())
}

// formatStamp renders ms as mm:ss.xx, the LRC tag form.
func formatStamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	centis := (ms % 1000) / 10
	secs := (ms / 1000) % 60
	mins := ms / 60000
	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, centis)
}

// parsePosition accepts mm:ss(.xx), plain seconds, or a Go duration.
func parsePosition(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if mins, secs, found := strings.Cut(s, ":"); found {
		m, err := strconv.ParseInt(mins, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		sec, err := strconv.ParseFloat(secs, 64)
		if err != nil || sec < 0 || m < 0 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return m*60000 + int64(sec*1000+0.5), nil
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(sec*1000 + 0.5), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return d.Milliseconds(), nil
}
