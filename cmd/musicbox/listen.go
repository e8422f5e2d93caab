package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/colors"
	"github.com/lankai7/Music/internal/coordinator"
	"github.com/lankai7/Music/internal/lyrics"
	"github.com/lankai7/Music/internal/track"
)

const resolveTimeout = 15 * time.Second

var (
	// flags for listen
	listenIndex int
	listenHot   bool
)

var listenCmd = &cobra.Command{
	Use:   "listen [keyword]",
	Short: "play without the interface and print lyrics",
	Long: `searches the catalog, plays the results through mpv and prints each lyric
line as it becomes current. without a keyword the hot list is played.`,
	Args: cobra.ArbitraryArgs,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().IntVarP(&listenIndex, "index", "i", 0, "playlist entry to start with")
	listenCmd.Flags().BoolVar(&listenHot, "hot", false, "play the hot list")
}

type resolution struct {
	token uint64
	res   *track.Resolved
	err   error
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := startEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	keyword := strings.TrimSpace(strings.Join(args, " "))
	lctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	var items []track.Ref
	if listenHot {
		items, err = eng.catalog.Hot(lctx)
	} else {
		items, err = eng.catalog.Search(lctx, keyword)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	if len(items) == 0 {
		return errors.New("no tracks found")
	}

	eng.coord.LoadPlaylist(items)
	req, err := eng.coord.Select(listenIndex)
	if err != nil {
		return err
	}

	// resolutions run on their own goroutines and rejoin this loop, which is
	// the only place the coordinator is touched.
	results := make(chan resolution, 1)
	resolve := func(req coordinator.Request) {
		fmt.Printf("… %s\n", req.Track.Label())
		go func() {
			rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
			defer cancel()
			res, err := eng.resolver.Resolve(rctx, req.Track.ID)
			select {
			case results <- resolution{token: req.Token, res: res, err: err}:
			case <-ctx.Done():
			}
		}()
	}
	resolve(req)

	ticker := time.NewTicker(cfg.Player.PollInterval)
	defer ticker.Stop()

	baseOffset := cfg.Lyrics.SyncOffset.Milliseconds()
	var trackOffset int64
	lines := lyrics.NewResolver(lyrics.Document{})
	skipped := 0

	for {
		select {
		case <-ctx.Done():
			eng.coord.Stop()
			return nil

		case r := <-results:
			out := eng.coord.ApplyResolution(r.token, r.res, r.err)
			switch {
			case out.Stale:
			case out.Err != nil:
				fmt.Fprintf(os.Stderr, "  %v\n", out.Err)
				if !needsSkip(eng.coord.State()) {
					break
				}
				skipped++
				if skipped >= eng.coord.Cursor().Len() {
					return errors.New("no playable track in the list")
				}
				next, err := eng.coord.Next()
				if err != nil {
					return err
				}
				resolve(next)
			case out.Applied:
				skipped = 0
				doc := lyrics.Parse(out.Track.LyricText)
				lines = lyrics.NewResolver(doc)
				trackOffset = eng.resolver.SyncOffset(out.Track.ID)
				fmt.Printf("♪ %s (%s)\n", out.Track.Title, out.Track.Artist)
				if doc.Empty() {
					fmt.Println("  no synced lyrics")
				}
			}

		case <-ticker.C:
			for _, ev := range eng.poller.Poll() {
				if next, ok := eng.coord.HandleEvent(ev); ok {
					lines = lyrics.NewResolver(lyrics.Document{})
					resolve(next)
				}
			}
			if eng.coord.State().Phase == coordinator.Idle {
				fmt.Println("playlist finished")
				return nil
			}

			snap := eng.poller.Snapshot()
			index, ok, changed := lines.Update(snap.PositionMs + baseOffset + trackOffset)
			if !ok || !changed {
				continue
			}
			if line, ok := lines.Document().Line(index); ok {
				fmt.Printf("  [%s] %s\n", colors.FormatTime(line.TimestampMs), line.Text)
			}
		}
	}
}

// needsSkip reports whether a failed resolution has to move on by itself.
// while the previous track is still audible, its end advances the list.
func needsSkip(st coordinator.State) bool {
	return st.Phase == coordinator.Failed && st.Audible == coordinator.Idle
}
