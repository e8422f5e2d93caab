package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/lyrics"
	"github.com/lankai7/Music/internal/track"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "search the catalog",
	Long:  `search the song catalog by title or artist and print the matching tracks.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList(cmd.Context(), "search", strings.Join(args, " "))
	},
}

var hotCmd = &cobra.Command{
	Use:   "hot",
	Short: "list popular tracks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList(cmd.Context(), "hot", "")
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "list newly published tracks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList(cmd.Context(), "new", "")
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "show the stream url and lyrics of a track",
	Long:  `ask the catalog for a playable url, metadata and lyrics of one track id.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCatalog(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), resolveTimeout)
		defer cancel()

		res, err := client.Resolve(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}
		printResolved(os.Stdout, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(hotCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(resolveCmd)
}

func printList(parent context.Context, source string, keyword string) error {
	client, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(contextOrBackground(parent), resolveTimeout)
	defer cancel()

	var items []track.Ref
	switch source {
	case "hot":
		items, err = client.Hot(ctx)
	case "new":
		items, err = client.Latest(ctx)
	default:
		items, err = client.Search(ctx, keyword)
	}
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("no tracks found")
		return nil
	}
	writeTracks(os.Stdout, items)
	fmt.Printf("\ntotal: %d tracks\n", len(items))
	return nil
}

func writeTracks(out io.Writer, items []track.Ref) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tSINGER\tHITS")
	for i, item := range items {
		hits := "-"
		if item.Popularity > 0 {
			hits = fmt.Sprintf("%d", item.Popularity)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, item.ID, item.Title, item.Singer, hits)
	}
	w.Flush()
}

func printResolved(out io.Writer, res *track.Resolved) {
	fmt.Fprintf(out, "id:       %s\n", res.ID)
	fmt.Fprintf(out, "title:    %s\n", res.Title)
	fmt.Fprintf(out, "artist:   %s\n", res.Artist)
	fmt.Fprintf(out, "album:    %s\n", res.Album)
	fmt.Fprintf(out, "quality:  %s\n", res.Quality)
	fmt.Fprintf(out, "duration: %s\n", res.Duration)
	fmt.Fprintf(out, "cover:    %s\n", res.CoverURL)
	fmt.Fprintf(out, "url:      %s\n", res.PlayableURL)

	doc := lyrics.Parse(res.LyricText)
	if doc.Empty() {
		fmt.Fprintln(out, "\nno synced lyrics")
		return
	}
	fmt.Fprintf(out, "\nsynced lyrics: %d lines\n", doc.Len())
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
