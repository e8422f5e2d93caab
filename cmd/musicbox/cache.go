package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/cache"
	"github.com/lankai7/Music/internal/lyrics"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyric cache",
	Long:  `manage cached lyrics and sync offsets, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store cache.Store) error {
			stats, err := store.Stats()
			if err != nil {
				return fmt.Errorf("failed to get cache stats: %w", err)
			}

			fmt.Println("cache statistics:")
			fmt.Printf("  location: %s\n", storeLocation(store))
			fmt.Printf("  entries:  %d\n", stats.Count)
			fmt.Printf("  size:     %s\n", formatBytes(stats.SizeBytes))
			return nil
		})
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached tracks",
	Long:  `list all tracks in the cache with their sync offsets and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store cache.Store) error {
			entries, err := store.ListAll()
			if err != nil {
				return fmt.Errorf("failed to list cache: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("cache is empty")
				return nil
			}

			sortCacheEntries(entries, cacheSortBy)
			writeEntries(os.Stdout, entries)
			fmt.Printf("\ntotal: %d tracks\n", len(entries))
			return nil
		})
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "show the cached entry of a track",
	Long:  `display what is cached for one catalog track id, including lyrics and sync offset.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store cache.Store) error {
			entry, err := store.Get(args[0])
			if err != nil {
				return fmt.Errorf("track not found in cache: %w", err)
			}

			fmt.Printf("id:          %s\n", entry.TrackID)
			fmt.Printf("title:       %s\n", entry.Title)
			fmt.Printf("artist:      %s\n", entry.Artist)
			fmt.Printf("album:       %s\n", entry.Album)
			fmt.Printf("sync offset: %s\n", formatOffset(entry.SyncOffsetMs))
			fmt.Printf("cached:      %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
			if entry.ExpiresAt > 0 {
				fmt.Printf("expires:     %s\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))
			}

			doc := lyrics.Parse(entry.LyricText)
			if doc.Empty() {
				fmt.Println("\nno lyrics cached")
			} else {
				fmt.Printf("\nsynced lyrics: %d lines\n", doc.Len())
			}
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics and sync offsets. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheConfirm && !confirm(os.Stdin, "are you sure you want to clear all cache? (y/n): ") {
			fmt.Println("cancelled")
			return nil
		}
		return withStore(func(store cache.Store) error {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Println("cache cleared successfully")
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove all expired cache entries to free up disk space.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store cache.Store) error {
			pruned, err := store.Prune()
			if err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			fmt.Printf("removed %d expired entries\n", pruned)
			return nil
		})
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "remove one track from the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store cache.Store) error {
			if _, err := store.Get(args[0]); err != nil {
				return fmt.Errorf("track not found in cache: %w", err)
			}
			if err := store.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to delete from cache: %w", err)
			}
			fmt.Printf("deleted %s from cache\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	// flags for cache list
	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")

	// flags for cache clear
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

func withStore(fn func(store cache.Store) error) error {
	if cfg.Cache.Disabled {
		return errors.New("the lyric cache is disabled")
	}
	store, closer, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open lyric cache: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	return fn(store)
}

func storeLocation(store cache.Store) string {
	if disk, ok := store.(*cache.DiskCache); ok {
		return disk.Path()
	}
	return "redis://" + cfg.Cache.RedisAddr
}

func writeEntries(out io.Writer, entries []*cache.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tARTIST\tTITLE\tSYNC OFFSET\tCACHED")
	for _, entry := range entries {
		cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", entry.TrackID, entry.Artist, entry.Title, formatOffset(entry.SyncOffsetMs), cacheDate)
	}
	w.Flush()
}

func sortCacheEntries(entries []*cache.Entry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Artist) < strings.ToLower(entries[j].Artist)
		})
	case "title":
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	case "date":
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func formatOffset(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%+dms", ms)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
