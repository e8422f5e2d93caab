package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/config"
	"github.com/lankai7/Music/internal/logging"
	"github.com/lankai7/Music/internal/playlist"
)

var (
	// global flags
	configPath string
	logLevel   string
	logFile    string
	volume     int
	playMode   string
	catalogURL string
	syncOffset time.Duration
	noCache    bool
	noMPRIS    bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "musicbox [keyword]",
	Short: "terminal music player with synchronized lyrics",
	Long: `musicbox searches an online song catalog, streams tracks through mpv and
scrolls their synchronized lyrics in the terminal.

when run without a subcommand, it starts the interactive player. a keyword
argument runs a search right away instead of showing the hot list.`,
	Version: "1.0.0",
	Args:    cobra.ArbitraryArgs,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// default behavior: run the interactive player
		return runPlayer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// assigned here rather than in the literal: loadConfig refers back to
	// rootCmd through isInteractive, which would be an initialization cycle
	rootCmd.PersistentPreRunE = loadConfig

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/musicbox/config.toml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "log file, - for stderr")
	flags.IntVarP(&volume, "volume", "v", config.DefaultVolume, "initial volume 0-100")
	flags.StringVarP(&playMode, "mode", "m", "", "play mode: sequential, shuffle, loop-one")
	flags.StringVar(&catalogURL, "catalog-url", "", "custom catalog api url")
	flags.DurationVarP(&syncOffset, "sync-offset", "s", 0, "lyric sync offset, e.g. 300ms or -1s")
	flags.BoolVar(&noCache, "no-cache", false, "disable the lyric cache")
	flags.BoolVar(&noMPRIS, "no-mpris", false, "do not register as an mpris player")
}

// loadConfig merges the config file and environment with any flags that were
// set explicitly, then sets up logging. the interactive player logs to a file
// because it owns the screen; every other command logs to stderr.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	if flags.Changed("volume") {
		loaded.Player.Volume = volume
	}
	if flags.Changed("mode") {
		loaded.Player.Mode = playMode
	}
	if flags.Changed("catalog-url") {
		loaded.Catalog.BaseURL = catalogURL
	}
	if flags.Changed("sync-offset") {
		loaded.Lyrics.SyncOffset = syncOffset
	}
	if noCache {
		loaded.Cache.Disabled = true
	}
	if noMPRIS {
		loaded.MPRIS.Enabled = false
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	if _, err := playlist.ParseMode(loaded.Player.Mode); err != nil {
		return err
	}

	target := "-"
	if isInteractive(cmd) {
		target = loaded.Log.File
	}
	if flags.Changed("log-file") {
		target = logFile
	}
	closer, err := logging.Setup(loaded.Log.Level, target)
	if err != nil {
		return err
	}

	cfg = loaded
	logCloser = closer
	log.Debug().Str("command", cmd.Name()).Str("catalog", cfg.Catalog.BaseURL).Msg("configuration loaded")
	return nil
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == runCmd
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
