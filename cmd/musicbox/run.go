package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/favorites"
	"github.com/lankai7/Music/internal/mpris"
	"github.com/lankai7/Music/internal/terminal"
	"github.com/lankai7/Music/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run [keyword]",
	Short: "start the interactive player",
	Long:  `starts the terminal player. a keyword runs a search right away instead of loading the hot list.`,
	Args:  cobra.ArbitraryArgs,
	RunE:  runPlayer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPlayer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer terminal.Restore(os.Stdout)

	eng, err := startEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	var favs *favorites.Store
	if cfg.Favorites.Path != "" {
		favs, err = favorites.Open(cfg.Favorites.Path)
		if err != nil {
			log.Warn().Err(err).Msg("favorites disabled")
			favs = nil
		} else {
			defer favs.Close()
		}
	}

	var bridge *mpris.Server
	if cfg.MPRIS.Enabled {
		bridge, err = mpris.Start()
		switch {
		case errors.Is(err, mpris.ErrNameTaken):
			log.Warn().Msg("another musicbox owns the mpris name, media keys disabled")
		case err != nil:
			log.Warn().Err(err).Msg("mpris disabled")
		default:
			defer bridge.Close()
		}
	}

	opts := ui.Options{
		Coordinator:    eng.coord,
		Poller:         eng.poller,
		Catalog:        eng.catalog,
		Resolver:       eng.resolver,
		Offsets:        eng.resolver,
		MPRIS:          bridge,
		Terminal:       terminal.Detect(os.Getenv),
		PollInterval:   cfg.Player.PollInterval,
		LinePitch:      cfg.Lyrics.LinePitch,
		ScrollDuration: cfg.Lyrics.ScrollDuration,
		SyncOffset:     cfg.Lyrics.SyncOffset,
		InitialQuery:   strings.TrimSpace(strings.Join(args, " ")),
	}
	if favs != nil {
		opts.Favorites = favs
	}

	p := tea.NewProgram(ui.NewModel(opts), tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}
