package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lankai7/Music/internal/favorites"
)

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "manage favorite tracks",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "list favorite tracks",
	Long:  `list favorite tracks in the order they were added.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := favorites.Open(cfg.Favorites.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list favorites: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("no favorites yet")
			return nil
		}
		writeTracks(os.Stdout, items)
		fmt.Printf("\ntotal: %d tracks\n", len(items))
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "remove a track from favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := favorites.Open(cfg.Favorites.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Remove(args[0]); err != nil {
			if errors.Is(err, favorites.ErrNotFound) {
				return fmt.Errorf("track %s is not a favorite", args[0])
			}
			return fmt.Errorf("failed to remove favorite: %w", err)
		}
		fmt.Printf("removed %s from favorites\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(favoritesCmd)

	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesRemoveCmd)
}
