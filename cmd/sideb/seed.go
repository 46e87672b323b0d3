package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isaac-evs/side-b/internal/catalog"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed-anchors",
		Short: "Seed the mood anchor collection if it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openServices(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			seeded, err := svc.Classifier.SeedAnchorsIfEmpty(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"seeded": seeded})
		},
	})

	var file string
	seedSongs := &cobra.Command{
		Use:   "seed-songs",
		Short: "Load a YAML song catalog into the primary and vector stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			songs, err := catalog.LoadFile(file)
			if err != nil {
				return err
			}
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openServices(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			rep, err := svc.Recommender.IndexSongs(cmd.Context(), songs)
			if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
				return perr
			}
			if err != nil {
				return fmt.Errorf("%d of %d songs failed: %w", len(songs)-rep.Stored, len(songs), err)
			}
			return nil
		},
	}
	seedSongs.Flags().StringVarP(&file, "file", "f", "catalog/songs.yaml", "catalog file")
	rootCmd.AddCommand(seedSongs)
}
