package main

import (
	"github.com/spf13/cobra"

	"github.com/isaac-evs/side-b/journalservice"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			return journalservice.Run(cfg, l)
		},
	})
}
