package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var user string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay committed entries into the timeline, graph and vector stores",
		Long: "Replays entries from the primary store into every active secondary store.\n" +
			"Timeline counters are incremented again, so run it against freshly provisioned stores.",
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

			rep, err := svc.Journal.Backfill(cmd.Context(), user)
			if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "only replay this user's entries")
	rootCmd.AddCommand(cmd)
}
