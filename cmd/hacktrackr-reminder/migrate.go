package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the obligation store schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// bootstrap migrates before returning
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		a.logger.Sugar().Infow("schema up to date", "driver", a.cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
