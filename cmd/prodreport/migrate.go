package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores(cmd.Context(), cfg, false, log)
		if err != nil {
			return err
		}
		defer st.close(cmd.Context())

		if err := st.migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("indexes are up to date")
		return nil
	},
}
