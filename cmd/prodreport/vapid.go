package main

import (
	"fmt"

	"github.com/DGISsoft/prodreport/services/push"
	"github.com/spf13/cobra"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for web push",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, publicKey, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
		return nil
	},
}
