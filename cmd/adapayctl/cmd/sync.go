package cmd

import (
	"github.com/honeynil/AdaPayAcquirer/internal/app"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one payment synchronisation pass",
	Long:  `Lists recent AdaPay payment requests and applies their status and ledger to open transactions. Only available in polling mode.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			result, err := a.Service.SyncPayments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
