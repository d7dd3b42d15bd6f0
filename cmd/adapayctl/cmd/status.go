package cmd

import (
	"github.com/honeynil/AdaPayAcquirer/internal/app"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <reference>",
	Short: "Show the checkout data of a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			data, err := a.Service.StatusInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
