package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/honeynil/AdaPayAcquirer/internal/app"
	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adapayctl",
	Short: "Operator tool for the AdaPay acquirer",
	Long: `adapayctl runs maintenance tasks against the AdaPay acquirer: a manual
synchronisation pass, payment status lookups, and credentials for the API and
the webhook endpoint.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp builds the full dependency graph for commands that talk to the
// database and the gateway.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
