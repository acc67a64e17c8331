package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveNoScheduler bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "Do not run the daily preset enrichment")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily job",
	Long:  "Serves the HTTP API on API_PORT, runs the daily preset enrichment at CRON_HOUR UTC and hot-reloads the feeds file.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx, !serveNoScheduler)
}
