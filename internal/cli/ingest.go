package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsrisk/internal/news"
)

var (
	ingestPresets []string
	ingestURL     string
	ingestMaxNews int
	ingestFull    bool
)

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestPresets, "preset", nil, "Preset name to ingest (repeatable; default: all presets)")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Ingest a single feed URL instead of presets")
	ingestCmd.Flags().IntVar(&ingestMaxNews, "max-news", 10, "Maximum items per feed")
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "Download full article text instead of using the feed summary")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Enrich feeds once and exit",
	Long:  "Fetches the given presets (or a feed URL), analyzes and scores every item, stores the records and sends alerts.",
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if ingestURL != "" {
		if a.Registry.Blocked(ingestURL) {
			return fmt.Errorf("scraping not permitted for %s", ingestURL)
		}
		items, err := a.Fetcher.Fetch(ctx, ingestURL, ingestMaxNews, !ingestFull)
		if err != nil {
			return err
		}
		printBatch(cmd, a.Enricher.Enrich(ctx, items))
		return nil
	}

	sum, err := a.PresetRunner(ingestMaxNews, !ingestFull).Run(ctx, ingestPresets...)
	fmt.Fprintf(out, "presets=%d failed=%d records=%d alerted=%d save_failures=%d\n",
		sum.Presets, len(sum.Failed), sum.Records, sum.Alerted, sum.Failures)
	return err
}

func printBatch(cmd *cobra.Command, b news.Batch) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d records, %d alerted, %d failures\n", b.RunID, len(b.Records), b.Alerted, len(b.Failures))
	for _, r := range b.Records {
		fmt.Fprintf(out, "%3d  %-9s %s\n", r.RiskPoint, r.Category, truncate(r.Title, 70))
	}
	for _, f := range b.Failures {
		fmt.Fprintf(out, "  ! %v\n", f)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
