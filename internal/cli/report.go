package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var reportDate string

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Day to report, YYYY-MM-DD (default: today UTC)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List stored records for a day",
	Long:  "Prints the records ingested on a day, highest risk first, followed by per-category counts.",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC()
	if reportDate != "" {
		d, err := time.Parse(time.DateOnly, reportDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", reportDate, err)
		}
		day = d
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Store.FetchByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No records for %s.\n", day.Format(time.DateOnly))
		return nil
	}

	fmt.Fprintf(out, "%-5s %-10s %-9s %-5s %s\n", "RISK", "CATEGORY", "SENTIMENT", "TOX", "TITLE")
	for _, r := range records {
		fmt.Fprintf(out, "%-5d %-10s %-9s %-5.2f %s\n", r.RiskPoint, r.Category, r.Sentiment, r.Toxicity, truncate(r.Title, 70))
	}

	stats, err := a.Store.Stats(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %d\n", k, stats[k])
	}
	return nil
}
