package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsrisk/internal/app"
	"github.com/deusflow/newsrisk/internal/risk"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, storage, feeds and alert channels",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, log, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "✗ %-20s %v\n", "configuration:", err)
		return fmt.Errorf("doctor found issues")
	}
	checks := []checkResult{{label: "configuration", ok: true, detail: "provider=" + cfg.Provider}}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		checks = append(checks, checkResult{
			label:  "storage",
			ok:     false,
			detail: err.Error(),
			fix:    "check DB_URL " + maskDBURL(cfg.DBURL),
		})
		return printChecks(cmd, checks)
	}
	defer a.Close()

	stats, err := a.Store.Stats(ctx, time.Now().UTC())
	if err != nil {
		checks = append(checks, checkResult{label: "storage", ok: false, detail: err.Error(), fix: "check DB_URL " + maskDBURL(cfg.DBURL)})
	} else {
		checks = append(checks, checkResult{
			label:  "storage",
			ok:     true,
			detail: fmt.Sprintf("%s (%d records today)", maskDBURL(cfg.DBURL), stats["total_items"]),
		})
	}

	checks = append(checks, checkResult{
		label:  "feeds",
		ok:     len(a.Registry.Names()) > 0,
		detail: fmt.Sprintf("%d presets from %s", len(a.Registry.Names()), cfg.FeedsConfigPath),
		fix:    "add presets to " + cfg.FeedsConfigPath,
	})

	sample := "Deprem sonrası yangın çıktı"
	res := a.Analyzer.AnalyzeOrDefault(ctx, sample)
	checks = append(checks, checkResult{
		label:  "analysis",
		ok:     true,
		detail: fmt.Sprintf("%s -> %s, risk %d", a.Analyzer.Name(), res.Category, risk.Compute(sample, res).Point),
	})

	channels := a.Policy.Channels()
	checks = append(checks, checkResult{
		label:  "alert channels",
		ok:     len(channels) > 0,
		detail: fmt.Sprintf("threshold %d, channels [%s]", a.Policy.Threshold(), strings.Join(channels, ", ")),
		fix:    "set SLACK_WEBHOOK_URL, TELEGRAM_TOKEN, KAFKA_BROKERS or the SMTP settings",
	})

	return printChecks(cmd, checks)
}

func printChecks(cmd *cobra.Command, checks []checkResult) error {
	out := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	if hasFailures {
		fmt.Fprintln(out, "Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

// maskDBURL hides the password of a connection URL.
func maskDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
