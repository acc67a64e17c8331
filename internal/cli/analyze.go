package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsrisk/internal/config"
	"github.com/deusflow/newsrisk/internal/risk"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze and score a text without storing it",
	Long:  "Runs the configured analysis chain and the risk rules on the arguments, or on stdin when no argument is given, and prints the result as JSON.",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text to analyze")
	}

	ctx := cmd.Context()
	// Nothing is persisted here, so skip opening the configured database.
	a, err := buildApp(ctx, func(c *config.Config) { c.DBURL = "memory" })
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Analyzer.AnalyzeOrDefault(ctx, text)
	assess := risk.Compute(text, result)
	out, _ := json.MarshalIndent(map[string]any{
		"analysis":   result,
		"risk_point": assess.Point,
		"rule_hits":  assess.Hits,
	}, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
