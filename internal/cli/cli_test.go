package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PROVIDER", "mock")
	t.Setenv("DB_URL", "sqlite://"+filepath.Join(dir, "news.db"))
	t.Setenv("FEEDS_CONFIG_PATH", filepath.Join(dir, "feeds.yaml"))
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SMTP_HOST", "")
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	var info map[string]string
	if err := json.Unmarshal([]byte(run(t, "version")), &info); err != nil {
		t.Fatalf("version output is not JSON: %v", err)
	}
	if info["name"] != "newsrisk" || info["version"] == "" {
		t.Fatalf("unexpected version info %v", info)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	setTestEnv(t)

	var got struct {
		Analysis struct {
			Category string `json:"category"`
		} `json:"analysis"`
		RiskPoint int      `json:"risk_point"`
		RuleHits  []string `json:"rule_hits"`
	}
	out := run(t, "analyze", "İzmir'de", "deprem", "ve", "tsunami")
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("analyze output is not JSON: %v\n%s", err, out)
	}
	if got.Analysis.Category != "Disaster" || got.RiskPoint != 10 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestReportEmptyDay(t *testing.T) {
	setTestEnv(t)

	out := run(t, "report", "--date", "2001-02-03")
	if !strings.Contains(out, "No records for 2001-02-03") {
		t.Fatalf("unexpected report output %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("kısa", 10); got != "kısa" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("çok uzun başlık", 8); got != "çok u..." {
		t.Errorf("unexpected %q", got)
	}
}

func TestDoctorReportsMissingChannels(t *testing.T) {
	setTestEnv(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"doctor"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatalf("doctor must fail without alert channels")
	}
	text := out.String()
	if !strings.Contains(text, "✓ storage:") || !strings.Contains(text, "✗ alert channels:") {
		t.Fatalf("unexpected doctor output:\n%s", text)
	}
}

func TestMaskDBURL(t *testing.T) {
	got := maskDBURL("postgres://news:s3cret@db:5432/news?sslmode=disable")
	if strings.Contains(got, "s3cret") || !strings.Contains(got, "news:") {
		t.Fatalf("password not masked: %q", got)
	}
	if maskDBURL("sqlite://news.db") != "sqlite://news.db" {
		t.Fatalf("url without password must be unchanged")
	}
}
