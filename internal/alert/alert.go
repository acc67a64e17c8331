// Package alert decides whether an enriched record is risky enough to notify about
// and fans the notification out to the configured channels.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/news"
)

// DefaultThreshold is the minimum risk point that triggers an alert.
const DefaultThreshold = 7

// Notification is the channel-independent alert payload.
type Notification struct {
	NewsID    int64    `json:"news_id,omitempty"`
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Category  string   `json:"category"`
	Toxicity  float64  `json:"toxicity"`
	RiskPoint int      `json:"risk_point"`
	Rules     string   `json:"rules"`
	RuleHits  []string `json:"rule_hits"`
}

// NewNotification flattens a record into an alert payload.
func NewNotification(rec news.Record) Notification {
	return Notification{
		NewsID:    rec.ID,
		Title:     rec.Title,
		Source:    rec.Source,
		Category:  rec.Category,
		Toxicity:  rec.Toxicity,
		RiskPoint: rec.RiskPoint,
		Rules:     strings.Join(rec.RuleHits, ", "),
		RuleHits:  rec.RuleHits,
	}
}

func (n Notification) Subject() string {
	return fmt.Sprintf("[ALERT] Risk %d: %s", n.RiskPoint, n.Title)
}

// Body is the plain-text rendering used by e-mail.
func (n Notification) Body() string {
	var b strings.Builder
	b.WriteString("High-risk news detected:\n")
	fmt.Fprintf(&b, "Title: %s\n", n.Title)
	fmt.Fprintf(&b, "Source: %s\n", n.Source)
	fmt.Fprintf(&b, "Category: %s | Toxicity: %s\n", n.Category, strconv.FormatFloat(n.Toxicity, 'f', -1, 64))
	fmt.Fprintf(&b, "Risk: %d\n", n.RiskPoint)
	fmt.Fprintf(&b, "Rules: %s\n", n.Rules)
	return b.String()
}

// ChatText is the short rendering used by chat webhooks.
func (n Notification) ChatText() string {
	return fmt.Sprintf(":rotating_light: Risk %d | %s | %s\n%s\n%s", n.RiskPoint, n.Category, n.Title, n.Source, n.Rules)
}

// Channel delivers a notification over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// ChannelError is a delivery failure of one channel.
type ChannelError struct {
	Channel string
	Err     error
}

func (e ChannelError) Error() string {
	return fmt.Sprintf("alert channel %s: %v", e.Channel, e.Err)
}

func (e ChannelError) Unwrap() error { return e.Err }

// Outcome reports what MaybeAlert did. Failures never abort anything; they are informational.
type Outcome struct {
	Triggered bool
	Sent      []string
	Failures  []ChannelError
}

// Policy compares a record's risk with the threshold and dispatches to every channel.
type Policy struct {
	threshold int
	channels  []Channel
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var _ news.Alerter = (*Policy)(nil)

// NewPolicy builds a policy. Nil channels are dropped, so callers can pass
// disabled channels through unchanged.
func NewPolicy(threshold int, channels []Channel, logger *slog.Logger, m *metrics.Metrics) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Policy{threshold: threshold, logger: logger.With("component", "alert"), metrics: m}
	for _, ch := range channels {
		if ch != nil {
			p.channels = append(p.channels, ch)
		}
	}
	return p
}

func (p *Policy) Threshold() int { return p.threshold }

// Channels lists the enabled channel names.
func (p *Policy) Channels() []string {
	names := make([]string, 0, len(p.channels))
	for _, ch := range p.channels {
		names = append(names, ch.Name())
	}
	return names
}

// MaybeAlert notifies when rec.RiskPoint >= threshold. Channels run concurrently
// and one channel's failure does not affect the others.
func (p *Policy) MaybeAlert(ctx context.Context, rec news.Record) Outcome {
	if rec.RiskPoint < p.threshold {
		return Outcome{}
	}

	n := NewNotification(rec)
	out := Outcome{Triggered: true}
	p.metrics.IncrementAlertsTriggered()
	p.logger.Info("risk threshold reached", "title", rec.Title, "risk_point", rec.RiskPoint, "threshold", p.threshold, "channels", len(p.channels))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ch := range p.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ch.Send(ctx, n)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.metrics.IncrementChannelFailures()
				p.logger.Error("alert delivery failed", "channel", ch.Name(), "title", rec.Title, "error", err)
				out.Failures = append(out.Failures, ChannelError{Channel: ch.Name(), Err: err})
				return
			}
			out.Sent = append(out.Sent, ch.Name())
		}()
	}
	wg.Wait()

	sort.Strings(out.Sent)
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].Channel < out.Failures[j].Channel })
	return out
}

// Alert implements news.Alerter.
func (p *Policy) Alert(ctx context.Context, rec news.Record) bool {
	return p.MaybeAlert(ctx, rec).Triggered
}

// Close releases channels that hold connections, such as the Kafka writer.
func (p *Policy) Close() error {
	var errs []error
	for _, ch := range p.channels {
		if c, ok := ch.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", ch.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
