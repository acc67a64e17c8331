// Package analysis defines the text-analysis record and the providers that produce it:
// a local heuristic, Gemini and OpenAI, plus decorators for caching, request budgets
// and fallback composition.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Provider analyzes a text into a Result.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, text string) (Result, error)
}

// ErrBudgetExhausted is returned when a provider's request budget is used up.
var ErrBudgetExhausted = errors.New("provider request budget exhausted")

// ProviderError records which provider failed.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Chain tries providers in order and returns the first successful result.
// When every provider fails it returns Neutral, so Analyze on a Chain never errors.
type Chain struct {
	providers  []Provider
	logger     *slog.Logger
	onFallback func(provider string, err error)
}

// NewChain builds a fallback chain. Nil providers are skipped.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// OnFallback registers a hook called each time a provider fails and the chain moves on.
func (c *Chain) OnFallback(fn func(provider string, err error)) {
	c.onFallback = fn
}

// Name joins the provider names.
func (c *Chain) Name() string {
	name := "chain"
	for _, p := range c.providers {
		name += ":" + p.Name()
	}
	return name
}

// Analyze implements Provider.
func (c *Chain) Analyze(ctx context.Context, text string) (Result, error) {
	return c.AnalyzeOrDefault(ctx, text), nil
}

// AnalyzeOrDefault runs the chain and falls back to Neutral.
func (c *Chain) AnalyzeOrDefault(ctx context.Context, text string) Result {
	for _, p := range c.providers {
		res, err := p.Analyze(ctx, text)
		if err == nil {
			return normalize(res)
		}
		perr := &ProviderError{Provider: p.Name(), Err: err}
		c.logger.Warn("analysis provider failed, falling back", "provider", p.Name(), "error", err)
		if c.onFallback != nil {
			c.onFallback(p.Name(), perr)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return Neutral()
}
