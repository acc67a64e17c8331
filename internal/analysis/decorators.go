package analysis

import (
	"context"
	"time"

	"github.com/deusflow/newsrisk/internal/cache"
	"github.com/deusflow/newsrisk/internal/ratelimit"
)

// Cached memoizes provider results by text hash.
type Cached struct {
	next  Provider
	store *cache.Cache[Result]
	ttl   time.Duration
	onHit func()
}

func NewCached(next Provider, store *cache.Cache[Result], ttl time.Duration, onHit func()) *Cached {
	return &Cached{next: next, store: store, ttl: ttl, onHit: onHit}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Analyze(ctx context.Context, text string) (Result, error) {
	key := cache.Key(c.next.Name(), text)
	if r, ok := c.store.Get(key); ok {
		if c.onHit != nil {
			c.onHit()
		}
		return r, nil
	}
	r, err := c.next.Analyze(ctx, text)
	if err != nil {
		return Result{}, err
	}
	r = normalize(r)
	c.store.Set(key, r, c.ttl)
	return r, nil
}

// Budgeted refuses calls once the provider's request budget is spent.
type Budgeted struct {
	next   Provider
	budget *ratelimit.Budget
}

func NewBudgeted(next Provider, budget *ratelimit.Budget) *Budgeted {
	return &Budgeted{next: next, budget: budget}
}

func (b *Budgeted) Name() string { return b.next.Name() }

func (b *Budgeted) Analyze(ctx context.Context, text string) (Result, error) {
	if err := b.budget.Use(b.next.Name()); err != nil {
		return Result{}, &ProviderError{Provider: b.next.Name(), Err: ErrBudgetExhausted}
	}
	return b.next.Analyze(ctx, text)
}
