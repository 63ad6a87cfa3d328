package boschhttp

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Cacheable[T any] interface {
	Get(ctx context.Context) (T, error)
	Reset()
}

type cached[T any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	g       func(ctx context.Context) (T, error)
	ttl     time.Duration
	updated time.Time
	valid   bool
	val     T
}

// ResettableCached wraps g so that successful results are reused for ttl.
// Errors are never cached.
func ResettableCached[T any](g func(ctx context.Context) (T, error), ttl time.Duration, clk clock.Clock) Cacheable[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &cached[T]{
		clock: clk,
		g:     g,
		ttl:   ttl,
	}
}

func (c *cached[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.clock.Since(c.updated) < c.ttl {
		return c.val, nil
	}

	val, err := c.g(ctx)
	if err != nil {
		return val, err
	}

	c.val = val
	c.valid = true
	c.updated = c.clock.Now()

	return val, nil
}

func (c *cached[T]) Reset() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
