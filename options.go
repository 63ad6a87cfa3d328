package boschhttp

import (
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
)

type Option func(*Gateway)

func WithLogger(logger Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithHttpClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

func WithClock(clk clock.Clock) Option {
	return func(g *Gateway) {
		g.clock = clk
	}
}

func WithBus(bus EventBus.Bus) Option {
	return func(g *Gateway) {
		g.bus = bus
	}
}

func WithDatabase(db *Database) Option {
	return func(g *Gateway) {
		g.db = db
	}
}

func WithUpdatePolicy(policy UpdatePolicy) Option {
	return func(g *Gateway) {
		g.policy = policy
	}
}

func WithDeviceTimeCache(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.deviceTimeTTL = ttl
	}
}
