package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Sink receives snapshots
type Sink interface {
	Name() string
	Write(ctx context.Context, snap Snapshot) error
	Close() error
}

// Updater is a gateway session that can refresh its entities
type Updater interface {
	Source
	UpdateAll(ctx context.Context) error
}

type Logger interface {
	Printf(msg string, arg ...any)
}

// Exporter refreshes a gateway and hands the result to its sinks
type Exporter struct {
	src    Updater
	sinks  []Sink
	clock  clock.Clock
	logger Logger
}

func NewExporter(src Updater, clk clock.Clock, logger Logger, sinks ...Sink) *Exporter {
	if clk == nil {
		clk = clock.New()
	}
	return &Exporter{
		src:    src,
		sinks:  sinks,
		clock:  clk,
		logger: logger,
	}
}

func (e *Exporter) log(msg string, arg ...any) {
	if e.logger != nil {
		e.logger.Printf(msg, arg...)
	}
}

// Once runs a single update cycle. A failed update still exports the cached
// values, entities report them as not current.
func (e *Exporter) Once(ctx context.Context) (Snapshot, error) {
	if err := e.src.UpdateAll(ctx); err != nil {
		e.log("update: %v", err)
	}

	snap := NewSnapshot(e.src, e.clock.Now())

	var errs []error
	for _, s := range e.sinks {
		if err := s.Write(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	return snap, errors.Join(errs...)
}

// Run exports immediately and then once per interval until ctx is done
func (e *Exporter) Run(ctx context.Context, interval time.Duration) error {
	ticker := e.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Once(ctx); err != nil {
			e.log("export: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes all sinks
func (e *Exporter) Close() error {
	var errs []error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
