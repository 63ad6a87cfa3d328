package main

import (
	"context"
	"fmt"

	"github.com/WulfgarW/boschhttp"
	"github.com/WulfgarW/boschhttp/internal/config"
)

func updatePolicy(s string) boschhttp.UpdatePolicy {
	if s == config.POLICY_ABORT {
		return boschhttp.ABORT_ON_ERROR
	}
	return boschhttp.CONTINUE_ON_ERROR
}

// newGateway creates the session from the loaded configuration
func newGateway() (*boschhttp.Gateway, error) {
	if err := cfg.CheckGateway(); err != nil {
		return nil, err
	}

	gc := cfg.Gateway
	opts := []boschhttp.Option{
		boschhttp.WithTimeout(gc.RequestTimeout()),
		boschhttp.WithUpdatePolicy(updatePolicy(gc.UpdatePolicy)),
	}
	if cfg.Logging.Debug {
		opts = append(opts,
			boschhttp.WithLogger(logger),
			boschhttp.WithHttpClient(boschhttp.NewClientWithLog(logger)),
		)
	}

	return boschhttp.NewGateway(gc.Host, gc.AccessKey, gc.Password, opts...)
}

// connect creates the session and discovers circuits and sensors
func connect(ctx context.Context) (*boschhttp.Gateway, error) {
	gw, err := newGateway()
	if err != nil {
		return nil, err
	}
	if err := gw.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", gw.Host(), err)
	}
	if err := gw.UpdateAll(ctx); err != nil {
		logger.Printf("update: %v", err)
	}
	return gw, nil
}
