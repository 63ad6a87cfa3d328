package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/WulfgarW/boschhttp/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Periodically publish readings to MQTT, InfluxDB and Prometheus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gw, err := newGateway()
		if err != nil {
			return err
		}
		if err := gw.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", gw.Host(), err)
		}

		ec := cfg.Export

		var sinks []export.Sink
		if ec.MQTT.Enabled {
			s, err := export.NewMQTTSink(ec.MQTT)
			if err != nil {
				return err
			}
			logger.Printf("mqtt: publishing to %s under %s", ec.MQTT.Broker, ec.MQTT.TopicPrefix)
			sinks = append(sinks, s)
		}
		if ec.InfluxDB.Enabled {
			logger.Printf("influxdb: writing to %s bucket %s", ec.InfluxDB.URL, ec.InfluxDB.Bucket)
			sinks = append(sinks, export.NewInfluxSink(ec.InfluxDB))
		}

		var srv *http.Server
		if ec.Prometheus.Enabled {
			p := export.NewPrometheusSink()
			mux := http.NewServeMux()
			mux.Handle("/metrics", p.Handler())
			srv = &http.Server{Addr: ec.Prometheus.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Printf("prometheus: %v", err)
				}
			}()
			logger.Printf("prometheus: serving /metrics on %s", ec.Prometheus.Listen)
			sinks = append(sinks, p)
		}

		if len(sinks) == 0 {
			return fmt.Errorf("no export enabled in configuration")
		}

		e := export.NewExporter(gw, clock.New(), logger, sinks...)
		defer func() {
			if err := e.Close(); err != nil {
				logger.Printf("close: %v", err)
			}
		}()
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		logger.Printf("exporting every %v", ec.Period())
		if err := e.Run(ctx, ec.Period()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
