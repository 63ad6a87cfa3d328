package export

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink keeps gauges of the last snapshot on its own registry
type PrometheusSink struct {
	registry *prometheus.Registry

	target     *prometheus.GaugeVec
	room       *prometheus.GaugeVec
	minTemp    *prometheus.GaugeVec
	maxTemp    *prometheus.GaugeVec
	mode       *prometheus.GaugeVec
	current    *prometheus.GaugeVec
	sensor     *prometheus.GaugeVec
	lastExport prometheus.Gauge
}

func NewPrometheusSink() *PrometheusSink {
	circuitLabels := []string{"gateway", "circuit", "type"}

	p := &PrometheusSink{
		registry: prometheus.NewRegistry(),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_target_celsius",
			Help: "Target temperature of the circuit",
		}, circuitLabels),
		room: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_room_celsius",
			Help: "Measured room temperature of the circuit",
		}, circuitLabels),
		minTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_min_celsius",
			Help: "Lower bound for the target temperature",
		}, circuitLabels),
		maxTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_max_celsius",
			Help: "Upper bound for the target temperature",
		}, circuitLabels),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_mode_info",
			Help: "Current operation mode of the circuit (1 = active)",
		}, []string{"gateway", "circuit", "mode"}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_circuit_current",
			Help: "Whether the last update of the circuit succeeded (1 = yes)",
		}, circuitLabels),
		sensor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bosch_sensor_value",
			Help: "Sensor reading",
		}, []string{"gateway", "sensor", "unit"}),
		lastExport: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bosch_last_export_timestamp_seconds",
			Help: "Unix timestamp of the last snapshot",
		}),
	}

	p.registry.MustRegister(p.target, p.room, p.minTemp, p.maxTemp, p.mode, p.current, p.sensor, p.lastExport)

	return p
}

func (p *PrometheusSink) Name() string {
	return "prometheus"
}

// Handler serves the registry in the exposition format
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (p *PrometheusSink) Write(ctx context.Context, snap Snapshot) error {
	gw := snap.GatewayName()

	// drop series of modes and readings that went away
	p.target.Reset()
	p.room.Reset()
	p.mode.Reset()
	p.sensor.Reset()

	for _, c := range snap.Circuits {
		labels := prometheus.Labels{"gateway": gw, "circuit": c.Name, "type": c.Type}

		if c.Target != nil {
			p.target.With(labels).Set(*c.Target)
		}
		if c.Room != nil {
			p.room.With(labels).Set(*c.Room)
		}
		p.minTemp.With(labels).Set(c.Min)
		p.maxTemp.With(labels).Set(c.Max)
		p.current.With(labels).Set(boolGauge(c.Current))

		if c.Mode != "" {
			p.mode.WithLabelValues(gw, c.Name, c.Mode).Set(1)
		}
	}

	for _, s := range snap.Sensors {
		if !s.Valid || s.Value == nil {
			continue
		}
		p.sensor.WithLabelValues(gw, s.Key, s.Unit).Set(*s.Value)
	}

	p.lastExport.Set(float64(snap.Time.Unix()))

	return nil
}

func (p *PrometheusSink) Close() error {
	return nil
}
