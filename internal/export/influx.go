package export

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/WulfgarW/boschhttp/internal/config"
)

const (
	MEASUREMENT_CIRCUIT = "bosch_circuit"
	MEASUREMENT_SENSOR  = "bosch_sensor"
)

// InfluxSink writes one point per circuit and per valid sensor
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(cfg config.InfluxDBConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions())
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (s *InfluxSink) Name() string {
	return "influxdb"
}

func circuitPoint(gw string, c CircuitState, snap Snapshot) *write.Point {
	fields := map[string]interface{}{
		"min":     c.Min,
		"max":     c.Max,
		"current": c.Current,
	}
	if c.Target != nil {
		fields["target"] = *c.Target
	}
	if c.Room != nil {
		fields["room"] = *c.Room
	}

	tags := map[string]string{
		"gateway": gw,
		"circuit": c.Name,
		"type":    c.Type,
	}
	if c.Mode != "" {
		tags["mode"] = c.Mode
	}

	return write.NewPoint(MEASUREMENT_CIRCUIT, tags, fields, snap.Time)
}

func sensorPoint(gw string, sensor SensorState, snap Snapshot) *write.Point {
	tags := map[string]string{
		"gateway": gw,
		"sensor":  sensor.Key,
	}
	if sensor.Unit != "" {
		tags["unit"] = sensor.Unit
	}

	return write.NewPoint(MEASUREMENT_SENSOR, tags, map[string]interface{}{"value": *sensor.Value}, snap.Time)
}

func (s *InfluxSink) points(snap Snapshot) []*write.Point {
	gw := snap.GatewayName()

	var res []*write.Point
	for _, c := range snap.Circuits {
		res = append(res, circuitPoint(gw, c, snap))
	}
	for _, sensor := range snap.Sensors {
		if !sensor.Valid || sensor.Value == nil {
			continue
		}
		res = append(res, sensorPoint(gw, sensor, snap))
	}
	return res
}

func (s *InfluxSink) Write(ctx context.Context, snap Snapshot) error {
	points := s.points(snap)
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
