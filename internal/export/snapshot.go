// Package export publishes gateway readings to external systems.
package export

import (
	"time"

	"github.com/WulfgarW/boschhttp"
)

// Source is the read side of a gateway session
type Source interface {
	Info() boschhttp.GatewayInfo
	Circuits() []*boschhttp.Circuit
	Sensors() []*boschhttp.Sensor
}

type CircuitState struct {
	Name     string   `json:"name"`
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Mode     string   `json:"mode,omitempty"`
	ModeType string   `json:"modeType,omitempty"`
	Target   *float64 `json:"target,omitempty"`
	Room     *float64 `json:"room,omitempty"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Current  bool     `json:"current"`
}

type SensorState struct {
	Key   string   `json:"key"`
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
	Text  string   `json:"text,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	Valid bool     `json:"valid"`
}

// Snapshot is the state of one gateway after an update cycle
type Snapshot struct {
	Gateway  string         `json:"gateway"`
	Firmware string         `json:"firmware,omitempty"`
	Time     time.Time      `json:"time"`
	Circuits []CircuitState `json:"circuits"`
	Sensors  []SensorState  `json:"sensors"`
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// NewSnapshot reads the cached state of src. It does not touch the device.
func NewSnapshot(src Source, now time.Time) Snapshot {
	info := src.Info()
	snap := Snapshot{
		Gateway:  info.UUID,
		Firmware: info.FirmwareVersion,
		Time:     now,
	}

	for _, c := range src.Circuits() {
		snap.Circuits = append(snap.Circuits, CircuitState{
			Name:     c.Name(),
			ID:       c.ID(),
			Type:     string(c.Type()),
			Mode:     c.CurrentMode(),
			ModeType: string(c.ModeType()),
			Target:   optional(c.TargetTemperature()),
			Room:     optional(c.CurrentTemperature()),
			Min:      c.MinTemperature(),
			Max:      c.MaxTemperature(),
			Current:  c.Current(),
		})
	}

	for _, s := range src.Sensors() {
		if !s.Available() {
			continue
		}
		snap.Sensors = append(snap.Sensors, SensorState{
			Key:   s.Key(),
			ID:    s.ID(),
			Name:  s.Name(),
			Value: optional(s.Value()),
			Text:  s.Text(),
			Unit:  s.Unit(),
			Valid: s.Valid(),
		})
	}

	return snap
}

// GatewayName is used in topics and labels, the uuid may be unknown when
// the info read failed
func (s Snapshot) GatewayName() string {
	if s.Gateway == "" {
		return "gateway"
	}
	return s.Gateway
}
