package export

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/WulfgarW/boschhttp"
)

// memRequester serves gateway nodes from memory
type memRequester struct {
	mu    sync.Mutex
	nodes map[string]map[string]any
}

func (m *memRequester) Get(ctx context.Context, path string, res any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[path]
	if !ok {
		return &boschhttp.NotFoundError{Path: path}
	}
	b, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (m *memRequester) Put(ctx context.Context, path string, value any) (string, error) {
	return "", errors.New("read only")
}

func (m *memRequester) set(path string, node map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node["id"] = path
	m.nodes[path] = node
}

// fakeGateway is an initialized session with one heating circuit and two
// sensors, one of them reporting a sentinel value
type fakeGateway struct {
	req       *memRequester
	circuits  []*boschhttp.Circuit
	sensors   []*boschhttp.Sensor
	updates   int
	updateErr error
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	req := &memRequester{nodes: make(map[string]map[string]any)}
	req.set("/heatingCircuits/hc1/operationMode", map[string]any{
		"value":         "manual",
		"allowedValues": []any{"manual", "auto"},
	})
	req.set("/heatingCircuits/hc1/currentRoomSetpoint", map[string]any{"value": 21.5})
	req.set("/heatingCircuits/hc1/manualRoomSetpoint", map[string]any{"value": 21.5, "minValue": 5, "maxValue": 30})
	req.set("/heatingCircuits/hc1/roomtemperature", map[string]any{"value": 20.5, "unitOfMeasure": "C"})
	req.set("/system/sensors/temperatures/outdoor_t1", map[string]any{"value": 7.5, "unitOfMeasure": "C"})
	req.set("/system/sensors/temperatures/supply_t1", map[string]any{
		"value":         -3276.8,
		"unitOfMeasure": "C",
		"state":         []any{map[string]any{"open": -3276.8}},
	})

	env := &boschhttp.Env{Conn: req}
	model := boschhttp.DefaultDatabase().Models["rc300"]
	deviceTime := func(ctx context.Context) (string, error) {
		return "2024-03-04T10:00:00", nil
	}

	g := &fakeGateway{req: req}
	c := boschhttp.NewCircuit(env, boschhttp.HEATING_CIRCUIT, "/heatingCircuits/hc1", model.Circuits[boschhttp.HEATING_CIRCUIT], model.Bus, deviceTime)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("circuit Initialize() error = %v", err)
	}
	g.circuits = append(g.circuits, c)

	for _, key := range []string{"outdoor_t1", "supply_t1"} {
		s := boschhttp.NewSensor(env, key, model.Sensors[key])
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("sensor Initialize() error = %v", err)
		}
		g.sensors = append(g.sensors, s)
	}

	if err := g.UpdateAll(context.Background()); err != nil {
		t.Fatalf("UpdateAll() error = %v", err)
	}
	g.updates = 0

	return g
}

func (g *fakeGateway) Info() boschhttp.GatewayInfo {
	return boschhttp.GatewayInfo{UUID: "123456789", FirmwareVersion: "04.08.02"}
}

func (g *fakeGateway) Circuits() []*boschhttp.Circuit {
	return g.circuits
}

func (g *fakeGateway) Sensors() []*boschhttp.Sensor {
	return g.sensors
}

func (g *fakeGateway) UpdateAll(ctx context.Context) error {
	g.updates++
	var errs []error
	for _, c := range g.circuits {
		if _, err := c.Update(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range g.sensors {
		if _, err := s.Update(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, g.updateErr)
	return errors.Join(errs...)
}

// recordingSink collects snapshots
type recordingSink struct {
	name  string
	err   error
	snaps chan Snapshot
}

func newRecordingSink(name string) *recordingSink {
	return &recordingSink{name: name, snaps: make(chan Snapshot, 16)}
}

func (s *recordingSink) Name() string {
	return s.name
}

func (s *recordingSink) Write(ctx context.Context, snap Snapshot) error {
	s.snaps <- snap
	return s.err
}

func (s *recordingSink) Close() error {
	return nil
}

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	return NewSnapshot(newFakeGateway(t), testTime)
}
