package boschhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
)

const (
	INFO_UUID     = "uuid"
	INFO_FIRMWARE = "versionFirmware"
	INFO_HARDWARE = "versionHardware"
)

// Gateway is one session with a heating gateway. It discovers circuits and
// sensors on Initialize and refreshes them on UpdateAll. A gateway is meant
// to be driven by a single goroutine, device requests are serialized by the
// connection.
type Gateway struct {
	host          string
	client        *http.Client
	conn          *Connection
	env           *Env
	logger        Logger
	clock         clock.Clock
	bus           EventBus.Bus
	db            *Database
	policy        UpdatePolicy
	timeout       time.Duration
	deviceTimeTTL time.Duration
	deviceTime    Cacheable[string]
	lastTime      string

	info        *Entity
	model       *Model
	modelKnown  bool
	circuits    []*Circuit
	sensors     []*Sensor
	initialized bool
}

// NewGateway creates a gateway session. Without password the access key is
// taken as the hex encoded derived key.
func NewGateway(host, accessKey, password string, opts ...Option) (*Gateway, error) {
	cred, err := NewCredentials(accessKey, password)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		host:          host,
		timeout:       DEFAULT_TIMEOUT,
		deviceTimeTTL: DEFAULT_DEVICETIME_CACHE,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		g.client = NewClient()
	}
	if g.clock == nil {
		g.clock = clock.New()
	}
	if g.db == nil {
		g.db = DefaultDatabase()
	}

	g.conn, err = NewConnection(host, g.client, cred, WithConnLogger(g.logger), WithConnTimeout(g.timeout))
	if err != nil {
		return nil, err
	}

	g.env = &Env{
		Conn:   g.conn,
		Logger: g.logger,
		Clock:  g.clock,
		Bus:    g.bus,
		Policy: g.policy,
	}

	g.deviceTime = ResettableCached(func(ctx context.Context) (string, error) {
		var node Node
		if err := g.conn.Get(ctx, GATEWAY_DATETIME, &node); err != nil {
			return "", err
		}
		if !node.Valid() {
			return "", fmt.Errorf("%s: no value", GATEWAY_DATETIME)
		}
		g.lastTime = node.String()
		return g.lastTime, nil
	}, g.deviceTimeTTL, g.clock)

	g.info = NewEntity(g.env, GATEWAY_ROOT, "gateway", []Resource{
		{Key: INFO_UUID, URI: GATEWAY_UUID},
		{Key: INFO_FIRMWARE, URI: GATEWAY_FIRMWARE},
		{Key: INFO_HARDWARE, URI: GATEWAY_HARDWARE},
	})

	return g, nil
}

func (g *Gateway) debug(fmt string, arg ...any) {
	g.env.debug(fmt, arg...)
}

func (g *Gateway) warn(fmt string, arg ...any) {
	g.env.warn(fmt, arg...)
}

func (g *Gateway) Host() string {
	return g.host
}

func (g *Gateway) Connection() *Connection {
	return g.conn
}

func (g *Gateway) Bus() EventBus.Bus {
	return g.bus
}

// CheckConnection reads the gateway uuid
func (g *Gateway) CheckConnection(ctx context.Context) (string, error) {
	var node Node
	if err := g.conn.Get(ctx, GATEWAY_UUID, &node); err != nil {
		return "", err
	}
	if !node.Valid() {
		return "", &ResponseError{Path: GATEWAY_UUID, Err: errors.New("no uuid")}
	}
	return node.String(), nil
}

// DeviceTime returns the gateway clock, cached briefly and shared by all
// schedules of one update cycle.
func (g *Gateway) DeviceTime(ctx context.Context) (string, error) {
	return g.deviceTime.Get(ctx)
}

// Info returns the cached gateway identity. DeviceTime is the last clock
// value read from the gateway, empty before the first read.
func (g *Gateway) Info() GatewayInfo {
	return GatewayInfo{
		UUID:            g.info.StringValue(INFO_UUID, ""),
		FirmwareVersion: g.info.StringValue(INFO_FIRMWARE, ""),
		HardwareVersion: g.info.StringValue(INFO_HARDWARE, ""),
		DeviceTime:      g.lastTime,
	}
}

// Model returns the capability model selected by Initialize. ok is false
// when the firmware is unknown and the default model is used.
func (g *Gateway) Model() (*Model, bool) {
	return g.model, g.modelKnown
}

// Initialize reads the gateway info, selects the capability model and
// discovers circuits and sensors. Paths missing on this firmware are skipped.
func (g *Gateway) Initialize(ctx context.Context) error {
	if err := g.info.Initialize(ctx); err != nil {
		return fmt.Errorf("gateway info: %w", err)
	}

	info := g.Info()
	if info.UUID == "" {
		return fmt.Errorf("%w: gateway reports no uuid", ErrUnsupportedDevice)
	}

	g.model, g.modelKnown = g.db.Lookup(info.FirmwareVersion)
	if g.model == nil {
		return fmt.Errorf("%w: firmware %s", ErrUnsupportedDevice, info.FirmwareVersion)
	}
	if !g.modelKnown {
		g.warn("unknown firmware %s, using %s", info.FirmwareVersion, g.model.Name)
	}
	g.debug("gateway %s firmware %s model %s", info.UUID, info.FirmwareVersion, g.model.Name)

	g.circuits = nil
	for _, typ := range circuitTypes(g.model) {
		if err := g.initializeCircuits(ctx, typ, g.model.Circuits[typ]); err != nil {
			return err
		}
	}

	g.sensors = nil
	for _, key := range sensorKeys(g.model) {
		s := NewSensor(g.env, key, g.model.Sensors[key])
		if err := s.Initialize(ctx); err != nil {
			g.warn("sensor %s: %v", key, err)
		}
		if !s.Available() {
			g.debug("sensor %s not present", key)
			continue
		}
		g.sensors = append(g.sensors, s)
	}

	g.initialized = true

	return nil
}

func (g *Gateway) initializeCircuits(ctx context.Context, typ CircuitType, schema *CircuitSchema) error {
	nodes, err := Crawl(ctx, g.env, schema.Root, 1)
	if IsNotFound(err) {
		g.debug("no %s circuits", typ)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s circuits: %w", typ, err)
	}

	for _, node := range nodes {
		c := NewCircuit(g.env, typ, node.ID, schema, g.model.Bus, g.DeviceTime)
		if err := c.Initialize(ctx); err != nil {
			g.warn("circuit %s: %v", c.ID(), err)
		}
		g.circuits = append(g.circuits, c)
	}

	return nil
}

func (g *Gateway) Initialized() bool {
	return g.initialized
}

// UpdateAll refreshes gateway info, circuits and sensors. Every entity is
// updated even if others fail, the errors are joined.
func (g *Gateway) UpdateAll(ctx context.Context) error {
	if !g.initialized {
		return ErrNotInitialized
	}

	g.deviceTime.Reset()

	var errs []error
	if _, err := g.info.Update(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, c := range g.circuits {
		if _, err := c.Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.ID(), err))
		}
	}
	for _, s := range g.sensors {
		if _, err := s.Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.ID(), err))
		}
	}

	return errors.Join(errs...)
}

func (g *Gateway) Circuits() []*Circuit {
	return append([]*Circuit(nil), g.circuits...)
}

func (g *Gateway) CircuitsOfType(typ CircuitType) []*Circuit {
	return GetCircuitsOfType(g.circuits, typ)
}

func (g *Gateway) Circuit(name string) (*Circuit, error) {
	if !g.initialized {
		return nil, ErrNotInitialized
	}
	if c := GetCircuit(g.circuits, name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCircuit, name)
}

func (g *Gateway) Sensors() []*Sensor {
	return append([]*Sensor(nil), g.sensors...)
}

func (g *Gateway) Sensor(key string) *Sensor {
	return GetSensor(g.sensors, key)
}

// Rawscan walks all known roots and returns every leaf. Sub paths that fail
// are skipped.
func (g *Gateway) Rawscan(ctx context.Context) ([]Node, error) {
	c := &crawler{env: g.env, tolerant: true}

	var res []Node
	for _, root := range RAWSCAN_ROOTS {
		var err error
		if res, err = c.crawl(ctx, root, -1, res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			g.debug("scan %s: %v", root, err)
		}
	}

	return res, nil
}
