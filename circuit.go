package boschhttp

import (
	"context"
	"slices"
)

// OperationModeState is filled from the first successful read of the
// operation mode resource. Allowed modes and the write uri are fixed from
// then on, only the current mode follows reads and successful writes.
type OperationModeState struct {
	Current string
	Allowed []string
	URI     string
	IsSet   bool
}

func (s *OperationModeState) observe(uri string, p Property) {
	if !p.Valid() {
		return
	}
	if !s.IsSet {
		s.Allowed = p.AllowedStrings()
		s.URI = uri
		s.IsSet = true
	}
	s.Current = p.String()
}

// Circuit is a heating, hot water or solar circuit. Behaviour differences
// between devices come from its schema and bus type.
type Circuit struct {
	*Entity
	typ          CircuitType
	schema       *CircuitSchema
	bus          BusType
	opMode       OperationModeState
	schedule     *Schedule
	cachedTarget float64
	hasTarget    bool
}

// NewCircuit creates the circuit with gateway id, e.g. "/heatingCircuits/hc1"
func NewCircuit(env *Env, typ CircuitType, id string, schema *CircuitSchema, bus BusType, deviceTime func(ctx context.Context) (string, error)) *Circuit {
	name := lastSegment(id)
	return &Circuit{
		Entity:   NewEntity(env, id, name, schema.Resources(name)),
		typ:      typ,
		schema:   schema,
		bus:      bus,
		schedule: NewSchedule(env, schema.Root, name, bus, deviceTime),
	}
}

func (c *Circuit) Type() CircuitType {
	return c.typ
}

func (c *Circuit) Bus() BusType {
	return c.bus
}

func (c *Circuit) Schedule() *Schedule {
	return c.schedule
}

func (c *Circuit) OperationMode() OperationModeState {
	res := c.opMode
	res.Allowed = slices.Clone(c.opMode.Allowed)
	return res
}

func (c *Circuit) CurrentMode() string {
	return c.opMode.Current
}

func (c *Circuit) AllowedModes() []string {
	return slices.Clone(c.opMode.Allowed)
}

func (c *Circuit) modeSetpoint() (ModeSetpoint, bool) {
	if !c.opMode.IsSet {
		return ModeSetpoint{}, false
	}
	ms, ok := c.schema.ModeToSetpoint[c.opMode.Current]
	return ms, ok
}

// ModeType classifies the current mode, MODE_UNKNOWN before the first read
func (c *Circuit) ModeType() ModeType {
	ms, ok := c.modeSetpoint()
	if !ok {
		return MODE_UNKNOWN
	}
	return ms.Type
}

func (c *Circuit) resourceOfKind(kind ResourceKind) (*Resource, bool) {
	for _, key := range c.keys {
		if r := c.resources[key]; r.Kind == kind {
			return r, true
		}
	}
	return nil, false
}

func (c *Circuit) liveResource() (*Resource, bool) {
	if c.schema.LiveSetpoint == "" {
		return nil, false
	}
	return c.Resource(c.schema.LiveSetpoint)
}

// CurrentTemperature is the measured temperature of the circuit
func (c *Circuit) CurrentTemperature() (float64, bool) {
	if c.schema.CurrentTemp == "" {
		return 0, false
	}
	r, ok := c.Resource(c.schema.CurrentTemp)
	if !ok {
		return 0, false
	}
	t, ok := r.Float()
	if !ok || t <= 0 || t >= 120 {
		return 0, false
	}
	return t, true
}

func (c *Circuit) Status() string {
	return c.StringValue("status", "")
}

// Initialize probes the circuit resources and reads the operation mode
func (c *Circuit) Initialize(ctx context.Context) error {
	err := c.Entity.Initialize(ctx)
	if r, ok := c.resourceOfKind(KIND_OPERATION_MODE); ok {
		c.opMode.observe(r.URI, r.Property)
	}
	return err
}

func activeProgramID(p Property, node Node) string {
	if p.Valid() {
		if id := p.String(); id != "" {
			return lastSegment(id)
		}
	}
	if len(node.References) > 0 {
		return lastSegment(node.References[0].ID)
	}
	return ""
}

func (c *Circuit) hook(ctx context.Context, r *Resource, node Node) error {
	switch r.Kind {
	case KIND_OPERATION_MODE:
		c.opMode.observe(r.URI, r.Property)
	case KIND_ACTIVE_PROGRAM:
		return c.schedule.Update(ctx, activeProgramID(r.Property, node))
	}
	return nil
}

// Update refreshes all circuit resources and the active schedule. Device
// errors are recorded, cached values stay in place.
func (c *Circuit) Update(ctx context.Context) (bool, error) {
	changed, errs := c.fetch(ctx, c.hook)

	if len(errs) == 0 || c.env.Policy == CONTINUE_ON_ERROR {
		if err := c.ensureModeSetpoint(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.finish(errs)

	before, had := c.cachedTarget, c.hasTarget
	if t, ok := c.TargetTemperature(); ok && (!had || t != before) {
		c.env.publish(TOPIC_CIRCUIT_TEMPERATURE, c.id, t)
	}
	c.env.publish(TOPIC_ENTITY_UPDATED, c.id, changed)

	return changed, c.lastErr
}

// ensureModeSetpoint caches the level of a manual mode that has no
// resource of its own, e.g. "day" on older controllers.
func (c *Circuit) ensureModeSetpoint(ctx context.Context) error {
	ms, ok := c.modeSetpoint()
	if !ok || ms.Type != MODE_MANUAL || ms.Read != "" {
		return nil
	}
	return c.schedule.EnsureSetpoint(ctx, c.opMode.Current)
}

func (c *Circuit) targetOff() (float64, bool) {
	if c.ModeType() == MODE_OFF {
		return 0, true
	}
	return 0, false
}

func (c *Circuit) targetDirect() (float64, bool) {
	ms, ok := c.modeSetpoint()
	if !ok || ms.Read == "" {
		return 0, false
	}
	r, ok := c.Resource(ms.Read)
	if !ok {
		return 0, false
	}
	if t, ok := r.Float(); ok && t > 0 {
		return t, true
	}
	return 0, false
}

func (c *Circuit) targetSchedule() (float64, bool) {
	sp, ok := c.schedule.GetTemperatureForMode(c.opMode.Current, c.ModeType())
	if !ok || sp.Live {
		return 0, false
	}
	return sp.Value, true
}

// targetLive reads the live setpoint when the schedule defers to it or
// cannot resolve a level at all.
func (c *Circuit) targetLive() (float64, bool) {
	if sp, ok := c.schedule.GetTemperatureForMode(c.opMode.Current, c.ModeType()); ok && !sp.Live {
		return 0, false
	}
	r, ok := c.liveResource()
	if !ok {
		return 0, false
	}
	if t, ok := r.Float(); ok && t > 0 {
		return t, true
	}
	return 0, false
}

// TargetTemperature resolves the active target. Off yields 0, otherwise the
// direct setpoint, the schedule and the live setpoint are tried in turn.
// When none resolves, the last resolved target is returned.
func (c *Circuit) TargetTemperature() (float64, bool) {
	if t, ok := c.targetOff(); ok {
		return t, true
	}

	for _, rung := range []func() (float64, bool){c.targetDirect, c.targetSchedule, c.targetLive} {
		if t, ok := rung(); ok {
			c.cachedTarget = t
			c.hasTarget = true
			return t, true
		}
	}

	return c.cachedTarget, c.hasTarget
}

func boundsOf(p Property) (float64, float64, bool) {
	if !p.HasBounds() {
		return 0, 0, false
	}
	lo, hi := p.MinValue(DEFAULT_MIN_TEMP), p.MaxValue(DEFAULT_MAX_TEMP)
	return lo, hi, lo < hi
}

// bounds follows the target resolution order and falls back to the device
// independent range.
func (c *Circuit) bounds() (float64, float64) {
	if c.ModeType() == MODE_OFF {
		return DEFAULT_MIN_TEMP, DEFAULT_MAX_TEMP
	}

	if ms, ok := c.modeSetpoint(); ok && ms.Read != "" {
		for _, key := range []string{ms.Write, ms.Read} {
			if r, ok := c.Resource(key); ok {
				if lo, hi, ok := boundsOf(r.Property); ok {
					return lo, hi
				}
			}
		}
		return DEFAULT_MIN_TEMP, DEFAULT_MAX_TEMP
	}

	sp, ok := c.schedule.GetTemperatureForMode(c.opMode.Current, c.ModeType())
	if ok && !sp.Live && sp.Min < sp.Max {
		return sp.Min, sp.Max
	}

	if r, ok := c.liveResource(); ok {
		if lo, hi, ok := boundsOf(r.Property); ok {
			return lo, hi
		}
	}

	return DEFAULT_MIN_TEMP, DEFAULT_MAX_TEMP
}

func (c *Circuit) MinTemperature() float64 {
	lo, _ := c.bounds()
	return lo
}

func (c *Circuit) MaxTemperature() float64 {
	_, hi := c.bounds()
	return hi
}

type writeTarget struct {
	uri       string
	resource  *Resource
	scheduled bool
}

func (c *Circuit) writeTarget() (writeTarget, bool) {
	if ms, ok := c.modeSetpoint(); ok && ms.Write != "" {
		if r, ok := c.Resource(ms.Write); ok {
			return writeTarget{uri: r.URI, resource: r}, true
		}
	}

	sp, ok := c.schedule.GetTemperatureForMode(c.opMode.Current, c.ModeType())
	if ok && !sp.Live && sp.URI != "" {
		return writeTarget{uri: sp.URI, scheduled: true}, true
	}

	if r, ok := c.liveResource(); ok {
		return writeTarget{uri: r.URI, resource: r}, true
	}

	return writeTarget{}, false
}

// SetTemperature writes a new target for the current mode. Rejections for
// caller input are logged and return false without error.
func (c *Circuit) SetTemperature(ctx context.Context, temp float64) (bool, error) {
	if !c.opMode.IsSet {
		c.env.warn("%s: operation mode unknown, not setting temperature", c.id)
		return false, nil
	}

	modeType := c.ModeType()
	if modeType == MODE_OFF {
		c.env.warn("%s: circuit is off, not setting temperature %.1f", c.id, temp)
		return false, nil
	}

	lo, hi := c.bounds()
	if !(temp > lo && temp < hi) {
		c.env.warn("%s: temperature %.1f out of range (%.1f, %.1f)", c.id, temp, lo, hi)
		return false, nil
	}

	wt, ok := c.writeTarget()
	if !ok {
		c.env.warn("%s: no setpoint to write for mode %s", c.id, c.opMode.Current)
		return false, nil
	}

	if _, err := c.env.Conn.Put(ctx, wt.uri, temp); err != nil {
		return false, err
	}

	if wt.scheduled {
		c.schedule.CacheTempForMode(temp, c.opMode.Current, modeType)
	} else {
		wt.resource.SetValue(temp)
	}

	c.cachedTarget = temp
	c.hasTarget = true
	c.env.publish(TOPIC_CIRCUIT_TEMPERATURE, c.id, temp)

	return true, nil
}

// SetOperationMode switches the circuit to mode. An empty result without
// error means the request was rejected: mode unknown, already active or not
// allowed. The device is not re-read after a successful write.
func (c *Circuit) SetOperationMode(ctx context.Context, mode string) (string, error) {
	if !c.opMode.IsSet {
		c.env.warn("%s: operation mode unknown, not setting %s", c.id, mode)
		return "", nil
	}
	if mode == c.opMode.Current {
		c.env.warn("%s: mode %s already set", c.id, mode)
		return "", nil
	}
	if !slices.Contains(c.opMode.Allowed, mode) {
		c.env.warn("%s: mode %s not allowed %v", c.id, mode, c.opMode.Allowed)
		return "", nil
	}

	if _, err := c.env.Conn.Put(ctx, c.opMode.URI, mode); err != nil {
		return "", err
	}

	c.opMode.Current = mode
	if r, ok := c.resourceOfKind(KIND_OPERATION_MODE); ok {
		r.SetValue(mode)
	}
	c.env.publish(TOPIC_CIRCUIT_MODE, c.id, mode)

	return mode, nil
}
