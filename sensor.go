package boschhttp

import "context"

const SENSOR_RESOURCE = "value"

// Sensor is a single read only gateway value
type Sensor struct {
	*Entity
	key string
}

func NewSensor(env *Env, key string, schema SensorSchema) *Sensor {
	name := schema.Name
	if name == "" {
		name = key
	}
	return &Sensor{
		Entity: NewEntity(env, schema.ID, name, []Resource{{Key: SENSOR_RESOURCE, URI: schema.ID, Kind: KIND_REGULAR}}),
		key:    key,
	}
}

func (s *Sensor) Key() string {
	return s.key
}

// Available is false once the probe found the path missing
func (s *Sensor) Available() bool {
	_, ok := s.Resource(SENSOR_RESOURCE)
	return ok
}

func (s *Sensor) Property() Property {
	return s.Entity.Property(SENSOR_RESOURCE)
}

// Value is the numeric reading, invalid when it matches a state sentinel
func (s *Sensor) Value() (float64, bool) {
	return s.Property().Float()
}

func (s *Sensor) Text() string {
	return s.StringValue(SENSOR_RESOURCE, "")
}

func (s *Sensor) Unit() string {
	return s.Property().Unit
}

func (s *Sensor) Valid() bool {
	return s.Property().Valid()
}

func (s *Sensor) Update(ctx context.Context) (bool, error) {
	return s.Entity.Update(ctx)
}
