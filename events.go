package boschhttp

import (
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
)

const (
	// handler signature: func(id string, changed bool)
	TOPIC_ENTITY_UPDATED = "entity:updated"
	// handler signature: func(id, mode string)
	TOPIC_CIRCUIT_MODE = "circuit:mode"
	// handler signature: func(id string, temp float64)
	TOPIC_CIRCUIT_TEMPERATURE = "circuit:temperature"
)

// Env carries the collaborators shared by all entities of one gateway session
type Env struct {
	Conn   Requester
	Logger Logger
	Clock  clock.Clock
	Bus    EventBus.Bus
	Policy UpdatePolicy
}

func (e *Env) publish(topic string, args ...any) {
	if e.Bus != nil {
		e.Bus.Publish(topic, args...)
	}
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e *Env) debug(msg string, arg ...any) {
	if e.Logger != nil {
		e.Logger.Printf("debug: "+msg, arg...)
	}
}

func (e *Env) warn(msg string, arg ...any) {
	if e.Logger != nil {
		e.Logger.Printf("warn: "+msg, arg...)
	}
}
