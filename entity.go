package boschhttp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Resource is one addressable property of an entity
type Resource struct {
	Key  string
	URI  string
	Kind ResourceKind
	Property
}

// Entity owns a fixed set of resources bound to gateway paths and tracks
// whether the last update succeeded.
type Entity struct {
	env        *Env
	id         string
	name       string
	resources  map[string]*Resource
	keys       []string
	frozen     bool
	current    bool
	lastErr    error
	lastUpdate time.Time
}

func NewEntity(env *Env, id, name string, resources []Resource) *Entity {
	e := &Entity{
		env:       env,
		id:        id,
		name:      name,
		resources: make(map[string]*Resource, len(resources)),
	}
	for _, r := range resources {
		r := r // per-iteration copy, needed while go.mod targets go 1.21
		if _, ok := e.resources[r.Key]; ok {
			continue
		}
		if r.Kind == "" {
			r.Kind = KIND_REGULAR
		}
		e.resources[r.Key] = &r
		e.keys = append(e.keys, r.Key)
	}
	return e
}

func (e *Entity) ID() string {
	return e.id
}

func (e *Entity) Name() string {
	return e.name
}

// Keys returns the resource keys in declaration order
func (e *Entity) Keys() []string {
	return append([]string(nil), e.keys...)
}

func (e *Entity) Resource(key string) (*Resource, bool) {
	r, ok := e.resources[key]
	return r, ok
}

// Property returns a copy of the cached property bag
func (e *Entity) Property(key string) Property {
	if r, ok := e.resources[key]; ok {
		return r.Property.clone()
	}
	return Property{}
}

func (e *Entity) FloatValue(key string, def float64) float64 {
	if f, ok := e.Property(key).Float(); ok {
		return f
	}
	return def
}

func (e *Entity) StringValue(key string, def string) string {
	if p := e.Property(key); p.Valid() {
		return p.String()
	}
	return def
}

// ProcessResults merges a decoded response into the resource cache
func (e *Entity) ProcessResults(key string, node Node) (bool, error) {
	r, ok := e.resources[key]
	if !ok {
		return false, fmt.Errorf("%s: unknown resource %s", e.id, key)
	}
	return r.Merge(node.Property)
}

// Current reports whether the last update finished without device errors
func (e *Entity) Current() bool {
	return e.current
}

func (e *Entity) LastError() error {
	return e.lastErr
}

func (e *Entity) LastUpdate() time.Time {
	return e.lastUpdate
}

// Initialize probes every declared resource once and drops those the
// firmware does not provide. Afterwards the resource set is fixed.
func (e *Entity) Initialize(ctx context.Context) error {
	if e.frozen {
		return nil
	}

	var errs []error
	keys := e.keys[:0:0]

	for _, key := range e.keys {
		r := e.resources[key]

		var node Node
		err := e.env.Conn.Get(ctx, r.URI, &node)
		switch {
		case IsNotFound(err):
			e.env.debug("%s: %s not present, skipping", e.id, r.URI)
			delete(e.resources, key)
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		default:
			if _, err := r.Merge(node.Property); err != nil {
				errs = append(errs, err)
			}
		}
		keys = append(keys, key)
	}

	e.keys = keys
	e.frozen = true
	e.finish(errs)

	return errors.Join(errs...)
}

// hookFunc is called after a resource was fetched and merged
type hookFunc func(ctx context.Context, r *Resource, node Node) error

// fetch reads the resources in declaration order. Failures are recorded
// while previously cached values are kept. Depending on the update policy the
// loop stops at the first failure or continues with the remaining resources.
func (e *Entity) fetch(ctx context.Context, hook hookFunc) (bool, []error) {
	var (
		changed bool
		errs    []error
	)

	for _, key := range e.keys {
		r := e.resources[key]

		var node Node
		err := e.env.Conn.Get(ctx, r.URI, &node)
		if err == nil {
			var ch bool
			if ch, err = r.Merge(node.Property); ch {
				changed = true
			}
		}
		if err == nil && hook != nil {
			err = hook(ctx, r, node)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			if e.env.Policy == ABORT_ON_ERROR {
				break
			}
		}
	}

	return changed, errs
}

func (e *Entity) finish(errs []error) {
	e.lastErr = errors.Join(errs...)
	e.current = len(errs) == 0
	if e.current {
		e.lastUpdate = e.env.now()
	}
}

// Update refreshes all resources of a plain entity
func (e *Entity) Update(ctx context.Context) (bool, error) {
	changed, errs := e.fetch(ctx, nil)
	e.finish(errs)
	e.env.publish(TOPIC_ENTITY_UPDATED, e.id, changed)
	return changed, e.lastErr
}

func (e *Entity) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", e.name, e.id)
	for _, key := range e.keys {
		p := e.resources[key].Property
		if p.HasValue() {
			fmt.Fprintf(&b, " %s=%s", key, p.String())
		}
	}
	return b.String()
}

// lastSegment returns the part of a gateway id after the last slash
func lastSegment(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}
