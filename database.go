package boschhttp

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed capabilities.yaml
var defaultCapabilities []byte

type SensorSchema struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type RefSchema struct {
	ID   string       `yaml:"id"`
	Type ResourceKind `yaml:"type"`
}

type ModeSetpoint struct {
	Read  string   `yaml:"read"`
	Write string   `yaml:"write"`
	Type  ModeType `yaml:"type"`
}

type CircuitSchema struct {
	Root           string                  `yaml:"root"`
	CurrentTemp    string                  `yaml:"current_temp"`
	LiveSetpoint   string                  `yaml:"live_setpoint"`
	Refs           map[string]RefSchema    `yaml:"refs"`
	ModeToSetpoint map[string]ModeSetpoint `yaml:"mode_to_setpoint"`
}

// Resources expands the ref templates for the circuit name. Keys are sorted
// so update order is stable.
func (cs *CircuitSchema) Resources(name string) []Resource {
	keys := make([]string, 0, len(cs.Refs))
	for k := range cs.Refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]Resource, 0, len(keys))
	for _, k := range keys {
		ref := cs.Refs[k]
		res = append(res, Resource{
			Key:  k,
			URI:  strings.ReplaceAll(ref.ID, "{}", name),
			Kind: ref.Type,
		})
	}
	return res
}

type Model struct {
	Name     string                         `yaml:"name"`
	Bus      BusType                        `yaml:"bus"`
	Firmware []string                       `yaml:"firmware"`
	Sensors  map[string]SensorSchema        `yaml:"sensors"`
	Circuits map[CircuitType]*CircuitSchema `yaml:"circuits"`
}

// Database maps firmware versions to device capabilities. It is read only
// after loading.
type Database struct {
	Default string            `yaml:"default"`
	Models  map[string]*Model `yaml:"models"`
}

func ParseDatabase(b []byte) (*Database, error) {
	var db Database
	if err := yaml.Unmarshal(b, &db); err != nil {
		return nil, fmt.Errorf("parse capability database: %w", err)
	}
	if err := db.validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

func LoadDatabase(r io.Reader) (*Database, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseDatabase(b)
}

// DefaultDatabase returns the built in capability database
func DefaultDatabase() *Database {
	db, err := ParseDatabase(defaultCapabilities)
	if err != nil {
		panic(err)
	}
	return db
}

func (db *Database) validate() error {
	if len(db.Models) == 0 {
		return errors.New("capability database has no models")
	}
	if _, ok := db.Models[db.Default]; !ok {
		return fmt.Errorf("default model %q not found", db.Default)
	}

	for key, m := range db.Models {
		if m.Bus != BUS_EMS && m.Bus != BUS_CAN {
			return fmt.Errorf("model %s: invalid bus %q", key, m.Bus)
		}
		for ct, cs := range m.Circuits {
			if cs.Root == "" {
				return fmt.Errorf("model %s: circuit %s has no root", key, ct)
			}
			for mode, ms := range cs.ModeToSetpoint {
				switch ms.Type {
				case MODE_MANUAL, MODE_AUTO, MODE_OFF:
				default:
					return fmt.Errorf("model %s: circuit %s: mode %s has invalid type %q", key, ct, mode, ms.Type)
				}
				for _, ref := range []string{ms.Read, ms.Write} {
					if _, ok := cs.Refs[ref]; ref != "" && !ok {
						return fmt.Errorf("model %s: circuit %s: mode %s references unknown %s", key, ct, mode, ref)
					}
				}
			}
			for ref, rs := range cs.Refs {
				switch rs.Type {
				case KIND_REGULAR, KIND_ACTIVE_PROGRAM, KIND_OPERATION_MODE:
				default:
					return fmt.Errorf("model %s: circuit %s: ref %s has invalid type %q", key, ct, ref, rs.Type)
				}
			}
		}
	}

	return nil
}

// Lookup returns the model listing firmware. ok is false when the default
// model was returned instead.
func (db *Database) Lookup(firmware string) (*Model, bool) {
	for _, key := range db.modelKeys() {
		if slices.Contains(db.Models[key].Firmware, firmware) {
			return db.Models[key], true
		}
	}
	return db.Models[db.Default], false
}

func (db *Database) modelKeys() []string {
	keys := make([]string, 0, len(db.Models))
	for k := range db.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
