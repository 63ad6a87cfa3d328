package boschhttp

import "sort"

// GetCircuit returns the circuit named name, e.g. "hc1"
func GetCircuit(circuits []*Circuit, name string) *Circuit {
	for _, c := range circuits {
		if c.Name() == name || c.ID() == name {
			return c
		}
	}
	return nil
}

func GetCircuitsOfType(circuits []*Circuit, typ CircuitType) []*Circuit {
	var res []*Circuit
	for _, c := range circuits {
		if c.Type() == typ {
			res = append(res, c)
		}
	}
	return res
}

// GetSensor returns the sensor with database key or gateway id key
func GetSensor(sensors []*Sensor, key string) *Sensor {
	for _, s := range sensors {
		if s.Key() == key || s.ID() == key {
			return s
		}
	}
	return nil
}

// circuitTypes returns the circuit types of a model in a stable order
func circuitTypes(m *Model) []CircuitType {
	order := map[CircuitType]int{HEATING_CIRCUIT: 0, DHW_CIRCUIT: 1, SOLAR_CIRCUIT: 2}
	res := make([]CircuitType, 0, len(m.Circuits))
	for t := range m.Circuits {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		oi, iok := order[res[i]]
		oj, jok := order[res[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return res[i] < res[j]
	})
	return res
}

func sensorKeys(m *Model) []string {
	res := make([]string, 0, len(m.Sensors))
	for k := range m.Sensors {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
