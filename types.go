package boschhttp

import (
	"encoding/json"
	"time"
)

const (
	USER_AGENT   = "TeleHeater/2.2.3"
	JSON_CONTENT = "application/json"

	DEFAULT_TIMEOUT          = 10 * time.Second
	DEFAULT_DEVICETIME_CACHE = 10 * time.Second

	DEFAULT_MIN_TEMP = 0.0
	DEFAULT_MAX_TEMP = 100.0

	DEVICE_TIME_LAYOUT = "2006-01-02T15:04:05"
)

const (
	GATEWAY_ROOT      = "/gateway"
	GATEWAY_UUID      = GATEWAY_ROOT + "/uuid"
	GATEWAY_FIRMWARE  = GATEWAY_ROOT + "/versionFirmware"
	GATEWAY_HARDWARE  = GATEWAY_ROOT + "/versionHardware"
	GATEWAY_DATETIME  = GATEWAY_ROOT + "/DateTime"
	SWITCHPROGRAM_URL = "/%s/%s/switchPrograms/%s"
)

// Roots visited by Rawscan
var RAWSCAN_ROOTS = []string{
	GATEWAY_ROOT,
	"/system",
	"/heatSources",
	"/heatingCircuits",
	"/dhwCircuits",
	"/solarCircuits",
	"/recordings",
	"/notifications",
}

// Days of the week in the order the gateway sorts switch points
var DAYS_OF_WEEK = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

type CircuitType string

const (
	HEATING_CIRCUIT CircuitType = "hc"
	DHW_CIRCUIT     CircuitType = "dhw"
	SOLAR_CIRCUIT   CircuitType = "sc"
)

type BusType string

const (
	BUS_EMS BusType = "EMS"
	BUS_CAN BusType = "CAN"
)

type ResourceKind string

const (
	KIND_REGULAR        ResourceKind = "regular"
	KIND_ACTIVE_PROGRAM ResourceKind = "active_program"
	KIND_OPERATION_MODE ResourceKind = "operation_mode"
)

// ModeType classifies an operation mode. The empty value means the mode is
// not known yet or has no entry in the mode to setpoint table.
type ModeType string

const (
	MODE_UNKNOWN ModeType = ""
	MODE_MANUAL  ModeType = "manual"
	MODE_AUTO    ModeType = "auto"
	MODE_OFF     ModeType = "off"
)

type UpdatePolicy int

const (
	CONTINUE_ON_ERROR UpdatePolicy = iota
	ABORT_ON_ERROR
)

const (
	SETPOINT_ON   = "on"
	SETPOINT_HIGH = "high"
)

type Reference struct {
	ID   string `json:"id"`
	URI  string `json:"uri,omitempty"`
	Type string `json:"type,omitempty"`
}

// Node is one decoded gateway response. Leaves carry the property fields,
// branches carry references.
type Node struct {
	ID         string      `json:"id"`
	Type       string      `json:"type,omitempty"`
	Writeable  int         `json:"writeable,omitempty"`
	Recordable int         `json:"recordable,omitempty"`
	References []Reference `json:"references,omitempty"`
	Property
}

func (n Node) IsBranch() bool {
	return len(n.References) > 0
}

type SwitchPoint struct {
	DayOfWeek string `json:"dayOfWeek"`
	Setpoint  string `json:"setpoint"`
	Time      int    `json:"time"`
}

type SwitchProgram struct {
	ID                  string        `json:"id"`
	SwitchPoints        []SwitchPoint `json:"switchPoints"`
	SetpointProperty    Reference     `json:"setpointProperty"`
	MaxNbOfSwitchPoints int           `json:"maxNbOfSwitchPoints,omitempty"`
	MinTimeStep         int           `json:"switchPointTimeRaster,omitempty"`
}

// Setpoint is one cached temperature level of a schedule
type Setpoint struct {
	ID    string
	Value float64
	Min   float64
	Max   float64
	URI   string
	// Live marks a CAN bus level that defers to the circuit's live setpoint
	Live bool
}

type GatewayInfo struct {
	UUID            string
	FirmwareVersion string
	HardwareVersion string
	DeviceTime      string
}

type valueBody struct {
	Value any `json:"value"`
}

func rawValue(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
