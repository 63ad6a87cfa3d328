// Package config loads the boschctl configuration file.
//
// Values are read from YAML, then overridden by the BOSCH_* environment
// variables. Command line flags are applied by the caller on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
}

type GatewayConfig struct {
	Host      string `yaml:"host"`
	AccessKey string `yaml:"access_key"`
	Password  string `yaml:"password"`

	// Timeout per device request in seconds
	Timeout int `yaml:"timeout"`

	// UpdatePolicy is "continue" or "abort"
	UpdatePolicy string `yaml:"update_policy"`
}

type LoggingConfig struct {
	Debug bool `yaml:"debug"`

	// File receives the log output, stderr when empty
	File string `yaml:"file"`
}

type ExportConfig struct {
	// Interval between two snapshots in seconds
	Interval int `yaml:"interval"`

	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
}

type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	POLICY_CONTINUE = "continue"
	POLICY_ABORT    = "abort"
)

// Load reads the configuration file at path. A missing path yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Timeout:      10,
			UpdatePolicy: POLICY_CONTINUE,
		},
		Export: ExportConfig{
			Interval: 60,
			MQTT: MQTTConfig{
				Broker:      "tcp://localhost:1883",
				ClientID:    "boschctl",
				TopicPrefix: "bosch",
				QoS:         1,
			},
			InfluxDB: InfluxDBConfig{
				URL:    "http://localhost:8086",
				Bucket: "bosch",
			},
			Prometheus: PrometheusConfig{
				Listen: ":9110",
			},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOSCH_IP"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("BOSCH_ACCESS_TOKEN"); v != "" {
		cfg.Gateway.AccessKey = v
	}
	if v := os.Getenv("BOSCH_PASSWORD"); v != "" {
		cfg.Gateway.Password = v
	}
}

// Validate checks value ranges. Gateway credentials are checked by the
// commands that talk to the device.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Timeout < 1 {
		errs = append(errs, "gateway.timeout must be at least 1 second")
	}

	switch c.Gateway.UpdatePolicy {
	case POLICY_CONTINUE, POLICY_ABORT:
	default:
		errs = append(errs, fmt.Sprintf("gateway.update_policy must be %q or %q", POLICY_CONTINUE, POLICY_ABORT))
	}

	if c.Export.Interval < 1 {
		errs = append(errs, "export.interval must be at least 1 second")
	}

	if c.Export.MQTT.QoS < 0 || c.Export.MQTT.QoS > 2 {
		errs = append(errs, "export.mqtt.qos must be 0, 1, or 2")
	}
	if c.Export.MQTT.Enabled && c.Export.MQTT.Broker == "" {
		errs = append(errs, "export.mqtt.broker is required")
	}

	if c.Export.InfluxDB.Enabled {
		if c.Export.InfluxDB.URL == "" {
			errs = append(errs, "export.influxdb.url is required")
		}
		if c.Export.InfluxDB.Bucket == "" {
			errs = append(errs, "export.influxdb.bucket is required")
		}
	}

	if c.Export.Prometheus.Enabled && c.Export.Prometheus.Listen == "" {
		errs = append(errs, "export.prometheus.listen is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// CheckGateway reports missing connection settings.
func (c *Config) CheckGateway() error {
	var missing []string
	if c.Gateway.Host == "" {
		missing = append(missing, "gateway.host")
	}
	if c.Gateway.AccessKey == "" {
		missing = append(missing, "gateway.access_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (g GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

func (e ExportConfig) Period() time.Duration {
	return time.Duration(e.Interval) * time.Second
}
