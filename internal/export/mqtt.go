package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/WulfgarW/boschhttp/internal/config"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttPublishTimeout    = 5 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
	mqttKeepAlive         = 60 * time.Second

	STATUS_ONLINE  = "online"
	STATUS_OFFLINE = "offline"
)

var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
)

// MQTTSink publishes retained JSON state per circuit and sensor:
//
//	<prefix>/status
//	<prefix>/<gateway>/circuit/<name>
//	<prefix>/<gateway>/sensor/<key>
type MQTTSink struct {
	client pahomqtt.Client
	prefix string
	qos    byte
}

func NewMQTTSink(cfg config.MQTTConfig) (*MQTTSink, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)

	// the gateway segment is unknown before the first snapshot
	opts.SetWill(cfg.TopicPrefix+"/status", STATUS_OFFLINE, byte(cfg.QoS), true)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return newMQTTSink(client, cfg.TopicPrefix, byte(cfg.QoS)), nil
}

func newMQTTSink(client pahomqtt.Client, prefix string, qos byte) *MQTTSink {
	return &MQTTSink{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    qos,
	}
}

func (m *MQTTSink) Name() string {
	return "mqtt"
}

func (m *MQTTSink) topic(parts ...string) string {
	if m.prefix == "" {
		return strings.Join(parts, "/")
	}
	return m.prefix + "/" + strings.Join(parts, "/")
}

func (m *MQTTSink) publish(topic string, payload []byte) error {
	token := m.client.Publish(topic, m.qos, true, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, mqttPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func (m *MQTTSink) publishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.publish(topic, b)
}

func (m *MQTTSink) Write(ctx context.Context, snap Snapshot) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}

	gw := snap.GatewayName()
	if err := m.publish(m.topic("status"), []byte(STATUS_ONLINE)); err != nil {
		return err
	}

	var errs []error
	for _, c := range snap.Circuits {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs = append(errs, m.publishJSON(m.topic(gw, "circuit", c.Name), c))
	}
	for _, s := range snap.Sensors {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs = append(errs, m.publishJSON(m.topic(gw, "sensor", s.Key), s))
	}

	return errors.Join(errs...)
}

// Close marks the exporter offline and disconnects
func (m *MQTTSink) Close() error {
	if m.client.IsConnected() {
		_ = m.publish(m.topic("status"), []byte(STATUS_OFFLINE))
		m.client.Disconnect(mqttDisconnectQuiesce)
	}
	return nil
}
