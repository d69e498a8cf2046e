package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	mqttQoS          = 1
	mqttDisconnectMS = 250
)

// MQTTSink publishes each message to an MQTT topic.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

// ConnectMQTT dials the broker and returns a sink publishing to topic.
func ConnectMQTT(brokerURL, clientID, topic string, logger *zap.Logger) (*MQTTSink, error) {
	if brokerURL == "" {
		return nil, errors.New("mqtt broker URL is empty")
	}
	if clientID == "" {
		clientID = "incident-tracker"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	}
	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", brokerURL), zap.String("client_id", clientID))
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return NewMQTTSink(client, topic), nil
}

// NewMQTTSink wraps an already connected client.
func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

func (s *MQTTSink) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	tok := s.client.Publish(s.topic, mqttQoS, false, payload)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(mqttDisconnectMS)
	return nil
}
