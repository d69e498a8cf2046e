package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/config"
)

// Build assembles the configured sinks. The log sink is always present;
// webhook, Kafka and MQTT are added when configured. The returned Multi
// owns every connection and must be closed.
func Build(_ context.Context, cfg *config.Config, logger *zap.Logger) (Sink, *Multi, error) {
	sinks := []Sink{NewLogSink(logger)}

	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, NewWebhookSink(cfg.Notification.WebhookURL, 0))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	if cfg.MQTT.BrokerURL != "" {
		mqttSink, err := ConnectMQTT(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, cfg.MQTT.Topic, logger)
		if err != nil {
			_ = NewMulti(sinks...).Close()
			return nil, nil, err
		}
		sinks = append(sinks, mqttSink)
	}

	multi := NewMulti(sinks...)
	if cfg.Notification.SimulatedDelay > 0 {
		return NewDelay(multi, cfg.Notification.SimulatedDelay), multi, nil
	}
	return multi, multi, nil
}
