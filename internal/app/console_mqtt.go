package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/mqttclient"
)

// RunConsoleMQTT subscribes to the wind and temperature topics and prints
// every payload until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	client := mqttclient.NewClient(mqttclient.Options{
		BrokerURL: cfg.BrokerURL(),
		ClientID:  cfg.MQTTClientID + "-console",
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		QoS:       cfg.MQTTQoS,
	}, logger.With("component", "mqtt"))
	defer client.Disconnect()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("console: connect to broker %s: %w", cfg.BrokerURL(), err)
	}
	logger.Info("console: connected", "broker", cfg.BrokerURL())

	// Subscribe to wind
	if err := client.Subscribe(cfg.TopicWind, consoleLine(os.Stdout, "WIND", "m/s", logger)); err != nil {
		return err
	}

	// Subscribe to temperature
	if err := client.Subscribe(cfg.TopicTemp, consoleLine(os.Stdout, "TEMP", "°C", logger)); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}

// consoleLine returns a handler printing "[TAG] value unit" for numeric payloads.
func consoleLine(w io.Writer, tag, unit string, logger *slog.Logger) func(topic string, payload []byte) {
	return func(topic string, payload []byte) {
		text := strings.TrimSpace(string(payload))
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			logger.Warn("console: non-numeric payload", "topic", topic, "payload", text)
			return
		}
		fmt.Fprintf(w, "[%s] %.2f %s\n", tag, v, unit)
	}
}
