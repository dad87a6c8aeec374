// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/relabs-tech/weather_station/internal/config"
)

// consoleBroker prints payloads instead of sending them.
type consoleBroker struct {
	handlers map[string]func(topic string, payload []byte)
}

func newConsoleBroker(w io.Writer, cfg config.Config, logger *slog.Logger) *consoleBroker {
	return &consoleBroker{handlers: map[string]func(string, []byte){
		cfg.TopicWind: consoleLine(w, "WIND", "m/s", logger),
		cfg.TopicTemp: consoleLine(w, "TEMP", "°C", logger),
	}}
}

func (b *consoleBroker) Publish(topic string, payload []byte) {
	if h, ok := b.handlers[topic]; ok {
		h(topic, payload)
	}
}

// RunMockConsole runs the acquisition loop on mock sensors and prints what
// would be published, without a broker or hardware.
func RunMockConsole(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	cfg.MockSensors = true
	set, err := openSensors(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer set.release()

	return runLoop(ctx, cfg, set, newConsoleBroker(os.Stdout, cfg, logger), io.Discard, logger)
}
