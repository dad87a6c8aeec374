// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/weather_station/internal/app"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/logging"
)

const appName = "weather_producer"

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "Publish anemometer wind speed and DS18B20 temperature to MQTT",
		Long: `Reads {"ws_ms": ...} lines from the anemometer serial link and the DS18B20
one-wire sensor, and publishes both as bare 2-decimal numbers to MQTT.
A combined {"ws_ms":..,"temp_c":..} record is printed on stdout whenever both
values are known; logs go to stderr.

Every flag can also be set through the environment variable named in its help.`,
		Example: `  weather_producer --mqtt-host broker.local --serial-port /dev/ttyACM0
  MOCK_SENSORS=true weather_producer --log-level debug`,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// env first, flags override, one validation at the end
			cfg := config.Default()
			if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.ApplyFlags(&cfg, cmd.Flags()); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.New(os.Stderr, cfg, getVersion(), appName)
			logger.Info("starting weather producer (serial + one-wire -> MQTT)",
				"broker", cfg.BrokerURL(),
				"mock", cfg.MockSensors,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := app.RunWeatherProducer(ctx, cfg, logger)
			if errors.Is(err, context.Canceled) {
				logger.Info("stopped")
				return nil
			}
			return err
		},
	}
	config.BindFlags(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		if errors.Is(err, app.ErrNoSerialDevice) {
			fmt.Fprintln(os.Stderr, "hint: plug in the anemometer or set SERIAL_PORT / --serial-port")
		}
		os.Exit(1)
	}
}
