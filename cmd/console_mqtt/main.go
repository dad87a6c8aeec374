package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/weather_station/internal/app"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "console_mqtt",
		Short:         "Print the wind and temperature topics as they arrive",
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

			logger := logging.New(os.Stderr, cfg, "dev", "console_mqtt")
			logger.Info("starting weather console (MQTT subscriber)")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.RunConsoleMQTT(ctx, cfg, logger); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	config.BindFlags(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "console_mqtt: %v\n", err)
		os.Exit(1)
	}
}
