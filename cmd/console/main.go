// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/weather_station/internal/app"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/logging"
)

func main() {
	log.Println("starting weather station (mock console)")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = app.RunMockConsole(ctx, cfg, logging.New(os.Stderr, cfg, "dev", "console"))
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}
