// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ds18b20"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/weather_station/internal/devices"
)

// ds18b20Family is the one-wire family code of the DS18B20 (the "28-" prefix in sysfs).
const ds18b20Family = 0x28

// PeriphW1Reader reads a DS18B20 over periph.io's one-wire bus registry
// instead of the sysfs text file.
type PeriphW1Reader struct {
	bus    onewire.BusCloser
	dev    *ds18b20.Dev
	addr   onewire.Address
	logger *slog.Logger
}

// OpenPeriphW1 initializes the periph host drivers, opens the one-wire bus
// (empty busName means the first registered) and binds the first DS18B20
// found. strict turns several DS18B20s on the bus into an error.
func OpenPeriphW1(busName string, strict bool, logger *slog.Logger) (*PeriphW1Reader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := onewirereg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("onewire bus open %q: %w", busName, err)
	}

	addrs, err := bus.Search(false)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("onewire search: %w", err)
	}

	var found []onewire.Address
	for _, a := range addrs {
		if a&0xff == ds18b20Family {
			found = append(found, a)
		}
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("onewire bus %q: %w", busName, devices.ErrNoDevice)
	}
	if len(found) > 1 {
		if strict {
			bus.Close()
			return nil, fmt.Errorf("onewire bus %q: %w: %d DS18B20 sensors", busName, devices.ErrAmbiguousDevice, len(found))
		}
		logger.Warn("several DS18B20 sensors on the bus, using the first", "count", len(found))
	}

	dev, err := ds18b20.New(bus, found[0], 12)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ds18b20 %#016x: %w", uint64(found[0]), err)
	}

	logger.Info("DS18B20 bound on one-wire bus", "bus", busName, "addr", fmt.Sprintf("%#016x", uint64(found[0])))
	return &PeriphW1Reader{bus: bus, dev: dev, addr: found[0], logger: logger}, nil
}

func (r *PeriphW1Reader) ReadTemperature() (float64, bool) {
	var e physic.Env
	if err := r.dev.Sense(&e); err != nil {
		r.logger.Debug("ds18b20 sense failed", "error", err)
		return 0, false
	}
	return e.Temperature.Celsius(), true
}

// Close halts the sensor and releases the bus.
func (r *PeriphW1Reader) Close() error {
	if err := r.dev.Halt(); err != nil {
		r.logger.Debug("ds18b20 halt", "error", err)
	}
	return r.bus.Close()
}
