package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/devices"
	"github.com/relabs-tech/weather_station/internal/mqttclient"
	"github.com/relabs-tech/weather_station/internal/publish"
	"github.com/relabs-tech/weather_station/internal/scheduler"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/serialport"
)

// ErrNoSerialDevice means no anemometer serial port was found or it could not be opened.
var ErrNoSerialDevice = errors.New("no serial device")

// mockDropEvery makes the mock anemometer skip one tick in this many.
const mockDropEvery = 17

// sensorSet is what the acquisition loop reads from, plus how to release it.
type sensorSet struct {
	wind    sensors.WindReader
	temp    sensors.TemperatureReader
	release func()
}

// RunWeatherProducer acquires the sensors, connects to the broker and runs
// the acquisition loop until ctx is cancelled. Resources are released on
// every exit path.
func RunWeatherProducer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	return runWeatherProducer(ctx, cfg, logger, os.Stdout)
}

func runWeatherProducer(ctx context.Context, cfg config.Config, logger *slog.Logger, trace io.Writer) error {
	set, err := openSensors(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer set.release()

	client := mqttclient.NewClient(mqttclient.Options{
		BrokerURL: cfg.BrokerURL(),
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		QoS:       cfg.MQTTQoS,
		Retain:    cfg.MQTTRetain,
	}, logger.With("component", "mqtt"))
	defer client.Disconnect()

	if err := connectWithin(ctx, client, cfg, logger); err != nil {
		return err
	}

	return runLoop(ctx, cfg, set, client, trace, logger)
}

// connectWithin waits up to MQTTConnectWait for the first broker connection.
// When the wait runs out sampling starts anyway: paho keeps retrying in the
// background and publishes made before it connects are dropped.
func connectWithin(ctx context.Context, client *mqttclient.Client, cfg config.Config, logger *slog.Logger) error {
	logger.Info("connecting to mqtt broker",
		"broker", cfg.BrokerURL(),
		"client_id", cfg.MQTTClientID,
		"wait", cfg.MQTTConnectWait,
	)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.MQTTConnectWait)
	defer cancel()

	err := client.Connect(waitCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("mqtt broker not reachable yet, sampling anyway",
			"broker", cfg.BrokerURL(),
			"waited", cfg.MQTTConnectWait,
		)
		return nil
	default:
		return fmt.Errorf("connect to broker %s: %w", cfg.BrokerURL(), err)
	}
}

// runLoop wires the readers to the publisher and blocks in the scheduler.
func runLoop(ctx context.Context, cfg config.Config, set sensorSet, broker publish.Broker, trace io.Writer, logger *slog.Logger) error {
	pub := publish.New(broker, publish.Topics{
		Wind:        cfg.TopicWind,
		Temperature: cfg.TopicTemp,
	}, publish.NewTrace(trace))

	s := scheduler.New(scheduler.Config{
		TemperaturePeriod: cfg.TemperaturePeriod,
		TickSleep:         cfg.TickSleep,
	}, set.wind, set.temp, pub, scheduler.WithLogger(logger.With("component", "scheduler")))

	logger.Info("publishing",
		"wind_topic", cfg.TopicWind,
		"temp_topic", cfg.TopicTemp,
		"qos", cfg.MQTTQoS,
		"retain", cfg.MQTTRetain,
	)
	return s.Run(ctx)
}

func openSensors(ctx context.Context, cfg config.Config, logger *slog.Logger) (sensorSet, error) {
	if cfg.MockSensors {
		logger.Warn("using mock sensors")
		return sensorSet{
			wind:    sensors.NewMockWind(mockDropEvery),
			temp:    sensors.NewMockTemperature(),
			release: func() {},
		}, nil
	}

	if cfg.W1LoadModules {
		// without the modules temperature is simply absent
		_ = sensors.LoadW1Modules(ctx, logger)
	}

	path, err := serialPath(cfg, logger)
	if err != nil {
		return sensorSet{}, err
	}

	port, err := serialport.Open(cfg.SerialDriver, serialport.Options{
		Path:        path,
		BaudRate:    cfg.SerialBaudRate,
		ReadTimeout: cfg.SerialTimeout,
	})
	if err != nil {
		return sensorSet{}, fmt.Errorf("%w: %w", ErrNoSerialDevice, err)
	}
	logger.Info("serial port opened",
		"path", path,
		"driver", cfg.SerialDriver,
		"baud", cfg.SerialBaudRate,
		"timeout", cfg.SerialTimeout,
	)

	temp, closeTemp := openTemperature(cfg, logger)

	return sensorSet{
		wind: sensors.NewSerialWindReader(port, cfg.SerialTimeout, cfg.SerialDrain, logger.With("component", "wind")),
		temp: temp,
		release: func() {
			if err := port.Close(); err != nil {
				logger.Debug("serial close", "error", err)
			}
			if err := closeTemp(); err != nil {
				logger.Debug("one-wire close", "error", err)
			}
			logger.Info("sensors released")
		},
	}, nil
}

// serialPath returns SERIAL_PORT when set, otherwise the discovered device.
func serialPath(cfg config.Config, logger *slog.Logger) (string, error) {
	if cfg.SerialPort != "" {
		return cfg.SerialPort, nil
	}

	path, all, err := devices.Discover(cfg.SerialPatterns, cfg.StrictDeviceMatch)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSerialDevice, err)
	}
	if len(all) > 1 {
		logger.Warn("several serial devices found, using the first", "path", path, "candidates", all)
	}

	if info, ok, err := devices.LookupUSB(path); err != nil {
		logger.Debug("usb lookup failed", "path", path, "error", err)
	} else if ok {
		logger.Info("serial device found", "path", path, "usb", info.String())
	} else {
		logger.Info("serial device found", "path", path)
	}
	return path, nil
}

// openTemperature builds the configured one-wire backend. A missing sensor
// is never fatal: the sysfs reader is lazy and the periph backend falls
// back to it when the bus cannot be bound.
func openTemperature(cfg config.Config, logger *slog.Logger) (sensors.TemperatureReader, func() error) {
	log := logger.With("component", "w1")

	if cfg.W1Backend == config.W1BackendPeriph {
		r, err := sensors.OpenPeriphW1("", cfg.StrictDeviceMatch, log)
		if err == nil {
			return r, r.Close
		}
		log.Warn("periph one-wire unavailable, falling back to sysfs", "error", err)
	}

	return sensors.NewW1Reader(cfg.W1DevicePattern, cfg.StrictDeviceMatch, log), func() error { return nil }
}
