// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Serial drivers understood by internal/serialport.
const (
	SerialDriverBugst   = "bugst"
	SerialDriverJacobsa = "jacobsa"
)

// One-wire temperature backends.
const (
	W1BackendSysfs  = "sysfs"
	W1BackendPeriph = "periph"
)

// Config holds all application configuration values.
// It is built once in main and passed down explicitly; nothing reads it globally.
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// MQTT
	MQTTHost     string
	MQTTPort     int
	MQTTUsername string
	MQTTPassword string
	MQTTClientID string
	MQTTQoS      byte
	MQTTRetain   bool

	// MQTTConnectWait is how long startup waits for the broker before
	// sampling starts anyway; paho keeps retrying in the background.
	MQTTConnectWait time.Duration

	// Topics
	TopicWind string
	TopicTemp string

	// Serial (wind)
	SerialPort     string   // explicit device path, skips discovery
	SerialPatterns []string // glob patterns tried in order
	SerialBaudRate int
	SerialTimeout  time.Duration
	SerialDriver   string // "bugst" or "jacobsa"
	SerialDrain    bool   // discard backlog before every read

	// One-wire (temperature)
	W1DevicePattern string
	W1Backend       string // "sysfs" or "periph"
	W1LoadModules   bool

	// Discovery
	StrictDeviceMatch bool // more than one match is an error instead of "first wins"

	// Timing
	TemperaturePeriod time.Duration
	TickSleep         time.Duration

	MockSensors bool
}

// Keys lists every environment variable Load understands, in the order they are applied.
var Keys = []string{
	"APP_ENV",
	"LOG_LEVEL",
	"MQTT_HOST",
	"MQTT_PORT",
	"MQTT_USERNAME",
	"MQTT_PASSWORD",
	"MQTT_CLIENT_ID",
	"MQTT_QOS",
	"MQTT_RETAIN",
	"MQTT_CONNECT_WAIT",
	"TOPIC_WIND",
	"TOPIC_TEMP",
	"SERIAL_PORT",
	"SERIAL_PATTERNS",
	"SERIAL_BAUD",
	"SERIAL_TIMEOUT",
	"SERIAL_DRIVER",
	"SERIAL_DRAIN",
	"DEVICE_STRICT_MATCH",
	"W1_DEVICE_PATTERN",
	"W1_BACKEND",
	"W1_LOAD_MODULES",
	"TEMP_PERIOD",
	"TICK_SLEEP",
	"MOCK_SENSORS",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: slog.LevelInfo,

		MQTTHost:     "localhost",
		MQTTPort:     1883,
		MQTTClientID: "weather-station-" + uuid.NewString()[:8],

		MQTTConnectWait: 10 * time.Second,

		TopicWind: "weather/wind_ms",
		TopicTemp: "weather/temp_c",

		SerialPatterns: []string{"/dev/ttyACM*", "/dev/ttyUSB*"},
		SerialBaudRate: 115200,
		SerialTimeout:  200 * time.Millisecond,
		SerialDriver:   SerialDriverBugst,
		SerialDrain:    true,

		W1DevicePattern: "/sys/bus/w1/devices/28-*/w1_slave",
		W1Backend:       W1BackendSysfs,
		W1LoadModules:   true,

		TemperaturePeriod: time.Second,
		TickSleep:         50 * time.Millisecond,
	}
}

// LoadFromEnv applies environment variables on top of Default and validates the result.
func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load applies every variable lookup knows about on top of Default and
// validates the result.
func Load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv sets every key lookup knows about, without validating, so a
// later source such as command-line flags can still correct the result.
// Empty values are treated as unset.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		value, ok := lookup(key)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Set sets a config value based on the key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "APP_ENV":
		switch value {
		case "dev", "prod":
			c.AppEnv = value
		default:
			return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", value)
		}
	case "LOG_LEVEL":
		level, err := ParseLogLevel(value)
		if err != nil {
			return err
		}
		c.LogLevel = level

	// MQTT
	case "MQTT_HOST":
		c.MQTTHost = value
	case "MQTT_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_PORT %q: %w", value, err)
		}
		c.MQTTPort = port
	case "MQTT_USERNAME":
		c.MQTTUsername = value
	case "MQTT_PASSWORD":
		c.MQTTPassword = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_QOS":
		qos, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_QOS %q: %w", value, err)
		}
		if qos < 0 || qos > 2 {
			return fmt.Errorf("MQTT_QOS must be 0-2, got %d", qos)
		}
		c.MQTTQoS = byte(qos)
	case "MQTT_RETAIN":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_RETAIN %q: %w", value, err)
		}
		c.MQTTRetain = b
	case "MQTT_CONNECT_WAIT":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_CONNECT_WAIT %q: %w", value, err)
		}
		c.MQTTConnectWait = d

	// Topics
	case "TOPIC_WIND":
		c.TopicWind = value
	case "TOPIC_TEMP":
		c.TopicTemp = value

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_PATTERNS":
		c.SerialPatterns = splitList(value)
	case "SERIAL_BAUD":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD %q: %w", value, err)
		}
		c.SerialBaudRate = rate
	case "SERIAL_TIMEOUT":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_TIMEOUT %q: %w", value, err)
		}
		c.SerialTimeout = d
	case "SERIAL_DRIVER":
		c.SerialDriver = strings.ToLower(value)
	case "SERIAL_DRAIN":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_DRAIN %q: %w", value, err)
		}
		c.SerialDrain = b

	case "DEVICE_STRICT_MATCH":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEVICE_STRICT_MATCH %q: %w", value, err)
		}
		c.StrictDeviceMatch = b

	// One-wire
	case "W1_DEVICE_PATTERN":
		c.W1DevicePattern = value
	case "W1_BACKEND":
		c.W1Backend = strings.ToLower(value)
	case "W1_LOAD_MODULES":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid W1_LOAD_MODULES %q: %w", value, err)
		}
		c.W1LoadModules = b

	// Timing
	case "TEMP_PERIOD":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid TEMP_PERIOD %q: %w", value, err)
		}
		c.TemperaturePeriod = d
	case "TICK_SLEEP":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_SLEEP %q: %w", value, err)
		}
		c.TickSleep = d

	case "MOCK_SENSORS":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_SENSORS %q: %w", value, err)
		}
		c.MockSensors = b

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// Validate checks that all required fields are set and within range.
func (c *Config) Validate() error {
	if c.MQTTHost == "" {
		return fmt.Errorf("MQTT_HOST is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT_PORT must be 1-65535, got %d", c.MQTTPort)
	}
	if c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required")
	}
	if c.MQTTConnectWait < 0 {
		return fmt.Errorf("MQTT_CONNECT_WAIT must not be negative, got %v", c.MQTTConnectWait)
	}
	if c.TopicWind == "" || c.TopicTemp == "" {
		return fmt.Errorf("TOPIC_WIND and TOPIC_TEMP are required")
	}
	if c.TopicWind == c.TopicTemp {
		return fmt.Errorf("TOPIC_WIND and TOPIC_TEMP must differ, both are %q", c.TopicWind)
	}
	if c.SerialPort == "" && len(c.SerialPatterns) == 0 {
		return fmt.Errorf("SERIAL_PORT or SERIAL_PATTERNS is required")
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.SerialBaudRate)
	}
	if c.SerialTimeout <= 0 {
		return fmt.Errorf("SERIAL_TIMEOUT must be positive, got %v", c.SerialTimeout)
	}
	switch c.SerialDriver {
	case SerialDriverBugst, SerialDriverJacobsa:
	default:
		return fmt.Errorf("invalid SERIAL_DRIVER %q (allowed: %s, %s)", c.SerialDriver, SerialDriverBugst, SerialDriverJacobsa)
	}
	switch c.W1Backend {
	case W1BackendSysfs, W1BackendPeriph:
	default:
		return fmt.Errorf("invalid W1_BACKEND %q (allowed: %s, %s)", c.W1Backend, W1BackendSysfs, W1BackendPeriph)
	}
	if c.W1Backend == W1BackendSysfs && c.W1DevicePattern == "" {
		return fmt.Errorf("W1_DEVICE_PATTERN is required for the sysfs backend")
	}
	if c.TemperaturePeriod <= 0 {
		return fmt.Errorf("TEMP_PERIOD must be positive, got %v", c.TemperaturePeriod)
	}
	if c.TickSleep < 0 {
		return fmt.Errorf("TICK_SLEEP must not be negative, got %v", c.TickSleep)
	}
	return nil
}

// BrokerURL returns the paho broker address.
func (c *Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTHost, c.MQTTPort)
}

// ParseLogLevel maps debug/info/warn/error onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
