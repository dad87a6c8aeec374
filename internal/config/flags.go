package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// flagName maps an environment key to its command-line flag: MQTT_HOST -> mqtt-host.
func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

var flagUsage = map[string]string{
	"APP_ENV":             "runtime environment: dev (colored logs) or prod (JSON logs)",
	"LOG_LEVEL":           "debug, info, warn or error",
	"MQTT_HOST":           "MQTT broker host",
	"MQTT_PORT":           "MQTT broker port",
	"MQTT_USERNAME":       "MQTT username",
	"MQTT_PASSWORD":       "MQTT password",
	"MQTT_CLIENT_ID":      "MQTT client id",
	"MQTT_QOS":            "MQTT QoS for published and subscribed topics (0-2)",
	"MQTT_RETAIN":         "publish with the retain flag",
	"MQTT_CONNECT_WAIT":   "how long startup waits for the broker before sampling anyway",
	"TOPIC_WIND":          "topic for wind speed in m/s",
	"TOPIC_TEMP":          "topic for temperature in °C",
	"SERIAL_PORT":         "anemometer serial device, skips discovery",
	"SERIAL_PATTERNS":     "comma-separated glob patterns tried in order",
	"SERIAL_BAUD":         "serial baud rate",
	"SERIAL_TIMEOUT":      "maximum wait for one wind line",
	"SERIAL_DRIVER":       "serial driver: bugst or jacobsa",
	"SERIAL_DRAIN":        "discard serial backlog before every read",
	"DEVICE_STRICT_MATCH": "fail instead of picking the first when several devices match",
	"W1_DEVICE_PATTERN":   "glob for the DS18B20 w1_slave file",
	"W1_BACKEND":          "one-wire backend: sysfs or periph",
	"W1_LOAD_MODULES":     "modprobe w1-gpio and w1-therm at startup",
	"TEMP_PERIOD":         "minimum spacing of temperature reads",
	"TICK_SLEEP":          "pause between loop iterations",
	"MOCK_SENSORS":        "use synthetic sensors instead of hardware",
}

// BindFlags registers one string flag per configuration key on fs.
// Values are parsed by Set, so flags accept exactly what the environment does.
func BindFlags(fs *pflag.FlagSet) {
	def := Default()
	for _, key := range Keys {
		fs.String(flagName(key), "", flagUsage[key]+" (env "+key+", default "+defaultText(def, key)+")")
	}
}

// ApplyFlags overrides cfg with the flags the user actually set, then validates.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	byFlag := make(map[string]string, len(Keys))
	for _, key := range Keys {
		byFlag[flagName(key)] = key
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := byFlag[f.Name]
		if !ok || err != nil {
			return
		}
		err = cfg.Set(key, strings.TrimSpace(f.Value.String()))
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func defaultText(c Config, key string) string {
	switch key {
	case "APP_ENV":
		return c.AppEnv
	case "LOG_LEVEL":
		return strings.ToLower(c.LogLevel.String())
	case "MQTT_HOST":
		return c.MQTTHost
	case "MQTT_PORT":
		return strconv.Itoa(c.MQTTPort)
	case "MQTT_CLIENT_ID":
		return "weather-station-<random>"
	case "MQTT_QOS":
		return strconv.Itoa(int(c.MQTTQoS))
	case "MQTT_RETAIN":
		return strconv.FormatBool(c.MQTTRetain)
	case "MQTT_CONNECT_WAIT":
		return c.MQTTConnectWait.String()
	case "TOPIC_WIND":
		return c.TopicWind
	case "TOPIC_TEMP":
		return c.TopicTemp
	case "SERIAL_PATTERNS":
		return strings.Join(c.SerialPatterns, ",")
	case "SERIAL_BAUD":
		return strconv.Itoa(c.SerialBaudRate)
	case "SERIAL_TIMEOUT":
		return c.SerialTimeout.String()
	case "SERIAL_DRIVER":
		return c.SerialDriver
	case "SERIAL_DRAIN":
		return strconv.FormatBool(c.SerialDrain)
	case "DEVICE_STRICT_MATCH":
		return strconv.FormatBool(c.StrictDeviceMatch)
	case "W1_DEVICE_PATTERN":
		return c.W1DevicePattern
	case "W1_BACKEND":
		return c.W1Backend
	case "W1_LOAD_MODULES":
		return strconv.FormatBool(c.W1LoadModules)
	case "TEMP_PERIOD":
		return c.TemperaturePeriod.String()
	case "TICK_SLEEP":
		return c.TickSleep.String()
	case "MOCK_SENSORS":
		return strconv.FormatBool(c.MockSensors)
	default:
		return "none"
	}
}
