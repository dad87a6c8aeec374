package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestBindFlags_OnePerKey(t *testing.T) {
	fs := newFlagSet(t)
	for _, key := range Keys {
		assert.NotNil(t, fs.Lookup(flagName(key)), "missing flag for %s", key)
	}
	assert.NotNil(t, fs.Lookup("mqtt-host"))
	assert.NotNil(t, fs.Lookup("w1-device-pattern"))
}

func TestApplyFlags_OnlySetFlagsOverride(t *testing.T) {
	cfg := Default()
	cfg.MQTTHost = "from-env"
	cfg.MQTTPort = 1884

	fs := newFlagSet(t, "--mqtt-port=8883", "--temp-period", "2s", "--serial-driver=jacobsa")
	require.NoError(t, ApplyFlags(&cfg, fs))

	assert.Equal(t, "from-env", cfg.MQTTHost)
	assert.Equal(t, 8883, cfg.MQTTPort)
	assert.Equal(t, 2*time.Second, cfg.TemperaturePeriod)
	assert.Equal(t, SerialDriverJacobsa, cfg.SerialDriver)
}

func TestApplyFlags_InvalidValue(t *testing.T) {
	cfg := Default()
	fs := newFlagSet(t, "--mqtt-qos=3")
	err := ApplyFlags(&cfg, fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_QOS")
}

func TestApplyFlags_Validates(t *testing.T) {
	cfg := Default()
	fs := newFlagSet(t, "--topic-temp=weather/wind_ms")
	err := ApplyFlags(&cfg, fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestApplyEnvThenFlags_FlagFixesInvalidEnv(t *testing.T) {
	// on its own this environment collides with the default temperature topic
	env := lookupFrom(map[string]string{"TOPIC_WIND": "weather/temp_c"})
	_, err := Load(env)
	require.Error(t, err)

	cfg := Default()
	require.NoError(t, ApplyEnv(&cfg, env))
	fs := newFlagSet(t, "--topic-temp=weather/air_c")
	require.NoError(t, ApplyFlags(&cfg, fs))

	assert.Equal(t, "weather/temp_c", cfg.TopicWind)
	assert.Equal(t, "weather/air_c", cfg.TopicTemp)
}

func TestApplyEnv_DoesNotValidate(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, lookupFrom(map[string]string{"MQTT_PORT": "0"}))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MQTTPort)

	assert.Error(t, ApplyFlags(&cfg, newFlagSet(t)), "validation still runs once at the end")
}
