package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gpiochip0", cfg.Sensor.Chip)
	assert.Equal(t, 17, cfg.Sensor.Pin)
	assert.Equal(t, 500, cfg.Sensor.Threshold)
	assert.Equal(t, time.Second, cfg.Poll.Duration())
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "home/circadian", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 100, cfg.MQTT.Buffer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "circadian-clock-"))
	assert.Len(t, cfg.MQTT.ClientID, len("circadian-clock-")+8)

	levels := cfg.Sensor.Levels()
	assert.True(t, levels.ActiveLow)
	assert.Equal(t, 1023, levels.High)
	assert.Equal(t, 0, levels.Low)
}

func TestParseFull(t *testing.T) {
	data := `
sensor:
  chip: gpiochip4
  pin: 22
  threshold: 300
  active_low: false
  high: 800
  low: 10
poll: 2s
heartbeat: 15m
http: ":8080"
mqtt:
  broker: tcp://broker:1883
  client_id: garden-clock
  topic_prefix: garden/clock
  buffer: 20
log:
  level: debug
  json: true
schedule:
  - name: porch-on
    at: "@dusk + 10m"
  - name: porch-off
    at: "23:30"
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "gpiochip4", cfg.Sensor.Chip)
	assert.Equal(t, 22, cfg.Sensor.Pin)
	assert.Equal(t, 300, cfg.Sensor.Threshold)
	assert.False(t, cfg.Sensor.Levels().ActiveLow)
	assert.Equal(t, 800, cfg.Sensor.Levels().High)
	assert.Equal(t, 2*time.Second, cfg.Poll.Duration())
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat.Duration())
	assert.Equal(t, ":8080", cfg.HTTP)
	assert.Equal(t, "garden-clock", cfg.MQTT.ClientID)
	assert.Equal(t, 20, cfg.MQTT.Buffer)
	assert.True(t, cfg.Log.JSON)

	sched, err := cfg.ParseSchedule()
	require.NoError(t, err)
	assert.Equal(t, 2, sched.Len())
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("CLOCK_BROKER", "tcp://env-broker:1883")

	cfg, err := Parse([]byte("mqtt:\n  broker: ${CLOCK_BROKER}\n  topic_prefix: ${CLOCK_PREFIX:fallback/prefix}\n"))
	require.NoError(t, err)
	assert.Equal(t, "tcp://env-broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "fallback/prefix", cfg.MQTT.TopicPrefix)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad duration":   "poll: soon\n",
		"bad schedule":   "schedule:\n  - name: x\n    at: \"@noon\"\n",
		"duplicate name": "schedule:\n  - name: x\n    at: \"06:00\"\n  - name: x\n    at: \"07:00\"\n",
		"negative poll":  "poll: -1s\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("schedule:\n  - name: x\n    at: \"@noon\"\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Sensor.Threshold)

	path := filepath.Join(dir, "circadian.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sensor:\n  threshold: 650\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 650, cfg.Sensor.Threshold)
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(filepath.Join("..", "..", "circadian.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat.Duration())
	assert.Equal(t, ":8080", cfg.HTTP)

	sched, err := cfg.ParseSchedule()
	require.NoError(t, err)
	require.Equal(t, 3, sched.Len())
	assert.Equal(t, "porch-on", sched.Entries()[0].Name)
}
