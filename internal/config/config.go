// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/circadian-clock/internal/schedule"
	"github.com/sweeney/circadian-clock/internal/sensor"
)

// ErrInvalid is returned by Validate for unusable configuration.
var ErrInvalid = errors.New("invalid config")

// Config represents the daemon configuration.
type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Poll      Duration        `yaml:"poll"`
	Heartbeat Duration        `yaml:"heartbeat"` // 0 disables
	HTTP      string          `yaml:"http"`      // empty disables
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Log       LogConfig       `yaml:"log"`
	Schedule  []ScheduleEntry `yaml:"schedule"`
}

// SensorConfig contains light sensor settings.
type SensorConfig struct {
	Chip      string `yaml:"chip"`
	Pin       int    `yaml:"pin"`
	Threshold int    `yaml:"threshold"`
	ActiveLow *bool  `yaml:"active_low"` // default true
	High      int    `yaml:"high"`
	Low       int    `yaml:"low"`
}

// Levels returns the sensor level mapping.
func (s SensorConfig) Levels() sensor.Levels {
	activeLow := true
	if s.ActiveLow != nil {
		activeLow = *s.ActiveLow
	}
	return sensor.Levels{High: s.High, Low: s.Low, ActiveLow: activeLow}
}

// MQTTConfig contains broker settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Buffer      int    `yaml:"buffer"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// ScheduleEntry is a named event time, e.g. {name: porch-on, at: "@dusk + 10m"}.
type ScheduleEntry struct {
	Name string `yaml:"name"`
	At   string `yaml:"at"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration YAML, expanding ${VAR} and ${VAR:default}.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sensor.Chip == "" {
		c.Sensor.Chip = sensor.DefaultChip
	}
	if c.Sensor.Pin == 0 {
		c.Sensor.Pin = sensor.DefaultPin
	}
	if c.Sensor.Threshold == 0 {
		c.Sensor.Threshold = 500
	}
	if c.Sensor.High == 0 && c.Sensor.Low == 0 {
		c.Sensor.High = sensor.DefaultHigh
		c.Sensor.Low = sensor.DefaultLow
	}
	if c.Poll == 0 {
		c.Poll = Duration(time.Second)
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "circadian-clock-" + uuid.NewString()[:8]
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "home/circadian"
	}
	if c.MQTT.Buffer == 0 {
		c.MQTT.Buffer = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Poll.Duration() < 0 {
		return fmt.Errorf("%w: poll must be positive", ErrInvalid)
	}
	if c.Heartbeat.Duration() < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative", ErrInvalid)
	}
	if c.Sensor.Pin < 0 {
		return fmt.Errorf("%w: sensor pin %d", ErrInvalid, c.Sensor.Pin)
	}
	if c.MQTT.Buffer < 0 {
		return fmt.Errorf("%w: mqtt buffer %d", ErrInvalid, c.MQTT.Buffer)
	}
	if _, err := c.ParseSchedule(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParseSchedule builds the schedule from the configured entries.
func (c *Config) ParseSchedule() (*schedule.Schedule, error) {
	defs := make([]schedule.Definition, len(c.Schedule))
	for i, e := range c.Schedule {
		defs[i] = schedule.Definition{Name: e.Name, At: e.At}
	}
	return schedule.Parse(defs)
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}
