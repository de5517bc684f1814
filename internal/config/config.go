// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
}

type GatewayConfig struct {
	Device   DeviceConfig    `yaml:"device"`
	Pins     PinsConfig      `yaml:"pins"`
	Defaults DefaultsConfig  `yaml:"defaults"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Channels []ChannelConfig `yaml:"channels"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- BOARD GEOMETRY ----

// PinsConfig is the pin count per bus. Zero means "use the board default".
type PinsConfig struct {
	DO   int `yaml:"do"`
	DI   int `yaml:"di"`
	DIO  int `yaml:"dio"`
	AO   int `yaml:"ao"`
	AI   int `yaml:"ai"`
	Temp int `yaml:"temp"`
}

// ---- DEFAULTS ----

type DefaultsConfig struct {
	PollPeriodS float64 `yaml:"poll_period_s"`
}

// ---- MQTT (optional update publisher) ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables publishing
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// ---- CHANNELS ----

type ChannelConfig struct {
	Name string `yaml:"name"`
	Bus  string `yaml:"bus"`
	Pin  int    `yaml:"pin"`

	// Direction and Type default per bus; see Normalize.
	Direction string `yaml:"direction"`
	Type      string `yaml:"type"`

	// nil means "use defaults.poll_period_s"; explicit 0 disables polling.
	PollPeriodS *float64 `yaml:"poll_period_s"`

	Readback string `yaml:"readback"`
}

// Load reads and decodes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}
