// internal/config/normalize.go
package config

import "github.com/tamzrod/portenta-gateway/internal/wire"

// Board defaults for the Portenta Machine Control.
const (
	DefaultTimeoutMs   = 2000
	DefaultPollPeriodS = 6.0

	defaultPinsDO   = 8
	defaultPinsDI   = 8
	defaultPinsDIO  = 8
	defaultPinsAO   = 4
	defaultPinsAI   = 3
	defaultPinsTemp = 3
)

// Normalize applies post-validation defaulting.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	g := &cfg.Gateway

	if g.Device.TimeoutMs == 0 {
		g.Device.TimeoutMs = DefaultTimeoutMs
	}

	if g.Pins.DO == 0 {
		g.Pins.DO = defaultPinsDO
	}
	if g.Pins.DI == 0 {
		g.Pins.DI = defaultPinsDI
	}
	if g.Pins.DIO == 0 {
		g.Pins.DIO = defaultPinsDIO
	}
	if g.Pins.AO == 0 {
		g.Pins.AO = defaultPinsAO
	}
	if g.Pins.AI == 0 {
		g.Pins.AI = defaultPinsAI
	}
	if g.Pins.Temp == 0 {
		g.Pins.Temp = defaultPinsTemp
	}

	if g.Defaults.PollPeriodS == 0 {
		g.Defaults.PollPeriodS = DefaultPollPeriodS
	}

	if g.MQTT.TopicPrefix == "" {
		g.MQTT.TopicPrefix = "portenta"
	}
	if g.MQTT.ClientID == "" {
		g.MQTT.ClientID = "portenta-gateway"
	}

	// An empty channel list means "serve the stock board map".
	if len(g.Channels) == 0 {
		g.Channels = DefaultChannels(g.Pins)
	}

	for i := range g.Channels {
		normalizeChannel(&g.Channels[i], g.Defaults.PollPeriodS)
	}
}

// normalizeChannel canonicalizes the bus token and fills bus-derived
// direction and type, and the default poll period when none is given.
func normalizeChannel(ch *ChannelConfig, defaultPeriod float64) {
	// ParseBus is lenient about case and aliases; rewrite to the canonical
	// token so the derivations below see one spelling.
	if b, err := wire.ParseBus(ch.Bus); err == nil {
		ch.Bus = b.String()
	}

	if ch.Direction == "" {
		switch ch.Bus {
		case "DO", "AO":
			ch.Direction = "write-only"
		case "DIO":
			ch.Direction = "read-write"
		default:
			ch.Direction = "read-only"
		}
	}

	if ch.Type == "" {
		switch ch.Bus {
		case "AO", "AI", "SENSOR_TEMP":
			ch.Type = "float"
		default:
			ch.Type = "bool"
		}
	}

	if ch.PollPeriodS == nil {
		p := defaultPeriod
		if ch.Direction == "write-only" {
			p = 0 // outputs are not readable; their readbacks poll instead
		}
		ch.PollPeriodS = &p
	}
}
