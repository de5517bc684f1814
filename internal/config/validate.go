// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/portenta-gateway/internal/wire"
)

var knownDirections = map[string]bool{
	"read-only": true, "write-only": true, "read-write": true,
}

var knownTypes = map[string]bool{
	"bool": true, "float": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration; defaults belong to Normalize.
// Channel semantics (pin ranges, direction/bus fit, readback pairing) are
// validated again by the catalog at construction time.
func Validate(cfg *Config) error {
	g := cfg.Gateway

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if g.Device.Endpoint == "" {
		return fmt.Errorf("config: device.endpoint is required")
	}
	if g.Device.TimeoutMs < 0 {
		return fmt.Errorf("config: device.timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// BOARD GEOMETRY
	// ------------------------------------------------------------

	pins := map[string]int{
		"do": g.Pins.DO, "di": g.Pins.DI, "dio": g.Pins.DIO,
		"ao": g.Pins.AO, "ai": g.Pins.AI, "temp": g.Pins.Temp,
	}
	for name, n := range pins {
		if n < 0 {
			return fmt.Errorf("config: pins.%s must not be negative", name)
		}
	}

	if g.Defaults.PollPeriodS < 0 {
		return fmt.Errorf("config: defaults.poll_period_s must not be negative")
	}

	// ------------------------------------------------------------
	// CHANNELS
	// ------------------------------------------------------------

	for i, ch := range g.Channels {
		if ch.Name == "" {
			return fmt.Errorf("config: channels[%d]: name is required", i)
		}
		// Bus tokens are owned by the wire package; validating through it
		// keeps the accepted set identical to what the catalog builds from.
		if _, err := wire.ParseBus(ch.Bus); err != nil {
			return fmt.Errorf("config: channel %q: unknown bus %q", ch.Name, ch.Bus)
		}
		if ch.Direction != "" && !knownDirections[ch.Direction] {
			return fmt.Errorf("config: channel %q: unknown direction %q", ch.Name, ch.Direction)
		}
		if ch.Type != "" && !knownTypes[ch.Type] {
			return fmt.Errorf("config: channel %q: unknown type %q", ch.Name, ch.Type)
		}
		if ch.PollPeriodS != nil && *ch.PollPeriodS < 0 {
			return fmt.Errorf("config: channel %q: poll_period_s must not be negative", ch.Name)
		}
	}

	return nil
}
