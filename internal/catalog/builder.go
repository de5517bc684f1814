// internal/catalog/builder.go
package catalog

import (
	"fmt"
	"time"

	cfg "github.com/tamzrod/portenta-gateway/internal/config"
	"github.com/tamzrod/portenta-gateway/internal/wire"
)

// Build constructs the catalog from normalized configuration.
// Assumes config has already passed Validate + Normalize.
func Build(g cfg.GatewayConfig) (*Catalog, error) {
	limits := PinLimits{
		DO:   g.Pins.DO,
		DI:   g.Pins.DI,
		DIO:  g.Pins.DIO,
		AO:   g.Pins.AO,
		AI:   g.Pins.AI,
		Temp: g.Pins.Temp,
	}

	channels := make([]Channel, 0, len(g.Channels))
	for _, c := range g.Channels {
		ch, err := fromConfig(c)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	return New(channels, limits)
}

func fromConfig(c cfg.ChannelConfig) (Channel, error) {
	bus, err := wire.ParseBus(c.Bus)
	if err != nil {
		return Channel{}, fmt.Errorf("catalog: channel %q: %w", c.Name, err)
	}

	dir, err := ParseDirection(c.Direction)
	if err != nil {
		return Channel{}, fmt.Errorf("catalog: channel %q: %w", c.Name, err)
	}

	typ := ValueBool
	if c.Type == "float" {
		typ = ValueFloat
	}

	var period time.Duration
	if c.PollPeriodS != nil {
		period = time.Duration(*c.PollPeriodS * float64(time.Second))
	}

	return Channel{
		Name:       c.Name,
		Bus:        bus,
		Pin:        c.Pin,
		Direction:  dir,
		Type:       typ,
		PollPeriod: period,
		Readback:   c.Readback,
	}, nil
}
