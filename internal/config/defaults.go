// internal/config/defaults.go
package config

import "fmt"

// DefaultChannels generates the stock Portenta Machine Control board map:
// digital outputs with read-back companions, bidirectional pins, digital and
// analog inputs, analog outputs with read-backs, and temperature sensors.
// Directions, types, and poll periods are filled by Normalize.
func DefaultChannels(pins PinsConfig) []ChannelConfig {
	var out []ChannelConfig

	for pin := 0; pin < pins.DO; pin++ {
		name := fmt.Sprintf("do%d", pin)
		rbv := name + "_rbv"
		out = append(out,
			ChannelConfig{Name: name, Bus: "DO", Pin: pin, Readback: rbv},
			ChannelConfig{Name: rbv, Bus: "DO", Pin: pin, Direction: "read-only"},
		)
	}

	for pin := 0; pin < pins.DIO; pin++ {
		out = append(out, ChannelConfig{Name: fmt.Sprintf("dio%d", pin), Bus: "DIO", Pin: pin})
	}

	for pin := 0; pin < pins.DI; pin++ {
		out = append(out, ChannelConfig{Name: fmt.Sprintf("di%d", pin), Bus: "DI", Pin: pin})
	}

	for pin := 0; pin < pins.AO; pin++ {
		name := fmt.Sprintf("ao%d", pin)
		rbv := name + "_rbv"
		out = append(out,
			ChannelConfig{Name: name, Bus: "AO", Pin: pin, Readback: rbv},
			ChannelConfig{Name: rbv, Bus: "AO", Pin: pin, Direction: "read-only"},
		)
	}

	for pin := 0; pin < pins.AI; pin++ {
		out = append(out, ChannelConfig{Name: fmt.Sprintf("ai%d", pin), Bus: "AI", Pin: pin})
	}

	for pin := 0; pin < pins.Temp; pin++ {
		out = append(out, ChannelConfig{Name: fmt.Sprintf("t%d", pin), Bus: "SENSOR_TEMP", Pin: pin})
	}

	return out
}
