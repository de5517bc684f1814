// internal/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/tamzrod/portenta-gateway/internal/wire"
)

// ErrUnknownChannel is returned by Lookup for names not in the catalog.
var ErrUnknownChannel = errors.New("catalog: unknown channel")

// Direction restricts which operations a channel accepts.
type Direction int

const (
	ReadOnly Direction = iota
	WriteOnly
	ReadWrite
)

func (d Direction) String() string {
	switch d {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection maps a configuration token to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "read-only":
		return ReadOnly, nil
	case "write-only":
		return WriteOnly, nil
	case "read-write":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("catalog: unknown direction %q", s)
	}
}

// ValueType is the logical data type of a channel.
type ValueType int

const (
	ValueBool ValueType = iota
	ValueFloat
)

func (t ValueType) String() string {
	if t == ValueBool {
		return "bool"
	}
	return "float"
}

// Channel describes one addressable I/O point.
// Descriptors are validated once at construction and immutable afterwards.
type Channel struct {
	Name       string
	Bus        wire.Bus
	Pin        int
	Direction  Direction
	Type       ValueType
	PollPeriod time.Duration // 0 disables automatic polling
	Readback   string        // optional paired read-back channel (outputs only)
}

// Readable reports whether the channel accepts GET operations.
func (c Channel) Readable() bool { return c.Direction != WriteOnly }

// Writable reports whether the channel accepts SET operations.
func (c Channel) Writable() bool { return c.Direction != ReadOnly }

// Polled reports whether the scheduler should read the channel periodically.
func (c Channel) Polled() bool { return c.PollPeriod > 0 && c.Readable() }

// PinLimits is the number of pins per bus. Board-dependent, not protocol-baked.
type PinLimits struct {
	DO, DI, DIO int
	AO          int
	AI, Temp    int
}

// DefaultPinLimits matches the Portenta Machine Control.
func DefaultPinLimits() PinLimits {
	return PinLimits{DO: 8, DI: 8, DIO: 8, AO: 4, AI: 3, Temp: 3}
}

func (l PinLimits) forBus(b wire.Bus) int {
	switch b {
	case wire.BusDO:
		return l.DO
	case wire.BusDI:
		return l.DI
	case wire.BusDIO:
		return l.DIO
	case wire.BusAO:
		return l.AO
	case wire.BusAI:
		return l.AI
	case wire.BusSensorTemp:
		return l.Temp
	default:
		return 0
	}
}

// Catalog is the immutable channel directory.
type Catalog struct {
	byName map[string]Channel
	order  []string
}

// New validates the descriptors and builds the directory.
// Any violation fails construction; the process must not start on a bad catalog.
func New(channels []Channel, limits PinLimits) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Channel, len(channels))}

	for _, ch := range channels {
		if ch.Name == "" {
			return nil, errors.New("catalog: channel name required")
		}
		if _, dup := c.byName[ch.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate channel %q", ch.Name)
		}

		max := limits.forBus(ch.Bus)
		if max <= 0 {
			return nil, fmt.Errorf("catalog: channel %q: bus %s has no pins configured", ch.Name, ch.Bus)
		}
		if ch.Pin < 0 || ch.Pin >= max {
			return nil, fmt.Errorf("catalog: channel %q: pin %d out of range for bus %s (0-%d)",
				ch.Name, ch.Pin, ch.Bus, max-1)
		}

		if err := checkBusDirection(ch); err != nil {
			return nil, err
		}
		if err := checkBusType(ch); err != nil {
			return nil, err
		}
		if ch.PollPeriod < 0 {
			return nil, fmt.Errorf("catalog: channel %q: negative poll period", ch.Name)
		}

		c.byName[ch.Name] = ch
		c.order = append(c.order, ch.Name)
	}

	// Readback references resolve after every channel is registered.
	for _, name := range c.order {
		ch := c.byName[name]
		if ch.Readback == "" {
			continue
		}
		rb, ok := c.byName[ch.Readback]
		if !ok {
			return nil, fmt.Errorf("catalog: channel %q: readback %q not defined", ch.Name, ch.Readback)
		}
		if !rb.Readable() {
			return nil, fmt.Errorf("catalog: channel %q: readback %q is not readable", ch.Name, ch.Readback)
		}
		if rb.Bus != ch.Bus || rb.Pin != ch.Pin {
			return nil, fmt.Errorf("catalog: channel %q: readback %q addresses a different pin", ch.Name, ch.Readback)
		}
	}

	return c, nil
}

// Direction rules per bus:
// inputs and sensors are read-only, DIO is read-write, and outputs are
// write-only (or read-only when the descriptor is a paired read-back).
func checkBusDirection(ch Channel) error {
	ok := false
	switch ch.Bus {
	case wire.BusDI, wire.BusAI, wire.BusSensorTemp:
		ok = ch.Direction == ReadOnly
	case wire.BusDIO:
		ok = ch.Direction == ReadWrite
	case wire.BusDO, wire.BusAO:
		ok = ch.Direction == WriteOnly || ch.Direction == ReadOnly
	}
	if !ok {
		return fmt.Errorf("catalog: channel %q: direction %s invalid for bus %s",
			ch.Name, ch.Direction, ch.Bus)
	}
	return nil
}

func checkBusType(ch Channel) error {
	want := ValueBool
	switch ch.Bus {
	case wire.BusAO, wire.BusAI, wire.BusSensorTemp:
		want = ValueFloat
	}
	if ch.Type != want {
		return fmt.Errorf("catalog: channel %q: type %s invalid for bus %s",
			ch.Name, ch.Type, ch.Bus)
	}
	return nil
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Channel, error) {
	ch, ok := c.byName[name]
	if !ok {
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// All yields every descriptor in definition order.
// The sequence is restartable; ranging again starts over.
func (c *Catalog) All() iter.Seq[Channel] {
	return func(yield func(Channel) bool) {
		for _, name := range c.order {
			if !yield(c.byName[name]) {
				return
			}
		}
	}
}

// Len is the number of channels.
func (c *Catalog) Len() int { return len(c.order) }
