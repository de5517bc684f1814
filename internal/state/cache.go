// internal/state/cache.go
package state

import (
	"sync"
	"time"

	"github.com/tamzrod/portenta-gateway/internal/catalog"
)

// Health is the freshness/validity indicator for a cached value.
type Health int

const (
	// HealthUnknown is the boot state before any exchange has completed.
	HealthUnknown Health = iota
	HealthOK
	HealthStale
	HealthError
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthStale:
		return "stale"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}

// Sample is one consistent per-channel snapshot: value, timestamp, and health
// are always observed together, never partially updated.
type Sample struct {
	Value  float64
	At     time.Time
	Health Health
}

type entry struct {
	value  float64
	at     time.Time // time of last successful exchange
	health Health

	period   time.Duration
	readable bool
}

// Cache holds the last-known sample per channel. It is the single source of
// truth handed to the hosting framework. Mutated only by the poll scheduler
// (reads) and the write gateway (acknowledged writes).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	born    time.Time
	now     func() time.Time
}

// New creates one cache slot per catalog channel. Slots live until shutdown.
func New(cat *catalog.Catalog) *Cache {
	c := &Cache{
		entries: make(map[string]*entry, cat.Len()),
		now:     time.Now,
	}
	c.born = c.now()
	for ch := range cat.All() {
		c.entries[ch.Name] = &entry{
			period:   ch.PollPeriod,
			readable: ch.Readable(),
		}
	}
	return c
}

// SetOK records a successful exchange and returns the stored sample.
func (c *Cache) SetOK(name string, value float64) Sample {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[name]
	if !ok {
		return Sample{}
	}
	e.value = value
	e.at = c.now()
	e.health = HealthOK
	return Sample{Value: e.value, At: e.at, Health: e.health}
}

// SetError marks the channel unhealthy. The last value and its timestamp are
// retained; only health changes.
func (c *Cache) SetError(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[name]; ok {
		e.health = HealthError
	}
}

// Snapshot returns the channel's current sample.
// A polled channel with no successful exchange within twice its poll period
// reports HealthStale regardless of the stored state.
func (c *Cache) Snapshot(name string) (Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok {
		return Sample{}, false
	}

	s := Sample{Value: e.value, At: e.at, Health: e.health}
	if e.readable && e.period > 0 {
		ref := e.at
		if ref.IsZero() {
			ref = c.born
		}
		if c.now().Sub(ref) > 2*e.period {
			s.Health = HealthStale
		}
	}
	return s, true
}
