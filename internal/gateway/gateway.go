// internal/gateway/gateway.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tamzrod/portenta-gateway/internal/catalog"
	"github.com/tamzrod/portenta-gateway/internal/state"
	"github.com/tamzrod/portenta-gateway/internal/wire"
)

var (
	// ErrDirection is returned for writes to channels that cannot accept them.
	ErrDirection = errors.New("gateway: channel is not writable")

	// ErrAckMismatch means the controller answered a SET with something other
	// than the literal OK. The write is treated as failed; the cache keeps its
	// previous value. Writes never silently succeed when unacknowledged.
	ErrAckMismatch = errors.New("gateway: write not acknowledged")
)

// exchanger is the serialized request/response path shared with the poll
// scheduler. Satisfied by *link.Link.
type exchanger interface {
	Exchange(ctx context.Context, request string) (string, error)
}

// Update is delivered to subscribers on every successful poll of their channel.
type Update struct {
	Channel string
	Sample  state.Sample
}

// Core is the surface handed to the hosting framework: the channel catalog,
// cached reads, acknowledged writes, and per-channel subscriptions.
type Core struct {
	cat   *catalog.Catalog
	link  exchanger
	cache *state.Cache
	log   *zap.Logger

	mu   sync.RWMutex
	subs map[string][]func(Update)
}

func New(cat *catalog.Catalog, link exchanger, cache *state.Cache, log *zap.Logger) *Core {
	return &Core{
		cat:   cat,
		link:  link,
		cache: cache,
		log:   log,
		subs:  make(map[string][]func(Update)),
	}
}

// ListChannels returns every channel descriptor in catalog order.
func (c *Core) ListChannels() []catalog.Channel {
	out := make([]catalog.Channel, 0, c.cat.Len())
	for ch := range c.cat.All() {
		out = append(out, ch)
	}
	return out
}

// Read returns the channel's cached sample. It never touches the controller;
// freshness is the poll scheduler's job.
func (c *Core) Read(name string) (state.Sample, error) {
	if _, err := c.cat.Lookup(name); err != nil {
		return state.Sample{}, err
	}
	s, _ := c.cache.Snapshot(name)
	return s, nil
}

// Write validates, coerces, and drives one value to the controller. On an OK
// acknowledgment the cache is updated optimistically with the written value;
// on any other outcome the cache is untouched and the failure is returned.
func (c *Core) Write(ctx context.Context, name string, value any) error {
	ch, err := c.cat.Lookup(name)
	if err != nil {
		return err
	}
	if !ch.Writable() {
		return fmt.Errorf("%w: %q is %s", ErrDirection, name, ch.Direction)
	}

	v, err := coerce(value, ch.Type)
	if err != nil {
		return err
	}

	request := wire.EncodeWrite(ch.Bus, ch.Pin, v, ch.Type == catalog.ValueBool)
	c.log.Debug("writing",
		zap.String("channel", ch.Name),
		zap.String("request", strings.TrimRight(request, "\n")))

	reply, err := c.link.Exchange(ctx, request)
	if err != nil {
		c.logWriteFailure(ch, err)
		return err
	}

	if !wire.DecodeWriteAck(reply) {
		err := fmt.Errorf("%w: channel %q got %q", ErrAckMismatch, name, reply)
		c.logWriteFailure(ch, err)
		return err
	}

	c.cache.SetOK(name, v)
	return nil
}

// Subscribe registers a callback invoked on every successful poll update of
// the named channel. Callbacks run on the polling goroutine and must be quick.
func (c *Core) Subscribe(name string, fn func(Update)) error {
	if _, err := c.cat.Lookup(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[name] = append(c.subs[name], fn)
	return nil
}

// Dispatch fans a poll update out to the channel's subscribers.
// Wired as the poll scheduler's notify hook.
func (c *Core) Dispatch(ch catalog.Channel, s state.Sample) {
	c.mu.RLock()
	fns := c.subs[ch.Name]
	c.mu.RUnlock()

	u := Update{Channel: ch.Name, Sample: s}
	for _, fn := range fns {
		fn(u)
	}
}

func (c *Core) logWriteFailure(ch catalog.Channel, err error) {
	c.log.Warn("write failed",
		zap.String("channel", ch.Name),
		zap.Stringer("bus", ch.Bus),
		zap.Int("pin", ch.Pin),
		zap.String("op", "set"),
		zap.Error(err))
}

// coerce maps an externally-typed value onto the channel's data type.
// Boolean channels accept bools, numbers (truthiness by non-zero), and the
// case-insensitive strings on/1/true; every other string means off. Analog
// channels accept numbers and numeric strings.
func coerce(value any, t catalog.ValueType) (float64, error) {
	var v float64

	switch x := value.(type) {
	case bool:
		if x {
			v = 1
		}
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case string:
		if t == catalog.ValueBool {
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "on", "1", "true":
				v = 1
			default:
				v = 0
			}
		} else {
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return 0, fmt.Errorf("gateway: cannot coerce %q to float", x)
			}
			v = f
		}
	default:
		return 0, fmt.Errorf("gateway: unsupported value type %T", value)
	}

	if t == catalog.ValueBool && v != 0 {
		v = 1
	}
	return v, nil
}
