// internal/poll/scheduler.go
package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/portenta-gateway/internal/catalog"
	"github.com/tamzrod/portenta-gateway/internal/state"
	"github.com/tamzrod/portenta-gateway/internal/wire"
)

// Exchanger is the single serialized request/response path to the controller.
type Exchanger interface {
	Exchange(ctx context.Context, request string) (string, error)
}

// Notify receives every successful poll update.
type Notify func(ch catalog.Channel, s state.Sample)

// Scheduler drives one timer loop per polled channel. Each loop enqueues a
// read on the shared link, awaits its own outcome, and only then arms the
// next tick, so a slow channel can never flood the queue: total in-flight
// reads are bounded to one per channel.
type Scheduler struct {
	link   Exchanger
	cat    *catalog.Catalog
	cache  *state.Cache
	notify Notify
	log    *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cat *catalog.Catalog, link Exchanger, cache *state.Cache, notify Notify, log *zap.Logger) *Scheduler {
	return &Scheduler{
		link:   link,
		cat:    cat,
		cache:  cache,
		notify: notify,
		log:    log,
	}
}

// Start launches the per-channel poll loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	n := 0
	for ch := range s.cat.All() {
		if !ch.Polled() {
			continue
		}
		n++
		s.wg.Add(1)
		go s.run(ctx, ch)
	}

	s.log.Info("poll scheduler started", zap.Int("channels", n))
}

// Stop cancels all loops and waits for in-flight exchanges to resolve.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("poll scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, ch catalog.Channel) {
	defer s.wg.Done()

	// A timer, not a ticker: the next firing is armed only after the current
	// exchange resolves, and failures keep the normal cadence (no backoff).
	timer := time.NewTimer(ch.PollPeriod)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.pollOnce(ctx, ch)
			timer.Reset(ch.PollPeriod)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context, ch catalog.Channel) {
	reply, err := s.link.Exchange(ctx, wire.EncodeRead(ch.Bus, ch.Pin))
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down, not a channel fault
		}
		s.fail(ch, "exchange", err)
		return
	}

	value, err := wire.DecodeReadReply(reply, ch.Type == catalog.ValueBool)
	if err != nil {
		// Malformed replies are transient faults, handled like transport errors.
		s.fail(ch, "decode", err)
		return
	}

	sample := s.cache.SetOK(ch.Name, value)
	if s.notify != nil {
		s.notify(ch, sample)
	}
}

func (s *Scheduler) fail(ch catalog.Channel, op string, err error) {
	s.cache.SetError(ch.Name)
	s.log.Warn("poll failed",
		zap.String("channel", ch.Name),
		zap.Stringer("bus", ch.Bus),
		zap.Int("pin", ch.Pin),
		zap.String("op", op),
		zap.Error(err))
}
