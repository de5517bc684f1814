// internal/gateway/gateway_test.go
package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/portenta-gateway/internal/catalog"
	"github.com/tamzrod/portenta-gateway/internal/state"
	"github.com/tamzrod/portenta-gateway/internal/wire"
)

// fakeLink records requests and plays back canned replies in order.
type fakeLink struct {
	mu       sync.Mutex
	requests []string
	replies  []string
	err      error
}

func (f *fakeLink) Exchange(_ context.Context, request string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, request)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "OK", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func testCore(t *testing.T, link *fakeLink) (*Core, *state.Cache) {
	t.Helper()

	cat, err := catalog.New([]catalog.Channel{
		{Name: "do3", Bus: wire.BusDO, Pin: 3, Direction: catalog.WriteOnly,
			Type: catalog.ValueBool, Readback: "do3_rbv"},
		{Name: "do3_rbv", Bus: wire.BusDO, Pin: 3, Direction: catalog.ReadOnly,
			Type: catalog.ValueBool, PollPeriod: 6 * time.Second},
		{Name: "ao1", Bus: wire.BusAO, Pin: 1, Direction: catalog.WriteOnly,
			Type: catalog.ValueFloat},
		{Name: "dio2", Bus: wire.BusDIO, Pin: 2, Direction: catalog.ReadWrite,
			Type: catalog.ValueBool, PollPeriod: 6 * time.Second},
		{Name: "di0", Bus: wire.BusDI, Pin: 0, Direction: catalog.ReadOnly,
			Type: catalog.ValueBool, PollPeriod: 6 * time.Second},
	}, catalog.DefaultPinLimits())
	if err != nil {
		t.Fatalf("catalog.New err=%v", err)
	}

	cache := state.New(cat)
	return New(cat, link, cache, zap.NewNop()), cache
}

// ---- tests ----

func TestWrite_BoolAcknowledged(t *testing.T) {
	link := &fakeLink{replies: []string{"OK"}}
	core, cache := testCore(t, link)

	if err := core.Write(context.Background(), "do3", true); err != nil {
		t.Fatalf("Write err=%v", err)
	}

	if len(link.requests) != 1 || link.requests[0] != "SET DO 3 1\n" {
		t.Fatalf("requests = %q", link.requests)
	}

	s, _ := cache.Snapshot("do3")
	if s.Value != 1 || s.Health != state.HealthOK {
		t.Fatalf("cache after write = %+v", s)
	}
}

func TestWrite_StringCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"on", "SET DO 3 1\n"},
		{"ON", "SET DO 3 1\n"},
		{"1", "SET DO 3 1\n"},
		{"True", "SET DO 3 1\n"},
		{"off", "SET DO 3 0\n"},
		{"banana", "SET DO 3 0\n"},
		{false, "SET DO 3 0\n"},
		{1, "SET DO 3 1\n"},
	}

	for _, c := range cases {
		link := &fakeLink{replies: []string{"OK"}}
		core, _ := testCore(t, link)

		if err := core.Write(context.Background(), "do3", c.in); err != nil {
			t.Fatalf("Write(%v) err=%v", c.in, err)
		}
		if link.requests[0] != c.want {
			t.Errorf("Write(%v) sent %q, want %q", c.in, link.requests[0], c.want)
		}
	}
}

func TestWrite_AnalogPassThrough(t *testing.T) {
	link := &fakeLink{replies: []string{"OK"}}
	core, cache := testCore(t, link)

	if err := core.Write(context.Background(), "ao1", 2.5); err != nil {
		t.Fatalf("Write err=%v", err)
	}
	if link.requests[0] != "SET AO 1 2.5\n" {
		t.Fatalf("request = %q", link.requests[0])
	}

	s, _ := cache.Snapshot("ao1")
	if s.Value != 2.5 {
		t.Fatalf("cache value = %v", s.Value)
	}
}

func TestWrite_AckMismatchLeavesCache(t *testing.T) {
	link := &fakeLink{replies: []string{"OK"}}
	core, cache := testCore(t, link)

	// Seed a known value with an acknowledged write.
	if err := core.Write(context.Background(), "do3", true); err != nil {
		t.Fatalf("seed write err=%v", err)
	}

	link.replies = []string{"BUSY"}
	err := core.Write(context.Background(), "do3", false)
	if !errors.Is(err, ErrAckMismatch) {
		t.Fatalf("err=%v, want ErrAckMismatch", err)
	}

	s, _ := cache.Snapshot("do3")
	if s.Value != 1 {
		t.Fatalf("cache changed on unacknowledged write: %+v", s)
	}
}

func TestWrite_TransportErrorSurfaced(t *testing.T) {
	linkErr := errors.New("link: exchange timed out")
	link := &fakeLink{err: linkErr}
	core, cache := testCore(t, link)

	err := core.Write(context.Background(), "do3", true)
	if !errors.Is(err, linkErr) {
		t.Fatalf("err=%v, want underlying link error", err)
	}

	s, _ := cache.Snapshot("do3")
	if s.Health == state.HealthOK {
		t.Fatalf("cache marked ok on failed write: %+v", s)
	}
}

func TestWrite_DirectionAndUnknown(t *testing.T) {
	link := &fakeLink{}
	core, _ := testCore(t, link)

	if err := core.Write(context.Background(), "di0", true); !errors.Is(err, ErrDirection) {
		t.Fatalf("err=%v, want ErrDirection", err)
	}
	if err := core.Write(context.Background(), "dio2", true); err != nil {
		t.Fatalf("read-write channel refused write: %v", err)
	}
	if err := core.Write(context.Background(), "nope", true); !errors.Is(err, catalog.ErrUnknownChannel) {
		t.Fatalf("err=%v, want ErrUnknownChannel", err)
	}

	// No request may reach the controller for rejected writes.
	for _, req := range link.requests {
		if req != "SET DIO 2 1\n" {
			t.Fatalf("unexpected request %q", req)
		}
	}
}

func TestRead_UsesCache(t *testing.T) {
	link := &fakeLink{}
	core, cache := testCore(t, link)

	cache.SetOK("di0", 1)

	s, err := core.Read("di0")
	if err != nil {
		t.Fatalf("Read err=%v", err)
	}
	if s.Value != 1 || s.Health != state.HealthOK {
		t.Fatalf("Read = %+v", s)
	}
	if len(link.requests) != 0 {
		t.Fatalf("Read touched the controller: %q", link.requests)
	}

	if _, err := core.Read("nope"); !errors.Is(err, catalog.ErrUnknownChannel) {
		t.Fatalf("err=%v, want ErrUnknownChannel", err)
	}
}

func TestSubscribeAndDispatch(t *testing.T) {
	link := &fakeLink{}
	core, _ := testCore(t, link)

	var got []Update
	if err := core.Subscribe("di0", func(u Update) { got = append(got, u) }); err != nil {
		t.Fatalf("Subscribe err=%v", err)
	}
	if err := core.Subscribe("nope", func(Update) {}); !errors.Is(err, catalog.ErrUnknownChannel) {
		t.Fatalf("err=%v, want ErrUnknownChannel", err)
	}

	ch, _ := core.cat.Lookup("di0")
	sample := state.Sample{Value: 1, At: time.Now(), Health: state.HealthOK}
	core.Dispatch(ch, sample)

	other, _ := core.cat.Lookup("dio2")
	core.Dispatch(other, sample) // no subscriber, must not panic

	if len(got) != 1 || got[0].Channel != "di0" || got[0].Sample.Value != 1 {
		t.Fatalf("updates = %+v", got)
	}
}

func TestListChannels(t *testing.T) {
	core, _ := testCore(t, &fakeLink{})

	chans := core.ListChannels()
	if len(chans) != 5 {
		t.Fatalf("ListChannels returned %d channels", len(chans))
	}
	if chans[0].Name != "do3" || chans[0].Bus != wire.BusDO || chans[0].Pin != 3 {
		t.Fatalf("first descriptor = %+v", chans[0])
	}
}
