package command

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/mapping"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
)

type fakeDispatcher struct {
	name, script string
	err          error
}

func (d *fakeDispatcher) SendSequence(name, script string) error {
	d.name, d.script = name, script
	return d.err
}

// SendMappings satisfies mapping.Pusher so the same fake can stand in for
// *flightlink.Session, which implements both interfaces.
func (d *fakeDispatcher) SendMappings(mappings []channelmap.NodeMapping) error { return nil }

func newTestService(t *testing.T) (*Service, *fakeDispatcher, *mapping.Service) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dispatcher := &fakeDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mappingSvc := mapping.New(logger, st, dispatcher, vehicle.NewHub())
	return New(dispatcher, mappingSvc), dispatcher, mappingSvc
}

func strPtr(s string) *string { return &s }

func TestDispatchEmptyCommand(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Dispatch(context.Background(), Request{})
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Dispatch(empty) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}

func TestDispatchUnrecognizedCommand(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Dispatch(context.Background(), Request{Command: "launch"})
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Dispatch(launch) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}

func TestClickValveRequiresActiveMappingTarget(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Dispatch(ctx, Request{Command: "click_valve", Target: strPtr("BBV"), State: strPtr("open")})
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("click_valve with no active configuration kind = %v, want BadRequest", apierr.KindOf(err))
	}
}

func TestClickValveDispatchesOpenAndClose(t *testing.T) {
	svc, dispatcher, mappingSvc := newTestService(t)
	ctx := context.Background()

	m := channelmap.NodeMapping{
		ConfigurationID: "cfg-a",
		TextID:          "BBV",
		BoardID:         1,
		ChannelType:     channelmap.ChannelValve,
		Channel:         1,
		Computer:        channelmap.ComputerFlight,
	}
	if err := mappingSvc.Replace(ctx, "cfg-a", []channelmap.NodeMapping{m}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mappingSvc.Activate(ctx, "cfg-a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := svc.Dispatch(ctx, Request{Command: "click_valve", Target: strPtr("BBV"), State: strPtr("open")}); err != nil {
		t.Fatalf("Dispatch(open): %v", err)
	}
	if dispatcher.script != "BBV.open()" {
		t.Errorf("script = %q, want BBV.open()", dispatcher.script)
	}

	if err := svc.Dispatch(ctx, Request{Command: "click_valve", Target: strPtr("BBV"), State: strPtr("closed")}); err != nil {
		t.Fatalf("Dispatch(closed): %v", err)
	}
	if dispatcher.script != "BBV.close()" {
		t.Errorf("script = %q, want BBV.close()", dispatcher.script)
	}
}

func TestClickValveRejectsUnknownState(t *testing.T) {
	svc, _, mappingSvc := newTestService(t)
	ctx := context.Background()

	m := channelmap.NodeMapping{ConfigurationID: "cfg-a", TextID: "BBV", ChannelType: channelmap.ChannelValve, Computer: channelmap.ComputerFlight}
	if err := mappingSvc.Replace(ctx, "cfg-a", []channelmap.NodeMapping{m}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mappingSvc.Activate(ctx, "cfg-a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	err := svc.Dispatch(ctx, Request{Command: "click_valve", Target: strPtr("BBV"), State: strPtr("ajar")})
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("click_valve(ajar) kind = %v, want BadRequest", apierr.KindOf(err))
	}
}
