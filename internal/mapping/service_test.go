package mapping

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
)

type fakePusher struct {
	calls [][]channelmap.NodeMapping
	err   error
}

func (p *fakePusher) SendMappings(mappings []channelmap.NodeMapping) error {
	p.calls = append(p.calls, mappings)
	return p.err
}

func newTestService(t *testing.T) (*Service, *fakePusher, *vehicle.Hub) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := vehicle.NewHub()
	pusher := &fakePusher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, st, pusher, hub), pusher, hub
}

func testMapping(configID, textID string) channelmap.NodeMapping {
	return channelmap.NodeMapping{
		ConfigurationID: configID,
		TextID:          textID,
		BoardID:         1,
		ChannelType:     channelmap.ChannelValve,
		Channel:         2,
		Computer:        channelmap.ComputerFlight,
	}
}

func TestReplaceThenListThenPush(t *testing.T) {
	svc, pusher, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Replace(ctx, "cfg-a", []channelmap.NodeMapping{testMapping("cfg-a", "BBV")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	configs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(configs) != 1 || len(configs[0].Mappings) != 1 {
		t.Fatalf("List = %+v, want one configuration with one mapping", configs)
	}
	if configs[0].Mappings[0].TextID != "BBV" {
		t.Errorf("mapping TextID = %q, want BBV", configs[0].Mappings[0].TextID)
	}

	// Replace always pushes, even if the set isn't active yet (push sends
	// whatever is currently active, which may be empty).
	if len(pusher.calls) != 1 {
		t.Fatalf("got %d pushes, want 1", len(pusher.calls))
	}
}

func TestActivateRequiresExistingConfiguration(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Replace(ctx, "cfg-a", []channelmap.NodeMapping{testMapping("cfg-a", "BBV")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	err := svc.Activate(ctx, "does-not-exist")
	if apierr.KindOf(err) != apierr.BadRequest {
		t.Fatalf("Activate(unknown) kind = %v, want BadRequest", apierr.KindOf(err))
	}

	if err := svc.Activate(ctx, "cfg-a"); err != nil {
		t.Fatalf("Activate(cfg-a): %v", err)
	}

	active, err := svc.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active != "cfg-a" {
		t.Errorf("GetActive = %q, want cfg-a", active)
	}
}

func TestGetActiveNotFoundWhenNoneActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetActive(context.Background())
	if apierr.KindOf(err) != apierr.NotFound {
		t.Fatalf("GetActive kind = %v, want NotFound", apierr.KindOf(err))
	}
}

func TestCalibrateWritesLiveReadingAsOffset(t *testing.T) {
	svc, _, hub := newTestService(t)
	ctx := context.Background()

	m := testMapping("cfg-a", "KBPT")
	m.ChannelType = channelmap.ChannelCurrentLoop
	if err := svc.Replace(ctx, "cfg-a", []channelmap.NodeMapping{m}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := svc.Activate(ctx, "cfg-a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	state := vehicle.NewState()
	state.SensorReadings["KBPT"] = vehicle.Measurement{Value: 42.5, Unit: vehicle.UnitPsi}
	hub.Replace(state)

	updated, err := svc.Calibrate(ctx)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if updated["KBPT"] != 42.5 {
		t.Fatalf("Calibrate returned %v, want 42.5 for KBPT", updated["KBPT"])
	}

	configs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := configs[0].Mappings[0]
	if got.CalibratedOffset == nil || *got.CalibratedOffset != 42.5 {
		t.Errorf("stored CalibratedOffset = %v, want 42.5", got.CalibratedOffset)
	}
}

func TestPushFailureSurfacesAsInternal(t *testing.T) {
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	pusher := &fakePusher{err: errPushFailed}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(logger, st, pusher, vehicle.NewHub())

	err = svc.Replace(context.Background(), "cfg-a", []channelmap.NodeMapping{testMapping("cfg-a", "BBV")})
	if apierr.KindOf(err) != apierr.Internal {
		t.Fatalf("Replace push-failure kind = %v, want Internal", apierr.KindOf(err))
	}
}

var errPushFailed = &testError{"flight computer not connected"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
