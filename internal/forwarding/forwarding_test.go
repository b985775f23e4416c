package forwarding

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(logger, st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegisterThenRenewRequiresMatchingIP(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	target, err := r.Register(ctx, "203.0.113.5:9000")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if target.SocketAddress != "203.0.113.5:9000" {
		t.Errorf("SocketAddress = %q, want 203.0.113.5:9000", target.SocketAddress)
	}

	if err := r.Renew(ctx, "203.0.113.5:9000", "198.51.100.9"); apierr.KindOf(err) != apierr.Forbidden {
		t.Fatalf("Renew from wrong IP kind = %v, want Forbidden", apierr.KindOf(err))
	}

	if err := r.Renew(ctx, "203.0.113.5:9000", "203.0.113.5"); err != nil {
		t.Fatalf("Renew from registered IP: %v", err)
	}
}

func TestRegisterDuplicateSocketAddressConflicts(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Register(ctx, "203.0.113.5:9000"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := r.Register(ctx, "203.0.113.5:9000")
	if apierr.KindOf(err) != apierr.Conflict {
		t.Fatalf("second Register kind = %v, want Conflict", apierr.KindOf(err))
	}
}

func TestRenewUnknownTargetNotFound(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Renew(context.Background(), "203.0.113.5:9000", "203.0.113.5")
	if apierr.KindOf(err) != apierr.NotFound {
		t.Fatalf("Renew(unknown) kind = %v, want NotFound", apierr.KindOf(err))
	}
}

func TestForwardRawOnlyReachesLiveTargets(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	liveAddr := listener.LocalAddr().String()
	if _, err := r.Register(ctx, liveAddr); err != nil {
		t.Fatalf("Register live target: %v", err)
	}

	// An expired target (already in the past) should not receive anything.
	expiredListener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer expiredListener.Close()
	if _, err := r.store.Exec(ctx,
		`INSERT INTO ForwardingTargets (target_id, socket_address, expiration) VALUES (?, ?, ?)`,
		"00000000-0000-0000-0000-000000000001", expiredListener.LocalAddr().String(), -1.0,
	); err != nil {
		t.Fatalf("seeding expired target: %v", err)
	}

	r.ForwardRaw(ctx, []byte("telemetry-frame"))

	listener.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected the live target to receive the forwarded datagram: %v", err)
	}
	if string(buf[:n]) != "telemetry-frame" {
		t.Errorf("received %q, want telemetry-frame", buf[:n])
	}

	expiredListener.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if n, _, err := expiredListener.ReadFromUDP(buf); err == nil {
		t.Errorf("expired target received %q, want nothing", buf[:n])
	}
}

func TestSweeperDeletesExpiredTargets(t *testing.T) {
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if _, err := st.Exec(ctx,
		`INSERT INTO ForwardingTargets (target_id, socket_address, expiration) VALUES (?, ?, ?)`,
		"00000000-0000-0000-0000-000000000002", "127.0.0.1:2", -1.0,
	); err != nil {
		t.Fatalf("seeding expired target: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := NewSweeper(logger, st)
	sw.now = func() float64 { return 0 }
	sw.interval = 20 * time.Millisecond

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		sw.Run(runCtx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int
		if err := st.QueryRow(ctx, `SELECT COUNT(*) FROM ForwardingTargets`).Scan(&count); err != nil {
			t.Fatalf("counting targets: %v", err)
		}
		if count == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	<-done

	var count int
	if err := st.QueryRow(ctx, `SELECT COUNT(*) FROM ForwardingTargets`).Scan(&count); err != nil {
		t.Fatalf("counting targets: %v", err)
	}
	if count != 0 {
		t.Fatalf("ForwardingTargets count = %d, want 0 after sweep", count)
	}
}
