// Package fanout implements per-subscriber WebSocket telemetry pumps (spec
// §4.E): one goroutine per connection, sampling the hub at 10 Hz rather
// than broadcasting off a shared channel, so a slow subscriber only drops
// its own ticks instead of backing up every other subscriber.
package fanout

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/groundstation/servo/internal/vehicle"
)

const tickRate = 100 * time.Millisecond // 10 Hz

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // CORS wide open, spec §4.J
}

// Subscriber pumps JSON-encoded VehicleState snapshots to one WebSocket
// connection at 10 Hz.
type Subscriber struct {
	logger *slog.Logger
	hub    *vehicle.Hub
	conn   *websocket.Conn
}

// Attach upgrades r to a WebSocket and runs its pump loop until the
// connection closes or a send fails. Blocks; call from its own goroutine.
func Attach(w http.ResponseWriter, r *http.Request, logger *slog.Logger, hub *vehicle.Hub) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := &Subscriber{logger: logger, hub: hub, conn: conn}
	sub.run()
	return nil
}

func (s *Subscriber) run() {
	defer s.conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			// Drain incoming frames; a Close frame surfaces as an error
			// here, which cancels this subscriber's pump (spec §4.E).
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// time.Ticker inherently delays rather than bursts on a missed tick
	// (it drops ticks that weren't received in time instead of queueing
	// them), which is exactly spec §4.E/§5's "delay policy on missed
	// ticks (do not burst-catch-up)" — no extra machinery is needed.
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			st := s.hub.Snapshot()
			payload, err := json.Marshal(st)
			if err != nil {
				s.logger.Error("fanout: marshal error", "error", err)
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("fanout: send error, terminating subscriber", "error", err)
				return
			}
		}
	}
}
