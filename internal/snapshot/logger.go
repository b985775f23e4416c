// Package snapshot implements the snapshot logger (spec §4.D): on every hub
// notification, serialize and append a timestamped VehicleState row.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
	"github.com/groundstation/servo/internal/wire"
)

// Logger loops: await the hub's notifier, take a snapshot, serialize, and
// insert a row into VehicleSnapshots. Spec §4.D frames the destination
// store as held by "weak reference"; we hold a plain reference and instead
// take an explicit context, cancelled by internal/runtime's supervisor when
// the store is going away — the substitution spec §9 sanctions.
//
// An insert failure is fatal to this task: "a panic is permitted, as a
// persistence failure is unrecoverable for this server" (spec §4.D).
type Logger struct {
	logger *slog.Logger
	hub    *vehicle.Hub
	store  *store.Store
	now    func() float64
}

// New constructs a Logger. now defaults to a monotonic-ish wall-clock
// reading in seconds; tests inject a deterministic clock.
func New(logger *slog.Logger, hub *vehicle.Hub, st *store.Store) *Logger {
	return &Logger{
		logger: logger,
		hub:    hub,
		store:  st,
		now:    func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Run blocks until ctx is cancelled, recording a snapshot on every hub
// notification.
func (l *Logger) Run(ctx context.Context) {
	for {
		if err := l.hub.Wait(ctx); err != nil {
			l.logger.Info("snapshot: logger stopping", "reason", err)
			return
		}

		st := l.hub.Snapshot()
		blob := wire.EncodeState(st)
		recordedAt := l.now()

		if _, err := l.store.Exec(ctx,
			`INSERT INTO VehicleSnapshots (recorded_at, vehicle_state) VALUES (?, ?)`,
			recordedAt, blob,
		); err != nil {
			l.logger.Error("snapshot: insert failed, this task cannot continue", "error", err)
			panic(err)
		}
	}
}
