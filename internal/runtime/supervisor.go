// Package runtime supervises the long-lived actors started from `servo
// serve` (spec §2, §5): the flight-link session, the snapshot logger, and
// the forwarding-target TTL sweeper. golang.org/x/sync/errgroup is the
// corpus's own supervision primitive for a fixed set of cooperating
// goroutines that should all be torn down together on the first failure
// or on shutdown.
package runtime

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/groundstation/servo/internal/flightlink"
	"github.com/groundstation/servo/internal/forwarding"
	"github.com/groundstation/servo/internal/snapshot"
)

// Supervisor owns the background actors' lifetimes.
type Supervisor struct {
	logger  *slog.Logger
	flight  *flightlink.Session
	logging *snapshot.Logger
	sweeper *forwarding.Sweeper
}

func New(logger *slog.Logger, flight *flightlink.Session, logging *snapshot.Logger, sweeper *forwarding.Sweeper) *Supervisor {
	return &Supervisor{logger: logger, flight: flight, logging: logging, sweeper: sweeper}
}

// Run starts every actor and blocks until ctx is cancelled or one of them
// returns an error, at which point every other actor is cancelled too.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.flight.Run(ctx)
	})
	g.Go(func() error {
		s.logging.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.sweeper.Run(ctx)
		return nil
	})

	return g.Wait()
}
