// Package forwarding implements the legacy UDP forwarding targets (spec
// §3 "ForwardingTarget", §4.E): operators register a native UDP consumer,
// every inbound telemetry frame is mirrored to each live target, and a
// background sweeper prunes expired rows. Targets live purely in the
// database — no in-memory cache — per spec §9's prescribed fix for the
// source's mixed-mutex anti-pattern.
package forwarding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
)

const (
	ttlSeconds    = 600
	sweepInterval = 10 * time.Second
)

// Target mirrors the ForwardingTarget row (spec §3).
type Target struct {
	TargetID      uuid.UUID `json:"target_id"`
	SocketAddress string    `json:"socket_address"`
	Expiration    float64   `json:"expiration"`
}

// Registry is the register/renew/list/forward service over the
// ForwardingTargets table.
type Registry struct {
	logger *slog.Logger
	store  *store.Store
	send   *net.UDPConn
	now    func() float64
}

// New constructs a Registry. It opens its own ephemeral-port UDP socket
// used only to send mirrored datagrams to targets (never to receive).
func New(logger *slog.Logger, st *store.Store) (*Registry, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("forwarding: opening send socket: %w", err)
	}
	return &Registry{
		logger: logger,
		store:  st,
		send:   conn,
		now:    func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}, nil
}

func (r *Registry) Close() error { return r.send.Close() }

// Register inserts a new target for socketAddress, failing Conflict on a
// duplicate socket address (spec §3, invariant "inserts fail on duplicate
// socket_address").
func (r *Registry) Register(ctx context.Context, socketAddress string) (*Target, error) {
	id := uuid.New()
	expiration := r.now() + ttlSeconds

	_, err := r.store.Exec(ctx,
		`INSERT INTO ForwardingTargets (target_id, socket_address, expiration) VALUES (?, ?, ?)`,
		id.String(), socketAddress, expiration,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.Conflictf("forwarding target %s already registered", socketAddress)
		}
		return nil, apierr.Internalf(err, "forwarding: inserting target")
	}

	return &Target{TargetID: id, SocketAddress: socketAddress, Expiration: expiration}, nil
}

// Renew refreshes the TTL for socketAddress, requiring requesterIP to match
// the IP embedded in the target's socket address — the host the client
// registered from, per spec §4.E ("renewal requires the renewing request
// to originate from the same IP as the recorded target").
func (r *Registry) Renew(ctx context.Context, socketAddress, requesterIP string) error {
	registeredIP, _, err := net.SplitHostPort(socketAddress)
	if err != nil {
		registeredIP = socketAddress
	}
	if registeredIP != requesterIP {
		return apierr.Forbiddenf("renewal must originate from the registered target's IP")
	}

	expiration := r.now() + ttlSeconds
	res, err := r.store.Exec(ctx,
		`UPDATE ForwardingTargets SET expiration = ? WHERE socket_address = ?`,
		expiration, socketAddress,
	)
	if err != nil {
		return apierr.Internalf(err, "forwarding: renewing target")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apierr.Internalf(err, "forwarding: checking renew result")
	}
	if n == 0 {
		return apierr.NotFoundf("forwarding target %s not found", socketAddress)
	}
	return nil
}

// ForwardRaw re-sends datagram to every currently live forwarding target.
// Implements flightlink.RawForwarder. Best-effort: send errors are logged
// and do not interrupt the telemetry loop.
func (r *Registry) ForwardRaw(ctx context.Context, datagram []byte) {
	targets, err := r.live(ctx)
	if err != nil {
		r.logger.Warn("forwarding: listing live targets failed", "error", err)
		return
	}
	for _, t := range targets {
		addr, err := net.ResolveUDPAddr("udp", t.SocketAddress)
		if err != nil {
			r.logger.Warn("forwarding: bad target address", "target", t.SocketAddress, "error", err)
			continue
		}
		if _, err := r.send.WriteToUDP(datagram, addr); err != nil {
			r.logger.Warn("forwarding: send failed", "target", t.SocketAddress, "error", err)
		}
	}
}

func (r *Registry) live(ctx context.Context) ([]Target, error) {
	rows, err := r.store.Query(ctx,
		`SELECT target_id, socket_address, expiration FROM ForwardingTargets WHERE expiration >= ?`,
		r.now(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var idStr, addr string
		var exp float64
		if err := rows.Scan(&idStr, &addr, &exp); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		out = append(out, Target{TargetID: id, SocketAddress: addr, Expiration: exp})
	}
	return out, rows.Err()
}

// Sweeper deletes expired forwarding targets every interval.
type Sweeper struct {
	logger   *slog.Logger
	store    *store.Store
	now      func() float64
	interval time.Duration
}

func NewSweeper(logger *slog.Logger, st *store.Store) *Sweeper {
	return &Sweeper{
		logger:   logger,
		store:    st,
		now:      func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
		interval: sweepInterval,
	}
}

// Run blocks until ctx is cancelled, deleting expired targets on a
// time.Ticker — the skip/delay missed-tick behavior spec §5 calls for
// falls out of using a Ticker rather than a self-rearming timer loop.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.store.Exec(ctx, `DELETE FROM ForwardingTargets WHERE expiration < ?`, sw.now()); err != nil {
				sw.logger.Warn("forwarding: sweep failed", "error", err)
			}
		}
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
