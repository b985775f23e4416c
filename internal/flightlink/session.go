// Package flightlink owns the single flight-computer session: one TCP
// command channel plus the shared UDP telemetry socket (spec §4.C). The
// flight computer initiates both links; this side only ever accepts.
package flightlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/vehicle"
	"github.com/groundstation/servo/internal/wire"
)

const (
	CommandAddr   = "0.0.0.0:5025"
	TelemetryAddr = "0.0.0.0:7201"

	initialDatagramBuf = 521
	maxDatagramBuf      = 1 << 20
)

// RawForwarder re-sends a raw telemetry datagram to every live legacy UDP
// forwarding target (spec §4.E). Implemented by internal/forwarding.
type RawForwarder interface {
	ForwardRaw(ctx context.Context, datagram []byte)
}

// Session is the shared (mutex<option<session>>, TCP stream) slot of spec
// §5: the accept loop installs it, the telemetry receiver clears it on
// exit, and any request path that needs to send takes the slot mutex
// briefly and writes through it.
type Session struct {
	logger *slog.Logger
	hub    *vehicle.Hub
	fwd    RawForwarder

	udpConn *net.UDPConn

	mu   sync.Mutex
	conn net.Conn // nil when no flight computer is connected
}

// New constructs a Session. Run must be called to actually bind and start
// accepting.
func New(logger *slog.Logger, hub *vehicle.Hub, fwd RawForwarder) *Session {
	return &Session{logger: logger, hub: hub, fwd: fwd}
}

// Run binds the TCP command listener and UDP telemetry socket and blocks,
// accepting flight connections until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	tcpListener, err := net.Listen("tcp", CommandAddr)
	if err != nil {
		return fmt.Errorf("flightlink: binding command channel on %s: %w", CommandAddr, err)
	}
	defer tcpListener.Close()

	udpAddr, err := net.ResolveUDPAddr("udp", TelemetryAddr)
	if err != nil {
		return fmt.Errorf("flightlink: resolving telemetry address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("flightlink: binding telemetry channel on %s: %w", TelemetryAddr, err)
	}
	s.udpConn = udpConn
	defer udpConn.Close()

	go func() {
		<-ctx.Done()
		tcpListener.Close()
		udpConn.Close()
	}()

	for {
		conn, err := tcpListener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("flightlink: accept error", "error", err)
			continue
		}
		s.handleAccept(ctx, conn)
	}
}

// handleAccept implements "if no session is currently held, install the
// stream as the active flight; spawn the telemetry receiver task bound to
// this session's lifetime. If a session is already held, close the new
// stream immediately" (spec §4.C).
func (s *Session) handleAccept(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		s.logger.Info("flightlink: rejecting second flight connection", "remote", conn.RemoteAddr())
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("flightlink: flight computer connected", "remote", conn.RemoteAddr())
	sessionCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		s.telemetryLoop(sessionCtx)
	}()
	go func() {
		defer cancel()
		s.watchCommandStream(sessionCtx, conn)
	}()
}

// watchCommandStream blocks on reads from the flight computer's command
// stream purely to detect its closure (spec §4.C "destroyed on I/O error
// or clean close"); the flight computer never sends on this stream.
func (s *Session) watchCommandStream(ctx context.Context, conn net.Conn) {
	defer s.clearSession()
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			if ctx.Err() == nil {
				s.logger.Info("flightlink: command stream closed", "remote", conn.RemoteAddr())
			}
			return
		}
	}
}

// telemetryLoop reads datagrams off the shared UDP socket for the lifetime
// of the currently-held session, replacing the hub's state on every
// successfully decoded frame and re-sending the raw bytes to every legacy
// forwarding target (spec §4.E).
func (s *Session) telemetryLoop(ctx context.Context) {
	buf := make([]byte, initialDatagramBuf)
	defer s.clearSession()

	for {
		if ctx.Err() != nil {
			return
		}

		n, _, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if isMsgSizeError(err) {
				buf = growBuffer(buf)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("flightlink: telemetry read error", "error", err)
			return
		}

		if n == 0 {
			s.logger.Info("flightlink: zero-length telemetry datagram, terminating session")
			return
		}

		datagram := append([]byte(nil), buf[:n]...)

		if n == len(buf) {
			// Datagram may have been truncated to fit; grow for next read
			// and accept this frame may be partial (spec §4.C).
			buf = growBuffer(buf)
		}

		st, err := wire.DecodeState(datagram)
		if err != nil {
			s.logger.Warn("flightlink: telemetry decode error", "error", err)
			continue
		}
		s.hub.Replace(st)

		if s.fwd != nil {
			s.fwd.ForwardRaw(ctx, datagram)
		}
	}
}

func growBuffer(buf []byte) []byte {
	next := len(buf) * 2
	if next > maxDatagramBuf {
		next = maxDatagramBuf
	}
	return make([]byte, next)
}

// isMsgSizeError reports whether err is the "message too long for buffer"
// signal: EMSGSIZE on POSIX, WSAEMSGSIZE (10040) on Windows (spec §4.C).
func isMsgSizeError(err error) bool {
	if errors.Is(err, syscall.EMSGSIZE) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && int(errno) == 10040 {
		return true
	}
	return false
}

// clearSession implements "when the telemetry loop exits, clear the flight
// slot... auto-accept resumes" (spec §4.C).
func (s *Session) clearSession() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.mu.Unlock()
}

// IsConnected reports whether a flight computer currently holds the
// session.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// SendBytes serializes writes to the command stream under the session's
// exclusive lock (spec §4.C "send_bytes"). Fails with a NotConnected-class
// error if no session is held.
func (s *Session) SendBytes(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return apierr.Internalf(nil, "flight computer not connected")
	}
	if _, err := s.conn.Write(buf); err != nil {
		return fmt.Errorf("flightlink: writing to command stream: %w", err)
	}
	return nil
}

// SendMappings wraps mappings in a FlightControlMessage::Mappings frame and
// sends it (spec §4.C "send_mappings").
func (s *Session) SendMappings(mappings []channelmap.NodeMapping) error {
	return s.SendBytes(wire.EncodeMappings(mappings))
}

// SendSequence wraps {name, script} in a FlightControlMessage::Sequence
// frame and sends it (spec §4.C "send_sequence").
func (s *Session) SendSequence(name, script string) error {
	return s.SendBytes(wire.EncodeSequence(name, script))
}
