package sntp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewLester/timesync/internal/metrics"
	"github.com/AndrewLester/timesync/internal/ntp"
	"github.com/jonboulle/clockwork"
)

// DefaultResponseDelay is added to the receive and transmit timestamps of
// every response.
const DefaultResponseDelay = time.Second

// readErrorBackoff is the pause before re-arming the receive after a read
// error that did not close the socket.
const readErrorBackoff = 100 * time.Millisecond

// ErrTransport wraps socket bind, receive and send failures.
var ErrTransport = errors.New("sntp transport failure")

type State int32

const (
	StateIdle State = iota
	StateListening
	StateResponding
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateResponding:
		return "responding"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Config struct {
	Clock         clockwork.Clock
	ListenAddr    string
	ResponseDelay time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if cfg.ResponseDelay < 0 {
		return errors.New("response delay must not be negative")
	}
	return nil
}

type Stats struct {
	Requests  uint64
	Responses uint64
	Malformed uint64
	Failed    uint64
}

// Server answers SNTP requests on one UDP socket. Datagrams are handled one
// at a time: a single receive is outstanding and it is re-armed after every
// datagram whatever the outcome of the previous exchange.
type Server struct {
	log    *slog.Logger
	cfg    *Config
	conn   *udpConn
	once   sync.Once
	closed chan struct{}

	state     atomic.Int32
	requests  atomic.Uint64
	responses atomic.Uint64
	malformed atomic.Uint64
	failed    atomic.Uint64
}

// Listen binds the responder socket. The returned error wraps ErrTransport
// when the port cannot be bound, e.g. because another time service owns it.
func Listen(log *slog.Logger, cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := listenUDP(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s/udp: %w", ErrTransport, cfg.ListenAddr, err)
	}

	return &Server{
		log:    log,
		cfg:    cfg,
		conn:   conn,
		closed: make(chan struct{}),
	}, nil
}

// Serve runs the receive loop until the context is done or the server is
// closed. Per-request failures are logged and never end the loop.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	s.log.Info("sntp: listening",
		"address", s.conn.LocalAddr(),
		"packetInfo", s.conn.pc4 != nil,
		"stratum", ntp.ResponseStratum,
		"precision", ntp.Log2ToDouble(ntp.ResponsePrecision),
		"rootDelay", ntp.ShortToDuration(ntp.ResponseRootDelay),
		"rootDispersion", ntp.ShortToDuration(ntp.ResponseRootDispersion),
		"responseDelay", s.cfg.ResponseDelay,
	)

	metrics.SNTPListening.Set(1)
	defer metrics.SNTPListening.Set(0)

	buf := make([]byte, ntp.MTU)
	for {
		s.setState(StateListening)

		n, remote, localIP, err := s.conn.ReadFrom(buf)
		if err != nil {
			if isClosedErr(err) {
				s.setState(StateStopped)
				s.log.Info("sntp: socket closed, stop listening")
				return nil
			}
			s.failed.Add(1)
			metrics.SNTPRequestsTotal.WithLabelValues("read_error").Inc()
			s.log.Error("sntp: error reading", "error", fmt.Errorf("%w: %w", ErrTransport, err), "backoff", readErrorBackoff)
			select {
			case <-s.closed:
			case <-s.cfg.Clock.After(readErrorBackoff):
			}
			continue
		}

		s.setState(StateResponding)
		if err := s.respond(buf[:n], remote, localIP); err != nil {
			s.log.Warn("sntp: request not answered", "remote", remote, "length", n, "error", err)
		}
	}
}

func (s *Server) respond(datagram []byte, remote *net.UDPAddr, localIP net.IP) error {
	s.requests.Add(1)

	request, err := ntp.ParseFrame(datagram)
	if err != nil {
		s.malformed.Add(1)
		metrics.SNTPRequestsTotal.WithLabelValues("malformed").Inc()
		return err
	}
	s.log.Debug("sntp: received time sync request", "remote", remote, "version", request.Version, "mode", request.Mode)

	response := request.RearrangeForResponse(s.cfg.Clock.Now(), s.cfg.ResponseDelay)
	if _, err := s.conn.WriteTo(response.Bytes(), remote, localIP); err != nil {
		s.failed.Add(1)
		metrics.SNTPRequestsTotal.WithLabelValues("write_error").Inc()
		return fmt.Errorf("%w: write to %s: %w", ErrTransport, remote, err)
	}

	s.responses.Add(1)
	metrics.SNTPRequestsTotal.WithLabelValues("ok").Inc()
	s.log.Debug("sntp: finished time sync", "remote", remote, "transmit", response.TransmitTime)
	return nil
}

// Close releases the socket, which unblocks a pending receive.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		s.log.Debug("sntp: closing socket")
		s.setState(StateStopped)
		metrics.SNTPListening.Set(0)
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

func (s *Server) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr()
}

func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) Stats() Stats {
	return Stats{
		Requests:  s.requests.Load(),
		Responses: s.responses.Load(),
		Malformed: s.malformed.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Server) setState(state State) {
	// Stopped is terminal.
	for {
		current := s.state.Load()
		if State(current) == StateStopped {
			return
		}
		if s.state.CompareAndSwap(current, int32(state)) {
			return
		}
	}
}
