// Package rpc exposes the daemon status over net/rpc on a unix socket.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"os"
	"time"

	"github.com/AndrewLester/timesync/pkg/timesync"
)

const (
	DefaultSocket = "/var/run/timesyncd.sock"
	ServiceName   = "StatusServer"
)

// Status is the wire form of timesync.Status.
type Status struct {
	Upstream   string
	Interval   time.Duration
	Responder  string
	ListenAddr string

	Requests  uint64
	Responses uint64
	Malformed uint64
	Failed    uint64

	LastSync       time.Time
	LastOffset     time.Duration
	LastRTT        time.Duration
	LastStratum    uint8
	LastAdjustment string
	LastError      string
	Cycles         uint64
	Failures       uint64
}

func NewStatus(st timesync.Status) Status {
	out := Status{
		Upstream:   st.Upstream,
		Interval:   st.Interval,
		Responder:  st.Responder.String(),
		ListenAddr: st.ListenAddr,
		Requests:   st.Requests.Requests,
		Responses:  st.Requests.Responses,
		Malformed:  st.Requests.Malformed,
		Failed:     st.Requests.Failed,
		LastSync:   st.Sync.At,
		Cycles:     st.Sync.Cycles,
		Failures:   st.Sync.Failures,
	}
	if res := st.Sync.Result; res != nil {
		out.LastOffset = res.Offset
		out.LastRTT = res.RTT
		out.LastStratum = res.Stratum
		out.LastAdjustment = res.Adjustment.String()
	}
	if st.Sync.Err != nil {
		out.LastError = st.Sync.Err.Error()
	}
	return out
}

type StatusProvider interface {
	Status() timesync.Status
}

// StatusService holds the RPC methods.
type StatusService struct {
	provider StatusProvider
}

func (s *StatusService) FetchStatus(args int, reply *Status) error {
	*reply = NewStatus(s.provider.Status())
	return nil
}

type StatusServer struct {
	log      *slog.Logger
	socket   string
	provider StatusProvider
}

func NewStatusServer(log *slog.Logger, socket string, provider StatusProvider) *StatusServer {
	return &StatusServer{log: log, socket: socket, provider: provider}
}

// Listen serves RPC requests until ctx is done. A stale socket file from a
// previous run is replaced.
func (s *StatusServer) Listen(ctx context.Context) error {
	server := rpc.NewServer()
	if err := server.RegisterName(ServiceName, &StatusService{provider: s.provider}); err != nil {
		return fmt.Errorf("failed to register rpc service: %w", err)
	}

	err := os.Remove(s.socket)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket %s: %w", s.socket, err)
	}

	l, err := net.Listen("unix", s.socket)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socket, err)
	}
	defer os.Remove(s.socket)

	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	s.log.Info("rpc: listening", "socket", s.socket)
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info("rpc: listener closed")
				return nil
			}
			s.log.Warn("rpc: accept failed", "error", err)
			continue
		}
		go server.ServeConn(conn)
	}
}

type Client struct {
	c *rpc.Client
}

func Dial(socket string) (*Client, error) {
	c, err := rpc.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to timesyncd at %s: %w", socket, err)
	}
	return &Client{c: c}, nil
}

func (c *Client) FetchStatus() (Status, error) {
	var reply Status
	err := c.c.Call(ServiceName+".FetchStatus", 0, &reply)
	return reply, err
}

func (c *Client) Close() error {
	return c.c.Close()
}
