package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/AndrewLester/timesync/internal/config"
	"github.com/AndrewLester/timesync/pkg/sntp"
	"github.com/jonboulle/clockwork"
)

// TimeAuthority is the platform's own time synchronization service.
type TimeAuthority interface {
	Disable(ctx context.Context) error
}

type ServiceConfig struct {
	Clock  clockwork.Clock
	Config *config.Config
	Client Client

	// TimeAuthority is disabled on start when Config.DisableSystemTimeService
	// is set. Nil skips the step.
	TimeAuthority TimeAuthority
}

func (cfg *ServiceConfig) Validate() error {
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	if cfg.Config == nil {
		return errors.New("config is required")
	}
	if cfg.Client == nil {
		return errors.New("client is required")
	}
	return nil
}

// Status is a point-in-time view of the service.
type Status struct {
	Upstream string
	Interval time.Duration
	// StateIdle when the responder is not running.
	Responder  sntp.State
	ListenAddr string
	Requests   sntp.Stats
	Sync       SyncStatus
}

// Service ties together the upstream sync loop and the SNTP responder. The
// two run independently: a responder that cannot bind leaves the sync loop
// running on its schedule.
type Service struct {
	log       *slog.Logger
	cfg       *ServiceConfig
	scheduler *Scheduler

	mu         sync.Mutex
	server     *sntp.Server
	serverDone chan struct{}
}

func NewService(log *slog.Logger, cfg *ServiceConfig) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, port, err := cfg.Config.Upstream()
	if err != nil {
		return nil, fmt.Errorf("invalid upstream server: %w", err)
	}
	scheduler, err := NewScheduler(log, &SchedulerConfig{
		Clock:    cfg.Clock,
		Client:   cfg.Client,
		Host:     host,
		Port:     port,
		Interval: cfg.Config.PoolInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Service{
		log:       log,
		cfg:       cfg,
		scheduler: scheduler,
	}, nil
}

// Start disables the platform time service, runs one sync cycle and starts
// the SNTP responder. None of these steps is fatal.
func (s *Service) Start(ctx context.Context) {
	cfg := s.cfg.Config

	if cfg.DisableSystemTimeService && s.cfg.TimeAuthority != nil {
		if err := s.cfg.TimeAuthority.Disable(ctx); err != nil {
			s.log.Warn("service: failed to disable system time service", "error", err)
		} else {
			s.log.Info("service: system time service disabled")
		}
	}

	_, _ = s.scheduler.SyncOnce(ctx)

	if !cfg.EnableTimeSyncService {
		s.log.Info("service: sntp responder disabled by configuration")
		return
	}

	srv, err := sntp.Listen(s.log, &sntp.Config{
		Clock:         s.cfg.Clock,
		ListenAddr:    cfg.ListenAddr(),
		ResponseDelay: cfg.ResponseDelay,
	})
	if err != nil {
		s.log.Error("service: failed to open port, turn off the system time service if it is running",
			"port", cfg.UDPPort, "error", err)
		return
	}
	s.log.Info("service: sntp responder started", "address", srv.LocalAddr())

	done := make(chan struct{})
	s.mu.Lock()
	s.server = srv
	s.serverDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			s.log.Error("service: sntp responder stopped", "error", err)
		}
	}()
}

// Run blocks in the sync loop until ctx is done, then closes the responder.
func (s *Service) Run(ctx context.Context) error {
	defer s.Close()
	return s.scheduler.Run(ctx)
}

// Close stops the responder and waits for its receive loop to exit.
func (s *Service) Close() error {
	s.mu.Lock()
	srv, done := s.server, s.serverDone
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Close()
	<-done
	return err
}

func (s *Service) Status() Status {
	host, port := s.scheduler.cfg.Host, s.scheduler.cfg.Port
	st := Status{
		Upstream:  net.JoinHostPort(host, strconv.Itoa(port)),
		Interval:  s.scheduler.cfg.Interval,
		Responder: sntp.StateIdle,
		Sync:      s.scheduler.Last(),
	}

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		st.Responder = srv.State()
		st.ListenAddr = srv.LocalAddr().String()
		st.Requests = srv.Stats()
	}
	return st
}
